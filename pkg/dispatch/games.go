package dispatch

import (
	"errors"
	"fmt"

	"meshbbs/pkg/blackjack"
	"meshbbs/pkg/logger"
	"meshbbs/pkg/session"
	"meshbbs/pkg/telemetry"
)

const turnCommands = "Commands: [H] Hit, [S] Stand, [Q] Quit to Games Menu"

// gamesMenu handles a packet while the Games Center menu is showing.
func (d *Dispatcher) gamesMenu(s *session.Session, in input) Reply {
	switch in.cmd {
	case "B":
		return d.startBlackjack(s)
	case "V":
		s.Menu = session.MenuGames
		return Reply{Text: "Video Poker is coming soon!\n\n" + gamesMenu}
	case "M":
		return d.toMain(s)
	}
	s.Menu = session.MenuGames
	return Reply{Text: "Invalid command in Games Center. Select a game or [M] Back to Main Menu.\n\n" + gamesMenu}
}

// startBlackjack seats the player with their banked balance, or the
// starting stake on a first visit.
func (d *Dispatcher) startBlackjack(s *session.Session) Reply {
	chips := d.startingChips
	if s.HasChips {
		chips = s.Chips
	}
	g, err := blackjack.New(chips)
	if err != nil {
		return d.outOfChips(s)
	}
	s.ClearInteractionScratch()
	s.Game = g
	s.Mode = session.ModeBlackjackBetting
	s.Menu = session.MenuGameActive
	return Reply{Text: betPrompt(g.Chips), Chunk: true}
}

func (d *Dispatcher) outOfChips(s *session.Session) Reply {
	s.ClearInteractionScratch()
	s.DropChips()
	s.Menu = session.MenuGames
	return Reply{Text: "** YOU ARE OUT OF CHIPS! **\n" + gamesMenu, Chunk: true}
}

func betPrompt(chips int) string {
	return fmt.Sprintf("** BLACKJACK (Chips: %d) **\nEnter your bet amount (1 - %d):\n[Q] Quit to Games Menu", chips, chips)
}

// leaveTable ends the game, banking chips, and shows Main or Games.
func (d *Dispatcher) leaveTable(s *session.Session, toMain bool) Reply {
	s.ClearInteractionScratch()
	if toMain {
		return d.toMain(s)
	}
	return d.toGames(s)
}

// game advances the blackjack table. Every game reply is framed.
func (d *Dispatcher) game(s *session.Session, in input) Reply {
	r := d.gameStep(s, in)
	r.Chunk = true
	return r
}

func (d *Dispatcher) gameStep(s *session.Session, in input) Reply {
	g := s.Game
	if g == nil {
		logger.Error("game_state_missing", "identity", s.Identity, "mode", s.Mode.String())
		return d.leaveTable(s, false)
	}
	key := in.first()

	switch s.Mode {
	case session.ModeBlackjackBetting:
		switch key {
		case "M":
			return d.leaveTable(s, true)
		case "Q":
			return d.leaveTable(s, false)
		}
		return d.placeBet(s, g, in)

	case session.ModeBlackjackTurn:
		switch key {
		case "H":
			c, err := g.Hit()
			if errors.Is(err, blackjack.ErrDeckExhausted) {
				return Reply{Text: "ERROR: Deck is empty. Cannot Hit. Use S to Stand.\n[Q] Quit to Games Menu"}
			}
			if err != nil {
				logger.Error("blackjack_hit_failed", "identity", s.Identity, "error", err)
				return d.leaveTable(s, false)
			}
			if g.Phase == blackjack.PhaseEnd {
				return d.settled(s, g)
			}
			return Reply{Text: fmt.Sprintf("You Hit and got a %s.\nDealer: [%s, ?]\nYou: %s (Score: %d)\n%s",
				c.Rank, g.Dealer[0].Rank, g.Player, g.Player.Value(), turnCommands)}
		case "S":
			if err := g.Stand(); err != nil {
				logger.Error("blackjack_stand_failed", "identity", s.Identity, "error", err)
				return d.leaveTable(s, false)
			}
			return d.settled(s, g)
		case "Q":
			return d.leaveTable(s, false)
		}
		return Reply{Text: fmt.Sprintf("Invalid command. Your hand: %s (Score: %d)\nBet: %d. Use [H] Hit, [S] Stand, or [Q] Quit to Games Menu.",
			g.Player, g.Player.Value(), g.Bet)}

	case session.ModeBlackjackEnd:
		switch key {
		case "N":
			if err := g.NextHand(); err != nil {
				return d.outOfChips(s)
			}
			s.Mode = session.ModeBlackjackBetting
			s.Menu = session.MenuGameActive
			return Reply{Text: betPrompt(g.Chips)}
		case "M":
			return d.leaveTable(s, true)
		case "Q":
			return d.leaveTable(s, false)
		}
		return Reply{Text: "Game finished. Use [N] New Game, [M] Main Menu, or [Q] Quit to Games Menu."}

	case session.ModeNone, session.ModePostingTopic, session.ModePostingSubject, session.ModePostingBody:
	}
	logger.Error("session_mode_unhandled", "identity", s.Identity, "mode", s.Mode.String())
	return d.leaveTable(s, false)
}

func (d *Dispatcher) placeBet(s *session.Session, g *blackjack.Game, in input) Reply {
	bet, err := g.ParseBet(in.upper)
	switch {
	case errors.Is(err, blackjack.ErrBetNotNumber):
		return Reply{Text: fmt.Sprintf("Invalid input. Please enter a whole number between 1 and %d to bet.\n[Q] Quit to Games Menu", g.Chips)}
	case errors.Is(err, blackjack.ErrBetTooSmall):
		return Reply{Text: fmt.Sprintf("Bet must be at least 1 chip.\nEnter your bet amount (1 - %d):\n[Q] Quit to Games Menu", g.Chips)}
	case errors.Is(err, blackjack.ErrBetTooLarge):
		return Reply{Text: fmt.Sprintf("You only have %d chips. Bet cannot exceed your chips.\nEnter your bet amount (1 - %d):\n[Q] Quit to Games Menu", g.Chips, g.Chips)}
	case err != nil:
		return Reply{Text: betPrompt(g.Chips)}
	}

	chips := g.Chips
	if err := g.Deal(bet, d.shuffle); err != nil {
		logger.Error("blackjack_deal_failed", "identity", s.Identity, "error", err)
		return Reply{Text: betPrompt(g.Chips)}
	}
	if g.Phase == blackjack.PhaseEnd {
		return d.settled(s, g)
	}
	s.Mode = session.ModeBlackjackTurn
	return Reply{Text: fmt.Sprintf("** BLACKJACK (Chips: %d) **\nBet: %d\nDealer: [%s, ?]\nYou: %s (Score: %d)\n%s",
		chips, bet, g.Dealer[0].Rank, g.Player, g.Player.Value(), turnCommands)}
}

func outcomeText(o blackjack.Outcome) string {
	switch o {
	case blackjack.OutcomeBust:
		return "BUST! You went over 21."
	case blackjack.OutcomeDealerBust:
		return "DEALER BUSTS! YOU WIN!"
	case blackjack.OutcomeBlackjack:
		return "BLACKJACK! You Win 1.5x!"
	case blackjack.OutcomeBlackjackPush:
		return "PUSH! (Dealer and You got Blackjack)"
	case blackjack.OutcomeWin:
		return "YOU WIN!"
	case blackjack.OutcomeLoss:
		return "DEALER WINS!"
	case blackjack.OutcomePush:
		return "PUSH (Tie)."
	case blackjack.OutcomeNone:
	}
	return "HAND OVER"
}

// settled renders the end-of-hand summary.
func (d *Dispatcher) settled(s *session.Session, g *blackjack.Game) Reply {
	s.Mode = session.ModeBlackjackEnd
	telemetry.HandsSettled.WithLabelValues(g.Outcome.String()).Inc()
	logger.Debug("blackjack_settled", "identity", s.Identity, "outcome", g.Outcome.String(), "net", g.Net, "chips", g.Chips)
	return Reply{Text: fmt.Sprintf("--- GAME OVER ---\nDealer: %s (Score: %d)\nYou: %s (Score: %d)\n\n** %s **\nChips Change: %+d\nCurrent Chips: %d\n[N] New Game, [M] Main Menu, [Q] Quit to Games Menu",
		g.Dealer, g.Dealer.Value(), g.Player, g.Player.Value(), outcomeText(g.Outcome), g.Net, g.Chips)}
}
