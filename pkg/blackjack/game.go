// Package blackjack is a single-deck, single-player blackjack engine. A Game
// is owned by one session and is not safe for concurrent use.
package blackjack

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const StartingChips = 100

var (
	ErrOutOfChips    = errors.New("out of chips")
	ErrDeckExhausted = errors.New("deck exhausted")
	ErrWrongPhase    = errors.New("action not allowed in this phase")

	ErrInvalidBet   = errors.New("invalid bet")
	ErrBetNotNumber = fmt.Errorf("%w: not a whole number", ErrInvalidBet)
	ErrBetTooSmall  = fmt.Errorf("%w: below one chip", ErrInvalidBet)
	ErrBetTooLarge  = fmt.Errorf("%w: exceeds chips", ErrInvalidBet)
)

type Phase int

const (
	PhaseBetting Phase = iota
	PhaseTurn
	PhaseEnd
)

func (p Phase) String() string {
	switch p {
	case PhaseBetting:
		return "betting"
	case PhaseTurn:
		return "turn"
	case PhaseEnd:
		return "end"
	default:
		return "unknown"
	}
}

type Outcome int

const (
	OutcomeNone Outcome = iota
	OutcomeBust
	OutcomeDealerBust
	OutcomeBlackjack
	OutcomeBlackjackPush
	OutcomeWin
	OutcomeLoss
	OutcomePush
)

func (o Outcome) String() string {
	switch o {
	case OutcomeBust:
		return "bust"
	case OutcomeDealerBust:
		return "dealer_bust"
	case OutcomeBlackjack:
		return "blackjack"
	case OutcomeBlackjackPush:
		return "blackjack_push"
	case OutcomeWin:
		return "win"
	case OutcomeLoss:
		return "loss"
	case OutcomePush:
		return "push"
	default:
		return "none"
	}
}

// Game holds one player's table. Chips carry across hands; Deck, hands, Bet
// and the outcome reset with each deal.
type Game struct {
	Deck   []Card
	Player Hand
	Dealer Hand
	Chips  int
	Bet    int
	Phase  Phase

	Natural bool
	Outcome Outcome
	Net     int
}

// New opens a table in the betting phase. A non-positive balance is refused.
func New(chips int) (*Game, error) {
	if chips <= 0 {
		return nil, ErrOutOfChips
	}
	return &Game{Chips: chips, Phase: PhaseBetting}, nil
}

// ParseBet reads the first token of input as a bet and checks it against the
// balance. The game is not modified.
func (g *Game) ParseBet(input string) (int, error) {
	fields := strings.Fields(input)
	if len(fields) == 0 {
		return 0, ErrBetNotNumber
	}
	bet, err := strconv.Atoi(fields[0])
	if err != nil {
		return 0, ErrBetNotNumber
	}
	if bet < 1 {
		return 0, ErrBetTooSmall
	}
	if bet > g.Chips {
		return 0, ErrBetTooLarge
	}
	return bet, nil
}

// Deal accepts bet, shuffles a fresh deck and deals two cards each. A player
// natural settles the hand at once.
func (g *Game) Deal(bet int, shuffle Shuffler) error {
	if g.Phase != PhaseBetting {
		return fmt.Errorf("deal in %s: %w", g.Phase, ErrWrongPhase)
	}
	if bet < 1 {
		return ErrBetTooSmall
	}
	if bet > g.Chips {
		return ErrBetTooLarge
	}
	g.Deck = NewDeck()
	if shuffle != nil {
		shuffle(g.Deck)
	}
	g.Bet = bet
	g.Player = Hand{g.draw(), g.draw()}
	g.Dealer = Hand{g.draw(), g.draw()}
	g.Natural = g.Player.IsNatural()
	g.Outcome = OutcomeNone
	g.Net = 0
	g.Phase = PhaseTurn
	if g.Natural {
		g.settle()
	}
	return nil
}

// Hit deals the player one card. Going over 21 settles the hand as a bust.
func (g *Game) Hit() (Card, error) {
	if g.Phase != PhaseTurn {
		return Card{}, fmt.Errorf("hit in %s: %w", g.Phase, ErrWrongPhase)
	}
	if len(g.Deck) == 0 {
		return Card{}, ErrDeckExhausted
	}
	c := g.draw()
	g.Player = append(g.Player, c)
	if g.Player.Value() > 21 {
		g.settle()
	}
	return c, nil
}

// Stand plays out the dealer and settles.
func (g *Game) Stand() error {
	if g.Phase != PhaseTurn {
		return fmt.Errorf("stand in %s: %w", g.Phase, ErrWrongPhase)
	}
	g.settle()
	return nil
}

// NextHand returns a settled table to betting with the balance kept.
func (g *Game) NextHand() error {
	if g.Phase != PhaseEnd {
		return fmt.Errorf("next hand in %s: %w", g.Phase, ErrWrongPhase)
	}
	if g.Chips <= 0 {
		return ErrOutOfChips
	}
	*g = Game{Chips: g.Chips, Phase: PhaseBetting}
	return nil
}

func (g *Game) draw() Card {
	c := g.Deck[0]
	g.Deck = g.Deck[1:]
	return c
}

// settle resolves the hand and applies payout minus bet to the balance.
// A busted player loses without the dealer drawing.
func (g *Game) settle() {
	pv := g.Player.Value()
	payout := 0
	if pv > 21 {
		g.Outcome = OutcomeBust
	} else {
		for g.Dealer.Value() < 17 && len(g.Deck) > 0 {
			g.Dealer = append(g.Dealer, g.draw())
		}
		dv := g.Dealer.Value()
		switch {
		case dv > 21:
			g.Outcome, payout = OutcomeDealerBust, 2*g.Bet
		case g.Natural && g.Dealer.IsNatural():
			g.Outcome, payout = OutcomeBlackjackPush, g.Bet
		case g.Natural:
			g.Outcome, payout = OutcomeBlackjack, g.Bet+g.Bet*3/2
		case pv > dv:
			g.Outcome, payout = OutcomeWin, 2*g.Bet
		case pv < dv:
			g.Outcome, payout = OutcomeLoss, 0
		default:
			g.Outcome, payout = OutcomePush, g.Bet
		}
	}
	g.Net = payout - g.Bet
	g.Chips += g.Net
	g.Phase = PhaseEnd
}
