// Package dispatch routes one inbound packet to a reply, advancing the
// sender's session through menus, reading, posting and games.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"meshbbs/pkg/blackjack"
	"meshbbs/pkg/board"
	"meshbbs/pkg/logger"
	"meshbbs/pkg/session"
	"meshbbs/pkg/telemetry"
)

var (
	ErrEmptyBody           = errors.New("message body is empty")
	ErrUnrecognizedCommand = errors.New("unrecognized command")
)

// Reply is the text for one inbound packet. Chunk forces framing even for
// short text; SuppressHeaders drops the "[i/n]" prefixes.
type Reply struct {
	Text            string
	Chunk           bool
	SuppressHeaders bool
}

type Options struct {
	StartingChips int
	Shuffler      blackjack.Shuffler
	// Location renders message dates; defaults to time.Local.
	Location *time.Location
}

type Dispatcher struct {
	sessions *session.Store
	board    *board.Store
	menus    menus

	startingChips int
	shuffle       blackjack.Shuffler
	loc           *time.Location
}

func New(sessions *session.Store, b *board.Store, opts Options) *Dispatcher {
	if opts.StartingChips <= 0 {
		opts.StartingChips = blackjack.StartingChips
	}
	if opts.Shuffler == nil {
		opts.Shuffler = blackjack.RandomShuffler(rand.New(rand.NewSource(time.Now().UnixNano())))
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	return &Dispatcher{
		sessions:      sessions,
		board:         b,
		menus:         renderMenus(b.Topics()),
		startingChips: opts.StartingChips,
		shuffle:       opts.Shuffler,
		loc:           opts.Location,
	}
}

// input is one packet split the way every handler reads it.
type input struct {
	raw   string
	upper string
	words []string
	cmd   string
}

func parseInput(raw string) input {
	in := input{raw: raw, upper: strings.ToUpper(strings.TrimSpace(raw))}
	in.words = strings.Fields(in.upper)
	if len(in.words) > 0 {
		in.cmd = in.words[0]
	}
	return in
}

// first is the leading character of the upper-cased input, or "".
func (in input) first() string {
	for _, r := range in.upper {
		return string(r)
	}
	return ""
}

// Dispatch handles one packet from identity. Packets from the same identity
// are processed one at a time.
func (d *Dispatcher) Dispatch(ctx context.Context, identity, raw string) Reply {
	start := time.Now()
	var r Reply
	var menu session.Menu
	d.sessions.Do(identity, func(s *session.Session, created bool) {
		r = d.route(ctx, s, created, parseInput(raw))
		menu = s.Menu
	})
	telemetry.DispatchSeconds.Observe(time.Since(start).Seconds())
	telemetry.Replies.WithLabelValues(menu.String()).Inc()
	return r
}

func (d *Dispatcher) route(ctx context.Context, s *session.Session, created bool, in input) Reply {
	if created || s.ResetNext {
		s.ResetNext = false
		return d.toMain(s)
	}
	if s.Mode != session.ModeNone {
		return d.interactive(ctx, s, in)
	}
	return d.command(s, in)
}

// interactive handles a session inside a posting or game flow.
func (d *Dispatcher) interactive(ctx context.Context, s *session.Session, in input) Reply {
	if s.Mode.IsGame() {
		return d.game(s, in)
	}
	switch in.cmd {
	case "M", "X", "B", "Q":
		return d.escape(s, in.cmd)
	}
	switch s.Mode {
	case session.ModePostingTopic:
		return d.postTopic(s, in)
	case session.ModePostingSubject:
		return d.postSubject(s, in)
	case session.ModePostingBody:
		return d.postBody(ctx, s, in)
	case session.ModeNone, session.ModeBlackjackBetting, session.ModeBlackjackTurn, session.ModeBlackjackEnd:
	}
	logger.Error("session_mode_unhandled", "identity", s.Identity, "mode", s.Mode.String())
	s.ClearInteractionScratch()
	return d.toMain(s)
}

// escape leaves a posting flow.
func (d *Dispatcher) escape(s *session.Session, cmd string) Reply {
	from := s.Mode
	menu := s.Menu
	s.ClearInteractionScratch()
	logger.Debug("interaction_escaped", "identity", s.Identity, "mode", from.String(), "command", cmd)
	switch {
	case cmd == "X":
		return d.logoff(s)
	case cmd == "B":
		return d.toBBS(s)
	case cmd == "Q" && menu == session.MenuGames:
		return d.toGames(s)
	default:
		return d.toMain(s)
	}
}

// command interprets a packet outside any flow. Order matters: contextual
// readings of N, T, G and the games letters win over the global commands.
func (d *Dispatcher) command(s *session.Session, in input) Reply {
	switch {
	case in.cmd == "X":
		return d.logoff(s)
	case s.Menu == session.MenuReadSubject && in.cmd == "T":
		return d.toReadTopic(s)
	case s.Menu == session.MenuReadSubject && in.cmd == "N":
		return d.nextPage(s)
	case s.Menu == session.MenuMain && in.cmd == "G":
		return d.toGames(s)
	case s.Menu == session.MenuGames:
		return d.gamesMenu(s, in)
	case isNumber(in.cmd) && len(in.words) == 1:
		return d.readByNumber(s, in.cmd)
	case in.cmd == "R":
		return d.readCommand(s, in)
	case in.cmd == "P" || in.cmd == "POST":
		return d.postStart(s)
	case in.cmd == "B":
		return d.toBBS(s)
	case in.cmd == "A":
		return d.activity(s)
	case in.cmd == "M":
		return d.toMain(s)
	case len(in.words) == 1 && d.isTopic(in.cmd) && inBoard(s.Menu):
		return d.listPage(s, in.cmd, 0)
	}
	logger.Debug("command_fallback", "identity", s.Identity, "menu", s.Menu.String(),
		"error", fmt.Errorf("%q: %w", in.cmd, ErrUnrecognizedCommand))
	return d.toMain(s)
}

func inBoard(m session.Menu) bool {
	switch m {
	case session.MenuReadTopic, session.MenuReadSubject, session.MenuBBS:
		return true
	case session.MenuMain, session.MenuGames, session.MenuGameActive:
		return false
	}
	return false
}

func isNumber(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func (d *Dispatcher) isTopic(id string) bool {
	_, ok := d.board.Topic(id)
	return ok
}

func (d *Dispatcher) toMain(s *session.Session) Reply {
	s.Menu = session.MenuMain
	return Reply{Text: mainMenu}
}

func (d *Dispatcher) toBBS(s *session.Session) Reply {
	s.Menu = session.MenuBBS
	return Reply{Text: bbsMenu}
}

func (d *Dispatcher) toGames(s *session.Session) Reply {
	s.Menu = session.MenuGames
	return Reply{Text: gamesMenu}
}

func (d *Dispatcher) toReadTopic(s *session.Session) Reply {
	s.Menu = session.MenuReadTopic
	return Reply{Text: d.menus.readTopic}
}

func (d *Dispatcher) logoff(s *session.Session) Reply {
	s.ClearInteractionScratch()
	s.Cursor = nil
	s.Menu = session.MenuMain
	s.ResetNext = true
	logger.Info("session_logoff", "identity", s.Identity)
	return Reply{Text: logoffBanner}
}
