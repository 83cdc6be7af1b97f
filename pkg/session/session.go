// Package session keeps the per-identity conversation state that turns a
// stateless radio link into a menu-driven BBS.
package session

import (
	"time"

	"meshbbs/pkg/blackjack"
)

// Mode is the active multi-step flow, if any.
type Mode int

const (
	ModeNone Mode = iota
	ModePostingTopic
	ModePostingSubject
	ModePostingBody
	ModeBlackjackBetting
	ModeBlackjackTurn
	ModeBlackjackEnd
)

func (m Mode) String() string {
	switch m {
	case ModeNone:
		return "none"
	case ModePostingTopic:
		return "posting_topic"
	case ModePostingSubject:
		return "posting_subject"
	case ModePostingBody:
		return "posting_body"
	case ModeBlackjackBetting:
		return "blackjack_betting"
	case ModeBlackjackTurn:
		return "blackjack_turn"
	case ModeBlackjackEnd:
		return "blackjack_end"
	default:
		return "unknown"
	}
}

func (m Mode) IsPosting() bool {
	return m == ModePostingTopic || m == ModePostingSubject || m == ModePostingBody
}

func (m Mode) IsGame() bool {
	return m == ModeBlackjackBetting || m == ModeBlackjackTurn || m == ModeBlackjackEnd
}

// Menu is the last top-level menu shown. Bare letters are read against it.
type Menu int

const (
	MenuMain Menu = iota
	MenuBBS
	MenuReadTopic
	MenuReadSubject
	MenuGames
	MenuGameActive
)

func (m Menu) String() string {
	switch m {
	case MenuMain:
		return "main"
	case MenuBBS:
		return "bbs"
	case MenuReadTopic:
		return "read_topic"
	case MenuReadSubject:
		return "read_subject"
	case MenuGames:
		return "games"
	case MenuGameActive:
		return "game_active"
	default:
		return "unknown"
	}
}

// PendingPost collects a post across several packets.
type PendingPost struct {
	Topic   string
	Subject string
	Body    []string
}

// ReadCursor remembers the last listing so N and bare numbers resolve.
type ReadCursor struct {
	Topic    string
	Page     int
	MaxPages int
}

type Session struct {
	Identity string
	Mode     Mode
	Menu     Menu

	Post   *PendingPost
	Cursor *ReadCursor
	Game   *blackjack.Game

	// Chips is the balance banked while away from the table.
	Chips    int
	HasChips bool

	// ResetNext forces the Main menu on the next packet after a logoff.
	ResetNext bool
	LastSeen  time.Time
}

// ClearInteractionScratch ends any posting or game flow in one step. The
// game's chip balance is banked so it survives a quit.
func (s *Session) ClearInteractionScratch() {
	if s.Game != nil {
		s.Chips, s.HasChips = s.Game.Chips, true
	}
	s.Mode = ModeNone
	s.Post = nil
	s.Game = nil
}

// DropChips forgets the banked balance; the next table starts fresh.
func (s *Session) DropChips() {
	s.Chips, s.HasChips = 0, false
}
