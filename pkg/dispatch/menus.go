package dispatch

import (
	"fmt"
	"strings"

	"meshbbs/pkg/board"
)

const (
	mainMenu = `-=( MESH-BBS )=-
---------------------------

[B] BBS & Messaging
[G] Games Center
[X] Logoff / Exit

---------------------------`

	logoffBanner = `▓▒░ SESSION ENDED! ░▒▓
      THANKS FOR CALLING
              MESH-BBS

          You've Logged Off
▓▒░     Successfully!     ░▒▓`

	bbsMenu = `-=( Message Board )=-
----------------------------------

[A] Topic Activity Summary
[R] Read Public Board
[P] Post New Message
[M] Back to Main Menu

----------------------------------`

	gamesMenu = `-=( Games Center )=-
----------------------------------

[B] Blackjack
[V] Video Poker (Coming Soon!)

[M] Back to Main Menu

----------------------------------`
)

// menus holds the topic-dependent screens, rendered once from the board's
// fixed topic list.
type menus struct {
	readTopic string
	postTopic string
}

func renderMenus(topics []board.Topic) menus {
	var rt, pt strings.Builder
	rt.WriteString("-=( Read Topic )=-\n---------------------------\n\n")
	pt.WriteString("-= POST MESSAGE =-\nSelect Topic:\n\n")
	for _, t := range topics {
		fmt.Fprintf(&rt, "[%s] %s\n", t.ID, t.Name)
		short := t.Short
		if short == "" {
			short = t.Name
		}
		fmt.Fprintf(&pt, "[%s] %s\n", t.ID, short)
	}
	rt.WriteString("\n[B] Board Menu\n\n---------------------------")
	pt.WriteString("\n[B] Back to Board\n\n------------------")
	return menus{readTopic: rt.String(), postTopic: pt.String()}
}
