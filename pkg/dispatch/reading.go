package dispatch

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"meshbbs/pkg/board"
	"meshbbs/pkg/session"
)

const (
	listRule    = "------------------"
	messageRule = "----------------------------------------"
	summaryRule = "----------------------------------"
	listSubject = 25
	dateLayout  = "02/Jan 03:04PM"
)

// listPage shows one page of subjects and moves the read cursor there.
func (d *Dispatcher) listPage(s *session.Session, topicID string, page int) Reply {
	topic, ok := d.board.Topic(topicID)
	if !ok {
		return Reply{Text: fmt.Sprintf("Invalid Topic ID '%s'. Send R to see options.", topicID)}
	}
	size := d.board.PageSize()
	total := d.board.Count(topicID)
	if total == 0 {
		s.Menu = session.MenuReadTopic
		return Reply{
			Text:            d.menus.readTopic + "\n\n" + fmt.Sprintf("Topic '%s' is empty. Select a topic above or [M] for main menu.", topic.Name),
			Chunk:           true,
			SuppressHeaders: true,
		}
	}
	maxPages := d.board.MaxPages(topicID, size)
	msgs, err := d.board.Page(topicID, page, size)
	if err != nil || len(msgs) == 0 {
		s.Menu = session.MenuReadTopic
		return Reply{
			Text:  fmt.Sprintf("Page %d does not exist. Max page is %d.\n\n%s", page+1, maxPages, d.menus.readTopic),
			Chunk: true,
		}
	}

	s.Cursor = &session.ReadCursor{Topic: topicID, Page: page, MaxPages: maxPages}
	s.Menu = session.MenuReadSubject

	lines := []string{
		fmt.Sprintf("*%s - Page %d/%d*", topic.Name, page+1, maxPages),
		listRule,
	}
	for i, m := range msgs {
		lines = append(lines, fmt.Sprintf("[%d] %s (%s)", page*size+i+1, clip(m.Subject, listSubject), tail(m.Author, 4)))
	}
	if page+1 < maxPages {
		lines = append(lines, "[N] Next Page")
	}
	lines = append(lines, "[T] Back to Read Topic", "[B] Board Menu", listRule)
	return Reply{Text: strings.Join(lines, "\n"), Chunk: true}
}

func (d *Dispatcher) nextPage(s *session.Session) Reply {
	c := s.Cursor
	if c == nil || c.Page+1 >= c.MaxPages {
		return Reply{Text: "No next page available."}
	}
	return d.listPage(s, c.Topic, c.Page+1)
}

func (d *Dispatcher) readByNumber(s *session.Session, cmd string) Reply {
	if s.Cursor == nil {
		return Reply{Text: fmt.Sprintf("** COMMAND '%s' **\nTo read a message, first send R [Topic] or B for the menu.", cmd)}
	}
	n, err := strconv.Atoi(cmd)
	if err != nil {
		// digits only, so this is overflow
		n = -1
	}
	return d.showMessage(s, s.Cursor.Topic, n, cmd)
}

// showMessage renders message n in full. The session lands on the board
// menu context since the view ends with "[B] Board Menu".
func (d *Dispatcher) showMessage(s *session.Session, topicID string, n int, label string) Reply {
	m, err := d.board.MessageAt(topicID, n)
	if err != nil {
		if errors.Is(err, board.ErrOutOfRange) || errors.Is(err, board.ErrInvalidTopic) {
			return Reply{Text: fmt.Sprintf("Invalid message number %s in Topic %s.", label, topicID)}
		}
		return Reply{Text: fmt.Sprintf("Could not read message %s.", label)}
	}
	topic, _ := d.board.Topic(topicID)
	s.Menu = session.MenuBBS
	text := fmt.Sprintf("--- Msg %d in %s ---\nFrom: %s\nDate: %s\nSubject: %s\n%s\n%s\n%s\n[B] Board Menu",
		n, topic.Name,
		tail(m.Author, 4),
		m.CreatedAt.In(d.loc).Format(dateLayout),
		clip(m.Subject, d.board.SubjectMax()),
		messageRule, m.Body, messageRule,
	)
	return Reply{Text: text, Chunk: true}
}

// readCommand handles "R", "R <topic>" and "R <topic> <n>". A number that
// names an existing message opens it; any other number is a page.
func (d *Dispatcher) readCommand(s *session.Session, in input) Reply {
	if len(in.words) == 1 {
		return d.toReadTopic(s)
	}
	topicID := in.words[1]
	if !d.isTopic(topicID) {
		s.Menu = session.MenuReadTopic
		return Reply{Text: "Invalid READ command format or topic ID. Showing topic selection.\n\n" + d.menus.readTopic}
	}
	n := 0
	if len(in.words) >= 3 {
		v, err := strconv.Atoi(in.words[2])
		if err != nil {
			return Reply{Text: "Invalid page/message number. Example: R G 2 or R G 5"}
		}
		n = v
	}
	if n >= 1 && n <= d.board.Count(topicID) {
		return d.showMessage(s, topicID, n, strconv.Itoa(n))
	}
	page := 0
	if n > 0 {
		page = n - 1
	}
	return d.listPage(s, topicID, page)
}

func (d *Dispatcher) activity(s *session.Session) Reply {
	s.Menu = session.MenuBBS
	counts := d.board.ActivitySummary()
	lines := []string{"-=( Board Activity Summary )=-", summaryRule}
	total := 0
	for _, t := range d.board.Topics() {
		n := counts[t.ID]
		total += n
		lines = append(lines, fmt.Sprintf("[%s] %-15s: %4d msgs", t.ID, t.Name, n))
	}
	lines = append(lines, summaryRule, fmt.Sprintf("Total Messages: %d", total), "[B] Back to Board ")
	return Reply{Text: strings.Join(lines, "\n"), Chunk: true}
}

func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func tail(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[len(r)-n:])
}
