package dispatch

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"meshbbs/pkg/logger"
	"meshbbs/pkg/session"
	"meshbbs/pkg/telemetry"
)

const endMarker = "END"

func (d *Dispatcher) postStart(s *session.Session) Reply {
	s.ClearInteractionScratch()
	s.Mode = session.ModePostingTopic
	s.Post = &session.PendingPost{}
	s.Menu = session.MenuBBS
	return Reply{Text: d.menus.postTopic}
}

func (d *Dispatcher) postTopic(s *session.Session, in input) Reply {
	id := in.first()
	topic, ok := d.board.Topic(id)
	if !ok {
		return Reply{Text: fmt.Sprintf("Invalid Topic ID '%s'.\n%s", id, d.menus.postTopic)}
	}
	s.Post.Topic = topic.ID
	s.Mode = session.ModePostingSubject
	return Reply{Text: fmt.Sprintf("--- Posting in %s ---\n\n** Subject Max %d chars. **\nEnter Subject:", topic.Name, d.board.SubjectMax())}
}

func (d *Dispatcher) postSubject(s *session.Session, in input) Reply {
	subject := strings.TrimSpace(in.raw)
	if subject == "" {
		return Reply{Text: "Subject cannot be empty. Please enter Subject:"}
	}
	s.Post.Subject = clip(subject, d.board.SubjectMax())
	s.Post.Body = nil
	s.Mode = session.ModePostingBody
	return Reply{Text: "[BODY] Enter Message Body (Chunk 1).\n** Send 'END' as a separate message when finished. **"}
}

// postBody collects body fragments until END. Blank packets are ignored.
func (d *Dispatcher) postBody(ctx context.Context, s *session.Session, in input) Reply {
	if in.upper == endMarker {
		return d.postFinish(ctx, s)
	}
	if text := strings.TrimSpace(in.raw); text != "" {
		s.Post.Body = append(s.Post.Body, text)
	}
	n := len(s.Post.Body)
	size := utf8.RuneCountInString(strings.Join(s.Post.Body, "\n\n"))
	return Reply{Text: fmt.Sprintf("Chunk %d collected (%d chars).\n[BODY] Enter Chunk %d OR Send 'END'.", n, size, n+1)}
}

func (d *Dispatcher) postFinish(ctx context.Context, s *session.Session) Reply {
	p := s.Post
	body := strings.Join(p.Body, "\n\n")
	s.ClearInteractionScratch()
	s.Menu = session.MenuBBS
	if body == "" {
		logger.Debug("post_rejected", "identity", s.Identity, "error", ErrEmptyBody)
		return Reply{Text: "ERROR: Message body cannot be empty. Send P to start a new post."}
	}

	m, err := d.board.Post(p.Topic, s.Identity, p.Subject, body)
	if err != nil {
		logger.Error("post_failed", "identity", s.Identity, "topic", p.Topic, "error", err)
		return Reply{Text: "ERROR: Could not post message. Send P to try again."}
	}
	telemetry.Posts.WithLabelValues(m.Topic).Inc()
	telemetry.BoardMessages.WithLabelValues(m.Topic).Set(float64(d.board.Count(m.Topic)))
	if err := d.board.Save(ctx); err != nil {
		telemetry.BoardSaveFailures.Inc()
		logger.Error("board_save_failed", "topic", m.Topic, "error", err)
	}
	logger.Info("message_posted", "identity", s.Identity, "topic", m.Topic, "body_len", len(m.Body))

	topic, _ := d.board.Topic(m.Topic)
	return Reply{Text: fmt.Sprintf("SUCCESS: Posted '%s' to '%s'.\n\nSend [B] for Board Menu.", m.Subject, topic.Name)}
}
