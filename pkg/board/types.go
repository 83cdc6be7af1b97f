package board

import (
	"context"
	"errors"
	"time"
)

var (
	ErrInvalidTopic = errors.New("invalid topic")
	ErrOutOfRange   = errors.New("message number out of range")
)

const (
	DefaultPageSize   = 4
	DefaultSubjectMax = 28
	DefaultGeneral    = "G"

	WelcomeAuthor  = "SYSOP"
	WelcomeSubject = "Welcome to the Mesh-BBS!"
	WelcomeBody    = "Hello, and welcome to the Mesh BBS! This is a decentralized message board running on the Meshtastic network. Enjoy connecting with other nodes."
)

// Topic is one board section. Short is the label used on the posting menu.
type Topic struct {
	ID    string `yaml:"id"`
	Name  string `yaml:"name"`
	Short string `yaml:"short"`
}

// DefaultTopics returns the stock topic set in menu order.
func DefaultTopics() []Topic {
	return []Topic{
		{ID: "G", Name: "General Chat", Short: "General"},
		{ID: "N", Name: "News & Events", Short: "News"},
		{ID: "T", Name: "Tech & Mesh Info", Short: "Tech Info"},
		{ID: "O", Name: "Off Topic / Fun", Short: "Off Topic"},
		{ID: "H", Name: "Help Desk", Short: "Help"},
	}
}

// Message is immutable once posted.
type Message struct {
	Topic     string    `json:"topic" yaml:"topic"`
	Author    string    `json:"author" yaml:"author"`
	Subject   string    `json:"subject" yaml:"subject"`
	Body      string    `json:"body" yaml:"body"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}

// Persister loads and saves the whole board. Each topic list is newest first.
// A missing backing file or database loads as an empty map.
type Persister interface {
	Load(ctx context.Context) (map[string][]Message, error)
	Save(ctx context.Context, topics map[string][]Message) error
	Close() error
}

// Config fixes the board shape at startup.
type Config struct {
	Topics       []Topic
	GeneralTopic string
	SubjectMax   int
	PageSize     int
}
