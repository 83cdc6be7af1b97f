package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"

	"meshbbs/pkg/board"
)

// Config is the main configuration struct.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Data      DataConfig      `yaml:"data"`
	Logging   LoggingConfig   `yaml:"logging"`
	Board     BoardConfig     `yaml:"board"`
	Transport TransportConfig `yaml:"transport"`
	Sessions  SessionsConfig  `yaml:"sessions"`
	Games     GamesConfig     `yaml:"games"`
}

// ServerConfig is the HTTP listener for health, metrics and the gateway.
type ServerConfig struct {
	Address string `yaml:"address"`
	Port    int    `yaml:"port"`
}

// DataConfig selects where and how the board is persisted.
type DataConfig struct {
	Dir     string `yaml:"dir"`
	Backend string `yaml:"backend"` // "pebble" or "file"
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

// BoardConfig fixes the topic list and listing layout. Topics are read in
// order; ids are single letters.
type BoardConfig struct {
	PageSize     int           `yaml:"page_size"`
	SubjectMax   int           `yaml:"subject_max"`
	GeneralTopic string        `yaml:"general_topic"`
	Topics       []board.Topic `yaml:"topics"`
}

// TransportConfig controls the packet link and reply framing.
type TransportConfig struct {
	Kind              string    `yaml:"kind"` // "http" or "console"
	MaxFragmentBytes  SizeBytes `yaml:"max_fragment_bytes"`
	SinglePacketBytes SizeBytes `yaml:"single_packet_bytes"`
	// MergeBytes folds a short trailing fragment into the one before it.
	// Unset means the default; an explicit 0 disables merging.
	MergeBytes *SizeBytes `yaml:"merge_bytes"`
	// ChunkDelay spaces fragments to one identity. Unset means the default;
	// an explicit 0 sends back to back.
	ChunkDelay  *Duration `yaml:"chunk_delay"`
	WebhookURL  string    `yaml:"webhook_url"`
	MailboxSize int       `yaml:"mailbox_size"`
}

// Delay returns the chunk delay, zero when unset.
func (t TransportConfig) Delay() time.Duration {
	if t.ChunkDelay == nil {
		return 0
	}
	return t.ChunkDelay.Duration()
}

// Merge returns the trailing-merge threshold in bytes.
func (t TransportConfig) Merge() int {
	if t.MergeBytes == nil {
		return 0
	}
	return t.MergeBytes.Int()
}

// SessionsConfig bounds how long an idle session is kept.
type SessionsConfig struct {
	// IdleTTL of 0 disables eviction. Unset means the default.
	IdleTTL   *Duration `yaml:"idle_ttl"`
	SweepCron string    `yaml:"sweep_cron"`
}

// TTL returns the idle TTL, zero when unset or disabled.
func (s SessionsConfig) TTL() time.Duration {
	if s.IdleTTL == nil {
		return 0
	}
	return s.IdleTTL.Duration()
}

type GamesConfig struct {
	StartingChips int `yaml:"starting_chips"`
}

// SizeBytes represents a number of bytes, unmarshaled from human-friendly strings like "190B" or plain integers.
type SizeBytes int64

func (s *SizeBytes) UnmarshalYAML(node *yaml.Node) error {
	v, err := parseSizeBytes(node.Value)
	if err != nil {
		return err
	}
	*s = v
	return nil
}

func (s SizeBytes) Int() int { return int(s) }

func parseSizeBytes(raw string) (SizeBytes, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return SizeBytes(i), nil
	}
	if v, err := humanize.ParseBytes(raw); err == nil {
		return SizeBytes(v), nil
	}
	return 0, fmt.Errorf("invalid size value: %q", raw)
}

// Duration is a wrapper around time.Duration that supports YAML parsing from strings like "2.5s" or plain numbers (interpreted as seconds).
type Duration time.Duration

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	v, err := parseDuration(node.Value)
	if err != nil {
		return err
	}
	*d = v
	return nil
}

func (d Duration) Duration() time.Duration { return time.Duration(d) }

func parseDuration(raw string) (Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	if td, err := time.ParseDuration(raw); err == nil {
		return Duration(td), nil
	}
	// allow numeric seconds
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return Duration(time.Duration(f * float64(time.Second))), nil
	}
	return 0, fmt.Errorf("invalid duration value: %q", raw)
}

func sizePtr(n SizeBytes) *SizeBytes {
	return &n
}

func durationPtr(d time.Duration) *Duration {
	v := Duration(d)
	return &v
}
