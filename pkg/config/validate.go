package config

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/adhocore/gronx"

	"meshbbs/pkg/framer"
)

// reservedTopicIDs are global command letters a topic id would shadow.
var reservedTopicIDs = map[string]bool{"B": true, "R": true, "P": true, "A": true, "M": true, "X": true}

// set defaults, fail fast on bad values
func ValidateConfig(eff EffectiveConfigResult) error {
	cfg := eff.Config
	if cfg == nil {
		return fmt.Errorf("effective config is nil")
	}
	cfg.ApplyDefaults()

	if strings.TrimSpace(cfg.Data.Dir) == "" {
		return fmt.Errorf("data directory is empty: set --data-dir, MESHBBS_DATA_DIR or data.dir")
	}
	switch cfg.Data.Backend {
	case BackendPebble, BackendFile:
	default:
		return fmt.Errorf("invalid data.backend %q: want %q or %q", cfg.Data.Backend, BackendPebble, BackendFile)
	}
	switch cfg.Transport.Kind {
	case TransportHTTP, TransportConsole:
	default:
		return fmt.Errorf("invalid transport.kind %q: want %q or %q", cfg.Transport.Kind, TransportHTTP, TransportConsole)
	}
	if cfg.Server.Port < 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d", cfg.Server.Port)
	}

	b := cfg.Board
	if b.PageSize < 1 {
		return fmt.Errorf("board.page_size must be at least 1, got %d", b.PageSize)
	}
	if b.SubjectMax < 1 {
		return fmt.Errorf("board.subject_max must be at least 1, got %d", b.SubjectMax)
	}
	if err := validateTopics(cfg); err != nil {
		return err
	}

	t := cfg.Transport
	if t.MaxFragmentBytes.Int() < framer.MinFragmentBytes {
		return fmt.Errorf("transport.max_fragment_bytes %d leaves no room after the fragment header (min %d)",
			t.MaxFragmentBytes, framer.MinFragmentBytes)
	}
	if t.SinglePacketBytes < 1 {
		return fmt.Errorf("transport.single_packet_bytes must be positive")
	}
	if m := t.Merge(); m < 0 || m >= t.MaxFragmentBytes.Int() {
		return fmt.Errorf("transport.merge_bytes %d must be below max_fragment_bytes %d", m, t.MaxFragmentBytes)
	}
	if t.Delay() < 0 {
		return fmt.Errorf("transport.chunk_delay must not be negative")
	}
	if t.MailboxSize < 1 {
		return fmt.Errorf("transport.mailbox_size must be at least 1")
	}

	if cfg.Sessions.TTL() < 0 {
		return fmt.Errorf("sessions.idle_ttl must not be negative")
	}
	if !gronx.IsValid(cfg.Sessions.SweepCron) {
		return fmt.Errorf("invalid sessions.sweep_cron expression: %s", cfg.Sessions.SweepCron)
	}
	if cfg.Games.StartingChips < 1 {
		return fmt.Errorf("games.starting_chips must be at least 1, got %d", cfg.Games.StartingChips)
	}
	return nil
}

func validateTopics(cfg *Config) error {
	seen := make(map[string]bool, len(cfg.Board.Topics))
	for i, t := range cfg.Board.Topics {
		id := t.ID
		if len(id) != 1 || !unicode.IsUpper(rune(id[0])) {
			return fmt.Errorf("board.topics[%d]: id %q must be one upper-case letter", i, id)
		}
		if reservedTopicIDs[id] {
			return fmt.Errorf("board.topics[%d]: id %q is a menu command", i, id)
		}
		if seen[id] {
			return fmt.Errorf("board.topics[%d]: duplicate id %q", i, id)
		}
		if strings.TrimSpace(t.Name) == "" {
			return fmt.Errorf("board.topics[%d]: name is empty", i)
		}
		seen[id] = true
	}
	if !seen[cfg.Board.GeneralTopic] {
		return fmt.Errorf("board.general_topic %q is not a configured topic", cfg.Board.GeneralTopic)
	}
	return nil
}
