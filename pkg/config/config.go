package config

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"

	"meshbbs/pkg/blackjack"
	"meshbbs/pkg/board"
	"meshbbs/pkg/framer"
	"meshbbs/pkg/logger"
)

const (
	defaultAddress = "0.0.0.0"
	defaultPort    = 8080
	defaultDataDir = "./.meshbbs"
	defaultBackend = BackendPebble
	defaultLevel   = "info"

	defaultTransport   = TransportHTTP
	defaultChunkDelay  = 2500 * time.Millisecond
	defaultMailboxSize = 64

	defaultIdleTTL   = 30 * time.Minute
	defaultSweepCron = "*/5 * * * *"
)

const (
	BackendPebble = "pebble"
	BackendFile   = "file"

	TransportHTTP    = "http"
	TransportConsole = "console"
)

// Addr returns the HTTP server address as host:port.
func (c *Config) Addr() string {
	addr := c.Server.Address
	if addr == "" {
		addr = defaultAddress
	}
	port := c.Server.Port
	if port == 0 {
		port = defaultPort
	}
	return fmt.Sprintf("%s:%d", addr, port)
}

// BoardConfig converts the board section for board.New.
func (c *Config) BoardConfig() board.Config {
	return board.Config{
		Topics:       c.Board.Topics,
		GeneralTopic: c.Board.GeneralTopic,
		SubjectMax:   c.Board.SubjectMax,
		PageSize:     c.Board.PageSize,
	}
}

// Framer builds the reply framer from the transport section.
func (c *Config) Framer() framer.Framer {
	return framer.Framer{
		MaxFragmentBytes:  c.Transport.MaxFragmentBytes.Int(),
		SinglePacketBytes: c.Transport.SinglePacketBytes.Int(),
		MergeBytes:        c.Transport.Merge(),
	}
}

// LoadConfigFile reads and parses a config file.
func LoadConfigFile(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &cfg, nil
}

// ApplyDefaults fills every unset value in place.
func (c *Config) ApplyDefaults() {
	if c.Server.Address == "" {
		c.Server.Address = defaultAddress
	}
	if c.Server.Port == 0 {
		c.Server.Port = defaultPort
	}
	if c.Data.Dir == "" {
		c.Data.Dir = defaultDataDir
	}
	if c.Data.Backend == "" {
		c.Data.Backend = defaultBackend
	}
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLevel
	}

	b := &c.Board
	if b.PageSize == 0 {
		b.PageSize = board.DefaultPageSize
	}
	if b.SubjectMax == 0 {
		b.SubjectMax = board.DefaultSubjectMax
	}
	if b.GeneralTopic == "" {
		b.GeneralTopic = board.DefaultGeneral
	}
	if len(b.Topics) == 0 {
		b.Topics = board.DefaultTopics()
	}

	t := &c.Transport
	if t.Kind == "" {
		t.Kind = defaultTransport
	}
	if t.MaxFragmentBytes == 0 {
		t.MaxFragmentBytes = framer.DefaultMaxFragmentBytes
	}
	if t.SinglePacketBytes == 0 {
		t.SinglePacketBytes = framer.DefaultSinglePacketBytes
	}
	if t.MergeBytes == nil {
		t.MergeBytes = sizePtr(framer.DefaultMergeBytes)
	}
	if t.ChunkDelay == nil {
		t.ChunkDelay = durationPtr(defaultChunkDelay)
	}
	if t.MailboxSize == 0 {
		t.MailboxSize = defaultMailboxSize
	}

	if c.Sessions.IdleTTL == nil {
		c.Sessions.IdleTTL = durationPtr(defaultIdleTTL)
	}
	if c.Sessions.SweepCron == "" {
		c.Sessions.SweepCron = defaultSweepCron
	}
	if c.Games.StartingChips == 0 {
		c.Games.StartingChips = blackjack.StartingChips
	}
}

// ResolveConfigPath returns the config file path, preferring flag, then env.
func ResolveConfigPath(flagPath string, flagSet bool) string {
	if flagSet {
		return flagPath
	}
	if p := os.Getenv(envPrefix + "CONFIG"); p != "" {
		return p
	}
	return flagPath
}

// SummaryItems lists the effective settings worth seeing at startup.
func SummaryItems(eff EffectiveConfigResult) []string {
	c := eff.Config
	ids := make([]string, 0, len(c.Board.Topics))
	for _, t := range c.Board.Topics {
		ids = append(ids, t.ID)
	}
	expiry := "disabled"
	if ttl := c.Sessions.TTL(); ttl > 0 {
		expiry = fmt.Sprintf("%s (sweep %q)", ttl, c.Sessions.SweepCron)
	}
	items := []string{
		fmt.Sprintf("source: %s", eff.Source),
		fmt.Sprintf("data: %s (%s)", c.Data.Dir, c.Data.Backend),
		fmt.Sprintf("transport: %s", c.Transport.Kind),
	}
	if c.Transport.Kind == TransportHTTP {
		items = append(items, fmt.Sprintf("listen: %s", c.Addr()))
	}
	items = append(items,
		fmt.Sprintf("topics: %s (general %s)", strings.Join(ids, " "), c.Board.GeneralTopic),
		fmt.Sprintf("page_size: %d, subject_max: %d", c.Board.PageSize, c.Board.SubjectMax),
		fmt.Sprintf("fragment: %s (single packet %s)",
			humanize.Bytes(uint64(c.Transport.MaxFragmentBytes)), humanize.Bytes(uint64(c.Transport.SinglePacketBytes))),
		fmt.Sprintf("chunk_delay: %s", c.Transport.Delay()),
		fmt.Sprintf("session_expiry: %s", expiry),
		fmt.Sprintf("starting_chips: %s", humanize.Comma(int64(c.Games.StartingChips))),
	)
	if c.Transport.WebhookURL != "" {
		items = append(items, fmt.Sprintf("webhook: %s", c.Transport.WebhookURL))
	}
	return items
}

// LogSummary writes SummaryItems as a titled block.
func LogSummary(w io.Writer, eff EffectiveConfigResult) {
	logger.LogConfigSummary(w, "config", SummaryItems(eff))
}
