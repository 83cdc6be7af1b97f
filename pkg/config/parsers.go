package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"sort"
	"strconv"
	"strings"
)

const envPrefix = "MESHBBS_"

// Flags holds command-line values and which of them were set explicitly.
type Flags struct {
	Addr      string
	DataDir   string
	Config    string
	Transport string
	LogLevel  string
	Set       map[string]bool
}

// EnvResult records which environment variables were applied.
type EnvResult struct {
	Used    []string
	Invalid []string
}

func (r EnvResult) EnvUsed() bool { return len(r.Used) > 0 }

// EffectiveConfigResult is the merged configuration plus where it came from.
type EffectiveConfigResult struct {
	Config  *Config
	Addr    string
	DataDir string
	Source  string // e.g. "config+env", "flags", "defaults"
}

// loads config from file, returns config, found bool, and error
func ParseConfigFile(flags Flags) (*Config, bool, error) {
	cfgPath := ResolveConfigPath(flags.Config, flags.Set["config"])
	if cfgPath == "" {
		return &Config{}, false, nil
	}
	cfg, err := LoadConfigFile(cfgPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &Config{}, false, nil
		}
		return nil, false, err
	}
	return cfg, true, nil
}

// ParseConfigEnvs reads MESHBBS_* variables into a new Config. Values that
// do not parse are listed in EnvResult.Invalid.
func ParseConfigEnvs() (*Config, EnvResult) {
	cfg := &Config{}
	var res EnvResult

	lookup := func(key string) (string, bool) {
		v, ok := os.LookupEnv(envPrefix + key)
		v = strings.TrimSpace(v)
		if !ok || v == "" {
			return "", false
		}
		res.Used = append(res.Used, envPrefix+key)
		return v, true
	}
	invalid := func(key string) {
		res.Invalid = append(res.Invalid, envPrefix+key)
	}
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok {
			*dst = v
		}
	}
	integer := func(key string, dst *int) {
		if v, ok := lookup(key); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				invalid(key)
				return
			}
			*dst = n
		}
	}
	size := func(key string, dst *SizeBytes) {
		if v, ok := lookup(key); ok {
			n, err := parseSizeBytes(v)
			if err != nil {
				invalid(key)
				return
			}
			*dst = n
		}
	}
	duration := func(key string, dst **Duration) {
		if v, ok := lookup(key); ok {
			d, err := parseDuration(v)
			if err != nil {
				invalid(key)
				return
			}
			*dst = &d
		}
	}

	// SERVER_ADDR (host:port) wins over the split form
	if v, ok := lookup("SERVER_ADDR"); ok {
		if h, p, err := net.SplitHostPort(v); err == nil {
			cfg.Server.Address = h
			if pi, err := strconv.Atoi(p); err == nil {
				cfg.Server.Port = pi
			} else {
				invalid("SERVER_ADDR")
			}
		} else {
			cfg.Server.Address = v
		}
	} else {
		str("SERVER_ADDRESS", &cfg.Server.Address)
		integer("SERVER_PORT", &cfg.Server.Port)
	}

	str("DATA_DIR", &cfg.Data.Dir)
	if v, ok := lookup("DATA_BACKEND"); ok {
		cfg.Data.Backend = strings.ToLower(v)
	}
	str("LOG_LEVEL", &cfg.Logging.Level)

	integer("BOARD_PAGE_SIZE", &cfg.Board.PageSize)
	integer("BOARD_SUBJECT_MAX", &cfg.Board.SubjectMax)
	if v, ok := lookup("BOARD_GENERAL_TOPIC"); ok {
		cfg.Board.GeneralTopic = strings.ToUpper(v)
	}

	if v, ok := lookup("TRANSPORT_KIND"); ok {
		cfg.Transport.Kind = strings.ToLower(v)
	}
	size("TRANSPORT_MAX_FRAGMENT_BYTES", &cfg.Transport.MaxFragmentBytes)
	size("TRANSPORT_SINGLE_PACKET_BYTES", &cfg.Transport.SinglePacketBytes)
	if v, ok := lookup("TRANSPORT_MERGE_BYTES"); ok {
		if n, err := parseSizeBytes(v); err != nil {
			invalid("TRANSPORT_MERGE_BYTES")
		} else {
			cfg.Transport.MergeBytes = sizePtr(n)
		}
	}
	duration("TRANSPORT_CHUNK_DELAY", &cfg.Transport.ChunkDelay)
	str("TRANSPORT_WEBHOOK_URL", &cfg.Transport.WebhookURL)
	integer("TRANSPORT_MAILBOX_SIZE", &cfg.Transport.MailboxSize)

	duration("SESSIONS_IDLE_TTL", &cfg.Sessions.IdleTTL)
	str("SESSIONS_SWEEP_CRON", &cfg.Sessions.SweepCron)
	integer("GAMES_STARTING_CHIPS", &cfg.Games.StartingChips)

	sort.Strings(res.Used)
	return cfg, res
}

// LoadEffectiveConfig layers file, env and flags, each overriding the set
// values of the one before. Defaults are applied later by ValidateConfig.
func LoadEffectiveConfig(flags Flags, fileCfg *Config, fileExists bool, envCfg *Config, envRes EnvResult) (EffectiveConfigResult, error) {
	var res EffectiveConfigResult

	if flags.Set["config"] && !fileExists {
		return res, fmt.Errorf("config file %s not found", flags.Config)
	}
	if len(envRes.Invalid) > 0 {
		return res, fmt.Errorf("invalid environment values: %s", strings.Join(envRes.Invalid, ", "))
	}

	out := &Config{}
	var sources []string
	if fileExists && fileCfg != nil {
		overlay(out, fileCfg)
		sources = append(sources, "config")
	}
	if envRes.EnvUsed() && envCfg != nil {
		overlay(out, envCfg)
		sources = append(sources, "env")
	}
	if applyFlags(out, flags) {
		sources = append(sources, "flags")
	}
	if len(sources) == 0 {
		sources = append(sources, "defaults")
	}

	res.Config = out
	res.Addr = out.Addr()
	res.DataDir = out.Data.Dir
	res.Source = strings.Join(sources, "+")
	return res, nil
}

func applyFlags(c *Config, flags Flags) bool {
	applied := false
	if flags.Set["addr"] {
		applied = true
		if h, _, err := net.SplitHostPort(flags.Addr); err == nil {
			c.Server.Address = h
			c.Server.Port = parsePortFromAddr(flags.Addr)
		} else {
			c.Server.Address = flags.Addr
		}
	}
	if flags.Set["data-dir"] {
		applied = true
		c.Data.Dir = flags.DataDir
	}
	if flags.Set["transport"] {
		applied = true
		c.Transport.Kind = strings.ToLower(flags.Transport)
	}
	if flags.Set["log-level"] {
		applied = true
		c.Logging.Level = flags.LogLevel
	}
	return applied
}

// overlay copies every set field of src onto dst.
func overlay(dst, src *Config) {
	setStr := func(d *string, s string) {
		if s != "" {
			*d = s
		}
	}
	setInt := func(d *int, s int) {
		if s != 0 {
			*d = s
		}
	}
	setSize := func(d *SizeBytes, s SizeBytes) {
		if s != 0 {
			*d = s
		}
	}

	setStr(&dst.Server.Address, src.Server.Address)
	setInt(&dst.Server.Port, src.Server.Port)
	setStr(&dst.Data.Dir, src.Data.Dir)
	setStr(&dst.Data.Backend, src.Data.Backend)
	setStr(&dst.Logging.Level, src.Logging.Level)

	setInt(&dst.Board.PageSize, src.Board.PageSize)
	setInt(&dst.Board.SubjectMax, src.Board.SubjectMax)
	setStr(&dst.Board.GeneralTopic, src.Board.GeneralTopic)
	if len(src.Board.Topics) > 0 {
		dst.Board.Topics = append(dst.Board.Topics[:0:0], src.Board.Topics...)
	}

	setStr(&dst.Transport.Kind, src.Transport.Kind)
	setSize(&dst.Transport.MaxFragmentBytes, src.Transport.MaxFragmentBytes)
	setSize(&dst.Transport.SinglePacketBytes, src.Transport.SinglePacketBytes)
	if src.Transport.MergeBytes != nil {
		dst.Transport.MergeBytes = sizePtr(*src.Transport.MergeBytes)
	}
	if src.Transport.ChunkDelay != nil {
		dst.Transport.ChunkDelay = durationPtr(src.Transport.ChunkDelay.Duration())
	}
	setStr(&dst.Transport.WebhookURL, src.Transport.WebhookURL)
	setInt(&dst.Transport.MailboxSize, src.Transport.MailboxSize)

	if src.Sessions.IdleTTL != nil {
		dst.Sessions.IdleTTL = durationPtr(src.Sessions.IdleTTL.Duration())
	}
	setStr(&dst.Sessions.SweepCron, src.Sessions.SweepCron)
	setInt(&dst.Games.StartingChips, src.Games.StartingChips)
}

// extracts port integer from host:port string
func parsePortFromAddr(a string) int {
	if a == "" {
		return 0
	}
	if _, p, err := net.SplitHostPort(a); err == nil {
		if pi, err := strconv.Atoi(p); err == nil {
			return pi
		}
	}
	return 0
}
