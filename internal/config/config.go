// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package config loads portal configuration from a YAML file, command-line
// flags and the environment.
//
// Precedence, lowest first: built-in defaults, the config file, explicitly
// set flags, then DATABASE_URL and DISCORD_BOT_TOKEN from the environment.
package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/holomush/portal/internal/discord"
	"github.com/holomush/portal/internal/logging"
	"github.com/holomush/portal/internal/xdg"
)

// Allocation lock modes.
const (
	LockLocal    = "local"
	LockPostgres = "postgres"
	LockNone     = "none"
)

// Environment variables that override the file and flags.
const (
	EnvDatabaseURL     = "DATABASE_URL"
	EnvDiscordBotToken = "DISCORD_BOT_TOKEN"
)

// Default values.
const (
	DefaultLogFormat      = "json"
	DefaultLogLevel       = "info"
	DefaultMetricsAddr    = "127.0.0.1:9100"
	DefaultAllocationLock = LockPostgres
	DefaultResyncInterval = 15 * time.Minute
)

// Config is the portal configuration.
type Config struct {
	DatabaseURL string `koanf:"database_url"`
	LogFormat   string `koanf:"log_format"`
	LogLevel    string `koanf:"log_level"`
	// MetricsAddr is the observability listen address. Empty disables it.
	MetricsAddr string `koanf:"metrics_addr"`
	// DepartmentsFile is the department policy file. Empty uses the
	// built-in policy.
	DepartmentsFile string `koanf:"departments_file"`
	AllocationLock  string `koanf:"allocation_lock"`
	// ResyncInterval is how often serve re-derives every user's authority.
	// Zero disables the periodic resync.
	ResyncInterval time.Duration `koanf:"resync_interval"`
	Discord        Discord       `koanf:"discord"`
}

// Discord configures live role refresh.
type Discord struct {
	GuildID    string        `koanf:"guild_id"`
	BotToken   string        `koanf:"bot_token"`
	APIBase    string        `koanf:"api_base"`
	Timeout    time.Duration `koanf:"timeout"`
	MaxRetries int           `koanf:"max_retries"`
}

// ClientConfig converts to a discord client configuration.
// A zero MaxRetries disables retries.
func (d Discord) ClientConfig() discord.Config {
	retries := d.MaxRetries
	if retries == 0 {
		retries = -1
	}
	return discord.Config{
		GuildID:    d.GuildID,
		BotToken:   d.BotToken,
		APIBase:    d.APIBase,
		Timeout:    d.Timeout,
		MaxRetries: retries,
	}
}

// DefaultPath returns $XDG_CONFIG_HOME/portal/config.yaml.
func DefaultPath() string {
	return filepath.Join(xdg.ConfigDir(), "config.yaml")
}

// flagKeys maps flag names to config keys.
var flagKeys = map[string]string{
	"database-url":        "database_url",
	"log-format":          "log_format",
	"log-level":           "log_level",
	"metrics-addr":        "metrics_addr",
	"departments-file":    "departments_file",
	"allocation-lock":     "allocation_lock",
	"resync-interval":     "resync_interval",
	"discord-guild-id":    "discord.guild_id",
	"discord-api-base":    "discord.api_base",
	"discord-timeout":     "discord.timeout",
	"discord-max-retries": "discord.max_retries",
}

// RegisterFlags adds the configuration flags to fs. Their defaults are the
// built-in defaults.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("database-url", "", "PostgreSQL connection URL (env "+EnvDatabaseURL+")")
	fs.String("log-format", DefaultLogFormat, "log format (json or text)")
	fs.String("log-level", DefaultLogLevel, "log level (debug, info, warn or error)")
	fs.String("metrics-addr", DefaultMetricsAddr, "metrics/health HTTP address (empty = disabled)")
	fs.String("departments-file", "", "department policy file (default: built-in policy)")
	fs.String("allocation-lock", DefaultAllocationLock, "allocation lock: local, postgres or none")
	fs.Duration("resync-interval", DefaultResyncInterval, "periodic authority resync interval (0 = disabled)")
	fs.String("discord-guild-id", "", "guild whose member roles are refreshed")
	fs.String("discord-api-base", discord.DefaultAPIBase, "Discord API base URL")
	fs.Duration("discord-timeout", discord.DefaultTimeout, "Discord request timeout")
	fs.Int("discord-max-retries", discord.DefaultMaxRetries, "retries for rate-limited or failed Discord lookups")
}

// Load reads the configuration.
//
// path names the config file. When path is empty, DefaultPath is used and a
// missing file is not an error. fs may be nil. getenv is usually os.Getenv.
func Load(path string, fs *pflag.FlagSet, getenv func(string) string) (*Config, error) {
	k := koanf.New(".")

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}
	if err := loadFile(k, path, explicit); err != nil {
		return nil, err
	}

	if fs != nil {
		// Unchanged flags only fill keys the file left unset.
		provider := posflag.ProviderWithFlag(fs, ".", k, func(f *pflag.Flag) (string, interface{}) {
			key, ok := flagKeys[f.Name]
			if !ok {
				return "", nil
			}
			return key, posflag.FlagVal(fs, f)
		})
		if err := k.Load(provider, nil); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("source", "flags").Wrap(err)
		}
	}

	cfg := Default()
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, oops.Code("CONFIG_PARSE_FAILED").With("path", path).Wrap(err)
	}

	if getenv != nil {
		if v := getenv(EnvDatabaseURL); v != "" {
			cfg.DatabaseURL = v
		}
		if v := getenv(EnvDiscordBotToken); v != "" {
			cfg.Discord.BotToken = v
		}
	}
	return &cfg, nil
}

func loadFile(k *koanf.Koanf, path string, explicit bool) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) && !explicit {
			return nil
		}
		return oops.Code("CONFIG_READ_FAILED").With("path", path).Wrap(err)
	}
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return oops.Code("CONFIG_PARSE_FAILED").With("path", path).Wrap(err)
	}
	return nil
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		LogFormat:      DefaultLogFormat,
		LogLevel:       DefaultLogLevel,
		MetricsAddr:    DefaultMetricsAddr,
		AllocationLock: DefaultAllocationLock,
		ResyncInterval: DefaultResyncInterval,
		Discord: Discord{
			APIBase:    discord.DefaultAPIBase,
			Timeout:    discord.DefaultTimeout,
			MaxRetries: discord.DefaultMaxRetries,
		},
	}
}

// Validate checks that the configuration is usable. It does not require a
// database URL; commands that need one check for it themselves.
func (c *Config) Validate() error {
	var problems []string
	if c.LogFormat != "json" && c.LogFormat != "text" {
		problems = append(problems, "log_format must be 'json' or 'text', got '"+c.LogFormat+"'")
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		problems = append(problems, "log_level must be debug, info, warn or error, got '"+c.LogLevel+"'")
	}
	switch c.AllocationLock {
	case LockLocal, LockPostgres, LockNone:
	default:
		problems = append(problems, "allocation_lock must be local, postgres or none, got '"+c.AllocationLock+"'")
	}
	if c.ResyncInterval < 0 {
		problems = append(problems, "resync_interval must not be negative")
	}
	if c.Discord.Timeout <= 0 {
		problems = append(problems, "discord.timeout must be positive")
	}
	if c.Discord.MaxRetries < 0 {
		problems = append(problems, "discord.max_retries must not be negative")
	}
	if (c.Discord.GuildID == "") != (c.Discord.BotToken == "") {
		problems = append(problems, "discord.guild_id and discord.bot_token must be set together")
	}
	if len(problems) > 0 {
		return oops.Code("INVALID_CONFIG").
			With("problems", problems).
			Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

// RequireDatabase returns an error when no database URL is configured.
func (c *Config) RequireDatabase() error {
	if c.DatabaseURL == "" {
		return oops.Code("DATABASE_URL_REQUIRED").
			Errorf("database URL is required (set %s or database_url)", EnvDatabaseURL)
	}
	return nil
}
