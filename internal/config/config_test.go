// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/portal/internal/config"
	"github.com/holomush/portal/internal/discord"
	"github.com/holomush/portal/pkg/errutil"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func newFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("portal", pflag.ContinueOnError)
	fs.String("config", "", "config file path")
	config.RegisterFlags(fs)
	require.NoError(t, fs.Parse(args))
	return fs
}

func noEnv(string) string { return "" }

func TestLoad_DefaultsWhenNoFileExists(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg, err := config.Load("", newFlags(t), noEnv)
	require.NoError(t, err)
	assert.Equal(t, config.Default(), *cfg)
	require.NoError(t, cfg.Validate())
}

func TestLoad_FileOverridesFlagDefaults(t *testing.T) {
	path := writeConfig(t, `
database_url: postgres://portal@db/portal
log_format: text
allocation_lock: local
resync_interval: 5m
discord:
  guild_id: "4242"
  bot_token: file-token
  timeout: 2s
`)

	cfg, err := config.Load(path, newFlags(t), noEnv)
	require.NoError(t, err)
	assert.Equal(t, "postgres://portal@db/portal", cfg.DatabaseURL)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, config.LockLocal, cfg.AllocationLock)
	assert.Equal(t, 5*time.Minute, cfg.ResyncInterval)
	assert.Equal(t, "4242", cfg.Discord.GuildID)
	assert.Equal(t, 2*time.Second, cfg.Discord.Timeout)
	assert.Equal(t, config.DefaultMetricsAddr, cfg.MetricsAddr, "unset keys keep defaults")
	assert.Equal(t, discord.DefaultAPIBase, cfg.Discord.APIBase)
}

func TestLoad_ChangedFlagsOverrideFile(t *testing.T) {
	path := writeConfig(t, "log_format: text\nallocation_lock: local\n")

	cfg, err := config.Load(path, newFlags(t, "--log-format=json", "--discord-guild-id=77", "--resync-interval=0s"), noEnv)
	require.NoError(t, err)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, config.LockLocal, cfg.AllocationLock)
	assert.Equal(t, "77", cfg.Discord.GuildID)
	assert.Zero(t, cfg.ResyncInterval)
}

func TestLoad_EnvironmentWins(t *testing.T) {
	path := writeConfig(t, "database_url: postgres://file/portal\n")
	env := map[string]string{
		config.EnvDatabaseURL:     "postgres://env/portal",
		config.EnvDiscordBotToken: "env-token",
	}

	cfg, err := config.Load(path, newFlags(t, "--database-url=postgres://flag/portal"), func(k string) string { return env[k] })
	require.NoError(t, err)
	assert.Equal(t, "postgres://env/portal", cfg.DatabaseURL)
	assert.Equal(t, "env-token", cfg.Discord.BotToken)
}

func TestLoad_ExplicitMissingFileFails(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "absent.yaml"), nil, noEnv)
	errutil.AssertErrorCode(t, err, "CONFIG_READ_FAILED")
}

func TestLoad_MalformedFileFails(t *testing.T) {
	path := writeConfig(t, "log_format: [unterminated\n")
	_, err := config.Load(path, nil, noEnv)
	errutil.AssertErrorCode(t, err, "CONFIG_PARSE_FAILED")
	errutil.AssertErrorContext(t, err, "path", path)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		ok     bool
	}{
		{"defaults", func(*config.Config) {}, true},
		{"bad log format", func(c *config.Config) { c.LogFormat = "xml" }, false},
		{"bad log level", func(c *config.Config) { c.LogLevel = "chatty" }, false},
		{"bad lock mode", func(c *config.Config) { c.AllocationLock = "redis" }, false},
		{"each lock mode", func(c *config.Config) { c.AllocationLock = config.LockNone }, true},
		{"negative interval", func(c *config.Config) { c.ResyncInterval = -time.Second }, false},
		{"zero discord timeout", func(c *config.Config) { c.Discord.Timeout = 0 }, false},
		{"negative discord retries", func(c *config.Config) { c.Discord.MaxRetries = -1 }, false},
		{"guild without token", func(c *config.Config) { c.Discord.GuildID = "1" }, false},
		{"guild with token", func(c *config.Config) { c.Discord.GuildID, c.Discord.BotToken = "1", "t" }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.ok {
				require.NoError(t, err)
				return
			}
			errutil.AssertErrorCode(t, err, "INVALID_CONFIG")
		})
	}
}

func TestRequireDatabase(t *testing.T) {
	cfg := config.Default()
	errutil.AssertErrorCode(t, cfg.RequireDatabase(), "DATABASE_URL_REQUIRED")
	cfg.DatabaseURL = "postgres://localhost/portal"
	require.NoError(t, cfg.RequireDatabase())
}

func TestDiscord_ClientConfig(t *testing.T) {
	d := config.Discord{GuildID: "1", BotToken: "t", APIBase: "http://x", Timeout: time.Second, MaxRetries: 2}
	assert.Equal(t, discord.Config{
		GuildID: "1", BotToken: "t", APIBase: "http://x", Timeout: time.Second, MaxRetries: 2,
	}, d.ClientConfig())

	d.MaxRetries = 0
	assert.Negative(t, d.ClientConfig().MaxRetries, "zero disables retries")
	assert.True(t, d.ClientConfig().Configured())
}

func TestDefaultPath_UsesXDGConfigHome(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	assert.Equal(t, filepath.Join(dir, "portal", "config.yaml"), config.DefaultPath())
}
