// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package discord reads guild membership from the Discord REST API.
//
// The portal only needs one thing from Discord after login: the set of role
// ids a linked account currently holds in the community guild. Client
// implements authority.RoleFetcher for that purpose.
package discord

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
	"golang.org/x/oauth2"

	"github.com/holomush/portal/pkg/errutil"
)

// DefaultAPIBase is the Discord REST API root.
const DefaultAPIBase = "https://discord.com/api/v10"

// DefaultTimeout bounds a single member lookup.
const DefaultTimeout = 5 * time.Second

// DefaultMaxRetries is how many times a rate-limited or failed lookup is retried.
const DefaultMaxRetries = 3

// DefaultRetryBase is the first retry delay; later delays double.
const DefaultRetryBase = 250 * time.Millisecond

const maxRetryDelay = 5 * time.Second

// JSON error codes Discord sends with a 404.
const (
	codeUnknownGuild  = 10004
	codeUnknownMember = 10007
	codeUnknownUser   = 10013
)

// maxErrorBody caps how much of an error response is kept for context.
const maxErrorBody = 512

// Config configures a Client.
type Config struct {
	GuildID  string
	BotToken string
	// APIBase overrides DefaultAPIBase. Used by tests.
	APIBase string
	Timeout time.Duration
	// MaxRetries bounds retries of 429 and 5xx responses. Negative disables
	// retries; zero uses DefaultMaxRetries.
	MaxRetries int
	// RetryBase overrides DefaultRetryBase.
	RetryBase time.Duration
	// HTTPClient is the base transport client. The bot token is layered on top.
	HTTPClient *http.Client
}

// Configured reports whether both the guild and the bot token are set.
func (c Config) Configured() bool {
	return c.GuildID != "" && c.BotToken != ""
}

// Client fetches guild member roles.
type Client struct {
	guildID string
	base    string
	http    *http.Client
	backoff func() retry.Backoff
}

// NewClient creates a Client. An unconfigured Client is valid; every lookup
// returns an error wrapping errutil.ErrNotConfigured.
func NewClient(cfg Config) *Client {
	base := strings.TrimRight(cfg.APIBase, "/")
	if base == "" {
		base = DefaultAPIBase
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	retries := cfg.MaxRetries
	switch {
	case retries == 0:
		retries = DefaultMaxRetries
	case retries < 0:
		retries = 0
	}
	retryBase := cfg.RetryBase
	if retryBase <= 0 {
		retryBase = DefaultRetryBase
	}

	c := &Client{
		guildID: cfg.GuildID,
		base:    base,
		backoff: func() retry.Backoff {
			b := retry.NewExponential(retryBase)
			b = retry.WithCappedDuration(maxRetryDelay, b)
			return retry.WithMaxRetries(uint64(retries), b)
		},
	}
	if !cfg.Configured() {
		return c
	}

	ctx := context.Background()
	if cfg.HTTPClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, cfg.HTTPClient)
	}
	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.BotToken, TokenType: "Bot"})
	c.http = oauth2.NewClient(ctx, src)
	c.http.Timeout = timeout
	return c
}

type guildMember struct {
	Roles []string `json:"roles"`
}

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// MemberRoles returns the role ids userID holds in the guild. A user who is
// not a guild member has no roles; the result is empty and err is nil. A 404
// for anything other than the member wraps errutil.ErrNotConfigured.
func (c *Client) MemberRoles(ctx context.Context, userID string) ([]string, error) {
	if c.http == nil {
		return nil, oops.Code("DISCORD_NOT_CONFIGURED").
			With("guild_id", c.guildID).
			Wrap(errutil.ErrNotConfigured)
	}

	endpoint := c.base + "/guilds/" + url.PathEscape(c.guildID) + "/members/" + url.PathEscape(userID)

	var roles []string
	err := retry.Do(ctx, c.backoff(), func(ctx context.Context) error {
		var err error
		roles, err = c.fetchRoles(ctx, endpoint)
		return err
	})
	if err != nil {
		return nil, oops.With("user_id", userID).Wrap(err)
	}
	return roles, nil
}

// fetchRoles performs one lookup. Transport failures, 429 and 5xx responses
// are marked retryable.
func (c *Client) fetchRoles(ctx context.Context, endpoint string) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, oops.Code("DISCORD_REQUEST_FAILED").Wrap(err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, oops.Code("DISCORD_REQUEST_FAILED").Wrap(err)
		}
		return nil, retry.RetryableError(oops.Code("DISCORD_REQUEST_FAILED").Wrap(err))
	}
	defer resp.Body.Close() //nolint:errcheck // read-only body

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return notFound(resp.Body)
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		err := oops.Code("DISCORD_REQUEST_FAILED").
			With("status", resp.StatusCode).
			With("body", string(body)).
			Errorf("discord returned %s", resp.Status)
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError {
			return nil, retry.RetryableError(err)
		}
		return nil, err
	}

	var member guildMember
	if err := json.NewDecoder(resp.Body).Decode(&member); err != nil {
		return nil, oops.Code("DISCORD_DECODE_FAILED").Wrap(err)
	}
	if member.Roles == nil {
		member.Roles = []string{}
	}
	return member.Roles, nil
}

// notFound classifies a 404. Only an unknown member or user means the account
// is not in the guild. Anything else, an unknown guild included, points at a
// misconfigured guild or API base and wraps errutil.ErrNotConfigured so the
// stored roles are kept.
func notFound(body io.Reader) ([]string, error) {
	raw, _ := io.ReadAll(io.LimitReader(body, maxErrorBody))
	var apiErr apiError
	_ = json.Unmarshal(raw, &apiErr) //nolint:errcheck // a non-JSON body is classified by its zero code

	switch apiErr.Code {
	case codeUnknownMember, codeUnknownUser:
		return []string{}, nil
	case codeUnknownGuild:
		return nil, oops.Code("DISCORD_GUILD_NOT_FOUND").
			With("discord_code", apiErr.Code).
			With("body", string(raw)).
			Wrap(errutil.ErrNotConfigured)
	default:
		return nil, oops.Code("DISCORD_NOT_FOUND").
			With("status", http.StatusNotFound).
			With("discord_code", apiErr.Code).
			With("body", string(raw)).
			Wrap(errutil.ErrNotConfigured)
	}
}
