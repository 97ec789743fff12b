// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	"os"

	"github.com/samber/oops"

	"github.com/holomush/portal/internal/account"
	"github.com/holomush/portal/internal/authority"
	"github.com/holomush/portal/internal/config"
	"github.com/holomush/portal/internal/discord"
	"github.com/holomush/portal/internal/observability"
	"github.com/holomush/portal/internal/roster"
	"github.com/holomush/portal/internal/store"
)

// Backend is the persistence a command runs against.
type Backend struct {
	Users     account.Repository
	Authority authority.Repository
	Ranks     roster.RankRepository
	Members   roster.MemberRepository
	Locker    roster.Locker
	// Ping reports database health for readiness probes.
	Ping  func(ctx context.Context) error
	Close func()
}

// Migrator wraps the methods used by the migrate command from store.Migrator.
type Migrator interface {
	Up() error
	Down() error
	Version() (uint, bool, error)
	Force(version int) error
	PendingMigrations() ([]uint, error)
	Close() error
}

// ObservabilityServer wraps the methods used by serve from observability.Server.
type ObservabilityServer interface {
	Start() (<-chan error, error)
	Stop(ctx context.Context) error
	Addr() string
	Metrics() *observability.Metrics
}

// Deps contains injectable dependencies for the portal commands.
// All fields with nil values will use their default implementations.
type Deps struct {
	// BackendFactory opens the persistence layer.
	// Default: PostgreSQL via store.Open
	BackendFactory func(ctx context.Context, cfg *config.Config) (*Backend, error)

	// MigratorFactory creates a schema migrator.
	// Default: store.NewMigrator
	MigratorFactory func(databaseURL string) (Migrator, error)

	// RoleFetcherFactory creates the live role client. A nil fetcher disables
	// live refresh.
	// Default: discord.NewClient, or nil when Discord is not configured
	RoleFetcherFactory func(cfg config.Discord) authority.RoleFetcher

	// ObservabilityServerFactory creates an observability server.
	// Default: observability.NewServer
	ObservabilityServerFactory func(addr string, ready observability.ReadinessChecker) ObservabilityServer

	// Getenv reads environment overrides.
	// Default: os.Getenv
	Getenv func(string) string
}

func (d *Deps) withDefaults() *Deps {
	out := Deps{}
	if d != nil {
		out = *d
	}
	if out.BackendFactory == nil {
		out.BackendFactory = openPostgresBackend
	}
	if out.MigratorFactory == nil {
		out.MigratorFactory = func(url string) (Migrator, error) {
			return store.NewMigrator(url)
		}
	}
	if out.RoleFetcherFactory == nil {
		out.RoleFetcherFactory = func(cfg config.Discord) authority.RoleFetcher {
			clientCfg := cfg.ClientConfig()
			if !clientCfg.Configured() {
				return nil
			}
			return discord.NewClient(clientCfg)
		}
	}
	if out.ObservabilityServerFactory == nil {
		out.ObservabilityServerFactory = func(addr string, ready observability.ReadinessChecker) ObservabilityServer {
			return observability.NewServer(addr, ready)
		}
	}
	if out.Getenv == nil {
		out.Getenv = os.Getenv
	}
	return &out
}

func openPostgresBackend(ctx context.Context, cfg *config.Config) (*Backend, error) {
	if err := cfg.RequireDatabase(); err != nil {
		return nil, err
	}
	pool, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	s := store.New(pool)

	var locker roster.Locker
	switch cfg.AllocationLock {
	case config.LockPostgres:
		locker = store.NewAdvisoryLocker(pool)
	case config.LockLocal:
		locker = roster.NewLocalLocker()
	case config.LockNone:
		locker = roster.NoopLocker{}
	default:
		pool.Close()
		return nil, oops.Code("INVALID_CONFIG").
			With("allocation_lock", cfg.AllocationLock).
			Errorf("unknown allocation lock mode")
	}

	return &Backend{
		Users:     s.Users,
		Authority: s.Authority,
		Ranks:     s.Ranks,
		Members:   s.Members,
		Locker:    locker,
		Ping:      s.Ping,
		Close:     pool.Close,
	}, nil
}
