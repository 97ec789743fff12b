// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package store implements the portal repositories on PostgreSQL.
package store

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"

	"github.com/holomush/portal/internal/tier"
)

// poolIface is the subset of *pgxpool.Pool the repositories use. It is
// satisfied by pgxmock.PgxPoolIface in tests.
type poolIface interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
	Ping(ctx context.Context) error
}

var _ poolIface = (*pgxpool.Pool)(nil)

// Open connects to PostgreSQL and verifies the connection.
func Open(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, oops.Code("DB_CONNECT_FAILED").With("operation", "create pool").Wrap(err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, oops.Code("DB_CONNECT_FAILED").With("operation", "ping").Wrap(err)
	}
	return pool, nil
}

// Store bundles the repositories over one pool.
type Store struct {
	pool poolIface

	Users     *UserRepository
	Authority *AuthorityRepository
	Ranks     *RankRepository
	Members   *MemberRepository
}

// New creates a Store over pool.
func New(pool poolIface) *Store {
	return &Store{
		pool:      pool,
		Users:     NewUserRepository(pool),
		Authority: NewAuthorityRepository(pool),
		Ranks:     NewRankRepository(pool),
		Members:   NewMemberRepository(pool),
	}
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return oops.Code("DB_PING_FAILED").Wrap(err)
	}
	return nil
}

// tierName is the stored form of t. None is stored as "".
func tierName(t tier.Tier) string {
	if t == tier.None {
		return ""
	}
	return t.String()
}

// nullIfEmpty maps "" to SQL NULL.
func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
