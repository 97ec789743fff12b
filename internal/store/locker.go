// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package store

import (
	"context"
	"sync"

	"github.com/samber/oops"

	"github.com/holomush/portal/internal/roster"
)

// advisoryLockNamespace prefixes department codes before hashing so roster
// locks do not collide with other advisory lock users.
const advisoryLockNamespace = "portal.roster:"

// AdvisoryLocker implements roster.Locker with a PostgreSQL transaction-level
// advisory lock, so every portal process sharing the database is excluded.
// Each held lock pins one pool connection until unlocked.
type AdvisoryLocker struct {
	pool poolIface
}

// NewAdvisoryLocker creates an AdvisoryLocker.
func NewAdvisoryLocker(pool poolIface) *AdvisoryLocker {
	return &AdvisoryLocker{pool: pool}
}

// Lock blocks until the department's advisory lock is held or ctx is done.
func (l *AdvisoryLocker) Lock(ctx context.Context, department string) (func(), error) {
	tx, err := l.pool.Begin(ctx)
	if err != nil {
		return nil, oops.Code("ADVISORY_LOCK_FAILED").
			With("operation", "begin").
			With("department", department).
			Wrap(err)
	}

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`,
		advisoryLockNamespace+department); err != nil {
		_ = tx.Rollback(context.WithoutCancel(ctx)) //nolint:errcheck // lock error takes precedence
		return nil, oops.Code("ADVISORY_LOCK_FAILED").
			With("operation", "acquire").
			With("department", department).
			Wrap(err)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			// Ending the transaction releases the lock.
			_ = tx.Rollback(context.WithoutCancel(ctx)) //nolint:errcheck // nothing to undo
		})
	}, nil
}

var _ roster.Locker = (*AdvisoryLocker)(nil)
