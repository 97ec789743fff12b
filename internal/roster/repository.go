// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package roster

import (
	"context"

	"github.com/oklog/ulid/v2"
)

// RankRepository reads department ranks.
type RankRepository interface {
	// ListByDepartment returns every rank of the department, linked or not.
	ListByDepartment(ctx context.Context, code string) ([]*Rank, error)

	// Get retrieves a rank by ID. Returns an error wrapping
	// errutil.ErrNotFound if it does not exist.
	Get(ctx context.Context, id ulid.ULID) (*Rank, error)
}

// MemberRepository manages roster member overrides.
type MemberRepository interface {
	// ListByDepartment returns all members of the department.
	ListByDepartment(ctx context.Context, code string) ([]*Member, error)

	// GetByUser returns the user's member row for the department, or an
	// error wrapping errutil.ErrNotFound.
	GetByUser(ctx context.Context, userID ulid.ULID, code string) (*Member, error)

	// Create persists a new member, generating the ID if unset. If a row for
	// the same (user, department) already exists, that row is returned
	// unchanged instead.
	Create(ctx context.Context, m *Member) (*Member, error)

	// Update applies patch to the member with the given ID.
	Update(ctx context.Context, id ulid.ULID, patch MemberPatch) error

	// Delete removes the member with the given ID.
	Delete(ctx context.Context, id ulid.ULID) error
}
