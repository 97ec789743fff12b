// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/holomush/portal/internal/account"
	"github.com/holomush/portal/internal/tier"
	"github.com/holomush/portal/pkg/errutil"
)

const userColumns = `u.id, u.display_name, u.avatar_ref, u.external_id, u.external_roles,
	u.permissions, u.staff_tier, u.is_staff,
	COALESCE((SELECT array_agg(a.role_definition_id ORDER BY a.role_definition_id)
	          FROM user_role_assignments a WHERE a.user_id = u.id), '{}'::text[]),
	u.created_at, u.updated_at`

// UserRepository implements account.Repository using PostgreSQL.
type UserRepository struct {
	pool poolIface
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(pool poolIface) *UserRepository {
	return &UserRepository{pool: pool}
}

// Create stores a new user. The ID and timestamps are generated if unset.
func (r *UserRepository) Create(ctx context.Context, u *account.User) error {
	if u.ID.IsZero() {
		u.ID = ulid.Make()
	}
	now := time.Now().UTC()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now

	_, err := r.pool.Exec(ctx, `
		INSERT INTO users (
			id, display_name, avatar_ref, external_id, external_roles,
			permissions, staff_tier, is_staff, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`,
		u.ID.String(),
		u.DisplayName,
		u.AvatarRef,
		u.ExternalID,
		nonNil(u.ExternalRoles),
		nonNil(u.Permissions),
		tierName(u.StaffTier),
		u.IsStaff,
		u.CreatedAt,
		u.UpdatedAt,
	)
	if err != nil {
		return oops.Code("USER_CREATE_FAILED").
			With("operation", "insert user").
			With("id", u.ID.String()).
			Wrap(err)
	}
	return nil
}

// List returns all users, oldest first.
func (r *UserRepository) List(ctx context.Context) ([]*account.User, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+userColumns+` FROM users u ORDER BY u.created_at, u.id`)
	if err != nil {
		return nil, oops.Code("USER_LIST_FAILED").With("operation", "list users").Wrap(err)
	}
	defer rows.Close()

	var users []*account.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, oops.Code("USER_LIST_FAILED").With("operation", "scan user row").Wrap(err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.Code("USER_LIST_FAILED").With("operation", "iterate users").Wrap(err)
	}
	return users, nil
}

// Get retrieves a user by ID.
func (r *UserRepository) Get(ctx context.Context, id ulid.ULID) (*account.User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users u WHERE u.id = $1`, id.String())
	u, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("USER_NOT_FOUND").With("id", id.String()).Wrap(errutil.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("USER_GET_FAILED").With("id", id.String()).Wrap(err)
	}
	return u, nil
}

// Update writes the set fields of patch.
func (r *UserRepository) Update(ctx context.Context, id ulid.ULID, patch account.Patch) error {
	if patch.Empty() {
		return nil
	}

	var set setClause
	if patch.ExternalRoles != nil {
		set.add("external_roles", nonNil(*patch.ExternalRoles))
	}
	if patch.Permissions != nil {
		set.add("permissions", nonNil(*patch.Permissions))
	}
	if patch.StaffTier != nil {
		set.add("staff_tier", tierName(*patch.StaffTier))
	}
	if patch.IsStaff != nil {
		set.add("is_staff", *patch.IsStaff)
	}
	set.add("updated_at", time.Now().UTC())

	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET `+set.sql()+fmt.Sprintf(` WHERE id = $%d`, set.next()),
		append(set.args, id.String())...)
	if err != nil {
		return oops.Code("USER_UPDATE_FAILED").With("id", id.String()).Wrap(err)
	}
	if tag.RowsAffected() == 0 {
		return oops.Code("USER_NOT_FOUND").With("id", id.String()).Wrap(errutil.ErrNotFound)
	}
	return nil
}

// AssignRole grants the user a role definition manually.
func (r *UserRepository) AssignRole(ctx context.Context, userID, definitionID ulid.ULID) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO user_role_assignments (user_id, role_definition_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`, userID.String(), definitionID.String())
	if err != nil {
		return oops.Code("USER_ROLE_ASSIGN_FAILED").
			With("user_id", userID.String()).
			With("role_definition_id", definitionID.String()).
			Wrap(err)
	}
	return nil
}

func scanUser(row pgx.Row) (*account.User, error) {
	var (
		u        account.User
		id       string
		tierStr  string
		manualID []string
	)
	if err := row.Scan(
		&id, &u.DisplayName, &u.AvatarRef, &u.ExternalID, &u.ExternalRoles,
		&u.Permissions, &tierStr, &u.IsStaff, &manualID,
		&u.CreatedAt, &u.UpdatedAt,
	); err != nil {
		return nil, err //nolint:wrapcheck // callers wrap with operation context
	}

	var err error
	if u.ID, err = ulid.Parse(id); err != nil {
		return nil, oops.Code("CORRUPT_ID").With("id", id).Wrap(err)
	}
	if u.StaffTier, err = tier.Parse(tierStr); err != nil {
		return nil, oops.With("user_id", id).Wrap(err)
	}
	for _, s := range manualID {
		rid, err := ulid.Parse(s)
		if err != nil {
			return nil, oops.Code("CORRUPT_ID").With("role_definition_id", s).Wrap(err)
		}
		u.ManualRoleIDs = append(u.ManualRoleIDs, rid)
	}
	return &u, nil
}

// setClause builds the SET list of a partial UPDATE.
type setClause struct {
	cols []string
	args []any
}

func (s *setClause) add(col string, v any) {
	s.args = append(s.args, v)
	s.cols = append(s.cols, fmt.Sprintf("%s = $%d", col, len(s.args)))
}

func (s *setClause) sql() string {
	return strings.Join(s.cols, ", ")
}

// next returns the placeholder number after the SET arguments.
func (s *setClause) next() int {
	return len(s.args) + 1
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

var _ account.Repository = (*UserRepository)(nil)
