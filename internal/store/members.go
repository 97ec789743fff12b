// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/holomush/portal/internal/roster"
	"github.com/holomush/portal/pkg/errutil"
)

// memberUserDepartmentKey is the unique constraint on (user_id, department_code).
const memberUserDepartmentKey = "roster_members_user_department_key"

const memberColumns = `id, user_id, department_code, rank_id,
	COALESCE(identifier, ''), COALESCE(callsign, ''), COALESCE(squad_id, ''),
	created_at, updated_at`

// MemberRepository implements roster.MemberRepository using PostgreSQL.
type MemberRepository struct {
	pool poolIface
}

// NewMemberRepository creates a new MemberRepository.
func NewMemberRepository(pool poolIface) *MemberRepository {
	return &MemberRepository{pool: pool}
}

// ListByDepartment returns all members of the department.
func (r *MemberRepository) ListByDepartment(ctx context.Context, code string) ([]*roster.Member, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+memberColumns+`
		FROM roster_members WHERE department_code = $1
		ORDER BY created_at, id
	`, code)
	if err != nil {
		return nil, oops.Code("MEMBER_QUERY_FAILED").With("department", code).Wrap(err)
	}
	defer rows.Close()

	var members []*roster.Member
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, oops.Code("MEMBER_QUERY_FAILED").With("department", code).Wrap(err)
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.Code("MEMBER_QUERY_FAILED").With("department", code).Wrap(err)
	}
	return members, nil
}

// GetByUser returns the user's member row for the department.
func (r *MemberRepository) GetByUser(ctx context.Context, userID ulid.ULID, code string) (*roster.Member, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+memberColumns+`
		FROM roster_members WHERE user_id = $1 AND department_code = $2
	`, userID.String(), code)
	m, err := scanMember(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("MEMBER_NOT_FOUND").
			With("user_id", userID.String()).
			With("department", code).
			Wrap(errutil.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("MEMBER_GET_FAILED").
			With("user_id", userID.String()).
			With("department", code).
			Wrap(err)
	}
	return m, nil
}

// Create inserts a member. When another writer already created the row for
// the same user and department, that row is returned instead.
func (r *MemberRepository) Create(ctx context.Context, m *roster.Member) (*roster.Member, error) {
	c := *m
	if c.ID.IsZero() {
		c.ID = ulid.Make()
	}
	now := time.Now().UTC()
	c.CreatedAt, c.UpdatedAt = now, now

	_, err := r.pool.Exec(ctx, `
		INSERT INTO roster_members (
			id, user_id, department_code, rank_id,
			identifier, callsign, squad_id, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`,
		c.ID.String(), c.UserID.String(), c.DepartmentCode, c.RankID.String(),
		nullIfEmpty(c.Identifier), nullIfEmpty(c.Callsign), nullIfEmpty(c.SquadID),
		c.CreatedAt, c.UpdatedAt)
	if err == nil {
		return &c, nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == pgerrcode.UniqueViolation && pgErr.ConstraintName == memberUserDepartmentKey:
			existing, getErr := r.GetByUser(ctx, c.UserID, c.DepartmentCode)
			if getErr != nil {
				return nil, oops.With("operation", "re-read after conflict").Wrap(getErr)
			}
			return existing, nil
		case pgErr.Code == pgerrcode.ForeignKeyViolation:
			return nil, oops.Code("MEMBER_REFERENCE_NOT_FOUND").
				With("constraint", pgErr.ConstraintName).
				With("user_id", c.UserID.String()).
				With("rank_id", c.RankID.String()).
				Wrap(errutil.ErrNotFound)
		}
	}
	return nil, oops.Code("MEMBER_CREATE_FAILED").
		With("user_id", c.UserID.String()).
		With("department", c.DepartmentCode).
		Wrap(err)
}

// Update applies patch to the member with the given ID.
func (r *MemberRepository) Update(ctx context.Context, id ulid.ULID, patch roster.MemberPatch) error {
	if patch.Empty() {
		return nil
	}

	var set setClause
	if patch.RankID != nil {
		set.add("rank_id", patch.RankID.String())
	}
	if patch.Identifier != nil {
		set.add("identifier", nullIfEmpty(*patch.Identifier))
	}
	if patch.Callsign != nil {
		set.add("callsign", nullIfEmpty(*patch.Callsign))
	}
	if patch.SquadID != nil {
		set.add("squad_id", nullIfEmpty(*patch.SquadID))
	}
	set.add("updated_at", time.Now().UTC())

	tag, err := r.pool.Exec(ctx,
		`UPDATE roster_members SET `+set.sql()+fmt.Sprintf(` WHERE id = $%d`, set.next()),
		append(set.args, id.String())...)
	if err != nil {
		return oops.Code("MEMBER_UPDATE_FAILED").With("id", id.String()).Wrap(err)
	}
	if tag.RowsAffected() == 0 {
		return oops.Code("MEMBER_NOT_FOUND").With("id", id.String()).Wrap(errutil.ErrNotFound)
	}
	return nil
}

// Delete removes the member with the given ID.
func (r *MemberRepository) Delete(ctx context.Context, id ulid.ULID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM roster_members WHERE id = $1`, id.String())
	if err != nil {
		return oops.Code("MEMBER_DELETE_FAILED").With("id", id.String()).Wrap(err)
	}
	if tag.RowsAffected() == 0 {
		return oops.Code("MEMBER_NOT_FOUND").With("id", id.String()).Wrap(errutil.ErrNotFound)
	}
	return nil
}

func scanMember(row pgx.Row) (*roster.Member, error) {
	var m roster.Member
	var id, userID, rankID string
	if err := row.Scan(&id, &userID, &m.DepartmentCode, &rankID,
		&m.Identifier, &m.Callsign, &m.SquadID, &m.CreatedAt, &m.UpdatedAt); err != nil {
		return nil, err //nolint:wrapcheck // callers wrap with operation context
	}
	for _, p := range []struct {
		dst *ulid.ULID
		src string
	}{{&m.ID, id}, {&m.UserID, userID}, {&m.RankID, rankID}} {
		parsed, err := ulid.Parse(p.src)
		if err != nil {
			return nil, oops.Code("CORRUPT_ID").With("id", p.src).Wrap(err)
		}
		*p.dst = parsed
	}
	return &m, nil
}

var _ roster.MemberRepository = (*MemberRepository)(nil)
