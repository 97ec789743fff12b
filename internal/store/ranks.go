// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/holomush/portal/internal/roster"
	"github.com/holomush/portal/pkg/errutil"
)

const rankColumns = `id, department_code, name, abbreviation, priority_index, is_leadership,
	COALESCE(external_role_id, ''), COALESCE(callsign_prefix, '')`

// RankRepository implements roster.RankRepository using PostgreSQL.
type RankRepository struct {
	pool poolIface
}

// NewRankRepository creates a new RankRepository.
func NewRankRepository(pool poolIface) *RankRepository {
	return &RankRepository{pool: pool}
}

// ListByDepartment returns the department's ranks, most senior first.
func (r *RankRepository) ListByDepartment(ctx context.Context, code string) ([]*roster.Rank, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+rankColumns+`
		FROM ranks WHERE department_code = $1
		ORDER BY priority_index, name
	`, code)
	if err != nil {
		return nil, oops.Code("RANK_QUERY_FAILED").With("department", code).Wrap(err)
	}
	defer rows.Close()

	var ranks []*roster.Rank
	for rows.Next() {
		rk, err := scanRank(rows)
		if err != nil {
			return nil, oops.Code("RANK_QUERY_FAILED").With("department", code).Wrap(err)
		}
		ranks = append(ranks, rk)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.Code("RANK_QUERY_FAILED").With("department", code).Wrap(err)
	}
	return ranks, nil
}

// Get retrieves a rank by ID.
func (r *RankRepository) Get(ctx context.Context, id ulid.ULID) (*roster.Rank, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+rankColumns+` FROM ranks WHERE id = $1`, id.String())
	rk, err := scanRank(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("RANK_NOT_FOUND").With("id", id.String()).Wrap(errutil.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("RANK_GET_FAILED").With("id", id.String()).Wrap(err)
	}
	return rk, nil
}

// Put creates or replaces a rank. The ID is generated if unset.
func (r *RankRepository) Put(ctx context.Context, rk *roster.Rank) error {
	if rk.ID.IsZero() {
		rk.ID = ulid.Make()
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO ranks (id, department_code, name, abbreviation, priority_index,
		                   is_leadership, external_role_id, callsign_prefix)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			department_code = $2, name = $3, abbreviation = $4, priority_index = $5,
			is_leadership = $6, external_role_id = $7, callsign_prefix = $8
	`,
		rk.ID.String(), rk.DepartmentCode, rk.Name, rk.Abbreviation, rk.PriorityIndex,
		rk.IsLeadership, nullIfEmpty(rk.ExternalRoleID), nullIfEmpty(rk.CallsignPrefix))
	if err != nil {
		return oops.Code("RANK_WRITE_FAILED").With("id", rk.ID.String()).Wrap(err)
	}
	return nil
}

func scanRank(row pgx.Row) (*roster.Rank, error) {
	var rk roster.Rank
	var id string
	if err := row.Scan(&id, &rk.DepartmentCode, &rk.Name, &rk.Abbreviation,
		&rk.PriorityIndex, &rk.IsLeadership, &rk.ExternalRoleID, &rk.CallsignPrefix); err != nil {
		return nil, err //nolint:wrapcheck // callers wrap with operation context
	}
	parsed, err := ulid.Parse(id)
	if err != nil {
		return nil, oops.Code("CORRUPT_ID").With("id", id).Wrap(err)
	}
	rk.ID = parsed
	return &rk, nil
}

var _ roster.RankRepository = (*RankRepository)(nil)
