// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package store

import (
	"context"
	"errors"
	"testing"

	"github.com/oklog/ulid/v2"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/portal/internal/roster"
	"github.com/holomush/portal/pkg/errutil"
)

var rankRowColumns = []string{
	"id", "department_code", "name", "abbreviation", "priority_index",
	"is_leadership", "external_role_id", "callsign_prefix",
}

func TestRankRepository_ListByDepartment(t *testing.T) {
	mock := newMockPool(t)
	chief, officer := ulid.Make(), ulid.Make()
	mock.ExpectQuery(`FROM ranks WHERE department_code = \$1`).
		WithArgs("acpd").
		WillReturnRows(pgxmock.NewRows(rankRowColumns).
			AddRow(chief.String(), "acpd", "Chief of Police", "COP", 0, true, "r-chief", "1-").
			AddRow(officer.String(), "acpd", "Officer", "OFC", 3, false, "", ""))

	ranks, err := NewRankRepository(mock).ListByDepartment(context.Background(), "acpd")
	require.NoError(t, err)
	require.Len(t, ranks, 2)
	assert.Equal(t, chief, ranks[0].ID)
	assert.True(t, ranks[0].Linked())
	assert.True(t, ranks[0].IsLeadership)
	assert.False(t, ranks[1].Linked())
	assert.Equal(t, 3, ranks[1].PriorityIndex)
}

func TestRankRepository_ListByDepartment_QueryError(t *testing.T) {
	mock := newMockPool(t)
	mock.ExpectQuery(`FROM ranks`).WillReturnError(errors.New("connection refused"))

	_, err := NewRankRepository(mock).ListByDepartment(context.Background(), "acpd")
	errutil.AssertErrorCode(t, err, "RANK_QUERY_FAILED")
	errutil.AssertErrorContext(t, err, "department", "acpd")
}

func TestRankRepository_Get(t *testing.T) {
	mock := newMockPool(t)
	id := ulid.Make()
	mock.ExpectQuery(`FROM ranks WHERE id = \$1`).
		WithArgs(id.String()).
		WillReturnRows(pgxmock.NewRows(rankRowColumns).
			AddRow(id.String(), "doj", "Clerk", "CLK", 1, true, "", ""))

	rk, err := NewRankRepository(mock).Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "Clerk", rk.Name)

	mock.ExpectQuery(`FROM ranks WHERE id = \$1`).WillReturnRows(pgxmock.NewRows(rankRowColumns))
	_, err = NewRankRepository(mock).Get(context.Background(), id)
	errutil.AssertKind(t, err, errutil.ErrNotFound, "RANK_NOT_FOUND")
}

func TestRankRepository_Put(t *testing.T) {
	mock := newMockPool(t)
	mock.ExpectExec(`INSERT INTO ranks`).
		WithArgs(pgxmock.AnyArg(), "acpd", "Sergeant", "SGT", 2, false, "r-sgt", nil).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	rk := &roster.Rank{DepartmentCode: "acpd", Name: "Sergeant", Abbreviation: "SGT", PriorityIndex: 2, ExternalRoleID: "r-sgt"}
	require.NoError(t, NewRankRepository(mock).Put(context.Background(), rk))
	assert.False(t, rk.ID.IsZero())

	mock.ExpectExec(`INSERT INTO ranks`).WillReturnError(errors.New("disk full"))
	errutil.AssertErrorCode(t, NewRankRepository(mock).Put(context.Background(), rk), "RANK_WRITE_FAILED")
}
