// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"encoding/json"
	"testing"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/portal/pkg/errutil"
)

func TestRosterCmd_PrintsSynthesizedRoster(t *testing.T) {
	f := newBackendFixture()
	chief := f.addUser("Casey", 0, roleChief, roleOfficer)
	f.addUser("Ollie", 5, roleOfficer)
	f.addUser("Pat", 9)

	out, _, err := execute(t, f.deps(), "roster", "acpd")
	require.NoError(t, err)

	var got struct {
		DepartmentCode string `json:"departmentCode"`
		Rows           []struct {
			UserID     string  `json:"userId"`
			Identifier *string `json:"identifier"`
			Callsign   *string `json:"callsign"`
			Rank       struct {
				Name string `json:"name"`
			} `json:"rank"`
		} `json:"rows"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got), out)
	assert.Equal(t, "acpd", got.DepartmentCode)
	require.Len(t, got.Rows, 2)
	assert.Equal(t, chief.ID.String(), got.Rows[0].UserID)
	assert.Equal(t, "Chief of Police", got.Rows[0].Rank.Name)
	require.NotNil(t, got.Rows[0].Identifier)
	assert.Equal(t, "ACP01A", *got.Rows[0].Identifier)
	require.NotNil(t, got.Rows[1].Callsign)
	assert.Equal(t, "3-100", *got.Rows[1].Callsign)

	assert.Equal(t, 1, f.closed, "backend is released")
}

func TestRosterCmd_UnknownDepartment(t *testing.T) {
	f := newBackendFixture()
	_, _, err := execute(t, f.deps(), "roster", "navy")
	errutil.AssertKind(t, err, errutil.ErrNotFound, "DEPARTMENT_NOT_FOUND")
}

func TestLeadershipCmd(t *testing.T) {
	f := newBackendFixture()
	chief := f.addUser("Casey", 0, roleChief)
	officer := f.addUser("Ollie", 1, roleOfficer)

	tests := []struct {
		user string
		want bool
	}{
		{chief.ID.String(), true},
		{officer.ID.String(), false},
	}
	for _, tt := range tests {
		out, _, err := execute(t, f.deps(), "leadership", tt.user, "acpd")
		require.NoError(t, err)

		var got leadershipView
		require.NoError(t, json.Unmarshal([]byte(out), &got))
		assert.Equal(t, tt.want, got.IsLeadership, tt.user)
		assert.Equal(t, "acpd", got.Department)
	}
}

func TestLeadershipCmd_Errors(t *testing.T) {
	f := newBackendFixture()

	_, _, err := execute(t, f.deps(), "leadership", "not-an-id", "acpd")
	errutil.AssertErrorCode(t, err, "INVALID_ID")

	_, _, err = execute(t, f.deps(), "leadership", ulid.Make().String(), "acpd")
	require.Error(t, err)
	assert.True(t, errutil.IsNotFound(err))

	_, _, err = execute(t, f.deps(), "leadership", ulid.Make().String(), "navy")
	errutil.AssertErrorCode(t, err, "DEPARTMENT_NOT_FOUND")
}
