// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package roster_test

import (
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/require"

	"github.com/holomush/portal/internal/account"
	"github.com/holomush/portal/internal/account/accounttest"
	"github.com/holomush/portal/internal/department"
	"github.com/holomush/portal/internal/roster"
	"github.com/holomush/portal/internal/roster/rostertest"
	"github.com/holomush/portal/internal/tier"
)

const (
	roleChief    = "role-chief"
	roleSergeant = "role-sergeant"
	roleOfficer  = "role-officer"
	roleFTO      = "role-fto"
	roleClerk    = "role-clerk"
)

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

type fixture struct {
	departments *department.Registry
	users       *accounttest.MemoryRepository
	ranks       *rostertest.RankRepository
	members     *rostertest.MemberRepository

	chief, sergeant, officer, cadet, clerk *roster.Rank
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	reg, err := department.NewRegistry([]department.Department{
		{
			Code:                "acpd",
			Name:                "Acadia City Police Department",
			Identifier:          &department.IdentifierPolicy{Prefix: "ACP"},
			QualificationRoleID: roleFTO,
			Callsigns: []department.CallsignPolicy{
				{Rank: "Sergeant", Prefix: "2-", Start: 10, End: 11},
				{Rank: "Officer", Prefix: "3-", Start: 100, End: 199},
			},
		},
		{Code: "doj", Name: "Department of Justice"},
	})
	require.NoError(t, err)

	f := &fixture{
		departments: reg,
		users:       accounttest.NewMemoryRepository(),
		members:     rostertest.NewMemberRepository(),
		chief:       &roster.Rank{DepartmentCode: "acpd", Name: "Chief of Police", Abbreviation: "COP", PriorityIndex: 1, IsLeadership: true, ExternalRoleID: roleChief},
		sergeant:    &roster.Rank{DepartmentCode: "acpd", Name: "Sergeant", Abbreviation: "SGT", PriorityIndex: 5, ExternalRoleID: roleSergeant},
		officer:     &roster.Rank{DepartmentCode: "acpd", Name: "Officer", Abbreviation: "OFC", PriorityIndex: 10, ExternalRoleID: roleOfficer},
		cadet:       &roster.Rank{DepartmentCode: "acpd", Name: "Cadet", Abbreviation: "CDT", PriorityIndex: 20},
		clerk:       &roster.Rank{DepartmentCode: "doj", Name: "Clerk", PriorityIndex: 1, IsLeadership: true},
	}
	// Stored out of priority order on purpose.
	f.ranks = rostertest.NewRankRepository(f.cadet, f.officer, f.chief, f.sergeant, f.clerk)
	return f
}

// addUser stores a user created age minutes after epoch holding roles.
func (f *fixture) addUser(name string, age int, roles ...string) *account.User {
	u := &account.User{
		ID:            ulid.Make(),
		DisplayName:   name,
		ExternalID:    "ext-" + name,
		ExternalRoles: roles,
		CreatedAt:     epoch.Add(time.Duration(age) * time.Minute),
	}
	f.users.Put(u)
	return u
}

func (f *fixture) synthesizer(locker roster.Locker) *roster.Synthesizer {
	return roster.NewSynthesizer(roster.SynthesizerConfig{
		Departments: f.departments,
		Users:       f.users,
		Ranks:       f.ranks,
		Members:     f.members,
		Locker:      locker,
	})
}

func (f *fixture) leadership() *roster.Leadership {
	return roster.NewLeadership(f.ranks, f.members, nil)
}

func (f *fixture) service() *roster.Service {
	return roster.NewService(roster.ServiceConfig{
		Departments: f.departments,
		Users:       f.users,
		Ranks:       f.ranks,
		Members:     f.members,
		Leadership:  f.leadership(),
	})
}

func staff(tr tier.Tier) *account.User {
	return &account.User{ID: ulid.Make(), StaffTier: tr, IsStaff: tr != tier.None}
}

func rowFor(r *roster.Roster, userID ulid.ULID) (roster.Row, bool) {
	for _, row := range r.Rows {
		if row.User.ID == userID {
			return row, true
		}
	}
	return roster.Row{}, false
}

func strPtr(s string) *string { return &s }
