// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/require"

	"github.com/holomush/portal/internal/account"
	"github.com/holomush/portal/internal/account/accounttest"
	"github.com/holomush/portal/internal/authority/authoritytest"
	"github.com/holomush/portal/internal/config"
	"github.com/holomush/portal/internal/roster"
	"github.com/holomush/portal/internal/roster/rostertest"
)

const (
	roleChief   = "role-chief"
	roleOfficer = "role-officer"
)

// backendFixture is an in-memory backend seeded with acpd ranks.
type backendFixture struct {
	users   *accounttest.MemoryRepository
	tables  *authoritytest.Tables
	ranks   *rostertest.RankRepository
	members *rostertest.MemberRepository
	pingErr error
	closed  int

	chief, officer *roster.Rank
}

func newBackendFixture() *backendFixture {
	f := &backendFixture{
		users:   accounttest.NewMemoryRepository(),
		tables:  authoritytest.NewTables(),
		members: rostertest.NewMemberRepository(),
		chief: &roster.Rank{
			DepartmentCode: "acpd", Name: "Chief of Police", Abbreviation: "COP",
			PriorityIndex: 1, IsLeadership: true, ExternalRoleID: roleChief,
		},
		officer: &roster.Rank{
			DepartmentCode: "acpd", Name: "Officer", Abbreviation: "OFC",
			PriorityIndex: 10, ExternalRoleID: roleOfficer,
		},
	}
	f.ranks = rostertest.NewRankRepository(f.chief, f.officer)
	return f
}

func (f *backendFixture) addUser(name string, age int, roles ...string) *account.User {
	u := &account.User{
		ID:            ulid.Make(),
		DisplayName:   name,
		ExternalRoles: roles,
		CreatedAt:     time.Date(2024, 1, 1, 0, age, 0, 0, time.UTC),
	}
	f.users.Put(u)
	return u
}

func (f *backendFixture) deps() *Deps {
	return &Deps{
		BackendFactory: func(context.Context, *config.Config) (*Backend, error) {
			return &Backend{
				Users:     f.users,
				Authority: f.tables,
				Ranks:     f.ranks,
				Members:   f.members,
				Locker:    roster.NewLocalLocker(),
				Ping:      func(context.Context) error { return f.pingErr },
				Close:     func() { f.closed++ },
			}, nil
		},
		Getenv: func(string) string { return "" },
	}
}

// execute runs the root command with args and returns stdout and stderr.
func execute(t *testing.T, deps *Deps, args ...string) (string, string, error) {
	t.Helper()
	return executeContext(t, context.Background(), deps, args...)
}

func executeContext(t *testing.T, ctx context.Context, deps *Deps, args ...string) (string, string, error) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	original := slog.Default()
	t.Cleanup(func() { slog.SetDefault(original) })

	var out, errOut bytes.Buffer
	cmd := newRootCmd(deps)
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	err := cmd.ExecuteContext(ctx)
	return out.String(), errOut.String(), err
}

func TestRootCmd_HasSubcommands(t *testing.T) {
	cmd := NewRootCmd()
	var names []string
	for _, c := range cmd.Commands() {
		names = append(names, c.Name())
	}
	require.Subset(t, names, []string{"serve", "migrate", "resync", "roster", "leadership", "member", "departments"})
}
