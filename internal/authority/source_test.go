// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package authority_test

import (
	"testing"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"

	"github.com/holomush/portal/internal/authority"
	"github.com/holomush/portal/internal/tier"
)

func TestSplitPermissions(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"a", []string{"a"}},
		{"a,b", []string{"a", "b"}},
		{" a , b ,", []string{"a", "b"}},
		{",,,", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, authority.SplitPermissions(tt.in))
		})
	}
}

func TestLegacyTable_Lookup(t *testing.T) {
	table := authority.NewLegacyTable([]authority.PermissionMapping{
		{ExternalRoleID: "1", PermissionList: "a,b", StaffTier: tier.Moderator},
		{ExternalRoleID: "", PermissionList: "ignored"},
	})

	g, ok := table.Lookup("1")
	assert.True(t, ok)
	assert.Equal(t, []string{"a", "b"}, g.Permissions)
	assert.Equal(t, tier.Moderator, g.StaffTier)

	_, ok = table.Lookup("")
	assert.False(t, ok)
	assert.Equal(t, "legacy_mapping", table.Name())
}

func TestDefinitionTable_LookupSkipsUnlinked(t *testing.T) {
	internal := authority.RoleDefinition{ID: ulid.Make(), Name: "internal", Permissions: []string{"audit:read"}}
	linked := authority.RoleDefinition{ID: ulid.Make(), Name: "linked", ExternalRoleID: "9", Permissions: []string{" x "}}
	table := authority.NewDefinitionTable([]authority.RoleDefinition{internal, linked})

	g, ok := table.Lookup("9")
	assert.True(t, ok)
	assert.Equal(t, []string{"x"}, g.Permissions)

	_, ok = table.Lookup("")
	assert.False(t, ok, "internal definitions are not reachable through external roles")
}

func TestDefinitionTable_ManualPermissions(t *testing.T) {
	a := authority.RoleDefinition{ID: ulid.Make(), Permissions: []string{"audit:read"}, StaffTier: tier.Director}
	b := authority.RoleDefinition{ID: ulid.Make(), ExternalRoleID: "7", Permissions: []string{"roster:lspd:write"}}
	table := authority.NewDefinitionTable([]authority.RoleDefinition{a, b})

	perms := table.ManualPermissions([]ulid.ULID{a.ID, b.ID, ulid.Make()})
	assert.ElementsMatch(t, []string{"audit:read", "roster:lspd:write"}, perms)
	assert.Empty(t, table.ManualPermissions(nil))
}
