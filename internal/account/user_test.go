// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package account_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/holomush/portal/internal/account"
	"github.com/holomush/portal/internal/tier"
)

func TestUser_HasExternalRole(t *testing.T) {
	u := &account.User{ExternalRoles: []string{"100", "200"}}

	assert.True(t, u.HasExternalRole("100"))
	assert.False(t, u.HasExternalRole("300"))
	assert.False(t, u.HasExternalRole(""))
}

func TestUser_HoldsAny(t *testing.T) {
	u := &account.User{ExternalRoles: []string{"100", "200"}}

	assert.True(t, u.HoldsAny(map[string]struct{}{"200": {}, "900": {}}))
	assert.False(t, u.HoldsAny(map[string]struct{}{"900": {}}))
	assert.False(t, u.HoldsAny(nil))
}

func TestPatch_Apply(t *testing.T) {
	u := &account.User{
		ExternalRoles: []string{"1"},
		Permissions:   []string{"roster:view"},
		StaffTier:     tier.Support,
	}

	roles := []string{"1", "2"}
	staffTier := tier.Manager
	isStaff := true
	patch := account.Patch{ExternalRoles: &roles, StaffTier: &staffTier, IsStaff: &isStaff}
	assert.False(t, patch.Empty())

	patch.Apply(u)

	assert.Equal(t, []string{"1", "2"}, u.ExternalRoles)
	assert.Equal(t, []string{"roster:view"}, u.Permissions, "unset fields are left alone")
	assert.Equal(t, tier.Manager, u.StaffTier)
	assert.True(t, u.IsStaff)

	roles[0] = "mutated"
	assert.Equal(t, "1", u.ExternalRoles[0], "apply copies slices")
}

func TestPatch_Empty(t *testing.T) {
	assert.True(t, account.Patch{}.Empty())
}
