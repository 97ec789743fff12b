// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package account holds portal user records linked to an external chat
// platform identity.
package account

import (
	"context"
	"slices"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/holomush/portal/internal/tier"
)

// User is a portal account.
//
// ExternalRoles is the last known snapshot of the user's external group
// memberships. Permissions, StaffTier and IsStaff are derived from it by the
// authority resolver and are never edited by hand; operators grant extra
// permissions through ManualRoleIDs instead.
type User struct {
	ID            ulid.ULID
	DisplayName   string
	AvatarRef     string
	ExternalID    string
	ExternalRoles []string
	Permissions   []string
	StaffTier     tier.Tier
	IsStaff       bool
	ManualRoleIDs []ulid.ULID
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// HasExternalRole reports whether the user currently holds the external role.
func (u *User) HasExternalRole(roleID string) bool {
	if roleID == "" {
		return false
	}
	return slices.Contains(u.ExternalRoles, roleID)
}

// HoldsAny reports whether any of the user's external roles is in roles.
func (u *User) HoldsAny(roles map[string]struct{}) bool {
	for _, r := range u.ExternalRoles {
		if _, ok := roles[r]; ok {
			return true
		}
	}
	return false
}

// Patch is a partial update of a user. Nil fields are left unchanged.
type Patch struct {
	ExternalRoles *[]string
	Permissions   *[]string
	StaffTier     *tier.Tier
	IsStaff       *bool
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool {
	return p.ExternalRoles == nil && p.Permissions == nil && p.StaffTier == nil && p.IsStaff == nil
}

// Apply copies the set fields of p onto u.
func (p Patch) Apply(u *User) {
	if p.ExternalRoles != nil {
		u.ExternalRoles = slices.Clone(*p.ExternalRoles)
	}
	if p.Permissions != nil {
		u.Permissions = slices.Clone(*p.Permissions)
	}
	if p.StaffTier != nil {
		u.StaffTier = *p.StaffTier
	}
	if p.IsStaff != nil {
		u.IsStaff = *p.IsStaff
	}
}

// Repository manages user persistence.
type Repository interface {
	// List returns every user.
	List(ctx context.Context) ([]*User, error)

	// Get retrieves a user by ID. Returns an error wrapping errutil.ErrNotFound
	// if the user does not exist.
	Get(ctx context.Context, id ulid.ULID) (*User, error)

	// Update applies a partial update to the user.
	Update(ctx context.Context, id ulid.ULID, patch Patch) error
}
