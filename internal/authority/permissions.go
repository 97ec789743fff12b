// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package authority

import (
	"log/slog"

	"github.com/gobwas/glob"
	"github.com/samber/oops"

	"github.com/holomush/portal/internal/account"
	"github.com/holomush/portal/internal/tier"
	"github.com/holomush/portal/pkg/errutil"
)

// PermissionSeparator splits permission patterns into segments for globbing,
// so "roster:*:write" matches "roster:lspd:write" but not "roster:lspd:sub:write".
const PermissionSeparator = ':'

// PermissionSet answers permission checks against a user's granted patterns.
// Granted permissions may contain globs ("*" within a segment, "**" across
// segments).
type PermissionSet struct {
	patterns []compiledPermission
}

type compiledPermission struct {
	pattern string
	glob    glob.Glob
}

// NewPermissionSet compiles granted permissions. Patterns that fail to compile
// are skipped and logged; a bad grant must not widen access.
func NewPermissionSet(granted []string) *PermissionSet {
	ps := &PermissionSet{patterns: make([]compiledPermission, 0, len(granted))}
	for _, p := range granted {
		g, err := glob.Compile(p, PermissionSeparator)
		if err != nil {
			slog.Warn("skipping invalid permission pattern", "pattern", p, "error", err)
			continue
		}
		ps.patterns = append(ps.patterns, compiledPermission{pattern: p, glob: g})
	}
	return ps
}

// Allows reports whether any granted pattern matches the required permission.
func (ps *PermissionSet) Allows(required string) bool {
	if required == "" {
		return false
	}
	for _, p := range ps.patterns {
		if p.pattern == required || p.glob.Match(required) {
			return true
		}
	}
	return false
}

// Len returns the number of usable patterns.
func (ps *PermissionSet) Len() int {
	return len(ps.patterns)
}

// RequireTier returns an access-denied error unless the user's staff tier
// meets required.
func RequireTier(user *account.User, required tier.Tier) error {
	if user != nil && tier.Meets(user.StaffTier, required) {
		return nil
	}
	e := oops.In("authority").Code("STAFF_TIER_REQUIRED").With("required_tier", required.String())
	if user != nil {
		e = e.With("user_id", user.ID.String()).With("staff_tier", user.StaffTier.String())
	}
	return e.Wrap(errutil.ErrAccessDenied)
}

// RequirePermission returns an access-denied error unless the user holds a
// permission matching required.
func RequirePermission(user *account.User, required string) error {
	if user != nil && NewPermissionSet(user.Permissions).Allows(required) {
		return nil
	}
	e := oops.In("authority").Code("PERMISSION_REQUIRED").With("permission", required)
	if user != nil {
		e = e.With("user_id", user.ID.String())
	}
	return e.Wrap(errutil.ErrAccessDenied)
}
