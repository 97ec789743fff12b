// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package authority

import (
	"context"
	"strings"

	"github.com/oklog/ulid/v2"

	"github.com/holomush/portal/internal/tier"
)

// PermissionDelimiter separates permissions in a legacy mapping's permission list.
const PermissionDelimiter = ","

// PermissionMapping is a legacy single-bundle-per-role mapping row.
type PermissionMapping struct {
	ExternalRoleID string
	PermissionList string
	StaffTier      tier.Tier
}

// RoleDefinition is a role definition record. ExternalRoleID is empty for
// purely internal definitions that operators assign manually.
type RoleDefinition struct {
	ID             ulid.ULID
	Name           string
	ExternalRoleID string
	Permissions    []string
	StaffTier      tier.Tier
}

// Repository loads the authority mapping tables.
type Repository interface {
	LegacyMappings(ctx context.Context) ([]PermissionMapping, error)
	RoleDefinitions(ctx context.Context) ([]RoleDefinition, error)
}

// Grant is what a source hands out for one external role.
type Grant struct {
	Permissions []string
	StaffTier   tier.Tier
}

// Source maps an external role to a grant. Implementations must be safe for
// concurrent reads.
type Source interface {
	// Name identifies the source in logs and metrics.
	Name() string
	// Lookup returns the grant linked to the external role, if any.
	Lookup(externalRoleID string) (Grant, bool)
}

// LegacyTable is the Source view of the legacy permission mapping table.
type LegacyTable struct {
	byRole map[string]Grant
}

// NewLegacyTable indexes mapping rows by external role ID. When two rows share
// a role ID the later row wins, matching a keyed table lookup.
func NewLegacyTable(rows []PermissionMapping) *LegacyTable {
	byRole := make(map[string]Grant, len(rows))
	for _, row := range rows {
		if row.ExternalRoleID == "" {
			continue
		}
		byRole[row.ExternalRoleID] = Grant{
			Permissions: SplitPermissions(row.PermissionList),
			StaffTier:   row.StaffTier,
		}
	}
	return &LegacyTable{byRole: byRole}
}

// Name implements Source.
func (*LegacyTable) Name() string { return "legacy_mapping" }

// Lookup implements Source.
func (t *LegacyTable) Lookup(externalRoleID string) (Grant, bool) {
	g, ok := t.byRole[externalRoleID]
	return g, ok
}

// DefinitionTable is the Source view of the role definition table. It also
// indexes definitions by ID for manual assignment.
type DefinitionTable struct {
	byRole map[string]Grant
	byID   map[ulid.ULID]RoleDefinition
}

// NewDefinitionTable indexes definitions by external link and by ID.
func NewDefinitionTable(defs []RoleDefinition) *DefinitionTable {
	t := &DefinitionTable{
		byRole: make(map[string]Grant, len(defs)),
		byID:   make(map[ulid.ULID]RoleDefinition, len(defs)),
	}
	for _, def := range defs {
		t.byID[def.ID] = def
		if def.ExternalRoleID == "" {
			continue
		}
		t.byRole[def.ExternalRoleID] = Grant{
			Permissions: cleanPermissions(def.Permissions),
			StaffTier:   def.StaffTier,
		}
	}
	return t
}

// Name implements Source.
func (*DefinitionTable) Name() string { return "role_definition" }

// Lookup implements Source.
func (t *DefinitionTable) Lookup(externalRoleID string) (Grant, bool) {
	g, ok := t.byRole[externalRoleID]
	return g, ok
}

// ManualPermissions returns the union of permissions granted by the given
// definition IDs. Unknown IDs are skipped.
func (t *DefinitionTable) ManualPermissions(ids []ulid.ULID) []string {
	var perms []string
	for _, id := range ids {
		def, ok := t.byID[id]
		if !ok {
			continue
		}
		perms = append(perms, cleanPermissions(def.Permissions)...)
	}
	return perms
}

// SplitPermissions splits a delimited permission list into trimmed, non-empty tokens.
func SplitPermissions(list string) []string {
	if list == "" {
		return nil
	}
	return cleanPermissions(strings.Split(list, PermissionDelimiter))
}

func cleanPermissions(perms []string) []string {
	out := make([]string, 0, len(perms))
	for _, p := range perms {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
