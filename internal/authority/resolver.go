// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package authority turns a user's external role snapshot into internal
// permissions and a staff tier.
package authority

import (
	"slices"

	"github.com/holomush/portal/internal/tier"
)

// Resolution is the derived authority of a user.
type Resolution struct {
	// Permissions is sorted and free of duplicates.
	Permissions []string
	StaffTier   tier.Tier
	IsStaff     bool
}

// Merge returns r with extra permissions unioned in. The tier is unchanged.
func (r Resolution) Merge(extra ...string) Resolution {
	if len(extra) == 0 {
		return r
	}
	set := newPermissionAccumulator()
	set.add(r.Permissions...)
	set.add(extra...)
	r.Permissions = set.sorted()
	return r
}

// Equal reports whether two resolutions carry the same authority.
func (r Resolution) Equal(other Resolution) bool {
	return r.StaffTier == other.StaffTier &&
		r.IsStaff == other.IsStaff &&
		slices.Equal(r.Permissions, other.Permissions)
}

// Resolver computes Resolutions from an ordered list of sources.
//
// Resolver holds no mutable state; Resolve is a pure function of its input and
// the sources it was built with, and is safe for concurrent use.
type Resolver struct {
	sources []Source
}

// NewResolver creates a resolver over sources. Nil sources are ignored.
func NewResolver(sources ...Source) *Resolver {
	kept := make([]Source, 0, len(sources))
	for _, s := range sources {
		if s != nil {
			kept = append(kept, s)
		}
	}
	return &Resolver{sources: kept}
}

// NewTableResolver creates the standard resolver: legacy mappings first, then
// role definitions.
func NewTableResolver(legacy []PermissionMapping, defs []RoleDefinition) *Resolver {
	return NewResolver(NewLegacyTable(legacy), NewDefinitionTable(defs))
}

// Resolve returns the union of permissions granted for externalRoles by every
// source, and the highest-authority tier any of them carries. A role set with
// no matches resolves to an empty permission list and tier.None.
func (r *Resolver) Resolve(externalRoles []string) Resolution {
	perms := newPermissionAccumulator()
	res := Resolution{}

	for _, role := range externalRoles {
		for _, src := range r.sources {
			grant, ok := src.Lookup(role)
			if !ok {
				continue
			}
			perms.add(grant.Permissions...)
			if grant.StaffTier.Valid() {
				res.IsStaff = true
				if res.StaffTier == tier.None || grant.StaffTier.Index() < res.StaffTier.Index() {
					res.StaffTier = grant.StaffTier
				}
			}
		}
	}

	res.Permissions = perms.sorted()
	return res
}

type permissionAccumulator map[string]struct{}

func newPermissionAccumulator() permissionAccumulator {
	return make(permissionAccumulator)
}

func (a permissionAccumulator) add(perms ...string) {
	for _, p := range perms {
		if p != "" {
			a[p] = struct{}{}
		}
	}
}

func (a permissionAccumulator) sorted() []string {
	out := make([]string, 0, len(a))
	for p := range a {
		out = append(out, p)
	}
	slices.Sort(out)
	return out
}
