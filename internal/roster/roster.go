// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package roster builds department rosters from users' external roles.
//
// A department's ranks may each be linked to one external role. Every user
// holding a linked role appears on the roster once, under the most senior
// rank they match. Persisted Member overrides carry the per-department
// identifier, callsign and squad; identifiers and callsigns are allocated on
// first synthesis and written back so later passes reuse them.
package roster

import (
	"time"

	"github.com/oklog/ulid/v2"
)

// Rank is a position within a department.
type Rank struct {
	ID             ulid.ULID `json:"id"`
	DepartmentCode string    `json:"departmentCode"`
	Name           string    `json:"name"`
	Abbreviation   string    `json:"abbreviation"`
	// PriorityIndex orders ranks; lower is more senior.
	PriorityIndex int  `json:"priorityIndex"`
	IsLeadership  bool `json:"isLeadership"`
	// ExternalRoleID links the rank to one external role. Empty when unlinked.
	ExternalRoleID string `json:"externalRoleId,omitempty"`
	// CallsignPrefix prefixes allocated callsigns when the department's
	// callsign policy for this rank names none.
	CallsignPrefix string `json:"callsignPrefix,omitempty"`
}

// Linked reports whether the rank is linked to an external role.
func (r *Rank) Linked() bool {
	return r.ExternalRoleID != ""
}

// Member is a persisted per-department override for one user. At most one
// exists per (UserID, DepartmentCode). Empty strings mean unset.
type Member struct {
	ID             ulid.ULID
	UserID         ulid.ULID
	DepartmentCode string
	RankID         ulid.ULID
	Identifier     string
	Callsign       string
	SquadID        string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// MemberPatch is a partial update to a Member. Nil fields are left alone; a
// pointer to "" clears a string field.
type MemberPatch struct {
	RankID     *ulid.ULID
	Identifier *string
	Callsign   *string
	SquadID    *string
}

// Empty reports whether the patch changes nothing.
func (p MemberPatch) Empty() bool {
	return p.RankID == nil && p.Identifier == nil && p.Callsign == nil && p.SquadID == nil
}

// Apply copies the set fields of p onto m.
func (p MemberPatch) Apply(m *Member) {
	if p.RankID != nil {
		m.RankID = *p.RankID
	}
	if p.Identifier != nil {
		m.Identifier = *p.Identifier
	}
	if p.Callsign != nil {
		m.Callsign = *p.Callsign
	}
	if p.SquadID != nil {
		m.SquadID = *p.SquadID
	}
}
