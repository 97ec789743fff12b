// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package roster

import (
	"encoding/json"

	"github.com/holomush/portal/internal/account"
)

// Row is one synthesized roster entry.
type Row struct {
	// Member is the persisted override, or nil when the user has none.
	Member    *Member
	User      *account.User
	Rank      *Rank
	Qualified bool
}

// Identifier returns the row's identifier, or "" if unset.
func (r Row) Identifier() string {
	if r.Member == nil {
		return ""
	}
	return r.Member.Identifier
}

// Callsign returns the row's callsign, or "" if unset.
func (r Row) Callsign() string {
	if r.Member == nil {
		return ""
	}
	return r.Member.Callsign
}

// SquadID returns the row's squad, or "" if unset.
func (r Row) SquadID() string {
	if r.Member == nil {
		return ""
	}
	return r.Member.SquadID
}

type rowJSON struct {
	ID             *string     `json:"id"`
	UserID         string      `json:"userId"`
	DepartmentCode string      `json:"departmentCode"`
	RankID         string      `json:"rankId"`
	Identifier     *string     `json:"identifier"`
	Callsign       *string     `json:"callsign"`
	SquadID        *string     `json:"squadId"`
	IsActive       bool        `json:"isActive"`
	Qualified      bool        `json:"qualified"`
	User           rowUserJSON `json:"user"`
	Rank           rowRankJSON `json:"rank"`
}

type rowUserJSON struct {
	ID            string   `json:"id"`
	DisplayName   string   `json:"displayName"`
	AvatarRef     string   `json:"avatarRef"`
	ExternalID    string   `json:"externalId"`
	ExternalRoles []string `json:"externalRoles"`
}

type rowRankJSON struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Abbreviation  string `json:"abbreviation"`
	PriorityIndex int    `json:"priorityIndex"`
	IsLeadership  bool   `json:"isLeadership"`
}

// MarshalJSON renders the row in its wire shape. Unset identifier, callsign
// and squad are null; id is null for rows without a persisted member.
func (r Row) MarshalJSON() ([]byte, error) {
	out := rowJSON{
		UserID:         r.User.ID.String(),
		DepartmentCode: r.Rank.DepartmentCode,
		RankID:         r.Rank.ID.String(),
		Identifier:     nullable(r.Identifier()),
		Callsign:       nullable(r.Callsign()),
		SquadID:        nullable(r.SquadID()),
		IsActive:       true,
		Qualified:      r.Qualified,
		User: rowUserJSON{
			ID:            r.User.ID.String(),
			DisplayName:   r.User.DisplayName,
			AvatarRef:     r.User.AvatarRef,
			ExternalID:    r.User.ExternalID,
			ExternalRoles: r.User.ExternalRoles,
		},
		Rank: rowRankJSON{
			ID:            r.Rank.ID.String(),
			Name:          r.Rank.Name,
			Abbreviation:  r.Rank.Abbreviation,
			PriorityIndex: r.Rank.PriorityIndex,
			IsLeadership:  r.Rank.IsLeadership,
		},
	}
	if r.Member != nil {
		out.ID = nullable(r.Member.ID.String())
	}
	if out.User.ExternalRoles == nil {
		out.User.ExternalRoles = []string{}
	}
	return json.Marshal(out)
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
