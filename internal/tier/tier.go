// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package tier defines the fixed, totally-ordered staff authority levels.
//
// The declaration order of the constants IS the precedence order. Tier values
// are compile-time constants; there is no runtime reconfiguration.
package tier

//go:generate stringer -type=Tier -linecomment

import (
	"github.com/samber/oops"
)

// Tier is a staff authority level. The zero value is None (no staff tier).
type Tier uint8

// Staff tiers from most to least authority.
const (
	None          Tier = iota // none
	Director                  // director
	Executive                 // executive
	Manager                   // manager
	Administrator             // administrator
	Moderator                 // moderator
	Support                   // support
	Development               // development
)

// hierarchyEnd is the first tier excluded from authority comparisons.
const hierarchyEnd = Development

// All returns every tier in precedence order, most authority first.
func All() []Tier {
	return []Tier{Director, Executive, Manager, Administrator, Moderator, Support, Development}
}

// Index returns the precedence index of t: Director is 0, Support is 5 and
// Development is 6. None returns -1.
func (t Tier) Index() int {
	if t == None || t > Development {
		return -1
	}
	return int(t) - 1
}

// Valid reports whether t is one of the declared tiers (None excluded).
func (t Tier) Valid() bool {
	return t >= Director && t <= Development
}

// Hierarchical reports whether t takes part in authority comparisons.
// Development is a tag, not a rung on the ladder.
func (t Tier) Hierarchical() bool {
	return t >= Director && t < hierarchyEnd
}

// Outranks reports whether t has strictly more authority than other.
// Any hierarchical tier outranks None and Development.
func (t Tier) Outranks(other Tier) bool {
	if !t.Hierarchical() {
		return false
	}
	if !other.Hierarchical() {
		return true
	}
	return t.Index() < other.Index()
}

// Meets reports whether actual meets or exceeds required.
// It is false when actual is None or Development, or when required is not
// hierarchical.
func Meets(actual, required Tier) bool {
	if !actual.Hierarchical() || !required.Hierarchical() {
		return false
	}
	return actual.Index() <= required.Index()
}

// IsGlobalLeadership reports whether t grants leadership in every department.
func IsGlobalLeadership(t Tier) bool {
	return Meets(t, Manager)
}

// Parse converts a stored tier name into a Tier. The empty string parses to None.
func Parse(s string) (Tier, error) {
	if s == "" {
		return None, nil
	}
	for _, t := range All() {
		if t.String() == s {
			return t, nil
		}
	}
	return None, oops.In("tier").Code("INVALID_STAFF_TIER").With("tier", s).Errorf("unknown staff tier %q", s)
}

// MarshalText implements encoding.TextMarshaler. None marshals to "".
func (t Tier) MarshalText() ([]byte, error) {
	if t == None {
		return []byte{}, nil
	}
	if !t.Valid() {
		return nil, oops.In("tier").Code("INVALID_STAFF_TIER").With("tier", uint8(t)).Errorf("invalid staff tier")
	}
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *Tier) UnmarshalText(b []byte) error {
	parsed, err := Parse(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
