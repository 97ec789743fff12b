// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package roster

import (
	"fmt"
	"strconv"

	"github.com/holomush/portal/internal/department"
)

const (
	identifierMaxNumber = 99
	identifierLetters   = 26
)

// Taken is the set of values already in use within one department. It is
// built once per synthesis pass and grows as values are allocated.
type Taken map[string]struct{}

// NewTaken returns a set holding values. Empty strings are ignored.
func NewTaken(values ...string) Taken {
	t := make(Taken, len(values))
	for _, v := range values {
		t.Add(v)
	}
	return t
}

// Has reports whether v is taken.
func (t Taken) Has(v string) bool {
	_, ok := t[v]
	return ok
}

// Add marks v as taken.
func (t Taken) Add(v string) {
	if v != "" {
		t[v] = struct{}{}
	}
}

// NextFreeIdentifier returns the first identifier prefix+NN+L absent from
// taken, scanning NN from 01 to 99 and L from A to Z within each number.
//
// When every combination is taken it returns the sentinel prefix+"99Z",
// which is itself taken. Callers detect exhaustion with taken.Has.
func NextFreeIdentifier(prefix string, taken Taken) string {
	for n := 1; n <= identifierMaxNumber; n++ {
		for l := range identifierLetters {
			id := fmt.Sprintf("%s%02d%c", prefix, n, 'A'+l)
			if !taken.Has(id) {
				return id
			}
		}
	}
	return fmt.Sprintf("%s%02dZ", prefix, identifierMaxNumber)
}

// NextFreeCallsign returns the first callsign Prefix+n, n in [Start, End],
// absent from taken. ok is false when the range is exhausted.
func NextFreeCallsign(p department.CallsignPolicy, taken Taken) (callsign string, ok bool) {
	for n := p.Start; n <= p.End; n++ {
		cs := p.Prefix + strconv.Itoa(n)
		if !taken.Has(cs) {
			return cs, true
		}
	}
	return "", false
}
