// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package errutil holds the portal's error kinds and helpers for logging and
// asserting oops errors.
//
// Every error returned across package boundaries is an oops error that wraps
// one of the kind sentinels below (or a store/driver error). Callers branch on
// kind with errors.Is and never on message text.
package errutil

import "errors"

var (
	// ErrNotFound marks an unknown department, rank, user or roster member.
	ErrNotFound = errors.New("not found")

	// ErrAccessDenied marks a leadership- or tier-gated operation attempted
	// without sufficient authority.
	ErrAccessDenied = errors.New("access denied")

	// ErrNotConfigured marks a missing external linkage, such as the guild id
	// or bot credentials needed for live role refresh.
	ErrNotConfigured = errors.New("not configured")

	// ErrConflict marks a value that another record already holds.
	ErrConflict = errors.New("conflict")
)

// IsNotFound reports whether err is a not-found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAccessDenied reports whether err is an authorization denial.
func IsAccessDenied(err error) bool {
	return errors.Is(err, ErrAccessDenied)
}

// IsNotConfigured reports whether err is a configuration error.
func IsNotConfigured(err error) bool {
	return errors.Is(err, ErrNotConfigured)
}

// IsConflict reports whether err is a conflict error.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}
