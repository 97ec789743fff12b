// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package authoritytest provides an in-memory authority.Repository.
package authoritytest

import (
	"context"
	"slices"
	"sync"

	"github.com/oklog/ulid/v2"

	"github.com/holomush/portal/internal/authority"
)

// Tables is an in-memory authority.Repository. Err, when set, is returned by
// every read.
type Tables struct {
	mu          sync.Mutex
	legacy      []authority.PermissionMapping
	definitions []authority.RoleDefinition

	Err error
}

// NewTables creates an empty Tables.
func NewTables() *Tables {
	return &Tables{}
}

// PutLegacyMapping adds or replaces the mapping for its external role.
func (t *Tables) PutLegacyMapping(m authority.PermissionMapping) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.legacy = slices.DeleteFunc(t.legacy, func(x authority.PermissionMapping) bool {
		return x.ExternalRoleID == m.ExternalRoleID
	})
	t.legacy = append(t.legacy, m)
}

// PutRoleDefinition adds or replaces a definition and returns its ID.
func (t *Tables) PutRoleDefinition(d authority.RoleDefinition) ulid.ULID {
	t.mu.Lock()
	defer t.mu.Unlock()
	if d.ID.IsZero() {
		d.ID = ulid.Make()
	}
	t.definitions = slices.DeleteFunc(t.definitions, func(x authority.RoleDefinition) bool {
		return x.ID == d.ID
	})
	t.definitions = append(t.definitions, d)
	return d.ID
}

// LegacyMappings implements authority.Repository.
func (t *Tables) LegacyMappings(context.Context) ([]authority.PermissionMapping, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.Err != nil {
		return nil, t.Err
	}
	return slices.Clone(t.legacy), nil
}

// RoleDefinitions implements authority.Repository.
func (t *Tables) RoleDefinitions(context.Context) ([]authority.RoleDefinition, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.Err != nil {
		return nil, t.Err
	}
	return slices.Clone(t.definitions), nil
}

var _ authority.Repository = (*Tables)(nil)
