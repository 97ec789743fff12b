// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package accounttest provides test helpers for user accounts.
package accounttest

import (
	"context"
	"slices"
	"sync"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/holomush/portal/internal/account"
	"github.com/holomush/portal/pkg/errutil"
)

// MemoryRepository is an account.Repository backed by a map.
// Returned users are copies; mutating them does not change stored state.
type MemoryRepository struct {
	mu      sync.Mutex
	users   map[ulid.ULID]*account.User
	order   []ulid.ULID
	updates []Update

	// ListErr, GetErr and UpdateErr are returned by the matching method when set.
	ListErr   error
	GetErr    error
	UpdateErr error
}

// Update records one call to MemoryRepository.Update.
type Update struct {
	ID    ulid.ULID
	Patch account.Patch
}

// NewMemoryRepository creates a repository holding users, listed in the given order.
func NewMemoryRepository(users ...*account.User) *MemoryRepository {
	r := &MemoryRepository{users: make(map[ulid.ULID]*account.User, len(users))}
	for _, u := range users {
		r.Put(u)
	}
	return r
}

// Put stores a copy of u, replacing any user with the same ID.
func (r *MemoryRepository) Put(u *account.User) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[u.ID]; !ok {
		r.order = append(r.order, u.ID)
	}
	r.users[u.ID] = clone(u)
}

// List implements account.Repository.
func (r *MemoryRepository) List(_ context.Context) ([]*account.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ListErr != nil {
		return nil, r.ListErr
	}
	out := make([]*account.User, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, clone(r.users[id]))
	}
	return out, nil
}

// Get implements account.Repository.
func (r *MemoryRepository) Get(_ context.Context, id ulid.ULID) (*account.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.GetErr != nil {
		return nil, r.GetErr
	}
	u, ok := r.users[id]
	if !ok {
		return nil, oops.Code("USER_NOT_FOUND").With("id", id.String()).Wrap(errutil.ErrNotFound)
	}
	return clone(u), nil
}

// Update implements account.Repository.
func (r *MemoryRepository) Update(_ context.Context, id ulid.ULID, patch account.Patch) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.UpdateErr != nil {
		return r.UpdateErr
	}
	u, ok := r.users[id]
	if !ok {
		return oops.Code("USER_NOT_FOUND").With("id", id.String()).Wrap(errutil.ErrNotFound)
	}
	patch.Apply(u)
	r.updates = append(r.updates, Update{ID: id, Patch: patch})
	return nil
}

// Updates returns the recorded Update calls.
func (r *MemoryRepository) Updates() []Update {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.updates)
}

func clone(u *account.User) *account.User {
	c := *u
	c.ExternalRoles = slices.Clone(u.ExternalRoles)
	c.Permissions = slices.Clone(u.Permissions)
	c.ManualRoleIDs = slices.Clone(u.ManualRoleIDs)
	return &c
}

var _ account.Repository = (*MemoryRepository)(nil)
