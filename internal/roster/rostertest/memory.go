// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package rostertest provides in-memory roster repositories for tests.
package rostertest

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/holomush/portal/internal/roster"
	"github.com/holomush/portal/pkg/errutil"
)

// RankRepository is a roster.RankRepository backed by a slice.
type RankRepository struct {
	mu    sync.Mutex
	ranks []*roster.Rank

	// Err is returned by every method when set.
	Err error
}

// NewRankRepository creates a repository holding ranks. Zero IDs are filled in.
func NewRankRepository(ranks ...*roster.Rank) *RankRepository {
	r := &RankRepository{}
	for _, rk := range ranks {
		r.Put(rk)
	}
	return r
}

// Put stores rk, replacing any rank with the same ID, and returns its ID.
func (r *RankRepository) Put(rk *roster.Rank) ulid.ULID {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rk.ID.IsZero() {
		rk.ID = ulid.Make()
	}
	c := *rk
	for i, existing := range r.ranks {
		if existing.ID == c.ID {
			r.ranks[i] = &c
			return c.ID
		}
	}
	r.ranks = append(r.ranks, &c)
	return c.ID
}

// Remove deletes the rank with the given ID.
func (r *RankRepository) Remove(id ulid.ULID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ranks = slices.DeleteFunc(r.ranks, func(rk *roster.Rank) bool { return rk.ID == id })
}

// ListByDepartment implements roster.RankRepository.
func (r *RankRepository) ListByDepartment(_ context.Context, code string) ([]*roster.Rank, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, r.Err
	}
	var out []*roster.Rank
	for _, rk := range r.ranks {
		if rk.DepartmentCode == code {
			c := *rk
			out = append(out, &c)
		}
	}
	return out, nil
}

// Get implements roster.RankRepository.
func (r *RankRepository) Get(_ context.Context, id ulid.ULID) (*roster.Rank, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, r.Err
	}
	for _, rk := range r.ranks {
		if rk.ID == id {
			c := *rk
			return &c, nil
		}
	}
	return nil, oops.Code("RANK_NOT_FOUND").With("id", id.String()).Wrap(errutil.ErrNotFound)
}

// MemberRepository is a roster.MemberRepository backed by a map. It enforces
// one member per (user, department) the way the database does.
type MemberRepository struct {
	mu      sync.Mutex
	members map[ulid.ULID]*roster.Member
	order   []ulid.ULID
	creates int
	updates int

	// ListErr, CreateErr and UpdateErr are returned by the matching method when set.
	ListErr   error
	CreateErr error
	UpdateErr error
}

// NewMemberRepository creates a repository holding members.
func NewMemberRepository(members ...*roster.Member) *MemberRepository {
	r := &MemberRepository{members: make(map[ulid.ULID]*roster.Member)}
	for _, m := range members {
		r.put(m)
	}
	return r
}

func (r *MemberRepository) put(m *roster.Member) *roster.Member {
	if m.ID.IsZero() {
		m.ID = ulid.Make()
	}
	c := *m
	if _, ok := r.members[c.ID]; !ok {
		r.order = append(r.order, c.ID)
	}
	r.members[c.ID] = &c
	return &c
}

// ListByDepartment implements roster.MemberRepository.
func (r *MemberRepository) ListByDepartment(_ context.Context, code string) ([]*roster.Member, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ListErr != nil {
		return nil, r.ListErr
	}
	var out []*roster.Member
	for _, id := range r.order {
		if m := r.members[id]; m.DepartmentCode == code {
			c := *m
			out = append(out, &c)
		}
	}
	return out, nil
}

// GetByUser implements roster.MemberRepository.
func (r *MemberRepository) GetByUser(_ context.Context, userID ulid.ULID, code string) (*roster.Member, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m := r.byUser(userID, code); m != nil {
		c := *m
		return &c, nil
	}
	return nil, oops.Code("MEMBER_NOT_FOUND").
		With("user_id", userID.String()).
		With("department", code).
		Wrap(errutil.ErrNotFound)
}

func (r *MemberRepository) byUser(userID ulid.ULID, code string) *roster.Member {
	for _, id := range r.order {
		if m := r.members[id]; m.UserID == userID && m.DepartmentCode == code {
			return m
		}
	}
	return nil
}

// Create implements roster.MemberRepository.
func (r *MemberRepository) Create(_ context.Context, m *roster.Member) (*roster.Member, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.CreateErr != nil {
		return nil, r.CreateErr
	}
	if existing := r.byUser(m.UserID, m.DepartmentCode); existing != nil {
		c := *existing
		return &c, nil
	}
	now := time.Now()
	c := *m
	c.CreatedAt, c.UpdatedAt = now, now
	r.creates++
	stored := r.put(&c)
	out := *stored
	return &out, nil
}

// Update implements roster.MemberRepository.
func (r *MemberRepository) Update(_ context.Context, id ulid.ULID, patch roster.MemberPatch) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.UpdateErr != nil {
		return r.UpdateErr
	}
	m, ok := r.members[id]
	if !ok {
		return oops.Code("MEMBER_NOT_FOUND").With("id", id.String()).Wrap(errutil.ErrNotFound)
	}
	patch.Apply(m)
	m.UpdatedAt = time.Now()
	r.updates++
	return nil
}

// Delete implements roster.MemberRepository.
func (r *MemberRepository) Delete(_ context.Context, id ulid.ULID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.members[id]; !ok {
		return oops.Code("MEMBER_NOT_FOUND").With("id", id.String()).Wrap(errutil.ErrNotFound)
	}
	delete(r.members, id)
	r.order = slices.DeleteFunc(r.order, func(x ulid.ULID) bool { return x == id })
	return nil
}

// Writes returns the number of successful Create and Update calls.
func (r *MemberRepository) Writes() (creates, updates int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.creates, r.updates
}

// All returns copies of every stored member.
func (r *MemberRepository) All() []*roster.Member {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*roster.Member, 0, len(r.order))
	for _, id := range r.order {
		c := *r.members[id]
		out = append(out, &c)
	}
	return out
}

var (
	_ roster.RankRepository   = (*RankRepository)(nil)
	_ roster.MemberRepository = (*MemberRepository)(nil)
)
