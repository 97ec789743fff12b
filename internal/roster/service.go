// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package roster

import (
	"context"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/holomush/portal/internal/account"
	"github.com/holomush/portal/internal/authority"
	"github.com/holomush/portal/internal/department"
	"github.com/holomush/portal/pkg/errutil"
)

// ServiceConfig holds dependencies for Service.
type ServiceConfig struct {
	Departments *department.Registry
	Users       account.Repository
	Ranks       RankRepository
	Members     MemberRepository
	Leadership  *Leadership
}

// WritePermission is the permission that lets a user edit a department's
// member overrides without holding its leadership.
func WritePermission(code string) string {
	return "roster:" + code + ":write"
}

// Service edits member overrides. Every operation requires the actor to hold
// leadership of the department or its WritePermission, and no actor may edit
// the override of a user whose staff tier outranks their own.
type Service struct {
	departments *department.Registry
	users       account.Repository
	ranks       RankRepository
	members     MemberRepository
	leadership  *Leadership
}

// NewService creates a Service.
func NewService(cfg ServiceConfig) *Service {
	return &Service{
		departments: cfg.Departments,
		users:       cfg.Users,
		ranks:       cfg.Ranks,
		members:     cfg.Members,
		leadership:  cfg.Leadership,
	}
}

// Assignment describes a member override to create or update. Nil string
// fields are left unchanged on update; a pointer to "" clears.
type Assignment struct {
	UserID     ulid.ULID
	RankID     ulid.ULID
	Identifier *string
	Callsign   *string
	SquadID    *string
}

// AssignMember creates or updates the user's member override. An identifier
// or callsign already held by another member of the department is rejected
// with an error wrapping errutil.ErrConflict.
func (s *Service) AssignMember(ctx context.Context, actor *account.User, code string, a Assignment) (*Member, error) {
	if err := s.authorize(ctx, actor, code); err != nil {
		return nil, err
	}

	rank, err := s.ranks.Get(ctx, a.RankID)
	if err != nil {
		return nil, oops.With("department", code).Wrap(err)
	}
	if rank.DepartmentCode != code {
		return nil, oops.Code("RANK_NOT_FOUND").
			With("department", code).
			With("rank_id", a.RankID.String()).
			Wrap(errutil.ErrNotFound)
	}
	target, err := s.users.Get(ctx, a.UserID)
	if err != nil {
		return nil, oops.With("department", code).Wrap(err)
	}
	if err := requireNotOutranked(actor, target); err != nil {
		return nil, oops.With("department", code).Wrap(err)
	}

	members, err := s.members.ListByDepartment(ctx, code)
	if err != nil {
		return nil, oops.Code("MEMBER_ASSIGN_FAILED").With("department", code).Wrap(err)
	}
	var existing *Member
	for _, m := range members {
		if m.UserID == a.UserID {
			existing = m
			continue
		}
		if err := checkUnique(m, a); err != nil {
			return nil, oops.With("department", code).Wrap(err)
		}
	}

	patch := MemberPatch{
		RankID:     &a.RankID,
		Identifier: a.Identifier,
		Callsign:   a.Callsign,
		SquadID:    a.SquadID,
	}

	if existing == nil {
		m := &Member{UserID: a.UserID, DepartmentCode: code}
		patch.Apply(m)
		created, err := s.members.Create(ctx, m)
		if err != nil {
			return nil, oops.Code("MEMBER_ASSIGN_FAILED").
				With("operation", "create member").
				With("department", code).
				With("user_id", a.UserID.String()).
				Wrap(err)
		}
		return created, nil
	}

	if err := s.members.Update(ctx, existing.ID, patch); err != nil {
		return nil, oops.Code("MEMBER_ASSIGN_FAILED").
			With("operation", "update member").
			With("member_id", existing.ID.String()).
			Wrap(err)
	}
	patch.Apply(existing)
	return existing, nil
}

// ClearAllocations clears the user's identifier and callsign so the next
// synthesis allocates fresh values.
func (s *Service) ClearAllocations(ctx context.Context, actor *account.User, code string, userID ulid.ULID) error {
	if err := s.authorizeTarget(ctx, actor, code, userID); err != nil {
		return err
	}
	m, err := s.members.GetByUser(ctx, userID, code)
	if err != nil {
		return oops.With("department", code).With("user_id", userID.String()).Wrap(err)
	}
	empty := ""
	if err := s.members.Update(ctx, m.ID, MemberPatch{Identifier: &empty, Callsign: &empty}); err != nil {
		return oops.Code("MEMBER_CLEAR_FAILED").With("member_id", m.ID.String()).Wrap(err)
	}
	return nil
}

// RemoveMember deletes the user's member override.
func (s *Service) RemoveMember(ctx context.Context, actor *account.User, code string, userID ulid.ULID) error {
	if err := s.authorizeTarget(ctx, actor, code, userID); err != nil {
		return err
	}
	m, err := s.members.GetByUser(ctx, userID, code)
	if err != nil {
		return oops.With("department", code).With("user_id", userID.String()).Wrap(err)
	}
	if err := s.members.Delete(ctx, m.ID); err != nil {
		return oops.Code("MEMBER_REMOVE_FAILED").With("member_id", m.ID.String()).Wrap(err)
	}
	return nil
}

func (s *Service) authorize(ctx context.Context, actor *account.User, code string) error {
	if _, err := s.departments.Get(code); err != nil {
		return err
	}
	if authority.RequirePermission(actor, WritePermission(code)) == nil {
		return nil
	}
	ok, err := s.leadership.IsDepartmentLeadership(ctx, actor, code)
	if err != nil {
		return err
	}
	if !ok {
		return oops.Code("DEPARTMENT_LEADERSHIP_REQUIRED").
			With("department", code).
			With("user_id", actor.ID.String()).
			Wrap(errutil.ErrAccessDenied)
	}
	return nil
}

// authorizeTarget runs authorize and then checks the actor against the target
// user's staff tier.
func (s *Service) authorizeTarget(ctx context.Context, actor *account.User, code string, userID ulid.ULID) error {
	if err := s.authorize(ctx, actor, code); err != nil {
		return err
	}
	target, err := s.users.Get(ctx, userID)
	if err != nil {
		return oops.With("department", code).Wrap(err)
	}
	if err := requireNotOutranked(actor, target); err != nil {
		return oops.With("department", code).Wrap(err)
	}
	return nil
}

// requireNotOutranked denies an actor whose staff tier the target outranks.
func requireNotOutranked(actor, target *account.User) error {
	if !target.StaffTier.Outranks(actor.StaffTier) {
		return nil
	}
	return authority.RequireTier(actor, target.StaffTier)
}

// checkUnique reports a conflict when other already holds the identifier or
// callsign the assignment sets. Clearing a value never conflicts.
func checkUnique(other *Member, a Assignment) error {
	if a.Identifier != nil && *a.Identifier != "" && *a.Identifier == other.Identifier {
		return oops.Code("IDENTIFIER_IN_USE").
			With("identifier", *a.Identifier).
			With("holder_user_id", other.UserID.String()).
			Wrap(errutil.ErrConflict)
	}
	if a.Callsign != nil && *a.Callsign != "" && *a.Callsign == other.Callsign {
		return oops.Code("CALLSIGN_IN_USE").
			With("callsign", *a.Callsign).
			With("holder_user_id", other.UserID.String()).
			Wrap(errutil.ErrConflict)
	}
	return nil
}
