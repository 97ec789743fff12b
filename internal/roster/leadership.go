// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package roster

import (
	"context"
	"log/slog"

	"github.com/samber/oops"

	"github.com/holomush/portal/internal/account"
	"github.com/holomush/portal/internal/tier"
	"github.com/holomush/portal/pkg/errutil"
)

// Leadership decides whether a user leads a department. Every call reads
// current ranks and members; nothing is cached.
type Leadership struct {
	ranks   RankRepository
	members MemberRepository
	logger  *slog.Logger
}

// NewLeadership creates a Leadership. A nil logger uses slog.Default.
func NewLeadership(ranks RankRepository, members MemberRepository, logger *slog.Logger) *Leadership {
	if logger == nil {
		logger = slog.Default()
	}
	return &Leadership{ranks: ranks, members: members, logger: logger}
}

// IsDepartmentLeadership reports whether u holds leadership authority in the
// department. The first matching signal wins:
//
//  1. u's staff tier is director, executive or manager;
//  2. u's member override for the department references a leadership rank;
//  3. u holds the external role linked to one of the department's
//     leadership ranks.
func (l *Leadership) IsDepartmentLeadership(ctx context.Context, u *account.User, code string) (bool, error) {
	if tier.IsGlobalLeadership(u.StaffTier) {
		leadershipChecksTotal.WithLabelValues("tier").Inc()
		return true, nil
	}

	ok, err := l.overrideGrants(ctx, u, code)
	if err != nil {
		return false, err
	}
	if ok {
		leadershipChecksTotal.WithLabelValues("override").Inc()
		return true, nil
	}

	ranks, err := l.ranks.ListByDepartment(ctx, code)
	if err != nil {
		return false, oops.Code("LEADERSHIP_CHECK_FAILED").
			With("operation", "list ranks").
			With("department", code).
			Wrap(err)
	}
	for _, r := range ranks {
		if r.IsLeadership && r.Linked() && u.HasExternalRole(r.ExternalRoleID) {
			leadershipChecksTotal.WithLabelValues("role").Inc()
			return true, nil
		}
	}

	leadershipChecksTotal.WithLabelValues("denied").Inc()
	return false, nil
}

func (l *Leadership) overrideGrants(ctx context.Context, u *account.User, code string) (bool, error) {
	m, err := l.members.GetByUser(ctx, u.ID, code)
	if errutil.IsNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, oops.Code("LEADERSHIP_CHECK_FAILED").
			With("operation", "get member").
			With("department", code).
			With("user_id", u.ID.String()).
			Wrap(err)
	}

	r, err := l.ranks.Get(ctx, m.RankID)
	if errutil.IsNotFound(err) {
		l.logger.WarnContext(ctx, "member override references missing rank",
			"department", code,
			"member_id", m.ID.String(),
			"rank_id", m.RankID.String())
		return false, nil
	}
	if err != nil {
		return false, oops.Code("LEADERSHIP_CHECK_FAILED").
			With("operation", "get rank").
			With("rank_id", m.RankID.String()).
			Wrap(err)
	}
	return r.IsLeadership, nil
}
