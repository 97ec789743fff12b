// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package roster

import (
	"cmp"
	"context"
	"log/slog"
	"slices"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/holomush/portal/internal/account"
	"github.com/holomush/portal/internal/department"
)

var tracer = otel.Tracer("github.com/holomush/portal/internal/roster")

// Roster is a synthesized department roster.
type Roster struct {
	DepartmentCode string `json:"departmentCode"`
	// Rows are ordered by rank priority, then account age.
	Rows []Row `json:"rows"`
	// Ranks holds every rank of the department, including empty and unlinked
	// ranks, ordered by priority.
	Ranks []*Rank `json:"ranks"`
	// QualificationRoleID is the external role behind Row.Qualified.
	QualificationRoleID string `json:"qualificationRoleId,omitempty"`
}

// SynthesizerConfig holds dependencies for Synthesizer.
type SynthesizerConfig struct {
	Departments *department.Registry
	Users       account.Repository
	Ranks       RankRepository
	Members     MemberRepository
	// Locker guards allocation. Nil uses a new LocalLocker.
	Locker Locker
	Logger *slog.Logger
}

// Synthesizer builds rosters.
type Synthesizer struct {
	departments *department.Registry
	users       account.Repository
	ranks       RankRepository
	members     MemberRepository
	locker      Locker
	logger      *slog.Logger
}

// NewSynthesizer creates a Synthesizer.
func NewSynthesizer(cfg SynthesizerConfig) *Synthesizer {
	locker := cfg.Locker
	if locker == nil {
		locker = NewLocalLocker()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Synthesizer{
		departments: cfg.Departments,
		users:       cfg.Users,
		ranks:       cfg.Ranks,
		members:     cfg.Members,
		locker:      locker,
		logger:      logger,
	}
}

// Synthesize builds the roster for the department with the given code.
//
// Users holding the external role of a linked rank each get one row under the
// most senior rank they match. Missing identifiers and callsigns are allocated
// per department policy and persisted before the roster is returned. An
// unknown code is a not-found error; a department without linked ranks has
// no rows.
func (s *Synthesizer) Synthesize(ctx context.Context, code string) (*Roster, error) {
	start := time.Now()
	ctx, span := tracer.Start(ctx, "roster.Synthesize", trace.WithAttributes(
		attribute.String("department", code),
	))
	defer span.End()

	dept, err := s.departments.Get(code)
	if err != nil {
		return nil, err
	}

	ranks, err := s.ranks.ListByDepartment(ctx, code)
	if err != nil {
		return nil, oops.Code("ROSTER_SYNTHESIS_FAILED").
			With("operation", "list ranks").
			With("department", code).
			Wrap(err)
	}
	slices.SortStableFunc(ranks, func(a, b *Rank) int {
		return cmp.Compare(a.PriorityIndex, b.PriorityIndex)
	})

	roster := &Roster{
		DepartmentCode:      code,
		Rows:                []Row{},
		Ranks:               ranks,
		QualificationRoleID: dept.QualificationRoleID,
	}

	linked := make([]*Rank, 0, len(ranks))
	for _, r := range ranks {
		if r.Linked() {
			linked = append(linked, r)
		}
	}
	if len(linked) == 0 {
		recordSynthesis(span, code, start, roster)
		return roster, nil
	}

	users, err := s.users.List(ctx)
	if err != nil {
		return nil, oops.Code("ROSTER_SYNTHESIS_FAILED").
			With("operation", "list users").
			With("department", code).
			Wrap(err)
	}

	for _, u := range users {
		r := mostSeniorMatch(linked, u)
		if r == nil {
			continue
		}
		roster.Rows = append(roster.Rows, Row{
			User:      u,
			Rank:      r,
			Qualified: dept.QualificationRoleID != "" && u.HasExternalRole(dept.QualificationRoleID),
		})
	}
	sortRows(roster.Rows)

	if err := s.attachMembers(ctx, dept, roster.Rows); err != nil {
		return nil, err
	}

	recordSynthesis(span, code, start, roster)
	return roster, nil
}

func recordSynthesis(span trace.Span, code string, start time.Time, r *Roster) {
	span.SetAttributes(attribute.Int("rows", len(r.Rows)))
	synthesisDuration.WithLabelValues(code).Observe(time.Since(start).Seconds())
	rosterRows.WithLabelValues(code).Set(float64(len(r.Rows)))
}

// mostSeniorMatch returns the first rank in linked whose role u holds.
// linked must be ordered most senior first.
func mostSeniorMatch(linked []*Rank, u *account.User) *Rank {
	for _, r := range linked {
		if u.HasExternalRole(r.ExternalRoleID) {
			return r
		}
	}
	return nil
}

func sortRows(rows []Row) {
	slices.SortStableFunc(rows, func(a, b Row) int {
		if c := cmp.Compare(a.Rank.PriorityIndex, b.Rank.PriorityIndex); c != 0 {
			return c
		}
		if c := a.User.CreatedAt.Compare(b.User.CreatedAt); c != 0 {
			return c
		}
		return a.User.ID.Compare(b.User.ID)
	})
}

// attachMembers merges member overrides into rows, allocating and persisting
// missing identifiers and callsigns. Rows are visited in roster order, so
// earlier rows get lower values.
func (s *Synthesizer) attachMembers(ctx context.Context, dept *department.Department, rows []Row) error {
	allocating := dept.HasIdentifiers() || len(dept.Callsigns) > 0
	if allocating {
		unlock, err := s.locker.Lock(ctx, dept.Code)
		if err != nil {
			return oops.Code("ROSTER_LOCK_FAILED").With("department", dept.Code).Wrap(err)
		}
		defer unlock()
	}

	members, err := s.members.ListByDepartment(ctx, dept.Code)
	if err != nil {
		return oops.Code("ROSTER_SYNTHESIS_FAILED").
			With("operation", "list members").
			With("department", dept.Code).
			Wrap(err)
	}

	byUser := make(map[ulid.ULID]*Member, len(members))
	identifiers := make(Taken, len(members))
	callsigns := make(Taken, len(members))
	for _, m := range members {
		byUser[m.UserID] = m
		identifiers.Add(m.Identifier)
		callsigns.Add(m.Callsign)
	}

	for i := range rows {
		row := &rows[i]
		row.Member = byUser[row.User.ID]
		if !allocating {
			continue
		}
		if err := s.allocate(ctx, dept, row, identifiers, callsigns); err != nil {
			return err
		}
	}
	return nil
}

// allocate fills row's missing identifier and callsign and persists them.
func (s *Synthesizer) allocate(ctx context.Context, dept *department.Department, row *Row, identifiers, callsigns Taken) error {
	var patch MemberPatch

	if dept.HasIdentifiers() && row.Identifier() == "" {
		id := NextFreeIdentifier(dept.Identifier.Prefix, identifiers)
		if identifiers.Has(id) {
			exhaustionsTotal.WithLabelValues(dept.Code, kindIdentifier).Inc()
			s.logger.WarnContext(ctx, "identifier space exhausted, assigning sentinel",
				"department", dept.Code,
				"user_id", row.User.ID.String(),
				"identifier", id)
		}
		identifiers.Add(id)
		patch.Identifier = &id
	}

	if policy, ok := dept.CallsignPolicyFor(row.Rank.Name); ok && row.Callsign() == "" {
		if policy.Prefix == "" {
			policy.Prefix = row.Rank.CallsignPrefix
		}
		cs, ok := NextFreeCallsign(policy, callsigns)
		if ok {
			callsigns.Add(cs)
			patch.Callsign = &cs
		} else {
			exhaustionsTotal.WithLabelValues(dept.Code, kindCallsign).Inc()
			s.logger.WarnContext(ctx, "callsign range exhausted",
				"department", dept.Code,
				"rank", row.Rank.Name,
				"user_id", row.User.ID.String())
		}
	}

	if patch.Empty() {
		return nil
	}

	if row.Member == nil {
		m := &Member{
			UserID:         row.User.ID,
			DepartmentCode: dept.Code,
			RankID:         row.Rank.ID,
		}
		patch.Apply(m)
		created, err := s.members.Create(ctx, m)
		if err != nil {
			return oops.Code("ROSTER_ALLOCATION_FAILED").
				With("operation", "create member").
				With("department", dept.Code).
				With("user_id", row.User.ID.String()).
				Wrap(err)
		}
		row.Member = created
		countAllocations(dept.Code, patch)
		return nil
	}

	if err := s.members.Update(ctx, row.Member.ID, patch); err != nil {
		return oops.Code("ROSTER_ALLOCATION_FAILED").
			With("operation", "update member").
			With("department", dept.Code).
			With("member_id", row.Member.ID.String()).
			Wrap(err)
	}
	updated := *row.Member
	patch.Apply(&updated)
	row.Member = &updated
	countAllocations(dept.Code, patch)
	return nil
}

func countAllocations(code string, p MemberPatch) {
	if p.Identifier != nil {
		allocationsTotal.WithLabelValues(code, kindIdentifier).Inc()
	}
	if p.Callsign != nil {
		allocationsTotal.WithLabelValues(code, kindCallsign).Inc()
	}
}
