// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package authority

import (
	"context"
	"log/slog"
	"slices"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/holomush/portal/internal/account"
	"github.com/holomush/portal/pkg/errutil"
)

var tracer = otel.Tracer("github.com/holomush/portal/internal/authority")

// RoleFetcher reads a user's current external roles from the chat platform.
//
// Implementations return an error wrapping errutil.ErrNotConfigured when the
// platform linkage is missing, and an empty, non-nil slice when the user is
// not a member.
type RoleFetcher interface {
	MemberRoles(ctx context.Context, externalID string) ([]string, error)
}

// SyncerConfig holds dependencies for Syncer.
type SyncerConfig struct {
	Users  account.Repository
	Tables Repository
	// Fetcher is optional. Without it the stored role snapshot is resolved.
	// Leave it nil when live refresh is not configured; a fetcher that reports
	// errutil.ErrNotConfigured is logged at warn for every user.
	Fetcher RoleFetcher
	Logger  *slog.Logger
}

// Syncer recomputes and persists users' derived authority. It runs the same
// resolution at login and at bulk resync.
type Syncer struct {
	users   account.Repository
	tables  Repository
	fetcher RoleFetcher
	logger  *slog.Logger
}

// NewSyncer creates a Syncer.
func NewSyncer(cfg SyncerConfig) *Syncer {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Syncer{
		users:   cfg.Users,
		tables:  cfg.Tables,
		fetcher: cfg.Fetcher,
		logger:  logger,
	}
}

// ResyncSummary reports the outcome of a bulk resync.
type ResyncSummary struct {
	Users   int
	Changed int
	Failed  int
}

// Login refreshes and resolves one user's authority and returns it.
func (s *Syncer) Login(ctx context.Context, userID ulid.ULID) (Resolution, error) {
	ctx, span := tracer.Start(ctx, "authority.Login", trace.WithAttributes(
		attribute.String("user_id", userID.String()),
	))
	defer span.End()

	user, err := s.users.Get(ctx, userID)
	if err != nil {
		return Resolution{}, oops.Code("AUTHORITY_LOGIN_FAILED").
			With("operation", "get user").
			With("user_id", userID.String()).
			Wrap(err)
	}

	tables, err := s.loadTables(ctx)
	if err != nil {
		return Resolution{}, err
	}

	res, _, err := s.syncUser(ctx, user, tables)
	if err != nil {
		return Resolution{}, err
	}
	return res, nil
}

// ResyncAll recomputes every user's authority. A failure for one user is
// logged and counted; failures loading the tables or the user list abort.
func (s *Syncer) ResyncAll(ctx context.Context) (ResyncSummary, error) {
	ctx, span := tracer.Start(ctx, "authority.ResyncAll")
	defer span.End()

	tables, err := s.loadTables(ctx)
	if err != nil {
		return ResyncSummary{}, err
	}

	users, err := s.users.List(ctx)
	if err != nil {
		return ResyncSummary{}, oops.Code("AUTHORITY_RESYNC_FAILED").
			With("operation", "list users").
			Wrap(err)
	}

	summary := ResyncSummary{Users: len(users)}
	for _, u := range users {
		_, changed, err := s.syncUser(ctx, u, tables)
		if err != nil {
			summary.Failed++
			errutil.Log(ctx, s.logger, slog.LevelWarn, "authority resync failed for user", err,
				"user_id", u.ID.String())
			continue
		}
		if changed {
			summary.Changed++
		}
	}

	span.SetAttributes(
		attribute.Int("users", summary.Users),
		attribute.Int("changed", summary.Changed),
		attribute.Int("failed", summary.Failed),
	)
	s.logger.InfoContext(ctx, "authority resync complete",
		"users", summary.Users,
		"changed", summary.Changed,
		"failed", summary.Failed)
	return summary, nil
}

type resolutionTables struct {
	resolver    *Resolver
	definitions *DefinitionTable
}

func (s *Syncer) loadTables(ctx context.Context) (resolutionTables, error) {
	legacy, err := s.tables.LegacyMappings(ctx)
	if err != nil {
		return resolutionTables{}, oops.Code("AUTHORITY_TABLES_FAILED").
			With("operation", "load legacy mappings").
			Wrap(err)
	}
	defs, err := s.tables.RoleDefinitions(ctx)
	if err != nil {
		return resolutionTables{}, oops.Code("AUTHORITY_TABLES_FAILED").
			With("operation", "load role definitions").
			Wrap(err)
	}
	definitions := NewDefinitionTable(defs)
	return resolutionTables{
		resolver:    NewResolver(NewLegacyTable(legacy), definitions),
		definitions: definitions,
	}, nil
}

// syncUser resolves u and writes back whatever changed.
func (s *Syncer) syncUser(ctx context.Context, u *account.User, tables resolutionTables) (Resolution, bool, error) {
	roles, rolesChanged, err := s.currentRoles(ctx, u)
	if err != nil {
		return Resolution{}, false, err
	}

	res := tables.resolver.Resolve(roles).Merge(tables.definitions.ManualPermissions(u.ManualRoleIDs)...)
	recordResolution(res)

	var patch account.Patch
	if rolesChanged {
		patch.ExternalRoles = &roles
	}
	if !slices.Equal(res.Permissions, u.Permissions) {
		patch.Permissions = &res.Permissions
	}
	if res.StaffTier != u.StaffTier {
		patch.StaffTier = &res.StaffTier
	}
	if res.IsStaff != u.IsStaff {
		patch.IsStaff = &res.IsStaff
	}
	if patch.Empty() {
		return res, false, nil
	}

	if err := s.users.Update(ctx, u.ID, patch); err != nil {
		return Resolution{}, false, oops.Code("AUTHORITY_UPDATE_FAILED").
			With("operation", "update user").
			With("user_id", u.ID.String()).
			Wrap(err)
	}
	patch.Apply(u)
	usersUpdatedTotal.Inc()
	return res, true, nil
}

// currentRoles returns the role set to resolve and whether it differs from the
// stored snapshot. A missing platform linkage degrades to the stored snapshot.
func (s *Syncer) currentRoles(ctx context.Context, u *account.User) ([]string, bool, error) {
	if s.fetcher == nil || u.ExternalID == "" {
		return u.ExternalRoles, false, nil
	}

	fetched, err := s.fetcher.MemberRoles(ctx, u.ExternalID)
	if err != nil {
		if errutil.IsNotConfigured(err) {
			roleRefreshTotal.WithLabelValues("not_configured").Inc()
			errutil.Log(ctx, s.logger, slog.LevelWarn, "live role refresh unavailable, keeping stored roles", err,
				"user_id", u.ID.String())
			return u.ExternalRoles, false, nil
		}
		roleRefreshTotal.WithLabelValues("error").Inc()
		return nil, false, oops.Code("ROLE_REFRESH_FAILED").
			With("user_id", u.ID.String()).
			With("external_id", u.ExternalID).
			Wrap(err)
	}
	if len(fetched) == 0 {
		roleRefreshTotal.WithLabelValues("not_member").Inc()
	} else {
		roleRefreshTotal.WithLabelValues("ok").Inc()
	}

	roles := NormalizeRoles(fetched)
	return roles, !slices.Equal(roles, NormalizeRoles(u.ExternalRoles)), nil
}

// NormalizeRoles returns a sorted copy of roles without duplicates or empty IDs.
func NormalizeRoles(roles []string) []string {
	out := make([]string, 0, len(roles))
	for _, r := range roles {
		if r != "" {
			out = append(out, r)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}
