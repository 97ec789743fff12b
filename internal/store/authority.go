// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package store

import (
	"context"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/holomush/portal/internal/authority"
	"github.com/holomush/portal/internal/tier"
)

// AuthorityRepository implements authority.Repository using PostgreSQL.
type AuthorityRepository struct {
	pool poolIface
}

// NewAuthorityRepository creates a new AuthorityRepository.
func NewAuthorityRepository(pool poolIface) *AuthorityRepository {
	return &AuthorityRepository{pool: pool}
}

// LegacyMappings returns every legacy permission mapping row.
func (r *AuthorityRepository) LegacyMappings(ctx context.Context) ([]authority.PermissionMapping, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT external_role_id, permission_list, staff_tier
		FROM permission_mappings
		ORDER BY external_role_id
	`)
	if err != nil {
		return nil, oops.Code("AUTHORITY_QUERY_FAILED").With("operation", "list legacy mappings").Wrap(err)
	}
	defer rows.Close()

	var out []authority.PermissionMapping
	for rows.Next() {
		var m authority.PermissionMapping
		var tierStr string
		if err := rows.Scan(&m.ExternalRoleID, &m.PermissionList, &tierStr); err != nil {
			return nil, oops.Code("AUTHORITY_QUERY_FAILED").With("operation", "scan legacy mapping").Wrap(err)
		}
		if m.StaffTier, err = tier.Parse(tierStr); err != nil {
			return nil, oops.With("external_role_id", m.ExternalRoleID).Wrap(err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.Code("AUTHORITY_QUERY_FAILED").With("operation", "iterate legacy mappings").Wrap(err)
	}
	return out, nil
}

// RoleDefinitions returns every role definition, linked or not.
func (r *AuthorityRepository) RoleDefinitions(ctx context.Context) ([]authority.RoleDefinition, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, COALESCE(external_role_id, ''), permissions, staff_tier
		FROM role_definitions
		ORDER BY name, id
	`)
	if err != nil {
		return nil, oops.Code("AUTHORITY_QUERY_FAILED").With("operation", "list role definitions").Wrap(err)
	}
	defer rows.Close()

	var out []authority.RoleDefinition
	for rows.Next() {
		var d authority.RoleDefinition
		var id, tierStr string
		if err := rows.Scan(&id, &d.Name, &d.ExternalRoleID, &d.Permissions, &tierStr); err != nil {
			return nil, oops.Code("AUTHORITY_QUERY_FAILED").With("operation", "scan role definition").Wrap(err)
		}
		if d.ID, err = ulid.Parse(id); err != nil {
			return nil, oops.Code("CORRUPT_ID").With("id", id).Wrap(err)
		}
		if d.StaffTier, err = tier.Parse(tierStr); err != nil {
			return nil, oops.With("role_definition_id", id).Wrap(err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.Code("AUTHORITY_QUERY_FAILED").With("operation", "iterate role definitions").Wrap(err)
	}
	return out, nil
}

// PutLegacyMapping creates or replaces a legacy mapping row.
func (r *AuthorityRepository) PutLegacyMapping(ctx context.Context, m authority.PermissionMapping) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO permission_mappings (external_role_id, permission_list, staff_tier)
		VALUES ($1, $2, $3)
		ON CONFLICT (external_role_id) DO UPDATE SET permission_list = $2, staff_tier = $3
	`, m.ExternalRoleID, m.PermissionList, tierName(m.StaffTier))
	if err != nil {
		return oops.Code("AUTHORITY_WRITE_FAILED").
			With("operation", "put legacy mapping").
			With("external_role_id", m.ExternalRoleID).
			Wrap(err)
	}
	return nil
}

// PutRoleDefinition creates or replaces a role definition. The ID is
// generated if unset.
func (r *AuthorityRepository) PutRoleDefinition(ctx context.Context, d *authority.RoleDefinition) error {
	if d.ID.IsZero() {
		d.ID = ulid.Make()
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO role_definitions (id, name, external_role_id, permissions, staff_tier)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE
		SET name = $2, external_role_id = $3, permissions = $4, staff_tier = $5
	`, d.ID.String(), d.Name, nullIfEmpty(d.ExternalRoleID), nonNil(d.Permissions), tierName(d.StaffTier))
	if err != nil {
		return oops.Code("AUTHORITY_WRITE_FAILED").
			With("operation", "put role definition").
			With("id", d.ID.String()).
			Wrap(err)
	}
	return nil
}

var _ authority.Repository = (*AuthorityRepository)(nil)
