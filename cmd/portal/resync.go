// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/holomush/portal/internal/tier"
)

// NewResyncCmd creates the resync subcommand.
func NewResyncCmd(deps *Deps) *cobra.Command {
	var userID string

	cmd := &cobra.Command{
		Use:   "resync",
		Short: "Re-derive user permissions and staff tiers",
		Long: `Re-derive permissions and staff tiers from external roles for every
user, or for one user with --user. Live roles are fetched when the Discord
bot is configured; otherwise the stored role snapshot is used.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd, deps)
			if err != nil {
				return err
			}
			defer a.Close()

			if userID != "" {
				id, err := parseID("user", userID)
				if err != nil {
					return err
				}
				res, err := a.syncer.Login(cmd.Context(), id)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), resolutionView{
					UserID:      id,
					Permissions: res.Permissions,
					StaffTier:   res.StaffTier,
					IsStaff:     res.IsStaff,
				})
			}

			summary, err := a.syncer.ResyncAll(cmd.Context())
			if err != nil {
				return err
			}
			cmd.Printf("Resynced %d user(s): %d changed, %d failed\n", summary.Users, summary.Changed, summary.Failed)
			if summary.Failed > 0 {
				return oops.Code("RESYNC_INCOMPLETE").
					With("failed", summary.Failed).
					Errorf("%d user(s) could not be resynced", summary.Failed)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "resync only this user ID")
	return cmd
}

type resolutionView struct {
	UserID      ulid.ULID `json:"userId"`
	Permissions []string  `json:"permissions"`
	StaffTier   tier.Tier `json:"staffTier"`
	IsStaff     bool      `json:"isStaff"`
}

func parseID(kind, s string) (ulid.ULID, error) {
	id, err := ulid.Parse(s)
	if err != nil {
		return ulid.ULID{}, oops.Code("INVALID_ID").With("kind", kind).With("input", s).Wrap(err)
	}
	return id, nil
}
