// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"github.com/oklog/ulid/v2"
	"github.com/spf13/cobra"
)

// NewRosterCmd creates the roster subcommand.
func NewRosterCmd(deps *Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "roster <department>",
		Short: "Print a department roster as JSON",
		Long: `Synthesize the department roster from users' external roles and
print it as JSON. Missing identifiers and callsigns are allocated and
saved.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, deps)
			if err != nil {
				return err
			}
			defer a.Close()

			r, err := a.synthesizer.Synthesize(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), r)
		},
	}
}

// NewLeadershipCmd creates the leadership subcommand.
func NewLeadershipCmd(deps *Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "leadership <user-id> <department>",
		Short: "Report whether a user holds leadership of a department",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("user", args[0])
			if err != nil {
				return err
			}

			a, err := openApp(cmd, deps)
			if err != nil {
				return err
			}
			defer a.Close()

			if _, err := a.departments.Get(args[1]); err != nil {
				return err
			}
			u, err := a.backend.Users.Get(cmd.Context(), id)
			if err != nil {
				return err
			}
			ok, err := a.leadership.IsDepartmentLeadership(cmd.Context(), u, args[1])
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), leadershipView{UserID: id, Department: args[1], IsLeadership: ok})
		},
	}
}

type leadershipView struct {
	UserID       ulid.ULID `json:"userId"`
	Department   string    `json:"department"`
	IsLeadership bool      `json:"isLeadership"`
}
