// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"github.com/oklog/ulid/v2"
	"github.com/spf13/cobra"

	"github.com/holomush/portal/internal/account"
	"github.com/holomush/portal/internal/roster"
)

// NewMemberCmd creates the member subcommand. Every operation is performed
// on behalf of --actor, who must hold leadership of the department.
func NewMemberCmd(deps *Deps) *cobra.Command {
	var actorID string

	cmd := &cobra.Command{
		Use:   "member",
		Short: "Edit department member overrides",
	}
	cmd.PersistentFlags().StringVar(&actorID, "actor", "", "user ID performing the change (required)")
	_ = cmd.MarkPersistentFlagRequired("actor") //nolint:errcheck // flag is defined above

	var (
		rankID                      string
		identifier, callsign, squad string
	)
	assign := &cobra.Command{
		Use:   "assign <department> <user-id>",
		Short: "Create or update a member override",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withActor(cmd, deps, actorID, args, func(a *app, actor *account.User, code string, userID ulid.ULID) error {
				rank, err := parseID("rank", rankID)
				if err != nil {
					return err
				}
				m, err := a.members.AssignMember(cmd.Context(), actor, code, roster.Assignment{
					UserID:     userID,
					RankID:     rank,
					Identifier: changedString(cmd, "identifier", identifier),
					Callsign:   changedString(cmd, "callsign", callsign),
					SquadID:    changedString(cmd, "squad", squad),
				})
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), memberView(m))
			})
		},
	}
	assign.Flags().StringVar(&rankID, "rank", "", "rank ID within the department (required)")
	assign.Flags().StringVar(&identifier, "identifier", "", "set the identifier (empty clears)")
	assign.Flags().StringVar(&callsign, "callsign", "", "set the callsign (empty clears)")
	assign.Flags().StringVar(&squad, "squad", "", "set the squad (empty clears)")
	_ = assign.MarkFlagRequired("rank") //nolint:errcheck // flag is defined above
	cmd.AddCommand(assign)

	cmd.AddCommand(&cobra.Command{
		Use:   "clear <department> <user-id>",
		Short: "Clear a member's identifier and callsign so they are reallocated",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withActor(cmd, deps, actorID, args, func(a *app, actor *account.User, code string, userID ulid.ULID) error {
				if err := a.members.ClearAllocations(cmd.Context(), actor, code, userID); err != nil {
					return err
				}
				cmd.Println("Allocations cleared")
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "remove <department> <user-id>",
		Short: "Delete a member override",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withActor(cmd, deps, actorID, args, func(a *app, actor *account.User, code string, userID ulid.ULID) error {
				if err := a.members.RemoveMember(cmd.Context(), actor, code, userID); err != nil {
					return err
				}
				cmd.Println("Member removed")
				return nil
			})
		},
	})

	return cmd
}

func withActor(cmd *cobra.Command, deps *Deps, actorID string, args []string,
	fn func(a *app, actor *account.User, code string, userID ulid.ULID) error,
) error {
	actor, err := parseID("actor", actorID)
	if err != nil {
		return err
	}
	userID, err := parseID("user", args[1])
	if err != nil {
		return err
	}

	a, err := openApp(cmd, deps)
	if err != nil {
		return err
	}
	defer a.Close()

	u, err := a.backend.Users.Get(cmd.Context(), actor)
	if err != nil {
		return err
	}
	return fn(a, u, args[0], userID)
}

// changedString returns &v when the flag was given, nil otherwise.
func changedString(cmd *cobra.Command, flag, v string) *string {
	if !cmd.Flags().Changed(flag) {
		return nil
	}
	return &v
}

type memberJSON struct {
	ID         ulid.ULID `json:"id"`
	UserID     ulid.ULID `json:"userId"`
	Department string    `json:"departmentCode"`
	RankID     ulid.ULID `json:"rankId"`
	Identifier string    `json:"identifier,omitempty"`
	Callsign   string    `json:"callsign,omitempty"`
	SquadID    string    `json:"squadId,omitempty"`
}

func memberView(m *roster.Member) memberJSON {
	return memberJSON{
		ID:         m.ID,
		UserID:     m.UserID,
		Department: m.DepartmentCode,
		RankID:     m.RankID,
		Identifier: m.Identifier,
		Callsign:   m.Callsign,
		SquadID:    m.SquadID,
	}
}
