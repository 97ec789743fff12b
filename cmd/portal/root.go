// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/holomush/portal/internal/authority"
	"github.com/holomush/portal/internal/config"
	"github.com/holomush/portal/internal/department"
	"github.com/holomush/portal/internal/logging"
	"github.com/holomush/portal/internal/roster"
)

const serviceName = "portal"

// NewRootCmd creates the root command for the portal CLI.
func NewRootCmd() *cobra.Command {
	return newRootCmd(nil)
}

func newRootCmd(deps *Deps) *cobra.Command {
	deps = deps.withDefaults()

	cmd := &cobra.Command{
		Use:   "portal",
		Short: "Roleplay community portal",
		Long: `The portal derives member permissions and staff tiers from chat
platform roles and builds department rosters with stable identifiers
and callsigns.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().String("config", "", "config file path (default: $XDG_CONFIG_HOME/portal/config.yaml)")
	config.RegisterFlags(cmd.PersistentFlags())

	cmd.AddCommand(NewServeCmd(deps))
	cmd.AddCommand(NewMigrateCmd(deps))
	cmd.AddCommand(NewResyncCmd(deps))
	cmd.AddCommand(NewRosterCmd(deps))
	cmd.AddCommand(NewLeadershipCmd(deps))
	cmd.AddCommand(NewMemberCmd(deps))
	cmd.AddCommand(NewDepartmentsCmd(deps))

	return cmd
}

// loadConfig resolves and validates configuration for cmd and installs the
// configured logger as the slog default.
func loadConfig(cmd *cobra.Command, deps *Deps) (*config.Config, *slog.Logger, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, nil, oops.Code("CONFIG_LOAD_FAILED").Wrap(err)
	}
	cfg, err := config.Load(path, cmd.Flags(), deps.Getenv)
	if err != nil {
		return nil, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	logger, err := logging.Setup(logging.Options{
		Service: serviceName,
		Version: version,
		Format:  cfg.LogFormat,
		Level:   cfg.LogLevel,
	}, cmd.ErrOrStderr())
	if err != nil {
		return nil, nil, err
	}
	slog.SetDefault(logger)
	return cfg, logger, nil
}

// app holds the components a command runs against.
type app struct {
	cfg         *config.Config
	logger      *slog.Logger
	backend     *Backend
	departments *department.Registry
	leadership  *roster.Leadership
	synthesizer *roster.Synthesizer
	members     *roster.Service
	syncer      *authority.Syncer
}

// openApp loads configuration and wires every component. Callers must call
// Close.
func openApp(cmd *cobra.Command, deps *Deps) (*app, error) {
	cfg, logger, err := loadConfig(cmd, deps)
	if err != nil {
		return nil, err
	}

	departments, err := department.Load(cfg.DepartmentsFile)
	if err != nil {
		return nil, err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	backend, err := deps.BackendFactory(ctx, cfg)
	if err != nil {
		return nil, err
	}

	leadership := roster.NewLeadership(backend.Ranks, backend.Members, logger)
	return &app{
		cfg:         cfg,
		logger:      logger,
		backend:     backend,
		departments: departments,
		leadership:  leadership,
		synthesizer: roster.NewSynthesizer(roster.SynthesizerConfig{
			Departments: departments,
			Users:       backend.Users,
			Ranks:       backend.Ranks,
			Members:     backend.Members,
			Locker:      backend.Locker,
			Logger:      logger,
		}),
		members: roster.NewService(roster.ServiceConfig{
			Departments: departments,
			Users:       backend.Users,
			Ranks:       backend.Ranks,
			Members:     backend.Members,
			Leadership:  leadership,
		}),
		syncer: authority.NewSyncer(authority.SyncerConfig{
			Users:   backend.Users,
			Tables:  backend.Authority,
			Fetcher: deps.RoleFetcherFactory(cfg.Discord),
			Logger:  logger,
		}),
	}, nil
}

// Close releases the backend.
func (a *app) Close() {
	if a.backend.Close != nil {
		a.backend.Close()
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return oops.Code("OUTPUT_FAILED").Wrap(err)
	}
	return nil
}
