// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/holomush/portal/internal/authority"
	"github.com/holomush/portal/internal/observability"
	"github.com/holomush/portal/pkg/errutil"
)

const shutdownTimeout = 5 * time.Second

// NewServeCmd creates the serve subcommand.
func NewServeCmd(deps *Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the portal service",
		Long: `Run the observability endpoints and periodically re-derive every
user's permissions and staff tier from their chat platform roles.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, deps)
		},
	}
}

func runServe(cmd *cobra.Command, deps *Deps) error {
	a, err := openApp(cmd, deps)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	a.logger.InfoContext(ctx, "starting portal",
		"departments", a.departments.Codes(),
		"allocation_lock", a.cfg.AllocationLock,
		"resync_interval", a.cfg.ResyncInterval.String())

	var metrics *observability.Metrics
	if a.cfg.MetricsAddr != "" {
		srv := deps.ObservabilityServerFactory(a.cfg.MetricsAddr, a.backend.Ping)
		errCh, err := srv.Start()
		if err != nil {
			return oops.Code("OBSERVABILITY_START_FAILED").With("addr", a.cfg.MetricsAddr).Wrap(err)
		}
		defer func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
			defer shutdownCancel()
			if err := srv.Stop(shutdownCtx); err != nil {
				a.logger.Warn("failed to stop observability server", "error", err)
			}
		}()
		go monitorServerErrors(ctx, cancel, errCh, "observability")
		metrics = srv.Metrics()
	}

	runResyncLoop(ctx, a.syncer, a.cfg.ResyncInterval, metrics, a.logger)

	if cause := context.Cause(ctx); cause != nil && !errors.Is(cause, context.Canceled) {
		return cause
	}
	a.logger.Info("portal stopped")
	return nil
}

// monitorServerErrors cancels ctx when a background server fails.
func monitorServerErrors(ctx context.Context, cancel context.CancelCauseFunc, errCh <-chan error, name string) {
	select {
	case <-ctx.Done():
	case err, ok := <-errCh:
		if ok && err != nil {
			slog.Error("server failed", "server", name, "error", err)
			cancel(oops.Code("SERVER_FAILED").With("server", name).Wrap(err))
		}
	}
}

// runResyncLoop resyncs once immediately and then every interval until ctx
// is done. A zero interval disables it.
func runResyncLoop(ctx context.Context, syncer *authority.Syncer, interval time.Duration, metrics *observability.Metrics, logger *slog.Logger) {
	if interval <= 0 {
		logger.InfoContext(ctx, "periodic resync disabled")
		<-ctx.Done()
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		resyncOnce(ctx, syncer, metrics, logger)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func resyncOnce(ctx context.Context, syncer *authority.Syncer, metrics *observability.Metrics, logger *slog.Logger) {
	summary, err := syncer.ResyncAll(ctx)
	outcome := observability.ResyncOK
	switch {
	case err != nil:
		outcome = observability.ResyncFailed
		errutil.Log(ctx, logger, slog.LevelError, "periodic resync failed", err)
	case summary.Failed > 0:
		outcome = observability.ResyncPartial
	}
	if metrics != nil {
		metrics.RecordResync(outcome, time.Now())
	}
}
