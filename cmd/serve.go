package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/matrixise/balance-lookup/internal/api"
	"github.com/matrixise/balance-lookup/internal/config"
	"github.com/matrixise/balance-lookup/internal/health"
	"github.com/matrixise/balance-lookup/internal/scheduler"
	"github.com/matrixise/balance-lookup/internal/session"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// watchConcurrency bounds the lookups a single watch run has in flight.
const watchConcurrency = 4

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve lookups over HTTP",
	Long: `Connect to the node and serve address checks, balance and vesting
lookups and the session log over HTTP. With an interval the configured
accounts are looked up periodically and their latest balances kept in the
log.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("interval", "", "watch interval - duration (5m, 1h) or cron (\"*/5 * * * *\") - empty disables the watch")
	serveCmd.Flags().Int("http-port", 0, "HTTP listen port (default 8080)")
	serveCmd.Flags().String("timezone", "", "timezone for cron schedules and unlock estimates (default UTC)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	slog.Info("Configuration loaded",
		"config_path", cfgFile,
		"endpoints", len(cfg.Endpoints),
		"accounts", len(cfg.Accounts),
		"interval", cfg.Interval)

	s, err := openSession(ctx, cfg)
	if err != nil {
		return err
	}
	defer s.Disconnect()

	checker := health.NewChecker(s, s.Relay())

	if cfg.Interval != "" && len(cfg.Accounts) > 0 {
		sched, err := scheduler.New(ctx, scheduler.Config{
			Interval:       cfg.Interval,
			Timezone:       cfg.GetTimezone(),
			RunImmediately: cfg.ShouldRunImmediately(),
			Logger:         slog.Default(),
		}, func(jobCtx context.Context) error {
			return watchAccounts(jobCtx, s, cfg.Accounts)
		})
		if err != nil {
			slog.Error("Failed to create scheduler", "error", err)
			return fmt.Errorf("scheduler creation failed: %w", err)
		}
		defer sched.Stop()

		checker.SetWatch(sched)
		sched.Start()
	} else if cfg.Interval != "" {
		slog.Warn("Interval set but no accounts configured, watch disabled")
	}

	router := api.New(s, cfg.GetTimezone(), slog.Default()).Router(checker.Handler())
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("HTTP server starting", "port", cfg.HTTPPort)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
		slog.Info("Shutdown requested, stopping server")
	case err := <-serveErr:
		if err != nil {
			slog.Error("HTTP server error", "error", err)
			return err
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}
	return nil
}

// watchAccounts refreshes the balance of every configured account. A failed
// account does not stop the others; the failures are joined.
func watchAccounts(ctx context.Context, s *session.Session, accounts []config.AccountConfig) error {
	var (
		g    errgroup.Group
		errs = make([]error, len(accounts))
	)
	g.SetLimit(watchConcurrency)

	for i, acc := range accounts {
		g.Go(func() error {
			if _, err := s.LookupBalance(ctx, acc.Address, acc.Note); err != nil {
				errs[i] = fmt.Errorf("%s: %w", acc.Address, err)
			}
			return nil
		})
	}
	g.Wait()

	if err := errors.Join(errs...); err != nil {
		return err
	}
	slog.Info("Watch completed", "accounts", len(accounts))
	return nil
}
