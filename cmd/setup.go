package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"os/signal"
	"syscall"

	"github.com/matrixise/balance-lookup/internal/config"
	"github.com/matrixise/balance-lookup/internal/logger"
	"github.com/matrixise/balance-lookup/internal/relay"
	"github.com/matrixise/balance-lookup/internal/session"
	"github.com/matrixise/balance-lookup/internal/ss58"
	"github.com/matrixise/balance-lookup/internal/substrate"
	"github.com/spf13/cobra"
)

// loadConfig reads the configuration with the command's flags on top and
// applies the resulting log level.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	logger.Setup(logLevel)

	cfg, err := config.LoadWithFlags(cfgFile, cmd.Flags())
	if err != nil {
		slog.Error("Configuration error", "error", err)
		return nil, err
	}
	logger.Setup(cfg.LogLevel)
	return cfg, nil
}

// openSession builds a session from cfg and connects it.
func openSession(ctx context.Context, cfg *config.Config) (*session.Session, error) {
	codec, err := ss58.NewCodec(cfg.AddressCacheSize)
	if err != nil {
		return nil, fmt.Errorf("address cache: %w", err)
	}

	relays := maps.Clone(relay.DefaultEndpoints)
	extra, err := cfg.RelayMap()
	if err != nil {
		return nil, err
	}
	maps.Copy(relays, extra)

	cache := relay.New(relays, substrate.FetchRelayBlockNumber, relay.WithLogger(slog.Default()))
	dial := substrate.Dialer(substrate.WithReleaseStorage(cfg.ReleasePallet, cfg.ReleaseStorage))

	s := session.New(dial, codec, cache, session.WithLogger(slog.Default()))
	if err := s.Connect(ctx, cfg.Endpoints...); err != nil {
		slog.Error("Failed to connect", "endpoints", cfg.Endpoints, "error", err)
		return nil, err
	}

	if len(cfg.Endpoints) > 1 {
		slog.Info("Connection established with failover",
			"endpoints", len(cfg.Endpoints),
			"primary", cfg.Endpoints[0])
	}
	return s, nil
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// accountArgs returns the accounts named on the command line, or the
// configured ones when none are given.
func accountArgs(args []string, cfg *config.Config, note string) []config.AccountConfig {
	if len(args) == 0 {
		return cfg.Accounts
	}
	out := make([]config.AccountConfig, len(args))
	for i, a := range args {
		out[i] = config.AccountConfig{Address: a, Note: note}
	}
	return out
}
