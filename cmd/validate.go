package cmd

import (
	"log/slog"

	"github.com/matrixise/balance-lookup/internal/scheduler"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate-config",
	Short: "Validate configuration file",
	Long:  `Validate the configuration file syntax and values without connecting to a node.`,
	RunE:  validateConfig,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func validateConfig(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	watch := "disabled"
	if cfg.Interval != "" {
		watch = scheduler.Describe(cfg.Interval, cfg.GetTimezone())
	}

	slog.Info("✓ Configuration valid",
		"endpoints", cfg.Endpoints,
		"accounts", len(cfg.Accounts),
		"relay_overrides", len(cfg.RelayEndpoints),
		"watch", watch,
		"release_storage", cfg.ReleasePallet+"."+cfg.ReleaseStorage,
		"log_level", cfg.LogLevel,
	)
	return nil
}
