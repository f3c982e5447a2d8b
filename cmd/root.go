package cmd

import (
	"github.com/spf13/cobra"
)

var (
	cfgFile  string
	logLevel string
	endpoint string
	network  string
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "balance-lookup",
	Short: "Substrate balance and vesting lookup",
	Long: `balance-lookup queries account balances and time-release (vesting)
schedules on a Substrate chain. It validates SS58 addresses against the
connected network, shows free and reserved balances in token units, and
splits release schedules into claimable and upcoming ones using the
relay chain height as the clock.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./config.toml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&endpoint, "endpoint", "", "node websocket endpoint (ws:// or wss://)")
	rootCmd.PersistentFlags().StringVar(&network, "network", "", "network preset (frequency, frequency-rococo, polkadot, rococo, local)")
}
