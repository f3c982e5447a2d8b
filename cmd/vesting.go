package cmd

import (
	"fmt"
	"time"

	"github.com/matrixise/balance-lookup/internal/vesting"
	"github.com/spf13/cobra"
)

var vestingCmd = &cobra.Command{
	Use:   "vesting <address>...",
	Short: "Show claimable and upcoming time-release schedules",
	Long: `Classify each account's time-release schedules against the current relay
chain height. Single-period schedules whose period has ended are claimable;
the others are listed by unlock block with an estimated unlock time based on
6 second relay blocks. Multi-period schedules are listed as unsupported.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runVesting,
}

func init() {
	rootCmd.AddCommand(vestingCmd)
}

func runVesting(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	s, err := openSession(ctx, cfg)
	if err != nil {
		return err
	}
	defer s.Disconnect()

	out := cmd.OutOrStdout()
	loc := cfg.GetTimezone()
	failed := 0

	for _, input := range args {
		report, err := s.LookupVesting(ctx, input)
		if err != nil {
			failed++
			reportLookupError(out, input, err, loc)
			if ctx.Err() != nil {
				break
			}
			continue
		}
		printEntry(out, time.Now().In(loc), report.Account, "",
			vesting.Render(report.Result, s.Params(), loc)...)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d lookups failed", failed, len(args))
	}
	return nil
}
