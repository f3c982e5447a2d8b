package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/matrixise/balance-lookup/internal/config"
	"github.com/matrixise/balance-lookup/internal/session"
	"github.com/matrixise/balance-lookup/internal/vesting"
	"github.com/spf13/cobra"
)

var (
	lookupNote    string
	lookupTSV     bool
	lookupVesting bool
)

var lookupCmd = &cobra.Command{
	Use:   "lookup [address...]",
	Short: "Look up account balances",
	Long: `Look up the free and reserved balance of each address and print a
timestamped log entry per account. Without arguments the accounts listed
in the configuration are looked up. Addresses may be SS58 strings for
any network or 0x-prefixed hex public keys; they are shown re-encoded for
the connected network.`,
	RunE: runLookup,
}

func init() {
	rootCmd.AddCommand(lookupCmd)

	lookupCmd.Flags().StringVar(&lookupNote, "note", "", "note attached to every address given on the command line")
	lookupCmd.Flags().BoolVar(&lookupTSV, "tsv", false, "print the log as tab-separated values after the lookups")
	lookupCmd.Flags().BoolVar(&lookupVesting, "vesting", false, "also classify time-release schedules")
}

func runLookup(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	accounts := accountArgs(args, cfg, lookupNote)
	if len(accounts) == 0 {
		return errors.New("no address given and no accounts configured")
	}

	ctx, cancel := signalContext()
	defer cancel()

	s, err := openSession(ctx, cfg)
	if err != nil {
		return err
	}
	defer s.Disconnect()

	out := cmd.OutOrStdout()
	failed := lookupAll(ctx, out, s, cfg, accounts, lookupVesting)

	if lookupTSV {
		fmt.Fprintln(out)
		if err := s.Log().WriteTSV(out); err != nil {
			return fmt.Errorf("export log: %w", err)
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d lookups failed", failed, len(accounts))
	}
	return nil
}

// lookupAll looks up accounts one after another, printing an entry for each,
// and returns how many failed.
func lookupAll(ctx context.Context, out io.Writer, s *session.Session, cfg *config.Config, accounts []config.AccountConfig, withVesting bool) int {
	loc := cfg.GetTimezone()
	failed := 0

	for _, acc := range accounts {
		if ctx.Err() != nil {
			return failed + 1
		}

		var (
			lines []string
			err   error
		)
		if withVesting {
			var res session.Lookup
			res, err = s.Lookup(ctx, acc.Address, acc.Note)
			if err == nil {
				lines = append(res.Balance.Lines(), "vesting:")
				for _, l := range vesting.Render(res.Vesting.Result, s.Params(), loc) {
					lines = append(lines, "  "+l)
				}
				printEntry(out, res.Balance.QueriedAt.In(loc), res.Balance.Account, "", lines...)
			}
		} else {
			rec, lerr := s.LookupBalance(ctx, acc.Address, acc.Note)
			if err = lerr; err == nil {
				printEntry(out, rec.QueriedAt.In(loc), rec.Account, "", rec.Lines()...)
			}
		}

		if err != nil {
			failed++
			reportLookupError(out, acc.Address, err, loc)
		}
	}
	return failed
}

func reportLookupError(out io.Writer, input string, err error, loc *time.Location) {
	now := time.Now().In(loc)

	var invalid *session.InvalidAddressError
	if errors.As(err, &invalid) {
		printEntry(out, now, input, "Invalid: "+invalid.Reason)
		return
	}
	slog.Error("Lookup failed", "address", input, "error", err)
	printEntry(out, now, input, "Error: "+err.Error())
}
