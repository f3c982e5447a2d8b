package cmd

import (
	"errors"
	"fmt"

	"github.com/matrixise/balance-lookup/internal/address"
	"github.com/matrixise/balance-lookup/internal/chain"
	"github.com/matrixise/balance-lookup/internal/ss58"
	"github.com/spf13/cobra"
)

var (
	checkPrefix uint16
	checkOnline bool
)

var checkAddressCmd = &cobra.Command{
	Use:   "check-address <address>...",
	Short: "Validate addresses for a network",
	Long: `Check that each address decodes and carries the expected network prefix.
Hex public keys are accepted and shown encoded for the network. The prefix
comes from --prefix, or from the connected node with --online.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCheckAddress,
}

func init() {
	rootCmd.AddCommand(checkAddressCmd)

	checkAddressCmd.Flags().Uint16Var(&checkPrefix, "prefix", chain.DefaultPrefix, "SS58 network prefix")
	checkAddressCmd.Flags().BoolVar(&checkOnline, "online", false, "read the prefix from the configured node")
}

func runCheckAddress(cmd *cobra.Command, args []string) error {
	codec, err := ss58.NewCodec(len(args))
	if err != nil {
		return err
	}
	validate := func(input string) address.Result {
		return address.Validate(input, checkPrefix, codec)
	}

	if checkOnline {
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

		validate = s.Validate
	}

	out := cmd.OutOrStdout()
	invalid := 0
	for _, input := range args {
		res := validate(input)
		if !res.Valid {
			invalid++
			fmt.Fprintf(out, "%s\t%s\n", input, res.Message())
			continue
		}
		fmt.Fprintf(out, "%s\tValid: %s\n", input, res.Normalized)
	}

	if invalid > 0 {
		return errors.New("invalid address")
	}
	return nil
}
