package substrate

import (
	"context"
	"fmt"
	"math/big"

	gsrpc "github.com/centrifuge/go-substrate-rpc-client/v4"
	"github.com/centrifuge/go-substrate-rpc-client/v4/types"
	"github.com/matrixise/balance-lookup/internal/chain"
)

// accountInfo is frame_system::AccountInfo with pallet_balances::AccountData.
type accountInfo struct {
	Nonce       types.U32
	Consumers   types.U32
	Providers   types.U32
	Sufficients types.U32
	Data        struct {
		Free     types.U128
		Reserved types.U128
		Frozen   types.U128
		Flags    types.U128
	}
}

// releaseSchedule is the SCALE layout of a time-release schedule entry.
type releaseSchedule struct {
	Start       types.U32
	Period      types.U32
	PeriodCount types.U32
	PerPeriod   types.UCompact
}

func u128(v types.U128) *big.Int {
	if v.Int == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(v.Int)
}

// Each call below decodes into a local value and publishes it only once the
// RPC has returned, since callContext may abandon a still-running call.

// Properties reads the chain's SS58 prefix and token denomination.
func (c *Client) Properties(ctx context.Context) (chain.NetworkParameters, error) {
	var raw rawProperties
	err := c.retryWithBackoff(ctx, func(ctx context.Context, n *node) error {
		var got rawProperties
		if err := callContext(ctx, func() error {
			return n.api.Client.Call(&got, "system_properties")
		}); err != nil {
			return err
		}
		raw = got
		return nil
	})
	if err != nil {
		return chain.NetworkParameters{}, fmt.Errorf("system_properties: %w", err)
	}

	params, err := parseProperties(raw)
	if err != nil {
		return chain.NetworkParameters{}, fmt.Errorf("system_properties: %w", err)
	}
	return params, nil
}

// LatestBlockNumber returns the best block height.
func (c *Client) LatestBlockNumber(ctx context.Context) (uint64, error) {
	var number uint64
	err := c.retryWithBackoff(ctx, func(ctx context.Context, n *node) error {
		var got uint64
		if err := callContext(ctx, func() error {
			var err error
			got, err = latestBlockNumber(n.api)
			return err
		}); err != nil {
			return err
		}
		number = got
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("chain_getHeader: %w", err)
	}
	return number, nil
}

// Account reads System.Account for accountID. Unknown accounts have a zero
// balance.
func (c *Client) Account(ctx context.Context, accountID []byte) (chain.RawBalance, error) {
	var info accountInfo
	err := c.retryWithBackoff(ctx, func(ctx context.Context, n *node) error {
		key, err := types.CreateStorageKey(n.meta, "System", "Account", accountID)
		if err != nil {
			return permanent(fmt.Errorf("storage key: %w", err))
		}
		var got accountInfo
		if err := callContext(ctx, func() error {
			_, err := n.api.RPC.State.GetStorageLatest(key, &got)
			return err
		}); err != nil {
			return err
		}
		info = got
		return nil
	})
	if err != nil {
		return chain.RawBalance{}, fmt.Errorf("System.Account: %w", err)
	}

	return chain.RawBalance{
		Free:     u128(info.Data.Free),
		Reserved: u128(info.Data.Reserved),
	}, nil
}

// ReleaseSchedules reads the account's time-release schedules in storage
// order.
func (c *Client) ReleaseSchedules(ctx context.Context, accountID []byte) ([]chain.ReleaseSchedule, error) {
	var raw []releaseSchedule
	err := c.retryWithBackoff(ctx, func(ctx context.Context, n *node) error {
		key, err := types.CreateStorageKey(n.meta, c.releasePallet, c.releaseStorage, accountID)
		if err != nil {
			return permanent(fmt.Errorf("storage key: %w", err))
		}
		var got []releaseSchedule
		if err := callContext(ctx, func() error {
			_, err := n.api.RPC.State.GetStorageLatest(key, &got)
			return err
		}); err != nil {
			return err
		}
		raw = got
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s.%s: %w", c.releasePallet, c.releaseStorage, err)
	}

	out := make([]chain.ReleaseSchedule, 0, len(raw))
	for _, s := range raw {
		out = append(out, chain.ReleaseSchedule{
			Start:       uint64(s.Start),
			Period:      uint64(s.Period),
			PeriodCount: uint64(s.PeriodCount),
			PerPeriod:   new(big.Int).Set((*big.Int)(&s.PerPeriod)),
		})
	}
	return out, nil
}

func latestBlockNumber(api *gsrpc.SubstrateAPI) (uint64, error) {
	header, err := api.RPC.Chain.GetHeaderLatest()
	if err != nil {
		return 0, err
	}
	return uint64(header.Number), nil
}

// FetchRelayBlockNumber opens a one-shot connection to a relay chain node
// and returns its best block height. It satisfies relay.FetchFunc.
func FetchRelayBlockNumber(ctx context.Context, endpoint string) (uint64, error) {
	ctx, cancel := context.WithTimeout(ctx, rpcTimeout)
	defer cancel()

	type result struct {
		number uint64
		err    error
	}
	done := make(chan result, 1)

	go func() {
		api, err := gsrpc.NewSubstrateAPI(endpoint)
		if err != nil {
			done <- result{err: fmt.Errorf("connect %s: %w", endpoint, err)}
			return
		}
		defer api.Client.Close()

		number, err := latestBlockNumber(api)
		done <- result{number: number, err: err}
	}()

	select {
	case r := <-done:
		return r.number, r.err
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}
