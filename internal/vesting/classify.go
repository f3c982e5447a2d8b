// Package vesting classifies time-release schedules against the current
// relay chain height.
package vesting

import (
	"math/big"
	"slices"
	"time"

	"github.com/matrixise/balance-lookup/internal/chain"
)

// BlockTime is the assumed average relay chain block time used to turn a
// block distance into a wall-clock estimate. It is a modeling assumption,
// not a protocol guarantee.
const BlockTime = 6 * time.Second

// Upcoming is a schedule entry that cannot be claimed yet.
type Upcoming struct {
	Schedule    chain.ReleaseSchedule `json:"schedule"`
	UnlockBlock uint64                `json:"unlockBlock"`
	// UnlockEstimate is zero for unsupported entries.
	UnlockEstimate time.Time `json:"unlockEstimate,omitzero"`
	// Unsupported marks multi-period schedules, which are listed but
	// never estimated.
	Unsupported bool `json:"unsupported,omitempty"`
}

// Result partitions an account's schedules.
type Result struct {
	RelayBlock     uint64     `json:"relayBlock"`
	ClaimableTotal *big.Int   `json:"claimableTotal"`
	ClaimableCount int        `json:"claimableCount"`
	Upcoming       []Upcoming `json:"upcoming"`
}

// Empty reports whether the account had no schedules at all.
func (r Result) Empty() bool {
	return r.ClaimableCount == 0 && len(r.Upcoming) == 0
}

// Claimable reports whether a schedule has fully released: it has a single
// period and that period ended before relayBlock.
func Claimable(s chain.ReleaseSchedule, relayBlock uint64) bool {
	return s.PeriodCount == 1 && s.Start+s.Period < relayBlock
}

// Classify splits schedules into claimable and upcoming. Claimable amounts
// are summed; upcoming entries are ordered by unlock block, keeping chain
// order for ties.
func Classify(schedules []chain.ReleaseSchedule, relayBlock uint64, now time.Time) Result {
	res := Result{
		RelayBlock:     relayBlock,
		ClaimableTotal: new(big.Int),
		Upcoming:       []Upcoming{},
	}

	for _, s := range schedules {
		if Claimable(s, relayBlock) {
			res.ClaimableCount++
			if s.PerPeriod != nil {
				res.ClaimableTotal.Add(res.ClaimableTotal, s.PerPeriod)
			}
			continue
		}

		up := Upcoming{
			Schedule:    s,
			UnlockBlock: s.Start + s.Period,
			Unsupported: s.PeriodCount > 1,
		}
		if !up.Unsupported {
			up.UnlockEstimate = EstimateUnlock(up.UnlockBlock, relayBlock, now)
		}
		res.Upcoming = append(res.Upcoming, up)
	}

	slices.SortStableFunc(res.Upcoming, func(a, b Upcoming) int {
		switch {
		case a.UnlockBlock < b.UnlockBlock:
			return -1
		case a.UnlockBlock > b.UnlockBlock:
			return 1
		default:
			return 0
		}
	})

	return res
}

// EstimateUnlock projects when unlockBlock will be reached, assuming
// BlockTime per block from now. Blocks already passed yield a time in the
// past.
func EstimateUnlock(unlockBlock, relayBlock uint64, now time.Time) time.Time {
	blocks := int64(unlockBlock) - int64(relayBlock)
	return now.Add(time.Duration(blocks) * BlockTime)
}
