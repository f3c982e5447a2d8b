package vesting

import (
	"fmt"
	"math/big"
	"time"

	"github.com/matrixise/balance-lookup/internal/chain"
	"github.com/matrixise/balance-lookup/internal/units"
)

// EstimateLayout is the timestamp format used for unlock estimates.
const EstimateLayout = "2006-01-02 15:04 MST"

// None is shown when there is nothing to list.
const None = "None"

// Render formats a classification for an operator. Times are shown in loc.
func Render(res Result, params chain.NetworkParameters, loc *time.Location) []string {
	if res.Empty() {
		return []string{None}
	}
	if loc == nil {
		loc = time.UTC
	}

	amount := func(v *big.Int) string {
		return units.ToDecimal(v, params.Decimals) + " " + params.Unit
	}

	lines := []string{fmt.Sprintf("Relay block: %d", res.RelayBlock)}

	if res.ClaimableCount == 0 {
		lines = append(lines, "Claimable: "+None)
	} else {
		lines = append(lines, fmt.Sprintf("Claimable: %s (%d schedules)", amount(res.ClaimableTotal), res.ClaimableCount))
	}

	if len(res.Upcoming) == 0 {
		return append(lines, "Upcoming: "+None)
	}

	lines = append(lines, "Upcoming:")
	for _, up := range res.Upcoming {
		s := up.Schedule
		if up.Unsupported {
			lines = append(lines, fmt.Sprintf(
				"  block %d: unsupported multi-period schedule (%d x %s every %d blocks from %d)",
				up.UnlockBlock, s.PeriodCount, amount(s.PerPeriod), s.Period, s.Start))
			continue
		}
		lines = append(lines, fmt.Sprintf("  block %d (~%s): %s",
			up.UnlockBlock, up.UnlockEstimate.In(loc).Format(EstimateLayout), amount(s.PerPeriod)))
	}
	return lines
}
