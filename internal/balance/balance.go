// Package balance turns raw account snapshots into the records an operator
// sees and keeps the per-session log of looked-up accounts.
package balance

import (
	"time"

	"github.com/matrixise/balance-lookup/internal/chain"
	"github.com/matrixise/balance-lookup/internal/units"
)

// Record is the display unit for one account lookup.
type Record struct {
	Account      string    `json:"account"`
	Decimal      string    `json:"decimal"`
	PlancksTotal string    `json:"plancksTotal"`
	Free         string    `json:"free"`
	Reserved     string    `json:"reserved"`
	Note         string    `json:"note,omitempty"`
	QueriedAt    time.Time `json:"queriedAt"`
}

// Aggregate combines the free and reserved balance into a total and
// packages the decimal, raw and human-readable views of it. Free and
// reserved are formatted independently.
func Aggregate(raw chain.RawBalance, account string, params chain.NetworkParameters, note string) Record {
	total := raw.Total()

	return Record{
		Account:      account,
		Decimal:      units.ToDecimal(total, params.Decimals),
		PlancksTotal: units.Group(total),
		Free:         units.Human(raw.Free, params.Decimals, params.Unit),
		Reserved:     units.Human(raw.Reserved, params.Decimals, params.Unit),
		Note:         note,
	}
}

// Lines renders the record as the key/value lines of a log entry.
func (r Record) Lines() []string {
	return []string{
		"decimal: " + r.Decimal,
		"plancks: " + r.PlancksTotal,
		"free: " + r.Free,
		"reserved: " + r.Reserved,
		"note: " + r.Note,
	}
}
