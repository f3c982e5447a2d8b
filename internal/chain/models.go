// Package chain holds the data exchanged with a Substrate node and the
// contract a node connection must satisfy.
package chain

import (
	"context"
	"math/big"
)

// Defaults used until a node reports its own properties.
const (
	DefaultPrefix   uint16 = 42
	DefaultUnit            = "UNIT"
	DefaultDecimals uint8  = 8
)

// NetworkParameters describes the connected chain's address format and
// token denomination.
type NetworkParameters struct {
	Prefix   uint16 `json:"prefix"`
	Unit     string `json:"unit"`
	Decimals uint8  `json:"decimals"`
}

// DefaultNetworkParameters returns the parameters assumed before connecting.
func DefaultNetworkParameters() NetworkParameters {
	return NetworkParameters{
		Prefix:   DefaultPrefix,
		Unit:     DefaultUnit,
		Decimals: DefaultDecimals,
	}
}

// RawBalance is an account's balance snapshot in plancks.
type RawBalance struct {
	Free     *big.Int
	Reserved *big.Int
}

// Total returns free + reserved without modifying either.
func (b RawBalance) Total() *big.Int {
	total := new(big.Int)
	if b.Free != nil {
		total.Add(total, b.Free)
	}
	if b.Reserved != nil {
		total.Add(total, b.Reserved)
	}
	return total
}

// ReleaseSchedule is one time-release (vesting) entry: PerPeriod plancks
// are released every Period relay blocks starting at Start, PeriodCount
// times.
type ReleaseSchedule struct {
	Start       uint64   `json:"start"`
	Period      uint64   `json:"period"`
	PeriodCount uint64   `json:"periodCount"`
	PerPeriod   *big.Int `json:"perPeriod"`
}

// Conn is an open connection to a chain node.
type Conn interface {
	// Properties reports the chain's address prefix and token denomination.
	Properties(ctx context.Context) (NetworkParameters, error)
	// Account returns the balance of the account with the given public key.
	Account(ctx context.Context, accountID []byte) (RawBalance, error)
	// ReleaseSchedules returns the account's schedules in chain order.
	ReleaseSchedules(ctx context.Context, accountID []byte) ([]ReleaseSchedule, error)
	// LatestBlockNumber returns the height of the best block.
	LatestBlockNumber(ctx context.Context) (uint64, error)
	// Close releases the connection.
	Close()
}

// Dialer opens a connection to a node. The first endpoint is preferred; the
// rest are fallbacks.
type Dialer func(ctx context.Context, endpoints ...string) (Conn, error)
