package balance

import (
	"math/big"
	"strings"
	"testing"

	"github.com/matrixise/balance-lookup/internal/chain"
	"github.com/stretchr/testify/assert"
)

func TestAggregate(t *testing.T) {
	params := chain.NetworkParameters{Prefix: 42, Unit: "UNIT", Decimals: 3}

	rec := Aggregate(chain.RawBalance{Free: big.NewInt(1000), Reserved: big.NewInt(500)}, "addrX", params, "payroll")

	assert.Equal(t, "addrX", rec.Account)
	assert.Equal(t, "1.500", rec.Decimal)
	assert.Equal(t, "1,500", rec.PlancksTotal)
	assert.Equal(t, "1500", strings.ReplaceAll(rec.PlancksTotal, ",", ""))
	assert.Equal(t, "1 UNIT", rec.Free)
	assert.Equal(t, "0.5 UNIT", rec.Reserved)
	assert.Equal(t, "payroll", rec.Note)
}

func TestAggregateInvariants(t *testing.T) {
	tests := []struct {
		name     string
		free     string
		reserved string
		decimals uint8
		wantDec  string
		wantRaw  string
	}{
		{"zero balance", "0", "0", 8, "0", "0"},
		{"sub-unit total", "3", "2", 8, "0.00000005", "5"},
		{"reserved only", "0", "250000000", 8, "2.50000000", "250,000,000"},
		{
			name:     "u128 sized values",
			free:     "170141183460469231731687303715884105727",
			reserved: "170141183460469231731687303715884105728",
			decimals: 18,
			wantDec:  "340,282,366,920,938,463,463.374607431768211455",
			wantRaw:  "340,282,366,920,938,463,463,374,607,431,768,211,455",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			free, _ := new(big.Int).SetString(tt.free, 10)
			reserved, _ := new(big.Int).SetString(tt.reserved, 10)
			params := chain.NetworkParameters{Unit: "UNIT", Decimals: tt.decimals}

			rec := Aggregate(chain.RawBalance{Free: free, Reserved: reserved}, "acct", params, "")

			assert.Equal(t, tt.wantDec, rec.Decimal)
			assert.Equal(t, tt.wantRaw, rec.PlancksTotal)

			sum := new(big.Int).Add(free, reserved)
			assert.Equal(t, sum.String(), strings.ReplaceAll(rec.PlancksTotal, ",", ""))
		})
	}
}

func TestRecordLines(t *testing.T) {
	rec := Record{Decimal: "1.500", PlancksTotal: "1,500", Free: "1 UNIT", Reserved: "0.5 UNIT", Note: "n"}

	assert.Equal(t, []string{
		"decimal: 1.500",
		"plancks: 1,500",
		"free: 1 UNIT",
		"reserved: 0.5 UNIT",
		"note: n",
	}, rec.Lines())
}
