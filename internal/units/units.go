// Package units converts raw on-chain integer amounts (plancks) into the
// strings shown to an operator.
package units

import (
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

// ToDecimal renders a raw amount with a decimal point inserted decimals
// digits from the right. The integer part is grouped by thousands and the
// fractional digits are kept as-is, trailing zeros included.
//
// A zero amount is always "0". Amounts smaller than one whole unit render
// as a pure fraction ("0.00000042").
func ToDecimal(raw *big.Int, decimals uint8) string {
	if raw == nil || raw.Sign() == 0 {
		return "0"
	}

	sign := ""
	if raw.Sign() < 0 {
		sign = "-"
	}
	digits := new(big.Int).Abs(raw).String()
	d := int(decimals)

	if d == 0 {
		return sign + groupDigits(digits)
	}

	if len(digits) < d {
		return sign + "0." + strings.Repeat("0", d-len(digits)) + digits
	}

	intPart := digits[:len(digits)-d]
	if intPart == "" {
		intPart = "0"
	}
	return sign + groupDigits(intPart) + "." + digits[len(digits)-d:]
}

// Group renders a raw amount with thousands separators and no decimal point.
func Group(raw *big.Int) string {
	if raw == nil {
		return "0"
	}
	if raw.Sign() < 0 {
		return "-" + groupDigits(new(big.Int).Abs(raw).String())
	}
	return groupDigits(raw.String())
}

// Human renders a raw amount in whole token units with trailing zeros
// trimmed, followed by the token symbol when one is known.
func Human(raw *big.Int, decimals uint8, unit string) string {
	if raw == nil {
		raw = new(big.Int)
	}
	value := decimal.NewFromBigInt(raw, -int32(decimals)).String()
	if unit == "" {
		return value
	}
	return value + " " + unit
}

// groupDigits inserts a comma every three digits from the right (en-US).
func groupDigits(digits string) string {
	if len(digits) <= 3 {
		return digits
	}

	var b strings.Builder
	b.Grow(len(digits) + len(digits)/3)

	head := len(digits) % 3
	if head == 0 {
		head = 3
	}
	b.WriteString(digits[:head])
	for i := head; i < len(digits); i += 3 {
		b.WriteByte(',')
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}
