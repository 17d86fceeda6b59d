package units

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

// Decimals is the number of fractional digits of one whole unit (wei per ether).
const Decimals = 18

// ParseUnits converts a decimal string of whole units into base units,
// e.g. ParseUnits("0.2", 18) = 200000000000000000.
func ParseUnits(s string, decimals int32) (uint256.Int, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return uint256.Int{}, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	if d.IsNegative() {
		return uint256.Int{}, fmt.Errorf("%w: %s", ErrNegativeAmount, s)
	}
	scaled := d.Shift(decimals)
	if !scaled.IsInteger() {
		return uint256.Int{}, fmt.Errorf("%w: %s with %d decimals", ErrTooPrecise, s, decimals)
	}
	v, overflow := uint256.FromBig(scaled.BigInt())
	if overflow {
		return uint256.Int{}, fmt.Errorf("%w: %s", ErrAmountOverflow, s)
	}
	return *v, nil
}

// MustUnits is ParseUnits with Decimals that panics on malformed input.
// Use only with constant literals.
func MustUnits(s string) uint256.Int {
	v, err := ParseUnits(s, Decimals)
	if err != nil {
		panic("units.MustUnits: " + err.Error())
	}
	return v
}

// FormatUnits renders base units as a decimal string of whole units with
// trailing zeros trimmed.
func FormatUnits(v uint256.Int, decimals int32) string {
	return decimal.NewFromBigInt(v.ToBig(), -decimals).String()
}

// FormatPercentage renders a fixed-point percentage where precision
// represents 100%, e.g. FormatPercentage(5, 100000) = "0.005".
func FormatPercentage(pct, precision uint64) string {
	if precision == 0 {
		return "0"
	}
	p := decimal.NewFromBigInt(new(big.Int).SetUint64(pct), 0).Mul(decimal.NewFromInt(100))
	return p.Div(decimal.NewFromBigInt(new(big.Int).SetUint64(precision), 0)).String()
}
