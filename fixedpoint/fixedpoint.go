// Package fixedpoint holds the 256-bit fixed-point helpers shared by the vesting and
// crowdsale engines. Every operation reports overflow instead of wrapping, and every
// division truncates toward zero unless its name says otherwise.
package fixedpoint

import (
	"fmt"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"

	tge "github.com/enjinstarter/enjinstarter-tge-contracts-sub001"
)

// Decimals is the precision of rates and percentages.
const Decimals = 18

// maxPow10 is the largest n for which 10^n fits in 256 bits.
const maxPow10 = 77

var (
	unit       = uint256.NewInt(1_000_000_000_000_000_000)
	percent100 = new(uint256.Int).Mul(uint256.NewInt(100), unit)
)

// Unit returns 10^18, the fixed-point one.
func Unit() *uint256.Int {
	return new(uint256.Int).Set(unit)
}

// Percent100 returns 100% in 18-decimal fixed point.
func Percent100() *uint256.Int {
	return new(uint256.Int).Set(percent100)
}

// Pow10 returns 10^n.
func Pow10(n uint) (*uint256.Int, error) {
	if n > maxPow10 {
		return nil, fmt.Errorf("10^%d: %w", n, tge.ErrArithmeticOverflow)
	}
	return new(uint256.Int).Exp(uint256.NewInt(10), uint256.NewInt(uint64(n))), nil
}

// Add returns x + y.
func Add(x, y *uint256.Int) (*uint256.Int, error) {
	z, overflow := new(uint256.Int).AddOverflow(x, y)
	if overflow {
		return nil, fmt.Errorf("%s + %s: %w", x.Dec(), y.Dec(), tge.ErrArithmeticOverflow)
	}
	return z, nil
}

// Sub returns x - y. Underflow is reported as overflow.
func Sub(x, y *uint256.Int) (*uint256.Int, error) {
	z, underflow := new(uint256.Int).SubOverflow(x, y)
	if underflow {
		return nil, fmt.Errorf("%s - %s: %w", x.Dec(), y.Dec(), tge.ErrArithmeticOverflow)
	}
	return z, nil
}

// Mul returns x * y.
func Mul(x, y *uint256.Int) (*uint256.Int, error) {
	z, overflow := new(uint256.Int).MulOverflow(x, y)
	if overflow {
		return nil, fmt.Errorf("%s * %s: %w", x.Dec(), y.Dec(), tge.ErrArithmeticOverflow)
	}
	return z, nil
}

// MulDiv returns floor(x * y / d) using a 512-bit intermediate product,
// so the only precision loss is the final truncation.
func MulDiv(x, y, d *uint256.Int) (*uint256.Int, error) {
	if d.IsZero() {
		return nil, fmt.Errorf("division by zero: %w", tge.ErrArithmeticOverflow)
	}
	z, overflow := new(uint256.Int).MulDivOverflow(x, y, d)
	if overflow {
		return nil, fmt.Errorf("%s * %s / %s: %w", x.Dec(), y.Dec(), d.Dec(), tge.ErrArithmeticOverflow)
	}
	return z, nil
}

// MulDivUp returns ceil(x * y / d).
func MulDivUp(x, y, d *uint256.Int) (*uint256.Int, error) {
	z, err := MulDiv(x, y, d)
	if err != nil {
		return nil, err
	}
	if !new(uint256.Int).MulMod(x, y, d).IsZero() {
		return Add(z, uint256.NewInt(1))
	}
	return z, nil
}

// Min returns the smaller of x and y.
func Min(x, y *uint256.Int) *uint256.Int {
	if x.Lt(y) {
		return new(uint256.Int).Set(x)
	}
	return new(uint256.Int).Set(y)
}

// ParseUnits converts a human decimal string such as "12.5" into base units with the
// given number of decimals. Strings with more fractional digits than decimals are
// rejected rather than rounded.
func ParseUnits(s string, decimals uint8) (*uint256.Int, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, fmt.Errorf("failed to parse amount %q: %w", s, err)
	}
	if d.IsNegative() {
		return nil, fmt.Errorf("negative amount %q: %w", s, tge.ErrInvalidAmount)
	}
	scaled := d.Shift(int32(decimals))
	if !scaled.IsInteger() {
		return nil, fmt.Errorf("amount %q has more than %d decimals: %w", s, decimals, tge.ErrInvalidAmount)
	}
	z, overflow := uint256.FromBig(scaled.BigInt())
	if overflow {
		return nil, fmt.Errorf("amount %q: %w", s, tge.ErrArithmeticOverflow)
	}
	return z, nil
}

// FormatUnits renders base units as a human decimal string.
func FormatUnits(x *uint256.Int, decimals uint8) string {
	return decimal.NewFromBigInt(x.ToBig(), -int32(decimals)).String()
}

// ToFloat converts base units to an approximate float, for metrics only.
func ToFloat(x *uint256.Int, decimals uint8) float64 {
	return decimal.NewFromBigInt(x.ToBig(), -int32(decimals)).InexactFloat64()
}

// ParsePercent parses a percentage such as "7.5" into 18-decimal fixed point.
func ParsePercent(s string) (*uint256.Int, error) {
	p, err := ParseUnits(s, Decimals)
	if err != nil {
		return nil, err
	}
	if p.Gt(percent100) {
		return nil, fmt.Errorf("percentage %s exceeds 100: %w", s, tge.ErrInvalidAmount)
	}
	return p, nil
}
