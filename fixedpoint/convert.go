package fixedpoint

import (
	"fmt"

	"github.com/holiman/uint256"

	tge "github.com/enjinstarter/enjinstarter-tge-contracts-sub001"
)

// saleScale is 10^36: one 10^18 lifts the payment amount to 18 decimals and the
// other cancels the 18-decimal rate.
var saleScale = new(uint256.Int).Mul(unit, unit)

// priceDenominator returns rate * 10^decimals.
func priceDenominator(rate *uint256.Int, decimals uint8) (*uint256.Int, error) {
	if rate == nil || rate.IsZero() {
		return nil, fmt.Errorf("zero rate: %w", tge.ErrInvalidAmount)
	}
	scale, err := Pow10(uint(decimals))
	if err != nil {
		return nil, err
	}
	return Mul(rate, scale)
}

// ToSaleUnits converts a payment amount expressed in the payment token's native decimals
// into 18-decimal sale-token base units at the given 18-decimal rate. The result is
// truncated once, so at most one sale-token base unit of value is dropped.
func ToSaleUnits(paymentAmount *uint256.Int, decimals uint8, rate *uint256.Int) (*uint256.Int, error) {
	denom, err := priceDenominator(rate, decimals)
	if err != nil {
		return nil, err
	}
	return MulDiv(paymentAmount, saleScale, denom)
}

// PaymentCost is the inverse of ToSaleUnits rounded up: the smallest payment, in the
// payment token's native decimals, that buys saleAmount.
func PaymentCost(saleAmount *uint256.Int, decimals uint8, rate *uint256.Int) (*uint256.Int, error) {
	denom, err := priceDenominator(rate, decimals)
	if err != nil {
		return nil, err
	}
	return MulDivUp(saleAmount, denom, saleScale)
}
