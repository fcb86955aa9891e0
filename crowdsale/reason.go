package crowdsale

import (
	"errors"

	tge "github.com/enjinstarter/enjinstarter-tge-contracts-sub001"
	"github.com/enjinstarter/enjinstarter-tge-contracts-sub001/store"
)

var reasons = []struct {
	err    error
	reason string
}{
	{tge.ErrNotOpen, "not_open"},
	{tge.ErrNotWhitelisted, "not_whitelisted"},
	{tge.ErrUnsupportedPaymentToken, "unsupported_payment_token"},
	{tge.ErrInsufficientHoldBalance, "insufficient_hold_balance"},
	{tge.ErrBelowMinimumLot, "below_minimum_lot"},
	{tge.ErrLotLimitExceeded, "lot_limit_exceeded"},
	{tge.ErrCapExceeded, "cap_exceeded"},
	{tge.ErrArithmeticOverflow, "arithmetic_overflow"},
	{tge.ErrInvalidAmount, "invalid_amount"},
	{tge.ErrTransferFailed, "transfer_failed"},
	{store.ErrConflict, "conflict"},
}

// FailureReason maps a purchase error to the reason label used in metrics.
func FailureReason(err error) string {
	for _, r := range reasons {
		if errors.Is(err, r.err) {
			return r.reason
		}
	}
	return "error"
}
