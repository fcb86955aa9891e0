package tge

import "errors"

var (
	// ErrDuplicateGrant indicates the beneficiary already has a grant in this vesting engine.
	ErrDuplicateGrant = errors.New("duplicate grant")

	// ErrInvalidAmount indicates a zero or otherwise unusable amount.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrNothingToClaim indicates nothing has vested since the last claim.
	ErrNothingToClaim = errors.New("nothing to claim")

	// ErrGrantNotFound indicates the beneficiary has no grant in this vesting engine.
	ErrGrantNotFound = errors.New("grant not found")

	// ErrInvalidSchedule indicates a schedule whose percentages do not sum to exactly 100%
	// or whose durations are unusable.
	ErrInvalidSchedule = errors.New("invalid vesting schedule")

	// ErrNotOpen indicates the purchase happened outside the sale window or after the sale closed.
	ErrNotOpen = errors.New("sale not open")

	// ErrNotWhitelisted indicates the buyer is not on the whitelist.
	ErrNotWhitelisted = errors.New("buyer not whitelisted")

	// ErrUnsupportedPaymentToken indicates the payment token is not accepted by the sale.
	ErrUnsupportedPaymentToken = errors.New("unsupported payment token")

	// ErrInsufficientHoldBalance indicates the buyer holds less than the required hold amount.
	ErrInsufficientHoldBalance = errors.New("insufficient hold balance")

	// ErrBelowMinimumLot indicates the payment converts to less than one lot.
	ErrBelowMinimumLot = errors.New("below minimum lot")

	// ErrLotLimitExceeded indicates the purchase would exceed the buyer's lot limit.
	ErrLotLimitExceeded = errors.New("lot limit exceeded")

	// ErrCapExceeded indicates the purchase would exceed the token cap.
	// Purchases are never partially filled.
	ErrCapExceeded = errors.New("cap exceeded")

	// ErrArithmeticOverflow indicates a fixed-point computation overflowed.
	// It is fatal to the request and never clamped.
	ErrArithmeticOverflow = errors.New("arithmetic overflow")

	// ErrUnauthorized indicates the caller is not allowed to perform a privileged operation.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrInvalidConfig indicates an engine configuration that cannot be used.
	ErrInvalidConfig = errors.New("invalid config")

	// ErrSaleClosed indicates a configuration change was attempted on a closed sale.
	ErrSaleClosed = errors.New("sale closed")

	// ErrTransferFailed indicates the token provider rejected a transfer.
	ErrTransferFailed = errors.New("transfer failed")
)
