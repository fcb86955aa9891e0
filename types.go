package tge

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// ReleaseMethod selects how an interval's share accrues.
type ReleaseMethod string

const (
	// ReleaseMethodIntervalEnd vests an interval's whole share at the moment the interval ends.
	ReleaseMethodIntervalEnd ReleaseMethod = "interval-end"

	// ReleaseMethodLinearlyPerSecond vests an interval's share second by second while
	// the interval runs. Accrual is frozen during gaps.
	ReleaseMethodLinearlyPerSecond ReleaseMethod = "linearly-per-second"
)

// Valid reports whether m is one of the known release methods.
func (m ReleaseMethod) Valid() bool {
	return m == ReleaseMethodIntervalEnd || m == ReleaseMethodLinearlyPerSecond
}

// Schedule is an immutable vesting schedule shared by every grant of one vesting engine.
// Percentages are 18-decimal fixed point where 100% is 100 * 10^18.
type Schedule struct {
	// CliffDuration is the delay between a grant's start and the first release.
	CliffDuration time.Duration

	// PercentAtStart is released the instant the cliff ends.
	PercentAtStart *uint256.Int

	// PercentPerInterval is released through each interval after the start release.
	PercentPerInterval *uint256.Int

	// IntervalDuration is the length of one accrual interval.
	IntervalDuration time.Duration

	// GapDuration is the pause following each interval before the next one begins.
	GapDuration time.Duration

	// NumberOfIntervals is the count of PercentPerInterval releases.
	NumberOfIntervals uint64

	// ReleaseMethod selects interval-end or per-second accrual.
	ReleaseMethod ReleaseMethod

	// AllowAccumulate lets a single claim settle several completed tranches at once.
	// Without it every tranche is settled by its own claim; nothing is forfeited.
	AllowAccumulate bool
}

// Grant is a beneficiary's entitlement under a vesting schedule.
type Grant struct {
	// VestingID identifies the vesting engine that owns the grant.
	VestingID string

	// Beneficiary receives the vested tokens.
	Beneficiary common.Address

	// TotalAmount is the full entitlement in sale-token base units.
	TotalAmount *uint256.Int

	// StartTime anchors the schedule for this grant.
	StartTime time.Time

	// ClaimedAmount is the amount already released. It only grows.
	ClaimedAmount *uint256.Int
}

// Tranche is one release boundary of a grant.
type Tranche struct {
	// Index is 0 for the start release and i for the end of interval i.
	Index uint64

	// At is when the tranche is fully vested.
	At time.Time

	// Cumulative is the total vested amount once the tranche completes.
	Cumulative *uint256.Int
}

// PaymentToken describes a token accepted as payment in a crowdsale.
type PaymentToken struct {
	// Address is the payment token contract.
	Address common.Address

	// Decimals is the payment token's native decimal scale.
	Decimals uint8

	// Rate is the price of one whole sale token in payment-token units,
	// 18-decimal fixed point regardless of Decimals.
	Rate *uint256.Int
}

// TokenHold requires buyers to hold a minimum balance of a designated token.
type TokenHold struct {
	Token     common.Address
	MinAmount *uint256.Int
}

// SaleState represents the lifecycle state of a crowdsale.
type SaleState string

const (
	// SaleStatePending indicates the opening time has not been reached.
	SaleStatePending SaleState = "pending"

	// SaleStateOpen indicates purchases are accepted.
	SaleStateOpen SaleState = "open"

	// SaleStateClosed indicates the window has passed or the cap is exhausted.
	// Closed is terminal.
	SaleStateClosed SaleState = "closed"
)

// AllocationState is a snapshot of a crowdsale's allocation ledger.
type AllocationState struct {
	// SaleID identifies the crowdsale.
	SaleID string

	// TokensSold is the total reserved against the cap.
	TokensSold *uint256.Int

	// Closed is set once a settled purchase exhausted the cap. Reservations still
	// in flight never set it.
	Closed bool
}

// Receipt describes a settled purchase.
type Receipt struct {
	// ID is the unique identifier for this purchase (UUID).
	ID string

	SaleID       string
	Buyer        common.Address
	PaymentToken common.Address

	// PaymentAmount is what the buyer offered.
	PaymentAmount *uint256.Int

	// PaymentCollected is what was forwarded to the collection wallet.
	PaymentCollected *uint256.Int

	// PaymentRefunded is the non-lot remainder left with the buyer.
	PaymentRefunded *uint256.Int

	// Lots is the number of lots allocated.
	Lots uint64

	// TokenAmount is Lots * LotSize.
	TokenAmount *uint256.Int

	// Vested is true when the allocation became a vesting grant instead of a transfer.
	Vested bool

	PurchasedAt time.Time
}

// UnpaidClaim is a claim that stayed recorded on its grant although the payout
// failed and the claim could not be rolled back. Operators settle these by hand.
type UnpaidClaim struct {
	// ID is the unique identifier for this record (UUID).
	ID string

	VestingID   string
	Beneficiary common.Address

	// Amount is the claimed amount that was never transferred.
	Amount *uint256.Int

	ClaimedAt time.Time

	// Reason is the payout error.
	Reason string
}
