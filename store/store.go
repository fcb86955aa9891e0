package store

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	tge "github.com/enjinstarter/enjinstarter-tge-contracts-sub001"
)

// GrantStore provides persistence for vesting grants.
// Implementations must be safe for concurrent access from multiple engines.
type GrantStore interface {
	// CreateGrant persists a new grant.
	// Returns tge.ErrDuplicateGrant if the beneficiary already has a grant in the vesting engine.
	CreateGrant(ctx context.Context, grant tge.Grant) error

	// GetGrant returns the grant of a beneficiary.
	// Returns tge.ErrGrantNotFound if the beneficiary has no grant in the vesting engine.
	GetGrant(ctx context.Context, vestingID string, beneficiary common.Address) (tge.Grant, error)

	// CompareAndSwapGrant replaces old with updated if the stored total and claimed
	// amounts still equal those of old.
	// Returns ErrConflict if another writer got there first.
	CompareAndSwapGrant(ctx context.Context, old, updated tge.Grant) error

	// ListGrants returns every grant of a vesting engine ordered by beneficiary.
	// Returns an empty slice if the engine has no grants.
	ListGrants(ctx context.Context, vestingID string) ([]tge.Grant, error)

	// RecordUnpaidClaim appends a claim whose payout failed after it was recorded.
	RecordUnpaidClaim(ctx context.Context, claim tge.UnpaidClaim) error

	// ListUnpaidClaims returns the unpaid claims of a vesting engine in record order.
	ListUnpaidClaims(ctx context.Context, vestingID string) ([]tge.UnpaidClaim, error)
}

// Reservation describes one purchase's claim on a sale's remaining supply.
type Reservation struct {
	Buyer common.Address

	// Lots is the number of lots the buyer is purchasing.
	Lots uint64

	// Amount is Lots * LotSize in sale-token base units.
	Amount *uint256.Int

	// Cap is the sale's token cap. Reserve fails with tge.ErrCapExceeded when
	// tokens sold plus Amount would exceed it.
	Cap *uint256.Int

	// MaxLots is the per-buyer lot limit. Reserve fails with tge.ErrLotLimitExceeded
	// when the buyer's lots plus Lots would exceed it.
	MaxLots uint64
}

// AllocationStore provides persistence for crowdsale allocations.
// Reserve and Release must be linearizable per sale.
type AllocationStore interface {
	// GetAllocation returns the sale's allocation totals.
	// A sale with no purchases reports zero tokens sold.
	GetAllocation(ctx context.Context, saleID string) (tge.AllocationState, error)

	// LotsPurchased returns the lots a buyer has reserved in a sale.
	LotsPurchased(ctx context.Context, saleID string, buyer common.Address) (uint64, error)

	// Reserve checks the lot limit and the cap and, if both hold, adds the
	// reservation to the sale and buyer totals in one atomic step.
	// Returns the allocation state after the reservation.
	// Returns ErrConflict if a concurrent writer invalidated the read; callers may retry.
	Reserve(ctx context.Context, saleID string, r Reservation) (tge.AllocationState, error)

	// Release undoes a previous successful Reserve with the same arguments.
	Release(ctx context.Context, saleID string, r Reservation) error

	// CloseSale marks the sale closed for every engine sharing the store.
	// Closing is permanent and closing twice is not an error.
	CloseSale(ctx context.Context, saleID string) error

	// RecordPurchase appends a completed purchase to the sale's purchase log.
	RecordPurchase(ctx context.Context, receipt tge.Receipt) error

	// ListPurchases returns the sale's purchase log in purchase order.
	ListPurchases(ctx context.Context, saleID string) ([]tge.Receipt, error)
}
