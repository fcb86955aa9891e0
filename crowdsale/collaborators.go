package crowdsale

//go:generate mockgen -source=collaborators.go -destination=collaborators_mock.go -package=crowdsale

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	tge "github.com/enjinstarter/enjinstarter-tge-contracts-sub001"
)

// Whitelist reports which accounts may buy. The sale only reads it.
type Whitelist interface {
	IsWhitelisted(ctx context.Context, account common.Address) (bool, error)
}

// TokenProvider queries balances and moves tokens between accounts.
type TokenProvider interface {
	BalanceOf(ctx context.Context, account, token common.Address) (*uint256.Int, error)
	Transfer(ctx context.Context, from, to, token common.Address, amount *uint256.Int) error
}

// VestingTarget receives allocations as vesting grants instead of direct transfers.
// *vesting.Engine satisfies it.
type VestingTarget interface {
	CreateGrant(ctx context.Context, caller, beneficiary common.Address, totalAmount *uint256.Int, start time.Time) (tge.Grant, error)
	IncreaseGrant(ctx context.Context, caller, beneficiary common.Address, amount *uint256.Int) (tge.Grant, error)
}
