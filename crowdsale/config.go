package crowdsale

import (
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	tge "github.com/enjinstarter/enjinstarter-tge-contracts-sub001"
	"github.com/enjinstarter/enjinstarter-tge-contracts-sub001/fixedpoint"
)

// Config holds the parameters of one crowdsale.
type Config struct {
	// ID identifies the sale in the allocation store and its metrics (required).
	ID string

	// Address is the sale's own account (required). It is the caller of vesting
	// grants and the custody account direct allocations are transferred from.
	Address common.Address

	// SaleToken is the token being sold. It is only used for direct delivery.
	SaleToken common.Address

	// TokenCap is the most sale tokens the sale will ever allocate (required).
	TokenCap *uint256.Int

	// LotSize is the purchase granularity in sale-token base units (required).
	LotSize *uint256.Int

	// MaxLotsPerBuyer caps the lots one buyer may hold (required).
	MaxLotsPerBuyer uint64

	// OpeningTime and ClosingTime bound the sale window, both inclusive (required).
	OpeningTime time.Time
	ClosingTime time.Time

	// Wallet receives collected payments (required).
	Wallet common.Address

	// PaymentTokens lists the accepted payment tokens and their rates (required).
	PaymentTokens []tge.PaymentToken

	// TokenHold restricts purchases to holders of a designated token (optional).
	TokenHold *tge.TokenHold

	// Deployer may configure the sale until an admin is set.
	Deployer common.Address

	// MaxRetries bounds reservation attempts per purchase (default: 8).
	MaxRetries int
}

// Validate checks the configuration and returns tge.ErrInvalidConfig on the first problem found.
func (c Config) Validate() error {
	switch {
	case c.ID == "":
		return fmt.Errorf("ID is required: %w", tge.ErrInvalidConfig)
	case c.Address == (common.Address{}):
		return fmt.Errorf("sale address is required: %w", tge.ErrInvalidConfig)
	case c.Wallet == (common.Address{}):
		return fmt.Errorf("wallet is required: %w", tge.ErrInvalidConfig)
	case c.TokenCap == nil || c.TokenCap.IsZero():
		return fmt.Errorf("token cap must be positive: %w", tge.ErrInvalidConfig)
	case c.LotSize == nil || c.LotSize.IsZero():
		return fmt.Errorf("lot size must be positive: %w", tge.ErrInvalidConfig)
	case c.LotSize.Gt(c.TokenCap):
		return fmt.Errorf("lot size %s exceeds token cap %s: %w", c.LotSize.Dec(), c.TokenCap.Dec(), tge.ErrInvalidConfig)
	case c.MaxLotsPerBuyer == 0:
		return fmt.Errorf("max lots per buyer must be positive: %w", tge.ErrInvalidConfig)
	case len(c.PaymentTokens) == 0:
		return fmt.Errorf("at least one payment token is required: %w", tge.ErrInvalidConfig)
	}

	if err := validateWindow(c.OpeningTime, c.ClosingTime); err != nil {
		return err
	}

	seen := make(map[common.Address]struct{}, len(c.PaymentTokens))
	for _, pt := range c.PaymentTokens {
		if err := validatePaymentToken(pt); err != nil {
			return err
		}
		if _, ok := seen[pt.Address]; ok {
			return fmt.Errorf("payment token %s listed twice: %w", pt.Address.Hex(), tge.ErrInvalidConfig)
		}
		seen[pt.Address] = struct{}{}
	}

	if c.TokenHold != nil {
		if c.TokenHold.Token == (common.Address{}) {
			return fmt.Errorf("token hold requires a token: %w", tge.ErrInvalidConfig)
		}
		if c.TokenHold.MinAmount == nil {
			return fmt.Errorf("token hold requires a minimum amount: %w", tge.ErrInvalidConfig)
		}
	}

	return nil
}

func validateWindow(opening, closing time.Time) error {
	if opening.IsZero() || closing.IsZero() {
		return fmt.Errorf("opening and closing times are required: %w", tge.ErrInvalidConfig)
	}
	if !opening.Before(closing) {
		return fmt.Errorf("opening time %s must precede closing time %s: %w",
			opening.Format(time.RFC3339), closing.Format(time.RFC3339), tge.ErrInvalidConfig)
	}
	return nil
}

func validatePaymentToken(pt tge.PaymentToken) error {
	if pt.Address == (common.Address{}) {
		return fmt.Errorf("payment token address is required: %w", tge.ErrInvalidConfig)
	}
	if pt.Rate == nil || pt.Rate.IsZero() {
		return fmt.Errorf("payment token %s has no rate: %w", pt.Address.Hex(), tge.ErrInvalidConfig)
	}
	scale, err := fixedpoint.Pow10(uint(pt.Decimals))
	if err != nil {
		return fmt.Errorf("payment token %s has %d decimals: %w", pt.Address.Hex(), pt.Decimals, tge.ErrInvalidConfig)
	}
	if _, err := fixedpoint.Mul(pt.Rate, scale); err != nil {
		return fmt.Errorf("payment token %s rate overflows: %w", pt.Address.Hex(), tge.ErrInvalidConfig)
	}
	return nil
}

func clonePaymentToken(pt tge.PaymentToken) tge.PaymentToken {
	pt.Rate = new(uint256.Int).Set(pt.Rate)
	return pt
}
