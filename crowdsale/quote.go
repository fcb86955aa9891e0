package crowdsale

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	tge "github.com/enjinstarter/enjinstarter-tge-contracts-sub001"
	"github.com/enjinstarter/enjinstarter-tge-contracts-sub001/fixedpoint"
)

// Quote is the settlement a payment would produce, before any window, whitelist,
// lot limit, or cap check.
type Quote struct {
	PaymentToken  common.Address
	PaymentAmount *uint256.Int

	// SaleAmount is the payment converted to sale-token base units.
	SaleAmount *uint256.Int

	// Lots is SaleAmount quantised down to whole lots.
	Lots uint64

	// TokenAmount is Lots * LotSize.
	TokenAmount *uint256.Int

	// Cost is the smallest payment that buys TokenAmount. It never exceeds PaymentAmount.
	Cost *uint256.Int

	// Refund is PaymentAmount - Cost.
	Refund *uint256.Int
}

func quote(pt tge.PaymentToken, lotSize, paymentAmount *uint256.Int) (Quote, error) {
	if paymentAmount == nil {
		paymentAmount = new(uint256.Int)
	}

	sale, err := fixedpoint.ToSaleUnits(paymentAmount, pt.Decimals, pt.Rate)
	if err != nil {
		return Quote{}, err
	}

	lots := new(uint256.Int).Div(sale, lotSize)
	if !lots.IsUint64() {
		return Quote{}, fmt.Errorf("%s lots: %w", lots.Dec(), tge.ErrArithmeticOverflow)
	}

	amount, err := fixedpoint.Mul(lots, lotSize)
	if err != nil {
		return Quote{}, err
	}

	cost, err := fixedpoint.PaymentCost(amount, pt.Decimals, pt.Rate)
	if err != nil {
		return Quote{}, err
	}
	refund, err := fixedpoint.Sub(paymentAmount, cost)
	if err != nil {
		return Quote{}, err
	}

	return Quote{
		PaymentToken:  pt.Address,
		PaymentAmount: new(uint256.Int).Set(paymentAmount),
		SaleAmount:    sale,
		Lots:          lots.Uint64(),
		TokenAmount:   amount,
		Cost:          cost,
		Refund:        refund,
	}, nil
}

// QuotePayment previews a payment against cfg without building an Engine.
// Returns tge.ErrInvalidConfig for an invalid cfg and tge.ErrUnsupportedPaymentToken
// if cfg does not accept token.
func QuotePayment(cfg Config, token common.Address, amount *uint256.Int) (Quote, error) {
	if err := cfg.Validate(); err != nil {
		return Quote{}, err
	}
	for _, pt := range cfg.PaymentTokens {
		if pt.Address == token {
			return quote(pt, cfg.LotSize, amount)
		}
	}
	return Quote{}, fmt.Errorf("%s: %w", token.Hex(), tge.ErrUnsupportedPaymentToken)
}
