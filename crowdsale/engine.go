// Package crowdsale converts payments in several tokens into capped, lot-quantised
// sale-token allocations, delivered directly or as vesting grants.
package crowdsale

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/holiman/uint256"

	tge "github.com/enjinstarter/enjinstarter-tge-contracts-sub001"
	"github.com/enjinstarter/enjinstarter-tge-contracts-sub001/fixedpoint"
	"github.com/enjinstarter/enjinstarter-tge-contracts-sub001/store"
	"github.com/enjinstarter/enjinstarter-tge-contracts-sub001/store/memory"
)

// Engine runs one crowdsale.
type Engine struct {
	cfg  Config
	opts options

	mu            sync.RWMutex
	opening       time.Time
	closing       time.Time
	paymentTokens map[common.Address]tge.PaymentToken
	admin         common.Address
	adminSet      bool
	closed        bool
}

// New creates a crowdsale Engine.
//
// Required options:
//   - WithWhitelist: whitelist consulted on every purchase
//   - WithTokens: token provider for hold checks, payment collection, and direct delivery
//
// Optional configuration (with defaults):
//   - WithVesting: vesting target for allocations (default: direct transfer)
//   - WithStore: allocation ledger (default: in-memory store)
//   - WithLogger: logger for observability (default: nil)
//   - WithMetrics: metrics collector (default: nil)
//
// Returns an error if cfg is invalid or a required option is missing.
func New(cfg Config, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	if o.whitelist == nil {
		return nil, fmt.Errorf("whitelist is required: use WithWhitelist option")
	}
	if o.tokens == nil {
		return nil, fmt.Errorf("token provider is required: use WithTokens option")
	}
	if o.store == nil {
		o.store = memory.New()
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 8
	}

	cfg.TokenCap = new(uint256.Int).Set(cfg.TokenCap)
	cfg.LotSize = new(uint256.Int).Set(cfg.LotSize)
	if cfg.TokenHold != nil {
		hold := *cfg.TokenHold
		hold.MinAmount = new(uint256.Int).Set(hold.MinAmount)
		cfg.TokenHold = &hold
	}

	e := &Engine{
		cfg:           cfg,
		opts:          o,
		opening:       cfg.OpeningTime,
		closing:       cfg.ClosingTime,
		paymentTokens: make(map[common.Address]tge.PaymentToken, len(cfg.PaymentTokens)),
	}
	for _, pt := range cfg.PaymentTokens {
		e.paymentTokens[pt.Address] = clonePaymentToken(pt)
	}

	if o.metrics != nil {
		o.metrics.SetSaleState(string(tge.SaleStatePending))
	}

	return e, nil
}

// ID returns the sale's identifier.
func (e *Engine) ID() string {
	return e.cfg.ID
}

// Address returns the sale's own account.
func (e *Engine) Address() common.Address {
	return e.cfg.Address
}

// Window returns the current opening and closing times.
func (e *Engine) Window() (opening, closing time.Time) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.opening, e.closing
}

// PaymentTokens returns the accepted payment tokens ordered by address.
func (e *Engine) PaymentTokens() []tge.PaymentToken {
	e.mu.RLock()
	defer e.mu.RUnlock()

	tokens := make([]tge.PaymentToken, 0, len(e.paymentTokens))
	for _, pt := range e.paymentTokens {
		tokens = append(tokens, clonePaymentToken(pt))
	}
	sort.Slice(tokens, func(i, j int) bool {
		return bytes.Compare(tokens[i].Address.Bytes(), tokens[j].Address.Bytes()) < 0
	})
	return tokens
}

// Allocation returns the sale's allocation totals.
func (e *Engine) Allocation(ctx context.Context) (tge.AllocationState, error) {
	return e.opts.store.GetAllocation(ctx, e.cfg.ID)
}

// LotsPurchased returns the lots buyer holds in this sale.
func (e *Engine) LotsPurchased(ctx context.Context, buyer common.Address) (uint64, error) {
	return e.opts.store.LotsPurchased(ctx, e.cfg.ID, buyer)
}

// Purchases returns the sale's purchase log in purchase order.
func (e *Engine) Purchases(ctx context.Context) ([]tge.Receipt, error) {
	return e.opts.store.ListPurchases(ctx, e.cfg.ID)
}

// State returns the sale's lifecycle state at now.
// Once the window has passed the sale stays closed even if the window is later
// reported differently by the caller's clock. The cap closes the sale only after
// the purchase that exhausted it has settled; a reservation still in flight at
// the cap leaves the sale open and concurrent buyers get tge.ErrCapExceeded.
func (e *Engine) State(ctx context.Context, now time.Time) (tge.SaleState, error) {
	e.mu.Lock()
	if !e.closed && now.After(e.closing) {
		e.closed = true
	}
	closed, opening := e.closed, e.opening
	e.mu.Unlock()

	state := tge.SaleStateOpen
	switch {
	case closed:
		state = tge.SaleStateClosed
	case now.Before(opening):
		state = tge.SaleStatePending
	default:
		alloc, err := e.opts.store.GetAllocation(ctx, e.cfg.ID)
		if err != nil {
			return "", fmt.Errorf("failed to get allocation: %w", err)
		}
		if alloc.Closed {
			e.mu.Lock()
			e.closed = true
			e.mu.Unlock()
			state = tge.SaleStateClosed
		}
	}

	if e.opts.metrics != nil {
		e.opts.metrics.SetSaleState(string(state))
	}

	return state, nil
}

// Quote previews the settlement of paying amount in token.
// Returns tge.ErrUnsupportedPaymentToken if the token is not accepted.
func (e *Engine) Quote(token common.Address, amount *uint256.Int) (Quote, error) {
	pt, ok := e.paymentToken(token)
	if !ok {
		return Quote{}, fmt.Errorf("%s: %w", token.Hex(), tge.ErrUnsupportedPaymentToken)
	}
	return quote(pt, e.cfg.LotSize, amount)
}

func (e *Engine) paymentToken(token common.Address) (tge.PaymentToken, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	pt, ok := e.paymentTokens[token]
	return pt, ok
}

// Purchase converts paymentAmount of paymentToken into whole lots for buyer.
// Only the cost of the allocated lots is collected into the wallet; the remainder
// stays with the buyer and is reported as the receipt's PaymentRefunded.
// A purchase either settles in full or leaves the allocation ledger unchanged.
func (e *Engine) Purchase(ctx context.Context, buyer, paymentToken common.Address, paymentAmount *uint256.Int, now time.Time) (tge.Receipt, error) {
	began := time.Now()

	receipt, err := e.purchase(ctx, buyer, paymentToken, paymentAmount, now)
	if err != nil {
		if e.opts.metrics != nil {
			e.opts.metrics.IncPurchaseFailures(FailureReason(err))
		}
		if e.opts.logger != nil {
			e.opts.logger.Debug(ctx, "purchase rejected",
				"sale", e.cfg.ID,
				"buyer", buyer.Hex(),
				"paymentToken", paymentToken.Hex(),
				"error", err)
		}
		return tge.Receipt{}, err
	}

	if e.opts.metrics != nil {
		e.opts.metrics.IncPurchases()
		e.opts.metrics.AddLotsSold(receipt.Lots)
		e.opts.metrics.ObservePurchaseDuration(time.Since(began).Seconds())
	}
	if e.opts.logger != nil {
		e.opts.logger.Info(ctx, "purchase settled",
			"sale", e.cfg.ID,
			"receipt", receipt.ID,
			"buyer", buyer.Hex(),
			"lots", receipt.Lots,
			"tokens", receipt.TokenAmount.Dec(),
			"collected", receipt.PaymentCollected.Dec(),
			"refunded", receipt.PaymentRefunded.Dec(),
			"vested", receipt.Vested)
	}

	return receipt, nil
}

func (e *Engine) purchase(ctx context.Context, buyer, paymentToken common.Address, paymentAmount *uint256.Int, now time.Time) (tge.Receipt, error) {
	state, err := e.State(ctx, now)
	if err != nil {
		return tge.Receipt{}, err
	}
	if state != tge.SaleStateOpen {
		return tge.Receipt{}, fmt.Errorf("sale is %s: %w", state, tge.ErrNotOpen)
	}

	ok, err := e.opts.whitelist.IsWhitelisted(ctx, buyer)
	if err != nil {
		return tge.Receipt{}, fmt.Errorf("failed to check whitelist: %w", err)
	}
	if !ok {
		return tge.Receipt{}, tge.ErrNotWhitelisted
	}

	pt, ok := e.paymentToken(paymentToken)
	if !ok {
		return tge.Receipt{}, fmt.Errorf("%s: %w", paymentToken.Hex(), tge.ErrUnsupportedPaymentToken)
	}

	if hold := e.cfg.TokenHold; hold != nil {
		balance, err := e.opts.tokens.BalanceOf(ctx, buyer, hold.Token)
		if err != nil {
			return tge.Receipt{}, fmt.Errorf("failed to get hold balance: %w", err)
		}
		if balance == nil || balance.Lt(hold.MinAmount) {
			return tge.Receipt{}, tge.ErrInsufficientHoldBalance
		}
	}

	q, err := quote(pt, e.cfg.LotSize, paymentAmount)
	if err != nil {
		return tge.Receipt{}, err
	}
	if q.Lots == 0 {
		return tge.Receipt{}, tge.ErrBelowMinimumLot
	}

	reservation := store.Reservation{
		Buyer:   buyer,
		Lots:    q.Lots,
		Amount:  q.TokenAmount,
		Cap:     e.cfg.TokenCap,
		MaxLots: e.cfg.MaxLotsPerBuyer,
	}
	alloc, err := e.reserve(ctx, reservation)
	if err != nil {
		return tge.Receipt{}, err
	}

	if err := e.opts.tokens.Transfer(ctx, buyer, e.cfg.Wallet, paymentToken, q.Cost); err != nil {
		e.release(ctx, reservation)
		return tge.Receipt{}, fmt.Errorf("failed to collect payment: %w: %v", tge.ErrTransferFailed, err)
	}

	vested, err := e.deliver(ctx, buyer, q.TokenAmount, now)
	if err != nil {
		e.refund(ctx, buyer, paymentToken, q.Cost)
		e.release(ctx, reservation)
		return tge.Receipt{}, err
	}

	if !alloc.TokensSold.Lt(e.cfg.TokenCap) {
		e.close(ctx, "cap reached")
	}
	if e.opts.metrics != nil {
		e.opts.metrics.SetTokensSold(fixedpoint.ToFloat(alloc.TokensSold, fixedpoint.Decimals))
	}

	receipt := tge.Receipt{
		ID:               uuid.NewString(),
		SaleID:           e.cfg.ID,
		Buyer:            buyer,
		PaymentToken:     paymentToken,
		PaymentAmount:    q.PaymentAmount,
		PaymentCollected: q.Cost,
		PaymentRefunded:  q.Refund,
		Lots:             q.Lots,
		TokenAmount:      q.TokenAmount,
		Vested:           vested,
		PurchasedAt:      now,
	}

	if err := e.opts.store.RecordPurchase(ctx, receipt); err != nil && e.opts.logger != nil {
		e.opts.logger.Error(ctx, "failed to record purchase",
			"sale", e.cfg.ID,
			"receipt", receipt.ID,
			"error", err)
	}

	return receipt, nil
}

// reserve applies the reservation, retrying when a concurrent writer wins the race.
func (e *Engine) reserve(ctx context.Context, r store.Reservation) (tge.AllocationState, error) {
	for attempt := 0; attempt < e.cfg.MaxRetries; attempt++ {
		alloc, err := e.opts.store.Reserve(ctx, e.cfg.ID, r)
		if errors.Is(err, store.ErrConflict) {
			if e.opts.metrics != nil {
				e.opts.metrics.IncReservationConflicts()
			}
			continue
		}
		if err != nil {
			if errors.Is(err, tge.ErrCapExceeded) || errors.Is(err, tge.ErrLotLimitExceeded) {
				return tge.AllocationState{}, err
			}
			return tge.AllocationState{}, fmt.Errorf("failed to reserve allocation: %w", err)
		}
		return alloc, nil
	}

	return tge.AllocationState{}, fmt.Errorf("failed to reserve allocation after %d attempts: %w", e.cfg.MaxRetries, store.ErrConflict)
}

// release undoes a reservation after a failed settlement step.
func (e *Engine) release(ctx context.Context, r store.Reservation) {
	var err error
	for attempt := 0; attempt < e.cfg.MaxRetries; attempt++ {
		err = e.opts.store.Release(ctx, e.cfg.ID, r)
		if !errors.Is(err, store.ErrConflict) {
			break
		}
	}
	if err != nil && e.opts.logger != nil {
		e.opts.logger.Error(ctx, "failed to release reservation",
			"sale", e.cfg.ID,
			"buyer", r.Buyer.Hex(),
			"lots", r.Lots,
			"amount", r.Amount.Dec(),
			"error", err)
	}
}

func (e *Engine) refund(ctx context.Context, buyer, paymentToken common.Address, amount *uint256.Int) {
	if err := e.opts.tokens.Transfer(ctx, e.cfg.Wallet, buyer, paymentToken, amount); err != nil && e.opts.logger != nil {
		e.opts.logger.Error(ctx, "failed to refund payment",
			"sale", e.cfg.ID,
			"buyer", buyer.Hex(),
			"paymentToken", paymentToken.Hex(),
			"amount", amount.Dec(),
			"error", err)
	}
}

// deliver hands the allocation to the buyer and reports whether it became a grant.
// An existing grant is topped up.
func (e *Engine) deliver(ctx context.Context, buyer common.Address, amount *uint256.Int, now time.Time) (bool, error) {
	if e.opts.vesting == nil {
		if err := e.opts.tokens.Transfer(ctx, e.cfg.Address, buyer, e.cfg.SaleToken, amount); err != nil {
			return false, fmt.Errorf("failed to transfer sale tokens: %w: %v", tge.ErrTransferFailed, err)
		}
		return false, nil
	}

	_, err := e.opts.vesting.CreateGrant(ctx, e.cfg.Address, buyer, amount, now)
	if errors.Is(err, tge.ErrDuplicateGrant) {
		_, err = e.opts.vesting.IncreaseGrant(ctx, e.cfg.Address, buyer, amount)
	}
	if err != nil {
		return false, fmt.Errorf("failed to grant allocation: %w", err)
	}
	return true, nil
}

// close latches the sale closed and commits the flag so engines sharing the store
// observe it too.
func (e *Engine) close(ctx context.Context, reason string) {
	var err error
	for attempt := 0; attempt < e.cfg.MaxRetries; attempt++ {
		err = e.opts.store.CloseSale(ctx, e.cfg.ID)
		if !errors.Is(err, store.ErrConflict) {
			break
		}
	}
	if err != nil && e.opts.logger != nil {
		e.opts.logger.Error(ctx, "failed to record sale close",
			"sale", e.cfg.ID,
			"error", err)
	}

	e.mu.Lock()
	already := e.closed
	e.closed = true
	e.mu.Unlock()

	if already {
		return
	}
	if e.opts.metrics != nil {
		e.opts.metrics.SetSaleState(string(tge.SaleStateClosed))
	}
	if e.opts.logger != nil {
		e.opts.logger.Info(ctx, "sale closed", "sale", e.cfg.ID, "reason", reason)
	}
}

// SetAdmin sets the sale admin. Before an admin exists only the deployer may call it;
// afterwards only the current admin may rotate it.
func (e *Engine) SetAdmin(ctx context.Context, caller, admin common.Address) error {
	if admin == (common.Address{}) {
		return fmt.Errorf("zero admin address: %w", tge.ErrInvalidConfig)
	}

	e.mu.Lock()
	if err := e.authorizeLocked(caller); err != nil {
		e.mu.Unlock()
		return err
	}
	e.admin = admin
	e.adminSet = true
	e.mu.Unlock()

	if e.opts.logger != nil {
		e.opts.logger.Info(ctx, "sale admin set", "sale", e.cfg.ID, "admin", admin.Hex())
	}
	return nil
}

// Admin returns the current admin and whether one has been set.
func (e *Engine) Admin() (common.Address, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.admin, e.adminSet
}

func (e *Engine) authorizeLocked(caller common.Address) error {
	if e.adminSet {
		if caller != e.admin {
			return fmt.Errorf("%s is not the sale admin: %w", caller.Hex(), tge.ErrUnauthorized)
		}
		return nil
	}
	if caller != e.cfg.Deployer {
		return fmt.Errorf("%s is not the deployer: %w", caller.Hex(), tge.ErrUnauthorized)
	}
	return nil
}

// SetWindow moves the sale window.
// Returns tge.ErrSaleClosed once the sale has closed.
func (e *Engine) SetWindow(ctx context.Context, caller common.Address, opening, closing time.Time) error {
	if err := validateWindow(opening, closing); err != nil {
		return err
	}

	e.mu.Lock()
	if err := e.authorizeLocked(caller); err != nil {
		e.mu.Unlock()
		return err
	}
	if e.closed {
		e.mu.Unlock()
		return tge.ErrSaleClosed
	}
	e.opening, e.closing = opening, closing
	e.mu.Unlock()

	if e.opts.logger != nil {
		e.opts.logger.Info(ctx, "sale window set",
			"sale", e.cfg.ID,
			"opening", opening,
			"closing", closing)
	}
	return nil
}

// SetPaymentToken adds a payment token or updates its rate.
func (e *Engine) SetPaymentToken(ctx context.Context, caller common.Address, pt tge.PaymentToken) error {
	if err := validatePaymentToken(pt); err != nil {
		return err
	}

	e.mu.Lock()
	if err := e.authorizeLocked(caller); err != nil {
		e.mu.Unlock()
		return err
	}
	e.paymentTokens[pt.Address] = clonePaymentToken(pt)
	e.mu.Unlock()

	if e.opts.logger != nil {
		e.opts.logger.Info(ctx, "payment token set",
			"sale", e.cfg.ID,
			"token", pt.Address.Hex(),
			"decimals", pt.Decimals,
			"rate", fixedpoint.FormatUnits(pt.Rate, fixedpoint.Decimals))
	}
	return nil
}

// RemovePaymentToken stops accepting token.
// Returns tge.ErrUnsupportedPaymentToken if the token was not accepted.
func (e *Engine) RemovePaymentToken(ctx context.Context, caller, token common.Address) error {
	e.mu.Lock()
	if err := e.authorizeLocked(caller); err != nil {
		e.mu.Unlock()
		return err
	}
	if _, ok := e.paymentTokens[token]; !ok {
		e.mu.Unlock()
		return fmt.Errorf("%s: %w", token.Hex(), tge.ErrUnsupportedPaymentToken)
	}
	delete(e.paymentTokens, token)
	e.mu.Unlock()

	if e.opts.logger != nil {
		e.opts.logger.Info(ctx, "payment token removed", "sale", e.cfg.ID, "token", token.Hex())
	}
	return nil
}
