// Package vesting releases token grants over time according to a cliff, interval, and gap
// schedule, and settles claims against a grant store.
package vesting

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/holiman/uint256"

	tge "github.com/enjinstarter/enjinstarter-tge-contracts-sub001"
	"github.com/enjinstarter/enjinstarter-tge-contracts-sub001/fixedpoint"
	"github.com/enjinstarter/enjinstarter-tge-contracts-sub001/metrics"
	"github.com/enjinstarter/enjinstarter-tge-contracts-sub001/store"
)

// Payout moves claimed tokens to a beneficiary.
type Payout interface {
	Transfer(ctx context.Context, from, to, token common.Address, amount *uint256.Int) error
}

// Config holds configuration for the Engine.
type Config struct {
	// ID identifies the engine's grants in the store and its metrics (required).
	ID string

	// Schedule is shared by every grant of the engine (required).
	Schedule tge.Schedule

	// Store persists grants (required).
	Store store.GrantStore

	// Deployer may create grants and set the first admin until an admin is set.
	Deployer common.Address

	// Payout transfers claimed tokens when set (optional).
	// Without it Claim only records the claim and returns the amount owed.
	Payout Payout

	// Token is the vested token paid out by Payout.
	Token common.Address

	// Treasury is the account Payout transfers from.
	Treasury common.Address

	// MaxRetries bounds compare-and-swap attempts per operation (default: 8).
	MaxRetries int

	// Logger is for observability (optional).
	Logger tge.Logger

	// Metrics records grant and claim activity (optional).
	Metrics *metrics.Collector
}

// Engine owns one schedule and the grants created under it.
type Engine struct {
	config   Config
	schedule *Schedule

	mu       sync.RWMutex
	admin    common.Address
	adminSet bool
}

// New creates an Engine. Returns tge.ErrInvalidSchedule for an unusable schedule and
// tge.ErrInvalidConfig when a required field is missing.
func New(cfg Config) (*Engine, error) {
	if cfg.ID == "" {
		return nil, fmt.Errorf("ID is required: %w", tge.ErrInvalidConfig)
	}
	if cfg.Store == nil {
		return nil, fmt.Errorf("Store is required: %w", tge.ErrInvalidConfig)
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 8
	}

	schedule, err := NewSchedule(cfg.Schedule)
	if err != nil {
		return nil, err
	}

	return &Engine{
		config:   cfg,
		schedule: schedule,
	}, nil
}

// ID returns the engine's identifier.
func (e *Engine) ID() string {
	return e.config.ID
}

// Schedule returns the engine's validated schedule.
func (e *Engine) Schedule() *Schedule {
	return e.schedule
}

// Admin returns the current admin and whether one has been set.
func (e *Engine) Admin() (common.Address, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.admin, e.adminSet
}

// SetAdmin sets the engine admin. Before an admin exists only the deployer may call it;
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
	previous := e.admin
	e.admin = admin
	e.adminSet = true
	e.mu.Unlock()

	if e.config.Logger != nil {
		e.config.Logger.Info(ctx, "vesting admin set",
			"vesting", e.config.ID,
			"previous", previous.Hex(),
			"admin", admin.Hex())
	}

	return nil
}

func (e *Engine) authorize(caller common.Address) error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.authorizeLocked(caller)
}

func (e *Engine) authorizeLocked(caller common.Address) error {
	if e.adminSet {
		if caller != e.admin {
			return fmt.Errorf("%s is not the vesting admin: %w", caller.Hex(), tge.ErrUnauthorized)
		}
		return nil
	}
	if caller != e.config.Deployer {
		return fmt.Errorf("%s is not the deployer: %w", caller.Hex(), tge.ErrUnauthorized)
	}
	return nil
}

// CreateGrant registers a grant of totalAmount for beneficiary starting at start,
// truncated to whole seconds.
// Returns tge.ErrInvalidAmount for a zero amount and tge.ErrDuplicateGrant if the
// beneficiary already has a grant.
func (e *Engine) CreateGrant(ctx context.Context, caller, beneficiary common.Address, totalAmount *uint256.Int, start time.Time) (tge.Grant, error) {
	if err := e.authorize(caller); err != nil {
		return tge.Grant{}, err
	}
	if totalAmount == nil || totalAmount.IsZero() {
		return tge.Grant{}, tge.ErrInvalidAmount
	}

	grant := tge.Grant{
		VestingID:     e.config.ID,
		Beneficiary:   beneficiary,
		TotalAmount:   new(uint256.Int).Set(totalAmount),
		StartTime:     time.Unix(start.Unix(), 0).UTC(),
		ClaimedAmount: new(uint256.Int),
	}

	if err := e.config.Store.CreateGrant(ctx, grant); err != nil {
		if errors.Is(err, tge.ErrDuplicateGrant) {
			return tge.Grant{}, err
		}
		return tge.Grant{}, fmt.Errorf("failed to create grant: %w", err)
	}

	if e.config.Metrics != nil {
		e.config.Metrics.IncGrantsCreated()
	}
	if e.config.Logger != nil {
		e.config.Logger.Info(ctx, "grant created",
			"vesting", e.config.ID,
			"beneficiary", beneficiary.Hex(),
			"total", totalAmount.Dec(),
			"start", grant.StartTime)
	}

	return grant, nil
}

// IncreaseGrant adds amount to an existing grant. The start time and schedule position
// are kept, so the added amount vests on the original timeline.
// Returns tge.ErrGrantNotFound if the beneficiary has no grant.
func (e *Engine) IncreaseGrant(ctx context.Context, caller, beneficiary common.Address, amount *uint256.Int) (tge.Grant, error) {
	if err := e.authorize(caller); err != nil {
		return tge.Grant{}, err
	}
	if amount == nil || amount.IsZero() {
		return tge.Grant{}, tge.ErrInvalidAmount
	}

	updated, err := e.update(ctx, beneficiary, func(g tge.Grant) (tge.Grant, error) {
		total, err := fixedpoint.Add(g.TotalAmount, amount)
		if err != nil {
			return tge.Grant{}, err
		}
		g.TotalAmount = total
		return g, nil
	})
	if err != nil {
		return tge.Grant{}, err
	}

	if e.config.Metrics != nil {
		e.config.Metrics.IncGrantTopUps()
	}
	if e.config.Logger != nil {
		e.config.Logger.Info(ctx, "grant increased",
			"vesting", e.config.ID,
			"beneficiary", beneficiary.Hex(),
			"added", amount.Dec(),
			"total", updated.TotalAmount.Dec())
	}

	return updated, nil
}

// update applies fn to the stored grant with a bounded compare-and-swap loop.
func (e *Engine) update(ctx context.Context, beneficiary common.Address, fn func(tge.Grant) (tge.Grant, error)) (tge.Grant, error) {
	for attempt := 0; attempt < e.config.MaxRetries; attempt++ {
		current, err := e.config.Store.GetGrant(ctx, e.config.ID, beneficiary)
		if err != nil {
			return tge.Grant{}, err
		}

		updated, err := fn(current)
		if err != nil {
			return tge.Grant{}, err
		}

		err = e.config.Store.CompareAndSwapGrant(ctx, current, updated)
		if errors.Is(err, store.ErrConflict) {
			if e.config.Metrics != nil {
				e.config.Metrics.IncGrantConflicts()
			}
			continue
		}
		if err != nil {
			return tge.Grant{}, fmt.Errorf("failed to update grant: %w", err)
		}

		return updated, nil
	}

	return tge.Grant{}, fmt.Errorf("failed to update grant after %d attempts: %w", e.config.MaxRetries, store.ErrConflict)
}

// Grant returns the beneficiary's grant.
func (e *Engine) Grant(ctx context.Context, beneficiary common.Address) (tge.Grant, error) {
	return e.config.Store.GetGrant(ctx, e.config.ID, beneficiary)
}

// VestedAmount returns how much of the beneficiary's grant has vested at now.
func (e *Engine) VestedAmount(ctx context.Context, beneficiary common.Address, now time.Time) (*uint256.Int, error) {
	grant, err := e.Grant(ctx, beneficiary)
	if err != nil {
		return nil, err
	}
	return e.schedule.VestedAt(grant.TotalAmount, grant.StartTime, now)
}

// Claimable returns how much the beneficiary could claim at now.
func (e *Engine) Claimable(ctx context.Context, beneficiary common.Address, now time.Time) (*uint256.Int, error) {
	grant, err := e.Grant(ctx, beneficiary)
	if err != nil {
		return nil, err
	}
	return e.schedule.Claimable(grant, now)
}

// Claim records the beneficiary's claimable amount as claimed and returns it.
// Concurrent claims for one beneficiary serialise through the grant's compare-and-swap,
// so a vested delta is never claimed twice.
// With a Payout configured the tokens are transferred before Claim returns; a failed
// transfer rolls the claim back and returns tge.ErrTransferFailed. If the rollback fails
// too, the claim is kept on the grant and recorded as unpaid.
// Returns tge.ErrNothingToClaim when nothing new has vested.
func (e *Engine) Claim(ctx context.Context, beneficiary common.Address, now time.Time) (*uint256.Int, error) {
	var amount *uint256.Int

	_, err := e.update(ctx, beneficiary, func(g tge.Grant) (tge.Grant, error) {
		claimable, err := e.schedule.Claimable(g, now)
		if err != nil {
			return tge.Grant{}, err
		}
		if claimable.IsZero() {
			return tge.Grant{}, tge.ErrNothingToClaim
		}

		claimed, err := fixedpoint.Add(g.ClaimedAmount, claimable)
		if err != nil {
			return tge.Grant{}, err
		}

		amount = claimable
		g.ClaimedAmount = claimed
		return g, nil
	})
	if err != nil {
		return nil, err
	}

	if e.config.Payout != nil {
		if err := e.config.Payout.Transfer(ctx, e.config.Treasury, beneficiary, e.config.Token, amount); err != nil {
			if rbErr := e.rollbackClaim(ctx, beneficiary, amount); rbErr != nil {
				if e.config.Logger != nil {
					e.config.Logger.Error(ctx, "failed to roll back claim",
						"vesting", e.config.ID,
						"beneficiary", beneficiary.Hex(),
						"amount", amount.Dec(),
						"error", rbErr)
				}
				e.recordUnpaid(ctx, beneficiary, amount, now, err)
				return nil, fmt.Errorf("%w: %v; failed to roll back claim: %w", tge.ErrTransferFailed, err, rbErr)
			}
			return nil, fmt.Errorf("%w: %v", tge.ErrTransferFailed, err)
		}
	}

	if e.config.Metrics != nil {
		e.config.Metrics.IncClaims()
		e.config.Metrics.AddClaimedTokens(fixedpoint.ToFloat(amount, fixedpoint.Decimals))
	}
	if e.config.Logger != nil {
		e.config.Logger.Info(ctx, "claimed",
			"vesting", e.config.ID,
			"beneficiary", beneficiary.Hex(),
			"amount", amount.Dec())
	}

	return amount, nil
}

// recordUnpaid keeps a claim that stayed on the grant without a transfer so it can be
// paid or reversed later.
func (e *Engine) recordUnpaid(ctx context.Context, beneficiary common.Address, amount *uint256.Int, now time.Time, transferErr error) {
	claim := tge.UnpaidClaim{
		ID:          uuid.New().String(),
		VestingID:   e.config.ID,
		Beneficiary: beneficiary,
		Amount:      amount,
		ClaimedAt:   now,
		Reason:      transferErr.Error(),
	}
	if err := e.config.Store.RecordUnpaidClaim(ctx, claim); err != nil && e.config.Logger != nil {
		e.config.Logger.Error(ctx, "failed to record unpaid claim",
			"vesting", e.config.ID,
			"beneficiary", beneficiary.Hex(),
			"amount", amount.Dec(),
			"error", err)
	}
}

// UnpaidClaims lists claims recorded on a grant whose payout failed and could not be undone.
func (e *Engine) UnpaidClaims(ctx context.Context) ([]tge.UnpaidClaim, error) {
	return e.config.Store.ListUnpaidClaims(ctx, e.config.ID)
}

func (e *Engine) rollbackClaim(ctx context.Context, beneficiary common.Address, amount *uint256.Int) error {
	_, err := e.update(ctx, beneficiary, func(g tge.Grant) (tge.Grant, error) {
		claimed, err := fixedpoint.Sub(g.ClaimedAmount, amount)
		if err != nil {
			return tge.Grant{}, err
		}
		g.ClaimedAmount = claimed
		return g, nil
	})
	return err
}

// ReleaseTable lists the tranches a grant of total starting at start would settle.
func (e *Engine) ReleaseTable(total *uint256.Int, start time.Time) ([]tge.Tranche, error) {
	return e.schedule.ReleaseTable(total, start)
}
