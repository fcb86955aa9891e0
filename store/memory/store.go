package memory

import (
	"bytes"
	"context"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	tge "github.com/enjinstarter/enjinstarter-tge-contracts-sub001"
	"github.com/enjinstarter/enjinstarter-tge-contracts-sub001/store"
)

type grantKey struct {
	vestingID   string
	beneficiary common.Address
}

type lotKey struct {
	saleID string
	buyer  common.Address
}

// Store is an in-memory implementation of GrantStore and AllocationStore.
// It provides thread-safe access to grants and allocations using a sync.RWMutex.
// Amounts are copied on the way in and out so callers never share *uint256.Int values
// with the store.
type Store struct {
	mu        sync.RWMutex
	grants    map[grantKey]tge.Grant
	sold      map[string]*uint256.Int // saleID -> tokens sold
	lots      map[lotKey]uint64
	purchases map[string][]tge.Receipt // saleID -> purchase log
	closed    map[string]bool
	unpaid    map[string][]tge.UnpaidClaim // vestingID -> unpaid claims
}

// New creates a new in-memory store with initialized maps.
func New() *Store {
	return &Store{
		grants:    make(map[grantKey]tge.Grant),
		sold:      make(map[string]*uint256.Int),
		lots:      make(map[lotKey]uint64),
		purchases: make(map[string][]tge.Receipt),
		closed:    make(map[string]bool),
		unpaid:    make(map[string][]tge.UnpaidClaim),
	}
}

var (
	_ store.GrantStore      = (*Store)(nil)
	_ store.AllocationStore = (*Store)(nil)
)

func clone(x *uint256.Int) *uint256.Int {
	if x == nil {
		return new(uint256.Int)
	}
	return new(uint256.Int).Set(x)
}

func cloneGrant(g tge.Grant) tge.Grant {
	g.TotalAmount = clone(g.TotalAmount)
	g.ClaimedAmount = clone(g.ClaimedAmount)
	return g
}

func cloneReceipt(r tge.Receipt) tge.Receipt {
	r.PaymentAmount = clone(r.PaymentAmount)
	r.PaymentCollected = clone(r.PaymentCollected)
	r.PaymentRefunded = clone(r.PaymentRefunded)
	r.TokenAmount = clone(r.TokenAmount)
	return r
}

// CreateGrant persists a new grant.
// Returns tge.ErrDuplicateGrant if the beneficiary already has a grant.
func (s *Store) CreateGrant(ctx context.Context, grant tge.Grant) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := grantKey{grant.VestingID, grant.Beneficiary}
	if _, ok := s.grants[key]; ok {
		return tge.ErrDuplicateGrant
	}

	s.grants[key] = cloneGrant(grant)

	return nil
}

// GetGrant returns the grant of a beneficiary.
// Returns tge.ErrGrantNotFound if the beneficiary has no grant.
func (s *Store) GetGrant(ctx context.Context, vestingID string, beneficiary common.Address) (tge.Grant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	grant, ok := s.grants[grantKey{vestingID, beneficiary}]
	if !ok {
		return tge.Grant{}, tge.ErrGrantNotFound
	}

	return cloneGrant(grant), nil
}

// CompareAndSwapGrant replaces old with updated if the stored amounts still match old.
func (s *Store) CompareAndSwapGrant(ctx context.Context, old, updated tge.Grant) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := grantKey{old.VestingID, old.Beneficiary}
	current, ok := s.grants[key]
	if !ok {
		return tge.ErrGrantNotFound
	}

	if !current.TotalAmount.Eq(clone(old.TotalAmount)) || !current.ClaimedAmount.Eq(clone(old.ClaimedAmount)) {
		return store.ErrConflict
	}

	s.grants[key] = cloneGrant(updated)

	return nil
}

// ListGrants returns every grant of a vesting engine ordered by beneficiary.
func (s *Store) ListGrants(ctx context.Context, vestingID string) ([]tge.Grant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	grants := []tge.Grant{}
	for key, grant := range s.grants {
		if key.vestingID == vestingID {
			grants = append(grants, cloneGrant(grant))
		}
	}

	sort.Slice(grants, func(i, j int) bool {
		return bytes.Compare(grants[i].Beneficiary.Bytes(), grants[j].Beneficiary.Bytes()) < 0
	})

	return grants, nil
}

// RecordUnpaidClaim appends a claim whose payout failed after it was recorded.
func (s *Store) RecordUnpaidClaim(ctx context.Context, claim tge.UnpaidClaim) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	claim.Amount = clone(claim.Amount)
	s.unpaid[claim.VestingID] = append(s.unpaid[claim.VestingID], claim)

	return nil
}

// ListUnpaidClaims returns the unpaid claims of a vesting engine in record order.
func (s *Store) ListUnpaidClaims(ctx context.Context, vestingID string) ([]tge.UnpaidClaim, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	claims := make([]tge.UnpaidClaim, 0, len(s.unpaid[vestingID]))
	for _, c := range s.unpaid[vestingID] {
		c.Amount = clone(c.Amount)
		claims = append(claims, c)
	}

	return claims, nil
}

// GetAllocation returns the sale's allocation totals.
func (s *Store) GetAllocation(ctx context.Context, saleID string) (tge.AllocationState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return tge.AllocationState{SaleID: saleID, TokensSold: clone(s.sold[saleID]), Closed: s.closed[saleID]}, nil
}

// LotsPurchased returns the lots a buyer has reserved in a sale.
func (s *Store) LotsPurchased(ctx context.Context, saleID string, buyer common.Address) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.lots[lotKey{saleID, buyer}], nil
}

// Reserve checks the lot limit and the cap and applies the reservation under the write lock.
func (s *Store) Reserve(ctx context.Context, saleID string, r store.Reservation) (tge.AllocationState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := lotKey{saleID, r.Buyer}
	held := s.lots[key]
	if r.Lots > r.MaxLots || held > r.MaxLots-r.Lots {
		return tge.AllocationState{}, tge.ErrLotLimitExceeded
	}

	sold, overflow := new(uint256.Int).AddOverflow(clone(s.sold[saleID]), clone(r.Amount))
	if overflow || sold.Gt(clone(r.Cap)) {
		return tge.AllocationState{}, tge.ErrCapExceeded
	}

	s.sold[saleID] = sold
	s.lots[key] = held + r.Lots

	return tge.AllocationState{SaleID: saleID, TokensSold: clone(sold)}, nil
}

// Release undoes a previous successful Reserve.
// Returns store.ErrReservationNotFound if the totals are smaller than the reservation.
func (s *Store) Release(ctx context.Context, saleID string, r store.Reservation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := lotKey{saleID, r.Buyer}
	held := s.lots[key]
	sold := clone(s.sold[saleID])
	if held < r.Lots || sold.Lt(clone(r.Amount)) {
		return store.ErrReservationNotFound
	}

	s.sold[saleID] = sold.Sub(sold, clone(r.Amount))
	s.lots[key] = held - r.Lots

	return nil
}

// CloseSale marks the sale closed.
func (s *Store) CloseSale(ctx context.Context, saleID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed[saleID] = true

	return nil
}

// RecordPurchase appends a completed purchase to the sale's purchase log.
func (s *Store) RecordPurchase(ctx context.Context, receipt tge.Receipt) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.purchases[receipt.SaleID] = append(s.purchases[receipt.SaleID], cloneReceipt(receipt))

	return nil
}

// ListPurchases returns the sale's purchase log in purchase order.
func (s *Store) ListPurchases(ctx context.Context, saleID string) ([]tge.Receipt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	receipts := make([]tge.Receipt, 0, len(s.purchases[saleID]))
	for _, r := range s.purchases[saleID] {
		receipts = append(receipts, cloneReceipt(r))
	}

	return receipts, nil
}
