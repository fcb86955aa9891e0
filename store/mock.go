package store

import (
	"context"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	tge "github.com/enjinstarter/enjinstarter-tge-contracts-sub001"
)

// MockGrantStore is a configurable mock implementation of GrantStore
// for use in tests. It allows setting up expected return values, tracking method
// calls, and injecting errors for testing error paths.
type MockGrantStore struct {
	mu sync.RWMutex

	// CreateGrantFunc is called by CreateGrant if set.
	CreateGrantFunc func(ctx context.Context, grant tge.Grant) error

	// GetGrantFunc is called by GetGrant if set.
	GetGrantFunc func(ctx context.Context, vestingID string, beneficiary common.Address) (tge.Grant, error)

	// CompareAndSwapGrantFunc is called by CompareAndSwapGrant if set.
	CompareAndSwapGrantFunc func(ctx context.Context, old, updated tge.Grant) error

	// ListGrantsFunc is called by ListGrants if set.
	ListGrantsFunc func(ctx context.Context, vestingID string) ([]tge.Grant, error)

	// RecordUnpaidClaimFunc is called by RecordUnpaidClaim if set.
	RecordUnpaidClaimFunc func(ctx context.Context, claim tge.UnpaidClaim) error

	// ListUnpaidClaimsFunc is called by ListUnpaidClaims if set.
	ListUnpaidClaimsFunc func(ctx context.Context, vestingID string) ([]tge.UnpaidClaim, error)

	// Call tracking
	CreateGrantCalls         []tge.Grant
	GetGrantCalls            []GetGrantCall
	CompareAndSwapGrantCalls []CompareAndSwapGrantCall
	ListGrantsCalls          []string
	RecordUnpaidClaimCalls   []tge.UnpaidClaim
	ListUnpaidClaimsCalls    []string
}

// Call tracking structs
type GetGrantCall struct {
	VestingID   string
	Beneficiary common.Address
}

type CompareAndSwapGrantCall struct {
	Old     tge.Grant
	Updated tge.Grant
}

// NewMockGrantStore creates a new mock grant store.
func NewMockGrantStore() *MockGrantStore {
	return &MockGrantStore{}
}

// CreateGrant implements GrantStore.
func (m *MockGrantStore) CreateGrant(ctx context.Context, grant tge.Grant) error {
	m.mu.Lock()
	m.CreateGrantCalls = append(m.CreateGrantCalls, grant)
	m.mu.Unlock()

	if m.CreateGrantFunc != nil {
		return m.CreateGrantFunc(ctx, grant)
	}

	return nil
}

// GetGrant implements GrantStore.
func (m *MockGrantStore) GetGrant(ctx context.Context, vestingID string, beneficiary common.Address) (tge.Grant, error) {
	m.mu.Lock()
	m.GetGrantCalls = append(m.GetGrantCalls, GetGrantCall{
		VestingID:   vestingID,
		Beneficiary: beneficiary,
	})
	m.mu.Unlock()

	if m.GetGrantFunc != nil {
		return m.GetGrantFunc(ctx, vestingID, beneficiary)
	}

	return tge.Grant{}, tge.ErrGrantNotFound
}

// CompareAndSwapGrant implements GrantStore.
func (m *MockGrantStore) CompareAndSwapGrant(ctx context.Context, old, updated tge.Grant) error {
	m.mu.Lock()
	m.CompareAndSwapGrantCalls = append(m.CompareAndSwapGrantCalls, CompareAndSwapGrantCall{
		Old:     old,
		Updated: updated,
	})
	m.mu.Unlock()

	if m.CompareAndSwapGrantFunc != nil {
		return m.CompareAndSwapGrantFunc(ctx, old, updated)
	}

	return nil
}

// ListGrants implements GrantStore.
func (m *MockGrantStore) ListGrants(ctx context.Context, vestingID string) ([]tge.Grant, error) {
	m.mu.Lock()
	m.ListGrantsCalls = append(m.ListGrantsCalls, vestingID)
	m.mu.Unlock()

	if m.ListGrantsFunc != nil {
		return m.ListGrantsFunc(ctx, vestingID)
	}

	return []tge.Grant{}, nil
}

// RecordUnpaidClaim implements GrantStore.
func (m *MockGrantStore) RecordUnpaidClaim(ctx context.Context, claim tge.UnpaidClaim) error {
	m.mu.Lock()
	m.RecordUnpaidClaimCalls = append(m.RecordUnpaidClaimCalls, claim)
	m.mu.Unlock()

	if m.RecordUnpaidClaimFunc != nil {
		return m.RecordUnpaidClaimFunc(ctx, claim)
	}

	return nil
}

// ListUnpaidClaims implements GrantStore.
func (m *MockGrantStore) ListUnpaidClaims(ctx context.Context, vestingID string) ([]tge.UnpaidClaim, error) {
	m.mu.Lock()
	m.ListUnpaidClaimsCalls = append(m.ListUnpaidClaimsCalls, vestingID)
	m.mu.Unlock()

	if m.ListUnpaidClaimsFunc != nil {
		return m.ListUnpaidClaimsFunc(ctx, vestingID)
	}

	return []tge.UnpaidClaim{}, nil
}

// Reset clears all call tracking data.
func (m *MockGrantStore) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.CreateGrantCalls = nil
	m.GetGrantCalls = nil
	m.CompareAndSwapGrantCalls = nil
	m.ListGrantsCalls = nil
	m.RecordUnpaidClaimCalls = nil
	m.ListUnpaidClaimsCalls = nil
}

// MockAllocationStore is a configurable mock implementation of AllocationStore.
type MockAllocationStore struct {
	mu sync.RWMutex

	GetAllocationFunc  func(ctx context.Context, saleID string) (tge.AllocationState, error)
	LotsPurchasedFunc  func(ctx context.Context, saleID string, buyer common.Address) (uint64, error)
	ReserveFunc        func(ctx context.Context, saleID string, r Reservation) (tge.AllocationState, error)
	ReleaseFunc        func(ctx context.Context, saleID string, r Reservation) error
	CloseSaleFunc      func(ctx context.Context, saleID string) error
	RecordPurchaseFunc func(ctx context.Context, receipt tge.Receipt) error
	ListPurchasesFunc  func(ctx context.Context, saleID string) ([]tge.Receipt, error)

	// Call tracking
	ReserveCalls        []Reservation
	ReleaseCalls        []Reservation
	CloseSaleCalls      []string
	RecordPurchaseCalls []tge.Receipt
}

// NewMockAllocationStore creates a new mock allocation store.
func NewMockAllocationStore() *MockAllocationStore {
	return &MockAllocationStore{}
}

// GetAllocation implements AllocationStore.
func (m *MockAllocationStore) GetAllocation(ctx context.Context, saleID string) (tge.AllocationState, error) {
	if m.GetAllocationFunc != nil {
		return m.GetAllocationFunc(ctx, saleID)
	}

	return tge.AllocationState{SaleID: saleID}, nil
}

// LotsPurchased implements AllocationStore.
func (m *MockAllocationStore) LotsPurchased(ctx context.Context, saleID string, buyer common.Address) (uint64, error) {
	if m.LotsPurchasedFunc != nil {
		return m.LotsPurchasedFunc(ctx, saleID, buyer)
	}

	return 0, nil
}

// Reserve implements AllocationStore.
func (m *MockAllocationStore) Reserve(ctx context.Context, saleID string, r Reservation) (tge.AllocationState, error) {
	m.mu.Lock()
	m.ReserveCalls = append(m.ReserveCalls, r)
	m.mu.Unlock()

	if m.ReserveFunc != nil {
		return m.ReserveFunc(ctx, saleID, r)
	}

	return tge.AllocationState{SaleID: saleID, TokensSold: r.Amount}, nil
}

// Release implements AllocationStore.
func (m *MockAllocationStore) Release(ctx context.Context, saleID string, r Reservation) error {
	m.mu.Lock()
	m.ReleaseCalls = append(m.ReleaseCalls, r)
	m.mu.Unlock()

	if m.ReleaseFunc != nil {
		return m.ReleaseFunc(ctx, saleID, r)
	}

	return nil
}

// CloseSale implements AllocationStore.
func (m *MockAllocationStore) CloseSale(ctx context.Context, saleID string) error {
	m.mu.Lock()
	m.CloseSaleCalls = append(m.CloseSaleCalls, saleID)
	m.mu.Unlock()

	if m.CloseSaleFunc != nil {
		return m.CloseSaleFunc(ctx, saleID)
	}

	return nil
}

// RecordPurchase implements AllocationStore.
func (m *MockAllocationStore) RecordPurchase(ctx context.Context, receipt tge.Receipt) error {
	m.mu.Lock()
	m.RecordPurchaseCalls = append(m.RecordPurchaseCalls, receipt)
	m.mu.Unlock()

	if m.RecordPurchaseFunc != nil {
		return m.RecordPurchaseFunc(ctx, receipt)
	}

	return nil
}

// ListPurchases implements AllocationStore.
func (m *MockAllocationStore) ListPurchases(ctx context.Context, saleID string) ([]tge.Receipt, error) {
	if m.ListPurchasesFunc != nil {
		return m.ListPurchasesFunc(ctx, saleID)
	}

	return []tge.Receipt{}, nil
}

// Reset clears all call tracking data.
func (m *MockAllocationStore) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.ReserveCalls = nil
	m.ReleaseCalls = nil
	m.CloseSaleCalls = nil
	m.RecordPurchaseCalls = nil
}
