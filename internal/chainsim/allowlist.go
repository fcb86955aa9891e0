package chainsim

import (
	"context"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// AllowList is an in-memory whitelist.
type AllowList struct {
	mu      sync.RWMutex
	members map[common.Address]struct{}
}

// NewAllowList creates an AllowList containing accounts.
func NewAllowList(accounts ...common.Address) *AllowList {
	l := &AllowList{members: make(map[common.Address]struct{}, len(accounts))}
	for _, a := range accounts {
		l.members[a] = struct{}{}
	}
	return l
}

// Add puts accounts on the list.
func (l *AllowList) Add(accounts ...common.Address) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, a := range accounts {
		l.members[a] = struct{}{}
	}
}

// Remove takes accounts off the list.
func (l *AllowList) Remove(accounts ...common.Address) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, a := range accounts {
		delete(l.members, a)
	}
}

// IsWhitelisted reports whether account is on the list.
func (l *AllowList) IsWhitelisted(_ context.Context, account common.Address) (bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.members[account]
	return ok, nil
}
