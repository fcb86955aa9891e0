// Package chainsim simulates the token ledger and whitelist a sale runs against.
package chainsim

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/enjinstarter/enjinstarter-tge-contracts-sub001/fixedpoint"
)

// ErrInsufficientBalance is returned by Transfer when the sender holds too little.
var ErrInsufficientBalance = errors.New("insufficient balance")

type holding struct {
	account common.Address
	token   common.Address
}

// Bank tracks token balances per account. It is safe for concurrent use.
type Bank struct {
	mu       sync.Mutex
	balances map[holding]*uint256.Int
}

// NewBank creates an empty Bank.
func NewBank() *Bank {
	return &Bank{balances: make(map[holding]*uint256.Int)}
}

// Mint credits amount of token to account.
func (b *Bank) Mint(account, token common.Address, amount *uint256.Int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	key := holding{account, token}
	balance, err := fixedpoint.Add(b.balance(key), amount)
	if err != nil {
		return fmt.Errorf("failed to mint: %w", err)
	}
	b.balances[key] = balance
	return nil
}

func (b *Bank) balance(key holding) *uint256.Int {
	if v, ok := b.balances[key]; ok {
		return v
	}
	return new(uint256.Int)
}

// BalanceOf returns account's balance of token.
func (b *Bank) BalanceOf(_ context.Context, account, token common.Address) (*uint256.Int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return new(uint256.Int).Set(b.balance(holding{account, token})), nil
}

// Transfer moves amount of token from one account to another.
// Returns ErrInsufficientBalance if from holds less than amount.
func (b *Bank) Transfer(_ context.Context, from, to, token common.Address, amount *uint256.Int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	src, dst := holding{from, token}, holding{to, token}

	fromBalance := b.balance(src)
	if fromBalance.Lt(amount) {
		return fmt.Errorf("%s holds %s of %s, needs %s: %w",
			from.Hex(), fromBalance.Dec(), token.Hex(), amount.Dec(), ErrInsufficientBalance)
	}
	remaining := new(uint256.Int).Sub(fromBalance, amount)

	if from == to {
		return nil
	}
	toBalance, err := fixedpoint.Add(b.balance(dst), amount)
	if err != nil {
		return fmt.Errorf("failed to credit %s: %w", to.Hex(), err)
	}

	b.balances[src] = remaining
	b.balances[dst] = toBalance
	return nil
}
