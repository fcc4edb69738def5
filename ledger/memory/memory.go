// Package memory provides an in-memory Ledger for tests, examples, and
// embedded deployments. The authorization engine only ever sees the Ledger
// interface; this is the simplest collaborator that satisfies it.
package memory

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

type allowanceKey struct {
	owner   common.Address
	spender common.Address
}

// Ledger is a mutex-guarded balance and allowance table.
type Ledger struct {
	mu         sync.RWMutex
	balances   map[common.Address]*big.Int
	allowances map[allowanceKey]*big.Int
}

// New creates an empty ledger.
func New() *Ledger {
	return &Ledger{
		balances:   make(map[common.Address]*big.Int),
		allowances: make(map[allowanceKey]*big.Int),
	}
}

// Mint credits an account, for seeding test and example state.
func (l *Ledger) Mint(account common.Address, value *big.Int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[account] = new(big.Int).Add(l.balance(account), value)
}

// Transfer moves value between accounts, failing atomically when the
// sender's balance is insufficient.
func (l *Ledger) Transfer(ctx context.Context, from, to common.Address, value *big.Int) error {
	if value.Sign() < 0 {
		return fmt.Errorf("negative transfer value %s", value)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	fromBalance := l.balance(from)
	if fromBalance.Cmp(value) < 0 {
		return fmt.Errorf("insufficient balance: %s has %s, needs %s", from.Hex(), fromBalance, value)
	}

	l.balances[from] = new(big.Int).Sub(fromBalance, value)
	l.balances[to] = new(big.Int).Add(l.balance(to), value)
	return nil
}

// Approve replaces the spender's allowance over the owner's funds.
func (l *Ledger) Approve(ctx context.Context, owner, spender common.Address, value *big.Int) error {
	if value.Sign() < 0 {
		return fmt.Errorf("negative allowance value %s", value)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.allowances[allowanceKey{owner, spender}] = new(big.Int).Set(value)
	return nil
}

// BalanceOf returns the account's balance.
func (l *Ledger) BalanceOf(account common.Address) *big.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return new(big.Int).Set(l.balance(account))
}

// Allowance returns the spender's allowance over the owner's funds.
func (l *Ledger) Allowance(owner, spender common.Address) *big.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if a, ok := l.allowances[allowanceKey{owner, spender}]; ok {
		return new(big.Int).Set(a)
	}
	return new(big.Int)
}

// balance returns the raw balance entry; callers hold the lock.
func (l *Ledger) balance(account common.Address) *big.Int {
	if b, ok := l.balances[account]; ok {
		return b
	}
	return new(big.Int)
}
