package ledger

import (
	"context"
	"fmt"
	"maps"
	"sync"
)

type inMemoryLedger struct {
	mu           sync.RWMutex
	balances     map[string]int64
	transactions map[string]TransactionResult
}

// NewInMemory creates a concurrency-safe in-memory ledger used in development and tests.
func NewInMemory() Ledger {
	return &inMemoryLedger{
		balances:     map[string]int64{FaucetAccountCode: 0},
		transactions: make(map[string]TransactionResult),
	}
}

func (l *inMemoryLedger) CreateAccount(_ context.Context, code string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, exists := l.balances[code]; exists {
		return fmt.Errorf("%w: %s", ErrAccountExists, code)
	}
	l.balances[code] = 0
	return nil
}

func (l *inMemoryLedger) EnsureAccount(_ context.Context, code string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, exists := l.balances[code]; !exists {
		l.balances[code] = 0
	}
	return nil
}

func (l *inMemoryLedger) Balance(_ context.Context, code string) (int64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	balance, exists := l.balances[code]
	if !exists {
		return 0, fmt.Errorf("%w: %s", ErrAccountNotFound, code)
	}
	return balance, nil
}

func (l *inMemoryLedger) Transfer(_ context.Context, fromCode, toCode, kind, clientTxID string, amount int64) (TransactionResult, error) {
	if amount <= 0 {
		return TransactionResult{}, ErrInvalidAmount
	}
	if fromCode == toCode {
		return TransactionResult{}, ErrSameAccount
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	key := kind + ":" + clientTxID
	if res, exists := l.transactions[key]; exists {
		return res, ErrDuplicateTransaction
	}

	fromBalance, ok := l.balances[fromCode]
	if !ok {
		return TransactionResult{}, ErrInsufficientFunds
	}
	toBalance, ok := l.balances[toCode]
	if !ok {
		return TransactionResult{}, fmt.Errorf("%w: %s", ErrAccountNotFound, toCode)
	}

	if fromBalance < amount {
		return TransactionResult{}, ErrInsufficientFunds
	}

	fromBalance -= amount
	toBalance += amount

	l.balances[fromCode] = fromBalance
	l.balances[toCode] = toBalance

	res := TransactionResult{
		TransactionID: key,
		FromBalance:   fromBalance,
		ToBalance:     toBalance,
	}

	l.transactions[key] = res
	return res, nil
}

func (l *inMemoryLedger) Airdrop(_ context.Context, code, clientTxID string, amount int64) (TransactionResult, error) {
	if amount <= 0 {
		return TransactionResult{}, ErrInvalidAmount
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	key := KindAirdrop + ":" + clientTxID
	if res, exists := l.transactions[key]; exists {
		return res, ErrDuplicateTransaction
	}

	l.balances[FaucetAccountCode] -= amount
	l.balances[code] += amount

	res := TransactionResult{
		TransactionID: key,
		FromBalance:   l.balances[FaucetAccountCode],
		ToBalance:     l.balances[code],
	}
	l.transactions[key] = res
	return res, nil
}

// Checkpoint snapshots an in-memory ledger and returns a function that rolls
// it back to the snapshot. ok is false for other backends.
func Checkpoint(l Ledger) (restore func(), ok bool) {
	mem, ok := l.(*inMemoryLedger)
	if !ok {
		return func() {}, false
	}
	mem.mu.RLock()
	balances := maps.Clone(mem.balances)
	transactions := maps.Clone(mem.transactions)
	mem.mu.RUnlock()

	return func() {
		mem.mu.Lock()
		defer mem.mu.Unlock()
		mem.balances = balances
		mem.transactions = transactions
	}, true
}
