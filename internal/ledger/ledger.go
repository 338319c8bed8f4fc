package ledger

import (
	"context"
	"errors"
)

var (
	// ErrInsufficientFunds occurs when the source account lacks available balance
	// to cover a requested posting.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrDuplicateTransaction indicates the provided client transaction identifier
	// already exists and therefore the operation should be treated as idempotent.
	ErrDuplicateTransaction = errors.New("duplicate transaction")

	// ErrAccountExists is returned by CreateAccount when the code is already taken.
	ErrAccountExists = errors.New("account already exists")

	// ErrAccountNotFound is returned when an account code has never been created.
	ErrAccountNotFound = errors.New("account not found")

	// ErrInvalidAmount rejects non-positive postings.
	ErrInvalidAmount = errors.New("amount must be positive")

	// ErrSameAccount rejects postings whose source and destination coincide.
	ErrSameAccount = errors.New("source and destination accounts are the same")
)

const (
	// StatusCompleted represents a settled transaction.
	StatusCompleted = "completed"
	// FaucetAccountCode is the system account airdrops are drawn from. It is
	// allowed to run negative and mirrors the total supply handed out.
	FaucetAccountCode = "system:faucet"
	// KindAirdrop tags faucet credits.
	KindAirdrop = "airdrop"
)

// TransactionResult captures the outcome of a ledger posting.
type TransactionResult struct {
	TransactionID string
	FromBalance   int64
	ToBalance     int64
}

// Ledger holds native balances keyed by account code. Account codes are
// base58 addresses for user and program accounts.
type Ledger interface {
	CreateAccount(ctx context.Context, code string) error
	EnsureAccount(ctx context.Context, code string) error
	Balance(ctx context.Context, code string) (int64, error)
	Transfer(ctx context.Context, fromCode, toCode, kind, clientTxID string, amount int64) (TransactionResult, error)
	Airdrop(ctx context.Context, code, clientTxID string, amount int64) (TransactionResult, error)
}
