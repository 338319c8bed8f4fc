package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the subset of pgx shared by *pgxpool.Pool and pgx.Tx. Calling Begin
// on a pgx.Tx opens a savepoint, so the ledger composes with an outer
// transaction owned by the caller.
type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresLedger persists ledger entries in PostgreSQL ensuring double-entry balance.
type PostgresLedger struct {
	db DB
}

// NewPostgresLedger constructs a Postgres-backed ledger implementation.
func NewPostgresLedger(db DB) *PostgresLedger {
	return &PostgresLedger{db: db}
}

// CreateAccount inserts a new account and fails if the code is taken.
func (l *PostgresLedger) CreateAccount(ctx context.Context, code string) error {
	cmd, err := l.db.Exec(ctx, `INSERT INTO accounts (id, code) VALUES ($1, $2)
        ON CONFLICT (code) DO NOTHING`, uuid.New(), code)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrAccountExists, code)
	}
	return nil
}

// EnsureAccount guarantees an account exists for the provided code.
func (l *PostgresLedger) EnsureAccount(ctx context.Context, code string) error {
	_, err := l.db.Exec(ctx, `INSERT INTO accounts (id, code) VALUES ($1, $2)
        ON CONFLICT (code) DO NOTHING`, uuid.New(), code)
	return err
}

// Balance returns the summed balance for the specified account code.
func (l *PostgresLedger) Balance(ctx context.Context, code string) (int64, error) {
	const query = `
        SELECT COALESCE((SELECT SUM(e.amount) FROM entries e WHERE e.account_id = a.id), 0)::BIGINT
        FROM accounts a
        WHERE a.code = $1`
	var balance int64
	if err := l.db.QueryRow(ctx, query, code).Scan(&balance); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, fmt.Errorf("%w: %s", ErrAccountNotFound, code)
		}
		return 0, err
	}
	return balance, nil
}

// Transfer records a balanced posting between two accounts.
func (l *PostgresLedger) Transfer(ctx context.Context, fromCode, toCode, kind, clientTxID string, amount int64) (TransactionResult, error) {
	if amount <= 0 {
		return TransactionResult{}, ErrInvalidAmount
	}
	if fromCode == toCode {
		return TransactionResult{}, ErrSameAccount
	}

	tx, err := l.db.Begin(ctx)
	if err != nil {
		return TransactionResult{}, err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	// Row locks are taken in code order so opposing transfers cannot deadlock.
	ids := make(map[string]uuid.UUID, 2)
	for _, code := range sortedPair(fromCode, toCode) {
		id, err := accountIDForCode(ctx, tx, code)
		if err != nil {
			if errors.Is(err, ErrAccountNotFound) && code == fromCode {
				return TransactionResult{}, ErrInsufficientFunds
			}
			return TransactionResult{}, err
		}
		ids[code] = id
	}
	fromAccountID, toAccountID := ids[fromCode], ids[toCode]

	if existing, found, err := existingTransaction(ctx, tx, clientTxID, kind); err != nil {
		return TransactionResult{}, err
	} else if found {
		fromBal, err := balanceForAccount(ctx, tx, fromAccountID)
		if err != nil {
			return TransactionResult{}, err
		}
		toBal, err := balanceForAccount(ctx, tx, toAccountID)
		if err != nil {
			return TransactionResult{}, err
		}
		return TransactionResult{TransactionID: existing.String(), FromBalance: fromBal, ToBalance: toBal}, ErrDuplicateTransaction
	}

	fromBalance, err := balanceForAccount(ctx, tx, fromAccountID)
	if err != nil {
		return TransactionResult{}, err
	}
	if fromBalance < amount {
		return TransactionResult{}, ErrInsufficientFunds
	}

	txID, err := postEntries(ctx, tx, clientTxID, kind, fromAccountID, toAccountID, amount)
	if err != nil {
		return TransactionResult{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return TransactionResult{}, err
	}

	fromBal, err := l.Balance(ctx, fromCode)
	if err != nil {
		return TransactionResult{}, err
	}
	toBal, err := l.Balance(ctx, toCode)
	if err != nil {
		return TransactionResult{}, err
	}

	return TransactionResult{TransactionID: txID.String(), FromBalance: fromBal, ToBalance: toBal}, nil
}

// Airdrop credits an account from the faucet, creating the account if needed.
func (l *PostgresLedger) Airdrop(ctx context.Context, code, clientTxID string, amount int64) (TransactionResult, error) {
	if amount <= 0 {
		return TransactionResult{}, ErrInvalidAmount
	}

	tx, err := l.db.Begin(ctx)
	if err != nil {
		return TransactionResult{}, err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	for _, c := range []string{FaucetAccountCode, code} {
		if _, err := tx.Exec(ctx, `INSERT INTO accounts (id, code) VALUES ($1, $2)
            ON CONFLICT (code) DO NOTHING`, uuid.New(), c); err != nil {
			return TransactionResult{}, err
		}
	}

	faucetID, err := accountIDForCode(ctx, tx, FaucetAccountCode)
	if err != nil {
		return TransactionResult{}, err
	}
	accountID, err := accountIDForCode(ctx, tx, code)
	if err != nil {
		return TransactionResult{}, err
	}

	if existing, found, err := existingTransaction(ctx, tx, clientTxID, KindAirdrop); err != nil {
		return TransactionResult{}, err
	} else if found {
		bal, err := balanceForAccount(ctx, tx, accountID)
		if err != nil {
			return TransactionResult{}, err
		}
		return TransactionResult{TransactionID: existing.String(), ToBalance: bal}, ErrDuplicateTransaction
	}

	txID, err := postEntries(ctx, tx, clientTxID, KindAirdrop, faucetID, accountID, amount)
	if err != nil {
		return TransactionResult{}, err
	}

	faucetBal, err := balanceForAccount(ctx, tx, faucetID)
	if err != nil {
		return TransactionResult{}, err
	}
	accountBal, err := balanceForAccount(ctx, tx, accountID)
	if err != nil {
		return TransactionResult{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return TransactionResult{}, err
	}

	return TransactionResult{TransactionID: txID.String(), FromBalance: faucetBal, ToBalance: accountBal}, nil
}

func postEntries(ctx context.Context, tx pgx.Tx, clientTxID, kind string, fromID, toID uuid.UUID, amount int64) (uuid.UUID, error) {
	txID := uuid.New()
	if _, err := tx.Exec(ctx, `INSERT INTO transactions (id, client_tx_id, kind, status) VALUES ($1, $2, $3, $4)`, txID, clientTxID, kind, StatusCompleted); err != nil {
		return uuid.Nil, err
	}
	if _, err := tx.Exec(ctx, `INSERT INTO entries (id, transaction_id, account_id, amount) VALUES ($1, $2, $3, $4)`, uuid.New(), txID, fromID, -amount); err != nil {
		return uuid.Nil, err
	}
	if _, err := tx.Exec(ctx, `INSERT INTO entries (id, transaction_id, account_id, amount) VALUES ($1, $2, $3, $4)`, uuid.New(), txID, toID, amount); err != nil {
		return uuid.Nil, err
	}
	return txID, nil
}

func sortedPair(a, b string) []string {
	if b < a {
		return []string{b, a}
	}
	return []string{a, b}
}

func existingTransaction(ctx context.Context, tx pgx.Tx, clientTxID, kind string) (uuid.UUID, bool, error) {
	const query = `SELECT id FROM transactions WHERE client_tx_id = $1 AND kind = $2`
	var id uuid.UUID
	if err := tx.QueryRow(ctx, query, clientTxID, kind).Scan(&id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, false, nil
		}
		return uuid.Nil, false, err
	}
	return id, true, nil
}

func accountIDForCode(ctx context.Context, tx pgx.Tx, code string) (uuid.UUID, error) {
	const query = `SELECT id FROM accounts WHERE code = $1 FOR UPDATE`
	var id uuid.UUID
	if err := tx.QueryRow(ctx, query, code).Scan(&id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, fmt.Errorf("%w: %s", ErrAccountNotFound, code)
		}
		return uuid.Nil, err
	}
	return id, nil
}

func balanceForAccount(ctx context.Context, tx pgx.Tx, accountID uuid.UUID) (int64, error) {
	const query = `SELECT COALESCE(SUM(amount), 0)::BIGINT FROM entries WHERE account_id = $1`
	var balance int64
	if err := tx.QueryRow(ctx, query, accountID).Scan(&balance); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, err
	}
	return balance, nil
}
