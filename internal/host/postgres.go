package host

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/congo-pay/timelock_escrow/internal/ledger"
	"github.com/congo-pay/timelock_escrow/internal/records"
)

// maxAttempts bounds how often an instruction is retried after a
// serialization failure.
const maxAttempts = 3

type postgresHost struct {
	db *pgxpool.Pool
}

// NewPostgres runs each instruction inside one serializable database
// transaction. Instructions that lose a serialization race are retried.
func NewPostgres(db *pgxpool.Pool) Host {
	return &postgresHost{db: db}
}

func (h *postgresHost) Atomically(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	var err error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		err = h.attempt(ctx, fn)
		if !retryable(err) {
			return err
		}
	}
	return err
}

func (h *postgresHost) attempt(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	tx, err := h.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return fmt.Errorf("begin instruction: %w", err)
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	scoped := view{
		ledger:  ledger.NewPostgresLedger(tx),
		records: records.NewPostgresRepository(tx),
	}
	if err := fn(ctx, scoped); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit instruction: %w", err)
	}
	return nil
}

func (h *postgresHost) View() Tx {
	return view{
		ledger:  ledger.NewPostgresLedger(h.db),
		records: records.NewPostgresRepository(h.db),
	}
}

// retryable reports serialization failures and deadlocks.
func retryable(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == "40001" || pgErr.Code == "40P01"
}
