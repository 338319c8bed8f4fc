package records

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/congo-pay/timelock_escrow/internal/address"
)

// ErrNotFound is returned when no record lives at an address.
var ErrNotFound = errors.New("escrow record not found")

// Repository persists escrow records keyed by their derived address.
type Repository interface {
	Get(ctx context.Context, addr address.Address) (Record, error)
	Put(ctx context.Context, record Record) error
	Delete(ctx context.Context, addr address.Address) error
	Totals(ctx context.Context) (Totals, error)
}

// DB is the subset of pgx used by the Postgres repository; satisfied by both
// *pgxpool.Pool and pgx.Tx.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository stores escrow records in PostgreSQL.
type PostgresRepository struct {
	db DB
}

// NewPostgresRepository builds a repository backed by PostgreSQL.
func NewPostgresRepository(db DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Get fetches and row-locks the record at addr.
func (r *PostgresRepository) Get(ctx context.Context, addr address.Address) (Record, error) {
	row := r.db.QueryRow(ctx, `SELECT owner, locked_amount, deposit_timestamp
        FROM escrow_records WHERE address = $1 FOR UPDATE`, addr.String())
	var (
		owner     string
		locked    int64
		depositAt time.Time
	)
	if err := row.Scan(&owner, &locked, &depositAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, fmt.Errorf("%w: %s", ErrNotFound, addr)
		}
		return Record{}, err
	}
	ownerAddr, err := address.Parse(owner)
	if err != nil {
		return Record{}, fmt.Errorf("decode owner of %s: %w", addr, err)
	}
	return Record{
		Address:          addr,
		Owner:            ownerAddr,
		LockedAmount:     uint64(locked),
		DepositTimestamp: depositAt.UTC(),
	}, nil
}

// Put inserts a record or updates its locked amount. Owner and deposit
// timestamp are fixed by the first insert.
func (r *PostgresRepository) Put(ctx context.Context, record Record) error {
	_, err := r.db.Exec(ctx, `INSERT INTO escrow_records (address, owner, locked_amount, deposit_timestamp)
        VALUES ($1, $2, $3, $4)
        ON CONFLICT (address) DO UPDATE SET locked_amount = EXCLUDED.locked_amount`,
		record.Address.String(), record.Owner.String(), int64(record.LockedAmount), record.DepositTimestamp.UTC())
	return err
}

// Delete removes the record at addr.
func (r *PostgresRepository) Delete(ctx context.Context, addr address.Address) error {
	cmd, err := r.db.Exec(ctx, `DELETE FROM escrow_records WHERE address = $1`, addr.String())
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, addr)
	}
	return nil
}

// Totals sums all live records.
func (r *PostgresRepository) Totals(ctx context.Context) (Totals, error) {
	var (
		count  int64
		locked int64
	)
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*), COALESCE(SUM(locked_amount), 0)::BIGINT FROM escrow_records`).Scan(&count, &locked); err != nil {
		return Totals{}, err
	}
	return Totals{Count: int(count), Locked: uint64(locked)}, nil
}
