package records

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/congo-pay/timelock_escrow/internal/address"
)

func testAddress(b byte) address.Address {
	var a address.Address
	for i := range a {
		a[i] = b
	}
	return a
}

func TestMemoryRepositoryLifecycle(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	deposit := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	rec := Record{Address: testAddress(1), Owner: testAddress(2), LockedAmount: 100, DepositTimestamp: deposit}
	if err := repo.Put(ctx, rec); err != nil {
		t.Fatalf("put: %v", err)
	}

	// Owner and timestamp are fixed by the first write.
	if err := repo.Put(ctx, Record{Address: rec.Address, Owner: testAddress(9), LockedAmount: 250, DepositTimestamp: deposit.Add(time.Hour)}); err != nil {
		t.Fatalf("update: %v", err)
	}

	got, err := repo.Get(ctx, rec.Address)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.LockedAmount != 250 || got.Owner != rec.Owner || !got.DepositTimestamp.Equal(deposit) {
		t.Fatalf("unexpected record: %+v", got)
	}

	totals, err := repo.Totals(ctx)
	if err != nil {
		t.Fatalf("totals: %v", err)
	}
	if totals.Count != 1 || totals.Locked != 250 {
		t.Fatalf("unexpected totals: %+v", totals)
	}

	if err := repo.Delete(ctx, rec.Address); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := repo.Get(ctx, rec.Address); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
	if err := repo.Delete(ctx, rec.Address); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
}

func TestMemoryRepositoryCheckpoint(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	rec := Record{Address: testAddress(1), Owner: testAddress(2), LockedAmount: 10}
	repo.Put(ctx, rec)

	restore, ok := Checkpoint(repo)
	if !ok {
		t.Fatalf("expected checkpoint support")
	}
	repo.Delete(ctx, rec.Address)
	repo.Put(ctx, Record{Address: testAddress(3), Owner: testAddress(3), LockedAmount: 5})
	restore()

	if got, err := repo.Get(ctx, rec.Address); err != nil || got.LockedAmount != 10 {
		t.Fatalf("expected restored record, got %+v, %v", got, err)
	}
	if _, err := repo.Get(ctx, testAddress(3)); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected record written after checkpoint to vanish, got %v", err)
	}
}

func TestUnlockAt(t *testing.T) {
	deposit := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	rec := Record{DepositTimestamp: deposit}
	if got := rec.UnlockAt(5 * time.Minute); !got.Equal(deposit.Add(5 * time.Minute)) {
		t.Fatalf("unexpected unlock time %s", got)
	}
}
