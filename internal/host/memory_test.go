package host

import (
	"context"
	"errors"
	"testing"

	"github.com/congo-pay/timelock_escrow/internal/address"
	"github.com/congo-pay/timelock_escrow/internal/ledger"
	"github.com/congo-pay/timelock_escrow/internal/records"
)

func TestMemoryHostRollsBackFailedInstruction(t *testing.T) {
	led := ledger.NewInMemory()
	repo := records.NewMemoryRepository()
	h, err := NewMemory(led, repo)
	if err != nil {
		t.Fatalf("new host: %v", err)
	}

	ctx := context.Background()
	led.EnsureAccount(ctx, "owner")
	led.EnsureAccount(ctx, "vault")
	ledger.SeedBalance(led, "owner", 1_000)

	var recAddr address.Address
	recAddr[0] = 7
	boom := errors.New("boom")

	err = h.Atomically(ctx, func(ctx context.Context, tx Tx) error {
		if _, err := tx.Ledger().Transfer(ctx, "owner", "vault", "escrow_lock", "tx-1", 600); err != nil {
			return err
		}
		if err := tx.Records().Put(ctx, records.Record{Address: recAddr, LockedAmount: 600}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected instruction error, got %v", err)
	}

	if bal, _ := h.View().Ledger().Balance(ctx, "owner"); bal != 1_000 {
		t.Fatalf("expected owner balance restored to 1000, got %d", bal)
	}
	if bal, _ := h.View().Ledger().Balance(ctx, "vault"); bal != 0 {
		t.Fatalf("expected vault balance restored to 0, got %d", bal)
	}
	if _, err := h.View().Records().Get(ctx, recAddr); !errors.Is(err, records.ErrNotFound) {
		t.Fatalf("expected record rolled back, got %v", err)
	}
}

func TestMemoryHostCommitsSuccessfulInstruction(t *testing.T) {
	led := ledger.NewInMemory()
	h, err := NewMemory(led, records.NewMemoryRepository())
	if err != nil {
		t.Fatalf("new host: %v", err)
	}
	ctx := context.Background()

	err = h.Atomically(ctx, func(ctx context.Context, tx Tx) error {
		return tx.Ledger().CreateAccount(ctx, "vault")
	})
	if err != nil {
		t.Fatalf("atomically: %v", err)
	}
	if _, err := h.View().Ledger().Balance(ctx, "vault"); err != nil {
		t.Fatalf("expected committed account, got %v", err)
	}
}

func TestNewMemoryRejectsOtherBackends(t *testing.T) {
	if _, err := NewMemory(ledger.NewPostgresLedger(nil), records.NewMemoryRepository()); err == nil {
		t.Fatalf("expected error for non-memory ledger")
	}
}
