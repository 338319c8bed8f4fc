package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
)

func TestInMemoryLedger_TransferMaintainsBalance(t *testing.T) {
	l := NewInMemory()
	ctx := context.Background()

	if err := l.EnsureAccount(ctx, "owner:a"); err != nil {
		t.Fatalf("ensure account a: %v", err)
	}
	if err := l.EnsureAccount(ctx, "vault"); err != nil {
		t.Fatalf("ensure account vault: %v", err)
	}

	SeedBalance(l, "owner:a", 10_000)

	res, err := l.Transfer(ctx, "owner:a", "vault", "escrow_lock", "client-1", 1_500)
	if err != nil {
		t.Fatalf("transfer failed: %v", err)
	}

	if res.FromBalance != 8_500 {
		t.Fatalf("expected from balance 8500, got %d", res.FromBalance)
	}
	if res.ToBalance != 1_500 {
		t.Fatalf("expected to balance 1500, got %d", res.ToBalance)
	}

	ledgerImpl := l.(*inMemoryLedger)
	total := ledgerImpl.balances["owner:a"] + ledgerImpl.balances["vault"]
	if total != 10_000 {
		t.Fatalf("ledger not balanced, total=%d", total)
	}
}

func TestInMemoryLedger_TransferRejections(t *testing.T) {
	l := NewInMemory()
	ctx := context.Background()
	l.EnsureAccount(ctx, "owner:a")
	l.EnsureAccount(ctx, "vault")
	SeedBalance(l, "owner:a", 100)

	if _, err := l.Transfer(ctx, "owner:a", "vault", "escrow_lock", "tx-1", 0); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected invalid amount, got %v", err)
	}
	if _, err := l.Transfer(ctx, "owner:a", "owner:a", "escrow_lock", "tx-2", 10); !errors.Is(err, ErrSameAccount) {
		t.Fatalf("expected same account error, got %v", err)
	}
	if _, err := l.Transfer(ctx, "owner:a", "vault", "escrow_lock", "tx-3", 101); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected insufficient funds, got %v", err)
	}
	if _, err := l.Transfer(ctx, "ghost", "vault", "escrow_lock", "tx-4", 1); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected insufficient funds for unknown source, got %v", err)
	}
	if _, err := l.Transfer(ctx, "owner:a", "ghost", "escrow_lock", "tx-5", 1); !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("expected account not found, got %v", err)
	}

	bal, _ := l.Balance(ctx, "owner:a")
	if bal != 100 {
		t.Fatalf("rejected transfers changed balance to %d", bal)
	}
}

func TestInMemoryLedger_DuplicateTransaction(t *testing.T) {
	l := NewInMemory()
	ctx := context.Background()
	l.EnsureAccount(ctx, "owner:a")
	l.EnsureAccount(ctx, "vault")
	SeedBalance(l, "owner:a", 5_000)

	if _, err := l.Transfer(ctx, "owner:a", "vault", "escrow_lock", "dup", 500); err != nil {
		t.Fatalf("initial transfer failed: %v", err)
	}
	if _, err := l.Transfer(ctx, "owner:a", "vault", "escrow_lock", "dup", 500); err != ErrDuplicateTransaction {
		t.Fatalf("expected duplicate error, got %v", err)
	}
}

func TestInMemoryLedger_ConcurrentTransfers(t *testing.T) {
	l := NewInMemory()
	ctx := context.Background()
	l.EnsureAccount(ctx, "owner:a")
	l.EnsureAccount(ctx, "vault")
	SeedBalance(l, "owner:a", 100_000)
	ledgerImpl := l.(*inMemoryLedger)

	const workers = 10
	const amount = int64(500)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			txID := fmt.Sprintf("tx-%d", i)
			if _, err := l.Transfer(ctx, "owner:a", "vault", "escrow_lock", txID, amount); err != nil {
				t.Errorf("transfer %d failed: %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	total := ledgerImpl.balances["owner:a"] + ledgerImpl.balances["vault"]
	if total != 100_000 {
		t.Fatalf("ledger not balanced after concurrency, total=%d", total)
	}
}

func TestInMemoryLedger_CreateAccount(t *testing.T) {
	l := NewInMemory()
	ctx := context.Background()

	if err := l.CreateAccount(ctx, "vault"); err != nil {
		t.Fatalf("create account: %v", err)
	}
	if err := l.CreateAccount(ctx, "vault"); !errors.Is(err, ErrAccountExists) {
		t.Fatalf("expected account exists, got %v", err)
	}
	if _, err := l.Balance(ctx, "missing"); !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("expected account not found, got %v", err)
	}
}

func TestInMemoryLedger_Airdrop(t *testing.T) {
	l := NewInMemory()
	ctx := context.Background()

	res, err := l.Airdrop(ctx, "owner:a", "drop-1", 2_000)
	if err != nil {
		t.Fatalf("airdrop failed: %v", err)
	}
	if res.ToBalance != 2_000 {
		t.Fatalf("expected balance 2000, got %d", res.ToBalance)
	}
	if res.FromBalance != -2_000 {
		t.Fatalf("expected faucet balance -2000, got %d", res.FromBalance)
	}

	if _, err := l.Airdrop(ctx, "owner:a", "drop-1", 2_000); err != ErrDuplicateTransaction {
		t.Fatalf("expected duplicate airdrop error, got %v", err)
	}
}

func TestCheckpointRestore(t *testing.T) {
	l := NewInMemory()
	ctx := context.Background()
	l.EnsureAccount(ctx, "owner:a")
	l.EnsureAccount(ctx, "vault")
	SeedBalance(l, "owner:a", 1_000)

	restore, ok := Checkpoint(l)
	if !ok {
		t.Fatalf("expected in-memory ledger to support checkpoints")
	}

	if _, err := l.Transfer(ctx, "owner:a", "vault", "escrow_lock", "cp", 400); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if err := l.CreateAccount(ctx, "record"); err != nil {
		t.Fatalf("create account: %v", err)
	}

	restore()

	if bal, _ := l.Balance(ctx, "owner:a"); bal != 1_000 {
		t.Fatalf("expected restored balance 1000, got %d", bal)
	}
	if _, err := l.Balance(ctx, "record"); !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("expected account created after checkpoint to vanish, got %v", err)
	}
	if _, err := l.Transfer(ctx, "owner:a", "vault", "escrow_lock", "cp", 400); err != nil {
		t.Fatalf("transaction id should be reusable after restore: %v", err)
	}
}
