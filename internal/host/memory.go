package host

import (
	"context"
	"fmt"
	"sync"

	"github.com/congo-pay/timelock_escrow/internal/ledger"
	"github.com/congo-pay/timelock_escrow/internal/records"
)

type memoryHost struct {
	mu    sync.Mutex
	state view
}

// NewMemory wraps in-memory ledger and record backends. Instructions run one
// at a time; a failing instruction is rolled back from a checkpoint.
func NewMemory(l ledger.Ledger, r records.Repository) (Host, error) {
	if _, ok := ledger.Checkpoint(l); !ok {
		return nil, fmt.Errorf("memory host requires an in-memory ledger")
	}
	if _, ok := records.Checkpoint(r); !ok {
		return nil, fmt.Errorf("memory host requires an in-memory record repository")
	}
	return &memoryHost{state: view{ledger: l, records: r}}, nil
}

func (h *memoryHost) Atomically(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	restoreLedger, _ := ledger.Checkpoint(h.state.ledger)
	restoreRecords, _ := records.Checkpoint(h.state.records)

	if err := fn(ctx, h.state); err != nil {
		restoreLedger()
		restoreRecords()
		return err
	}
	return nil
}

func (h *memoryHost) View() Tx {
	return h.state
}
