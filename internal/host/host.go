// Package host runs escrow instructions atomically against the ledger and the
// record store. A failed instruction leaves no trace in either.
package host

import (
	"context"

	"github.com/congo-pay/timelock_escrow/internal/ledger"
	"github.com/congo-pay/timelock_escrow/internal/records"
)

// Tx is the state visible to a single instruction.
type Tx interface {
	Ledger() ledger.Ledger
	Records() records.Repository
}

// Host serializes conflicting instructions and applies each one all-or-nothing.
type Host interface {
	Atomically(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	// View exposes committed state for reads outside an instruction.
	View() Tx
}

type view struct {
	ledger  ledger.Ledger
	records records.Repository
}

func (v view) Ledger() ledger.Ledger       { return v.ledger }
func (v view) Records() records.Repository { return v.records }
