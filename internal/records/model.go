// Package records stores per-owner escrow records.
package records

import (
	"time"

	"github.com/congo-pay/timelock_escrow/internal/address"
)

// Record is the escrow state held for one owner.
type Record struct {
	Address          address.Address
	Owner            address.Address
	LockedAmount     uint64
	DepositTimestamp time.Time
}

// UnlockAt returns the first instant at which the record may be claimed.
func (r Record) UnlockAt(lockDuration time.Duration) time.Time {
	return r.DepositTimestamp.Add(lockDuration)
}

// Totals aggregates all live records.
type Totals struct {
	Count  int
	Locked uint64
}
