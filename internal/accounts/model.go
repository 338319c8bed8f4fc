package accounts

import (
	"time"

	"github.com/congo-pay/timelock_escrow/internal/address"
)

// Balance is the spendable amount held by an external account.
type Balance struct {
	Address address.Address
	Amount  int64
	AsOf    time.Time
}

// AirdropResult describes a faucet credit.
type AirdropResult struct {
	TransactionID string
	Address       address.Address
	Amount        int64
	Balance       int64
	Duplicate     bool
}
