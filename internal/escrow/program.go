// Package escrow implements the time-locked custodial escrow program: a
// shared vault, one record per owner, and the initialize/lock/claim
// instructions that move funds between them.
package escrow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/congo-pay/timelock_escrow/internal/address"
	"github.com/congo-pay/timelock_escrow/internal/clock"
	"github.com/congo-pay/timelock_escrow/internal/host"
	"github.com/congo-pay/timelock_escrow/internal/ledger"
	"github.com/congo-pay/timelock_escrow/internal/notification"
	"github.com/congo-pay/timelock_escrow/internal/records"
)

// DefaultLockDuration is the time a deposit stays locked after the first lock.
const DefaultLockDuration = 5 * time.Minute

const (
	kindLock       = "escrow_lock"
	kindClaim      = "escrow_claim"
	kindRent       = "escrow_rent"
	kindRentRefund = "escrow_rent_refund"
)

// Config holds deployment parameters of the program.
type Config struct {
	ProgramID    address.Address
	LockDuration time.Duration
	// RecordRent is charged to the owner when a record is created and refunded on claim.
	RecordRent int64
}

// Program executes escrow instructions.
type Program struct {
	programID    address.Address
	vault        address.Address
	vaultBump    uint8
	lockDuration time.Duration
	recordRent   int64

	host     host.Host
	clock    clock.Clock
	logger   *slog.Logger
	notifier notification.Notifier
}

// NewProgram validates cfg and derives the vault address.
func NewProgram(cfg Config, h host.Host, clk clock.Clock, logger *slog.Logger, notifier notification.Notifier) (*Program, error) {
	if h == nil {
		return nil, fmt.Errorf("host is required")
	}
	if cfg.ProgramID.IsZero() {
		return nil, fmt.Errorf("program id is required")
	}
	if cfg.LockDuration < 0 {
		return nil, fmt.Errorf("lock duration must not be negative")
	}
	if cfg.RecordRent < 0 {
		return nil, fmt.Errorf("record rent must not be negative")
	}
	if clk == nil {
		clk = clock.System{}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	vault, bump, err := VaultAddress(cfg.ProgramID)
	if err != nil {
		return nil, fmt.Errorf("derive vault address: %w", err)
	}

	return &Program{
		programID:    cfg.ProgramID,
		vault:        vault,
		vaultBump:    bump,
		lockDuration: cfg.LockDuration,
		recordRent:   cfg.RecordRent,
		host:         h,
		clock:        clk,
		logger:       logger,
		notifier:     notifier,
	}, nil
}

// ProgramID returns the id addresses are derived under.
func (p *Program) ProgramID() address.Address { return p.programID }

// LockDuration returns the configured time-lock.
func (p *Program) LockDuration() time.Duration { return p.lockDuration }

// Accounts derives the addresses owner's instructions use.
func (p *Program) Accounts(owner address.Address) (Accounts, error) {
	return DeriveAccounts(p.programID, owner)
}

// InitializeInput names the payer of the vault account.
type InitializeInput struct {
	Initializer address.Address
	// Vault is optional; when set it must equal the derived vault address.
	Vault address.Address
}

// VaultState describes the shared vault.
type VaultState struct {
	Address     address.Address
	Bump        uint8
	Balance     int64
	Initialized bool
}

// Initialize creates the vault account with a zero balance. It succeeds once.
func (p *Program) Initialize(ctx context.Context, in InitializeInput) (VaultState, error) {
	if in.Initializer.IsZero() {
		return VaultState{}, ErrUnauthorized
	}
	if !in.Vault.IsZero() && in.Vault != p.vault {
		return VaultState{}, ErrAddressMismatch
	}

	err := p.host.Atomically(ctx, func(ctx context.Context, tx host.Tx) error {
		if err := tx.Ledger().CreateAccount(ctx, p.vault.String()); err != nil {
			if errors.Is(err, ledger.ErrAccountExists) {
				return ErrAccountAlreadyExists
			}
			return fmt.Errorf("create vault account: %w", err)
		}
		return nil
	})
	if err != nil {
		return VaultState{}, err
	}

	p.logger.InfoContext(ctx, "escrow.initialize completed",
		slog.String("initializer", in.Initializer.String()),
		slog.String("vault", p.vault.String()),
	)
	return VaultState{Address: p.vault, Bump: p.vaultBump, Initialized: true}, nil
}

// LockInput moves Amount from the owner's balance into escrow.
type LockInput struct {
	Owner  address.Address
	Amount uint64
	// Vault and Record are optional; when set they must equal the derived addresses.
	Vault  address.Address
	Record address.Address
}

// LockResult reports state after a successful lock.
type LockResult struct {
	Record       records.Record
	UnlockAt     time.Time
	Created      bool
	VaultBalance int64
	OwnerBalance int64
}

// Lock deposits funds into the vault and credits them to the owner's record,
// creating the record on the first deposit. The lock window is anchored to
// that first deposit.
func (p *Program) Lock(ctx context.Context, in LockInput) (LockResult, error) {
	if in.Amount == 0 {
		return LockResult{}, ErrZeroAmount
	}
	accts, err := p.checkAccounts(in.Owner, in.Vault, in.Record)
	if err != nil {
		return LockResult{}, err
	}
	if in.Amount > math.MaxInt64 {
		return LockResult{}, ErrInsufficientFunds
	}

	var result LockResult
	err = p.host.Atomically(ctx, func(ctx context.Context, tx host.Tx) error {
		vaultBalance, err := tx.Ledger().Balance(ctx, accts.Vault.String())
		if err != nil {
			if errors.Is(err, ledger.ErrAccountNotFound) {
				return ErrVaultNotInitialized
			}
			return fmt.Errorf("read vault: %w", err)
		}

		rec, err := tx.Records().Get(ctx, accts.Record)
		created := false
		switch {
		case errors.Is(err, records.ErrNotFound):
			rec = records.Record{
				Address:          accts.Record,
				Owner:            in.Owner,
				DepositTimestamp: p.clock.Now(),
			}
			created = true
		case err != nil:
			return fmt.Errorf("read escrow record: %w", err)
		case rec.Owner != in.Owner:
			return ErrUnauthorized
		}

		if rec.LockedAmount > math.MaxUint64-in.Amount || vaultBalance > math.MaxInt64-int64(in.Amount) {
			return ErrOverflow
		}

		if created {
			if err := p.chargeRent(ctx, tx, accts); err != nil {
				return err
			}
		}

		res, err := tx.Ledger().Transfer(ctx, in.Owner.String(), accts.Vault.String(), kindLock, uuid.NewString(), int64(in.Amount))
		if err != nil {
			if errors.Is(err, ledger.ErrInsufficientFunds) {
				return ErrInsufficientFunds
			}
			return fmt.Errorf("transfer to vault: %w", err)
		}

		rec.LockedAmount += in.Amount
		if err := tx.Records().Put(ctx, rec); err != nil {
			return fmt.Errorf("store escrow record: %w", err)
		}

		result = LockResult{
			Record:       rec,
			UnlockAt:     rec.UnlockAt(p.lockDuration),
			Created:      created,
			VaultBalance: res.ToBalance,
			OwnerBalance: res.FromBalance,
		}
		return nil
	})
	if err != nil {
		return LockResult{}, err
	}

	p.logger.InfoContext(ctx, "escrow.lock completed",
		slog.String("owner", in.Owner.String()),
		slog.Uint64("amount", in.Amount),
		slog.Uint64("locked_amount", result.Record.LockedAmount),
		slog.Int64("vault_balance", result.VaultBalance),
		slog.Bool("created", result.Created),
	)
	p.notify(ctx, notification.KindEscrowLocked, in.Owner,
		fmt.Sprintf("Locked %d, total %d, unlocks at %s", in.Amount, result.Record.LockedAmount, result.UnlockAt.Format(time.RFC3339)))

	return result, nil
}

// ClaimInput releases an owner's escrow.
type ClaimInput struct {
	Owner address.Address
	// Vault and Record are optional; when set they must equal the derived addresses.
	Vault  address.Address
	Record address.Address
}

// ClaimResult reports the payout of a successful claim.
type ClaimResult struct {
	Owner        address.Address
	Amount       uint64
	RentRefund   int64
	VaultBalance int64
	OwnerBalance int64
}

// Claim pays the whole locked amount back to the owner once the time-lock has
// elapsed and deletes the record.
func (p *Program) Claim(ctx context.Context, in ClaimInput) (ClaimResult, error) {
	accts, err := p.checkAccounts(in.Owner, in.Vault, in.Record)
	if err != nil {
		return ClaimResult{}, err
	}

	var result ClaimResult
	err = p.host.Atomically(ctx, func(ctx context.Context, tx host.Tx) error {
		rec, err := tx.Records().Get(ctx, accts.Record)
		if err != nil {
			if errors.Is(err, records.ErrNotFound) {
				return ErrRecordNotFound
			}
			return fmt.Errorf("read escrow record: %w", err)
		}
		if rec.Owner != in.Owner {
			return ErrUnauthorized
		}

		unlockAt := rec.UnlockAt(p.lockDuration)
		if p.clock.Now().Before(unlockAt) {
			return ErrLocked.with(fmt.Errorf("unlocks at %s", unlockAt.Format(time.RFC3339)))
		}

		ownerCode := in.Owner.String()
		if err := tx.Ledger().EnsureAccount(ctx, ownerCode); err != nil {
			return fmt.Errorf("ensure owner account: %w", err)
		}

		res, err := tx.Ledger().Transfer(ctx, accts.Vault.String(), ownerCode, kindClaim, uuid.NewString(), int64(rec.LockedAmount))
		if err != nil {
			return fmt.Errorf("pay out %d from vault: %w", rec.LockedAmount, err)
		}

		refund, err := p.refundRent(ctx, tx, accts)
		if err != nil {
			return err
		}

		if err := tx.Records().Delete(ctx, accts.Record); err != nil {
			return fmt.Errorf("delete escrow record: %w", err)
		}

		ownerBalance, err := tx.Ledger().Balance(ctx, ownerCode)
		if err != nil {
			return fmt.Errorf("read owner balance: %w", err)
		}

		result = ClaimResult{
			Owner:        in.Owner,
			Amount:       rec.LockedAmount,
			RentRefund:   refund,
			VaultBalance: res.FromBalance,
			OwnerBalance: ownerBalance,
		}
		return nil
	})
	if err != nil {
		return ClaimResult{}, err
	}

	p.logger.InfoContext(ctx, "escrow.claim completed",
		slog.String("owner", in.Owner.String()),
		slog.Uint64("amount", result.Amount),
		slog.Int64("rent_refund", result.RentRefund),
		slog.Int64("vault_balance", result.VaultBalance),
	)
	p.notify(ctx, notification.KindEscrowClaimed, in.Owner, fmt.Sprintf("Claimed %d from escrow", result.Amount))

	return result, nil
}

// RecordState is a record together with its unlock time.
type RecordState struct {
	records.Record
	UnlockAt time.Time
}

// Record looks up the escrow record of owner.
func (p *Program) Record(ctx context.Context, owner address.Address) (RecordState, error) {
	recAddr, _, err := RecordAddress(p.programID, owner)
	if err != nil {
		return RecordState{}, fmt.Errorf("derive record address: %w", err)
	}
	rec, err := p.host.View().Records().Get(ctx, recAddr)
	if err != nil {
		if errors.Is(err, records.ErrNotFound) {
			return RecordState{}, ErrRecordNotFound
		}
		return RecordState{}, err
	}
	return RecordState{Record: rec, UnlockAt: rec.UnlockAt(p.lockDuration)}, nil
}

// Vault reports the vault address and balance.
func (p *Program) Vault(ctx context.Context) (VaultState, error) {
	state := VaultState{Address: p.vault, Bump: p.vaultBump}
	balance, err := p.host.View().Ledger().Balance(ctx, p.vault.String())
	switch {
	case errors.Is(err, ledger.ErrAccountNotFound):
		return state, nil
	case err != nil:
		return VaultState{}, err
	}
	state.Balance = balance
	state.Initialized = true
	return state, nil
}

// AuditReport compares the vault balance with the sum of live records.
type AuditReport struct {
	VaultBalance int64
	TotalLocked  uint64
	Records      int
	Balanced     bool
}

// Audit checks that the vault holds exactly what the records say it should.
// It runs as an instruction so it observes a consistent state.
func (p *Program) Audit(ctx context.Context) (AuditReport, error) {
	var report AuditReport
	err := p.host.Atomically(ctx, func(ctx context.Context, tx host.Tx) error {
		balance, err := tx.Ledger().Balance(ctx, p.vault.String())
		if err != nil && !errors.Is(err, ledger.ErrAccountNotFound) {
			return fmt.Errorf("read vault: %w", err)
		}
		totals, err := tx.Records().Totals(ctx)
		if err != nil {
			return fmt.Errorf("sum escrow records: %w", err)
		}
		report = AuditReport{
			VaultBalance: balance,
			TotalLocked:  totals.Locked,
			Records:      totals.Count,
			Balanced:     balance >= 0 && uint64(balance) == totals.Locked,
		}
		return nil
	})
	if err != nil {
		return AuditReport{}, err
	}
	if !report.Balanced {
		p.logger.ErrorContext(ctx, "escrow.audit mismatch",
			slog.Int64("vault_balance", report.VaultBalance),
			slog.Uint64("total_locked", report.TotalLocked),
		)
	}
	return report, nil
}

func (p *Program) checkAccounts(owner, vault, record address.Address) (Accounts, error) {
	if owner.IsZero() {
		return Accounts{}, ErrUnauthorized
	}
	accts, err := DeriveAccounts(p.programID, owner)
	if err != nil {
		return Accounts{}, fmt.Errorf("derive accounts: %w", err)
	}
	if !vault.IsZero() && vault != accts.Vault {
		return Accounts{}, ErrAddressMismatch
	}
	if !record.IsZero() && record != accts.Record {
		return Accounts{}, ErrAddressMismatch
	}
	return accts, nil
}

func (p *Program) chargeRent(ctx context.Context, tx host.Tx, accts Accounts) error {
	if p.recordRent == 0 {
		return nil
	}
	recordCode := accts.Record.String()
	if err := tx.Ledger().EnsureAccount(ctx, recordCode); err != nil {
		return fmt.Errorf("ensure record account: %w", err)
	}
	if _, err := tx.Ledger().Transfer(ctx, accts.Owner.String(), recordCode, kindRent, uuid.NewString(), p.recordRent); err != nil {
		if errors.Is(err, ledger.ErrInsufficientFunds) {
			return ErrInsufficientFunds
		}
		return fmt.Errorf("charge record rent: %w", err)
	}
	return nil
}

func (p *Program) refundRent(ctx context.Context, tx host.Tx, accts Accounts) (int64, error) {
	recordCode := accts.Record.String()
	balance, err := tx.Ledger().Balance(ctx, recordCode)
	if errors.Is(err, ledger.ErrAccountNotFound) || (err == nil && balance <= 0) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read record account: %w", err)
	}
	if _, err := tx.Ledger().Transfer(ctx, recordCode, accts.Owner.String(), kindRentRefund, uuid.NewString(), balance); err != nil {
		return 0, fmt.Errorf("refund record rent: %w", err)
	}
	return balance, nil
}

func (p *Program) notify(ctx context.Context, kind string, owner address.Address, body string) {
	if p.notifier == nil {
		return
	}
	if err := p.notifier.Send(ctx, notification.Message{Kind: kind, Destination: owner.String(), Body: body}); err != nil {
		p.logger.WarnContext(ctx, "notification failed", slog.String("kind", kind), slog.Any("error", err))
	}
}
