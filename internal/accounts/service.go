// Package accounts exposes the external balances escrow deposits are funded
// from and claims are paid out to.
package accounts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/congo-pay/timelock_escrow/internal/address"
	"github.com/congo-pay/timelock_escrow/internal/clock"
	"github.com/congo-pay/timelock_escrow/internal/host"
	"github.com/congo-pay/timelock_escrow/internal/ledger"
	"github.com/congo-pay/timelock_escrow/internal/notification"
)

// DefaultMaxAirdrop caps a single faucet credit.
const DefaultMaxAirdrop int64 = 10_000_000_000

var (
	// ErrFaucetDisabled is returned when airdrops are turned off.
	ErrFaucetDisabled = errors.New("faucet disabled")
	// ErrAirdropTooLarge is returned when an airdrop exceeds the configured cap.
	ErrAirdropTooLarge = errors.New("airdrop amount exceeds limit")
)

// Options configures the account service.
type Options struct {
	FaucetEnabled bool
	MaxAirdrop    int64
	Clock         clock.Clock
	Notifier      notification.Notifier
	Logger        *slog.Logger
}

// Service reads balances and runs the faucet. Faucet credits run as host
// instructions so they never interleave with an escrow instruction.
type Service struct {
	host          host.Host
	faucetEnabled bool
	maxAirdrop    int64
	clock         clock.Clock
	notifier      notification.Notifier
	logger        *slog.Logger
}

// NewService builds an account service on top of the host's ledger.
func NewService(h host.Host, opts Options) *Service {
	if opts.MaxAirdrop <= 0 {
		opts.MaxAirdrop = DefaultMaxAirdrop
	}
	if opts.Clock == nil {
		opts.Clock = clock.System{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	return &Service{
		host:          h,
		faucetEnabled: opts.FaucetEnabled,
		maxAirdrop:    opts.MaxAirdrop,
		clock:         opts.Clock,
		notifier:      opts.Notifier,
		logger:        opts.Logger,
	}
}

// FaucetEnabled reports whether Airdrop accepts requests.
func (s *Service) FaucetEnabled() bool { return s.faucetEnabled }

// Balance returns the ledger balance of addr. Unknown accounts hold nothing.
func (s *Service) Balance(ctx context.Context, addr address.Address) (Balance, error) {
	amount, err := s.host.View().Ledger().Balance(ctx, addr.String())
	if err != nil && !errors.Is(err, ledger.ErrAccountNotFound) {
		return Balance{}, err
	}
	return Balance{Address: addr, Amount: amount, AsOf: s.clock.Now()}, nil
}

// Airdrop credits addr from the faucet. Replaying a clientTxID returns the
// original outcome with Duplicate set.
func (s *Service) Airdrop(ctx context.Context, addr address.Address, clientTxID string, amount int64) (AirdropResult, error) {
	if !s.faucetEnabled {
		return AirdropResult{}, ErrFaucetDisabled
	}
	// only wallet keys; program-derived addresses are vault and record state
	if addr.IsZero() || !address.IsOnCurve(addr[:]) {
		return AirdropResult{}, fmt.Errorf("%w: %s is not a wallet address", address.ErrInvalidAddress, addr)
	}
	if amount <= 0 {
		return AirdropResult{}, ledger.ErrInvalidAmount
	}
	if amount > s.maxAirdrop {
		return AirdropResult{}, fmt.Errorf("%w: max %d", ErrAirdropTooLarge, s.maxAirdrop)
	}
	if clientTxID == "" {
		clientTxID = uuid.NewString()
	}

	var (
		res       ledger.TransactionResult
		duplicate bool
	)
	err := s.host.Atomically(ctx, func(ctx context.Context, tx host.Tx) error {
		var err error
		res, err = tx.Ledger().Airdrop(ctx, addr.String(), clientTxID, amount)
		if errors.Is(err, ledger.ErrDuplicateTransaction) {
			duplicate = true
			return nil
		}
		return err
	})
	if err != nil {
		return AirdropResult{}, err
	}
	if duplicate {
		return AirdropResult{
			TransactionID: res.TransactionID,
			Address:       addr,
			Amount:        amount,
			Balance:       res.ToBalance,
			Duplicate:     true,
		}, nil
	}

	s.logger.InfoContext(ctx, "accounts.airdrop completed",
		slog.String("address", addr.String()),
		slog.Int64("amount", amount),
		slog.Int64("balance", res.ToBalance),
	)
	if s.notifier != nil {
		if err := s.notifier.Send(ctx, notification.Message{
			Kind:        notification.KindAirdrop,
			Destination: addr.String(),
			Body:        fmt.Sprintf("Airdropped %d", amount),
		}); err != nil {
			s.logger.WarnContext(ctx, "notification failed", slog.Any("error", err))
		}
	}

	return AirdropResult{
		TransactionID: res.TransactionID,
		Address:       addr,
		Amount:        amount,
		Balance:       res.ToBalance,
	}, nil
}
