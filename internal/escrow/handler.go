package escrow

import (
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/timelock_escrow/internal/address"
	"github.com/congo-pay/timelock_escrow/internal/middleware"
)

// Handler exposes escrow instructions and queries over HTTP.
type Handler struct {
	program *Program
}

// NewHandler constructs an escrow handler.
func NewHandler(program *Program) *Handler {
	return &Handler{program: program}
}

type initializeRequest struct {
	Vault address.Address `json:"vault"`
}

type lockRequest struct {
	Amount uint64          `json:"amount"`
	Vault  address.Address `json:"vault"`
	Record address.Address `json:"record"`
}

type claimRequest struct {
	Vault  address.Address `json:"vault"`
	Record address.Address `json:"record"`
}

type recordResponse struct {
	Address          string    `json:"address"`
	Owner            string    `json:"owner"`
	LockedAmount     uint64    `json:"locked_amount"`
	DepositTimestamp time.Time `json:"deposit_timestamp"`
	UnlockAt         time.Time `json:"unlock_at"`
}

// StatusCode maps a program error to its HTTP status.
func StatusCode(err error) int {
	var perr *Error
	if !errors.As(err, &perr) {
		return http.StatusInternalServerError
	}
	switch perr.Code {
	case ErrLocked.Code:
		return http.StatusLocked
	case ErrAccountAlreadyExists.Code, ErrVaultNotInitialized.Code:
		return http.StatusConflict
	case ErrRecordNotFound.Code:
		return http.StatusNotFound
	case ErrUnauthorized.Code, ErrAddressMismatch.Code:
		return http.StatusForbidden
	default:
		return http.StatusBadRequest
	}
}

// Initialize creates the vault, paid for by the signer.
func (h *Handler) Initialize(c *fiber.Ctx) error {
	signer, err := signerOf(c)
	if err != nil {
		return err
	}
	var req initializeRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	state, err := h.program.Initialize(c.UserContext(), InitializeInput{Initializer: signer, Vault: req.Vault})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"vault":       state.Address.String(),
		"bump":        state.Bump,
		"balance":     state.Balance,
		"initialized": state.Initialized,
	})
}

// Lock deposits the requested amount into the signer's escrow.
func (h *Handler) Lock(c *fiber.Ctx) error {
	signer, err := signerOf(c)
	if err != nil {
		return err
	}
	var req lockRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	res, err := h.program.Lock(c.UserContext(), LockInput{
		Owner:  signer,
		Amount: req.Amount,
		Vault:  req.Vault,
		Record: req.Record,
	})
	if err != nil {
		return err
	}

	status := http.StatusOK
	if res.Created {
		status = http.StatusCreated
	}
	return c.Status(status).JSON(fiber.Map{
		"record":        toRecordResponse(res.Record.Address, res.Record.Owner, res.Record.LockedAmount, res.Record.DepositTimestamp, res.UnlockAt),
		"vault_balance": res.VaultBalance,
		"owner_balance": res.OwnerBalance,
		"created":       res.Created,
	})
}

// Claim releases the signer's escrow once unlocked.
func (h *Handler) Claim(c *fiber.Ctx) error {
	signer, err := signerOf(c)
	if err != nil {
		return err
	}
	var req claimRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	res, err := h.program.Claim(c.UserContext(), ClaimInput{Owner: signer, Vault: req.Vault, Record: req.Record})
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"owner":         res.Owner.String(),
		"amount":        res.Amount,
		"rent_refund":   res.RentRefund,
		"vault_balance": res.VaultBalance,
		"owner_balance": res.OwnerBalance,
	})
}

// Addresses returns the derived vault and record addresses of an owner.
func (h *Handler) Addresses(c *fiber.Ctx) error {
	owner, err := address.Parse(c.Params("owner"))
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	accts, err := h.program.Accounts(owner)
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(accts)
}

// Vault reports the vault state and program parameters.
func (h *Handler) Vault(c *fiber.Ctx) error {
	state, err := h.program.Vault(c.UserContext())
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"program_id":            h.program.ProgramID().String(),
		"vault":                 state.Address.String(),
		"bump":                  state.Bump,
		"balance":               state.Balance,
		"initialized":           state.Initialized,
		"lock_duration_seconds": int64(h.program.LockDuration() / time.Second),
	})
}

// Record returns the escrow record of the owner in the path.
func (h *Handler) Record(c *fiber.Ctx) error {
	owner, err := address.Parse(c.Params("owner"))
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	rec, err := h.program.Record(c.UserContext(), owner)
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(toRecordResponse(rec.Address, rec.Owner, rec.LockedAmount, rec.DepositTimestamp, rec.UnlockAt))
}

// Audit reports whether the vault matches the live records.
func (h *Handler) Audit(c *fiber.Ctx) error {
	report, err := h.program.Audit(c.UserContext())
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"vault_balance": report.VaultBalance,
		"total_locked":  report.TotalLocked,
		"records":       report.Records,
		"balanced":      report.Balanced,
	})
}

func signerOf(c *fiber.Ctx) (address.Address, error) {
	signer, ok := middleware.Signer(c)
	if !ok {
		return address.Address{}, fiber.NewError(http.StatusUnauthorized, "request is not signed")
	}
	return signer, nil
}

func parseBody(c *fiber.Ctx, out any) error {
	if len(c.Body()) == 0 {
		return nil
	}
	if err := c.BodyParser(out); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	return nil
}

func toRecordResponse(addr, owner address.Address, locked uint64, depositAt, unlockAt time.Time) recordResponse {
	return recordResponse{
		Address:          addr.String(),
		Owner:            owner.String(),
		LockedAmount:     locked,
		DepositTimestamp: depositAt,
		UnlockAt:         unlockAt,
	}
}
