package accounts

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/timelock_escrow/internal/address"
	"github.com/congo-pay/timelock_escrow/internal/ledger"
)

// Handler exposes account HTTP endpoints.
type Handler struct {
	service *Service
}

// NewHandler builds an account HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type airdropRequest struct {
	Amount     int64  `json:"amount"`
	ClientTxID string `json:"client_tx_id"`
}

// Balance returns the balance of the account in the path.
func (h *Handler) Balance(c *fiber.Ctx) error {
	addr, err := address.Parse(c.Params("address"))
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	balance, err := h.service.Balance(c.UserContext(), addr)
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"address":   balance.Address.String(),
		"balance":   balance.Amount,
		"timestamp": balance.AsOf,
	})
}

// Airdrop credits the account in the path from the faucet.
func (h *Handler) Airdrop(c *fiber.Ctx) error {
	addr, err := address.Parse(c.Params("address"))
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	var req airdropRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	res, err := h.service.Airdrop(c.UserContext(), addr, req.ClientTxID, req.Amount)
	if err != nil {
		switch {
		case errors.Is(err, ErrFaucetDisabled):
			return fiber.NewError(http.StatusNotFound, err.Error())
		case errors.Is(err, ErrAirdropTooLarge), errors.Is(err, ledger.ErrInvalidAmount), errors.Is(err, address.ErrInvalidAddress):
			return fiber.NewError(http.StatusBadRequest, err.Error())
		default:
			return fiber.NewError(http.StatusInternalServerError, err.Error())
		}
	}

	status := http.StatusCreated
	if res.Duplicate {
		status = http.StatusOK
	}
	return c.Status(status).JSON(fiber.Map{
		"transaction_id": res.TransactionID,
		"address":        res.Address.String(),
		"amount":         res.Amount,
		"balance":        res.Balance,
	})
}
