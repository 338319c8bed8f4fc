package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/timelock_escrow/internal/accounts"
)

// RegisterAccountRoutes wires balance lookups and the faucet.
func RegisterAccountRoutes(r fiber.Router, h *accounts.Handler, idempotent []fiber.Handler, limiter fiber.Handler) {
	r.Get("/accounts/:address/balance", h.Balance)

	r.Post("/accounts/:address/airdrop", chain(append([]fiber.Handler{limiter}, idempotent...), h.Airdrop)...)
}
