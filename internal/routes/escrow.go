package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/timelock_escrow/internal/escrow"
)

// RegisterEscrowRoutes wires escrow queries and the signed instruction endpoints.
func RegisterEscrowRoutes(r fiber.Router, h *escrow.Handler, instruction []fiber.Handler) {
	r.Get("/escrow/vault", h.Vault)
	r.Get("/escrow/audit", h.Audit)
	r.Get("/escrow/addresses/:owner", h.Addresses)
	r.Get("/escrow/records/:owner", h.Record)

	r.Post("/escrow/initialize", chain(instruction, h.Initialize)...)
	r.Post("/escrow/lock", chain(instruction, h.Lock)...)
	r.Post("/escrow/claim", chain(instruction, h.Claim)...)
}
