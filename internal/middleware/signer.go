package middleware

import (
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/timelock_escrow/internal/address"
	"github.com/congo-pay/timelock_escrow/internal/clock"
	"github.com/congo-pay/timelock_escrow/internal/logging"
	"github.com/congo-pay/timelock_escrow/internal/signing"
)

const signerLocal = "escrow_signer"

// SignedRequest verifies the ed25519 signature headers of an instruction and
// stores the signer for handlers. The Idempotency-Key header is part of the
// signed message and therefore mandatory.
func SignedRequest(clk clock.Clock, maxAge time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		h := signing.Headers{
			Signer:         c.Get(signing.SignerHeader),
			Timestamp:      c.Get(signing.TimestampHeader),
			Signature:      c.Get(signing.SignatureHeader),
			IdempotencyKey: c.Get(signing.IdempotencyKeyHeader),
		}
		signer, err := signing.Verify(h, c.Method(), c.Path(), c.Body(), clk.Now(), maxAge)
		if err != nil {
			if errors.Is(err, signing.ErrMissingHeaders) {
				return fiber.NewError(http.StatusUnauthorized, err.Error())
			}
			return fiber.NewError(http.StatusUnauthorized, "invalid signature: "+err.Error())
		}
		c.Locals(signerLocal, signer)
		c.SetUserContext(logging.WithSigner(c.UserContext(), signer.String()))
		return c.Next()
	}
}

// Signer returns the address verified by SignedRequest.
func Signer(c *fiber.Ctx) (address.Address, bool) {
	signer, ok := c.Locals(signerLocal).(address.Address)
	return signer, ok
}
