package middleware

import (
	"crypto/ed25519"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/timelock_escrow/internal/clock"
	"github.com/congo-pay/timelock_escrow/internal/signing"
)

func signedApp(clk clock.Clock) *fiber.App {
	app := fiber.New()
	app.Post("/lock", SignedRequest(clk, time.Minute), func(c *fiber.Ctx) error {
		signer, ok := Signer(c)
		if !ok {
			return fiber.NewError(fiber.StatusInternalServerError, "no signer")
		}
		return c.SendString(signer.String())
	})
	return app
}

func TestSignedRequestAcceptsValidSignature(t *testing.T) {
	clk := clock.NewManual(time.Unix(1_700_000_000, 0))
	app := signedApp(clk)

	seed := make([]byte, ed25519.SeedSize)
	key := ed25519.NewKeyFromSeed(seed)
	body := `{"amount":10}`
	h, err := signing.Sign(key, fiber.MethodPost, "/lock", "k1", clk.Now(), []byte(body))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	req := httptest.NewRequest(fiber.MethodPost, "/lock", strings.NewReader(body))
	req.Header.Set(signing.SignerHeader, h.Signer)
	req.Header.Set(signing.TimestampHeader, h.Timestamp)
	req.Header.Set(signing.SignatureHeader, h.Signature)
	req.Header.Set(signing.IdempotencyKeyHeader, h.IdempotencyKey)

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200 got %d", resp.StatusCode)
	}
	got, _ := io.ReadAll(resp.Body)
	if string(got) != h.Signer {
		t.Fatalf("expected signer %s got %s", h.Signer, got)
	}
}

func TestSignedRequestRejectsTampering(t *testing.T) {
	clk := clock.NewManual(time.Unix(1_700_000_000, 0))
	app := signedApp(clk)

	key := ed25519.NewKeyFromSeed(make([]byte, ed25519.SeedSize))
	h, err := signing.Sign(key, fiber.MethodPost, "/lock", "k1", clk.Now(), []byte(`{"amount":10}`))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	req := httptest.NewRequest(fiber.MethodPost, "/lock", strings.NewReader(`{"amount":1000}`))
	req.Header.Set(signing.SignerHeader, h.Signer)
	req.Header.Set(signing.TimestampHeader, h.Timestamp)
	req.Header.Set(signing.SignatureHeader, h.Signature)
	req.Header.Set(signing.IdempotencyKeyHeader, h.IdempotencyKey)

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.StatusCode)
	}

	rekeyed := httptest.NewRequest(fiber.MethodPost, "/lock", strings.NewReader(`{"amount":10}`))
	rekeyed.Header.Set(signing.SignerHeader, h.Signer)
	rekeyed.Header.Set(signing.TimestampHeader, h.Timestamp)
	rekeyed.Header.Set(signing.SignatureHeader, h.Signature)
	rekeyed.Header.Set(signing.IdempotencyKeyHeader, "k2")
	resp, err = app.Test(rekeyed)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusUnauthorized {
		t.Fatalf("expected 401 for a different idempotency key got %d", resp.StatusCode)
	}

	unsigned := httptest.NewRequest(fiber.MethodPost, "/lock", strings.NewReader(`{}`))
	resp, err = app.Test(unsigned)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusUnauthorized {
		t.Fatalf("expected 401 for unsigned request got %d", resp.StatusCode)
	}
}
