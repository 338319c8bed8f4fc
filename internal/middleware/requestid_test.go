package middleware

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
)

func TestRequestIDPropagatesToUserContext(t *testing.T) {
	app := fiber.New()
	app.Use(RequestID())
	app.Get("/id", func(c *fiber.Ctx) error {
		return c.SendString(RequestIDFrom(c))
	})

	req := httptest.NewRequest(fiber.MethodGet, "/id", nil)
	req.Header.Set(requestIDHeader, "req-42")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	got, _ := io.ReadAll(resp.Body)
	if string(got) != "req-42" || resp.Header.Get(requestIDHeader) != "req-42" {
		t.Fatalf("expected caller id to be kept, got body %q header %q", got, resp.Header.Get(requestIDHeader))
	}

	resp, err = app.Test(httptest.NewRequest(fiber.MethodGet, "/id", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	got, _ = io.ReadAll(resp.Body)
	if len(got) == 0 || string(got) != resp.Header.Get(requestIDHeader) {
		t.Fatalf("expected generated id in body and header, got %q and %q", got, resp.Header.Get(requestIDHeader))
	}
}
