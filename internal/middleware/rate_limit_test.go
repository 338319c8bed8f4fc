package middleware

import (
	"net/http/httptest"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

func TestRateLimitPerKey(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	defer mr.Close()
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer cache.Close()

	app := fiber.New()
	app.Post("/accounts/:address/airdrop", RateLimit(cache, "airdrop", 2, func(c *fiber.Ctx) string {
		return c.Params("address")
	}), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusCreated)
	})

	send := func(addr string) int {
		resp, err := app.Test(httptest.NewRequest(fiber.MethodPost, "/accounts/"+addr+"/airdrop", nil))
		if err != nil {
			t.Fatalf("app.Test: %v", err)
		}
		return resp.StatusCode
	}

	for i := 0; i < 2; i++ {
		if got := send("alice"); got != fiber.StatusCreated {
			t.Fatalf("request %d: expected 201 got %d", i, got)
		}
	}
	if got := send("alice"); got != fiber.StatusTooManyRequests {
		t.Fatalf("expected 429 got %d", got)
	}
	if got := send("bob"); got != fiber.StatusCreated {
		t.Fatalf("other keys must not be limited, got %d", got)
	}

	mr.FastForward(61 * time.Second)
	if got := send("alice"); got != fiber.StatusCreated {
		t.Fatalf("limit should reset after a minute, got %d", got)
	}
}
