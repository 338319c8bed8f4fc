package middleware

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"github.com/congo-pay/timelock_escrow/internal/signing"
)

const (
	idempotencyKeyHeader = signing.IdempotencyKeyHeader
	idempotencyPrefix    = "escrow:idempotency:v2:"
	pendingStatus        = 0
	storeTimeout         = 2 * time.Second
)

// replay is what gets kept under an idempotency key. Status 0 marks a request
// that is still running.
type replay struct {
	Fingerprint string `json:"fingerprint"`
	Status      int    `json:"status"`
	ContentType string `json:"content_type,omitempty"`
	Body        string `json:"body,omitempty"`
}

type idempotencyStore struct {
	cache  *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

func (s idempotencyStore) load(ctx context.Context, key string) (replay, bool, error) {
	raw, err := s.cache.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return replay{}, false, nil
	}
	if err != nil {
		return replay{}, false, err
	}
	var r replay
	if err := json.Unmarshal(raw, &r); err != nil {
		return replay{}, false, err
	}
	return r, true, nil
}

func (s idempotencyStore) reserve(ctx context.Context, key, fingerprint string) (bool, error) {
	payload, err := json.Marshal(replay{Fingerprint: fingerprint, Status: pendingStatus})
	if err != nil {
		return false, err
	}
	return s.cache.SetNX(ctx, key, payload, s.ttl).Result()
}

func (s idempotencyStore) save(ctx context.Context, key string, r replay) error {
	payload, err := json.Marshal(r)
	if err != nil {
		return err
	}
	return s.cache.Set(ctx, key, payload, s.ttl).Err()
}

func (s idempotencyStore) release(key string) {
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()
	if err := s.cache.Del(ctx, key).Err(); err != nil {
		s.logger.Warn("idempotency release failed", slog.String("key", key), slog.Any("error", err))
	}
}

// Idempotency replays the first successful response for a repeated
// Idempotency-Key. Keys are scoped to the request path and, behind
// SignedRequest, to the signer. A key reused with a different body is
// rejected. Failed requests release their key so they can be retried.
func Idempotency(cache *redis.Client, ttl time.Duration, logger *slog.Logger) fiber.Handler {
	store := idempotencyStore{cache: cache, ttl: ttl, logger: logger}
	return func(c *fiber.Ctx) error {
		switch c.Method() {
		case fiber.MethodGet, fiber.MethodHead, fiber.MethodOptions:
			return c.Next()
		}

		key := c.Get(idempotencyKeyHeader)
		if key == "" {
			return fiber.NewError(fiber.StatusBadRequest, "missing Idempotency-Key header")
		}
		cacheKey := idempotencyPrefix + c.Path() + ":" + key
		if signer, ok := Signer(c); ok {
			cacheKey = idempotencyPrefix + signer.String() + ":" + c.Path() + ":" + key
		}
		sum := sha256.Sum256(c.Body())
		fingerprint := hex.EncodeToString(sum[:])

		ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
		defer cancel()

		prev, found, err := store.load(ctx, cacheKey)
		if err != nil {
			logger.Error("idempotency lookup failed", slog.String("key", key), slog.Any("error", err))
			return fiber.NewError(fiber.StatusInternalServerError, "idempotency store failure")
		}
		if !found {
			reserved, err := store.reserve(ctx, cacheKey, fingerprint)
			if err != nil {
				logger.Error("idempotency reservation failed", slog.String("key", key), slog.Any("error", err))
				return fiber.NewError(fiber.StatusInternalServerError, "idempotency store failure")
			}
			if reserved {
				return runOnce(c, store, cacheKey, fingerprint)
			}
			// lost the race; answer from whatever the winner stored
			if prev, found, err = store.load(ctx, cacheKey); err != nil || !found {
				return fiber.NewError(fiber.StatusConflict, "duplicate request currently processing")
			}
		}

		switch {
		case prev.Fingerprint != fingerprint:
			return fiber.NewError(fiber.StatusUnprocessableEntity, "Idempotency-Key reused with a different request body")
		case prev.Status == pendingStatus:
			return fiber.NewError(fiber.StatusConflict, "duplicate request currently processing")
		}
		if prev.ContentType != "" {
			c.Set(fiber.HeaderContentType, prev.ContentType)
		}
		return c.Status(prev.Status).SendString(prev.Body)
	}
}

func runOnce(c *fiber.Ctx, store idempotencyStore, cacheKey, fingerprint string) error {
	if err := c.Next(); err != nil {
		store.release(cacheKey)
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()
	resp := c.Response()
	err := store.save(ctx, cacheKey, replay{
		Fingerprint: fingerprint,
		Status:      resp.StatusCode(),
		ContentType: string(resp.Header.ContentType()),
		Body:        string(resp.Body()),
	})
	if err != nil {
		// the instruction already ran; keep its response and let retries conflict
		store.logger.Error("failed to persist idempotent response", slog.String("key", cacheKey), slog.Any("error", err))
	}
	return nil
}
