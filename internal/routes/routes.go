package routes

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/congo-pay/timelock_escrow/internal/accounts"
	"github.com/congo-pay/timelock_escrow/internal/address"
	"github.com/congo-pay/timelock_escrow/internal/clock"
	"github.com/congo-pay/timelock_escrow/internal/config"
	"github.com/congo-pay/timelock_escrow/internal/escrow"
	"github.com/congo-pay/timelock_escrow/internal/host"
	"github.com/congo-pay/timelock_escrow/internal/ledger"
	"github.com/congo-pay/timelock_escrow/internal/middleware"
	"github.com/congo-pay/timelock_escrow/internal/notification"
	"github.com/congo-pay/timelock_escrow/internal/records"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	Cache  *redis.Client
	Logger *slog.Logger
	// Clock defaults to the system clock.
	Clock clock.Clock
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	// Enforce DB/Redis presence outside of dev, even though main also checks.
	if !d.Cfg.IsDevelopment() {
		if d.DB == nil {
			return fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
		if d.Cache == nil {
			return fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
	}
	if d.Clock == nil {
		d.Clock = clock.System{}
	}

	programID, err := address.Parse(d.Cfg.ProgramID)
	if err != nil {
		return fmt.Errorf("escrow program id: %w", err)
	}

	// Middlewares
	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(middleware.Audit(d.Logger))

	RegisterHealthRoutes(app, d)

	// Backends
	var (
		ledgerBackend ledger.Ledger
		escrowHost    host.Host
	)
	if d.DB != nil {
		ledgerBackend = ledger.NewPostgresLedger(d.DB)
		escrowHost = host.NewPostgres(d.DB)
	} else {
		mem := ledger.NewInMemory()
		escrowHost, err = host.NewMemory(mem, records.NewMemoryRepository())
		if err != nil {
			return err
		}
		ledgerBackend = mem
	}
	if err := ledgerBackend.EnsureAccount(context.Background(), ledger.FaucetAccountCode); err != nil {
		return fmt.Errorf("ensure faucet account: %w", err)
	}

	notifier := notification.NewLoggerNotifier(d.Logger)
	program, err := escrow.NewProgram(escrow.Config{
		ProgramID:    programID,
		LockDuration: d.Cfg.LockPeriod,
		RecordRent:   d.Cfg.RecordRent,
	}, escrowHost, d.Clock, d.Logger, notifier)
	if err != nil {
		return err
	}
	accountSvc := accounts.NewService(escrowHost, accounts.Options{
		FaucetEnabled: d.Cfg.FaucetEnabled,
		Clock:         d.Clock,
		Notifier:      notifier,
		Logger:        d.Logger,
	})

	escrowHandler := escrow.NewHandler(program)
	accountHandler := accounts.NewHandler(accountSvc)

	// API routes
	api := app.Group("/api/v1")
	api.Get("/ping", func(c *fiber.Ctx) error {
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": middleware.RequestIDFrom(c),
			"timestamp":  d.Clock.Now().UTC(),
		})
	})

	var idempotent []fiber.Handler
	if d.Cache != nil {
		idempotent = append(idempotent, middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger))
	}

	RegisterAccountRoutes(api, accountHandler, idempotent, middleware.RateLimit(d.Cache, "airdrop", d.Cfg.FaucetMaxPerMinute, func(c *fiber.Ctx) string {
		return c.Params("address")
	}))
	signed := middleware.SignedRequest(d.Clock, d.Cfg.SignatureMaxAge)
	RegisterEscrowRoutes(api, escrowHandler, append([]fiber.Handler{signed}, idempotent...))

	return nil
}
