package routes

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/harborbank/harbor-core/internal/audit"
	"github.com/harborbank/harbor-core/internal/cards"
	"github.com/harborbank/harbor-core/internal/config"
	"github.com/harborbank/harbor-core/internal/deposit"
	"github.com/harborbank/harbor-core/internal/ledger"
	"github.com/harborbank/harbor-core/internal/loan"
	"github.com/harborbank/harbor-core/internal/middleware"
	"github.com/harborbank/harbor-core/internal/notification"
	"github.com/harborbank/harbor-core/internal/pinvault"
	"github.com/harborbank/harbor-core/internal/transfer"
	"github.com/harborbank/harbor-core/internal/trash"
	"github.com/harborbank/harbor-core/internal/user"
	"github.com/harborbank/harbor-core/internal/verification"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	Cache  *redis.Client
	Logger *slog.Logger
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	// Enforce DB/Redis presence outside of dev, even though main also checks.
	if !isDev(d.Cfg.AppEnv) {
		if d.DB == nil {
			return fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
		if d.Cache == nil {
			return fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
	}

	// Middlewares
	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(logger.New(logger.Config{
		Format:     "[${time}] ${status} -  ${latency} ${method} ${path}\n",
		TimeFormat: "15:04:05",
		TimeZone:   "Local",
	}))
	app.Use(middleware.Audit(d.Logger))
	if d.Cache != nil {
		app.Use(middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger))
	}

	// Health
	RegisterHealthRoutes(app, d)

	// Repositories: Postgres in real deployments, in-memory in dev without a
	// database.
	var (
		userRepo    user.Repository
		store       ledger.Store
		pinRepo     pinvault.Repository
		loanRepo    loan.Repository
		depositRepo deposit.Repository
		cardRepo    cards.Repository
		auditRepo   audit.Repository
	)
	if d.DB != nil {
		userRepo = user.NewPostgresRepository(d.DB)
		store = ledger.NewPostgresStore(d.DB)
		pinRepo = pinvault.NewPostgresRepository(d.DB)
		loanRepo = loan.NewPostgresRepository(d.DB)
		depositRepo = deposit.NewPostgresRepository(d.DB)
		cardRepo = cards.NewPostgresRepository(d.DB)
		auditRepo = audit.NewPostgresRepository(d.DB)
	} else {
		userRepo = user.NewMemoryRepository()
		store = ledger.NewInMemory()
		pinRepo = pinvault.NewMemoryRepository()
		loanRepo = loan.NewMemoryRepository()
		depositRepo = deposit.NewMemoryRepository()
		cardRepo = cards.NewMemoryRepository()
		auditRepo = audit.NewMemoryRepository()
	}

	// Services
	notifier := notification.NewLoggerNotifier(d.Logger)
	pinSvc := pinvault.NewService(pinRepo)
	codeSvc := verification.NewService(userRepo, d.Cfg.CodeTTL)
	transferSvc := transfer.NewService(store, pinSvc, codeSvc, notifier, d.Logger)
	loanSvc := loan.NewService(loanRepo, store, pinSvc, notifier, d.Logger)
	depositSvc := deposit.NewService(depositRepo, store, notifier, d.Logger)
	cardSvc := cards.NewService(cardRepo, store, pinSvc)
	coordinator := trash.NewCoordinator(userRepo, store, loanRepo, cardRepo, pinRepo, auditRepo, notifier, d.Logger)

	// Handlers
	transferHandler := transfer.NewHandler(transferSvc)
	ledgerHandler := ledger.NewHandler(store)
	pinHandler := pinvault.NewHandler(pinSvc)
	cardHandler := cards.NewHandler(cardSvc)
	loanHandler := loan.NewHandler(loanSvc)
	depositHandler := deposit.NewHandler(depositSvc)
	codeHandler := verification.NewHandler(codeSvc, auditRepo, d.Logger)
	trashHandler := trash.NewHandler(coordinator)
	userHandler := user.NewHandler(userRepo, store, auditRepo, d.Logger)

	api := app.Group("/api/v1")

	// Every route below requires an authenticated caller.
	authmw := middleware.Auth(d.Cfg, userRepo)
	protected := api.Group("", authmw)

	pinLimiter := middleware.PinRateLimit(d.Cache, d.Cfg.PinAttemptsPerMinute)

	RegisterLedgerRoutes(protected, ledgerHandler)
	RegisterTransferRoutes(protected, transferHandler, pinLimiter)
	RegisterPinRoutes(protected, pinHandler)
	RegisterCardRoutes(protected, cardHandler, pinLimiter)
	RegisterLoanRoutes(protected, loanHandler, pinLimiter)
	RegisterDepositRoutes(protected, depositHandler)
	RegisterVerificationRoutes(protected, codeHandler)

	admin := protected.Group("/admin", middleware.RequireRole(user.RoleAdmin))
	RegisterAdminRoutes(admin, loanHandler, depositHandler, codeHandler, trashHandler, userHandler)

	return nil
}

func isDev(env string) bool {
	switch strings.ToLower(env) {
	case "dev", "development", "local":
		return true
	default:
		return false
	}
}
