package routes

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/bark-bank/bark/internal/account"
	"github.com/bark-bank/bark/internal/auth"
	"github.com/bark-bank/bark/internal/config"
	"github.com/bark-bank/bark/internal/coordinator"
	"github.com/bark-bank/bark/internal/identity"
	"github.com/bark-bank/bark/internal/infra"
	"github.com/bark-bank/bark/internal/ledger"
	"github.com/bark-bank/bark/internal/middleware"
	"github.com/bark-bank/bark/internal/notification"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	Cache  *redis.Client
	Logger *slog.Logger
}

// Components are the long-lived services built by Setup that the process
// lifecycle still needs after routing is done.
type Components struct {
	Engine     *ledger.Engine
	Reconciler *ledger.Reconciler
	Identity   *identity.Service
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) (Components, error) {
	// Enforce DB/Redis presence outside of dev, even though config also checks.
	if !d.Cfg.IsDev() {
		if d.DB == nil {
			return Components{}, fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
		if d.Cache == nil {
			return Components{}, fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
	}
	if d.Cfg.LockBackend == config.LockBackendRedis && d.Cache == nil {
		return Components{}, fmt.Errorf("LOCK_BACKEND=redis needs a redis connection")
	}

	app.Use(recover.New())
	app.Use(middleware.RequestID())
	// Plain text access log in desired format: [HH:MM:SS] 200 -  145ms METHOD /path
	app.Use(logger.New(logger.Config{
		Format:     "[${time}] ${status} -  ${latency} ${method} ${path}\n",
		TimeFormat: "15:04:05",
		TimeZone:   "Local",
	}))
	app.Use(middleware.Audit(d.Logger))

	// Stores
	var (
		accountStore  account.Store
		transferStore ledger.TransferStore
		identityRepo  identity.Repository
		engineOpts    = []ledger.Option{
			ledger.WithLogger(d.Logger),
			ledger.WithLockTimeout(d.Cfg.LockTimeout),
		}
	)
	if d.DB != nil {
		accountStore = account.NewPostgresStore(d.DB)
		transferStore = ledger.NewPostgresTransfers(d.DB)
		identityRepo = identity.NewPostgresRepository(d.DB)
		engineOpts = append(engineOpts, ledger.WithTransactor(infra.NewTxManager(d.DB)))
	} else {
		d.Logger.Warn("no database configured; using in-memory stores")
		accountStore = account.NewMemoryStore()
		transferStore = ledger.NewInMemoryTransfers()
		identityRepo = identity.NewMemoryRepository()
	}

	var coord coordinator.Coordinator
	if d.Cfg.LockBackend == config.LockBackendRedis {
		coord = coordinator.NewRedis(d.Cache, coordinator.RedisOptions{Logger: d.Logger})
	} else {
		coord = coordinator.NewLocal()
	}

	// Services and handlers
	engine := ledger.NewEngine(accountStore, transferStore, coord, engineOpts...)
	history := ledger.NewHistory(accountStore, transferStore, d.Cfg.HistoryPageSize)
	accountSvc := account.NewService(accountStore)
	identitySvc := identity.NewService(identityRepo)
	tokens := auth.NewService(d.Cfg.JWTSecret, d.Cfg.AccessTokenTTL)
	notifier := notification.NewLoggerNotifier(d.Logger)
	ledgerSvc := ledger.NewService(engine, history, accountSvc, notifier)

	RegisterHealthRoutes(app, d, engine)

	api := app.Group("/api/v1")
	api.Get("/ping", func(c *fiber.Ctx) error {
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": middleware.RequestIDFrom(c),
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	// Public routes
	authHandler := auth.NewHandler(identitySvc, tokens)
	RegisterAuthRoutes(api, authHandler,
		middleware.LoginRateLimit(d.Cache, d.Cfg.LoginRateLimit, d.Logger))

	// Protected routes
	protected := api.Group("", middleware.JWTAuth(tokens))
	protected.Get("/me", authHandler.Me)
	RegisterAccountRoutes(protected, account.NewHandler(accountSvc))
	RegisterTransferRoutes(protected, ledger.NewHandler(ledgerSvc),
		middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger))

	return Components{
		Engine:     engine,
		Reconciler: ledger.NewReconciler(engine, d.Logger),
		Identity:   identitySvc,
	}, nil
}
