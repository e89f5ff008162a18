package server

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"

	"github.com/bark-bank/bark/internal/config"
	"github.com/bark-bank/bark/internal/identity"
	"github.com/bark-bank/bark/internal/middleware"
	"github.com/bark-bank/bark/internal/routes"
)

// Server wraps the Fiber application, scheduled jobs and shared dependencies.
type Server struct {
	app        *fiber.App
	cfg        config.Config
	jobs       *cron.Cron
	components routes.Components
	logger     *slog.Logger
}

// New instantiates the HTTP server, delegates route wiring to routes.Setup and
// schedules reconciliation when RECONCILE_SCHEDULE is set.
func New(cfg config.Config, db *pgxpool.Pool, cache *redis.Client, logger *slog.Logger) (*Server, error) {
	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		ErrorHandler: middleware.ErrorHandler(logger),
	})

	components, err := routes.Setup(app, routes.Deps{Cfg: cfg, DB: db, Cache: cache, Logger: logger})
	if err != nil {
		return nil, err
	}

	jobs := cron.New()
	if cfg.ReconcileSchedule != "" {
		if _, err := components.Reconciler.Schedule(jobs, cfg.ReconcileSchedule); err != nil {
			return nil, fmt.Errorf("invalid RECONCILE_SCHEDULE: %w", err)
		}
	}

	return &Server{app: app, cfg: cfg, jobs: jobs, components: components, logger: logger}, nil
}

// App exposes the underlying Fiber application, mainly for tests.
func (s *Server) App() *fiber.App { return s.app }

// Bootstrap creates the configured administrator if credentials are present.
func (s *Server) Bootstrap(ctx context.Context) error {
	if s.cfg.AdminUsername == "" || s.cfg.AdminPassword == "" {
		return nil
	}
	user, err := s.components.Identity.EnsureAdmin(ctx, identity.Credentials{
		Username: s.cfg.AdminUsername,
		Password: s.cfg.AdminPassword,
	})
	if err != nil {
		return fmt.Errorf("bootstrap admin: %w", err)
	}
	s.logger.Info("administrator ready", "user_id", user.ID, "username", user.Username)
	return nil
}

// Listen starts scheduled jobs and the HTTP server.
func (s *Server) Listen() error {
	s.jobs.Start()
	return s.app.Listen(s.cfg.Address())
}

// Shutdown stops accepting requests, waits for in-flight ones and running
// jobs, all within ctx.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.app.ShutdownWithContext(ctx)
	select {
	case <-s.jobs.Stop().Done():
	case <-ctx.Done():
		if err == nil {
			err = ctx.Err()
		}
	}
	return err
}
