package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/bark-bank/bark/internal/ledger"
	"github.com/bark-bank/bark/internal/middleware"
)

// RegisterTransferRoutes wires transfer, history and operator endpoints.
// Transfers require an Idempotency-Key.
func RegisterTransferRoutes(r fiber.Router, h *ledger.Handler, idempotency fiber.Handler) {
	r.Post("/transfers", idempotency, h.Transfer)
	r.Get("/accounts/:accountId/transfers", h.History)

	admin := r.Group("/admin", middleware.RequireAdmin())
	admin.Get("/quarantine", h.Holds)
	admin.Post("/accounts/:accountId/release", h.Release)
}
