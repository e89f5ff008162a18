package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/bark-bank/bark/internal/account"
)

// RegisterAccountRoutes wires account endpoints.
func RegisterAccountRoutes(r fiber.Router, h *account.Handler) {
	group := r.Group("/accounts")
	group.Post("/", h.Create)
	group.Get("/", h.List)
	group.Get("/:accountId", h.Get)
	group.Get("/:accountId/balance", h.Balance)
}
