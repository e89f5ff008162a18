package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/bark-bank/bark/internal/auth"
)

// RegisterAuthRoutes wires registration and token endpoints.
func RegisterAuthRoutes(r fiber.Router, h *auth.Handler, rateLimiter fiber.Handler) {
	r.Post("/users", h.Register)
	if rateLimiter != nil {
		r.Post("/auth/token", rateLimiter, h.Token)
	} else {
		r.Post("/auth/token", h.Token)
	}
}
