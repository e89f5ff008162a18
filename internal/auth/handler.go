package auth

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/bark-bank/bark/internal/bankerr"
	"github.com/bark-bank/bark/internal/identity"
)

// Handler exposes registration and token endpoints.
type Handler struct {
	ids *identity.Service
	svc *Service
}

// NewHandler builds the auth HTTP handler.
func NewHandler(ids *identity.Service, svc *Service) *Handler {
	return &Handler{ids: ids, svc: svc}
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Register handles user onboarding.
func (h *Handler) Register(c *fiber.Ctx) error {
	var req credentialsRequest
	if err := c.BodyParser(&req); err != nil {
		return bankerr.Wrap(bankerr.KindInvalidRequest, "auth.Register", err)
	}
	user, err := h.ids.Register(c.UserContext(), identity.Credentials{Username: req.Username, Password: req.Password})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"id":         user.ID,
		"username":   user.Username,
		"is_admin":   user.IsAdmin,
		"created_at": user.CreatedAt,
	})
}

// Token validates credentials and returns a bearer token.
func (h *Handler) Token(c *fiber.Ctx) error {
	var req credentialsRequest
	if err := c.BodyParser(&req); err != nil {
		return bankerr.Wrap(bankerr.KindInvalidRequest, "auth.Token", err)
	}
	user, err := h.ids.Authenticate(c.UserContext(), identity.Credentials{Username: req.Username, Password: req.Password})
	if err != nil {
		return err
	}
	token, err := h.svc.Issue(user)
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(token)
}

// Me returns the authenticated user.
func (h *Handler) Me(c *fiber.Ctx) error {
	p, ok := PrincipalFrom(c)
	if !ok {
		return bankerr.ErrUnauthorized
	}
	user, err := h.ids.Get(c.UserContext(), p.UserID)
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"id":         user.ID,
		"username":   user.Username,
		"is_admin":   user.IsAdmin,
		"created_at": user.CreatedAt,
	})
}
