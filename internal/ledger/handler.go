package ledger

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/bark-bank/bark/internal/auth"
	"github.com/bark-bank/bark/internal/bankerr"
)

// Handler exposes transfer endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs a ledger handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type transferRequest struct {
	FromAccountID string `json:"from_account_id"`
	ToAccountID   string `json:"to_account_id"`
	Amount        string `json:"amount"`
}

// Transfer processes an account-to-account transfer.
func (h *Handler) Transfer(c *fiber.Ctx) error {
	p, ok := auth.PrincipalFrom(c)
	if !ok {
		return bankerr.ErrUnauthorized
	}
	var req transferRequest
	if err := c.BodyParser(&req); err != nil {
		return bankerr.Wrap(bankerr.KindInvalidRequest, "ledger.Handler.Transfer", err)
	}

	t, err := h.service.Transfer(c.UserContext(), TransferInput{
		FromAccountID: req.FromAccountID,
		ToAccountID:   req.ToAccountID,
		Amount:        req.Amount,
		Principal:     p,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(t)
}

// History lists the transfers of an account, newest first.
func (h *Handler) History(c *fiber.Ctx) error {
	p, ok := auth.PrincipalFrom(c)
	if !ok {
		return bankerr.ErrUnauthorized
	}
	transfers, err := h.service.History(c.UserContext(), p, c.Params("accountId"), c.QueryInt("limit", 0))
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"transfers": transfers})
}

// Release clears the quarantine of an account.
func (h *Handler) Release(c *fiber.Ctx) error {
	p, ok := auth.PrincipalFrom(c)
	if !ok {
		return bankerr.ErrUnauthorized
	}
	id := c.Params("accountId")
	n, err := h.service.Release(c.UserContext(), p, id)
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"account_id": id, "released": n > 0})
}

// Holds lists quarantined accounts.
func (h *Handler) Holds(c *fiber.Ctx) error {
	p, ok := auth.PrincipalFrom(c)
	if !ok {
		return bankerr.ErrUnauthorized
	}
	holds, err := h.service.Holds(p)
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"holds": holds})
}
