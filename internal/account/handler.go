package account

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/bark-bank/bark/internal/auth"
	"github.com/bark-bank/bark/internal/bankerr"
	"github.com/bark-bank/bark/internal/money"
)

// Handler exposes account HTTP endpoints.
type Handler struct {
	service *Service
}

// NewHandler builds an account HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type createRequest struct {
	OwnerID        string `json:"owner_id"`
	Number         string `json:"account_number"`
	InitialDeposit string `json:"initial_deposit"`
}

type accountResponse struct {
	ID        string      `json:"id"`
	OwnerID   string      `json:"owner_id"`
	Number    string      `json:"account_number"`
	Balance   money.Money `json:"balance"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

func toResponse(a Account) accountResponse {
	return accountResponse{
		ID:        a.ID,
		OwnerID:   a.OwnerID,
		Number:    a.MaskedNumber(),
		Balance:   a.Balance,
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
}

// Create opens an account. Non-admin callers may only open accounts for themselves.
func (h *Handler) Create(c *fiber.Ctx) error {
	const op = "account.Handler.Create"
	p, ok := auth.PrincipalFrom(c)
	if !ok {
		return bankerr.ErrUnauthorized
	}
	var req createRequest
	if err := c.BodyParser(&req); err != nil {
		return bankerr.Wrap(bankerr.KindInvalidRequest, op, err)
	}
	if req.OwnerID == "" {
		req.OwnerID = p.UserID
	}
	if !p.CanAccess(req.OwnerID) {
		return bankerr.New(bankerr.KindForbidden, op, "cannot open an account for another user")
	}
	deposit, err := money.Parse(req.InitialDeposit)
	if err != nil {
		return err
	}
	a, err := h.service.Create(c.UserContext(), CreateInput{OwnerID: req.OwnerID, Number: req.Number, InitialDeposit: deposit})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(toResponse(a))
}

// List returns the caller's accounts, or every account for administrators.
func (h *Handler) List(c *fiber.Ctx) error {
	p, ok := auth.PrincipalFrom(c)
	if !ok {
		return bankerr.ErrUnauthorized
	}
	owner := p.UserID
	if p.Admin {
		owner = c.Query("owner_id")
	}
	accounts, err := h.service.List(c.UserContext(), owner)
	if err != nil {
		return err
	}
	out := make([]accountResponse, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, toResponse(a))
	}
	return c.Status(http.StatusOK).JSON(out)
}

// Get returns one account.
func (h *Handler) Get(c *fiber.Ctx) error {
	a, err := h.authorized(c)
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(toResponse(a))
}

// Balance returns the account balance.
func (h *Handler) Balance(c *fiber.Ctx) error {
	a, err := h.authorized(c)
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"account_id": a.ID,
		"balance":    a.Balance,
		"as_of":      time.Now().UTC(),
	})
}

func (h *Handler) authorized(c *fiber.Ctx) (Account, error) {
	p, ok := auth.PrincipalFrom(c)
	if !ok {
		return Account{}, bankerr.ErrUnauthorized
	}
	a, err := h.service.Get(c.UserContext(), c.Params("accountId"))
	if err != nil {
		return Account{}, err
	}
	if !p.CanAccess(a.OwnerID) {
		return Account{}, bankerr.New(bankerr.KindForbidden, "account.Handler", "you don't have permission to access this account")
	}
	return a, nil
}
