package account

import (
	"context"
	"crypto/rand"
	"errors"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bark-bank/bark/internal/bankerr"
	"github.com/bark-bank/bark/internal/money"
)

const numberAttempts = 3

// Service exposes account operations on top of a Store.
type Service struct {
	store Store
}

// NewService builds an account service instance.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// CreateInput captures data required to open an account.
type CreateInput struct {
	OwnerID        string
	Number         string
	InitialDeposit money.Money
}

// Create opens an account. A random number is assigned when none is given.
func (s *Service) Create(ctx context.Context, input CreateInput) (Account, error) {
	const op = "account.Create"
	if strings.TrimSpace(input.OwnerID) == "" {
		return Account{}, bankerr.New(bankerr.KindInvalidRequest, op, "owner is required")
	}
	if !input.InitialDeposit.IsPositive() {
		return Account{}, bankerr.New(bankerr.KindInvalidAmount, op, "initial deposit must be positive")
	}

	if input.Number != "" {
		if !validNumber(input.Number) {
			return Account{}, bankerr.New(bankerr.KindInvalidRequest, op, "account number must be 16 digits")
		}
		return s.store.Create(ctx, s.newAccount(input, input.Number))
	}

	var lastErr error
	for i := 0; i < numberAttempts; i++ {
		number, err := generateNumber()
		if err != nil {
			return Account{}, err
		}
		created, err := s.store.Create(ctx, s.newAccount(input, number))
		if err == nil {
			return created, nil
		}
		if !errors.Is(err, bankerr.ErrConflict) {
			return Account{}, err
		}
		lastErr = err
	}
	return Account{}, lastErr
}

func (s *Service) newAccount(input CreateInput, number string) Account {
	return Account{
		ID:             uuid.New().String(),
		OwnerID:        input.OwnerID,
		Number:         number,
		InitialDeposit: input.InitialDeposit,
	}
}

// Get retrieves an account.
func (s *Service) Get(ctx context.Context, id string) (Account, error) {
	return s.store.Get(ctx, id)
}

// List returns the accounts of ownerID, or all accounts for an empty owner.
func (s *Service) List(ctx context.Context, ownerID string) ([]Account, error) {
	return s.store.List(ctx, ownerID)
}

// Balance returns the current balance of an account.
func (s *Service) Balance(ctx context.Context, id string) (Balance, error) {
	a, err := s.store.Get(ctx, id)
	if err != nil {
		return Balance{}, err
	}
	return Balance{AccountID: a.ID, Amount: a.Balance, AsOf: time.Now().UTC()}, nil
}

func validNumber(n string) bool {
	if len(n) != NumberLength {
		return false
	}
	for _, r := range n {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

var numberSpace = new(big.Int).Exp(big.NewInt(10), big.NewInt(NumberLength-1), nil)

// generateNumber returns a random 16 digit number that never starts with 0.
func generateNumber() (string, error) {
	n, err := rand.Int(rand.Reader, new(big.Int).Mul(numberSpace, big.NewInt(9)))
	if err != nil {
		return "", err
	}
	return n.Add(n, numberSpace).String(), nil
}
