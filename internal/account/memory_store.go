package account

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/bark-bank/bark/internal/bankerr"
	"github.com/bark-bank/bark/internal/money"
)

type memoryStore struct {
	mu       sync.RWMutex
	accounts map[string]Account
	numbers  map[string]string
	now      func() time.Time
}

// NewMemoryStore creates a concurrency-safe in-memory account store useful for
// development and unit tests.
func NewMemoryStore() Store {
	return &memoryStore{
		accounts: make(map[string]Account),
		numbers:  make(map[string]string),
		now:      time.Now,
	}
}

func (s *memoryStore) Get(_ context.Context, id string) (Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.accounts[id]
	if !ok {
		return Account{}, notFound("account.Get", id)
	}
	return a, nil
}

func (s *memoryStore) Snapshot(_ context.Context, ids ...string) ([]Account, error) {
	ordered := append([]string(nil), ids...)
	sort.Strings(ordered)

	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Account, 0, len(ordered))
	for _, id := range ordered {
		a, ok := s.accounts[id]
		if !ok {
			return nil, notFound("account.Snapshot", id)
		}
		out = append(out, a)
	}
	return out, nil
}

func (s *memoryStore) Create(_ context.Context, a Account) (Account, error) {
	if !a.InitialDeposit.IsPositive() {
		return Account{}, bankerr.New(bankerr.KindInvalidAmount, "account.Create", "initial deposit must be positive")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.numbers[a.Number]; taken {
		return Account{}, bankerr.New(bankerr.KindConflict, "account.Create", "an account with this number already exists")
	}
	if _, taken := s.accounts[a.ID]; taken {
		return Account{}, bankerr.New(bankerr.KindConflict, "account.Create", "account id already exists")
	}

	now := s.now().UTC()
	a.Balance = a.InitialDeposit
	a.CreatedAt = now
	a.UpdatedAt = now
	s.accounts[a.ID] = a
	s.numbers[a.Number] = a.ID
	return a, nil
}

func (s *memoryStore) ApplyDelta(_ context.Context, id string, delta money.Money) (Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return Account{}, notFound("account.ApplyDelta", id)
	}
	next := a.Balance.Add(delta)
	if next.IsNegative() {
		return Account{}, bankerr.New(bankerr.KindInsufficientFunds, "account.ApplyDelta",
			fmt.Sprintf("balance %s cannot absorb %s", a.Balance, delta))
	}
	a.Balance = next
	a.UpdatedAt = s.now().UTC()
	s.accounts[id] = a
	return a, nil
}

func (s *memoryStore) List(_ context.Context, ownerID string) ([]Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Account, 0)
	for _, a := range s.accounts {
		if ownerID == "" || a.OwnerID == ownerID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func notFound(op, id string) error {
	return bankerr.New(bankerr.KindNotFound, op, fmt.Sprintf("account %s not found", id))
}
