package ledger

import (
	"context"
	"sort"
	"sync"

	"github.com/bark-bank/bark/internal/bankerr"
	"github.com/bark-bank/bark/internal/money"
)

type inMemoryTransfers struct {
	mu        sync.RWMutex
	records   []Transfer
	byAccount map[string][]int
}

// NewInMemoryTransfers creates a concurrency-safe in-memory transfer store
// useful for development and unit tests.
func NewInMemoryTransfers() TransferStore {
	return &inMemoryTransfers{byAccount: make(map[string][]int)}
}

func (s *inMemoryTransfers) Append(_ context.Context, t Transfer) (Transfer, error) {
	if t.FromAccountID == t.ToAccountID {
		return Transfer{}, bankerr.New(bankerr.KindSameAccount, "ledger.Append", "transfer must reference two accounts")
	}
	if !t.Amount.IsPositive() {
		return Transfer{}, bankerr.New(bankerr.KindInvalidAmount, "ledger.Append", "amount must be positive")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	t.ID = int64(len(s.records) + 1)
	idx := len(s.records)
	s.records = append(s.records, t)
	s.byAccount[t.FromAccountID] = append(s.byAccount[t.FromAccountID], idx)
	s.byAccount[t.ToAccountID] = append(s.byAccount[t.ToAccountID], idx)
	return t, nil
}

func (s *inMemoryTransfers) Page(_ context.Context, accountID string, after *Cursor, limit int) ([]Transfer, error) {
	s.mu.RLock()
	matches := make([]Transfer, 0, len(s.byAccount[accountID]))
	for _, idx := range s.byAccount[accountID] {
		t := s.records[idx]
		if after == nil || after.Precedes(t) {
			matches = append(matches, t)
		}
	}
	s.mu.RUnlock()

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].CreatedAt.Equal(matches[j].CreatedAt) {
			return matches[i].ID > matches[j].ID
		}
		return matches[i].CreatedAt.After(matches[j].CreatedAt)
	})
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

func (s *inMemoryTransfers) Totals(_ context.Context, accountID string) (money.Money, money.Money, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	in, out := money.Zero, money.Zero
	for _, idx := range s.byAccount[accountID] {
		t := s.records[idx]
		if t.ToAccountID == accountID {
			in = in.Add(t.Amount)
		}
		if t.FromAccountID == accountID {
			out = out.Add(t.Amount)
		}
	}
	return in, out, nil
}
