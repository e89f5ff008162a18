package ledger

import (
	"context"
	"sync"

	"github.com/bark-bank/bark/internal/account"
	"github.com/bark-bank/bark/internal/money"
)

// FaultyStore wraps an account.Store and fails selected ApplyDelta calls. It
// is a test helper for the rollback paths.
type FaultyStore struct {
	account.Store

	mu    sync.Mutex
	calls int
	fail  map[int]error
}

// NewFaultyStore wraps s without any scheduled failure.
func NewFaultyStore(s account.Store) *FaultyStore {
	return &FaultyStore{Store: s, fail: make(map[int]error)}
}

// FailCall makes the n-th ApplyDelta call (1-based, counted from now on)
// return err without touching the balance.
func (f *FaultyStore) FailCall(n int, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail[f.calls+n] = err
}

func (f *FaultyStore) ApplyDelta(ctx context.Context, id string, delta money.Money) (account.Account, error) {
	f.mu.Lock()
	f.calls++
	err := f.fail[f.calls]
	f.mu.Unlock()
	if err != nil {
		return account.Account{}, err
	}
	return f.Store.ApplyDelta(ctx, id, delta)
}

// FaultyTransfers wraps a TransferStore and fails every Append while Err is set.
type FaultyTransfers struct {
	TransferStore
	Err error
}

func (f *FaultyTransfers) Append(ctx context.Context, t Transfer) (Transfer, error) {
	if f.Err != nil {
		return Transfer{}, f.Err
	}
	return f.TransferStore.Append(ctx, t)
}
