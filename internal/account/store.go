package account

import (
	"context"

	"github.com/bark-bank/bark/internal/money"
)

// Store is the sole owner of persisted account balances and the only component
// permitted to write one.
type Store interface {
	// Get reads the current snapshot of an account.
	Get(ctx context.Context, id string) (Account, error)
	// Snapshot reads several accounts in ascending id order. Inside a
	// database transaction the rows stay locked until commit.
	Snapshot(ctx context.Context, ids ...string) ([]Account, error)
	// Create persists a new account. The initial deposit must be positive and
	// the account number unused.
	Create(ctx context.Context, a Account) (Account, error)
	// ApplyDelta atomically adds delta to the balance and commits only when
	// the result is not negative.
	ApplyDelta(ctx context.Context, id string, delta money.Money) (Account, error)
	// List returns the accounts of ownerID, or every account when ownerID is empty.
	List(ctx context.Context, ownerID string) ([]Account, error)
}
