// Package ledger moves funds between accounts. The Engine is the only caller of
// account.Store.ApplyDelta on the transfer path and appends exactly one
// immutable Transfer per committed movement.
package ledger

import (
	"context"
	"time"

	"github.com/bark-bank/bark/internal/money"
)

// Transfer is the immutable record of a committed movement of funds.
type Transfer struct {
	ID            int64       `json:"id"`
	FromAccountID string      `json:"from_account_id"`
	ToAccountID   string      `json:"to_account_id"`
	Amount        money.Money `json:"amount"`
	CreatedAt     time.Time   `json:"created_at"`
}

// Cursor is a keyset position in the history order (created_at desc, id desc).
type Cursor struct {
	CreatedAt time.Time
	ID        int64
}

// Cursor returns the position of t.
func (t Transfer) Cursor() Cursor {
	return Cursor{CreatedAt: t.CreatedAt, ID: t.ID}
}

// Precedes reports whether t sorts strictly after c, i.e. t is older than the
// cursor position.
func (c Cursor) Precedes(t Transfer) bool {
	if t.CreatedAt.Equal(c.CreatedAt) {
		return t.ID < c.ID
	}
	return t.CreatedAt.Before(c.CreatedAt)
}

// TransferStore persists transfer records. Records are append-only.
type TransferStore interface {
	// Append stores t and returns it with its assigned identifier.
	Append(ctx context.Context, t Transfer) (Transfer, error)
	// Page returns up to limit transfers touching accountID, newest first,
	// starting strictly after the given cursor (nil starts at the newest).
	Page(ctx context.Context, accountID string, after *Cursor, limit int) ([]Transfer, error)
	// Totals sums incoming and outgoing amounts for accountID.
	Totals(ctx context.Context, accountID string) (in, out money.Money, err error)
}

// Transactor runs fn as one unit of work.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type passthrough struct{}

func (passthrough) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// State is the lifecycle position of a single transfer attempt.
type State string

const (
	StateValidated     State = "validated"
	StateFundsReserved State = "funds_reserved"
	StateCommitted     State = "committed"
	StateRejected      State = "rejected"
	StateRolledBack    State = "rolled_back"
)

// Terminal reports whether no further transition can follow s.
func (s State) Terminal() bool {
	return s == StateCommitted || s == StateRejected || s == StateRolledBack
}

// Intent is a requested movement, logged in full when the books cannot be
// restored automatically.
type Intent struct {
	FromAccountID string
	ToAccountID   string
	Amount        money.Money
}
