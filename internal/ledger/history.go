package ledger

import (
	"context"
	"iter"

	"github.com/bark-bank/bark/internal/account"
)

// DefaultPageSize is the number of transfers fetched per store round trip.
const DefaultPageSize = 100

// History reads the transfers of an account.
type History struct {
	accounts  account.Store
	transfers TransferStore
	pageSize  int
}

// NewHistory builds a history reader. A non-positive pageSize selects
// DefaultPageSize.
func NewHistory(accounts account.Store, transfers TransferStore, pageSize int) *History {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &History{accounts: accounts, transfers: transfers, pageSize: pageSize}
}

// For returns every transfer where accountID is the source or destination,
// newest first with ties broken by descending id. The sequence is lazy: pages
// are fetched as the caller ranges over it, and each range starts over from
// the newest transfer. An unknown account yields a single NotFound error.
func (h *History) For(ctx context.Context, accountID string) iter.Seq2[Transfer, error] {
	return func(yield func(Transfer, error) bool) {
		if _, err := h.accounts.Get(ctx, accountID); err != nil {
			yield(Transfer{}, err)
			return
		}

		var after *Cursor
		for {
			page, err := h.transfers.Page(ctx, accountID, after, h.pageSize)
			if err != nil {
				yield(Transfer{}, err)
				return
			}
			for _, t := range page {
				if !yield(t, nil) {
					return
				}
			}
			if len(page) < h.pageSize {
				return
			}
			c := page[len(page)-1].Cursor()
			after = &c
		}
	}
}

// Collect drains seq into a slice, stopping after limit items when limit is
// positive.
func Collect(seq iter.Seq2[Transfer, error], limit int) ([]Transfer, error) {
	out := make([]Transfer, 0)
	for t, err := range seq {
		if err != nil {
			return nil, err
		}
		out = append(out, t)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}
