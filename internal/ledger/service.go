package ledger

import (
	"context"
	"fmt"

	"github.com/bark-bank/bark/internal/account"
	"github.com/bark-bank/bark/internal/auth"
	"github.com/bark-bank/bark/internal/bankerr"
	"github.com/bark-bank/bark/internal/money"
	"github.com/bark-bank/bark/internal/notification"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 1000
)

// Service applies caller authorization around the engine and history.
type Service struct {
	engine   *Engine
	history  *History
	accounts *account.Service
	notifier notification.Notifier
}

// NewService constructs a ledger service.
func NewService(engine *Engine, history *History, accounts *account.Service, notifier notification.Notifier) *Service {
	return &Service{engine: engine, history: history, accounts: accounts, notifier: notifier}
}

// TransferInput captures the data needed to move funds between accounts.
type TransferInput struct {
	FromAccountID string
	ToAccountID   string
	Amount        string
	Principal     auth.Principal
}

// Transfer authorizes the caller against the source account and runs the
// transfer. Validation order matches the engine: same account first, then the
// amount, then account existence.
func (s *Service) Transfer(ctx context.Context, input TransferInput) (Transfer, error) {
	const op = "ledger.Service.Transfer"
	amount, parseErr := money.Parse(input.Amount)
	if input.FromAccountID != input.ToAccountID {
		if parseErr != nil {
			return Transfer{}, parseErr
		}
		if !amount.IsPositive() {
			return Transfer{}, bankerr.New(bankerr.KindInvalidAmount, op, "amount must be positive")
		}
		from, err := s.accounts.Get(ctx, input.FromAccountID)
		if err != nil {
			return Transfer{}, err
		}
		if !input.Principal.CanAccess(from.OwnerID) {
			return Transfer{}, bankerr.New(bankerr.KindForbidden, op, "not owner of source account")
		}
	}

	t, err := s.engine.Transfer(ctx, input.FromAccountID, input.ToAccountID, amount)
	if err != nil {
		return Transfer{}, err
	}

	if s.notifier != nil {
		if to, err := s.accounts.Get(ctx, t.ToAccountID); err == nil {
			_ = s.notifier.Send(ctx, notification.Message{
				Kind:        notification.KindTransferReceived,
				Destination: to.OwnerID,
				Body:        fmt.Sprintf("You received %s on account %s", t.Amount, to.MaskedNumber()),
			})
		}
	}
	return t, nil
}

// History returns up to limit transfers of accountID, newest first.
func (s *Service) History(ctx context.Context, p auth.Principal, accountID string, limit int) ([]Transfer, error) {
	a, err := s.accounts.Get(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if !p.CanAccess(a.OwnerID) {
		return nil, bankerr.New(bankerr.KindForbidden, "ledger.Service.History", "not owner of account")
	}
	switch {
	case limit <= 0:
		limit = defaultHistoryLimit
	case limit > maxHistoryLimit:
		limit = maxHistoryLimit
	}
	return Collect(s.history.For(ctx, accountID), limit)
}

// Release lifts a quarantine. Administrators only.
func (s *Service) Release(ctx context.Context, p auth.Principal, accountID string) (int, error) {
	if !p.Admin {
		return 0, bankerr.New(bankerr.KindForbidden, "ledger.Service.Release", "administrator required")
	}
	if _, err := s.accounts.Get(ctx, accountID); err != nil {
		return 0, err
	}
	return s.engine.Release(accountID), nil
}

// Holds lists quarantined accounts. Administrators only.
func (s *Service) Holds(p auth.Principal) ([]Hold, error) {
	if !p.Admin {
		return nil, bankerr.New(bankerr.KindForbidden, "ledger.Service.Holds", "administrator required")
	}
	return s.engine.Quarantine().List(), nil
}
