package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bark-bank/bark/internal/account"
	"github.com/bark-bank/bark/internal/bankerr"
	"github.com/bark-bank/bark/internal/coordinator"
	"github.com/bark-bank/bark/internal/money"
)

// DefaultLockTimeout bounds how long a transfer waits for its account locks.
const DefaultLockTimeout = 5 * time.Second

// Engine executes transfers between accounts.
type Engine struct {
	accounts    account.Store
	transfers   TransferStore
	coord       coordinator.Coordinator
	tx          Transactor
	atomic      bool
	lockTimeout time.Duration
	now         func() time.Time
	logger      *slog.Logger
	quarantine  *Quarantine
	onState     func(Intent, State)

	stampMu   sync.Mutex
	lastStamp time.Time
}

// Option customises an Engine.
type Option func(*Engine)

// WithTransactor runs each critical section inside tx. The transactor must
// make the section all-or-nothing (a database transaction); the engine then
// relies on it instead of compensating deltas by hand.
func WithTransactor(tx Transactor) Option {
	return func(e *Engine) {
		e.tx = tx
		e.atomic = true
	}
}

// WithLockTimeout sets how long Transfer waits for the account locks. Zero or
// less waits as long as the caller's context allows.
func WithLockTimeout(d time.Duration) Option {
	return func(e *Engine) { e.lockTimeout = d }
}

// WithClock overrides the transfer timestamp source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithLogger sets the engine logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithQuarantine shares a quarantine set with other components.
func WithQuarantine(q *Quarantine) Option {
	return func(e *Engine) { e.quarantine = q }
}

// WithStateHook registers fn to observe every state transition.
func WithStateHook(fn func(Intent, State)) Option {
	return func(e *Engine) { e.onState = fn }
}

// NewEngine wires an engine over the given stores and coordinator.
func NewEngine(accounts account.Store, transfers TransferStore, coord coordinator.Coordinator, opts ...Option) *Engine {
	e := &Engine{
		accounts:    accounts,
		transfers:   transfers,
		coord:       coord,
		tx:          passthrough{},
		lockTimeout: DefaultLockTimeout,
		now:         time.Now,
		logger:      slog.Default(),
		quarantine:  NewQuarantine(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Quarantine exposes the engine's quarantine set.
func (e *Engine) Quarantine() *Quarantine { return e.quarantine }

// Release lifts the quarantine on ids after manual reconciliation.
func (e *Engine) Release(ids ...string) int {
	n := e.quarantine.Release(ids...)
	if n > 0 {
		e.logger.Warn("accounts released from quarantine", "account_ids", ids)
	}
	return n
}

// Transfer moves amount from fromID to toID. It either returns the committed
// record with both balances updated, or an error with no balance changed and
// no record written. Any store failure after the locks are held is reported as
// bankerr.KindInternalInconsistency; when the compensation itself fails, both
// accounts are also quarantined.
func (e *Engine) Transfer(ctx context.Context, fromID, toID string, amount money.Money) (Transfer, error) {
	const op = "ledger.Transfer"
	intent := Intent{FromAccountID: fromID, ToAccountID: toID, Amount: amount}

	if fromID == toID {
		return Transfer{}, e.reject(intent, bankerr.New(bankerr.KindSameAccount, op, "cannot transfer to the same account"))
	}
	if !amount.IsPositive() {
		return Transfer{}, e.reject(intent, bankerr.New(bankerr.KindInvalidAmount, op, "amount must be positive"))
	}
	for _, id := range []string{fromID, toID} {
		if _, err := e.accounts.Get(ctx, id); err != nil {
			return Transfer{}, e.reject(intent, err)
		}
	}
	e.transition(intent, StateValidated)

	lease, err := e.acquire(ctx, fromID, toID)
	if err != nil {
		if bankerr.KindOf(err) != bankerr.KindTimeout {
			err = bankerr.Wrap(bankerr.KindTimeout, op, err)
		}
		return Transfer{}, e.reject(intent, err)
	}
	defer lease.Release()

	// Past this point the caller can no longer abandon the transfer.
	ctx = context.WithoutCancel(ctx)

	var (
		committed Transfer
		state     = StateRejected
	)
	err = e.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		committed, state, err = e.execute(ctx, intent)
		return err
	})
	if err != nil {
		if state == StateCommitted {
			// the commit itself failed
			state = StateRolledBack
		}
		e.transition(intent, state)
		return Transfer{}, err
	}
	e.transition(intent, StateCommitted)
	e.logger.Debug("transfer committed", "transfer_id", committed.ID,
		"from_account_id", fromID, "to_account_id", toID, "amount", amount.String())
	return committed, nil
}

// execute is the critical section. It returns the last state reached so the
// caller can tell a rejection from a rollback.
func (e *Engine) execute(ctx context.Context, in Intent) (Transfer, State, error) {
	const op = "ledger.Transfer"
	if h, held := e.quarantine.Check(in.FromAccountID, in.ToAccountID); held {
		return Transfer{}, StateRejected, bankerr.New(bankerr.KindInternalInconsistency, op,
			fmt.Sprintf("account %s is quarantined: %s", h.AccountID, h.Reason))
	}

	snapshot, err := e.accounts.Snapshot(ctx, in.FromAccountID, in.ToAccountID)
	if err != nil {
		return Transfer{}, StateRejected, err
	}
	var from account.Account
	for _, a := range snapshot {
		if a.ID == in.FromAccountID {
			from = a
		}
	}
	if from.Balance.LessThan(in.Amount) {
		e.logger.Warn("transfer rejected: insufficient funds",
			"from_account_id", in.FromAccountID, "balance", from.Balance.String(), "amount", in.Amount.String())
		return Transfer{}, StateRejected, bankerr.New(bankerr.KindInsufficientFunds, op,
			fmt.Sprintf("balance %s is below %s", from.Balance, in.Amount))
	}

	if _, err := e.accounts.ApplyDelta(ctx, in.FromAccountID, in.Amount.Neg()); err != nil {
		// The pre-check passed under the lock, so a failed debit means the
		// store disagrees with its own snapshot.
		return Transfer{}, StateRejected, bankerr.Wrap(bankerr.KindInternalInconsistency, op, err)
	}
	e.transition(in, StateFundsReserved)

	if _, err := e.accounts.ApplyDelta(ctx, in.ToAccountID, in.Amount); err != nil {
		return Transfer{}, StateRolledBack, e.compensate(ctx, in, err, false)
	}

	record, err := e.transfers.Append(ctx, Transfer{
		FromAccountID: in.FromAccountID,
		ToAccountID:   in.ToAccountID,
		Amount:        in.Amount,
		CreatedAt:     e.stamp(),
	})
	if err != nil {
		return Transfer{}, StateRolledBack, e.compensate(ctx, in, err, true)
	}
	return record, StateCommitted, nil
}

// stamp returns the creation time of the next record: UTC, microsecond
// precision, and never earlier than the previous one so history order follows
// commit order even if the wall clock steps back.
func (e *Engine) stamp() time.Time {
	at := e.now().UTC().Truncate(time.Microsecond)
	e.stampMu.Lock()
	defer e.stampMu.Unlock()
	if at.Before(e.lastStamp) {
		at = e.lastStamp
	}
	e.lastStamp = at
	return at
}

// compensate undoes the applied deltas in reverse order. Under an atomic
// transactor the enclosing transaction is rolled back instead. A recovered
// failure is still reported as an inconsistency, but nothing is quarantined.
func (e *Engine) compensate(ctx context.Context, in Intent, cause error, credited bool) error {
	const op = "ledger.Transfer"
	if e.atomic {
		return bankerr.Wrap(bankerr.KindInternalInconsistency, op, cause)
	}

	var undo []error
	if credited {
		if _, err := e.accounts.ApplyDelta(ctx, in.ToAccountID, in.Amount.Neg()); err != nil {
			undo = append(undo, fmt.Errorf("reverse credit on %s: %w", in.ToAccountID, err))
		}
	}
	if _, err := e.accounts.ApplyDelta(ctx, in.FromAccountID, in.Amount); err != nil {
		undo = append(undo, fmt.Errorf("re-credit %s: %w", in.FromAccountID, err))
	}
	if len(undo) == 0 {
		return bankerr.Wrap(bankerr.KindInternalInconsistency, op, cause)
	}

	rollbackErr := errors.Join(undo...)
	e.quarantine.Hold("transfer rollback failed", e.now().UTC(), in.FromAccountID, in.ToAccountID)
	e.logger.Error("transfer rollback failed; accounts quarantined",
		"from_account_id", in.FromAccountID,
		"to_account_id", in.ToAccountID,
		"amount", in.Amount.String(),
		"credit_applied", credited,
		"cause", cause.Error(),
		"rollback_error", rollbackErr.Error(),
	)
	return bankerr.Wrap(bankerr.KindInternalInconsistency, op, errors.Join(cause, rollbackErr))
}

func (e *Engine) acquire(ctx context.Context, ids ...string) (coordinator.Lease, error) {
	if e.lockTimeout <= 0 {
		return e.coord.Acquire(ctx, ids...)
	}
	ctx, cancel := context.WithTimeout(ctx, e.lockTimeout)
	defer cancel()
	return e.coord.Acquire(ctx, ids...)
}

func (e *Engine) reject(in Intent, err error) error {
	e.transition(in, StateRejected)
	return err
}

func (e *Engine) transition(in Intent, s State) {
	if e.onState != nil {
		e.onState(in, s)
	}
}
