package ledger

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"

	"github.com/bark-bank/bark/internal/bankerr"
	"github.com/bark-bank/bark/internal/money"
)

// Mismatch is an account whose balance disagrees with its transfer records.
type Mismatch struct {
	AccountID string
	Balance   money.Money
	Expected  money.Money
}

// Report summarises one reconciliation run.
type Report struct {
	Checked    int
	Mismatches []Mismatch
}

// Reconciler verifies balance == initial deposit + incoming - outgoing for
// every account. Each account is checked while holding its lock so no
// in-flight transfer is observed half way.
type Reconciler struct {
	engine *Engine
	logger *slog.Logger
}

// NewReconciler builds a reconciler sharing the engine's stores, locks and
// quarantine.
func NewReconciler(engine *Engine, logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = engine.logger
	}
	return &Reconciler{engine: engine, logger: logger}
}

// Run checks every account once. Mismatched accounts are quarantined.
func (r *Reconciler) Run(ctx context.Context) (Report, error) {
	e := r.engine
	accounts, err := e.accounts.List(ctx, "")
	if err != nil {
		return Report{}, fmt.Errorf("list accounts: %w", err)
	}

	var report Report
	for _, a := range accounts {
		if err := ctx.Err(); err != nil {
			return report, bankerr.Wrap(bankerr.KindTimeout, "ledger.Reconcile", err)
		}
		m, ok, err := r.check(ctx, a.ID)
		if err != nil {
			return report, err
		}
		report.Checked++
		if ok {
			continue
		}
		report.Mismatches = append(report.Mismatches, m)
		e.quarantine.Hold("reconciliation mismatch", e.now().UTC(), m.AccountID)
		r.logger.Error("balance does not match transfer records; account quarantined",
			"account_id", m.AccountID, "balance", m.Balance.String(), "expected", m.Expected.String())
	}
	r.logger.Info("reconciliation finished", "checked", report.Checked, "mismatches", len(report.Mismatches))
	return report, nil
}

func (r *Reconciler) check(ctx context.Context, id string) (Mismatch, bool, error) {
	e := r.engine
	lease, err := e.acquire(ctx, id)
	if err != nil {
		return Mismatch{}, false, err
	}
	defer lease.Release()

	a, err := e.accounts.Get(ctx, id)
	if err != nil {
		return Mismatch{}, false, err
	}
	in, out, err := e.transfers.Totals(ctx, id)
	if err != nil {
		return Mismatch{}, false, err
	}
	expected := a.InitialDeposit.Add(in).Sub(out)
	return Mismatch{AccountID: id, Balance: a.Balance, Expected: expected}, a.Balance.Equal(expected), nil
}

// Schedule registers Run on c using a standard cron spec.
func (r *Reconciler) Schedule(c *cron.Cron, spec string) (cron.EntryID, error) {
	return c.AddFunc(spec, func() {
		if _, err := r.Run(context.Background()); err != nil {
			r.logger.Error("reconciliation failed", "error", err)
		}
	})
}
