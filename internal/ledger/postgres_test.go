package ledger

import (
	"context"
	"fmt"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bark-bank/bark/internal/account"
	"github.com/bark-bank/bark/internal/bankerr"
	"github.com/bark-bank/bark/internal/coordinator"
	"github.com/bark-bank/bark/internal/infra"
	"github.com/bark-bank/bark/internal/logging"
	"github.com/bark-bank/bark/internal/money"
)

func openPostgres(t *testing.T, s account.Store, deposit string) string {
	t.Helper()
	a, err := s.Create(context.Background(), account.Account{
		ID:             uuid.NewString(),
		OwnerID:        "pg-owner",
		Number:         fmt.Sprintf("%016d", 1_000_000_000_000_000+rand.Int64N(9_000_000_000_000_000)),
		InitialDeposit: money.MustParse(deposit),
	})
	require.NoError(t, err)
	return a.ID
}

func TestPostgresEngineTransfersAndPagesHistory(t *testing.T) {
	pool := infra.TestPool(t)
	accounts := account.NewPostgresStore(pool)
	transfers := NewPostgresTransfers(pool)
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	e := NewEngine(accounts, transfers, coordinator.NewLocal(),
		WithTransactor(infra.NewTxManager(pool)),
		WithLogger(logging.Discard()),
		WithClock(func() time.Time { return at }))
	ctx := context.Background()

	a := openPostgres(t, accounts, "100")
	b := openPostgres(t, accounts, "10")

	var ids []int64
	for i := 1; i <= 5; i++ {
		tr, err := e.Transfer(ctx, a, b, money.FromInt(int64(i)))
		require.NoError(t, err)
		ids = append(ids, tr.ID)
	}
	_, err := e.Transfer(ctx, b, a, money.FromInt(1000))
	require.ErrorIs(t, err, bankerr.ErrInsufficientFunds)

	got, err := accounts.Get(ctx, a)
	require.NoError(t, err)
	assert.Equal(t, "85.0000", got.Balance.String())
	got, err = accounts.Get(ctx, b)
	require.NoError(t, err)
	assert.Equal(t, "25.0000", got.Balance.String())

	// Equal timestamps: pages of two must still walk ids strictly downwards.
	history, err := Collect(NewHistory(accounts, transfers, 2).For(ctx, b), 0)
	require.NoError(t, err)
	require.Len(t, history, 5)
	for i, tr := range history {
		assert.Equal(t, ids[len(ids)-1-i], tr.ID)
		assert.Equal(t, at, tr.CreatedAt)
	}

	in, out, err := transfers.Totals(ctx, b)
	require.NoError(t, err)
	assert.Equal(t, "15.0000", in.String())
	assert.True(t, out.IsZero())
}

func TestPostgresEngineRollsBackFailedRecord(t *testing.T) {
	pool := infra.TestPool(t)
	accounts := account.NewPostgresStore(pool)
	transfers := &FaultyTransfers{TransferStore: NewPostgresTransfers(pool), Err: fmt.Errorf("insert failed")}
	e := NewEngine(accounts, transfers, coordinator.NewLocal(),
		WithTransactor(infra.NewTxManager(pool)),
		WithLogger(logging.Discard()))
	ctx := context.Background()

	a := openPostgres(t, accounts, "100")
	b := openPostgres(t, accounts, "1")

	_, err := e.Transfer(ctx, a, b, money.FromInt(30))
	require.ErrorIs(t, err, bankerr.ErrInternalInconsistency)

	got, err := accounts.Get(ctx, a)
	require.NoError(t, err)
	assert.Equal(t, "100.0000", got.Balance.String())
	got, err = accounts.Get(ctx, b)
	require.NoError(t, err)
	assert.Equal(t, "1.0000", got.Balance.String())
	assert.Zero(t, e.Quarantine().Len())
}
