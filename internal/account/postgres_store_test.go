package account

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bark-bank/bark/internal/bankerr"
	"github.com/bark-bank/bark/internal/infra"
	"github.com/bark-bank/bark/internal/money"
)

func createPostgres(t *testing.T, s *PostgresStore, deposit string) Account {
	t.Helper()
	a, err := s.Create(context.Background(), Account{
		ID:             uuid.NewString(),
		OwnerID:        "pg-owner",
		Number:         fmt.Sprintf("%016d", 1_000_000_000_000_000+rand.Int64N(9_000_000_000_000_000)),
		InitialDeposit: money.MustParse(deposit),
	})
	require.NoError(t, err)
	return a
}

func TestPostgresStoreApplyDeltaNeverOverdraws(t *testing.T) {
	s := NewPostgresStore(infra.TestPool(t))
	ctx := context.Background()
	a := createPostgres(t, s, "100")

	got, err := s.ApplyDelta(ctx, a.ID, money.MustParse("-30.5"))
	require.NoError(t, err)
	assert.Equal(t, "69.5000", got.Balance.String())

	_, err = s.ApplyDelta(ctx, a.ID, money.MustParse("-69.5001"))
	require.ErrorIs(t, err, bankerr.ErrInsufficientFunds)

	got, err = s.ApplyDelta(ctx, a.ID, money.MustParse("-69.5"))
	require.NoError(t, err)
	assert.True(t, got.Balance.IsZero())

	_, err = s.ApplyDelta(ctx, uuid.NewString(), money.FromInt(1))
	require.ErrorIs(t, err, bankerr.ErrNotFound)
}

func TestPostgresStoreDuplicateNumberConflicts(t *testing.T) {
	s := NewPostgresStore(infra.TestPool(t))
	a := createPostgres(t, s, "1")

	_, err := s.Create(context.Background(), Account{
		ID:             uuid.NewString(),
		OwnerID:        "pg-owner",
		Number:         a.Number,
		InitialDeposit: money.FromInt(1),
	})
	require.ErrorIs(t, err, bankerr.ErrConflict)
}

func TestPostgresStoreSnapshotOrdersAndLocks(t *testing.T) {
	pool := infra.TestPool(t)
	s := NewPostgresStore(pool)
	a := createPostgres(t, s, "10")
	b := createPostgres(t, s, "20")
	ids := []string{a.ID, b.ID}
	sort.Strings(ids)

	_, err := s.Snapshot(context.Background(), a.ID, uuid.NewString())
	require.ErrorIs(t, err, bankerr.ErrNotFound)

	tx := infra.NewTxManager(pool)
	err = tx.WithinTx(context.Background(), func(ctx context.Context) error {
		snap, err := s.Snapshot(ctx, b.ID, a.ID)
		require.NoError(t, err)
		require.Len(t, snap, 2)
		assert.Equal(t, ids[0], snap[0].ID)
		assert.Equal(t, ids[1], snap[1].ID)

		// A writer outside the transaction waits on the row lock.
		blocked, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
		defer cancel()
		_, err = s.ApplyDelta(blocked, a.ID, money.FromInt(1))
		assert.Error(t, err)
		return nil
	})
	require.NoError(t, err)

	got, err := s.ApplyDelta(context.Background(), a.ID, money.FromInt(1))
	require.NoError(t, err)
	assert.Equal(t, "11.0000", got.Balance.String())
}
