package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bark-bank/bark/internal/bankerr"
	"github.com/bark-bank/bark/internal/money"
)

func TestHistoryOrderingAndPaging(t *testing.T) {
	f := newFixture()
	f.open(t, "A", "100")
	f.open(t, "B", "100")
	f.open(t, "C", "100")

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	stamps := []time.Time{base, base.Add(time.Second), base.Add(time.Second), base.Add(2 * time.Second), base.Add(-time.Hour)}
	i := 0
	e := f.engine(WithClock(func() time.Time { ts := stamps[i]; i++; return ts }))
	ctx := context.Background()

	moves := [][2]string{{"A", "B"}, {"B", "A"}, {"A", "C"}, {"C", "B"}, {"C", "A"}}
	for _, m := range moves {
		_, err := e.Transfer(ctx, m[0], m[1], money.FromInt(1))
		require.NoError(t, err)
	}

	h := NewHistory(f.accounts, f.transfers, 2)
	got, err := Collect(h.For(ctx, "A"), 0)
	require.NoError(t, err)

	ids := make([]int64, 0, len(got))
	for _, tr := range got {
		ids = append(ids, tr.ID)
	}
	// ids 2 and 3 share a timestamp, the later id first; id 5 is oldest.
	assert.Equal(t, []int64{3, 2, 1, 5}, ids)

	again, err := Collect(h.For(ctx, "A"), 0)
	require.NoError(t, err)
	assert.Equal(t, got, again, "history must be restartable")

	limited, err := Collect(h.For(ctx, "A"), 3)
	require.NoError(t, err)
	assert.Len(t, limited, 3)
}

func TestHistoryStopsWhenCallerStops(t *testing.T) {
	f := newFixture()
	f.open(t, "A", "100")
	f.open(t, "B", "0")
	e := f.engine()
	for i := 0; i < 5; i++ {
		_, err := e.Transfer(context.Background(), "A", "B", money.FromInt(1))
		require.NoError(t, err)
	}

	seen := 0
	for _, err := range NewHistory(f.accounts, f.transfers, 1).For(context.Background(), "B") {
		require.NoError(t, err)
		seen++
		if seen == 2 {
			break
		}
	}
	assert.Equal(t, 2, seen)
}

func TestHistoryUnknownAccount(t *testing.T) {
	f := newFixture()
	_, err := Collect(NewHistory(f.accounts, f.transfers, 0).For(context.Background(), "nope"), 0)
	assert.ErrorIs(t, err, bankerr.ErrNotFound)
}

func TestHistoryEmpty(t *testing.T) {
	f := newFixture()
	f.open(t, "A", "1")
	got, err := Collect(NewHistory(f.accounts, f.transfers, 0).For(context.Background(), "A"), 0)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestCursorPrecedes(t *testing.T) {
	now := time.Now()
	c := Cursor{CreatedAt: now, ID: 10}
	assert.True(t, c.Precedes(Transfer{CreatedAt: now, ID: 9}))
	assert.False(t, c.Precedes(Transfer{CreatedAt: now, ID: 10}))
	assert.False(t, c.Precedes(Transfer{CreatedAt: now, ID: 11}))
	assert.True(t, c.Precedes(Transfer{CreatedAt: now.Add(-time.Millisecond), ID: 99}))
	assert.False(t, c.Precedes(Transfer{CreatedAt: now.Add(time.Millisecond), ID: 1}))
}
