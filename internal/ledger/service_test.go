package ledger

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/bark-bank/bark/internal/account"
	"github.com/bark-bank/bark/internal/auth"
	"github.com/bark-bank/bark/internal/bankerr"
	"github.com/bark-bank/bark/internal/coordinator"
	"github.com/bark-bank/bark/internal/logging"
	"github.com/bark-bank/bark/internal/money"
	"github.com/bark-bank/bark/internal/notification"
)

type serviceFixture struct {
	svc      *Service
	accounts *account.Service
	store    account.Store
	notifier *notification.Recorder
}

func newServiceFixture() serviceFixture {
	store := account.NewMemoryStore()
	transfers := NewInMemoryTransfers()
	engine := NewEngine(store, transfers, coordinator.NewLocal(), WithLogger(logging.Discard()))
	accounts := account.NewService(store)
	notifier := &notification.Recorder{}
	return serviceFixture{
		svc:      NewService(engine, NewHistory(store, transfers, 0), accounts, notifier),
		accounts: accounts,
		store:    store,
		notifier: notifier,
	}
}

func (f serviceFixture) open(t *testing.T, owner, deposit string) account.Account {
	t.Helper()
	a, err := f.accounts.Create(context.Background(), account.CreateInput{OwnerID: owner, InitialDeposit: money.MustParse(deposit)})
	if err != nil {
		t.Fatalf("create account: %v", err)
	}
	return a
}

func TestServiceTransferSuccess(t *testing.T) {
	f := newServiceFixture()
	alice, bob := uuid.NewString(), uuid.NewString()
	from := f.open(t, alice, "100")
	to := f.open(t, bob, "1")

	tr, err := f.svc.Transfer(context.Background(), TransferInput{
		FromAccountID: from.ID,
		ToAccountID:   to.ID,
		Amount:        "20.5",
		Principal:     auth.Principal{UserID: alice},
	})
	if err != nil {
		t.Fatalf("transfer failed: %v", err)
	}
	if tr.Amount.String() != "20.5000" {
		t.Fatalf("unexpected amount %s", tr.Amount)
	}

	msgs := f.notifier.Messages()
	if len(msgs) != 1 || msgs[0].Kind != notification.KindTransferReceived || msgs[0].Destination != bob {
		t.Fatalf("expected notification to the recipient, got %+v", msgs)
	}
}

func TestServiceTransferRequiresOwnership(t *testing.T) {
	f := newServiceFixture()
	from := f.open(t, "alice", "100")
	to := f.open(t, "bob", "1")
	ctx := context.Background()

	_, err := f.svc.Transfer(ctx, TransferInput{FromAccountID: from.ID, ToAccountID: to.ID, Amount: "1", Principal: auth.Principal{UserID: "bob"}})
	if bankerr.KindOf(err) != bankerr.KindForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}

	if _, err := f.svc.Transfer(ctx, TransferInput{FromAccountID: from.ID, ToAccountID: to.ID, Amount: "1", Principal: auth.Principal{UserID: "ops", Admin: true}}); err != nil {
		t.Fatalf("admin transfer failed: %v", err)
	}
}

func TestServiceTransferValidation(t *testing.T) {
	f := newServiceFixture()
	from := f.open(t, "alice", "100")
	to := f.open(t, "bob", "1")
	p := auth.Principal{UserID: "alice"}
	ctx := context.Background()

	cases := []struct {
		name  string
		input TransferInput
		want  bankerr.Kind
	}{
		{"same account", TransferInput{FromAccountID: from.ID, ToAccountID: from.ID, Amount: "abc", Principal: p}, bankerr.KindSameAccount},
		{"malformed", TransferInput{FromAccountID: from.ID, ToAccountID: to.ID, Amount: "ten", Principal: p}, bankerr.KindInvalidAmount},
		{"too precise", TransferInput{FromAccountID: from.ID, ToAccountID: to.ID, Amount: "0.00001", Principal: p}, bankerr.KindInvalidAmount},
		{"negative", TransferInput{FromAccountID: from.ID, ToAccountID: to.ID, Amount: "-1", Principal: p}, bankerr.KindInvalidAmount},
		{"unknown source", TransferInput{FromAccountID: "missing", ToAccountID: to.ID, Amount: "1", Principal: p}, bankerr.KindNotFound},
		{"unknown destination", TransferInput{FromAccountID: from.ID, ToAccountID: "missing", Amount: "1", Principal: p}, bankerr.KindNotFound},
		{"insufficient", TransferInput{FromAccountID: from.ID, ToAccountID: to.ID, Amount: "100.0001", Principal: p}, bankerr.KindInsufficientFunds},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Transfer(ctx, tc.input)
			if got := bankerr.KindOf(err); got != tc.want {
				t.Fatalf("expected %s, got %s (%v)", tc.want, got, err)
			}
		})
	}
	if len(f.notifier.Messages()) != 0 {
		t.Fatalf("failed transfers must not notify")
	}
}

func TestServiceHistoryAuthorization(t *testing.T) {
	f := newServiceFixture()
	from := f.open(t, "alice", "100")
	to := f.open(t, "bob", "1")
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if _, err := f.svc.Transfer(ctx, TransferInput{FromAccountID: from.ID, ToAccountID: to.ID, Amount: "1", Principal: auth.Principal{UserID: "alice"}}); err != nil {
			t.Fatalf("transfer: %v", err)
		}
	}

	got, err := f.svc.History(ctx, auth.Principal{UserID: "bob"}, to.ID, 2)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 transfers, got %d", len(got))
	}

	if _, err := f.svc.History(ctx, auth.Principal{UserID: "bob"}, from.ID, 0); bankerr.KindOf(err) != bankerr.KindForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestServiceReleaseAdminOnly(t *testing.T) {
	f := newServiceFixture()
	a := f.open(t, "alice", "1")
	ctx := context.Background()

	if _, err := f.svc.Release(ctx, auth.Principal{UserID: "alice"}, a.ID); bankerr.KindOf(err) != bankerr.KindForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}
	f.svc.engine.Quarantine().Hold("test", a.CreatedAt, a.ID)
	n, err := f.svc.Release(ctx, auth.Principal{UserID: "ops", Admin: true}, a.ID)
	if err != nil || n != 1 {
		t.Fatalf("release: n=%d err=%v", n, err)
	}
	holds, err := f.svc.Holds(auth.Principal{UserID: "ops", Admin: true})
	if err != nil || len(holds) != 0 {
		t.Fatalf("holds: %v %v", holds, err)
	}
}
