package account

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bark-bank/bark/internal/bankerr"
	"github.com/bark-bank/bark/internal/infra"
	"github.com/bark-bank/bark/internal/money"
)

const accountColumns = `id, owner_id, number, balance::text, initial_deposit::text, created_at, updated_at`

// PostgresStore persists accounts in PostgreSQL. Every query runs on the
// transaction carried by ctx when there is one.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore builds a store backed by PostgreSQL.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// Get fetches an account by identifier.
func (s *PostgresStore) Get(ctx context.Context, id string) (Account, error) {
	if _, err := uuid.Parse(id); err != nil {
		return Account{}, notFound("account.Get", id)
	}
	row := infra.Conn(ctx, s.db).QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id)
	a, err := scanAccount(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Account{}, notFound("account.Get", id)
	}
	return a, err
}

// Snapshot reads the accounts in ascending id order with FOR UPDATE, so inside
// a transaction concurrent writers queue in the same global order.
func (s *PostgresStore) Snapshot(ctx context.Context, ids ...string) ([]Account, error) {
	for _, id := range ids {
		if _, err := uuid.Parse(id); err != nil {
			return nil, notFound("account.Snapshot", id)
		}
	}
	rows, err := infra.Conn(ctx, s.db).Query(ctx, `SELECT `+accountColumns+` FROM accounts
        WHERE id = ANY($1::uuid[]) ORDER BY id FOR UPDATE`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Account, 0, len(ids))
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) != len(uniq(ids)) {
		return nil, bankerr.New(bankerr.KindNotFound, "account.Snapshot", "one or more accounts not found")
	}
	return out, nil
}

// Create inserts an account with its initial deposit as opening balance.
func (s *PostgresStore) Create(ctx context.Context, a Account) (Account, error) {
	const op = "account.Create"
	if !a.InitialDeposit.IsPositive() {
		return Account{}, bankerr.New(bankerr.KindInvalidAmount, op, "initial deposit must be positive")
	}
	now := time.Now().UTC().Truncate(time.Microsecond)
	row := infra.Conn(ctx, s.db).QueryRow(ctx, `INSERT INTO accounts
        (id, owner_id, number, balance, initial_deposit, created_at, updated_at)
        VALUES ($1, $2, $3, $4::numeric, $4::numeric, $5, $5)
        RETURNING `+accountColumns, a.ID, a.OwnerID, a.Number, a.InitialDeposit.String(), now)
	created, err := scanAccount(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Account{}, bankerr.New(bankerr.KindConflict, op, "an account with this number already exists")
		}
		return Account{}, fmt.Errorf("%s: %w", op, err)
	}
	return created, nil
}

// ApplyDelta adds delta in a single conditional UPDATE so the read, the
// non-negative check and the write cannot be split by another writer.
func (s *PostgresStore) ApplyDelta(ctx context.Context, id string, delta money.Money) (Account, error) {
	const op = "account.ApplyDelta"
	if _, err := uuid.Parse(id); err != nil {
		return Account{}, notFound(op, id)
	}
	row := infra.Conn(ctx, s.db).QueryRow(ctx, `UPDATE accounts
        SET balance = balance + $2::numeric, updated_at = $3
        WHERE id = $1 AND balance + $2::numeric >= 0
        RETURNING `+accountColumns, id, delta.String(), time.Now().UTC().Truncate(time.Microsecond))
	a, err := scanAccount(row)
	if err == nil {
		return a, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return Account{}, fmt.Errorf("%s: %w", op, err)
	}
	current, getErr := s.Get(ctx, id)
	if getErr != nil {
		return Account{}, getErr
	}
	return Account{}, bankerr.New(bankerr.KindInsufficientFunds, op,
		fmt.Sprintf("balance %s cannot absorb %s", current.Balance, delta))
}

// List returns accounts newest first.
func (s *PostgresStore) List(ctx context.Context, ownerID string) ([]Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts`
	args := []any{}
	if ownerID != "" {
		query += ` WHERE owner_id = $1`
		args = append(args, ownerID)
	}
	query += ` ORDER BY created_at DESC, id`

	rows, err := infra.Conn(ctx, s.db).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Account, 0)
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func scanAccount(row pgx.Row) (Account, error) {
	var (
		a                       Account
		id                      uuid.UUID
		balance, initialDeposit string
		createdAt, updatedAt    time.Time
	)
	if err := row.Scan(&id, &a.OwnerID, &a.Number, &balance, &initialDeposit, &createdAt, &updatedAt); err != nil {
		return Account{}, err
	}
	var err error
	if a.Balance, err = money.Parse(balance); err != nil {
		return Account{}, err
	}
	if a.InitialDeposit, err = money.Parse(initialDeposit); err != nil {
		return Account{}, err
	}
	a.ID = id.String()
	a.CreatedAt = createdAt.UTC()
	a.UpdatedAt = updatedAt.UTC()
	return a, nil
}

func uniq(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}
