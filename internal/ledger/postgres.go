package ledger

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bark-bank/bark/internal/infra"
	"github.com/bark-bank/bark/internal/money"
)

const transferColumns = `id, from_account_id, to_account_id, amount::text, created_at`

// PostgresTransfers persists transfer records in PostgreSQL. Inside
// infra.TxManager the insert shares the transaction of the balance updates, so
// a record never becomes visible without both deltas.
type PostgresTransfers struct {
	db *pgxpool.Pool
}

// NewPostgresTransfers constructs a Postgres-backed transfer store.
func NewPostgresTransfers(db *pgxpool.Pool) *PostgresTransfers {
	return &PostgresTransfers{db: db}
}

// Append inserts a transfer and returns it with the generated id.
func (s *PostgresTransfers) Append(ctx context.Context, t Transfer) (Transfer, error) {
	const query = `INSERT INTO transfers (from_account_id, to_account_id, amount, created_at)
        VALUES ($1, $2, $3::numeric, $4) RETURNING id`
	err := infra.Conn(ctx, s.db).QueryRow(ctx, query,
		t.FromAccountID, t.ToAccountID, t.Amount.String(), t.CreatedAt).Scan(&t.ID)
	if err != nil {
		return Transfer{}, fmt.Errorf("insert transfer: %w", err)
	}
	return t, nil
}

// Page returns one keyset page of an account's history.
func (s *PostgresTransfers) Page(ctx context.Context, accountID string, after *Cursor, limit int) ([]Transfer, error) {
	query := `SELECT ` + transferColumns + ` FROM transfers
        WHERE (from_account_id = $1 OR to_account_id = $1)`
	args := []any{accountID}
	if after != nil {
		query += ` AND (created_at, id) < ($2, $3)`
		args = append(args, after.CreatedAt, after.ID)
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC, id DESC LIMIT $%d`, len(args)+1)
	args = append(args, limit)

	rows, err := infra.Conn(ctx, s.db).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query transfers: %w", err)
	}
	defer rows.Close()

	out := make([]Transfer, 0, limit)
	for rows.Next() {
		var (
			t      Transfer
			amount string
		)
		if err := rows.Scan(&t.ID, &t.FromAccountID, &t.ToAccountID, &amount, &t.CreatedAt); err != nil {
			return nil, err
		}
		if t.Amount, err = money.Parse(amount); err != nil {
			return nil, err
		}
		t.CreatedAt = t.CreatedAt.UTC()
		out = append(out, t)
	}
	return out, rows.Err()
}

// Totals sums the incoming and outgoing amounts of an account.
func (s *PostgresTransfers) Totals(ctx context.Context, accountID string) (money.Money, money.Money, error) {
	const query = `SELECT
            COALESCE(SUM(amount) FILTER (WHERE to_account_id = $1), 0)::text,
            COALESCE(SUM(amount) FILTER (WHERE from_account_id = $1), 0)::text
        FROM transfers
        WHERE from_account_id = $1 OR to_account_id = $1`
	var in, out string
	if err := infra.Conn(ctx, s.db).QueryRow(ctx, query, accountID).Scan(&in, &out); err != nil {
		return money.Zero, money.Zero, fmt.Errorf("sum transfers: %w", err)
	}
	inM, err := money.Parse(in)
	if err != nil {
		return money.Zero, money.Zero, err
	}
	outM, err := money.Parse(out)
	if err != nil {
		return money.Zero, money.Zero, err
	}
	return inM, outM, nil
}
