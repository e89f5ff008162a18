package infra

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bark-bank/bark/internal/logging"
)

// TestDatabaseEnv names the variable holding a disposable PostgreSQL URL for
// integration tests.
const TestDatabaseEnv = "TEST_DATABASE_URL"

// TestPool connects to the database named by TEST_DATABASE_URL, applies the
// migrations and closes the pool when t ends. It skips t when the variable is
// unset. Tests must not assume an empty database.
func TestPool(t testing.TB) *pgxpool.Pool {
	t.Helper()
	url := os.Getenv(TestDatabaseEnv)
	if url == "" {
		t.Skipf("%s not set", TestDatabaseEnv)
	}
	if err := Migrate(url, logging.Discard()); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	pool, err := NewPostgresPool(ctx, url, DefaultPoolOptions())
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(pool.Close)
	return pool
}
