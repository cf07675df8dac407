// Package testutil holds the Postgres helpers shared by integration tests.
// Every helper that needs a database skips the calling test when
// TEST_DATABASE_URL is unset.
package testutil

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib" // registers "pgx" driver for database/sql

	"github.com/pkordes/tripline/migrations"
)

// DSNEnv names the variable holding the test database connection string.
const DSNEnv = "TEST_DATABASE_URL"

// NewPool returns a pool on the test database, closed at test cleanup.
func NewPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	pool, err := pgxpool.New(context.Background(), dsn(t))
	if err != nil {
		t.Fatalf("testutil.NewPool: %v", err)
	}
	t.Cleanup(pool.Close)

	if err := pool.Ping(context.Background()); err != nil {
		t.Fatalf("testutil.NewPool: ping: %v", err)
	}
	return pool
}

// NewTx begins a transaction that is rolled back at test cleanup, so tests
// leave no rows behind. Begin on the returned Tx opens a savepoint, which lets
// the timeline store run its commit transaction inside it.
func NewTx(t *testing.T) pgx.Tx {
	t.Helper()

	tx, err := NewPool(t).Begin(context.Background())
	if err != nil {
		t.Fatalf("testutil.NewTx: begin: %v", err)
	}
	t.Cleanup(func() { _ = tx.Rollback(context.Background()) })
	return tx
}

// NewSQLDB returns a database/sql handle on the test database for goose,
// closed at test cleanup.
func NewSQLDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := OpenSQLDB(dsn(t))
	if err != nil {
		t.Fatalf("testutil.NewSQLDB: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// OpenSQLDB opens and pings a database/sql handle through the pgx driver.
func OpenSQLDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	if err := db.PingContext(context.Background()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return db, nil
}

// Migrate applies all migrations to the test database. It is meant for
// TestMain, which has no *testing.T; it does nothing when TEST_DATABASE_URL
// is unset.
func Migrate(ctx context.Context) error {
	url := os.Getenv(DSNEnv)
	if url == "" {
		return nil
	}
	db, err := OpenSQLDB(url)
	if err != nil {
		return fmt.Errorf("testutil.Migrate: %w", err)
	}
	defer db.Close()

	if _, err := migrations.Up(ctx, db); err != nil {
		return fmt.Errorf("testutil.Migrate: %w", err)
	}
	return nil
}

func dsn(t *testing.T) string {
	t.Helper()
	v := os.Getenv(DSNEnv)
	if v == "" {
		t.Skip(DSNEnv + " not set; skipping integration test")
	}
	return v
}
