// Package ledgertest opens throwaway SQLite ledgers for package tests.
package ledgertest

import (
	"context"
	"database/sql"
	"testing"

	"ms-booking/internal/ledger"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

// NewDB returns an in-memory ledger with the schema applied. A single
// connection keeps the memory database alive and serialises writers, which
// is enough to exercise the conditional updates from many goroutines.
func NewDB(t testing.TB) *ledger.DB {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, "file::memory:")
	if err != nil {
		t.Fatalf("Failed to connect to in-memory database: %v", err)
	}
	sqldb.SetMaxOpenConns(1)

	bunDB := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { bunDB.Close() })

	db := &ledger.DB{Bun: bunDB}
	if err := db.CreateSchema(context.Background()); err != nil {
		t.Fatalf("Failed to create ledger schema: %v", err)
	}
	return db
}
