// Package dbtest opens throwaway sqlite databases for tests.
package dbtest

import (
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"

	"github.com/ovaphlow/pitchfork/service-auth-go/pkg/database"
)

// Open returns a connected sqlite database in t's temp dir, closed on cleanup.
func Open(t testing.TB) *sqlx.DB {
	t.Helper()
	cfg := database.Config{
		Driver:   database.DriverSQLite,
		DSN:      database.SQLiteDSN(filepath.Join(t.TempDir(), "auth.db")),
		MaxConns: 1,
	}
	db, err := database.Connect(cfg)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}
