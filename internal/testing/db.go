// Package testing provides database, fixture and mock helpers for package tests.
package testing

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/Alexander4822/Spielwiese/internal/database"
	_ "modernc.org/sqlite"
)

// NewTestDB creates a file-backed SQLite database in t.TempDir() and applies the
// embedded schema registered for name. Unknown names yield an empty database.
//
// Supported schema names:
//   - "prices" - applies prices_schema.sql
//
// The cleanup function closes the connection and is safe to call twice.
func NewTestDB(t *testing.T, name string) (*database.DB, func()) {
	t.Helper()

	path := filepath.Join(t.TempDir(), name+".db")
	db, err := database.New(database.Config{
		Path:    path,
		Profile: database.ProfileStandard,
		Name:    name,
	})
	if err != nil {
		t.Fatalf("Failed to create test database %s: %v", name, err)
	}

	if err := db.Migrate(); err != nil {
		_ = db.Close()
		t.Fatalf("Failed to migrate test database %s: %v", name, err)
	}

	closed := false
	return db, func() {
		if closed {
			return
		}
		closed = true
		if err := db.Close(); err != nil {
			t.Logf("Warning: Failed to close test database %s: %v", name, err)
		}
	}
}

// CountRows returns the number of rows in table
func CountRows(t *testing.T, db *sql.DB, table string) int {
	t.Helper()

	var n int
	if err := db.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&n); err != nil {
		t.Fatalf("Failed to count rows in %s: %v", table, err)
	}
	return n
}
