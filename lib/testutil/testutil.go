package testutil

import (
	"database/sql"
	"testing"

	"harvest/lib/sqliteutil"
)

// OpenDB opens an in-memory sqlite database with schema applied, it is
// closed when the test finishes.
func OpenDB(t testing.TB, schema string) *sql.DB {
	t.Helper()
	database, err := sqliteutil.OpenDB(schema, ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		database.Close()
	})
	return database
}
