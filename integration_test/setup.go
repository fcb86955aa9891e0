//go:build integration

package integration_test

import (
	"context"
	"database/sql"
	"os"
	"testing"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"

	"github.com/enjinstarter/enjinstarter-tge-contracts-sub001/store/sqlstore"
)

const tablePrefix = "tge_e2e"

type backend struct {
	name    string
	dialect sqlstore.Dialect
	envVar  string
}

var backends = []backend{
	{name: "postgres", dialect: sqlstore.Postgres, envVar: "POSTGRES_URL"},
	{name: "mysql", dialect: sqlstore.MySQL, envVar: "MYSQL_URL"},
}

// getTestDB returns a database connection for integration tests.
// It reads the backend's URL environment variable and skips the test if not set.
func getTestDB(t *testing.T, b backend) *sql.DB {
	t.Helper()

	dbURL := os.Getenv(b.envVar)
	if dbURL == "" {
		t.Skipf("%s not set, skipping integration test", b.envVar)
	}

	db, err := sql.Open(b.dialect.DriverName(), dbURL)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}

	if err := db.Ping(); err != nil {
		t.Fatalf("failed to ping database: %v", err)
	}

	return db
}

func tableConfig() sqlstore.TableConfig {
	return sqlstore.PrefixedTableConfig(tablePrefix)
}

// setupTables creates the ledger tables under the integration prefix.
func setupTables(t *testing.T, db *sql.DB, d sqlstore.Dialect) {
	t.Helper()

	if err := sqlstore.Migrate(context.Background(), db, d, tableConfig()); err != nil {
		t.Fatalf("failed to create tables: %v", err)
	}
}

// cleanupTables deletes every ledger row.
// Errors are logged but don't fail the test (cleanup is best-effort).
func cleanupTables(t *testing.T, db *sql.DB) {
	t.Helper()

	for _, name := range tableConfig().Names() {
		if _, err := db.Exec("DELETE FROM " + name); err != nil {
			t.Logf("warning: failed to clean %s: %v", name, err)
		}
	}
}

// teardownTables drops the ledger tables.
// Errors are logged but don't fail the test.
func teardownTables(t *testing.T, db *sql.DB) {
	t.Helper()

	names := tableConfig().Names()
	for i := len(names) - 1; i >= 0; i-- {
		if _, err := db.Exec("DROP TABLE IF EXISTS " + names[i]); err != nil {
			t.Logf("warning: failed to drop %s: %v", names[i], err)
		}
	}
}

// forEachBackend runs fn against every configured database with fresh tables.
func forEachBackend(t *testing.T, fn func(t *testing.T, b backend, db *sql.DB)) {
	for _, b := range backends {
		t.Run(b.name, func(t *testing.T) {
			db := getTestDB(t, b)
			defer db.Close()

			teardownTables(t, db)
			setupTables(t, db, b.dialect)
			defer teardownTables(t, db)

			fn(t, b, db)
		})
	}
}
