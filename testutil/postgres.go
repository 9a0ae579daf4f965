package testutil

import (
	"context"
	"database/sql"
	"os"
	"testing"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/onnwee/metasepia/db"
)

// SetupTestDB creates a test database connection, applies the schema and
// empties the sessions table. It skips the test if TEST_PG_DSN environment
// variable is not set.
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	dsn := os.Getenv("TEST_PG_DSN")
	if dsn == "" {
		t.Skip("TEST_PG_DSN not set")
	}
	database, err := sql.Open("pgx", dsn)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	ctx := context.Background()
	if err := db.Migrate(ctx, database); err != nil {
		database.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}
	if _, err := database.ExecContext(ctx, `TRUNCATE sessions RESTART IDENTITY`); err != nil {
		database.Close()
		t.Fatalf("failed to reset sessions: %v", err)
	}
	t.Cleanup(func() {
		database.Close()
	})
	return database
}
