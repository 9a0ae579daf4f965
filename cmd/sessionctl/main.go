// Command sessionctl is the operator CLI for the session database: apply or
// roll back migrations, inspect or force-close the open session, and run a
// chat command locally against the stored history.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/onnwee/metasepia/config"
	"github.com/onnwee/metasepia/db"
)

var dsnFlag string

var rootCmd = &cobra.Command{
	Use:   "sessionctl",
	Short: "Inspect and maintain the metasepia session database",
	Long: `sessionctl talks directly to the metasepia Postgres database.

The DSN comes from --dsn, then DB_DSN (a .env file is honoured), then the
docker compose default.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dsnFlag, "dsn", "", "Postgres DSN (overrides DB_DSN)")
	rootCmd.AddCommand(migrateCmd, currentCmd, closeCmd, askCmd)
	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd, migrateVersionCmd)
}

func openDB(ctx context.Context) (*sql.DB, error) {
	database, err := db.Connect(dsnFlag)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := database.PingContext(ctx); err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	return database, nil
}

func loadConfig() (*config.Config, error) {
	return config.Load()
}

func main() {
	_ = godotenv.Load()
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
