package main

import (
	"database/sql"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/onnwee/metasepia/db"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage schema migrations",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		database, err := openDB(cmd.Context())
		if err != nil {
			return err
		}
		defer database.Close()
		if err := db.RunMigrations(database); err != nil {
			return err
		}
		return printVersion(cmd, database)
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back the most recent migration (drops data)",
	RunE: func(cmd *cobra.Command, args []string) error {
		database, err := openDB(cmd.Context())
		if err != nil {
			return err
		}
		defer database.Close()
		if err := db.MigrateDown(database); err != nil {
			return err
		}
		return printVersion(cmd, database)
	},
}

var migrateVersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the applied schema version",
	RunE: func(cmd *cobra.Command, args []string) error {
		database, err := openDB(cmd.Context())
		if err != nil {
			return err
		}
		defer database.Close()
		return printVersion(cmd, database)
	},
}

func printVersion(cmd *cobra.Command, database *sql.DB) error {
	v, dirty, err := db.GetMigrationVersion(database)
	if err != nil {
		return err
	}
	if v == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "schema version: none")
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "schema version: %d (dirty=%v)\n", v, dirty)
	return nil
}
