package main

import (
	"fmt"
	"log/slog"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Veraticus/cadence/internal/cli"
	"github.com/Veraticus/cadence/internal/storage"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		Long: `Initialize or update the database schema to the latest version.

Other commands migrate automatically; this is useful for preparing a
database ahead of time.`,
		Args: cobra.NoArgs,
		RunE: runMigrate,
	}
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	slog.Info("Running database migrations", "database", appConfig.Database.Path)

	store, err := initStorage(cmd.Context())
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Database schema is at version "+strconv.Itoa(storage.ExpectedSchemaVersion)))
	return nil
}
