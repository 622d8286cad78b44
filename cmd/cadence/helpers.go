package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Veraticus/cadence/internal/annotate"
	"github.com/Veraticus/cadence/internal/common"
	"github.com/Veraticus/cadence/internal/lifecycle"
	"github.com/Veraticus/cadence/internal/storage"
)

// initStorage opens the configured database and brings its schema up to date.
func initStorage(ctx context.Context) (*storage.SQLiteStorage, error) {
	store, err := storage.NewSQLiteStorage(appConfig.Database.Path)
	if err != nil {
		return nil, common.NewUserError("could not open database "+appConfig.Database.Path, err)
	}

	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

// newManager builds a lifecycle manager over store using the configured
// policy and merchant aliases.
func newManager(store *storage.SQLiteStorage) (*lifecycle.Manager, error) {
	manager := lifecycle.NewManager(store, store, appConfig.LifecycleOptions())
	if len(appConfig.Merchants.Aliases) == 0 {
		return manager, nil
	}

	aliases, err := annotate.NewAliases(appConfig.Merchants.Aliases)
	if err != nil {
		return nil, common.NewUserError("merchants.aliases in the config file is invalid", err)
	}
	return manager.WithAnnotator(aliases), nil
}

// addUserFlag registers the --user flag shared by per-user commands.
func addUserFlag(cmd *cobra.Command) {
	cmd.Flags().StringP("user", "u", "", "user id")
}

// requireUser reads --user and rejects an empty value.
func requireUser(cmd *cobra.Command) (string, error) {
	userID, _ := cmd.Flags().GetString("user")
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return "", common.NewUserError("--user is required", nil)
	}
	return userID, nil
}
