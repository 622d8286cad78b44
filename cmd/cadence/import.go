package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Veraticus/cadence/internal/cli"
	"github.com/Veraticus/cadence/internal/common"
	"github.com/Veraticus/cadence/internal/model"
	"github.com/Veraticus/cadence/internal/ofx"
)

func importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import transactions into the local store",
	}

	ofxCmd := &cobra.Command{
		Use:   "ofx [files...]",
		Short: "Import transactions from OFX/QFX statements",
		Long: `Import transactions from OFX or QFX files exported from your bank.

Examples:
  cadence import ofx --user alice ~/Downloads/chase_2025_*.qfx
  cadence import ofx --user alice --dry-run statement.ofx`,
		Args: cobra.MinimumNArgs(1),
		RunE: runImportOFX,
	}
	addUserFlag(ofxCmd)
	ofxCmd.Flags().BoolP("dry-run", "d", false, "Preview import without saving")

	jsonCmd := &cobra.Command{
		Use:   "json [file]",
		Short: "Import a JSON array of transactions",
		Long: `Import a JSON array of transaction records. Each record has an id, a
merchant (may be null), an amount (number or string), a category (may be
null) and a transaction_date. Use "-" to read from stdin.`,
		Args: cobra.ExactArgs(1),
		RunE: runImportJSON,
	}
	addUserFlag(jsonCmd)
	jsonCmd.Flags().BoolP("dry-run", "d", false, "Preview import without saving")

	cmd.AddCommand(ofxCmd, jsonCmd)
	return cmd
}

func runImportOFX(cmd *cobra.Command, args []string) error {
	userID, err := requireUser(cmd)
	if err != nil {
		return err
	}

	files, err := expandFiles(args)
	if err != nil {
		return err
	}

	parser := ofx.NewParser(userID)
	var all []model.Transaction
	for _, path := range files {
		txns, err := parseOFXFile(cmd.Context(), parser, path)
		if err != nil {
			return common.NewUserError("could not import "+path, err)
		}
		common.LogInfo("Parsed statement", common.Fields{"file": path, "transactions": len(txns)})
		all = append(all, txns...)
	}

	return saveImported(cmd, all)
}

func parseOFXFile(ctx context.Context, parser *ofx.Parser, path string) ([]model.Transaction, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return parser.ParseFile(ctx, f)
}

func runImportJSON(cmd *cobra.Command, args []string) error {
	userID, err := requireUser(cmd)
	if err != nil {
		return err
	}

	var r io.Reader = cmd.InOrStdin()
	if args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return common.NewUserError("could not open "+args[0], err)
		}
		defer func() { _ = f.Close() }()
		r = f
	}

	txns, err := decodeTransactions(r, userID)
	if err != nil {
		return common.NewUserError("could not import "+args[0], err)
	}

	return saveImported(cmd, txns)
}

// decodeTransactions parses a JSON array of raw records. Invalid records are
// skipped with a warning so one bad row does not block the import.
func decodeTransactions(r io.Reader, userID string) ([]model.Transaction, error) {
	var raws []model.RawTransaction
	if err := json.NewDecoder(r).Decode(&raws); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}

	txns := make([]model.Transaction, 0, len(raws))
	for i, raw := range raws {
		txn, err := model.ParseTransaction(userID, raw)
		if err != nil {
			slog.Warn("Skipping invalid transaction", "index", i, "id", raw.ID, "error", err)
			continue
		}
		txns = append(txns, txn)
	}
	return txns, nil
}

func saveImported(cmd *cobra.Command, txns []model.Transaction) error {
	out := cmd.OutOrStdout()
	if len(txns) == 0 {
		fmt.Fprintln(out, cli.FormatWarning("No transactions found to import"))
		return nil
	}

	dryRun, _ := cmd.Flags().GetBool("dry-run")
	if dryRun {
		fmt.Fprintln(out, cli.FormatInfo(fmt.Sprintf("Dry run: %d transactions would be imported", len(txns))))
		return nil
	}

	store, err := initStorage(cmd.Context())
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	if err := store.SaveTransactions(cmd.Context(), txns); err != nil {
		return fmt.Errorf("failed to save transactions: %w", err)
	}

	fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("Imported %d transactions (duplicates are ignored)", len(txns))))
	return nil
}

// expandFiles resolves glob patterns, keeping literal paths that exist.
func expandFiles(patterns []string) ([]string, error) {
	var files []string
	for _, pattern := range patterns {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %s: %w", pattern, err)
		}
		if len(matches) > 0 {
			files = append(files, matches...)
			continue
		}
		if _, err := os.Stat(pattern); err == nil {
			files = append(files, pattern)
		} else {
			slog.Warn("No files found matching pattern", "pattern", pattern)
		}
	}

	if len(files) == 0 {
		return nil, common.NewUserError("no files found to import", errors.New("nothing matched"))
	}
	return files, nil
}
