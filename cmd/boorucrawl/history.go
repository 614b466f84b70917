package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nao1215/boorucrawl/internal/database"
	"github.com/nao1215/boorucrawl/internal/model"
	"github.com/nao1215/boorucrawl/internal/report"
)

// defaultHistoryLimit is the number of runs shown by default.
const defaultHistoryLimit = 20

// errRunNotFound is returned when a requested run id is not in the history.
var errRunNotFound = errors.New("run not found")

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "Show past crawl runs",
		Long: `History lists the most recent crawl runs started from the form, newest
first, with the number of images fetched, exported and dropped per step.
Given a run id, only that run is shown with its parameters and error.

Examples:
  # Show the last 20 runs
  boorucrawl history

  # Show the last 5 runs with parameters and errors
  boorucrawl history -n 5 -v

  # Write a markdown report
  boorucrawl history --markdown > history.md

  # Output as JSON
  boorucrawl history --json

  # Show one run
  boorucrawl history 0b9c3f5e-5a51-4a4e-9d0c-1d2b1f0c8a11`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	cmd.Flags().IntP("limit", "n", defaultHistoryLimit,
		"Maximum number of runs to show")
	cmd.Flags().BoolP("json", "j", false,
		"Output in JSON format")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output in Markdown format")
	cmd.MarkFlagsMutuallyExclusive("json", "markdown")

	return cmd
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}

	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}
	if limit <= 0 {
		return fmt.Errorf("limit must be positive: %d", limit)
	}

	jsonOutput, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}
	markdownOutput, err := cmd.Flags().GetBool("markdown")
	if err != nil {
		return err
	}

	runID := ""
	if len(args) == 1 {
		runID = args[0]
	}

	out := cmd.OutOrStdout()
	var writer report.Writer
	switch {
	case jsonOutput:
		writer = report.NewJSONWriter(out, report.WithPrettyPrint())
	case markdownOutput:
		writer = report.NewMarkdownWriter(out)
	default:
		writer = report.NewSimpleWriter(out, report.WithVerbose(cfg.Verbose || runID != ""))
	}

	// Reading history never creates the database.
	dbPath := filepath.Join(cfg.DataDir, database.DBFileName)
	if _, err := os.Stat(dbPath); errors.Is(err, os.ErrNotExist) {
		if runID != "" {
			return fmt.Errorf("%w: %s", errRunNotFound, runID)
		}
		_, err := writer.Write(nil)
		return err
	}

	store, err := database.Open(cfg.DataDir, database.Options{EnableWAL: true})
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer store.Close()

	runs, err := listRuns(cmd.Context(), store, runID, limit)
	if err != nil {
		return err
	}

	if _, err := writer.Write(runs); err != nil {
		return fmt.Errorf("failed to write history: %w", err)
	}
	return nil
}

// listRuns returns the single run named by runID, or the newest runs.
func listRuns(ctx context.Context, store *database.Store, runID string, limit int) ([]*model.RunRecord, error) {
	if runID == "" {
		return store.ListRuns(ctx, limit)
	}

	run, err := store.GetRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	if run == nil {
		return nil, fmt.Errorf("%w: %s", errRunNotFound, runID)
	}
	return []*model.RunRecord{run}, nil
}
