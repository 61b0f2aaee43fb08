package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/jamesainslie/groom/pkg/groom/journal"
	"github.com/jamesainslie/groom/pkg/groom/output"
	"github.com/jamesainslie/groom/pkg/groom/types"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View journaled runs",
	Long: `View runs recorded with --journal.

The journal stores every rename a run made, so a run can be inspected
after the fact with 'groom history show <id>'.`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

var historyShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a run and its renames",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

var historyDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a run from the journal",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryDelete,
}

var historyLimit int

func init() {
	historyCmd.PersistentFlags().IntVar(&historyLimit, "limit", 20, "maximum number of entries to show (0 = all)")

	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyDeleteCmd)
	rootCmd.AddCommand(historyCmd)
}

// openJournal opens the configured journal.
func openJournal() (*journal.Journal, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	j, err := journal.Open(cfg.JournalPath())
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	return j, nil
}

// runHistory lists recent runs.
func runHistory(cmd *cobra.Command, _ []string) error {
	j, err := openJournal()
	if err != nil {
		return err
	}
	defer func() { _ = j.Close() }()

	runs, err := j.Runs()
	if err != nil {
		return fmt.Errorf("failed to list history: %w", err)
	}

	if len(runs) == 0 {
		printInfo("No journaled runs found.")
		printInfo("Run 'groom --journal <root>' to record one.")
		return nil
	}

	total := len(runs)
	if historyLimit > 0 && len(runs) > historyLimit {
		runs = runs[:historyLimit]
	}

	if err := writeRunTable(cmd.OutOrStdout(), runs); err != nil {
		return err
	}

	printInfo("\nShowing %d of %d runs. Use 'groom history show <id>' for details.", len(runs), total)
	return nil
}

// writeRunTable prints one line per run, newest first.
func writeRunTable(w io.Writer, runs []journal.RunInfo) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTARTED\tACTION\tFILES\tMODIFIED\tROOT")
	for _, r := range runs {
		action := r.Action
		if r.DryRun {
			action += " (dry)"
		}
		started := humanize.Time(r.Started)
		if r.Finished.IsZero() {
			started += " (unfinished)"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			r.ID, started, action,
			types.FormatCount(r.Stats.FilesSeen),
			types.FormatCount(r.Stats.FilesModified),
			r.Root)
	}
	return tw.Flush()
}

// runHistoryShow prints one run through the selected formatter.
func runHistoryShow(cmd *cobra.Command, args []string) error {
	j, err := openJournal()
	if err != nil {
		return err
	}
	defer func() { _ = j.Close() }()

	info, err := j.Run(args[0])
	if err != nil {
		if errors.Is(err, journal.ErrRunNotFound) {
			return fmt.Errorf("no run with id %s", args[0])
		}
		return err
	}
	entries, err := j.Entries(info.ID)
	if err != nil {
		return fmt.Errorf("failed to read renames: %w", err)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	formatter, err := buildFormatter(cfg)
	if err != nil {
		return err
	}

	result := historyResult(info, entries, historyLimit)

	var buf bytes.Buffer
	if err := formatter.Format(&buf, result); err != nil {
		return fmt.Errorf("failed to format run: %w", err)
	}
	_, err = cmd.OutOrStdout().Write(buf.Bytes())
	return err
}

// historyResult converts a journaled run. limit caps the listed renames.
func historyResult(info *journal.RunInfo, entries []journal.Entry, limit int) *output.Result {
	r := &output.Result{
		RunID:       info.ID,
		Root:        info.Root,
		Action:      info.Action,
		DryRun:      info.DryRun,
		Stats:       info.Stats,
		Interrupted: info.Finished.IsZero(),
	}

	shown := entries
	if limit > 0 && len(shown) > limit {
		shown = shown[:limit]
		r.Warnings = append(r.Warnings, fmt.Sprintf("showing %d of %d renames, use --limit 0 for all",
			limit, len(entries)))
	}
	for _, e := range shown {
		r.Renames = append(r.Renames, output.Rename{Old: e.Old, New: e.New, Time: e.Time})
	}
	return r
}

// runHistoryDelete removes a run and its renames.
func runHistoryDelete(_ *cobra.Command, args []string) error {
	j, err := openJournal()
	if err != nil {
		return err
	}
	defer func() { _ = j.Close() }()

	if err := j.Delete(args[0]); err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	printInfo("Deleted run %s", args[0])
	return nil
}
