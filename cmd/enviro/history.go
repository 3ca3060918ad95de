package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/enviro/pkg/enviro/config"
	"github.com/jamesainslie/enviro/pkg/enviro/journal"
	"github.com/jamesainslie/enviro/pkg/enviro/output"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View commit history",
	Long: `View past commit attempts, newest first.

Every commit, successful or not, is journaled with the writes that
reached the OS and the one that failed.`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

var historyShowCmd = &cobra.Command{
	Use:   "show ID",
	Short: "Show details of a commit",
	Long:  `Display the writes of one commit. ID may be a unique prefix.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

var historyCleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove old history entries",
	Long:  `Remove journal entries older than journal.retention_days.`,
	Args:  cobra.NoArgs,
	RunE:  runHistoryClean,
}

var historyLimit int

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "l", 20, "maximum number of entries to show")

	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyCleanCmd)
	rootCmd.AddCommand(historyCmd)
}

// getJournal returns the journal at the configured directory.
func getJournal() (*config.Config, *journal.Journal, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	j, err := journal.New(cfg.JournalPath())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open journal: %w", err)
	}
	return cfg, j, nil
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, j, err := getJournal()
	if err != nil {
		return err
	}

	entries, err := j.List(historyLimit)
	if err != nil {
		return fmt.Errorf("failed to list history: %w", err)
	}

	if len(entries) == 0 && !machineReadable(cfg) {
		printInfo(cmd, "No commits recorded.")
		return nil
	}
	return render(cmd, cfg, &output.Result{Kind: output.KindHistory, History: output.NewHistoryInfo(entries)})
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	cfg, j, err := getJournal()
	if err != nil {
		return err
	}

	entry, err := j.Get(args[0])
	if err != nil {
		return err
	}

	if !machineReadable(cfg) {
		printInfo(cmd, "%s  %s", entry.ID, entry.Timestamp.Format("2006-01-02 15:04:05 MST"))
	}
	return render(cmd, cfg, &output.Result{Kind: output.KindCommit, Commit: output.NewJournalInfo(entry)})
}

func runHistoryClean(cmd *cobra.Command, args []string) error {
	cfg, j, err := getJournal()
	if err != nil {
		return err
	}

	retentionDays := cfg.Journal.RetentionDays
	if retentionDays <= 0 {
		retentionDays = config.DefaultRetentionDays
	}

	removed, err := j.Cleanup(retentionDays)
	if err != nil {
		return fmt.Errorf("failed to clean history: %w", err)
	}
	printInfo(cmd, "Removed %d entr(ies) older than %d days", removed, retentionDays)
	return nil
}
