package main

import (
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/enviro/pkg/enviro/commit"
	"github.com/jamesainslie/enviro/pkg/enviro/output"
	"github.com/jamesainslie/enviro/pkg/enviro/staging"
)

var commitCmd = &cobra.Command{
	Use:   "commit",
	Short: "Apply staged changes to the OS",
	Long: `Write every staged change to the OS.

Deletions are applied first, then modifications, then additions. The
user scope is written before the machine scope. Machine changes are
skipped, and stay staged, unless enviro runs elevated.

A failed write stops the commit. Writes that already succeeded are not
rolled back; the failing scope stays staged so the commit can be retried.`,
	Args: cobra.NoArgs,
	RunE: runCommit,
}

var commitDryRun bool

var discardCmd = &cobra.Command{
	Use:   "discard",
	Short: "Drop all staged changes",
	Long:  `Clear the staging area. The next command reloads variables from the OS.`,
	Args:  cobra.NoArgs,
	RunE:  runDiscard,
}

func init() {
	commitCmd.Flags().BoolVarP(&commitDryRun, "dry-run", "d", false, "show the writes without applying them")
	rootCmd.AddCommand(commitCmd)
	rootCmd.AddCommand(discardCmd)
}

func runCommit(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	return withSession(ctx, false, func(s *session) error {
		engine := s.engine()

		if commitDryRun {
			plan := engine.Plan()
			if len(plan) == 0 {
				printInfo(cmd, "No changes detected")
				return nil
			}
			return render(cmd, s.cfg, &output.Result{Kind: output.KindCommit, Commit: output.NewPlanInfo(plan)})
		}

		report, commitErr := engine.Commit(ctx)
		if isNoChanges(commitErr) {
			printInfo(cmd, "No changes detected")
			return nil
		}

		info := output.NewCommitInfo(report, commitErr)
		if err := recordCommit(s, info, report, commitErr); err != nil {
			logger.Warn("failed to record commit", "error", err)
			printWarning("commit was not journaled: %v", err)
		}

		if err := s.save(); err != nil {
			printWarning("failed to update staged changes: %v", err)
		}

		if err := render(cmd, s.cfg, &output.Result{Kind: output.KindCommit, Commit: info}); err != nil {
			return err
		}
		if commitErr != nil {
			return commitErr
		}
		if s.store.HasPendingChanges() {
			printInfo(cmd, "Some changes are still staged; run 'enviro status'")
		}
		return nil
	})
}

func recordCommit(s *session, info *output.CommitInfo, report *commit.Report, commitErr error) error {
	j, err := s.openJournal()
	if err != nil || j == nil {
		return err
	}
	entry, err := j.Record(report, commitErr)
	if err != nil {
		return err
	}
	info.ID = entry.ID
	return nil
}

func runDiscard(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	area, err := staging.Open(cfg.StagingPath())
	if err != nil {
		return err
	}
	defer area.Close()

	meta, err := area.Info()
	if err != nil {
		printInfo(cmd, "Nothing staged")
		return nil
	}
	if err := area.Clear(); err != nil {
		return fmt.Errorf("failed to discard staged changes: %w", err)
	}
	printInfo(cmd, "Discarded %d staged change(s)", meta.Pending)
	return nil
}
