package main

import (
	"github.com/spf13/cobra"

	"github.com/jamesainslie/enviro/pkg/enviro/output"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show pending changes and drift",
	Long: `Show staged changes that have not been committed yet.

Variables changed outside enviro since the edits were staged are
listed as drift. Commit still writes the staged values over them.`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	scopes, err := selectedScopes(cmd)
	if err != nil {
		return err
	}

	return withSession(cmd.Context(), false, func(s *session) error {
		r := &output.Result{Kind: output.KindStatus}
		for _, scope := range scopes {
			for _, e := range s.store.Pending(scope) {
				r.Entries = append(r.Entries, output.NewEntryInfo(e, s.brokenSegments(e)))
			}
			r.Drift = append(r.Drift, output.NewDriftInfo(scope, s.drift[scope])...)
			if !s.store.Loaded(scope) {
				r.Warnings = append(r.Warnings, scope.String()+" scope could not be read")
			}
		}

		if age := s.stagedAge(); age != "" && !machineReadable(s.cfg) {
			printInfo(cmd, "Changes staged %s", age)
		}
		return render(cmd, s.cfg, r)
	})
}
