package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/enviro/pkg/enviro/filter"
	"github.com/jamesainslie/enviro/pkg/enviro/output"
	"github.com/jamesainslie/enviro/pkg/enviro/types"
)

var listCmd = &cobra.Command{
	Use:     "list [PATTERN...]",
	Aliases: []string{"ls"},
	Short:   "List variables",
	Long: `List tracked variables with their edit state.

Patterns are globs matched against names (e.g. 'GO*', 'JAVA_?OME').
Without --scope both scopes are listed.`,
	RunE: runList,
}

var (
	listStates    []string
	listExclude   []string
	listCorrupted bool
	listSort      string
	listReverse   bool
	listLimit     int
)

func init() {
	listCmd.Flags().StringSliceVar(&listStates, "state", nil, "only show states: unchanged, added, modified, deleted, pending")
	listCmd.Flags().StringSliceVarP(&listExclude, "exclude", "e", nil, "exclude names matching glob (repeatable)")
	listCmd.Flags().BoolVar(&listCorrupted, "corrupted", false, "only show values that reference missing paths")
	listCmd.Flags().StringVar(&listSort, "sort", "none", "sort by: none, name, state, length")
	listCmd.Flags().BoolVarP(&listReverse, "reverse", "r", false, "reverse the order")
	listCmd.Flags().IntVarP(&listLimit, "limit", "n", 0, "maximum number of variables (0 = all)")
	rootCmd.AddCommand(listCmd)
}

// buildFilter creates a filter.Filter from the list flags.
func buildFilter(patterns []string, fold bool) (*filter.Filter, error) {
	states, err := filter.ParseStates(listStates)
	if err != nil {
		return nil, err
	}
	sortBy, err := filter.ParseSortField(listSort)
	if err != nil {
		return nil, err
	}
	return filter.New(
		filter.WithInclude(patterns...),
		filter.WithExclude(listExclude...),
		filter.WithStates(states...),
		filter.WithCorruptedOnly(listCorrupted),
		filter.WithFoldCase(fold),
		filter.WithSortBy(sortBy),
		filter.WithSortDescending(listReverse),
		filter.WithLimit(listLimit),
	), nil
}

func runList(cmd *cobra.Command, args []string) error {
	scopes, err := selectedScopes(cmd)
	if err != nil {
		return err
	}

	return withSession(cmd.Context(), false, func(s *session) error {
		f, err := buildFilter(args, s.store.FoldCase())
		if err != nil {
			return err
		}

		var all []*types.Entry
		for _, scope := range scopes {
			all = append(all, s.store.Entries(scope)...)
		}
		entries := f.Apply(all)

		r := &output.Result{Kind: output.KindEntries}
		for _, e := range entries {
			r.Entries = append(r.Entries, output.NewEntryInfo(e, s.brokenSegments(e)))
		}
		return render(cmd, s.cfg, r)
	})
}

var getCmd = &cobra.Command{
	Use:   "get NAME",
	Short: "Print a variable's current value",
	Long: `Print the staged value of a variable.

The value is printed as-is so it can be used in scripts:
  cd "$(enviro get GOPATH)"`,
	Args: cobra.ExactArgs(1),
	RunE: runGet,
}

func init() {
	rootCmd.AddCommand(getCmd)
}

func runGet(cmd *cobra.Command, args []string) error {
	scope, err := selectedScope()
	if err != nil {
		return err
	}

	return withSession(cmd.Context(), false, func(s *session) error {
		e, err := s.find(args[0], scope)
		if err != nil {
			return err
		}
		if e.State == types.Deleted {
			return types.NewValidationError(types.ErrNotFound, scope, e.Name, "variable is pending deletion")
		}

		if machineReadable(s.cfg) {
			return render(cmd, s.cfg, &output.Result{
				Kind:    output.KindEntries,
				Entries: []output.EntryInfo{output.NewEntryInfo(e, s.brokenSegments(e))},
			})
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), e.Value)
		return err
	})
}
