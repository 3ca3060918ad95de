package main

import (
	"errors"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/enviro/pkg/enviro/types"
)

var setCmd = &cobra.Command{
	Use:   "set NAME VALUE",
	Short: "Stage a new value, creating the variable if needed",
	Long: `Stage a value for NAME in the selected scope.

A variable pending deletion is restored first. Use 'add' to fail
instead when the variable already exists.`,
	Args: cobra.ExactArgs(2),
	RunE: runSet,
}

var addCmd = &cobra.Command{
	Use:   "add NAME VALUE",
	Short: "Stage a new variable",
	Args:  cobra.ExactArgs(2),
	RunE:  runAdd,
}

var rmCmd = &cobra.Command{
	Use:     "rm NAME...",
	Aliases: []string{"remove", "unset"},
	Short:   "Stage deletion of variables",
	Long: `Stage deletion of one or more variables.

A variable added in this session is dropped outright. Others are marked
deleted until commit and can be brought back with 'restore'.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRm,
}

var mvCmd = &cobra.Command{
	Use:     "mv OLD NEW",
	Aliases: []string{"rename"},
	Short:   "Stage a rename",
	Long: `Rename a variable.

On commit the old name is unset and the new one is set with the current value.`,
	Args: cobra.ExactArgs(2),
	RunE: runMv,
}

var resetCmd = &cobra.Command{
	Use:   "reset NAME...",
	Short: "Discard staged value changes",
	Long:  `Return modified variables to the value they had when loaded.`,
	Args:  cobra.MinimumNArgs(1),
	RunE:  runReset,
}

var restoreCmd = &cobra.Command{
	Use:   "restore NAME...",
	Short: "Undo a staged deletion",
	Long:  `Bring deleted variables back with the value they had when loaded.`,
	Args:  cobra.MinimumNArgs(1),
	RunE:  runRestore,
}

func init() {
	rootCmd.AddCommand(setCmd)
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(rmCmd)
	rootCmd.AddCommand(mvCmd)
	rootCmd.AddCommand(resetCmd)
	rootCmd.AddCommand(restoreCmd)
}

// warnCorrupted tells the user when a staged value references missing paths.
func warnCorrupted(s *session, e *types.Entry) {
	if !e.Corrupted {
		return
	}
	if broken := s.brokenSegments(e); len(broken) > 0 {
		printWarning("%s references missing paths: %s", e.Name, strings.Join(broken, ", "))
		return
	}
	printWarning("%s references missing paths", e.Name)
}

func runSet(cmd *cobra.Command, args []string) error {
	scope, err := selectedScope()
	if err != nil {
		return err
	}
	name, value := args[0], args[1]

	return withSession(cmd.Context(), true, func(s *session) error {
		e, err := s.find(name, scope)
		switch {
		case errors.Is(err, types.ErrNotFound):
			e, err = s.tracker.Add(name, value, scope)
			if err != nil {
				return err
			}
		case err != nil:
			return err
		default:
			if e.State == types.Deleted {
				if err := s.tracker.Restore(e); err != nil {
					return err
				}
			}
			if e.Value != value {
				if err := s.tracker.UpdateValue(e, value); err != nil {
					return err
				}
			}
		}

		warnCorrupted(s, e)
		printInfo(cmd, "Staged %s %s (%s)", scope, e.Name, e.State)
		return nil
	})
}

func runAdd(cmd *cobra.Command, args []string) error {
	scope, err := selectedScope()
	if err != nil {
		return err
	}

	return withSession(cmd.Context(), true, func(s *session) error {
		e, err := s.tracker.Add(args[0], args[1], scope)
		if err != nil {
			return err
		}
		warnCorrupted(s, e)
		printInfo(cmd, "Staged %s %s (added)", scope, e.Name)
		return nil
	})
}

func runRm(cmd *cobra.Command, args []string) error {
	scope, err := selectedScope()
	if err != nil {
		return err
	}

	return withSession(cmd.Context(), true, func(s *session) error {
		for _, name := range args {
			e, err := s.find(name, scope)
			if err != nil {
				return err
			}
			wasAdded := e.State == types.Added
			if err := s.tracker.Remove(e); err != nil {
				return err
			}
			if wasAdded {
				printInfo(cmd, "Dropped %s %s", scope, e.Name)
			} else {
				printInfo(cmd, "Staged %s %s (deleted)", scope, e.Name)
			}
		}
		return nil
	})
}

func runMv(cmd *cobra.Command, args []string) error {
	scope, err := selectedScope()
	if err != nil {
		return err
	}

	return withSession(cmd.Context(), true, func(s *session) error {
		e, err := s.find(args[0], scope)
		if err != nil {
			return err
		}
		renamed, err := s.tracker.Rename(e, args[1])
		if err != nil {
			return err
		}
		printInfo(cmd, "Staged %s %s -> %s", scope, args[0], renamed.Name)
		return nil
	})
}

func runReset(cmd *cobra.Command, args []string) error {
	scope, err := selectedScope()
	if err != nil {
		return err
	}

	return withSession(cmd.Context(), true, func(s *session) error {
		for _, name := range args {
			e, err := s.find(name, scope)
			if err != nil {
				return err
			}
			if err := s.tracker.Reset(e); err != nil {
				return err
			}
			printInfo(cmd, "Reset %s %s", scope, e.Name)
		}
		return nil
	})
}

func runRestore(cmd *cobra.Command, args []string) error {
	scope, err := selectedScope()
	if err != nil {
		return err
	}

	return withSession(cmd.Context(), true, func(s *session) error {
		for _, name := range args {
			e, err := s.findDeleted(name, scope)
			if err != nil {
				return err
			}
			if err := s.tracker.Restore(e); err != nil {
				return err
			}
			warnCorrupted(s, e)
			printInfo(cmd, "Restored %s %s", scope, e.Name)
		}
		return nil
	})
}
