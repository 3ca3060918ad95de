package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/enviro/pkg/enviro/transfer"
	"github.com/jamesainslie/enviro/pkg/enviro/types"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write variables to a bundle file",
	Long: `Export the staged values of both scopes, or of --scope when given.

The bundle format is {user: [{name, value}], machine: [...]}. Dotenv
output holds a single scope.`,
	Args: cobra.NoArgs,
	RunE: runExport,
}

var importCmd = &cobra.Command{
	Use:   "import FILE",
	Short: "Stage variables from a bundle or dotenv file",
	Long: `Stage the variables of FILE as additions and updates.

The format is taken from the file extension (.json, .yaml, .yml) and
defaults to dotenv. Dotenv variables go to --scope. Variables missing
from FILE are left alone.`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

var (
	exportOutput string
	exportAs     string
	importAs     string
	importDryRun bool
)

func init() {
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "write to file instead of stdout")
	exportCmd.Flags().StringVar(&exportAs, "as", "", "bundle format: json, yaml, dotenv (default from --output extension, else json)")
	importCmd.Flags().StringVar(&importAs, "as", "", "input format: json, yaml, dotenv (default from extension)")
	importCmd.Flags().BoolVarP(&importDryRun, "dry-run", "d", false, "only show what would change")
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)
}

func resolveFormat(flag, path string, fallback transfer.Format) (transfer.Format, error) {
	if flag != "" {
		return transfer.ParseFormat(flag)
	}
	if path != "" {
		return transfer.DetectFormat(path), nil
	}
	return fallback, nil
}

func runExport(cmd *cobra.Command, args []string) error {
	scopes, err := selectedScopes(cmd)
	if err != nil {
		return err
	}
	format, err := resolveFormat(exportAs, exportOutput, transfer.FormatJSON)
	if err != nil {
		return err
	}
	if format == transfer.FormatDotenv && len(scopes) > 1 {
		scopes = []types.Scope{types.ScopeUser}
	}

	return withSession(cmd.Context(), false, func(s *session) error {
		bundle := transfer.Export(s.store, scopes...)

		var w io.Writer = cmd.OutOrStdout()
		if exportOutput != "" {
			f, err := os.Create(exportOutput)
			if err != nil {
				return fmt.Errorf("failed to create %s: %w", exportOutput, err)
			}
			defer f.Close()
			w = f
		}

		if err := transfer.Encode(w, bundle, format); err != nil {
			return err
		}
		if exportOutput != "" {
			printInfo(cmd, "Exported %d variable(s) to %s", bundle.Len(), exportOutput)
		}
		return nil
	})
}

func runImport(cmd *cobra.Command, args []string) error {
	path := args[0]
	scope, err := selectedScope()
	if err != nil {
		return err
	}
	format, err := resolveFormat(importAs, path, transfer.FormatDotenv)
	if err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	bundle, err := transfer.Decode(f, format, scope)
	if err != nil {
		return err
	}

	return withSession(cmd.Context(), !importDryRun, func(s *session) error {
		var preview *transfer.Preview
		if importDryRun {
			preview, err = transfer.Diff(s.store, bundle)
		} else {
			preview, err = transfer.Apply(s.tracker, bundle)
		}
		if err != nil {
			return err
		}

		printPreview(cmd, preview)
		if importDryRun {
			printInfo(cmd, "Dry run: nothing staged")
		}
		return nil
	})
}

func printPreview(cmd *cobra.Command, p *transfer.Preview) {
	for _, kind := range []transfer.ChangeKind{transfer.ChangeNew, transfer.ChangeUpdated, transfer.ChangeUnchanged} {
		names := p.Names(kind)
		if len(names) == 0 {
			continue
		}
		printInfo(cmd, "%-9s %d: %s", kind, len(names), strings.Join(names, ", "))
	}
}
