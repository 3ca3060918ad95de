package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jamesainslie/enviro/pkg/enviro/config"
	"github.com/jamesainslie/enviro/pkg/enviro/types"
)

var (
	cfgFile string
	rootCmd = &cobra.Command{
		Use:   "enviro",
		Short: "Stage and commit persistent environment variable changes",
		Long: `Enviro edits user and machine environment variables in a staging area
and applies them to the OS in one commit.

Edits are kept between runs until they are committed or discarded.
Values that reference missing directories are flagged as corrupted.

Examples:
  enviro list                    # Show variables of both scopes
  enviro list 'GO*' --state modified
  enviro set EDITOR nvim         # Stage a change
  enviro rm -S machine JAVA_HOME # Stage a machine-scope deletion
  enviro status                  # Show pending changes and drift
  enviro commit --dry-run        # Preview the writes
  enviro commit                  # Apply them`,
		SilenceUsage:      true,
		PersistentPreRunE: initializeLogging,
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return closeLogging()
		},
	}
)

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ~/.config/enviro/config.yaml)")
	rootCmd.PersistentFlags().StringP("scope", "S", "user", "variable scope: user or machine")
	rootCmd.PersistentFlags().StringP("format", "f", "", "output format: pretty, plain, json, yaml")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "minimal output")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "debug output")

	_ = viper.BindPFlag("scope", rootCmd.PersistentFlags().Lookup("scope"))
	_ = viper.BindPFlag("output.format", rootCmd.PersistentFlags().Lookup("format"))
	_ = viper.BindPFlag("quiet", rootCmd.PersistentFlags().Lookup("quiet"))
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

// initConfig reads in config file and environment variables.
func initConfig() {
	if err := config.Configure(viper.GetViper(), cfgFile); err != nil {
		printVerbose("config: %v", err)
		return
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			printError("failed to read config file: %v", err)
		}
	}
}

// loadConfig decodes the global viper, flags included.
func loadConfig() (*config.Config, error) {
	cfg, err := config.FromViper(viper.GetViper())
	if err != nil {
		return nil, err
	}
	if cfg.Output.Format == "" {
		cfg.Output.Format = config.DefaultOutputFormat
	}
	return cfg, nil
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// selectedScope returns the --scope flag value.
func selectedScope() (types.Scope, error) {
	return types.ParseScope(viper.GetString("scope"))
}

// selectedScopes returns the --scope flag value when it was given and
// both scopes otherwise.
func selectedScopes(cmd *cobra.Command) ([]types.Scope, error) {
	if !cmd.Flags().Changed("scope") {
		return types.Scopes, nil
	}
	scope, err := selectedScope()
	if err != nil {
		return nil, err
	}
	return []types.Scope{scope}, nil
}

// getVerbose returns true if verbose mode is enabled.
func getVerbose() bool {
	return viper.GetBool("verbose")
}

// getQuiet returns true if quiet mode is enabled.
func getQuiet() bool {
	return viper.GetBool("quiet")
}

// printVerbose prints a message if verbose mode is enabled.
func printVerbose(format string, args ...interface{}) {
	if getVerbose() && !getQuiet() {
		fmt.Fprintf(os.Stderr, "[DEBUG] "+format+"\n", args...)
	}
}

// printInfo prints a message to cmd's output unless quiet mode is enabled.
func printInfo(cmd *cobra.Command, format string, args ...interface{}) {
	if !getQuiet() {
		fmt.Fprintf(cmd.OutOrStdout(), format+"\n", args...)
	}
}

// printWarning prints a warning to stderr unless quiet mode is enabled.
func printWarning(format string, args ...interface{}) {
	if !getQuiet() {
		fmt.Fprintf(os.Stderr, "Warning: "+format+"\n", args...)
	}
}

// printError prints an error message to stderr.
func printError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
}
