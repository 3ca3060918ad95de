package main

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/jamesainslie/enviro/pkg/enviro/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long: `Manage enviro configuration settings.

Configuration is loaded from:
  1. $XDG_CONFIG_HOME/enviro/config.yaml (if set)
  2. ~/.config/enviro/config.yaml

Environment variables override config file settings using the ENVIRO_ prefix:
  ENVIRO_OUTPUT_FORMAT=json
  ENVIRO_VALIDATION_ON_ERROR=clean
  ENVIRO_JOURNAL_RETENTION_DAYS=30`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  `Display the effective configuration from all sources.`,
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create default configuration file",
	Long:  `Create a commented default configuration file if one doesn't exist.`,
	Args:  cobra.NoArgs,
	RunE:  runConfigInit,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show configuration file path",
	Args:  cobra.NoArgs,
	RunE:  runConfigPath,
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configPathCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	if configFile := viper.ConfigFileUsed(); configFile != "" {
		if _, err := os.Stat(configFile); err == nil {
			fmt.Fprintf(out, "# Config file: %s\n", configFile)
		}
	} else {
		fmt.Fprintln(out, "# Config file: (using defaults, no file found)")
	}

	if _, err := loadConfig(); err != nil {
		printError("%v", err)
	}

	settings := viper.AllSettings()
	delete(settings, "quiet")
	delete(settings, "verbose")
	delete(settings, "scope")

	enc := yaml.NewEncoder(out)
	enc.SetIndent(2)
	if err := enc.Encode(settings); err != nil {
		return err
	}
	if err := enc.Close(); err != nil {
		return err
	}

	var overrides []string
	for _, kv := range os.Environ() {
		if strings.HasPrefix(kv, config.EnvPrefix+"_") {
			overrides = append(overrides, kv)
		}
	}
	if len(overrides) > 0 {
		sort.Strings(overrides)
		fmt.Fprintln(out, "\n# Environment overrides:")
		for _, kv := range overrides {
			fmt.Fprintf(out, "#   %s\n", kv)
		}
	}
	return nil
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path, created, err := config.WriteDefault()
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	if !created {
		printInfo(cmd, "Config file already exists: %s", path)
		return nil
	}
	printInfo(cmd, "Created default config file: %s", path)
	return nil
}

func runConfigPath(cmd *cobra.Command, args []string) error {
	path := cfgFile
	if path == "" {
		var err error
		path, err = config.ConfigPath()
		if err != nil {
			return fmt.Errorf("failed to get config directory: %w", err)
		}
	}

	fmt.Fprintln(cmd.OutOrStdout(), path)
	if _, err := os.Stat(path); err == nil {
		printVerbose("File exists")
	} else if os.IsNotExist(err) {
		printVerbose("File does not exist (will use defaults)")
	}
	return nil
}
