package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/enviro/pkg/enviro/config"
	"github.com/jamesainslie/enviro/pkg/enviro/logging"
)

var logger = logging.Get("cli")

// initializeLogging is the root PersistentPreRunE hook. It makes sure the
// XDG directories exist and starts file logging from the config. A broken
// config falls back to logging defaults so that config commands still run.
func initializeLogging(cmd *cobra.Command, args []string) error {
	if err := config.EnsureConfigDir(); err != nil {
		return err
	}
	if err := config.EnsureDataDir(); err != nil {
		return err
	}
	if err := config.EnsureStateDir(); err != nil {
		return err
	}

	logCfg := logging.DefaultConfig()
	if cfg, err := loadConfig(); err == nil {
		logCfg = logging.Config{
			Level:        cfg.Logging.Level,
			Path:         cfg.Logging.Path,
			Rotation:     parseRotationConfig(cfg.Logging.Rotation),
			Components:   cfg.Logging.Components,
			ConsoleLevel: cfg.Logging.ConsoleLevel,
		}
	}
	if logCfg.Level == "" {
		logCfg.Level = config.DefaultLogLevel
	}
	if getVerbose() {
		logCfg.ConsoleLevel = "debug"
	}

	if err := logging.Init(logCfg); err != nil {
		return fmt.Errorf("initializing logging: %w", err)
	}
	logger.Debug("command started", "command", commandName(cmd), "args", len(args))
	return nil
}

func closeLogging() error {
	return logging.Close()
}

func commandName(cmd *cobra.Command) string {
	if cmd == nil {
		return ""
	}
	return cmd.CommandPath()
}

// parseRotationConfig converts config rotation settings. An empty or
// unparseable max_size falls back to the default.
func parseRotationConfig(rc config.RotationConfig) logging.RotationConfig {
	out := logging.DefaultRotationConfig()
	if size, err := logging.ParseSize(rc.MaxSize); err == nil && size > 0 {
		out.MaxSize = size
	}
	out.MaxAge = rc.MaxAge
	out.MaxBackups = rc.MaxBackups
	out.Daily = rc.Daily
	return out
}
