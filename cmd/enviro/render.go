package main

import (
	"bytes"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/enviro/pkg/enviro/config"
	"github.com/jamesainslie/enviro/pkg/enviro/output"
)

// render formats r with the configured formatter and writes it to cmd's output.
func render(cmd *cobra.Command, cfg *config.Config, r *output.Result) error {
	formatter, err := output.Get(cfg.Output.Format)
	if err != nil {
		return fmt.Errorf("%w (available: %v)", err, output.Available())
	}

	var buf bytes.Buffer
	if err := formatter.Format(&buf, r); err != nil {
		return fmt.Errorf("failed to format output: %w", err)
	}
	_, err = cmd.OutOrStdout().Write(buf.Bytes())
	return err
}

// machineReadable reports whether the configured format is meant for tools.
func machineReadable(cfg *config.Config) bool {
	return cfg.Output.Format == "json" || cfg.Output.Format == "yaml"
}
