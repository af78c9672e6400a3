package main

import (
	"fmt"
	"os"

	"github.com/platinummonkey/ocrsweep/internal/config"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration",
	Long: `Print the configuration resulting from the config file, environment
variables and flags as YAML. The API key is redacted.

The output can be saved as $HOME/.ocrsweep.yaml and edited; replace or
remove the redacted api-key line before using it.`,
	RunE: runConfig,
}

func init() {
	rootCmd.AddCommand(configCmd)
}

func runConfig(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Read(cfgFile, cmd.Flags())
	if err != nil {
		return fmt.Errorf("failed to read configuration: %w", err)
	}

	// Validate fills derived paths; a dry-run copy avoids creating directories
	check := *cfg
	check.DryRun = true
	if err := check.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: configuration is not valid: %v\n", err)
	} else {
		check.DryRun = cfg.DryRun
		cfg = &check
	}
	if cfg.OCR.APIKey == "" {
		fmt.Fprintln(os.Stderr, "Warning: no API key set, export OCRSWEEP_API_KEY or OCR_SPACE_API_KEY")
	}

	out, err := yaml.Marshal(cfg.Redacted())
	if err != nil {
		return fmt.Errorf("failed to encode configuration: %w", err)
	}

	fmt.Fprint(cmd.OutOrStdout(), string(out))
	return nil
}
