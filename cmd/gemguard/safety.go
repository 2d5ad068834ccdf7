package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ineyio/gemguard"
)

var safetyCmd = &cobra.Command{
	Use:   "safety [permissive|moderate|strict]",
	Short: "Show safety settings",
	Long: `Show the safety settings of a named preset, or the settings resolved
from the configuration file when no preset is given.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSafety,
}

func init() {
	rootCmd.AddCommand(safetyCmd)
}

func runSafety(cmd *cobra.Command, args []string) error {
	var (
		settings gemguard.SafetySettings
		err      error
	)
	if len(args) == 1 {
		settings, err = gemguard.SafetyPreset(args[0])
	} else {
		var cfg gemguard.Config
		cfg, err = loadConfig()
		if err == nil {
			settings, err = cfg.Safety.Settings()
		}
	}
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, s := range settings {
		fmt.Fprintf(out, "%-34s %s\n", s.Category, s.Threshold)
	}
	return nil
}
