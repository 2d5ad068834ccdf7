package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ineyio/gemguard"
)

var estimateCmd = &cobra.Command{
	Use:   "estimate [text]",
	Short: "Estimate tokens, model and cost for a prompt",
	Long: `Estimate the prompt tokens of a text (about 4 characters per token),
recommend a model for it and price the request with the configured table.

The prompt is taken from the arguments or, with --file, from a file.`,
	RunE: runEstimate,
}

var (
	estimateFile       string
	estimateModel      string
	estimateCompletion int64
	estimateQuality    bool
	estimateCost       bool
)

func init() {
	rootCmd.AddCommand(estimateCmd)

	estimateCmd.Flags().StringVar(&estimateFile, "file", "", "read the prompt from a file")
	estimateCmd.Flags().StringVar(&estimateModel, "model", "", "price this model instead of the recommended one")
	estimateCmd.Flags().Int64Var(&estimateCompletion, "completion-tokens", 500, "assumed completion tokens")
	estimateCmd.Flags().BoolVar(&estimateQuality, "quality", false, "prefer output quality")
	estimateCmd.Flags().BoolVar(&estimateCost, "cheap", false, "prefer low cost (wins over --quality)")
}

func runEstimate(cmd *cobra.Command, args []string) error {
	text := strings.Join(args, " ")
	if estimateFile != "" {
		data, err := os.ReadFile(estimateFile)
		if err != nil {
			return fmt.Errorf("read prompt file: %w", err)
		}
		text = string(data)
	}
	if text == "" {
		return fmt.Errorf("no prompt given")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	tokens := gemguard.EstimateTokens(text)
	recommended := gemguard.RecommendModel(tokens, estimateQuality, estimateCost)
	model := estimateModel
	if model == "" {
		model = recommended
	}
	rates, known := cfg.Pricing.Lookup(model)
	cost := rates.Cost(tokens, estimateCompletion)

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Estimated prompt tokens:   %d\n", tokens)
	fmt.Fprintf(out, "Recommended model:         %s\n", recommended)
	fmt.Fprintf(out, "Priced model:              %s\n", model)
	if !known {
		fmt.Fprintf(out, "  (no pricing entry, using fallback %q rates)\n", rates.Match)
	}
	fmt.Fprintf(out, "Assumed completion tokens: %d\n", estimateCompletion)
	fmt.Fprintf(out, "Estimated cost:            $%.6f\n", cost)
	return nil
}
