package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ineyio/gemguard"
	"github.com/ineyio/gemguard/meter"
	"github.com/ineyio/gemguard/provider/gemini"
	"github.com/ineyio/gemguard/sink/parquetsink"
)

var generateCmd = &cobra.Command{
	Use:   "generate <prompt>",
	Short: "Run one guarded Gemini generation",
	Long: `Run one Gemini generation through the configured rate limiter, circuit
breaker and retry policy, report safety blocks and print the usage summary.

The API key is read from GEMINI_API_KEY or GEMGUARD_API_KEY.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runGenerate,
}

var (
	generateModel   string
	generateSystem  string
	generateExport  string
	generateTimeout time.Duration
)

func init() {
	rootCmd.AddCommand(generateCmd)

	generateCmd.Flags().StringVar(&generateModel, "model", "", "model to use (default from config)")
	generateCmd.Flags().StringVar(&generateSystem, "system", "", "system prompt")
	generateCmd.Flags().StringVar(&generateExport, "export", "", "write the usage ledger to this path (.json or .parquet)")
	generateCmd.Flags().DurationVar(&generateTimeout, "timeout", 5*time.Minute, "overall timeout including retries")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	apiKey := viper.GetString("api_key")
	if apiKey == "" {
		return fmt.Errorf("GEMINI_API_KEY environment variable not set")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, generateTimeout)
	defer cancel()

	logger := newLogger()
	caller, err := gemini.New(ctx, apiKey)
	if err != nil {
		return err
	}

	guard, err := gemguard.NewGuardFromConfig(cfg, caller, gemguard.WithMeter(meter.NewLogMeter(logger)))
	if err != nil {
		return err
	}

	res, err := guard.Generate(ctx, gemguard.Request{
		Model:        generateModel,
		Prompt:       strings.Join(args, " "),
		SystemPrompt: generateSystem,
	})
	if err != nil {
		logger.Error("generation failed", "error", err, "hint", gemguard.Hint(err))
		return err
	}

	out := cmd.OutOrStdout()
	if res.Blocked {
		fmt.Fprintf(out, "[blocked] %s\n", res.BlockReason)
	} else {
		fmt.Fprintln(out, res.Response.Text)
	}

	if err := guard.Ledger().WriteSummary(cmd.ErrOrStderr()); err != nil {
		return err
	}

	if generateExport != "" {
		if err := guard.Ledger().Export(exportSink(generateExport)); err != nil {
			return err
		}
		logger.Info("usage exported", "path", generateExport)
	}
	return nil
}

func exportSink(path string) gemguard.ExportSink {
	if strings.EqualFold(filepath.Ext(path), ".parquet") {
		return parquetsink.New(path)
	}
	return gemguard.FileSink(path)
}
