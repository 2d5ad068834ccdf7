package main

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ineyio/gemguard"
	"github.com/ineyio/gemguard/sink/parquetsink"
)

var reportCmd = &cobra.Command{
	Use:   "report <export.json|export.parquet>",
	Short: "Print the usage summary of a ledger export",
	Long: `Print the usage summary of a ledger export written by gemguard.

Files ending in .parquet are read as Parquet; anything else as JSON.
With --to-parquet or --to-json the export is also converted.`,
	Args: cobra.ExactArgs(1),
	RunE: runReport,
}

var (
	reportJSON      bool
	reportToParquet string
	reportToJSON    string
)

func init() {
	rootCmd.AddCommand(reportCmd)

	reportCmd.Flags().BoolVar(&reportJSON, "json", false, "print summary and per-model costs as JSON")
	reportCmd.Flags().StringVar(&reportToParquet, "to-parquet", "", "also write the export as Parquet to this path")
	reportCmd.Flags().StringVar(&reportToJSON, "to-json", "", "also write the export as JSON to this path")
}

func runReport(cmd *cobra.Command, args []string) error {
	doc, err := readExport(args[0])
	if err != nil {
		return err
	}

	if reportToParquet != "" {
		if err := parquetsink.New(reportToParquet).WriteExport(doc); err != nil {
			return err
		}
	}
	if reportToJSON != "" {
		if err := gemguard.FileSink(reportToJSON).WriteExport(doc); err != nil {
			return fmt.Errorf("write json export: %w", err)
		}
	}

	out := cmd.OutOrStdout()
	if reportJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			Summary    gemguard.Summary   `json:"summary"`
			ModelCosts map[string]float64 `json:"model_costs"`
		}{doc.Summary, doc.ModelCosts})
	}
	return doc.WriteSummary(out)
}

func readExport(path string) (gemguard.ExportDocument, error) {
	if strings.EqualFold(filepath.Ext(path), ".parquet") {
		return parquetsink.Read(path)
	}
	return gemguard.ReadExportFile(path)
}
