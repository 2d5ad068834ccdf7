package gemguard

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"
)

// ExportDocument is the serialized form of a Ledger.
type ExportDocument struct {
	Summary    Summary            `json:"summary"`
	ModelCosts map[string]float64 `json:"model_costs"`
	Usage      []ExportRecord     `json:"usage_history"`
}

// ExportRecord is one usage record in an ExportDocument.
type ExportRecord struct {
	ID               string    `json:"id,omitempty"`
	Timestamp        time.Time `json:"timestamp"`
	Model            string    `json:"model"`
	PromptTokens     int64     `json:"prompt_tokens"`
	CompletionTokens int64     `json:"completion_tokens"`
	TotalTokens      int64     `json:"total_tokens"`
	CostEstimate     float64   `json:"cost_estimate"`
}

func exportRecord(r UsageRecord) ExportRecord {
	return ExportRecord{
		ID:               r.ID,
		Timestamp:        r.Timestamp,
		Model:            r.Model,
		PromptTokens:     r.PromptTokens,
		CompletionTokens: r.CompletionTokens,
		TotalTokens:      r.TotalTokens,
		CostEstimate:     r.Cost,
	}
}

// DocumentFromRecords rebuilds an ExportDocument, summary and per-model
// costs included, from bare records.
func DocumentFromRecords(records []ExportRecord) ExportDocument {
	var prompt, completion int64
	var cost float64
	usage := make([]UsageRecord, 0, len(records))
	for _, r := range records {
		prompt += r.PromptTokens
		completion += r.CompletionTokens
		cost += r.CostEstimate
		usage = append(usage, UsageRecord{Model: r.Model, Cost: r.CostEstimate})
	}
	return ExportDocument{
		Summary:    summarize(len(records), prompt, completion, cost),
		ModelCosts: costByModel(usage),
		Usage:      records,
	}
}

// ExportSink receives a serialized ledger.
type ExportSink interface {
	WriteExport(doc ExportDocument) error
}

// ExportSinkFunc adapts a function to ExportSink.
type ExportSinkFunc func(doc ExportDocument) error

func (f ExportSinkFunc) WriteExport(doc ExportDocument) error { return f(doc) }

// JSONSink writes indented JSON to w.
func JSONSink(w io.Writer) ExportSink {
	return ExportSinkFunc(func(doc ExportDocument) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(doc)
	})
}

// FileSink writes indented JSON to the file at path, replacing it.
func FileSink(path string) ExportSink {
	return ExportSinkFunc(func(doc ExportDocument) error {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		if err := JSONSink(f).WriteExport(doc); err != nil {
			f.Close()
			return err
		}
		return f.Close()
	})
}

// ReadExport decodes a JSON export document.
func ReadExport(r io.Reader) (ExportDocument, error) {
	var doc ExportDocument
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return ExportDocument{}, fmt.Errorf("gemguard: decode export: %w", err)
	}
	return doc, nil
}

// ReadExportFile decodes the JSON export document at path.
func ReadExportFile(path string) (ExportDocument, error) {
	f, err := os.Open(path)
	if err != nil {
		return ExportDocument{}, fmt.Errorf("gemguard: open export: %w", err)
	}
	defer f.Close()
	return ReadExport(f)
}
