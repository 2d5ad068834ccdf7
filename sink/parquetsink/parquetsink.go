// Package parquetsink exports gemguard ledgers as Parquet files, one row per
// usage record.
package parquetsink

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/ineyio/gemguard"
	"github.com/parquet-go/parquet-go"
)

// Row is the Parquet schema of a usage record.
type Row struct {
	ID               string    `parquet:"id"`
	Timestamp        time.Time `parquet:"timestamp"`
	Model            string    `parquet:"model"`
	PromptTokens     int64     `parquet:"prompt_tokens"`
	CompletionTokens int64     `parquet:"completion_tokens"`
	TotalTokens      int64     `parquet:"total_tokens"`
	CostEstimate     float64   `parquet:"cost_estimate"`
}

// Sink writes export documents to a Parquet file.
type Sink struct {
	path string
}

var _ gemguard.ExportSink = (*Sink)(nil)

// New creates a Sink writing to path. Parent directories are created on
// first write.
func New(path string) *Sink {
	return &Sink{path: path}
}

// Path returns the output file path.
func (s *Sink) Path() string { return s.path }

// WriteExport writes every usage record of doc as a row. Summary and
// per-model costs are derived data and are rebuilt by Read.
func (s *Sink) WriteExport(doc gemguard.ExportDocument) error {
	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create export directory: %w", err)
		}
	}

	rows := make([]Row, 0, len(doc.Usage))
	for _, r := range doc.Usage {
		id := r.ID
		if id == "" {
			id = uuid.New().String()
		}
		rows = append(rows, Row{
			ID:               id,
			Timestamp:        r.Timestamp.UTC(),
			Model:            r.Model,
			PromptTokens:     r.PromptTokens,
			CompletionTokens: r.CompletionTokens,
			TotalTokens:      r.TotalTokens,
			CostEstimate:     r.CostEstimate,
		})
	}

	if err := parquet.WriteFile(s.path, rows); err != nil {
		return fmt.Errorf("failed to write usage parquet file: %w", err)
	}
	return nil
}

// Read loads a Parquet export and rebuilds the full document.
func Read(path string) (gemguard.ExportDocument, error) {
	rows, err := parquet.ReadFile[Row](path)
	if err != nil {
		return gemguard.ExportDocument{}, fmt.Errorf("failed to read usage parquet file: %w", err)
	}

	records := make([]gemguard.ExportRecord, 0, len(rows))
	for _, r := range rows {
		records = append(records, gemguard.ExportRecord{
			ID:               r.ID,
			Timestamp:        r.Timestamp,
			Model:            r.Model,
			PromptTokens:     r.PromptTokens,
			CompletionTokens: r.CompletionTokens,
			TotalTokens:      r.TotalTokens,
			CostEstimate:     r.CostEstimate,
		})
	}
	return gemguard.DocumentFromRecords(records), nil
}
