package parquetsink_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/ineyio/gemguard"
	"github.com/ineyio/gemguard/sink/parquetsink"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSink_RoundTrip(t *testing.T) {
	ts := time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC)
	l := gemguard.NewLedger(gemguard.WithLedgerClock(func() time.Time { return ts }))
	l.Record(1200, 300, "gemini-2.5-flash")
	l.Record(800, 900, "gemini-2.5-pro")
	l.Record(50, 10, "unknown-model")

	path := filepath.Join(t.TempDir(), "exports", "usage.parquet")
	sink := parquetsink.New(path)
	assert.Equal(t, path, sink.Path())
	require.NoError(t, l.Export(sink))

	doc, err := parquetsink.Read(path)
	require.NoError(t, err)

	want := l.Summary()
	assert.Equal(t, want.TotalRequests, doc.Summary.TotalRequests)
	assert.Equal(t, want.TotalTokens, doc.Summary.TotalTokens)
	assert.Equal(t, want.PromptTokens, doc.Summary.PromptTokens)
	assert.InDelta(t, want.TotalCost, doc.Summary.TotalCost, 1e-12)
	assert.Equal(t, l.CostByModel(), doc.ModelCosts)

	require.Len(t, doc.Usage, 3)
	assert.Equal(t, "gemini-2.5-flash", doc.Usage[0].Model)
	assert.Equal(t, int64(1500), doc.Usage[0].TotalTokens)
}

func TestSink_EmptyLedger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.parquet")
	require.NoError(t, gemguard.NewLedger().Export(parquetsink.New(path)))

	doc, err := parquetsink.Read(path)
	require.NoError(t, err)
	assert.Equal(t, 0, doc.Summary.TotalRequests)
	assert.Empty(t, doc.Usage)
}

func TestRead_MissingFile(t *testing.T) {
	_, err := parquetsink.Read(filepath.Join(t.TempDir(), "nope.parquet"))
	assert.Error(t, err)
}
