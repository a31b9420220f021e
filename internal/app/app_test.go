package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"catalog_enricher/internal/ai"
	"catalog_enricher/internal/catalog"
	"catalog_enricher/internal/config"
	"catalog_enricher/internal/workbook"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLogLevel(t *testing.T) {
	cases := []struct {
		value      string
		production bool
		want       zerolog.Level
		known      bool
	}{
		{"debug", false, zerolog.DebugLevel, true},
		{" WARNING ", false, zerolog.WarnLevel, true},
		{"critical", false, zerolog.FatalLevel, true},
		{"disabled", true, zerolog.Disabled, true},
		{"", true, zerolog.WarnLevel, true},
		{"", false, zerolog.InfoLevel, true},
		{"loud", false, zerolog.InfoLevel, false},
	}
	for _, tc := range cases {
		level, known := ParseLogLevel(tc.value, tc.production)
		assert.Equal(t, tc.want, level, tc.value)
		assert.Equal(t, tc.known, known, tc.value)
	}
}

func TestInitializeAssistant(t *testing.T) {
	cfg := config.Default()
	assert.IsType(t, ai.Disabled{}, InitializeAssistant(cfg))

	cfg.AI.Enabled = true
	assert.IsType(t, &ai.OllamaAssistant{}, InitializeAssistant(cfg))
}

type pickSheet string

func (p pickSheet) SelectRelevantSheet(_ context.Context, names []string) (string, error) {
	if p == "" {
		return "", errors.New("model offline")
	}
	return string(p), nil
}

func (pickSheet) Enrich(_ context.Context, row catalog.Row) (catalog.Row, error) {
	return row, ai.ErrUnavailable
}

func TestSheetChooser(t *testing.T) {
	name, ok := SheetChooser(context.Background(), pickSheet("Products"))([]string{"Notes", "Products"})
	assert.True(t, ok)
	assert.Equal(t, "Products", name)

	_, ok = SheetChooser(context.Background(), pickSheet(""))([]string{"Notes"})
	assert.False(t, ok)

	_, ok = SheetChooser(context.Background(), ai.Disabled{})([]string{"Notes"})
	assert.False(t, ok)
}

func TestRun_SplitsAndEnrichesLocalReference(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sku := r.URL.Query().Get("q")
		fmt.Fprintf(w, `<div class="item-name">Product %s</div><div class="item-sku">%s</div>`, sku, sku)
	}))
	defer srv.Close()

	dir := t.TempDir()
	cfg := config.Default()
	cfg.ScraperBaseURL = srv.URL + "/search?q={sku}"
	cfg.RateLimitDelay = 0
	cfg.ChunkSize = 4
	cfg.ScraperThreads = 2
	cfg.InputFilePath = filepath.Join(dir, "ref", "reference_data.xlsx")
	cfg.OutputDirectory = filepath.Join(dir, "split_chunks")
	cfg.ProcessedDirectory = filepath.Join(dir, "processed_chunks")
	require.NoError(t, cfg.Validate())

	table := &catalog.Table{Columns: []string{catalog.ColumnSKU, "VENDOR"}}
	for i := 0; i < 10; i++ {
		table.Rows = append(table.Rows, catalog.Row{SKU: fmt.Sprintf("P%d", i), Extra: map[string]string{"VENDOR": "EL"}})
	}
	require.NoError(t, workbook.WriteTable(cfg.InputFilePath, table))

	clients, err := InitializeClients(context.Background(), cfg)
	require.NoError(t, err)
	assert.Nil(t, clients.Sheets)

	report, err := Run(context.Background(), cfg, clients)
	require.NoError(t, err)
	assert.Len(t, report.Chunks, 3)
	assert.Equal(t, 10, report.Success)
	assert.Equal(t, int64(10), clients.Fetcher.AttemptCount())

	updated, err := workbook.LoadTable(filepath.Join(cfg.ProcessedDirectory, "chunk3.xlsx"), "")
	require.NoError(t, err)
	require.Equal(t, 2, updated.Len())
	assert.Equal(t, "Product P8", updated.Rows[0].ProductTitle)
	assert.Equal(t, "EL", updated.Rows[0].Extra["VENDOR"])
	assert.Equal(t, catalog.NotAvailable, updated.Rows[1].Images[0])

	again, err := Scrape(context.Background(), cfg, clients, nil)
	require.NoError(t, err)
	assert.Len(t, again.Chunks, 3, "scrape picks up the chunk files left by the split")
}

func TestSplit_MissingReferenceFails(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.InputFilePath = filepath.Join(dir, "missing.xlsx")
	cfg.OutputDirectory = filepath.Join(dir, "split_chunks")
	cfg.ProcessedDirectory = filepath.Join(dir, "processed_chunks")

	clients, err := InitializeClients(context.Background(), cfg)
	require.NoError(t, err)

	_, err = Split(context.Background(), cfg, clients)
	assert.ErrorContains(t, err, "failed to load reference data")
}
