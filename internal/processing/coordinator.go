package processing

import (
	"context"
	"errors"
	"time"

	"catalog_enricher/internal/ai"
	"catalog_enricher/internal/catalog"
	"catalog_enricher/internal/chunks"
	"catalog_enricher/internal/vendor"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Fetcher retrieves the search page for one SKU
type Fetcher interface {
	Fetch(ctx context.Context, sku string) vendor.Outcome
}

// Parser turns a search page into product fields
type Parser interface {
	Parse(html []byte) catalog.ProductDetail
}

// ChunkWriter persists an enriched chunk and returns where it went
type ChunkWriter interface {
	WriteUpdated(chunk chunks.Chunk) (string, error)
}

// Coordinator enriches chunks on a bounded pool, one task per chunk
type Coordinator struct {
	fetcher   Fetcher
	parser    Parser
	writer    ChunkWriter
	assistant ai.Assistant
	workers   int
}

func NewCoordinator(fetcher Fetcher, parser Parser, writer ChunkWriter, assistant ai.Assistant, workers int) *Coordinator {
	if assistant == nil {
		assistant = ai.Disabled{}
	}
	return &Coordinator{
		fetcher:   fetcher,
		parser:    parser,
		writer:    writer,
		assistant: assistant,
		workers:   max(workers, 1),
	}
}

// Run enriches every chunk and returns once all tasks have finished. A failing
// chunk never stops the others.
func (c *Coordinator) Run(ctx context.Context, list []chunks.Chunk) *Report {
	report := &Report{
		RunID:     uuid.New(),
		StartedAt: time.Now(),
		Chunks:    make([]ChunkResult, len(list)),
	}

	log.Info().
		Str("run_id", report.RunID.String()).
		Int("chunks", len(list)).
		Int("workers", c.workers).
		Msg("Starting web scraping")

	var g errgroup.Group
	g.SetLimit(c.workers)
	for i := range list {
		g.Go(func() error {
			report.Chunks[i] = c.processChunk(ctx, report.RunID, list[i])
			return nil
		})
	}
	g.Wait()

	report.FinishedAt = time.Now()
	report.tally()

	log.Info().
		Str("run_id", report.RunID.String()).
		Int("success", report.Success).
		Int("failure", report.Failure).
		Int("skipped", report.Skipped).
		Int("failed_chunks", report.FailedChunks).
		Dur("duration", report.Duration()).
		Msg("Web scraping complete")

	return report
}

// processChunk enriches the rows of one chunk in order and writes the result.
// The chunk's table is owned by this task alone.
func (c *Coordinator) processChunk(ctx context.Context, runID uuid.UUID, chunk chunks.Chunk) ChunkResult {
	start := time.Now()
	result := ChunkResult{
		Name:   chunk.Name(),
		Number: chunk.Number,
		Path:   chunk.Path,
	}

	logger := log.With().
		Str("run_id", runID.String()).
		Str("chunk", result.Name).
		Logger()

	if chunk.Table == nil {
		result.Err = errors.New("chunk has no table loaded")
		logger.Error().Err(result.Err).Msg("Skipping chunk")
		result.Duration = time.Since(start)
		return result
	}

	chunk.Table.EnsureColumns(catalog.EnrichedColumns...)

	for i := range chunk.Table.Rows {
		row := &chunk.Table.Rows[i]
		if !row.HasSKU() {
			result.Skipped++
			logger.Debug().Int("row", i+1).Msg("Skipping row without SKU")
			continue
		}

		sku := row.SKU
		outcome := c.fetcher.Fetch(ctx, sku)
		if !outcome.OK() {
			result.Failure++
			logger.Warn().
				Err(outcome.Err).
				Str("sku", sku).
				Int("attempts", outcome.Attempts).
				Msg("SKU scrape failed, row left unchanged")
			continue
		}

		detail := c.parser.Parse(outcome.Body)
		row.Apply(detail)
		c.enrich(ctx, row, sku, chunk.Table)
		result.Success++

		logger.Debug().
			Str("sku", sku).
			Str("title", detail.Name).
			Msg("SKU scraped")
	}

	updated, err := c.writer.WriteUpdated(chunk)
	if err != nil {
		result.Err = err
		logger.Error().Err(err).Msg("Failed to write updated chunk")
	} else {
		result.UpdatedPath = updated
	}
	result.Duration = time.Since(start)

	logger.Info().
		Int("success", result.Success).
		Int("failure", result.Failure).
		Int("skipped", result.Skipped).
		Dur("duration", result.Duration).
		Msg("Chunk processed")

	return result
}

// enrich offers the row to the assistant. Any error leaves the row as merged.
func (c *Coordinator) enrich(ctx context.Context, row *catalog.Row, sku string, table *catalog.Table) {
	enriched, err := c.assistant.Enrich(ctx, *row)
	if err != nil {
		if !errors.Is(err, ai.ErrUnavailable) {
			log.Warn().Err(err).Str("sku", sku).Msg("AI enrichment failed")
		}
		return
	}
	*row = enriched
	if _, ok := enriched.Extra[ai.EnrichedColumn]; ok {
		table.EnsureColumns(ai.EnrichedColumn)
	}
}
