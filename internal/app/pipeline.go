package app

import (
	"context"
	"fmt"

	"catalog_enricher/internal/chunks"
	"catalog_enricher/internal/config"
	"catalog_enricher/internal/headers"
	"catalog_enricher/internal/processing"

	"github.com/rs/zerolog/log"
)

// Split prepares the chunk directories and splits the reference data into
// chunk files, from Google Sheets when configured, else from the input file.
func Split(ctx context.Context, cfg config.Config, clients *Clients) ([]chunks.Chunk, error) {
	if err := clients.Store.PrepareDirectories(); err != nil {
		return nil, err
	}

	choose := SheetChooser(ctx, clients.Assistant)

	var (
		list []chunks.Chunk
		err  error
	)
	if clients.Sheets != nil {
		table, sheet, readErr := clients.Sheets.ReadTable(ctx, cfg.Reference.SpreadsheetID, cfg.Reference.SheetRange, choose)
		if readErr != nil {
			return nil, fmt.Errorf("failed to load reference data: %w", readErr)
		}
		log.Info().Str("sheet", sheet).Int("rows", table.Len()).Msg("Loaded remote reference data")
		list, err = clients.Store.Split(table, cfg.ChunkSize)
	} else {
		list, err = clients.Store.SplitFile(cfg.InputFilePath, cfg.ChunkSize, choose)
	}
	if err != nil {
		return nil, err
	}

	LogChunkHeaders(list)
	log.Info().Int("chunks", len(list)).Str("output_directory", cfg.OutputDirectory).Msg("Reference data split into chunks")
	return list, nil
}

// LogChunkHeaders extracts and logs the header layout of every chunk
func LogChunkHeaders(list []chunks.Chunk) {
	for _, c := range list {
		h, err := headers.ExtractFile(c.Path)
		if err != nil {
			log.Warn().Err(err).Str("chunk", c.Name()).Msg("Failed to extract headers")
			continue
		}
		log.Debug().
			Str("chunk", c.Name()).
			Strs("categories", h.Categories).
			Int("columns", h.Columns()).
			Msg("Extracted headers")
	}
}

// Scrape enriches the given chunks, or every chunk on disk when list is nil,
// and sends the run summary.
func Scrape(ctx context.Context, cfg config.Config, clients *Clients, list []chunks.Chunk) (*processing.Report, error) {
	if list == nil {
		var err error
		list, err = clients.Store.EnumerateChunks()
		if err != nil {
			return nil, err
		}
	}
	if len(list) == 0 {
		log.Warn().Str("output_directory", cfg.OutputDirectory).Msg("No chunks to process")
	}

	clients.Fetcher.ResetAttemptCount()
	coordinator := processing.NewCoordinator(clients.Fetcher, clients.Parser, clients.Store, clients.Assistant, cfg.ScraperThreads)
	report := coordinator.Run(ctx, list)

	log.Info().
		Str("run_id", report.RunID.String()).
		Int64("requests", clients.Fetcher.AttemptCount()).
		Msg("Vendor request summary")

	// a failed notification never fails the run
	_ = clients.Notifier.NotifyRunSummary(ctx, report)
	return report, nil
}

// Run splits the reference data and enriches the resulting chunks
func Run(ctx context.Context, cfg config.Config, clients *Clients) (*processing.Report, error) {
	list, err := Split(ctx, cfg, clients)
	if err != nil {
		return nil, err
	}
	return Scrape(ctx, cfg, clients, list)
}
