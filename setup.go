package main

import (
	"context"
	"fmt"
	"os"

	"catalog_enricher/internal/app"
	"catalog_enricher/internal/config"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	envFiles []string
	cfg      config.Config
)

var rootCmd = &cobra.Command{
	Use:   "catalog-enricher",
	Short: "Split a SKU reference workbook into chunks and enrich them from the vendor site",
	Long: `Reads the reference workbook (or a Google Sheets copy of it), splits it into
fixed-size chunk files, looks every SKU up on the vendor search page and writes
enriched copies of the chunks to the processed directory.

Configuration comes from defaults, the YAML file named by CONFIG_FILE and the
environment (a .env file is loaded when present).`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		app.SetupEnvironment(envFiles...)

		loaded, err := config.Load()
		if err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}
		cfg = loaded

		log.Debug().
			Int("chunk_size", cfg.ChunkSize).
			Int("scraper_threads", cfg.ScraperThreads).
			Int("max_retries", cfg.MaxRetries).
			Dur("timeout", cfg.Timeout).
			Str("input_file_path", cfg.InputFilePath).
			Bool("remote_reference", cfg.Reference.Remote()).
			Msg("Configuration loaded")
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringSliceVar(&envFiles, "env-file", nil, "env files to load instead of .env")
}

// initializeClients builds the clients or exits, like any other startup failure
func initializeClients(ctx context.Context) *app.Clients {
	clients, err := app.InitializeClients(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize clients")
	}
	return clients
}

func execute(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		log.Error().Err(err).Msg("Command failed")
		os.Exit(1)
	}
}
