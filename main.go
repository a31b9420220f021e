package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"catalog_enricher/internal/app"
	"catalog_enricher/internal/headers"
	"catalog_enricher/internal/processing"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Split the reference data and enrich every chunk",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		log.Info().Msg("Starting catalog enrichment run")
		report, err := app.Run(ctx, cfg, initializeClients(ctx))
		if err != nil {
			return err
		}
		printReport(cmd, report)
		return nil
	},
}

var splitCmd = &cobra.Command{
	Use:   "split",
	Short: "Split the reference data into chunk files without scraping",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		list, err := app.Split(ctx, cfg, initializeClients(ctx))
		if err != nil {
			return err
		}
		for _, c := range list {
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d rows\n", c.Path, c.Table.Len())
		}
		return nil
	},
}

var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Enrich the chunk files already present in the output directory",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		report, err := app.Scrape(ctx, cfg, initializeClients(ctx), nil)
		if err != nil {
			return err
		}
		printReport(cmd, report)
		return nil
	},
}

var headersCmd = &cobra.Command{
	Use:   "headers [workbook.xlsx]",
	Short: "Show the category and subcategory header layout of a workbook",
	Long: `Reads the first two rows of the workbook's first sheet as categories and
subcategories and prints the columns grouped by category. Defaults to the
configured input file.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := cfg.InputFilePath
		if len(args) == 1 {
			path = args[0]
		}

		h, err := headers.ExtractFile(path)
		if err != nil {
			return fmt.Errorf("failed to extract headers: %w", err)
		}

		out := cmd.OutOrStdout()
		for _, category := range h.Categories {
			fmt.Fprintf(out, "%s: %s\n", category, strings.Join(h.Subcategories[category], ", "))
		}
		return nil
	},
}

func printReport(cmd *cobra.Command, report *processing.Report) {
	fmt.Fprintln(cmd.OutOrStdout(), report.Summary())
}

func init() {
	rootCmd.AddCommand(runCmd, splitCmd, scrapeCmd, headersCmd)
}

func main() {
	execute(context.Background())
}
