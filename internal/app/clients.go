package app

import (
	"context"
	"errors"
	"fmt"

	"catalog_enricher/internal/ai"
	"catalog_enricher/internal/chunks"
	"catalog_enricher/internal/config"
	"catalog_enricher/internal/notifications"
	"catalog_enricher/internal/product"
	"catalog_enricher/internal/sheets"
	"catalog_enricher/internal/vendor"
	"catalog_enricher/internal/workbook"

	"github.com/rs/zerolog/log"
)

// Clients holds every collaborator a command needs, built from one Config
type Clients struct {
	Store     *chunks.Store
	Fetcher   *vendor.Client
	Parser    *product.Parser
	Assistant ai.Assistant
	Notifier  *notifications.Client
	// Sheets is nil unless the reference lives in Google Sheets
	Sheets *sheets.Client
}

// InitializeClients creates the clients described by cfg
func InitializeClients(ctx context.Context, cfg config.Config) (*Clients, error) {
	log.Debug().Msg("Initializing clients")

	clients := &Clients{
		Store:     chunks.NewStore(cfg.OutputDirectory, cfg.ProcessedDirectory),
		Fetcher:   vendor.NewClient(cfg.Vendor()),
		Parser:    product.NewParser(cfg.Selectors),
		Assistant: InitializeAssistant(cfg),
		Notifier:  InitializeNotificationClient(cfg),
	}

	if cfg.Reference.Remote() {
		sheetsClient, err := sheets.NewClient(ctx, cfg.Reference.CredentialsFile, cfg.FetchRetry())
		if err != nil {
			return nil, fmt.Errorf("failed to create sheets client: %w", err)
		}
		clients.Sheets = sheetsClient
	}

	log.Debug().
		Bool("remote_reference", clients.Sheets != nil).
		Msg("Clients initialized successfully")
	return clients, nil
}

// InitializeAssistant returns the Ollama assistant when enabled, else Disabled
func InitializeAssistant(cfg config.Config) ai.Assistant {
	if !cfg.AI.Enabled {
		log.Debug().Msg("AI handler disabled")
		return ai.Disabled{}
	}
	log.Info().
		Str("model", cfg.AI.Model).
		Str("base_url", cfg.AI.BaseURL).
		Msg("AI handler enabled")
	return ai.NewOllamaAssistant(cfg.Ollama())
}

// InitializeNotificationClient creates the ntfy client; a disabled client is a no-op
func InitializeNotificationClient(cfg config.Config) *notifications.Client {
	n := cfg.Notifications

	log.Debug().
		Bool("enabled", n.Enabled).
		Str("base_url", n.BaseURL).
		Str("topic", n.Topic).
		Msg("Initializing notification client")

	client := notifications.NewClient(n.BaseURL, n.Topic, n.Enabled, n.Priority, cfg.FetchRetry())

	if n.Enabled {
		log.Info().Str("topic", n.Topic).Msg("Notifications enabled")
	} else {
		log.Debug().Msg("Notifications disabled")
	}
	return client
}

// SheetChooser asks the assistant to pick a sheet. An unavailable assistant
// leaves the choice to the caller's fallback.
func SheetChooser(ctx context.Context, assistant ai.Assistant) workbook.SheetChooser {
	return func(names []string) (string, bool) {
		name, err := assistant.SelectRelevantSheet(ctx, names)
		if err != nil {
			if !errors.Is(err, ai.ErrUnavailable) {
				log.Warn().Err(err).Msg("AI sheet selection failed")
			}
			return "", false
		}
		log.Info().Str("sheet", name).Msg("AI selected reference sheet")
		return name, true
	}
}
