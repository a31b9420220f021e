package ai

import (
	"context"
	"errors"

	"catalog_enricher/internal/catalog"
)

// EnrichedColumn receives the text an assistant generates for a row
const EnrichedColumn = "AI_Enriched_Info"

// ErrUnavailable means the assistant is switched off or could not answer.
// Callers carry on without it.
var ErrUnavailable = errors.New("ai assistant unavailable")

// Assistant is the optional AI collaborator of the pipeline
type Assistant interface {
	// SelectRelevantSheet picks the sheet holding the product data
	SelectRelevantSheet(ctx context.Context, sheetNames []string) (string, error)
	// Enrich returns the row with missing information filled in
	Enrich(ctx context.Context, row catalog.Row) (catalog.Row, error)
}

// Disabled is the assistant used when AI support is turned off
type Disabled struct{}

func (Disabled) SelectRelevantSheet(context.Context, []string) (string, error) {
	return "", ErrUnavailable
}

func (Disabled) Enrich(_ context.Context, row catalog.Row) (catalog.Row, error) {
	return row, ErrUnavailable
}
