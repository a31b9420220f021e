package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"catalog_enricher/internal/catalog"

	"github.com/rs/zerolog/log"
)

const (
	DefaultBaseURL = "http://localhost:11434"
	DefaultModel   = "llama3.2"
	DefaultTimeout = 120 * time.Second
)

// OllamaConfig selects the model and sampling settings
type OllamaConfig struct {
	BaseURL     string
	Model       string
	MaxTokens   int
	Temperature float64
}

type generateRequest struct {
	Model   string          `json:"model"`
	Prompt  string          `json:"prompt"`
	Stream  bool            `json:"stream"`
	Options generateOptions `json:"options"`
}

type generateOptions struct {
	NumPredict  int     `json:"num_predict,omitempty"`
	Temperature float64 `json:"temperature"`
}

type generateResponse struct {
	Model    string `json:"model"`
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// OllamaAssistant answers through a local Ollama server
type OllamaAssistant struct {
	config     OllamaConfig
	httpClient *http.Client
}

func NewOllamaAssistant(config OllamaConfig) *OllamaAssistant {
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	if config.Model == "" {
		config.Model = DefaultModel
	}
	return &OllamaAssistant{
		config: config,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
	}
}

// Generate sends a text generation request to Ollama
func (a *OllamaAssistant) Generate(ctx context.Context, prompt string) (string, error) {
	reqBody := generateRequest{
		Model:  a.config.Model,
		Prompt: prompt,
		Stream: false,
		Options: generateOptions{
			NumPredict:  a.config.MaxTokens,
			Temperature: a.config.Temperature,
		},
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.config.BaseURL+"/api/generate", bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("ollama returned status %d: %s", resp.StatusCode, string(body))
	}

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	return strings.TrimSpace(out.Response), nil
}

// SelectRelevantSheet asks the model which sheet holds the product data. An
// answer naming none of the sheets counts as unavailable.
func (a *OllamaAssistant) SelectRelevantSheet(ctx context.Context, sheetNames []string) (string, error) {
	if len(sheetNames) == 0 {
		return "", ErrUnavailable
	}

	prompt := fmt.Sprintf(
		"Given the following sheet names: %s, which sheet contains the relevant product data for processing? Answer with the sheet name only.",
		strings.Join(sheetNames, ", "))

	answer, err := a.Generate(ctx, prompt)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to select sheet with AI model")
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	answer = strings.Trim(answer, "\"'` .")
	for _, name := range sheetNames {
		if strings.EqualFold(name, answer) {
			log.Info().Str("sheet", name).Msg("AI selected sheet")
			return name, nil
		}
	}

	log.Warn().Str("answer", answer).Msg("AI answer does not match any sheet")
	return "", ErrUnavailable
}

// Enrich asks the model to fill in missing information for a row and stores
// the answer in the EnrichedColumn.
func (a *OllamaAssistant) Enrich(ctx context.Context, row catalog.Row) (catalog.Row, error) {
	prompt := "Enrich the following product row by adding missing information.\nRow:\n" + describeRow(row)

	answer, err := a.Generate(ctx, prompt)
	if err != nil {
		log.Warn().Err(err).Str("sku", row.SKU).Msg("Failed to enrich row with AI model")
		return row, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if answer == "" {
		return row, ErrUnavailable
	}

	out := row.Clone()
	out.Set(EnrichedColumn, answer)
	log.Debug().Str("sku", row.SKU).Int("chars", len(answer)).Msg("AI enriched row")
	return out, nil
}

func describeRow(row catalog.Row) string {
	var sb strings.Builder
	for _, col := range catalog.EnrichedColumns {
		fmt.Fprintf(&sb, "%s: %s\n", col, row.Get(col))
	}
	extras := make([]string, 0, len(row.Extra))
	for k := range row.Extra {
		extras = append(extras, k)
	}
	sort.Strings(extras)
	for _, k := range extras {
		fmt.Fprintf(&sb, "%s: %s\n", k, row.Extra[k])
	}
	return sb.String()
}
