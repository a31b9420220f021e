package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"catalog_enricher/internal/catalog"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ollamaServer(t *testing.T, answer string, status int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/generate", r.URL.Path)

		var req generateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-model", req.Model)
		assert.False(t, req.Stream)
		assert.Equal(t, 100, req.Options.NumPredict)

		if status != http.StatusOK {
			http.Error(w, "boom", status)
			return
		}
		json.NewEncoder(w).Encode(generateResponse{Model: req.Model, Response: answer, Done: true})
	}))
}

func newTestAssistant(url string) *OllamaAssistant {
	return NewOllamaAssistant(OllamaConfig{BaseURL: url, Model: "test-model", MaxTokens: 100, Temperature: 0.7})
}

func TestNewOllamaAssistant_Defaults(t *testing.T) {
	a := NewOllamaAssistant(OllamaConfig{})
	assert.Equal(t, DefaultBaseURL, a.config.BaseURL)
	assert.Equal(t, DefaultModel, a.config.Model)
	assert.NotNil(t, a.httpClient)
}

func TestSelectRelevantSheet_MatchesSheetName(t *testing.T) {
	srv := ollamaServer(t, " \"products\".", http.StatusOK)
	defer srv.Close()

	sheet, err := newTestAssistant(srv.URL).SelectRelevantSheet(context.Background(), []string{"Notes", "Products"})

	require.NoError(t, err)
	assert.Equal(t, "Products", sheet)
}

func TestSelectRelevantSheet_UnknownAnswer(t *testing.T) {
	srv := ollamaServer(t, "I think the second one", http.StatusOK)
	defer srv.Close()

	_, err := newTestAssistant(srv.URL).SelectRelevantSheet(context.Background(), []string{"Notes", "Products"})

	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestSelectRelevantSheet_ServerError(t *testing.T) {
	srv := ollamaServer(t, "", http.StatusInternalServerError)
	defer srv.Close()

	_, err := newTestAssistant(srv.URL).SelectRelevantSheet(context.Background(), []string{"Products"})

	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestEnrich_StoresAnswer(t *testing.T) {
	srv := ollamaServer(t, "Soft 600gsm towels", http.StatusOK)
	defer srv.Close()

	row := catalog.Row{SKU: "A1", ProductTitle: "Towel Set", Extra: map[string]string{"VENDOR": "EL"}}
	out, err := newTestAssistant(srv.URL).Enrich(context.Background(), row)

	require.NoError(t, err)
	assert.Equal(t, "Soft 600gsm towels", out.Get(EnrichedColumn))
	assert.Equal(t, "Towel Set", out.ProductTitle)
	assert.Equal(t, "", row.Get(EnrichedColumn), "input row must not be modified")
}

func TestEnrich_UnavailableKeepsRow(t *testing.T) {
	srv := ollamaServer(t, "", http.StatusBadGateway)
	defer srv.Close()

	row := catalog.Row{SKU: "A1"}
	out, err := newTestAssistant(srv.URL).Enrich(context.Background(), row)

	assert.True(t, errors.Is(err, ErrUnavailable))
	assert.Equal(t, row, out)
}

func TestDisabled(t *testing.T) {
	var a Assistant = Disabled{}

	_, err := a.SelectRelevantSheet(context.Background(), []string{"Sheet1"})
	assert.ErrorIs(t, err, ErrUnavailable)

	row := catalog.Row{SKU: "X"}
	out, err := a.Enrich(context.Background(), row)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, row, out)
}

func TestDescribeRow_SortsExtras(t *testing.T) {
	text := describeRow(catalog.Row{SKU: "A1", Extra: map[string]string{"b": "2", "a": "1"}})
	assert.True(t, strings.Index(text, "a: 1") < strings.Index(text, "b: 2"))
	assert.Contains(t, text, "SKU: A1")
}
