package sheets

import (
	"context"
	"fmt"
	"strings"

	"catalog_enricher/internal/catalog"
	"catalog_enricher/internal/retry"
	"catalog_enricher/internal/workbook"

	"github.com/rs/zerolog/log"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

type Client struct {
	service *sheets.Service
	retry   retry.Config
}

func NewClient(ctx context.Context, credentialsFile string, retryConfig retry.Config) (*Client, error) {
	service, err := sheets.NewService(ctx, option.WithCredentialsFile(credentialsFile), option.WithScopes(sheets.SpreadsheetsReadonlyScope))
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}

	return &Client{
		service: service,
		retry:   retryConfig,
	}, nil
}

func (c *Client) ReadSheet(ctx context.Context, spreadsheetID, range_ string) ([][]interface{}, error) {
	return retry.WithRetry(ctx, c.retry, func(ctx context.Context, attempt int) ([][]interface{}, error) {
		resp, err := c.service.Spreadsheets.Values.Get(spreadsheetID, range_).Context(ctx).Do()
		if err != nil {
			log.Debug().Err(err).Str("range", range_).Int("attempt", attempt).Msg("Sheet read failed")
			return nil, fmt.Errorf("failed to read sheet: %w", err)
		}
		return resp.Values, nil
	})
}

// SheetTitles lists the tab names of a spreadsheet in order
func (c *Client) SheetTitles(ctx context.Context, spreadsheetID string) ([]string, error) {
	return retry.WithRetry(ctx, c.retry, func(ctx context.Context, attempt int) ([]string, error) {
		resp, err := c.service.Spreadsheets.Get(spreadsheetID).Fields("sheets.properties.title").Context(ctx).Do()
		if err != nil {
			return nil, fmt.Errorf("failed to get spreadsheet: %w", err)
		}
		titles := make([]string, 0, len(resp.Sheets))
		for _, s := range resp.Sheets {
			if s.Properties != nil {
				titles = append(titles, s.Properties.Title)
			}
		}
		return titles, nil
	})
}

// ReadTable reads a range whose first row is the header row. When choose picks
// one of the spreadsheet's tabs, that tab replaces the tab named in range_.
func (c *Client) ReadTable(ctx context.Context, spreadsheetID, range_ string, choose workbook.SheetChooser) (*catalog.Table, string, error) {
	if choose != nil {
		titles, err := c.SheetTitles(ctx, spreadsheetID)
		if err != nil {
			return nil, "", err
		}
		if picked, ok := choose(titles); ok {
			range_ = WithSheet(range_, picked)
		}
	}

	values, err := c.ReadSheet(ctx, spreadsheetID, range_)
	if err != nil {
		return nil, "", err
	}

	table, err := workbook.TableFromRows(StringRows(values))
	if err != nil {
		return nil, "", fmt.Errorf("failed to load range %s: %w", range_, err)
	}

	log.Info().
		Str("spreadsheet_id", spreadsheetID).
		Str("range", range_).
		Int("rows", table.Len()).
		Msg("Loaded reference data from Google Sheets")
	return table, SheetName(range_), nil
}

// StringRows converts API cell values to strings; nil cells become empty
func StringRows(values [][]interface{}) [][]string {
	rows := make([][]string, len(values))
	for i, row := range values {
		rows[i] = make([]string, len(row))
		for j, cell := range row {
			if cell != nil {
				rows[i][j] = fmt.Sprintf("%v", cell)
			}
		}
	}
	return rows
}

// SheetName returns the tab part of an A1 range, without quotes
func SheetName(range_ string) string {
	name, _, found := strings.Cut(range_, "!")
	if !found {
		return ""
	}
	if len(name) >= 2 && strings.HasPrefix(name, "'") && strings.HasSuffix(name, "'") {
		name = strings.ReplaceAll(name[1:len(name)-1], "''", "'")
	}
	return name
}

// WithSheet replaces the tab of an A1 range, keeping the cell part
func WithSheet(range_, sheet string) string {
	quoted := "'" + strings.ReplaceAll(sheet, "'", "''") + "'"
	if _, cells, found := strings.Cut(range_, "!"); found {
		return quoted + "!" + cells
	}
	return quoted
}
