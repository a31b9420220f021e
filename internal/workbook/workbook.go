package workbook

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"catalog_enricher/internal/catalog"

	"github.com/rs/zerolog/log"
	"github.com/xuri/excelize/v2"
)

// DefaultSheet is the sheet name used for every file this package writes
const DefaultSheet = "Sheet1"

// Extension is the file suffix of chunk and reference workbooks
const Extension = ".xlsx"

// ErrNoHeader is returned when a sheet has no rows at all
var ErrNoHeader = errors.New("sheet has no header row")

// SheetChooser picks a sheet from the workbook's sheet list. It returns false
// when it has no opinion.
type SheetChooser func(names []string) (string, bool)

// SheetNames lists the sheets of a workbook in tab order
func SheetNames(path string) ([]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook %s: %w", path, err)
	}
	defer f.Close()
	return f.GetSheetList(), nil
}

// ReadRows returns the raw cell rows of a sheet. An empty sheet name reads the
// first sheet.
func ReadRows(path, sheet string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook %s: %w", path, err)
	}
	defer f.Close()

	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q of %s: %w", sheet, path, err)
	}
	return rows, nil
}

// LoadTable reads a sheet whose first row is the header row
func LoadTable(path, sheet string) (*catalog.Table, error) {
	rows, err := ReadRows(path, sheet)
	if err != nil {
		return nil, err
	}
	return TableFromRows(rows)
}

// TableFromRows converts raw rows, header first, into a table
func TableFromRows(rows [][]string) (*catalog.Table, error) {
	if len(rows) == 0 {
		return nil, ErrNoHeader
	}
	return catalog.NewTable(rows[0], rows[1:]), nil
}

// LoadReference opens the reference workbook and loads the sheet picked by
// choose, falling back to the sheet with the most rows.
func LoadReference(path string, choose SheetChooser) (*catalog.Table, string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to open reference workbook %s: %w", path, err)
	}
	defer f.Close()

	names := f.GetSheetList()
	if len(names) == 0 {
		return nil, "", fmt.Errorf("reference workbook %s has no sheets", path)
	}

	sheet := ""
	if choose != nil {
		if picked, ok := choose(names); ok && contains(names, picked) {
			sheet = picked
			log.Debug().Str("sheet", sheet).Msg("Using chosen reference sheet")
		}
	}

	var rows [][]string
	if sheet == "" {
		sheet, rows, err = largestSheet(f, names)
		if err != nil {
			return nil, "", err
		}
		log.Debug().Str("sheet", sheet).Int("rows", len(rows)).Msg("Using largest reference sheet")
	} else {
		rows, err = f.GetRows(sheet)
		if err != nil {
			return nil, "", fmt.Errorf("failed to read sheet %q: %w", sheet, err)
		}
	}

	table, err := TableFromRows(rows)
	if err != nil {
		return nil, "", fmt.Errorf("failed to load sheet %q of %s: %w", sheet, path, err)
	}
	return table, sheet, nil
}

func largestSheet(f *excelize.File, names []string) (string, [][]string, error) {
	best := ""
	var bestRows [][]string
	for _, name := range names {
		rows, err := f.GetRows(name)
		if err != nil {
			return "", nil, fmt.Errorf("failed to read sheet %q: %w", name, err)
		}
		if best == "" || len(rows) > len(bestRows) {
			best = name
			bestRows = rows
		}
	}
	return best, bestRows, nil
}

// WriteTable writes the table, header first, to a new single-sheet workbook
func WriteTable(path string, table *catalog.Table) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := writeRow(f, 1, table.Columns, false); err != nil {
		return err
	}
	for i, rec := range table.Records() {
		if err := writeRow(f, i+2, rec, true); err != nil {
			return err
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook %s: %w", path, err)
	}
	return nil
}

func writeRow(f *excelize.File, rowNum int, values []string, numeric bool) error {
	cell, err := excelize.CoordinatesToCellName(1, rowNum)
	if err != nil {
		return fmt.Errorf("failed to resolve cell for row %d: %w", rowNum, err)
	}
	cells := make([]interface{}, len(values))
	for i, v := range values {
		if numeric {
			cells[i] = cellValue(v)
		} else {
			cells[i] = v
		}
	}
	if err := f.SetSheetRow(DefaultSheet, cell, &cells); err != nil {
		return fmt.Errorf("failed to write row %d: %w", rowNum, err)
	}
	return nil
}

// maxNumberDigits is the precision excelize reads numbers back at unchanged
const maxNumberDigits = 15

// cellValue returns a float64 for values that read back from a number cell as
// the same text, and the string otherwise. "00123", "1e5" and long EANs stay text.
func cellValue(v string) interface{} {
	digits := 0
	for _, r := range v {
		if r >= '0' && r <= '9' {
			digits++
		}
	}
	if digits == 0 || digits > maxNumberDigits {
		return v
	}
	n, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsInf(n, 0) || math.IsNaN(n) {
		return v
	}
	if strconv.FormatFloat(n, 'f', -1, 64) != v {
		return v
	}
	return n
}

func contains(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}
