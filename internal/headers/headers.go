package headers

import (
	"strings"

	"catalog_enricher/internal/workbook"
)

const (
	// UncategorizedLabel stands in for a blank category cell
	UncategorizedLabel = "Uncategorized"
	// UnnamedLabel stands in for a blank subcategory cell
	UnnamedLabel = "Unnamed"
)

// HeaderMap groups sheet columns by the category label in the first row. Each
// column contributes exactly one subcategory entry.
type HeaderMap struct {
	Categories    []string
	Subcategories map[string][]string
}

// Columns returns the number of columns the map was built from
func (h HeaderMap) Columns() int {
	n := 0
	for _, subs := range h.Subcategories {
		n += len(subs)
	}
	return n
}

// Extract reads rows[0] as categories and rows[1] as subcategories, zipped by
// column index. Missing rows or cells become sentinels.
func Extract(rows [][]string) HeaderMap {
	var categories, subcategories []string
	if len(rows) > 0 {
		categories = rows[0]
	}
	if len(rows) > 1 {
		subcategories = rows[1]
	}

	width := max(len(categories), len(subcategories))
	h := HeaderMap{
		Categories:    []string{},
		Subcategories: make(map[string][]string),
	}

	for i := 0; i < width; i++ {
		category := label(categories, i, UncategorizedLabel)
		sub := label(subcategories, i, UnnamedLabel)

		if _, seen := h.Subcategories[category]; !seen {
			h.Categories = append(h.Categories, category)
		}
		h.Subcategories[category] = append(h.Subcategories[category], sub)
	}
	return h
}

// ExtractFile reads the first sheet of a workbook and extracts its headers
func ExtractFile(path string) (HeaderMap, error) {
	rows, err := workbook.ReadRows(path, "")
	if err != nil {
		return HeaderMap{}, err
	}
	return Extract(rows), nil
}

func label(cells []string, i int, fallback string) string {
	if i >= len(cells) {
		return fallback
	}
	v := strings.TrimSpace(cells[i])
	if v == "" {
		return fallback
	}
	return v
}
