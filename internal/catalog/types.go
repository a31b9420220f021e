package catalog

import (
	"strconv"
	"strings"
)

// Column names the pipeline reads and writes
const (
	ColumnSKU          = "SKU"
	ColumnProductTitle = "PRODUCT TITLE"
	ColumnColor        = "COLOR"
	ColumnSize         = "SIZE"
	ColumnImageURL1    = "IMAGE URL 1"
	ColumnImageURL2    = "IMAGE URL 2"
	ColumnImageURL3    = "IMAGE URL 3"
)

// NotAvailable is written in place of a value the product page did not have
const NotAvailable = "N/A"

// MaxImages is the number of gallery images kept per product
const MaxImages = 3

// EnrichedColumns lists the columns a successful scrape writes, in output order
var EnrichedColumns = []string{
	ColumnSKU,
	ColumnProductTitle,
	ColumnColor,
	ColumnSize,
	ColumnImageURL1,
	ColumnImageURL2,
	ColumnImageURL3,
}

var imageColumns = [MaxImages]string{ColumnImageURL1, ColumnImageURL2, ColumnImageURL3}

// Row is one spreadsheet row. Columns the pipeline touches get their own field,
// anything else is carried untouched in Extra so it survives a round trip.
type Row struct {
	SKU          string
	ProductTitle string
	Color        string
	Size         string
	Images       [MaxImages]string
	Extra        map[string]string
}

// Get returns the value stored for a column name
func (r *Row) Get(column string) string {
	switch column {
	case ColumnSKU:
		return r.SKU
	case ColumnProductTitle:
		return r.ProductTitle
	case ColumnColor:
		return r.Color
	case ColumnSize:
		return r.Size
	}
	for i, name := range imageColumns {
		if name == column {
			return r.Images[i]
		}
	}
	return r.Extra[column]
}

// Set stores a value under a column name
func (r *Row) Set(column, value string) {
	switch column {
	case ColumnSKU:
		r.SKU = value
		return
	case ColumnProductTitle:
		r.ProductTitle = value
		return
	case ColumnColor:
		r.Color = value
		return
	case ColumnSize:
		r.Size = value
		return
	}
	for i, name := range imageColumns {
		if name == column {
			r.Images[i] = value
			return
		}
	}
	if r.Extra == nil {
		r.Extra = make(map[string]string)
	}
	r.Extra[column] = value
}

// Clone returns a deep copy of the row
func (r Row) Clone() Row {
	out := r
	if r.Extra != nil {
		out.Extra = make(map[string]string, len(r.Extra))
		for k, v := range r.Extra {
			out.Extra[k] = v
		}
	}
	return out
}

// HasSKU reports whether the row carries a lookup key
func (r *Row) HasSKU() bool {
	return strings.TrimSpace(r.SKU) != ""
}

// Apply merges a scraped product into the row, overwriting the enriched columns
func (r *Row) Apply(detail ProductDetail) {
	r.ProductTitle = detail.Name
	r.SKU = detail.SKU
	r.Color = strings.Join(detail.Colors, ", ")
	r.Size = strings.Join(detail.Sizes, ", ")
	r.Images = detail.Images
}

// Table is an ordered set of rows sharing one header row
type Table struct {
	Columns []string
	Rows    []Row
}

// NewTable builds a table from a header row and raw cell rows. Short rows are
// padded with empty values; cells past the header become unnamed columns.
func NewTable(header []string, records [][]string) *Table {
	width := len(header)
	for _, rec := range records {
		width = max(width, len(rec))
	}

	columns := make([]string, width)
	for i, h := range header {
		columns[i] = strings.TrimSpace(h)
	}

	t := &Table{Columns: columns, Rows: make([]Row, 0, len(records))}
	keys := t.Keys()
	for _, rec := range records {
		var row Row
		for i, key := range keys {
			value := ""
			if i < len(rec) {
				value = rec[i]
			}
			row.Set(key, value)
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

// Keys returns one distinct key per column, used to store cell values.
// Repeated headers get a ".1", ".2" suffix and blank headers become
// "Unnamed: <index>", so every cell keeps its own slot.
func (t *Table) Keys() []string {
	keys := make([]string, len(t.Columns))
	used := make(map[string]bool, len(t.Columns))
	for i, col := range t.Columns {
		base := col
		if base == "" {
			base = "Unnamed: " + strconv.Itoa(i)
		}
		key := base
		for n := 1; used[key]; n++ {
			key = base + "." + strconv.Itoa(n)
		}
		used[key] = true
		keys[i] = key
	}
	return keys
}

// Records renders the table back into positional cell rows, header excluded
func (t *Table) Records() [][]string {
	keys := t.Keys()
	out := make([][]string, 0, len(t.Rows))
	for i := range t.Rows {
		rec := make([]string, len(keys))
		for j, key := range keys {
			rec[j] = t.Rows[i].Get(key)
		}
		out = append(out, rec)
	}
	return out
}

// Len returns the number of data rows
func (t *Table) Len() int {
	return len(t.Rows)
}

// HasColumn reports whether the header row contains the column
func (t *Table) HasColumn(column string) bool {
	for _, c := range t.Columns {
		if c == column {
			return true
		}
	}
	return false
}

// EnsureColumns appends any missing columns to the header row
func (t *Table) EnsureColumns(columns ...string) {
	for _, c := range columns {
		if !t.HasColumn(c) {
			t.Columns = append(t.Columns, c)
		}
	}
}

// Slice returns a table holding rows [start, end) with the same header
func (t *Table) Slice(start, end int) *Table {
	columns := make([]string, len(t.Columns))
	copy(columns, t.Columns)
	rows := make([]Row, 0, end-start)
	for _, r := range t.Rows[start:end] {
		rows = append(rows, r.Clone())
	}
	return &Table{Columns: columns, Rows: rows}
}

// ProductDetail holds the fields harvested from one product page
type ProductDetail struct {
	Name   string
	SKU    string
	Colors []string
	Sizes  []string
	Images [MaxImages]string
}

// EmptyProductDetail returns a detail with every field at its sentinel
func EmptyProductDetail() ProductDetail {
	return ProductDetail{
		Name:   NotAvailable,
		SKU:    NotAvailable,
		Colors: []string{},
		Sizes:  []string{},
		Images: [MaxImages]string{NotAvailable, NotAvailable, NotAvailable},
	}
}
