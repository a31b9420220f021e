package sheets

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"catalog_enricher/internal/workbook"
)

func TestStringRows(t *testing.T) {
	rows := StringRows([][]interface{}{
		{"SKU", "PRODUCT TITLE", "PRICE"},
		{"A1", nil, 12.5},
		{},
	})

	require.Len(t, rows, 3)
	assert.Equal(t, []string{"A1", "", "12.5"}, rows[1])
	assert.Empty(t, rows[2])

	table, err := workbook.TableFromRows(rows)
	require.NoError(t, err)
	assert.Equal(t, 2, table.Len())
	assert.Equal(t, "12.5", table.Rows[0].Get("PRICE"))
}

func TestSheetName(t *testing.T) {
	assert.Equal(t, "Products", SheetName("Products!A1:Z100"))
	assert.Equal(t, "Spring Line", SheetName("'Spring Line'!A1:Z"))
	assert.Equal(t, "Bob's", SheetName("'Bob''s'!A:A"))
	assert.Equal(t, "", SheetName("A1:Z100"))
}

func TestWithSheet(t *testing.T) {
	assert.Equal(t, "'Catalog'!A1:Z100", WithSheet("Sheet1!A1:Z100", "Catalog"))
	assert.Equal(t, "'Bob''s'!A:A", WithSheet("Old!A:A", "Bob's"))
	assert.Equal(t, "'Catalog'", WithSheet("Sheet1", "Catalog"))
	assert.Equal(t, "Bob's", SheetName(WithSheet("Old!A:A", "Bob's")))
}
