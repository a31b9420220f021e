package chunks

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"catalog_enricher/internal/catalog"
	"catalog_enricher/internal/workbook"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func referenceTable(n int) *catalog.Table {
	t := &catalog.Table{Columns: []string{catalog.ColumnSKU, catalog.ColumnProductTitle, "VENDOR"}}
	for i := 0; i < n; i++ {
		t.Rows = append(t.Rows, catalog.Row{
			SKU:          fmt.Sprintf("SKU-%03d", i),
			ProductTitle: fmt.Sprintf("Item %d", i),
			Extra:        map[string]string{"VENDOR": "EL"},
		})
	}
	return t
}

func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	dir := t.TempDir()
	store := NewStore(filepath.Join(dir, "split_chunks"), filepath.Join(dir, "processed_chunks"))
	require.NoError(t, store.PrepareDirectories())
	return store, dir
}

func TestSplit_TwentyThreeRowsByTen(t *testing.T) {
	store, dir := newTestStore(t)

	chunks, err := store.Split(referenceTable(23), 10)
	require.NoError(t, err)
	require.Len(t, chunks, 3)

	for i, want := range []int{10, 10, 3} {
		assert.Equal(t, i+1, chunks[i].Number)
		assert.Equal(t, want, chunks[i].Table.Len())
		assert.Equal(t, filepath.Join(dir, "split_chunks", fmt.Sprintf("chunk%d.xlsx", i+1)), chunks[i].Path)

		loaded, err := workbook.LoadTable(chunks[i].Path, "")
		require.NoError(t, err)
		assert.Equal(t, want, loaded.Len())
	}
}

func TestSplit_PartitionsExactly(t *testing.T) {
	for _, tc := range []struct{ rows, size int }{
		{0, 5}, {1, 1}, {9, 3}, {10, 3}, {7, 100},
	} {
		t.Run(fmt.Sprintf("%d_by_%d", tc.rows, tc.size), func(t *testing.T) {
			store, _ := newTestStore(t)
			table := referenceTable(tc.rows)

			chunks, err := store.Split(table, tc.size)
			require.NoError(t, err)
			assert.Len(t, chunks, (tc.rows+tc.size-1)/tc.size)

			var joined []catalog.Row
			for i, c := range chunks {
				if i < len(chunks)-1 {
					assert.Equal(t, tc.size, c.Table.Len())
				}
				loaded, err := workbook.LoadTable(c.Path, "")
				require.NoError(t, err)
				joined = append(joined, loaded.Rows...)
			}
			if tc.rows == 0 {
				assert.Empty(t, joined)
				return
			}
			assert.Equal(t, table.Rows, joined)
		})
	}
}

func TestSplit_KeepsDuplicateAndBlankHeaderCells(t *testing.T) {
	store, _ := newTestStore(t)
	header := []string{"SKU", "Notes", "Notes", "", "Price"}
	records := [][]string{
		{"A1", "first", "second", "hidden", "9.99"},
		{"A2", "third", "fourth", "kept", "12"},
	}
	table, err := workbook.TableFromRows(append([][]string{header}, records...))
	require.NoError(t, err)

	list, err := store.Split(table, 1)
	require.NoError(t, err)
	require.Len(t, list, 2)

	for i, c := range list {
		rows, err := workbook.ReadRows(c.Path, "")
		require.NoError(t, err)
		assert.Equal(t, [][]string{header, records[i]}, rows)
	}

	loaded, err := store.EnumerateChunks()
	require.NoError(t, err)
	var got [][]string
	sort.Slice(loaded, func(i, j int) bool { return loaded[i].Number < loaded[j].Number })
	for _, c := range loaded {
		got = append(got, c.Table.Records()...)
	}
	assert.Equal(t, records, got)
}

func TestSplit_InvalidChunkSizeWritesNothing(t *testing.T) {
	store, dir := newTestStore(t)

	for _, size := range []int{0, -3} {
		_, err := store.Split(referenceTable(5), size)
		assert.ErrorIs(t, err, ErrInvalidChunkSize)
	}

	entries, err := os.ReadDir(filepath.Join(dir, "split_chunks"))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestSplit_IsRepeatable(t *testing.T) {
	store, _ := newTestStore(t)
	table := referenceTable(12)

	first, err := store.Split(table, 5)
	require.NoError(t, err)
	firstRows := loadAll(t, first)

	require.NoError(t, store.PrepareDirectories())
	second, err := store.Split(table, 5)
	require.NoError(t, err)

	assert.Equal(t, paths(first), paths(second))
	assert.Equal(t, firstRows, loadAll(t, second))
}

func TestPrepareDirectories_ClearsStaleFilesOnly(t *testing.T) {
	store, dir := newTestStore(t)
	chunkDir := filepath.Join(dir, "split_chunks")

	_, err := store.Split(referenceTable(30), 10)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(chunkDir, "notes.txt"), []byte("x"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(chunkDir, "archive"), 0o755))

	require.NoError(t, store.PrepareDirectories())

	entries, err := os.ReadDir(chunkDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "archive", entries[0].Name())
	assert.True(t, entries[0].IsDir())

	_, err = store.Split(referenceTable(4), 10)
	require.NoError(t, err)
	listed, err := store.EnumerateChunks()
	require.NoError(t, err)
	require.Len(t, listed, 1, "chunks from the earlier run must not be visible")
	assert.Equal(t, 4, listed[0].Table.Len())
}

func TestEnumerateChunks_LoadsEveryChunk(t *testing.T) {
	store, _ := newTestStore(t)
	_, err := store.Split(referenceTable(25), 10)
	require.NoError(t, err)

	listed, err := store.EnumerateChunks()
	require.NoError(t, err)
	require.Len(t, listed, 3)

	sizes := map[int]int{}
	for _, c := range listed {
		sizes[c.Number] = c.Table.Len()
	}
	assert.Equal(t, map[int]int{1: 10, 2: 10, 3: 5}, sizes)
}

func TestSplitFile_LoadFailureWritesNothing(t *testing.T) {
	store, dir := newTestStore(t)

	_, err := store.SplitFile(filepath.Join(dir, "missing.xlsx"), 10, nil)
	assert.Error(t, err)

	corrupt := filepath.Join(dir, "corrupt.xlsx")
	require.NoError(t, os.WriteFile(corrupt, []byte("not a workbook"), 0o644))
	_, err = store.SplitFile(corrupt, 10, nil)
	assert.Error(t, err)

	entries, err := os.ReadDir(filepath.Join(dir, "split_chunks"))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestSplitFile_SplitsReferenceWorkbook(t *testing.T) {
	store, dir := newTestStore(t)
	ref := filepath.Join(dir, "ref", "reference_data.xlsx")
	require.NoError(t, workbook.WriteTable(ref, referenceTable(23)))

	chunks, err := store.SplitFile(ref, 10, nil)
	require.NoError(t, err)
	require.Len(t, chunks, 3)
	assert.Equal(t, "SKU-020", chunks[2].Table.Rows[0].SKU)
}

func TestWriteUpdated_UsesProcessedDirectory(t *testing.T) {
	store, dir := newTestStore(t)
	chunks, err := store.Split(referenceTable(3), 10)
	require.NoError(t, err)

	chunks[0].Table.Rows[0].ProductTitle = "changed"
	path, err := store.WriteUpdated(chunks[0])
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "processed_chunks", "chunk1.xlsx"), path)

	updated, err := workbook.LoadTable(path, "")
	require.NoError(t, err)
	assert.Equal(t, "changed", updated.Rows[0].ProductTitle)

	source, err := workbook.LoadTable(chunks[0].Path, "")
	require.NoError(t, err)
	assert.Equal(t, "Item 0", source.Rows[0].ProductTitle)
}

func TestWriteUpdated_RefusesToOverwriteSource(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir, dir)
	_, err := store.WriteUpdated(Chunk{Path: filepath.Join(dir, "chunk1.xlsx"), Table: referenceTable(1)})
	assert.Error(t, err)
}

func TestParseNumber(t *testing.T) {
	assert.Equal(t, 12, parseNumber("chunk12.xlsx"))
	assert.Equal(t, 0, parseNumber("other.xlsx"))
	assert.Equal(t, 0, parseNumber("chunkX.xlsx"))
	assert.Equal(t, "chunk7.xlsx", FileName(7))
}

func loadAll(t *testing.T, chunks []Chunk) [][]catalog.Row {
	t.Helper()
	var out [][]catalog.Row
	for _, c := range chunks {
		loaded, err := workbook.LoadTable(c.Path, "")
		require.NoError(t, err)
		out = append(out, loaded.Rows)
	}
	return out
}

func paths(chunks []Chunk) []string {
	out := make([]string, 0, len(chunks))
	for _, c := range chunks {
		out = append(out, c.Path)
	}
	sort.Strings(out)
	return out
}
