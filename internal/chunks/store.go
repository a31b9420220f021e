package chunks

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"catalog_enricher/internal/catalog"
	"catalog_enricher/internal/workbook"

	"github.com/rs/zerolog/log"
)

const filePrefix = "chunk"

// ErrInvalidChunkSize is returned when a split is asked for a non-positive size
var ErrInvalidChunkSize = errors.New("chunk size must be positive")

// Chunk is one persisted slice of the reference table
type Chunk struct {
	Number int
	Path   string
	Table  *catalog.Table
}

// Name returns the chunk's file name
func (c Chunk) Name() string {
	return filepath.Base(c.Path)
}

// Store owns the split-chunk and processed-chunk directories
type Store struct {
	chunkDir     string
	processedDir string
}

func NewStore(chunkDir, processedDir string) *Store {
	return &Store{
		chunkDir:     chunkDir,
		processedDir: processedDir,
	}
}

// FileName returns the deterministic file name for a chunk number
func FileName(number int) string {
	return fmt.Sprintf("%s%d%s", filePrefix, number, workbook.Extension)
}

// ChunkPath returns where chunk number n is persisted
func (s *Store) ChunkPath(number int) string {
	return filepath.Join(s.chunkDir, FileName(number))
}

// UpdatedPath returns where the enriched copy of a chunk file is written
func (s *Store) UpdatedPath(chunkPath string) string {
	return filepath.Join(s.processedDir, filepath.Base(chunkPath))
}

// PrepareDirectories creates both directories and removes regular files left
// in the chunk directory by an earlier run. Subdirectories are kept.
func (s *Store) PrepareDirectories() error {
	for _, dir := range []string{s.chunkDir, s.processedDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	entries, err := os.ReadDir(s.chunkDir)
	if err != nil {
		return fmt.Errorf("failed to list %s: %w", s.chunkDir, err)
	}

	removed := 0
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		path := filepath.Join(s.chunkDir, entry.Name())
		if err := os.Remove(path); err != nil {
			return fmt.Errorf("failed to remove stale chunk %s: %w", path, err)
		}
		removed++
	}

	log.Debug().
		Str("chunk_dir", s.chunkDir).
		Str("processed_dir", s.processedDir).
		Int("removed", removed).
		Msg("Prepared chunk directories")
	return nil
}

// Split partitions the table into consecutive groups of chunkSize rows and
// persists each group. The returned chunks are in row order.
func (s *Store) Split(table *catalog.Table, chunkSize int) ([]Chunk, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidChunkSize, chunkSize)
	}

	total := (table.Len() + chunkSize - 1) / chunkSize
	log.Debug().
		Int("rows", table.Len()).
		Int("chunk_size", chunkSize).
		Int("chunks", total).
		Msg("Splitting reference table")

	chunks := make([]Chunk, 0, total)
	for number, start := 1, 0; start < table.Len(); number, start = number+1, start+chunkSize {
		end := min(start+chunkSize, table.Len())
		part := table.Slice(start, end)
		path := s.ChunkPath(number)

		if err := workbook.WriteTable(path, part); err != nil {
			return chunks, fmt.Errorf("failed to persist chunk %d: %w", number, err)
		}

		log.Debug().
			Int("chunk", number).
			Int("rows", part.Len()).
			Str("path", path).
			Msg("Saved chunk")

		chunks = append(chunks, Chunk{Number: number, Path: path, Table: part})
	}

	return chunks, nil
}

// SplitFile loads the reference workbook and splits it. Nothing is written if
// the reference cannot be loaded.
func (s *Store) SplitFile(path string, chunkSize int, choose workbook.SheetChooser) ([]Chunk, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidChunkSize, chunkSize)
	}

	table, sheet, err := workbook.LoadReference(path, choose)
	if err != nil {
		log.Error().Err(err).Str("path", path).Msg("Failed to load reference data")
		return nil, fmt.Errorf("failed to load reference data: %w", err)
	}

	log.Info().
		Str("path", path).
		Str("sheet", sheet).
		Int("rows", table.Len()).
		Int("columns", len(table.Columns)).
		Msg("Loaded reference data")

	return s.Split(table, chunkSize)
}

// EnumerateChunks loads every chunk file found in the chunk directory. The
// order follows the directory listing, not the chunk numbers.
func (s *Store) EnumerateChunks() ([]Chunk, error) {
	paths, err := filepath.Glob(filepath.Join(s.chunkDir, "*"+workbook.Extension))
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", s.chunkDir, err)
	}

	chunks := make([]Chunk, 0, len(paths))
	for _, path := range paths {
		table, err := workbook.LoadTable(path, "")
		if err != nil {
			return nil, fmt.Errorf("failed to load chunk %s: %w", path, err)
		}
		chunks = append(chunks, Chunk{
			Number: parseNumber(filepath.Base(path)),
			Path:   path,
			Table:  table,
		})
	}

	log.Debug().Int("chunks", len(chunks)).Str("chunk_dir", s.chunkDir).Msg("Enumerated chunks")
	return chunks, nil
}

// WriteUpdated persists an enriched chunk under the processed directory using
// the source chunk's file name. The source file is left as is.
func (s *Store) WriteUpdated(chunk Chunk) (string, error) {
	path := s.UpdatedPath(chunk.Path)
	if filepath.Clean(path) == filepath.Clean(chunk.Path) {
		return "", fmt.Errorf("updated path %s would overwrite the source chunk", path)
	}
	if err := workbook.WriteTable(path, chunk.Table); err != nil {
		return "", err
	}
	return path, nil
}

// parseNumber extracts N from chunkN.xlsx, returning 0 for other names
func parseNumber(name string) int {
	base := strings.TrimSuffix(name, workbook.Extension)
	if !strings.HasPrefix(base, filePrefix) {
		return 0
	}
	n, err := strconv.Atoi(strings.TrimPrefix(base, filePrefix))
	if err != nil {
		return 0
	}
	return n
}
