package processing

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ChunkResult is the outcome of enriching one chunk
type ChunkResult struct {
	Name        string
	Number      int
	Path        string
	UpdatedPath string
	Success     int
	Failure     int
	Skipped     int
	Duration    time.Duration
	Err         error
}

// Report collects every chunk result of a run plus the totals
type Report struct {
	RunID        uuid.UUID
	StartedAt    time.Time
	FinishedAt   time.Time
	Chunks       []ChunkResult
	Success      int
	Failure      int
	Skipped      int
	FailedChunks int
}

func (r *Report) tally() {
	r.Success, r.Failure, r.Skipped, r.FailedChunks = 0, 0, 0, 0
	for _, c := range r.Chunks {
		r.Success += c.Success
		r.Failure += c.Failure
		r.Skipped += c.Skipped
		if c.Err != nil {
			r.FailedChunks++
		}
	}
}

// Duration returns the wall time of the run
func (r *Report) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Result returns the result for a chunk file name
func (r *Report) Result(name string) (ChunkResult, bool) {
	for _, c := range r.Chunks {
		if c.Name == name {
			return c, true
		}
	}
	return ChunkResult{}, false
}

// Summary renders a short plain-text digest of the run, chunks in number order
func (r *Report) Summary() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Catalog enrichment %s: %d chunks, %d enriched, %d failed, %d skipped\n",
		shortID(r.RunID), len(r.Chunks), r.Success, r.Failure, r.Skipped)

	ordered := make([]ChunkResult, len(r.Chunks))
	copy(ordered, r.Chunks)
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].Number != ordered[j].Number {
			return ordered[i].Number < ordered[j].Number
		}
		return ordered[i].Name < ordered[j].Name
	})

	for _, c := range ordered {
		if c.Err != nil {
			fmt.Fprintf(&sb, "- %s: write failed: %v\n", c.Name, c.Err)
			continue
		}
		fmt.Fprintf(&sb, "- %s: %d ok, %d failed\n", c.Name, c.Success, c.Failure)
	}
	return strings.TrimSuffix(sb.String(), "\n")
}

func shortID(id uuid.UUID) string {
	return id.String()[:8]
}
