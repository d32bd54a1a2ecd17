package vectorindex

import (
	"context"
	"fmt"
)

// Record is a chunk with its embedding, as written to a Backend.
type Record struct {
	Chunk  Chunk
	Vector []float32
}

// SearchFilter restricts a search. Empty fields match every chunk.
type SearchFilter struct {
	Competency string
	EmbedModel string
}

// Backend is a chunk store with vector search. Implementations must make
// Replace remove every existing chunk of the module before the new records
// become visible, and must wrap connectivity failures with
// ErrStoreUnavailable.
type Backend interface {
	Name() string
	Replace(ctx context.Context, moduleID string, records []Record) error
	Search(ctx context.Context, vector []float32, k int, filter SearchFilter) ([]Hit, error)
	Count(ctx context.Context) (int, error)
	Stats(ctx context.Context) (Stats, error)
}

func unavailable(err error) error {
	return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
}

func statsFromChunks(chunks []Chunk) Stats {
	st := Stats{Modules: map[string]ModuleStats{}}
	for _, c := range chunks {
		m := st.Modules[c.ModuleID]
		m.Name = c.ModuleName
		m.CompetencyArea = c.CompetencyArea
		m.Chunks++
		st.Modules[c.ModuleID] = m
		st.TotalChunks++
	}
	st.TotalModules = len(st.Modules)
	return st
}
