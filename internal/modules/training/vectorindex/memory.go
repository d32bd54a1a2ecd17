package vectorindex

import (
	"context"
	"errors"
	"math"
	"sort"
	"sync"
)

// MemoryBackend keeps chunks in process. It serves tests and single-node
// development setups; contents are lost on restart.
type MemoryBackend struct {
	mu      sync.RWMutex
	records map[string][]Record
	down    bool
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{records: map[string][]Record{}}
}

func (m *MemoryBackend) Name() string { return "memory" }

// SetDown makes every later call fail with ErrStoreUnavailable until it is
// cleared.
func (m *MemoryBackend) SetDown(down bool) {
	m.mu.Lock()
	m.down = down
	m.mu.Unlock()
}

func (m *MemoryBackend) check() error {
	m.mu.RLock()
	down := m.down
	m.mu.RUnlock()
	if down {
		return unavailable(errMemoryDown)
	}
	return nil
}

func (m *MemoryBackend) Replace(_ context.Context, moduleID string, records []Record) error {
	if err := m.check(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(records) == 0 {
		delete(m.records, moduleID)
		return nil
	}
	cp := make([]Record, len(records))
	copy(cp, records)
	m.records[moduleID] = cp
	return nil
}

func (m *MemoryBackend) Search(_ context.Context, vector []float32, k int, filter SearchFilter) ([]Hit, error) {
	if err := m.check(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var hits []Hit
	for _, recs := range m.records {
		for _, r := range recs {
			if filter.Competency != "" && r.Chunk.CompetencyArea != filter.Competency {
				continue
			}
			if filter.EmbedModel != "" && r.Chunk.EmbedModel != filter.EmbedModel {
				continue
			}
			hits = append(hits, Hit{Chunk: r.Chunk, Distance: 1 - cosine(vector, r.Vector)})
		}
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Distance == hits[j].Distance {
			return hits[i].Chunk.ID < hits[j].Chunk.ID
		}
		return hits[i].Distance < hits[j].Distance
	})
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

func (m *MemoryBackend) Count(context.Context) (int, error) {
	if err := m.check(); err != nil {
		return 0, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, recs := range m.records {
		n += len(recs)
	}
	return n, nil
}

func (m *MemoryBackend) Stats(context.Context) (Stats, error) {
	if err := m.check(); err != nil {
		return Stats{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var chunks []Chunk
	for _, recs := range m.records {
		for _, r := range recs {
			chunks = append(chunks, r.Chunk)
		}
	}
	return statsFromChunks(chunks), nil
}

// ChunkIDs lists stored chunk ids of one module in chunk order.
func (m *MemoryBackend) ChunkIDs(moduleID string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.records[moduleID]))
	for _, r := range m.records[moduleID] {
		out = append(out, r.Chunk.ID)
	}
	return out
}

var errMemoryDown = errors.New("memory backend marked down")

func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
