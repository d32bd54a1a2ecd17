package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/yungbote/mentorbridge-backend/internal/modules/training/vectorindex"
)

type recordedOp struct {
	provider, operation, status string
}

type fakeVectorObserver struct {
	ops []recordedOp
}

func (f *fakeVectorObserver) ObserveVectorStoreOperation(provider, operation, status string, _ time.Duration) {
	f.ops = append(f.ops, recordedOp{provider, operation, status})
}

func TestInstrumentBackendPassThrough(t *testing.T) {
	inner := vectorindex.NewMemoryBackend()
	obs := &fakeVectorObserver{}
	b := instrumentBackend(inner, obs)
	if b == nil {
		t.Fatalf("instrumentBackend: expected non-nil wrapper")
	}
	ctx := context.Background()

	rec := vectorindex.Record{
		Chunk:  vectorindex.Chunk{ID: vectorindex.ChunkID("M1", 0), ModuleID: "M1", Page: 1, Text: "a"},
		Vector: []float32{1, 0},
	}
	if err := b.Replace(ctx, "M1", []vectorindex.Record{rec}); err != nil {
		t.Fatalf("Replace: %v", err)
	}
	hits, err := b.Search(ctx, []float32{1, 0}, 3, vectorindex.SearchFilter{})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 1 {
		t.Fatalf("hits: want=1 got=%d", len(hits))
	}
	if n, err := b.Count(ctx); err != nil || n != 1 {
		t.Fatalf("Count: n=%d err=%v", n, err)
	}
	if len(obs.ops) != 3 {
		t.Fatalf("observed ops: want=3 got=%d", len(obs.ops))
	}
	if obs.ops[1] != (recordedOp{"memory", "search", "success"}) {
		t.Fatalf("unexpected op: %+v", obs.ops[1])
	}
}

func TestInstrumentBackendErrorPassThrough(t *testing.T) {
	inner := vectorindex.NewMemoryBackend()
	inner.SetDown(true)
	obs := &fakeVectorObserver{}
	b := instrumentBackend(inner, obs)

	_, err := b.Stats(context.Background())
	if !errors.Is(err, vectorindex.ErrStoreUnavailable) {
		t.Fatalf("Stats: expected ErrStoreUnavailable, got=%v", err)
	}
	if len(obs.ops) != 1 || obs.ops[0].status != "error" {
		t.Fatalf("unexpected ops: %+v", obs.ops)
	}
}
