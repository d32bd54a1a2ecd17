package app

import (
	"context"
	"time"

	"github.com/yungbote/mentorbridge-backend/internal/modules/training/vectorindex"
)

type vectorOpObserver interface {
	ObserveVectorStoreOperation(provider, operation, status string, dur time.Duration)
}

type instrumentedBackend struct {
	inner    vectorindex.Backend
	observer vectorOpObserver
}

func instrumentBackend(inner vectorindex.Backend, observer vectorOpObserver) vectorindex.Backend {
	if inner == nil {
		return nil
	}
	return &instrumentedBackend{inner: inner, observer: observer}
}

func (b *instrumentedBackend) Name() string { return b.inner.Name() }

func (b *instrumentedBackend) Replace(ctx context.Context, moduleID string, records []vectorindex.Record) error {
	start := time.Now()
	err := b.inner.Replace(ctx, moduleID, records)
	b.observe("replace", err, time.Since(start))
	return err
}

func (b *instrumentedBackend) Search(ctx context.Context, vector []float32, k int, filter vectorindex.SearchFilter) ([]vectorindex.Hit, error) {
	start := time.Now()
	out, err := b.inner.Search(ctx, vector, k, filter)
	b.observe("search", err, time.Since(start))
	return out, err
}

func (b *instrumentedBackend) Count(ctx context.Context) (int, error) {
	start := time.Now()
	n, err := b.inner.Count(ctx)
	b.observe("count", err, time.Since(start))
	return n, err
}

func (b *instrumentedBackend) Stats(ctx context.Context) (vectorindex.Stats, error) {
	start := time.Now()
	st, err := b.inner.Stats(ctx)
	b.observe("stats", err, time.Since(start))
	return st, err
}

func (b *instrumentedBackend) observe(operation string, err error, dur time.Duration) {
	if b.observer == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	b.observer.ObserveVectorStoreOperation(b.inner.Name(), operation, status, dur)
}
