package app

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/yungbote/mentorbridge-backend/internal/platform/logger"
	"github.com/yungbote/mentorbridge-backend/internal/platform/qdrant"
)

func TestNewVectorBackendMemory(t *testing.T) {
	obs := &fakeVectorObserver{}
	b, err := newVectorBackend(context.Background(), logger.Nop(), VectorProviderConfig{Provider: VectorProviderMemory}, nil, obs)
	if err != nil {
		t.Fatalf("newVectorBackend: %v", err)
	}
	if b.Name() != "memory" {
		t.Fatalf("name: want=memory got=%q", b.Name())
	}
	if _, err := b.Count(context.Background()); err != nil {
		t.Fatalf("Count: %v", err)
	}
	if len(obs.ops) != 1 {
		t.Fatalf("expected backend calls to be observed, got=%d", len(obs.ops))
	}
}

func TestNewVectorBackendQdrantEnsuresCollection(t *testing.T) {
	var calls []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, r.Method+" "+r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status": "ok",
			"result": map[string]any{"config": map[string]any{"params": map[string]any{"vectors": map[string]any{"size": 4, "distance": "Cosine"}}}},
		})
	}))
	defer srv.Close()

	cfg := VectorProviderConfig{
		Provider: VectorProviderQdrant,
		Qdrant:   qdrant.Config{URL: srv.URL, Collection: "modules", VectorDim: 4},
	}
	b, err := newVectorBackend(context.Background(), logger.Nop(), cfg, nil, nil)
	if err != nil {
		t.Fatalf("newVectorBackend: %v", err)
	}
	if b.Name() != "qdrant" {
		t.Fatalf("name: want=qdrant got=%q", b.Name())
	}
	if len(calls) != 1 || calls[0] != "GET /collections/modules" {
		t.Fatalf("calls: %v", calls)
	}
}

func TestNewVectorBackendQdrantUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	cfg := VectorProviderConfig{
		Provider: VectorProviderQdrant,
		Qdrant:   qdrant.Config{URL: url, Collection: "modules", VectorDim: 4},
	}
	_, err := newVectorBackend(context.Background(), logger.Nop(), cfg, nil, nil)
	var got *VectorProviderBootstrapError
	if !errors.As(err, &got) {
		t.Fatalf("expected VectorProviderBootstrapError, got=%T (%v)", err, err)
	}
	if got.Code != VectorProviderBootstrapErrorConnectFailed {
		t.Fatalf("code: want=%q got=%q", VectorProviderBootstrapErrorConnectFailed, got.Code)
	}
}
