package app

import (
	"errors"
	"testing"

	"github.com/yungbote/mentorbridge-backend/internal/platform/qdrant"
)

func TestResolveVectorProviderConfigQdrant(t *testing.T) {
	cfg, err := resolveVectorProviderConfig(VectorConfig{
		Provider: "Qdrant",
		Qdrant:   QdrantConfig{URL: "http://qdrant:6333", VectorDim: 1536},
	}, false)
	if err != nil {
		t.Fatalf("resolveVectorProviderConfig: %v", err)
	}
	if cfg.Provider != VectorProviderQdrant {
		t.Fatalf("provider: want=%q got=%q", VectorProviderQdrant, cfg.Provider)
	}
	if cfg.Qdrant.Collection != qdrant.DefaultCollection {
		t.Fatalf("collection: want=%q got=%q", qdrant.DefaultCollection, cfg.Qdrant.Collection)
	}
}

func TestResolveVectorProviderConfigMissingQdrantURL(t *testing.T) {
	_, err := resolveVectorProviderConfig(VectorConfig{Provider: "qdrant", Qdrant: QdrantConfig{VectorDim: 8}}, false)
	var got *VectorProviderConfigError
	if !errors.As(err, &got) {
		t.Fatalf("expected VectorProviderConfigError, got=%T", err)
	}
	if got.Code != VectorProviderConfigErrorMissingQdrantURL {
		t.Fatalf("code: want=%q got=%q", VectorProviderConfigErrorMissingQdrantURL, got.Code)
	}
}

func TestResolveVectorProviderConfigPgvectorNeedsPostgres(t *testing.T) {
	in := VectorConfig{Provider: "pgvector", Pgvector: PgvectorConfig{Table: "module_chunks", VectorDim: 8}}
	_, err := resolveVectorProviderConfig(in, false)
	var got *VectorProviderConfigError
	if !errors.As(err, &got) || got.Code != VectorProviderConfigErrorPgvectorNeedsPG {
		t.Fatalf("expected %q, got=%v", VectorProviderConfigErrorPgvectorNeedsPG, err)
	}
	cfg, err := resolveVectorProviderConfig(in, true)
	if err != nil {
		t.Fatalf("resolveVectorProviderConfig: %v", err)
	}
	if cfg.Pgvector.VectorDim != 8 {
		t.Fatalf("dim: want=8 got=%d", cfg.Pgvector.VectorDim)
	}
}

func TestMapVectorProviderConfigError(t *testing.T) {
	err := mapVectorProviderConfigError(&qdrant.ConfigError{Code: qdrant.ConfigErrorMissingCollection})
	var got *VectorProviderConfigError
	if !errors.As(err, &got) {
		t.Fatalf("expected VectorProviderConfigError, got=%T", err)
	}
	if got.Code != VectorProviderConfigErrorMissingQdrantColl {
		t.Fatalf("code: want=%q got=%q", VectorProviderConfigErrorMissingQdrantColl, got.Code)
	}
}

func TestResolveVectorProviderConfigInvalidProvider(t *testing.T) {
	_, err := resolveVectorProviderConfig(VectorConfig{Provider: "pinecone"}, true)
	var got *VectorProviderConfigError
	if !errors.As(err, &got) {
		t.Fatalf("expected VectorProviderConfigError, got=%T", err)
	}
	if got.Code != VectorProviderConfigErrorInvalidProvider {
		t.Fatalf("code: want=%q got=%q", VectorProviderConfigErrorInvalidProvider, got.Code)
	}
}
