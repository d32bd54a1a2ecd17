package app

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/yungbote/mentorbridge-backend/internal/modules/training/vectorindex"
	"github.com/yungbote/mentorbridge-backend/internal/platform/logger"
	"github.com/yungbote/mentorbridge-backend/internal/platform/qdrant"
)

var newQdrantClient = qdrant.New

type VectorProviderBootstrapErrorCode string

const (
	VectorProviderBootstrapErrorConnectFailed      VectorProviderBootstrapErrorCode = "connect_failed"
	VectorProviderBootstrapErrorProviderInitFailed VectorProviderBootstrapErrorCode = "provider_init_failed"
	VectorProviderBootstrapErrorSchemaFailed       VectorProviderBootstrapErrorCode = "schema_failed"
)

type VectorProviderBootstrapError struct {
	Code     VectorProviderBootstrapErrorCode
	Provider VectorProvider
	Cause    error
}

func (e *VectorProviderBootstrapError) Error() string {
	if e == nil {
		return "vector provider bootstrap failed"
	}
	return fmt.Sprintf("vector provider bootstrap failed (code=%s provider=%q): %v", e.Code, e.Provider, e.Cause)
}

func (e *VectorProviderBootstrapError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// newVectorBackend builds and prepares the configured backend: the Qdrant
// collection or the pgvector table is created when missing. The result is
// wrapped so every call is reported to observer.
func newVectorBackend(ctx context.Context, log *logger.Logger, cfg VectorProviderConfig, db *gorm.DB, observer vectorOpObserver) (vectorindex.Backend, error) {
	log.Info("Selecting vector store provider", "provider", cfg.Provider)

	var backend vectorindex.Backend
	switch cfg.Provider {
	case VectorProviderQdrant:
		log.Info("Qdrant settings", "qdrant_url", cfg.Qdrant.URL, "qdrant_collection", cfg.Qdrant.Collection, "qdrant_vector_dim", cfg.Qdrant.VectorDim)
		client, err := newQdrantClient(log, cfg.Qdrant, nil)
		if err != nil {
			return nil, classifyVectorProviderBootstrapError(log, cfg.Provider, VectorProviderBootstrapErrorProviderInitFailed, err)
		}
		if err := client.EnsureCollection(ctx, vectorindex.IndexedPayloadKeys...); err != nil {
			return nil, classifyVectorProviderBootstrapError(log, cfg.Provider, VectorProviderBootstrapErrorSchemaFailed, err)
		}
		backend = vectorindex.NewQdrantBackend(client)
	case VectorProviderPgvector:
		pg, err := vectorindex.NewPgvectorBackend(db, cfg.Pgvector.Table, cfg.Pgvector.VectorDim)
		if err != nil {
			return nil, classifyVectorProviderBootstrapError(log, cfg.Provider, VectorProviderBootstrapErrorProviderInitFailed, err)
		}
		if err := pg.EnsureSchema(ctx); err != nil {
			return nil, classifyVectorProviderBootstrapError(log, cfg.Provider, VectorProviderBootstrapErrorSchemaFailed, err)
		}
		backend = pg
	case VectorProviderMemory:
		log.Warn("Using in-memory vector store; chunks are lost on restart")
		backend = vectorindex.NewMemoryBackend()
	default:
		return nil, &VectorProviderConfigError{
			Code:     VectorProviderConfigErrorInvalidProvider,
			Provider: cfg.Provider,
			Cause:    fmt.Errorf("unsupported vector provider %q", cfg.Provider),
		}
	}
	return instrumentBackend(backend, observer), nil
}

func classifyVectorProviderBootstrapError(log *logger.Logger, provider VectorProvider, fallback VectorProviderBootstrapErrorCode, err error) error {
	code := fallback
	if qdrant.IsUnavailable(err) || errors.Is(err, vectorindex.ErrStoreUnavailable) {
		code = VectorProviderBootstrapErrorConnectFailed
	}
	var cfgErr *qdrant.ConfigError
	if errors.As(err, &cfgErr) {
		return mapVectorProviderConfigError(err)
	}
	out := &VectorProviderBootstrapError{Code: code, Provider: provider, Cause: err}
	log.Error("Vector store provider bootstrap failed", "provider", provider, "error_code", code, "error", err)
	return out
}
