package app

import (
	"errors"
	"fmt"
	"strings"

	"github.com/yungbote/mentorbridge-backend/internal/platform/qdrant"
)

type VectorProvider string

const (
	VectorProviderQdrant   VectorProvider = "qdrant"
	VectorProviderPgvector VectorProvider = "pgvector"
	VectorProviderMemory   VectorProvider = "memory"
)

type VectorProviderConfigErrorCode string

const (
	VectorProviderConfigErrorInvalidProvider      VectorProviderConfigErrorCode = "invalid_provider"
	VectorProviderConfigErrorMissingQdrantURL     VectorProviderConfigErrorCode = "missing_qdrant_url"
	VectorProviderConfigErrorInvalidQdrantURL     VectorProviderConfigErrorCode = "invalid_qdrant_url"
	VectorProviderConfigErrorMissingQdrantColl    VectorProviderConfigErrorCode = "missing_qdrant_collection"
	VectorProviderConfigErrorMissingQdrantVector  VectorProviderConfigErrorCode = "missing_qdrant_vector_dim"
	VectorProviderConfigErrorInvalidQdrantVector  VectorProviderConfigErrorCode = "invalid_qdrant_vector_dim"
	VectorProviderConfigErrorUnknownQdrantFailure VectorProviderConfigErrorCode = "qdrant_config_error"
	VectorProviderConfigErrorPgvectorNeedsPG      VectorProviderConfigErrorCode = "pgvector_requires_postgres"
	VectorProviderConfigErrorInvalidPgvectorDim   VectorProviderConfigErrorCode = "invalid_pgvector_vector_dim"
)

type VectorProviderConfigError struct {
	Code     VectorProviderConfigErrorCode
	Provider VectorProvider
	Cause    error
}

func (e *VectorProviderConfigError) Error() string {
	if e == nil {
		return "invalid vector provider config"
	}
	return fmt.Sprintf("invalid vector provider config (code=%s provider=%q): %v", e.Code, e.Provider, e.Cause)
}

func (e *VectorProviderConfigError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

type VectorProviderConfig struct {
	Provider VectorProvider
	Qdrant   qdrant.Config
	Pgvector PgvectorConfig
}

// resolveVectorProviderConfig picks the backend named by cfg.Provider and
// validates its section. pgvector shares the relational database, so it is
// only accepted when that database is Postgres.
func resolveVectorProviderConfig(cfg VectorConfig, postgres bool) (VectorProviderConfig, error) {
	provider := VectorProvider(strings.ToLower(strings.TrimSpace(cfg.Provider)))
	switch provider {
	case VectorProviderQdrant:
		qcfg := cfg.Qdrant.Client()
		if qcfg.Collection == "" {
			qcfg.Collection = qdrant.DefaultCollection
		}
		if err := qdrant.ValidateConfig(qcfg, true); err != nil {
			return VectorProviderConfig{}, mapVectorProviderConfigError(err)
		}
		return VectorProviderConfig{Provider: provider, Qdrant: qcfg}, nil
	case VectorProviderPgvector:
		if !postgres {
			return VectorProviderConfig{}, &VectorProviderConfigError{
				Code:     VectorProviderConfigErrorPgvectorNeedsPG,
				Provider: provider,
				Cause:    errors.New("pgvector backend needs a Postgres database"),
			}
		}
		if cfg.Pgvector.VectorDim <= 0 {
			return VectorProviderConfig{}, &VectorProviderConfigError{
				Code:     VectorProviderConfigErrorInvalidPgvectorDim,
				Provider: provider,
				Cause:    fmt.Errorf("vector dim %d", cfg.Pgvector.VectorDim),
			}
		}
		return VectorProviderConfig{Provider: provider, Pgvector: cfg.Pgvector}, nil
	case VectorProviderMemory:
		return VectorProviderConfig{Provider: provider}, nil
	default:
		return VectorProviderConfig{}, &VectorProviderConfigError{
			Code:     VectorProviderConfigErrorInvalidProvider,
			Provider: provider,
			Cause:    fmt.Errorf("unsupported vector provider %q", cfg.Provider),
		}
	}
}

func mapVectorProviderConfigError(err error) error {
	code := VectorProviderConfigErrorUnknownQdrantFailure
	var qerr *qdrant.ConfigError
	if errors.As(err, &qerr) {
		switch qerr.Code {
		case qdrant.ConfigErrorMissingURL:
			code = VectorProviderConfigErrorMissingQdrantURL
		case qdrant.ConfigErrorInvalidURL:
			code = VectorProviderConfigErrorInvalidQdrantURL
		case qdrant.ConfigErrorMissingCollection:
			code = VectorProviderConfigErrorMissingQdrantColl
		case qdrant.ConfigErrorMissingVectorDim:
			code = VectorProviderConfigErrorMissingQdrantVector
		case qdrant.ConfigErrorInvalidVectorDim:
			code = VectorProviderConfigErrorInvalidQdrantVector
		}
	}
	return &VectorProviderConfigError{Code: code, Provider: VectorProviderQdrant, Cause: err}
}
