// Package vectorindex stores training-module chunks with their embeddings
// and answers nearest-neighbour queries over them. Storage is delegated to a
// Backend (Qdrant, pgvector or in-memory); embedding is delegated to a single
// Embedder used for both writes and queries.
package vectorindex

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/yungbote/mentorbridge-backend/internal/modules/training/chunker"
	nberrors "github.com/yungbote/mentorbridge-backend/internal/pkg/errors"
	"github.com/yungbote/mentorbridge-backend/internal/platform/logger"
)

// ErrStoreUnavailable wraps failures to reach the backing store.
var ErrStoreUnavailable = errors.New("vector store unavailable")

const (
	KeyModuleID       = "module_id"
	KeyModuleName     = "module_name"
	KeyCompetencyArea = "competency_area"
	KeyPage           = "page"
	KeyChunkIndex     = "chunk_index"
	KeyText           = "text"
	KeyEmbedModel     = "embed_model"
)

type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// ModelNamer is implemented by embedders that can name their model. Chunks
// are tagged with that name and queries only match chunks embedded by the
// same model.
type ModelNamer interface {
	EmbedModel() string
}

type ModuleRef struct {
	ID             string
	Name           string
	CompetencyArea string
}

type Chunk struct {
	ID             string
	ModuleID       string
	ModuleName     string
	CompetencyArea string
	Page           int
	ChunkIndex     int
	Text           string
	EmbedModel     string
}

// ChunkID is the stable id of the idx-th chunk of a module.
func ChunkID(moduleID string, idx int) string {
	return fmt.Sprintf("%s_chunk_%d", moduleID, idx)
}

// Hit is a query result. Distance follows the cosine-distance convention:
// 0 for identical direction, up to 2 for opposite.
type Hit struct {
	Chunk    Chunk
	Distance float64
}

// QueryResult carries the hits of a query. NoData is set when nothing could
// be returned, either because the store is empty or because no chunk passed
// the filter.
type QueryResult struct {
	Hits   []Hit
	NoData bool
}

type ModuleStats struct {
	Name           string `json:"name"`
	CompetencyArea string `json:"competency"`
	Chunks         int    `json:"chunks"`
}

type Stats struct {
	TotalChunks  int                    `json:"total_chunks"`
	TotalModules int                    `json:"total_modules"`
	Modules      map[string]ModuleStats `json:"modules"`
}

type Index struct {
	log      *logger.Logger
	backend  Backend
	embedder Embedder
	model    string
}

func New(log *logger.Logger, backend Backend, embedder Embedder) *Index {
	var model string
	if n, ok := embedder.(ModelNamer); ok {
		model = strings.TrimSpace(n.EmbedModel())
	}
	return &Index{
		log:      log.With("service", "VectorIndex", "backend", backend.Name(), "embed_model", model),
		backend:  backend,
		embedder: embedder,
		model:    model,
	}
}

// UpsertModule replaces every chunk of ref.ID with chunks. Embeddings are
// computed first so an embedding failure leaves the previous chunk set in
// place. Returns the number of chunks stored.
func (ix *Index) UpsertModule(ctx context.Context, ref ModuleRef, chunks []chunker.PageChunk) (int, error) {
	ref.ID = strings.TrimSpace(ref.ID)
	if ref.ID == "" {
		return 0, fmt.Errorf("module id required: %w", nberrors.ErrInvalidArgument)
	}

	records := make([]Record, len(chunks))
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
		records[i].Chunk = Chunk{
			ID:             ChunkID(ref.ID, i),
			ModuleID:       ref.ID,
			ModuleName:     ref.Name,
			CompetencyArea: ref.CompetencyArea,
			Page:           c.Page,
			ChunkIndex:     i,
			Text:           c.Text,
			EmbedModel:     ix.model,
		}
	}
	if len(texts) > 0 {
		vectors, err := ix.embedder.Embed(ctx, texts)
		if err != nil {
			return 0, fmt.Errorf("embed module %s: %w", ref.ID, err)
		}
		if len(vectors) != len(texts) {
			return 0, fmt.Errorf("embed module %s: got %d vectors for %d chunks", ref.ID, len(vectors), len(texts))
		}
		for i := range records {
			records[i].Vector = vectors[i]
		}
	}

	if err := ix.backend.Replace(ctx, ref.ID, records); err != nil {
		return 0, fmt.Errorf("replace module %s: %w", ref.ID, err)
	}
	ix.log.Info("module chunks replaced", "module_id", ref.ID, "chunks", len(records))
	return len(records), nil
}

// Query embeds text and returns the k nearest chunks, optionally restricted
// to one competency area. Only chunks embedded by the index's model are
// considered.
func (ix *Index) Query(ctx context.Context, text string, k int, competency string) (QueryResult, error) {
	if k <= 0 {
		k = 5
	}
	vectors, err := ix.embedder.Embed(ctx, []string{text})
	if err != nil {
		return QueryResult{}, fmt.Errorf("embed query: %w", err)
	}
	if len(vectors) != 1 {
		return QueryResult{}, fmt.Errorf("embed query: got %d vectors", len(vectors))
	}
	filter := SearchFilter{Competency: strings.TrimSpace(competency), EmbedModel: ix.model}
	hits, err := ix.backend.Search(ctx, vectors[0], k, filter)
	if err != nil {
		return QueryResult{}, fmt.Errorf("search: %w", err)
	}
	if len(hits) == 0 {
		if filter.Competency == "" {
			ix.warnIfOtherModel(ctx)
		}
		return QueryResult{NoData: true}, nil
	}
	if len(hits) > k {
		hits = hits[:k]
	}
	return QueryResult{Hits: hits}, nil
}

// warnIfOtherModel runs after an unfiltered search came back empty. Chunks
// in the store at that point were embedded by another model and the corpus
// needs re-ingesting.
func (ix *Index) warnIfOtherModel(ctx context.Context) {
	if ix.model == "" {
		return
	}
	total, err := ix.backend.Count(ctx)
	if err != nil || total == 0 {
		return
	}
	ix.log.Warn("stored chunks were embedded by another model; re-ingest required", "chunks", total)
}

func (ix *Index) Stats(ctx context.Context) (Stats, error) {
	st, err := ix.backend.Stats(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("stats: %w", err)
	}
	if st.Modules == nil {
		st.Modules = map[string]ModuleStats{}
	}
	return st, nil
}

func (ix *Index) DeleteModule(ctx context.Context, moduleID string) error {
	if err := ix.backend.Replace(ctx, strings.TrimSpace(moduleID), nil); err != nil {
		return fmt.Errorf("delete module %s: %w", moduleID, err)
	}
	return nil
}

// Healthy reports whether the backend answers a count.
func (ix *Index) Healthy(ctx context.Context) error {
	_, err := ix.backend.Count(ctx)
	return err
}
