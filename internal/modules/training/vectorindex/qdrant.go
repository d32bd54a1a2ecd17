package vectorindex

import (
	"context"
	"fmt"

	"github.com/yungbote/mentorbridge-backend/internal/platform/qdrant"
)

// QdrantBackend stores one point per chunk in a Qdrant collection. Points
// are addressed by chunk id, so a re-ingest overwrites rather than duplicates.
type QdrantBackend struct {
	client *qdrant.Client
}

// IndexedPayloadKeys are the keyword payload indexes the collection needs.
var IndexedPayloadKeys = []string{KeyModuleID, KeyCompetencyArea, KeyEmbedModel}

func NewQdrantBackend(client *qdrant.Client) *QdrantBackend {
	return &QdrantBackend{client: client}
}

func (b *QdrantBackend) Name() string { return "qdrant" }

func (b *QdrantBackend) Replace(ctx context.Context, moduleID string, records []Record) error {
	if err := b.client.DeleteByFilter(ctx, qdrant.And(qdrant.Eq(KeyModuleID, moduleID))); err != nil {
		return b.wrap(err)
	}
	if len(records) == 0 {
		return nil
	}
	points := make([]qdrant.Point, len(records))
	for i, r := range records {
		points[i] = qdrant.Point{ID: r.Chunk.ID, Vector: r.Vector, Payload: chunkPayload(r.Chunk)}
	}
	return b.wrap(b.client.Upsert(ctx, points))
}

func (b *QdrantBackend) Search(ctx context.Context, vector []float32, k int, filter SearchFilter) ([]Hit, error) {
	f := qdrant.And(qdrant.Eq(KeyCompetencyArea, filter.Competency), qdrant.Eq(KeyEmbedModel, filter.EmbedModel))
	res, err := b.client.Search(ctx, vector, k, f)
	if err != nil {
		return nil, b.wrap(err)
	}
	hits := make([]Hit, 0, len(res))
	for _, p := range res {
		hits = append(hits, Hit{Chunk: chunkFromPayload(p.ID, p.Payload), Distance: p.Distance})
	}
	return hits, nil
}

func (b *QdrantBackend) Count(ctx context.Context) (int, error) {
	n, err := b.client.Count(ctx, qdrant.Filter{})
	return n, b.wrap(err)
}

func (b *QdrantBackend) Stats(ctx context.Context) (Stats, error) {
	var chunks []Chunk
	err := b.client.Scroll(ctx, qdrant.Filter{}, 512, func(recs []qdrant.Record) error {
		for _, r := range recs {
			chunks = append(chunks, chunkFromPayload(r.ID, r.Payload))
		}
		return nil
	})
	if err != nil {
		return Stats{}, b.wrap(err)
	}
	return statsFromChunks(chunks), nil
}

func (b *QdrantBackend) wrap(err error) error {
	if err == nil {
		return nil
	}
	if qdrant.IsUnavailable(err) {
		return unavailable(err)
	}
	return err
}

func chunkPayload(c Chunk) map[string]any {
	return map[string]any{
		KeyModuleID:       c.ModuleID,
		KeyModuleName:     c.ModuleName,
		KeyCompetencyArea: c.CompetencyArea,
		KeyPage:           c.Page,
		KeyChunkIndex:     c.ChunkIndex,
		KeyText:           c.Text,
		KeyEmbedModel:     c.EmbedModel,
	}
}

func chunkFromPayload(id string, p map[string]any) Chunk {
	return Chunk{
		ID:             id,
		ModuleID:       str(p[KeyModuleID]),
		ModuleName:     str(p[KeyModuleName]),
		CompetencyArea: str(p[KeyCompetencyArea]),
		Page:           num(p[KeyPage]),
		ChunkIndex:     num(p[KeyChunkIndex]),
		Text:           str(p[KeyText]),
		EmbedModel:     str(p[KeyEmbedModel]),
	}
}

func str(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	default:
		return fmt.Sprint(t)
	}
}

// num accepts the float64 that encoding/json produces for payload numbers.
func num(v any) int {
	switch t := v.(type) {
	case float64:
		return int(t)
	case int:
		return t
	case int64:
		return int(t)
	default:
		return 0
	}
}
