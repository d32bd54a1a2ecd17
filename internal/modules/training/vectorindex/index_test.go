package vectorindex

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/mentorbridge-backend/internal/modules/training/chunker"
	"github.com/yungbote/mentorbridge-backend/internal/modules/training/vectorindex/vectortest"
	"github.com/yungbote/mentorbridge-backend/internal/platform/logger"
)

func newTestIndex(t *testing.T) (*Index, *MemoryBackend, *vectortest.KeywordEmbedder) {
	t.Helper()
	be := NewMemoryBackend()
	emb := vectortest.NewKeywordEmbedder("noise", "discipline", "fractions", "group", "tablet")
	return New(logger.Nop(), be, emb), be, emb
}

func pageChunks(texts ...string) []chunker.PageChunk {
	out := make([]chunker.PageChunk, len(texts))
	for i, t := range texts {
		out[i] = chunker.PageChunk{Text: t, Page: i + 1, Index: i}
	}
	return out
}

func TestUpsertModuleIsIdempotent(t *testing.T) {
	ix, be, _ := newTestIndex(t)
	ctx := context.Background()
	ref := ModuleRef{ID: "cm-101", Name: "Managing noise", CompetencyArea: "classroom_management"}

	n1, err := ix.UpsertModule(ctx, ref, pageChunks("noise rules", "discipline plan", "group signals"))
	require.NoError(t, err)
	ids1 := be.ChunkIDs("cm-101")

	n2, err := ix.UpsertModule(ctx, ref, pageChunks("noise rules", "discipline plan", "group signals"))
	require.NoError(t, err)
	ids2 := be.ChunkIDs("cm-101")

	assert.Equal(t, 3, n1)
	assert.Equal(t, n1, n2)
	assert.Equal(t, ids1, ids2)
	assert.Equal(t, []string{"cm-101_chunk_0", "cm-101_chunk_1", "cm-101_chunk_2"}, ids2)

	total, err := be.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
}

func TestUpsertModuleReplacesOldChunks(t *testing.T) {
	ix, be, _ := newTestIndex(t)
	ctx := context.Background()
	ref := ModuleRef{ID: "m", Name: "M", CompetencyArea: "pedagogy"}
	_, err := ix.UpsertModule(ctx, ref, pageChunks("a", "b", "c", "d"))
	require.NoError(t, err)
	_, err = ix.UpsertModule(ctx, ref, pageChunks("a"))
	require.NoError(t, err)
	assert.Equal(t, []string{"m_chunk_0"}, be.ChunkIDs("m"))
}

func TestEmbeddingFailureKeepsPreviousChunks(t *testing.T) {
	ix, be, emb := newTestIndex(t)
	ctx := context.Background()
	ref := ModuleRef{ID: "m", Name: "M", CompetencyArea: "pedagogy"}
	_, err := ix.UpsertModule(ctx, ref, pageChunks("a", "b"))
	require.NoError(t, err)

	emb.Err = vectortest.ErrEmbedDown
	_, err = ix.UpsertModule(ctx, ref, pageChunks("x"))
	require.Error(t, err)
	assert.Len(t, be.ChunkIDs("m"), 2)
}

func TestQueryEmptyStoreIsNoData(t *testing.T) {
	ix, _, _ := newTestIndex(t)
	res, err := ix.Query(context.Background(), "anything", 5, "")
	require.NoError(t, err)
	assert.True(t, res.NoData)
	assert.Empty(t, res.Hits)
}

type namedEmbedder struct {
	*vectortest.KeywordEmbedder
	model string
}

func (e namedEmbedder) EmbedModel() string { return e.model }

func TestQuerySkipsChunksFromAnotherEmbedModel(t *testing.T) {
	be := NewMemoryBackend()
	ctx := context.Background()
	vocab := []string{"noise", "discipline"}

	writer := New(logger.Nop(), be, namedEmbedder{vectortest.NewKeywordEmbedder(vocab...), "model-a"})
	_, err := writer.UpsertModule(ctx, ModuleRef{ID: "cm", Name: "CM", CompetencyArea: "classroom_management"},
		pageChunks("noise discipline"))
	require.NoError(t, err)

	res, err := writer.Query(ctx, "noise", 5, "")
	require.NoError(t, err)
	require.Len(t, res.Hits, 1)
	assert.Equal(t, "model-a", res.Hits[0].Chunk.EmbedModel)

	reader := New(logger.Nop(), be, namedEmbedder{vectortest.NewKeywordEmbedder(vocab...), "model-b"})
	res, err = reader.Query(ctx, "noise", 5, "")
	require.NoError(t, err)
	assert.True(t, res.NoData)
	assert.Empty(t, res.Hits)
}

func TestQueryDoesNotCountBeforeSearching(t *testing.T) {
	be := &countingBackend{MemoryBackend: NewMemoryBackend()}
	ix := New(logger.Nop(), be, vectortest.NewKeywordEmbedder("noise"))
	ctx := context.Background()
	_, err := ix.UpsertModule(ctx, ModuleRef{ID: "m", Name: "M"}, pageChunks("noise"))
	require.NoError(t, err)

	res, err := ix.Query(ctx, "noise", 5, "")
	require.NoError(t, err)
	require.Len(t, res.Hits, 1)
	assert.Zero(t, be.counts)
}

type countingBackend struct {
	*MemoryBackend
	counts int
}

func (b *countingBackend) Count(ctx context.Context) (int, error) {
	b.counts++
	return b.MemoryBackend.Count(ctx)
}

func TestQueryOrdersByDistanceAndFilters(t *testing.T) {
	ix, _, _ := newTestIndex(t)
	ctx := context.Background()
	_, err := ix.UpsertModule(ctx, ModuleRef{ID: "cm", Name: "CM", CompetencyArea: "classroom_management"},
		pageChunks("noise noise discipline", "group work"))
	require.NoError(t, err)
	_, err = ix.UpsertModule(ctx, ModuleRef{ID: "ck", Name: "CK", CompetencyArea: "content_knowledge"},
		pageChunks("fractions fractions", "tablet fractions"))
	require.NoError(t, err)

	res, err := ix.Query(ctx, "the noise and discipline", 3, "")
	require.NoError(t, err)
	require.False(t, res.NoData)
	require.Len(t, res.Hits, 3)
	assert.Equal(t, "cm_chunk_0", res.Hits[0].Chunk.ID)
	for i := 1; i < len(res.Hits); i++ {
		assert.LessOrEqual(t, res.Hits[i-1].Distance, res.Hits[i].Distance)
	}

	res, err = ix.Query(ctx, "noise", 5, "content_knowledge")
	require.NoError(t, err)
	require.Len(t, res.Hits, 2)
	for _, h := range res.Hits {
		assert.Equal(t, "content_knowledge", h.Chunk.CompetencyArea)
	}

	res, err = ix.Query(ctx, "noise", 5, "technology_usage")
	require.NoError(t, err)
	assert.True(t, res.NoData)
}

func TestUnavailableBackendSurfacesSentinel(t *testing.T) {
	ix, be, _ := newTestIndex(t)
	be.SetDown(true)
	_, err := ix.Query(context.Background(), "noise", 5, "")
	assert.True(t, errors.Is(err, ErrStoreUnavailable), "got %v", err)
	_, err = ix.UpsertModule(context.Background(), ModuleRef{ID: "m"}, pageChunks("a"))
	assert.True(t, errors.Is(err, ErrStoreUnavailable), "got %v", err)
}

func TestMemoryBackendSetDownWhileSearching(t *testing.T) {
	be := NewMemoryBackend()
	ctx := context.Background()
	require.NoError(t, be.Replace(ctx, "m", []Record{{Chunk: Chunk{ID: "m_chunk_0", ModuleID: "m"}, Vector: []float32{1, 0}}}))

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			be.SetDown(i%2 == 0)
		}
		be.SetDown(false)
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			if _, err := be.Search(ctx, []float32{1, 0}, 1, SearchFilter{}); err != nil {
				assert.ErrorIs(t, err, ErrStoreUnavailable)
			}
		}
	}()
	wg.Wait()

	hits, err := be.Search(ctx, []float32{1, 0}, 1, SearchFilter{})
	require.NoError(t, err)
	assert.Len(t, hits, 1)
}

func TestStats(t *testing.T) {
	ix, _, _ := newTestIndex(t)
	ctx := context.Background()
	_, err := ix.UpsertModule(ctx, ModuleRef{ID: "a", Name: "A", CompetencyArea: "pedagogy"}, pageChunks("x", "y"))
	require.NoError(t, err)
	_, err = ix.UpsertModule(ctx, ModuleRef{ID: "b", Name: "B", CompetencyArea: "technology_usage"}, pageChunks("z"))
	require.NoError(t, err)

	st, err := ix.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, st.TotalChunks)
	assert.Equal(t, 2, st.TotalModules)
	assert.Equal(t, ModuleStats{Name: "A", CompetencyArea: "pedagogy", Chunks: 2}, st.Modules["a"])

	require.NoError(t, ix.DeleteModule(ctx, "a"))
	st, err = ix.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, st.TotalModules)
}

func TestUpsertRequiresModuleID(t *testing.T) {
	ix, _, _ := newTestIndex(t)
	_, err := ix.UpsertModule(context.Background(), ModuleRef{ID: "  "}, nil)
	assert.Error(t, err)
}
