package vectorindex

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/mentorbridge-backend/internal/platform/logger"
	"github.com/yungbote/mentorbridge-backend/internal/platform/qdrant"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func qdrantOK(result any) *http.Response {
	raw, _ := json.Marshal(map[string]any{"result": result, "status": "ok"})
	return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(bytes.NewReader(raw)), Header: http.Header{}}
}

func newQdrantBackend(t *testing.T, rt roundTripFunc) *QdrantBackend {
	t.Helper()
	c, err := qdrant.New(logger.Nop(), qdrant.Config{URL: "http://q.test", Collection: "training_modules", VectorDim: 2}, &http.Client{Transport: rt})
	require.NoError(t, err)
	return NewQdrantBackend(c)
}

func TestQdrantReplaceDeletesByModuleBeforeUpsert(t *testing.T) {
	var calls []string
	var deleteBody map[string]any
	b := newQdrantBackend(t, func(r *http.Request) (*http.Response, error) {
		calls = append(calls, r.Method+" "+r.URL.Path)
		if r.URL.Path == "/collections/training_modules/points/delete" {
			_ = json.NewDecoder(r.Body).Decode(&deleteBody)
		}
		return qdrantOK(map[string]any{"status": "completed"}), nil
	})
	err := b.Replace(context.Background(), "cm-1", []Record{
		{Chunk: Chunk{ID: "cm-1_chunk_0", ModuleID: "cm-1", Page: 1}, Vector: []float32{1, 0}},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"POST /collections/training_modules/points/delete",
		"PUT /collections/training_modules/points",
	}, calls)
	must := deleteBody["filter"].(map[string]any)["must"].([]any)
	cond := must[0].(map[string]any)
	assert.Equal(t, KeyModuleID, cond["key"])
}

func TestQdrantSearchMapsPayload(t *testing.T) {
	b := newQdrantBackend(t, func(r *http.Request) (*http.Response, error) {
		return qdrantOK([]map[string]any{{
			"id":    qdrant.PointID("cm-1_chunk_2"),
			"score": 0.75,
			"payload": map[string]any{
				qdrant.PayloadIDKey: "cm-1_chunk_2",
				KeyModuleID:         "cm-1",
				KeyModuleName:       "Noise",
				KeyCompetencyArea:   "classroom_management",
				KeyPage:             3,
				KeyChunkIndex:       2,
				KeyText:             "Use a clap signal.",
			},
		}}), nil
	})
	hits, err := b.Search(context.Background(), []float32{1, 0}, 5, SearchFilter{})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, Chunk{ID: "cm-1_chunk_2", ModuleID: "cm-1", ModuleName: "Noise", CompetencyArea: "classroom_management", Page: 3, ChunkIndex: 2, Text: "Use a clap signal."}, hits[0].Chunk)
	assert.InDelta(t, 0.25, hits[0].Distance, 1e-9)
}

func TestQdrantSearchFiltersOnCompetencyAndModel(t *testing.T) {
	var body map[string]any
	b := newQdrantBackend(t, func(r *http.Request) (*http.Response, error) {
		_ = json.NewDecoder(r.Body).Decode(&body)
		return qdrantOK([]map[string]any{}), nil
	})
	_, err := b.Search(context.Background(), []float32{1, 0}, 5, SearchFilter{Competency: "pedagogy", EmbedModel: "text-embedding-3-small"})
	require.NoError(t, err)

	must := body["filter"].(map[string]any)["must"].([]any)
	keys := map[string]any{}
	for _, c := range must {
		cond := c.(map[string]any)
		keys[cond["key"].(string)] = cond["match"].(map[string]any)["value"]
	}
	assert.Equal(t, map[string]any{
		KeyCompetencyArea: "pedagogy",
		KeyEmbedModel:     "text-embedding-3-small",
	}, keys)
}

func TestQdrantPayloadCarriesEmbedModel(t *testing.T) {
	c := Chunk{ID: "m_chunk_0", ModuleID: "m", Page: 1, Text: "x", EmbedModel: "model-a"}
	assert.Equal(t, c, chunkFromPayload(c.ID, chunkPayload(c)))
}

func TestQdrantTransportErrorIsStoreUnavailable(t *testing.T) {
	b := newQdrantBackend(t, func(r *http.Request) (*http.Response, error) {
		return nil, errors.New("dial tcp: connection refused")
	})
	_, err := b.Count(context.Background())
	assert.ErrorIs(t, err, ErrStoreUnavailable)
}

func TestQdrantStatsScrollsAll(t *testing.T) {
	b := newQdrantBackend(t, func(r *http.Request) (*http.Response, error) {
		return qdrantOK(map[string]any{
			"points": []map[string]any{
				{"id": "1", "payload": map[string]any{KeyModuleID: "a", KeyModuleName: "A", KeyCompetencyArea: "pedagogy"}},
				{"id": "2", "payload": map[string]any{KeyModuleID: "a", KeyModuleName: "A", KeyCompetencyArea: "pedagogy"}},
				{"id": "3", "payload": map[string]any{KeyModuleID: "b", KeyModuleName: "B", KeyCompetencyArea: "technology_usage"}},
			},
			"next_page_offset": nil,
		}), nil
	})
	st, err := b.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, st.TotalChunks)
	assert.Equal(t, 2, st.TotalModules)
	assert.Equal(t, 2, st.Modules["a"].Chunks)
}
