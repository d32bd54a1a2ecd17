package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/mentorbridge-backend/internal/modules/training/ingestion"
	"github.com/yungbote/mentorbridge-backend/internal/platform/logger"
	"github.com/yungbote/mentorbridge-backend/internal/platform/pdftext/pdftest"
)

// fakeOpenAI embeds text as a bag of three marker words so related texts
// land close together.
func fakeOpenAI(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/embeddings" {
			http.Error(w, "unexpected path", http.StatusNotFound)
			return
		}
		var req struct {
			Input []string `json:"input"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		type item struct {
			Embedding []float64 `json:"embedding"`
			Index     int       `json:"index"`
		}
		data := make([]item, 0, len(req.Input))
		for i, in := range req.Input {
			lower := strings.ToLower(in)
			vec := []float64{0.01, 0.01, 0.01}
			for j, word := range []string{"noise", "bored", "tablet"} {
				vec[j] += float64(strings.Count(lower, word))
			}
			data = append(data, item{Embedding: vec, Index: i})
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"data": data})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(t *testing.T, openaiURL string) Config {
	t.Helper()
	t.Setenv("POSTGRES_SQLITE_PATH", filepath.Join(t.TempDir(), "app.db"))
	t.Setenv("VECTOR_PROVIDER", "memory")
	t.Setenv("OPENAI_API_KEY", "test-key")
	t.Setenv("OPENAI_BASE_URL", openaiURL)
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	return cfg
}

func TestAppWiresIngestAndMatch(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t, fakeOpenAI(t).URL)

	a, err := New(ctx, logger.Nop(), cfg)
	require.NoError(t, err)
	defer a.Close()

	res, err := a.Services.Ingestion.IngestPDF(ctx, ingestion.Request{
		ModuleID:   "CM-101",
		ModuleName: "Managing noise",
		Competency: "classroom_management",
		Filename:   "cm101.pdf",
		Data:       pdftest.Build([]string{"Noise in class rises after lunch. Use a quiet signal to bring noise down."}),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Chunks)

	match := a.Services.Pipeline.Match(ctx, "the noise level in my class is too high", "", 0)
	require.True(t, match.Matched(), "match error: %s", match.Error)
	assert.Equal(t, "CM-101", match.ModuleID)
	assert.Equal(t, "classroom_management", match.CompetencyArea)
}

func TestAppRouterReadiness(t *testing.T) {
	cfg := testConfig(t, fakeOpenAI(t).URL)

	a, err := New(context.Background(), logger.Nop(), cfg)
	require.NoError(t, err)
	defer a.Close()

	w := httptest.NewRecorder()
	a.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig(t, "http://127.0.0.1:1")
	cfg.Matching.TopK = 0

	_, err := New(context.Background(), logger.Nop(), cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "top_k")
}
