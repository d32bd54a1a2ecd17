package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	response "github.com/yungbote/mentorbridge-backend/internal/http/response"
	"github.com/yungbote/mentorbridge-backend/internal/modules/training/ingestion"
	"github.com/yungbote/mentorbridge-backend/internal/modules/training/vectorindex"
	"github.com/yungbote/mentorbridge-backend/internal/platform/logger"
)

type RAGService interface {
	IngestPDF(ctx context.Context, req ingestion.Request) (ingestion.Result, error)
	IngestManifest(ctx context.Context, m *ingestion.Manifest) (ingestion.ManifestReport, error)
	RAGStatus(ctx context.Context) ([]ingestion.ModuleStatus, error)
	Stats(ctx context.Context) (vectorindex.Stats, error)
	DeleteModule(ctx context.Context, moduleID string) error
}

type RAGHandlerConfig struct {
	MaxUploadBytes int64
	// Manifest is used by process-all when the request names none.
	Manifest string
}

type RAGHandler struct {
	log *logger.Logger
	svc RAGService
	cfg RAGHandlerConfig
}

func NewRAGHandler(log *logger.Logger, svc RAGService, cfg RAGHandlerConfig) *RAGHandler {
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 50 << 20
	}
	return &RAGHandler{log: log.With("handler", "RAGHandler"), svc: svc, cfg: cfg}
}

// POST /api/admin/rag/upload-pdf
//
// multipart fields: file, module_id, module_name, competency
func (h *RAGHandler) UploadPDF(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.cfg.MaxUploadBytes)
	fh, err := c.FormFile("file")
	if err != nil {
		badRequest(c, fmt.Errorf("file is required: %w", err))
		return
	}
	if !strings.EqualFold(filepath.Ext(fh.Filename), ".pdf") {
		badRequest(c, fmt.Errorf("only PDF files are accepted, got %q", fh.Filename))
		return
	}
	f, err := fh.Open()
	if err != nil {
		badRequest(c, err)
		return
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		badRequest(c, fmt.Errorf("read upload: %w", err))
		return
	}

	res, err := h.svc.IngestPDF(c.Request.Context(), ingestion.Request{
		ModuleID:   c.PostForm("module_id"),
		ModuleName: c.PostForm("module_name"),
		Competency: c.PostForm("competency"),
		Filename:   fh.Filename,
		Data:       data,
	})
	if err != nil {
		h.log.Warn("pdf upload failed", "file", fh.Filename, "module_id", c.PostForm("module_id"), "error", err)
		writeError(c, err)
		return
	}
	response.RespondOK(c, gin.H{
		"success":        true,
		"module_id":      res.ModuleID,
		"chunks_created": res.Chunks,
		"filename":       res.Filename,
		"processed_at":   res.At,
	})
}

type processAllRequest struct {
	// Manifest optionally names another manifest file in the configured
	// manifest's directory.
	Manifest string `json:"manifest"`
}

// POST /api/admin/rag/process-all
func (h *RAGHandler) ProcessAll(c *gin.Context) {
	var req processAllRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
	}
	if h.cfg.Manifest == "" {
		badRequest(c, errors.New("no manifest configured"))
		return
	}
	path, err := h.manifestPath(req.Manifest)
	if err != nil {
		h.log.Warn("process-all rejected manifest", "manifest", req.Manifest, "error", err)
		badRequest(c, errInvalidManifest)
		return
	}
	m, err := ingestion.ReadManifest(path)
	if err != nil {
		h.log.Warn("process-all manifest unreadable", "path", path, "error", err)
		badRequest(c, errInvalidManifest)
		return
	}
	report, err := h.svc.IngestManifest(c.Request.Context(), m)
	if err != nil && report.Processed == 0 {
		writeError(c, err)
		return
	}
	// Partial success still answers 200; failures are listed per entry.
	response.RespondOK(c, report)
}

var errInvalidManifest = errors.New("invalid manifest")

// manifestPath resolves a caller-supplied manifest name against the
// configured manifest's directory. Absolute paths and anything escaping that
// directory are rejected.
func (h *RAGHandler) manifestPath(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return h.cfg.Manifest, nil
	}
	if !filepath.IsLocal(name) {
		return "", fmt.Errorf("manifest %q is outside the manifest directory", name)
	}
	return filepath.Join(filepath.Dir(h.cfg.Manifest), name), nil
}

// GET /api/admin/rag/stats
func (h *RAGHandler) Stats(c *gin.Context) {
	st, err := h.svc.Stats(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	response.RespondOK(c, st)
}

// GET /api/admin/modules/rag-status
func (h *RAGHandler) ModuleStatus(c *gin.Context) {
	mods, err := h.svc.RAGStatus(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"modules": mods})
}

// DELETE /api/admin/modules/:id
func (h *RAGHandler) DeleteModule(c *gin.Context) {
	id := c.Param("id")
	if err := h.svc.DeleteModule(c.Request.Context(), id); err != nil {
		h.log.Warn("module delete failed", "module_id", id, "error", err)
		writeError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"success": true, "module_id": id})
}
