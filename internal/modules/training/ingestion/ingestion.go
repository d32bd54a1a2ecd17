// Package ingestion turns uploaded training PDFs into indexed chunks and
// keeps the training_modules bookkeeping columns in step with the index.
package ingestion

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/yungbote/mentorbridge-backend/internal/data/repos"
	types "github.com/yungbote/mentorbridge-backend/internal/domain"
	"github.com/yungbote/mentorbridge-backend/internal/modules/training/chunker"
	"github.com/yungbote/mentorbridge-backend/internal/modules/training/vectorindex"
	"github.com/yungbote/mentorbridge-backend/internal/pkg/dbctx"
	nberrors "github.com/yungbote/mentorbridge-backend/internal/pkg/errors"
	"github.com/yungbote/mentorbridge-backend/internal/platform/logger"
	"github.com/yungbote/mentorbridge-backend/internal/platform/redislock"
)

type Index interface {
	UpsertModule(ctx context.Context, ref vectorindex.ModuleRef, chunks []chunker.PageChunk) (int, error)
	DeleteModule(ctx context.Context, moduleID string) error
	Stats(ctx context.Context) (vectorindex.Stats, error)
}

type Request struct {
	ModuleID   string
	ModuleName string
	Competency string
	Filename   string
	// Exactly one of Data and Path is used; Data wins.
	Data []byte
	Path string
}

type Result struct {
	ModuleID string    `json:"module_id"`
	Chunks   int       `json:"chunks_created"`
	Filename string    `json:"filename"`
	At       time.Time `json:"processed_at"`
}

type Options struct {
	MaxWords    int
	Concurrency int
	Now         func() time.Time
}

type Service struct {
	log     *logger.Logger
	modules repos.TrainingModuleRepo
	chunker *chunker.Chunker
	index   Index
	locker  redislock.Locker
	opts    Options
}

func New(log *logger.Logger, modules repos.TrainingModuleRepo, ch *chunker.Chunker, index Index, locker redislock.Locker, opts Options) *Service {
	if opts.MaxWords <= 0 {
		opts.MaxWords = chunker.DefaultMaxWords
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 2
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if locker == nil {
		locker = redislock.NewLocal()
	}
	return &Service{
		log:     log.With("service", "IngestionService"),
		modules: modules,
		chunker: ch,
		index:   index,
		locker:  locker,
		opts:    opts,
	}
}

// IngestPDF chunks the PDF, upserts the module row with the request's title
// and competency, then replaces the module's indexed chunks under an exclusive per-module lock. An
// unreadable PDF fails with *chunker.ExtractionError before anything is
// written.
func (s *Service) IngestPDF(ctx context.Context, req Request) (Result, error) {
	req.ModuleID = strings.TrimSpace(req.ModuleID)
	req.ModuleName = strings.TrimSpace(req.ModuleName)
	if req.ModuleID == "" || req.ModuleName == "" {
		return Result{}, fmt.Errorf("module id and name required: %w", nberrors.ErrInvalidArgument)
	}
	area, ok := types.ParseCompetency(req.Competency)
	if !ok {
		return Result{}, fmt.Errorf("unknown competency %q: %w", req.Competency, nberrors.ErrInvalidArgument)
	}
	if len(req.Data) == 0 && req.Path == "" {
		return Result{}, fmt.Errorf("no PDF content: %w", nberrors.ErrInvalidArgument)
	}
	filename := req.Filename
	if filename == "" && req.Path != "" {
		filename = filepath.Base(req.Path)
	}

	chunks, err := s.chunker.Chunk(ctx, chunker.Source{Path: req.Path, Data: req.Data, Name: filename}, s.opts.MaxWords)
	if err != nil {
		return Result{}, err
	}

	dbc := dbctx.Context{Ctx: ctx}
	if err := s.modules.Upsert(dbc, &types.TrainingModule{
		ID:             req.ModuleID,
		Title:          req.ModuleName,
		CompetencyArea: area,
		Description:    "Training module from " + filename,
	}); err != nil {
		return Result{}, fmt.Errorf("upsert module row: %w", err)
	}

	release, err := s.locker.Acquire(ctx, "ingest:"+req.ModuleID)
	if err != nil {
		return Result{}, fmt.Errorf("lock module %s: %w", req.ModuleID, err)
	}
	defer release()

	n, err := s.index.UpsertModule(ctx, vectorindex.ModuleRef{ID: req.ModuleID, Name: req.ModuleName, CompetencyArea: string(area)}, chunks)
	if err != nil {
		return Result{}, err
	}
	at := s.opts.Now().UTC()
	if err := s.modules.UpdateIngestion(dbc, req.ModuleID, n, at); err != nil {
		return Result{}, fmt.Errorf("record ingestion: %w", err)
	}

	s.log.Info("module ingested", "module_id", req.ModuleID, "file", filename, "chunks", n)
	return Result{ModuleID: req.ModuleID, Chunks: n, Filename: filename, At: at}, nil
}

// DeleteModule removes a module's chunks from the index and soft-deletes its
// row. Chunks go first so a failure never leaves searchable chunks behind a
// deleted module.
func (s *Service) DeleteModule(ctx context.Context, moduleID string) error {
	moduleID = strings.TrimSpace(moduleID)
	if moduleID == "" {
		return fmt.Errorf("module id required: %w", nberrors.ErrInvalidArgument)
	}
	dbc := dbctx.Context{Ctx: ctx}
	if _, err := s.modules.GetByID(dbc, moduleID); err != nil {
		return err
	}

	release, err := s.locker.Acquire(ctx, "ingest:"+moduleID)
	if err != nil {
		return fmt.Errorf("lock module %s: %w", moduleID, err)
	}
	defer release()

	if err := s.index.DeleteModule(ctx, moduleID); err != nil {
		return err
	}
	if err := s.modules.Delete(dbc, moduleID); err != nil {
		return fmt.Errorf("delete module row: %w", err)
	}
	s.log.Info("module deleted", "module_id", moduleID)
	return nil
}

type ModuleStatus struct {
	ID            string     `json:"id"`
	Title         string     `json:"title"`
	Competency    string     `json:"competency_area"`
	ChunkCount    int        `json:"chunk_count"`
	HasRAG        bool       `json:"has_rag"`
	LastUpload    *time.Time `json:"last_upload,omitempty"`
	IndexedChunks *int       `json:"indexed_chunks,omitempty"`
}

// RAGStatus lists every module with its ingestion state. IndexedChunks is
// filled from the vector index when it is reachable.
func (s *Service) RAGStatus(ctx context.Context) ([]ModuleStatus, error) {
	mods, err := s.modules.List(dbctx.Context{Ctx: ctx})
	if err != nil {
		return nil, fmt.Errorf("list modules: %w", err)
	}
	stats, statsErr := s.index.Stats(ctx)
	if statsErr != nil {
		s.log.Warn("vector stats unavailable for rag status", "error", statsErr)
	}

	out := make([]ModuleStatus, 0, len(mods))
	for _, m := range mods {
		st := ModuleStatus{
			ID:         m.ID,
			Title:      m.Title,
			Competency: string(m.CompetencyArea),
			ChunkCount: m.ChunkCount,
			HasRAG:     m.ChunkCount > 0,
			LastUpload: m.LastPDFUpload,
		}
		if statsErr == nil {
			n := stats.Modules[m.ID].Chunks
			st.IndexedChunks = &n
		}
		out = append(out, st)
	}
	return out, nil
}

// Stats reports what the vector index holds.
func (s *Service) Stats(ctx context.Context) (vectorindex.Stats, error) {
	return s.index.Stats(ctx)
}

// IsExtractionError reports whether err means the uploaded file was not a
// readable PDF.
func IsExtractionError(err error) bool {
	var ee *chunker.ExtractionError
	return errors.As(err, &ee)
}
