package app

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/yungbote/mentorbridge-backend/internal/data/repos"
	"github.com/yungbote/mentorbridge-backend/internal/modules/training/chunker"
	"github.com/yungbote/mentorbridge-backend/internal/modules/training/ingestion"
	"github.com/yungbote/mentorbridge-backend/internal/modules/training/keywords"
	"github.com/yungbote/mentorbridge-backend/internal/modules/training/matcher"
	"github.com/yungbote/mentorbridge-backend/internal/modules/training/personalize"
	"github.com/yungbote/mentorbridge-backend/internal/modules/training/pipeline"
	"github.com/yungbote/mentorbridge-backend/internal/modules/training/resolver"
	"github.com/yungbote/mentorbridge-backend/internal/modules/training/vectorindex"
	"github.com/yungbote/mentorbridge-backend/internal/observability"
	"github.com/yungbote/mentorbridge-backend/internal/pkg/dbctx"
	"github.com/yungbote/mentorbridge-backend/internal/platform/logger"
	"github.com/yungbote/mentorbridge-backend/internal/platform/openai"
	"github.com/yungbote/mentorbridge-backend/internal/platform/pdftext"
	"github.com/yungbote/mentorbridge-backend/internal/platform/redislock"
)

var _ vectorindex.ModelNamer = (*openai.Client)(nil)

type Services struct {
	Backend      vectorindex.Backend
	Index        *vectorindex.Index
	Matcher      *matcher.Matcher
	Keywords     *keywords.Classifier
	Resolver     *resolver.Resolver
	Personalizer *personalize.Personalizer
	Pipeline     *pipeline.Service
	Ingestion    *ingestion.Service
}

func wireServices(
	ctx context.Context,
	log *logger.Logger,
	cfg Config,
	db *gorm.DB,
	postgres bool,
	r repos.Repos,
	locker redislock.Locker,
	metrics *observability.Metrics,
) (Services, error) {
	log.Info("Wiring services...")

	oa, err := openai.NewClient(log, cfg.OpenAI.Client(), nil)
	if err != nil {
		return Services{}, fmt.Errorf("init openai client: %w", err)
	}
	oa.WithObserver(metrics)

	vcfg, err := resolveVectorProviderConfig(cfg.Vector, postgres)
	if err != nil {
		return Services{}, err
	}
	backend, err := newVectorBackend(ctx, log, vcfg, db, metrics)
	if err != nil {
		return Services{}, err
	}
	index := vectorindex.New(log, backend, oa)

	kw := keywords.New(log, r.Mapping)
	var extra []keywords.Mapping
	if cfg.Matching.KeywordSeedFile != "" {
		extra, err = keywords.ReadSeedFile(cfg.Matching.KeywordSeedFile)
		if err != nil {
			return Services{}, fmt.Errorf("read keyword seed file: %w", err)
		}
	}
	if err := kw.Load(dbctx.Context{Ctx: ctx}, extra...); err != nil {
		return Services{}, fmt.Errorf("load keyword mappings: %w", err)
	}

	m := matcher.New(log, index, metrics)
	res := resolver.New(log, r.Assignment)
	pers := personalize.New(log, oa, cfg.OpenAI.GenerationTimeout, metrics)
	pipe := pipeline.New(log, db, r, m, kw, res, pers, pipeline.Options{TopK: cfg.Matching.TopK})
	ing := ingestion.New(log, r.Module, chunker.New(pdftext.Extractor{}), index, locker, ingestion.Options{
		MaxWords:    cfg.Chunking.MaxWords,
		Concurrency: cfg.Chunking.IngestConcurrency,
	})

	return Services{
		Backend:      backend,
		Index:        index,
		Matcher:      m,
		Keywords:     kw,
		Resolver:     res,
		Personalizer: pers,
		Pipeline:     pipe,
		Ingestion:    ing,
	}, nil
}
