// Package matcher picks the training module whose retrieved chunks best
// match a teacher's issue description.
package matcher

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/yungbote/mentorbridge-backend/internal/modules/training/vectorindex"
	"github.com/yungbote/mentorbridge-backend/internal/platform/logger"
)

const (
	DefaultTopK    = 5
	EvidenceChunks = 3

	ReasonNoModules    = "No training modules available"
	ReasonSearchFailed = "Semantic search failed"
	ReasonEmptyIssue   = "Issue description is empty"
)

const (
	OutcomeMatched = "matched"
	OutcomeNoData  = "no_data"
	OutcomeFailed  = "failed"
)

var tracer = otel.Tracer("github.com/yungbote/mentorbridge-backend/internal/modules/training/matcher")

type Querier interface {
	Query(ctx context.Context, text string, k int, competency string) (vectorindex.QueryResult, error)
}

// Observer is told the outcome of every match.
type Observer interface {
	ObserveMatch(outcome string)
}

type Options struct {
	TopK           int
	CompetencyHint string
}

type Evidence struct {
	Text       string  `json:"text"`
	Page       int     `json:"page"`
	ChunkIndex int     `json:"chunk_index"`
	Similarity float64 `json:"similarity"`
}

// Result is either a match or a structured no-match. A no-match has Error
// set to a human-readable reason and, for backend failures, Err set to the
// cause.
type Result struct {
	ModuleID       string     `json:"module_id,omitempty"`
	ModuleName     string     `json:"module_name,omitempty"`
	CompetencyArea string     `json:"competency_area,omitempty"`
	Confidence     float64    `json:"confidence_score"`
	RelevantChunks []Evidence `json:"relevant_chunks,omitempty"`
	Explanation    string     `json:"explanation,omitempty"`
	Error          string     `json:"error,omitempty"`
	Err            error      `json:"-"`
}

func (r Result) Matched() bool { return r.Error == "" && r.ModuleID != "" }

type Matcher struct {
	log      *logger.Logger
	index    Querier
	observer Observer
}

func New(log *logger.Logger, index Querier, observer Observer) *Matcher {
	return &Matcher{log: log.With("service", "ModuleMatcher"), index: index, observer: observer}
}

// FindBestModule retrieves the TopK nearest chunks, averages similarity per
// module and returns the best module with its three strongest chunks. It
// never returns a Go error; failures come back as a Result with Error set.
func (m *Matcher) FindBestModule(ctx context.Context, issueText string, opts Options) Result {
	ctx, span := tracer.Start(ctx, "matcher.FindBestModule")
	defer span.End()

	if opts.TopK <= 0 {
		opts.TopK = DefaultTopK
	}
	issueText = strings.TrimSpace(issueText)
	if issueText == "" {
		return m.finish(Result{Error: ReasonEmptyIssue}, OutcomeFailed)
	}

	res, err := m.index.Query(ctx, issueText, opts.TopK, opts.CompetencyHint)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, ReasonSearchFailed)
		m.log.Warn("semantic search failed", "error", err, "competency_hint", opts.CompetencyHint)
		return m.finish(Result{Error: ReasonSearchFailed, Err: err}, OutcomeFailed)
	}
	if res.NoData {
		return m.finish(Result{Error: ReasonNoModules}, OutcomeNoData)
	}

	out := Select(res.Hits)
	span.SetAttributes(
		attribute.String("module_id", out.ModuleID),
		attribute.Float64("confidence", out.Confidence),
		attribute.Int("hits", len(res.Hits)),
	)
	return m.finish(out, OutcomeMatched)
}

func (m *Matcher) finish(r Result, outcome string) Result {
	if m.observer != nil {
		m.observer.ObserveMatch(outcome)
	}
	return r
}

type moduleGroup struct {
	id, name, competency string
	sum                  float64
	evidence             []Evidence
}

// Select aggregates hits into a module decision. Similarity is
// 1 - distance. The module with the highest average similarity wins; ties
// go to the lexicographically smallest module id so the result depends only
// on the hit set, not on its order.
func Select(hits []vectorindex.Hit) Result {
	if len(hits) == 0 {
		return Result{Error: ReasonNoModules}
	}
	groups := map[string]*moduleGroup{}
	for _, h := range hits {
		g, ok := groups[h.Chunk.ModuleID]
		if !ok {
			g = &moduleGroup{id: h.Chunk.ModuleID, name: h.Chunk.ModuleName, competency: h.Chunk.CompetencyArea}
			groups[h.Chunk.ModuleID] = g
		}
		sim := 1 - h.Distance
		g.sum += sim
		g.evidence = append(g.evidence, Evidence{
			Text:       h.Chunk.Text,
			Page:       h.Chunk.Page,
			ChunkIndex: h.Chunk.ChunkIndex,
			Similarity: sim,
		})
	}

	var best *moduleGroup
	var bestAvg float64
	for _, g := range groups {
		avg := g.sum / float64(len(g.evidence))
		if best == nil || avg > bestAvg || (avg == bestAvg && g.id < best.id) {
			best, bestAvg = g, avg
		}
	}

	ev := best.evidence
	sort.SliceStable(ev, func(i, j int) bool {
		if ev[i].Similarity == ev[j].Similarity {
			return ev[i].ChunkIndex < ev[j].ChunkIndex
		}
		return ev[i].Similarity > ev[j].Similarity
	})
	if len(ev) > EvidenceChunks {
		ev = ev[:EvidenceChunks]
	}
	return Result{
		ModuleID:       best.id,
		ModuleName:     best.name,
		CompetencyArea: best.competency,
		Confidence:     bestAvg,
		RelevantChunks: ev,
		Explanation:    fmt.Sprintf("Matched based on semantic similarity to %d relevant sections", len(best.evidence)),
	}
}
