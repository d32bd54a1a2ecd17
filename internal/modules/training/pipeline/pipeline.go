// Package pipeline runs a reported issue through matching, assignment
// resolution and personalization.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"gorm.io/gorm"

	"github.com/yungbote/mentorbridge-backend/internal/data/repos"
	types "github.com/yungbote/mentorbridge-backend/internal/domain"
	"github.com/yungbote/mentorbridge-backend/internal/modules/training/keywords"
	"github.com/yungbote/mentorbridge-backend/internal/modules/training/matcher"
	"github.com/yungbote/mentorbridge-backend/internal/modules/training/personalize"
	"github.com/yungbote/mentorbridge-backend/internal/modules/training/resolver"
	"github.com/yungbote/mentorbridge-backend/internal/pkg/dbctx"
	nberrors "github.com/yungbote/mentorbridge-backend/internal/pkg/errors"
	"github.com/yungbote/mentorbridge-backend/internal/platform/ctxutil"
	"github.com/yungbote/mentorbridge-backend/internal/platform/logger"
)

var tracer = otel.Tracer("github.com/yungbote/mentorbridge-backend/internal/modules/training/pipeline")

const (
	MethodSemantic = "semantic"
	MethodKeyword  = "keyword"
)

type Matcher interface {
	FindBestModule(ctx context.Context, issueText string, opts matcher.Options) matcher.Result
}

type Personalizer interface {
	Personalize(ctx context.Context, req personalize.Request) personalize.Result
	FeedbackQuestions(ctx context.Context, req personalize.Request) personalize.Questions
}

type Resolver interface {
	Resolve(dbc dbctx.Context, req resolver.Request) (resolver.Outcome, error)
}

// MatchInfo is the module chosen for an issue and how it was chosen.
type MatchInfo struct {
	ModuleID       string             `json:"module_id"`
	ModuleName     string             `json:"module_name"`
	CompetencyArea string             `json:"competency_area"`
	Confidence     float64            `json:"confidence_score"`
	Method         string             `json:"method"`
	RelevantChunks []matcher.Evidence `json:"relevant_chunks,omitempty"`
	Explanation    string             `json:"explanation"`
	SemanticError  string             `json:"semantic_error,omitempty"`
}

type Outcome struct {
	IssueID     uuid.UUID           `json:"issue_id"`
	TeacherID   uuid.UUID           `json:"teacher_id"`
	Match       MatchInfo           `json:"match"`
	Resolution  resolver.Outcome    `json:"resolution"`
	IssueStatus string              `json:"issue_status"`
	Content     *personalize.Result `json:"personalized_training,omitempty"`
}

// IssueDeleted is reported in Outcome.IssueStatus when the issue was
// redundant.
const IssueDeleted = "deleted"

type Options struct {
	TopK int
}

type Service struct {
	log          *logger.Logger
	db           *gorm.DB
	repos        repos.Repos
	matcher      Matcher
	keywords     *keywords.Classifier
	resolver     Resolver
	personalizer Personalizer
	opts         Options
}

func New(log *logger.Logger, db *gorm.DB, r repos.Repos, m Matcher, kw *keywords.Classifier, res Resolver, p Personalizer, opts Options) *Service {
	if opts.TopK <= 0 {
		opts.TopK = matcher.DefaultTopK
	}
	return &Service{
		log:          log.With("service", "IssuePipeline"),
		db:           db,
		repos:        r,
		matcher:      m,
		keywords:     kw,
		resolver:     res,
		personalizer: p,
		opts:         opts,
	}
}

type SubmitRequest struct {
	TeacherID      uuid.UUID
	Description    string
	CompetencyHint string
}

// SubmitIssue stores a new open issue and processes it. When processing
// fails the issue stays open and its id is still returned in Outcome.
func (s *Service) SubmitIssue(ctx context.Context, req SubmitRequest) (Outcome, error) {
	desc := strings.TrimSpace(req.Description)
	if req.TeacherID == uuid.Nil || desc == "" {
		return Outcome{}, fmt.Errorf("teacher_id and description required: %w", nberrors.ErrInvalidArgument)
	}
	hint := strings.TrimSpace(req.CompetencyHint)
	if hint != "" {
		area, ok := types.ParseCompetency(hint)
		if !ok {
			return Outcome{}, fmt.Errorf("unknown competency %q: %w", hint, nberrors.ErrInvalidArgument)
		}
		hint = string(area)
	}
	dbc := dbctx.Context{Ctx: ctx}
	if _, err := s.repos.Teacher.GetByID(dbc, req.TeacherID); err != nil {
		return Outcome{}, err
	}
	issue := &types.Issue{TeacherID: req.TeacherID, Description: desc, CompetencyHint: hint, Status: types.IssueOpen}
	if err := s.repos.Issue.Create(dbc, issue); err != nil {
		return Outcome{}, fmt.Errorf("create issue: %w", err)
	}
	out, err := s.ProcessIssue(ctx, issue.ID)
	if err != nil {
		return Outcome{IssueID: issue.ID, TeacherID: issue.TeacherID}, err
	}
	return out, nil
}

// ProcessIssue consumes one open issue. The assignment write, the content
// write and the issue's status change (or deletion, when the teacher is
// already working on the matched module) commit together.
func (s *Service) ProcessIssue(ctx context.Context, issueID uuid.UUID) (Outcome, error) {
	ctx, span := tracer.Start(ctx, "pipeline.ProcessIssue")
	defer span.End()

	out, err := s.processIssue(ctx, issueID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "process issue failed")
		return out, err
	}
	span.SetAttributes(
		attribute.String("module_id", out.Match.ModuleID),
		attribute.String("method", out.Match.Method),
		attribute.String("resolution", string(out.Resolution.Kind)),
	)
	return out, nil
}

func (s *Service) processIssue(ctx context.Context, issueID uuid.UUID) (Outcome, error) {
	dbc := dbctx.Context{Ctx: ctx}
	issue, err := s.repos.Issue.GetByID(dbc, issueID)
	if err != nil {
		return Outcome{}, err
	}
	out := Outcome{IssueID: issue.ID, TeacherID: issue.TeacherID}
	if issue.Status != types.IssueOpen {
		return out, fmt.Errorf("issue %s is %s: %w", issue.ID, issue.Status, nberrors.ErrConflict)
	}
	teacher, err := s.repos.Teacher.GetByID(dbc, issue.TeacherID)
	if err != nil {
		return out, err
	}

	info, module, err := s.chooseModule(ctx, issue)
	if err != nil {
		return out, err
	}
	out.Match = info

	genReq := personalize.Request{
		Teacher:  personalize.ProfileFromTeacher(teacher),
		Cluster:  personalize.ContextFromCluster(teacher.Cluster),
		Module:   personalize.ModuleFromRow(module),
		Issue:    issue.Description,
		Passages: passages(info.RelevantChunks),
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		tdbc := dbctx.Context{Ctx: ctx, Tx: tx}
		if _, err := s.repos.Issue.GetOpenForUpdate(tdbc, issue.ID); err != nil {
			if errors.Is(err, nberrors.ErrNotFound) {
				return fmt.Errorf("issue %s was consumed concurrently: %w", issue.ID, nberrors.ErrConflict)
			}
			return err
		}

		res, err := s.resolver.Resolve(tdbc, resolver.Request{
			TeacherID: issue.TeacherID,
			ModuleID:  module.ID,
			IssueID:   &issue.ID,
			Reason:    reasonFor(info),
		})
		if err != nil {
			return fmt.Errorf("resolve assignment: %w", err)
		}
		out.Resolution = res

		if !res.NeedsContent() {
			if err := s.repos.Issue.Delete(tdbc, issue.ID); err != nil {
				return fmt.Errorf("delete redundant issue: %w", err)
			}
			out.IssueStatus = IssueDeleted
			return nil
		}

		content := s.personalizer.Personalize(ctx, genReq)
		if err := s.repos.PersonalizedTraining.UpsertByAssignment(tdbc, &types.PersonalizedTraining{
			AssignmentID:       res.AssignmentID,
			TeacherID:          issue.TeacherID,
			ModuleID:           module.ID,
			IssueID:            &issue.ID,
			Content:            content.Content,
			AdaptationMetadata: content.Metadata(),
			Generated:          content.Generated,
		}); err != nil {
			return fmt.Errorf("store personalized training: %w", err)
		}
		if err := s.repos.Issue.MarkStatus(tdbc, issue.ID, types.IssueTrainingAssigned); err != nil {
			return fmt.Errorf("mark issue assigned: %w", err)
		}
		out.Content = &content
		out.IssueStatus = string(types.IssueTrainingAssigned)
		return nil
	})
	if err != nil {
		return out, err
	}

	s.log.Info("issue processed",
		"issue_id", issue.ID,
		"teacher_id", issue.TeacherID,
		"module_id", module.ID,
		"method", info.Method,
		"resolution", out.Resolution.Kind,
		"trace_id", ctxutil.TraceID(ctx),
	)
	return out, nil
}

// chooseModule prefers the semantic match and falls back to keyword
// classification when retrieval yields nothing.
func (s *Service) chooseModule(ctx context.Context, issue *types.Issue) (MatchInfo, *types.TrainingModule, error) {
	dbc := dbctx.Context{Ctx: ctx}
	m := s.matcher.FindBestModule(ctx, issue.Description, matcher.Options{TopK: s.opts.TopK, CompetencyHint: issue.CompetencyHint})
	if m.Matched() {
		info := MatchInfo{
			ModuleID:       m.ModuleID,
			ModuleName:     m.ModuleName,
			CompetencyArea: m.CompetencyArea,
			Confidence:     m.Confidence,
			Method:         MethodSemantic,
			RelevantChunks: m.RelevantChunks,
			Explanation:    m.Explanation,
		}
		module, err := s.repos.Module.GetByID(dbc, m.ModuleID)
		if errors.Is(err, nberrors.ErrNotFound) {
			// Indexed but never registered; the chunk metadata is enough to
			// assign it.
			s.log.Warn("matched module has no row", "module_id", m.ModuleID)
			area, _ := types.ParseCompetency(m.CompetencyArea)
			module = &types.TrainingModule{ID: m.ModuleID, Title: m.ModuleName, CompetencyArea: area}
		} else if err != nil {
			return MatchInfo{}, nil, fmt.Errorf("load matched module: %w", err)
		}
		return info, module, nil
	}

	cls := s.keywords.Classify(issue.Description)
	module, hinted, err := s.fallbackModule(dbc, issue, cls)
	if err != nil {
		return MatchInfo{}, nil, fmt.Errorf("keyword fallback: %w", err)
	}
	s.log.Info("semantic match unavailable; used keyword fallback", "issue_id", issue.ID, "reason", m.Error, "competency", module.CompetencyArea, "hinted", hinted)
	explanation := "Matched by keyword classification"
	if hinted {
		explanation = "No keywords matched; used competency hint " + string(module.CompetencyArea)
	} else if cls.Fallback {
		explanation = "No keywords matched; defaulted to " + string(cls.Competency)
	} else if len(cls.Keywords) > 0 {
		explanation = "Matched by keywords: " + strings.Join(cls.Keywords, ", ")
	}
	return MatchInfo{
		ModuleID:       module.ID,
		ModuleName:     module.Title,
		CompetencyArea: string(module.CompetencyArea),
		Confidence:     cls.Confidence,
		Method:         MethodKeyword,
		Explanation:    explanation,
		SemanticError:  m.Error,
	}, module, nil
}

// fallbackModule picks the keyword-classified module. When no keyword
// matched, the issue's competency hint outranks the default competency as
// long as that competency has a module.
func (s *Service) fallbackModule(dbc dbctx.Context, issue *types.Issue, cls keywords.Classification) (*types.TrainingModule, bool, error) {
	if cls.Fallback && issue.CompetencyHint != "" {
		if area, ok := types.ParseCompetency(issue.CompetencyHint); ok {
			module, err := s.repos.Module.FirstByCompetency(dbc, area)
			if err == nil {
				return module, true, nil
			}
			if !errors.Is(err, nberrors.ErrNotFound) {
				return nil, false, err
			}
		}
	}
	module, err := s.repos.Module.FirstByCompetency(dbc, cls.Competency)
	return module, false, err
}

func reasonFor(m MatchInfo) string {
	return fmt.Sprintf("%s match (confidence %.2f): %s", m.Method, m.Confidence, m.Explanation)
}

func passages(ev []matcher.Evidence) []personalize.Passage {
	out := make([]personalize.Passage, 0, len(ev))
	for _, e := range ev {
		out = append(out, personalize.Passage{Text: e.Text, Page: e.Page, Similarity: e.Similarity})
	}
	return out
}
