// Package personalize adapts a training module to one teacher's context by
// prompting a text generator with retrieved passages. Generation failures
// never fail the caller: the module's static description is used instead.
package personalize

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"gorm.io/datatypes"

	types "github.com/yungbote/mentorbridge-backend/internal/domain"
	"github.com/yungbote/mentorbridge-backend/internal/platform/logger"
)

var tracer = otel.Tracer("github.com/yungbote/mentorbridge-backend/internal/modules/training/personalize")

const (
	EstimatedDuration  = "10-15 minutes"
	DefaultTimeout     = 60 * time.Second
	feedbackQuestionsN = 4
)

// StaticFeedbackQuestions are returned when question generation fails.
var StaticFeedbackQuestions = []string{
	"What strategies did you try implementing?",
	"How did students at different levels respond?",
	"What challenges did you face?",
	"What worked well in your classroom?",
}

// Generator produces text from a system and user prompt in a single attempt.
type Generator interface {
	GenerateText(ctx context.Context, system, user string) (string, error)
}

type Observer interface {
	ObserveGenerationFallback(kind string)
}

type TeacherProfile struct {
	Name       string
	Subject    string
	Experience string
	GapAreas   []string
}

type ClusterContext struct {
	Location       string
	Language       string
	Dialect        string
	Infrastructure string
	ClassSize      string
	CommonIssues   string
}

type ModuleInfo struct {
	ID             string
	Title          string
	CompetencyArea string
	Description    string
}

type Passage struct {
	Text       string  `json:"text"`
	Page       int     `json:"page"`
	Similarity float64 `json:"similarity"`
}

type Request struct {
	Teacher  TeacherProfile
	Cluster  ClusterContext
	Module   ModuleInfo
	Issue    string
	Passages []Passage
}

// GenerationFailure records why generated content was replaced by the
// static module description.
type GenerationFailure struct {
	Err error
}

func (e *GenerationFailure) Error() string { return "generation failed: " + e.Err.Error() }
func (e *GenerationFailure) Unwrap() error { return e.Err }

type LanguageCulture struct {
	PrimaryLanguage string `json:"primary_language"`
	LocalDialect    string `json:"local_dialect"`
	CulturalContext string `json:"cultural_context"`
}

type FacilityAdaptations struct {
	InfrastructureLevel   string `json:"infrastructure_level"`
	NoTechAlternatives    bool   `json:"no_tech_alternatives"`
	LowResourceStrategies bool   `json:"low_resource_strategies"`
}

type ClassroomAdaptations struct {
	MixedLevels               bool   `json:"mixed_levels"`
	DifferentiationStrategies bool   `json:"differentiation_strategies"`
	ClassroomSize             string `json:"classroom_size"`
}

type Adaptations struct {
	LanguageCulture     LanguageCulture      `json:"language_culture"`
	FacilityAdaptations FacilityAdaptations  `json:"facility_adaptations"`
	ClassroomManagement ClassroomAdaptations `json:"classroom_management"`
	GapFocused          []string             `json:"gap_focused"`
}

// Result is the personalized content plus the metadata persisted next to it.
type Result struct {
	Content           string      `json:"personalized_content"`
	ModuleID          string      `json:"original_module_id"`
	EstimatedDuration string      `json:"estimated_duration"`
	RAGChunksUsed     int         `json:"rag_chunks_used"`
	Adaptations       Adaptations `json:"adaptations_made"`
	PromptFingerprint string      `json:"prompt_fingerprint,omitempty"`
	Generated         bool        `json:"generated"`
	GenerationError   string      `json:"generation_error,omitempty"`
	Failure           error       `json:"-"`
}

// Metadata serializes everything but the content for the
// adaptation_metadata column.
func (r Result) Metadata() datatypes.JSON {
	meta := map[string]any{
		"estimated_duration": r.EstimatedDuration,
		"rag_chunks_used":    r.RAGChunksUsed,
		"adaptations_made":   r.Adaptations,
		"generated":          r.Generated,
	}
	if r.PromptFingerprint != "" {
		meta["prompt_fingerprint"] = r.PromptFingerprint
	}
	if r.GenerationError != "" {
		meta["generation_error"] = r.GenerationError
	}
	raw, err := json.Marshal(meta)
	if err != nil {
		return datatypes.JSON([]byte("{}"))
	}
	return datatypes.JSON(raw)
}

type Questions struct {
	Questions       []string `json:"questions"`
	Generated       bool     `json:"generated"`
	GenerationError string   `json:"generation_error,omitempty"`
}

type Personalizer struct {
	log      *logger.Logger
	gen      Generator
	timeout  time.Duration
	observer Observer
}

func New(log *logger.Logger, gen Generator, timeout time.Duration, observer Observer) *Personalizer {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Personalizer{log: log.With("service", "Personalizer"), gen: gen, timeout: timeout, observer: observer}
}

// Personalize makes one generation attempt. On error, timeout or empty
// output the result carries the module description as content and a
// *GenerationFailure in Failure.
func (p *Personalizer) Personalize(ctx context.Context, req Request) Result {
	ctx, span := tracer.Start(ctx, "personalize.Personalize")
	defer span.End()
	span.SetAttributes(attribute.String("module_id", req.Module.ID), attribute.Int("passages", len(req.Passages)))

	in := req.normalized()
	used := len(in.Passages)
	if used > MaxPromptPassages {
		used = MaxPromptPassages
	}
	res := Result{
		ModuleID:          req.Module.ID,
		EstimatedDuration: EstimatedDuration,
		RAGChunksUsed:     used,
		Adaptations:       adaptationsFor(req),
	}

	prompt, err := BuildContentPrompt(req)
	if err == nil {
		res.PromptFingerprint = prompt.Fingerprint()
		var text string
		text, err = p.generate(ctx, prompt)
		if err == nil {
			res.Content = text
			res.Generated = true
			return res
		}
	}

	failure := &GenerationFailure{Err: err}
	span.RecordError(failure)
	span.SetStatus(codes.Error, "generation fallback")
	p.log.Warn("personalization fell back to module description", "module_id", req.Module.ID, "error", err)
	if p.observer != nil {
		p.observer.ObserveGenerationFallback("content")
	}
	res.Content = in.Module.Description
	res.GenerationError = err.Error()
	res.Failure = failure
	return res
}

// FeedbackQuestions asks the generator for four short reflection questions
// and falls back to StaticFeedbackQuestions.
func (p *Personalizer) FeedbackQuestions(ctx context.Context, req Request) Questions {
	ctx, span := tracer.Start(ctx, "personalize.FeedbackQuestions")
	defer span.End()

	prompt, err := BuildQuestionsPrompt(req)
	if err == nil {
		var text string
		if text, err = p.generate(ctx, prompt); err == nil {
			if qs := ParseQuestions(text); len(qs) > 0 {
				return Questions{Questions: qs, Generated: true}
			}
			err = fmt.Errorf("no questions in generator output")
		}
	}
	p.log.Warn("feedback questions fell back to static set", "module_id", req.Module.ID, "error", err)
	if p.observer != nil {
		p.observer.ObserveGenerationFallback("questions")
	}
	return Questions{
		Questions:       append([]string(nil), StaticFeedbackQuestions...),
		GenerationError: err.Error(),
	}
}

func (p *Personalizer) generate(ctx context.Context, prompt Prompt) (string, error) {
	if p.gen == nil {
		return "", fmt.Errorf("no generator configured")
	}
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	text, err := p.gen.GenerateText(ctx, prompt.System, prompt.User)
	if err != nil {
		return "", err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("generator returned empty text")
	}
	return text, nil
}

var numbering = regexp.MustCompile(`^\s*(?:\d+[.)]|[-*•])\s*`)

// ParseQuestions splits generator output into at most four questions,
// dropping blank lines and list numbering.
func ParseQuestions(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		q := strings.TrimSpace(numbering.ReplaceAllString(line, ""))
		if q == "" {
			continue
		}
		out = append(out, q)
		if len(out) == feedbackQuestionsN {
			break
		}
	}
	return out
}

func adaptationsFor(req Request) Adaptations {
	gaps := req.Teacher.GapAreas
	if gaps == nil {
		gaps = []string{}
	}
	return Adaptations{
		LanguageCulture: LanguageCulture{
			PrimaryLanguage: orDefault(req.Cluster.Language, "Hindi"),
			LocalDialect:    orDefault(req.Cluster.Dialect, "Standard"),
			CulturalContext: orDefault(req.Cluster.Location, "Rural India"),
		},
		FacilityAdaptations: FacilityAdaptations{
			InfrastructureLevel:   orDefault(req.Cluster.Infrastructure, "Basic"),
			NoTechAlternatives:    true,
			LowResourceStrategies: true,
		},
		ClassroomManagement: ClassroomAdaptations{
			MixedLevels:               true,
			DifferentiationStrategies: true,
			ClassroomSize:             orDefault(req.Cluster.ClassSize, "Medium"),
		},
		GapFocused: gaps,
	}
}

func (r Request) normalized() promptInput {
	gaps := r.Teacher.GapAreas
	if len(gaps) == 0 {
		gaps = []string{"General Teaching"}
	}
	issue := strings.TrimSpace(r.Issue)
	if issue == "" {
		issue = orDefault(r.Cluster.CommonIssues, "Teaching effectiveness")
	}
	return promptInput{
		Teacher: TeacherProfile{
			Name:       orDefault(r.Teacher.Name, "Teacher"),
			Subject:    orDefault(r.Teacher.Subject, "General"),
			Experience: orDefault(r.Teacher.Experience, "Unknown"),
			GapAreas:   gaps,
		},
		Cluster: ClusterContext{
			Location:       orDefault(r.Cluster.Location, "Rural India"),
			Language:       orDefault(r.Cluster.Language, "Hindi"),
			Dialect:        orDefault(r.Cluster.Dialect, "Regional variation"),
			Infrastructure: orDefault(r.Cluster.Infrastructure, "Basic - no projector, limited electricity, no internet"),
			ClassSize:      orDefault(r.Cluster.ClassSize, "40-50 students"),
			CommonIssues:   r.Cluster.CommonIssues,
		},
		Module: ModuleInfo{
			ID:             r.Module.ID,
			Title:          orDefault(r.Module.Title, "Untitled"),
			CompetencyArea: orDefault(r.Module.CompetencyArea, "General Teaching"),
			Description:    orDefault(r.Module.Description, "No content available"),
		},
		Issue:    issue,
		Passages: r.Passages,
	}
}

func orDefault(s, def string) string {
	if s = strings.TrimSpace(s); s == "" {
		return def
	}
	return s
}

// ProfileFromTeacher maps the stored teacher row onto the prompt profile.
func ProfileFromTeacher(t *types.Teacher) TeacherProfile {
	if t == nil {
		return TeacherProfile{}
	}
	p := TeacherProfile{Name: t.Name, Subject: t.Subject}
	if t.ExperienceYears > 0 {
		p.Experience = strconv.Itoa(t.ExperienceYears)
	}
	if len(t.GapAreas) > 0 {
		var gaps []string
		if err := json.Unmarshal(t.GapAreas, &gaps); err == nil {
			p.GapAreas = gaps
		}
	}
	return p
}

func ContextFromCluster(c *types.Cluster) ClusterContext {
	if c == nil {
		return ClusterContext{}
	}
	return ClusterContext{
		Location:       c.Location,
		Language:       c.Language,
		Dialect:        c.Dialect,
		Infrastructure: c.Infrastructure,
		ClassSize:      c.ClassSize,
		CommonIssues:   c.CommonIssues,
	}
}

func ModuleFromRow(m *types.TrainingModule) ModuleInfo {
	if m == nil {
		return ModuleInfo{}
	}
	return ModuleInfo{ID: m.ID, Title: m.Title, CompetencyArea: string(m.CompetencyArea), Description: m.Description}
}
