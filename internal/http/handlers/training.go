package handlers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	types "github.com/yungbote/mentorbridge-backend/internal/domain"
	response "github.com/yungbote/mentorbridge-backend/internal/http/response"
	"github.com/yungbote/mentorbridge-backend/internal/modules/training/keywords"
	"github.com/yungbote/mentorbridge-backend/internal/modules/training/matcher"
	"github.com/yungbote/mentorbridge-backend/internal/modules/training/personalize"
	"github.com/yungbote/mentorbridge-backend/internal/modules/training/pipeline"
	"github.com/yungbote/mentorbridge-backend/internal/platform/logger"
)

// TrainingService is the part of the issue pipeline the HTTP API exposes.
type TrainingService interface {
	Match(ctx context.Context, text, competencyHint string, topK int) matcher.Result
	SubmitIssue(ctx context.Context, req pipeline.SubmitRequest) (pipeline.Outcome, error)
	ProcessIssue(ctx context.Context, issueID uuid.UUID) (pipeline.Outcome, error)
	TeacherSummary(ctx context.Context, teacherID uuid.UUID) (keywords.Summary, error)
	TeacherAssignments(ctx context.Context, teacherID uuid.UUID) ([]pipeline.AssignmentView, error)
	FeedbackQuestions(ctx context.Context, assignmentID uuid.UUID) (personalize.Questions, error)
}

type TrainingHandler struct {
	log *logger.Logger
	svc TrainingService
}

func NewTrainingHandler(log *logger.Logger, svc TrainingService) *TrainingHandler {
	return &TrainingHandler{log: log.With("handler", "TrainingHandler"), svc: svc}
}

type matchRequest struct {
	IssueDescription string `json:"issue_description"`
	CompetencyHint   string `json:"competency_hint"`
	TopK             int    `json:"top_k"`
}

type matchResponse struct {
	Matched bool `json:"matched"`
	matcher.Result
}

// POST /api/match
func (h *TrainingHandler) Match(c *gin.Context) {
	var req matchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if req.IssueDescription == "" {
		badRequest(c, errors.New("issue_description is required"))
		return
	}
	if req.TopK < 0 || req.TopK > 50 {
		badRequest(c, fmt.Errorf("top_k must be between 1 and 50, got %d", req.TopK))
		return
	}
	hint := strings.TrimSpace(req.CompetencyHint)
	if hint != "" {
		area, ok := types.ParseCompetency(hint)
		if !ok {
			badRequest(c, fmt.Errorf("unknown competency_hint %q", hint))
			return
		}
		hint = string(area)
	}
	res := h.svc.Match(c.Request.Context(), req.IssueDescription, hint, req.TopK)
	response.RespondOK(c, matchResponse{Matched: res.Matched(), Result: res})
}

type submitIssueRequest struct {
	TeacherID      string `json:"teacher_id"`
	Description    string `json:"description"`
	CompetencyHint string `json:"competency_hint"`
}

// POST /api/issues
func (h *TrainingHandler) SubmitIssue(c *gin.Context) {
	var req submitIssueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	teacherID, err := uuid.Parse(req.TeacherID)
	if err != nil {
		badRequest(c, fmt.Errorf("invalid teacher_id: %w", err))
		return
	}
	out, err := h.svc.SubmitIssue(c.Request.Context(), pipeline.SubmitRequest{
		TeacherID:      teacherID,
		Description:    req.Description,
		CompetencyHint: req.CompetencyHint,
	})
	if err != nil {
		if out.IssueID != uuid.Nil {
			h.log.Warn("issue stored but not processed", "issue_id", out.IssueID, "error", err)
		}
		writeError(c, err)
		return
	}
	response.RespondCreated(c, out)
}

// POST /api/issues/:id/process
func (h *TrainingHandler) ProcessIssue(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	out, err := h.svc.ProcessIssue(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	response.RespondOK(c, out)
}

// GET /api/teachers/:id/issues/summary
func (h *TrainingHandler) TeacherSummary(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	out, err := h.svc.TeacherSummary(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	response.RespondOK(c, out)
}

// GET /api/teachers/:id/assignments
func (h *TrainingHandler) TeacherAssignments(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	out, err := h.svc.TeacherAssignments(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"assignments": out})
}

// GET /api/assignments/:id/feedback-questions
func (h *TrainingHandler) FeedbackQuestions(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	out, err := h.svc.FeedbackQuestions(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	response.RespondOK(c, out)
}

func pathUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		badRequest(c, fmt.Errorf("invalid %s: %w", name, err))
		return uuid.Nil, false
	}
	return id, true
}
