package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	types "github.com/yungbote/mentorbridge-backend/internal/domain"
	"github.com/yungbote/mentorbridge-backend/internal/modules/training/keywords"
	"github.com/yungbote/mentorbridge-backend/internal/modules/training/matcher"
	"github.com/yungbote/mentorbridge-backend/internal/modules/training/personalize"
	"github.com/yungbote/mentorbridge-backend/internal/pkg/dbctx"
	nberrors "github.com/yungbote/mentorbridge-backend/internal/pkg/errors"
)

// Match runs semantic matching only, without touching any assignment.
func (s *Service) Match(ctx context.Context, text, competencyHint string, topK int) matcher.Result {
	if topK <= 0 {
		topK = s.opts.TopK
	}
	return s.matcher.FindBestModule(ctx, text, matcher.Options{TopK: topK, CompetencyHint: competencyHint})
}

func (s *Service) TeacherSummary(ctx context.Context, teacherID uuid.UUID) (keywords.Summary, error) {
	dbc := dbctx.Context{Ctx: ctx}
	if _, err := s.repos.Teacher.GetByID(dbc, teacherID); err != nil {
		return keywords.Summary{}, err
	}
	issues, err := s.repos.Issue.ListByTeacher(dbc, teacherID)
	if err != nil {
		return keywords.Summary{}, fmt.Errorf("list issues: %w", err)
	}
	return s.keywords.Summarize(teacherID, issues), nil
}

type AssignmentView struct {
	*types.TeacherTrainingAssignment
	Personalized *types.PersonalizedTraining `json:"personalized_training,omitempty"`
}

func (s *Service) TeacherAssignments(ctx context.Context, teacherID uuid.UUID) ([]AssignmentView, error) {
	dbc := dbctx.Context{Ctx: ctx}
	if _, err := s.repos.Teacher.GetByID(dbc, teacherID); err != nil {
		return nil, err
	}
	rows, err := s.repos.Assignment.ListByTeacher(dbc, teacherID)
	if err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}
	out := make([]AssignmentView, 0, len(rows))
	for _, a := range rows {
		v := AssignmentView{TeacherTrainingAssignment: a}
		pt, err := s.repos.PersonalizedTraining.GetByAssignment(dbc, a.ID)
		switch {
		case err == nil:
			v.Personalized = pt
		case !errors.Is(err, nberrors.ErrNotFound):
			return nil, fmt.Errorf("load personalized training: %w", err)
		}
		out = append(out, v)
	}
	return out, nil
}

// FeedbackQuestions builds reflection questions for an assignment from its
// module, the teacher's cluster and the issue that triggered it.
func (s *Service) FeedbackQuestions(ctx context.Context, assignmentID uuid.UUID) (personalize.Questions, error) {
	dbc := dbctx.Context{Ctx: ctx}
	a, err := s.repos.Assignment.GetByID(dbc, assignmentID)
	if err != nil {
		return personalize.Questions{}, err
	}
	teacher, err := s.repos.Teacher.GetByID(dbc, a.TeacherID)
	if err != nil {
		return personalize.Questions{}, err
	}
	req := personalize.Request{
		Teacher: personalize.ProfileFromTeacher(teacher),
		Cluster: personalize.ContextFromCluster(teacher.Cluster),
		Module:  personalize.ModuleFromRow(a.Module),
	}
	if a.Module == nil {
		req.Module = personalize.ModuleInfo{ID: a.ModuleID}
	}
	if a.SourceIssueID != nil {
		if issue, err := s.repos.Issue.GetByID(dbc, *a.SourceIssueID); err == nil {
			req.Issue = issue.Description
		}
	}
	return s.personalizer.FeedbackQuestions(ctx, req), nil
}
