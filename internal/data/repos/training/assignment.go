package training

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/mentorbridge-backend/internal/domain"
	"github.com/yungbote/mentorbridge-backend/internal/pkg/dbctx"
	nberrors "github.com/yungbote/mentorbridge-backend/internal/pkg/errors"
	"github.com/yungbote/mentorbridge-backend/internal/platform/logger"
)

type AssignmentRepo interface {
	// GetLive returns the non-deleted assignment for the pair, or nil.
	GetLive(dbc dbctx.Context, teacherID uuid.UUID, moduleID string) (*types.TeacherTrainingAssignment, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.TeacherTrainingAssignment, error)
	ListByTeacher(dbc dbctx.Context, teacherID uuid.UUID) ([]*types.TeacherTrainingAssignment, error)
	// Create inserts a. A duplicate live pair fails with an error satisfying
	// IsUniqueViolation.
	Create(dbc dbctx.Context, a *types.TeacherTrainingAssignment) error
	// RefreshSource points a not_started assignment at a new issue. Rows
	// that have progressed are left alone and ErrConflict is returned.
	RefreshSource(dbc dbctx.Context, id uuid.UUID, issueID *uuid.UUID, reason string) error
}

type assignmentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAssignmentRepo(db *gorm.DB, baseLog *logger.Logger) AssignmentRepo {
	return &assignmentRepo{db: db, log: baseLog.With("repo", "AssignmentRepo")}
}

func (r *assignmentRepo) GetLive(dbc dbctx.Context, teacherID uuid.UUID, moduleID string) (*types.TeacherTrainingAssignment, error) {
	var out []*types.TeacherTrainingAssignment
	if err := dbc.Conn(r.db).
		Where("teacher_id = ? AND module_id = ?", teacherID, moduleID).
		Order("created_at ASC").
		Limit(1).
		Find(&out).Error; err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out[0], nil
}

func (r *assignmentRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.TeacherTrainingAssignment, error) {
	var out types.TeacherTrainingAssignment
	err := dbc.Conn(r.db).Preload("Module").Where("id = ?", id).First(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("assignment %s: %w", id, nberrors.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *assignmentRepo) ListByTeacher(dbc dbctx.Context, teacherID uuid.UUID) ([]*types.TeacherTrainingAssignment, error) {
	var out []*types.TeacherTrainingAssignment
	if err := dbc.Conn(r.db).
		Preload("Module").
		Where("teacher_id = ?", teacherID).
		Order("created_at DESC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *assignmentRepo) Create(dbc dbctx.Context, a *types.TeacherTrainingAssignment) error {
	if a.Status == "" {
		a.Status = types.AssignmentNotStarted
	}
	return dbc.Conn(r.db).Create(a).Error
}

func (r *assignmentRepo) RefreshSource(dbc dbctx.Context, id uuid.UUID, issueID *uuid.UUID, reason string) error {
	res := dbc.Conn(r.db).
		Model(&types.TeacherTrainingAssignment{}).
		Where("id = ? AND status = ?", id, types.AssignmentNotStarted).
		Updates(map[string]interface{}{
			"source_issue_id":   issueID,
			"assignment_reason": reason,
			"updated_at":        time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("assignment %s is not refreshable: %w", id, nberrors.ErrConflict)
	}
	return nil
}
