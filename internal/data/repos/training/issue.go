package training

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/mentorbridge-backend/internal/domain"
	"github.com/yungbote/mentorbridge-backend/internal/pkg/dbctx"
	nberrors "github.com/yungbote/mentorbridge-backend/internal/pkg/errors"
	"github.com/yungbote/mentorbridge-backend/internal/platform/logger"
)

type IssueRepo interface {
	Create(dbc dbctx.Context, issue *types.Issue) error
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Issue, error)
	// GetOpenForUpdate loads an open issue, locking the row on Postgres.
	// Returns ErrNotFound when the issue is missing, deleted or already
	// consumed.
	GetOpenForUpdate(dbc dbctx.Context, id uuid.UUID) (*types.Issue, error)
	ListByTeacher(dbc dbctx.Context, teacherID uuid.UUID) ([]*types.Issue, error)
	MarkStatus(dbc dbctx.Context, id uuid.UUID, status types.IssueStatus) error
	Delete(dbc dbctx.Context, id uuid.UUID) error
}

type issueRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewIssueRepo(db *gorm.DB, baseLog *logger.Logger) IssueRepo {
	return &issueRepo{db: db, log: baseLog.With("repo", "IssueRepo")}
}

func (r *issueRepo) Create(dbc dbctx.Context, issue *types.Issue) error {
	if issue.Status == "" {
		issue.Status = types.IssueOpen
	}
	return dbc.Conn(r.db).Create(issue).Error
}

func (r *issueRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Issue, error) {
	var out types.Issue
	err := dbc.Conn(r.db).Where("id = ?", id).First(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("issue %s: %w", id, nberrors.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *issueRepo) GetOpenForUpdate(dbc dbctx.Context, id uuid.UUID) (*types.Issue, error) {
	q := dbc.Conn(r.db)
	if q.Dialector.Name() == "postgres" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var out types.Issue
	err := q.Where("id = ? AND status = ?", id, types.IssueOpen).First(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("open issue %s: %w", id, nberrors.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *issueRepo) ListByTeacher(dbc dbctx.Context, teacherID uuid.UUID) ([]*types.Issue, error) {
	var out []*types.Issue
	if err := dbc.Conn(r.db).
		Where("teacher_id = ?", teacherID).
		Order("created_at DESC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *issueRepo) MarkStatus(dbc dbctx.Context, id uuid.UUID, status types.IssueStatus) error {
	res := dbc.Conn(r.db).
		Model(&types.Issue{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"status": status, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("issue %s: %w", id, nberrors.ErrNotFound)
	}
	return nil
}

// Delete soft-deletes the issue.
func (r *issueRepo) Delete(dbc dbctx.Context, id uuid.UUID) error {
	return dbc.Conn(r.db).Where("id = ?", id).Delete(&types.Issue{}).Error
}
