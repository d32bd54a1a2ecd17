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

type PersonalizedTrainingRepo interface {
	// UpsertByAssignment writes row, replacing the content of any existing
	// row for the same assignment.
	UpsertByAssignment(dbc dbctx.Context, row *types.PersonalizedTraining) error
	GetByAssignment(dbc dbctx.Context, assignmentID uuid.UUID) (*types.PersonalizedTraining, error)
}

type personalizedTrainingRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPersonalizedTrainingRepo(db *gorm.DB, baseLog *logger.Logger) PersonalizedTrainingRepo {
	return &personalizedTrainingRepo{db: db, log: baseLog.With("repo", "PersonalizedTrainingRepo")}
}

func (r *personalizedTrainingRepo) UpsertByAssignment(dbc dbctx.Context, row *types.PersonalizedTraining) error {
	if row == nil || row.AssignmentID == uuid.Nil {
		return fmt.Errorf("assignment id required: %w", nberrors.ErrInvalidArgument)
	}
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	row.UpdatedAt = time.Now().UTC()

	return dbc.Conn(r.db).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "assignment_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"teacher_id",
				"module_id",
				"issue_id",
				"personalized_content",
				"adaptation_metadata",
				"generated",
				"updated_at",
			}),
		}).
		Create(row).Error
}

func (r *personalizedTrainingRepo) GetByAssignment(dbc dbctx.Context, assignmentID uuid.UUID) (*types.PersonalizedTraining, error) {
	var out types.PersonalizedTraining
	err := dbc.Conn(r.db).Where("assignment_id = ?", assignmentID).First(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("personalized training for %s: %w", assignmentID, nberrors.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}
