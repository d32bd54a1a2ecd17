package training

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/mentorbridge-backend/internal/domain"
	"github.com/yungbote/mentorbridge-backend/internal/pkg/dbctx"
	nberrors "github.com/yungbote/mentorbridge-backend/internal/pkg/errors"
	"github.com/yungbote/mentorbridge-backend/internal/platform/logger"
)

type TrainingModuleRepo interface {
	GetByID(dbc dbctx.Context, id string) (*types.TrainingModule, error)
	List(dbc dbctx.Context) ([]*types.TrainingModule, error)
	// FirstByCompetency returns the module with the lowest title in area, or
	// ErrNotFound.
	FirstByCompetency(dbc dbctx.Context, area types.CompetencyArea) (*types.TrainingModule, error)
	// Upsert inserts m or, when the id exists, overwrites its title,
	// competency area and description. A soft-deleted row is restored.
	// Ingestion columns are never touched.
	Upsert(dbc dbctx.Context, m *types.TrainingModule) error
	UpdateIngestion(dbc dbctx.Context, id string, chunkCount int, at time.Time) error
	// Delete soft-deletes the module row.
	Delete(dbc dbctx.Context, id string) error
}

type trainingModuleRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTrainingModuleRepo(db *gorm.DB, baseLog *logger.Logger) TrainingModuleRepo {
	return &trainingModuleRepo{db: db, log: baseLog.With("repo", "TrainingModuleRepo")}
}

func (r *trainingModuleRepo) GetByID(dbc dbctx.Context, id string) (*types.TrainingModule, error) {
	var out types.TrainingModule
	err := dbc.Conn(r.db).Where("id = ?", id).First(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("training module %s: %w", id, nberrors.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *trainingModuleRepo) List(dbc dbctx.Context) ([]*types.TrainingModule, error) {
	var out []*types.TrainingModule
	if err := dbc.Conn(r.db).Order("id ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *trainingModuleRepo) FirstByCompetency(dbc dbctx.Context, area types.CompetencyArea) (*types.TrainingModule, error) {
	var out types.TrainingModule
	err := dbc.Conn(r.db).
		Where("competency_area = ?", area).
		Order("title ASC").Order("id ASC").
		First(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("no module for competency %s: %w", area, nberrors.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *trainingModuleRepo) Upsert(dbc dbctx.Context, m *types.TrainingModule) error {
	if m == nil || m.ID == "" {
		return fmt.Errorf("module id required: %w", nberrors.ErrInvalidArgument)
	}
	return dbc.Conn(r.db).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"title", "competency_area", "description", "updated_at", "deleted_at"}),
		}).
		Create(m).Error
}

func (r *trainingModuleRepo) Delete(dbc dbctx.Context, id string) error {
	res := dbc.Conn(r.db).Where("id = ?", id).Delete(&types.TrainingModule{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("training module %s: %w", id, nberrors.ErrNotFound)
	}
	return nil
}

func (r *trainingModuleRepo) UpdateIngestion(dbc dbctx.Context, id string, chunkCount int, at time.Time) error {
	res := dbc.Conn(r.db).
		Model(&types.TrainingModule{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"chunk_count":     chunkCount,
			"last_pdf_upload": at.UTC(),
			"updated_at":      time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("training module %s: %w", id, nberrors.ErrNotFound)
	}
	return nil
}
