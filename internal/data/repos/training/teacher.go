package training

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/mentorbridge-backend/internal/domain"
	"github.com/yungbote/mentorbridge-backend/internal/pkg/dbctx"
	nberrors "github.com/yungbote/mentorbridge-backend/internal/pkg/errors"
	"github.com/yungbote/mentorbridge-backend/internal/platform/logger"
)

type TeacherRepo interface {
	Create(dbc dbctx.Context, teachers []*types.Teacher) ([]*types.Teacher, error)
	// GetByID loads the teacher with its cluster. Returns ErrNotFound when
	// missing.
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Teacher, error)
}

type teacherRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTeacherRepo(db *gorm.DB, baseLog *logger.Logger) TeacherRepo {
	return &teacherRepo{db: db, log: baseLog.With("repo", "TeacherRepo")}
}

func (r *teacherRepo) Create(dbc dbctx.Context, teachers []*types.Teacher) ([]*types.Teacher, error) {
	if len(teachers) == 0 {
		return []*types.Teacher{}, nil
	}
	if err := dbc.Conn(r.db).Create(&teachers).Error; err != nil {
		return nil, err
	}
	return teachers, nil
}

func (r *teacherRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Teacher, error) {
	var out types.Teacher
	err := dbc.Conn(r.db).Preload("Cluster").Where("id = ?", id).First(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("teacher %s: %w", id, nberrors.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

type ClusterRepo interface {
	Create(dbc dbctx.Context, clusters []*types.Cluster) ([]*types.Cluster, error)
}

type clusterRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewClusterRepo(db *gorm.DB, baseLog *logger.Logger) ClusterRepo {
	return &clusterRepo{db: db, log: baseLog.With("repo", "ClusterRepo")}
}

func (r *clusterRepo) Create(dbc dbctx.Context, clusters []*types.Cluster) ([]*types.Cluster, error) {
	if len(clusters) == 0 {
		return []*types.Cluster{}, nil
	}
	if err := dbc.Conn(r.db).Create(&clusters).Error; err != nil {
		return nil, err
	}
	return clusters, nil
}
