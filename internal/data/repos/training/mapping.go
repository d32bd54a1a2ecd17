package training

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/mentorbridge-backend/internal/domain"
	"github.com/yungbote/mentorbridge-backend/internal/pkg/dbctx"
	"github.com/yungbote/mentorbridge-backend/internal/platform/logger"
)

type IssueCompetencyMappingRepo interface {
	List(dbc dbctx.Context) ([]*types.IssueCompetencyMapping, error)
	// SeedMissing inserts rows whose keyword is not yet present. Existing
	// keywords keep their stored competency and confidence.
	SeedMissing(dbc dbctx.Context, rows []*types.IssueCompetencyMapping) error
}

type issueCompetencyMappingRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewIssueCompetencyMappingRepo(db *gorm.DB, baseLog *logger.Logger) IssueCompetencyMappingRepo {
	return &issueCompetencyMappingRepo{db: db, log: baseLog.With("repo", "IssueCompetencyMappingRepo")}
}

func (r *issueCompetencyMappingRepo) List(dbc dbctx.Context) ([]*types.IssueCompetencyMapping, error) {
	var out []*types.IssueCompetencyMapping
	if err := dbc.Conn(r.db).Order("issue_keyword ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *issueCompetencyMappingRepo) SeedMissing(dbc dbctx.Context, rows []*types.IssueCompetencyMapping) error {
	if len(rows) == 0 {
		return nil
	}
	return dbc.Conn(r.db).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "issue_keyword"}}, DoNothing: true}).
		Create(&rows).Error
}
