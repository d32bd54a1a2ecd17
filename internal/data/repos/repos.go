package repos

import (
	"github.com/yungbote/mentorbridge-backend/internal/data/repos/training"
	"github.com/yungbote/mentorbridge-backend/internal/platform/logger"
	"gorm.io/gorm"
)

type TeacherRepo = training.TeacherRepo
type ClusterRepo = training.ClusterRepo
type TrainingModuleRepo = training.TrainingModuleRepo
type AssignmentRepo = training.AssignmentRepo
type PersonalizedTrainingRepo = training.PersonalizedTrainingRepo
type IssueRepo = training.IssueRepo
type IssueCompetencyMappingRepo = training.IssueCompetencyMappingRepo

// Repos is the full set of relational repositories sharing one handle.
type Repos struct {
	Teacher              TeacherRepo
	Cluster              ClusterRepo
	Module               TrainingModuleRepo
	Assignment           AssignmentRepo
	PersonalizedTraining PersonalizedTrainingRepo
	Issue                IssueRepo
	Mapping              IssueCompetencyMappingRepo
}

func New(db *gorm.DB, log *logger.Logger) Repos {
	return Repos{
		Teacher:              training.NewTeacherRepo(db, log),
		Cluster:              training.NewClusterRepo(db, log),
		Module:               training.NewTrainingModuleRepo(db, log),
		Assignment:           training.NewAssignmentRepo(db, log),
		PersonalizedTraining: training.NewPersonalizedTrainingRepo(db, log),
		Issue:                training.NewIssueRepo(db, log),
		Mapping:              training.NewIssueCompetencyMappingRepo(db, log),
	}
}

var IsUniqueViolation = training.IsUniqueViolation
