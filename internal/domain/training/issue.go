package training

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type IssueStatus string

const (
	IssueOpen             IssueStatus = "open"
	IssueTrainingAssigned IssueStatus = "training_assigned"
)

type Issue struct {
	ID             uuid.UUID   `gorm:"type:uuid;primaryKey" json:"id"`
	TeacherID      uuid.UUID   `gorm:"type:uuid;column:teacher_id;not null;index" json:"teacher_id"`
	Description    string      `gorm:"column:description;type:text;not null" json:"description"`
	CompetencyHint string      `gorm:"column:competency_hint" json:"competency_hint,omitempty"`
	Status         IssueStatus `gorm:"column:status;not null;default:open;index" json:"status"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Issue) TableName() string { return "issues" }

type IssueCompetencyMapping struct {
	ID              uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	IssueKeyword    string         `gorm:"column:issue_keyword;not null;uniqueIndex" json:"issue_keyword"`
	CompetencyArea  CompetencyArea `gorm:"column:competency_area;not null" json:"competency_area"`
	ConfidenceScore float64        `gorm:"column:confidence_score;not null" json:"confidence_score"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (IssueCompetencyMapping) TableName() string { return "issue_competency_mapping" }
