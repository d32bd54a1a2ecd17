package training

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// PersonalizedTraining holds the generated content for one assignment. A
// regeneration overwrites the row in place.
type PersonalizedTraining struct {
	ID                 uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	AssignmentID       uuid.UUID      `gorm:"type:uuid;column:assignment_id;not null;uniqueIndex" json:"assignment_id"`
	TeacherID          uuid.UUID      `gorm:"type:uuid;column:teacher_id;not null;index" json:"teacher_id"`
	ModuleID           string         `gorm:"column:module_id;not null;index" json:"module_id"`
	IssueID            *uuid.UUID     `gorm:"type:uuid;column:issue_id" json:"issue_id,omitempty"`
	Content            string         `gorm:"column:personalized_content;type:text;not null" json:"personalized_content"`
	AdaptationMetadata datatypes.JSON `gorm:"column:adaptation_metadata;type:jsonb" json:"adaptation_metadata"`
	Generated          bool           `gorm:"column:generated;not null;default:false" json:"generated"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (PersonalizedTraining) TableName() string { return "personalized_training" }
