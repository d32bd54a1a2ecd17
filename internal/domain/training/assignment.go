package training

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AssignmentStatus string

const (
	AssignmentNotStarted AssignmentStatus = "not_started"
	AssignmentInProgress AssignmentStatus = "in_progress"
	AssignmentCompleted  AssignmentStatus = "completed"
)

// TeacherTrainingAssignment links a teacher to a module. At most one live
// row exists per (teacher_id, module_id); see EnsureTrainingIndexes.
type TeacherTrainingAssignment struct {
	ID                 uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	TeacherID          uuid.UUID        `gorm:"type:uuid;column:teacher_id;not null;index" json:"teacher_id"`
	ModuleID           string           `gorm:"column:module_id;not null;index" json:"module_id"`
	Module             *TrainingModule  `gorm:"foreignKey:ModuleID;references:ID" json:"module,omitempty"`
	Status             AssignmentStatus `gorm:"column:status;not null;default:not_started" json:"status"`
	ProgressPercentage int              `gorm:"column:progress_percentage;not null;default:0" json:"progress_percentage"`
	SourceIssueID      *uuid.UUID       `gorm:"type:uuid;column:source_issue_id" json:"source_issue_id,omitempty"`
	AssignmentReason   string           `gorm:"column:assignment_reason;type:text" json:"assignment_reason"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (TeacherTrainingAssignment) TableName() string { return "teacher_training_assignments" }
