package training

import (
	"time"

	"gorm.io/gorm"
)

// TrainingModule ids are chosen by whoever uploads the module PDF (for
// example "CM-101"), so they are text rather than uuids.
type TrainingModule struct {
	ID             string         `gorm:"column:id;primaryKey" json:"id"`
	Title          string         `gorm:"column:title;not null" json:"title"`
	CompetencyArea CompetencyArea `gorm:"column:competency_area;not null;index" json:"competency_area"`
	Description    string         `gorm:"column:description;type:text" json:"description"`
	ChunkCount     int            `gorm:"column:chunk_count;not null;default:0" json:"chunk_count"`
	LastPDFUpload  *time.Time     `gorm:"column:last_pdf_upload" json:"last_pdf_upload,omitempty"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (TrainingModule) TableName() string { return "training_modules" }
