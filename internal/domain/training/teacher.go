package training

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Cluster struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name           string    `gorm:"column:name;not null" json:"name"`
	Location       string    `gorm:"column:location" json:"location"`
	Language       string    `gorm:"column:language" json:"language"`
	Dialect        string    `gorm:"column:dialect" json:"dialect"`
	Infrastructure string    `gorm:"column:infrastructure" json:"infrastructure"`
	ClassSize      string    `gorm:"column:class_size" json:"class_size"`
	CommonIssues   string    `gorm:"column:common_issues;type:text" json:"common_issues"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Cluster) TableName() string { return "clusters" }

type Teacher struct {
	ID              uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Name            string         `gorm:"column:name;not null" json:"name"`
	Subject         string         `gorm:"column:subject" json:"subject"`
	ExperienceYears int            `gorm:"column:experience_years" json:"experience_years"`
	GapAreas        datatypes.JSON `gorm:"column:gap_areas;type:jsonb" json:"gap_areas"`
	ClusterID       *uuid.UUID     `gorm:"type:uuid;column:cluster_id;index" json:"cluster_id,omitempty"`
	Cluster         *Cluster       `gorm:"foreignKey:ClusterID;references:ID" json:"cluster,omitempty"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Teacher) TableName() string { return "teachers" }
