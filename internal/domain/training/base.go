package training

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// newIDIfNil fills a zero uuid on create. Ids are generated in Go rather
// than by a database default so the same models migrate on Postgres and
// SQLite.
func newIDIfNil(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}

func (t *Teacher) BeforeCreate(*gorm.DB) error                   { newIDIfNil(&t.ID); return nil }
func (c *Cluster) BeforeCreate(*gorm.DB) error                   { newIDIfNil(&c.ID); return nil }
func (a *TeacherTrainingAssignment) BeforeCreate(*gorm.DB) error { newIDIfNil(&a.ID); return nil }
func (p *PersonalizedTraining) BeforeCreate(*gorm.DB) error      { newIDIfNil(&p.ID); return nil }
func (i *Issue) BeforeCreate(*gorm.DB) error                     { newIDIfNil(&i.ID); return nil }
func (m *IssueCompetencyMapping) BeforeCreate(*gorm.DB) error    { newIDIfNil(&m.ID); return nil }
