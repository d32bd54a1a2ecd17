package db

import (
	"fmt"

	types "github.com/yungbote/mentorbridge-backend/internal/domain"
	"gorm.io/gorm"
)

func AutoMigrateAll(db *gorm.DB) error {
	if err := db.AutoMigrate(
		// =========================
		// People
		// =========================
		&types.Cluster{},
		&types.Teacher{},

		// =========================
		// Training catalogue
		// =========================
		&types.TrainingModule{},
		&types.IssueCompetencyMapping{},

		// =========================
		// Issue -> assignment -> content
		// =========================
		&types.Issue{},
		&types.TeacherTrainingAssignment{},
		&types.PersonalizedTraining{},
	); err != nil {
		return err
	}
	return EnsureTrainingIndexes(db)
}

// EnsureTrainingIndexes creates the indexes AutoMigrate cannot express. The
// statements are valid on both Postgres and SQLite.
func EnsureTrainingIndexes(db *gorm.DB) error {
	// One live assignment per teacher and module.
	if err := db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_assignment_teacher_module_live
		ON teacher_training_assignments (teacher_id, module_id)
		WHERE deleted_at IS NULL;
	`).Error; err != nil {
		return fmt.Errorf("create idx_assignment_teacher_module_live: %w", err)
	}

	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_issue_teacher_status
		ON issues (teacher_id, status)
		WHERE deleted_at IS NULL;
	`).Error; err != nil {
		return fmt.Errorf("create idx_issue_teacher_status: %w", err)
	}

	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_training_module_competency_title
		ON training_modules (competency_area, title);
	`).Error; err != nil {
		return fmt.Errorf("create idx_training_module_competency_title: %w", err)
	}
	return nil
}
