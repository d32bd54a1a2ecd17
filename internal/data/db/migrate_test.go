package db_test

import (
	"context"
	"testing"

	"github.com/yungbote/mentorbridge-backend/internal/data/db"
	"github.com/yungbote/mentorbridge-backend/internal/data/repos/testutil"
	types "github.com/yungbote/mentorbridge-backend/internal/domain"
)

func TestAutoMigrateIsRepeatable(t *testing.T) {
	conn := testutil.DB(t)
	if err := db.AutoMigrateAll(conn); err != nil {
		t.Fatalf("second AutoMigrateAll: %v", err)
	}
	for _, table := range []string{"teachers", "clusters", "training_modules", "teacher_training_assignments", "personalized_training", "issues", "issue_competency_mapping"} {
		if !conn.Migrator().HasTable(table) {
			t.Fatalf("missing table %s", table)
		}
	}
}

func TestLiveAssignmentIndexAllowsReassignAfterSoftDelete(t *testing.T) {
	conn := testutil.DB(t)
	ctx := context.Background()
	teacher := testutil.SeedTeacher(t, ctx, conn, nil)

	old := testutil.SeedAssignment(t, ctx, conn, teacher.ID, "M-1", types.AssignmentCompleted)
	if err := conn.Delete(old).Error; err != nil {
		t.Fatalf("soft delete: %v", err)
	}
	testutil.SeedAssignment(t, ctx, conn, teacher.ID, "M-1", types.AssignmentNotStarted)

	dup := &types.TeacherTrainingAssignment{TeacherID: teacher.ID, ModuleID: "M-1", Status: types.AssignmentNotStarted}
	if err := conn.Create(dup).Error; err == nil {
		t.Fatalf("second live assignment for the same pair must be rejected")
	}
}
