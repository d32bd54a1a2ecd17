package testutil

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	types "github.com/yungbote/mentorbridge-backend/internal/domain"
)

func SeedCluster(tb testing.TB, ctx context.Context, tx *gorm.DB) *types.Cluster {
	tb.Helper()
	c := &types.Cluster{
		ID:             uuid.New(),
		Name:           "Block A",
		Location:       "Sitapur, Uttar Pradesh",
		Language:       "Hindi",
		Dialect:        "Awadhi",
		Infrastructure: "No projector, intermittent electricity",
		ClassSize:      "55 students",
		CommonIssues:   "Seasonal absenteeism",
	}
	if err := tx.WithContext(ctx).Create(c).Error; err != nil {
		tb.Fatalf("seed cluster: %v", err)
	}
	return c
}

func SeedTeacher(tb testing.TB, ctx context.Context, tx *gorm.DB, clusterID *uuid.UUID) *types.Teacher {
	tb.Helper()
	t := &types.Teacher{
		ID:              uuid.New(),
		Name:            "Asha",
		Subject:         "Mathematics",
		ExperienceYears: 4,
		GapAreas:        datatypes.JSON([]byte(`["classroom_management"]`)),
		ClusterID:       clusterID,
	}
	if err := tx.WithContext(ctx).Create(t).Error; err != nil {
		tb.Fatalf("seed teacher: %v", err)
	}
	return t
}

func SeedModule(tb testing.TB, ctx context.Context, tx *gorm.DB, id, title string, area types.CompetencyArea) *types.TrainingModule {
	tb.Helper()
	m := &types.TrainingModule{
		ID:             id,
		Title:          title,
		CompetencyArea: area,
		Description:    "Static description of " + title,
	}
	if err := tx.WithContext(ctx).Create(m).Error; err != nil {
		tb.Fatalf("seed module: %v", err)
	}
	return m
}

func SeedAssignment(tb testing.TB, ctx context.Context, tx *gorm.DB, teacherID uuid.UUID, moduleID string, status types.AssignmentStatus) *types.TeacherTrainingAssignment {
	tb.Helper()
	a := &types.TeacherTrainingAssignment{
		ID:               uuid.New(),
		TeacherID:        teacherID,
		ModuleID:         moduleID,
		Status:           status,
		AssignmentReason: "seeded",
	}
	if err := tx.WithContext(ctx).Create(a).Error; err != nil {
		tb.Fatalf("seed assignment: %v", err)
	}
	return a
}

func SeedIssue(tb testing.TB, ctx context.Context, tx *gorm.DB, teacherID uuid.UUID, description string) *types.Issue {
	tb.Helper()
	i := &types.Issue{
		ID:          uuid.New(),
		TeacherID:   teacherID,
		Description: description,
		Status:      types.IssueOpen,
	}
	if err := tx.WithContext(ctx).Create(i).Error; err != nil {
		tb.Fatalf("seed issue: %v", err)
	}
	return i
}
