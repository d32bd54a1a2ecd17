package keywords

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/mentorbridge-backend/internal/data/repos/testutil"
	"github.com/yungbote/mentorbridge-backend/internal/data/repos/training"
	types "github.com/yungbote/mentorbridge-backend/internal/domain"
	"github.com/yungbote/mentorbridge-backend/internal/pkg/dbctx"
)

func TestDefaultsTable(t *testing.T) {
	d := Defaults()
	require.Len(t, d, 26)
	seen := map[string]bool{}
	for _, m := range d {
		assert.False(t, seen[m.Keyword], "duplicate keyword %q", m.Keyword)
		seen[m.Keyword] = true
		_, ok := types.ParseCompetency(string(m.Competency))
		assert.True(t, ok, "unknown competency for %q", m.Keyword)
	}
}

func TestClassifyPicksHighestConfidence(t *testing.T) {
	c := NewStatic(Defaults())

	got := c.Classify("Students lose FOCUS and there is constant noise and disruption")
	assert.Equal(t, types.CompetencyClassroomManagement, got.Competency)
	assert.InDelta(t, 0.85, got.Confidence, 1e-9)
	assert.InDelta(t, 0.75, got.Matches[types.CompetencyStudentEngagement], 1e-9)
	assert.Equal(t, []string{"disruption", "focus", "noise"}, got.Keywords)
	assert.False(t, got.Fallback)
}

func TestClassifyTieUsesTaxonomyOrder(t *testing.T) {
	c := NewStatic([]Mapping{
		{Keyword: "b", Competency: types.CompetencyStudentEngagement, Confidence: 0.8},
		{Keyword: "a", Competency: types.CompetencyPedagogy, Confidence: 0.8},
	})
	got := c.Classify("a b")
	assert.Equal(t, types.CompetencyPedagogy, got.Competency)
}

func TestClassifyFallsBack(t *testing.T) {
	got := NewStatic(Defaults()).Classify("the monsoon flooded the road")
	assert.True(t, got.Fallback)
	assert.Equal(t, types.CompetencyClassroomManagement, got.Competency)
	assert.Equal(t, FallbackConfidence, got.Confidence)
	assert.Empty(t, got.Matches)
}

func TestLoadSeedsEmptyTable(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	dbc := dbctx.With(context.Background(), tx)
	repo := training.NewIssueCompetencyMappingRepo(db, testutil.Logger(t))

	c := New(testutil.Logger(t), repo)
	require.NoError(t, c.Load(dbc, Mapping{Keyword: "Overcrowded", Competency: types.CompetencyClassroomManagement, Confidence: 0.7}))

	rows, err := repo.List(dbc)
	require.NoError(t, err)
	assert.Len(t, rows, 27)
	assert.Equal(t, types.CompetencyClassroomManagement, c.Classify("an overcrowded room").Competency)

	require.NoError(t, c.Load(dbc))
	rows, err = repo.List(dbc)
	require.NoError(t, err)
	assert.Len(t, rows, 27, "second load must not reseed")
}

func TestReadSeedFile(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.yaml")
	require.NoError(t, os.WriteFile(good, []byte("mappings:\n  - {keyword: chalk, competency: Technology_Usage, confidence: 0.6}\n"), 0o644))
	ms, err := ReadSeedFile(good)
	require.NoError(t, err)
	require.Len(t, ms, 1)
	assert.Equal(t, types.CompetencyTechnologyUsage, ms[0].Competency)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("mappings:\n  - {keyword: chalk, competency: art, confidence: 0.6}\n"), 0o644))
	_, err = ReadSeedFile(bad)
	assert.Error(t, err)
}

func TestSummarize(t *testing.T) {
	c := NewStatic(Defaults())
	teacher := uuid.New()
	var issues []*types.Issue
	for _, d := range []string{"noise", "noise and discipline", "low motivation", "rain", "projector broken", "syllabus too long"} {
		issues = append(issues, &types.Issue{ID: uuid.New(), TeacherID: teacher, Description: d, Status: types.IssueOpen})
	}
	s := c.Summarize(teacher, issues)
	assert.Equal(t, 6, s.TotalIssues)
	assert.Equal(t, PriorityHigh, s.Priority)
	assert.Equal(t, 1, s.UnmatchedCount)
	assert.InDelta(t, 0.75+0.85, s.GapScores[types.CompetencyClassroomManagement], 1e-9)
	assert.Len(t, s.Recent, 5)
	// "noise and discipline" hits classroom_management at 0.85.
	assert.Equal(t, 2, s.Recent[1].Scores[types.CompetencyClassroomManagement])
	assert.Equal(t, 7, s.Recent[1].Scores[types.CompetencyPedagogy])
	for _, area := range types.CompetencyAreas {
		assert.Equal(t, 7, s.Recent[3].Scores[area], "unmatched issue keeps the baseline for %s", area)
	}
	assert.Equal(t, PriorityMedium, PriorityFor(3))
	assert.Equal(t, PriorityLow, PriorityFor(2))
}

func TestAssessmentScores(t *testing.T) {
	s := AssessmentScores(map[types.CompetencyArea]float64{types.CompetencyPedagogy: 0.95})
	assert.Equal(t, 2, s[types.CompetencyPedagogy])
	assert.Equal(t, 7, s[types.CompetencyStudentEngagement])
}
