package keywords

import (
	"time"

	"github.com/google/uuid"

	types "github.com/yungbote/mentorbridge-backend/internal/domain"
)

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// PriorityFor grades a teacher by how many issues they reported.
func PriorityFor(issueCount int) Priority {
	switch {
	case issueCount >= 5:
		return PriorityHigh
	case issueCount >= 3:
		return PriorityMedium
	default:
		return PriorityLow
	}
}

type IssueDigest struct {
	IssueID     uuid.UUID                    `json:"issue_id"`
	Description string                       `json:"issue"`
	Status      types.IssueStatus            `json:"status"`
	Matched     []types.CompetencyArea       `json:"matched_competencies"`
	Scores      map[types.CompetencyArea]int `json:"assessment_scores"`
	CreatedAt   time.Time                    `json:"created_at"`
}

type Summary struct {
	TeacherID      uuid.UUID                        `json:"teacher_id"`
	TotalIssues    int                              `json:"total_issues"`
	GapScores      map[types.CompetencyArea]float64 `json:"gap_scores"`
	UnmatchedCount int                              `json:"unmatched_feedback_count"`
	Priority       Priority                         `json:"priority"`
	Recent         []IssueDigest                    `json:"issue_summary"`
}

const summaryRecent = 5

// Summarize accumulates keyword confidence per competency across every
// issue of one teacher. Issues are expected newest first; Recent keeps the
// first five.
func (c *Classifier) Summarize(teacherID uuid.UUID, issues []*types.Issue) Summary {
	s := Summary{
		TeacherID:   teacherID,
		TotalIssues: len(issues),
		GapScores:   map[types.CompetencyArea]float64{},
		Priority:    PriorityFor(len(issues)),
		Recent:      []IssueDigest{},
	}
	for _, area := range types.CompetencyAreas {
		s.GapScores[area] = 0
	}
	for _, is := range issues {
		cls := c.Classify(is.Description)
		if cls.Fallback {
			s.UnmatchedCount++
		}
		matched := orderedAreas(cls.Matches)
		for _, area := range matched {
			s.GapScores[area] += cls.Matches[area]
		}
		if len(s.Recent) < summaryRecent {
			s.Recent = append(s.Recent, IssueDigest{
				IssueID:     is.ID,
				Description: is.Description,
				Status:      is.Status,
				Matched:     matched,
				Scores:      AssessmentScores(cls.Matches),
				CreatedAt:   is.CreatedAt,
			})
		}
	}
	return s
}

// AssessmentScores turns matched confidences into 0..10 competency scores:
// unmatched areas sit at 7, matched ones lose up to 5 points.
func AssessmentScores(matches map[types.CompetencyArea]float64) map[types.CompetencyArea]int {
	const baseline = 7.0
	out := make(map[types.CompetencyArea]int, len(types.CompetencyAreas))
	for _, area := range types.CompetencyAreas {
		score := baseline
		if conf, ok := matches[area]; ok {
			score = baseline - conf*5
		}
		if score < 0 {
			score = 0
		}
		if score > 10 {
			score = 10
		}
		out[area] = int(score)
	}
	return out
}
