package training

import "strings"

type CompetencyArea string

const (
	CompetencyClassroomManagement CompetencyArea = "classroom_management"
	CompetencyContentKnowledge    CompetencyArea = "content_knowledge"
	CompetencyPedagogy            CompetencyArea = "pedagogy"
	CompetencyTechnologyUsage     CompetencyArea = "technology_usage"
	CompetencyStudentEngagement   CompetencyArea = "student_engagement"
)

// CompetencyAreas lists the fixed taxonomy in display order.
var CompetencyAreas = []CompetencyArea{
	CompetencyClassroomManagement,
	CompetencyContentKnowledge,
	CompetencyPedagogy,
	CompetencyTechnologyUsage,
	CompetencyStudentEngagement,
}

// ParseCompetency normalizes s and reports whether it names a known area.
func ParseCompetency(s string) (CompetencyArea, bool) {
	c := CompetencyArea(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range CompetencyAreas {
		if c == known {
			return c, true
		}
	}
	return "", false
}
