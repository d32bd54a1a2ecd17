package keywords

import types "github.com/yungbote/mentorbridge-backend/internal/domain"

// Mapping ties a lowercase keyword to the competency it signals.
type Mapping struct {
	Keyword    string               `yaml:"keyword" json:"keyword"`
	Competency types.CompetencyArea `yaml:"competency" json:"competency"`
	Confidence float64              `yaml:"confidence" json:"confidence"`
}

// Defaults is the seed table written when issue_competency_mapping is empty.
func Defaults() []Mapping {
	cm := types.CompetencyClassroomManagement
	ck := types.CompetencyContentKnowledge
	pd := types.CompetencyPedagogy
	tu := types.CompetencyTechnologyUsage
	se := types.CompetencyStudentEngagement
	return []Mapping{
		{"behavior", cm, 0.85},
		{"discipline", cm, 0.85},
		{"classroom management", cm, 0.95},
		{"students talking", cm, 0.80},
		{"noise", cm, 0.75},
		{"disruption", cm, 0.85},
		{"curriculum", ck, 0.80},
		{"content", ck, 0.75},
		{"subject matter", ck, 0.85},
		{"syllabus", ck, 0.80},
		{"teaching methods", pd, 0.85},
		{"pedagogy", pd, 0.95},
		{"lesson planning", pd, 0.85},
		{"active learning", pd, 0.85},
		{"assessment", pd, 0.75},
		{"technology", tu, 0.85},
		{"computer", tu, 0.80},
		{"digital tools", tu, 0.90},
		{"projector", tu, 0.75},
		{"software", tu, 0.80},
		{"engagement", se, 0.85},
		{"participation", se, 0.80},
		{"motivation", se, 0.85},
		{"attention", se, 0.75},
		{"focus", se, 0.75},
		{"interest", se, 0.80},
	}
}
