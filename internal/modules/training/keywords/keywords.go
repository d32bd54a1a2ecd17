// Package keywords classifies issue text into a competency area by keyword
// lookup. It is the fallback used when semantic matching finds nothing.
package keywords

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	types "github.com/yungbote/mentorbridge-backend/internal/domain"
	"github.com/yungbote/mentorbridge-backend/internal/pkg/dbctx"
	"github.com/yungbote/mentorbridge-backend/internal/platform/logger"
)

// FallbackConfidence is reported when no keyword matched.
const FallbackConfidence = 0.5

type Store interface {
	List(dbc dbctx.Context) ([]*types.IssueCompetencyMapping, error)
	SeedMissing(dbc dbctx.Context, rows []*types.IssueCompetencyMapping) error
}

type Classification struct {
	Competency types.CompetencyArea             `json:"competency_area"`
	Confidence float64                          `json:"confidence"`
	Matches    map[types.CompetencyArea]float64 `json:"matched_competencies"`
	Keywords   []string                         `json:"matched_keywords,omitempty"`
	Fallback   bool                             `json:"fallback"`
}

type Classifier struct {
	log   *logger.Logger
	store Store

	mu       sync.RWMutex
	mappings []Mapping
}

func New(log *logger.Logger, store Store) *Classifier {
	return &Classifier{log: log.With("service", "KeywordClassifier"), store: store}
}

// NewStatic builds a classifier over a fixed table with no backing store.
func NewStatic(mappings []Mapping) *Classifier {
	c := &Classifier{log: logger.Nop()}
	c.set(mappings)
	return c
}

// Load reads the mapping table, seeding the defaults plus any extra rows
// when the table is empty.
func (c *Classifier) Load(dbc dbctx.Context, extra ...Mapping) error {
	if c.store == nil {
		return nil
	}
	rows, err := c.store.List(dbc)
	if err != nil {
		return fmt.Errorf("list keyword mappings: %w", err)
	}
	if len(rows) == 0 || len(extra) > 0 {
		seed := extra
		if len(rows) == 0 {
			seed = append(Defaults(), extra...)
		}
		if err := c.store.SeedMissing(dbc, toRows(seed)); err != nil {
			return fmt.Errorf("seed keyword mappings: %w", err)
		}
		if rows, err = c.store.List(dbc); err != nil {
			return fmt.Errorf("list keyword mappings: %w", err)
		}
		c.log.Info("keyword mappings seeded", "count", len(rows))
	}
	out := make([]Mapping, 0, len(rows))
	for _, r := range rows {
		out = append(out, Mapping{Keyword: r.IssueKeyword, Competency: r.CompetencyArea, Confidence: r.ConfidenceScore})
	}
	c.set(out)
	return nil
}

func (c *Classifier) set(mappings []Mapping) {
	norm := make([]Mapping, 0, len(mappings))
	for _, m := range mappings {
		m.Keyword = strings.ToLower(strings.TrimSpace(m.Keyword))
		if m.Keyword == "" {
			continue
		}
		norm = append(norm, m)
	}
	c.mu.Lock()
	c.mappings = norm
	c.mu.Unlock()
}

// Classify matches text against every keyword by case-insensitive substring.
// Each competency scores the highest confidence among its matched keywords
// and the best competency wins; ties go to the earlier area in
// types.CompetencyAreas order.
func (c *Classifier) Classify(text string) Classification {
	lower := strings.ToLower(text)
	out := Classification{Matches: map[types.CompetencyArea]float64{}}

	c.mu.RLock()
	for _, m := range c.mappings {
		if !strings.Contains(lower, m.Keyword) {
			continue
		}
		out.Keywords = append(out.Keywords, m.Keyword)
		if cur, ok := out.Matches[m.Competency]; !ok || m.Confidence > cur {
			out.Matches[m.Competency] = m.Confidence
		}
	}
	c.mu.RUnlock()
	sort.Strings(out.Keywords)

	if len(out.Matches) == 0 {
		out.Competency = types.CompetencyClassroomManagement
		out.Confidence = FallbackConfidence
		out.Fallback = true
		return out
	}
	for _, area := range orderedAreas(out.Matches) {
		if conf := out.Matches[area]; out.Competency == "" || conf > out.Confidence {
			out.Competency, out.Confidence = area, conf
		}
	}
	return out
}

// orderedAreas lists the keys of m in taxonomy order, unknown areas last.
func orderedAreas(m map[types.CompetencyArea]float64) []types.CompetencyArea {
	out := make([]types.CompetencyArea, 0, len(m))
	for _, a := range types.CompetencyAreas {
		if _, ok := m[a]; ok {
			out = append(out, a)
		}
	}
	var rest []types.CompetencyArea
	for a := range m {
		if _, known := types.ParseCompetency(string(a)); !known {
			rest = append(rest, a)
		}
	}
	sort.Slice(rest, func(i, j int) bool { return rest[i] < rest[j] })
	return append(out, rest...)
}

type seedFile struct {
	Mappings []Mapping `yaml:"mappings"`
}

// ReadSeedFile parses a YAML file of the form
//
//	mappings:
//	  - {keyword: "overcrowded", competency: classroom_management, confidence: 0.8}
func ReadSeedFile(path string) ([]Mapping, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f seedFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	for i, m := range f.Mappings {
		area, ok := types.ParseCompetency(string(m.Competency))
		if !ok {
			return nil, fmt.Errorf("%s: mapping %d (%q): unknown competency %q", path, i, m.Keyword, m.Competency)
		}
		if m.Confidence <= 0 || m.Confidence > 1 {
			return nil, fmt.Errorf("%s: mapping %d (%q): confidence must be in (0,1]", path, i, m.Keyword)
		}
		f.Mappings[i].Competency = area
	}
	return f.Mappings, nil
}

func toRows(ms []Mapping) []*types.IssueCompetencyMapping {
	out := make([]*types.IssueCompetencyMapping, 0, len(ms))
	for _, m := range ms {
		out = append(out, &types.IssueCompetencyMapping{
			IssueKeyword:    strings.ToLower(strings.TrimSpace(m.Keyword)),
			CompetencyArea:  m.Competency,
			ConfidenceScore: m.Confidence,
		})
	}
	return out
}
