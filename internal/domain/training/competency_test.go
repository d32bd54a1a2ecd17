package training

import "testing"

func TestParseCompetency(t *testing.T) {
	if c, ok := ParseCompetency("  Pedagogy "); !ok || c != CompetencyPedagogy {
		t.Fatalf("ParseCompetency: got=%q ok=%v", c, ok)
	}
	if _, ok := ParseCompetency("cooking"); ok {
		t.Fatalf("unknown competency accepted")
	}
}
