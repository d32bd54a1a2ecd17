package qdrant

import (
	"reflect"
	"testing"
)

func TestAndDropsEmptyConditions(t *testing.T) {
	f := And(Eq("module_id", "m1"), Eq("competency_area", ""), Eq("", "x"))
	got := f.asMap()
	want := map[string]any{
		"must": []any{
			map[string]any{"key": "module_id", "match": map[string]any{"value": "m1"}},
		},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("asMap mismatch:\nwant=%#v\ngot=%#v", want, got)
	}
}

func TestEmptyFilterRendersNil(t *testing.T) {
	if m := And(Eq("competency_area", "")).asMap(); m != nil {
		t.Fatalf("expected nil, got %#v", m)
	}
}
