package qdrant

import "strings"

// Filter is the subset of the Qdrant filter grammar the chunk index needs:
// conjunctions of keyword equality matches.
type Filter struct {
	Must []Condition
}

type Condition struct {
	Key   string
	Value any
}

// Eq builds an equality condition on a payload key.
func Eq(key string, value any) Condition {
	return Condition{Key: strings.TrimSpace(key), Value: value}
}

// And returns a filter requiring every condition. Conditions with an empty
// key or a nil/empty-string value are dropped so optional filters can be
// passed through unconditionally.
func And(conds ...Condition) Filter {
	var f Filter
	for _, c := range conds {
		if c.usable() {
			f.Must = append(f.Must, c)
		}
	}
	return f
}

func (f Filter) Empty() bool {
	return len(f.Must) == 0
}

func (c Condition) usable() bool {
	if c.Key == "" || c.Value == nil {
		return false
	}
	if s, ok := c.Value.(string); ok && strings.TrimSpace(s) == "" {
		return false
	}
	return true
}

// asMap renders the filter in Qdrant's JSON shape, or nil when empty.
func (f Filter) asMap() map[string]any {
	if f.Empty() {
		return nil
	}
	return map[string]any{"must": conditionsJSON(f.Must)}
}

func conditionsJSON(conds []Condition) []any {
	out := make([]any, 0, len(conds))
	for _, c := range conds {
		out = append(out, map[string]any{
			"key":   c.Key,
			"match": map[string]any{"value": c.Value},
		})
	}
	return out
}
