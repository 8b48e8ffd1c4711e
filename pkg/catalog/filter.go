package catalog

import (
	"encoding/json"
	"fmt"
)

// ComparisonType tags how a filter value is matched. The semantics belong to
// the catalog service; the console only ever produces ComparisonEqual.
type ComparisonType int

const (
	// ComparisonEqual matches the attribute value exactly.
	ComparisonEqual ComparisonType = 0
)

func (c ComparisonType) String() string {
	if c == ComparisonEqual {
		return "equal"
	}
	return fmt.Sprintf("comparison(%d)", int(c))
}

// Filter is one filter criterion stored on a collection or offered by the
// catalog service.
type Filter struct {
	ID             string         `json:"id" yaml:"id"`
	Title          string         `json:"title" yaml:"title"`
	Value          string         `json:"value" yaml:"value"`
	ValueName      string         `json:"valueName" yaml:"valueName"`
	Currency       *string        `json:"currency" yaml:"currency,omitempty"`
	ComparisonType ComparisonType `json:"comparisonType" yaml:"comparisonType"`
}

// Label prefers the value name and falls back to the raw value.
func (f Filter) Label() string {
	if f.ValueName != "" {
		return f.ValueName
	}
	return f.Value
}

// FilterSet is the `{"filters": [...]}` wrapper used by the service.
type FilterSet struct {
	Filters []Filter `json:"filters" yaml:"filters"`
}

// UnmarshalJSON accepts both the wrapped object and a bare array.
func (s *FilterSet) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		s.Filters = nil
		return nil
	}
	var list []Filter
	if err := json.Unmarshal(data, &list); err == nil {
		s.Filters = list
		return nil
	}
	type plain FilterSet
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*s = FilterSet(p)
	return nil
}

// AdditionalFilter is a criterion sent with a catalog query.
type AdditionalFilter struct {
	ID             string         `json:"id"`
	Value          string         `json:"value"`
	ComparisonType ComparisonType `json:"comparisonType"`
}

// AsSelection converts stored collection filters into the option form used by
// the filter panel: the value doubles as id, the value name as title, no
// currency and equality comparison.
func AsSelection(filters []Filter) []Filter {
	out := make([]Filter, 0, len(filters))
	for _, f := range filters {
		out = append(out, Filter{
			ID:             f.Value,
			Title:          f.ValueName,
			Value:          f.Value,
			ValueName:      f.ValueName,
			ComparisonType: ComparisonEqual,
		})
	}
	return out
}
