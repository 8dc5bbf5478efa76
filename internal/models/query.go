// internal/models/query.go
package models

import "time"

// TimeRange is an inclusive [Start, End] date interval. Granularity is a
// reporting hint (hourly, daily, monthly) derived from the phrase that
// produced the range.
type TimeRange struct {
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	Granularity string    `json:"granularity,omitempty"`
	Relative    string    `json:"relativePeriod,omitempty"`
}

// FilterOperator is a comparison applied to a filter field.
type FilterOperator string

const (
	OpEquals      FilterOperator = "="
	OpGreaterThan FilterOperator = ">"
	OpLessThan    FilterOperator = "<"
	OpContains    FilterOperator = "contains"
	OpIn          FilterOperator = "in"
)

// Filter constrains a query to rows where Field matches Value.
// DimensionName is the catalog name the field came from, kept for
// clarification prompts.
type Filter struct {
	Field         string         `json:"field"`
	Operator      FilterOperator `json:"operator"`
	Value         string         `json:"value"`
	DimensionName string         `json:"dimension,omitempty"`
}

// MetricSelection is a metric with its resolved aggregation.
type MetricSelection struct {
	Metric      Metric      `json:"metric"`
	Aggregation Aggregation `json:"aggregation"`
}

// SortSpec orders results by a metric.
type SortSpec struct {
	Metric     string `json:"metric"`
	Descending bool   `json:"descending"`
}

// StructuredQuery is the fully resolved, schema-bound representation of the
// user's intent. It is immutable once produced and is the sole contract
// handed to the reporting engine. Dimension order is grouping order.
type StructuredQuery struct {
	Dimensions []Dimension       `json:"dimensions,omitempty"`
	Metrics    []MetricSelection `json:"metrics"`
	Filters    []Filter          `json:"filters,omitempty"`
	TimeRange  TimeRange         `json:"timeRange"`
	SortBy     *SortSpec         `json:"sortBy,omitempty"`
	Limit      int               `json:"limit,omitempty"`
}

// SlotKind names a semantic role a structured query needs filled.
type SlotKind string

const (
	SlotMetric    SlotKind = "metric"
	SlotDimension SlotKind = "dimension"
	SlotTimeRange SlotKind = "timeRange"
	SlotFilter    SlotKind = "filter"
)

// ResolvedSlots accumulates the confirmed parts of a query across one or
// more clarification rounds.
type ResolvedSlots struct {
	Dimensions []Dimension       `json:"dimensions,omitempty"`
	Metrics    []MetricSelection `json:"metrics,omitempty"`
	Filters    []Filter          `json:"filters,omitempty"`
	TimeRange  *TimeRange        `json:"timeRange,omitempty"`
	SortBy     *SortSpec         `json:"sortBy,omitempty"`
	Limit      int               `json:"limit,omitempty"`
}

// UnresolvedReason distinguishes a slot that matched several catalog
// entries from one that matched none.
type UnresolvedReason string

const (
	ReasonAmbiguous UnresolvedReason = "ambiguous"
	ReasonMissing   UnresolvedReason = "missing"
)

// UnresolvedSlot is the single outstanding slot blocking completion.
// Options carries the competing or suggested catalog entry names in
// deterministic order.
type UnresolvedSlot struct {
	Kind    SlotKind         `json:"kind"`
	Reason  UnresolvedReason `json:"reason"`
	RawText string           `json:"rawText,omitempty"`
	Options []string         `json:"options,omitempty"`
}

// Query builds the immutable StructuredQuery from completed slots.
func (s *ResolvedSlots) Query() StructuredQuery {
	q := StructuredQuery{
		Dimensions: append([]Dimension(nil), s.Dimensions...),
		Metrics:    append([]MetricSelection(nil), s.Metrics...),
		Filters:    append([]Filter(nil), s.Filters...),
		SortBy:     s.SortBy,
		Limit:      s.Limit,
	}
	if s.TimeRange != nil {
		q.TimeRange = *s.TimeRange
	}
	return q
}
