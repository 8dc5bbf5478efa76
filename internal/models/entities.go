// internal/models/entities.go
package models

// DimensionType describes the data type of a dimension's backing column.
type DimensionType string

const (
	DimensionTypeString  DimensionType = "string"
	DimensionTypeDate    DimensionType = "date"
	DimensionTypeEnum    DimensionType = "enum"
	DimensionTypeNumeric DimensionType = "numeric"
)

// MetricType describes how a metric's values are formatted and interpreted.
type MetricType string

const (
	MetricTypeCurrency   MetricType = "currency"
	MetricTypePercentage MetricType = "percentage"
	MetricTypeCount      MetricType = "count"
	MetricTypeNumber     MetricType = "number"
)

// Aggregation is an aggregation function applied to a metric.
type Aggregation string

const (
	AggregationSum           Aggregation = "sum"
	AggregationAvg           Aggregation = "avg"
	AggregationCount         Aggregation = "count"
	AggregationMin           Aggregation = "min"
	AggregationMax           Aggregation = "max"
	AggregationDistinctCount Aggregation = "distinct_count"
)

// Dimension is a groupable categorical field in the reporting schema.
// AllowedValues maps display values to backing values and is only populated
// for enum dimensions.
type Dimension struct {
	Name          string            `json:"name" yaml:"name"`
	BackingField  string            `json:"backingField" yaml:"backingField"`
	Synonyms      []string          `json:"synonyms,omitempty" yaml:"synonyms"`
	DataType      DimensionType     `json:"dataType" yaml:"dataType"`
	AllowedValues map[string]string `json:"allowedValues,omitempty" yaml:"allowedValues"`
}

// Metric is a numeric, aggregatable field in the reporting schema.
type Metric struct {
	Name               string      `json:"name" yaml:"name"`
	BackingField       string      `json:"backingField" yaml:"backingField"`
	DefaultAggregation Aggregation `json:"defaultAggregation" yaml:"defaultAggregation"`
	Synonyms           []string    `json:"synonyms,omitempty" yaml:"synonyms"`
	DataType           MetricType  `json:"dataType" yaml:"dataType"`
	FormatString       string      `json:"formatString,omitempty" yaml:"formatString"`
}

// EntityKind classifies what a candidate match refers to.
type EntityKind string

const (
	KindDimension  EntityKind = "dimension"
	KindMetric     EntityKind = "metric"
	KindTimeRange  EntityKind = "timeRange"
	KindFilter     EntityKind = "filterValue"
	KindComparison EntityKind = "comparisonOperator"
)

// Span is a half-open byte range [Start, End) into the original query text.
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Len returns the span length in bytes.
func (s Span) Len() int { return s.End - s.Start }

// Overlaps reports whether two spans share at least one byte.
func (s Span) Overlaps(o Span) bool {
	return s.Start < o.End && o.Start < s.End
}

// CandidateMatch is one possible interpretation of a span of query text.
// At most one of Dimension, Metric, TimeRange, Filter or Sort is set,
// according to Kind. Candidates live for a single resolution cycle.
type CandidateMatch struct {
	Span       Span       `json:"span"`
	Kind       EntityKind `json:"kind"`
	RawText    string     `json:"rawText"`
	Confidence float64    `json:"confidence"`

	Dimension *Dimension  `json:"dimension,omitempty"`
	Metric    *Metric     `json:"metric,omitempty"`
	TimeRange *TimeRange  `json:"timeRange,omitempty"`
	Filter    *Filter     `json:"filter,omitempty"`
	Sort      *SortCue    `json:"sort,omitempty"`
	Position  int         `json:"-"` // catalog declaration order, tie-break only
}

// SortCue captures a superlative or comparison phrase ("top 10",
// "more than 500") before it is bound to a metric.
type SortCue struct {
	Descending bool   `json:"descending"`
	Limit      int    `json:"limit,omitempty"`
	Operator   string `json:"operator,omitempty"`
	Value      string `json:"value,omitempty"`
}
