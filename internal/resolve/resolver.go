// internal/resolve/resolver.go
package resolve

import (
	"fmt"
	"sort"
	"time"

	"nlq-resolver/internal/catalog"
	"nlq-resolver/internal/common/logger"
	"nlq-resolver/internal/extract"
	"nlq-resolver/internal/models"
)

// Outcome classifies a resolution attempt.
type Outcome string

const (
	// OutcomeComplete means every mandatory slot is filled unambiguously.
	OutcomeComplete Outcome = "complete"
	// OutcomeAmbiguous means a span of the text matched several catalog
	// entries too closely to pick one.
	OutcomeAmbiguous Outcome = "ambiguous"
	// OutcomeMissing means a mandatory slot has no candidate at all.
	OutcomeMissing Outcome = "missing"
)

// Params tunes resolution behavior.
type Params struct {
	// AmbiguityMargin is the minimum confidence gap between the best and
	// second-best candidate of a span for the best to win outright.
	AmbiguityMargin float64
	// DefaultRangeDays fills a missing time range with the trailing N
	// days. Zero disables the default and makes the range mandatory.
	DefaultRangeDays int
}

// Resolution is the outcome of one resolution pass. Unresolved is set
// exactly when Outcome is not Complete, and names the single slot that
// blocks completion.
type Resolution struct {
	Outcome    Outcome
	Slots      models.ResolvedSlots
	Unresolved *models.UnresolvedSlot
}

// Resolver turns extraction candidates into resolved query slots. It
// holds no per-query state and is safe for concurrent use.
type Resolver struct {
	cat    *catalog.Catalog
	params Params
	log    logger.Logger
	now    func() time.Time
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithNow fixes the clock used for the default time range.
func WithNow(now func() time.Time) Option {
	return func(r *Resolver) { r.now = now }
}

// New creates a Resolver over cat.
func New(cat *catalog.Catalog, params Params, log logger.Logger, opts ...Option) *Resolver {
	r := &Resolver{cat: cat, params: params, log: log, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve merges the candidates in res into base and decides the outcome.
// base carries slots confirmed in earlier clarification rounds; pass the
// zero value for a fresh query. Candidates competing for the same span are
// ranked by confidence, then span length, then catalog declaration order,
// and a near-tie within the ambiguity margin suspends resolution.
func (r *Resolver) Resolve(res extract.Result, base models.ResolvedSlots) Resolution {
	slots := base

	// All unambiguous clusters are applied even when one stalls, so a
	// clarification round only has to settle the contested span.
	var ambiguous *models.UnresolvedSlot
	for _, cluster := range clusterBySpan(res.Candidates) {
		if len(cluster) > 1 {
			rankCluster(cluster)
			top, second := cluster[0], cluster[1]
			if differentTargets(top, second) && top.Confidence-second.Confidence < r.params.AmbiguityMargin {
				if ambiguous == nil {
					ambiguous = &models.UnresolvedSlot{
						Kind:    slotKindOf(top),
						Reason:  models.ReasonAmbiguous,
						RawText: top.RawText,
						Options: optionNames(cluster),
					}
				}
				continue
			}
		}
		r.assign(&slots, cluster[0])
	}
	if ambiguous != nil {
		return Resolution{Outcome: OutcomeAmbiguous, Slots: slots, Unresolved: ambiguous}
	}

	if len(slots.Metrics) == 0 {
		return Resolution{
			Outcome: OutcomeMissing,
			Slots:   slots,
			Unresolved: &models.UnresolvedSlot{
				Kind:    models.SlotMetric,
				Reason:  models.ReasonMissing,
				RawText: firstUnknown(res.Unknown),
				Options: r.metricSuggestions(res.Unknown),
			},
		}
	}

	r.bindCues(&slots)

	if slots.TimeRange == nil {
		if r.params.DefaultRangeDays <= 0 {
			return Resolution{
				Outcome: OutcomeMissing,
				Slots:   slots,
				Unresolved: &models.UnresolvedSlot{
					Kind:   models.SlotTimeRange,
					Reason: models.ReasonMissing,
				},
			}
		}
		slots.TimeRange = r.defaultRange()
	}

	return Resolution{Outcome: OutcomeComplete, Slots: slots}
}

// clusterBySpan groups candidates whose spans overlap, preserving text
// order between clusters.
func clusterBySpan(cands []models.CandidateMatch) [][]models.CandidateMatch {
	if len(cands) == 0 {
		return nil
	}
	ordered := append([]models.CandidateMatch(nil), cands...)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Span.Start != ordered[j].Span.Start {
			return ordered[i].Span.Start < ordered[j].Span.Start
		}
		return ordered[i].Span.End < ordered[j].Span.End
	})

	var clusters [][]models.CandidateMatch
	current := []models.CandidateMatch{ordered[0]}
	end := ordered[0].Span.End
	for _, c := range ordered[1:] {
		if c.Span.Start < end {
			current = append(current, c)
			if c.Span.End > end {
				end = c.Span.End
			}
			continue
		}
		clusters = append(clusters, current)
		current = []models.CandidateMatch{c}
		end = c.Span.End
	}
	clusters = append(clusters, current)
	return clusters
}

func rankCluster(cluster []models.CandidateMatch) {
	sort.SliceStable(cluster, func(i, j int) bool {
		if cluster[i].Confidence != cluster[j].Confidence {
			return cluster[i].Confidence > cluster[j].Confidence
		}
		if cluster[i].Span.Len() != cluster[j].Span.Len() {
			return cluster[i].Span.Len() > cluster[j].Span.Len()
		}
		return cluster[i].Position < cluster[j].Position
	})
}

// differentTargets reports whether two candidates disagree about what the
// text means. Two readings of the same catalog entry are not ambiguous.
func differentTargets(a, b models.CandidateMatch) bool {
	return targetName(a) != targetName(b) || a.Kind != b.Kind
}

func targetName(c models.CandidateMatch) string {
	switch c.Kind {
	case models.KindMetric:
		return c.Metric.Name
	case models.KindDimension:
		return c.Dimension.Name
	case models.KindFilter:
		return c.Filter.DimensionName
	default:
		return c.RawText
	}
}

func slotKindOf(c models.CandidateMatch) models.SlotKind {
	switch c.Kind {
	case models.KindMetric:
		return models.SlotMetric
	case models.KindDimension:
		return models.SlotDimension
	case models.KindTimeRange:
		return models.SlotTimeRange
	default:
		return models.SlotFilter
	}
}

func optionNames(cluster []models.CandidateMatch) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, c := range cluster {
		name := targetName(c)
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}

func (r *Resolver) assign(slots *models.ResolvedSlots, c models.CandidateMatch) {
	switch c.Kind {
	case models.KindMetric:
		for _, m := range slots.Metrics {
			if m.Metric.Name == c.Metric.Name {
				return
			}
		}
		agg := c.Metric.DefaultAggregation
		if agg == "" {
			agg = models.AggregationSum
		}
		slots.Metrics = append(slots.Metrics, models.MetricSelection{Metric: *c.Metric, Aggregation: agg})

	case models.KindDimension:
		for _, d := range slots.Dimensions {
			if d.Name == c.Dimension.Name {
				return
			}
		}
		slots.Dimensions = append(slots.Dimensions, *c.Dimension)

	case models.KindTimeRange:
		// First range in text order wins; later ones are dropped.
		if slots.TimeRange == nil {
			tr := *c.TimeRange
			slots.TimeRange = &tr
		}

	case models.KindFilter:
		for _, f := range slots.Filters {
			if f.Field == c.Filter.Field && f.Value == c.Filter.Value {
				return
			}
		}
		slots.Filters = append(slots.Filters, *c.Filter)

	case models.KindComparison:
		if c.Sort.Operator != "" {
			slots.Filters = append(slots.Filters, models.Filter{
				Operator: models.FilterOperator(c.Sort.Operator),
				Value:    c.Sort.Value,
			})
			return
		}
		if slots.SortBy == nil {
			slots.SortBy = &models.SortSpec{Descending: c.Sort.Descending}
		}
		if c.Sort.Limit > 0 && slots.Limit == 0 {
			slots.Limit = c.Sort.Limit
		}
	}
}

// bindCues attaches metric-less sort and comparison cues to the first
// selected metric. A comparison filter left without a field becomes an
// aggregate threshold on that metric.
func (r *Resolver) bindCues(slots *models.ResolvedSlots) {
	anchor := slots.Metrics[0].Metric
	if slots.SortBy != nil && slots.SortBy.Metric == "" {
		slots.SortBy.Metric = anchor.Name
	}
	for i := range slots.Filters {
		if slots.Filters[i].Field == "" {
			slots.Filters[i].Field = anchor.BackingField
			slots.Filters[i].DimensionName = anchor.Name
		}
	}
}

func (r *Resolver) defaultRange() *models.TimeRange {
	day := r.now()
	day = time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	return &models.TimeRange{
		Start:       day.AddDate(0, 0, -r.params.DefaultRangeDays),
		End:         day,
		Granularity: "daily",
		Relative:    fmt.Sprintf("last_%d_days", r.params.DefaultRangeDays),
	}
}

func (r *Resolver) metricSuggestions(unknown []extract.Unknown) []string {
	for _, u := range unknown {
		if got := r.cat.Suggest(u.Text, models.SlotMetric, 3); len(got) > 0 {
			return got
		}
	}
	return r.cat.Suggest("", models.SlotMetric, 3)
}

func firstUnknown(unknown []extract.Unknown) string {
	if len(unknown) == 0 {
		return ""
	}
	return unknown[0].Text
}
