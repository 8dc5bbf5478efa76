// internal/catalog/catalog.go
package catalog

import (
	"fmt"
	"sort"
	"strings"
	"sync/atomic"

	"nlq-resolver/internal/common/errors"
	"nlq-resolver/internal/common/logger"
	"nlq-resolver/internal/models"
)

// Document is the decoded form of a catalog source: the full set of metric
// and dimension definitions, in declaration order.
type Document struct {
	Metrics    []models.Metric    `json:"metrics" yaml:"metrics"`
	Dimensions []models.Dimension `json:"dimensions" yaml:"dimensions"`
}

// Entry is one catalog item: exactly one of Metric or Dimension is set.
// Position is the declaration index across the whole document and serves as
// the deterministic final tie-break during resolution.
type Entry struct {
	Metric    *models.Metric
	Dimension *models.Dimension
	Position  int
}

// Name returns the entry's canonical name.
func (e *Entry) Name() string {
	if e.Metric != nil {
		return e.Metric.Name
	}
	return e.Dimension.Name
}

// IsMetric reports whether the entry is a metric.
func (e *Entry) IsMetric() bool { return e.Metric != nil }

// Match pairs an entry with the confidence of the lookup that found it.
type Match struct {
	Entry      *Entry
	Confidence float64
}

// snapshot is an immutable view of the catalog. Readers hold one snapshot
// for the duration of an operation; reloads swap the whole snapshot.
type snapshot struct {
	entries   []*Entry
	byTerm    map[string]*Entry // canonical names and synonyms, lowercased
	terms     []termRef         // declaration order, for fuzzy scans
	enumDims  []*Entry
	maxWindow int // longest term length in words
}

type termRef struct {
	term  string
	entry *Entry
}

// Params configures a Catalog.
type Params struct {
	// Threshold is the minimum similarity a fuzzy match must reach to be
	// accepted at all. Below it, a lookup reports no result.
	Threshold float64
	// Similarity overrides the default scoring function when set.
	Similarity SimilarityFunc
}

// Catalog is the domain knowledge base: a read-mostly lookup structure over
// known dimensions and metrics. Lookups never fail with an error — absence
// is an empty result. Load atomically replaces the whole structure, so
// concurrent readers never observe a partial catalog.
type Catalog struct {
	current    atomic.Pointer[snapshot]
	similarity SimilarityFunc
	threshold  float64
	log        logger.Logger
}

// New creates an empty catalog. Call Load before first use.
func New(params Params, log logger.Logger) *Catalog {
	sim := params.Similarity
	if sim == nil {
		sim = Similarity
	}
	c := &Catalog{
		similarity: sim,
		threshold:  params.Threshold,
		log:        log.WithFields(map[string]interface{}{"component": "catalog"}),
	}
	c.current.Store(&snapshot{byTerm: map[string]*Entry{}})
	return c
}

// Load validates the document and atomically swaps it in. On a validation
// error the previous snapshot stays in place.
func (c *Catalog) Load(doc Document) error {
	snap, err := buildSnapshot(doc)
	if err != nil {
		return err
	}

	c.current.Store(snap)
	c.log.Info("catalog loaded", map[string]interface{}{
		"metrics":    len(doc.Metrics),
		"dimensions": len(doc.Dimensions),
		"terms":      len(snap.terms),
	})
	return nil
}

func buildSnapshot(doc Document) (*snapshot, error) {
	snap := &snapshot{byTerm: make(map[string]*Entry)}

	register := func(entry *Entry, term string) error {
		key := strings.ToLower(strings.TrimSpace(term))
		if key == "" {
			return fmt.Errorf("%w: entry %q has an empty term", errors.ErrCatalogInvalid, entry.Name())
		}
		if existing, ok := snap.byTerm[key]; ok && existing != entry {
			return fmt.Errorf("%w: term %q maps to both %q and %q",
				errors.ErrCatalogInvalid, key, existing.Name(), entry.Name())
		}
		snap.byTerm[key] = entry
		snap.terms = append(snap.terms, termRef{term: key, entry: entry})
		if words := len(strings.Fields(key)); words > snap.maxWindow {
			snap.maxWindow = words
		}
		return nil
	}

	pos := 0
	for i := range doc.Metrics {
		m := doc.Metrics[i]
		if m.DefaultAggregation == "" {
			m.DefaultAggregation = models.AggregationSum
		}
		entry := &Entry{Metric: &m, Position: pos}
		pos++
		snap.entries = append(snap.entries, entry)
		if err := register(entry, m.Name); err != nil {
			return nil, err
		}
		for _, syn := range m.Synonyms {
			if err := register(entry, syn); err != nil {
				return nil, err
			}
		}
	}

	for i := range doc.Dimensions {
		d := doc.Dimensions[i]
		if len(d.AllowedValues) > 0 && d.DataType != models.DimensionTypeEnum {
			return nil, fmt.Errorf("%w: dimension %q has allowed values but type %q",
				errors.ErrCatalogInvalid, d.Name, d.DataType)
		}
		entry := &Entry{Dimension: &d, Position: pos}
		pos++
		snap.entries = append(snap.entries, entry)
		if err := register(entry, d.Name); err != nil {
			return nil, err
		}
		for _, syn := range d.Synonyms {
			if err := register(entry, syn); err != nil {
				return nil, err
			}
		}
		if d.DataType == models.DimensionTypeEnum {
			snap.enumDims = append(snap.enumDims, entry)
		}
	}

	return snap, nil
}

// Lookup finds the catalog entry closest to term. Exact name or synonym
// matches score 1.0; otherwise the best fuzzy score at or above the
// threshold wins. The scan runs in declaration order and keeps the first of
// equal scores, so results are deterministic.
func (c *Catalog) Lookup(term string) (Match, bool) {
	snap := c.current.Load()
	key := strings.ToLower(strings.TrimSpace(term))
	if key == "" {
		return Match{}, false
	}

	if entry, ok := snap.byTerm[key]; ok {
		return Match{Entry: entry, Confidence: 1.0}, true
	}

	var best Match
	for _, ref := range snap.terms {
		score := c.similarity(key, ref.term)
		if score >= c.threshold && score > best.Confidence {
			best = Match{Entry: ref.entry, Confidence: score}
		}
	}
	if best.Entry == nil {
		return Match{}, false
	}
	return best, true
}

// LookupAll returns every entry scoring at or above the threshold for
// term, best first, one Match per entry. An exact hit short-circuits to a
// single 1.0 match. Callers that care about near-ties between entries use
// this instead of Lookup.
func (c *Catalog) LookupAll(term string) []Match {
	snap := c.current.Load()
	key := strings.ToLower(strings.TrimSpace(term))
	if key == "" {
		return nil
	}

	if entry, ok := snap.byTerm[key]; ok {
		return []Match{{Entry: entry, Confidence: 1.0}}
	}

	best := make(map[*Entry]float64)
	for _, ref := range snap.terms {
		score := c.similarity(key, ref.term)
		if score >= c.threshold && score > best[ref.entry] {
			best[ref.entry] = score
		}
	}
	if len(best) == 0 {
		return nil
	}

	matches := make([]Match, 0, len(best))
	for entry, score := range best {
		matches = append(matches, Match{Entry: entry, Confidence: score})
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Confidence != matches[j].Confidence {
			return matches[i].Confidence > matches[j].Confidence
		}
		return matches[i].Entry.Position < matches[j].Entry.Position
	})
	return matches
}

// AllowedValuesFor returns the display-to-backing value mapping of an enum
// dimension, or nil for non-enum or unknown dimensions.
func (c *Catalog) AllowedValuesFor(dimensionName string) map[string]string {
	snap := c.current.Load()
	for _, e := range snap.entries {
		if e.Dimension != nil && strings.EqualFold(e.Dimension.Name, dimensionName) {
			return e.Dimension.AllowedValues
		}
	}
	return nil
}

// ResolveEnumValue matches raw text against a dimension's allowed values
// using the catalog's fuzzy policy. Both display and backing values are
// accepted. The returned value is the backing value, with the similarity
// score that selected it.
func (c *Catalog) ResolveEnumValue(dim *models.Dimension, raw string) (string, float64, bool) {
	if dim == nil || len(dim.AllowedValues) == 0 {
		return "", 0, false
	}
	key := strings.ToLower(strings.TrimSpace(raw))
	if key == "" {
		return "", 0, false
	}

	var bestValue string
	var bestScore float64
	// Deterministic scan: allowed values sorted by display key.
	for _, display := range sortedKeys(dim.AllowedValues) {
		backing := dim.AllowedValues[display]
		score := c.similarity(key, display)
		if s := c.similarity(key, backing); s > score {
			score = s
		}
		if score >= c.threshold && score > bestScore {
			bestScore = score
			bestValue = backing
		}
	}
	if bestValue == "" {
		return "", 0, false
	}
	return bestValue, bestScore, true
}

// EnumDimensions lists dimensions carrying allowed values, in declaration
// order. The extractor scans these for filter-value candidates.
func (c *Catalog) EnumDimensions() []*Entry {
	return c.current.Load().enumDims
}

// Entries returns all catalog entries in declaration order.
func (c *Catalog) Entries() []*Entry {
	return c.current.Load().entries
}

// MaxWindow returns the word count of the longest registered term, bounding
// the extractor's multi-word window scan.
func (c *Catalog) MaxWindow() int {
	w := c.current.Load().maxWindow
	if w < 1 {
		return 1
	}
	return w
}

// Threshold returns the fuzzy acceptance threshold.
func (c *Catalog) Threshold() float64 { return c.threshold }

// Suggest returns up to n entry names nearest to term, metrics-only or
// dimensions-only according to kind. With an empty term it returns the
// first n entries of that kind in declaration order. Used to populate
// clarification prompts.
func (c *Catalog) Suggest(term string, kind models.SlotKind, n int) []string {
	snap := c.current.Load()
	key := strings.ToLower(strings.TrimSpace(term))

	type scored struct {
		name  string
		score float64
		pos   int
	}
	var candidates []scored
	seen := make(map[string]struct{})
	for _, e := range snap.entries {
		if kind == models.SlotMetric && !e.IsMetric() {
			continue
		}
		if kind == models.SlotDimension && e.IsMetric() {
			continue
		}
		if _, ok := seen[e.Name()]; ok {
			continue
		}
		seen[e.Name()] = struct{}{}

		score := 0.0
		if key != "" {
			score = c.similarity(key, strings.ToLower(e.Name()))
			for _, syn := range e.synonyms() {
				if s := c.similarity(key, syn); s > score {
					score = s
				}
			}
			if score == 0 {
				continue
			}
		}
		candidates = append(candidates, scored{name: e.Name(), score: score, pos: e.Position})
	}

	// Stable order: score descending, then declaration order.
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].pos < candidates[j].pos
	})

	if n > len(candidates) {
		n = len(candidates)
	}
	out := make([]string, 0, n)
	for _, s := range candidates[:n] {
		out = append(out, s.name)
	}
	return out
}

func (e *Entry) synonyms() []string {
	if e.Metric != nil {
		return e.Metric.Synonyms
	}
	return e.Dimension.Synonyms
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
