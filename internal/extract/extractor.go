// internal/extract/extractor.go
package extract

import (
	"strconv"
	"strings"
	"time"

	"nlq-resolver/internal/catalog"
	"nlq-resolver/internal/common/logger"
	"nlq-resolver/internal/models"
)

// stopwords are tokens that carry no analytical meaning on their own and
// are never reported as unknown terms. The domain nouns at the end appear
// in almost every gaming query without changing its structure.
var stopwords = map[string]bool{
	"a": true, "an": true, "the": true, "of": true, "for": true, "by": true,
	"in": true, "on": true, "at": true, "to": true, "from": true, "with": true,
	"and": true, "or": true, "per": true, "each": true, "all": true,
	"show": true, "me": true, "give": true, "list": true, "display": true,
	"what": true, "which": true, "how": true, "many": true, "much": true,
	"is": true, "are": true, "was": true, "were": true, "did": true, "do": true,
	"player": true, "players": true, "user": true, "users": true,
	"customer": true, "customers": true,
}

// descendingCues and ascendingCues introduce a superlative phrase, usually
// followed by a limit ("top 10", "worst 5").
var descendingCues = map[string]bool{
	"top": true, "best": true, "highest": true, "largest": true, "biggest": true,
}
var ascendingCues = map[string]bool{
	"bottom": true, "worst": true, "lowest": true, "smallest": true,
}

// comparisonCues map comparison phrases, as token sequences, to filter
// operators. Longer phrases are matched first.
var comparisonCues = []struct {
	words []string
	op    models.FilterOperator
}{
	{[]string{"more", "than"}, models.OpGreaterThan},
	{[]string{"greater", "than"}, models.OpGreaterThan},
	{[]string{"at", "least"}, models.OpGreaterThan},
	{[]string{"less", "than"}, models.OpLessThan},
	{[]string{"fewer", "than"}, models.OpLessThan},
	{[]string{"at", "most"}, models.OpLessThan},
	{[]string{"over"}, models.OpGreaterThan},
	{[]string{"above"}, models.OpGreaterThan},
	{[]string{"under"}, models.OpLessThan},
	{[]string{"below"}, models.OpLessThan},
}

// Unknown is a query token that matched nothing in the catalog.
type Unknown struct {
	Span models.Span `json:"span"`
	Text string      `json:"text"`
}

// Result is the raw output of one extraction pass: every candidate
// interpretation found in the text, plus the tokens nothing claimed.
// Candidates may overlap in span; disambiguation is the resolver's job.
type Result struct {
	Candidates []models.CandidateMatch
	Unknown    []Unknown
}

// Extractor turns free text into candidate matches against a catalog. It
// is stateless between calls and safe for concurrent use.
type Extractor struct {
	cat *catalog.Catalog
	log logger.Logger
	now func() time.Time
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithNow fixes the clock used to anchor relative time phrases.
func WithNow(now func() time.Time) Option {
	return func(e *Extractor) { e.now = now }
}

// New creates an Extractor over cat.
func New(cat *catalog.Catalog, log logger.Logger, opts ...Option) *Extractor {
	e := &Extractor{cat: cat, log: log, now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract runs the full pipeline over text. Passes run in a fixed order,
// each consuming the tokens it claims: time expressions, superlative and
// comparison cues, catalog terms longest-window-first, then enum filter
// values. Later passes never see tokens an earlier pass consumed, which
// is what makes "gross gaming revenue" win over "revenue".
func (e *Extractor) Extract(text string) Result {
	tokens := Tokenize(text)
	consumed := make([]bool, len(tokens))

	var res Result
	res.Candidates = append(res.Candidates, scanTimeRanges(text, tokens, consumed, e.now())...)
	res.Candidates = append(res.Candidates, scanSortCues(text, tokens, consumed)...)
	res.Candidates = append(res.Candidates, scanComparisons(text, tokens, consumed)...)
	res.Candidates = append(res.Candidates, e.scanCatalogTerms(text, tokens, consumed)...)
	res.Candidates = append(res.Candidates, e.scanEnumValues(text, tokens, consumed)...)

	for i, tok := range tokens {
		if consumed[i] || stopwords[tok.Term] {
			continue
		}
		if _, err := strconv.Atoi(tok.Term); err == nil {
			continue
		}
		res.Unknown = append(res.Unknown, Unknown{
			Span: models.Span{Start: tok.Start, End: tok.End},
			Text: tok.Raw,
		})
	}

	e.log.Debug("extraction finished", map[string]interface{}{
		"tokens":     len(tokens),
		"candidates": len(res.Candidates),
		"unknown":    len(res.Unknown),
	})
	return res
}

func scanSortCues(text string, tokens []Token, consumed []bool) []models.CandidateMatch {
	var out []models.CandidateMatch
	for i := range tokens {
		if consumed[i] {
			continue
		}
		desc := descendingCues[tokens[i].Term]
		asc := ascendingCues[tokens[i].Term]
		if !desc && !asc {
			continue
		}

		cue := models.SortCue{Descending: desc}
		last := tokens[i]
		if i+1 < len(tokens) && !consumed[i+1] {
			if n, err := strconv.Atoi(tokens[i+1].Term); err == nil && n > 0 {
				cue.Limit = n
				last = tokens[i+1]
				consumed[i+1] = true
			}
		}
		consumed[i] = true

		span := models.Span{Start: tokens[i].Start, End: last.End}
		out = append(out, models.CandidateMatch{
			Span:       span,
			Kind:       models.KindComparison,
			RawText:    text[span.Start:span.End],
			Confidence: 1.0,
			Sort:       &cue,
		})
	}
	return out
}

func scanComparisons(text string, tokens []Token, consumed []bool) []models.CandidateMatch {
	var out []models.CandidateMatch
	for _, cue := range comparisonCues {
		n := len(cue.words)
	scan:
		for i := 0; i+n < len(tokens); i++ {
			for j := 0; j < n; j++ {
				if consumed[i+j] || tokens[i+j].Term != cue.words[j] {
					continue scan
				}
			}
			// The cue only fires when a number follows.
			if consumed[i+n] {
				continue
			}
			if _, err := strconv.Atoi(tokens[i+n].Term); err != nil {
				continue
			}

			span := models.Span{Start: tokens[i].Start, End: tokens[i+n].End}
			out = append(out, models.CandidateMatch{
				Span:       span,
				Kind:       models.KindComparison,
				RawText:    text[span.Start:span.End],
				Confidence: 1.0,
				Sort: &models.SortCue{
					Operator: string(cue.op),
					Value:    tokens[i+n].Term,
				},
			})
			for j := 0; j <= n; j++ {
				consumed[i+j] = true
			}
		}
	}
	return out
}

// scanCatalogTerms matches token windows against catalog names and
// synonyms, widest window first. Multi-word windows must match exactly;
// fuzzy matching is reserved for single tokens, where a typo is plausible
// and a spurious neighbor word is not.
func (e *Extractor) scanCatalogTerms(text string, tokens []Token, consumed []bool) []models.CandidateMatch {
	var out []models.CandidateMatch
	for w := e.cat.MaxWindow(); w >= 1; w-- {
	scan:
		for i := 0; i+w <= len(tokens); i++ {
			allStop := true
			for j := 0; j < w; j++ {
				if consumed[i+j] {
					continue scan
				}
				if !stopwords[tokens[i+j].Term] {
					allStop = false
				}
			}
			// A window of pure noise words ("players", "for the") must not
			// fuzzy-match a synonym that happens to contain one of them.
			if allStop {
				continue
			}
			term := joinTerms(tokens[i : i+w])
			matches := e.cat.LookupAll(term)
			if len(matches) == 0 {
				continue
			}
			if w > 1 && matches[0].Confidence < 1.0 {
				continue
			}
			if w > 1 {
				matches = matches[:1]
			}

			span := models.Span{Start: tokens[i].Start, End: tokens[i+w-1].End}
			for _, match := range matches {
				cand := models.CandidateMatch{
					Span:       span,
					RawText:    text[span.Start:span.End],
					Confidence: match.Confidence,
					Position:   match.Entry.Position,
				}
				if match.Entry.IsMetric() {
					cand.Kind = models.KindMetric
					cand.Metric = match.Entry.Metric
				} else {
					cand.Kind = models.KindDimension
					cand.Dimension = match.Entry.Dimension
				}
				out = append(out, cand)
			}
			for j := 0; j < w; j++ {
				consumed[i+j] = true
			}
		}
	}
	return out
}

// scanEnumValues matches remaining tokens against the allowed values of
// enum dimensions, producing filter candidates. A window that resolves in
// several dimensions yields one candidate per dimension over the same
// span; the resolver treats that as an ambiguity.
func (e *Extractor) scanEnumValues(text string, tokens []Token, consumed []bool) []models.CandidateMatch {
	var out []models.CandidateMatch
	enumDims := e.cat.EnumDimensions()

	for w := 3; w >= 1; w-- {
	scan:
		for i := 0; i+w <= len(tokens); i++ {
			for j := 0; j < w; j++ {
				if consumed[i+j] || stopwords[tokens[i+j].Term] {
					continue scan
				}
			}
			raw := joinTerms(tokens[i : i+w])

			span := models.Span{Start: tokens[i].Start, End: tokens[i+w-1].End}
			matched := false
			for _, entry := range enumDims {
				value, score, ok := e.cat.ResolveEnumValue(entry.Dimension, raw)
				if !ok {
					continue
				}
				if w > 1 && score < 1.0 {
					continue
				}
				matched = true
				out = append(out, models.CandidateMatch{
					Span:       span,
					Kind:       models.KindFilter,
					RawText:    text[span.Start:span.End],
					Confidence: score,
					Position:   entry.Position,
					Filter: &models.Filter{
						Field:         entry.Dimension.BackingField,
						Operator:      models.OpEquals,
						Value:         value,
						DimensionName: entry.Dimension.Name,
					},
				})
			}
			if matched {
				for j := 0; j < w; j++ {
					consumed[i+j] = true
				}
			}
		}
	}
	return out
}

func joinTerms(tokens []Token) string {
	terms := make([]string, len(tokens))
	for i, t := range tokens {
		terms[i] = t.Term
	}
	return strings.Join(terms, " ")
}
