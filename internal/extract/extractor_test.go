// internal/extract/extractor_test.go
package extract

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nlq-resolver/internal/catalog"
	"nlq-resolver/internal/common/logger"
	"nlq-resolver/internal/models"
)

func buildCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	doc := catalog.Document{
		Metrics: []models.Metric{
			{
				Name:         "Revenue",
				BackingField: "total_revenue",
				Synonyms:     []string{"earnings", "GGR", "gross gaming revenue"},
				DataType:     models.MetricTypeCurrency,
			},
			{
				Name:               "Deposits",
				BackingField:       "total_deposits",
				Synonyms:           []string{"deposit amount"},
				DataType:           models.MetricTypeCurrency,
				DefaultAggregation: models.AggregationSum,
			},
		},
		Dimensions: []models.Dimension{
			{
				Name:         "Game",
				BackingField: "game_name",
				Synonyms:     []string{"games", "game title"},
				DataType:     models.DimensionTypeString,
			},
			{
				Name:         "Country",
				BackingField: "country_code",
				Synonyms:     []string{"countries"},
				DataType:     models.DimensionTypeEnum,
				AllowedValues: map[string]string{
					"United Kingdom": "GB",
					"UK":             "GB",
					"Germany":        "DE",
				},
			},
		},
	}
	c := catalog.New(catalog.Params{Threshold: 0.75}, logger.NewNoOpLogger())
	require.NoError(t, c.Load(doc))
	return c
}

func fixedNow() time.Time {
	return time.Date(2026, time.August, 28, 15, 30, 0, 0, time.UTC)
}

func newTestExtractor(t *testing.T) *Extractor {
	t.Helper()
	return New(buildCatalog(t), logger.NewTestLogger(t), WithNow(fixedNow))
}

func findByKind(cands []models.CandidateMatch, kind models.EntityKind) []models.CandidateMatch {
	var out []models.CandidateMatch
	for _, c := range cands {
		if c.Kind == kind {
			out = append(out, c)
		}
	}
	return out
}

func TestTokenizeOffsets(t *testing.T) {
	tokens := Tokenize("Top 10 games, by Revenue!")
	require.Len(t, tokens, 5)

	assert.Equal(t, "top", tokens[0].Term)
	assert.Equal(t, "Top", tokens[0].Raw)
	assert.Equal(t, 0, tokens[0].Start)
	assert.Equal(t, 3, tokens[0].End)

	assert.Equal(t, "games", tokens[2].Term)
	assert.Equal(t, 7, tokens[2].Start)
	assert.Equal(t, 12, tokens[2].End)

	assert.Equal(t, "revenue", tokens[4].Term)
	assert.Equal(t, 4, tokens[4].Position)
}

func TestExtractFullQuery(t *testing.T) {
	e := newTestExtractor(t)
	res := e.Extract("top 10 games by revenue for UK players last month")

	sorts := findByKind(res.Candidates, models.KindComparison)
	require.Len(t, sorts, 1)
	assert.True(t, sorts[0].Sort.Descending)
	assert.Equal(t, 10, sorts[0].Sort.Limit)

	dims := findByKind(res.Candidates, models.KindDimension)
	require.Len(t, dims, 1)
	assert.Equal(t, "Game", dims[0].Dimension.Name)
	assert.Equal(t, "games", dims[0].RawText)

	mets := findByKind(res.Candidates, models.KindMetric)
	require.Len(t, mets, 1)
	assert.Equal(t, "Revenue", mets[0].Metric.Name)

	filters := findByKind(res.Candidates, models.KindFilter)
	require.Len(t, filters, 1)
	assert.Equal(t, "country_code", filters[0].Filter.Field)
	assert.Equal(t, "GB", filters[0].Filter.Value)
	assert.Equal(t, models.OpEquals, filters[0].Filter.Operator)

	ranges := findByKind(res.Candidates, models.KindTimeRange)
	require.Len(t, ranges, 1)
	tr := ranges[0].TimeRange
	assert.Equal(t, time.Date(2026, time.July, 1, 0, 0, 0, 0, time.UTC), tr.Start)
	assert.Equal(t, time.Date(2026, time.July, 31, 0, 0, 0, 0, time.UTC), tr.End)
	assert.Equal(t, "last_month", tr.Relative)

	assert.Empty(t, res.Unknown)
}

func TestExtractLongestTermWins(t *testing.T) {
	e := newTestExtractor(t)
	res := e.Extract("gross gaming revenue by country")

	mets := findByKind(res.Candidates, models.KindMetric)
	require.Len(t, mets, 1)
	assert.Equal(t, "Revenue", mets[0].Metric.Name)
	assert.Equal(t, "gross gaming revenue", mets[0].RawText)

	dims := findByKind(res.Candidates, models.KindDimension)
	require.Len(t, dims, 1)
	assert.Equal(t, "Country", dims[0].Dimension.Name)
}

func TestExtractFuzzySingleToken(t *testing.T) {
	e := newTestExtractor(t)
	res := e.Extract("revebue by game")

	mets := findByKind(res.Candidates, models.KindMetric)
	require.Len(t, mets, 1)
	assert.Equal(t, "Revenue", mets[0].Metric.Name)
	assert.Less(t, mets[0].Confidence, 1.0)
}

func TestExtractComparison(t *testing.T) {
	e := newTestExtractor(t)
	res := e.Extract("countries with deposits more than 500 this year")

	comps := findByKind(res.Candidates, models.KindComparison)
	require.Len(t, comps, 1)
	assert.Equal(t, ">", comps[0].Sort.Operator)
	assert.Equal(t, "500", comps[0].Sort.Value)

	mets := findByKind(res.Candidates, models.KindMetric)
	require.Len(t, mets, 1)
	assert.Equal(t, "Deposits", mets[0].Metric.Name)
}

func TestExtractCountedRange(t *testing.T) {
	e := newTestExtractor(t)
	res := e.Extract("revenue last 7 days")

	ranges := findByKind(res.Candidates, models.KindTimeRange)
	require.Len(t, ranges, 1)
	tr := ranges[0].TimeRange
	assert.Equal(t, time.Date(2026, time.August, 21, 0, 0, 0, 0, time.UTC), tr.Start)
	assert.Equal(t, time.Date(2026, time.August, 28, 0, 0, 0, 0, time.UTC), tr.End)
	assert.Equal(t, "last_7_days", tr.Relative)
	assert.Equal(t, "daily", tr.Granularity)
}

func TestExtractAbsoluteDates(t *testing.T) {
	e := newTestExtractor(t)
	res := e.Extract("revenue by game from 2026-01-01 to 2026-01-31")

	ranges := findByKind(res.Candidates, models.KindTimeRange)
	require.Len(t, ranges, 1)
	tr := ranges[0].TimeRange
	assert.Equal(t, time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC), tr.Start)
	assert.Equal(t, time.Date(2026, time.January, 31, 0, 0, 0, 0, time.UTC), tr.End)
}

func TestExtractUnknownTerm(t *testing.T) {
	e := newTestExtractor(t)
	res := e.Extract("show me flibber by game yesterday")

	require.Len(t, res.Unknown, 1)
	assert.Equal(t, "flibber", res.Unknown[0].Text)
	assert.Empty(t, findByKind(res.Candidates, models.KindMetric))
}

func TestExtractMultiWordEnumValue(t *testing.T) {
	e := newTestExtractor(t)
	res := e.Extract("deposits for united kingdom this month")

	filters := findByKind(res.Candidates, models.KindFilter)
	require.Len(t, filters, 1)
	assert.Equal(t, "GB", filters[0].Filter.Value)
	assert.Equal(t, "united kingdom", filters[0].RawText)
}
