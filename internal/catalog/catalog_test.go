// internal/catalog/catalog_test.go
package catalog

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "nlq-resolver/internal/common/errors"
	"nlq-resolver/internal/common/logger"
	"nlq-resolver/internal/models"
)

func testDocument() Document {
	return Document{
		Metrics: []models.Metric{
			{
				Name:         "Revenue",
				BackingField: "total_revenue",
				Synonyms:     []string{"earnings", "income", "GGR", "gross gaming revenue"},
				DataType:     models.MetricTypeCurrency,
			},
			{
				Name:               "Active Players",
				BackingField:       "active_players",
				DefaultAggregation: models.AggregationDistinctCount,
				Synonyms:           []string{"active users", "unique players"},
				DataType:           models.MetricTypeCount,
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
				Synonyms:     []string{"countries", "region"},
				DataType:     models.DimensionTypeEnum,
				AllowedValues: map[string]string{
					"United Kingdom": "GB",
					"UK":             "GB",
					"Germany":        "DE",
					"Sweden":         "SE",
				},
			},
		},
	}
}

func newTestCatalog(t *testing.T) *Catalog {
	t.Helper()
	c := New(Params{Threshold: 0.75}, logger.NewTestLogger(t))
	require.NoError(t, c.Load(testDocument()))
	return c
}

func TestLookupExactMatches(t *testing.T) {
	c := newTestCatalog(t)

	tests := []struct {
		name     string
		term     string
		want     string
		isMetric bool
	}{
		{"canonical name", "Revenue", "Revenue", true},
		{"synonym", "earnings", "Revenue", true},
		{"case insensitive", "ggr", "Revenue", true},
		{"multi word synonym", "gross gaming revenue", "Revenue", true},
		{"dimension synonym", "countries", "Country", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			match, ok := c.Lookup(tt.term)
			require.True(t, ok)
			assert.Equal(t, tt.want, match.Entry.Name())
			assert.Equal(t, tt.isMetric, match.Entry.IsMetric())
			assert.Equal(t, 1.0, match.Confidence)
		})
	}
}

func TestLookupFuzzy(t *testing.T) {
	c := newTestCatalog(t)

	match, ok := c.Lookup("revenu")
	require.True(t, ok)
	assert.Equal(t, "Revenue", match.Entry.Name())
	assert.Less(t, match.Confidence, 1.0)
	assert.GreaterOrEqual(t, match.Confidence, 0.75)

	_, ok = c.Lookup("weather")
	assert.False(t, ok)

	_, ok = c.Lookup("   ")
	assert.False(t, ok)
}

func TestLookupIsDeterministic(t *testing.T) {
	c := newTestCatalog(t)

	first, ok := c.Lookup("revenu")
	require.True(t, ok)
	for i := 0; i < 50; i++ {
		match, ok := c.Lookup("revenu")
		require.True(t, ok)
		assert.Equal(t, first.Entry.Name(), match.Entry.Name())
		assert.Equal(t, first.Confidence, match.Confidence)
	}
}

func TestLoadRejectsDuplicateTerms(t *testing.T) {
	doc := testDocument()
	doc.Dimensions[0].Synonyms = append(doc.Dimensions[0].Synonyms, "earnings")

	c := New(Params{Threshold: 0.75}, logger.NewNoOpLogger())
	err := c.Load(doc)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrCatalogInvalid))
}

func TestLoadRejectsAllowedValuesOnNonEnum(t *testing.T) {
	doc := testDocument()
	doc.Dimensions[0].AllowedValues = map[string]string{"Slots": "slots"}

	c := New(Params{Threshold: 0.75}, logger.NewNoOpLogger())
	err := c.Load(doc)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrCatalogInvalid))
}

func TestReloadReplacesSnapshot(t *testing.T) {
	c := newTestCatalog(t)

	doc := Document{
		Metrics: []models.Metric{
			{Name: "Deposits", BackingField: "total_deposits", DataType: models.MetricTypeCurrency},
		},
		Dimensions: []models.Dimension{
			{Name: "Provider", BackingField: "provider_name", DataType: models.DimensionTypeString},
		},
	}
	require.NoError(t, c.Load(doc))

	_, ok := c.Lookup("Revenue")
	assert.False(t, ok)
	match, ok := c.Lookup("Deposits")
	require.True(t, ok)
	assert.Equal(t, "Deposits", match.Entry.Name())
}

func TestReloadWithSameDocumentIsIdempotent(t *testing.T) {
	c := newTestCatalog(t)

	terms := []string{"revenue", "ggr", "games", "uk", "revenu", "active users"}
	before := make(map[string]Match, len(terms))
	for _, term := range terms {
		if m, ok := c.Lookup(term); ok {
			before[term] = m
		}
	}

	require.NoError(t, c.Load(testDocument()))

	for _, term := range terms {
		m, ok := c.Lookup(term)
		want, had := before[term]
		require.Equal(t, had, ok, "term %q", term)
		if !had {
			continue
		}
		assert.Equal(t, want.Entry.Name(), m.Entry.Name(), "term %q", term)
		assert.Equal(t, want.Confidence, m.Confidence, "term %q", term)
	}
}

func TestFailedReloadKeepsPreviousSnapshot(t *testing.T) {
	c := newTestCatalog(t)

	bad := testDocument()
	bad.Metrics[1].Synonyms = []string{"Revenue"}
	require.Error(t, c.Load(bad))

	match, ok := c.Lookup("Revenue")
	require.True(t, ok)
	assert.Equal(t, "Revenue", match.Entry.Name())
}

func TestDefaultAggregation(t *testing.T) {
	c := newTestCatalog(t)

	match, _ := c.Lookup("Revenue")
	assert.Equal(t, models.AggregationSum, match.Entry.Metric.DefaultAggregation)

	match, _ = c.Lookup("Active Players")
	assert.Equal(t, models.AggregationDistinctCount, match.Entry.Metric.DefaultAggregation)
}

func TestResolveEnumValue(t *testing.T) {
	c := newTestCatalog(t)
	match, ok := c.Lookup("Country")
	require.True(t, ok)
	dim := match.Entry.Dimension

	tests := []struct {
		raw  string
		want string
		ok   bool
	}{
		{"UK", "GB", true},
		{"uk", "GB", true},
		{"united kingdom", "GB", true},
		{"GB", "GB", true},
		{"germany", "DE", true},
		{"atlantis", "", false},
	}

	for _, tt := range tests {
		got, score, ok := c.ResolveEnumValue(dim, tt.raw)
		assert.Equal(t, tt.ok, ok, "raw=%s", tt.raw)
		assert.Equal(t, tt.want, got, "raw=%s", tt.raw)
		if tt.ok {
			assert.GreaterOrEqual(t, score, 0.75, "raw=%s", tt.raw)
		}
	}
}

func TestSuggest(t *testing.T) {
	c := newTestCatalog(t)

	got := c.Suggest("revenus", models.SlotMetric, 3)
	require.NotEmpty(t, got)
	assert.Equal(t, "Revenue", got[0])

	got = c.Suggest("zzzzzz", models.SlotMetric, 3)
	assert.Empty(t, got)
}

func TestMaxWindow(t *testing.T) {
	c := newTestCatalog(t)
	assert.Equal(t, 3, c.MaxWindow())
}
