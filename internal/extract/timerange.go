// internal/extract/timerange.go
package extract

import (
	"fmt"
	"regexp"
	"strconv"
	"time"

	"nlq-resolver/internal/models"
)

const (
	granularityHourly  = "hourly"
	granularityDaily   = "daily"
	granularityWeekly  = "weekly"
	granularityMonthly = "monthly"
)

// absoluteDatePattern matches ISO dates in the raw text, optionally as a
// "from X to Y" / "between X and Y" pair.
var absoluteDatePattern = regexp.MustCompile(
	`(?i)(?:from|between)\s+(\d{4}-\d{2}-\d{2})\s+(?:to|and|until)\s+(\d{4}-\d{2}-\d{2})|(\d{4}-\d{2}-\d{2})`)

// fixedPhrases maps relative time phrases, as lowercased token sequences,
// to range builders. Longer phrases are tried before shorter ones.
var fixedPhrases = []struct {
	words []string
	build func(day time.Time) models.TimeRange
}{
	{[]string{"today"}, func(d time.Time) models.TimeRange {
		return models.TimeRange{Start: d, End: d, Granularity: granularityHourly, Relative: "today"}
	}},
	{[]string{"yesterday"}, func(d time.Time) models.TimeRange {
		y := d.AddDate(0, 0, -1)
		return models.TimeRange{Start: y, End: y, Granularity: granularityHourly, Relative: "yesterday"}
	}},
	{[]string{"this", "week"}, func(d time.Time) models.TimeRange {
		return models.TimeRange{Start: startOfWeek(d), End: d, Granularity: granularityDaily, Relative: "this_week"}
	}},
	{[]string{"last", "week"}, func(d time.Time) models.TimeRange {
		start := startOfWeek(d).AddDate(0, 0, -7)
		return models.TimeRange{Start: start, End: start.AddDate(0, 0, 6), Granularity: granularityDaily, Relative: "last_week"}
	}},
	{[]string{"this", "month"}, func(d time.Time) models.TimeRange {
		return models.TimeRange{Start: startOfMonth(d), End: d, Granularity: granularityDaily, Relative: "this_month"}
	}},
	{[]string{"last", "month"}, func(d time.Time) models.TimeRange {
		start := startOfMonth(d).AddDate(0, -1, 0)
		return models.TimeRange{Start: start, End: start.AddDate(0, 1, -1), Granularity: granularityDaily, Relative: "last_month"}
	}},
	{[]string{"this", "quarter"}, func(d time.Time) models.TimeRange {
		return models.TimeRange{Start: startOfQuarter(d), End: d, Granularity: granularityWeekly, Relative: "this_quarter"}
	}},
	{[]string{"last", "quarter"}, func(d time.Time) models.TimeRange {
		start := startOfQuarter(d).AddDate(0, -3, 0)
		return models.TimeRange{Start: start, End: start.AddDate(0, 3, -1), Granularity: granularityWeekly, Relative: "last_quarter"}
	}},
	{[]string{"this", "year"}, func(d time.Time) models.TimeRange {
		return models.TimeRange{Start: startOfYear(d), End: d, Granularity: granularityMonthly, Relative: "this_year"}
	}},
	{[]string{"last", "year"}, func(d time.Time) models.TimeRange {
		start := startOfYear(d).AddDate(-1, 0, 0)
		return models.TimeRange{Start: start, End: start.AddDate(1, 0, -1), Granularity: granularityMonthly, Relative: "last_year"}
	}},
	{[]string{"year", "to", "date"}, func(d time.Time) models.TimeRange {
		return models.TimeRange{Start: startOfYear(d), End: d, Granularity: granularityMonthly, Relative: "year_to_date"}
	}},
	{[]string{"month", "to", "date"}, func(d time.Time) models.TimeRange {
		return models.TimeRange{Start: startOfMonth(d), End: d, Granularity: granularityDaily, Relative: "month_to_date"}
	}},
}

// scanTimeRanges finds time expressions in the token stream and marks the
// tokens they cover as consumed. Relative phrases ("last month", "past 7
// days") and absolute ISO dates are both recognized.
func scanTimeRanges(text string, tokens []Token, consumed []bool, now time.Time) []models.CandidateMatch {
	day := truncateToDay(now)
	var out []models.CandidateMatch

	out = append(out, scanAbsoluteDates(text, tokens, consumed)...)

	// "last/past N days|weeks|months|hours"
	for i := 0; i+2 < len(tokens); i++ {
		if consumed[i] || consumed[i+1] || consumed[i+2] {
			continue
		}
		if tokens[i].Term != "last" && tokens[i].Term != "past" && tokens[i].Term != "previous" {
			continue
		}
		n, err := strconv.Atoi(tokens[i+1].Term)
		if err != nil || n <= 0 {
			continue
		}
		tr, ok := countedRange(day, now, n, tokens[i+2].Term)
		if !ok {
			continue
		}
		out = append(out, timeRangeCandidate(text, tokens[i], tokens[i+2], tr))
		consumed[i], consumed[i+1], consumed[i+2] = true, true, true
	}

	for _, phrase := range fixedPhrases {
		n := len(phrase.words)
	scan:
		for i := 0; i+n <= len(tokens); i++ {
			for j := 0; j < n; j++ {
				if consumed[i+j] || tokens[i+j].Term != phrase.words[j] {
					continue scan
				}
			}
			tr := phrase.build(day)
			out = append(out, timeRangeCandidate(text, tokens[i], tokens[i+n-1], tr))
			for j := 0; j < n; j++ {
				consumed[i+j] = true
			}
		}
	}

	return out
}

func countedRange(day, now time.Time, n int, unit string) (models.TimeRange, bool) {
	switch unit {
	case "hour", "hours":
		return models.TimeRange{
			Start:       now.Add(-time.Duration(n) * time.Hour),
			End:         now,
			Granularity: granularityHourly,
			Relative:    fmt.Sprintf("last_%d_hours", n),
		}, true
	case "day", "days":
		return models.TimeRange{
			Start:       day.AddDate(0, 0, -n),
			End:         day,
			Granularity: granularityDaily,
			Relative:    fmt.Sprintf("last_%d_days", n),
		}, true
	case "week", "weeks":
		return models.TimeRange{
			Start:       day.AddDate(0, 0, -7*n),
			End:         day,
			Granularity: granularityDaily,
			Relative:    fmt.Sprintf("last_%d_weeks", n),
		}, true
	case "month", "months":
		return models.TimeRange{
			Start:       day.AddDate(0, -n, 0),
			End:         day,
			Granularity: granularityMonthly,
			Relative:    fmt.Sprintf("last_%d_months", n),
		}, true
	case "year", "years":
		return models.TimeRange{
			Start:       day.AddDate(-n, 0, 0),
			End:         day,
			Granularity: granularityMonthly,
			Relative:    fmt.Sprintf("last_%d_years", n),
		}, true
	}
	return models.TimeRange{}, false
}

func scanAbsoluteDates(text string, tokens []Token, consumed []bool) []models.CandidateMatch {
	var out []models.CandidateMatch
	for _, loc := range absoluteDatePattern.FindAllStringSubmatchIndex(text, -1) {
		span := models.Span{Start: loc[0], End: loc[1]}
		var tr models.TimeRange
		if loc[2] >= 0 && loc[4] >= 0 {
			start, err1 := time.Parse("2006-01-02", text[loc[2]:loc[3]])
			end, err2 := time.Parse("2006-01-02", text[loc[4]:loc[5]])
			if err1 != nil || err2 != nil || end.Before(start) {
				continue
			}
			tr = models.TimeRange{Start: start, End: end, Granularity: granularityDaily}
		} else if loc[6] >= 0 {
			d, err := time.Parse("2006-01-02", text[loc[6]:loc[7]])
			if err != nil {
				continue
			}
			tr = models.TimeRange{Start: d, End: d, Granularity: granularityHourly}
		} else {
			continue
		}

		busy := false
		for i := range tokens {
			if span.Overlaps(models.Span{Start: tokens[i].Start, End: tokens[i].End}) && consumed[i] {
				busy = true
				break
			}
		}
		if busy {
			continue
		}
		for i := range tokens {
			if span.Overlaps(models.Span{Start: tokens[i].Start, End: tokens[i].End}) {
				consumed[i] = true
			}
		}
		out = append(out, models.CandidateMatch{
			Span:       span,
			Kind:       models.KindTimeRange,
			RawText:    text[span.Start:span.End],
			Confidence: 1.0,
			TimeRange:  &tr,
		})
	}
	return out
}

func timeRangeCandidate(text string, first, last Token, tr models.TimeRange) models.CandidateMatch {
	span := models.Span{Start: first.Start, End: last.End}
	return models.CandidateMatch{
		Span:       span,
		Kind:       models.KindTimeRange,
		RawText:    text[span.Start:span.End],
		Confidence: 1.0,
		TimeRange:  &tr,
	}
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func startOfWeek(day time.Time) time.Time {
	wd := int(day.Weekday())
	if wd == 0 {
		wd = 7 // weeks start on Monday
	}
	return day.AddDate(0, 0, -(wd - 1))
}

func startOfMonth(day time.Time) time.Time {
	return time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, day.Location())
}

func startOfQuarter(day time.Time) time.Time {
	q := (int(day.Month()) - 1) / 3
	return time.Date(day.Year(), time.Month(q*3+1), 1, 0, 0, 0, 0, day.Location())
}

func startOfYear(day time.Time) time.Time {
	return time.Date(day.Year(), 1, 1, 0, 0, 0, 0, day.Location())
}
