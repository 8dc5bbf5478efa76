// internal/sqlgen/sqlgen.go

// Package sqlgen renders a structured query into a parameterized SQL
// statement for the reporting database. It is deliberately dumb: no
// planning, no dialect switches, just a deterministic projection of the
// query the resolver produced.
package sqlgen

import (
	"fmt"
	"regexp"
	"strings"

	"nlq-resolver/internal/common/errors"
	"nlq-resolver/internal/models"
)

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Renderer renders structured queries against a single fact table.
type Renderer struct {
	// Table is the fact table holding the metric columns.
	Table string
	// DateColumn is the column the time range constrains.
	DateColumn string
}

// New creates a Renderer.
func New(table, dateColumn string) *Renderer {
	return &Renderer{Table: table, DateColumn: dateColumn}
}

// Render produces the SQL text and its ordered argument list. Metric
// threshold filters become HAVING conditions on the aggregated value;
// dimension filters go to WHERE.
func (r *Renderer) Render(q models.StructuredQuery) (string, []interface{}, error) {
	if len(q.Metrics) == 0 {
		return "", nil, errors.NewQueryRenderFailedError("query selects no metrics")
	}
	if err := checkIdent(r.Table); err != nil {
		return "", nil, err
	}
	if err := checkIdent(r.DateColumn); err != nil {
		return "", nil, err
	}

	metricCols := make(map[string]models.MetricSelection, len(q.Metrics))
	var selects []string
	for _, d := range q.Dimensions {
		if err := checkIdent(d.BackingField); err != nil {
			return "", nil, err
		}
		selects = append(selects, quote(d.BackingField))
	}
	for _, m := range q.Metrics {
		if err := checkIdent(m.Metric.BackingField); err != nil {
			return "", nil, err
		}
		expr, err := aggregate(m)
		if err != nil {
			return "", nil, err
		}
		selects = append(selects, fmt.Sprintf("%s AS %s", expr, quote(m.Metric.Name)))
		metricCols[m.Metric.BackingField] = m
	}

	var sb strings.Builder
	var args []interface{}
	sb.WriteString("SELECT ")
	sb.WriteString(strings.Join(selects, ", "))
	sb.WriteString(" FROM ")
	sb.WriteString(quote(r.Table))

	where := []string{fmt.Sprintf("%s BETWEEN ? AND ?", quote(r.DateColumn))}
	args = append(args, q.TimeRange.Start, q.TimeRange.End)

	var having []string
	for _, f := range q.Filters {
		if err := checkIdent(f.Field); err != nil {
			return "", nil, err
		}
		if m, ok := metricCols[f.Field]; ok {
			expr, err := aggregate(m)
			if err != nil {
				return "", nil, err
			}
			cond, condArgs, err := condition(expr, f)
			if err != nil {
				return "", nil, err
			}
			having = append(having, cond)
			args = append(args, condArgs...)
			continue
		}
		cond, condArgs, err := condition(quote(f.Field), f)
		if err != nil {
			return "", nil, err
		}
		where = append(where, cond)
		args = append(args, condArgs...)
	}

	sb.WriteString(" WHERE ")
	sb.WriteString(strings.Join(where, " AND "))

	if len(q.Dimensions) > 0 {
		groups := make([]string, len(q.Dimensions))
		for i, d := range q.Dimensions {
			groups[i] = quote(d.BackingField)
		}
		sb.WriteString(" GROUP BY ")
		sb.WriteString(strings.Join(groups, ", "))
	}

	if len(having) > 0 {
		sb.WriteString(" HAVING ")
		sb.WriteString(strings.Join(having, " AND "))
	}

	if q.SortBy != nil {
		direction := "ASC"
		if q.SortBy.Descending {
			direction = "DESC"
		}
		sb.WriteString(fmt.Sprintf(" ORDER BY %s %s", quote(q.SortBy.Metric), direction))
	}

	if q.Limit > 0 {
		sb.WriteString(fmt.Sprintf(" LIMIT %d", q.Limit))
	}

	return sb.String(), args, nil
}

func aggregate(m models.MetricSelection) (string, error) {
	col := quote(m.Metric.BackingField)
	switch m.Aggregation {
	case models.AggregationSum:
		return fmt.Sprintf("SUM(%s)", col), nil
	case models.AggregationAvg:
		return fmt.Sprintf("AVG(%s)", col), nil
	case models.AggregationCount:
		return fmt.Sprintf("COUNT(%s)", col), nil
	case models.AggregationMin:
		return fmt.Sprintf("MIN(%s)", col), nil
	case models.AggregationMax:
		return fmt.Sprintf("MAX(%s)", col), nil
	case models.AggregationDistinctCount:
		return fmt.Sprintf("COUNT(DISTINCT %s)", col), nil
	}
	return "", errors.NewQueryRenderFailedError(fmt.Sprintf("unsupported aggregation %q", m.Aggregation))
}

func condition(lhs string, f models.Filter) (string, []interface{}, error) {
	switch f.Operator {
	case models.OpEquals, models.OpGreaterThan, models.OpLessThan:
		return fmt.Sprintf("%s %s ?", lhs, f.Operator), []interface{}{f.Value}, nil
	case models.OpContains:
		return fmt.Sprintf("%s LIKE ?", lhs), []interface{}{"%" + f.Value + "%"}, nil
	case models.OpIn:
		parts := strings.Split(f.Value, ",")
		placeholders := make([]string, len(parts))
		values := make([]interface{}, len(parts))
		for i, p := range parts {
			placeholders[i] = "?"
			values[i] = strings.TrimSpace(p)
		}
		return fmt.Sprintf("%s IN (%s)", lhs, strings.Join(placeholders, ", ")), values, nil
	}
	return "", nil, errors.NewQueryRenderFailedError(fmt.Sprintf("unsupported operator %q", f.Operator))
}

func checkIdent(name string) error {
	if !identPattern.MatchString(name) {
		return errors.NewQueryRenderFailedError(fmt.Sprintf("invalid identifier %q", name))
	}
	return nil
}

func quote(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
