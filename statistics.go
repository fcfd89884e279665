package mysqlmcp

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/Wang4XD/MySQL-MCP-Server/internal/render"
	"github.com/Wang4XD/MySQL-MCP-Server/internal/stats"
)

// TableStatistics computes the per-column statistical profile of a table:
// row count plus type-dispatched aggregates (numeric: min/max/mean/stddev,
// text: distinct count/mean length, other: distinct count). Like Query it
// returns only an output struct; every failure, including an unknown table
// name, lands in output.Error. A failed aggregate on any single column
// fails the whole operation; there is no partial result.
func (m *MySQLMcp) TableStatistics(ctx context.Context, input StatisticsInput) *StatisticsOutput {
	startTime := time.Now()

	// 1. Acquire semaphore
	release, err := m.acquireSlot(ctx, "TableStatistics")
	if err != nil {
		return m.statisticsError(err)
	}
	defer release()

	// 2. Existence check via catalog lookup
	exists, err := m.tableExists(ctx, input.Table)
	if err != nil {
		return m.statisticsError(err)
	}
	if !exists {
		return m.statisticsError(fmt.Errorf("%w: '%s'", ErrTableNotFound, input.Table))
	}

	// 3. Row count
	var rowCount int64
	if err := m.db.QueryRowxContext(ctx, "SELECT COUNT(*) FROM "+quoteIdent(input.Table)).Scan(&rowCount); err != nil {
		return m.statisticsError(fmt.Errorf("row count for '%s' failed: %w", input.Table, err))
	}

	// 4. Column list, then one aggregate query per column. Classification
	// happens once here; everything downstream dispatches on the category.
	descriptors, err := m.describeColumns(ctx, input.Table)
	if err != nil {
		return m.statisticsError(err)
	}

	columns := make([]ColumnStatistic, 0, len(descriptors))
	for _, desc := range descriptors {
		stat, err := m.columnStatistic(ctx, input.Table, desc)
		if err != nil {
			return m.statisticsError(err)
		}
		columns = append(columns, stat)
	}

	output := &StatisticsOutput{
		Table:    input.Table,
		RowCount: rowCount,
		Columns:  columns,
	}
	output.Rendered = renderStatistics(output)

	m.logger.Info().
		Str("table", input.Table).
		Dur("duration", time.Since(startTime)).
		Int64("row_count", rowCount).
		Int("column_count", len(columns)).
		Msg("TableStatistics executed")

	return output
}

// columnStatistic runs the aggregate query for one column and scans the
// category-specific fields. NULL aggregates (empty table) leave the
// pointer fields nil.
func (m *MySQLMcp) columnStatistic(ctx context.Context, table string, desc ColumnDescriptor) (ColumnStatistic, error) {
	category := stats.Classify(desc.Type)
	stat := ColumnStatistic{
		Column:   desc.Name,
		Type:     desc.Type,
		Category: category.String(),
	}

	row := m.db.QueryRowxContext(ctx, stats.AggregateSQL(table, desc.Name, category))

	switch category {
	case stats.Numeric:
		var min, max sql.NullString
		var mean, stddev sql.NullFloat64
		if err := row.Scan(&min, &max, &mean, &stddev); err != nil {
			return stat, fmt.Errorf("numeric statistics for column '%s' failed: %w", desc.Name, err)
		}
		if min.Valid {
			v := min.String
			stat.Min = &v
		}
		if max.Valid {
			v := max.String
			stat.Max = &v
		}
		if mean.Valid {
			v := stats.Round2(mean.Float64)
			stat.Mean = &v
		}
		if stddev.Valid {
			v := stats.Round2(stddev.Float64)
			stat.StdDev = &v
		}
	case stats.Text:
		var distinct sql.NullInt64
		var meanLength sql.NullFloat64
		if err := row.Scan(&distinct, &meanLength); err != nil {
			return stat, fmt.Errorf("text statistics for column '%s' failed: %w", desc.Name, err)
		}
		if distinct.Valid {
			v := distinct.Int64
			stat.DistinctCount = &v
		}
		if meanLength.Valid {
			v := stats.Round2(meanLength.Float64)
			stat.MeanLength = &v
		}
	default:
		var distinct sql.NullInt64
		if err := row.Scan(&distinct); err != nil {
			return stat, fmt.Errorf("distinct count for column '%s' failed: %w", desc.Name, err)
		}
		if distinct.Valid {
			v := distinct.Int64
			stat.DistinctCount = &v
		}
	}
	return stat, nil
}

// statisticsError converts any error into a StatisticsOutput with error
// message, mirroring handleError for the query pipeline.
func (m *MySQLMcp) statisticsError(err error) *StatisticsOutput {
	errMsg := err.Error()
	prompt, patterns := m.errPrompts.Match(errMsg)

	logEvent := m.logger.Error().Err(err)
	if len(patterns) > 0 {
		logEvent = logEvent.Strs("error_prompts", patterns)
	}
	logEvent.Msg("statistics error")

	if prompt != "" {
		errMsg = errMsg + "\n\n" + prompt
	}
	return &StatisticsOutput{Error: errMsg}
}

func renderStatistics(output *StatisticsOutput) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# Statistics for table '%s'\n\n", output.Table)
	fmt.Fprintf(&sb, "Total rows: %d\n\n", output.RowCount)

	var numeric, text, other []ColumnStatistic
	for _, stat := range output.Columns {
		switch stat.Category {
		case stats.Numeric.String():
			numeric = append(numeric, stat)
		case stats.Text.String():
			text = append(text, stat)
		default:
			other = append(other, stat)
		}
	}

	if len(numeric) > 0 {
		sb.WriteString("## Numeric Columns\n\n")
		columns := []string{"Column", "Type", "Min", "Max", "Mean", "Std Dev"}
		rows := make([]map[string]interface{}, len(numeric))
		for i, stat := range numeric {
			rows[i] = map[string]interface{}{
				"Column":  stat.Column,
				"Type":    stat.Type,
				"Min":     naString(stat.Min),
				"Max":     naString(stat.Max),
				"Mean":    naFloat(stat.Mean),
				"Std Dev": naFloat(stat.StdDev),
			}
		}
		sb.WriteString(render.Table(columns, rows))
		sb.WriteString("\n")
	}

	if len(text) > 0 {
		sb.WriteString("## Text Columns\n\n")
		columns := []string{"Column", "Type", "Distinct Values", "Mean Length"}
		rows := make([]map[string]interface{}, len(text))
		for i, stat := range text {
			rows[i] = map[string]interface{}{
				"Column":          stat.Column,
				"Type":            stat.Type,
				"Distinct Values": naInt(stat.DistinctCount),
				"Mean Length":     naFloat(stat.MeanLength),
			}
		}
		sb.WriteString(render.Table(columns, rows))
		sb.WriteString("\n")
	}

	if len(other) > 0 {
		sb.WriteString("## Other Columns\n\n")
		columns := []string{"Column", "Type", "Distinct Values"}
		rows := make([]map[string]interface{}, len(other))
		for i, stat := range other {
			rows[i] = map[string]interface{}{
				"Column":          stat.Column,
				"Type":            stat.Type,
				"Distinct Values": naInt(stat.DistinctCount),
			}
		}
		sb.WriteString(render.Table(columns, rows))
		sb.WriteString("\n")
	}

	return sb.String()
}

// The naXxx helpers substitute the explicit N/A marker for aggregates that
// came back NULL, so an empty table never renders as zeros.

func naString(p *string) interface{} {
	if p == nil {
		return "N/A"
	}
	return *p
}

func naFloat(p *float64) interface{} {
	if p == nil {
		return "N/A"
	}
	return *p
}

func naInt(p *int64) interface{} {
	if p == nil {
		return "N/A"
	}
	return *p
}
