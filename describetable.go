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

// Existence is checked against the catalog rather than by running DESCRIBE
// and interpreting its failure; a missing table must be distinguishable
// from a connection or permission problem.
const tableExistsSQL = `
SELECT COUNT(*)
FROM INFORMATION_SCHEMA.TABLES
WHERE TABLE_SCHEMA = ?
  AND TABLE_NAME = ?;
`

// DescribeTable returns the column descriptors and the verbatim CREATE
// TABLE statement of a table. A name that is not in the catalog yields
// ErrTableNotFound. Does NOT go through the guard/hook/sanitization
// pipeline.
func (m *MySQLMcp) DescribeTable(ctx context.Context, input DescribeTableInput) (*DescribeTableOutput, error) {
	startTime := time.Now()

	// 1. Acquire semaphore
	release, err := m.acquireSlot(ctx, "DescribeTable")
	if err != nil {
		return nil, err
	}
	defer release()

	// 2. Existence check via catalog lookup
	exists, err := m.tableExists(ctx, input.Table)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("%w: '%s'", ErrTableNotFound, input.Table)
	}

	// 3. DESCRIBE: one descriptor per column, catalog order preserved
	columns, err := m.describeColumns(ctx, input.Table)
	if err != nil {
		return nil, err
	}

	// 4. SHOW CREATE TABLE: verbatim DDL
	createStmt, err := m.showCreateTable(ctx, input.Table)
	if err != nil {
		return nil, err
	}

	output := &DescribeTableOutput{
		Table:           input.Table,
		Columns:         columns,
		CreateStatement: createStmt,
	}
	output.Rendered = renderDescribeTable(output)

	m.logger.Info().
		Str("table", input.Table).
		Dur("duration", time.Since(startTime)).
		Int("column_count", len(columns)).
		Msg("DescribeTable executed")

	return output, nil
}

// tableExists reports whether the named table exists in the connected
// database. The name is passed as a statement parameter and never enters
// SQL text.
func (m *MySQLMcp) tableExists(ctx context.Context, table string) (bool, error) {
	var count int
	if err := m.db.QueryRowxContext(ctx, tableExistsSQL, m.schema, table).Scan(&count); err != nil {
		return false, fmt.Errorf("table existence check failed: %w", err)
	}
	return count > 0, nil
}

func (m *MySQLMcp) describeColumns(ctx context.Context, table string) ([]ColumnDescriptor, error) {
	rows, err := m.db.QueryxContext(ctx, "DESCRIBE "+quoteIdent(table))
	if err != nil {
		return nil, fmt.Errorf("failed to describe table '%s': %w", table, err)
	}
	defer rows.Close()

	columns := make([]ColumnDescriptor, 0)
	for rows.Next() {
		// DESCRIBE columns: Field, Type, Null, Key, Default, Extra.
		// Only Default is ever NULL.
		var field, typ, null, key, extra string
		var def sql.NullString
		if err := rows.Scan(&field, &typ, &null, &key, &def, &extra); err != nil {
			return nil, fmt.Errorf("failed to scan column: %w", err)
		}
		col := ColumnDescriptor{
			Name:     field,
			Type:     typ,
			Nullable: null == "YES",
			Key:      key,
			Extra:    extra,
			Category: stats.Classify(typ).String(),
		}
		if def.Valid {
			v := def.String
			col.Default = &v
		}
		columns = append(columns, col)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("column rows error: %w", err)
	}
	return columns, nil
}

func (m *MySQLMcp) showCreateTable(ctx context.Context, table string) (string, error) {
	// SHOW CREATE TABLE returns (name, DDL) for tables and four columns
	// for views; the DDL is at index 1 either way.
	row := m.db.QueryRowxContext(ctx, "SHOW CREATE TABLE "+quoteIdent(table))
	values, err := row.SliceScan()
	if err != nil {
		return "", fmt.Errorf("failed to fetch create statement for '%s': %w", table, err)
	}
	if len(values) < 2 {
		return "", fmt.Errorf("unexpected SHOW CREATE TABLE shape for '%s': %d columns", table, len(values))
	}
	return asString(values[1]), nil
}

func renderDescribeTable(output *DescribeTableOutput) string {
	columns := []string{"Field", "Type", "Null", "Key", "Default", "Extra"}
	rows := make([]map[string]interface{}, len(output.Columns))
	for i, col := range output.Columns {
		null := "NO"
		if col.Nullable {
			null = "YES"
		}
		var def interface{}
		if col.Default != nil {
			def = *col.Default
		}
		rows[i] = map[string]interface{}{
			"Field":   col.Name,
			"Type":    col.Type,
			"Null":    null,
			"Key":     col.Key,
			"Default": def,
			"Extra":   col.Extra,
		}
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "# Table: %s\n\n", output.Table)
	sb.WriteString("## Columns\n\n")
	sb.WriteString(render.Table(columns, rows))
	fmt.Fprintf(&sb, "\n## Create Statement\n\n```sql\n%s\n```\n", output.CreateStatement)
	return sb.String()
}

// asString converts a driver-returned value to its text form. The text
// protocol delivers most values as []byte.
func asString(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case []byte:
		return string(val)
	case string:
		return val
	default:
		return fmt.Sprintf("%v", val)
	}
}

// quoteIdent escapes an identifier for direct use in SQL text. Doubles
// embedded backticks and wraps in backticks.
func quoteIdent(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}
