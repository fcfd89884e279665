package mysqlmcp

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Wang4XD/MySQL-MCP-Server/internal/render"
)

const foreignKeysSQL = `
SELECT
    TABLE_NAME,
    COLUMN_NAME,
    CONSTRAINT_NAME,
    REFERENCED_TABLE_NAME,
    REFERENCED_COLUMN_NAME
FROM INFORMATION_SCHEMA.KEY_COLUMN_USAGE
WHERE REFERENCED_TABLE_SCHEMA = ?
  AND TABLE_NAME = ?
ORDER BY ORDINAL_POSITION;
`

// ListRelationships enumerates every foreign-key edge in the database,
// grouped by source table. A database without foreign keys yields an empty
// edge list and the fixed "no relationships" rendering, not an error. Does
// NOT go through the guard/hook/sanitization pipeline.
func (m *MySQLMcp) ListRelationships(ctx context.Context, input ListRelationshipsInput) (*ListRelationshipsOutput, error) {
	startTime := time.Now()

	// 1. Acquire semaphore
	release, err := m.acquireSlot(ctx, "ListRelationships")
	if err != nil {
		return nil, err
	}
	defer release()

	// 2. Enumerate tables, then collect the outgoing edges of each
	tables, err := m.tableNames(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListRelationships query failed: %w", err)
	}

	edges := make([]ForeignKeyEdge, 0)
	for _, table := range tables {
		tableEdges, err := m.foreignKeys(ctx, table)
		if err != nil {
			return nil, err
		}
		edges = append(edges, tableEdges...)
	}

	output := &ListRelationshipsOutput{Edges: edges}
	output.Rendered = renderRelationships(edges)

	m.logger.Info().
		Dur("duration", time.Since(startTime)).
		Int("table_count", len(tables)).
		Int("edge_count", len(edges)).
		Msg("ListRelationships executed")

	return output, nil
}

// foreignKeys returns the foreign-key edges whose source is the given
// table. Both the database name and the table name are statement
// parameters.
func (m *MySQLMcp) foreignKeys(ctx context.Context, table string) ([]ForeignKeyEdge, error) {
	rows, err := m.db.QueryxContext(ctx, foreignKeysSQL, m.schema, table)
	if err != nil {
		return nil, fmt.Errorf("foreign key lookup for '%s' failed: %w", table, err)
	}
	defer rows.Close()

	edges := make([]ForeignKeyEdge, 0)
	for rows.Next() {
		var edge ForeignKeyEdge
		if err := rows.Scan(&edge.Table, &edge.Column, &edge.Constraint, &edge.ReferencedTable, &edge.ReferencedColumn); err != nil {
			return nil, fmt.Errorf("failed to scan foreign key: %w", err)
		}
		edges = append(edges, edge)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("foreign key rows error: %w", err)
	}
	return edges, nil
}

// renderRelationships produces one section per source table. Edges arrive
// already grouped because they are collected table by table.
func renderRelationships(edges []ForeignKeyEdge) string {
	var sb strings.Builder
	sb.WriteString("# Database Relationships\n\n")

	if len(edges) == 0 {
		sb.WriteString("No foreign key relationships found.\n")
		return sb.String()
	}

	columns := []string{"Column", "Constraint", "Referenced Table", "Referenced Column"}
	i := 0
	for i < len(edges) {
		table := edges[i].Table
		rows := make([]map[string]interface{}, 0)
		for i < len(edges) && edges[i].Table == table {
			rows = append(rows, map[string]interface{}{
				"Column":            edges[i].Column,
				"Constraint":        edges[i].Constraint,
				"Referenced Table":  edges[i].ReferencedTable,
				"Referenced Column": edges[i].ReferencedColumn,
			})
			i++
		}
		fmt.Fprintf(&sb, "## Foreign keys of `%s`\n\n", table)
		sb.WriteString(render.Table(columns, rows))
		sb.WriteString("\n")
	}
	return sb.String()
}
