package mysqlmcp

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// ListTables returns the names of all tables in the connected database, in
// catalog order, plus a rendered bullet list. Does NOT go through the
// guard/hook/sanitization pipeline.
func (m *MySQLMcp) ListTables(ctx context.Context, input ListTablesInput) (*ListTablesOutput, error) {
	startTime := time.Now()

	// 1. Acquire semaphore
	release, err := m.acquireSlot(ctx, "ListTables")
	if err != nil {
		return nil, err
	}
	defer release()

	// 2. Execute
	tables, err := m.tableNames(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListTables query failed: %w", err)
	}

	// 3. Render one bullet per table
	lines := make([]string, len(tables))
	for i, table := range tables {
		lines[i] = "- " + table
	}

	m.logger.Info().
		Dur("duration", time.Since(startTime)).
		Int("table_count", len(tables)).
		Msg("ListTables executed")

	return &ListTablesOutput{Tables: tables, Rendered: strings.Join(lines, "\n")}, nil
}

// tableNames runs SHOW TABLES and returns the names in catalog order.
// The caller must already hold a semaphore slot.
func (m *MySQLMcp) tableNames(ctx context.Context) ([]string, error) {
	rows, err := m.db.QueryxContext(ctx, "SHOW TABLES")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tables := make([]string, 0)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		tables = append(tables, name)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return tables, nil
}
