package mysqlmcp

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// DescribeDatabase returns a navigational overview of the database: its
// name, its tables, and the resource URIs that drill into each of them.
// It computes nothing beyond the table list. Does NOT go through the
// guard/hook/sanitization pipeline.
func (m *MySQLMcp) DescribeDatabase(ctx context.Context, input DescribeDatabaseInput) (*DescribeDatabaseOutput, error) {
	startTime := time.Now()

	// 1. Acquire semaphore
	release, err := m.acquireSlot(ctx, "DescribeDatabase")
	if err != nil {
		return nil, err
	}
	defer release()

	// 2. Execute
	tables, err := m.tableNames(ctx)
	if err != nil {
		return nil, fmt.Errorf("DescribeDatabase query failed: %w", err)
	}

	// 3. Render the resource listing
	var sb strings.Builder
	sb.WriteString("# Available Database Resources\n\n")
	sb.WriteString("## Tables\n\n")
	for _, table := range tables {
		fmt.Fprintf(&sb, "- `schema://table/%s` - structure of table %s\n", table, table)
	}
	sb.WriteString("\n## Other Resources\n\n")
	sb.WriteString("- `schema://tables` - list of all tables\n")
	sb.WriteString("- `schema://relationships` - relationships between tables\n")

	m.logger.Info().
		Dur("duration", time.Since(startTime)).
		Int("table_count", len(tables)).
		Msg("DescribeDatabase executed")

	return &DescribeDatabaseOutput{
		Database: m.schema,
		Tables:   tables,
		Rendered: sb.String(),
	}, nil
}
