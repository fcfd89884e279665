// Package mysqlmcp exposes a MySQL database to AI agents through the
// Model Context Protocol (MCP) as a safety-constrained introspection and
// query gateway.
//
// It provides three capability classes: schema reflection (ListTables,
// DescribeTable, ListRelationships, DescribeDatabase), guarded read-only
// query execution (Query), and per-column statistical summarization
// (TableStatistics). Caller-supplied SQL passes a read-only guard that
// rejects everything but SELECT statements and appends a row limit when
// none is present; the guard is textual, so deployments should
// keep ReadOnlySession enabled to have the server itself refuse writes.
//
// # Library Usage
//
//	m, err := mysqlmcp.New(ctx, dsn, mysqlmcp.Config{
//		Pool:  mysqlmcp.PoolConfig{MaxConns: 10},
//		Guard: mysqlmcp.GuardConfig{DefaultRowLimit: 100},
//	}, logger)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer m.Close(ctx)
//
//	// Use directly
//	output := m.Query(ctx, mysqlmcp.QueryInput{SQL: "SELECT * FROM users"})
//
//	// Or register the MCP surface
//	mysqlmcp.RegisterMCPTools(mcpServer, m)
//	mysqlmcp.RegisterMCPResources(mcpServer, m)
//	mysqlmcp.RegisterMCPPrompts(mcpServer)
//
// # Hooks
//
// BeforeQuery hooks run as a middleware chain between the guard and
// execution. Implement [BeforeQueryHook] to inspect, rewrite, or veto
// validated SQL:
//
//	type AuditHook struct{}
//
//	func (h *AuditHook) Run(ctx context.Context, query string) (string, error) {
//		log.Printf("query: %s", query)
//		return query, nil // return modified query or original
//	}
//
// For configuration reference and agent setup, see the doctor subcommand
// of cmd/mysqlmcp.
package mysqlmcp
