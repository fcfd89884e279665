package mysqlmcp

import (
	"context"
	"encoding/json"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// RegisterMCPTools registers the six gateway operations as MCP tools on
// the given MCP server. Handlers own the per-tool deadlines: the engine
// itself runs operations without a timeout, so the limits configured in
// QueryConfig are applied here, at the transport boundary.
func RegisterMCPTools(mcpServer *server.MCPServer, mysqlMcp *MySQLMcp) {
	// ListTables tool
	listTablesTool := mcp.NewTool("list_tables",
		mcp.WithDescription("List all tables in the connected MySQL database."),
		mcp.WithReadOnlyHintAnnotation(true),
	)

	mcpServer.AddTool(listTablesTool, mysqlMcp.loggedToolHandler("list_tables", func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		toolCtx, cancel := context.WithTimeout(ctx, time.Duration(mysqlMcp.config.Query.ReflectTimeoutSeconds)*time.Second)
		defer cancel()

		output, err := mysqlMcp.ListTables(toolCtx, ListTablesInput{})
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		jsonBytes, err := json.Marshal(output)
		if err != nil {
			return mcp.NewToolResultError("failed to marshal list tables result"), nil
		}
		return mcp.NewToolResultText(string(jsonBytes)), nil
	}))

	// DescribeTable tool
	describeTableTool := mcp.NewTool("describe_table",
		mcp.WithDescription("Describe the structure of a table: columns with types, nullability, keys and defaults, plus the full CREATE TABLE statement."),
		mcp.WithString("table_name",
			mcp.Required(),
			mcp.Description("The table name to describe"),
		),
		mcp.WithReadOnlyHintAnnotation(true),
	)

	mcpServer.AddTool(describeTableTool, mysqlMcp.loggedToolHandler("describe_table", func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		table, err := req.RequireString("table_name")
		if err != nil {
			return mcp.NewToolResultError("table_name parameter is required"), nil
		}
		toolCtx, cancel := context.WithTimeout(ctx, time.Duration(mysqlMcp.config.Query.ReflectTimeoutSeconds)*time.Second)
		defer cancel()

		output, err := mysqlMcp.DescribeTable(toolCtx, DescribeTableInput{Table: table})
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		jsonBytes, err := json.Marshal(output)
		if err != nil {
			return mcp.NewToolResultError("failed to marshal describe table result"), nil
		}
		return mcp.NewToolResultText(string(jsonBytes)), nil
	}))

	// ListRelationships tool
	listRelationshipsTool := mcp.NewTool("list_relationships",
		mcp.WithDescription("List all foreign key relationships in the database, grouped by source table."),
		mcp.WithReadOnlyHintAnnotation(true),
	)

	mcpServer.AddTool(listRelationshipsTool, mysqlMcp.loggedToolHandler("list_relationships", func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		toolCtx, cancel := context.WithTimeout(ctx, time.Duration(mysqlMcp.config.Query.ReflectTimeoutSeconds)*time.Second)
		defer cancel()

		output, err := mysqlMcp.ListRelationships(toolCtx, ListRelationshipsInput{})
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		jsonBytes, err := json.Marshal(output)
		if err != nil {
			return mcp.NewToolResultError("failed to marshal list relationships result"), nil
		}
		return mcp.NewToolResultText(string(jsonBytes)), nil
	}))

	// DescribeDatabase tool
	describeDatabaseTool := mcp.NewTool("describe_database",
		mcp.WithDescription("Get an overview of the database: its tables and the schema:// resources that describe them."),
		mcp.WithReadOnlyHintAnnotation(true),
	)

	mcpServer.AddTool(describeDatabaseTool, mysqlMcp.loggedToolHandler("describe_database", func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		toolCtx, cancel := context.WithTimeout(ctx, time.Duration(mysqlMcp.config.Query.ReflectTimeoutSeconds)*time.Second)
		defer cancel()

		output, err := mysqlMcp.DescribeDatabase(toolCtx, DescribeDatabaseInput{})
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		jsonBytes, err := json.Marshal(output)
		if err != nil {
			return mcp.NewToolResultError("failed to marshal describe database result"), nil
		}
		return mcp.NewToolResultText(string(jsonBytes)), nil
	}))

	// ExecuteQuery tool
	executeQueryTool := mcp.NewTool("execute_query",
		mcp.WithDescription("Execute a read-only SQL query (SELECT only) against the MySQL database. A LIMIT clause is appended automatically when the statement has none. Returns results as JSON including a rendered markdown table."),
		mcp.WithString("sql",
			mcp.Required(),
			mcp.Description("The SELECT statement to execute"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of rows to return when the statement has no LIMIT clause (defaults to guard.default_row_limit, 0 disables the automatic bound)"),
		),
		mcp.WithReadOnlyHintAnnotation(true),
	)

	mcpServer.AddTool(executeQueryTool, mysqlMcp.loggedToolHandler("execute_query", func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		sql, err := req.RequireString("sql")
		if err != nil {
			return mcp.NewToolResultError("sql parameter is required"), nil
		}
		// At the tool boundary 0 means "no automatic bound"; the engine
		// expresses that as a negative limit. An absent argument falls
		// back to the configured row bound.
		limit := int(req.GetFloat("limit", float64(mysqlMcp.config.Guard.DefaultRowLimit)))
		if limit == 0 {
			limit = -1
		}

		timeout, rule := mysqlMcp.timeouts.Resolve(sql)
		if rule != "" {
			mysqlMcp.logger.Debug().Str("timeout_rule", rule).Msg("timeout rule matched")
		}
		toolCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		output := mysqlMcp.Query(toolCtx, QueryInput{SQL: sql, Limit: limit})
		if output.Error != "" {
			return mcp.NewToolResultError(output.Error), nil
		}
		jsonBytes, err := json.Marshal(output)
		if err != nil {
			return mcp.NewToolResultError("failed to marshal query result"), nil
		}
		return mcp.NewToolResultText(string(jsonBytes)), nil
	}))

	// TableStatistics tool
	tableStatisticsTool := mcp.NewTool("table_statistics",
		mcp.WithDescription("Compute per-column statistics for a table: min/max/mean/stddev for numeric columns, distinct count and mean length for text columns, distinct count for everything else."),
		mcp.WithString("table_name",
			mcp.Required(),
			mcp.Description("The table to profile"),
		),
		mcp.WithReadOnlyHintAnnotation(true),
	)

	mcpServer.AddTool(tableStatisticsTool, mysqlMcp.loggedToolHandler("table_statistics", func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		table, err := req.RequireString("table_name")
		if err != nil {
			return mcp.NewToolResultError("table_name parameter is required"), nil
		}
		toolCtx, cancel := context.WithTimeout(ctx, time.Duration(mysqlMcp.config.Query.StatisticsTimeoutSeconds)*time.Second)
		defer cancel()

		output := mysqlMcp.TableStatistics(toolCtx, StatisticsInput{Table: table})
		if output.Error != "" {
			return mcp.NewToolResultError(output.Error), nil
		}
		jsonBytes, err := json.Marshal(output)
		if err != nil {
			return mcp.NewToolResultError("failed to marshal table statistics result"), nil
		}
		return mcp.NewToolResultText(string(jsonBytes)), nil
	}))
}

// loggedToolHandler wraps a tool handler to log request/response lengths,
// duration, and the error flag of the result.
func (m *MySQLMcp) loggedToolHandler(tool string, handler server.ToolHandlerFunc) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		startTime := time.Now()
		reqLen := requestLength(req)
		result, err := handler(ctx, req)
		respLen := resultLength(result)

		logEvent := m.logger.Info().
			Str("tool", tool).
			Int("request_bytes", reqLen).
			Int("response_bytes", respLen).
			Dur("duration", time.Since(startTime))
		if result != nil && result.IsError {
			logEvent = logEvent.Bool("is_error", true)
		}
		logEvent.Msg("tool call")
		return result, err
	}
}

// requestLength returns the JSON-encoded byte length of the request arguments.
func requestLength(req mcp.CallToolRequest) int {
	args := req.GetArguments()
	if len(args) == 0 {
		return 0
	}
	b, err := json.Marshal(args)
	if err != nil {
		return 0
	}
	return len(b)
}

// resultLength returns the total byte length of text content in a CallToolResult.
func resultLength(result *mcp.CallToolResult) int {
	if result == nil {
		return 0
	}
	total := 0
	for _, c := range result.Content {
		if tc, ok := c.(mcp.TextContent); ok {
			total += len(tc.Text)
		}
	}
	return total
}
