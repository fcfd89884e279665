package mysqlmcp

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// RegisterMCPPrompts registers the guided-analysis prompts on the given
// MCP server. Prompts are static instructional text steering the agent
// through the gateway's tools; they touch no database state, so they need
// no engine.
func RegisterMCPPrompts(mcpServer *server.MCPServer) {
	explorePrompt := mcp.NewPrompt("explore_database",
		mcp.WithPromptDescription("Start a guided exploration of the database"),
	)
	mcpServer.AddPrompt(explorePrompt, func(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
		text := `You are a database exploration expert. I want you to help me analyze a MySQL database. Please proceed through these steps:

1. First, fetch and review the list of all tables
2. Examine the structure of the important tables
3. Understand the relationships between tables
4. Suggest some valuable queries that would help me understand the data

Include your observations and analysis in your answer, along with recommended next steps.`
		return promptResult("Start database exploration", text), nil
	})

	analyzePrompt := mcp.NewPrompt("analyze_table",
		mcp.WithPromptDescription("Analyze the data in a specific table"),
		mcp.WithArgument("table_name",
			mcp.ArgumentDescription("The table to analyze"),
			mcp.RequiredArgument(),
		),
	)
	mcpServer.AddPrompt(analyzePrompt, func(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
		table, err := promptArg(req, "table_name")
		if err != nil {
			return nil, err
		}
		text := fmt.Sprintf(`I want to analyze the data in the `+"`%s`"+` table in depth. Please help me with the following:

1. Fetch and review the table structure
2. Generate a statistical summary to understand the data distribution
3. Query some sample data
4. Point out potentially interesting patterns or anomalies
5. Suggest some possible analysis queries

This is my first look at this table, so please provide as much detail and insight as possible.`, table)
		return promptResult("Analyze a table", text), nil
	})

	reportPrompt := mcp.NewPrompt("create_report",
		mcp.WithPromptDescription("Create a data report for a table"),
		mcp.WithArgument("table_name",
			mcp.ArgumentDescription("The table to report on"),
			mcp.RequiredArgument(),
		),
		mcp.WithArgument("columns",
			mcp.ArgumentDescription("The columns the report should focus on"),
			mcp.RequiredArgument(),
		),
	)
	mcpServer.AddPrompt(reportPrompt, func(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
		table, err := promptArg(req, "table_name")
		if err != nil {
			return nil, err
		}
		columns, err := promptArg(req, "columns")
		if err != nil {
			return nil, err
		}
		text := fmt.Sprintf(`I need to create a detailed report about the `+"`%s`"+` table, focusing on these columns: %s

Please help me:
1. Analyze the distribution and quality of the data in these columns
2. Identify any outliers or missing data
3. Generate descriptive statistics
4. Provide the results of a few summary queries
5. Offer insights and recommendations based on the data

Finally, summarize the analysis into a structured report with the main findings and recommendations.`, table, columns)
		return promptResult("Create a data report", text), nil
	})

	timeSeriesPrompt := mcp.NewPrompt("time_series_analysis",
		mcp.WithPromptDescription("Analyze time series data in a table"),
		mcp.WithArgument("table_name",
			mcp.ArgumentDescription("The table holding the time series"),
			mcp.RequiredArgument(),
		),
		mcp.WithArgument("time_column",
			mcp.ArgumentDescription("The column holding timestamps"),
			mcp.RequiredArgument(),
		),
		mcp.WithArgument("value_column",
			mcp.ArgumentDescription("The column holding the measured value"),
			mcp.RequiredArgument(),
		),
	)
	mcpServer.AddPrompt(timeSeriesPrompt, func(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
		table, err := promptArg(req, "table_name")
		if err != nil {
			return nil, err
		}
		timeColumn, err := promptArg(req, "time_column")
		if err != nil {
			return nil, err
		}
		valueColumn, err := promptArg(req, "value_column")
		if err != nil {
			return nil, err
		}
		text := fmt.Sprintf(`I need to analyze the time series data in the `+"`%s`"+` table, where:
- time column: `+"`%s`"+`
- value column: `+"`%s`"+`

Please run the following analysis:
1. Check the time range and data completeness
2. Compute aggregate statistics over different periods (day, week, month, quarter)
3. Identify trends, seasonal patterns, and outliers
4. Compare changes across periods
5. Suggest visualizations

Provide a summary of the results and key insights, along with suggested SQL queries for deeper analysis.`, table, timeColumn, valueColumn)
		return promptResult("Analyze time series data", text), nil
	})

	qualityPrompt := mcp.NewPrompt("data_quality_check",
		mcp.WithPromptDescription("Run a data quality check across the database"),
	)
	mcpServer.AddPrompt(qualityPrompt, func(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
		text := `I need to run a thorough data quality check across the database. Please help me:

1. Identify columns that may contain NULL values
2. Check for duplicate data
3. Validate that date and numeric data are plausible
4. Check foreign key integrity
5. Identify possible outliers
6. Assess the completeness and consistency of the data

For each check, provide the SQL query and an analysis of its results, plus recommendations for fixing any data quality problems found.`
		return promptResult("Run a data quality check", text), nil
	})
}

// promptResult wraps instructional text in a single user-role message.
func promptResult(description, text string) *mcp.GetPromptResult {
	return mcp.NewGetPromptResult(description, []mcp.PromptMessage{
		mcp.NewPromptMessage(mcp.RoleUser, mcp.NewTextContent(text)),
	})
}

// promptArg fetches a required prompt argument.
func promptArg(req mcp.GetPromptRequest, name string) (string, error) {
	value := req.Params.Arguments[name]
	if value == "" {
		return "", fmt.Errorf("%s argument is required", name)
	}
	return value, nil
}
