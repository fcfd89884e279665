package mysqlmcp

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// RegisterMCPResources registers the schema:// resource tree on the given
// MCP server. Resources read through the same engine operations as the
// tools but return only the rendered markdown, not the JSON envelope.
func RegisterMCPResources(mcpServer *server.MCPServer, mysqlMcp *MySQLMcp) {
	// Database overview
	overviewResource := mcp.NewResource("schema://", "Database overview",
		mcp.WithResourceDescription("Overview of the database: its tables and the resources that describe them"),
		mcp.WithMIMEType("text/markdown"),
	)
	mcpServer.AddResource(overviewResource, mysqlMcp.loggedResourceHandler("schema://", func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		readCtx, cancel := context.WithTimeout(ctx, time.Duration(mysqlMcp.config.Query.ReflectTimeoutSeconds)*time.Second)
		defer cancel()

		output, err := mysqlMcp.DescribeDatabase(readCtx, DescribeDatabaseInput{})
		if err != nil {
			return nil, err
		}
		return markdownContents(req.Params.URI, output.Rendered), nil
	}))

	// Table list
	tablesResource := mcp.NewResource("schema://tables", "Table list",
		mcp.WithResourceDescription("Bullet list of all tables in the database"),
		mcp.WithMIMEType("text/markdown"),
	)
	mcpServer.AddResource(tablesResource, mysqlMcp.loggedResourceHandler("schema://tables", func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		readCtx, cancel := context.WithTimeout(ctx, time.Duration(mysqlMcp.config.Query.ReflectTimeoutSeconds)*time.Second)
		defer cancel()

		output, err := mysqlMcp.ListTables(readCtx, ListTablesInput{})
		if err != nil {
			return nil, err
		}
		return markdownContents(req.Params.URI, output.Rendered), nil
	}))

	// Per-table structure
	tableTemplate := mcp.NewResourceTemplate("schema://table/{table_name}", "Table structure",
		mcp.WithTemplateDescription("Structure of a single table: columns and CREATE TABLE statement"),
		mcp.WithTemplateMIMEType("text/markdown"),
	)
	mcpServer.AddResourceTemplate(tableTemplate, mysqlMcp.loggedResourceHandler("schema://table", func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		table := strings.TrimPrefix(req.Params.URI, "schema://table/")
		if table == "" || strings.Contains(table, "/") {
			return nil, fmt.Errorf("invalid table resource URI: %s", req.Params.URI)
		}
		readCtx, cancel := context.WithTimeout(ctx, time.Duration(mysqlMcp.config.Query.ReflectTimeoutSeconds)*time.Second)
		defer cancel()

		output, err := mysqlMcp.DescribeTable(readCtx, DescribeTableInput{Table: table})
		if err != nil {
			return nil, err
		}
		return markdownContents(req.Params.URI, output.Rendered), nil
	}))

	// Relationships
	relationshipsResource := mcp.NewResource("schema://relationships", "Database relationships",
		mcp.WithResourceDescription("Foreign key relationships between tables, grouped by source table"),
		mcp.WithMIMEType("text/markdown"),
	)
	mcpServer.AddResource(relationshipsResource, mysqlMcp.loggedResourceHandler("schema://relationships", func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		readCtx, cancel := context.WithTimeout(ctx, time.Duration(mysqlMcp.config.Query.ReflectTimeoutSeconds)*time.Second)
		defer cancel()

		output, err := mysqlMcp.ListRelationships(readCtx, ListRelationshipsInput{})
		if err != nil {
			return nil, err
		}
		return markdownContents(req.Params.URI, output.Rendered), nil
	}))
}

// loggedResourceHandler wraps a resource handler to log the URI, duration,
// and outcome of each read. It returns an unnamed func type so the same
// wrapper serves AddResource and AddResourceTemplate.
func (m *MySQLMcp) loggedResourceHandler(name string, handler func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error)) func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		startTime := time.Now()
		contents, err := handler(ctx, req)

		logEvent := m.logger.Info().
			Str("resource", name).
			Str("uri", req.Params.URI).
			Dur("duration", time.Since(startTime))
		if err != nil {
			logEvent = logEvent.Bool("is_error", true)
		}
		logEvent.Msg("resource read")
		return contents, err
	}
}

// markdownContents wraps rendered markdown in the single-element contents
// slice the resource API expects.
func markdownContents(uri, text string) []mcp.ResourceContents {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "text/markdown",
			Text:     text,
		},
	}
}
