package mysqlmcp

import (
	"context"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/jmoiron/sqlx"

	"github.com/Wang4XD/MySQL-MCP-Server/internal/render"
)

// Query executes the full query pipeline and returns only QueryOutput.
// All errors (MySQL errors, guard rejections, hook rejections, Go errors)
// are converted to output.Error. The error message is then evaluated against
// error_prompts patterns; any matching prompt messages are appended. This
// means callers only need to check output.Error, never a Go error.
func (m *MySQLMcp) Query(ctx context.Context, input QueryInput) *QueryOutput {
	startTime := time.Now()

	// 1. Acquire semaphore (respects context cancellation to prevent deadlock)
	release, err := m.acquireSlot(ctx, "Query")
	if err != nil {
		return m.handleError(err)
	}
	defer release()

	// 2. Guard: length cap, SELECT-only prefix, LIMIT injection. A rejected
	// statement never reaches the database.
	sql, err := m.guard.Check(input.SQL, input.Limit)
	if err != nil {
		return m.handleError(err)
	}

	// 3. Run BeforeQuery hooks (middleware chain) on the validated SQL.
	// Go hooks and command hooks never coexist, New enforces that.
	var beforeHooks []string
	if len(m.beforeHooks) > 0 {
		sql, err = m.runBeforeHooks(ctx, sql)
		if err != nil {
			return m.handleError(err)
		}
		for _, entry := range m.beforeHooks {
			beforeHooks = append(beforeHooks, entry.Name)
		}
	} else if m.cmdHooks != nil {
		sql, beforeHooks, err = m.cmdHooks.RunBeforeQuery(ctx, sql)
		if err != nil {
			return m.handleError(err)
		}
	}

	// 4. Execute. No explicit transaction: the pipeline is read-only and
	// every pooled session runs with transaction_read_only=1 anyway.
	rows, err := m.db.QueryxContext(ctx, sql)
	if err != nil {
		return m.handleError(err)
	}

	// 5. Collect results
	result, err := m.collectRows(rows)
	if err != nil {
		return m.handleError(err)
	}

	// 6. Apply sanitization (per-field, recursive into JSON/arrays)
	sanitized := m.sanitizer.Active()
	result.Rows = m.sanitizer.Rows(result.Rows)

	// 7. Render after sanitization so redacted values are what gets shown
	rendered := render.Table(result.Columns, result.Rows)
	if result.RowCount > 0 {
		rendered = fmt.Sprintf("Query results (%d rows):\n\n%s", result.RowCount, rendered)
	}
	result.Rendered = rendered

	// 8. Apply max result length truncation
	m.truncateIfNeeded(result)

	// 9. Log successful query execution with pipeline details
	logEvent := m.logger.Info().
		Str("sql", truncateForLog(sql, 200)).
		Dur("duration", time.Since(startTime)).
		Int("row_count", result.RowCount)
	if len(beforeHooks) > 0 {
		logEvent = logEvent.Strs("before_hooks", beforeHooks)
	}
	if sanitized {
		logEvent = logEvent.Bool("sanitized", true)
	}
	logEvent.Msg("query executed")

	return result
}

// runBeforeHooks runs BeforeQuery hooks in a middleware chain. Each hook
// gets its own timeout; a hook error aborts the pipeline.
func (m *MySQLMcp) runBeforeHooks(ctx context.Context, sql string) (string, error) {
	for _, entry := range m.beforeHooks {
		timeout := entry.Timeout
		if timeout == 0 {
			timeout = time.Duration(m.config.DefaultHookTimeoutSeconds) * time.Second
		}
		hookCtx, cancel := context.WithTimeout(ctx, timeout)

		modified, err := entry.Hook.Run(hookCtx, sql)
		cancel()
		if err != nil {
			if hookCtx.Err() == context.DeadlineExceeded {
				return "", fmt.Errorf("before_query hook error: hook timed out (name: %s, timeout: %s)", entry.Name, timeout)
			}
			return "", fmt.Errorf("before_query hook error: hook rejected query (name: %s): %w", entry.Name, err)
		}
		sql = modified
	}
	return sql, nil
}

// collectRows reads all rows from sqlx.Rows and returns a QueryOutput.
func (m *MySQLMcp) collectRows(rows *sqlx.Rows) (*QueryOutput, error) {
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	colTypes, err := rows.ColumnTypes()
	if err != nil {
		return nil, err
	}
	dbTypes := make(map[string]string, len(colTypes))
	for _, ct := range colTypes {
		dbTypes[ct.Name()] = ct.DatabaseTypeName()
	}

	resultRows := make([]map[string]interface{}, 0)
	for rows.Next() {
		row := make(map[string]interface{}, len(columns))
		if err := rows.MapScan(row); err != nil {
			return nil, err
		}
		for col, v := range row {
			row[col] = convertValue(v, dbTypes[col])
		}
		resultRows = append(resultRows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &QueryOutput{Columns: columns, Rows: resultRows, RowCount: len(resultRows)}, nil
}

// convertValue converts a driver-returned value to a JSON-friendly Go type.
// The text protocol delivers every column as []byte, so the catalog type
// name decides how the bytes are parsed.
func convertValue(v interface{}, dbType string) interface{} {
	switch val := v.(type) {
	case nil:
		return nil
	case time.Time:
		return val.Format("2006-01-02 15:04:05")
	case []byte:
		return convertBytes(val, dbType)
	default:
		// Prepared-statement results arrive already typed.
		return val
	}
}

func convertBytes(b []byte, dbType string) interface{} {
	s := string(b)
	switch strings.TrimPrefix(dbType, "UNSIGNED ") {
	case "TINYINT", "SMALLINT", "MEDIUMINT", "INT", "BIGINT", "YEAR":
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n
		}
		// UNSIGNED BIGINT above the int64 range
		if n, err := strconv.ParseUint(s, 10, 64); err == nil {
			return n
		}
		return s
	case "FLOAT", "DOUBLE":
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
		return s
	case "DECIMAL":
		// Kept as text; parsing to float64 would lose exactness.
		return s
	case "BLOB", "BINARY", "VARBINARY", "BIT", "GEOMETRY":
		return base64.StdEncoding.EncodeToString(b)
	default:
		return s
	}
}

// handleError converts any error into a QueryOutput with error message.
// The error message is evaluated against error_prompts; matching prompt
// messages are appended.
func (m *MySQLMcp) handleError(err error) *QueryOutput {
	errMsg := err.Error()
	prompt, patterns := m.errPrompts.Match(errMsg)

	logEvent := m.logger.Error().Err(err)
	if len(patterns) > 0 {
		logEvent = logEvent.Strs("error_prompts", patterns)
	}
	logEvent.Msg("query error")

	if prompt != "" {
		errMsg = errMsg + "\n\n" + prompt
	}
	return &QueryOutput{Error: errMsg}
}

// truncateIfNeeded truncates the rendered output if it exceeds
// MaxResultLength (in characters).
func (m *MySQLMcp) truncateIfNeeded(output *QueryOutput) {
	if utf8.RuneCountInString(output.Rendered) <= m.config.Query.MaxResultLength {
		return
	}
	runes := []rune(output.Rendered)
	truncated := string(runes[:m.config.Query.MaxResultLength])
	output.Rows = nil
	output.Rendered = ""
	output.Error = truncated + "...[truncated] Result is too long! Add limits in your query!"
}

// truncateForLog truncates a string for log output to avoid oversized log entries.
func truncateForLog(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	truncateAt := maxLen
	for truncateAt > 0 && !utf8.RuneStart(s[truncateAt]) {
		truncateAt--
	}
	return s[:truncateAt] + "...[truncated]"
}
