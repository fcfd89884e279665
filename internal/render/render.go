// Package render turns rows into markdown tables. Pure string
// transformation, no I/O; every gateway operation that returns tabular
// data goes through here so the escaping and NULL rules stay in one place.
package render

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// NoRows is the fixed message produced instead of an empty table.
const NoRows = "Query executed successfully. No rows returned."

// Table renders columns and rows as a markdown table: header row,
// separator row, then one row per record in input order. Cells are
// formatted by Cell. An empty row set yields NoRows.
func Table(columns []string, rows []map[string]any) string {
	if len(rows) == 0 {
		return NoRows
	}

	var b strings.Builder
	b.WriteString("| " + strings.Join(columns, " | ") + " |\n")

	separators := make([]string, len(columns))
	for i := range separators {
		separators[i] = "---"
	}
	b.WriteString("| " + strings.Join(separators, " | ") + " |\n")

	cells := make([]string, len(columns))
	for _, row := range rows {
		for i, col := range columns {
			cells[i] = Cell(row[col])
		}
		b.WriteString("| " + strings.Join(cells, " | ") + " |\n")
	}
	return b.String()
}

// Cell formats a single value for a table cell. nil becomes the literal
// NULL, maps and slices become their canonical JSON text, byte slices are
// treated as strings, timestamps use the database's own text form, and
// everything else uses its default formatting. Any pipe in the result is
// escaped so the table stays well-formed.
func Cell(v any) string {
	var s string
	switch val := v.(type) {
	case nil:
		s = "NULL"
	case string:
		s = val
	case []byte:
		s = string(val)
	case time.Time:
		s = val.Format("2006-01-02 15:04:05")
	case map[string]any, []any:
		jsonBytes, err := json.Marshal(val)
		if err != nil {
			s = fmt.Sprintf("%v", val)
		} else {
			s = string(jsonBytes)
		}
	default:
		s = fmt.Sprintf("%v", val)
	}
	return strings.ReplaceAll(s, "|", `\|`)
}
