package render

import (
	"strings"
	"testing"
	"time"
)

// parseTable reverses Table for round-trip checks: it returns the header
// cells and the data rows with the pipe escaping undone.
func parseTable(t *testing.T, rendered string) ([]string, [][]string) {
	t.Helper()
	lines := strings.Split(strings.TrimRight(rendered, "\n"), "\n")
	if len(lines) < 2 {
		t.Fatalf("expected at least header and separator lines, got %d lines", len(lines))
	}
	parseLine := func(line string) []string {
		if !strings.HasPrefix(line, "| ") || !strings.HasSuffix(line, " |") {
			t.Fatalf("malformed table line: %q", line)
		}
		inner := line[2 : len(line)-2]
		cells := strings.Split(inner, " | ")
		for i, c := range cells {
			cells[i] = strings.ReplaceAll(c, `\|`, "|")
		}
		return cells
	}
	header := parseLine(lines[0])
	var rows [][]string
	for _, line := range lines[2:] {
		rows = append(rows, parseLine(line))
	}
	return header, rows
}

func TestTableBasic(t *testing.T) {
	t.Parallel()
	got := Table([]string{"id", "name"}, []map[string]any{
		{"id": int64(1), "name": "alice"},
		{"id": int64(2), "name": "bob"},
	})
	expected := "| id | name |\n" +
		"| --- | --- |\n" +
		"| 1 | alice |\n" +
		"| 2 | bob |\n"
	if got != expected {
		t.Fatalf("expected:\n%s\ngot:\n%s", expected, got)
	}
}

func TestTableEmptyRowsReturnsNoRowsMessage(t *testing.T) {
	t.Parallel()
	got := Table([]string{"id"}, nil)
	if got != NoRows {
		t.Fatalf("expected the fixed no-rows message, got: %q", got)
	}
	if strings.Contains(got, "|") {
		t.Fatalf("expected no table markup in the no-rows message, got: %q", got)
	}
}

func TestTableMissingColumnRendersNull(t *testing.T) {
	t.Parallel()
	got := Table([]string{"id", "name"}, []map[string]any{{"id": int64(1)}})
	if !strings.Contains(got, "| 1 | NULL |") {
		t.Fatalf("expected missing column to render as NULL, got:\n%s", got)
	}
}

func TestCellNil(t *testing.T) {
	t.Parallel()
	if got := Cell(nil); got != "NULL" {
		t.Fatalf("expected NULL, got: %q", got)
	}
}

func TestCellEscapesPipe(t *testing.T) {
	t.Parallel()
	if got := Cell("a|b|c"); got != `a\|b\|c` {
		t.Fatalf("expected pipes escaped, got: %q", got)
	}
}

func TestCellBytesAsString(t *testing.T) {
	t.Parallel()
	if got := Cell([]byte("hello")); got != "hello" {
		t.Fatalf("expected byte slice rendered as string, got: %q", got)
	}
}

func TestCellTime(t *testing.T) {
	t.Parallel()
	ts := time.Date(2024, 3, 15, 9, 30, 0, 0, time.UTC)
	if got := Cell(ts); got != "2024-03-15 09:30:00" {
		t.Fatalf("expected database timestamp form, got: %q", got)
	}
}

func TestCellMapAsJSON(t *testing.T) {
	t.Parallel()
	got := Cell(map[string]any{"k": "v"})
	if got != `{"k":"v"}` {
		t.Fatalf("expected canonical JSON, got: %q", got)
	}
}

func TestCellSliceAsJSON(t *testing.T) {
	t.Parallel()
	got := Cell([]any{"a", float64(1)})
	if got != `["a",1]` {
		t.Fatalf("expected canonical JSON, got: %q", got)
	}
}

func TestCellJSONWithPipeEscaped(t *testing.T) {
	t.Parallel()
	got := Cell(map[string]any{"k": "a|b"})
	if got != `{"k":"a\|b"}` {
		t.Fatalf("expected pipe escaped inside JSON text, got: %q", got)
	}
}

func TestCellNumericDefaultFormatting(t *testing.T) {
	t.Parallel()
	if got := Cell(int64(42)); got != "42" {
		t.Fatalf("expected 42, got: %q", got)
	}
	if got := Cell(3.5); got != "3.5" {
		t.Fatalf("expected 3.5, got: %q", got)
	}
}

func TestRoundTrip(t *testing.T) {
	t.Parallel()
	columns := []string{"id", "note", "payload"}
	rows := []map[string]any{
		{"id": int64(1), "note": "plain", "payload": "with|pipe"},
		{"id": int64(2), "note": "unicode ✓", "payload": "|| leading"},
	}
	header, parsed := parseTable(t, Table(columns, rows))

	if len(header) != len(columns) {
		t.Fatalf("expected %d header cells, got %d", len(columns), len(header))
	}
	for i, col := range columns {
		if header[i] != col {
			t.Fatalf("header[%d]: expected %q, got %q", i, col, header[i])
		}
	}
	if len(parsed) != len(rows) {
		t.Fatalf("expected %d rows, got %d", len(rows), len(parsed))
	}
	for i, row := range rows {
		for j, col := range columns {
			expected := Cell(row[col])
			expected = strings.ReplaceAll(expected, `\|`, "|")
			if parsed[i][j] != expected {
				t.Fatalf("row %d col %q: expected %q, got %q", i, col, expected, parsed[i][j])
			}
		}
	}
}
