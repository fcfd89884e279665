// Package stats classifies table columns by declared type and builds the
// per-column aggregate queries for the statistics engine. Classification
// is a pure function of the declared type string; the three categories
// are closed, so callers dispatch with a switch instead of re-matching
// type strings at every site.
package stats

import (
	"fmt"
	"math"
	"strings"
)

// Category is a column's statistical category.
type Category int

const (
	// Numeric columns get min/max/mean/stddev aggregates.
	Numeric Category = iota
	// Text columns get distinct-count and mean character length.
	Text
	// Other columns get a distinct-count only.
	Other
)

func (c Category) String() string {
	switch c {
	case Numeric:
		return "numeric"
	case Text:
		return "text"
	default:
		return "other"
	}
}

var (
	numericTokens = []string{"int", "decimal", "float", "double"}
	textTokens    = []string{"char", "text", "varchar"}
)

// Classify maps a declared column type to its category by case-insensitive
// substring match against the known type tokens. Anything unmatched is
// Other.
func Classify(declaredType string) Category {
	lower := strings.ToLower(declaredType)
	for _, token := range numericTokens {
		if strings.Contains(lower, token) {
			return Numeric
		}
	}
	for _, token := range textTokens {
		if strings.Contains(lower, token) {
			return Text
		}
	}
	return Other
}

// AggregateSQL returns the single aggregate statement for one column of
// the given category. Identifiers are backtick-quoted; the caller passes
// raw table and column names.
func AggregateSQL(table, column string, category Category) string {
	t, c := quoteIdent(table), quoteIdent(column)
	switch category {
	case Numeric:
		return fmt.Sprintf("SELECT MIN(%s), MAX(%s), AVG(%s), STD(%s) FROM %s", c, c, c, c, t)
	case Text:
		return fmt.Sprintf("SELECT COUNT(DISTINCT %s), AVG(CHAR_LENGTH(%s)) FROM %s", c, c, t)
	default:
		return fmt.Sprintf("SELECT COUNT(DISTINCT %s) FROM %s", c, t)
	}
}

// Round2 rounds to two decimal places, the precision used for mean,
// stddev, and mean-length values.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func quoteIdent(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}
