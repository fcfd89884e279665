// Package guard validates caller-supplied SQL before it is allowed to
// reach the database. The check is textual, not an AST parse: the trimmed
// statement must begin with SELECT, and a LIMIT clause is appended when a
// row bound is in effect and the statement does not already contain one.
//
// Because the check is textual, a statement that embeds other behavior
// behind a SELECT prefix (e.g. SELECT ... INTO OUTFILE) passes. That gap
// is intentional and documented; deployments that care should run pooled
// sessions with transaction_read_only=1 so the server itself rejects
// writes (see the root package's ReadOnlySession config).
package guard

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrRejected is the base error for every statement the guard refuses.
	// Rejection reasons are wrapped around it, so errors.Is(err, ErrRejected)
	// identifies any guard refusal.
	ErrRejected = errors.New("query rejected")

	// ErrNotSelect is the rejection reason for statements that do not
	// begin with SELECT.
	ErrNotSelect = errors.New("only SELECT statements are allowed")

	// ErrTooLong is the rejection reason for statements over MaxSQLLength.
	ErrTooLong = errors.New("statement too long")
)

// Config is the guard's own config type.
type Config struct {
	// DefaultLimit is the row bound applied when the caller passes limit 0.
	DefaultLimit int
	// MaxSQLLength rejects statements longer than this many bytes.
	// Zero disables the length check.
	MaxSQLLength int
}

// Guard checks raw SQL against the read-only policy.
type Guard struct {
	defaultLimit int
	maxSQLLength int
}

// NewGuard creates a new Guard from config.
func NewGuard(config Config) *Guard {
	return &Guard{
		defaultLimit: config.DefaultLimit,
		maxSQLLength: config.MaxSQLLength,
	}
}

// Check validates raw SQL and returns the normalized statement to execute.
//
// limit selects the row bound: a positive value is used as-is, zero means
// "use the configured default", and a negative value disables the bound
// entirely. The bound is appended as a trailing LIMIT clause only when the
// statement does not already contain the word "limit" (case-insensitive
// substring check, same contract as the automatic bound it guards).
//
// The returned error wraps ErrRejected; the statement must not be executed
// when an error is returned.
func (g *Guard) Check(raw string, limit int) (string, error) {
	if g.maxSQLLength > 0 && len(raw) > g.maxSQLLength {
		return "", fmt.Errorf("%w: %w: statement is %d bytes, the cap is %d", ErrRejected, ErrTooLong, len(raw), g.maxSQLLength)
	}

	sql := strings.TrimSpace(raw)
	if sql == "" {
		return "", fmt.Errorf("%w: empty statement", ErrRejected)
	}
	if !strings.HasPrefix(strings.ToLower(sql), "select") {
		return "", fmt.Errorf("%w: %w", ErrRejected, ErrNotSelect)
	}

	effective := limit
	if effective == 0 {
		effective = g.defaultLimit
	}
	if effective > 0 && !strings.Contains(strings.ToLower(sql), "limit") {
		sql = fmt.Sprintf("%s LIMIT %d", sql, effective)
	}
	return sql, nil
}
