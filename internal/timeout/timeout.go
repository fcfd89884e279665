// Package timeout resolves per-query timeouts from pattern rules.
//
// Rules are regex patterns matched against the SQL text, first match
// wins. Queries matching no rule get the default timeout. This lets a
// deployment give slow reporting queries (large JOINs, aggregations
// over information_schema) more headroom than point lookups without
// touching the global default.
package timeout

import (
	"fmt"
	"regexp"
	"time"
)

// Rule pairs a regex pattern with the timeout applied to matching SQL.
type Rule struct {
	Pattern string
	Timeout time.Duration
}

// Config holds the default timeout and the ordered rule list.
type Config struct {
	DefaultTimeout time.Duration
	Rules          []Rule
}

type compiledRule struct {
	pattern *regexp.Regexp
	raw     string
	timeout time.Duration
}

// Manager resolves query timeouts based on SQL pattern matching.
type Manager struct {
	rules          []compiledRule
	defaultTimeout time.Duration
}

// NewManager creates a new Manager. Panics on invalid regex patterns.
func NewManager(config Config) *Manager {
	compiled := make([]compiledRule, len(config.Rules))
	for i, r := range config.Rules {
		re, err := regexp.Compile(r.Pattern)
		if err != nil {
			panic(fmt.Sprintf("timeout: invalid regex pattern %q: %v", r.Pattern, err))
		}
		compiled[i] = compiledRule{pattern: re, raw: r.Pattern, timeout: r.Timeout}
	}
	return &Manager{rules: compiled, defaultTimeout: config.DefaultTimeout}
}

// Resolve returns the timeout for the given SQL and the pattern of the
// rule that matched. First matching rule wins. When no rule matches it
// returns the default timeout and an empty pattern.
func (m *Manager) Resolve(sql string) (time.Duration, string) {
	for _, rule := range m.rules {
		if rule.pattern.MatchString(sql) {
			return rule.timeout, rule.raw
		}
	}
	return m.defaultTimeout, ""
}
