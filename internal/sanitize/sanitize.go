// Package sanitize applies regex-based redaction to result cell values
// before they leave the gateway. Rules are configured by the operator,
// e.g. masking anything that looks like a bcrypt hash or an API key in
// columns an agent was never meant to read verbatim.
package sanitize

import (
	"fmt"
	"regexp"
)

// Rule is the sanitizer's own rule type.
type Rule struct {
	Pattern     string
	Replacement string
}

type compiledRule struct {
	pattern     *regexp.Regexp
	replacement string
}

// Sanitizer applies the configured replacements to result row values.
type Sanitizer struct {
	rules []compiledRule
}

// New creates a Sanitizer. Returns an error on invalid regex patterns.
func New(rules []Rule) (*Sanitizer, error) {
	compiled := make([]compiledRule, len(rules))
	for i, r := range rules {
		re, err := regexp.Compile(r.Pattern)
		if err != nil {
			return nil, fmt.Errorf("sanitize: invalid regex pattern %q: %v", r.Pattern, err)
		}
		compiled[i] = compiledRule{pattern: re, replacement: r.Replacement}
	}
	return &Sanitizer{rules: compiled}, nil
}

// Active reports whether any rules are configured.
func (s *Sanitizer) Active() bool {
	return len(s.rules) > 0
}

// Rows applies every rule to each field value, in place, and returns the
// rows for chaining. String values are rewritten directly; maps and
// slices (JSON column values decoded upstream) are walked recursively.
func (s *Sanitizer) Rows(rows []map[string]interface{}) []map[string]interface{} {
	if !s.Active() {
		return rows
	}
	for _, row := range rows {
		for k, v := range row {
			row[k] = s.value(v)
		}
	}
	return rows
}

func (s *Sanitizer) value(v interface{}) interface{} {
	switch val := v.(type) {
	case string:
		result := val
		for _, rule := range s.rules {
			result = rule.pattern.ReplaceAllString(result, rule.replacement)
		}
		return result
	case map[string]interface{}:
		for k, inner := range val {
			val[k] = s.value(inner)
		}
		return val
	case []interface{}:
		for i, item := range val {
			val[i] = s.value(item)
		}
		return val
	default:
		// Numbers, booleans and nil carry nothing to redact.
		return v
	}
}
