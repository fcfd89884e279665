// Package errprompt matches database error messages against configured
// patterns and produces guidance text for the calling agent. A MySQL
// error like "Table 'shop.orders' doesn't exist" can carry a hint such as
// "use list_tables to see what exists" back to the model instead of
// leaving it to guess.
package errprompt

import (
	"fmt"
	"regexp"
	"strings"
)

// Rule is the error prompt matcher's own rule type.
type Rule struct {
	Pattern string
	Message string
}

type compiledRule struct {
	pattern *regexp.Regexp
	message string
}

// Matcher checks error messages against patterns and returns guidance
// prompts.
type Matcher struct {
	rules []compiledRule
}

// New creates a Matcher. Returns an error on invalid regex patterns.
func New(rules []Rule) (*Matcher, error) {
	compiled := make([]compiledRule, len(rules))
	for i, r := range rules {
		re, err := regexp.Compile(r.Pattern)
		if err != nil {
			return nil, fmt.Errorf("errprompt: invalid regex pattern %q: %v", r.Pattern, err)
		}
		compiled[i] = compiledRule{pattern: re, message: r.Message}
	}
	return &Matcher{rules: compiled}, nil
}

// Match evaluates the error message against all rules, top to bottom. It
// returns the matching prompt messages joined with newlines (empty string
// when nothing matches) together with the patterns that matched, for
// logging.
func (m *Matcher) Match(errMsg string) (string, []string) {
	var messages, patterns []string
	for _, rule := range m.rules {
		if rule.pattern.MatchString(errMsg) {
			messages = append(messages, rule.message)
			patterns = append(patterns, rule.pattern.String())
		}
	}
	return strings.Join(messages, "\n"), patterns
}
