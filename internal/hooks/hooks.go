// Package hooks runs operator-configured commands against a query before
// it executes. Each hook is an external program: the candidate SQL is
// written to its stdin and it answers on stdout with a small JSON verdict
// that can accept, reject, or rewrite the statement. Hooks whose regex
// does not match the current SQL are skipped, and the pattern is
// re-evaluated against the rewritten SQL at every step of the chain.
package hooks

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Config configures the runner.
type Config struct {
	DefaultTimeout time.Duration
	BeforeQuery    []Entry
}

// Entry defines a single command-based hook.
type Entry struct {
	Pattern string
	Command string
	Args    []string
	Timeout time.Duration // 0 means use DefaultTimeout
}

// Verdict is the JSON response a hook writes to stdout.
type Verdict struct {
	Accept        bool   `json:"accept"`
	ModifiedQuery string `json:"modified_query,omitempty"`
	ErrorMessage  string `json:"error_message,omitempty"`
}

type compiledHook struct {
	pattern *regexp.Regexp
	command string
	args    []string
	timeout time.Duration
}

// Runner executes command-based hooks.
type Runner struct {
	beforeQuery []compiledHook
	logger      zerolog.Logger
}

// NewRunner compiles the configured hooks. Panics on an invalid regex or
// a missing default timeout; hook configuration errors are programmer or
// operator mistakes caught at startup, not at query time.
func NewRunner(config Config, logger zerolog.Logger) *Runner {
	if config.DefaultTimeout == 0 && len(config.BeforeQuery) > 0 {
		panic("hooks: default_hook_timeout_seconds must be > 0 when hooks are configured")
	}

	compiled := make([]compiledHook, len(config.BeforeQuery))
	for i, e := range config.BeforeQuery {
		re, err := regexp.Compile(e.Pattern)
		if err != nil {
			panic(fmt.Sprintf("hooks: invalid regex pattern %q: %v", e.Pattern, err))
		}
		timeout := e.Timeout
		if timeout == 0 {
			timeout = config.DefaultTimeout
		}
		compiled[i] = compiledHook{
			pattern: re,
			command: e.Command,
			args:    e.Args,
			timeout: timeout,
		}
	}

	return &Runner{
		beforeQuery: compiled,
		logger:      logger,
	}
}

// RunBeforeQuery runs matching hooks as a middleware chain over the SQL.
// Returns the (possibly rewritten) SQL and the commands that actually ran.
// The first rejection, crash, timeout, or unparseable verdict aborts the
// chain with an error.
func (r *Runner) RunBeforeQuery(ctx context.Context, query string) (string, []string, error) {
	current := query
	var executed []string
	for _, hook := range r.beforeQuery {
		if !hook.pattern.MatchString(current) {
			continue
		}
		output, err := r.executeHook(ctx, hook, current)
		if err != nil {
			return "", nil, fmt.Errorf("before_query hook error: %w", err)
		}

		var verdict Verdict
		if err := json.Unmarshal(output, &verdict); err != nil {
			return "", nil, fmt.Errorf("before_query hook returned unparseable response (command: %s): %w", hook.command, err)
		}

		if !verdict.Accept {
			errMsg := "query rejected by hook"
			if verdict.ErrorMessage != "" {
				errMsg = verdict.ErrorMessage
			}
			return "", nil, fmt.Errorf("before_query hook error: %w", errors.New(errMsg))
		}
		if verdict.ModifiedQuery != "" {
			current = verdict.ModifiedQuery
		}
		executed = append(executed, hook.command)
	}
	return current, executed, nil
}

func (r *Runner) executeHook(ctx context.Context, hook compiledHook, input string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, hook.timeout)
	defer cancel()

	// Command and args are passed separately, no shell interpretation.
	cmd := exec.CommandContext(ctx, hook.command, hook.args...)
	cmd.Stdin = strings.NewReader(input)

	// Stdout carries the JSON verdict; stderr is only diagnostics.
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	output, err := cmd.Output()
	if err != nil {
		if stderr.Len() > 0 {
			r.logger.Warn().Str("command", hook.command).Str("stderr", stderr.String()).Msg("hook stderr output")
		}
		// Any failure stops the pipeline: non-zero exit, crash, or timeout.
		if ctx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("hook timed out: %s", hook.command)
		}
		return nil, fmt.Errorf("hook failed (command: %s): %w", hook.command, err)
	}
	if stderr.Len() > 0 {
		r.logger.Debug().Str("command", hook.command).Str("stderr", stderr.String()).Msg("hook stderr output")
	}
	return output, nil
}
