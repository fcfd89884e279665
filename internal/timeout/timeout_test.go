package timeout

import (
	"strings"
	"testing"
	"time"
)

func TestMatchFirstRule(t *testing.T) {
	t.Parallel()
	m := NewManager(Config{
		DefaultTimeout: 30 * time.Second,
		Rules: []Rule{
			{Pattern: "information_schema", Timeout: 5 * time.Second},
			{Pattern: "JOIN", Timeout: 60 * time.Second},
		},
	})

	got, pattern := m.Resolve("SELECT * FROM information_schema.TABLES")
	if got != 5*time.Second {
		t.Errorf("expected 5s, got %v", got)
	}
	if pattern != "information_schema" {
		t.Errorf("expected pattern 'information_schema', got %q", pattern)
	}
}

func TestStopOnFirstMatch(t *testing.T) {
	t.Parallel()
	m := NewManager(Config{
		DefaultTimeout: 30 * time.Second,
		Rules: []Rule{
			{Pattern: "information_schema", Timeout: 5 * time.Second},
			{Pattern: "JOIN", Timeout: 60 * time.Second},
		},
	})

	got, pattern := m.Resolve("SELECT * FROM information_schema.TABLES JOIN x JOIN y")
	if got != 5*time.Second {
		t.Errorf("expected 5s (first match wins), got %v", got)
	}
	if pattern != "information_schema" {
		t.Errorf("expected pattern 'information_schema', got %q", pattern)
	}
}

func TestDefaultTimeout(t *testing.T) {
	t.Parallel()
	m := NewManager(Config{
		DefaultTimeout: 30 * time.Second,
		Rules: []Rule{
			{Pattern: "information_schema", Timeout: 5 * time.Second},
			{Pattern: "JOIN", Timeout: 60 * time.Second},
		},
	})

	got, pattern := m.Resolve("SELECT 1")
	if got != 30*time.Second {
		t.Errorf("expected 30s (default), got %v", got)
	}
	if pattern != "" {
		t.Errorf("expected empty pattern for default timeout, got %q", pattern)
	}
}

func TestNoRules(t *testing.T) {
	t.Parallel()
	m := NewManager(Config{
		DefaultTimeout: 30 * time.Second,
		Rules:          []Rule{},
	})

	got, pattern := m.Resolve("SELECT 1")
	if got != 30*time.Second {
		t.Errorf("expected 30s (default), got %v", got)
	}
	if pattern != "" {
		t.Errorf("expected empty pattern, got %q", pattern)
	}
}

func TestCaseSensitivePattern(t *testing.T) {
	t.Parallel()
	m := NewManager(Config{
		DefaultTimeout: 30 * time.Second,
		Rules: []Rule{
			{Pattern: `(?i)group by`, Timeout: 120 * time.Second},
		},
	})

	got, _ := m.Resolve("SELECT region, COUNT(*) FROM orders GROUP BY region")
	if got != 120*time.Second {
		t.Errorf("expected 120s for case-insensitive rule, got %v", got)
	}
}

func TestNewManagerPanicsOnInvalidRegex(t *testing.T) {
	t.Parallel()
	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("expected panic for invalid regex pattern")
		}
		msg, ok := r.(string)
		if !ok {
			t.Fatalf("expected string panic, got %T", r)
		}
		if !strings.Contains(msg, "invalid regex pattern") {
			t.Fatalf("expected panic to contain 'invalid regex pattern', got: %s", msg)
		}
		if !strings.Contains(msg, "[invalid") {
			t.Fatalf("expected panic to contain the invalid pattern, got: %s", msg)
		}
	}()
	NewManager(Config{
		DefaultTimeout: 30 * time.Second,
		Rules: []Rule{
			{Pattern: `[invalid`, Timeout: 5 * time.Second},
		},
	})
}
