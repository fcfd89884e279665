package sanitize

import (
	"encoding/json"
	"strings"
	"testing"
)

var emailRule = Rule{
	Pattern:     `([a-zA-Z0-9._%+-])[a-zA-Z0-9._%+-]*@`,
	Replacement: "${1}***@",
}

var cardRule = Rule{
	Pattern:     `(\d{4})\d{8}(\d{4})`,
	Replacement: "${1}xxxxxxxx${2}",
}

func TestRedactEmail(t *testing.T) {
	t.Parallel()
	s, err := New([]Rule{emailRule})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	result := s.value("alice@example.com")
	if result != "a***@example.com" {
		t.Fatalf("expected a***@example.com, got %v", result)
	}
}

func TestRedactCardNumber(t *testing.T) {
	t.Parallel()
	s, err := New([]Rule{cardRule})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	result := s.value("4532123456781234")
	if result != "4532xxxxxxxx1234" {
		t.Fatalf("expected 4532xxxxxxxx1234, got %v", result)
	}
}

func TestNoMatch(t *testing.T) {
	t.Parallel()
	s, err := New([]Rule{emailRule})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	result := s.value("hello world")
	if result != "hello world" {
		t.Fatalf("expected hello world, got %v", result)
	}
}

func TestMultipleRulesOrdering(t *testing.T) {
	t.Parallel()
	// First rule masks the card number, second rule replaces the x run with stars.
	rules := []Rule{
		cardRule,
		{Pattern: `x{8}`, Replacement: "********"},
	}
	s, err := New(rules)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	result := s.value("4532123456781234")
	// After the card rule: "4532xxxxxxxx1234"
	// After the second rule: "4532********1234"
	if result != "4532********1234" {
		t.Fatalf("expected 4532********1234, got %v", result)
	}
}

func TestRedactJSONField(t *testing.T) {
	t.Parallel()
	s, err := New([]Rule{emailRule})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	input := map[string]interface{}{
		"email": "alice@example.com",
	}
	result := s.value(input)
	m, ok := result.(map[string]interface{})
	if !ok {
		t.Fatalf("expected map, got %T", result)
	}
	if m["email"] != "a***@example.com" {
		t.Fatalf("expected a***@example.com, got %v", m["email"])
	}
}

func TestRedactNestedJSON(t *testing.T) {
	t.Parallel()
	s, err := New([]Rule{emailRule})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	input := map[string]interface{}{
		"contact": map[string]interface{}{
			"email": "alice@example.com",
		},
	}
	result := s.value(input)
	m := result.(map[string]interface{})
	contact := m["contact"].(map[string]interface{})
	if contact["email"] != "a***@example.com" {
		t.Fatalf("expected a***@example.com, got %v", contact["email"])
	}
}

func TestRedactArrayField(t *testing.T) {
	t.Parallel()
	s, err := New([]Rule{emailRule})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	input := []interface{}{"alice@example.com", "bob@example.com"}
	result := s.value(input)
	arr := result.([]interface{})
	if arr[0] != "a***@example.com" {
		t.Fatalf("expected a***@example.com for first element, got %v", arr[0])
	}
	if arr[1] != "b***@example.com" {
		t.Fatalf("expected b***@example.com for second element, got %v", arr[1])
	}
}

func TestRedactNullField(t *testing.T) {
	t.Parallel()
	s, err := New([]Rule{emailRule})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	result := s.value(nil)
	if result != nil {
		t.Fatalf("expected nil, got %v", result)
	}
}

func TestRedactNumericField(t *testing.T) {
	t.Parallel()
	s, err := New([]Rule{emailRule})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	result := s.value(int64(12345))
	if result != int64(12345) {
		t.Fatalf("expected 12345, got %v", result)
	}
}

func TestRedactJsonNumber(t *testing.T) {
	t.Parallel()
	s, err := New([]Rule{emailRule})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	input := json.Number("9007199254740993")
	result := s.value(input)
	jn, ok := result.(json.Number)
	if !ok {
		t.Fatalf("expected json.Number, got %T", result)
	}
	if jn.String() != "9007199254740993" {
		t.Fatalf("expected 9007199254740993, got %v", jn)
	}
}

func TestRedactBooleanField(t *testing.T) {
	t.Parallel()
	s, err := New([]Rule{emailRule})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	result := s.value(true)
	if result != true {
		t.Fatalf("expected true, got %v", result)
	}
}

func TestActive(t *testing.T) {
	t.Parallel()
	s, err := New([]Rule{emailRule})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !s.Active() {
		t.Fatal("expected sanitizer with rules to be active")
	}
	empty, err := New(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if empty.Active() {
		t.Fatal("expected sanitizer without rules to be inactive")
	}
}

func TestEmptyRulesPassThrough(t *testing.T) {
	t.Parallel()
	s, err := New([]Rule{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	result := s.value("alice@example.com")
	if result != "alice@example.com" {
		t.Fatalf("expected unchanged value, got %v", result)
	}
}

func TestRows(t *testing.T) {
	t.Parallel()
	s, err := New([]Rule{emailRule})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rows := []map[string]interface{}{
		{
			"name":   "Alice",
			"email":  "alice@example.com",
			"age":    int64(30),
			"active": true,
			"extra":  nil,
		},
		{
			"name":   "Bob",
			"email":  "bob@example.com",
			"age":    int64(25),
			"active": false,
			"data":   json.Number("42"),
		},
	}

	result := s.Rows(rows)
	if len(result) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(result))
	}

	// Row 0: email redacted, others unchanged
	if result[0]["name"] != "Alice" {
		t.Fatalf("expected Alice, got %v", result[0]["name"])
	}
	if result[0]["email"] != "a***@example.com" {
		t.Fatalf("expected a***@example.com, got %v", result[0]["email"])
	}
	if result[0]["age"] != int64(30) {
		t.Fatalf("expected 30, got %v", result[0]["age"])
	}
	if result[0]["active"] != true {
		t.Fatalf("expected true, got %v", result[0]["active"])
	}
	if result[0]["extra"] != nil {
		t.Fatalf("expected nil, got %v", result[0]["extra"])
	}

	// Row 1: email redacted, others unchanged
	if result[1]["name"] != "Bob" {
		t.Fatalf("expected Bob, got %v", result[1]["name"])
	}
	if result[1]["email"] != "b***@example.com" {
		t.Fatalf("expected b***@example.com, got %v", result[1]["email"])
	}
	jn, ok := result[1]["data"].(json.Number)
	if !ok {
		t.Fatalf("expected json.Number, got %T", result[1]["data"])
	}
	if jn.String() != "42" {
		t.Fatalf("expected 42, got %v", jn)
	}
}

func TestRowsWithoutRules(t *testing.T) {
	t.Parallel()
	s, err := New(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rows := []map[string]interface{}{
		{"email": "alice@example.com"},
	}
	result := s.Rows(rows)
	if result[0]["email"] != "alice@example.com" {
		t.Fatalf("expected unchanged value, got %v", result[0]["email"])
	}
}

func TestNewErrorsOnInvalidRegex(t *testing.T) {
	t.Parallel()
	_, err := New([]Rule{
		{Pattern: `[invalid`, Replacement: "x"},
	})
	if err == nil {
		t.Fatal("expected error for invalid regex pattern")
	}
	if !strings.Contains(err.Error(), "invalid regex pattern") {
		t.Fatalf("expected error to contain 'invalid regex pattern', got: %s", err)
	}
	if !strings.Contains(err.Error(), "[invalid") {
		t.Fatalf("expected error to contain the invalid pattern, got: %s", err)
	}
}
