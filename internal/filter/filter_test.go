package filter

import (
	"errors"
	"testing"
	"time"
)

func TestBlankMatchesAll(t *testing.T) {
	f, err := Compile("  ")
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if f.Enabled() {
		t.Fatalf("blank filter should be disabled")
	}
	if !f.Match(Event{Text: "anything"}) {
		t.Fatalf("blank filter must match")
	}
	var nilFilter *Filter
	if !nilFilter.Match(Event{}) {
		t.Fatalf("nil filter must match")
	}
}

func TestTextAndSource(t *testing.T) {
	f, err := Compile(`text.contains("ERROR") && source == "web"`)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if !f.Match(Event{Text: "ERROR boom", Source: "web"}) {
		t.Fatalf("expected match")
	}
	if f.Match(Event{Text: "ERROR boom", Source: "db"}) {
		t.Fatalf("source should not match")
	}
	if f.Match(Event{Text: "fine", Source: "web"}) {
		t.Fatalf("text should not match")
	}
}

func TestJSONField(t *testing.T) {
	f, err := Compile(`has(json.level) && json.level == "warn"`)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if !f.Match(Event{Text: `{"level":"warn","msg":"x"}`}) {
		t.Fatalf("expected json match")
	}
	if f.Match(Event{Text: "not json"}) {
		t.Fatalf("non-json must not match")
	}
}

func TestNowWindow(t *testing.T) {
	f, err := Compile(`ts_ms > now_ms - 1000`)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	fixed := time.UnixMilli(50_000)
	f.now = func() time.Time { return fixed }
	if !f.Match(Event{TimestampMs: 49_500}) {
		t.Fatalf("recent event should match")
	}
	if f.Match(Event{TimestampMs: 10_000}) {
		t.Fatalf("old event should not match")
	}
}

func TestInvalidExpressions(t *testing.T) {
	for _, expr := range []string{`text.contains(`, `unknown_var == 1`, `size + 1`} {
		if _, err := Compile(expr); !errors.Is(err, ErrInvalidExpression) {
			t.Fatalf("%q: expected ErrInvalidExpression, got %v", expr, err)
		}
	}
}
