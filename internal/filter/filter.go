// Package filter compiles CEL expressions that select log events.
//
// Expressions see these variables:
//
//	sequence  int     stream sequence number
//	ts_ms     int     event timestamp, unix milliseconds
//	size      int     message length in bytes
//	text      string  message text
//	source    string  source label
//	json      dyn     message parsed as JSON (null when it is not JSON)
//	now_ms    int     evaluation time, unix milliseconds
//
// Example: `text.contains("ERROR") && ts_ms > now_ms - 60000`.
package filter

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/cel-go/cel"
)

// ErrInvalidExpression wraps parse, type-check and non-boolean result errors.
var ErrInvalidExpression = errors.New("filter: invalid expression")

// Event is the input of a filter evaluation.
type Event struct {
	Seq         uint64
	TimestampMs int64
	Source      string
	Text        string
}

// Filter is a compiled expression. The zero value and filters compiled from
// a blank expression match everything.
type Filter struct {
	expr    string
	prog    cel.Program
	enabled bool
	now     func() time.Time
}

func newEnv() (*cel.Env, error) {
	return cel.NewEnv(
		cel.Variable("sequence", cel.IntType),
		cel.Variable("ts_ms", cel.IntType),
		cel.Variable("size", cel.IntType),
		cel.Variable("text", cel.StringType),
		cel.Variable("source", cel.StringType),
		cel.Variable("json", cel.DynType),
		cel.Variable("now_ms", cel.IntType),
	)
}

// Compile parses and type-checks expr.
func Compile(expr string) (*Filter, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return &Filter{now: time.Now}, nil
	}
	env, err := newEnv()
	if err != nil {
		return nil, err
	}
	ast, iss := env.Compile(expr)
	if iss != nil && iss.Err() != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidExpression, iss.Err())
	}
	if !ast.OutputType().IsExactType(cel.BoolType) && !ast.OutputType().IsExactType(cel.DynType) {
		return nil, fmt.Errorf("%w: %q yields %s, want bool", ErrInvalidExpression, expr, ast.OutputType())
	}
	prog, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidExpression, err)
	}
	return &Filter{expr: expr, prog: prog, enabled: true, now: time.Now}, nil
}

// Expression returns the trimmed source expression.
func (f *Filter) Expression() string {
	if f == nil {
		return ""
	}
	return f.expr
}

// Enabled reports whether the filter rejects anything at all.
func (f *Filter) Enabled() bool { return f != nil && f.enabled }

// Match evaluates the filter. Evaluation errors and non-boolean results count
// as no match.
func (f *Filter) Match(ev Event) bool {
	if !f.Enabled() {
		return true
	}
	var doc any
	_ = json.Unmarshal([]byte(ev.Text), &doc)
	out, _, err := f.prog.Eval(map[string]any{
		"sequence": int64(ev.Seq),
		"ts_ms":    ev.TimestampMs,
		"size":     int64(len(ev.Text)),
		"text":     ev.Text,
		"source":   ev.Source,
		"json":     doc,
		"now_ms":   f.now().UnixMilli(),
	})
	if err != nil {
		return false
	}
	b, ok := out.Value().(bool)
	return ok && b
}
