package harness

import (
	"fmt"
	"io"
	"log/slog"
	"math"
	"strings"

	"github.com/fenwick-labs/calcgraph/internal/engine"
	"github.com/fenwick-labs/calcgraph/internal/ident"
	"github.com/fenwick-labs/calcgraph/internal/model"
)

// floatTolerance is the comparison slack for numeric expectations, so
// scenario authors can write 0.03 without spelling out the exact binary
// value of 0.05 - 0.02.
const floatTolerance = 1e-9

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true when every step expectation held.
	Pass bool

	// Trace holds every engine event the run produced, in order. Golden
	// comparison renders this (see RenderTrace).
	Trace []engine.Event

	// Errors lists failed expectations, one message per failure.
	Errors []string
}

func (r *Result) addError(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
	r.Pass = false
}

// traceRecorder collects engine events in memory.
type traceRecorder struct {
	events []engine.Event
}

func (r *traceRecorder) Record(ev engine.Event) {
	r.events = append(r.events, ev)
}

// Run compiles the scenario's model, builds a fresh engine, and executes
// the steps in order. Step expectation failures land in Result.Errors;
// only infrastructure problems (unreadable model, malformed step) return
// an error.
func Run(scenario *Scenario) (*Result, error) {
	m, err := model.CompileFile(scenario.Model)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
	}

	rec := &traceRecorder{}
	eng, err := model.Build(m,
		engine.WithRecorder(rec),
		engine.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
	}

	result := &Result{Pass: true}
	for i, step := range scenario.Steps {
		if err := runStep(eng, i, step, result); err != nil {
			return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
		}
	}

	result.Trace = rec.events
	return result, nil
}

func runStep(eng *engine.Engine, index int, step Step, result *Result) error {
	switch {
	case step.Eval != "":
		args, err := identArgs(step.Args)
		if err != nil {
			return fmt.Errorf("steps[%d]: %w", index, err)
		}
		got, err := eng.Evaluate(step.Eval, args...)
		if step.ExpectError != "" {
			if err == nil {
				result.addError("steps[%d]: eval %s: expected error containing %q, got value %v",
					index, step.Eval, step.ExpectError, got)
			} else if !containsFold(err.Error(), step.ExpectError) {
				result.addError("steps[%d]: eval %s: error %q does not contain %q",
					index, step.Eval, err.Error(), step.ExpectError)
			}
			return nil
		}
		if err != nil {
			result.addError("steps[%d]: eval %s: %v", index, step.Eval, err)
			return nil
		}
		if step.Expect != nil && !valuesMatch(got, step.Expect) {
			result.addError("steps[%d]: eval %s: got %v, want %v", index, step.Eval, got, step.Expect)
		}
		return nil

	case step.Set != "":
		if err := eng.SetValue(step.Set, normalizeScalar(step.Value)); err != nil {
			result.addError("steps[%d]: set %s: %v", index, step.Set, err)
		}
		return nil

	case step.Override != "":
		args, err := identArgs(step.Args)
		if err != nil {
			return fmt.Errorf("steps[%d]: %w", index, err)
		}
		eng.Override(step.Override, normalizeScalar(step.Value), args...)
		return nil

	case step.RemoveOverride != "":
		args, err := identArgs(step.Args)
		if err != nil {
			return fmt.Errorf("steps[%d]: %w", index, err)
		}
		eng.RemoveOverride(step.RemoveOverride, args...)
		return nil
	}

	return fmt.Errorf("steps[%d]: no operation", index)
}

// identArgs converts YAML-parsed scalars to identity arguments. Ints stay
// ints on purpose: the argument type is part of the identity.
func identArgs(raw []any) ([]ident.Value, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	args := make([]ident.Value, len(raw))
	for i, v := range raw {
		arg, err := ident.FromGo(v)
		if err != nil {
			return nil, fmt.Errorf("args[%d]: %w", i, err)
		}
		args[i] = arg
	}
	return args, nil
}

// normalizeScalar widens YAML integers to float64 so a variable written
// `value: 3` feeds arithmetic nodes the same way `value: 3.0` does,
// matching how the model compiler normalizes node values.
func normalizeScalar(v any) any {
	switch n := v.(type) {
	case int:
		return float64(n)
	case int64:
		return float64(n)
	default:
		return v
	}
}

func valuesMatch(got, want any) bool {
	wantF, wantNum := toFloat(want)
	gotF, gotNum := toFloat(got)
	if wantNum && gotNum {
		return math.Abs(gotF-wantF) <= floatTolerance
	}
	return got == want
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}
