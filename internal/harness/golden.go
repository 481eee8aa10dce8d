package harness

import (
	"fmt"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/fenwick-labs/calcgraph/internal/engine"
)

// RenderTrace formats a recorded event stream as stable, diffable text.
// One event per line: sequence number, kind, identity, and the rendered
// value when the event carries one. This is the byte representation golden
// files pin down.
func RenderTrace(scenarioName string, trace []engine.Event) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "scenario: %s\n", scenarioName)
	for _, ev := range trace {
		fmt.Fprintf(&b, "%3d  %-16s %s", ev.Seq, ev.Kind, ev.Identity)
		if ev.Value != "" {
			fmt.Fprintf(&b, " = %s", ev.Value)
		}
		b.WriteByte('\n')
	}
	return []byte(b.String())
}

// RunWithGolden executes a scenario, fails the test on any step
// expectation error, and compares the rendered trace against
// testdata/golden/{scenario.Name}.golden.
//
// Regenerate golden files with:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		t.Fatalf("scenario %s failed to run: %v", scenario.Name, err)
	}
	for _, msg := range result.Errors {
		t.Errorf("scenario %s: %s", scenario.Name, msg)
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, RenderTrace(scenario.Name, result.Trace))
}
