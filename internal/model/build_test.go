package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fenwick-labs/calcgraph/internal/engine"
	"github.com/fenwick-labs/calcgraph/internal/ident"
)

func buildRates(t *testing.T) *engine.Engine {
	t.Helper()
	m, err := compileString(t, `
		model: {
			name: "rates"
			nodes: {
				central_bank_rate: { kind: "constant", value: 0.05 }
				inflation_rate:    { kind: "constant", value: 0.02 }
				spread:            { kind: "variable", value: 0.0 }
				real_rate:    { kind: "calc", op: "sub", inputs: ["central_bank_rate", "inflation_rate"] }
				nominal_rate: { kind: "calc", op: "add", inputs: ["real_rate", "spread"] }
				multi_year:   { kind: "calc", op: "compound", inputs: ["real_rate"] }
			}
		}
	`)
	require.NoError(t, err)
	e, err := Build(m)
	require.NoError(t, err)
	return e
}

func TestBuild_Evaluate(t *testing.T) {
	e := buildRates(t)

	got, err := e.Evaluate("real_rate")
	require.NoError(t, err)
	assert.InDelta(t, 0.03, got.(float64), 1e-12)

	got, err = e.Evaluate("multi_year", ident.Int(5))
	require.NoError(t, err)
	assert.InDelta(t, 0.159274, got.(float64), 1e-6)
}

func TestBuild_VariablePropagation(t *testing.T) {
	e := buildRates(t)

	got, err := e.Evaluate("nominal_rate")
	require.NoError(t, err)
	assert.InDelta(t, 0.03, got.(float64), 1e-12)

	require.NoError(t, e.SetValue("spread", 0.01))

	got, err = e.Evaluate("nominal_rate")
	require.NoError(t, err)
	assert.InDelta(t, 0.04, got.(float64), 1e-12)
}

func TestBuild_OverridePropagation(t *testing.T) {
	e := buildRates(t)

	_, err := e.Evaluate("nominal_rate")
	require.NoError(t, err)

	e.Override("real_rate", 0.1)

	got, err := e.Evaluate("nominal_rate")
	require.NoError(t, err)
	assert.InDelta(t, 0.1, got.(float64), 1e-12)

	got, err = e.Evaluate("multi_year", ident.Int(2))
	require.NoError(t, err)
	assert.InDelta(t, 0.21, got.(float64), 1e-12)

	e.RemoveOverride("real_rate")

	got, err = e.Evaluate("nominal_rate")
	require.NoError(t, err)
	assert.InDelta(t, 0.03, got.(float64), 1e-12)
}

func TestBuild_CompoundArgErrors(t *testing.T) {
	e := buildRates(t)

	_, err := e.Evaluate("multi_year")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exactly one integer argument")

	_, err = e.Evaluate("multi_year", ident.String("five"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be an integer")
}

func TestBuild_DivisionByZero(t *testing.T) {
	m, err := compileString(t, `
		model: {
			name: "ratios"
			nodes: {
				numer: { kind: "constant", value: 1.0 }
				denom: { kind: "variable", value: 0.0 }
				ratio: { kind: "calc", op: "div", inputs: ["numer", "denom"] }
			}
		}
	`)
	require.NoError(t, err)
	e, err := Build(m)
	require.NoError(t, err)

	_, err = e.Evaluate("ratio")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "division by zero")

	require.NoError(t, e.SetValue("denom", 4.0))
	got, err := e.Evaluate("ratio")
	require.NoError(t, err)
	assert.InDelta(t, 0.25, got.(float64), 1e-12)
}

func TestBuild_NonNumericInput(t *testing.T) {
	m, err := compileString(t, `
		model: {
			name: "mixed"
			nodes: {
				label: { kind: "variable", value: "hi" }
				twice: { kind: "calc", op: "add", inputs: ["label", "label"] }
			}
		}
	`)
	require.NoError(t, err)
	e, err := Build(m)
	require.NoError(t, err)

	_, err = e.Evaluate("twice")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "want number")
}

func TestBuildOn_DuplicateName(t *testing.T) {
	e := buildRates(t)

	m, err := compileString(t, `
		model: {
			name: "again"
			nodes: {
				spread: { kind: "constant", value: 1.0 }
			}
		}
	`)
	require.NoError(t, err)

	err = BuildOn(e, m)
	require.Error(t, err)
	assert.True(t, engine.IsDuplicateName(err))
}
