package engine

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fenwick-labs/calcgraph/internal/ident"
	"github.com/fenwick-labs/calcgraph/internal/node"
)

// evalFloat evaluates and asserts the result is a float64.
func evalFloat(t *testing.T, e *Engine, name string, args ...ident.Value) float64 {
	t.Helper()
	v, err := e.Evaluate(name, args...)
	require.NoError(t, err)
	f, ok := v.(float64)
	require.True(t, ok, "expected float64 from %s, got %T", name, v)
	return f
}

func mustRegister(t *testing.T, e *Engine, nodes ...node.Node) {
	t.Helper()
	for _, n := range nodes {
		require.NoError(t, e.Register(n))
	}
}

// sum builds a calc node adding the float values of the named inputs.
func sum(name string, inputs ...string) *node.Calc {
	return node.NewCalc(name, func(g node.Evaluator, _ []ident.Value) (any, error) {
		total := 0.0
		for _, in := range inputs {
			v, err := g.Evaluate(in)
			if err != nil {
				return nil, err
			}
			total += v.(float64)
		}
		return total, nil
	})
}

func TestEvaluate_ConstantIsStable(t *testing.T) {
	// A constant returns its value no matter what else happens.
	e := New()
	mustRegister(t, e,
		node.NewConstant("a", 2.0),
		node.NewVariable("b", 3.0),
		sum("c", "a", "b"),
	)

	assert.Equal(t, 2.0, evalFloat(t, e, "a"))
	assert.Equal(t, 5.0, evalFloat(t, e, "c"))
	require.NoError(t, e.SetValue("b", 10.0))
	assert.Equal(t, 12.0, evalFloat(t, e, "c"))
	assert.Equal(t, 2.0, evalFloat(t, e, "a"))
}

func TestEvaluate_VariablePropagation(t *testing.T) {
	// Changing a variable recomputes its dependents on next read.
	e := New()
	mustRegister(t, e,
		node.NewConstant("a", 2.0),
		node.NewVariable("b", 3.0),
		sum("c", "a", "b"),
	)

	assert.Equal(t, 5.0, evalFloat(t, e, "c"))

	require.NoError(t, e.SetValue("b", 10.0))
	assert.Equal(t, 12.0, evalFloat(t, e, "c"))
}

func TestEvaluate_OverridePrecedenceAndRestoration(t *testing.T) {
	// An override wins over computed values; removing it restores
	// recomputation from live inputs.
	e := New()
	mustRegister(t, e,
		node.NewConstant("a", 2.0),
		node.NewVariable("b", 3.0),
		sum("c", "a", "b"),
	)

	assert.Equal(t, 5.0, evalFloat(t, e, "c"))
	require.NoError(t, e.SetValue("b", 10.0))
	assert.Equal(t, 12.0, evalFloat(t, e, "c"))

	e.Override("a", 100.0)
	assert.Equal(t, 110.0, evalFloat(t, e, "c"))

	e.RemoveOverride("a")
	assert.Equal(t, 12.0, evalFloat(t, e, "c"))
}

func TestEvaluate_DynamicDependencyPruning(t *testing.T) {
	// A node that branches sheds the edges of the branch it no longer
	// takes, so overriding the abandoned input must not dirty it.
	e := New()
	mustRegister(t, e,
		node.NewConstant("a", 2.0),
		node.NewVariable("b", 10.0),
		node.NewVariable("flag", "x"),
		node.NewCalc("d", func(g node.Evaluator, _ []ident.Value) (any, error) {
			flag, err := g.Evaluate("flag")
			if err != nil {
				return nil, err
			}
			if flag == "x" {
				return g.Evaluate("a")
			}
			return g.Evaluate("b")
		}),
	)

	assert.Equal(t, 2.0, evalFloat(t, e, "d"))
	assert.Contains(t, e.Dependents("a"), "d")

	require.NoError(t, e.SetValue("flag", "y"))
	assert.Equal(t, 10.0, evalFloat(t, e, "d"))

	// The d -> a edge must be gone after the recomputation down the other
	// branch; overriding a must leave d's cache untouched.
	assert.NotContains(t, e.Dependents("a"), "d")
	e.Override("a", 999.0)
	assert.True(t, e.Cached("d"))
	assert.Equal(t, 10.0, evalFloat(t, e, "d"))
}

func TestEvaluate_CycleRejected(t *testing.T) {
	// Mutually recursive nodes fail with a cycle error instead of
	// hanging or overflowing.
	e := New()
	mustRegister(t, e,
		node.NewCalc("x", func(g node.Evaluator, _ []ident.Value) (any, error) {
			return g.Evaluate("y")
		}),
		node.NewCalc("y", func(g node.Evaluator, _ []ident.Value) (any, error) {
			return g.Evaluate("x")
		}),
	)

	_, err := e.Evaluate("x")
	require.Error(t, err)
	assert.True(t, IsCycle(err), "expected cycle error, got %v", err)

	var ee *Error
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, []string{"x", "y", "x"}, ee.Cycle)

	// The stack unwinds completely; unrelated evaluation still works.
	mustRegister(t, e, node.NewConstant("z", 1.0))
	assert.Equal(t, 1.0, evalFloat(t, e, "z"))
}

func TestEvaluate_SelfCycleRejected(t *testing.T) {
	e := New()
	mustRegister(t, e, node.NewCalc("x", func(g node.Evaluator, _ []ident.Value) (any, error) {
		return g.Evaluate("x")
	}))

	_, err := e.Evaluate("x")
	assert.True(t, IsCycle(err))
}

func TestEvaluate_ParameterizedIdentityIsolation(t *testing.T) {
	// square(2) and square(3) cache independently; each distinct
	// argument tuple computes exactly once.
	e := New()
	computeCount := 0
	mustRegister(t, e, node.NewCalc("square", func(_ node.Evaluator, args []ident.Value) (any, error) {
		computeCount++
		n := float64(args[0].(ident.Int))
		return n * n, nil
	}))

	assert.Equal(t, 4.0, evalFloat(t, e, "square", ident.Int(2)))
	assert.Equal(t, 9.0, evalFloat(t, e, "square", ident.Int(3)))
	assert.Equal(t, 4.0, evalFloat(t, e, "square", ident.Int(2)))
	assert.Equal(t, 9.0, evalFloat(t, e, "square", ident.Int(3)))
	assert.Equal(t, 2, computeCount, "one recomputation per distinct argument tuple")
}

func TestInvalidate_Idempotent(t *testing.T) {
	// Invalidating twice has the same observable effect as once.
	e := New()
	recomputes := 0
	mustRegister(t, e,
		node.NewVariable("a", 1.0),
		node.NewCalc("b", func(g node.Evaluator, _ []ident.Value) (any, error) {
			recomputes++
			return g.Evaluate("a")
		}),
	)

	assert.Equal(t, 1.0, evalFloat(t, e, "b"))
	assert.Equal(t, 1, recomputes)

	e.invalidateTransitively(ident.New("a"))
	e.invalidateTransitively(ident.New("a"))

	assert.Equal(t, 1.0, evalFloat(t, e, "b"))
	assert.Equal(t, 2, recomputes, "double invalidation still costs one recompute")
}

func TestInvalidate_DiamondVisitsOnce(t *testing.T) {
	// a feeds b and c, both feed d. Changing a recomputes each of b, c, d
	// exactly once on the next read of d.
	e := New()
	counts := map[string]int{}
	passthrough := func(name, input string) *node.Calc {
		return node.NewCalc(name, func(g node.Evaluator, _ []ident.Value) (any, error) {
			counts[name]++
			return g.Evaluate(input)
		})
	}
	mustRegister(t, e,
		node.NewVariable("a", 1.0),
		passthrough("b", "a"),
		passthrough("c", "a"),
		node.NewCalc("d", func(g node.Evaluator, _ []ident.Value) (any, error) {
			counts["d"]++
			bv, err := g.Evaluate("b")
			if err != nil {
				return nil, err
			}
			cv, err := g.Evaluate("c")
			if err != nil {
				return nil, err
			}
			return bv.(float64) + cv.(float64), nil
		}),
	)

	assert.Equal(t, 2.0, evalFloat(t, e, "d"))
	require.NoError(t, e.SetValue("a", 5.0))
	assert.Equal(t, 10.0, evalFloat(t, e, "d"))

	assert.Equal(t, map[string]int{"b": 2, "c": 2, "d": 2}, counts)
}

func TestEvaluate_UnknownNode(t *testing.T) {
	e := New()

	_, err := e.Evaluate("missing")
	assert.True(t, IsUnknownNode(err))

	// Nested: a calc reading an unregistered node propagates the same error.
	mustRegister(t, e, node.NewCalc("outer", func(g node.Evaluator, _ []ident.Value) (any, error) {
		return g.Evaluate("missing")
	}))
	_, err = e.Evaluate("outer")
	assert.True(t, IsUnknownNode(err))

	// Failure left no cache entry for outer; registering the missing node
	// makes a retry succeed.
	assert.False(t, e.Cached("outer"))
	mustRegister(t, e, node.NewConstant("missing", 7.0))
	assert.Equal(t, 7.0, evalFloat(t, e, "outer"))
}

func TestRegister_DuplicateName(t *testing.T) {
	e := New()
	mustRegister(t, e, node.NewConstant("a", 1.0))

	err := e.Register(node.NewConstant("a", 2.0))
	assert.True(t, IsDuplicateName(err))

	// Original definition intact.
	assert.Equal(t, 1.0, evalFloat(t, e, "a"))
}

func TestSetValue_NotVariable(t *testing.T) {
	e := New()
	mustRegister(t, e, node.NewConstant("a", 1.0))

	err := e.SetValue("a", 2.0)
	assert.True(t, IsNotVariable(err))

	err = e.SetValue("nope", 2.0)
	assert.True(t, IsUnknownNode(err))
}

func TestEvaluate_VariableWithArgsFails(t *testing.T) {
	e := New()
	mustRegister(t, e, node.NewVariable("v", 1.0))

	_, err := e.Evaluate("v", ident.Int(1))
	assert.ErrorIs(t, err, node.ErrParameterizedVariable)
}

func TestEvaluate_UserErrorPropagatesUnmodified(t *testing.T) {
	e := New()
	boom := errors.New("market data unavailable")
	attempts := 0
	mustRegister(t, e, node.NewCalc("quote", func(_ node.Evaluator, _ []ident.Value) (any, error) {
		attempts++
		if attempts == 1 {
			return nil, boom
		}
		return 42.0, nil
	}))

	_, err := e.Evaluate("quote")
	assert.ErrorIs(t, err, boom)
	assert.False(t, e.Cached("quote"), "failed computation must not populate the cache")

	// Retry recomputes now that the condition cleared.
	assert.Equal(t, 42.0, evalFloat(t, e, "quote"))
	assert.Equal(t, 2, attempts)
}

func TestEvaluate_FailureLeavesPriorCacheIntact(t *testing.T) {
	e := New()
	fail := false
	mustRegister(t, e,
		node.NewVariable("in", 1.0),
		node.NewCalc("out", func(g node.Evaluator, _ []ident.Value) (any, error) {
			if fail {
				return nil, errors.New("transient")
			}
			return g.Evaluate("in")
		}),
	)

	assert.Equal(t, 1.0, evalFloat(t, e, "out"))

	// Dirty the entry, then fail the recomputation.
	require.NoError(t, e.SetValue("in", 2.0))
	fail = true
	_, err := e.Evaluate("out")
	require.Error(t, err)
	assert.False(t, e.Cached("out"), "entry stays invalid after a failed rebuild")

	fail = false
	assert.Equal(t, 2.0, evalFloat(t, e, "out"))
}

func TestOverride_BeforeRegistration(t *testing.T) {
	// Override slots are per identity, not per node: an identity can be
	// forced before its node is ever registered, and evaluation serves the
	// override without consulting the registry.
	e := New()
	e.Override("phantom", 3.0)

	v, err := e.Evaluate("phantom")
	require.NoError(t, err)
	assert.Equal(t, 3.0, v)

	// Removing it exposes the missing registration again.
	e.RemoveOverride("phantom")
	_, err = e.Evaluate("phantom")
	assert.True(t, IsUnknownNode(err))
}

func TestOverride_ReadThroughKeepsDependentsAttached(t *testing.T) {
	// Reads served by an override are still recorded as dependencies, so a
	// dependent recomputes when the override changes or is removed.
	e := New()
	mustRegister(t, e,
		node.NewConstant("a", 2.0),
		sum("c", "a"),
	)

	e.Override("a", 100.0)
	assert.Equal(t, 100.0, evalFloat(t, e, "c"))
	assert.Contains(t, e.Dependents("a"), "c")

	e.Override("a", 200.0)
	assert.Equal(t, 200.0, evalFloat(t, e, "c"))

	e.RemoveOverride("a")
	assert.Equal(t, 2.0, evalFloat(t, e, "c"))
}

func TestOverride_ParameterizedIdentity(t *testing.T) {
	e := New()
	mustRegister(t, e, node.NewCalc("square", func(_ node.Evaluator, args []ident.Value) (any, error) {
		n := float64(args[0].(ident.Int))
		return n * n, nil
	}))

	e.Override("square", -1.0, ident.Int(2))

	v, err := e.Evaluate("square", ident.Int(2))
	require.NoError(t, err)
	assert.Equal(t, -1.0, v)
	assert.Equal(t, 9.0, evalFloat(t, e, "square", ident.Int(3)))

	e.RemoveOverride("square", ident.Int(2))
	assert.Equal(t, 4.0, evalFloat(t, e, "square", ident.Int(2)))
}

func TestRemoveOverride_InactiveIsNoOp(t *testing.T) {
	e := New()
	recomputes := 0
	mustRegister(t, e,
		node.NewConstant("a", 1.0),
		node.NewCalc("b", func(g node.Evaluator, _ []ident.Value) (any, error) {
			recomputes++
			return g.Evaluate("a")
		}),
	)

	assert.Equal(t, 1.0, evalFloat(t, e, "b"))
	e.RemoveOverride("a")
	assert.Equal(t, 1.0, evalFloat(t, e, "b"))
	assert.Equal(t, 1, recomputes, "clearing a non-existent override must not invalidate")
}

func TestEngines_AreIndependent(t *testing.T) {
	e1 := New()
	e2 := New()
	mustRegister(t, e1, node.NewVariable("x", 1.0))
	mustRegister(t, e2, node.NewVariable("x", 2.0))

	assert.Equal(t, 1.0, evalFloat(t, e1, "x"))
	assert.Equal(t, 2.0, evalFloat(t, e2, "x"))

	require.NoError(t, e1.SetValue("x", 10.0))
	assert.Equal(t, 10.0, evalFloat(t, e1, "x"))
	assert.Equal(t, 2.0, evalFloat(t, e2, "x"))
}

func TestEvaluate_ParameterizedChain(t *testing.T) {
	// Nested parameterized reads: multi_year(n) reads real_rate, the rates
	// model from the pricing example.
	e := New()
	mustRegister(t, e,
		node.NewConstant("central_bank_rate", 0.05),
		node.NewConstant("inflation_rate", 0.02),
		node.NewCalc("real_rate", func(g node.Evaluator, _ []ident.Value) (any, error) {
			cb, err := g.Evaluate("central_bank_rate")
			if err != nil {
				return nil, err
			}
			inf, err := g.Evaluate("inflation_rate")
			if err != nil {
				return nil, err
			}
			return cb.(float64) - inf.(float64), nil
		}),
		node.NewCalc("multi_year_rate", func(g node.Evaluator, args []ident.Value) (any, error) {
			years := int64(args[0].(ident.Int))
			r, err := g.Evaluate("real_rate")
			if err != nil {
				return nil, err
			}
			rate := 1.0
			for i := int64(0); i < years; i++ {
				rate *= 1 + r.(float64)
			}
			return rate - 1, nil
		}),
	)

	assert.InDelta(t, 0.03, evalFloat(t, e, "real_rate"), 1e-12)
	assert.InDelta(t, 0.159274, evalFloat(t, e, "multi_year_rate", ident.Int(5)), 1e-6)
	assert.InDelta(t, 0.343916, evalFloat(t, e, "multi_year_rate", ident.Int(10)), 1e-6)

	// Overriding the shared sub-calculation dirties every parameterization.
	e.Override("real_rate", 0.0)
	assert.InDelta(t, 0.0, evalFloat(t, e, "multi_year_rate", ident.Int(5)), 1e-12)
	assert.InDelta(t, 0.0, evalFloat(t, e, "multi_year_rate", ident.Int(10)), 1e-12)
}
