// Package harness runs declarative scenario files against a compiled model.
//
// A scenario is a YAML file naming a CUE model and a list of steps: evaluate
// an identity and check the value, set a variable, set or remove an override.
// The harness builds a fresh engine per run, records every engine event
// through an in-memory recorder, and compares the rendered trace against a
// golden file. The trace is the real assertion surface: a scenario can pass
// its per-step expectations while the golden diff shows an extra recompute.
package harness
