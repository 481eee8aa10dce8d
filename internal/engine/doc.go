// Package engine implements the calcgraph demand-driven computation graph.
//
// The engine resolves named, possibly parameterized computations, caches
// their results per identity (name plus argument tuple), and marks cached
// results dirty when an upstream input changes, so callers always observe
// values consistent with current inputs.
//
// ARCHITECTURE:
//
// Push invalidation, pull recomputation:
// Changing a variable or an override marks the affected identity and its
// transitive dependents dirty along reverse edges. Nothing recomputes until
// the next Evaluate of a dirty identity. Values nobody reads again are never
// recomputed.
//
// Dependency discovery, not declaration:
// A node's dependencies are whatever it actually read during its last
// compute call. Each recomputation replaces the identity's edge set
// wholesale, so a node that branches on a flag sheds the edges of the
// branch it no longer takes.
//
// Single-threaded evaluation:
// Evaluate re-enters itself through node compute bodies on one call stack.
// An explicit evaluation stack mirrors that recursion for cycle detection
// and dependency attribution. Nothing here is safe for concurrent use; a
// future parallel evaluator would need at-most-one-concurrent-build per
// identity and must never commit partial results.
package engine
