package engine

import "github.com/fenwick-labs/calcgraph/internal/ident"

// invalidateTransitively marks root's cache entry dirty, then every
// transitive dependent along reverse edges. Pure mark-dirty: nothing is
// recomputed here; recomputation happens lazily on the next Evaluate of a
// dirty identity (push invalidation, pull recomputation).
//
// The visited set bounds the walk to one visit per identity, which makes
// the call idempotent and terminates diamonds. Pruning is by visited set
// only, never by cache validity: an overridden identity can have
// dependents while holding no valid cache entry at all, and those
// dependents still need marking when the override changes.
//
// Dependency edges are left untouched. Only the next recomputation of an
// identity may replace its edges (see depGraph.replaceDeps); an overridden
// dependent keeps its edges so it re-invalidates correctly once the
// override is removed.
func (e *Engine) invalidateTransitively(root ident.Identity) {
	visited := make(map[string]bool)

	var walk func(id ident.Identity)
	walk = func(id ident.Identity) {
		if visited[id.Key()] {
			return
		}
		visited[id.Key()] = true

		e.store.invalidate(id.Key())
		e.record(EventInvalidate, id, nil)

		for _, dep := range e.deps.dependentsOf(id.Key()) {
			walk(dep)
		}
	}

	walk(root)

	e.log.Debug("invalidated", "identity", root.String(), "reached", len(visited))
}
