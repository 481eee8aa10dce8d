package engine

import (
	"sort"

	"github.com/fenwick-labs/calcgraph/internal/ident"
)

// identSet is a set of identities keyed by identity key. The stored
// Identity values let edge walks report readable names.
type identSet map[string]ident.Identity

// depGraph holds forward edges (what an identity read during its last
// successful evaluation) and reverse edges (who read it).
//
// Invariant: dependents is always exactly the inverse of deps. The only
// mutation path is replaceDeps, which rebuilds one identity's forward set
// and patches the reverse index edge by edge. Invalidation never deletes
// edges; only the next recomputation can change them.
type depGraph struct {
	deps       map[string]identSet
	dependents map[string]identSet
}

func newDepGraph() *depGraph {
	return &depGraph{
		deps:       make(map[string]identSet),
		dependents: make(map[string]identSet),
	}
}

// replaceDeps swaps id's forward set for the set discovered during its
// latest recomputation. Identities dropped from the old set lose their
// reverse edge to id; identities new in the set gain one. This is what
// keeps dynamically changing dependency sets correct: stale edges never
// linger after a node recomputes down a different branch.
func (g *depGraph) replaceDeps(id ident.Identity, discovered identSet) {
	key := id.Key()
	old := g.deps[key]

	for depKey := range old {
		if _, still := discovered[depKey]; !still {
			delete(g.dependents[depKey], key)
			if len(g.dependents[depKey]) == 0 {
				delete(g.dependents, depKey)
			}
		}
	}
	for depKey := range discovered {
		if _, had := old[depKey]; !had {
			if g.dependents[depKey] == nil {
				g.dependents[depKey] = make(identSet)
			}
			g.dependents[depKey][key] = id
		}
	}

	if len(discovered) == 0 {
		delete(g.deps, key)
		return
	}
	g.deps[key] = discovered
}

// dependentsOf returns the identities that read key during their last
// evaluation, sorted by display string for deterministic walks.
func (g *depGraph) dependentsOf(key string) []ident.Identity {
	set := g.dependents[key]
	if len(set) == 0 {
		return nil
	}
	out := make([]ident.Identity, 0, len(set))
	for _, id := range set {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

// depsOf returns key's forward set, sorted by display string.
// Introspection only; the evaluator never reads it back.
func (g *depGraph) depsOf(key string) []ident.Identity {
	set := g.deps[key]
	if len(set) == 0 {
		return nil
	}
	out := make([]ident.Identity, 0, len(set))
	for _, id := range set {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}
