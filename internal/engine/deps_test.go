package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fenwick-labs/calcgraph/internal/ident"
)

func setOf(ids ...ident.Identity) identSet {
	s := make(identSet, len(ids))
	for _, id := range ids {
		s[id.Key()] = id
	}
	return s
}

func names(ids []ident.Identity) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}

func TestDepGraph_ReplaceDeps_AddsReverseEdges(t *testing.T) {
	g := newDepGraph()
	c := ident.New("c")
	a := ident.New("a")
	b := ident.New("b")

	g.replaceDeps(c, setOf(a, b))

	assert.Equal(t, []string{"c"}, names(g.dependentsOf(a.Key())))
	assert.Equal(t, []string{"c"}, names(g.dependentsOf(b.Key())))
	assert.Equal(t, []string{"a", "b"}, names(g.depsOf(c.Key())))
}

func TestDepGraph_ReplaceDeps_PrunesStaleEdges(t *testing.T) {
	g := newDepGraph()
	d := ident.New("d")
	a := ident.New("a")
	b := ident.New("b")
	flag := ident.New("flag")

	// First computation read flag and a.
	g.replaceDeps(d, setOf(flag, a))
	assert.Equal(t, []string{"d"}, names(g.dependentsOf(a.Key())))

	// Recomputation down the other branch read flag and b.
	g.replaceDeps(d, setOf(flag, b))

	assert.Empty(t, g.dependentsOf(a.Key()), "stale reverse edge must be removed")
	assert.Equal(t, []string{"d"}, names(g.dependentsOf(b.Key())))
	assert.Equal(t, []string{"d"}, names(g.dependentsOf(flag.Key())), "surviving edge untouched")
	assert.Equal(t, []string{"b", "flag"}, names(g.depsOf(d.Key())))
}

func TestDepGraph_ReplaceDeps_EmptySetClears(t *testing.T) {
	g := newDepGraph()
	c := ident.New("c")
	a := ident.New("a")

	g.replaceDeps(c, setOf(a))
	g.replaceDeps(c, setOf())

	assert.Empty(t, g.dependentsOf(a.Key()))
	assert.Empty(t, g.depsOf(c.Key()))
}

func TestDepGraph_SharedDependency(t *testing.T) {
	g := newDepGraph()
	a := ident.New("a")
	b := ident.New("b")
	c := ident.New("c")

	g.replaceDeps(b, setOf(a))
	g.replaceDeps(c, setOf(a))

	assert.Equal(t, []string{"b", "c"}, names(g.dependentsOf(a.Key())))

	// Dropping one reader leaves the other attached.
	g.replaceDeps(b, setOf())
	assert.Equal(t, []string{"c"}, names(g.dependentsOf(a.Key())))
}

func TestDepGraph_ParameterizedIdentitiesAreDistinct(t *testing.T) {
	g := newDepGraph()
	rate := ident.New("rate")
	my5 := ident.New("multi_year", ident.Int(5))
	my10 := ident.New("multi_year", ident.Int(10))

	g.replaceDeps(my5, setOf(rate))
	g.replaceDeps(my10, setOf(rate))

	assert.Equal(t, []string{"multi_year(10)", "multi_year(5)"}, names(g.dependentsOf(rate.Key())))
}
