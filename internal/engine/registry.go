package engine

import "github.com/fenwick-labs/calcgraph/internal/node"

// registry owns the mapping from node name to its Node: one definition per
// name, lifetime equal to the engine's.
type registry struct {
	nodes map[string]node.Node
}

func newRegistry() *registry {
	return &registry{nodes: make(map[string]node.Node)}
}

// register stores a node under its name. A second registration under the
// same name fails; must happen before the name is ever evaluated.
func (r *registry) register(n node.Node) error {
	name := n.Name()
	if _, exists := r.nodes[name]; exists {
		return newDuplicateNameError(name)
	}
	r.nodes[name] = n
	return nil
}

// lookup resolves a name to its node.
func (r *registry) lookup(name string) (node.Node, error) {
	n, ok := r.nodes[name]
	if !ok {
		return nil, newUnknownNodeError(name)
	}
	return n, nil
}

// names returns registered node names in arbitrary order.
func (r *registry) names() []string {
	out := make([]string, 0, len(r.nodes))
	for name := range r.nodes {
		out = append(out, name)
	}
	return out
}
