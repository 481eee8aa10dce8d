package engine

import "github.com/fenwick-labs/calcgraph/internal/ident"

// frame is one in-flight recomputation: the identity being computed and
// the dependency set discovered so far during this one compute call.
type frame struct {
	id         ident.Identity
	discovered identSet
}

// evalStack is the ordered sequence of identities currently mid-compute.
// Empty at rest between top-level calls; its depth equals the dependency
// chain currently being resolved. The index map makes the cycle check O(1).
type evalStack struct {
	frames []frame
	index  map[string]int
}

func newEvalStack() *evalStack {
	return &evalStack{index: make(map[string]int)}
}

// contains reports whether id is currently being computed.
func (s *evalStack) contains(id ident.Identity) bool {
	_, ok := s.index[id.Key()]
	return ok
}

// push opens a recomputation frame with a fresh discovered set.
func (s *evalStack) push(id ident.Identity) {
	s.index[id.Key()] = len(s.frames)
	s.frames = append(s.frames, frame{id: id, discovered: make(identSet)})
}

// pop closes the innermost frame and returns it.
func (s *evalStack) pop() frame {
	top := s.frames[len(s.frames)-1]
	s.frames = s.frames[:len(s.frames)-1]
	delete(s.index, top.id.Key())
	return top
}

// recordRead adds id to the innermost frame's discovered set. With no
// frame open the read came from a top-level caller and no edge exists to
// record.
func (s *evalStack) recordRead(id ident.Identity) {
	if len(s.frames) == 0 {
		return
	}
	s.frames[len(s.frames)-1].discovered[id.Key()] = id
}

// cyclePath renders the cycle for error reporting: from the first
// occurrence of id on the stack down to the repeated read.
func (s *evalStack) cyclePath(id ident.Identity) []string {
	start := s.index[id.Key()]
	path := make([]string, 0, len(s.frames)-start+1)
	for _, f := range s.frames[start:] {
		path = append(path, f.id.String())
	}
	return append(path, id.String())
}

// depth returns the number of open frames.
func (s *evalStack) depth() int { return len(s.frames) }
