package engine

import (
	"log/slog"
	"sort"

	"github.com/fenwick-labs/calcgraph/internal/ident"
	"github.com/fenwick-labs/calcgraph/internal/node"
)

// Engine is one independent computation graph: node registry, per-identity
// cache and override slots, dependency edges, and the evaluation stack.
//
// Evaluation is single-threaded and synchronous. Evaluate re-enters itself
// through node compute bodies; the call depth equals the longest dependency
// chain being resolved. All graph state is owned by the instance — multiple
// engines coexist and are tested in isolation.
type Engine struct {
	log      *slog.Logger
	registry *registry
	store    *valueStore
	deps     *depGraph
	stack    *evalStack
	clock    *Clock
	recorder Recorder
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine's logger. Defaults to slog.Default().
func WithLogger(log *slog.Logger) Option {
	return func(e *Engine) {
		e.log = log
	}
}

// WithRecorder attaches a recorder that receives engine events stamped
// with the logical clock. Nil (the default) records nothing.
func WithRecorder(r Recorder) Option {
	return func(e *Engine) {
		e.recorder = r
	}
}

// New creates an empty engine.
func New(opts ...Option) *Engine {
	e := &Engine{
		log:      slog.Default(),
		registry: newRegistry(),
		store:    newValueStore(),
		deps:     newDepGraph(),
		stack:    newEvalStack(),
		clock:    NewClock(),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Register adds a node to the graph. Fails with a DuplicateName error if
// the name is taken. Must be called before the node is ever evaluated.
func (e *Engine) Register(n node.Node) error {
	if err := e.registry.register(n); err != nil {
		return err
	}
	e.log.Debug("node registered", "name", n.Name())
	return nil
}

// Evaluate resolves (name, args) to a value.
//
// An active override wins; otherwise a valid cached value is served;
// otherwise the node recomputes. During recomputation, every identity the
// compute body reads through this same method is recorded as a dependency,
// and on success the identity's dependency set is replaced wholesale with
// exactly that set.
//
// Nodes call Evaluate from inside their compute bodies; the engine keys
// caller attribution off the evaluation stack, so the same method serves
// top-level callers (empty stack, no edge recorded) and nested reads.
func (e *Engine) Evaluate(name string, args ...ident.Value) (any, error) {
	return e.evaluate(ident.New(name, args...))
}

func (e *Engine) evaluate(id ident.Identity) (any, error) {
	// Re-entering an identity still mid-compute means the graph snapshot
	// has a cycle; fail rather than recurse forever.
	if e.stack.contains(id) {
		return nil, newCycleError(e.stack.cyclePath(id))
	}

	// The read is attributed to the caller before any value is produced,
	// overridden reads included: a dependent of an overridden identity
	// must re-invalidate when that override later changes or goes away.
	e.stack.recordRead(id)

	key := id.Key()

	if v, ok := e.store.override(key); ok {
		e.record(EventOverrideHit, id, v)
		return v, nil
	}

	if v, ok := e.store.cached(key); ok {
		e.record(EventCacheHit, id, v)
		return v, nil
	}

	n, err := e.registry.lookup(id.Name())
	if err != nil {
		return nil, err
	}

	e.stack.push(id)
	value, err := n.Compute(e, id.Args())
	if err != nil {
		// No cache or edge mutation on failure: the entry stays exactly
		// as it was, so a retry recomputes once the condition is fixed.
		e.stack.pop()
		return nil, err
	}

	completed := e.stack.pop()
	e.deps.replaceDeps(id, completed.discovered)
	e.store.setCache(key, value)
	e.record(EventRecompute, id, value)
	e.log.Debug("recomputed",
		"identity", id.String(),
		"deps", len(completed.discovered),
		"depth", e.stack.depth(),
	)

	return value, nil
}

// SetValue replaces a Variable's stored value and invalidates the
// variable's identity (name, ()) and its transitive dependents. Fails with
// a NotVariable error if the named node is anything else.
func (e *Engine) SetValue(name string, value any) error {
	n, err := e.registry.lookup(name)
	if err != nil {
		return err
	}
	v, ok := n.(*node.Variable)
	if !ok {
		return newNotVariableError(name)
	}

	v.Set(value)
	id := ident.New(name)
	e.record(EventSetValue, id, value)
	e.invalidateTransitively(id)

	e.log.Debug("variable set", "name", name)
	return nil
}

// Override forces a value for (name, args), suppressing the computed and
// cached value until removed. The identity and its transitive dependents
// are invalidated because the effective value they observe has changed.
//
// The override slot is independent of registration — an identity may be
// overridden before its node exists, matching lazy identity creation.
func (e *Engine) Override(name string, value any, args ...ident.Value) {
	id := ident.New(name, args...)
	e.store.setOverride(id.Key(), value)
	e.record(EventOverrideSet, id, value)
	e.invalidateTransitively(id)

	e.log.Debug("override set", "identity", id.String())
}

// RemoveOverride clears the override for (name, args). If one was active,
// the identity and its transitive dependents are invalidated so they
// recompute from live inputs on next read.
func (e *Engine) RemoveOverride(name string, args ...ident.Value) {
	id := ident.New(name, args...)
	if !e.store.clearOverride(id.Key()) {
		return
	}
	e.record(EventOverrideCleared, id, nil)
	e.invalidateTransitively(id)

	e.log.Debug("override removed", "identity", id.String())
}

// Cached reports whether (name, args) currently holds a valid cached value.
func (e *Engine) Cached(name string, args ...ident.Value) bool {
	_, ok := e.store.cached(ident.New(name, args...).Key())
	return ok
}

// Overridden reports whether (name, args) has an active override.
func (e *Engine) Overridden(name string, args ...ident.Value) bool {
	_, ok := e.store.override(ident.New(name, args...).Key())
	return ok
}

// Dependents returns the identities that read (name, args) during their
// last evaluation, rendered as display strings in sorted order.
func (e *Engine) Dependents(name string, args ...ident.Value) []string {
	ids := e.deps.dependentsOf(ident.New(name, args...).Key())
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}

// DependsOn returns the identities (name, args) read during its last
// evaluation, rendered as display strings in sorted order.
func (e *Engine) DependsOn(name string, args ...ident.Value) []string {
	ids := e.deps.depsOf(ident.New(name, args...).Key())
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}

// Nodes returns the registered node names in sorted order.
func (e *Engine) Nodes() []string {
	names := e.registry.names()
	sort.Strings(names)
	return names
}

// Clock returns the engine's logical clock, for callers that stamp their
// own artifacts (e.g. journal sessions) consistently with engine events.
func (e *Engine) Clock() *Clock {
	return e.clock
}
