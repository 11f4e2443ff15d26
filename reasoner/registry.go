package reasoner

import (
	"sync"
	"sync/atomic"

	"github.com/dmitrii-ubskii/typedb/internal/actorpool"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// nodeKey identifies a cacheable node: a pattern-equivalent query bound to
// a fixed set of already-ground variables. Concrete Planner implementations
// supply both fields; the registry never interprets them.
type nodeKey struct {
	pattern string
	bounds  string
}

// NodeRegistry is the reasoner's node cache and lifecycle authority (spec
// Section 4.6, C7). It hands out monotone node ids (lower id = created
// earlier = higher priority in the termination protocol), deduplicates
// nodes by (pattern, bounds) so that two callers asking for the same
// resolution share one ActorNode and its AnswerTable, and cascades an
// abort to every node it has created when any one of them fails fatally.
type NodeRegistry struct {
	id uuid.UUID

	pool    *actorpool.Pool
	logger  *zap.Logger
	metrics *Metrics

	nextID atomic.Int64

	mu             sync.Mutex
	nodes          map[nodeKey]*ActorNode
	refcount       map[nodeKey]int
	abortListeners []func(FatalError)

	aborted atomic.Bool
	failure atomic.Value // FatalError
}

// RegistryOption configures a NodeRegistry.
type RegistryOption func(*NodeRegistry)

// WithLogger overrides the registry's base logger. Defaults to zap.NewNop().
func WithLogger(logger *zap.Logger) RegistryOption {
	return func(r *NodeRegistry) { r.logger = logger }
}

// WithMetrics attaches a Metrics collector. Defaults to a no-op collector,
// so callers that don't care about Prometheus never need to construct one.
func WithMetrics(m *Metrics) RegistryOption {
	return func(r *NodeRegistry) { r.metrics = m }
}

// NewNodeRegistry constructs a registry backed by pool.
func NewNodeRegistry(pool *actorpool.Pool, opts ...RegistryOption) *NodeRegistry {
	r := &NodeRegistry{
		id:       uuid.New(),
		pool:     pool,
		logger:   zap.NewNop(),
		metrics:  noopMetrics(),
		nodes:    make(map[nodeKey]*ActorNode),
		refcount: make(map[nodeKey]int),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With(zap.String("registryId", r.id.String()))
	return r
}

// GetOrCreate returns the cached node for (pattern, bounds), creating one
// via build if none exists yet, and increments its reference count. kind
// labels the node for logging/metrics. build is called only when no node
// is cached for (pattern, bounds): once per pair until Release drops the
// entry, and again on the next GetOrCreate after that.
func (r *NodeRegistry) GetOrCreate(pattern, bounds, kind string, build func(n *ActorNode) Behavior) *ActorNode {
	key := nodeKey{pattern: pattern, bounds: bounds}

	r.mu.Lock()
	defer r.mu.Unlock()

	if n, ok := r.nodes[key]; ok {
		r.refcount[key]++
		return n
	}
	id := r.nextID.Add(1) - 1
	n := NewActorNode(id, kind, r, nil)
	n.behavior = build(n)
	r.nodes[key] = n
	r.refcount[key] = 1
	r.logger.Debug("node registered", zap.Int64("nodeId", id), zap.String("pattern", pattern), zap.String("bounds", bounds))
	return n
}

// NewUncachedNode allocates a node identifier and builds a node that the
// registry does not cache by (pattern, bounds) — used for actors like
// Producer that are created fresh per external consumer rather than shared
// across callers asking for the same resolution.
func (r *NodeRegistry) NewUncachedNode(kind string, build func(n *ActorNode) Behavior) *ActorNode {
	id := r.nextID.Add(1) - 1
	n := NewActorNode(id, kind, r, nil)
	n.behavior = build(n)
	return n
}

// OnAbort registers fn to run when the registry next records a fatal
// error. If the registry has already aborted, fn runs immediately (with
// the recorded failure) instead of being queued, so callers never miss an
// abort that raced their subscription.
func (r *NodeRegistry) OnAbort(fn func(FatalError)) {
	r.mu.Lock()
	if r.aborted.Load() {
		r.mu.Unlock()
		fn(r.Failure())
		return
	}
	r.abortListeners = append(r.abortListeners, fn)
	r.mu.Unlock()
}

// Release decrements the reference count for the node previously returned
// for (pattern, bounds). When it reaches zero the registry forgets the
// mapping, so a later GetOrCreate for the same key builds a fresh node
// rather than resurrecting stale answers (spec Open Question: node
// lifetime). The ActorNode itself is left to the garbage collector once no
// port or registry entry references it; this is the Go substitute for the
// original design's weak references.
func (r *NodeRegistry) Release(pattern, bounds string) {
	key := nodeKey{pattern: pattern, bounds: bounds}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.refcount[key]--
	if r.refcount[key] <= 0 {
		delete(r.refcount, key)
		delete(r.nodes, key)
	}
}

// ReportPoolStats samples the underlying actor pool's current in-flight
// task count and feeds it to the pool_in_flight gauge (spec Section 4.9).
// The registry never calls this on its own schedule; a caller that wants
// the gauge populated polls it on a ticker (or from a metrics-scrape
// handler) alongside the rest of its own collectors.
func (r *NodeRegistry) ReportPoolStats() {
	r.metrics.setPoolInFlight(r.pool.Stats().InFlight)
}

// Aborted reports whether the registry has recorded a fatal error. Every
// node checks this at the top of its pull and delivery handlers so that,
// once one node fails, the rest of the graph stops doing work instead of
// running to partial, inconsistent completion.
func (r *NodeRegistry) Aborted() bool {
	return r.aborted.Load()
}

// Failure returns the first fatal error recorded, or nil if the registry
// has not aborted.
func (r *NodeRegistry) Failure() FatalError {
	v := r.failure.Load()
	if v == nil {
		return nil
	}
	return v.(FatalError)
}

// Terminate records e as the registry's failure, if none is recorded yet,
// and flips Aborted, cascading to every node's deliver/readAnswerAt path
// (both check Aborted() first) and to any registered abort listener.
// Idempotent: only the first failure sticks.
func (r *NodeRegistry) Terminate(e FatalError) {
	if !r.aborted.CompareAndSwap(false, true) {
		return
	}
	r.failure.Store(e)
	r.metrics.abort()

	r.mu.Lock()
	listeners := r.abortListeners
	r.abortListeners = nil
	r.mu.Unlock()
	for _, fn := range listeners {
		fn(e)
	}
}
