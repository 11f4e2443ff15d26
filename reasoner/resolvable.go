package reasoner

import "context"

// Resolver turns a compiled plan id into the (possibly cached) ActorNode
// that resolves it, choosing the right resolvable kind (Retrievable vs.
// Concludable) for that plan. It is the seam a Planner implementation uses
// to wire a ConcludableNode's rule conditions to their condition nodes
// without this package needing to know which concrete kind a given plan
// compiles to.
type Resolver interface {
	Resolve(registry *NodeRegistry, planID PlanID, bounds ConceptMap) *ActorNode
}

// RetrievableNode is a leaf resolvable (spec Section 4.4): it wraps a lazy
// traversal iterator over concept storage and never opens upstream ports,
// so it never participates in the inversion-status protocol beyond the
// generic early-probe reply every node sends.
type RetrievableNode struct {
	node    *ActorNode
	storage Storage
	ctx     context.Context

	registryID string
	pattern    string
	bounds     ConceptMap

	iter Iterator
}

// NewRetrievableNode returns the (possibly cached) node resolving pattern
// bound by bounds against storage.
func NewRetrievableNode(ctx context.Context, registry *NodeRegistry, registryID, pattern string, bounds ConceptMap, storage Storage) *ActorNode {
	return registry.GetOrCreate(pattern, bounds.CanonicalKey(), "retrievable", func(n *ActorNode) Behavior {
		return &RetrievableNode{
			node:       n,
			storage:    storage,
			ctx:        ctx,
			registryID: registryID,
			pattern:    pattern,
			bounds:     bounds,
		}
	})
}

// HandleAnswer is unreachable for a leaf: RetrievableNode has no upstream
// ports, so no Answer ever arrives on one.
func (r *RetrievableNode) HandleAnswer(port *Port, index int64, cm ConceptMap) {
	panic(NewProtocolViolationError(r.node.ID(), "RetrievableNode.HandleAnswer: leaf node has no upstream ports"))
}

// HandleConclusion is unreachable for the same reason as HandleAnswer.
func (r *RetrievableNode) HandleConclusion(port *Port, index int64, cm ConceptMap) {
	panic(NewProtocolViolationError(r.node.ID(), "RetrievableNode.HandleConclusion: leaf node has no upstream ports"))
}

// HandlePortDone is unreachable for the same reason.
func (r *RetrievableNode) HandlePortDone(port *Port, msg Message) {
	panic(NewProtocolViolationError(r.node.ID(), "RetrievableNode.HandlePortDone: leaf node has no upstream ports"))
}

// Produce pulls the next traversal result synchronously and appends it, or
// records Done if the traversal is exhausted. Errors from the storage
// collaborator are fatal (spec Section 7, CollaboratorError).
func (r *RetrievableNode) Produce() {
	if r.iter == nil {
		iter, err := r.storage.TraversalIterator(r.ctx, r.registryID, r.pattern, r.bounds)
		if err != nil {
			panic(NewCollaboratorError(r.node.ID(), "storage.TraversalIterator", err))
		}
		r.iter = iter
	}
	cm, ok, err := r.iter.Next()
	if err != nil {
		panic(NewCollaboratorError(r.node.ID(), "Iterator.Next", err))
	}
	if !ok {
		r.node.onTermination()
		return
	}
	r.node.recordAnswer(cm)
}

// ConcludableNode is a recursive resolvable (spec Section 4.4): it opens
// one upstream port per applicable-rule condition, materialises each
// condition answer it receives against that rule's conclusion, and
// deduplicates the resulting bindings via a node-local seen set before
// ever appending them to its own AnswerTable (spec Open Question:
// cross-node deduplication is explicitly out of scope, but within-node
// dedup is required by correctness property 5).
type ConcludableNode struct {
	node         *ActorNode
	planner      Planner
	registry     *NodeRegistry
	resolver     Resolver
	materialiser *MaterialiserNode

	registryID string
	pattern    string
	bounds     ConceptMap

	started bool
	seen    map[string]struct{}

	// conditionSpec tracks, per open condition port, the materialisation
	// spec for the rule that port's answers must be run through.
	conditionSpec map[*Port]Materialisable
}

// NewConcludableNode returns the (possibly cached) node recursively
// resolving pattern bound by bounds via planner's applicable rules,
// resolving each rule's condition node through resolver, and running
// materialisation through materialiser.
func NewConcludableNode(registry *NodeRegistry, registryID, pattern string, bounds ConceptMap, planner Planner, resolver Resolver, materialiser *MaterialiserNode) *ActorNode {
	return registry.GetOrCreate(pattern, bounds.CanonicalKey(), "concludable", func(n *ActorNode) Behavior {
		return &ConcludableNode{
			node:          n,
			planner:       planner,
			registry:      registry,
			resolver:      resolver,
			materialiser:  materialiser,
			registryID:    registryID,
			pattern:       pattern,
			bounds:        bounds,
			seen:          make(map[string]struct{}),
			conditionSpec: make(map[*Port]Materialisable),
		}
	})
}

// Produce enumerates applicable rules on the first call and opens one
// upstream port per rule condition; later calls (triggered by the base's
// generic pull handler on every readAnswerAt, including ones beyond the
// first) are a no-op, since outstanding ports keep producing on their own.
func (c *ConcludableNode) Produce() {
	if c.started {
		return
	}
	c.started = true

	unifiers, err := c.planner.ApplicableRules(c.pattern, c.bounds)
	if err != nil {
		panic(NewCollaboratorError(c.node.ID(), "planner.ApplicableRules", err))
	}
	if len(unifiers) == 0 {
		c.node.onTermination()
		return
	}
	for _, u := range unifiers {
		planID, err := c.planner.ConjunctionStreamPlan(u.Rule.Name(), u.ConditionBounds)
		if err != nil {
			panic(NewCollaboratorError(c.node.ID(), "planner.ConjunctionStreamPlan", err))
		}
		conditionNode := c.resolver.Resolve(c.registry, planID, u.ConditionBounds)
		port := c.node.NewUpstreamPort(conditionNode)
		c.conditionSpec[port] = ruleMaterialisable{conclusionPattern: u.Rule.Name()}
		port.ReadNext()
	}
}

// HandleAnswer materialises the condition answer against the owning
// rule's conclusion and, if the resulting binding is novel, appends it and
// keeps the port hot by reading the next index.
func (c *ConcludableNode) HandleAnswer(port *Port, index int64, cm ConceptMap) {
	spec := c.conditionSpec[port]
	c.materialiser.Materialise(c.node, spec, cm, func(binding ConceptMap, ok bool, err error) {
		if err != nil {
			panic(NewCollaboratorError(c.node.ID(), "materialisation.Materialise", err))
		}
		if ok {
			candidate := c.bounds.Extend(binding)
			key := candidate.CanonicalKey()
			if _, seen := c.seen[key]; !seen {
				c.seen[key] = struct{}{}
				c.node.recordAnswer(candidate)
			}
		}
		if port.State() == StateReady {
			port.ReadNext()
		}
	})
}

// HandleConclusion is unused: ConcludableNode receives condition answers
// (HandleAnswer) and runs them through materialisation itself; it never
// opens a port expecting a Conclusion record directly.
func (c *ConcludableNode) HandleConclusion(port *Port, index int64, cm ConceptMap) {
	panic(NewProtocolViolationError(c.node.ID(), "ConcludableNode.HandleConclusion: unexpected on a condition port"))
}

// HandlePortDone is a no-op: a single exhausted rule condition doesn't by
// itself mean this node is done producing (other conditions may still be
// active), and the base's afterUpstreamPortDone already recomputes overall
// completion generically once every port has been accounted for.
func (c *ConcludableNode) HandlePortDone(port *Port, msg Message) {}

type ruleMaterialisable struct {
	conclusionPattern string
}

func (r ruleMaterialisable) ConclusionPattern() string { return r.conclusionPattern }
