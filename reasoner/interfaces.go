package reasoner

import "context"

// This file declares the collaborator interfaces the reasoner core
// consumes (spec Section 6). Query compilation, concept storage, and rule
// materialisation are out of scope for this module; memstore, rules, and
// materialise provide minimal in-memory implementations for tests and
// examples, but any conforming implementation plugs in the same way.

// Iterator is a lazy, non-blocking traversal cursor over concept maps.
// Next must never block; a storage layer backed by disk or network I/O is
// expected to prefetch.
type Iterator interface {
	// Next returns the next binding, or ok=false if the traversal is
	// exhausted. A non-nil error is fatal and aborts the owning node.
	Next() (cm ConceptMap, ok bool, err error)
}

// Storage is the consumed interface onto concept storage/traversal (out of
// scope for this module beyond this seam).
type Storage interface {
	// TraversalIterator returns a lazy iterator over pattern, bound by
	// bounds. registryID scopes any caching the storage layer itself
	// chooses to do; this core never inspects it.
	TraversalIterator(ctx context.Context, registryID string, pattern string, bounds ConceptMap) (Iterator, error)
}

// Rule is an opaque rule identifier as seen by the reasoner core; its
// structure (condition pattern, conclusion pattern) is a Planner concern.
type Rule interface {
	Name() string
}

// Unifier describes how a concludable node's bounds map onto one
// applicable rule's condition variables.
type Unifier struct {
	Rule           Rule
	ConditionBounds ConceptMap
}

// PlanID names a compiled conjunction-resolution plan; opaque to this
// package, used only as a NodeRegistry cache key component.
type PlanID string

// Planner is the consumed interface onto query compilation (out of scope
// for this module beyond this seam).
type Planner interface {
	// ApplicableRules returns, for a concludable pattern, every rule whose
	// conclusion might unify with it, each paired with the unifier needed
	// to bind the rule's condition variables to this node's bounds.
	ApplicableRules(pattern string, bounds ConceptMap) ([]Unifier, error)

	// ConjunctionStreamPlan compiles pattern+bounds into a stable plan
	// identifier, used as half of the NodeRegistry cache key so that two
	// callers asking for the same resolution share one node.
	ConjunctionStreamPlan(pattern string, bounds ConceptMap) (PlanID, error)
}

// Materialisable is an opaque, collaborator-produced description of what a
// Conclusion needs to bind, given a condition Answer.
type Materialisable interface {
	ConclusionPattern() string
}

// Materialisation is the consumed interface onto rule materialisation (out
// of scope for this module beyond this seam).
type Materialisation interface {
	// Materialise computes the conclusion binding implied by conditionAnswer
	// under spec, or ok=false if the rule's conclusion doesn't fire for this
	// particular binding (e.g. a failed arithmetic side-condition).
	Materialise(spec Materialisable, conditionAnswer ConceptMap) (binding ConceptMap, ok bool, err error)
}

// ConsumerQueue receives the external, ordered view of a root resolution.
// Producer calls both methods from its own node's driver, so
// implementations must not block indefinitely; a bounded channel-backed
// queue is the expected shape.
type ConsumerQueue interface {
	// PushAnswer delivers one ordered answer.
	PushAnswer(cm ConceptMap)
	// PushDone signals the stream is complete; cause is nil on ordinary
	// completion and non-nil when the stream failed fatally.
	PushDone(cause error)
}
