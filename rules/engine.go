// Package rules is a minimal in-memory rule registry implementing the
// reasoner's consumed Planner and Resolver interfaces. It is a reference
// collaborator for this repository's own tests and examples, not the real
// (out-of-scope) query planner: rules are registered directly by name
// rather than compiled from a query language, and condition unification is
// the identity (a rule's condition sees exactly the concludable's own
// bounds) rather than general pattern unification.
package rules

import (
	"context"
	"fmt"

	"github.com/dmitrii-ubskii/typedb/memstore"
	"github.com/dmitrii-ubskii/typedb/reasoner"
)

// Rule is a named derivation: answers to the condition pattern are
// materialised, via a caller-supplied reasoner.Materialisation, into
// answers of the conclusion pattern.
type Rule struct {
	name       string
	condition  string
	conclusion string
}

// Name implements reasoner.Rule.
func (r Rule) Name() string { return r.name }

// Engine is a tiny Planner/Resolver pair: it indexes rules by the pattern
// they conclude, resolves a concludable's condition plans back to either
// another rule's conclusion (recursing into a ConcludableNode) or a stored
// relation (bottoming out at a RetrievableNode), and registers itself as
// Resolver for both cases so the caller only has to construct one Engine.
type Engine struct {
	ctx          context.Context
	registryID   string
	store        *memstore.Store
	materialiser *reasoner.MaterialiserNode

	rulesByConclusion map[string][]Rule
	rulesByName       map[string]Rule
}

// NewEngine returns an Engine serving relations out of store and rules
// added via AddRule, materialising rule conclusions via materialiser.
func NewEngine(ctx context.Context, registryID string, store *memstore.Store, materialiser *reasoner.MaterialiserNode) *Engine {
	return &Engine{
		ctx:               ctx,
		registryID:        registryID,
		store:             store,
		materialiser:      materialiser,
		rulesByConclusion: make(map[string][]Rule),
		rulesByName:       make(map[string]Rule),
	}
}

// AddRule registers a rule named name deriving conclusion from condition.
func (e *Engine) AddRule(name, condition, conclusion string) {
	r := Rule{name: name, condition: condition, conclusion: conclusion}
	e.rulesByConclusion[conclusion] = append(e.rulesByConclusion[conclusion], r)
	e.rulesByName[name] = r
}

// ApplicableRules implements reasoner.Planner: every rule registered under
// pattern's conclusion applies, each unifying the concludable's own bounds
// unchanged onto the rule's condition.
func (e *Engine) ApplicableRules(pattern string, bounds reasoner.ConceptMap) ([]reasoner.Unifier, error) {
	rules := e.rulesByConclusion[pattern]
	unifiers := make([]reasoner.Unifier, 0, len(rules))
	for _, r := range rules {
		unifiers = append(unifiers, reasoner.Unifier{Rule: r, ConditionBounds: bounds})
	}
	return unifiers, nil
}

// ConjunctionStreamPlan implements reasoner.Planner: the plan for a rule's
// condition is simply that condition's pattern name.
func (e *Engine) ConjunctionStreamPlan(ruleName string, _ reasoner.ConceptMap) (reasoner.PlanID, error) {
	r, ok := e.rulesByName[ruleName]
	if !ok {
		return "", fmt.Errorf("rules: unknown rule %q", ruleName)
	}
	return reasoner.PlanID(r.condition), nil
}

// Resolve implements reasoner.Resolver: a plan with registered rules
// concluding it is recursive (ConcludableNode); anything else bottoms out
// at the store (RetrievableNode).
func (e *Engine) Resolve(registry *reasoner.NodeRegistry, planID reasoner.PlanID, bounds reasoner.ConceptMap) *reasoner.ActorNode {
	pattern := string(planID)
	if _, ok := e.rulesByConclusion[pattern]; ok {
		return reasoner.NewConcludableNode(registry, e.registryID, pattern, bounds, e, e, e.materialiser)
	}
	return reasoner.NewRetrievableNode(e.ctx, registry, e.registryID, pattern, bounds, e.store)
}
