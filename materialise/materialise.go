// Package materialise provides pure-function adapters implementing the
// reasoner's consumed Materialisation interface, for rules simple enough
// that "materialise" means copying (possibly renaming) the condition
// binding into the conclusion's variables. Real rule materialisation
// (arithmetic, concept construction, ownership inference) is out of scope
// for this module.
package materialise

import "github.com/dmitrii-ubskii/typedb/reasoner"

// Func adapts a plain function to reasoner.Materialisation.
type Func func(spec reasoner.Materialisable, conditionAnswer reasoner.ConceptMap) (reasoner.ConceptMap, bool, error)

// Materialise implements reasoner.Materialisation.
func (f Func) Materialise(spec reasoner.Materialisable, conditionAnswer reasoner.ConceptMap) (reasoner.ConceptMap, bool, error) {
	return f(spec, conditionAnswer)
}

// Identity returns a Func that carries the condition answer through
// unchanged, for rules whose conclusion uses exactly the condition's
// variable names.
func Identity() Func {
	return func(_ reasoner.Materialisable, conditionAnswer reasoner.ConceptMap) (reasoner.ConceptMap, bool, error) {
		return conditionAnswer, true, nil
	}
}

// Rename returns a Func that copies each condition-answer binding under
// from to the conclusion variable to, dropping any condition variable not
// named in the mapping.
func Rename(vars map[reasoner.VarName]reasoner.VarName) Func {
	return func(_ reasoner.Materialisable, conditionAnswer reasoner.ConceptMap) (reasoner.ConceptMap, bool, error) {
		out := make(reasoner.ConceptMap, len(vars))
		for from, to := range vars {
			if concept, ok := conditionAnswer[from]; ok {
				out[to] = concept
			}
		}
		return out, true, nil
	}
}
