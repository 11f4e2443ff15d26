// Package reasoner implements the core of a tabled, recursive logical query
// engine: a pull-based directed graph of single-threaded actors that
// cooperatively enumerate answers to a conjunction of pattern atoms under a
// set of possibly mutually-recursive inference rules, and a distributed
// termination-detection protocol ("inversion status") that lets a
// strongly-connected component of such actors agree they have produced
// every answer they ever will.
//
// Query parsing, pattern compilation, concept storage, and rule
// materialisation live outside this package; reasoner only requires the
// narrow interfaces described in interfaces.go.
package reasoner

import (
	"fmt"
	"sort"
	"strings"
)

// VarName identifies a variable within a pattern or rule.
type VarName string

// Concept is an opaque handle to a fact-graph entity, attribute, or value.
// The reasoner never inspects a Concept's contents; it only compares,
// copies, and threads them through bindings. Real deployments bind this to
// whatever the concept-storage layer returns; this module's own tests use a
// plain string-backed implementation.
type Concept interface {
	// String returns a stable, human-readable representation used for
	// logging and for canonical dedup keys.
	String() string
}

// ConceptMap is an immutable variable-to-concept binding: one solution to a
// pattern. Callers must not mutate a ConceptMap obtained from the engine;
// use Extend to derive a new one.
type ConceptMap map[VarName]Concept

// Extend returns a new ConceptMap containing all bindings of cm plus those
// of other, with other's bindings taking precedence on conflicting keys.
func (cm ConceptMap) Extend(other ConceptMap) ConceptMap {
	out := make(ConceptMap, len(cm)+len(other))
	for k, v := range cm {
		out[k] = v
	}
	for k, v := range other {
		out[k] = v
	}
	return out
}

// CanonicalKey returns a deterministic string encoding of the binding,
// suitable as a map key for node-local answer deduplication (spec Section
// 9, "Open questions": ConcludableNode keeps a full seenAnswers set keyed
// by this encoding rather than a bloom filter).
func (cm ConceptMap) CanonicalKey() string {
	names := make([]string, 0, len(cm))
	for k := range cm {
		names = append(names, string(k))
	}
	sort.Strings(names)

	var b strings.Builder
	for i, n := range names {
		if i > 0 {
			b.WriteByte(';')
		}
		b.WriteString(n)
		b.WriteByte('=')
		b.WriteString(cm[VarName(n)].String())
	}
	return b.String()
}

// String renders the binding for logs and test failure messages.
func (cm ConceptMap) String() string {
	return fmt.Sprintf("{%s}", cm.CanonicalKey())
}
