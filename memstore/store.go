// Package memstore is a minimal in-memory fact table implementing the
// reasoner's consumed Storage interface. It exists so this repository's own
// tests and examples can drive the reasoning core end to end without the
// real (out-of-scope) concept-storage engine; it is not a general-purpose
// database.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/dmitrii-ubskii/typedb/reasoner"
)

// Relation names a fixed-arity fact table: each fact is a row of Columns
// variable bindings. Unlike the teacher's pldb.Relation, columns are named
// (reasoner.VarName) rather than positional, since ConceptMap itself is a
// name-keyed binding.
type Relation struct {
	name    string
	columns []reasoner.VarName
}

// NewRelation declares a relation with the given column names.
func NewRelation(name string, columns ...reasoner.VarName) *Relation {
	cols := append([]reasoner.VarName(nil), columns...)
	return &Relation{name: name, columns: cols}
}

// Name returns the relation's name, used as the pattern key by Store.
func (r *Relation) Name() string { return r.name }

// Store is an immutable, copy-on-write fact table (grounded on the
// teacher's pldb.Database), adapted to index facts by reasoner.ConceptMap
// rather than raw logic-variable terms. AddFact returns a new Store
// sharing unmodified relations with its parent, so a Store snapshot handed
// to a running resolution is never mutated out from under it.
type Store struct {
	mu        sync.RWMutex
	relations map[string]*relationData
}

type relationData struct {
	rel   *Relation
	facts []reasoner.ConceptMap
	// byColumnValue indexes fact row indices by the string form of each
	// bound column, for O(1)-amortised lookup when a column is ground in
	// the query bounds. Maintained on every AddFact for each declared
	// column the fact binds.
	byColumnValue map[reasoner.VarName]map[string][]int
}

func newRelationData(rel *Relation) *relationData {
	return &relationData{rel: rel, byColumnValue: make(map[reasoner.VarName]map[string][]int)}
}

func (rd *relationData) clone() *relationData {
	nd := &relationData{
		rel:           rd.rel,
		facts:         append([]reasoner.ConceptMap(nil), rd.facts...),
		byColumnValue: make(map[reasoner.VarName]map[string][]int, len(rd.byColumnValue)),
	}
	for col, idx := range rd.byColumnValue {
		cp := make(map[string][]int, len(idx))
		for k, v := range idx {
			cp[k] = append([]int(nil), v...)
		}
		nd.byColumnValue[col] = cp
	}
	return nd
}

func (rd *relationData) index(factID int, fact reasoner.ConceptMap) {
	for _, col := range rd.rel.columns {
		concept, ok := fact[col]
		if !ok {
			continue
		}
		key := concept.String()
		idx, ok := rd.byColumnValue[col]
		if !ok {
			idx = make(map[string][]int)
			rd.byColumnValue[col] = idx
		}
		idx[key] = append(idx[key], factID)
	}
}

// NewStore returns an empty fact table.
func NewStore() *Store {
	return &Store{relations: make(map[string]*relationData)}
}

// AddFact returns a new Store with fact appended to rel, without
// disturbing any other snapshot that still holds the receiver.
func (s *Store) AddFact(rel *Relation, fact reasoner.ConceptMap) (*Store, error) {
	for _, col := range rel.columns {
		if _, ok := fact[col]; !ok {
			return nil, fmt.Errorf("memstore: fact for relation %s missing column %s", rel.name, col)
		}
	}

	s.mu.RLock()
	next := &Store{relations: make(map[string]*relationData, len(s.relations))}
	for name, rd := range s.relations {
		if name == rel.name {
			continue
		}
		next.relations[name] = rd
	}
	existing, ok := s.relations[rel.name]
	s.mu.RUnlock()

	var rd *relationData
	if ok {
		rd = existing.clone()
	} else {
		rd = newRelationData(rel)
	}
	factID := len(rd.facts)
	rd.facts = append(rd.facts, fact)
	rd.index(factID, fact)
	next.relations[rel.name] = rd
	return next, nil
}

// sliceIterator adapts a precomputed slice of results to reasoner.Iterator.
type sliceIterator struct {
	results []reasoner.ConceptMap
	pos     int
}

func (it *sliceIterator) Next() (reasoner.ConceptMap, bool, error) {
	if it.pos >= len(it.results) {
		return nil, false, nil
	}
	cm := it.results[it.pos]
	it.pos++
	return cm, true, nil
}

// TraversalIterator implements reasoner.Storage: it returns every fact in
// the relation named pattern that agrees with bounds on every column
// bounds constrains, merged with bounds so unbound columns surface under
// their relation-declared names.
func (s *Store) TraversalIterator(_ context.Context, _ string, pattern string, bounds reasoner.ConceptMap) (reasoner.Iterator, error) {
	s.mu.RLock()
	rd, ok := s.relations[pattern]
	s.mu.RUnlock()
	if !ok {
		return &sliceIterator{}, nil
	}

	candidates := s.candidateFactIDs(rd, bounds)
	results := make([]reasoner.ConceptMap, 0, len(candidates))
	for _, id := range candidates {
		fact := rd.facts[id]
		if factMatches(fact, bounds) {
			results = append(results, fact.Extend(bounds))
		}
	}
	return &sliceIterator{results: results}, nil
}

// candidateFactIDs narrows the scan using the first bound, indexed column
// it finds in bounds; falling back to a full scan otherwise.
func (s *Store) candidateFactIDs(rd *relationData, bounds reasoner.ConceptMap) []int {
	cols := make([]reasoner.VarName, 0, len(bounds))
	for col := range bounds {
		cols = append(cols, col)
	}
	sort.Slice(cols, func(i, j int) bool { return cols[i] < cols[j] })

	for _, col := range cols {
		idx, ok := rd.byColumnValue[col]
		if !ok {
			continue
		}
		return idx[bounds[col].String()]
	}
	all := make([]int, len(rd.facts))
	for i := range all {
		all[i] = i
	}
	return all
}

func factMatches(fact, bounds reasoner.ConceptMap) bool {
	for col, want := range bounds {
		got, ok := fact[col]
		if !ok || got.String() != want.String() {
			return false
		}
	}
	return true
}
