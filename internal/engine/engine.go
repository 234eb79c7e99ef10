// Package engine evaluates conjunctive pattern queries against the triple
// index. Patterns are joined by backtracking depth-first nested loops:
// each binding produced by one pattern is substituted into the next
// pattern's variables before that pattern is scanned, so every scan runs
// with the longest available bound prefix.
package engine

import (
	"errors"
	"sort"

	"github.com/ternstore/tern/internal/encoding"
	"github.com/ternstore/tern/internal/index"
	"github.com/ternstore/tern/pkg/query"
	"github.com/ternstore/tern/pkg/rdf"
)

// Engine evaluates queries over an index manager
type Engine struct {
	idx *index.Index
}

// New creates a query engine
func New(idx *index.Index) *Engine {
	return &Engine{idx: idx}
}

// errEnough stops the traversal once the limit is reached and no ordering
// requires the full candidate set.
var errEnough = errors.New("enough rows")

// Select evaluates the query and returns its projected rows, ordered and
// truncated to the query limit. The caller is responsible for admission
// checks; Select still rejects structurally invalid queries.
func (e *Engine) Select(q *query.Query) ([]query.Row, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	patterns := planPatterns(q.Patterns)

	// With an ordering the full candidate set must be collected before
	// truncation; without one, traversal stops at the limit.
	collectAll := len(q.OrderBy) > 0

	var rows []query.Row
	binding := make(map[string]rdf.Term)

	err := e.walk(patterns, 0, binding, func(b map[string]rdf.Term) error {
		row := make(query.Row, len(q.Select))
		for _, name := range q.Select {
			row[name] = b[name]
		}
		rows = append(rows, row)
		if !collectAll && len(rows) >= q.Limit {
			return errEnough
		}
		return nil
	})
	if err != nil && err != errEnough {
		return nil, err
	}

	if collectAll {
		sortRows(rows, q.OrderBy)
	}
	if len(rows) > q.Limit {
		rows = rows[:q.Limit]
	}
	return rows, nil
}

// walk evaluates patterns[i:] under the given binding, invoking emit for
// every complete solution.
func (e *Engine) walk(patterns []query.Pattern, i int, binding map[string]rdf.Term, emit func(map[string]rdf.Term) error) error {
	if i == len(patterns) {
		return emit(binding)
	}

	s, p, o, outs := resolvePattern(patterns[i], binding)

	it, err := e.idx.Scan(s, p, o)
	if err != nil {
		return err
	}
	defer it.Close()

	for it.Next() {
		triple, err := it.Triple()
		if err != nil {
			return err
		}

		next, ok := bindTriple(binding, triple, outs)
		if !ok {
			continue
		}

		if err := e.walk(patterns, i+1, next, emit); err != nil {
			return err
		}
	}
	return nil
}

// resolvePattern substitutes bound variables into the pattern. Positions
// holding a term or an already-bound variable become scan filters; the
// names of still-unbound variables are returned per position.
func resolvePattern(p query.Pattern, binding map[string]rdf.Term) (s, pred, o rdf.Term, outs [3]string) {
	resolve := func(position any, idx int) rdf.Term {
		switch v := position.(type) {
		case *query.Variable:
			if term, ok := binding[v.Name]; ok {
				return term
			}
			outs[idx] = v.Name
			return nil
		case rdf.Term:
			return v
		}
		return nil
	}
	s = resolve(p.Subject, 0)
	pred = resolve(p.Predicate, 1)
	o = resolve(p.Object, 2)
	return s, pred, o, outs
}

// bindTriple extends the binding with the triple's values for the
// pattern's output variables. It reports false when the same variable
// occurs twice in one pattern with conflicting values.
func bindTriple(binding map[string]rdf.Term, t *rdf.Triple, outs [3]string) (map[string]rdf.Term, bool) {
	next := make(map[string]rdf.Term, len(binding)+3)
	for k, v := range binding {
		next[k] = v
	}

	values := [3]rdf.Term{t.Subject, t.Predicate, t.Object}
	for i, name := range outs {
		if name == "" {
			continue
		}
		if existing, ok := next[name]; ok {
			if !existing.Equals(values[i]) {
				return nil, false
			}
			continue
		}
		next[name] = values[i]
	}
	return next, true
}

// planPatterns orders patterns most selective first: at each step the
// pattern with the most positions bound (constants plus variables already
// bound by earlier choices) is evaluated next. Ties keep the written
// order, so evaluation stays deterministic.
func planPatterns(patterns []query.Pattern) []query.Pattern {
	remaining := make([]query.Pattern, len(patterns))
	copy(remaining, patterns)

	bound := make(map[string]bool)
	planned := make([]query.Pattern, 0, len(patterns))

	for len(remaining) > 0 {
		best, bestScore := 0, -1
		for i, p := range remaining {
			score := selectivity(p, bound)
			if score > bestScore {
				best, bestScore = i, score
			}
		}

		chosen := remaining[best]
		planned = append(planned, chosen)
		remaining = append(remaining[:best], remaining[best+1:]...)

		for _, position := range []any{chosen.Subject, chosen.Predicate, chosen.Object} {
			if v, ok := position.(*query.Variable); ok {
				bound[v.Name] = true
			}
		}
	}
	return planned
}

func selectivity(p query.Pattern, bound map[string]bool) int {
	score := 0
	for _, position := range []any{p.Subject, p.Predicate, p.Object} {
		switch v := position.(type) {
		case *query.Variable:
			if bound[v.Name] {
				score++
			}
		case rdf.Term:
			score++
		}
	}
	return score
}

// sortRows orders rows by the given variables using the term total order
func sortRows(rows []query.Row, orderBy []string) {
	sort.SliceStable(rows, func(i, j int) bool {
		for _, name := range orderBy {
			if c := encoding.Compare(rows[i][name], rows[j][name]); c != 0 {
				return c < 0
			}
		}
		return false
	})
}
