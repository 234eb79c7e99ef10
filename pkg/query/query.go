// Package query defines the read-only request shape the store answers: a
// conjunction of triple patterns, a projection, an optional ordering and a
// required result-row limit.
package query

import (
	"errors"
	"fmt"

	"github.com/ternstore/tern/pkg/rdf"
)

// Variable is an unbound position in a triple pattern
type Variable struct {
	Name string
}

// Var creates a new variable
func Var(name string) *Variable {
	return &Variable{Name: name}
}

func (v *Variable) String() string {
	return "?" + v.Name
}

// Pattern is a triple with zero or more positions replaced by variables.
// Each position holds either an rdf.Term or a *Variable.
type Pattern struct {
	Subject   any
	Predicate any
	Object    any
}

// IsVariable reports whether a pattern position is a variable
func IsVariable(position any) bool {
	_, ok := position.(*Variable)
	return ok
}

// Query is an ephemeral, read-only request: evaluated once, never stored.
type Query struct {
	// Patterns are evaluated as a conjunction; the set must be non-empty.
	Patterns []Pattern

	// Select lists the projected variable names. Every name must occur in
	// at least one pattern.
	Select []string

	// OrderBy optionally orders results by the listed projected variables,
	// using the store's term total order.
	OrderBy []string

	// Limit caps the number of returned rows. Required.
	Limit int
}

// Row maps each projected variable name to its bound term
type Row map[string]rdf.Term

// ErrMalformed matches any structurally invalid query via errors.Is
var ErrMalformed = errors.New("malformed query")

// MalformedError reports a structurally invalid query, as distinct from a
// limit violation.
type MalformedError struct {
	Reason string
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("malformed query: %s", e.Reason)
}

func (e *MalformedError) Is(target error) bool {
	return target == ErrMalformed
}

// Malformed creates a MalformedError
func Malformed(format string, args ...any) *MalformedError {
	return &MalformedError{Reason: fmt.Sprintf(format, args...)}
}

// Variables returns the distinct variable names across all patterns, in
// first-appearance order.
func (q *Query) Variables() []string {
	seen := make(map[string]bool)
	var names []string
	for _, p := range q.Patterns {
		for _, position := range []any{p.Subject, p.Predicate, p.Object} {
			if v, ok := position.(*Variable); ok && !seen[v.Name] {
				seen[v.Name] = true
				names = append(names, v.Name)
			}
		}
	}
	return names
}

// Validate checks the structural invariants of the query: patterns are
// non-empty and well formed, and every projected or ordering variable
// occurs in some pattern.
func (q *Query) Validate() error {
	if len(q.Patterns) == 0 {
		return Malformed("query has no patterns")
	}
	if q.Limit < 0 {
		return Malformed("negative limit")
	}

	for i, p := range q.Patterns {
		for _, position := range []any{p.Subject, p.Predicate, p.Object} {
			switch position.(type) {
			case rdf.Term, *Variable:
			default:
				return Malformed("pattern %d: position is neither a term nor a variable", i)
			}
		}
	}

	known := make(map[string]bool)
	for _, name := range q.Variables() {
		known[name] = true
	}
	for _, name := range q.Select {
		if !known[name] {
			return Malformed("selected variable %q not found in any pattern", name)
		}
	}

	selected := make(map[string]bool)
	for _, name := range q.Select {
		selected[name] = true
	}
	for _, name := range q.OrderBy {
		if !selected[name] {
			return Malformed("order-by variable %q is not projected", name)
		}
	}

	return nil
}
