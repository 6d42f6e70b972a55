package ecs

import (
	"reflect"
	"sort"
	"strings"
)

// Term is a clause of a Filter: either a component type or a nested Filter.
type Term interface {
	// Matches evaluates the term against the entity's current components.
	Matches(e *Entity) bool
	String() string
	collect(deps map[reflect.Type]struct{})
}

type componentTerm struct {
	typ reflect.Type
}

// Has returns a term that matches entities holding a component of exactly type T.
func Has[T any]() Term {
	return HasType(reflect.TypeFor[T]())
}

// HasType returns a term that matches entities holding a component of exactly the given type.
// Components are never pointer types, so a pointer type panics.
func HasType(t reflect.Type) Term {
	if t == nil {
		panic("filter term type cannot be nil")
	}
	if t.Kind() == reflect.Ptr {
		panic("filter term type cannot be a pointer: " + t.String())
	}
	return componentTerm{typ: t}
}

func (c componentTerm) Matches(e *Entity) bool {
	return e.HasComponent(c.typ)
}

func (c componentTerm) String() string {
	return c.typ.String()
}

func (c componentTerm) collect(deps map[reflect.Type]struct{}) {
	deps[c.typ] = struct{}{}
}

// Op is the combinator of a Filter.
type Op uint8

const (
	OpAnd Op = iota
	OpOr
)

func (o Op) String() string {
	switch o {
	case OpAnd:
		return "And"
	case OpOr:
		return "Or"
	default:
		return "Op(?)"
	}
}

// Filter is a boolean predicate over an entity's component set.
//
// Filters are keyed by identity: two filters with the same structure are
// distinct registrations, and a World indexes each *Filter separately.
type Filter struct {
	op    Op
	terms []Term
}

// And returns a filter that matches when every term matches. And() matches every entity.
func And(terms ...Term) *Filter {
	return newFilter(OpAnd, terms)
}

// Or returns a filter that matches when any term matches. Or() matches no entity.
func Or(terms ...Term) *Filter {
	return newFilter(OpOr, terms)
}

func newFilter(op Op, terms []Term) *Filter {
	for _, term := range terms {
		if term == nil {
			panic("filter term cannot be nil")
		}
		if sub, ok := term.(*Filter); ok && sub == nil {
			panic("nested filter cannot be nil")
		}
	}
	return &Filter{
		op:    op,
		terms: append([]Term(nil), terms...),
	}
}

// Op returns the filter's combinator.
func (f *Filter) Op() Op {
	return f.op
}

// Terms returns a copy of the filter's clauses.
func (f *Filter) Terms() []Term {
	return append([]Term(nil), f.terms...)
}

// Matches evaluates the filter against the entity, short-circuiting on the
// first false clause for And and the first true clause for Or.
func (f *Filter) Matches(e *Entity) bool {
	switch f.op {
	case OpOr:
		for _, term := range f.terms {
			if term.Matches(e) {
				return true
			}
		}
		return false
	default:
		for _, term := range f.terms {
			if !term.Matches(e) {
				return false
			}
		}
		return true
	}
}

// Dependencies returns every component type the filter references, nested
// filters included, sorted by type name.
func (f *Filter) Dependencies() []reflect.Type {
	deps := make(map[reflect.Type]struct{})
	f.collect(deps)
	return sortedTypes(deps)
}

func (f *Filter) collect(deps map[reflect.Type]struct{}) {
	for _, term := range f.terms {
		term.collect(deps)
	}
}

func (f *Filter) String() string {
	var sb strings.Builder
	sb.WriteString(f.op.String())
	sb.WriteByte('(')
	for i, term := range f.terms {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(term.String())
	}
	sb.WriteByte(')')
	return sb.String()
}

func sortedTypes(set map[reflect.Type]struct{}) []reflect.Type {
	types := make([]reflect.Type, 0, len(set))
	for t := range set {
		types = append(types, t)
	}
	sort.Sort(byTypeName(types))
	return types
}
