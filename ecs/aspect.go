package ecs

import (
	"fmt"
	"reflect"
	"strings"

	"go.uber.org/multierr"
)

// AspectPart is one building block of an Aspect: a single component type
// created by Component or ComponentFunc, or a nested *Aspect.
type AspectPart interface {
	aspectComponents() []aspectComponent
}

type aspectComponent struct {
	typ      reflect.Type
	factory  func() any
	register func(*ComponentRegistry) ComponentInfo
}

func (c aspectComponent) aspectComponents() []aspectComponent {
	return []aspectComponent{c}
}

// Component is an aspect part whose default is the zero value of T.
func Component[T any]() AspectPart {
	return ComponentFunc(func() T {
		var zero T
		return zero
	})
}

// ComponentFunc is an aspect part whose default is built by factory. The
// factory runs once per Add or Spawn, so every entity gets its own instance.
func ComponentFunc[T any](factory func() T) AspectPart {
	typ := reflect.TypeFor[T]()
	if typ.Kind() == reflect.Ptr {
		panic("aspect component type cannot be a pointer: " + typ.String())
	}
	return aspectComponent{
		typ: typ,
		factory: func() any {
			value := factory()
			return &value
		},
		register: func(r *ComponentRegistry) ComponentInfo {
			return RegisterComponent[T](r)
		},
	}
}

// Aspect is a named bundle of component types that are added to and removed
// from entities together. Aspects nest: an aspect built from other aspects
// holds the union of their types, and a type may appear only once.
type Aspect struct {
	name       string
	components []aspectComponent
	index      map[reflect.Type]int
	filter     *Filter
}

// NewAspect flattens parts into an aspect. A component type reached twice,
// directly or through nested aspects, panics.
func NewAspect(name string, parts ...AspectPart) *Aspect {
	a := &Aspect{
		name:  name,
		index: make(map[reflect.Type]int),
	}
	for _, part := range parts {
		if part == nil {
			panic("aspect part cannot be nil")
		}
		for _, c := range part.aspectComponents() {
			if _, ok := a.index[c.typ]; ok {
				panic(fmt.Sprintf("aspect %s: component %s appears twice", name, c.typ))
			}
			a.index[c.typ] = len(a.components)
			a.components = append(a.components, c)
		}
	}

	terms := make([]Term, len(a.components))
	for i, c := range a.components {
		terms[i] = HasType(c.typ)
	}
	a.filter = And(terms...)
	return a
}

func (a *Aspect) aspectComponents() []aspectComponent {
	return append([]aspectComponent(nil), a.components...)
}

// Override returns a copy of the aspect, under the same name, whose defaults
// for the given parts' types are replaced. Overriding a type the aspect does
// not hold panics.
func (a *Aspect) Override(parts ...AspectPart) *Aspect {
	derived := NewAspect(a.name, a)
	for _, part := range parts {
		for _, c := range part.aspectComponents() {
			i, ok := derived.index[c.typ]
			if !ok {
				panic(fmt.Sprintf("aspect %s: cannot override %s, not part of the aspect", a.name, c.typ))
			}
			derived.components[i] = c
		}
	}
	return derived
}

func (a *Aspect) Name() string {
	return a.name
}

func (a *Aspect) String() string {
	names := make([]string, len(a.components))
	for i, c := range a.components {
		names[i] = c.typ.String()
	}
	return a.name + "[" + strings.Join(names, ", ") + "]"
}

// Types returns the aspect's component types in declaration order.
func (a *Aspect) Types() []reflect.Type {
	types := make([]reflect.Type, len(a.components))
	for i, c := range a.components {
		types[i] = c.typ
	}
	return types
}

// Filter returns the And filter over every type of the aspect. Every call
// returns the same instance.
func (a *Aspect) Filter() *Filter {
	return a.filter
}

// Register registers every component type of the aspect with r.
func (a *Aspect) Register(r *ComponentRegistry) {
	for _, c := range a.components {
		c.register(r)
	}
}

// In reports whether the entity holds every component type of the aspect.
func (a *Aspect) In(e *Entity) bool {
	return a.filter.Matches(e)
}

// Components builds one fresh instance per component type. An override, given
// by value or by pointer, replaces the default of its type.
func (a *Aspect) Components(overrides ...any) ([]any, error) {
	components := make([]any, len(a.components))
	for _, override := range overrides {
		typ := componentType(override)
		i, ok := a.index[typ]
		if !ok {
			return nil, fmt.Errorf("%w: %s not in aspect %s", ErrNotInAspect, typ, a.name)
		}
		if components[i] != nil {
			return nil, fmt.Errorf("%w: %s overridden twice", ErrDuplicateComponent, typ)
		}
		components[i] = override
	}
	for i, c := range a.components {
		if components[i] == nil {
			components[i] = c.factory()
		}
	}
	return components, nil
}

// Add attaches every component of the aspect to the entity. It fails without
// touching the entity when any of the types is already attached or not
// registered. If a later add still fails, for example because an observer
// removed the entity, the components added so far are removed again.
func (a *Aspect) Add(e *Entity, overrides ...any) error {
	components, err := a.Components(overrides...)
	if err != nil {
		return err
	}
	if !e.alive {
		return fmt.Errorf("%w: %s", ErrEntityNotFound, e.id)
	}
	for _, c := range a.components {
		if _, ok := e.world.registry.Lookup(c.typ); !ok {
			return fmt.Errorf("%w: %s", ErrUnregisteredComponent, c.typ)
		}
		if e.HasComponent(c.typ) {
			return fmt.Errorf("%w: %s on entity %s", ErrDuplicateComponent, c.typ, e.id)
		}
	}

	for i, component := range components {
		if err := e.AddComponent(component); err != nil {
			for j := i - 1; j >= 0; j-- {
				if e.alive && e.HasComponent(a.components[j].typ) {
					_, _ = e.RemoveComponent(a.components[j].typ)
				}
			}
			return fmt.Errorf("aspect %s: %w", a.name, err)
		}
	}
	return nil
}

// Spawn creates an entity holding exactly the aspect's components.
func (a *Aspect) Spawn(w *World, overrides ...any) (*Entity, error) {
	components, err := a.Components(overrides...)
	if err != nil {
		return nil, err
	}
	return w.Spawn(components...)
}

// Remove detaches every component of the aspect, in reverse declaration
// order, and returns them in declaration order. The entity must hold the
// whole aspect.
func (a *Aspect) Remove(e *Entity) ([]any, error) {
	if !e.alive {
		return nil, fmt.Errorf("%w: %s", ErrEntityNotFound, e.id)
	}
	for _, c := range a.components {
		if !e.HasComponent(c.typ) {
			return nil, fmt.Errorf("%w: %s of aspect %s on entity %s", ErrComponentNotFound, c.typ, a.name, e.id)
		}
	}

	removed := make([]any, len(a.components))
	var errs error
	for i := len(a.components) - 1; i >= 0; i-- {
		component, err := e.RemoveComponent(a.components[i].typ)
		errs = multierr.Append(errs, err)
		removed[i] = component
	}
	return removed, errs
}
