package ecs

import (
	"fmt"
	"reflect"
	"sort"

	"github.com/kamstrup/intmap"
)

// EntityId encodes both the slot generation (upper 32 bits) and the slot index (lower 32 bits).
// The zero EntityId never names a live entity.
type EntityId uint64

func newEntityId(generation uint32, index uint32) EntityId {
	return EntityId(uint64(generation)<<32 | uint64(index))
}

// Generation extracts the slot generation from the entity ID
func (e EntityId) Generation() uint32 {
	return uint32(e >> 32)
}

// Index extracts the slot index from the entity ID
func (e EntityId) Index() uint32 {
	return uint32(e & 0xFFFFFFFF)
}

func (e EntityId) String() string {
	return fmt.Sprintf("%d:%d", e.Index(), e.Generation())
}

// Entity is an identity owning a set of components. Entities are created by a
// World and stay bound to it; every component mutation re-indexes the world's filters.
type Entity struct {
	id         EntityId
	world      *World
	components *intmap.Map[ComponentID, any]
	alive      bool
}

// ID returns the entity's handle.
func (e *Entity) ID() EntityId {
	return e.id
}

// World returns the world that owns the entity.
func (e *Entity) World() *World {
	return e.world
}

// Alive reports whether the entity is still part of its world.
func (e *Entity) Alive() bool {
	return e.alive
}

// Len returns the number of components attached to the entity.
func (e *Entity) Len() int {
	return e.components.Len()
}

// AddComponent attaches a component, passed by value or by pointer, and
// re-evaluates every filter in the world against the entity.
//
// A value is copied into a new allocation; a pointer is stored as given and
// fails with ErrComponentOwned while another entity of the world holds it.
// The add fails with ErrDuplicateComponent if a component that is-a the new
// component's type is already attached. Go concrete types have no subtypes, so
// this is a collision on the exact type. The reverse direction is never checked.
func (e *Entity) AddComponent(component any) error {
	if !e.alive {
		return fmt.Errorf("%w: %s", ErrEntityNotFound, e.id)
	}

	compType := componentType(component)
	info, ok := e.world.registry.Lookup(compType)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnregisteredComponent, compType)
	}
	if e.components.Has(info.ID) {
		return fmt.Errorf("%w: %s on entity %s", ErrDuplicateComponent, compType, e.id)
	}

	boxed := boxComponent(component, compType)
	if err := e.world.claim(e, boxed); err != nil {
		return err
	}
	e.components.Put(info.ID, boxed)
	e.world.reindex(e, nil)
	return nil
}

// GetComponent returns the component that is-a the given type.
//
// For a concrete type that is the component of exactly that type. For an
// interface type it is the single component whose pointer implements the
// interface; more than one match is a programming error and panics.
func (e *Entity) GetComponent(compType reflect.Type) (any, error) {
	if compType.Kind() == reflect.Interface {
		var found any
		matches := 0
		e.components.ForEach(func(_ ComponentID, component any) bool {
			if reflect.TypeOf(component).Implements(compType) {
				found = component
				matches++
			}
			return true
		})
		switch matches {
		case 0:
			return nil, fmt.Errorf("%w: %s on entity %s", ErrComponentNotFound, compType, e.id)
		case 1:
			return found, nil
		default:
			panic(fmt.Sprintf("entity %s holds %d components implementing %s", e.id, matches, compType))
		}
	}

	info, ok := e.world.registry.Lookup(compType)
	if ok {
		if component, ok := e.components.Get(info.ID); ok {
			return component, nil
		}
	}
	return nil, fmt.Errorf("%w: %s on entity %s", ErrComponentNotFound, compType, e.id)
}

// HasComponent reports whether a component of exactly the given type is attached.
// Unlike GetComponent it never matches through interfaces.
func (e *Entity) HasComponent(compType reflect.Type) bool {
	info, ok := e.world.registry.Lookup(compType)
	if !ok {
		return false
	}
	return e.components.Has(info.ID)
}

// RemoveComponent detaches the component GetComponent would return for the
// given type, re-evaluates the world's filters and returns the removed
// component. Exit events caused by the removal carry the removed component.
func (e *Entity) RemoveComponent(compType reflect.Type) (any, error) {
	if !e.alive {
		return nil, fmt.Errorf("%w: %s", ErrEntityNotFound, e.id)
	}

	component, err := e.GetComponent(compType)
	if err != nil {
		return nil, err
	}

	info, _ := e.world.registry.Lookup(componentType(component))
	e.components.Del(info.ID)
	e.world.release(component)
	e.world.reindex(e, component)
	return component, nil
}

// Components returns the attached components sorted by type name.
func (e *Entity) Components() []any {
	components := make([]any, 0, e.components.Len())
	for component := range e.components.Values() {
		components = append(components, component)
	}
	sort.Slice(components, func(i, j int) bool {
		return componentType(components[i]).String() < componentType(components[j]).String()
	})
	return components
}

// Get returns the component of concrete type T attached to the entity.
func Get[T any](e *Entity) (*T, error) {
	component, err := e.GetComponent(reflect.TypeFor[T]())
	if err != nil {
		return nil, err
	}
	return component.(*T), nil
}

// As returns the single component implementing the interface I.
func As[I any](e *Entity) (I, error) {
	var zero I
	ifaceType := reflect.TypeFor[I]()
	if ifaceType.Kind() != reflect.Interface {
		panic("As type parameter must be an interface: " + ifaceType.String())
	}

	component, err := e.GetComponent(ifaceType)
	if err != nil {
		return zero, err
	}
	return component.(I), nil
}

// Remove detaches the component of concrete type T and returns it.
func Remove[T any](e *Entity) (*T, error) {
	component, err := e.RemoveComponent(reflect.TypeFor[T]())
	if err != nil {
		return nil, err
	}
	return component.(*T), nil
}

func boxComponent(component any, compType reflect.Type) any {
	value := reflect.ValueOf(component)
	if value.Kind() == reflect.Ptr {
		if value.IsNil() {
			panic("component cannot be a nil pointer: " + compType.String())
		}
		return component
	}

	ptr := reflect.New(compType)
	ptr.Elem().Set(value)
	return ptr.Interface()
}
