package ecs

import (
	"iter"
	"reflect"
	"unsafe"
)

// iface represents the internal memory layout of an interface{}.
type iface struct {
	typ  unsafe.Pointer
	data unsafe.Pointer
}

// View is a typed accessor for a combination of components on an entity.
// The type T should be a struct with embedded pointer fields for each component type.
// Named fields can be marked as optional using the `ecs:"optional"` struct tag
type View[T any] struct {
	types       []reflect.Type
	optional    []bool
	fieldOffset []uintptr
	filter      *Filter
}

// NewView creates a new view for the given struct type
// The struct T should have embedded or named fields that are pointers to component types
// Embedded fields are always required
// Named fields can be marked as optional using the `ecs:"optional"` struct tag
func NewView[T any]() *View[T] {
	structType := reflect.TypeFor[T]()

	if structType.Kind() != reflect.Struct {
		panic("View type parameter must be a struct")
	}

	types := make([]reflect.Type, 0, structType.NumField())
	optional := make([]bool, 0, structType.NumField())
	fieldOffset := make([]uintptr, 0, structType.NumField())
	required := make([]Term, 0, structType.NumField())

	for i := 0; i < structType.NumField(); i++ {
		field := structType.Field(i)
		fieldType := field.Type

		if fieldType.Kind() != reflect.Ptr {
			panic("View struct fields must be pointer types")
		}

		componentType := fieldType.Elem()
		types = append(types, componentType)
		fieldOffset = append(fieldOffset, field.Offset)

		// Embedded fields (field.Anonymous) are always required
		isOptional := false
		if !field.Anonymous {
			tag := field.Tag.Get("ecs")
			if tag != "" {
				if tag == "optional" {
					isOptional = true
				} else {
					panic("invalid ecs tag value: \"" + tag + "\" (only \"optional\" is supported)")
				}
			}
		}
		optional = append(optional, isOptional)
		if !isOptional {
			required = append(required, HasType(componentType))
		}
	}

	return &View[T]{
		types:       types,
		optional:    optional,
		fieldOffset: fieldOffset,
		filter:      And(required...),
	}
}

// Filter returns the And filter over the view's required component types.
// Every call returns the same instance, so it can be bound in a FilterSet once.
func (v *View[T]) Filter() *Filter {
	return v.filter
}

// Fill populates the provided struct pointer with component data for the given entity
// Returns false if the entity is missing any required components
// Optional components are set to nil if not present
func (v *View[T]) Fill(e *Entity, ptr *T) bool {
	// Use unsafe.Pointer to directly access the struct's memory
	structPtr := unsafe.Pointer(ptr)

	for i := 0; i < len(v.types); i++ {
		component, err := e.GetComponent(v.types[i])

		// Calculate the address of the field using the pre-computed offset
		fieldPtr := unsafe.Pointer(uintptr(structPtr) + v.fieldOffset[i])

		if err != nil {
			if !v.optional[i] {
				return false
			}
			*(*unsafe.Pointer)(fieldPtr) = nil
			continue
		}

		// Components are stored as pointers, so the interface data word is the pointer itself
		componentPtr := (*iface)(unsafe.Pointer(&component)).data
		*(*unsafe.Pointer)(fieldPtr) = componentPtr
	}

	return true
}

// Get returns a populated view struct for the given entity, or nil if the entity
// doesn't have all the required components
func (v *View[T]) Get(e *Entity) *T {
	var result T
	if !v.Fill(e, &result) {
		return nil
	}
	return &result
}

// Iter returns an iterator over a snapshot of the set, yielding the entities
// that have all the required components. The loop body may mutate the world.
func (v *View[T]) Iter(set *EntitySet) iter.Seq2[*Entity, T] {
	return func(yield func(*Entity, T) bool) {
		for _, e := range set.Snapshot() {
			if !e.alive {
				continue
			}
			var result T
			if !v.Fill(e, &result) {
				continue
			}
			if !yield(e, result) {
				return
			}
		}
	}
}

// Values returns an iterator over just the view structs
func (v *View[T]) Values(set *EntitySet) iter.Seq[T] {
	return func(yield func(T) bool) {
		for _, value := range v.Iter(set) {
			if !yield(value) {
				return
			}
		}
	}
}
