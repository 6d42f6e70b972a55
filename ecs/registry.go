package ecs

import (
	"reflect"
	"sort"
)

// ComponentID is the dense type tag the registry assigns to a component type.
// Entities key their component storage by it.
type ComponentID uint32

// ComponentInfo describes a registered component type.
type ComponentInfo struct {
	ID   ComponentID
	Type reflect.Type
	// Unique is reserved for multi-instance components. Every component type is
	// currently singleton-per-entity regardless of its value.
	Unique bool
}

// ComponentOption configures a component registration.
type ComponentOption func(*ComponentInfo)

// Unique sets the reserved unique flag on a registration.
func Unique(unique bool) ComponentOption {
	return func(info *ComponentInfo) {
		info.Unique = unique
	}
}

// ComponentRegistry manages component type registration for an ECS instance.
// A registry may be shared by several worlds; each world keeps its own entities.
type ComponentRegistry struct {
	ids   map[reflect.Type]ComponentID
	infos []ComponentInfo
}

// NewComponentRegistry creates a new component registry.
func NewComponentRegistry() *ComponentRegistry {
	return &ComponentRegistry{
		ids: make(map[reflect.Type]ComponentID),
		// ID 0 is reserved so that the zero ComponentID never names a real type
		infos: []ComponentInfo{{}},
	}
}

// RegisterComponent registers a new component type with the given registry.
// This must be called for each component type before it can be added to an entity.
// Registering a type twice returns the original registration.
func RegisterComponent[T any](r *ComponentRegistry, opts ...ComponentOption) ComponentInfo {
	return r.register(reflect.TypeFor[T](), opts...)
}

func (r *ComponentRegistry) register(t reflect.Type, opts ...ComponentOption) ComponentInfo {
	if id, ok := r.ids[t]; ok {
		return r.infos[id]
	}

	switch t.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Chan, reflect.Func, reflect.Interface:
		panic("components cannot be pointers, maps, channels, functions or interfaces: " + t.String())
	}

	info := ComponentInfo{
		ID:     ComponentID(len(r.infos)),
		Type:   t,
		Unique: true,
	}
	for _, opt := range opts {
		opt(&info)
	}

	r.ids[t] = info.ID
	r.infos = append(r.infos, info)
	return info
}

// Lookup returns the registration for a component type.
func (r *ComponentRegistry) Lookup(t reflect.Type) (ComponentInfo, bool) {
	id, ok := r.ids[t]
	if !ok {
		return ComponentInfo{}, false
	}
	return r.infos[id], true
}

// Info returns the registration for a component ID.
func (r *ComponentRegistry) Info(id ComponentID) (ComponentInfo, bool) {
	if id == 0 || int(id) >= len(r.infos) {
		return ComponentInfo{}, false
	}
	return r.infos[id], true
}

// Types returns every registered component type sorted by name.
func (r *ComponentRegistry) Types() []reflect.Type {
	types := make([]reflect.Type, 0, len(r.ids))
	for t := range r.ids {
		types = append(types, t)
	}
	sort.Sort(byTypeName(types))
	return types
}

type byTypeName []reflect.Type

func (a byTypeName) Len() int           { return len(a) }
func (a byTypeName) Swap(i, j int)      { a[i], a[j] = a[j], a[i] }
func (a byTypeName) Less(i, j int) bool { return a[i].String() < a[j].String() }

// componentType resolves the concrete component type of a value passed by value or by pointer.
func componentType(component any) reflect.Type {
	t := reflect.TypeOf(component)
	if t == nil {
		panic("component cannot be nil")
	}
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t
}
