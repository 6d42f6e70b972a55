package ecs

import (
	"fmt"
	"reflect"
	"sort"
)

// System represents a behavior that operates on the entities matching its filters.
// User-defined systems implement this interface and may keep custom state
// between frames.
type System interface {
	// Filters returns the system's named filters. The World reads it once, at registration.
	Filters() *FilterSet
	// Update runs once per frame with the live entity sets of the system's filters.
	Update(frame *UpdateFrame)
}

// EntityObserver is implemented by systems that react to entities entering or
// leaving their filters.
type EntityObserver interface {
	ObserveEntity(ev MembershipEvent)
}

// EventKind tells whether an entity entered or left a filter.
type EventKind uint8

const (
	Entered EventKind = iota + 1
	Exited
)

func (k EventKind) String() string {
	switch k {
	case Entered:
		return "entered"
	case Exited:
		return "exited"
	default:
		return "unknown"
	}
}

// MembershipEvent is delivered to an EntityObserver once per transition of an
// entity into or out of one of the system's filters.
type MembershipEvent struct {
	Kind   EventKind
	Filter string
	Entity *Entity
	// Cause is the removed component when a component removal made the entity
	// leave the filter. It is nil for entries, and for exits caused by removing
	// the system or the entity.
	Cause any
}

// FilterSet binds symbolic names to filter instances, one instance per name.
type FilterSet struct {
	byName map[string]*Filter
	names  map[*Filter]string
	order  []string
}

// NewFilterSet builds a filter set from a name to filter mapping. It fails with
// ErrDuplicateFilter when two names share one filter instance.
func NewFilterSet(filters map[string]*Filter) (*FilterSet, error) {
	fs := &FilterSet{
		byName: make(map[string]*Filter, len(filters)),
		names:  make(map[*Filter]string, len(filters)),
		order:  make([]string, 0, len(filters)),
	}

	for name := range filters {
		fs.order = append(fs.order, name)
	}
	sort.Strings(fs.order)

	for _, name := range fs.order {
		filter := filters[name]
		if filter == nil {
			return nil, fmt.Errorf("ecs: filter %q is nil", name)
		}
		if other, ok := fs.names[filter]; ok {
			return nil, fmt.Errorf("%w: %q and %q", ErrDuplicateFilter, other, name)
		}
		fs.byName[name] = filter
		fs.names[filter] = name
	}

	return fs, nil
}

// MustFilterSet is like NewFilterSet but panics on error.
func MustFilterSet(filters map[string]*Filter) *FilterSet {
	fs, err := NewFilterSet(filters)
	if err != nil {
		panic(err)
	}
	return fs
}

// Len returns the number of named filters.
func (fs *FilterSet) Len() int {
	if fs == nil {
		return 0
	}
	return len(fs.order)
}

// Names returns the filter names in ascending order.
func (fs *FilterSet) Names() []string {
	if fs == nil {
		return nil
	}
	return append([]string(nil), fs.order...)
}

// Filter returns the filter bound to name, or nil.
func (fs *FilterSet) Filter(name string) *Filter {
	if fs == nil {
		return nil
	}
	return fs.byName[name]
}

// Name returns the name bound to the filter instance.
func (fs *FilterSet) Name(filter *Filter) (string, bool) {
	if fs == nil {
		return "", false
	}
	name, ok := fs.names[filter]
	return name, ok
}

// Dependencies returns the union of the component types referenced by every filter.
func (fs *FilterSet) Dependencies() []reflect.Type {
	deps := make(map[reflect.Type]struct{})
	if fs != nil {
		for _, filter := range fs.byName {
			filter.collect(deps)
		}
	}
	return sortedTypes(deps)
}

// systemName returns the name used for a system in stats and logs.
func systemName(systemType reflect.Type) string {
	if systemType.Kind() == reflect.Ptr {
		systemType = systemType.Elem()
	}
	return systemType.Name()
}
