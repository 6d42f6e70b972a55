package ecs

import "errors"

var (
	// ErrDuplicateComponent is returned when an entity already holds a component of the added type.
	ErrDuplicateComponent = errors.New("ecs: component type already on entity")
	// ErrComponentNotFound is returned when a get or remove finds no matching component.
	ErrComponentNotFound = errors.New("ecs: component not found")
	// ErrUnregisteredComponent is returned when a component type was never registered with the world's registry.
	ErrUnregisteredComponent = errors.New("ecs: component type not registered")
	// ErrEntityNotFound is returned for stale or unknown entity handles.
	ErrEntityNotFound = errors.New("ecs: entity not found")

	// ErrNotInAspect is returned when an override names a component type the aspect does not hold.
	ErrNotInAspect = errors.New("ecs: component type not part of aspect")
	// ErrComponentOwned is returned when a component pointer is already attached to another entity.
	ErrComponentOwned = errors.New("ecs: component instance already attached")

	// ErrDuplicateSystemType is returned when a system of the same concrete type is already registered.
	ErrDuplicateSystemType = errors.New("ecs: system of that type already on world")
	// ErrDuplicateSort is returned when another registered system already holds the sort key.
	ErrDuplicateSort = errors.New("ecs: sort already in use")
	// ErrSystemNotFound is returned when no registered system matches the looked up type.
	ErrSystemNotFound = errors.New("ecs: system not found")

	// ErrDuplicateFilter is returned when a filter set maps two names to one filter instance.
	ErrDuplicateFilter = errors.New("ecs: filter instance bound to more than one name")
	// ErrFilterInUse is returned when a filter instance is already indexed for another system.
	ErrFilterInUse = errors.New("ecs: filter instance already registered")
)
