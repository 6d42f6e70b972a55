package ecs

import (
	"fmt"
	"reflect"

	"go.uber.org/multierr"
)

// Commands provides a buffer for deferred ECS operations. A system's buffer is
// flushed right after its Update returns, so a system can mutate the sets it is
// iterating without invalidating the loop, and later systems still see the result.
type Commands struct {
	spawns  []spawnCommand
	deletes []EntityId
	adds    []addComponentCommand
	removes []removeComponentCommand
	defers  []deferCommand
}

func newCommands() *Commands {
	return &Commands{}
}

type deferCommand struct {
	fn func()
}

type spawnCommand struct {
	components []any
}

type addComponentCommand struct {
	entity    EntityId
	component any
}

type removeComponentCommand struct {
	entity   EntityId
	compType reflect.Type
}

// Defer queues a function execution operation.
func (c *Commands) Defer(fn func()) {
	c.defers = append(c.defers, deferCommand{fn: fn})
}

// Spawn queues an entity spawn operation with the given components.
func (c *Commands) Spawn(components ...any) {
	c.spawns = append(c.spawns, spawnCommand{components: components})
}

// Delete queues an entity deletion operation.
func (c *Commands) Delete(entity EntityId) {
	c.deletes = append(c.deletes, entity)
}

// AddComponent queues a component addition operation.
func (c *Commands) AddComponent(entity EntityId, component any) {
	c.adds = append(c.adds, addComponentCommand{
		entity:    entity,
		component: component,
	})
}

// RemoveComponent queues a component removal operation.
func (c *Commands) RemoveComponent(entity EntityId, compType reflect.Type) {
	c.removes = append(c.removes, removeComponentCommand{
		entity:   entity,
		compType: compType,
	})
}

// Len returns the number of queued operations.
func (c *Commands) Len() int {
	return len(c.spawns) + len(c.deletes) + len(c.adds) + len(c.removes) + len(c.defers)
}

// Flush applies all queued commands to the world, resetting the buffer state.
// Every command is attempted; failures are combined into the returned error.
// Component operations on entities deleted by the same flush are skipped.
func (c *Commands) Flush(world *World) error {
	var errs error
	deletedEntities := make(map[EntityId]bool)

	for _, cmd := range c.deletes {
		if deletedEntities[cmd] {
			continue
		}
		errs = multierr.Append(errs, world.RemoveEntity(cmd))
		deletedEntities[cmd] = true
	}

	for _, cmd := range c.removes {
		if deletedEntities[cmd.entity] {
			continue
		}
		e, err := resolve(world, cmd.entity)
		if err == nil {
			_, err = e.RemoveComponent(cmd.compType)
		}
		errs = multierr.Append(errs, err)
	}

	for _, cmd := range c.adds {
		if deletedEntities[cmd.entity] {
			continue
		}
		e, err := resolve(world, cmd.entity)
		if err == nil {
			err = e.AddComponent(cmd.component)
		}
		errs = multierr.Append(errs, err)
	}

	for _, cmd := range c.spawns {
		_, err := world.Spawn(cmd.components...)
		errs = multierr.Append(errs, err)
	}

	for _, df := range c.defers {
		df.fn()
	}

	c.spawns = c.spawns[:0]
	c.deletes = c.deletes[:0]
	c.adds = c.adds[:0]
	c.removes = c.removes[:0]
	c.defers = c.defers[:0]
	return errs
}

func resolve(world *World, id EntityId) (*Entity, error) {
	e, ok := world.Entity(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrEntityNotFound, id)
	}
	return e, nil
}
