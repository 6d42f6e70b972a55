package ecs_test

import (
	"reflect"
	"testing"

	"github.com/plus3/ecsfilter/ecs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntityComponents(t *testing.T) {
	t.Run("add and get by value", func(t *testing.T) {
		world := ecs.NewWorld(newTestRegistry())
		e := world.AddEntity()

		require.NoError(t, e.AddComponent(Position{X: 1, Y: 2}))
		assert.Equal(t, 1, e.Len())

		pos, err := ecs.Get[Position](e)
		require.NoError(t, err)
		assert.Equal(t, float32(1), pos.X)

		// Stored components are mutable in place
		pos.X = 10
		again, err := ecs.Get[Position](e)
		require.NoError(t, err)
		assert.Equal(t, float32(10), again.X)
	})

	t.Run("pointer components are stored as given", func(t *testing.T) {
		world := ecs.NewWorld(newTestRegistry())
		e := world.AddEntity()

		vel := &Velocity{DX: 3}
		require.NoError(t, e.AddComponent(vel))

		got, err := ecs.Get[Velocity](e)
		require.NoError(t, err)
		assert.Same(t, vel, got)
	})

	t.Run("a pointer is held by one entity at a time", func(t *testing.T) {
		world := ecs.NewWorld(newTestRegistry())
		first := world.AddEntity()
		second := world.AddEntity()

		vel := &Velocity{DX: 3}
		require.NoError(t, first.AddComponent(vel))
		err := second.AddComponent(vel)
		assert.ErrorIs(t, err, ecs.ErrComponentOwned)
		assert.Equal(t, 0, second.Len())

		// Once detached, the same instance can move to another entity
		removed, err := ecs.Remove[Velocity](first)
		require.NoError(t, err)
		require.NoError(t, second.AddComponent(removed))

		require.NoError(t, world.RemoveEntity(second.ID()))
		require.NoError(t, first.AddComponent(vel))
	})

	t.Run("zero-size pointers are not tracked", func(t *testing.T) {
		world := ecs.NewWorld(newTestRegistry())
		frozen := &Frozen{}
		require.NoError(t, world.AddEntity().AddComponent(frozen))
		require.NoError(t, world.AddEntity().AddComponent(frozen))
	})

	t.Run("primitive components", func(t *testing.T) {
		world := ecs.NewWorld(newTestRegistry())
		e := world.AddEntity()

		require.NoError(t, e.AddComponent(Score(42)))
		score, err := ecs.Get[Score](e)
		require.NoError(t, err)
		assert.Equal(t, Score(42), *score)
	})

	t.Run("duplicate component type fails", func(t *testing.T) {
		world := ecs.NewWorld(newTestRegistry())
		e := world.AddEntity()

		require.NoError(t, e.AddComponent(Position{}))
		err := e.AddComponent(&Position{X: 5})
		assert.ErrorIs(t, err, ecs.ErrDuplicateComponent)
		assert.Equal(t, 1, e.Len())

		pos, _ := ecs.Get[Position](e)
		assert.Equal(t, float32(0), pos.X)
	})

	t.Run("unregistered component type fails", func(t *testing.T) {
		world := ecs.NewWorld(ecs.NewComponentRegistry())
		e := world.AddEntity()

		err := e.AddComponent(Position{})
		assert.ErrorIs(t, err, ecs.ErrUnregisteredComponent)
		assert.Equal(t, 0, e.Len())
	})

	t.Run("get missing component fails", func(t *testing.T) {
		world := ecs.NewWorld(newTestRegistry())
		e := world.AddEntity()

		_, err := ecs.Get[Health](e)
		assert.ErrorIs(t, err, ecs.ErrComponentNotFound)
	})

	t.Run("remove returns the component", func(t *testing.T) {
		world := ecs.NewWorld(newTestRegistry())
		e := mustSpawn(t, world, Name{Value: "a"}, Position{})

		name, err := ecs.Remove[Name](e)
		require.NoError(t, err)
		assert.Equal(t, "a", name.Value)
		assert.False(t, e.HasComponent(reflect.TypeFor[Name]()))
		assert.Equal(t, 1, e.Len())

		_, err = ecs.Remove[Name](e)
		assert.ErrorIs(t, err, ecs.ErrComponentNotFound)
	})

	t.Run("components sorted by type name", func(t *testing.T) {
		world := ecs.NewWorld(newTestRegistry())
		e := mustSpawn(t, world, Velocity{}, Health{}, Position{})

		components := e.Components()
		require.Len(t, components, 3)
		assert.IsType(t, &Health{}, components[0])
		assert.IsType(t, &Position{}, components[1])
		assert.IsType(t, &Velocity{}, components[2])
	})
}

func TestEntityIsA(t *testing.T) {
	t.Run("get by interface finds the implementing component", func(t *testing.T) {
		world := ecs.NewWorld(newTestRegistry())
		e := mustSpawn(t, world, Circle{Radius: 2}, Position{})

		shape, err := ecs.As[Shape](e)
		require.NoError(t, err)
		assert.Equal(t, 12.0, shape.Area())
	})

	t.Run("has is exact while get is is-a", func(t *testing.T) {
		world := ecs.NewWorld(newTestRegistry())
		e := mustSpawn(t, world, Square{Side: 3})

		shapeType := reflect.TypeFor[Shape]()
		assert.False(t, e.HasComponent(shapeType))
		assert.True(t, e.HasComponent(reflect.TypeFor[Square]()))

		component, err := e.GetComponent(shapeType)
		require.NoError(t, err)
		assert.IsType(t, &Square{}, component)
	})

	t.Run("remove by interface", func(t *testing.T) {
		world := ecs.NewWorld(newTestRegistry())
		e := mustSpawn(t, world, Square{Side: 3}, Position{})

		removed, err := e.RemoveComponent(reflect.TypeFor[Shape]())
		require.NoError(t, err)
		assert.IsType(t, &Square{}, removed)
		assert.Equal(t, 1, e.Len())
	})

	t.Run("distinct implementations may coexist", func(t *testing.T) {
		world := ecs.NewWorld(newTestRegistry())
		e := world.AddEntity()

		require.NoError(t, e.AddComponent(Circle{Radius: 1}))
		require.NoError(t, e.AddComponent(Square{Side: 1}))

		assert.Panics(t, func() {
			_, _ = ecs.As[Shape](e)
		})
	})

	t.Run("interface lookup without match", func(t *testing.T) {
		world := ecs.NewWorld(newTestRegistry())
		e := mustSpawn(t, world, Position{})

		_, err := ecs.As[Shape](e)
		assert.ErrorIs(t, err, ecs.ErrComponentNotFound)
	})
}

func TestEntityHandles(t *testing.T) {
	t.Run("zero id never resolves", func(t *testing.T) {
		world := ecs.NewWorld(newTestRegistry())
		world.AddEntity()

		_, ok := world.Entity(0)
		assert.False(t, ok)
	})

	t.Run("removed entity handle goes stale", func(t *testing.T) {
		world := ecs.NewWorld(newTestRegistry())
		e := mustSpawn(t, world, Position{})
		id := e.ID()

		require.NoError(t, world.RemoveEntity(id))
		assert.False(t, e.Alive())
		assert.Equal(t, 0, world.EntityCount())

		_, ok := world.Entity(id)
		assert.False(t, ok)
		assert.ErrorIs(t, world.RemoveEntity(id), ecs.ErrEntityNotFound)
		assert.ErrorIs(t, e.AddComponent(Velocity{}), ecs.ErrEntityNotFound)

		_, err := e.RemoveComponent(reflect.TypeFor[Position]())
		assert.ErrorIs(t, err, ecs.ErrEntityNotFound)
	})

	t.Run("slots are reused with a new generation", func(t *testing.T) {
		world := ecs.NewWorld(newTestRegistry())
		first := world.AddEntity()
		require.NoError(t, world.RemoveEntity(first.ID()))

		second := world.AddEntity()
		assert.Equal(t, first.ID().Index(), second.ID().Index())
		assert.NotEqual(t, first.ID(), second.ID())
		assert.Equal(t, first.ID().Generation()+1, second.ID().Generation())

		got, ok := world.Entity(second.ID())
		assert.True(t, ok)
		assert.Same(t, second, got)
	})

	t.Run("entities iterate in slot order", func(t *testing.T) {
		world := ecs.NewWorld(newTestRegistry())
		a := world.AddEntity()
		b := world.AddEntity()
		c := world.AddEntity()
		require.NoError(t, world.RemoveEntity(b.ID()))

		var ids []ecs.EntityId
		for e := range world.Entities() {
			ids = append(ids, e.ID())
		}
		assert.Equal(t, []ecs.EntityId{a.ID(), c.ID()}, ids)
		assert.Same(t, world, a.World())
	})

	t.Run("spawn rolls back on failure", func(t *testing.T) {
		world := ecs.NewWorld(newTestRegistry())

		_, err := world.Spawn(Position{}, Position{})
		assert.ErrorIs(t, err, ecs.ErrDuplicateComponent)
		assert.Equal(t, 0, world.EntityCount())
	})
}
