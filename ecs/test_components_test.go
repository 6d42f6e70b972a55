package ecs_test

import (
	"testing"

	"github.com/plus3/ecsfilter/ecs"
	"github.com/stretchr/testify/assert"
)

// Common test component types
type Position struct {
	X, Y float32
}

type Velocity struct {
	DX, DY float32
}

type Name struct {
	Value string
}

type Health struct {
	Current int
	Max     int
}

type Frozen struct{}

// Custom primitive types for testing non-struct components
type Score int32
type Tag string

// Shape is implemented by more than one component type, for is-a lookups.
type Shape interface {
	Area() float64
}

type Circle struct {
	Radius float64
}

func (c Circle) Area() float64 { return 3 * c.Radius * c.Radius }

type Square struct {
	Side float64
}

func (s *Square) Area() float64 { return s.Side * s.Side }

func newTestRegistry() *ecs.ComponentRegistry {
	registry := ecs.NewComponentRegistry()
	ecs.RegisterComponent[Position](registry)
	ecs.RegisterComponent[Velocity](registry)
	ecs.RegisterComponent[Name](registry)
	ecs.RegisterComponent[Health](registry)
	ecs.RegisterComponent[Frozen](registry)
	ecs.RegisterComponent[Score](registry)
	ecs.RegisterComponent[Tag](registry)
	ecs.RegisterComponent[Circle](registry)
	ecs.RegisterComponent[Square](registry)
	return registry
}

// recorder is a configurable system that records every membership event.
type recorder struct {
	filters  *ecs.FilterSet
	events   []ecs.MembershipEvent
	updates  int
	onUpdate func(frame *ecs.UpdateFrame)
	onEvent  func(ev ecs.MembershipEvent)
}

func (r *recorder) Filters() *ecs.FilterSet { return r.filters }

func (r *recorder) Update(frame *ecs.UpdateFrame) {
	r.updates++
	if r.onUpdate != nil {
		r.onUpdate(frame)
	}
}

func (r *recorder) ObserveEntity(ev ecs.MembershipEvent) {
	r.events = append(r.events, ev)
	if r.onEvent != nil {
		r.onEvent(ev)
	}
}

func (r *recorder) count(kind ecs.EventKind, filter string) int {
	n := 0
	for _, ev := range r.events {
		if ev.Kind == kind && ev.Filter == filter {
			n++
		}
	}
	return n
}

// Distinct system types; a world holds at most one system per concrete type.
type recorderA struct{ recorder }
type recorderB struct{ recorder }
type recorderC struct{ recorder }

func newRecorderA(filters map[string]*ecs.Filter) *recorderA {
	return &recorderA{recorder{filters: ecs.MustFilterSet(filters)}}
}

func newRecorderB(filters map[string]*ecs.Filter) *recorderB {
	return &recorderB{recorder{filters: ecs.MustFilterSet(filters)}}
}

func newRecorderC(filters map[string]*ecs.Filter) *recorderC {
	return &recorderC{recorder{filters: ecs.MustFilterSet(filters)}}
}

// assertIndexExact checks that every registered filter's index equals the set
// of live entities the filter matches.
func assertIndexExact(t *testing.T, world *ecs.World) {
	t.Helper()
	for _, filter := range world.Filters() {
		set := world.FilterEntities(filter)
		expected := 0
		for e := range world.Entities() {
			matches := filter.Matches(e)
			assert.Equal(t, matches, set.Contains(e), "filter %s entity %s", filter, e.ID())
			if matches {
				expected++
			}
		}
		assert.Equal(t, expected, set.Len(), "filter %s size", filter)
	}
}

func mustSpawn(t *testing.T, world *ecs.World, components ...any) *ecs.Entity {
	t.Helper()
	e, err := world.Spawn(components...)
	if err != nil {
		t.Fatalf("spawn failed: %v", err)
	}
	return e
}
