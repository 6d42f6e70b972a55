package ecs_test

import (
	"fmt"

	"github.com/plus3/ecsfilter/ecs"
)

type Sleeping struct{}

// WakeSystem tracks entities with health that are asleep.
type WakeSystem struct {
	filters *ecs.FilterSet
}

func (s *WakeSystem) Filters() *ecs.FilterSet { return s.filters }

func (s *WakeSystem) Update(*ecs.UpdateFrame) {}

func (s *WakeSystem) ObserveEntity(ev ecs.MembershipEvent) {
	switch {
	case ev.Kind == ecs.Entered:
		fmt.Printf("%s %s %s\n", ev.Entity.ID(), ev.Kind, ev.Filter)
	case ev.Cause != nil:
		fmt.Printf("%s %s %s (removed %T)\n", ev.Entity.ID(), ev.Kind, ev.Filter, ev.Cause)
	default:
		fmt.Printf("%s %s %s\n", ev.Entity.ID(), ev.Kind, ev.Filter)
	}
}

// ExampleWorld walks an entity through a filter's membership. Entries fire
// when the last required component arrives, exits carry the component whose
// removal caused them, and removing the system exits every remaining member.
func ExampleWorld() {
	registry := ecs.NewComponentRegistry()
	ecs.RegisterComponent[Health](registry)
	ecs.RegisterComponent[Sleeping](registry)
	world := ecs.NewWorld(registry)

	system := &WakeSystem{
		filters: ecs.MustFilterSet(map[string]*ecs.Filter{
			"asleep": ecs.And(ecs.Has[Health](), ecs.Has[Sleeping]()),
		}),
	}
	world.AddSystem(system, 0)

	a := world.AddEntity()
	a.AddComponent(Health{Current: 10, Max: 10})
	a.AddComponent(Sleeping{})

	b, _ := world.Spawn(Health{Current: 5, Max: 10}, Sleeping{})

	ecs.Remove[Sleeping](a)
	ecs.RemoveSystemOf[*WakeSystem](world)
	fmt.Println("members left:", world.FilterEntities(system.filters.Filter("asleep")).Len(), b.Len())

	// Output:
	// 0:1 entered asleep
	// 1:1 entered asleep
	// 0:1 exited asleep (removed *ecs_test.Sleeping)
	// 1:1 exited asleep
	// members left: 0 2
}
