package main

import (
	"context"
	"math/rand/v2"
	"reflect"
	"time"

	"github.com/plus3/ecsfilter/ecs"
	"go.uber.org/zap"
)

type Position struct {
	X, Y float64
}

type Velocity struct {
	DX, DY float64
}

type Health struct {
	Current, Max int
}

type Lifetime struct {
	Remaining float64
}

type Frozen struct{}

type Team uint8

func newRegistry() *ecs.ComponentRegistry {
	registry := ecs.NewComponentRegistry()
	ecs.RegisterComponent[Position](registry)
	ecs.RegisterComponent[Velocity](registry)
	ecs.RegisterComponent[Health](registry)
	ecs.RegisterComponent[Lifetime](registry)
	ecs.RegisterComponent[Frozen](registry)
	ecs.RegisterComponent[Team](registry)
	return registry
}

// MovementSystem integrates velocity into position.
type MovementSystem struct {
	filters *ecs.FilterSet
}

func NewMovementSystem() *MovementSystem {
	return &MovementSystem{
		filters: ecs.MustFilterSet(map[string]*ecs.Filter{
			"moving": ecs.And(ecs.Has[Position](), ecs.Has[Velocity]()),
		}),
	}
}

func (s *MovementSystem) Filters() *ecs.FilterSet { return s.filters }

func (s *MovementSystem) Update(frame *ecs.UpdateFrame) {
	for e := range frame.Entities("moving").All() {
		if e.HasComponent(reflect.TypeFor[Frozen]()) {
			continue
		}
		pos, _ := ecs.Get[Position](e)
		vel, _ := ecs.Get[Velocity](e)
		pos.X += vel.DX * frame.DeltaTime
		pos.Y += vel.DY * frame.DeltaTime
	}
}

// AgingSystem counts lifetimes down and deletes expired entities.
type AgingSystem struct {
	filters *ecs.FilterSet
	Expired int64
}

func NewAgingSystem() *AgingSystem {
	return &AgingSystem{
		filters: ecs.MustFilterSet(map[string]*ecs.Filter{
			"mortal": ecs.And(ecs.Has[Lifetime]()),
		}),
	}
}

func (s *AgingSystem) Filters() *ecs.FilterSet { return s.filters }

func (s *AgingSystem) Update(frame *ecs.UpdateFrame) {
	for e := range frame.Entities("mortal").All() {
		lifetime, _ := ecs.Get[Lifetime](e)
		lifetime.Remaining -= frame.DeltaTime
		if lifetime.Remaining <= 0 {
			frame.Commands.Delete(e.ID())
			s.Expired++
		}
	}
}

// ChurnSystem toggles components on a random sample of entities every frame
// and tops the population back up, so filter membership keeps changing.
type ChurnSystem struct {
	filters  *ecs.FilterSet
	rng      *rand.Rand
	scenario Scenario
}

func NewChurnSystem(rng *rand.Rand, scenario Scenario) *ChurnSystem {
	return &ChurnSystem{
		filters: ecs.MustFilterSet(map[string]*ecs.Filter{
			"all": ecs.And(),
		}),
		rng:      rng,
		scenario: scenario,
	}
}

func (s *ChurnSystem) Filters() *ecs.FilterSet { return s.filters }

func (s *ChurnSystem) Update(frame *ecs.UpdateFrame) {
	all := frame.Entities("all")
	for e := range all.All() {
		if s.rng.Float64() >= s.scenario.Churn {
			continue
		}
		switch s.rng.IntN(3) {
		case 0:
			toggle[Frozen](frame.Commands, e, Frozen{})
		case 1:
			toggle[Velocity](frame.Commands, e, Velocity{DX: s.rng.NormFloat64(), DY: s.rng.NormFloat64()})
		default:
			toggle[Health](frame.Commands, e, Health{Current: 100, Max: 100})
		}
	}

	for missing := s.scenario.Entities - all.Len(); missing > 0; missing-- {
		frame.Commands.Spawn(randomComponents(s.rng, s.scenario)...)
	}
}

func toggle[T any](commands *ecs.Commands, e *ecs.Entity, component T) {
	typ := reflect.TypeFor[T]()
	if e.HasComponent(typ) {
		commands.RemoveComponent(e.ID(), typ)
		return
	}
	commands.AddComponent(e.ID(), component)
}

// CensusSystem observes an Or filter and counts membership transitions.
type CensusSystem struct {
	filters *ecs.FilterSet
	Entered int64
	Exited  int64
	Removed map[string]int64
}

func NewCensusSystem() *CensusSystem {
	return &CensusSystem{
		filters: ecs.MustFilterSet(map[string]*ecs.Filter{
			"active": ecs.Or(
				ecs.And(ecs.Has[Position](), ecs.Has[Velocity]()),
				ecs.Has[Health](),
			),
			"frozen": ecs.And(ecs.Has[Frozen](), ecs.Has[Team]()),
		}),
		Removed: make(map[string]int64),
	}
}

func (s *CensusSystem) Filters() *ecs.FilterSet { return s.filters }

func (s *CensusSystem) Update(*ecs.UpdateFrame) {}

func (s *CensusSystem) ObserveEntity(ev ecs.MembershipEvent) {
	switch ev.Kind {
	case ecs.Entered:
		s.Entered++
	case ecs.Exited:
		s.Exited++
		if ev.Cause != nil {
			s.Removed[reflect.TypeOf(ev.Cause).Elem().Name()]++
		}
	}
}

func randomComponents(rng *rand.Rand, scenario Scenario) []any {
	components := []any{
		Position{X: rng.Float64() * 1000, Y: rng.Float64() * 1000},
		Team(rng.IntN(4)),
	}
	if rng.IntN(2) == 0 {
		components = append(components, Velocity{DX: rng.NormFloat64(), DY: rng.NormFloat64()})
	}
	if rng.IntN(3) == 0 {
		components = append(components, Health{Current: 100, Max: 100})
	}
	if rng.IntN(4) == 0 {
		span := scenario.MaxLifetime - scenario.MinLifetime
		components = append(components, Lifetime{Remaining: scenario.MinLifetime + rng.Float64()*span})
	}
	return components
}

// WorldResult is what one simulated world reports back.
type WorldResult struct {
	Index      int
	UpdateTime Stats
	Scheduler  *ecs.SchedulerStats
	World      ecs.WorldStats
	Expired    int64
	Entered    int64
	Exited     int64
	Removed    map[string]int64
}

// runWorld builds and populates one world, then drives it frame by frame
// until ctx is done or the scenario's frame limit is reached.
func runWorld(ctx context.Context, index int, scenario Scenario, log *zap.Logger) (*WorldResult, error) {
	log = log.With(zap.Int("world", index))
	rng := rand.New(rand.NewPCG(scenario.Seed, uint64(index)))

	world := ecs.NewWorld(newRegistry(), ecs.WithLogger(log))
	aging := NewAgingSystem()
	census := NewCensusSystem()
	systems := []ecs.System{
		NewChurnSystem(rng, scenario),
		NewMovementSystem(),
		aging,
		census,
	}
	for sort, system := range systems {
		if err := world.AddSystem(system, sort); err != nil {
			return nil, err
		}
	}

	for i := 0; i < scenario.Entities; i++ {
		if _, err := world.Spawn(randomComponents(rng, scenario)...); err != nil {
			return nil, err
		}
	}
	log.Info("world populated", zap.Int("entities", world.EntityCount()))

	scheduler := ecs.NewScheduler(world)
	result := &WorldResult{Index: index}
	last := time.Now()

	for frames := int64(0); scenario.MaxFrames == 0 || frames < scenario.MaxFrames; frames++ {
		if ctx.Err() != nil {
			break
		}

		start := time.Now()
		dt := start.Sub(last).Seconds()
		last = start

		if err := scheduler.Once(dt); err != nil {
			log.Error("frame failed", zap.Error(err))
			return nil, err
		}
		result.UpdateTime.Samples = append(result.UpdateTime.Samples, time.Since(start))
	}

	result.UpdateTime.Finalize()
	result.Scheduler = scheduler.GetStats()
	result.World = world.Stats()
	result.Expired = aging.Expired
	result.Entered = census.Entered
	result.Exited = census.Exited
	result.Removed = census.Removed

	log.Info("world finished",
		zap.Int64("frames", result.Scheduler.Frames),
		zap.Int("entities", world.EntityCount()),
		zap.Duration("avg_frame", result.UpdateTime.Avg))
	return result, nil
}
