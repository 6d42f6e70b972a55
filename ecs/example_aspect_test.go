package ecs_test

import (
	"fmt"

	"github.com/plus3/ecsfilter/ecs"
)

// ExampleAspect builds an avatar from two smaller aspects. Defaults come from
// each part's factory; overrides replace a whole component value.
func ExampleAspect() {
	character := ecs.NewAspect("character",
		ecs.Component[Name](),
		ecs.ComponentFunc(func() Health { return Health{Current: 100, Max: 100} }),
	)
	walking := ecs.NewAspect("walking", ecs.Component[Position](), ecs.Component[Velocity]())
	avatar := ecs.NewAspect("avatar", character, walking)

	registry := ecs.NewComponentRegistry()
	avatar.Register(registry)
	world := ecs.NewWorld(registry)

	hero, _ := avatar.Spawn(world, Name{Value: "hero"}, Position{X: 3, Y: 4})
	fmt.Println(avatar)
	fmt.Println(avatar.In(hero), walking.In(hero))

	walking.Remove(hero)
	fmt.Println(avatar.In(hero), character.In(hero))

	health, _ := ecs.Get[Health](hero)
	fmt.Printf("%d/%d\n", health.Current, health.Max)

	// Output:
	// avatar[ecs_test.Name, ecs_test.Health, ecs_test.Position, ecs_test.Velocity]
	// true true
	// false true
	// 100/100
}
