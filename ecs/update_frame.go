package ecs

// UpdateFrame is handed to a system's Update. Its entity sets are live: changes
// made during the pass, by this system or an earlier one, are visible at once.
type UpdateFrame struct {
	DeltaTime float64
	World     *World
	// Commands buffers structural changes until the system's Update returns.
	Commands *Commands

	entities map[string]*EntitySet
}

func newUpdateFrame(dt float64, world *World, entry *systemEntry) *UpdateFrame {
	return &UpdateFrame{
		DeltaTime: dt,
		World:     world,
		Commands:  entry.commands,
		entities:  entry.sets,
	}
}

// Entities returns the live set for the named filter, or nil for an unknown name.
// A nil *EntitySet behaves as an empty set.
func (f *UpdateFrame) Entities(name string) *EntitySet {
	return f.entities[name]
}

// Filtered returns the filter name to entity set mapping for the running system.
func (f *UpdateFrame) Filtered() map[string]*EntitySet {
	out := make(map[string]*EntitySet, len(f.entities))
	for name, set := range f.entities {
		out[name] = set
	}
	return out
}
