package ecs

import (
	"fmt"
	"iter"
	"reflect"
	"slices"
	"time"

	"github.com/kamstrup/intmap"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// World owns entities, systems and, for every filter instance in use, the set
// of entities currently matching it. The index is exact after every mutating
// call returns. A World is not safe for concurrent use; independent worlds are.
type World struct {
	registry *ComponentRegistry
	log      *zap.Logger

	slots       []*Entity
	generations []uint32
	free        []uint32
	live        int

	// systems is kept in ascending sort order
	systems []*systemEntry
	bySort  map[int]*systemEntry
	byType  map[reflect.Type]*systemEntry

	// filters is kept in registration order
	filters  []*filterIndex
	byFilter map[*Filter]*filterIndex

	// owners maps every attached component pointer to its entity
	owners map[any]EntityId
}

type systemEntry struct {
	system   System
	typ      reflect.Type
	name     string
	sort     int
	filters  *FilterSet
	indexes  map[string]*filterIndex
	sets     map[string]*EntitySet
	observer EntityObserver
	commands *Commands
	stats    systemStatsInternal
	removed  bool
}

type filterIndex struct {
	filter  *Filter
	name    string
	owner   *systemEntry
	members *EntitySet
	removed bool
}

// Option configures a World.
type Option func(*World)

// WithLogger sets the logger the world reports registrations and flush failures to.
func WithLogger(log *zap.Logger) Option {
	return func(w *World) {
		if log != nil {
			w.log = log
		}
	}
}

// NewWorld creates an empty world whose entities accept the components
// registered in registry.
func NewWorld(registry *ComponentRegistry, opts ...Option) *World {
	if registry == nil {
		panic("world requires a component registry")
	}

	w := &World{
		registry: registry,
		log:      zap.NewNop(),
		bySort:   make(map[int]*systemEntry),
		byType:   make(map[reflect.Type]*systemEntry),
		byFilter: make(map[*Filter]*filterIndex),
		owners:   make(map[any]EntityId),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Registry returns the component registry the world was created with.
func (w *World) Registry() *ComponentRegistry {
	return w.registry
}

// AddEntity creates an empty entity. Filters that match an empty component
// set, such as And(), pick it up immediately.
func (w *World) AddEntity() *Entity {
	var index uint32
	if n := len(w.free); n > 0 {
		index = w.free[n-1]
		w.free = w.free[:n-1]
	} else {
		index = uint32(len(w.slots))
		w.slots = append(w.slots, nil)
		w.generations = append(w.generations, 0)
	}

	w.generations[index]++
	if w.generations[index] == 0 {
		w.generations[index] = 1
	}

	e := &Entity{
		id:         newEntityId(w.generations[index], index),
		world:      w,
		components: intmap.New[ComponentID, any](8),
		alive:      true,
	}
	w.slots[index] = e
	w.live++

	w.reindex(e, nil)
	return e
}

// Spawn creates an entity and attaches the given components in order.
// On failure the entity is removed again and the error returned.
func (w *World) Spawn(components ...any) (*Entity, error) {
	e := w.AddEntity()
	for _, component := range components {
		if err := e.AddComponent(component); err != nil {
			_ = w.RemoveEntity(e.id)
			return nil, err
		}
	}
	return e, nil
}

// Entity resolves a handle. Stale handles of removed entities do not resolve,
// nor does an entity whose removal is still delivering exit events.
func (w *World) Entity(id EntityId) (*Entity, bool) {
	index := id.Index()
	if int(index) >= len(w.slots) {
		return nil, false
	}
	e := w.slots[index]
	if e == nil || e.id != id || !e.alive {
		return nil, false
	}
	return e, true
}

// RemoveEntity destroys an entity. Every filter holding it emits an Exited
// event without a cause while the components are still attached; the
// entity refuses further mutation from that point, and removing it again
// from an exit hook fails with ErrEntityNotFound.
func (w *World) RemoveEntity(id EntityId) error {
	e, ok := w.Entity(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrEntityNotFound, id)
	}

	e.alive = false
	w.live--
	for _, fi := range slices.Clone(w.filters) {
		if fi.removed {
			continue
		}
		if fi.members.remove(e) {
			w.notify(fi, Exited, e, nil)
		}
	}

	e.components.ForEach(func(_ ComponentID, component any) bool {
		w.release(component)
		return true
	})
	e.components.Clear()
	w.slots[id.Index()] = nil
	w.free = append(w.free, id.Index())

	w.log.Debug("entity removed", zap.Stringer("entity", id))
	return nil
}

// Entities returns an iterator over live entities in slot order.
func (w *World) Entities() iter.Seq[*Entity] {
	return func(yield func(*Entity) bool) {
		for _, e := range w.slots {
			if e == nil {
				continue
			}
			if !yield(e) {
				return
			}
		}
	}
}

// EntityCount returns the number of live entities.
func (w *World) EntityCount() int {
	return w.live
}

// AddSystem registers a system under a unique sort key. Each of the system's
// filters gets a fresh index populated by scanning every existing entity;
// matching entities emit Entered events. All checks run before any state changes.
func (w *World) AddSystem(system System, sort int) error {
	if system == nil {
		panic("cannot add a nil system")
	}

	systemType := reflect.TypeOf(system)
	name := systemName(systemType)
	if _, ok := w.byType[systemType]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateSystemType, name)
	}
	if existing, ok := w.bySort[sort]; ok {
		return fmt.Errorf("%w: %d held by %s", ErrDuplicateSort, sort, existing.name)
	}

	filters := system.Filters()
	for _, filterName := range filters.Names() {
		if fi, ok := w.byFilter[filters.Filter(filterName)]; ok {
			return fmt.Errorf("%w: %s filter %q is %s filter %q", ErrFilterInUse, name, filterName, fi.owner.name, fi.name)
		}
	}

	entry := &systemEntry{
		system:   system,
		typ:      systemType,
		name:     name,
		sort:     sort,
		filters:  filters,
		indexes:  make(map[string]*filterIndex, filters.Len()),
		sets:     make(map[string]*EntitySet, filters.Len()),
		commands: newCommands(),
		stats: systemStatsInternal{
			minDuration: time.Duration(1<<63 - 1),
		},
	}
	entry.observer, _ = system.(EntityObserver)

	pos, _ := slices.BinarySearchFunc(w.systems, sort, func(e *systemEntry, s int) int { return e.sort - s })
	w.systems = slices.Insert(w.systems, pos, entry)
	w.bySort[sort] = entry
	w.byType[systemType] = entry

	w.log.Debug("system registered",
		zap.String("system", name),
		zap.Int("sort", sort),
		zap.Int("filters", filters.Len()))

	for _, filterName := range filters.Names() {
		if entry.removed {
			break
		}
		fi := &filterIndex{
			filter:  filters.Filter(filterName),
			name:    filterName,
			owner:   entry,
			members: newEntitySet(),
		}
		w.filters = append(w.filters, fi)
		w.byFilter[fi.filter] = fi
		entry.indexes[filterName] = fi
		entry.sets[filterName] = fi.members

		for _, e := range w.slots {
			if fi.removed {
				break
			}
			if e == nil || !e.alive {
				continue
			}
			if fi.filter.Matches(e) && !fi.members.Contains(e) {
				fi.members.add(e)
				w.notify(fi, Entered, e, nil)
			}
		}
	}

	return nil
}

// RemoveSystem unregisters the system of the given type. Every entity in each
// of its filters emits an Exited event without a cause, after the system and
// all of its filters have been taken out of the world.
func (w *World) RemoveSystem(systemType reflect.Type) error {
	entry, err := w.lookupSystem(systemType)
	if err != nil {
		return err
	}

	entry.removed = true
	w.systems = slices.DeleteFunc(w.systems, func(other *systemEntry) bool { return other == entry })
	delete(w.bySort, entry.sort)
	delete(w.byType, entry.typ)

	// A system removed from a hook during its own AddSystem scan has only
	// the indexes created so far.
	var indexes []*filterIndex
	for _, filterName := range entry.filters.Names() {
		fi, ok := entry.indexes[filterName]
		if !ok {
			continue
		}
		fi.removed = true
		w.filters = slices.DeleteFunc(w.filters, func(other *filterIndex) bool { return other == fi })
		delete(w.byFilter, fi.filter)
		indexes = append(indexes, fi)
	}

	w.log.Debug("system removed", zap.String("system", entry.name), zap.Int("sort", entry.sort))

	for _, fi := range indexes {
		members := fi.members.Snapshot()
		fi.members.clear()
		for _, e := range members {
			w.notify(fi, Exited, e, nil)
		}
	}
	return nil
}

// System returns the registered system of the given type. An interface type
// matches the one system implementing it.
func (w *World) System(systemType reflect.Type) (System, error) {
	entry, err := w.lookupSystem(systemType)
	if err != nil {
		return nil, err
	}
	return entry.system, nil
}

// HasSystem reports whether a system of the given type is registered.
func (w *World) HasSystem(systemType reflect.Type) bool {
	if systemType.Kind() == reflect.Interface {
		for _, entry := range w.systems {
			if entry.typ.Implements(systemType) {
				return true
			}
		}
		return false
	}
	_, ok := w.byType[systemType]
	return ok
}

// Systems returns the registered systems in ascending sort order.
func (w *World) Systems() []System {
	systems := make([]System, len(w.systems))
	for i, entry := range w.systems {
		systems[i] = entry.system
	}
	return systems
}

// SystemDependencies returns, for each registered system, the component types its filters reference.
func (w *World) SystemDependencies() map[reflect.Type][]reflect.Type {
	deps := make(map[reflect.Type][]reflect.Type, len(w.systems))
	for _, entry := range w.systems {
		deps[entry.typ] = entry.filters.Dependencies()
	}
	return deps
}

// FilterEntities returns the live index of a registered filter instance, or
// nil when no registered system declares it.
func (w *World) FilterEntities(filter *Filter) *EntitySet {
	fi, ok := w.byFilter[filter]
	if !ok {
		return nil
	}
	return fi.members
}

// Filters returns every registered filter instance in registration order.
func (w *World) Filters() []*Filter {
	filters := make([]*Filter, len(w.filters))
	for i, fi := range w.filters {
		filters[i] = fi.filter
	}
	return filters
}

func (w *World) lookupSystem(systemType reflect.Type) (*systemEntry, error) {
	if systemType == nil {
		return nil, fmt.Errorf("%w: nil type", ErrSystemNotFound)
	}

	if systemType.Kind() != reflect.Interface {
		if entry, ok := w.byType[systemType]; ok {
			return entry, nil
		}
		return nil, fmt.Errorf("%w: %s", ErrSystemNotFound, systemType)
	}

	var found *systemEntry
	for _, entry := range w.systems {
		if !entry.typ.Implements(systemType) {
			continue
		}
		if found != nil {
			panic(fmt.Sprintf("systems %s and %s both implement %s", found.name, entry.name, systemType))
		}
		found = entry
	}
	if found == nil {
		return nil, fmt.Errorf("%w: %s", ErrSystemNotFound, systemType)
	}
	return found, nil
}

// GetSystem returns the registered system of type T.
func GetSystem[T System](w *World) (T, error) {
	var zero T
	system, err := w.System(reflect.TypeFor[T]())
	if err != nil {
		return zero, err
	}
	return system.(T), nil
}

// RemoveSystemOf unregisters the system of type T.
func RemoveSystemOf[T System](w *World) error {
	return w.RemoveSystem(reflect.TypeFor[T]())
}

// Update runs every system once, in ascending sort order, with a zero delta.
func (w *World) Update() error {
	return w.runFrame(0)
}

// runFrame runs one pass. Systems registered during the pass first run in the
// next pass; systems removed during the pass are skipped. Each system's
// command buffer is flushed as soon as its Update returns.
func (w *World) runFrame(dt float64) error {
	var errs error
	for _, entry := range slices.Clone(w.systems) {
		if entry.removed {
			continue
		}

		frame := newUpdateFrame(dt, w, entry)
		start := time.Now()
		entry.system.Update(frame)
		entry.stats.record(time.Since(start))

		if err := entry.commands.Flush(w); err != nil {
			w.log.Warn("command flush failed", zap.String("system", entry.name), zap.Error(err))
			for _, cmdErr := range multierr.Errors(err) {
				errs = multierr.Append(errs, fmt.Errorf("%s: %w", entry.name, cmdErr))
			}
		}
	}
	return errs
}

// reindex re-derives the membership of one entity in every registered filter
// and emits events for the transitions. Observers may mutate the world from
// inside an event, so the current index state is re-read at every step.
func (w *World) reindex(e *Entity, cause any) {
	for _, fi := range slices.Clone(w.filters) {
		if !e.alive {
			return
		}
		if fi.removed {
			continue
		}

		matches := fi.filter.Matches(e)
		present := fi.members.Contains(e)
		switch {
		case matches && !present:
			fi.members.add(e)
			w.notify(fi, Entered, e, nil)
		case !matches && present:
			fi.members.remove(e)
			w.notify(fi, Exited, e, cause)
		}
	}
}

// claim records e as the owner of a component pointer. Pointers to zero-size
// types may share an address and are not tracked.
func (w *World) claim(e *Entity, component any) error {
	if reflect.TypeOf(component).Elem().Size() == 0 {
		return nil
	}
	if owner, ok := w.owners[component]; ok {
		return fmt.Errorf("%w: %T held by entity %s", ErrComponentOwned, component, owner)
	}
	w.owners[component] = e.id
	return nil
}

func (w *World) release(component any) {
	delete(w.owners, component)
}

func (w *World) notify(fi *filterIndex, kind EventKind, e *Entity, cause any) {
	if fi.owner.observer == nil {
		return
	}
	fi.owner.observer.ObserveEntity(MembershipEvent{
		Kind:   kind,
		Filter: fi.name,
		Entity: e,
		Cause:  cause,
	})
}
