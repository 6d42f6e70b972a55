package ecs

import (
	"iter"
	"slices"

	"github.com/kamstrup/intmap"
)

// EntitySet is the live set of entities matching one registered filter.
// Iterating with All while mutating membership of the same set is undefined;
// use Snapshot when the loop body may add or remove components.
// A nil *EntitySet behaves as an empty set.
type EntitySet struct {
	members *intmap.Map[EntityId, *Entity]
}

func newEntitySet() *EntitySet {
	return &EntitySet{
		members: intmap.New[EntityId, *Entity](64),
	}
}

// Len returns the number of entities in the set.
func (s *EntitySet) Len() int {
	if s == nil {
		return 0
	}
	return s.members.Len()
}

// Has reports whether the entity with the given handle is in the set.
func (s *EntitySet) Has(id EntityId) bool {
	if s == nil {
		return false
	}
	return s.members.Has(id)
}

// Contains reports whether the entity is in the set.
func (s *EntitySet) Contains(e *Entity) bool {
	return e != nil && s.Has(e.id)
}

// All returns an iterator over the set in no particular order.
func (s *EntitySet) All() iter.Seq[*Entity] {
	return func(yield func(*Entity) bool) {
		if s == nil {
			return
		}
		for e := range s.members.Values() {
			if !yield(e) {
				return
			}
		}
	}
}

// Snapshot copies the current members, ordered by entity ID.
func (s *EntitySet) Snapshot() []*Entity {
	if s == nil {
		return nil
	}
	entities := make([]*Entity, 0, s.members.Len())
	for e := range s.members.Values() {
		entities = append(entities, e)
	}
	slices.SortFunc(entities, func(a, b *Entity) int {
		switch {
		case a.id.Index() < b.id.Index():
			return -1
		case a.id.Index() > b.id.Index():
			return 1
		default:
			return 0
		}
	})
	return entities
}

func (s *EntitySet) add(e *Entity) {
	s.members.Put(e.id, e)
}

func (s *EntitySet) remove(e *Entity) bool {
	return s.members.Del(e.id)
}

func (s *EntitySet) clear() {
	s.members.Clear()
}
