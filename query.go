package lattice

import (
	"pkg.world.dev/world-engine/lattice/family"
	"pkg.world.dev/world-engine/lattice/types"
)

// Query enumerates the entities whose Type a family matches. It remembers which archetypes it has
// already classified and only checks archetypes created since its last use.
type Query struct {
	w       *World
	family  family.Family
	seen    int
	matched []types.ArchetypeID
	isMatch map[types.ArchetypeID]struct{}
}

func (w *World) NewQuery(f family.Family) *Query {
	return &Query{
		w:       w,
		family:  f,
		isMatch: make(map[types.ArchetypeID]struct{}),
	}
}

func (q *Query) Family() family.Family {
	return q.family
}

func (q *Query) evaluate() []types.ArchetypeID {
	for _, archID := range q.w.engine.SearchFrom(q.family, q.seen) {
		q.matched = append(q.matched, archID)
		q.isMatch[archID] = struct{}{}
	}
	q.seen = q.w.engine.ArchetypeCount()
	return q.matched
}

// Each calls fn for every matching entity until fn returns false. The entities are collected
// before the first call, and an entity fn removes or moves out of the query is not visited.
func (q *Query) Each(fn func(Entity) bool) {
	for _, id := range q.snapshot() {
		rec, ok := q.w.engine.Record(id)
		if !ok {
			continue
		}
		if _, ok := q.isMatch[rec.Archetype]; !ok {
			// the entity may have moved to an archetype created after the snapshot
			arch, _ := q.w.engine.Archetype(rec.Archetype)
			if !q.family.Matches(arch.Type) {
				continue
			}
		}
		if !fn(Entity(id)) {
			return
		}
	}
}

func (q *Query) snapshot() []types.EntityID {
	var ids []types.EntityID
	for _, archID := range q.evaluate() {
		arch, _ := q.w.engine.Archetype(archID)
		ids = append(ids, arch.Entities()...)
	}
	return ids
}

// Count returns the number of matching entities.
func (q *Query) Count() int {
	n := 0
	for _, archID := range q.evaluate() {
		arch, _ := q.w.engine.Archetype(archID)
		n += arch.Count()
	}
	return n
}

// Entities returns every matching entity.
func (q *Query) Entities() []Entity {
	ids := q.snapshot()
	out := make([]Entity, len(ids))
	for i, id := range ids {
		out[i] = Entity(id)
	}
	return out
}
