package gamestate

import (
	"pkg.world.dev/world-engine/lattice/types"
)

// archetypeIndex finds the archetype for a Type. Types are bucketed by their hash and confirmed
// with an exact comparison, so a hash collision only costs an extra Equal.
type archetypeIndex struct {
	buckets map[uint64][]*Archetype
}

func newArchetypeIndex() archetypeIndex {
	return archetypeIndex{buckets: make(map[uint64][]*Archetype)}
}

func (idx archetypeIndex) get(typ types.Type) (*Archetype, bool) {
	for _, arch := range idx.buckets[typ.Hash()] {
		if arch.Type.Equal(typ) {
			return arch, true
		}
	}
	return nil, false
}

func (idx archetypeIndex) put(arch *Archetype) {
	h := arch.Type.Hash()
	idx.buckets[h] = append(idx.buckets[h], arch)
}
