package gamestate

import (
	"github.com/rs/zerolog"

	ecslog "pkg.world.dev/world-engine/lattice/log"
	"pkg.world.dev/world-engine/lattice/types"
)

// Matcher decides whether an archetype's Type is relevant to a query. family.Family implements it.
type Matcher interface {
	Matches(t types.Type) bool
}

// ArchetypeCreatedFn is called once for every archetype created after it was subscribed.
type ArchetypeCreatedFn func(arch *Archetype)

type archetypeListener struct {
	id int
	fn ArchetypeCreatedFn
}

// OnArchetypeCreated subscribes fn to archetype creation. fn runs after the new archetype is fully
// indexed, so it may be read through the engine. The returned function unsubscribes fn.
func (e *Engine) OnArchetypeCreated(fn ArchetypeCreatedFn) (unsubscribe func()) {
	e.nextListenerID++
	l := &archetypeListener{id: e.nextListenerID, fn: fn}
	e.listeners = append(e.listeners, l)
	return func() {
		for i, other := range e.listeners {
			if other.id == l.id {
				e.listeners = append(e.listeners[:i], e.listeners[i+1:]...)
				return
			}
		}
	}
}

// Archetypes returns every archetype in creation order.
func (e *Engine) Archetypes() []*Archetype {
	return e.archetypes
}

// Archetype returns the archetype with the given id.
func (e *Engine) Archetype(archID types.ArchetypeID) (*Archetype, bool) {
	if archID < 0 || int(archID) >= len(e.archetypes) {
		return nil, false
	}
	return e.archetypes[archID], true
}

// ArchetypeCount returns the number of archetypes that have been created.
func (e *Engine) ArchetypeCount() int {
	return len(e.archetypes)
}

// ArchetypeFor returns the archetype holding exactly typ, if one was ever created.
func (e *Engine) ArchetypeFor(typ types.Type) (*Archetype, bool) {
	return e.index.get(typ)
}

// SearchFrom returns the ids of the archetypes created at or after start that m matches. Callers
// keep the ArchetypeCount they last saw and pass it as start to only classify new archetypes.
func (e *Engine) SearchFrom(m Matcher, start int) []types.ArchetypeID {
	var matched []types.ArchetypeID
	for i := start; i < len(e.archetypes); i++ {
		if m.Matches(e.archetypes[i].Type) {
			matched = append(matched, e.archetypes[i].ID)
		}
	}
	return matched
}

func (e *Engine) getOrMakeArchetype(typ types.Type) *Archetype {
	if arch, ok := e.ArchetypeFor(typ); ok {
		return arch
	}
	arch := newArchetype(types.ArchetypeID(len(e.archetypes)), typ)
	e.archetypes = append(e.archetypes, arch)
	e.index.put(arch)
	ecslog.Archetype(&e.logger, zerolog.DebugLevel, arch.ID, arch.Type)

	for _, l := range e.listeners {
		l.fn(arch)
	}
	return arch
}
