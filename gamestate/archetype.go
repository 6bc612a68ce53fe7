package gamestate

import (
	"pkg.world.dev/world-engine/lattice/types"
)

// Archetype stores every entity that holds exactly Type. Each Type entry that holds data owns a
// column; row i of every column belongs to entities[i].
type Archetype struct {
	ID   types.ArchetypeID
	Type types.Type

	entities []types.EntityID
	columns  map[types.ID][]any

	// Cached transitions to the archetype reached by adding or removing a single id.
	addEdges    map[types.ID]*Archetype
	removeEdges map[types.ID]*Archetype
}

func newArchetype(archID types.ArchetypeID, typ types.Type) *Archetype {
	arch := &Archetype{
		ID:          archID,
		Type:        typ,
		entities:    make([]types.EntityID, 0, 16),
		columns:     make(map[types.ID][]any),
		addEdges:    make(map[types.ID]*Archetype),
		removeEdges: make(map[types.ID]*Archetype),
	}
	for _, id := range typ {
		if id.HoldsData() {
			arch.columns[id] = make([]any, 0, 16)
		}
	}
	return arch
}

// Entities returns the entities currently in this archetype. The slice is owned by the archetype
// and changes as entities move; copy it before mutating the engine.
func (a *Archetype) Entities() []types.EntityID {
	return a.entities
}

// Count returns the number of entities in the archetype.
func (a *Archetype) Count() int {
	return len(a.entities)
}

// Get returns the payload stored for id at row. ok is false for tag entries and unknown ids.
func (a *Archetype) Get(row int, id types.ID) (value any, ok bool) {
	col, ok := a.columns[id]
	if !ok || row < 0 || row >= len(col) {
		return nil, false
	}
	return col[row], true
}

// set overwrites the payload stored for id at row. The column must exist.
func (a *Archetype) set(row int, id types.ID, value any) {
	a.columns[id][row] = value
}

// pushEntity appends a row for id with empty payloads and returns the row index.
func (a *Archetype) pushEntity(id types.EntityID) int {
	a.entities = append(a.entities, id)
	for cid, col := range a.columns {
		a.columns[cid] = append(col, nil)
	}
	return len(a.entities) - 1
}

// swapRemove removes row by moving the last row into its place. It returns the entity that now
// occupies row, and false when row was the last one and nothing moved.
func (a *Archetype) swapRemove(row int) (moved types.EntityID, didMove bool) {
	last := len(a.entities) - 1
	if row < last {
		a.entities[row] = a.entities[last]
		moved, didMove = a.entities[row], true
	}
	a.entities = a.entities[:last]
	for cid, col := range a.columns {
		if row < last {
			col[row] = col[last]
		}
		col[last] = nil
		a.columns[cid] = col[:last]
	}
	return moved, didMove
}
