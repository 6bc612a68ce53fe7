package gamestate

import (
	"pkg.world.dev/world-engine/lattice/types"
)

// Record is the location of a live entity: the archetype it belongs to and its row in that
// archetype's entity list and columns.
type Record struct {
	Archetype types.ArchetypeID
	Row       int
}
