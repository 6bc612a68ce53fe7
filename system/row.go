package system

import (
	"github.com/rs/zerolog"

	"pkg.world.dev/world-engine/lattice/types"
)

// Row is the entity a system is currently visiting along with the values its handles bound.
// A Row is reused between entities and must not be retained after the system body returns.
type Row struct {
	Entity types.EntityID
	Logger *zerolog.Logger

	values []any
}

func (r *Row) reset(id types.EntityID) {
	r.Entity = id
	clear(r.values)
}
