// Package components holds the components every world registers.
package components

import (
	"slices"
	"time"

	"github.com/google/uuid"

	"pkg.world.dev/world-engine/lattice/types"
)

// UUID is the stable external key of an entity. Stores file an entity's persisted state under it.
type UUID struct {
	Value uuid.UUID
}

func (UUID) Name() string {
	return "uuid"
}

// PersistingComponents lists the components of an entity that should be written to a store. It
// may name components the entity no longer holds; readers intersect it with the live set.
type PersistingComponents struct {
	IDs []types.ComponentID
}

func (PersistingComponents) Name() string {
	return "persisting_components"
}

// Contains reports whether id is marked as persisting.
func (p PersistingComponents) Contains(id types.ComponentID) bool {
	_, found := slices.BinarySearch(p.IDs, id.WithoutData())
	return found
}

// With returns a copy of p that also contains ids.
func (p PersistingComponents) With(ids ...types.ComponentID) PersistingComponents {
	out := make([]types.ComponentID, 0, len(p.IDs)+len(ids))
	out = append(out, p.IDs...)
	for _, id := range ids {
		out = append(out, id.WithoutData())
	}
	slices.Sort(out)
	return PersistingComponents{IDs: slices.Compact(out)}
}

// Expiry is the payload of a relation whose target component is removed once EndTime passes.
type Expiry struct {
	EndTime time.Time
}

func (Expiry) Name() string {
	return "expiry"
}

// NewExpiry returns an Expiry ending d after now.
func NewExpiry(now time.Time, d time.Duration) Expiry {
	return Expiry{EndTime: now.Add(d)}
}

// TimeOver reports whether the expiry has passed at now.
func (e Expiry) TimeOver(now time.Time) bool {
	return !now.Before(e.EndTime)
}
