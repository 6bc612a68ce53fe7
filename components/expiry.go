package components

import (
	"time"

	"github.com/rotisserie/eris"

	"pkg.world.dev/world-engine/lattice/system"
	"pkg.world.dev/world-engine/lattice/types"
)

// ExpirySystemName is the name the expiry system is tracked under.
const ExpirySystemName = "expiry"

// ComponentRemover removes a component from an entity. *gamestate.Engine implements it.
type ComponentRemover interface {
	RemoveComponent(id types.EntityID, component types.ID) (bool, error)
}

// NewExpirySystem builds the system that enforces Expiry relations. When an entity's Expiry
// relation is over, both the component the relation points at and the relation are removed.
func NewExpirySystem(
	registry system.Registry, remover ComponentRemover, now func() time.Time,
) (*system.System, error) {
	b := system.NewBuilder(ExpirySystemName, registry)
	expiry := system.Relation[Expiry](b, false)
	return b.Build(func(row *system.Row) error {
		rel := expiry.Value(row)
		if !rel.HasData || !rel.Data.TimeOver(now()) {
			return nil
		}
		if _, err := remover.RemoveComponent(row.Entity, rel.Relation.Component()); err != nil {
			return eris.Wrap(err, "failed to remove expired component")
		}
		if _, err := remover.RemoveComponent(row.Entity, rel.Relation.ID); err != nil {
			return eris.Wrap(err, "failed to remove expiry")
		}
		row.Logger.Debug().
			Uint64("entity_id", uint64(row.Entity)).
			Stringer("component", rel.Relation.Component()).
			Msg("component expired")
		return nil
	})
}
