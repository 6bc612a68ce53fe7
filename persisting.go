package lattice

import (
	"slices"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"pkg.world.dev/world-engine/lattice/codec"
	"pkg.world.dev/world-engine/lattice/components"
	"pkg.world.dev/world-engine/lattice/gamestate"
	"pkg.world.dev/world-engine/lattice/types"
)

// markPersisting adds ids to e's PersistingComponents.
func markPersisting(w *World, e Entity, ids ...types.ComponentID) error {
	current, _, err := Get[components.PersistingComponents](w, e)
	if err != nil {
		return err
	}
	return Set(w, e, current.With(ids...))
}

// SetPersisting sets v on e and marks T to be written by stores.
func SetPersisting[T types.Component](w *World, e Entity, v T) error {
	id, err := ComponentID[T](w)
	if err != nil {
		return err
	}
	if err := w.engine.SetComponent(e.ID(), id, v); err != nil {
		return err
	}
	return markPersisting(w, e, id)
}

// SetAllPersisting sets every component in comps on e and marks them all as persisting.
func SetAllPersisting(w *World, e Entity, comps ...types.Component) error {
	ids := make([]types.ComponentID, 0, len(comps))
	for _, c := range comps {
		id, err := w.engine.ComponentID(c.Name())
		if err != nil {
			return err
		}
		ids = append(ids, id)
	}
	if err := SetAll(w, e, comps...); err != nil {
		return err
	}
	return markPersisting(w, e, ids...)
}

// GetOrSetPersisting returns e's T, first setting def() as a persisting component if e has none.
func GetOrSetPersisting[T types.Component](w *World, e Entity, def func() T) (T, error) {
	v, ok, err := Get[T](w, e)
	if err != nil || ok {
		return v, err
	}
	v = def()
	return v, SetPersisting(w, e, v)
}

// persistingIDs returns the ids marked as persisting that e still holds with data, in id order.
func persistingIDs(w *World, e Entity) ([]types.ComponentID, map[types.ID]any, error) {
	data, err := w.engine.ComponentData(e.ID())
	if err != nil {
		return nil, nil, err
	}
	marker, _, err := Get[components.PersistingComponents](w, e)
	if err != nil {
		return nil, nil, err
	}
	ids := make([]types.ComponentID, 0, len(marker.IDs))
	for _, id := range marker.IDs {
		if _, ok := data[id]; ok {
			ids = append(ids, id)
		}
	}
	return ids, data, nil
}

// GetPersistingComponents returns the payloads of e that are marked as persisting. Marks for
// components e no longer holds are ignored, so the result is always a subset of e's components.
func GetPersistingComponents(w *World, e Entity) ([]any, error) {
	ids, data, err := persistingIDs(w, e)
	if err != nil {
		return nil, err
	}
	out := make([]any, len(ids))
	for i, id := range ids {
		out[i] = data[id]
	}
	return out, nil
}

// GetInstanceComponents returns the payloads of e that are not marked as persisting, in id order.
func GetInstanceComponents(w *World, e Entity) ([]any, error) {
	ids, data, err := persistingIDs(w, e)
	if err != nil {
		return nil, err
	}
	keys := make([]types.ID, 0, len(data))
	for id := range data {
		if !slices.Contains(ids, id) {
			keys = append(keys, id)
		}
	}
	slices.Sort(keys)
	out := make([]any, len(keys))
	for i, id := range keys {
		out[i] = data[id]
	}
	return out, nil
}

// PersistingData encodes the persisting components of id by component name.
func (w *World) PersistingData(id types.EntityID) (map[string]codec.RawMessage, error) {
	ids, data, err := persistingIDs(w, Entity(id))
	if err != nil {
		return nil, err
	}
	out := make(map[string]codec.RawMessage, len(ids))
	for _, cid := range ids {
		meta, err := w.engine.MetadataByID(cid)
		if err != nil {
			return nil, err
		}
		bz, err := meta.Encode(data[cid])
		if err != nil {
			return nil, eris.Wrapf(err, "entity %d", id)
		}
		out[meta.Name()] = bz
	}
	return out, nil
}

// SetAllPersistingData decodes every entry of data before touching id, so a single bad entry
// leaves id exactly as it was.
func (w *World) SetAllPersistingData(id types.EntityID, data map[string]codec.RawMessage) error {
	if !w.engine.Alive(id) {
		return eris.Wrapf(gamestate.ErrEntityDoesNotExist, "entity %d", id)
	}
	type decoded struct {
		id    types.ComponentID
		value any
	}
	values := make([]decoded, 0, len(data))
	for name, raw := range data {
		meta, err := w.engine.Metadata(name)
		if err != nil {
			return err
		}
		v, err := meta.Decode(raw)
		if err != nil {
			return eris.Wrapf(err, "failed to decode component %q", name)
		}
		values = append(values, decoded{id: meta.ID(), value: v})
	}
	ids := make([]types.ComponentID, len(values))
	for i, d := range values {
		if err := w.engine.SetComponent(id, d.id, d.value); err != nil {
			return err
		}
		ids[i] = d.id
	}
	return markPersisting(w, Entity(id), ids...)
}

// GetOrSetUUID returns the UUID of id, assigning a random one first if it has none.
func (w *World) GetOrSetUUID(id types.EntityID) (uuid.UUID, error) {
	c, err := GetOrSet(w, Entity(id), func() components.UUID {
		return components.UUID{Value: uuid.New()}
	})
	if err != nil {
		return uuid.Nil, err
	}
	return c.Value, nil
}
