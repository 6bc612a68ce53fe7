package gamestate

import (
	"sort"

	"github.com/rotisserie/eris"

	"pkg.world.dev/world-engine/lattice/component"
	"pkg.world.dev/world-engine/lattice/types"
)

type componentEntry struct {
	id   types.ComponentID
	meta component.Metadata
}

// RegisterComponent gives meta a component id. Ids are entity ids, so registering a component also
// creates the (empty) entity that represents it. Registering a name a second time returns the
// existing id.
func (e *Engine) RegisterComponent(meta component.Metadata) (types.ComponentID, error) {
	if existing, ok := e.components.Get(meta.Name()); ok {
		if err := meta.SetID(existing.id); err != nil {
			return 0, err
		}
		return existing.id, nil
	}
	id, err := e.CreateEntity()
	if err != nil {
		return 0, err
	}
	if err := meta.SetID(id); err != nil {
		// the entity is ours and nothing references it yet
		_ = e.RemoveEntity(id)
		return 0, err
	}
	entry := componentEntry{id: id, meta: meta}
	e.components.Set(meta.Name(), entry)
	e.componentsByID.Set(id, entry)
	e.logger.Debug().Str("component_name", meta.Name()).Uint64("component_id", uint64(id)).Msg("registered")
	return id, nil
}

// ComponentID returns the id registered for the component called name.
func (e *Engine) ComponentID(name string) (types.ComponentID, error) {
	entry, ok := e.components.Get(name)
	if !ok {
		return 0, eris.Wrapf(ErrComponentNotRegistered, "component %q", name)
	}
	return entry.id, nil
}

// Metadata returns the metadata registered under name.
func (e *Engine) Metadata(name string) (component.Metadata, error) {
	entry, ok := e.components.Get(name)
	if !ok {
		return nil, eris.Wrapf(ErrComponentNotRegistered, "component %q", name)
	}
	return entry.meta, nil
}

// MetadataByID returns the metadata registered under id. The HoldsData bit of id is ignored.
func (e *Engine) MetadataByID(id types.ComponentID) (component.Metadata, error) {
	entry, ok := e.componentsByID.Get(id.WithoutData())
	if !ok {
		return nil, eris.Wrapf(ErrComponentNotRegistered, "component id %s", id)
	}
	return entry.meta, nil
}

// RegisteredComponents returns all registered metadata ordered by id.
func (e *Engine) RegisteredComponents() []component.Metadata {
	entries := make([]componentEntry, 0, e.components.Len())
	for _, name := range e.components.Keys() {
		entry, _ := e.components.Get(name)
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].id < entries[j].id
	})
	metas := make([]component.Metadata, len(entries))
	for i, entry := range entries {
		metas[i] = entry.meta
	}
	return metas
}
