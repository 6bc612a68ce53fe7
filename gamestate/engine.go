package gamestate

import (
	"reflect"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	ecslog "pkg.world.dev/world-engine/lattice/log"
	"pkg.world.dev/world-engine/lattice/types"
)

// Engine owns every entity, archetype and component payload of one world.
//
// An Engine is not safe for concurrent use. Every method runs to completion before returning and
// callers on multiple goroutines must serialize access themselves, typically by letting the tick
// goroutine own the engine for the duration of a tick.
type Engine struct {
	logger zerolog.Logger

	nextID types.EntityID

	records    *MapStorage[types.EntityID, Record]
	archetypes []*Archetype
	index      archetypeIndex
	root       *Archetype

	components     *MapStorage[string, componentEntry]
	componentsByID *MapStorage[types.ComponentID, componentEntry]

	listeners      []*archetypeListener
	nextListenerID int
}

type Option func(*Engine)

// WithLogger sets the logger the engine reports archetype and entity changes to.
func WithLogger(logger zerolog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// NewEngine creates an engine holding only the empty root archetype.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		logger:         log.Logger,
		nextID:         1,
		records:        NewMapStorage[types.EntityID, Record](),
		index:          newArchetypeIndex(),
		components:     NewMapStorage[string, componentEntry](),
		componentsByID: NewMapStorage[types.ComponentID, componentEntry](),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.root = e.getOrMakeArchetype(types.Type{})
	return e
}

// NextEntityID returns a fresh id. Ids are never handed out twice, so an id that belonged to a
// removed entity never resolves to a record again.
func (e *Engine) NextEntityID() (types.EntityID, error) {
	if e.nextID > types.MaxEntityID {
		return 0, eris.Wrap(ErrEntityIDsExhausted, "")
	}
	id := e.nextID
	e.nextID++
	return id, nil
}

// CreateEntity creates an entity with an empty Type.
func (e *Engine) CreateEntity() (types.EntityID, error) {
	id, err := e.NextEntityID()
	if err != nil {
		return 0, err
	}
	row := e.root.pushEntity(id)
	e.SetRecord(id, Record{Archetype: e.root.ID, Row: row})
	ecslog.Entity(&e.logger, zerolog.TraceLevel, id, e.root.ID, e.root.Type)
	return id, nil
}

// Alive reports whether id has a record.
func (e *Engine) Alive(id types.EntityID) bool {
	_, ok := e.records.Get(id)
	return ok
}

// EntityCount returns the number of live entities, registered components included.
func (e *Engine) EntityCount() int {
	return e.records.Len()
}

// Record returns the location of a live entity.
func (e *Engine) Record(id types.EntityID) (Record, bool) {
	return e.records.Get(id)
}

// SetRecord points id at a new location. It is the low-level hook used when relocating entities;
// the caller is responsible for the archetype actually holding id at rec.
func (e *Engine) SetRecord(id types.EntityID, rec Record) {
	e.records.Set(id, rec)
}

// GetType returns the current Type of an entity.
func (e *Engine) GetType(id types.EntityID) (types.Type, error) {
	arch, _, err := e.locate(id)
	if err != nil {
		return nil, err
	}
	return arch.Type, nil
}

// GetComponents returns every payload the entity holds. Tags contribute nothing, so an entity
// that only holds tags yields an empty slice.
func (e *Engine) GetComponents(id types.EntityID) ([]any, error) {
	arch, row, err := e.locate(id)
	if err != nil {
		return nil, err
	}
	values := make([]any, 0, len(arch.columns))
	for _, cid := range arch.Type {
		if v, ok := arch.Get(row, cid); ok {
			values = append(values, v)
		}
	}
	return values, nil
}

// ComponentData returns the entity's payloads keyed by the id they were stored under, with the
// HoldsData bit cleared.
func (e *Engine) ComponentData(id types.EntityID) (map[types.ID]any, error) {
	arch, row, err := e.locate(id)
	if err != nil {
		return nil, err
	}
	data := make(map[types.ID]any, len(arch.columns))
	for cid := range arch.columns {
		data[cid.WithoutData()], _ = arch.Get(row, cid)
	}
	return data, nil
}

// GetComponent returns the payload stored under component. ok is false both when the entity lacks
// the component and when it only holds it as a tag.
func (e *Engine) GetComponent(id types.EntityID, component types.ID) (value any, ok bool, err error) {
	arch, row, err := e.locate(id)
	if err != nil {
		return nil, false, err
	}
	value, ok = arch.Get(row, component.WithData())
	return value, ok, nil
}

// HasComponent reports whether the entity holds component, with or without data.
func (e *Engine) HasComponent(id types.EntityID, component types.ID) (bool, error) {
	arch, _, err := e.locate(id)
	if err != nil {
		return false, err
	}
	return arch.Type.ContainsAny(component), nil
}

// AddComponent adds component to the entity's Type as a tag. Nothing happens if the entity already
// holds it in either form.
func (e *Engine) AddComponent(id types.EntityID, component types.ID) error {
	if err := e.validateComponentID(component); err != nil {
		return err
	}
	arch, row, err := e.locate(id)
	if err != nil {
		return err
	}
	if arch.Type.ContainsAny(component) {
		return nil
	}
	tag := component.WithoutData()
	e.moveEntity(id, arch, row, e.addEdge(arch, tag))
	return nil
}

// SetComponent associates payload with component on the entity, adding component first if needed.
// A previous payload is overwritten and a tag form of component is replaced by the data form.
//
// SetComponent panics with ErrCollectionAsComponent when payload is a collection of arbitrary
// values: that is always a caller bug.
func (e *Engine) SetComponent(id types.EntityID, component types.ID, payload any) error {
	mustNotBeCollection(payload)
	if payload == nil {
		return eris.Wrapf(ErrNilPayload, "component %s on entity %d", component, id)
	}
	if err := e.validateComponentID(component); err != nil {
		return err
	}
	arch, row, err := e.locate(id)
	if err != nil {
		return err
	}
	key := component.WithData()
	if !arch.Type.Contains(key) {
		dst := arch
		if tag := component.WithoutData(); arch.Type.Contains(tag) {
			dst = e.removeEdge(dst, tag)
		}
		dst = e.addEdge(dst, key)
		row = e.moveEntity(id, arch, row, dst)
		arch = dst
	}
	arch.set(row, key, payload)
	return nil
}

// SetRelation stores a relation of kind parent about component on the entity. With holdsData the
// relation carries payload; without it the relation is a pure tag and payload must be nil.
func (e *Engine) SetRelation(
	id types.EntityID, parent, component types.ID, payload any, holdsData bool,
) error {
	rel, err := e.Relation(parent, component)
	if err != nil {
		return err
	}
	if !holdsData {
		if payload != nil {
			return eris.Wrapf(ErrPayloadOnTag, "relation %s", rel)
		}
		return e.AddComponent(id, rel.ID)
	}
	return e.SetComponent(id, rel.ID, payload)
}

// Relation packs a relation of kind parent about component. Ids too wide for the relation encoding
// are rejected with ErrInvalidComponentID instead of being truncated into another relation's id.
func (e *Engine) Relation(parent, component types.ID) (types.Relation, error) {
	rel, ok := types.CheckedRelation(parent, component.WithoutData())
	if !ok {
		return types.Relation{}, eris.Wrapf(ErrInvalidComponentID,
			"relation of kind %s about %s does not fit the relation encoding", parent, component)
	}
	return rel, nil
}

// RelatedComponents returns the payloads of every relation of kind parent on the entity.
func (e *Engine) RelatedComponents(id types.EntityID, parent types.ID) ([]any, error) {
	arch, row, err := e.locate(id)
	if err != nil {
		return nil, err
	}
	var values []any
	for _, rel := range arch.Type.Relations() {
		if rel.Parent() != parent.Mask() {
			continue
		}
		if v, ok := arch.Get(row, rel.ID); ok {
			values = append(values, v)
		}
	}
	return values, nil
}

// RemoveComponent removes component and its payload from the entity. It reports whether the
// entity's Type changed; removing an absent component is not an error.
func (e *Engine) RemoveComponent(id types.EntityID, component types.ID) (bool, error) {
	arch, row, err := e.locate(id)
	if err != nil {
		return false, err
	}
	dst := arch
	for _, form := range []types.ID{component.WithoutData(), component.WithData()} {
		if dst.Type.Contains(form) {
			dst = e.removeEdge(dst, form)
		}
	}
	if dst == arch {
		return false, nil
	}
	e.moveEntity(id, arch, row, dst)
	return true, nil
}

// RemoveEntity detaches the entity from its archetype and deletes its record. The id is never
// handed out again.
func (e *Engine) RemoveEntity(id types.EntityID) error {
	if _, ok := e.componentsByID.Get(id); ok {
		return eris.Wrapf(ErrCannotRemoveComponent, "entity %d", id)
	}
	arch, row, err := e.locate(id)
	if err != nil {
		return err
	}
	if moved, ok := arch.swapRemove(row); ok {
		e.SetRecord(moved, Record{Archetype: arch.ID, Row: row})
	}
	e.records.Delete(id)
	e.logger.Trace().Uint64("entity_id", uint64(id)).Int("archetype_id", int(arch.ID)).Msg("removed")
	return nil
}

// locate resolves a live entity to its archetype and row.
func (e *Engine) locate(id types.EntityID) (*Archetype, int, error) {
	rec, ok := e.records.Get(id)
	if !ok {
		return nil, 0, eris.Wrapf(ErrEntityDoesNotExist, "entity %d", id)
	}
	return e.archetypes[rec.Archetype], rec.Row, nil
}

// moveEntity relocates id from src (at row) to dst, carrying every payload dst keeps. It returns the
// entity's row in dst. Moving to the same archetype is a no-op.
func (e *Engine) moveEntity(id types.EntityID, src *Archetype, row int, dst *Archetype) int {
	if src == dst {
		return row
	}
	newRow := dst.pushEntity(id)
	for cid := range dst.columns {
		if v, ok := src.Get(row, cid); ok {
			dst.set(newRow, cid, v)
		}
	}
	if moved, ok := src.swapRemove(row); ok {
		e.SetRecord(moved, Record{Archetype: src.ID, Row: row})
	}
	e.SetRecord(id, Record{Archetype: dst.ID, Row: newRow})
	return newRow
}

func (e *Engine) addEdge(arch *Archetype, id types.ID) *Archetype {
	if dst, ok := arch.addEdges[id]; ok {
		return dst
	}
	dst := e.getOrMakeArchetype(arch.Type.Plus(id))
	arch.addEdges[id] = dst
	dst.removeEdges[id] = arch
	return dst
}

func (e *Engine) removeEdge(arch *Archetype, id types.ID) *Archetype {
	if dst, ok := arch.removeEdges[id]; ok {
		return dst
	}
	dst := e.getOrMakeArchetype(arch.Type.Minus(id))
	arch.removeEdges[id] = dst
	dst.addEdges[id] = arch
	return dst
}

// validateComponentID rejects ids that can never be members of a Type, such as the zero id.
func (e *Engine) validateComponentID(component types.ID) error {
	if component.WithoutData() == 0 {
		return eris.Wrapf(ErrInvalidComponentID, "component %s", component)
	}
	return nil
}

// mustNotBeCollection panics when v is a slice or array of interface values. Storing such a value
// as a single component silently hides every element from queries.
func mustNotBeCollection(v any) {
	if v == nil {
		return
	}
	t := reflect.TypeOf(v)
	switch t.Kind() {
	case reflect.Slice, reflect.Array:
		if t.Elem().Kind() == reflect.Interface {
			panic(eris.Wrapf(ErrCollectionAsComponent, "got %T", v))
		}
	default:
	}
}
