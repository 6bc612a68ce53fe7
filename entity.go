package lattice

import (
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"

	"pkg.world.dev/world-engine/lattice/component"
	ecslog "pkg.world.dev/world-engine/lattice/log"
	"pkg.world.dev/world-engine/lattice/types"
)

// Entity is an entity id. It carries no reference to its world, so every operation takes the
// World explicitly.
type Entity types.EntityID

func (e Entity) ID() types.EntityID {
	return types.EntityID(e)
}

// RegisterComponent registers T with w and returns its id. Registering T again returns the same id.
func RegisterComponent[T types.Component](w *World, opts ...component.Option[T]) (types.ComponentID, error) {
	meta := component.NewMetadata[T](opts...)
	id, err := w.engine.RegisterComponent(meta)
	if err != nil {
		return 0, err
	}
	if err := w.syncSchemas(meta); err != nil {
		return 0, err
	}
	ecslog.Components(&w.logger, w, zerolog.DebugLevel)
	return id, nil
}

// ComponentID returns the id T was registered under.
func ComponentID[T types.Component](w *World) (types.ComponentID, error) {
	var zero T
	return w.engine.ComponentID(zero.Name())
}

// Create makes an entity holding comps. Every component must be registered.
func (w *World) Create(comps ...types.Component) (Entity, error) {
	id, err := w.engine.CreateEntity()
	if err != nil {
		return 0, err
	}
	e := Entity(id)
	if err := SetAll(w, e, comps...); err != nil {
		if rmErr := w.engine.RemoveEntity(id); rmErr != nil {
			w.logger.Error().Err(rmErr).Uint64("entity_id", uint64(id)).Msg("failed to clean up entity")
		}
		return 0, err
	}
	return e, nil
}

// Remove deletes e. Its id is never handed out again.
func (w *World) Remove(e Entity) error {
	return w.engine.RemoveEntity(e.ID())
}

// Alive reports whether e still exists.
func (w *World) Alive(e Entity) bool {
	return w.engine.Alive(e.ID())
}

// Components returns every payload e holds.
func (w *World) Components(e Entity) ([]any, error) {
	return w.engine.GetComponents(e.ID())
}

// Type returns e's current Type.
func (w *World) Type(e Entity) (types.Type, error) {
	return w.engine.GetType(e.ID())
}

// Set stores v on e, replacing any previous T.
func Set[T types.Component](w *World, e Entity, v T) error {
	id, err := ComponentID[T](w)
	if err != nil {
		return err
	}
	return w.engine.SetComponent(e.ID(), id, v)
}

// Get returns the T stored on e. ok is false when e lacks T or only holds it as a tag.
func Get[T types.Component](w *World, e Entity) (value T, ok bool, err error) {
	id, err := ComponentID[T](w)
	if err != nil {
		return value, false, err
	}
	v, ok, err := w.engine.GetComponent(e.ID(), id)
	if err != nil || !ok {
		return value, false, err
	}
	value, ok = v.(T)
	if !ok {
		return value, false, eris.Errorf("entity %d holds %T under component %q", e, v, value.Name())
	}
	return value, true, nil
}

// Has reports whether e holds T, with or without data.
func Has[T types.Component](w *World, e Entity) (bool, error) {
	id, err := ComponentID[T](w)
	if err != nil {
		return false, err
	}
	return w.engine.HasComponent(e.ID(), id)
}

// Add gives e the tag T. Nothing changes if e already holds T.
func Add[T types.Component](w *World, e Entity) error {
	id, err := ComponentID[T](w)
	if err != nil {
		return err
	}
	return w.engine.AddComponent(e.ID(), id)
}

// Remove takes T off e and reports whether e held it.
func Remove[T types.Component](w *World, e Entity) (bool, error) {
	id, err := ComponentID[T](w)
	if err != nil {
		return false, err
	}
	return w.engine.RemoveComponent(e.ID(), id)
}

// SetAll sets every component in comps on e. Each value is stored under the component its Name
// refers to.
func SetAll(w *World, e Entity, comps ...types.Component) error {
	for _, c := range comps {
		id, err := w.engine.ComponentID(c.Name())
		if err != nil {
			return err
		}
		if err := w.engine.SetComponent(e.ID(), id, c); err != nil {
			return err
		}
	}
	return nil
}

// HasAll reports whether e holds every component in ids.
func HasAll(w *World, e Entity, ids ...types.ComponentID) (bool, error) {
	for _, id := range ids {
		has, err := w.engine.HasComponent(e.ID(), id)
		if err != nil || !has {
			return false, err
		}
	}
	return true, nil
}

// GetOrSet returns e's T, first setting it to def() if e has none.
func GetOrSet[T types.Component](w *World, e Entity, def func() T) (T, error) {
	v, ok, err := Get[T](w, e)
	if err != nil || ok {
		return v, err
	}
	v = def()
	return v, Set(w, e, v)
}

// With calls fn with e's T if it has one and reports whether fn ran.
func With[T types.Component](w *World, e Entity, fn func(T)) (bool, error) {
	v, ok, err := Get[T](w, e)
	if err != nil || !ok {
		return false, err
	}
	fn(v)
	return true, nil
}

// SwapComponent exchanges the T of a and b. An entity lacking T ends up with the other's T while
// the other loses it. It reports whether either entity held T.
func SwapComponent[T types.Component](w *World, a, b Entity) (bool, error) {
	va, okA, err := Get[T](w, a)
	if err != nil {
		return false, err
	}
	vb, okB, err := Get[T](w, b)
	if err != nil {
		return false, err
	}
	if err := moveInto(w, b, va, okA); err != nil {
		return false, err
	}
	if err := moveInto(w, a, vb, okB); err != nil {
		return false, err
	}
	return okA || okB, nil
}

func moveInto[T types.Component](w *World, e Entity, v T, present bool) error {
	if present {
		return Set(w, e, v)
	}
	_, err := Remove[T](w, e)
	return err
}

// SetRelation stores data on e as a relation of kind P about component C.
func SetRelation[P, C types.Component](w *World, e Entity, data P) error {
	parent, target, err := relationIDs[P, C](w)
	if err != nil {
		return err
	}
	return w.engine.SetRelation(e.ID(), parent, target, data, true)
}

// SetRelationWithData stores data as a relation of kind P about C and sets target as e's C, so the
// relation satisfies families that require its target to hold data.
func SetRelationWithData[P, C types.Component](w *World, e Entity, data P, target C) error {
	if err := Set(w, e, target); err != nil {
		return err
	}
	return SetRelation[P, C](w, e, data)
}

// AddRelation gives e a relation of kind P about C that carries no data.
func AddRelation[P, C types.Component](w *World, e Entity) error {
	parent, target, err := relationIDs[P, C](w)
	if err != nil {
		return err
	}
	return w.engine.SetRelation(e.ID(), parent, target, nil, false)
}

// GetRelation returns the data of e's relation of kind P about C.
func GetRelation[P, C types.Component](w *World, e Entity) (value P, ok bool, err error) {
	parent, target, err := relationIDs[P, C](w)
	if err != nil {
		return value, false, err
	}
	rel, err := w.engine.Relation(parent, target)
	if err != nil {
		return value, false, err
	}
	v, ok, err := w.engine.GetComponent(e.ID(), rel.ID)
	if err != nil || !ok {
		return value, false, err
	}
	value, ok = v.(P)
	if !ok {
		return value, false, eris.Errorf("entity %d holds %T as relation data of %q", e, v, value.Name())
	}
	return value, true, nil
}

func relationIDs[P, C types.Component](w *World) (parent, target types.ComponentID, err error) {
	parent, err = ComponentID[P](w)
	if err != nil {
		return 0, 0, err
	}
	target, err = ComponentID[C](w)
	if err != nil {
		return 0, 0, err
	}
	return parent, target, nil
}
