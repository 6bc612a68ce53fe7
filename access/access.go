// Package access keeps a one to one mapping between externally owned objects, identified by
// UUID, and the entities that represent them in a World.
package access

import (
	"context"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"pkg.world.dev/world-engine/lattice"
	"pkg.world.dev/world-engine/lattice/components"
	"pkg.world.dev/world-engine/lattice/store"
	"pkg.world.dev/world-engine/lattice/types"
)

var ErrNotRegistered = eris.New("key is not registered")

// World is the part of lattice.World the bridge needs.
type World interface {
	Create(comps ...types.Component) (lattice.Entity, error)
	Remove(e lattice.Entity) error
	Store() (store.Store, error)
}

// RegisterHook returns extra components for the entity being created for key.
type RegisterHook func(key uuid.UUID) []types.Component

// UnregisterHook runs before the entity of key is removed.
type UnregisterHook func(key uuid.UUID, e lattice.Entity)

type Option func(*Bridge)

func WithLogger(logger zerolog.Logger) Option {
	return func(b *Bridge) {
		b.logger = logger
	}
}

// WithSaveOnUnregister writes an entity to the world's store before it is removed.
func WithSaveOnUnregister() Option {
	return func(b *Bridge) {
		b.saveOnUnregister = true
	}
}

// Bridge is not safe for concurrent use; callers serialize access together with the World.
type Bridge struct {
	w      World
	logger zerolog.Logger

	entities map[uuid.UUID]lattice.Entity

	onRegister       []RegisterHook
	onUnregister     []UnregisterHook
	saveOnUnregister bool
}

func New(w World, opts ...Option) *Bridge {
	b := &Bridge{
		w:        w,
		logger:   log.Logger,
		entities: make(map[uuid.UUID]lattice.Entity),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Bridge) OnRegister(hook RegisterHook) {
	b.onRegister = append(b.onRegister, hook)
}

func (b *Bridge) OnUnregister(hook UnregisterHook) {
	b.onUnregister = append(b.onUnregister, hook)
}

// Register returns the entity of key, creating it if key is new. A new entity holds the UUID
// component, whatever the register hooks contribute, and the state the world's store holds for
// key. If decoding fails the entity is removed and key stays unregistered.
func (b *Bridge) Register(ctx context.Context, key uuid.UUID) (lattice.Entity, error) {
	if e, ok := b.entities[key]; ok {
		return e, nil
	}
	comps := []types.Component{components.UUID{Value: key}}
	for _, hook := range b.onRegister {
		comps = append(comps, hook(key)...)
	}
	e, err := b.w.Create(comps...)
	if err != nil {
		return 0, eris.Wrapf(err, "failed to create entity for %s", key)
	}
	if err := b.decode(ctx, e, key); err != nil {
		if rmErr := b.w.Remove(e); rmErr != nil {
			b.logger.Error().Err(rmErr).Str("key", key.String()).Msg("failed to remove entity after failed decode")
		}
		return 0, err
	}
	b.entities[key] = e
	b.logger.Debug().Str("key", key.String()).Uint64("entity_id", uint64(e)).Msg("registered")
	return e, nil
}

func (b *Bridge) decode(ctx context.Context, e lattice.Entity, key uuid.UUID) error {
	s, err := b.w.Store()
	if eris.Is(err, lattice.ErrNoStore) {
		return nil
	} else if err != nil {
		return err
	}
	return s.Decode(ctx, e.ID(), key)
}

// Lookup returns the entity of key without registering it.
func (b *Bridge) Lookup(key uuid.UUID) (lattice.Entity, bool) {
	e, ok := b.entities[key]
	return e, ok
}

// Unregister runs the unregister hooks and removes the entity of key from the world. The entity
// is removed exactly once: key is forgotten even if the removal fails.
func (b *Bridge) Unregister(ctx context.Context, key uuid.UUID) error {
	e, ok := b.entities[key]
	if !ok {
		return eris.Wrapf(ErrNotRegistered, "key %s", key)
	}
	for _, hook := range b.onUnregister {
		hook(key, e)
	}
	delete(b.entities, key)

	if b.saveOnUnregister {
		if err := b.save(ctx, e); err != nil {
			b.logger.Error().Err(err).Str("key", key.String()).Msg("failed to save entity")
		}
	}
	if err := b.w.Remove(e); err != nil {
		return eris.Wrapf(err, "failed to remove entity of %s", key)
	}
	b.logger.Debug().Str("key", key.String()).Uint64("entity_id", uint64(e)).Msg("unregistered")
	return nil
}

func (b *Bridge) save(ctx context.Context, e lattice.Entity) error {
	s, err := b.w.Store()
	if err != nil {
		return err
	}
	_, err = s.Write(ctx, e.ID())
	return err
}

// Forget drops key without touching its entity, for entities that were already removed from the
// world some other way. The unregister hooks still run.
func (b *Bridge) Forget(key uuid.UUID) bool {
	e, ok := b.entities[key]
	if !ok {
		return false
	}
	for _, hook := range b.onUnregister {
		hook(key, e)
	}
	delete(b.entities, key)
	return true
}

// Len returns the number of registered keys.
func (b *Bridge) Len() int {
	return len(b.entities)
}
