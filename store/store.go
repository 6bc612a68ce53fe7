// Package store persists the persisting components of entities under an external uuid key.
//
// Every backend shares one wire format: a JSON object mapping component names to the component's
// own JSON encoding, e.g. {"health":{"Current":10}}.
package store

import (
	"context"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"pkg.world.dev/world-engine/lattice/codec"
	"pkg.world.dev/world-engine/lattice/types"
)

var (
	ErrMalformedData = eris.New("malformed persisted data")
	ErrStoreClosed   = eris.New("store is closed")
)

// Persister is the view of a world a store needs. *lattice.World implements it.
type Persister interface {
	// PersistingData returns the encoded persisting components of id keyed by component name.
	PersistingData(id types.EntityID) (map[string]codec.RawMessage, error)
	// SetAllPersistingData decodes every entry of data and, only if all succeed, sets them on id
	// as persisting components.
	SetAllPersistingData(id types.EntityID, data map[string]codec.RawMessage) error
	// GetOrSetUUID returns the uuid of id, assigning a random one first if it has none.
	GetOrSetUUID(id types.EntityID) (uuid.UUID, error)
}

type Store interface {
	// Encode serializes exactly the persisting components of id.
	Encode(id types.EntityID) ([]byte, error)
	// Decode merges the state stored under key into id as persisting components. A key with
	// nothing stored is not an error. On failure id is left unchanged.
	Decode(ctx context.Context, id types.EntityID, key uuid.UUID) error
	// Read returns the raw bytes stored under key. ok is false when nothing is stored.
	Read(ctx context.Context, key uuid.UUID) (bz []byte, ok bool, err error)
	// Write stores the encoded state of id under its uuid, assigning one if needed.
	Write(ctx context.Context, id types.EntityID) (uuid.UUID, error)
	Close() error
}

// blobs is the byte level storage a backend provides.
type blobs interface {
	get(ctx context.Context, key uuid.UUID) ([]byte, bool, error)
	put(ctx context.Context, key uuid.UUID, bz []byte) error
	close() error
}

// base implements Store on top of a blobs backend.
type base struct {
	persister Persister
	blobs     blobs
	logger    zerolog.Logger
	backend   string
	closed    atomic.Bool
}

func (s *base) checkOpen() error {
	if s.closed.Load() {
		return eris.Wrapf(ErrStoreClosed, "%s store", s.backend)
	}
	return nil
}

func (s *base) Encode(id types.EntityID) ([]byte, error) {
	data, err := s.persister.PersistingData(id)
	if err != nil {
		return nil, eris.Wrapf(err, "failed to collect persisting components of entity %d", id)
	}
	return codec.EncodeComponents(data)
}

func (s *base) Decode(ctx context.Context, id types.EntityID, key uuid.UUID) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	bz, ok, err := s.blobs.get(ctx, key)
	if err != nil {
		return eris.Wrapf(err, "failed to read %s from %s store", key, s.backend)
	}
	if !ok {
		s.logger.Debug().Stringer("uuid", key).Msg("nothing stored")
		return nil
	}
	data, err := codec.DecodeComponents(bz)
	if err != nil {
		return eris.Wrapf(ErrMalformedData, "%s: %v", key, err)
	}
	if err := s.persister.SetAllPersistingData(id, data); err != nil {
		return eris.Wrapf(err, "failed to apply %s to entity %d", key, id)
	}
	return nil
}

func (s *base) Read(ctx context.Context, key uuid.UUID) ([]byte, bool, error) {
	if err := s.checkOpen(); err != nil {
		return nil, false, err
	}
	bz, ok, err := s.blobs.get(ctx, key)
	if err != nil {
		return nil, false, eris.Wrapf(err, "failed to read %s from %s store", key, s.backend)
	}
	return bz, ok, nil
}

func (s *base) Write(ctx context.Context, id types.EntityID) (uuid.UUID, error) {
	if err := s.checkOpen(); err != nil {
		return uuid.Nil, err
	}
	key, err := s.persister.GetOrSetUUID(id)
	if err != nil {
		return uuid.Nil, err
	}
	bz, err := s.Encode(id)
	if err != nil {
		return uuid.Nil, err
	}
	if err := s.blobs.put(ctx, key, bz); err != nil {
		return uuid.Nil, eris.Wrapf(err, "failed to write %s to %s store", key, s.backend)
	}
	s.logger.Trace().Stringer("uuid", key).Uint64("entity_id", uint64(id)).Int("bytes", len(bz)).Msg("written")
	return key, nil
}

// Close releases the backend. Every later read or write fails with ErrStoreClosed; closing again
// is a no-op.
func (s *base) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	s.logger.Info().Msg("Closing storage connection.")
	if err := s.blobs.close(); err != nil {
		return eris.Wrapf(err, "failed to close %s store", s.backend)
	}
	s.logger.Info().Msg("Successfully closed storage connection.")
	return nil
}

func (s *base) unwrap() *base {
	return s
}

// SaveAll writes every entity in ids and returns the key each was stored under. Entities are
// encoded one after the other, since encoding reads the world, and the resulting bytes are written
// concurrently.
func SaveAll(ctx context.Context, s Store, ids []types.EntityID) (map[types.EntityID]uuid.UUID, error) {
	type pending struct {
		id  types.EntityID
		key uuid.UUID
		bz  []byte
	}
	b, ok := s.(interface{ unwrap() *base })
	if !ok {
		return saveSequential(ctx, s, ids)
	}
	inner := b.unwrap()
	if err := inner.checkOpen(); err != nil {
		return nil, err
	}

	batch := make([]pending, 0, len(ids))
	for _, id := range ids {
		key, err := inner.persister.GetOrSetUUID(id)
		if err != nil {
			return nil, err
		}
		bz, err := s.Encode(id)
		if err != nil {
			return nil, err
		}
		batch = append(batch, pending{id: id, key: key, bz: bz})
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for _, item := range batch {
		item := item
		g.Go(func() error {
			return eris.Wrapf(inner.blobs.put(ctx, item.key, item.bz), "entity %d", item.id)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	keys := make(map[types.EntityID]uuid.UUID, len(batch))
	for _, item := range batch {
		keys[item.id] = item.key
	}
	return keys, nil
}

func saveSequential(ctx context.Context, s Store, ids []types.EntityID) (map[types.EntityID]uuid.UUID, error) {
	keys := make(map[types.EntityID]uuid.UUID, len(ids))
	for _, id := range ids {
		key, err := s.Write(ctx, id)
		if err != nil {
			return nil, err
		}
		keys[id] = key
	}
	return keys, nil
}
