package store_test

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/sebdah/goldie/v2"

	"pkg.world.dev/world-engine/lattice/assert"
	"pkg.world.dev/world-engine/lattice/codec"
	"pkg.world.dev/world-engine/lattice/component"
	"pkg.world.dev/world-engine/lattice/store"
	"pkg.world.dev/world-engine/lattice/types"
)

// fakePersister keeps persisting data per entity in memory.
type fakePersister struct {
	data  map[types.EntityID]map[string]codec.RawMessage
	uuids map[types.EntityID]uuid.UUID
	// reject makes SetAllPersistingData fail for payloads naming this component.
	reject string
}

func newFakePersister() *fakePersister {
	return &fakePersister{
		data:  make(map[types.EntityID]map[string]codec.RawMessage),
		uuids: make(map[types.EntityID]uuid.UUID),
	}
}

func (p *fakePersister) PersistingData(id types.EntityID) (map[string]codec.RawMessage, error) {
	data, ok := p.data[id]
	if !ok {
		return map[string]codec.RawMessage{}, nil
	}
	return data, nil
}

func (p *fakePersister) SetAllPersistingData(id types.EntityID, data map[string]codec.RawMessage) error {
	if _, ok := data[p.reject]; ok {
		return eris.Errorf("cannot decode %q", p.reject)
	}
	if p.data[id] == nil {
		p.data[id] = make(map[string]codec.RawMessage)
	}
	for name, raw := range data {
		p.data[id][name] = raw
	}
	return nil
}

func (p *fakePersister) GetOrSetUUID(id types.EntityID) (uuid.UUID, error) {
	if key, ok := p.uuids[id]; ok {
		return key, nil
	}
	key := uuid.New()
	p.uuids[id] = key
	return key, nil
}

func backends(t *testing.T, p store.Persister) map[string]store.Store {
	t.Helper()
	fs, err := store.NewFileSystemStore(filepath.Join(t.TempDir(), "entities"), p)
	assert.NilError(t, err)

	s := miniredis.RunT(t)
	rs := store.NewRedisStore(store.RedisOptions{Addr: s.Addr()}, "lattice", p)

	sq, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "entities.db"), p)
	assert.NilError(t, err)

	stores := map[string]store.Store{"filesystem": fs, "redis": rs, "sqlite": sq}
	t.Cleanup(func() {
		for _, st := range stores {
			_ = st.Close()
		}
	})
	return stores
}

func TestWriteThenDecode(t *testing.T) {
	p := newFakePersister()
	for name, st := range backends(t, p) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			src, dst := types.EntityID(100), types.EntityID(200)
			p.data[src] = map[string]codec.RawMessage{"health": codec.RawMessage(`{"Current":10}`)}
			delete(p.data, dst)
			delete(p.uuids, src)

			key, err := st.Write(ctx, src)
			assert.NilError(t, err)
			assert.Equal(t, p.uuids[src], key)

			bz, ok, err := st.Read(ctx, key)
			assert.NilError(t, err)
			assert.True(t, ok)
			assert.JSONEq(t, `{"health":{"Current":10}}`, string(bz))

			assert.NilError(t, st.Decode(ctx, dst, key))
			assert.DeepEqual(t, p.data[src], p.data[dst])
		})
	}
}

func TestOverwrite(t *testing.T) {
	p := newFakePersister()
	for name, st := range backends(t, p) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			id := types.EntityID(7)
			p.data[id] = map[string]codec.RawMessage{"health": codec.RawMessage(`{"Current":1}`)}
			first, err := st.Write(ctx, id)
			assert.NilError(t, err)

			p.data[id] = map[string]codec.RawMessage{"health": codec.RawMessage(`{"Current":2}`)}
			second, err := st.Write(ctx, id)
			assert.NilError(t, err)
			assert.Equal(t, first, second)

			bz, _, err := st.Read(ctx, first)
			assert.NilError(t, err)
			assert.JSONEq(t, `{"health":{"Current":2}}`, string(bz))
		})
	}
}

func TestMissingKey(t *testing.T) {
	p := newFakePersister()
	for name, st := range backends(t, p) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			_, ok, err := st.Read(ctx, uuid.New())
			assert.NilError(t, err)
			assert.False(t, ok)

			id := types.EntityID(300)
			assert.NilError(t, st.Decode(ctx, id, uuid.New()))
			_, touched := p.data[id]
			assert.False(t, touched)
		})
	}
}

func TestDecodeMalformedLeavesEntityUnchanged(t *testing.T) {
	p := newFakePersister()
	fs, err := store.NewFileSystemStore(t.TempDir(), p)
	assert.NilError(t, err)

	key := uuid.New()
	assert.NilError(t, os.WriteFile(filepath.Join(fs.Dir(), key.String()), []byte("{not json"), 0o600))

	id := types.EntityID(1)
	p.data[id] = map[string]codec.RawMessage{"health": codec.RawMessage(`{"Current":3}`)}
	err = fs.Decode(context.Background(), id, key)
	assert.ErrorIs(t, err, store.ErrMalformedData)
	assert.DeepEqual(t, map[string]codec.RawMessage{"health": codec.RawMessage(`{"Current":3}`)}, p.data[id])
}

func TestDecodeRejectedByPersister(t *testing.T) {
	p := newFakePersister()
	p.reject = "unknown"
	fs, err := store.NewFileSystemStore(t.TempDir(), p)
	assert.NilError(t, err)

	key := uuid.New()
	bz := []byte(`{"health":{"Current":4},"unknown":{}}`)
	assert.NilError(t, os.WriteFile(filepath.Join(fs.Dir(), key.String()), bz, 0o600))

	id := types.EntityID(2)
	assert.IsError(t, fs.Decode(context.Background(), id, key))
	_, touched := p.data[id]
	assert.False(t, touched)
}

func TestSaveAll(t *testing.T) {
	p := newFakePersister()
	for name, st := range backends(t, p) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			ids := make([]types.EntityID, 20)
			for i := range ids {
				ids[i] = types.EntityID(1000 + i)
				p.data[ids[i]] = map[string]codec.RawMessage{"index": codec.RawMessage(`{"I":1}`)}
			}

			keys, err := store.SaveAll(ctx, st, ids)
			assert.NilError(t, err)
			assert.Len(t, keys, len(ids))
			for _, id := range ids {
				_, ok, err := st.Read(ctx, keys[id])
				assert.NilError(t, err)
				assert.True(t, ok)
			}
		})
	}
}

func TestEncodeGolden(t *testing.T) {
	p := newFakePersister()
	p.data[1] = map[string]codec.RawMessage{
		"position": codec.RawMessage(`{"X":1,"Y":-2}`),
		"health":   codec.RawMessage(`{"Current":10,"Max":12}`),
		"name":     codec.RawMessage(`{"Value":"lattice"}`),
	}
	fs, err := store.NewFileSystemStore(t.TempDir(), p)
	assert.NilError(t, err)

	bz, err := fs.Encode(1)
	assert.NilError(t, err)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "encoded_entity", bz)
}

func TestSchemaStorage(t *testing.T) {
	s := miniredis.RunT(t)
	rs := store.NewRedisStore(store.RedisOptions{Addr: s.Addr()}, "lattice", newFakePersister())
	ctx := context.Background()

	_, err := rs.GetSchema(ctx, "health")
	assert.ErrorIs(t, err, store.ErrNoSchemaFound)

	assert.NilError(t, rs.SetSchema(ctx, "health", []byte(`{"type":"object"}`)))
	got, err := rs.GetSchema(ctx, "health")
	assert.NilError(t, err)
	assert.Equal(t, `{"type":"object"}`, string(got))

	fields, err := rs.Client.HKeys(ctx, "lattice:schemas").Result()
	assert.NilError(t, err)
	sort.Strings(fields)
	assert.DeepEqual(t, []string{"health"}, fields)
}

type healthV1 struct {
	Current int
}

func (healthV1) Name() string { return "health" }

type healthV2 struct {
	Current int
	Max     int
}

func (healthV2) Name() string { return "health" }

func TestSyncSchemasDetectsMismatch(t *testing.T) {
	s := miniredis.RunT(t)
	rs := store.NewRedisStore(store.RedisOptions{Addr: s.Addr()}, "lattice", newFakePersister())
	ctx := context.Background()

	v1 := []component.Metadata{component.NewMetadata[healthV1]()}
	assert.NilError(t, rs.SyncSchemas(ctx, v1))
	assert.NilError(t, rs.SyncSchemas(ctx, v1))

	v2 := []component.Metadata{component.NewMetadata[healthV2]()}
	assert.ErrorIs(t, rs.SyncSchemas(ctx, v2), store.ErrComponentSchemaMismatch)
}

func TestClosedStore(t *testing.T) {
	p := newFakePersister()
	for name, st := range backends(t, p) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			p.data[1] = map[string]codec.RawMessage{"health": codec.RawMessage(`{"Current":1}`)}
			key, err := st.Write(ctx, 1)
			assert.NilError(t, err)

			assert.NilError(t, st.Close())
			assert.NilError(t, st.Close())

			_, err = st.Write(ctx, 1)
			assert.ErrorIs(t, err, store.ErrStoreClosed)
			_, _, err = st.Read(ctx, key)
			assert.ErrorIs(t, err, store.ErrStoreClosed)
			assert.ErrorIs(t, st.Decode(ctx, 2, key), store.ErrStoreClosed)
			_, err = store.SaveAll(ctx, st, []types.EntityID{1})
			assert.ErrorIs(t, err, store.ErrStoreClosed)
		})
	}
}
