package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"
)

type RedisOptions = redis.Options

// RedisStore keeps each entity under its own key and the component schemas in one hash.
type RedisStore struct {
	*base
	SchemaStorage
	Client *redis.Client
}

type redisBlobs struct {
	client    *redis.Client
	namespace string
}

// NewRedisStore connects to redis with options. Keys are prefixed with namespace.
func NewRedisStore(options RedisOptions, namespace string, p Persister, opts ...Option) *RedisStore {
	return NewRedisStoreFromClient(redis.NewClient(&options), namespace, p, opts...)
}

func NewRedisStoreFromClient(client *redis.Client, namespace string, p Persister, opts ...Option) *RedisStore {
	return &RedisStore{
		base:          newBase("redis", p, redisBlobs{client: client, namespace: namespace}, opts),
		SchemaStorage: NewSchemaStorage(client, namespace),
		Client:        client,
	}
}

func (r redisBlobs) entityKey(key uuid.UUID) string {
	return fmt.Sprintf("%s:entity:%s", r.namespace, key)
}

func (r redisBlobs) get(ctx context.Context, key uuid.UUID) ([]byte, bool, error) {
	bz, err := r.client.Get(ctx, r.entityKey(key)).Bytes()
	if eris.Is(err, redis.Nil) {
		return nil, false, nil
	} else if err != nil {
		return nil, false, eris.Wrap(err, "")
	}
	return bz, true, nil
}

func (r redisBlobs) put(ctx context.Context, key uuid.UUID, bz []byte) error {
	return eris.Wrap(r.client.Set(ctx, r.entityKey(key), bz, 0).Err(), "")
}

func (r redisBlobs) close() error {
	return eris.Wrap(r.client.Close(), "")
}
