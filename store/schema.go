package store

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"

	"pkg.world.dev/world-engine/lattice/component"
)

var (
	ErrNoSchemaFound           = eris.New("no schema found")
	ErrComponentSchemaMismatch = eris.New("component schema does not match stored schema")
)

// SchemaStorage remembers the JSON schema each component had when its data was first stored, so a
// world started with incompatible component definitions refuses to read old data.
type SchemaStorage struct {
	Client    *redis.Client
	Namespace string
}

func NewSchemaStorage(client *redis.Client, namespace string) SchemaStorage {
	return SchemaStorage{
		Client:    client,
		Namespace: namespace,
	}
}

func (r *SchemaStorage) schemaStorageKey() string {
	return fmt.Sprintf("%s:schemas", r.Namespace)
}

func (r *SchemaStorage) GetSchema(ctx context.Context, componentName string) ([]byte, error) {
	schemaBytes, err := r.Client.HGet(ctx, r.schemaStorageKey(), componentName).Bytes()
	if eris.Is(err, redis.Nil) {
		return nil, eris.Wrap(ErrNoSchemaFound, componentName)
	} else if err != nil {
		return nil, eris.Wrap(err, "")
	}
	return schemaBytes, nil
}

func (r *SchemaStorage) SetSchema(ctx context.Context, componentName string, schemaData []byte) error {
	return eris.Wrap(r.Client.HSet(ctx, r.schemaStorageKey(), componentName, schemaData).Err(), "")
}

// SyncSchemas stores the schema of every component seen for the first time and checks every
// other component against the schema stored for it.
func (r *SchemaStorage) SyncSchemas(ctx context.Context, comps []component.Metadata) error {
	for _, comp := range comps {
		schema, err := comp.GetSchema()
		if err != nil {
			return err
		}
		stored, err := r.GetSchema(ctx, comp.Name())
		if err != nil && !eris.Is(err, ErrNoSchemaFound) {
			return err
		}
		if stored == nil {
			if err := r.SetSchema(ctx, comp.Name(), schema); err != nil {
				return err
			}
			continue
		}
		valid, err := component.IsSchemaValid(schema, stored)
		if err != nil {
			return eris.Wrap(err, "error when validating component schema against stored schema")
		}
		if !valid {
			return eris.Wrapf(ErrComponentSchemaMismatch, "component %q", comp.Name())
		}
	}
	return nil
}
