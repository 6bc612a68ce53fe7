// Package component describes registered component kinds. A Metadata value knows a component's
// name, the id the registry assigned to it, and how to move its payload in and out of bytes.
package component

import (
	"fmt"
	"reflect"

	"github.com/invopop/jsonschema"
	"github.com/rotisserie/eris"
	"github.com/wI2L/jsondiff"

	"pkg.world.dev/world-engine/lattice/codec"
	"pkg.world.dev/world-engine/lattice/types"
)

// Metadata wraps the user-defined Component struct and provides functionalities that are used
// internally by the engine.
type Metadata interface {
	// SetID sets the id of this component. It must only be set once.
	SetID(types.ComponentID) error
	// ID returns the id of the component. It is zero until the component is registered.
	ID() types.ComponentID
	// New returns the marshaled bytes of the default value for the component struct.
	New() ([]byte, error)
	Encode(any) ([]byte, error)
	Decode([]byte) (any, error)
	GetSchema() ([]byte, error)
	// Owns reports whether v is a payload of this component kind.
	Owns(v any) bool

	types.Component
}

// NewMetadata creates the metadata for component T.
func NewMetadata[T types.Component](opts ...Option[T]) Metadata {
	var t T
	comp := &metadata[T]{
		typ:  reflect.TypeOf(t),
		name: t.Name(),
	}
	for _, opt := range opts {
		opt(comp)
	}
	return comp
}

type metadata[T types.Component] struct {
	isIDSet    bool
	id         types.ComponentID
	typ        reflect.Type
	name       string
	defaultVal *T
}

// SetID sets this component's id. It must be unique across the world object.
func (c *metadata[T]) SetID(id types.ComponentID) error {
	if c.isIDSet {
		// Tests commonly reuse one metadata value across several worlds. Re-registering is allowed as
		// long as the id does not change.
		if id == c.id {
			return nil
		}
		return eris.Errorf("id for component %v is already set to %v, cannot change to %v", c, c.id, id)
	}
	c.id = id
	c.isIDSet = true
	return nil
}

func (c *metadata[T]) String() string {
	return c.name
}

func (c *metadata[T]) Name() string {
	return c.name
}

func (c *metadata[T]) ID() types.ComponentID {
	return c.id
}

func (c *metadata[T]) New() ([]byte, error) {
	var comp T
	if c.defaultVal != nil {
		comp = *c.defaultVal
	}
	return codec.Encode(comp)
}

func (c *metadata[T]) Encode(v any) ([]byte, error) {
	if !c.Owns(v) {
		return nil, eris.Errorf("cannot encode %T as component %q", v, c.name)
	}
	return codec.Encode(v)
}

func (c *metadata[T]) Decode(bz []byte) (any, error) {
	return codec.Decode[T](bz)
}

func (c *metadata[T]) Owns(v any) bool {
	switch v.(type) {
	case T, *T:
		return true
	}
	return false
}

func (c *metadata[T]) GetSchema() ([]byte, error) {
	var t T
	return SerializeSchema(t)
}

// Option is a type that can be passed to NewMetadata to augment the creation of the component type.
type Option[T types.Component] func(c *metadata[T])

// WithDefault sets the value New encodes when no payload was ever stored.
func WithDefault[T types.Component](defaultVal T) Option[T] {
	return func(c *metadata[T]) {
		c.defaultVal = &defaultVal
	}
}

// SerializeSchema returns the JSON schema of the component's Go type.
func SerializeSchema(component types.Component) ([]byte, error) {
	schema, err := jsonschema.Reflect(component).MarshalJSON()
	if err != nil {
		return nil, eris.Wrap(err, "component must be json serializable")
	}
	return schema, nil
}

// IsComponentValid reports whether component still matches a schema previously produced by
// SerializeSchema.
func IsComponentValid(component types.Component, jsonSchemaBytes []byte) (bool, error) {
	schema, err := SerializeSchema(component)
	if err != nil {
		return false, err
	}
	return IsSchemaValid(schema, jsonSchemaBytes)
}

// IsSchemaValid reports whether two schemas are identical.
func IsSchemaValid(jsonSchemaBytes1 []byte, jsonSchemaBytes2 []byte) (bool, error) {
	patch, err := jsondiff.CompareJSON(jsonSchemaBytes1, jsonSchemaBytes2)
	if err != nil {
		return false, eris.Wrap(err, "")
	}
	return patch.String() == "", nil
}

// Names returns the names of the given metadata, in order. Used for logging.
func Names(comps []Metadata) []string {
	names := make([]string, len(comps))
	for i, c := range comps {
		names[i] = fmt.Sprint(c)
	}
	return names
}
