package system

import (
	"github.com/rotisserie/eris"

	"pkg.world.dev/world-engine/lattice/family"
	"pkg.world.dev/world-engine/lattice/gamestate"
	"pkg.world.dev/world-engine/lattice/types"
)

// Registry resolves component names to ids. *gamestate.Engine implements it.
type Registry interface {
	ComponentID(name string) (types.ComponentID, error)
}

// Func is the per-entity body of a system.
type Func func(row *Row) error

// System is a named Func bound to the Family its handles require.
type System struct {
	name    string
	family  family.Family
	handles []binder
	fn      Func
}

func (s *System) Name() string {
	return s.name
}

func (s *System) Family() family.Family {
	return s.family
}

// binder fetches one handle's value for the entity at row of arch into dst.
type binder interface {
	bind(fam family.Family, arch *gamestate.Archetype, row int, dst *Row) error
}

// Builder declares the handles of a system. Each handle adds to the system's Family.
//
//	b := system.NewBuilder("move", engine)
//	pos := system.Get[Position](b)
//	vel := system.Get[Velocity](b)
//	sys, err := b.Build(func(row *system.Row) error {
//		p, v := pos.Value(row), vel.Value(row)
//		...
//	})
type Builder struct {
	name     string
	registry Registry
	family   *family.Builder
	handles  []binder
	err      error
}

func NewBuilder(name string, registry Registry) *Builder {
	return &Builder{
		name:     name,
		registry: registry,
		family:   family.New(),
	}
}

func (b *Builder) resolve(c types.Component) types.ComponentID {
	id, err := b.registry.ComponentID(c.Name())
	if err != nil && b.err == nil {
		b.err = eris.Wrapf(err, "system %q", b.name)
	}
	return id
}

func (b *Builder) addHandle(h binder) int {
	b.handles = append(b.handles, h)
	return len(b.handles) - 1
}

// Build returns the system, or the first error met while declaring handles.
func (b *Builder) Build(fn Func) (*System, error) {
	if b.err != nil {
		return nil, b.err
	}
	if fn == nil {
		return nil, eris.Errorf("system %q has no body", b.name)
	}
	handles := make([]binder, len(b.handles))
	copy(handles, b.handles)
	return &System{
		name:    b.name,
		family:  b.family.Build(),
		handles: handles,
		fn:      fn,
	}, nil
}

// Field reads the payload of component T.
type Field[T types.Component] struct {
	slot int
	id   types.ComponentID
}

// Get requires T with data and returns a handle reading it.
func Get[T types.Component](b *Builder) *Field[T] {
	var zero T
	id := b.resolve(zero)
	f := &Field[T]{id: id.WithData()}
	f.slot = b.addHandle(f)
	b.family.Has(f.id)
	return f
}

func (f *Field[T]) bind(_ family.Family, arch *gamestate.Archetype, row int, dst *Row) error {
	v, ok := arch.Get(row, f.id)
	if !ok {
		return eris.Wrapf(ErrBindFailed, "entity %d has no data for %s", dst.Entity, f.id)
	}
	typed, ok := v.(T)
	if !ok {
		return eris.Wrapf(ErrBindFailed, "entity %d holds %T for %s", dst.Entity, v, f.id)
	}
	dst.values[f.slot] = typed
	return nil
}

// Value returns the payload bound for row.
func (f *Field[T]) Value(row *Row) T {
	return row.values[f.slot].(T) //nolint:forcetypeassert // checked while binding
}

// Tag marks a component that must be present without data.
type Tag struct {
	slot int
	id   types.ComponentID
}

// Has requires T as a tag.
func Has[T types.Component](b *Builder) *Tag {
	var zero T
	t := &Tag{id: b.resolve(zero).WithoutData()}
	t.slot = b.addHandle(t)
	b.family.Has(t.id)
	return t
}

func (t *Tag) bind(_ family.Family, arch *gamestate.Archetype, _ int, dst *Row) error {
	if !arch.Type.Contains(t.id) {
		return eris.Wrapf(ErrBindFailed, "entity %d lacks %s", dst.Entity, t.id)
	}
	dst.values[t.slot] = true
	return nil
}

// Present reports whether the tag was bound for row.
func (t *Tag) Present(row *Row) bool {
	present, _ := row.values[t.slot].(bool)
	return present
}

// Without excludes entities holding T in either form.
func Without[T types.Component](b *Builder) {
	var zero T
	b.family.Without(b.resolve(zero))
}

// RelationValue is a relation of kind T bound to an entity. Data is the relation's payload and is
// the zero value when the relation is a tag.
type RelationValue[T types.Component] struct {
	Relation types.Relation
	Data     T
	HasData  bool
}

// RelationField reads a relation whose kind is component T.
type RelationField[T types.Component] struct {
	slot   int
	parent types.ComponentID
}

// Relation requires a relation of kind T. With mustHoldData the relation's target component must
// be present with data.
func Relation[T types.Component](b *Builder, mustHoldData bool) *RelationField[T] {
	var zero T
	r := &RelationField[T]{parent: b.resolve(zero).Mask()}
	r.slot = b.addHandle(r)
	b.family.HasRelation(r.parent, mustHoldData)
	return r
}

func (r *RelationField[T]) bind(fam family.Family, arch *gamestate.Archetype, row int, dst *Row) error {
	rel, ok := fam.MatchingRelation(arch.Type, r.parent)
	if !ok {
		return eris.Wrapf(ErrBindFailed, "entity %d has no relation of kind %s", dst.Entity, r.parent)
	}
	val := RelationValue[T]{Relation: rel}
	if v, ok := arch.Get(row, rel.ID); ok {
		typed, ok := v.(T)
		if !ok {
			return eris.Wrapf(ErrBindFailed, "entity %d holds %T for %s", dst.Entity, v, rel)
		}
		val.Data, val.HasData = typed, true
	}
	dst.values[r.slot] = val
	return nil
}

// Value returns the relation bound for row.
func (r *RelationField[T]) Value(row *Row) RelationValue[T] {
	return row.values[r.slot].(RelationValue[T]) //nolint:forcetypeassert // checked while binding
}
