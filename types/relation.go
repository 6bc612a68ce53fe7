package types

import (
	"fmt"
)

const (
	relationParentShift = 32

	// RelationParentMask selects the parent (relation kind) of a packed relation.
	RelationParentMask ID = 0x00FF_FFFF_0000_0000
	// RelationComponentMask selects the target component of a packed relation.
	RelationComponentMask ID = 0x0000_0000_FFFF_FFFF

	// MaxRelationParent is the largest relation kind that can be packed without loss.
	MaxRelationParent ID = RelationParentMask >> relationParentShift
	// MaxRelationComponent is the largest target component that can be packed without loss.
	MaxRelationComponent ID = RelationComponentMask
)

// Relation is a component whose identity also encodes the component it points at.
//
// The parent is the relation kind (for example an Expiry component) and the component is the
// component on the same entity the relation is about. Both are packed into a single ID:
//
//	bit 63     RelationFlag
//	bit 62     HoldsData
//	bits 32-55 parent
//	bits 0-31  component
//
// NewRelation truncates parents wider than 24 bits and components wider than 32 bits; use
// CheckedRelation when the ids are not known to fit.
type Relation struct {
	ID ID
}

// NewRelation packs parent and component into a relation. The HoldsData bit of component is kept on
// the relation so callers can pass component.WithData() to create a relation that carries data.
func NewRelation(parent, component ID) Relation {
	id := RelationFlag |
		(component & HoldsData) |
		((parent << relationParentShift) & RelationParentMask) |
		(component & RelationComponentMask)
	return Relation{ID: id}
}

// CheckedRelation is NewRelation for ids that may not fit. ok is false when parent or component is
// too wide, since packing them would collide with the relation of a smaller id.
func CheckedRelation(parent, component ID) (rel Relation, ok bool) {
	if parent.Mask() > MaxRelationParent || component.Mask() > MaxRelationComponent {
		return Relation{}, false
	}
	return NewRelation(parent.Mask(), component), true
}

// RelationOf interprets id as a relation. ok is false when id is not a packed relation.
func RelationOf(id ID) (rel Relation, ok bool) {
	if !id.IsRelation() {
		return Relation{}, false
	}
	return Relation{ID: id}, true
}

// Parent returns the relation kind.
func (r Relation) Parent() ID {
	return (r.ID & RelationParentMask) >> relationParentShift
}

// Component returns the plain id of the component this relation points at.
func (r Relation) Component() ID {
	return r.ID & RelationComponentMask
}

// HoldsData reports whether this relation carries a payload.
func (r Relation) HoldsData() bool {
	return r.ID.HoldsData()
}

func (r Relation) String() string {
	s := fmt.Sprintf("rel(%d->%d)", uint64(r.Parent()), uint64(r.Component()))
	if r.HoldsData() {
		s += "+data"
	}
	return s
}
