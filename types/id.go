package types

import (
	"fmt"
)

// ID is the single identifier namespace shared by entities, components and relations.
type ID uint64

// EntityID identifies an entity. Component ids are entity ids, so both are the same type.
type EntityID = ID

// ComponentID identifies a registered component kind.
type ComponentID = ID

const (
	// RelationFlag marks an ID as a packed relation. See Relation.
	RelationFlag ID = 1 << 63
	// HoldsData marks a Type entry that carries a payload rather than being a pure tag.
	HoldsData ID = 1 << 62

	// TypeRolesMask covers every role bit. Bits 56 through 61 are reserved.
	TypeRolesMask ID = 0xFF00_0000_0000_0000
	// EntityMask clears the role bits so an ID can be compared as a pure identity.
	EntityMask = ^TypeRolesMask

	// MaxEntityID is the largest identity an entity can be assigned.
	MaxEntityID = EntityMask
)

// Mask returns the pure identity of id with every role bit cleared.
func (id ID) Mask() ID {
	return id & EntityMask
}

// HoldsData reports whether the HoldsData role bit is set.
func (id ID) HoldsData() bool {
	return id&HoldsData != 0
}

// IsRelation reports whether id is a packed relation.
func (id ID) IsRelation() bool {
	return id&RelationFlag != 0
}

// WithData returns id with the HoldsData role bit set.
func (id ID) WithData() ID {
	return id | HoldsData
}

// WithoutData returns id with the HoldsData role bit cleared.
func (id ID) WithoutData() ID {
	return id &^ HoldsData
}

func (id ID) String() string {
	if id.IsRelation() {
		return Relation{ID: id}.String()
	}
	if id.HoldsData() {
		return fmt.Sprintf("%d+data", uint64(id.Mask()))
	}
	return fmt.Sprintf("%d", uint64(id.Mask()))
}
