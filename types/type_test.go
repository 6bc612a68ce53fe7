package types_test

import (
	"testing"

	"pkg.world.dev/world-engine/lattice/assert"
	"pkg.world.dev/world-engine/lattice/types"
)

func TestNewTypeSortsAndDeduplicates(t *testing.T) {
	typ := types.NewType(5, 1, 3, 1, 5)
	assert.DeepEqual(t, types.Type{1, 3, 5}, typ)
}

func TestPlusIsIdempotent(t *testing.T) {
	typ := types.NewType(1, 3)
	once := typ.Plus(2)
	twice := once.Plus(2)
	assert.DeepEqual(t, types.Type{1, 2, 3}, once)
	assert.Check(t, once.Equal(twice))
	// the receiver is never modified
	assert.DeepEqual(t, types.Type{1, 3}, typ)
}

func TestMinus(t *testing.T) {
	typ := types.NewType(1, 2, 3)
	assert.DeepEqual(t, types.Type{1, 3}, typ.Minus(2))
	assert.DeepEqual(t, types.Type{1, 2, 3}, typ.Minus(42))
}

func TestContainsAnyIgnoresDataFlag(t *testing.T) {
	typ := types.NewType(types.ID(7).WithData())
	assert.False(t, typ.Contains(7))
	assert.True(t, typ.ContainsAny(7))
	assert.True(t, typ.ContainsAny(types.ID(7).WithData()))
}

func TestRelationsSortAfterPlainIDs(t *testing.T) {
	rel := types.NewRelation(15, 1)
	typ := types.NewType(rel.ID, 1, types.ID(2).WithData())
	assert.Equal(t, rel.ID, typ[len(typ)-1])
	assert.DeepEqual(t, []types.Relation{rel}, typ.Relations())
}

func TestHashMatchesEquality(t *testing.T) {
	a := types.NewType(3, 2, 1)
	b := types.NewType(1, 2, 3)
	c := types.NewType(1, 2)
	assert.Equal(t, a.Hash(), b.Hash())
	assert.Check(t, a.Hash() != c.Hash())
}

func TestEntityMaskClearsOnlyRoleBits(t *testing.T) {
	id := types.ID(0x00AB_CDEF_0123_4567)
	assert.Equal(t, id, (id | types.RelationFlag | types.HoldsData).Mask())
	assert.Equal(t, types.ID(0xFF00_0000_0000_0000), types.TypeRolesMask)
	assert.Equal(t, ^types.TypeRolesMask, types.EntityMask)
}
