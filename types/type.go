package types

import (
	"encoding/binary"
	"slices"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// Type is the sorted, duplicate-free set of ids an entity holds. It is the archetype key.
// A Type is treated as a value: every method returning a Type returns a new slice.
type Type []ID

// NewType sorts and de-duplicates ids.
func NewType(ids ...ID) Type {
	t := make(Type, len(ids))
	copy(t, ids)
	slices.Sort(t)
	return slices.Compact(t)
}

// Contains reports whether id is a member of t.
func (t Type) Contains(id ID) bool {
	_, found := slices.BinarySearch(t, id)
	return found
}

// ContainsAny reports whether id is present in either its tag or data form.
func (t Type) ContainsAny(id ID) bool {
	return t.Contains(id.WithoutData()) || t.Contains(id.WithData())
}

// Plus returns t with id inserted in order. t is returned unchanged (but copied) if id is present.
func (t Type) Plus(id ID) Type {
	i, found := slices.BinarySearch(t, id)
	if found {
		return slices.Clone(t)
	}
	out := make(Type, 0, len(t)+1)
	out = append(out, t[:i]...)
	out = append(out, id)
	return append(out, t[i:]...)
}

// Minus returns t without id.
func (t Type) Minus(id ID) Type {
	i, found := slices.BinarySearch(t, id)
	if !found {
		return slices.Clone(t)
	}
	out := make(Type, 0, len(t)-1)
	out = append(out, t[:i]...)
	return append(out, t[i+1:]...)
}

// Equal reports whether t and other hold exactly the same ids.
func (t Type) Equal(other Type) bool {
	return slices.Equal(t, other)
}

// Relations returns every packed relation in t, in sort order.
func (t Type) Relations() []Relation {
	start, _ := slices.BinarySearch(t, RelationFlag)
	rels := make([]Relation, 0, len(t)-start)
	for _, id := range t[start:] {
		rels = append(rels, Relation{ID: id})
	}
	return rels
}

// Hash returns a 64 bit digest of t used to index archetypes. Equal types hash equally.
func (t Type) Hash() uint64 {
	d := xxhash.New()
	var buf [8]byte
	for _, id := range t {
		binary.LittleEndian.PutUint64(buf[:], uint64(id))
		_, _ = d.Write(buf[:])
	}
	return d.Sum64()
}

func (t Type) String() string {
	var sb strings.Builder
	sb.WriteString("[")
	for i, id := range t {
		if i != 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(id.String())
	}
	sb.WriteString("]")
	return sb.String()
}
