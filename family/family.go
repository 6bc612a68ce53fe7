// Package family implements the predicate systems and queries use to select archetypes.
package family

import (
	"slices"
	"strings"

	"pkg.world.dev/world-engine/lattice/types"
)

// relationReq requires a relation of kind parent whose target component is also on the entity.
type relationReq struct {
	parent       types.ID
	mustHoldData bool
}

// Family is an immutable predicate over a Type. Build one with New.
//
// A Type matches when it contains every required id exactly, has at least one relation of each
// required kind whose target component it also holds, and holds none of the excluded ids in
// either form.
type Family struct {
	has       types.Type
	relations []relationReq
	without   types.Type
}

// Builder accumulates requirements for a Family.
type Builder struct {
	has       []types.ID
	relations map[types.ID]bool
	without   []types.ID
}

// New starts an empty family. An empty family matches every Type.
func New() *Builder {
	return &Builder{relations: make(map[types.ID]bool)}
}

// Has requires each id to be present exactly as given. Pass id.WithData() to require a payload.
func (b *Builder) Has(ids ...types.ID) *Builder {
	b.has = append(b.has, ids...)
	return b
}

// HasRelation requires a relation of kind parent. With mustHoldData the relation's target
// component must be present in its data form.
func (b *Builder) HasRelation(parent types.ID, mustHoldData bool) *Builder {
	parent = parent.Mask()
	b.relations[parent] = b.relations[parent] || mustHoldData
	return b
}

// Without excludes Types holding any of ids, with or without data.
func (b *Builder) Without(ids ...types.ID) *Builder {
	for _, id := range ids {
		b.without = append(b.without, id.WithoutData())
	}
	return b
}

// Build returns the family. The builder may keep being used afterwards.
func (b *Builder) Build() Family {
	rels := make([]relationReq, 0, len(b.relations))
	for parent, mustHoldData := range b.relations {
		rels = append(rels, relationReq{parent: parent, mustHoldData: mustHoldData})
	}
	slices.SortFunc(rels, func(x, y relationReq) int {
		switch {
		case x.parent < y.parent:
			return -1
		case x.parent > y.parent:
			return 1
		default:
			return 0
		}
	})
	return Family{
		has:       types.NewType(b.has...),
		relations: rels,
		without:   types.NewType(b.without...),
	}
}

// Of returns the family that requires exactly what t holds: its plain ids, and one relation
// requirement per relation kind present in t.
func Of(t types.Type) Family {
	b := New()
	for _, id := range t {
		if rel, ok := types.RelationOf(id); ok {
			b.HasRelation(rel.Parent(), false)
			continue
		}
		b.Has(id)
	}
	return b.Build()
}

// Has returns the ids that must be present exactly.
func (f Family) Has() types.Type {
	return slices.Clone(f.has)
}

// Without returns the excluded ids.
func (f Family) Without() types.Type {
	return slices.Clone(f.without)
}

// Relations returns one relation per required kind, with its target left zero.
func (f Family) Relations() []types.Relation {
	rels := make([]types.Relation, len(f.relations))
	for i, req := range f.relations {
		rels[i] = types.NewRelation(req.parent, 0)
	}
	return rels
}

// ComponentMustHoldData reports whether the relation requirement of kind parent needs its target
// to carry data. It is false for kinds the family does not require.
func (f Family) ComponentMustHoldData(parent types.ID) bool {
	for _, req := range f.relations {
		if req.parent == parent.Mask() {
			return req.mustHoldData
		}
	}
	return false
}

// Matches reports whether t satisfies every requirement of f.
func (f Family) Matches(t types.Type) bool {
	if !containsAll(t, f.has) {
		return false
	}
	for _, id := range f.without {
		if t.ContainsAny(id) {
			return false
		}
	}
	if len(f.relations) == 0 {
		return true
	}
	rels := t.Relations()
	for _, req := range f.relations {
		if _, ok := req.find(t, rels); !ok {
			return false
		}
	}
	return true
}

// MatchingRelation returns the first relation in t that satisfies the requirement of kind parent.
func (f Family) MatchingRelation(t types.Type, parent types.ID) (types.Relation, bool) {
	for _, req := range f.relations {
		if req.parent == parent.Mask() {
			return req.find(t, t.Relations())
		}
	}
	return types.Relation{}, false
}

func (req relationReq) find(t types.Type, rels []types.Relation) (types.Relation, bool) {
	for _, rel := range rels {
		if rel.Parent() != req.parent {
			continue
		}
		target := rel.Component()
		if req.mustHoldData {
			if t.Contains(target.WithData()) {
				return rel, true
			}
		} else if t.ContainsAny(target) {
			return rel, true
		}
	}
	return types.Relation{}, false
}

// containsAll is an ordered merge-scan of two sorted, duplicate-free sequences. It stops at the
// first required id found missing.
func containsAll(t, required types.Type) bool {
	if len(required) > len(t) {
		return false
	}
	j := 0
	for _, id := range required {
		for j < len(t) && t[j] < id {
			j++
		}
		if j == len(t) || t[j] != id {
			return false
		}
		j++
	}
	return true
}

func (f Family) String() string {
	var sb strings.Builder
	sb.WriteString("family{has: ")
	sb.WriteString(f.has.String())
	if len(f.relations) > 0 {
		sb.WriteString(", relations: [")
		for i, req := range f.relations {
			if i != 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(types.NewRelation(req.parent, 0).String())
			if req.mustHoldData {
				sb.WriteString(" (data)")
			}
		}
		sb.WriteString("]")
	}
	if len(f.without) > 0 {
		sb.WriteString(", without: ")
		sb.WriteString(f.without.String())
	}
	sb.WriteString("}")
	return sb.String()
}
