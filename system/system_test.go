package system_test

import (
	"context"
	"testing"

	"pkg.world.dev/world-engine/lattice/assert"
	"pkg.world.dev/world-engine/lattice/component"
	"pkg.world.dev/world-engine/lattice/family"
	"pkg.world.dev/world-engine/lattice/gamestate"
	"pkg.world.dev/world-engine/lattice/system"
	"pkg.world.dev/world-engine/lattice/types"
)

type Label struct {
	Text string
}

func (Label) Name() string { return "label" }

type Count struct {
	N int
}

func (Count) Name() string { return "count" }

type Link struct{}

func (Link) Name() string { return "link" }

type fixture struct {
	engine              *gamestate.Engine
	manager             *system.Manager
	label, count, link types.ComponentID
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	engine := gamestate.NewEngine()
	label, err := engine.RegisterComponent(component.NewMetadata[Label]())
	assert.NilError(t, err)
	count, err := engine.RegisterComponent(component.NewMetadata[Count]())
	assert.NilError(t, err)
	link, err := engine.RegisterComponent(component.NewMetadata[Link]())
	assert.NilError(t, err)
	return fixture{
		engine:  engine,
		manager: system.NewManager(engine),
		label:   label,
		count:   count,
		link:    link,
	}
}

func (f fixture) create(t *testing.T) types.EntityID {
	t.Helper()
	id, err := f.engine.CreateEntity()
	assert.NilError(t, err)
	return id
}

func (f fixture) archetypeOf(t *testing.T, id types.EntityID) types.ArchetypeID {
	t.Helper()
	rec, ok := f.engine.Record(id)
	assert.True(t, ok)
	return rec.Archetype
}

func TestFamilyMatching(t *testing.T) {
	f := newFixture(t)
	tagged := f.create(t)
	assert.NilError(t, f.engine.SetComponent(tagged, f.label, Label{"Test"}))
	assert.NilError(t, f.engine.AddComponent(tagged, f.count))

	withData := f.create(t)
	assert.NilError(t, f.engine.SetComponent(withData, f.label, Label{"Test"}))
	assert.NilError(t, f.engine.SetComponent(withData, f.count, Count{1}))

	b := system.NewBuilder("reader", f.engine)
	label := system.Get[Label](b)
	count := system.Has[Count](b)
	ran := 0
	sys, err := b.Build(func(row *system.Row) error {
		ran++
		assert.Equal(t, tagged, row.Entity)
		assert.Equal(t, Label{"Test"}, label.Value(row))
		assert.True(t, count.Present(row))
		return nil
	})
	assert.NilError(t, err)
	assert.NilError(t, f.manager.Track(sys))

	wantType := types.NewType(f.label.WithData(), f.count)
	assert.DeepEqual(t, wantType, sys.Family().Has())

	matched, err := f.manager.MatchedArchetypes("reader")
	assert.NilError(t, err)
	assert.Contains(t, matched, f.archetypeOf(t, tagged))
	assert.NotContains(t, matched, f.archetypeOf(t, withData))

	entities := f.manager.EntitiesMatching(sys.Family())
	assert.Contains(t, entities, tagged)
	assert.NotContains(t, entities, withData)

	assert.NilError(t, f.manager.Tick(context.Background()))
	assert.Equal(t, 1, ran)
}

func TestArchetypesCreatedAfterTrackingAreMatched(t *testing.T) {
	f := newFixture(t)
	b := system.NewBuilder("counter", f.engine)
	system.Get[Count](b)
	ran := 0
	sys, err := b.Build(func(*system.Row) error {
		ran++
		return nil
	})
	assert.NilError(t, err)
	assert.NilError(t, f.manager.Track(sys))

	id := f.create(t)
	assert.NilError(t, f.engine.SetComponent(id, f.count, Count{1}))
	assert.NilError(t, f.engine.AddComponent(id, f.link))

	matched, err := f.manager.MatchedArchetypes("counter")
	assert.NilError(t, err)
	assert.Len(t, matched, 2)

	assert.NilError(t, f.manager.Tick(context.Background()))
	assert.Equal(t, 1, ran)
}

func TestRemovingOwnComponentVisitsEveryEntity(t *testing.T) {
	f := newFixture(t)
	b := system.NewBuilder("remover", f.engine)
	system.Get[Label](b)
	ran := 0
	sys, err := b.Build(func(row *system.Row) error {
		_, err := f.engine.RemoveComponent(row.Entity, f.label)
		ran++
		return err
	})
	assert.NilError(t, err)
	assert.NilError(t, f.manager.Track(sys))

	entities := make([]types.EntityID, 10)
	for i := range entities {
		entities[i] = f.create(t)
		assert.NilError(t, f.engine.SetComponent(entities[i], f.label, Label{"Test"}))
	}
	total := len(f.manager.EntitiesMatching(family.New().Has(f.label.WithData()).Build()))
	assert.Equal(t, 10, total)

	assert.NilError(t, f.manager.Tick(context.Background()))
	assert.Equal(t, total, ran)
	for _, id := range entities {
		comps, err := f.engine.GetComponents(id)
		assert.NilError(t, err)
		assert.Len(t, comps, 0)
	}
}

func TestEntityMovedOutBeforeItsTurnIsSkipped(t *testing.T) {
	f := newFixture(t)
	first := f.create(t)
	second := f.create(t)
	assert.NilError(t, f.engine.SetComponent(first, f.label, Label{"first"}))
	assert.NilError(t, f.engine.SetComponent(second, f.label, Label{"second"}))

	b := system.NewBuilder("thief", f.engine)
	label := system.Get[Label](b)
	var seen []string
	sys, err := b.Build(func(row *system.Row) error {
		seen = append(seen, label.Value(row).Text)
		other := second
		if row.Entity == second {
			other = first
		}
		_, err := f.engine.RemoveComponent(other, f.label)
		return err
	})
	assert.NilError(t, err)
	assert.NilError(t, f.manager.Track(sys))

	assert.NilError(t, f.manager.Tick(context.Background()))
	assert.Len(t, seen, 1)
}

func TestRemovedEntityIsSkipped(t *testing.T) {
	f := newFixture(t)
	first := f.create(t)
	second := f.create(t)
	assert.NilError(t, f.engine.SetComponent(first, f.count, Count{1}))
	assert.NilError(t, f.engine.SetComponent(second, f.count, Count{2}))

	b := system.NewBuilder("reaper", f.engine)
	system.Get[Count](b)
	ran := 0
	sys, err := b.Build(func(row *system.Row) error {
		ran++
		if row.Entity == first {
			return f.engine.RemoveEntity(second)
		}
		return f.engine.RemoveEntity(first)
	})
	assert.NilError(t, err)
	assert.NilError(t, f.manager.Track(sys))

	assert.NilError(t, f.manager.Tick(context.Background()))
	assert.Equal(t, 1, ran)
}

func TestBindFailureIsReported(t *testing.T) {
	f := newFixture(t)
	id := f.create(t)
	// stored under the label id but not as a Label
	assert.NilError(t, f.engine.SetComponent(id, f.label, "not a label"))

	b := system.NewBuilder("strict", f.engine)
	system.Get[Label](b)
	sys, err := b.Build(func(*system.Row) error { return nil })
	assert.NilError(t, err)
	assert.NilError(t, f.manager.Track(sys))

	err = f.manager.Tick(context.Background())
	assert.ErrorIs(t, err, system.ErrBindFailed)
}

func TestRelations(t *testing.T) {
	f := newFixture(t)
	b := system.NewBuilder("relations", f.engine)
	link := system.Relation[Link](b, false)
	ran := 0
	var sys *system.System
	sys, err := b.Build(func(row *system.Row) error {
		ran++
		rel := link.Value(row)
		assert.Equal(t, f.link, rel.Relation.Parent())
		assert.True(t, rel.HasData)
		assert.Equal(t, Link{}, rel.Data)
		var parents []types.ID
		for _, r := range sys.Family().Relations() {
			parents = append(parents, r.Parent())
		}
		assert.Contains(t, parents, rel.Relation.Parent())
		return nil
	})
	assert.NilError(t, err)
	assert.DeepEqual(t, []types.Relation{types.NewRelation(f.link, 0)}, sys.Family().Relations())
	assert.NilError(t, f.manager.Track(sys))

	toLabel := f.create(t)
	assert.NilError(t, f.engine.SetRelation(toLabel, f.link, f.label, Link{}, true))
	assert.NilError(t, f.engine.AddComponent(toLabel, f.label))

	toCount := f.create(t)
	assert.NilError(t, f.engine.SetRelation(toCount, f.link, f.count, Link{}, true))
	assert.NilError(t, f.engine.AddComponent(toCount, f.count))

	reversed := f.create(t)
	assert.NilError(t, f.engine.SetRelation(reversed, f.label, f.link, Label{""}, true))
	assert.NilError(t, f.engine.AddComponent(reversed, f.link))

	typ, err := f.engine.GetType(toLabel)
	assert.NilError(t, err)
	assert.Equal(t, sys.Family().Relations()[0].Parent(), family.Of(typ).Relations()[0].Parent())

	matched, err := f.manager.MatchedArchetypes("relations")
	assert.NilError(t, err)
	assert.Subset(t, matched, []types.ArchetypeID{f.archetypeOf(t, toLabel), f.archetypeOf(t, toCount)})
	assert.NotContains(t, matched, f.archetypeOf(t, reversed))

	assert.NilError(t, f.manager.Tick(context.Background()))
	assert.Equal(t, 2, ran)

	// without its target the relation no longer satisfies the family
	removed, err := f.engine.RemoveComponent(toLabel, f.label)
	assert.NilError(t, err)
	assert.True(t, removed)
	assert.NotContains(t, f.manager.EntitiesMatching(sys.Family()), toLabel)
	assert.NilError(t, f.manager.Tick(context.Background()))
	assert.Equal(t, 3, ran)
}

func TestSystemsRunInRegistrationOrder(t *testing.T) {
	f := newFixture(t)
	id := f.create(t)
	assert.NilError(t, f.engine.SetComponent(id, f.count, Count{}))

	var order []string
	for _, name := range []string{"c", "a", "b"} {
		name := name
		b := system.NewBuilder(name, f.engine)
		system.Get[Count](b)
		sys, err := b.Build(func(*system.Row) error {
			order = append(order, name)
			return nil
		})
		assert.NilError(t, err)
		assert.NilError(t, f.manager.Track(sys))
	}

	assert.NilError(t, f.manager.Tick(context.Background()))
	assert.DeepEqual(t, []string{"c", "a", "b"}, order)
	assert.DeepEqual(t, []string{"c", "a", "b"}, f.manager.GetRegisteredSystems())
}

func TestWithoutExcludesEntities(t *testing.T) {
	f := newFixture(t)
	plain := f.create(t)
	assert.NilError(t, f.engine.SetComponent(plain, f.count, Count{}))
	linked := f.create(t)
	assert.NilError(t, f.engine.SetComponent(linked, f.count, Count{}))
	assert.NilError(t, f.engine.AddComponent(linked, f.link))

	b := system.NewBuilder("unlinked", f.engine)
	system.Get[Count](b)
	system.Without[Link](b)
	var visited []types.EntityID
	sys, err := b.Build(func(row *system.Row) error {
		visited = append(visited, row.Entity)
		return nil
	})
	assert.NilError(t, err)
	assert.NilError(t, f.manager.Track(sys))
	assert.NilError(t, f.manager.Tick(context.Background()))
	assert.DeepEqual(t, []types.EntityID{plain}, visited)
}

func TestTrackAndUntrack(t *testing.T) {
	f := newFixture(t)
	b := system.NewBuilder("dup", f.engine)
	system.Get[Count](b)
	sys, err := b.Build(func(*system.Row) error { return nil })
	assert.NilError(t, err)

	assert.NilError(t, f.manager.Track(sys))
	assert.ErrorIs(t, f.manager.Track(sys), system.ErrSystemAlreadyTracked)

	assert.NilError(t, f.manager.Untrack("dup"))
	assert.ErrorIs(t, f.manager.Untrack("dup"), system.ErrSystemNotTracked)
	_, err = f.manager.MatchedArchetypes("dup")
	assert.ErrorIs(t, err, system.ErrSystemNotTracked)
	assert.ErrorIs(t, f.manager.TickSystem(context.Background(), "dup"), system.ErrSystemNotTracked)
}

type Unregistered struct{}

func (Unregistered) Name() string { return "unregistered" }

func TestBuildFailsForUnregisteredComponent(t *testing.T) {
	f := newFixture(t)
	b := system.NewBuilder("broken", f.engine)
	system.Get[Unregistered](b)
	_, err := b.Build(func(*system.Row) error { return nil })
	assert.ErrorIs(t, err, gamestate.ErrComponentNotRegistered)
}

func TestCancelledTick(t *testing.T) {
	f := newFixture(t)
	b := system.NewBuilder("idle", f.engine)
	sys, err := b.Build(func(*system.Row) error { return nil })
	assert.NilError(t, err)
	assert.NilError(t, f.manager.Track(sys))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, f.manager.Tick(ctx), context.Canceled)
}

func TestUntrackDuringTick(t *testing.T) {
	f := newFixture(t)
	id := f.create(t)
	assert.NilError(t, f.engine.SetComponent(id, f.count, Count{}))

	runs := map[string]int{}
	track := func(name string, body func() error) {
		b := system.NewBuilder(name, f.engine)
		system.Get[Count](b)
		sys, err := b.Build(func(*system.Row) error {
			runs[name]++
			return body()
		})
		assert.NilError(t, err)
		assert.NilError(t, f.manager.Track(sys))
	}
	noop := func() error { return nil }
	track("a", func() error { return f.manager.Untrack("b") })
	track("b", noop)
	track("c", noop)

	assert.NilError(t, f.manager.Tick(context.Background()))
	assert.DeepEqual(t, map[string]int{"a": 1, "c": 1}, runs)
	assert.DeepEqual(t, []string{"a", "c"}, f.manager.GetRegisteredSystems())
}

func TestUntrackThenTrackAgainDuringTick(t *testing.T) {
	f := newFixture(t)
	id := f.create(t)
	assert.NilError(t, f.engine.SetComponent(id, f.count, Count{}))

	runs := map[string]int{}
	build := func(name string, body func() error) *system.System {
		b := system.NewBuilder(name, f.engine)
		system.Get[Count](b)
		sys, err := b.Build(func(*system.Row) error {
			runs[name]++
			return body()
		})
		assert.NilError(t, err)
		return sys
	}
	replacement := build("b", func() error { return nil })
	first := build("a", func() error {
		if err := f.manager.Untrack("b"); err != nil {
			return err
		}
		return f.manager.Track(replacement)
	})
	assert.NilError(t, f.manager.Track(first))
	assert.NilError(t, f.manager.Track(build("b", func() error { return nil })))

	// neither the untracked b nor its replacement runs in this pass
	assert.NilError(t, f.manager.Tick(context.Background()))
	assert.DeepEqual(t, map[string]int{"a": 1}, runs)
}
