package system

import (
	"context"
	"slices"
	"time"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/DataDog/dd-trace-go.v1/ddtrace/tracer"

	"pkg.world.dev/world-engine/lattice/family"
	"pkg.world.dev/world-engine/lattice/gamestate"
	ecslog "pkg.world.dev/world-engine/lattice/log"
	"pkg.world.dev/world-engine/lattice/statsd"
	"pkg.world.dev/world-engine/lattice/types"
)

// tracked is a system together with the archetypes its family matched so far. The matched list
// only grows, and only through archetype creation events.
type tracked struct {
	sys         *System
	matched     []types.ArchetypeID
	matchedSet  map[types.ArchetypeID]struct{}
	logger      *zerolog.Logger
	unsubscribe func()
}

func (t *tracked) observe(arch *gamestate.Archetype) {
	if _, ok := t.matchedSet[arch.ID]; ok {
		return
	}
	if !t.sys.family.Matches(arch.Type) {
		return
	}
	t.matched = append(t.matched, arch.ID)
	t.matchedSet[arch.ID] = struct{}{}
}

// Manager ticks systems over the entities of the archetypes their families match.
//
// Each pass of a system works on a snapshot of the entity ids in its matched archetypes taken
// before the first entity is visited. Every entity is then looked up again: entities removed
// earlier in the pass, and entities moved to an archetype the family does not match, are skipped.
// Everything else is bound from where it currently lives, so a system never sees stale data.
type Manager struct {
	engine *gamestate.Engine
	logger zerolog.Logger

	// Registered systems in the order that they were registered.
	systems []*tracked
	byName  map[string]*tracked
}

type ManagerOption func(*Manager)

func WithManagerLogger(logger zerolog.Logger) ManagerOption {
	return func(m *Manager) {
		m.logger = logger
	}
}

func NewManager(engine *gamestate.Engine, opts ...ManagerOption) *Manager {
	m := &Manager{
		engine: engine,
		logger: log.Logger,
		byName: make(map[string]*tracked),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Track registers sys. Its family is matched against every existing archetype once and against
// each archetype created afterwards as it appears.
func (m *Manager) Track(sys *System) error {
	if _, ok := m.byName[sys.name]; ok {
		return eris.Wrapf(ErrSystemAlreadyTracked, "system %q", sys.name)
	}
	t := &tracked{
		sys:        sys,
		matchedSet: make(map[types.ArchetypeID]struct{}),
		logger:     ecslog.CreateSystemLogger(&m.logger, sys.name),
	}
	for _, archID := range m.engine.SearchFrom(sys.family, 0) {
		t.matched = append(t.matched, archID)
		t.matchedSet[archID] = struct{}{}
	}
	t.unsubscribe = m.engine.OnArchetypeCreated(t.observe)
	m.systems = append(m.systems, t)
	m.byName[sys.name] = t
	t.logger.Debug().Str("family", sys.family.String()).Int("matched", len(t.matched)).Msg("tracking system")
	return nil
}

// Untrack retires the system called name and its matched-archetype cache.
func (m *Manager) Untrack(name string) error {
	t, ok := m.byName[name]
	if !ok {
		return eris.Wrapf(ErrSystemNotTracked, "system %q", name)
	}
	t.unsubscribe()
	delete(m.byName, name)
	// a tick may be iterating the old slice, so it is replaced rather than shifted in place
	m.systems = slices.DeleteFunc(slices.Clone(m.systems), func(other *tracked) bool {
		return other == t
	})
	return nil
}

// GetRegisteredSystems returns the names of the tracked systems in registration order.
func (m *Manager) GetRegisteredSystems() []string {
	names := make([]string, len(m.systems))
	for i, t := range m.systems {
		names[i] = t.sys.name
	}
	return names
}

// MatchedArchetypes returns the archetypes the system called name matched so far.
func (m *Manager) MatchedArchetypes(name string) ([]types.ArchetypeID, error) {
	t, ok := m.byName[name]
	if !ok {
		return nil, eris.Wrapf(ErrSystemNotTracked, "system %q", name)
	}
	out := make([]types.ArchetypeID, len(t.matched))
	copy(out, t.matched)
	return out, nil
}

// EntitiesMatching returns every live entity whose Type f matches.
func (m *Manager) EntitiesMatching(f family.Family) []types.EntityID {
	var ids []types.EntityID
	for _, archID := range m.engine.SearchFrom(f, 0) {
		arch, _ := m.engine.Archetype(archID)
		ids = append(ids, arch.Entities()...)
	}
	return ids
}

// Tick runs every tracked system once, in registration order. The first failing system aborts
// the tick. Systems tracked during the tick first run on the next one; systems untracked during
// the tick are not run if their turn has not come yet.
func (m *Manager) Tick(ctx context.Context) error {
	span, ctx := tracer.StartSpanFromContext(ctx, "system.run", tracer.Measured())
	allSystemStartTime := time.Now()
	for _, t := range m.systems {
		if m.byName[t.sys.name] != t {
			continue
		}
		if err := ctx.Err(); err != nil {
			span.Finish(tracer.WithError(err))
			return eris.Wrap(err, "tick cancelled")
		}
		if err := m.tickSystem(ctx, t); err != nil {
			span.Finish(tracer.WithError(err))
			return err
		}
	}
	statsd.EmitTickStat(allSystemStartTime, "all_systems")
	statsd.EmitGauge("archetypes", float64(m.engine.ArchetypeCount()))
	span.Finish()
	return nil
}

// TickSystem runs only the system called name.
func (m *Manager) TickSystem(ctx context.Context, name string) error {
	t, ok := m.byName[name]
	if !ok {
		return eris.Wrapf(ErrSystemNotTracked, "system %q", name)
	}
	return m.tickSystem(ctx, t)
}

func (m *Manager) tickSystem(ctx context.Context, t *tracked) (err error) {
	span, _ := tracer.StartSpanFromContext(ctx, "system.tick", tracer.ResourceName(t.sys.name))
	defer func() {
		span.Finish(tracer.WithError(err))
	}()
	systemStartTime := time.Now()

	var snapshot []types.EntityID
	for _, archID := range t.matched {
		arch, _ := m.engine.Archetype(archID)
		snapshot = append(snapshot, arch.Entities()...)
	}

	row := &Row{Logger: t.logger, values: make([]any, len(t.sys.handles))}
	visited, skipped := 0, 0
	for _, id := range snapshot {
		rec, ok := m.engine.Record(id)
		if !ok {
			skipped++
			continue
		}
		if _, ok := t.matchedSet[rec.Archetype]; !ok {
			skipped++
			continue
		}
		arch, _ := m.engine.Archetype(rec.Archetype)
		row.reset(id)
		for _, h := range t.sys.handles {
			if err := h.bind(t.sys.family, arch, rec.Row, row); err != nil {
				return eris.Wrapf(err, "system %s", t.sys.name)
			}
		}
		if err := t.sys.fn(row); err != nil {
			return eris.Wrapf(err, "system %s generated an error", t.sys.name)
		}
		visited++
	}

	t.logger.Trace().Int("visited", visited).Int("skipped", skipped).Msg("ticked")
	statsd.EmitTickStat(systemStartTime, t.sys.name)
	return nil
}
