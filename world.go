// Package lattice is an archetype based entity component relation engine.
//
// A World owns the entities, the component registry, the tracked systems and, optionally, a store
// that persists entities across runs. Entities are plain ids; the generic helpers in this package
// read and write their components by Go type.
package lattice

import (
	"context"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"pkg.world.dev/world-engine/lattice/component"
	"pkg.world.dev/world-engine/lattice/components"
	"pkg.world.dev/world-engine/lattice/gamestate"
	ecslog "pkg.world.dev/world-engine/lattice/log"
	"pkg.world.dev/world-engine/lattice/statsd"
	"pkg.world.dev/world-engine/lattice/store"
	"pkg.world.dev/world-engine/lattice/system"
)

var (
	ErrNoStore             = eris.New("world has no store")
	ErrDuplicateSystemName = eris.New("duplicate system name")
)

var _ ecslog.Loggable = &World{}
var _ store.Persister = &World{}

// schemaSyncer is implemented by stores that remember component schemas.
type schemaSyncer interface {
	SyncSchemas(ctx context.Context, comps []component.Metadata) error
}

// World is not safe for concurrent use; see gamestate.Engine.
type World struct {
	cfg       Config
	hasConfig bool
	logger    zerolog.Logger
	hasLogger bool
	clock     func() time.Time

	engine  *gamestate.Engine
	systems *system.Manager

	storeFactory StoreFactory
	store        store.Store
	statsdOpen   bool

	initialComponents []component.Metadata

	tick uint64
}

// NewWorld builds a world. Without WithConfig the config is loaded from the environment.
func NewWorld(opts ...WorldOption) (*World, error) {
	w := &World{
		clock: time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	if !w.hasConfig {
		cfg, err := LoadConfig()
		if err != nil {
			return nil, err
		}
		w.cfg = cfg
	} else if err := w.cfg.Validate(); err != nil {
		return nil, err
	}
	if !w.hasLogger {
		w.logger = newLogger(w.cfg)
	}

	w.engine = gamestate.NewEngine(gamestate.WithLogger(w.logger))
	w.systems = system.NewManager(w.engine, system.WithManagerLogger(w.logger))

	builtins := []component.Metadata{
		component.NewMetadata[components.UUID](),
		component.NewMetadata[components.PersistingComponents](),
		component.NewMetadata[components.Expiry](),
	}
	for _, meta := range append(builtins, w.initialComponents...) {
		if _, err := w.engine.RegisterComponent(meta); err != nil {
			return nil, err
		}
	}

	expiry, err := components.NewExpirySystem(w.engine, w.engine, w.Now)
	if err != nil {
		return nil, err
	}
	if err := w.systems.Track(expiry); err != nil {
		return nil, err
	}

	if w.cfg.StatsdAddress != "" {
		if err := statsd.Init(w.cfg.StatsdAddress, []string{"namespace:" + w.cfg.Namespace}); err != nil {
			return nil, err
		}
		w.statsdOpen = true
	}

	if err := w.openStore(); err != nil {
		if closeErr := w.Close(); closeErr != nil {
			w.logger.Error().Err(closeErr).Msg("failed to clean up world")
		}
		return nil, err
	}

	ecslog.World(&w.logger, w, zerolog.DebugLevel)
	return w, nil
}

func newLogger(cfg Config) zerolog.Logger {
	logger := log.Logger
	if cfg.PrettyLog {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
	return logger.Level(cfg.level()).With().Str("namespace", cfg.Namespace).Logger()
}

func (w *World) openStore() error {
	factory := w.storeFactory
	if factory == nil {
		factory = storeFromConfig(w.cfg, w.logger)
	}
	if factory == nil {
		return nil
	}
	s, err := factory(w)
	if err != nil {
		return eris.Wrap(err, "failed to open store")
	}
	w.store = s
	if err := w.syncSchemas(w.engine.RegisteredComponents()...); err != nil {
		if closeErr := s.Close(); closeErr != nil {
			w.logger.Error().Err(closeErr).Msg("failed to close store")
		}
		w.store = nil
		return err
	}
	return nil
}

func storeFromConfig(cfg Config, logger zerolog.Logger) StoreFactory {
	switch cfg.Store {
	case StoreFileSystem:
		return func(p store.Persister) (store.Store, error) {
			return store.NewFileSystemStore(cfg.StoreDir, p, store.WithLogger(logger))
		}
	case StoreSQLite:
		return func(p store.Persister) (store.Store, error) {
			return store.NewSQLiteStore(cfg.SQLitePath, p, store.WithLogger(logger))
		}
	case StoreRedis:
		return func(p store.Persister) (store.Store, error) {
			opts := store.RedisOptions{Addr: cfg.RedisAddress, Password: cfg.RedisPassword}
			return store.NewRedisStore(opts, cfg.Namespace, p, store.WithLogger(logger)), nil
		}
	default:
		return nil
	}
}

func (w *World) syncSchemas(comps ...component.Metadata) error {
	syncer, ok := w.store.(schemaSyncer)
	if !ok {
		return nil
	}
	return syncer.SyncSchemas(context.Background(), comps)
}

// Engine exposes the underlying registry for callers that work with raw ids.
func (w *World) Engine() *gamestate.Engine {
	return w.engine
}

// Store returns the world's store, or ErrNoStore.
func (w *World) Store() (store.Store, error) {
	if w.store == nil {
		return nil, eris.Wrap(ErrNoStore, "")
	}
	return w.store, nil
}

func (w *World) Logger() *zerolog.Logger {
	return &w.logger
}

// Now returns the world's clock reading.
func (w *World) Now() time.Time {
	return w.clock()
}

func (w *World) CurrentTick() uint64 {
	return w.tick
}

func (w *World) GetRegisteredComponents() []component.Metadata {
	return w.engine.RegisteredComponents()
}

func (w *World) GetRegisteredSystems() []string {
	return w.systems.GetRegisteredSystems()
}

// NewSystem starts a system whose handles resolve against this world's components.
func (w *World) NewSystem(name string) *system.Builder {
	return system.NewBuilder(name, w.engine)
}

// RegisterSystems tracks every system in order. If any name is taken none are registered.
func (w *World) RegisterSystems(systems ...*system.System) error {
	registered := w.systems.GetRegisteredSystems()
	seen := make(map[string]struct{}, len(registered)+len(systems))
	for _, name := range registered {
		seen[name] = struct{}{}
	}
	for _, sys := range systems {
		if _, ok := seen[sys.Name()]; ok {
			return eris.Wrapf(ErrDuplicateSystemName, "system %q", sys.Name())
		}
		seen[sys.Name()] = struct{}{}
	}
	for _, sys := range systems {
		if err := w.systems.Track(sys); err != nil {
			return eris.Wrap(err, "failed to register system")
		}
	}
	ecslog.System(&w.logger, w, zerolog.DebugLevel)
	return nil
}

// UnregisterSystem stops ticking the system called name.
func (w *World) UnregisterSystem(name string) error {
	return w.systems.Untrack(name)
}

// Systems exposes the system manager, e.g. to inspect matched archetypes.
func (w *World) Systems() *system.Manager {
	return w.systems
}

// Tick runs every registered system once.
func (w *World) Tick(ctx context.Context) error {
	if err := w.systems.Tick(ctx); err != nil {
		return eris.Wrapf(err, "tick %d", w.tick)
	}
	w.tick++
	return nil
}

// Save writes e to the world's store and returns the key it was stored under.
func (w *World) Save(ctx context.Context, e Entity) (uuid.UUID, error) {
	s, err := w.Store()
	if err != nil {
		return uuid.Nil, err
	}
	return s.Write(ctx, e.ID())
}

// Load creates an entity keyed by key and merges whatever the store holds for key into it. The
// entity is removed again if decoding fails.
func (w *World) Load(ctx context.Context, key uuid.UUID) (Entity, error) {
	s, err := w.Store()
	if err != nil {
		return 0, err
	}
	e, err := w.Create(components.UUID{Value: key})
	if err != nil {
		return 0, err
	}
	if err := s.Decode(ctx, e.ID(), key); err != nil {
		if rmErr := w.Remove(e); rmErr != nil {
			w.logger.Error().Err(rmErr).Uint64("entity_id", uint64(e)).Msg("failed to remove entity after failed load")
		}
		return 0, err
	}
	return e, nil
}

// Close releases the store and the statsd client the world opened.
func (w *World) Close() error {
	var err error
	if w.store != nil {
		err = w.store.Close()
	}
	if w.statsdOpen {
		w.statsdOpen = false
		if statsdErr := statsd.Close(); statsdErr != nil {
			if err != nil {
				w.logger.Error().Err(statsdErr).Msg("failed to close statsd client")
			} else {
				err = statsdErr
			}
		}
	}
	return err
}
