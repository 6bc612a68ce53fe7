package lattice

import (
	"time"

	"github.com/rs/zerolog"

	"pkg.world.dev/world-engine/lattice/component"
	"pkg.world.dev/world-engine/lattice/store"
)

// WorldOption represents an option that can be used to augment how the World is built.
type WorldOption func(*World)

// StoreFactory builds the store a World persists entities to. The World passes itself as the
// store's Persister.
type StoreFactory func(p store.Persister) (store.Store, error)

// WithConfig uses cfg instead of loading the config from the environment.
func WithConfig(cfg Config) WorldOption {
	return func(w *World) {
		w.cfg = cfg
		w.hasConfig = true
	}
}

// WithLogger overrides the logger built from the config.
func WithLogger(logger zerolog.Logger) WorldOption {
	return func(w *World) {
		w.logger = logger
		w.hasLogger = true
	}
}

// WithStore overrides the store selected by the config.
func WithStore(factory StoreFactory) WorldOption {
	return func(w *World) {
		w.storeFactory = factory
	}
}

// WithClock replaces time.Now, e.g. to control expiry in tests.
func WithClock(now func() time.Time) WorldOption {
	return func(w *World) {
		w.clock = now
	}
}

// WithComponents registers comps while the world is built.
func WithComponents(comps ...component.Metadata) WorldOption {
	return func(w *World) {
		w.initialComponents = append(w.initialComponents, comps...)
	}
}
