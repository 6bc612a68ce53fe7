package log

import (
	"sort"

	"github.com/rs/zerolog"

	"pkg.world.dev/world-engine/lattice/component"
	"pkg.world.dev/world-engine/lattice/types"
)

// Loggable is anything that can describe the components and systems it knows about.
type Loggable interface {
	GetRegisteredComponents() []component.Metadata
	GetRegisteredSystems() []string
}

func loadComponentIntoArrayLogger(comp component.Metadata, arrayLogger *zerolog.Array) *zerolog.Array {
	dictLogger := zerolog.Dict()
	dictLogger = dictLogger.Uint64("component_id", uint64(comp.ID()))
	dictLogger = dictLogger.Str("component_name", comp.Name())
	return arrayLogger.Dict(dictLogger)
}

func loadComponentsToEvent(zeroLoggerEvent *zerolog.Event, target Loggable) *zerolog.Event {
	components := target.GetRegisteredComponents()
	sort.Slice(components, func(i, j int) bool {
		return components[i].ID() < components[j].ID()
	})
	zeroLoggerEvent.Int("total_components", len(components))
	arrayLogger := zerolog.Arr()
	for _, comp := range components {
		arrayLogger = loadComponentIntoArrayLogger(comp, arrayLogger)
	}
	return zeroLoggerEvent.Array("components", arrayLogger)
}

func loadSystemIntoEvent(zeroLoggerEvent *zerolog.Event, target Loggable) *zerolog.Event {
	zeroLoggerEvent.Int("total_systems", len(target.GetRegisteredSystems()))
	arrayLogger := zerolog.Arr()
	for _, sysName := range target.GetRegisteredSystems() {
		arrayLogger = arrayLogger.Str(sysName)
	}
	return zeroLoggerEvent.Array("systems", arrayLogger)
}

func loadTypeIntoEvent(zeroLoggerEvent *zerolog.Event, typ types.Type) *zerolog.Event {
	arrayLogger := zerolog.Arr()
	for _, id := range typ {
		arrayLogger = arrayLogger.Str(id.String())
	}
	return zeroLoggerEvent.Array("type", arrayLogger)
}

// Components logs all component info related to the engine.
func Components(logger *zerolog.Logger, target Loggable, level zerolog.Level) {
	zeroLoggerEvent := logger.WithLevel(level)
	zeroLoggerEvent = loadComponentsToEvent(zeroLoggerEvent, target)
	zeroLoggerEvent.Send()
}

// System logs all system info related to the engine.
func System(logger *zerolog.Logger, target Loggable, level zerolog.Level) {
	zeroLoggerEvent := logger.WithLevel(level)
	zeroLoggerEvent = loadSystemIntoEvent(zeroLoggerEvent, target)
	zeroLoggerEvent.Send()
}

// Entity logs an entity together with the archetype it lives in.
func Entity(
	logger *zerolog.Logger, level zerolog.Level,
	entityID types.EntityID, archID types.ArchetypeID, typ types.Type,
) {
	if logger.GetLevel() > level {
		return
	}
	zeroLoggerEvent := logger.WithLevel(level)
	zeroLoggerEvent = loadTypeIntoEvent(zeroLoggerEvent, typ)
	zeroLoggerEvent.Uint64("entity_id", uint64(entityID)).Int("archetype_id", int(archID)).Send()
}

// Archetype logs a newly created archetype.
func Archetype(logger *zerolog.Logger, level zerolog.Level, archID types.ArchetypeID, typ types.Type) {
	if logger.GetLevel() > level {
		return
	}
	zeroLoggerEvent := logger.WithLevel(level)
	zeroLoggerEvent = loadTypeIntoEvent(zeroLoggerEvent, typ)
	zeroLoggerEvent.Int("archetype_id", int(archID)).Msg("archetype created")
}

// World logs everything about the world (components and systems).
func World(logger *zerolog.Logger, target Loggable, level zerolog.Level) {
	zeroLoggerEvent := logger.WithLevel(level)
	zeroLoggerEvent = loadComponentsToEvent(zeroLoggerEvent, target)
	zeroLoggerEvent = loadSystemIntoEvent(zeroLoggerEvent, target)
	zeroLoggerEvent.Send()
}

// CreateSystemLogger creates a sub logger with the entry {"system" : systemName}.
func CreateSystemLogger(logger *zerolog.Logger, systemName string) *zerolog.Logger {
	newLogger := logger.With().Str("system", systemName).Logger()
	return &newLogger
}
