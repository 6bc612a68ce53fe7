package log_test

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"

	"pkg.world.dev/world-engine/lattice/assert"
	"pkg.world.dev/world-engine/lattice/component"
	"pkg.world.dev/world-engine/lattice/log"
	"pkg.world.dev/world-engine/lattice/types"
)

type EnergyComp struct {
	Value int
}

func (EnergyComp) Name() string {
	return "EnergyComp"
}

type fakeWorld struct {
	components []component.Metadata
	systems    []string
}

func (f fakeWorld) GetRegisteredComponents() []component.Metadata { return f.components }
func (f fakeWorld) GetRegisteredSystems() []string                { return f.systems }

func TestWorldLog(t *testing.T) {
	energy := component.NewMetadata[EnergyComp]()
	assert.NilError(t, energy.SetID(2))

	var buf bytes.Buffer
	bufLogger := zerolog.New(&buf)
	log.World(&bufLogger, fakeWorld{
		components: []component.Metadata{energy},
		systems:    []string{"regen"},
	}, zerolog.InfoLevel)

	assert.JSONEq(t, `{
		"level":"info",
		"total_components":1,
		"components":[{"component_id":2,"component_name":"EnergyComp"}],
		"total_systems":1,
		"systems":["regen"]
	}`, buf.String())
}

func TestEntityLog(t *testing.T) {
	var buf bytes.Buffer
	bufLogger := zerolog.New(&buf).Level(zerolog.DebugLevel)
	log.Entity(&bufLogger, zerolog.DebugLevel, 7, 3, types.NewType(2, types.ID(4).WithData()))
	assert.JSONEq(t, `{
		"level":"debug",
		"type":["2","4+data"],
		"entity_id":7,
		"archetype_id":3
	}`, buf.String())
}

func TestEntityLogBelowLevelIsDropped(t *testing.T) {
	var buf bytes.Buffer
	bufLogger := zerolog.New(&buf).Level(zerolog.InfoLevel)
	log.Entity(&bufLogger, zerolog.DebugLevel, 7, 3, types.NewType(2))
	assert.Equal(t, "", buf.String())
}

func TestCreateSystemLogger(t *testing.T) {
	var buf bytes.Buffer
	bufLogger := zerolog.New(&buf)
	sysLogger := log.CreateSystemLogger(&bufLogger, "regen")
	sysLogger.Info().Msg("hi")
	assert.JSONEq(t, `{"level":"info","system":"regen","message":"hi"}`, buf.String())
}
