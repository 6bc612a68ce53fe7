package codec_test

import (
	"testing"

	"pkg.world.dev/world-engine/lattice/assert"
	"pkg.world.dev/world-engine/lattice/codec"
)

type health struct {
	Current int
	Max     int
}

func TestComponentSetKeysAreSorted(t *testing.T) {
	bz, err := codec.EncodeComponents(map[string]codec.RawMessage{
		"zeta":  codec.RawMessage(`1`),
		"alpha": codec.RawMessage(`{"Current":1}`),
	})
	assert.NilError(t, err)
	assert.Equal(t, `{"alpha":{"Current":1},"zeta":1}`, string(bz))
}

func TestDecodeComponents(t *testing.T) {
	comps, err := codec.DecodeComponents([]byte(`{"health":{"Current":3,"Max":10}}`))
	assert.NilError(t, err)
	assert.Len(t, comps, 1)

	h, err := codec.Decode[health](comps["health"])
	assert.NilError(t, err)
	assert.Equal(t, health{Current: 3, Max: 10}, h)
}

func TestDecodeComponentsRejectsGarbage(t *testing.T) {
	_, err := codec.DecodeComponents([]byte(`not json`))
	assert.IsError(t, err)
}
