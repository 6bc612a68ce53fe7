// Package codec is the single place component payloads are turned into bytes and back.
package codec

import (
	"github.com/goccy/go-json"
	"github.com/rotisserie/eris"
)

// RawMessage is a raw encoded JSON value. It is re-exported so callers do not import the json
// library directly.
type RawMessage = json.RawMessage

func Decode[T any](bz []byte) (T, error) {
	comp := new(T)
	err := json.Unmarshal(bz, comp)
	if err != nil {
		return *comp, eris.Wrap(err, "")
	}
	return *comp, nil
}

func Encode(comp any) ([]byte, error) {
	bz, err := json.Marshal(comp)
	if err != nil {
		return nil, eris.Wrap(err, "")
	}
	return bz, nil
}

// EncodeComponents encodes a name keyed set of already encoded components into one JSON object.
// Keys are written in sorted order so equal sets produce identical bytes.
func EncodeComponents(comps map[string]RawMessage) ([]byte, error) {
	return Encode(comps)
}

// DecodeComponents splits bytes produced by EncodeComponents back into per component values.
func DecodeComponents(bz []byte) (map[string]RawMessage, error) {
	comps, err := Decode[map[string]RawMessage](bz)
	if err != nil {
		return nil, eris.Wrap(err, "malformed component set")
	}
	return comps, nil
}
