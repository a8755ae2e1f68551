// Package cbor implements the context engine for the CBOR format. The engine
// uses the canonical encoding so that the same record always produces the
// same bytes, which keeps the persisted state comparable byte for byte.
package cbor

import (
	"github.com/fxamacker/cbor/v2"
	"go.dedis.ch/sealbid/serde"
)

var encMode = mustEncMode()

func mustEncMode() cbor.EncMode {
	opts := cbor.CanonicalEncOptions()
	opts.Time = cbor.TimeRFC3339Nano

	mode, err := opts.EncMode()
	if err != nil {
		panic("canonical cbor options: " + err.Error())
	}

	return mode
}

// cborEngine is a context engine to marshal and unmarshal in CBOR format.
//
// - implements serde.ContextEngine
type cborEngine struct{}

// NewContext returns a CBOR context.
func NewContext() serde.Context {
	return serde.NewContext(cborEngine{})
}

// GetFormat implements serde.ContextEngine.
func (cborEngine) GetFormat() serde.Format {
	return serde.FormatCBOR
}

// Marshal implements serde.ContextEngine.
func (cborEngine) Marshal(m interface{}) ([]byte, error) {
	return encMode.Marshal(m)
}

// Unmarshal implements serde.ContextEngine.
func (cborEngine) Unmarshal(data []byte, m interface{}) error {
	return cbor.Unmarshal(data, m)
}
