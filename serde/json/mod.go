// Package json implements the context engine for the JSON format.
package json

import (
	"encoding/json"

	"go.dedis.ch/sealbid/serde"
)

// jsonEngine is a context engine to marshal and unmarshal in JSON format.
//
// - implements serde.ContextEngine
type jsonEngine struct{}

// NewContext returns a JSON context.
func NewContext() serde.Context {
	return serde.NewContext(jsonEngine{})
}

// GetFormat implements serde.ContextEngine. It returns the JSON format name.
func (jsonEngine) GetFormat() serde.Format {
	return serde.FormatJSON
}

// Marshal implements serde.ContextEngine. It returns the bytes of the message
// marshaled in JSON format.
func (jsonEngine) Marshal(m interface{}) ([]byte, error) {
	return json.Marshal(m)
}

// Unmarshal implements serde.ContextEngine. It populates the message using the
// JSON format definition.
func (jsonEngine) Unmarshal(data []byte, m interface{}) error {
	return json.Unmarshal(data, m)
}
