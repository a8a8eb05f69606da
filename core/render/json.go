// Package render — JSON renderer.
// Serializes the full normalized table, metadata included, for
// programmatic consumers.
package render

import (
	"encoding/json"
	"fmt"

	"github.com/gaurav-prasanna/tablepipe/core"
)

// JSONRenderer produces an indented JSON document from a table.
type JSONRenderer struct{}

// NewJSONRenderer creates a JSONRenderer.
func NewJSONRenderer() *JSONRenderer {
	return &JSONRenderer{}
}

// Render marshals the table with indentation.
func (r *JSONRenderer) Render(t core.Table) ([]byte, error) {
	data, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling JSON: %w", err)
	}
	return data, nil
}

// Extension returns the file extension for JSON output.
func (r *JSONRenderer) Extension() string {
	return ".json"
}
