package store

import (
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

// inputSchema is the minimal input contract: a JSON object whose well-known fields,
// when present, have the expected JSON kinds. Everything else is opaque.
const inputSchema = `{
  "type": "object",
  "properties": {
    "name": {"type": "string"},
    "nodes": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "name": {"type": "string"},
          "type": {"type": "string"},
          "parameters": {"type": "object"},
          "credentials": {"type": "object"}
        }
      }
    },
    "connections": {"type": "object"}
  }
}`

var schemaLoader = gojsonschema.NewStringLoader(inputSchema)

// Lint checks raw against the minimal input contract. Findings are warnings: the
// extractor tolerates any shape, so lint never blocks ingestion.
func Lint(raw []byte) ([]string, error) {
	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if result.Valid() {
		return nil, nil
	}
	warnings := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		warnings = append(warnings, e.String())
	}
	return warnings, nil
}
