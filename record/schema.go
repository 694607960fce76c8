package record

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/darko-mesaros/adventures-of-json/errors"
)

// documentSchema is the declarative contract for InboundDocument. Numeric
// and boolean fields are string-typed on the wire; the patterns here reject
// values the mapper could not coerce, so validation failures surface as 400s
// with a field-level message instead of malformed stored records.
const documentSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["name", "creation_date", "level", "abilities", "inventory", "services_visited", "events"],
  "properties": {
    "name": {
      "type": "string",
      "minLength": 1
    },
    "creation_date": {
      "type": "string"
    },
    "level": {
      "type": "string",
      "pattern": "^-?[0-9]+(\\.[0-9]+)?$"
    },
    "abilities": {
      "type": "object",
      "required": ["security", "elasticity", "durability", "versioning", "filtered"],
      "properties": {
        "security":   { "type": "string", "pattern": "^-?[0-9]+(\\.[0-9]+)?$" },
        "elasticity": { "type": "string", "pattern": "^-?[0-9]+(\\.[0-9]+)?$" },
        "durability": { "type": "string", "pattern": "^-?[0-9]+(\\.[0-9]+)?$" },
        "versioning": { "type": "string", "enum": ["true", "false"] },
        "filtered":   { "type": "string", "enum": ["true", "false"] }
      }
    },
    "inventory": {
      "type": "array",
      "minItems": 1,
      "items": { "type": "string" }
    },
    "services_visited": {
      "type": "array",
      "minItems": 2,
      "items": { "type": "string" }
    },
    "events": {
      "type": "array",
      "minItems": 2,
      "items": {
        "type": "object",
        "minProperties": 1,
        "maxProperties": 1,
        "additionalProperties": { "type": "string" }
      }
    }
  }
}`

var schemaLoader = gojsonschema.NewStringLoader(documentSchema)

// Validate checks raw JSON against the document schema. On failure it
// returns an invalid-classified error whose message lists every failing
// field, suitable for embedding in a gateway error response.
func Validate(data []byte) error {
	documentLoader := gojsonschema.NewBytesLoader(data)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return errors.WrapInvalid(err, "Record", "Validate", "parse document")
	}

	if result.Valid() {
		return nil
	}

	fields := make([]string, 0, len(result.Errors()))
	for _, resultErr := range result.Errors() {
		fields = append(fields, fmt.Sprintf("%s: %s", resultErr.Field(), resultErr.Description()))
	}

	return errors.WrapInvalid(
		fmt.Errorf("document validation: %s", strings.Join(fields, "; ")),
		"Record", "Validate", "check schema")
}
