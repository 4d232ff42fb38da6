package realtime

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// envelopeSchema constrains inbound messages in strict mode. Kind-specific
// required fields live here so strict sessions reject structurally invalid
// messages before dispatch.
const envelopeSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["type"],
  "properties": {
    "type": { "type": "string", "minLength": 1 }
  },
  "allOf": [
    {
      "if": { "properties": { "type": { "const": "transcript.partial" } } },
      "then": { "required": ["text"], "properties": { "text": { "type": "string" } } }
    },
    {
      "if": { "properties": { "type": { "const": "transcript.final" } } },
      "then": { "required": ["text"], "properties": { "text": { "type": "string" } } }
    },
    {
      "if": { "properties": { "type": { "const": "audio.output" } } },
      "then": { "required": ["audio"], "properties": { "audio": { "type": "string" } } }
    },
    {
      "if": { "properties": { "type": { "const": "error" } } },
      "then": {
        "required": ["code", "message"],
        "properties": {
          "code": { "type": "string" },
          "message": { "type": "string" },
          "recoverable": { "type": "boolean" }
        }
      }
    },
    {
      "if": { "properties": { "type": { "const": "session.closed" } } },
      "then": { "properties": { "reason": { "type": "string" } } }
    }
  ]
}`

func compileEnvelopeSchema() *jsonschema.Schema {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("envelope.json", strings.NewReader(envelopeSchema)); err != nil {
		panic(fmt.Sprintf("failed to register envelope schema: %v", err))
	}
	return compiler.MustCompile("envelope.json")
}

var compiledEnvelopeSchema = compileEnvelopeSchema()

// validateEnvelope checks raw message bytes against the envelope schema.
func validateEnvelope(raw []byte) error {
	var payload any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return &ProtocolError{Reason: fmt.Sprintf("message is not valid JSON: %v", err)}
	}
	if err := compiledEnvelopeSchema.Validate(payload); err != nil {
		return &ProtocolError{Reason: fmt.Sprintf("message failed schema validation: %v", err)}
	}
	return nil
}
