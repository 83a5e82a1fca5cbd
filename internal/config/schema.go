package config

import (
	"encoding/json"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"

	baoerrors "github.com/systmms/baorepl/internal/errors"
)

// definitionSchema is the JSON schema the raw yaml document is
// validated against. It catches shape errors (wrong types, negative
// intervals, misspelled keys) before the semantic checks in Validate.
const definitionSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "primary": {"$ref": "#/definitions/cluster"},
    "secondary": {"$ref": "#/definitions/cluster"},
    "replication": {
      "type": "object",
      "properties": {
        "sync_interval": {"type": "integer", "minimum": 1},
        "verify_ssl": {"type": "boolean"},
        "timeout": {"type": "integer", "minimum": 1},
        "workers": {"type": "integer", "minimum": 1},
        "exclude_paths": {
          "type": "array",
          "items": {"type": "string", "minLength": 1}
        }
      },
      "additionalProperties": false
    },
    "logging": {
      "type": "object",
      "properties": {
        "level": {"type": "string", "enum": ["debug", "info", "warning", "error"]}
      },
      "additionalProperties": false
    }
  },
  "additionalProperties": false,
  "definitions": {
    "cluster": {
      "type": "object",
      "properties": {
        "url": {"type": "string", "minLength": 1},
        "token": {"type": "string"},
        "token_keyring": {"type": "string"}
      },
      "additionalProperties": false
    }
  }
}`

// validateSchema checks the raw yaml file contents against
// definitionSchema. The document is decoded generically and
// round-tripped through JSON since gojsonschema works on JSON; this
// happens before the typed unmarshal so misspelled keys are caught
// rather than silently dropped.
func validateSchema(data []byte) error {
	var doc interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return baoerrors.ConfigError{
			Message:    "invalid YAML syntax in configuration file",
			Suggestion: "Check for indentation errors, missing quotes, or invalid characters",
		}
	}
	if doc == nil {
		return nil // empty file, defaults apply
	}

	jsonData, err := json.Marshal(doc)
	if err != nil {
		return baoerrors.UserError{
			Message: "Failed to prepare configuration for validation",
			Details: err.Error(),
			Err:     err,
		}
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(definitionSchema),
		gojsonschema.NewBytesLoader(jsonData),
	)
	if err != nil {
		return baoerrors.UserError{
			Message: "Schema validation error",
			Details: err.Error(),
			Err:     err,
		}
	}

	if !result.Valid() {
		var msgs []string
		for _, desc := range result.Errors() {
			msgs = append(msgs, desc.String())
		}
		return baoerrors.ConfigError{
			Message:    "configuration failed schema validation:\n  - " + strings.Join(msgs, "\n  - "),
			Suggestion: "Fix the listed fields in your baorepl.yaml",
		}
	}

	return nil
}
