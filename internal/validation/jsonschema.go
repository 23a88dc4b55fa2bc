// Package validation checks rule documents before anything trusts them:
// a JSON-Schema pass over the raw document, then a semantic pass over
// the decoded form (expressions compile, indicator references exist,
// advisory lints). Validation runs at load/edit time only, never on the
// tick path.
package validation

import (
	"encoding/json"
	"fmt"
	"strings"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/rendis/tickrule/pkg/schema"
)

// rulePackSchemaJSON is the JSON Schema for RulePack documents.
// Embedded as a constant to avoid filesystem dependencies.
const rulePackSchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "$id": "https://tickrule.dev/schemas/rulepack.json",
  "type": "object",
  "required": ["rules_version", "packs"],
  "properties": {
    "rules_version": {
      "type": "string",
      "pattern": "^[0-9]+\\.[0-9]+\\.[0-9]+(-[0-9A-Za-z.-]+)?$"
    },
    "engine": { "type": "string" },
    "metadata": { "type": "object" },
    "indicators": {
      "type": "array",
      "items": { "type": "string", "minLength": 1 }
    },
    "derived": {
      "type": "object",
      "additionalProperties": { "type": "string", "minLength": 1 }
    },
    "packs": {
      "type": "array",
      "items": { "$ref": "#/$defs/pack" }
    }
  },
  "additionalProperties": false,
  "$defs": {
    "pack": {
      "type": "object",
      "required": ["pack_type", "rules"],
      "properties": {
        "pack_type": {
          "type": "string",
          "enum": ["no_trade", "entry", "exit", "update_stop", "risk"]
        },
        "rules": {
          "type": "array",
          "items": { "$ref": "#/$defs/rule" }
        }
      },
      "additionalProperties": false
    },
    "rule": {
      "type": "object",
      "required": ["id", "name", "enabled", "expression", "severity"],
      "properties": {
        "id": { "type": "string", "minLength": 1 },
        "name": { "type": "string", "minLength": 1 },
        "enabled": { "type": "boolean" },
        "language": { "type": "string", "enum": ["expr", "cel"] },
        "expression": { "type": "string" },
        "severity": {
          "type": "string",
          "enum": ["block", "exit", "update_stop", "warn"]
        },
        "message": { "type": "string" }
      },
      "additionalProperties": false
    }
  }
}`

// strategySchemaJSON is the JSON Schema for the flat workflow strategy
// documents.
const strategySchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "$id": "https://tickrule.dev/schemas/strategy.json",
  "type": "object",
  "required": ["schema_version", "name", "workflow"],
  "properties": {
    "schema_version": {
      "type": "string",
      "pattern": "^[0-9]+\\.[0-9]+\\.[0-9]+(-[0-9A-Za-z.-]+)?$"
    },
    "strategy_type": { "type": "string" },
    "name": { "type": "string", "minLength": 1 },
    "indicators": {
      "type": "array",
      "items": { "type": "string", "minLength": 1 }
    },
    "derived": {
      "type": "object",
      "additionalProperties": { "type": "string", "minLength": 1 }
    },
    "workflow": {
      "type": "object",
      "properties": {
        "entry": { "$ref": "#/$defs/slot" },
        "no_entry": { "$ref": "#/$defs/slot" },
        "exit": { "$ref": "#/$defs/slot" },
        "before_exit": { "$ref": "#/$defs/slot" },
        "update_stop": { "$ref": "#/$defs/slot" }
      },
      "additionalProperties": false
    }
  },
  "additionalProperties": false,
  "$defs": {
    "slot": {
      "type": "object",
      "required": ["expression", "enabled"],
      "properties": {
        "language": { "type": "string", "enum": ["expr", "cel"] },
        "expression": { "type": "string" },
        "enabled": { "type": "boolean" }
      },
      "additionalProperties": false
    }
  }
}`

// documentSchemas holds the pre-compiled schemas for both document
// shapes. Safe for concurrent use.
type documentSchemas struct {
	rulePack *jsonschema.Schema
	strategy *jsonschema.Schema
}

func compileDocumentSchemas() (*documentSchemas, error) {
	c := jsonschema.NewCompiler()
	c.AssertFormat()

	add := func(url, raw string) error {
		doc, err := jsonschema.UnmarshalJSON(strings.NewReader(raw))
		if err != nil {
			return fmt.Errorf("unmarshal schema %s: %w", url, err)
		}
		return c.AddResource(url, doc)
	}

	if err := add("https://tickrule.dev/schemas/rulepack.json", rulePackSchemaJSON); err != nil {
		return nil, err
	}
	if err := add("https://tickrule.dev/schemas/strategy.json", strategySchemaJSON); err != nil {
		return nil, err
	}

	rp, err := c.Compile("https://tickrule.dev/schemas/rulepack.json")
	if err != nil {
		return nil, fmt.Errorf("compile rulepack schema: %w", err)
	}
	st, err := c.Compile("https://tickrule.dev/schemas/strategy.json")
	if err != nil {
		return nil, fmt.Errorf("compile strategy schema: %w", err)
	}

	return &documentSchemas{rulePack: rp, strategy: st}, nil
}

// validateAgainst runs raw JSON through a compiled schema and reports
// violations with their JSON paths.
func validateAgainst(s *jsonschema.Schema, raw []byte, result *schema.ValidationResult) bool {
	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(string(raw)))
	if err != nil {
		result.AddError("/", schema.ErrCodeSchema, "document is not valid JSON: "+err.Error())
		return false
	}

	if err := s.Validate(doc); err != nil {
		for _, violation := range collectViolations(err) {
			result.AddError(violation.path, schema.ErrCodeSchema, violation.message)
		}
		return false
	}
	return true
}

type violation struct {
	path    string
	message string
}

// collectViolations walks a ValidationError tree and collects leaf
// messages with their instance locations.
func collectViolations(err error) []violation {
	verr, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return []violation{{path: "/", message: err.Error()}}
	}
	return collectLeaves(verr)
}

func collectLeaves(verr *jsonschema.ValidationError) []violation {
	if len(verr.Causes) == 0 {
		loc := "/"
		if len(verr.InstanceLocation) > 0 {
			loc = "/" + strings.Join(verr.InstanceLocation, "/")
		}
		return []violation{{path: loc, message: verr.Error()}}
	}

	var out []violation
	for _, cause := range verr.Causes {
		out = append(out, collectLeaves(cause)...)
	}
	return out
}

// toJSONValue round-trips a Go value through JSON encoding so numbers
// become json.Number, as the jsonschema library expects.
func toJSONValue(v any) (any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return jsonschema.UnmarshalJSON(strings.NewReader(string(b)))
}
