package interceptors

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// configSchemas constrains the config of the interceptors that take one. Interceptors without a schema
// accept any config.
var configSchemas = mustLoadSchemas(map[string]string{
	"reject": `{
		"type": "object",
		"properties": {"reason": {"type": "string"}},
		"additionalProperties": false
	}`,
	"stored_bid": `{
		"type": "object",
		"properties": {
			"key_prefix": {"type": "string"},
			"seat": {"type": "string", "minLength": 1},
			"currency": {"type": "string", "pattern": "^[A-Z]{3}$"},
			"bid_defaults": {"type": "object"}
		},
		"additionalProperties": false
	}`,
	"click_redirect": `{
		"type": "object",
		"properties": {"fallback_url": {"type": "string"}},
		"additionalProperties": false
	}`,
	"cookie_match": `{
		"type": "object",
		"properties": {
			"key_prefix": {"type": "string"},
			"nid": {"type": "string"},
			"user_lists": {"type": "array", "items": {"type": "integer"}}
		},
		"additionalProperties": false
	}`,
	"rate_limit": `{
		"type": "object",
		"properties": {
			"max_per_second": {"type": "number"},
			"burst": {"type": "integer", "minimum": 0},
			"key_header": {"type": "string"}
		},
		"required": ["max_per_second"],
		"additionalProperties": false
	}`,
	"bot_filter": `{
		"type": "object",
		"properties": {"reject_empty": {"type": "boolean"}},
		"additionalProperties": false
	}`,
})

func mustLoadSchemas(sources map[string]string) map[string]*gojsonschema.Schema {
	schemas := make(map[string]*gojsonschema.Schema, len(sources))
	for name, source := range sources {
		schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(source))
		if err != nil {
			panic(fmt.Sprintf("invalid config schema of %s: %v", name, err))
		}
		schemas[name] = schema
	}
	return schemas
}

// validateConfig checks conf against the schema of the named interceptor.
func validateConfig(name string, conf json.RawMessage) error {
	schema, ok := configSchemas[name]
	if !ok {
		return nil
	}
	if len(conf) == 0 || string(conf) == "null" {
		conf = json.RawMessage("{}")
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(conf))
	if err != nil {
		return err
	}
	if result.Valid() {
		return nil
	}
	msgs := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		msgs = append(msgs, desc.String())
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}
