package utils

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// JSONSchemaValidator handles validation against named JSON schemas
type JSONSchemaValidator struct {
	schemas map[string]*gojsonschema.Schema
}

// NewJSONSchemaValidator creates a new JSONSchemaValidator
func NewJSONSchemaValidator() *JSONSchemaValidator {
	return &JSONSchemaValidator{
		schemas: make(map[string]*gojsonschema.Schema),
	}
}

// LoadSchema loads and compiles a JSON schema
func (v *JSONSchemaValidator) LoadSchema(name, schema string) error {
	compiledSchema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(schema))
	if err != nil {
		return fmt.Errorf("failed to compile schema %s: %w", name, err)
	}

	v.schemas[name] = compiledSchema
	return nil
}

// ValidateBytes validates a raw JSON document against a named schema.
// Failures wrap ErrValidation.
func (v *JSONSchemaValidator) ValidateBytes(name string, document []byte) error {
	schema, ok := v.schemas[name]
	if !ok {
		return fmt.Errorf("schema %s not found", name)
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(document))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}

	if !result.Valid() {
		messages := make([]string, 0, len(result.Errors()))
		for _, resultErr := range result.Errors() {
			messages = append(messages, fmt.Sprintf("%s: %s", resultErr.Field(), resultErr.Description()))
		}
		return fmt.Errorf("%w: %s", ErrValidation, strings.Join(messages, "; "))
	}

	return nil
}

// JSONSchemaBuilder helps build JSON object schemas programmatically
type JSONSchemaBuilder struct {
	schema map[string]interface{}
}

// NewJSONSchemaBuilder creates a new JSONSchemaBuilder. Unknown properties are allowed.
func NewJSONSchemaBuilder() *JSONSchemaBuilder {
	return &JSONSchemaBuilder{
		schema: map[string]interface{}{
			"$schema":    "http://json-schema.org/draft-07/schema#",
			"type":       "object",
			"properties": map[string]interface{}{},
			"required":   []string{},
		},
	}
}

// SetTitle sets the schema title
func (b *JSONSchemaBuilder) SetTitle(title string) *JSONSchemaBuilder {
	b.schema["title"] = title
	return b
}

// AddProperty adds a property that may take any of the given JSON types
func (b *JSONSchemaBuilder) AddProperty(name string, required bool, types ...string) *JSONSchemaBuilder {
	properties := b.schema["properties"].(map[string]interface{})
	if len(types) == 1 {
		properties[name] = map[string]interface{}{"type": types[0]}
	} else {
		properties[name] = map[string]interface{}{"type": types}
	}

	if required {
		b.schema["required"] = append(b.schema["required"].([]string), name)
	}

	return b
}

// Build returns the JSON schema as a string
func (b *JSONSchemaBuilder) Build() (string, error) {
	jsonBytes, err := json.MarshalIndent(b.schema, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal schema: %w", err)
	}

	return string(jsonBytes), nil
}
