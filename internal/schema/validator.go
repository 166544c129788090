package schema

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

//go:embed stack.schema.yaml
var stackSchemaYAML []byte

const stackSchemaURI = "liteiac://schemas/stack.schema.json"

// Validator handles JSON schema validation of stack documents
type Validator struct {
	stackSchema *jsonschema.Schema
}

// NewValidator compiles the built-in stack schema
func NewValidator() (*Validator, error) {
	stackSchema, err := compile(stackSchemaURI, stackSchemaYAML)
	if err != nil {
		return nil, fmt.Errorf("failed to load stack schema: %w", err)
	}
	return &Validator{stackSchema: stackSchema}, nil
}

// ValidateStack validates a decoded stack document against the schema
func (v *Validator) ValidateStack(doc interface{}) error {
	if v.stackSchema == nil {
		return fmt.Errorf("stack schema not loaded")
	}
	data, err := toJSONValue(doc)
	if err != nil {
		return err
	}
	if err := v.stackSchema.Validate(data); err != nil {
		return fmt.Errorf("stack failed schema validation: %w", err)
	}
	return nil
}

// ValidateStackBytes parses YAML (or JSON) and validates it
func (v *Validator) ValidateStackBytes(data []byte) error {
	var doc interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("failed to parse stack: %w", err)
	}
	return v.ValidateStack(doc)
}

// compile loads a YAML schema document and compiles it under uri
func compile(uri string, data []byte) (*jsonschema.Schema, error) {
	// Parse YAML to interface{} (supports both YAML and JSON)
	var schemaData interface{}
	if err := yaml.Unmarshal(data, &schemaData); err != nil {
		return nil, fmt.Errorf("failed to parse schema file: %w", err)
	}

	// Convert to JSON for schema compiler
	jsonData, err := json.Marshal(schemaData)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(uri, strings.NewReader(string(jsonData))); err != nil {
		return nil, fmt.Errorf("failed to add schema resource: %w", err)
	}
	schema, err := compiler.Compile(uri)
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema: %w", err)
	}
	return schema, nil
}

// toJSONValue round-trips a YAML-decoded value through JSON so numbers and
// maps have the shapes the validator expects
func toJSONValue(doc interface{}) (interface{}, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to encode document: %w", err)
	}
	var out interface{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("failed to decode document: %w", err)
	}
	return out, nil
}
