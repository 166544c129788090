package loader

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sourceplane/liteiac/internal/model"
	"gopkg.in/yaml.v3"
)

// LoadStack loads and parses a stack YAML file
func LoadStack(path string) (*model.Stack, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read stack file: %w", err)
	}
	return ParseStack(data)
}

// ParseStack parses a stack document. Unknown fields are rejected so typos
// in resource declarations surface early.
func ParseStack(data []byte) (*model.Stack, error) {
	var stack model.Stack
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&stack); err != nil {
		return nil, fmt.Errorf("failed to parse stack YAML: %w", err)
	}
	return &stack, nil
}

// LoadDocument loads a YAML or JSON file as a generic document, suitable for
// schema validation
func LoadDocument(path string) (interface{}, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var doc interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return doc, nil
}

// LoadPlan loads a plan written by the plan command (JSON or YAML)
func LoadPlan(path string) (*model.Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read plan file: %w", err)
	}

	var plan model.Plan
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		if err := json.Unmarshal(data, &plan); err != nil {
			return nil, fmt.Errorf("failed to parse plan JSON: %w", err)
		}
	default:
		if err := yaml.Unmarshal(data, &plan); err != nil {
			return nil, fmt.Errorf("failed to parse plan YAML: %w", err)
		}
	}

	if plan.Kind != model.KindPlan {
		return nil, fmt.Errorf("%s is not a plan (kind %q)", path, plan.Kind)
	}
	if err := plan.Validate(); err != nil {
		return nil, fmt.Errorf("invalid plan %s: %w", path, err)
	}
	return &plan, nil
}

// WriteStack writes a stack document as YAML
func WriteStack(stack *model.Stack, path string) error {
	data, err := MarshalStack(stack)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write stack file: %w", err)
	}
	return nil
}

// MarshalStack encodes a stack with two-space indentation
func MarshalStack(stack *model.Stack) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(stack); err != nil {
		return nil, fmt.Errorf("failed to marshal stack: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
