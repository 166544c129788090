package render

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sourceplane/liteiac/internal/model"
	"gopkg.in/yaml.v3"
)

// Renderer serializes plans
type Renderer struct{}

// NewRenderer creates a new renderer
func NewRenderer() *Renderer {
	return &Renderer{}
}

// RenderJSON renders plan as JSON
func (r *Renderer) RenderJSON(plan *model.Plan) ([]byte, error) {
	return json.MarshalIndent(plan, "", "  ")
}

// RenderYAML renders plan as YAML
func (r *Renderer) RenderYAML(plan *model.Plan) ([]byte, error) {
	return yaml.Marshal(plan)
}

// RenderText renders the stable text form, one "layer N: a, b" line per layer
func (r *Renderer) RenderText(plan *model.Plan) []byte {
	var sb strings.Builder
	for _, layer := range plan.Layers {
		sb.WriteString(fmt.Sprintf("layer %d: %s\n", layer.Index, strings.Join(layer.Nodes, ", ")))
	}
	return []byte(sb.String())
}

// Render renders plan in the named format: json, yaml or text
func (r *Renderer) Render(plan *model.Plan, format string) ([]byte, error) {
	switch strings.ToLower(format) {
	case "", "json":
		return r.RenderJSON(plan)
	case "yaml", "yml":
		return r.RenderYAML(plan)
	case "text", "txt":
		return r.RenderText(plan), nil
	default:
		return nil, fmt.Errorf("unsupported plan format %q (use json, yaml or text)", format)
	}
}

// WritePlan writes plan to file (JSON or YAML based on extension)
func (r *Renderer) WritePlan(plan *model.Plan, path string) error {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	// Determine format from extension
	format := "json"
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		format = "yaml"
	case ".txt":
		format = "text"
	}

	data, err := r.Render(plan, format)
	if err != nil {
		return fmt.Errorf("failed to render plan: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write plan to %s: %w", path, err)
	}

	return nil
}

// DebugDump outputs debug information about the plan
func (r *Renderer) DebugDump(plan *model.Plan) string {
	output := fmt.Sprintf("Plan: %s (%s)\n", plan.Metadata.Name, plan.Metadata.Description)
	output += fmt.Sprintf("Layers: %d, Resources: %d, Imports: %d\n\n", len(plan.Layers), len(plan.Resources), len(plan.Imports))

	for _, ref := range plan.Imports {
		output += fmt.Sprintf("Import: %s\n", ref.ID)
		output += fmt.Sprintf("  Kind: %s\n", ref.Kind)
		output += fmt.Sprintf("  Key: %s\n\n", ref.Key)
	}

	for _, res := range plan.Resources {
		output += fmt.Sprintf("Resource: %s\n", res.ID)
		output += fmt.Sprintf("  Kind: %s\n", res.Kind)
		output += fmt.Sprintf("  Config keys: %d\n", len(res.Config))
		output += fmt.Sprintf("  DependsOn: %v\n", res.DependsOn)
		output += "\n"
	}

	return output
}
