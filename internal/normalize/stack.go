package normalize

import (
	"fmt"
	"strings"

	"github.com/sourceplane/liteiac/internal/expand"
	"github.com/sourceplane/liteiac/internal/model"
)

// NormalizeStack transforms a raw stack into canonical form.
// vars overlay the stack's own vars before ${var.NAME} substitution.
// Resources whose feature is disabled are dropped.
func NormalizeStack(stack *model.Stack, vars map[string]string) (*model.Stack, error) {
	if stack == nil {
		return nil, fmt.Errorf("stack cannot be nil")
	}

	normalized := &model.Stack{
		APIVersion: strings.TrimSpace(stack.APIVersion),
		Kind:       strings.TrimSpace(stack.Kind),
		Metadata:   stack.Metadata,
		Features:   make(map[string]bool, len(stack.Features)),
		Vars:       make(map[string]string, len(stack.Vars)+len(vars)),
		Imports:    make([]model.ImportRef, 0, len(stack.Imports)),
		Resources:  make([]model.ResourceDeclaration, 0, len(stack.Resources)),
	}

	// Default apiVersion and kind
	if normalized.APIVersion == "" {
		normalized.APIVersion = model.APIVersion
	}
	if normalized.APIVersion != model.APIVersion {
		return nil, fmt.Errorf("unsupported apiVersion %q (expected %s)", normalized.APIVersion, model.APIVersion)
	}
	if normalized.Kind == "" {
		normalized.Kind = model.KindStack
	}
	if normalized.Kind != model.KindStack {
		return nil, fmt.Errorf("unsupported kind %q (expected %s)", normalized.Kind, model.KindStack)
	}

	normalized.Metadata.Name = strings.TrimSpace(normalized.Metadata.Name)
	if normalized.Metadata.Name == "" {
		return nil, fmt.Errorf("stack must have a metadata.name")
	}
	if normalized.Metadata.Labels == nil {
		normalized.Metadata.Labels = make(map[string]string)
	}

	for name, enabled := range stack.Features {
		normalized.Features[strings.TrimSpace(name)] = enabled
	}
	for k, v := range stack.Vars {
		normalized.Vars[k] = v
	}
	for k, v := range vars {
		normalized.Vars[varName(normalized.Vars, k)] = v
	}

	for _, ref := range stack.Imports {
		ref.ID = strings.TrimSpace(ref.ID)
		if ref.ID == "" {
			return nil, fmt.Errorf("import must have an id")
		}
		kind, err := model.ParseKind(string(ref.Kind))
		if err != nil {
			return nil, fmt.Errorf("import %s: %w", ref.ID, err)
		}
		ref.Kind = kind
		ref.Key = strings.TrimSpace(ref.Key)
		if ref.Key == "" {
			return nil, fmt.Errorf("import %s must have a key", ref.ID)
		}
		normalized.Imports = append(normalized.Imports, ref)
	}

	for _, decl := range stack.Resources {
		decl.ID = strings.TrimSpace(decl.ID)
		if decl.ID == "" {
			return nil, fmt.Errorf("resource must have an id")
		}
		if decl.Kind == "" {
			return nil, fmt.Errorf("resource %s must have a kind", decl.ID)
		}
		kind, err := model.ParseKind(string(decl.Kind))
		if err != nil {
			return nil, fmt.Errorf("resource %s: %w", decl.ID, err)
		}
		decl.Kind = kind

		enabled, err := featureEnabled(normalized.Features, decl.When)
		if err != nil {
			return nil, fmt.Errorf("resource %s: %w", decl.ID, err)
		}
		if !enabled {
			continue
		}
		decl.When = strings.TrimSpace(decl.When)

		config, err := expand.SubstituteVars(decl.Config, normalized.Vars)
		if err != nil {
			return nil, fmt.Errorf("resource %s config: %w", decl.ID, err)
		}
		if config == nil {
			config = make(map[string]interface{})
		}
		decl.Config = config
		decl.DependsOn = model.SortedSet(decl.DependsOn)

		normalized.Resources = append(normalized.Resources, decl)
	}

	return normalized, nil
}

// featureEnabled evaluates a when expression: empty, a feature name, or a
// feature name prefixed with "!" for negation
func featureEnabled(features map[string]bool, when string) (bool, error) {
	when = strings.TrimSpace(when)
	if when == "" {
		return true, nil
	}
	negate := strings.HasPrefix(when, "!")
	name := strings.TrimSpace(strings.TrimPrefix(when, "!"))

	enabled, ok := features[name]
	if !ok {
		return false, fmt.Errorf("unknown feature %q", name)
	}
	if negate {
		return !enabled, nil
	}
	return enabled, nil
}

// varName returns the declared spelling of name. Overrides from the config
// file arrive lowercased, so they match declared vars case-insensitively.
func varName(declared map[string]string, name string) string {
	if _, ok := declared[name]; ok {
		return name
	}
	for k := range declared {
		if strings.EqualFold(k, name) {
			return k
		}
	}
	return name
}
