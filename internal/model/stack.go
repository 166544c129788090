package model

const (
	APIVersion = "liteiac.sourceplane.io/v1"
	KindStack  = "Stack"
	KindPlan   = "Plan"
)

// Stack is the declarative document describing one deployable grouping of resources
type Stack struct {
	APIVersion string                `yaml:"apiVersion" json:"apiVersion"`
	Kind       string                `yaml:"kind" json:"kind"`
	Metadata   Metadata              `yaml:"metadata" json:"metadata"`
	Features   map[string]bool       `yaml:"features,omitempty" json:"features,omitempty"`
	Vars       map[string]string     `yaml:"vars,omitempty" json:"vars,omitempty"`
	Imports    []ImportRef           `yaml:"imports,omitempty" json:"imports,omitempty"`
	Resources  []ResourceDeclaration `yaml:"resources" json:"resources"`
}

// Metadata holds standard object metadata
type Metadata struct {
	Name        string            `yaml:"name" json:"name"`
	Description string            `yaml:"description,omitempty" json:"description,omitempty"`
	Labels      map[string]string `yaml:"labels,omitempty" json:"labels,omitempty"`
}

// ResourceDeclaration is a resource as written in a stack document.
// When names a feature flag that must be enabled for the resource to exist.
type ResourceDeclaration struct {
	ID        string                 `yaml:"id" json:"id"`
	Kind      Kind                   `yaml:"kind" json:"kind"`
	When      string                 `yaml:"when,omitempty" json:"when,omitempty"`
	Config    map[string]interface{} `yaml:"config,omitempty" json:"config,omitempty"`
	DependsOn []string               `yaml:"dependsOn,omitempty" json:"dependsOn,omitempty"`
}

// Node converts the declaration into a graph node
func (d ResourceDeclaration) Node() ResourceNode {
	return NewResourceNode(d.ID, d.Kind, d.Config, d.DependsOn...)
}
