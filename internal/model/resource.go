package model

import (
	"fmt"
	"sort"
	"strings"
)

// Kind is the type of an infrastructure resource
type Kind string

const (
	KindNetwork      Kind = "Network"
	KindCluster      Kind = "Cluster"
	KindTask         Kind = "Task"
	KindContainer    Kind = "Container"
	KindService      Kind = "Service"
	KindLoadBalancer Kind = "LoadBalancer"
	KindFileSystem   Kind = "FileSystem"
	KindDnsZone      Kind = "DnsZone"
	KindRole         Kind = "Role"
	KindPolicy       Kind = "Policy"
)

var kinds = []Kind{
	KindNetwork,
	KindCluster,
	KindTask,
	KindContainer,
	KindService,
	KindLoadBalancer,
	KindFileSystem,
	KindDnsZone,
	KindRole,
	KindPolicy,
}

// Kinds returns every supported kind in declaration order
func Kinds() []Kind {
	return append([]Kind(nil), kinds...)
}

// Valid reports whether k is one of the supported kinds
func (k Kind) Valid() bool {
	for _, known := range kinds {
		if k == known {
			return true
		}
	}
	return false
}

// ParseKind matches a kind name case-insensitively
func ParseKind(s string) (Kind, error) {
	for _, known := range kinds {
		if strings.EqualFold(string(known), strings.TrimSpace(s)) {
			return known, nil
		}
	}
	return "", fmt.Errorf("unknown resource kind %q", s)
}

// ResourceNode is a single managed infrastructure resource
type ResourceNode struct {
	ID        string                 `yaml:"id" json:"id"`
	Kind      Kind                   `yaml:"kind" json:"kind"`
	Config    map[string]interface{} `yaml:"config,omitempty" json:"config,omitempty"`
	DependsOn []string               `yaml:"dependsOn,omitempty" json:"dependsOn,omitempty"`
}

// NewResourceNode builds a node with a sorted, de-duplicated dependency set
func NewResourceNode(id string, kind Kind, config map[string]interface{}, dependsOn ...string) ResourceNode {
	if config == nil {
		config = make(map[string]interface{})
	}
	return ResourceNode{
		ID:        id,
		Kind:      kind,
		Config:    config,
		DependsOn: SortedSet(dependsOn),
	}
}

// ImportRef refers to a resource that exists outside the plan.
// It is resolved by lookup rather than created.
type ImportRef struct {
	ID   string `yaml:"id" json:"id"`
	Kind Kind   `yaml:"kind" json:"kind"`
	Key  string `yaml:"key" json:"key"` // lookup key, e.g. a domain name
}

func (r ImportRef) String() string {
	return fmt.Sprintf("%s(%s=%s)", r.ID, r.Kind, r.Key)
}

// ExternalHandle is the concrete identity of a resolved import
type ExternalHandle struct {
	Ref        ImportRef         `json:"ref"`
	ID         string            `json:"id"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// Output returns the handle in the same shape as a created resource output
func (h ExternalHandle) Output() Output {
	return Output{ID: h.ID, Attributes: h.Attributes}
}

// Output is what the backend reports for a created resource
type Output struct {
	ID         string            `yaml:"id" json:"id"`
	Attributes map[string]string `yaml:"attributes,omitempty" json:"attributes,omitempty"`
}

// Attribute returns the named attribute; "id" always maps to the output ID
func (o Output) Attribute(name string) (string, bool) {
	if name == "id" {
		return o.ID, o.ID != ""
	}
	v, ok := o.Attributes[name]
	return v, ok
}

// SortedSet returns the unique non-empty values in ascending order
func SortedSet(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
