package model

import "fmt"

// Plan is the ordered, layered deployment plan derived from a graph
type Plan struct {
	APIVersion string         `yaml:"apiVersion" json:"apiVersion"`
	Kind       string         `yaml:"kind" json:"kind"`
	Metadata   Metadata       `yaml:"metadata" json:"metadata"`
	Imports    []ImportRef    `yaml:"imports,omitempty" json:"imports,omitempty"`
	Layers     []Layer        `yaml:"layers" json:"layers"`
	Resources  []ResourceNode `yaml:"resources" json:"resources"`
}

// Layer is a set of nodes with no mutual dependency, safe to apply concurrently
type Layer struct {
	Index int      `yaml:"index" json:"index"`
	Nodes []string `yaml:"nodes" json:"nodes"`
}

// NodeIDs returns every node id in plan order
func (p *Plan) NodeIDs() []string {
	var ids []string
	for _, layer := range p.Layers {
		ids = append(ids, layer.Nodes...)
	}
	return ids
}

// LayerIDs returns the node ids of each layer
func (p *Plan) LayerIDs() [][]string {
	out := make([][]string, 0, len(p.Layers))
	for _, layer := range p.Layers {
		out = append(out, append([]string(nil), layer.Nodes...))
	}
	return out
}

// Resource looks up a planned resource by id
func (p *Plan) Resource(id string) (ResourceNode, bool) {
	for _, r := range p.Resources {
		if r.ID == id {
			return r, true
		}
	}
	return ResourceNode{}, false
}

// ResourceIndex maps resource ids to their nodes
func (p *Plan) ResourceIndex() map[string]ResourceNode {
	index := make(map[string]ResourceNode, len(p.Resources))
	for _, r := range p.Resources {
		index[r.ID] = r
	}
	return index
}

// Import looks up a plan import by id
func (p *Plan) Import(id string) (ImportRef, bool) {
	for _, ref := range p.Imports {
		if ref.ID == id {
			return ref, true
		}
	}
	return ImportRef{}, false
}

// Validate checks the plan is internally consistent: every layer id names
// exactly one resource, every resource is placed exactly once, and every
// dependency is an import or sits in an earlier layer.
func (p *Plan) Validate() error {
	resources := make(map[string]ResourceNode, len(p.Resources))
	for _, r := range p.Resources {
		if _, dup := resources[r.ID]; dup {
			return fmt.Errorf("resource %s is listed twice", r.ID)
		}
		resources[r.ID] = r
	}
	imports := make(map[string]bool, len(p.Imports))
	for _, ref := range p.Imports {
		if _, clash := resources[ref.ID]; clash || imports[ref.ID] {
			return fmt.Errorf("import %s is listed twice", ref.ID)
		}
		imports[ref.ID] = true
	}

	layerOf := make(map[string]int, len(p.Resources))
	for i, layer := range p.Layers {
		for _, id := range layer.Nodes {
			if _, ok := resources[id]; !ok {
				return fmt.Errorf("plan layer %d references unknown resource %s", i, id)
			}
			if prev, seen := layerOf[id]; seen {
				return fmt.Errorf("resource %s is placed in layers %d and %d", id, prev, i)
			}
			layerOf[id] = i
		}
	}

	for _, r := range p.Resources {
		layer, ok := layerOf[r.ID]
		if !ok {
			return fmt.Errorf("resource %s is not placed in any layer", r.ID)
		}
		for _, dep := range r.DependsOn {
			if imports[dep] {
				continue
			}
			depLayer, ok := layerOf[dep]
			if !ok {
				return fmt.Errorf("resource %s depends on %s, which is not in the plan", r.ID, dep)
			}
			if depLayer >= layer {
				return fmt.Errorf("resource %s in layer %d depends on %s in layer %d", r.ID, layer, dep, depLayer)
			}
		}
	}
	return nil
}
