package render

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sourceplane/liteiac/internal/model"
)

const rule = "═══════════════════════════════════════════════════════════\n"

// PlanViewer provides human-readable visualization of a plan DAG
type PlanViewer struct {
	plan  *model.Plan
	index map[string]model.ResourceNode
}

// NewPlanViewer creates a new plan viewer
func NewPlanViewer(plan *model.Plan) *PlanViewer {
	return &PlanViewer{plan: plan, index: plan.ResourceIndex()}
}

// ViewDAG returns a tree view of the plan grouped by layer
func (pv *PlanViewer) ViewDAG() string {
	if len(pv.plan.Layers) == 0 && len(pv.plan.Imports) == 0 {
		return "No resources in plan"
	}

	var sb strings.Builder

	if len(pv.plan.Imports) > 0 {
		sb.WriteString("imports\n")
		for i, ref := range pv.plan.Imports {
			prefix := "├─ "
			if i == len(pv.plan.Imports)-1 {
				prefix = "└─ "
			}
			sb.WriteString(fmt.Sprintf("%s%s [%s] = %s\n", prefix, ref.ID, ref.Kind, ref.Key))
		}
		sb.WriteString("\n")
	}

	for i, layer := range pv.plan.Layers {
		isLastLayer := i == len(pv.plan.Layers)-1

		layerPrefix := "├─ "
		layerConnector := "│  "
		if isLastLayer {
			layerPrefix = "└─ "
			layerConnector = "   "
		}
		sb.WriteString(fmt.Sprintf("%slayer %d\n", layerPrefix, layer.Index))

		for j, id := range layer.Nodes {
			isLastNode := j == len(layer.Nodes)-1
			node := pv.index[id]

			nodePrefix := layerConnector + "├─ "
			nodeConnector := layerConnector + "│"
			if isLastNode {
				nodePrefix = layerConnector + "└─ "
				nodeConnector = layerConnector + " "
			}
			sb.WriteString(fmt.Sprintf("%s%s [%s]\n", nodePrefix, id, node.Kind))

			for k, dep := range node.DependsOn {
				depPrefix := nodeConnector + "  ├─ "
				if k == len(node.DependsOn)-1 {
					depPrefix = nodeConnector + "  └─ "
				}
				label := "(depends on)"
				if _, ok := pv.plan.Import(dep); ok {
					label = "(imports)"
				}
				sb.WriteString(fmt.Sprintf("%s%s %s\n", depPrefix, label, dep))
			}
		}
	}

	sb.WriteString("\n")
	sb.WriteString(rule)
	sb.WriteString(fmt.Sprintf("Summary: %d layers, %d resources, %d imports\n",
		len(pv.plan.Layers), len(pv.plan.Resources), len(pv.plan.Imports)))

	return sb.String()
}

// ViewByResource shows a single resource with its config and dependencies
func (pv *PlanViewer) ViewByResource(id string) string {
	node, ok := pv.index[id]
	if !ok {
		return fmt.Sprintf("No resource found: %s", id)
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s [%s]\n", node.ID, node.Kind))
	sb.WriteString(rule + "\n")

	for _, layer := range pv.plan.Layers {
		for _, n := range layer.Nodes {
			if n == id {
				sb.WriteString(fmt.Sprintf("Layer: %d\n", layer.Index))
			}
		}
	}

	if len(node.DependsOn) > 0 {
		sb.WriteString("Dependencies:\n")
		for _, dep := range node.DependsOn {
			sb.WriteString(fmt.Sprintf("  %s\n", dep))
		}
	}

	if len(node.Config) > 0 {
		keys := make([]string, 0, len(node.Config))
		for k := range node.Config {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		sb.WriteString("Config:\n")
		for i, k := range keys {
			prefix := "├─ "
			if i == len(keys)-1 {
				prefix = "└─ "
			}
			value := fmt.Sprintf("%v", node.Config[k])
			if len(value) > 60 {
				value = value[:57] + "..."
			}
			sb.WriteString(fmt.Sprintf("  %s%s: %s\n", prefix, k, value))
		}
	}

	return sb.String()
}

// ViewDependencies shows resource dependencies in a focused way
func (pv *PlanViewer) ViewDependencies() string {
	if len(pv.plan.Resources) == 0 {
		return "No resources in plan"
	}

	var sb strings.Builder
	sb.WriteString("Resource Dependencies\n")
	sb.WriteString(rule + "\n")

	resources := append([]model.ResourceNode(nil), pv.plan.Resources...)
	sort.Slice(resources, func(a, b int) bool {
		return resources[a].ID < resources[b].ID
	})

	for i, res := range resources {
		prefix := "├─ "
		if i == len(resources)-1 {
			prefix = "└─ "
		}

		sb.WriteString(fmt.Sprintf("%s%s (%s)\n", prefix, res.ID, res.Kind))

		if len(res.DependsOn) == 0 {
			sb.WriteString("   (no dependencies)\n")
		} else {
			for j, dep := range res.DependsOn {
				depPrefix := "  ├─ "
				if j == len(res.DependsOn)-1 {
					depPrefix = "  └─ "
				}
				sb.WriteString(fmt.Sprintf("%s(depends on) %s\n", depPrefix, dep))
			}
		}
		sb.WriteString("\n")
	}

	return sb.String()
}
