package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sourceplane/liteiac/internal/expand"
	"github.com/sourceplane/liteiac/internal/planner"
)

var graphCmd = &cobra.Command{
	Use:   "graph [resource-id]",
	Short: "Show resource dependencies",
	Long:  "List every resource with its direct, inferred and transitive dependencies. Use 'liteiac graph <id>' for a single resource or --dot for Graphviz output.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return showGraph(args)
	},
}

func registerGraphCommand(root *cobra.Command) {
	root.AddCommand(graphCmd)

	graphCmd.Flags().StringVarP(&stackFile, "stack", "s", "stack.yaml", "Stack file path")
	graphCmd.Flags().BoolVar(&dotOutput, "dot", false, "Print the graph in Graphviz dot format")
	graphCmd.Flags().StringToStringVar(&cliVars, "var", nil, "Stack variable override (name=value)")
}

func showGraph(args []string) error {
	c, err := compileStack(stackFile, stackVars())
	if err != nil {
		return err
	}

	if dotOutput {
		fmt.Fprint(out, renderDot(c.Graph))
		return nil
	}

	analyzer := expand.NewResourceAnalyzer(c.Expansion, c.Graph)
	if len(args) > 0 {
		summary, err := analyzer.Describe(args[0])
		if err != nil {
			return err
		}
		printSummary(summary)
		return nil
	}

	fmt.Fprintln(out, "\nResources:")
	for _, summary := range analyzer.ListAll() {
		printSummary(summary)
	}
	return nil
}

func printSummary(s *expand.ResourceSummary) {
	fmt.Fprintf(out, "\n[%s] %s\n", s.Kind, s.ID)
	if len(s.Dependencies) > 0 {
		fmt.Fprintf(out, "  Depends on:   %s\n", strings.Join(s.Dependencies, ", "))
	}
	if len(s.Inferred) > 0 {
		fmt.Fprintf(out, "  Inferred:     %s\n", strings.Join(s.Inferred, ", "))
	}
	if len(s.Dependents) > 0 {
		fmt.Fprintf(out, "  Required by:  %s\n", strings.Join(s.Dependents, ", "))
	}
	if len(s.AllDeps) > 0 {
		fmt.Fprintf(out, "  All deps:     %s\n", strings.Join(s.AllDeps, ", "))
	}
	if len(s.AllAffected) > 0 {
		fmt.Fprintf(out, "  All affected: %s\n", strings.Join(s.AllAffected, ", "))
	}
}

func renderDot(g *planner.Graph) string {
	var sb strings.Builder
	sb.WriteString("digraph liteiac {\n")
	sb.WriteString("  rankdir=LR;\n")
	for _, ref := range g.Imports() {
		sb.WriteString(fmt.Sprintf("  %q [shape=box, style=dashed, label=\"%s\\n(%s)\"];\n", ref.ID, ref.ID, ref.Kind))
	}
	for _, id := range g.IDs() {
		node, _ := g.Node(id)
		sb.WriteString(fmt.Sprintf("  %q [label=\"%s\\n(%s)\"];\n", id, id, node.Kind))
	}
	for _, edge := range g.Edges() {
		sb.WriteString(fmt.Sprintf("  %q -> %q;\n", edge[0], edge[1]))
	}
	sb.WriteString("}\n")
	return sb.String()
}
