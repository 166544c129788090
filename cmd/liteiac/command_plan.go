package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sourceplane/liteiac/internal/model"
	"github.com/sourceplane/liteiac/internal/render"
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Generate a layered plan from a stack",
	RunE: func(cmd *cobra.Command, args []string) error {
		return generatePlan()
	},
}

func registerPlanCommand(root *cobra.Command) {
	root.AddCommand(planCmd)

	planCmd.Flags().StringVarP(&stackFile, "stack", "s", "stack.yaml", "Stack file path")
	planCmd.Flags().StringVarP(&outputFile, "output", "o", "plan.json", "Output plan file path (.json, .yaml or .txt)")
	planCmd.Flags().BoolVar(&debugMode, "debug", false, "Enable debug output")
	planCmd.Flags().StringVarP(&viewPlan, "view", "v", "", "View plan (dag/dependencies/resource=ID)")
	planCmd.Flags().StringSliceVarP(&targets, "target", "t", nil, "Restrict the plan to these resources and their dependencies")
	planCmd.Flags().StringToStringVar(&cliVars, "var", nil, "Stack variable override (name=value)")
}

func generatePlan() error {
	plan, _, err := buildPlan(stackFile, stackVars(), targets)
	if err != nil {
		return err
	}

	renderer := render.NewRenderer()
	if debugMode {
		fmt.Fprintln(out, "\n"+renderer.DebugDump(plan))
	}

	if err := renderer.WritePlan(plan, outputFile); err != nil {
		return fmt.Errorf("failed to write plan: %w", err)
	}

	done("Plan generated with %d resources in %d layers", len(plan.Resources), len(plan.Layers))
	done("Saved to: %s", outputFile)

	if viewPlan != "" {
		fmt.Fprintln(out, "\n"+viewFor(plan, viewPlan))
	}
	return nil
}

func viewFor(plan *model.Plan, view string) string {
	viewer := render.NewPlanViewer(plan)
	switch {
	case view == "dependencies":
		return viewer.ViewDependencies()
	case view == "text":
		return string(render.NewRenderer().RenderText(plan))
	case strings.HasPrefix(view, "resource="):
		return viewer.ViewByResource(strings.TrimPrefix(view, "resource="))
	default:
		return viewer.ViewDAG()
	}
}
