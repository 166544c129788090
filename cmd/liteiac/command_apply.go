package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sourceplane/liteiac/internal/backend"
	"github.com/sourceplane/liteiac/internal/backend/local"
	"github.com/sourceplane/liteiac/internal/config"
	"github.com/sourceplane/liteiac/internal/loader"
	"github.com/sourceplane/liteiac/internal/model"
	"github.com/sourceplane/liteiac/internal/runner"
	"github.com/sourceplane/liteiac/internal/state"
)

var applyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Apply a stack or a compiled plan",
	Long:  "Build the plan (or load one with --plan) and create every resource layer by layer. Resources with a recorded output are skipped, so re-running after a failure resumes where it stopped.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return applyPlan(cmd.Context())
	},
}

func registerApplyCommand(root *cobra.Command) {
	root.AddCommand(applyCmd)

	applyCmd.Flags().StringVarP(&stackFile, "stack", "s", "stack.yaml", "Stack file path")
	applyCmd.Flags().StringVarP(&planFile, "plan", "p", "", "Apply a plan file instead of building one from the stack")
	applyCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Show what would be created without calling the backend")
	applyCmd.Flags().StringSliceVarP(&targets, "target", "t", nil, "Restrict the apply to these resources and their dependencies")
	applyCmd.Flags().StringToStringVar(&cliVars, "var", nil, "Stack variable override (name=value)")
}

func applyPlan(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	var plan *model.Plan
	var err error
	if planFile != "" {
		step("Loading plan %s...", planFile)
		plan, err = loader.LoadPlan(planFile)
	} else {
		plan, _, err = buildPlan(stackFile, stackVars(), targets)
	}
	if err != nil {
		return err
	}

	store, err := state.OpenSQLite(cfg.StatePath)
	if err != nil {
		return err
	}
	defer store.Close()

	b, err := newBackend(cfg, plan.Metadata.Name)
	if err != nil {
		return err
	}

	executor := runner.NewExecutor(b, store, plan.Metadata.Name)
	executor.Parallelism = cfg.Parallelism
	executor.DryRun = dryRun
	executor.Log = logger
	executor.Stdout = out

	if dryRun {
		step("Dry-run mode enabled, nothing will be created")
	}
	step("Applying %d resources in %d layers...", len(plan.Resources), len(plan.Layers))

	result, err := executor.Apply(ctx, plan)
	if result != nil {
		printResult(result)
	}
	if err != nil {
		var partial *runner.PartialApplyError
		if errors.As(err, &partial) {
			fmt.Fprintf(out, "%s %d succeeded, failed: %s\n", failMark("✗"), len(partial.Succeeded), strings.Join(partial.Failed, ", "))
			fmt.Fprintln(out, "  Re-run apply to resume from the recorded outputs")
		}
		return err
	}

	if dryRun {
		done("Dry-run complete")
	} else {
		done("Apply complete (run %s)", result.RunID)
	}
	return nil
}

func printResult(result *runner.Result) {
	if len(result.Skipped) > 0 {
		fmt.Fprintf(out, "  Skipped (already recorded): %s\n", strings.Join(result.Skipped, ", "))
	}
	if len(result.Created) > 0 {
		fmt.Fprintf(out, "  Created: %s\n", strings.Join(result.Created, ", "))
	}
}

func newBackend(c *config.Config, stack string) (backend.Backend, error) {
	switch c.Backend {
	case config.BackendLocal:
		return local.New(local.Options{
			Account: c.AccountID,
			Region:  c.Region,
			Stack:   stack,
			Zones:   c.Zones,
			Imports: c.Imports,
			Log:     logger.WithName("local"),
		}), nil
	default:
		return nil, fmt.Errorf("unknown backend %q", c.Backend)
	}
}
