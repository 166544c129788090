package main

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/sourceplane/liteiac/internal/loader"
	"github.com/sourceplane/liteiac/internal/state"
)

var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Inspect recorded outputs and apply history",
}

var stateListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded outputs of a stack",
	RunE: func(cmd *cobra.Command, args []string) error {
		return listOutputs(cmd.Context())
	},
}

var stateRunsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List apply runs, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		return listRuns(cmd.Context())
	},
}

var stateForgetCmd = &cobra.Command{
	Use:   "forget <resource-id>...",
	Short: "Drop recorded outputs so the resources are created again",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return forgetOutputs(cmd.Context(), args)
	},
}

func registerStateCommand(root *cobra.Command) {
	root.AddCommand(stateCmd)
	stateCmd.AddCommand(stateListCmd, stateRunsCmd, stateForgetCmd)

	stateCmd.PersistentFlags().StringVarP(&stackFile, "stack", "s", "stack.yaml", "Stack file used to find the stack name")
	stateCmd.PersistentFlags().StringVar(&stackName, "name", "", "Stack name (overrides the name in --stack)")
	stateRunsCmd.Flags().IntVar(&runsLimit, "limit", 20, "Maximum number of runs to show")
}

// resolveStackName prefers --name, then the stack file's metadata.name
func resolveStackName() (string, error) {
	if stackName != "" {
		return stackName, nil
	}
	stack, err := loader.LoadStack(stackFile)
	if err != nil {
		return "", fmt.Errorf("no --name given and %w", err)
	}
	return stack.Metadata.Name, nil
}

func openState() (*state.SQLite, error) {
	return state.OpenSQLite(cfg.StatePath)
}

func listOutputs(ctx context.Context) error {
	name, err := resolveStackName()
	if err != nil {
		return err
	}
	store, err := openState()
	if err != nil {
		return err
	}
	defer store.Close()

	outputs, err := store.Outputs(contextOrBackground(ctx), name)
	if err != nil {
		return err
	}
	if len(outputs) == 0 {
		fmt.Fprintf(out, "No recorded outputs for stack %s\n", name)
		return nil
	}

	ids := make([]string, 0, len(outputs))
	for id := range outputs {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	fmt.Fprintf(out, "Recorded outputs for %s (%s):\n", name, store.Path())
	for _, id := range ids {
		o := outputs[id]
		fmt.Fprintf(out, "  %s  %s\n", id, o.ID)
		keys := make([]string, 0, len(o.Attributes))
		for k := range o.Attributes {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(out, "      %s = %s\n", k, o.Attributes[k])
		}
	}
	return nil
}

func listRuns(ctx context.Context) error {
	store, err := openState()
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.ListRuns(contextOrBackground(ctx), stackName, runsLimit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs recorded")
		return nil
	}
	for _, r := range runs {
		duration := "-"
		if !r.FinishedAt.IsZero() {
			duration = r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond).String()
		}
		fmt.Fprintf(out, "%s  %-10s %-9s %s  %s  events=%d\n",
			r.ID, r.Stack, r.Status, r.StartedAt.Format(time.RFC3339), duration, r.Events)
	}
	return nil
}

func forgetOutputs(ctx context.Context, ids []string) error {
	name, err := resolveStackName()
	if err != nil {
		return err
	}
	store, err := openState()
	if err != nil {
		return err
	}
	defer store.Close()

	for _, id := range ids {
		if err := store.Forget(contextOrBackground(ctx), name, id); err != nil {
			return err
		}
		done("Forgot %s/%s", name, id)
	}
	return nil
}

func contextOrBackground(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
