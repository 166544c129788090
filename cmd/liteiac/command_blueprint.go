package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sourceplane/liteiac/internal/blueprint"
	"github.com/sourceplane/liteiac/internal/loader"
)

var (
	blueprintOpts   = blueprint.DefaultOptions()
	blueprintOutput string
)

var blueprintCmd = &cobra.Command{
	Use:   "blueprint",
	Short: "Print the game server stack",
	Long:  "Generate the canonical container game server stack (network, cluster, task role, Fargate task, service) as a stack document. Optional parts are controlled by feature flags.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return writeBlueprint()
	},
}

func registerBlueprintCommand(root *cobra.Command) {
	root.AddCommand(blueprintCmd)

	f := blueprintCmd.Flags()
	f.StringVarP(&blueprintOutput, "output", "o", "", "Write the stack to this file instead of stdout")
	f.StringVar(&blueprintOpts.Name, "name", blueprintOpts.Name, "Stack name")
	f.StringVar(&blueprintOpts.Image, "image", blueprintOpts.Image, "Server container image")
	f.IntVar(&blueprintOpts.Port, "port", blueprintOpts.Port, "Game port (tcp)")
	f.IntVar(&blueprintOpts.CPU, "cpu", blueprintOpts.CPU, "Task CPU units")
	f.IntVar(&blueprintOpts.MemoryMiB, "memory", blueprintOpts.MemoryMiB, "Task memory in MiB")
	f.IntVar(&blueprintOpts.DesiredCount, "desired-count", blueprintOpts.DesiredCount, "Service desired task count")
	f.IntVar(&blueprintOpts.MaxAzs, "max-azs", blueprintOpts.MaxAzs, "Availability zones for the network")
	f.StringToStringVar(&blueprintOpts.Environment, "container-env", blueprintOpts.Environment, "Server container environment")
	f.BoolVar(&blueprintOpts.Filesystem, "filesystem", false, "Add persistent storage")
	f.BoolVar(&blueprintOpts.LoadBalancer, "load-balancer", false, "Front the service with a load balancer")
	f.StringVar(&blueprintOpts.Domain, "domain", "", "Import this hosted zone for a DNS record (requires --load-balancer)")
	f.BoolVar(&blueprintOpts.Watchdog, "watchdog", false, "Add the idle watchdog sidecar")
	f.IntVar(&blueprintOpts.IdleTimeoutSeconds, "idle-timeout", blueprintOpts.IdleTimeoutSeconds, "Watchdog idle timeout in seconds")
}

func writeBlueprint() error {
	stack, err := blueprint.GameServer(blueprintOpts)
	if err != nil {
		return err
	}

	if blueprintOutput != "" {
		if err := loader.WriteStack(stack, blueprintOutput); err != nil {
			return err
		}
		done("Stack %s written to %s", stack.Metadata.Name, blueprintOutput)
		return nil
	}

	data, err := loader.MarshalStack(stack)
	if err != nil {
		return err
	}
	fmt.Fprint(out, string(data))
	return nil
}
