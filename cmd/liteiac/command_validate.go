package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a stack: schema, kinds, references and cycles",
	RunE: func(cmd *cobra.Command, args []string) error {
		return validateStack()
	},
}

func registerValidateCommand(root *cobra.Command) {
	root.AddCommand(validateCmd)

	validateCmd.Flags().StringVarP(&stackFile, "stack", "s", "stack.yaml", "Stack file path")
	validateCmd.Flags().BoolVar(&debugMode, "debug", false, "Enable debug output")
	validateCmd.Flags().StringToStringVar(&cliVars, "var", nil, "Stack variable override (name=value)")
}

func validateStack() error {
	c, err := compileStack(stackFile, stackVars())
	if err != nil {
		return err
	}

	step("Detecting cycles...")
	if err := c.Graph.Validate(); err != nil {
		return err
	}

	if debugMode {
		fmt.Fprintf(out, "\nMetadata: %+v\n", c.Stack.Metadata)
		fmt.Fprintf(out, "Features: %v\n", c.Stack.Features)
		fmt.Fprintf(out, "Imports: %d\n", len(c.Stack.Imports))
		for _, ref := range c.Stack.Imports {
			fmt.Fprintf(out, "  - %s\n", ref)
		}
		fmt.Fprintf(out, "Resources: %d\n", len(c.Stack.Resources))
		for _, decl := range c.Expansion.Stack.Resources {
			fmt.Fprintf(out, "  - %s: kind=%s, deps=%v, inferred=%v\n",
				decl.ID, decl.Kind, decl.DependsOn, c.Expansion.Inferred[decl.ID])
		}
	}

	done("Stack %s is valid (%d resources, %d imports)", c.Stack.Metadata.Name, c.Graph.Len(), len(c.Graph.Imports()))
	return nil
}
