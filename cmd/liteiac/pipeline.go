package main

import (
	"fmt"

	"github.com/sourceplane/liteiac/internal/expand"
	"github.com/sourceplane/liteiac/internal/loader"
	"github.com/sourceplane/liteiac/internal/model"
	"github.com/sourceplane/liteiac/internal/normalize"
	"github.com/sourceplane/liteiac/internal/planner"
	"github.com/sourceplane/liteiac/internal/schema"
)

// compiled is a stack carried through validation, normalization and
// reference expansion, with its dependency graph
type compiled struct {
	Stack     *model.Stack
	Expansion *expand.Expansion
	Graph     *planner.Graph
}

func compileStack(path string, vars map[string]string) (*compiled, error) {
	step("Loading stack...")
	doc, err := loader.LoadDocument(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load stack: %w", err)
	}

	step("Validating stack against schema...")
	validator, err := schema.NewValidator()
	if err != nil {
		return nil, err
	}
	if err := validator.ValidateStack(doc); err != nil {
		return nil, err
	}

	stack, err := loader.LoadStack(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load stack: %w", err)
	}

	step("Normalizing stack...")
	normalized, err := normalize.NormalizeStack(stack, vars)
	if err != nil {
		return nil, fmt.Errorf("failed to normalize stack: %w", err)
	}

	step("Inferring dependencies from references...")
	expansion := expand.NewExpander(normalized).Expand()

	step("Building dependency graph...")
	graph, err := planner.FromStack(expansion.Stack)
	if err != nil {
		return nil, fmt.Errorf("failed to build graph: %w", err)
	}

	return &compiled{Stack: normalized, Expansion: expansion, Graph: graph}, nil
}

// buildPlan compiles the stack and layers it
func buildPlan(path string, vars map[string]string, only []string) (*model.Plan, *compiled, error) {
	c, err := compileStack(path, vars)
	if err != nil {
		return nil, nil, err
	}

	step("Layering plan...")
	plan, err := planner.Build(c.Graph, planner.BuildOptions{
		Metadata: c.Stack.Metadata,
		Targets:  only,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build plan: %w", err)
	}
	return plan, c, nil
}
