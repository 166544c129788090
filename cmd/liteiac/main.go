package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"

	"github.com/sourceplane/liteiac/internal/planner"
	"github.com/sourceplane/liteiac/internal/resolver"
	"github.com/sourceplane/liteiac/internal/runner"
)

// Exit codes
const (
	exitOK             = 0
	exitError          = 1
	exitCycle          = 2
	exitPartialApply   = 3
	exitImportNotFound = 4
	exitGraph          = 5
)

var (
	out    io.Writer = os.Stdout
	errOut io.Writer = os.Stderr

	okMark   = color.New(color.FgGreen).SprintFunc()
	failMark = color.New(color.FgRed, color.Bold).SprintFunc()
)

func step(format string, args ...interface{}) {
	fmt.Fprintf(out, "□ %s\n", fmt.Sprintf(format, args...))
}

func done(format string, args ...interface{}) {
	fmt.Fprintf(out, "%s %s\n", okMark("✓"), fmt.Sprintf(format, args...))
}

// exitCode maps the error taxonomy onto process exit codes
func exitCode(err error) int {
	if err == nil {
		return exitOK
	}

	var cycleErr *planner.CycleError
	var partialErr *runner.PartialApplyError
	var importErr *resolver.ImportNotFoundError
	var dupErr *planner.DuplicateIDError
	var unknownErr *planner.UnknownNodeError

	switch {
	case errors.As(err, &cycleErr):
		return exitCycle
	case errors.As(err, &partialErr):
		return exitPartialApply
	case errors.As(err, &importErr):
		return exitImportNotFound
	case errors.As(err, &dupErr), errors.As(err, &unknownErr):
		return exitGraph
	default:
		return exitError
	}
}

func main() {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintf(errOut, "%s %v\n", failMark("✗"), err)
	}
	os.Exit(exitCode(err))
}
