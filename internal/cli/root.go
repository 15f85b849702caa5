// Package cli wires configuration, the selection pipeline and reporting into
// the testscope command tree.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// Process exit codes.
const (
	ExitOK      = 0
	ExitFailure = 1 // a selected test failed or errored, or the run was cancelled
	ExitFatal   = 2 // configuration, change set or test discovery failure
)

// exitError carries the process exit code out of a RunE.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit status %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error {
	return e.err
}

func fatal(err error) error {
	return &exitError{code: ExitFatal, err: err}
}

// NewRootCommand builds the full command tree.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "testscope",
		Short: "Run only the tests affected by your changes",
		Long: `testscope finds the methods and functions declared in the files changed since
a git baseline, indexes every test file by the symbols its tests call and runs
just the tests that call a changed symbol.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().String("config", "", "config file (default is <repo>/.testscope.yaml)")
	root.PersistentFlags().String("repo", ".", "repository root")
	root.PersistentFlags().BoolP("verbose", "v", false, "verbose output")
	root.PersistentFlags().String("log-format", "text", "log format: text or json")

	root.AddCommand(
		newRunCommand(),
		newSelectCommand(),
		newSymbolsCommand(),
		newVersionCommand(),
	)
	return root
}

// Execute runs the command line and returns the process exit code. It is
// called by main.main().
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return execute(ctx, os.Args[1:], os.Stdout, os.Stderr)
}

func execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	root := NewRootCommand()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return ExitOK
	}

	var exitErr *exitError
	if errors.As(err, &exitErr) {
		if exitErr.err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", exitErr.err)
		}
		return exitErr.code
	}

	// flag and argument errors from cobra
	fmt.Fprintf(stderr, "Error: %v\n", err)
	return ExitFatal
}
