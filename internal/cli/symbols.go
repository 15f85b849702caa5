package cli

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/agusespa/testscope/internal/tools"
	"github.com/spf13/cobra"
)

func newSymbolsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "symbols FILE...",
		Short: "Print the symbols a file declares and, for test files, the calls each test makes",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return fatal(err)
			}

			registry := tools.NewParserRegistry(tools.ParserOptions{
				JavaTestAnnotations: cfg.Java.TestAnnotations,
			})
			reader := tools.NewSourceReader(cfg.RepoRoot, registry)

			var failed []string
			for _, arg := range args {
				path, err := filepath.Abs(arg)
				if err != nil {
					return fatal(err)
				}
				if err := printSymbols(cmd.OutOrStdout(), reader, registry, path); err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", arg, err)
					failed = append(failed, arg)
				}
			}

			if len(failed) > 0 {
				return &exitError{code: ExitFailure, err: fmt.Errorf("could not read symbols from %s", strings.Join(failed, ", "))}
			}
			return nil
		},
	}
}

func printSymbols(w io.Writer, reader *tools.SourceReader, registry *tools.ParserRegistry, path string) error {
	unit, err := reader.Read(path)
	if errors.Is(err, tools.ErrUnsupportedFile) {
		return fmt.Errorf("%w (supported languages: %s)", err, strings.Join(registry.GetSupportedLanguages(), ", "))
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "%s (%s)\n", unit.Path, unit.Language)

	decls, err := registry.Declarations(unit.Path, unit.Content)
	if err != nil {
		return err
	}
	for _, d := range decls {
		fmt.Fprintf(w, "   %-8s %s  %d-%d\n", d.Kind, d.Name, d.StartLine, d.EndLine)
	}

	if !registry.IsTestFile(unit.Path) {
		return nil
	}

	testFile, err := registry.GetParser(unit.Path).TestCalls(unit.Path, unit.Content)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "   test unit %s\n", testFile.ID)
	for _, m := range testFile.Methods {
		fmt.Fprintf(w, "   ✓ %s -> %s\n", m.Name, strings.Join(m.Calls, ", "))
	}
	return nil
}
