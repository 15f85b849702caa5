package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/agusespa/testscope/internal/impact"
	"github.com/agusespa/testscope/internal/pipeline"
	"github.com/agusespa/testscope/internal/report"
	"github.com/agusespa/testscope/internal/runner"
	"github.com/agusespa/testscope/internal/tools"
	"github.com/agusespa/testscope/pkg/config"
	"github.com/spf13/cobra"
)

// flagBindings maps config keys to the flags that override them.
var flagBindings = map[string]string{
	"repo_root":                       "repo",
	"test_root":                       "tests",
	"baseline":                        "baseline",
	"files":                           "files",
	"analysis.workers":                "workers",
	"analysis.include":                "include",
	"analysis.exclude":                "exclude",
	"analysis.respect_gitignore":      "gitignore",
	"analysis.hunks_only":             "hunks-only",
	"selection.min_symbol_length":     "min-symbol-length",
	"selection.ignore_symbols":        "ignore-symbol",
	"selection.include_changed_tests": "include-changed-tests",
	"execution.concurrency":           "jobs",
	"execution.timeout":               "timeout",
	"execution.dry_run":               "dry-run",
	"report.path":                     "report",
	"report.format":                   "format",
	"log.verbose":                     "verbose",
	"log.format":                      "log-format",
}

func newRunCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Select and run the tests impacted by changes since the baseline",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSelection(cmd, true)
		},
	}
	addSelectionFlags(cmd)
	cmd.Flags().IntP("jobs", "j", runner.DefaultConcurrency, "number of tests to run in parallel")
	cmd.Flags().Duration("timeout", runner.DefaultTimeout, "per-test timeout")
	cmd.Flags().Bool("dry-run", false, "select tests but do not run them")
	return cmd
}

func newSelectCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "select",
		Short: "List the tests impacted by changes since the baseline without running them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSelection(cmd, false)
		},
	}
	addSelectionFlags(cmd)
	return cmd
}

func addSelectionFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("tests", "", "directory to search for test files (default is the repository root)")
	f.String("baseline", tools.DefaultBaseline, "git revision to diff the working tree against")
	f.StringSlice("files", nil, "explicit changed files, bypassing git")
	f.Int("workers", 0, "parallel parsing workers (default is GOMAXPROCS)")
	f.StringSlice("include", nil, "glob patterns that identify test files")
	f.StringSlice("exclude", nil, "glob patterns to skip during test discovery")
	f.Bool("gitignore", true, "skip files matched by .gitignore during test discovery")
	f.Bool("hunks-only", false, "only count declarations that overlap a changed line")
	f.Int("min-symbol-length", 0, "ignore changed symbols shorter than this")
	f.StringSlice("ignore-symbol", nil, "changed symbol names to ignore")
	f.Bool("include-changed-tests", false, "also select test files that changed themselves")
	f.String("report", "", "write the run report to this file")
	f.String("format", "", "report format: json, yaml or md (default from the file extension)")
}

func newConfigLoader(cmd *cobra.Command) *config.Loader {
	flags := cmd.Flags()
	repo, _ := flags.GetString("repo")
	configFile, _ := flags.GetString("config")

	loader := config.NewLoader(repo).WithFlags(flags, flagBindings)
	if configFile != "" {
		loader.WithConfigFile(configFile)
	}
	return loader
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	return newConfigLoader(cmd).Load()
}

func runSelection(cmd *cobra.Command, execute bool) error {
	loader := newConfigLoader(cmd)
	cfg, err := loader.Load()
	if err != nil {
		return fatal(err)
	}

	stdout := cmd.OutOrStdout()
	stderr := cmd.ErrOrStderr()
	logger := newLogger(stderr, cfg.Log)
	logger.Debug("configuration loaded",
		slog.String("config_file", loader.ConfigFileUsed()),
		slog.String("repo_root", cfg.RepoRoot),
	)
	interactive := isTerminal(stderr)

	if execute && cfg.Execution.DryRun {
		execute = false
	}

	format, err := report.ParseFormat(cfg.Report.Format, cfg.Report.Path)
	if err != nil {
		return fatal(err)
	}

	p, err := newPipeline(cfg, execute, interactive, stdout, stderr, logger)
	if err != nil {
		return fatal(err)
	}

	rep, err := p.Run(cmd.Context())
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return &exitError{code: ExitFailure, err: fmt.Errorf("run cancelled: %w", err)}
		}
		return fatal(err)
	}

	report.PrintSummary(stdout, rep)

	if cfg.Report.Path != "" {
		if err := report.Save(rep, cfg.Report.Path, format); err != nil {
			return fatal(err)
		}
		fmt.Fprintf(stdout, "Report saved to: %s\n", cfg.Report.Path)
		if err := report.CheckIgnored(cfg.RepoRoot, cfg.Report.Path); err != nil {
			logger.Warn("report file is not ignored by git and will show up as a change", slog.String("reason", err.Error()))
		}
	}

	if code := rep.ExitCode(); code != ExitOK {
		return &exitError{code: code}
	}
	return nil
}

func newPipeline(cfg *config.Config, execute, interactive bool, stdout, stderr io.Writer, logger *slog.Logger) (*pipeline.Pipeline, error) {
	registry := tools.NewParserRegistry(tools.ParserOptions{
		JavaTestAnnotations: cfg.Java.TestAnnotations,
	})

	var changes tools.ChangeSetProvider
	if len(cfg.Files) > 0 {
		changes = tools.NewStaticChangeSet(cfg.Files)
	} else {
		changes = tools.NewGitChangeSet(cfg.RepoRoot, cfg.Baseline, logger)
	}

	discovery, err := tools.NewTestDiscovery(cfg.RepoRoot, cfg.TestRoot, registry, tools.DiscoveryOptions{
		Include:          cfg.Analysis.Include,
		Exclude:          cfg.Analysis.Exclude,
		RespectGitignore: cfg.Analysis.RespectGitignore,
	})
	if err != nil {
		return nil, err
	}

	var executor *runner.Executor
	if execute {
		testRunner := runner.NewCommandRunner(runner.CommandRunnerOptions{
			Commands:       runner.MergeCommands(cfg.Execution.Commands),
			Timeout:        cfg.Execution.Timeout,
			MaxOutputBytes: cfg.Execution.MaxOutputBytes,
			WorkingDir:     cfg.RepoRoot,
		}, logger)
		executor = runner.NewExecutor(testRunner, cfg.Execution.Concurrency, newObserver(stderr, interactive, logger), logger)
	}

	deps := pipeline.Deps{
		Registry: registry,
		Changes:  changes,
		Tests:    discovery,
		Executor: executor,
		Out:      stdout,
		Logger:   logger,
	}
	if interactive {
		deps.Progress = stderr
	}

	filter := impact.SymbolFilter{
		MinLength: cfg.Selection.MinSymbolLength,
		Deny:      cfg.Selection.IgnoreSymbols,
	}
	logger.Debug("symbol filter", slog.Bool("enabled", filter.Enabled()),
		slog.Int("min_length", filter.MinLength), slog.Int("deny", len(filter.Deny)))

	return pipeline.New(pipeline.Options{
		RepoRoot:            cfg.RepoRoot,
		Workers:             cfg.Analysis.Workers,
		HunksOnly:           cfg.Analysis.HunksOnly,
		IncludeChangedTests: cfg.Selection.IncludeChangedTests,
		DryRun:              !execute,
		Filter:              filter,
	}, deps), nil
}
