package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

type Config struct {
	RepoRoot  string          `yaml:"repo_root" mapstructure:"repo_root"`
	TestRoot  string          `yaml:"test_root" mapstructure:"test_root"`
	Baseline  string          `yaml:"baseline" mapstructure:"baseline"`
	Files     []string        `yaml:"files" mapstructure:"files"` // explicit change list; bypasses git
	Analysis  AnalysisConfig  `yaml:"analysis" mapstructure:"analysis"`
	Java      JavaConfig      `yaml:"java" mapstructure:"java"`
	Selection SelectionConfig `yaml:"selection" mapstructure:"selection"`
	Execution ExecutionConfig `yaml:"execution" mapstructure:"execution"`
	Report    ReportConfig    `yaml:"report" mapstructure:"report"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

type AnalysisConfig struct {
	Workers          int      `yaml:"workers" mapstructure:"workers"` // 0 means GOMAXPROCS
	Include          []string `yaml:"include" mapstructure:"include"`
	Exclude          []string `yaml:"exclude" mapstructure:"exclude"`
	RespectGitignore bool     `yaml:"respect_gitignore" mapstructure:"respect_gitignore"`
	HunksOnly        bool     `yaml:"hunks_only" mapstructure:"hunks_only"`
}

type JavaConfig struct {
	TestAnnotations []string `yaml:"test_annotations" mapstructure:"test_annotations"`
}

type SelectionConfig struct {
	MinSymbolLength     int      `yaml:"min_symbol_length" mapstructure:"min_symbol_length"`
	IgnoreSymbols       []string `yaml:"ignore_symbols" mapstructure:"ignore_symbols"`
	IncludeChangedTests bool     `yaml:"include_changed_tests" mapstructure:"include_changed_tests"`
}

type ExecutionConfig struct {
	Concurrency    int                 `yaml:"concurrency" mapstructure:"concurrency"`
	Timeout        time.Duration       `yaml:"timeout" mapstructure:"timeout"`
	MaxOutputBytes int                 `yaml:"max_output_bytes" mapstructure:"max_output_bytes"`
	DryRun         bool                `yaml:"dry_run" mapstructure:"dry_run"`
	Commands       map[string][]string `yaml:"commands" mapstructure:"commands"` // language -> argv template
}

type ReportConfig struct {
	Path   string `yaml:"path" mapstructure:"path"`
	Format string `yaml:"format" mapstructure:"format"` // json, yaml or md; empty infers from path
}

type LogConfig struct {
	Format  string `yaml:"format" mapstructure:"format"` // text or json
	Verbose bool   `yaml:"verbose" mapstructure:"verbose"`
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		RepoRoot: ".",
		Baseline: "HEAD",
		Analysis: AnalysisConfig{
			Exclude: []string{
				"**/.git/**",
				"**/node_modules/**",
				"**/vendor/**",
				"**/target/**",
				"**/build/**",
				"**/dist/**",
				"**/__pycache__/**",
				"**/.venv/**",
			},
			RespectGitignore: true,
		},
		Java: JavaConfig{
			TestAnnotations: []string{"Test", "ParameterizedTest", "RepeatedTest", "TestFactory", "TestTemplate"},
		},
		Execution: ExecutionConfig{
			Concurrency:    4,
			Timeout:        5 * time.Minute,
			MaxOutputBytes: 1 << 20,
			Commands:       map[string][]string{},
		},
		Log: LogConfig{
			Format: "text",
		},
	}
}

// Validate checks the configuration and reports every problem at once.
func Validate(cfg *Config) error {
	var errs []error

	if strings.TrimSpace(cfg.RepoRoot) == "" {
		errs = append(errs, errors.New("repo_root must not be empty"))
	}
	if strings.TrimSpace(cfg.Baseline) == "" && len(cfg.Files) == 0 {
		errs = append(errs, errors.New("baseline must not be empty unless files are listed"))
	}
	if cfg.Analysis.Workers < 0 {
		errs = append(errs, fmt.Errorf("analysis.workers must be >= 0, got %d", cfg.Analysis.Workers))
	}
	if cfg.Selection.MinSymbolLength < 0 {
		errs = append(errs, fmt.Errorf("selection.min_symbol_length must be >= 0, got %d", cfg.Selection.MinSymbolLength))
	}
	if cfg.Execution.Concurrency <= 0 {
		errs = append(errs, fmt.Errorf("execution.concurrency must be > 0, got %d", cfg.Execution.Concurrency))
	}
	if cfg.Execution.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("execution.timeout must be > 0, got %s", cfg.Execution.Timeout))
	}
	if cfg.Execution.MaxOutputBytes <= 0 {
		errs = append(errs, fmt.Errorf("execution.max_output_bytes must be > 0, got %d", cfg.Execution.MaxOutputBytes))
	}
	for lang, argv := range cfg.Execution.Commands {
		if len(argv) == 0 || strings.TrimSpace(argv[0]) == "" {
			errs = append(errs, fmt.Errorf("execution.commands.%s must not be empty", lang))
		}
	}

	switch strings.ToLower(cfg.Report.Format) {
	case "", "json", "yaml", "yml", "md", "markdown":
	default:
		errs = append(errs, fmt.Errorf("report.format must be json, yaml or md, got %q", cfg.Report.Format))
	}
	switch strings.ToLower(cfg.Log.Format) {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format must be text or json, got %q", cfg.Log.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

// normalizeCommands splits single-string command templates on whitespace so
// "mvn -q test" and [mvn, -q, test] are equivalent.
func normalizeCommands(commands map[string][]string) map[string][]string {
	out := make(map[string][]string, len(commands))
	for lang, argv := range commands {
		if len(argv) == 1 {
			argv = strings.Fields(argv[0])
		}
		out[strings.ToLower(lang)] = argv
	}
	return out
}
