package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// FileName is the config file looked up in the repository root, with any
// extension viper understands (.yaml, .yml, .json, .toml).
const FileName = ".testscope"

const envPrefix = "TESTSCOPE"

// Loader resolves a Config from, lowest to highest priority: defaults, the
// config file, TESTSCOPE_* environment variables and explicitly set flags.
type Loader struct {
	rootDir    string
	configFile string
	flags      *pflag.FlagSet
	bindings   map[string]string
}

func NewLoader(rootDir string) *Loader {
	return &Loader{rootDir: rootDir}
}

// WithConfigFile uses path instead of searching the root directory.
func (l *Loader) WithConfigFile(path string) *Loader {
	l.configFile = path
	return l
}

// WithFlags binds config keys to flag names in fs. Flags that were not set
// on the command line do not override lower layers.
func (l *Loader) WithFlags(fs *pflag.FlagSet, bindings map[string]string) *Loader {
	l.flags = fs
	l.bindings = bindings
	return l
}

func (l *Loader) Load() (*Config, error) {
	v := viper.New()

	if l.configFile != "" {
		v.SetConfigFile(l.configFile)
	} else {
		v.SetConfigName(FileName)
		v.AddConfigPath(l.rootDir)
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if l.flags != nil {
		for key, name := range l.bindings {
			flag := l.flags.Lookup(name)
			if flag == nil {
				continue
			}
			if err := v.BindPFlag(key, flag); err != nil {
				return nil, fmt.Errorf("failed to bind flag --%s: %w", name, err)
			}
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if l.configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.Execution.Commands = normalizeCommands(cfg.Execution.Commands)

	if cfg.RepoRoot == "" || cfg.RepoRoot == "." {
		cfg.RepoRoot = l.rootDir
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ConfigFileUsed reports which file Load would read, or "" when none exists.
func (l *Loader) ConfigFileUsed() string {
	if l.configFile != "" {
		return l.configFile
	}
	v := viper.New()
	v.SetConfigName(FileName)
	v.AddConfigPath(l.rootDir)
	if err := v.ReadInConfig(); err != nil {
		return ""
	}
	return filepath.Clean(v.ConfigFileUsed())
}

func setDefaults(v *viper.Viper) {
	defaults := Default()

	v.SetDefault("repo_root", defaults.RepoRoot)
	v.SetDefault("test_root", defaults.TestRoot)
	v.SetDefault("baseline", defaults.Baseline)
	v.SetDefault("files", defaults.Files)

	v.SetDefault("analysis.workers", defaults.Analysis.Workers)
	v.SetDefault("analysis.include", defaults.Analysis.Include)
	v.SetDefault("analysis.exclude", defaults.Analysis.Exclude)
	v.SetDefault("analysis.respect_gitignore", defaults.Analysis.RespectGitignore)
	v.SetDefault("analysis.hunks_only", defaults.Analysis.HunksOnly)

	v.SetDefault("java.test_annotations", defaults.Java.TestAnnotations)

	v.SetDefault("selection.min_symbol_length", defaults.Selection.MinSymbolLength)
	v.SetDefault("selection.ignore_symbols", defaults.Selection.IgnoreSymbols)
	v.SetDefault("selection.include_changed_tests", defaults.Selection.IncludeChangedTests)

	v.SetDefault("execution.concurrency", defaults.Execution.Concurrency)
	v.SetDefault("execution.timeout", defaults.Execution.Timeout)
	v.SetDefault("execution.max_output_bytes", defaults.Execution.MaxOutputBytes)
	v.SetDefault("execution.dry_run", defaults.Execution.DryRun)
	for _, lang := range []string{"java", "go", "python", "typescript", "c"} {
		v.BindEnv("execution.commands." + lang)
	}

	v.SetDefault("report.path", defaults.Report.Path)
	v.SetDefault("report.format", defaults.Report.Format)

	v.SetDefault("log.format", defaults.Log.Format)
	v.SetDefault("log.verbose", defaults.Log.Verbose)
}
