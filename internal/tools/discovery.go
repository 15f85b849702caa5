package tools

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gobwas/glob"
	ignore "github.com/sabhiram/go-gitignore"
)

var DefaultExcludePatterns = []string{
	"**/.git/**",
	"**/node_modules/**",
	"**/vendor/**",
	"**/target/**",
	"**/build/**",
	"**/dist/**",
	"**/__pycache__/**",
	"**/.venv/**",
}

type compiledPattern struct {
	pattern string
	glob    glob.Glob
}

// DiscoveryOptions controls which files under the test root count as test
// files.
type DiscoveryOptions struct {
	// Include overrides the per-language naming conventions when set.
	Include          []string
	Exclude          []string
	RespectGitignore bool
}

// TestDiscovery enumerates test files below a test root. Returned paths are
// relative to the repository root.
type TestDiscovery struct {
	repoRoot  string
	testRoot  string
	registry  *ParserRegistry
	include   []compiledPattern
	exclude   []compiledPattern
	gitignore *ignore.GitIgnore
}

func NewTestDiscovery(repoRoot, testRoot string, registry *ParserRegistry, opts DiscoveryOptions) (*TestDiscovery, error) {
	if testRoot == "" {
		testRoot = repoRoot
	} else if !filepath.IsAbs(testRoot) {
		testRoot = filepath.Join(repoRoot, testRoot)
	}

	td := &TestDiscovery{
		repoRoot: repoRoot,
		testRoot: testRoot,
		registry: registry,
	}

	var err error
	if td.include, err = compilePatterns(opts.Include); err != nil {
		return nil, err
	}
	if td.exclude, err = compilePatterns(opts.Exclude); err != nil {
		return nil, err
	}

	if opts.RespectGitignore {
		gitignorePath := filepath.Join(repoRoot, ".gitignore")
		if _, statErr := os.Stat(gitignorePath); statErr == nil {
			td.gitignore, err = ignore.CompileIgnoreFile(gitignorePath)
			if err != nil {
				return nil, fmt.Errorf("failed to read %s: %w", gitignorePath, err)
			}
		}
	}

	return td, nil
}

func compilePatterns(patterns []string) ([]compiledPattern, error) {
	var compiled []compiledPattern
	for _, pattern := range patterns {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
		}
		compiled = append(compiled, compiledPattern{pattern: pattern, glob: g})
	}
	return compiled, nil
}

// Discover walks the test root and returns the sorted test file paths.
func (td *TestDiscovery) Discover(ctx context.Context) ([]string, error) {
	info, err := os.Stat(td.testRoot)
	if err != nil {
		return nil, fmt.Errorf("test root %s: %w", td.testRoot, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("test root %s is not a directory", td.testRoot)
	}

	files := []string{}
	err = filepath.WalkDir(td.testRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		relPath, err := filepath.Rel(td.repoRoot, path)
		if err != nil {
			return err
		}
		relPath = filepath.ToSlash(relPath)

		if d.IsDir() {
			if relPath != "." && td.shouldIgnore(relPath, true) {
				return filepath.SkipDir
			}
			return nil
		}

		if td.shouldIgnore(relPath, false) || !td.isTestFile(relPath) {
			return nil
		}
		files = append(files, relPath)
		return nil
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to walk %s: %w", td.testRoot, err)
	}

	sort.Strings(files)
	return files, nil
}

func (td *TestDiscovery) isTestFile(relPath string) bool {
	if td.registry.GetParser(relPath) == nil {
		return false
	}
	if len(td.include) == 0 {
		return td.registry.IsTestFile(relPath)
	}
	return matchesAnyPattern(relPath, td.include)
}

func (td *TestDiscovery) shouldIgnore(relPath string, isDir bool) bool {
	if matchesAnyPattern(relPath, td.exclude) {
		return true
	}
	// "node_modules" should match "**/node_modules/**"
	if isDir && matchesAnyPattern(relPath+"/", td.exclude) {
		return true
	}
	if td.gitignore != nil {
		if isDir {
			return td.gitignore.MatchesPath(relPath + "/")
		}
		return td.gitignore.MatchesPath(relPath)
	}
	return false
}

func matchesAnyPattern(path string, patterns []compiledPattern) bool {
	for _, cp := range patterns {
		if cp.glob.Match(path) {
			return true
		}
	}

	// "**/x" should also match "x" at the root
	if !strings.Contains(strings.TrimSuffix(path, "/"), "/") {
		for _, cp := range patterns {
			if !strings.HasPrefix(cp.pattern, "**/") {
				continue
			}
			if g, err := glob.Compile(strings.TrimPrefix(cp.pattern, "**/"), '/'); err == nil && g.Match(path) {
				return true
			}
		}
	}

	return false
}
