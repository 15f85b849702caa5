package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/agusespa/testscope/internal/impact"
	"github.com/agusespa/testscope/internal/runner"
	"github.com/agusespa/testscope/internal/tools"
	"github.com/agusespa/testscope/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const totalsSource = `package com.example;

public class Totals {
    public static int computeTotal(int[] xs) {
        int t = 0;
        for (int x : xs) t += x;
        return t;
    }
}
`

const averagesSource = `package com.example;

public class Averages {
    public static double computeAverage(int[] xs) {
        return xs.length == 0 ? 0 : Totals.computeTotal(xs) / (double) xs.length;
    }
}
`

const totalTestSource = `package com.example;

import org.junit.jupiter.api.Test;

class TotalTest {
    @Test
    void sums() {
        assertEquals(3, Totals.computeTotal(new int[]{1, 2}));
    }
}
`

const averageTestSource = `package com.example;

import org.junit.jupiter.api.Test;

class AverageTest {
    @Test
    void averages() {
        assertEquals(1.5, Averages.computeAverage(new int[]{1, 2}));
    }
}
`

const pythonTestSource = `from totals import computeTotal


def test_total():
    assert computeTotal([1, 2]) == 3
`

func writeRepo(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		full := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
	}
	return root
}

func javaRepo(t *testing.T) string {
	return writeRepo(t, map[string]string{
		"src/main/java/com/example/Totals.java":      totalsSource,
		"src/main/java/com/example/Averages.java":    averagesSource,
		"src/test/java/com/example/TotalTest.java":   totalTestSource,
		"src/test/java/com/example/AverageTest.java": averageTestSource,
		"scripts/test_totals.py":                     pythonTestSource,
	})
}

type staticFinder struct {
	paths []string
	err   error
}

func (f staticFinder) Discover(ctx context.Context) ([]string, error) {
	return f.paths, f.err
}

type failingChanges struct{}

func (failingChanges) ChangedFiles(ctx context.Context) (*types.ChangeSet, error) {
	return nil, errors.New("not a git repository")
}

type fixedChanges struct {
	files []types.ChangedFile
}

func (f fixedChanges) ChangedFiles(ctx context.Context) (*types.ChangeSet, error) {
	return &types.ChangeSet{Baseline: "HEAD", Files: f.files}, nil
}

type recordingRunner struct {
	mu       sync.Mutex
	ran      []string
	timeouts map[string]bool
	failures map[string]bool
}

func (r *recordingRunner) RunTest(ctx context.Context, unit types.TestUnit) (*types.ExecutionResult, error) {
	r.mu.Lock()
	r.ran = append(r.ran, unit.ID)
	r.mu.Unlock()

	switch {
	case r.timeouts[unit.ID]:
		return &types.ExecutionResult{TestID: unit.ID, Status: types.StatusErrored, TimedOut: true, ExitCode: -1, Error: "timed out"}, runner.ErrTestTimeout
	case r.failures[unit.ID]:
		return &types.ExecutionResult{TestID: unit.ID, Status: types.StatusFailed, ExitCode: 1}, nil
	}
	return &types.ExecutionResult{TestID: unit.ID, Status: types.StatusPassed}, nil
}

func newPipeline(t *testing.T, root string, opts Options, changes tools.ChangeSetProvider, tr runner.TestRunner) *Pipeline {
	t.Helper()
	registry := tools.NewParserRegistry(tools.ParserOptions{})
	discovery, err := tools.NewTestDiscovery(root, "", registry, tools.DiscoveryOptions{Exclude: tools.DefaultExcludePatterns})
	require.NoError(t, err)

	opts.RepoRoot = root
	return New(opts, Deps{
		Registry: registry,
		Changes:  changes,
		Tests:    discovery,
		Executor: runner.NewExecutor(tr, 2, nil, nil),
	})
}

func TestRun_SelectsOnlyTestsCallingChangedSymbols(t *testing.T) {
	root := javaRepo(t)
	tr := &recordingRunner{}
	p := newPipeline(t, root, Options{}, tools.NewStaticChangeSet([]string{"src/main/java/com/example/Totals.java"}), tr)

	report, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"computeTotal"}, report.AffectedSymbols)
	assert.Equal(t, 1, report.Selected)
	assert.Equal(t, []string{"com.example.TotalTest"}, tr.ran)
	require.Len(t, report.Tests, 1)
	assert.Equal(t, "src/test/java/com/example/TotalTest.java", report.Tests[0].Path)
	assert.Equal(t, []string{"computeTotal"}, report.Tests[0].Reasons)
	assert.Equal(t, 1, report.Passed)
	assert.Equal(t, 0, report.ExitCode())
	assert.NotEmpty(t, report.RunID)
}

func TestRun_ChangingAveragesSelectsAverageTest(t *testing.T) {
	root := javaRepo(t)
	tr := &recordingRunner{}
	p := newPipeline(t, root, Options{}, tools.NewStaticChangeSet([]string{"src/main/java/com/example/Averages.java"}), tr)

	report, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"com.example.AverageTest"}, tr.ran)
	assert.Equal(t, 1, report.Selected)
}

func TestRun_EmptyChangeSet(t *testing.T) {
	root := javaRepo(t)
	tr := &recordingRunner{}
	p := newPipeline(t, root, Options{}, tools.NewStaticChangeSet(nil), tr)

	report, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, report.Selected)
	assert.Empty(t, tr.ran)
	assert.Empty(t, report.Results)
	assert.Equal(t, 0, report.ExitCode())
}

func TestRun_TestParseFailureDoesNotAbortIndexing(t *testing.T) {
	root := javaRepo(t)
	require.NoError(t, os.WriteFile(
		filepath.Join(root, "src/test/java/com/example/BrokenTest.java"),
		[]byte("class BrokenTest { @Test void a( }"), 0o644))

	tr := &recordingRunner{}
	p := newPipeline(t, root, Options{}, tools.NewStaticChangeSet([]string{"src/main/java/com/example/Totals.java"}), tr)

	report, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"com.example.TotalTest"}, tr.ran)
	assert.Equal(t, []string{"src/test/java/com/example/BrokenTest.java"}, report.ParseFailures())
	assert.Equal(t, 0, report.ExitCode())
}

func TestRun_ChangedFileParseFailure(t *testing.T) {
	root := javaRepo(t)
	require.NoError(t, os.WriteFile(
		filepath.Join(root, "src/main/java/com/example/Totals.java"),
		[]byte("public class Totals { int computeTotal( }"), 0o644))

	tr := &recordingRunner{}
	p := newPipeline(t, root, Options{}, tools.NewStaticChangeSet([]string{
		"src/main/java/com/example/Totals.java",
		"src/main/java/com/example/Averages.java",
	}), tr)

	report, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"computeAverage"}, report.AffectedSymbols)
	assert.Equal(t, []string{"com.example.AverageTest"}, tr.ran)
	assert.Equal(t, []string{"src/main/java/com/example/Totals.java"}, report.ParseFailures())
}

func TestRun_TimeoutIsErroredAndSiblingsStillRun(t *testing.T) {
	root := javaRepo(t)
	tr := &recordingRunner{timeouts: map[string]bool{"com.example.TotalTest": true}}
	p := newPipeline(t, root, Options{}, tools.NewStaticChangeSet([]string{
		"src/main/java/com/example/Totals.java",
		"src/main/java/com/example/Averages.java",
	}), tr)

	report, err := p.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, report.Results, 2)
	assert.Equal(t, "com.example.AverageTest", report.Results[0].TestID)
	assert.Equal(t, types.StatusPassed, report.Results[0].Status)
	assert.Equal(t, "com.example.TotalTest", report.Results[1].TestID)
	assert.Equal(t, types.StatusErrored, report.Results[1].Status)
	assert.True(t, report.Results[1].TimedOut)

	assert.Equal(t, 1, report.Passed)
	assert.Equal(t, 1, report.Errored)
	assert.Equal(t, 1, report.ExitCode())

	var execDiags int
	for _, d := range report.Diagnostics {
		if d.Stage == types.StageExecute {
			execDiags++
			assert.Equal(t, "com.example.TotalTest", d.TestID)
		}
	}
	assert.Equal(t, 1, execDiags)
}

func TestRun_FailedTestExitCode(t *testing.T) {
	root := javaRepo(t)
	tr := &recordingRunner{failures: map[string]bool{"com.example.TotalTest": true}}
	p := newPipeline(t, root, Options{}, tools.NewStaticChangeSet([]string{"src/main/java/com/example/Totals.java"}), tr)

	report, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 1, report.ExitCode())
}

func TestRun_CrossLanguageIsolation(t *testing.T) {
	root := javaRepo(t)
	tr := &recordingRunner{}
	p := newPipeline(t, root, Options{}, tools.NewStaticChangeSet([]string{"src/main/java/com/example/Totals.java"}), tr)

	_, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.NotContains(t, tr.ran, "scripts/test_totals.py")
}

func TestRun_DryRun(t *testing.T) {
	root := javaRepo(t)
	tr := &recordingRunner{}
	p := newPipeline(t, root, Options{DryRun: true}, tools.NewStaticChangeSet([]string{"src/main/java/com/example/Totals.java"}), tr)

	report, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.True(t, report.DryRun)
	assert.Equal(t, 1, report.Selected)
	assert.Empty(t, tr.ran)
	assert.Equal(t, 0, report.ExitCode())
}

func TestRun_DiagnosticsForDeletedAndUnsupportedFiles(t *testing.T) {
	root := javaRepo(t)
	tr := &recordingRunner{}
	p := newPipeline(t, root, Options{}, fixedChanges{files: []types.ChangedFile{
		{Path: "src/main/java/com/example/Gone.java", Status: types.ChangeDeleted},
		{Path: "README.md", Status: types.ChangeModified},
		{Path: "src/main/java/com/example/Missing.java", Status: types.ChangeModified},
	}}, tr)

	report, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, report.Selected)
	require.Len(t, report.Diagnostics, 3)
	for _, d := range report.Diagnostics {
		assert.Equal(t, types.StageInput, d.Stage)
	}
}

func TestRun_HunksOnly(t *testing.T) {
	root := writeRepo(t, map[string]string{
		"src/main/java/com/example/Stats.java": `package com.example;

public class Stats {
    public static int computeTotal(int[] xs) {
        return 0;
    }

    public static double computeAverage(int[] xs) {
        return 0;
    }
}
`,
		"src/test/java/com/example/TotalTest.java":   totalTestSource,
		"src/test/java/com/example/AverageTest.java": averageTestSource,
	})
	changes := fixedChanges{files: []types.ChangedFile{{
		Path:   "src/main/java/com/example/Stats.java",
		Status: types.ChangeModified,
		Hunks:  []types.LineRange{{Start: 9, Count: 1}},
	}}}

	scoped := newPipeline(t, root, Options{HunksOnly: true}, changes, &recordingRunner{})
	plan, err := scoped.Select(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"com.example.AverageTest"}, plan.Selection.Impacted.Sorted())

	whole := newPipeline(t, root, Options{}, changes, &recordingRunner{})
	plan, err = whole.Select(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"com.example.AverageTest", "com.example.TotalTest"}, plan.Selection.Impacted.Sorted())
}

func TestRun_SymbolFilter(t *testing.T) {
	root := javaRepo(t)
	tr := &recordingRunner{}
	p := newPipeline(t, root, Options{Filter: impact.SymbolFilter{Deny: []string{"computeTotal"}}},
		tools.NewStaticChangeSet([]string{"src/main/java/com/example/Totals.java"}), tr)

	report, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, report.Selected)
	assert.Empty(t, report.AffectedSymbols)
	assert.Equal(t, []string{"computeTotal"}, report.IgnoredSymbols)
}

func TestRun_IncludeChangedTests(t *testing.T) {
	root := javaRepo(t)
	changes := tools.NewStaticChangeSet([]string{"src/test/java/com/example/AverageTest.java"})

	without := newPipeline(t, root, Options{}, changes, &recordingRunner{})
	plan, err := without.Select(context.Background())
	require.NoError(t, err)
	assert.True(t, plan.Selection.Empty())

	tr := &recordingRunner{}
	with := newPipeline(t, root, Options{IncludeChangedTests: true}, changes, tr)
	report, err := with.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"com.example.AverageTest"}, tr.ran)
	require.Len(t, report.Tests, 1)
	assert.Equal(t, []string{changedTestReason}, report.Tests[0].Reasons)
}

func TestRun_IncludeChangedTestsPathForms(t *testing.T) {
	root := javaRepo(t)
	rel := "src/test/java/com/example/AverageTest.java"

	tests := []struct {
		name string
		path string
	}{
		{name: "dot prefixed", path: "./" + rel},
		{name: "absolute", path: filepath.Join(root, filepath.FromSlash(rel))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := &recordingRunner{}
			p := newPipeline(t, root, Options{IncludeChangedTests: true}, tools.NewStaticChangeSet([]string{tt.path}), tr)

			report, err := p.Run(context.Background())
			require.NoError(t, err)
			assert.Equal(t, []string{"com.example.AverageTest"}, tr.ran)
			assert.Equal(t, 1, report.Selected)
		})
	}
}

func TestRun_NoAffectedSymbolsSkipsDiscovery(t *testing.T) {
	root := javaRepo(t)
	tr := &recordingRunner{}

	p := New(Options{RepoRoot: root}, Deps{
		Registry: tools.NewParserRegistry(tools.ParserOptions{}),
		Changes: fixedChanges{files: []types.ChangedFile{
			{Path: "README.md", Status: types.ChangeModified},
		}},
		Tests:    staticFinder{err: errors.New("discovery must not run")},
		Executor: runner.NewExecutor(tr, 2, nil, nil),
	})

	report, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, report.Selected)
	assert.Empty(t, report.AffectedSymbols)
	assert.Empty(t, tr.ran)
	assert.Equal(t, 0, report.ExitCode())
}

func TestRun_AllSymbolsFilteredSkipsDiscovery(t *testing.T) {
	root := javaRepo(t)

	p := New(Options{RepoRoot: root, Filter: impact.SymbolFilter{Deny: []string{"computeTotal"}}}, Deps{
		Registry: tools.NewParserRegistry(tools.ParserOptions{}),
		Changes:  tools.NewStaticChangeSet([]string{"src/main/java/com/example/Totals.java"}),
		Tests:    staticFinder{err: errors.New("discovery must not run")},
	})

	plan, err := p.Select(context.Background())
	require.NoError(t, err)
	assert.True(t, plan.Selection.Empty())
	assert.Equal(t, 0, plan.Index.Len())
	assert.Equal(t, []string{"computeTotal"}, plan.Report.IgnoredSymbols)
}

func TestRun_FatalErrors(t *testing.T) {
	root := javaRepo(t)
	registry := tools.NewParserRegistry(tools.ParserOptions{})

	p := New(Options{RepoRoot: root}, Deps{
		Registry: registry,
		Changes:  failingChanges{},
		Tests:    staticFinder{},
	})
	_, err := p.Run(context.Background())
	assert.True(t, errors.Is(err, ErrChangeSetUnavailable))

	p = New(Options{RepoRoot: root}, Deps{
		Registry: registry,
		Changes:  tools.NewStaticChangeSet([]string{"src/main/java/com/example/Totals.java"}),
		Tests:    staticFinder{err: errors.New("permission denied")},
	})
	_, err = p.Run(context.Background())
	assert.True(t, errors.Is(err, ErrTestDiscovery))
}

func TestRun_CancelledBeforeAnalysis(t *testing.T) {
	root := javaRepo(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := newPipeline(t, root, Options{}, fixedChanges{files: []types.ChangedFile{
		{Path: "src/main/java/com/example/Totals.java", Status: types.ChangeModified},
	}}, &recordingRunner{})

	_, err := p.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
