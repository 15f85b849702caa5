// Package pipeline drives one selection run: changed files are reduced to
// affected symbols, test files are indexed by the symbols they call, and the
// impacted tests are executed.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"sort"
	"time"

	"github.com/agusespa/testscope/internal/impact"
	"github.com/agusespa/testscope/internal/runner"
	"github.com/agusespa/testscope/internal/tools"
	"github.com/agusespa/testscope/internal/types"
	"github.com/agusespa/testscope/pkg/spinner"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const changedTestReason = "test file changed"

// TestFinder enumerates repository-relative test file paths.
type TestFinder interface {
	Discover(ctx context.Context) ([]string, error)
}

type Options struct {
	RepoRoot            string
	Workers             int
	HunksOnly           bool
	IncludeChangedTests bool
	DryRun              bool
	Filter              impact.SymbolFilter
}

// Deps are the collaborators a Pipeline drives.
type Deps struct {
	Registry *tools.ParserRegistry
	Changes  tools.ChangeSetProvider
	Tests    TestFinder
	Executor *runner.Executor
	Out      io.Writer
	// Progress receives the analysis spinner; leave nil unless it is a
	// terminal.
	Progress io.Writer
	Logger   *slog.Logger
}

type Pipeline struct {
	opts      Options
	changes   tools.ChangeSetProvider
	tests     TestFinder
	registry  *tools.ParserRegistry
	reader    *tools.SourceReader
	extractor *impact.Extractor
	indexer   *impact.Indexer
	executor  *runner.Executor
	out       io.Writer
	progress  io.Writer
	logger    *slog.Logger
}

func New(opts Options, deps Deps) *Pipeline {
	if opts.Workers <= 0 {
		opts.Workers = runtime.GOMAXPROCS(0)
	}
	if deps.Out == nil {
		deps.Out = io.Discard
	}
	if deps.Progress == nil {
		deps.Progress = io.Discard
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Pipeline{
		opts:      opts,
		changes:   deps.Changes,
		tests:     deps.Tests,
		registry:  deps.Registry,
		reader:    tools.NewSourceReader(opts.RepoRoot, deps.Registry),
		extractor: impact.NewExtractor(deps.Registry, opts.HunksOnly),
		indexer:   impact.NewIndexer(deps.Registry),
		executor:  deps.Executor,
		out:       deps.Out,
		progress:  deps.Progress,
		logger:    deps.Logger,
	}
}

// Plan is the outcome of selection: the report so far, the index it was
// resolved against and the test units to execute, ordered by ID.
type Plan struct {
	Report    *types.RunReport
	Index     *impact.ImpactIndex
	Selection *types.Selection
	Units     []types.TestUnit
}

// Select resolves the impacted tests without running anything.
func (p *Pipeline) Select(ctx context.Context) (*Plan, error) {
	report := &types.RunReport{
		RunID:     uuid.NewString(),
		StartedAt: time.Now(),
	}

	changeSet, err := p.changes.ChangedFiles(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrChangeSetUnavailable, err)
	}
	report.Baseline = changeSet.Baseline
	report.ChangedFiles = changeSet.Paths()

	p.printChangedFiles(changeSet)

	analysisSpinner := spinner.NewWithWriter(p.progress, "Extracting changed symbols...")
	analysisSpinner.Start()
	plan, err := p.analyze(ctx, report, changeSet, analysisSpinner)
	analysisSpinner.Stop()
	if err != nil {
		return nil, err
	}

	p.printSelection(plan)
	return plan, nil
}

func (p *Pipeline) analyze(ctx context.Context, report *types.RunReport, changeSet *types.ChangeSet, status *spinner.Spinner) (*Plan, error) {
	affected, changedTests, diags, err := p.extractAffected(ctx, changeSet)
	if err != nil {
		return nil, err
	}
	report.Diagnostics = append(report.Diagnostics, diags...)

	kept, ignored := p.opts.Filter.Apply(affected)
	report.AffectedSymbols = kept.All().Strings()
	report.IgnoredSymbols = ignored.Strings()

	// nothing can be impacted, so test discovery is skipped entirely
	if kept.Len() == 0 && (!p.opts.IncludeChangedTests || len(changedTests) == 0) {
		p.logger.Debug("no affected symbols; skipping test discovery",
			slog.Int("ignored_symbols", ignored.Len()))
		return &Plan{
			Report:    report,
			Index:     impact.BuildIndex(nil),
			Selection: types.NewSelection(),
		}, nil
	}

	status.Update("Indexing test files...")
	testPaths, err := p.tests.Discover(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTestDiscovery, err)
	}

	units, diags, err := p.indexTests(ctx, testPaths)
	if err != nil {
		return nil, err
	}
	report.Diagnostics = append(report.Diagnostics, diags...)

	// every unit is indexed before the first lookup
	index := impact.BuildIndex(units)

	selection := impact.Resolve(index, kept)
	if p.opts.IncludeChangedTests {
		for _, u := range index.Units() {
			if changedTests[u.Path] {
				selection.Impacted.Add(u.ID)
			}
		}
	}

	p.logger.Debug("resolved impacted tests",
		slog.Int("affected_symbols", kept.Len()),
		slog.Int("ignored_symbols", ignored.Len()),
		slog.Int("indexed_tests", index.Len()),
		slog.Int("index_keys", index.SymbolCount()),
		slog.Int("impacted", len(selection.Impacted)),
	)

	plan := &Plan{
		Report:    report,
		Index:     index,
		Selection: selection,
	}
	for _, id := range selection.Impacted.Sorted() {
		unit, ok := index.Unit(id)
		if !ok {
			continue
		}
		plan.Units = append(plan.Units, unit)

		reasons := selection.Reasons[id].Strings()
		if len(reasons) == 0 {
			reasons = []string{changedTestReason}
		}
		report.Tests = append(report.Tests, types.SelectedTest{
			ID:      id,
			Path:    unit.Path,
			Reasons: reasons,
		})
	}
	report.Selected = len(plan.Units)

	return plan, nil
}

// extractAffected reads and parses every changed file in parallel. Each
// worker owns one slot of the result slices; they are folded after Wait.
func (p *Pipeline) extractAffected(ctx context.Context, changeSet *types.ChangeSet) (types.LanguageSymbols, map[string]bool, []types.Diagnostic, error) {
	files := changeSet.Files
	symbols := make([]types.SymbolSet, len(files))
	languages := make([]string, len(files))
	paths := make([]string, len(files))
	diags := make([]*types.Diagnostic, len(files))

	var g errgroup.Group
	g.SetLimit(p.opts.Workers)

	for i, file := range files {
		if file.Status == types.ChangeDeleted {
			diags[i] = &types.Diagnostic{
				Stage:   types.StageInput,
				Path:    file.Path,
				Message: "file deleted since baseline; nothing to extract",
			}
			continue
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			unit, err := p.reader.Read(file.Path)
			if err != nil {
				diags[i] = &types.Diagnostic{Stage: types.StageInput, Path: file.Path, Message: err.Error()}
				return nil
			}
			symbols[i], diags[i] = p.extractor.Extract(unit, file.Hunks)
			languages[i] = unit.Language
			paths[i] = unit.Path
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, nil, err
	}

	affected := make(types.LanguageSymbols)
	changedTests := make(map[string]bool)
	var collected []types.Diagnostic
	for i, file := range files {
		if diags[i] != nil {
			collected = append(collected, *diags[i])
			p.logger.Debug("skipped changed file", slog.String("path", file.Path), slog.String("reason", diags[i].Message))
		}
		if symbols[i] != nil {
			affected.Merge(languages[i], symbols[i])
		}
		// keyed by the reader's repo-relative path, which is what the
		// indexer records on each unit
		if paths[i] != "" && p.registry.IsTestFile(paths[i]) {
			changedTests[paths[i]] = true
		}
	}

	return affected, changedTests, collected, nil
}

func (p *Pipeline) indexTests(ctx context.Context, paths []string) ([]*types.TestUnit, []types.Diagnostic, error) {
	units := make([]*types.TestUnit, len(paths))
	diags := make([]*types.Diagnostic, len(paths))

	var g errgroup.Group
	g.SetLimit(p.opts.Workers)

	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			unit, err := p.reader.Read(path)
			if err != nil {
				diags[i] = &types.Diagnostic{Stage: types.StageInput, Path: path, Message: err.Error()}
				return nil
			}
			units[i], diags[i] = p.indexer.Index(unit)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	var collected []types.Diagnostic
	for _, d := range diags {
		if d != nil {
			collected = append(collected, *d)
		}
	}
	return units, collected, nil
}

// Run selects the impacted tests and executes them unless the selection is
// empty or the pipeline is in dry-run mode.
func (p *Pipeline) Run(ctx context.Context) (*types.RunReport, error) {
	plan, err := p.Select(ctx)
	if err != nil {
		return nil, err
	}
	report := plan.Report

	if plan.Selection.Empty() {
		fmt.Fprintln(p.out, "No impacted tests - nothing to run")
		return finish(report), nil
	}

	if p.opts.DryRun || p.executor == nil {
		report.DryRun = true
		return finish(report), nil
	}

	outcome := p.executor.Run(ctx, plan.Units)
	report.Results = outcome.Results
	report.Diagnostics = append(report.Diagnostics, outcome.Diagnostics...)
	report.Cancelled = outcome.Cancelled
	report.Partial = outcome.Cancelled

	return finish(report), nil
}

func finish(report *types.RunReport) *types.RunReport {
	report.FinishedAt = time.Now()
	report.Tally()
	if report.Results == nil {
		report.Results = []types.ExecutionResult{}
	}
	if report.Diagnostics == nil {
		report.Diagnostics = []types.Diagnostic{}
	}
	if report.Tests == nil {
		report.Tests = []types.SelectedTest{}
	}
	sort.SliceStable(report.Diagnostics, func(i, j int) bool {
		return report.Diagnostics[i].Stage < report.Diagnostics[j].Stage
	})
	return report
}

func (p *Pipeline) printChangedFiles(cs *types.ChangeSet) {
	fmt.Fprint(p.out, "Changed files:")
	if len(cs.Files) == 0 {
		fmt.Fprintln(p.out, "   ✕ no changes found")
		return
	}
	for _, f := range cs.Files {
		mark := "✓"
		if f.Status == types.ChangeDeleted || p.registry.GetParser(f.Path) == nil {
			mark = "-"
		}
		fmt.Fprintf(p.out, "\n   %s %s", mark, f.Path)
	}
	fmt.Fprintln(p.out)
}

func (p *Pipeline) printSelection(plan *Plan) {
	fmt.Fprintf(p.out, "Affected symbols: %d, indexed tests: %d, impacted tests: %d\n",
		len(plan.Report.AffectedSymbols), plan.Index.Len(), len(plan.Units))
	for _, t := range plan.Report.Tests {
		fmt.Fprintf(p.out, "   ✓ %s\n", t.ID)
	}
}
