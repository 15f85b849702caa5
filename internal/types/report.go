package types

import (
	"sort"
	"time"
)

// ExecutionStatus is the outcome of running one test unit.
type ExecutionStatus string

const (
	StatusPassed  ExecutionStatus = "passed"
	StatusFailed  ExecutionStatus = "failed"
	StatusErrored ExecutionStatus = "errored"
)

// ExecutionResult is the outcome reported by the test-execution capability
// for one test unit.
type ExecutionResult struct {
	TestID    string          `json:"test_id" yaml:"test_id"`
	Status    ExecutionStatus `json:"status" yaml:"status"`
	ExitCode  int             `json:"exit_code" yaml:"exit_code"`
	Output    string          `json:"output,omitempty" yaml:"output,omitempty"`
	Truncated bool            `json:"truncated,omitempty" yaml:"truncated,omitempty"`
	TimedOut  bool            `json:"timed_out,omitempty" yaml:"timed_out,omitempty"`
	Duration  time.Duration   `json:"duration" yaml:"duration"`
	Error     string          `json:"error,omitempty" yaml:"error,omitempty"`
}

// Errored builds an errored result with the given cause.
func Errored(testID string, cause string) ExecutionResult {
	return ExecutionResult{
		TestID:   testID,
		Status:   StatusErrored,
		ExitCode: -1,
		Error:    cause,
	}
}

// DiagnosticStage names the pipeline stage that recorded a diagnostic.
type DiagnosticStage string

const (
	StageInput   DiagnosticStage = "input"
	StageParse   DiagnosticStage = "parse"
	StageExecute DiagnosticStage = "execute"
)

// Diagnostic is a per-file or per-test failure that was recovered locally.
type Diagnostic struct {
	Stage   DiagnosticStage `json:"stage" yaml:"stage"`
	Path    string          `json:"path,omitempty" yaml:"path,omitempty"`
	TestID  string          `json:"test_id,omitempty" yaml:"test_id,omitempty"`
	Message string          `json:"message" yaml:"message"`
}

// SelectedTest records why a test unit was chosen.
type SelectedTest struct {
	ID      string   `json:"id" yaml:"id"`
	Path    string   `json:"path" yaml:"path"`
	Reasons []string `json:"reasons" yaml:"reasons"`
}

// RunReport is the final output of one selection-and-execution cycle.
type RunReport struct {
	RunID           string            `json:"run_id" yaml:"run_id"`
	StartedAt       time.Time         `json:"started_at" yaml:"started_at"`
	FinishedAt      time.Time         `json:"finished_at" yaml:"finished_at"`
	Baseline        string            `json:"baseline,omitempty" yaml:"baseline,omitempty"`
	ChangedFiles    []string          `json:"changed_files" yaml:"changed_files"`
	AffectedSymbols []string          `json:"affected_symbols" yaml:"affected_symbols"`
	IgnoredSymbols  []string          `json:"ignored_symbols,omitempty" yaml:"ignored_symbols,omitempty"`
	Tests           []SelectedTest    `json:"tests" yaml:"tests"`
	Selected        int               `json:"selected" yaml:"selected"`
	Passed          int               `json:"passed" yaml:"passed"`
	Failed          int               `json:"failed" yaml:"failed"`
	Errored         int               `json:"errored" yaml:"errored"`
	Results         []ExecutionResult `json:"results" yaml:"results"`
	Diagnostics     []Diagnostic      `json:"diagnostics" yaml:"diagnostics"`
	DryRun          bool              `json:"dry_run,omitempty" yaml:"dry_run,omitempty"`
	Partial         bool              `json:"partial,omitempty" yaml:"partial,omitempty"`
	Cancelled       bool              `json:"cancelled,omitempty" yaml:"cancelled,omitempty"`
}

// Tally sorts the results by test id and recomputes the counters.
func (r *RunReport) Tally() {
	sort.Slice(r.Results, func(i, j int) bool { return r.Results[i].TestID < r.Results[j].TestID })

	r.Passed, r.Failed, r.Errored = 0, 0, 0
	for _, res := range r.Results {
		switch res.Status {
		case StatusPassed:
			r.Passed++
		case StatusFailed:
			r.Failed++
		case StatusErrored:
			r.Errored++
		}
	}
}

// ParseFailures lists the paths that failed to parse.
func (r *RunReport) ParseFailures() []string {
	var paths []string
	for _, d := range r.Diagnostics {
		if d.Stage == StageParse {
			paths = append(paths, d.Path)
		}
	}
	return paths
}

// Succeeded reports whether every selected test passed. Zero selected tests
// is a success.
func (r *RunReport) Succeeded() bool {
	if r.Cancelled || r.Partial {
		return false
	}
	return r.Failed == 0 && r.Errored == 0
}

// ExitCode maps the report onto a process exit status.
func (r *RunReport) ExitCode() int {
	if r.Succeeded() {
		return 0
	}
	return 1
}
