package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"time"

	"github.com/agusespa/testscope/internal/types"
)

const (
	DefaultTimeout        = 5 * time.Minute
	DefaultMaxOutputBytes = 1 << 20
)

// TestRunner executes one test unit and reports its outcome.
type TestRunner interface {
	RunTest(ctx context.Context, unit types.TestUnit) (*types.ExecutionResult, error)
}

// CommandRunner runs test units as subprocesses built from per-language
// command templates.
//
// Safe for concurrent use. Each invocation creates its own process.
type CommandRunner struct {
	commands   map[string][]string
	timeout    time.Duration
	maxOutput  int
	workingDir string
	logger     *slog.Logger
}

type CommandRunnerOptions struct {
	Commands       map[string][]string
	Timeout        time.Duration
	MaxOutputBytes int
	WorkingDir     string
}

func NewCommandRunner(opts CommandRunnerOptions, logger *slog.Logger) *CommandRunner {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Commands == nil {
		opts.Commands = MergeCommands(nil)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.MaxOutputBytes <= 0 {
		opts.MaxOutputBytes = DefaultMaxOutputBytes
	}
	return &CommandRunner{
		commands:   opts.Commands,
		timeout:    opts.Timeout,
		maxOutput:  opts.MaxOutputBytes,
		workingDir: opts.WorkingDir,
		logger:     logger,
	}
}

// Command returns the argv that would run unit.
func (r *CommandRunner) Command(unit types.TestUnit) ([]string, error) {
	template, ok := r.commands[unit.Language]
	if !ok || len(template) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedLanguage, unit.Language)
	}
	return expandArgs(template, unit), nil
}

// RunTest runs unit and always returns a result. A non-nil error accompanies
// errored results: start failures, timeouts and unsupported languages.
func (r *CommandRunner) RunTest(ctx context.Context, unit types.TestUnit) (*types.ExecutionResult, error) {
	argv, err := r.Command(unit)
	if err != nil {
		result := types.Errored(unit.ID, err.Error())
		return &result, err
	}

	start := time.Now()
	r.logger.Debug("running test",
		slog.String("test_id", unit.ID),
		slog.String("file", unit.Path),
		slog.String("language", unit.Language),
	)

	result, err := r.execute(ctx, argv)
	result.TestID = unit.ID
	result.Duration = time.Since(start)

	switch {
	case err != nil:
		result.Status = types.StatusErrored
		result.Error = err.Error()
	case result.ExitCode == 0:
		result.Status = types.StatusPassed
	default:
		result.Status = types.StatusFailed
	}

	r.logger.Info("test completed",
		slog.String("test_id", unit.ID),
		slog.String("status", string(result.Status)),
		slog.Duration("duration", result.Duration),
		slog.Int("exit_code", result.ExitCode),
		slog.Int("output_bytes", len(result.Output)),
	)

	return result, err
}

func (r *CommandRunner) execute(ctx context.Context, argv []string) (*types.ExecutionResult, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	if r.workingDir != "" {
		cmd.Dir = r.workingDir
	}
	// grandchildren may keep the output pipes open after the kill
	cmd.WaitDelay = 2 * time.Second

	var output bytes.Buffer
	limited := &limitedWriter{w: &output, limit: r.maxOutput}
	cmd.Stdout = limited
	cmd.Stderr = limited

	r.logger.Debug("executing command",
		slog.String("command", argv[0]),
		slog.Any("args", argv[1:]),
		slog.Duration("timeout", r.timeout),
	)

	err := cmd.Run()

	result := &types.ExecutionResult{
		Output:    output.String(),
		Truncated: limited.truncated,
	}

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		result.TimedOut = true
		result.ExitCode = -1
		r.logger.Warn("test execution timed out", slog.Duration("timeout", r.timeout))
		return result, fmt.Errorf("%w after %s", ErrTestTimeout, r.timeout)
	}
	if errors.Is(ctx.Err(), context.Canceled) {
		result.ExitCode = -1
		return result, ErrCancelled
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
			return result, nil
		}
		result.ExitCode = -1
		return result, fmt.Errorf("command execution failed: %w", err)
	}

	return result, nil
}

// limitedWriter wraps a writer with a size limit. Writes past the limit are
// discarded but reported as successful.
type limitedWriter struct {
	w         io.Writer
	limit     int
	written   int
	truncated bool
}

func (lw *limitedWriter) Write(p []byte) (int, error) {
	n := len(p)
	if lw.written >= lw.limit {
		lw.truncated = true
		return n, nil
	}

	remaining := lw.limit - lw.written
	if len(p) > remaining {
		p = p[:remaining]
		lw.truncated = true
	}

	written, err := lw.w.Write(p)
	lw.written += written
	return n, err
}
