package runner

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"

	"github.com/agusespa/testscope/internal/types"
	"golang.org/x/sync/errgroup"
)

const DefaultConcurrency = 4

// Observer is notified as each test unit finishes. Calls may come from
// several goroutines at once.
type Observer interface {
	TestFinished(result types.ExecutionResult)
}

// StartObserver is implemented by observers that want the number of units
// before the first one runs.
type StartObserver interface {
	RunStarted(total int)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(types.ExecutionResult)

func (f ObserverFunc) TestFinished(result types.ExecutionResult) {
	f(result)
}

// Outcome is what the executor hands back once every unit has a result.
type Outcome struct {
	// Results has one entry per unit, in input order.
	Results     []types.ExecutionResult
	Diagnostics []types.Diagnostic
	Cancelled   bool
}

// Executor runs test units through a TestRunner with bounded concurrency.
type Executor struct {
	runner      TestRunner
	concurrency int
	observer    Observer
	logger      *slog.Logger
}

func NewExecutor(runner TestRunner, concurrency int, observer Observer, logger *slog.Logger) *Executor {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{
		runner:      runner,
		concurrency: concurrency,
		observer:    observer,
		logger:      logger,
	}
}

// Run executes every unit. A failing or erroring unit never stops its
// siblings. When ctx is cancelled, units that have not started are recorded
// as errored with a "cancelled" message and Outcome.Cancelled is set.
func (e *Executor) Run(ctx context.Context, units []types.TestUnit) *Outcome {
	results := make([]types.ExecutionResult, len(units))
	failures := make([]error, len(units))
	var skipped atomic.Int32

	if s, ok := e.observer.(StartObserver); ok {
		s.RunStarted(len(units))
	}

	var g errgroup.Group
	g.SetLimit(e.concurrency)

	for i, unit := range units {
		if ctx.Err() != nil {
			results[i] = types.Errored(unit.ID, ErrCancelled.Error())
			skipped.Add(1)
			continue
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				results[i] = types.Errored(unit.ID, ErrCancelled.Error())
				skipped.Add(1)
				return nil
			}

			result, err := e.runner.RunTest(ctx, unit)
			if result == nil {
				cause := "no result"
				if err != nil {
					cause = err.Error()
				}
				errored := types.Errored(unit.ID, cause)
				result = &errored
			}
			result.TestID = unit.ID
			results[i] = *result
			failures[i] = err

			if e.observer != nil {
				e.observer.TestFinished(*result)
			}
			return nil
		})
	}
	_ = g.Wait()

	// a cancel that lands after the last unit finished leaves the run complete
	outcome := &Outcome{
		Results:   results,
		Cancelled: skipped.Load() > 0,
	}
	for i, err := range failures {
		if err == nil {
			continue
		}
		if errors.Is(err, ErrCancelled) {
			outcome.Cancelled = true
		}
		outcome.Diagnostics = append(outcome.Diagnostics, types.Diagnostic{
			Stage:   types.StageExecute,
			TestID:  units[i].ID,
			Message: err.Error(),
		})
	}

	if n := skipped.Load(); n > 0 {
		e.logger.Warn("run cancelled before all tests started", slog.Int("not_started", int(n)))
	}

	return outcome
}
