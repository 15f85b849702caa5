package cli

import (
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/agusespa/testscope/internal/runner"
	"github.com/agusespa/testscope/internal/types"
	"github.com/schollz/progressbar/v3"
)

// barObserver drives a progress bar while tests execute.
type barObserver struct {
	out io.Writer
	mu  sync.Mutex
	bar *progressbar.ProgressBar
}

func (o *barObserver) RunStarted(total int) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.bar = progressbar.NewOptions(total,
		progressbar.OptionSetWriter(o.out),
		progressbar.OptionSetDescription("Running tests"),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(o.out)
		}),
	)
}

func (o *barObserver) TestFinished(result types.ExecutionResult) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.bar != nil {
		o.bar.Add(1)
	}
}

// newObserver picks a progress bar for terminals and a log line per test
// otherwise.
func newObserver(progress io.Writer, interactive bool, logger *slog.Logger) runner.Observer {
	if interactive {
		return &barObserver{out: progress}
	}
	return runner.ObserverFunc(func(result types.ExecutionResult) {
		logger.Info("test finished",
			slog.String("test", result.TestID),
			slog.String("status", string(result.Status)),
			slog.Duration("duration", result.Duration),
		)
	})
}
