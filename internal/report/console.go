package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/agusespa/testscope/internal/types"
)

// PrintSummary writes the end-of-run summary: one line per executed test,
// the diagnostics and the totals.
func PrintSummary(w io.Writer, r *types.RunReport) {
	fmt.Fprintln(w, mutedStyle.Render(separator))

	if len(r.Results) > 0 {
		fmt.Fprintln(w, categoryStyle.Render("RESULTS"))
		for _, res := range r.Results {
			fmt.Fprintf(w, "  %s %s%s\n", statusIcon(res.Status), res.TestID, resultDetail(res))
		}
	}

	if failures := r.ParseFailures(); len(failures) > 0 {
		fmt.Fprintln(w, categoryStyle.Render("PARSE FAILURES"))
		for _, path := range failures {
			fmt.Fprintf(w, "  %s %s\n", failStyle.Render(IconFail), path)
		}
	}

	if len(r.Diagnostics) > 0 {
		fmt.Fprintln(w, categoryStyle.Render("DIAGNOSTICS"))
		for _, d := range r.Diagnostics {
			fmt.Fprintf(w, "  %s %s\n", warnStyle.Render(IconWarn), mutedStyle.Render(describeDiagnostic(d)))
		}
	}

	fmt.Fprintln(w, mutedStyle.Render(separator))
	fmt.Fprintln(w, Headline(r))
}

// Headline is the one line verdict for the run.
func Headline(r *types.RunReport) string {
	switch {
	case r.Selected == 0:
		return passStyle.Render(IconPass) + " No impacted tests"
	case r.DryRun:
		return mutedStyle.Render(IconSkip) + fmt.Sprintf(" Dry run - %d impacted tests not executed", r.Selected)
	}

	counts := fmt.Sprintf("%d passed, %d failed, %d errored of %d selected", r.Passed, r.Failed, r.Errored, r.Selected)
	switch {
	case r.Cancelled:
		return warnStyle.Render(IconWarn) + " Run cancelled - " + counts
	case r.Succeeded():
		return passStyle.Render(IconPass) + " " + counts
	default:
		return failStyle.Render(IconFail) + " " + counts
	}
}

func statusIcon(status types.ExecutionStatus) string {
	switch status {
	case types.StatusPassed:
		return passStyle.Render(IconPass)
	case types.StatusFailed:
		return failStyle.Render(IconFail)
	default:
		return warnStyle.Render(IconWarn)
	}
}

func resultDetail(res types.ExecutionResult) string {
	var parts []string
	if res.Duration > 0 {
		parts = append(parts, res.Duration.Round(time.Millisecond).String())
	}
	if res.TimedOut {
		parts = append(parts, "timeout")
	}
	if res.Status == types.StatusFailed {
		parts = append(parts, fmt.Sprintf("exit %d", res.ExitCode))
	}
	if res.Error != "" && !res.TimedOut {
		parts = append(parts, res.Error)
	}
	if len(parts) == 0 {
		return ""
	}
	return " " + mutedStyle.Render("("+strings.Join(parts, ", ")+")")
}

func describeDiagnostic(d types.Diagnostic) string {
	subject := d.Path
	if d.TestID != "" {
		subject = d.TestID
	}
	if subject == "" {
		return fmt.Sprintf("[%s] %s", d.Stage, d.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", d.Stage, subject, d.Message)
}
