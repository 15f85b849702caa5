package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/agusespa/testscope/internal/types"
)

// Markdown renders the report as a Markdown document.
func Markdown(r *types.RunReport) string {
	var b strings.Builder
	b.WriteString("# Test Selection Report\n\n")

	fmt.Fprintf(&b, "**Run:** `%s`\n", r.RunID)
	if r.Baseline != "" {
		fmt.Fprintf(&b, "**Baseline:** `%s`\n", r.Baseline)
	}
	if !r.StartedAt.IsZero() && !r.FinishedAt.IsZero() {
		fmt.Fprintf(&b, "**Duration:** %s\n", r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond))
	}
	b.WriteString("\n")

	b.WriteString("## Changed Files\n\n")
	writeList(&b, r.ChangedFiles, "_none_")

	b.WriteString("## Affected Symbols\n\n")
	writeList(&b, r.AffectedSymbols, "_none_")
	if len(r.IgnoredSymbols) > 0 {
		b.WriteString("Ignored by the symbol filter:\n\n")
		writeList(&b, r.IgnoredSymbols, "")
	}

	b.WriteString("## Impacted Tests\n\n")
	if len(r.Tests) == 0 {
		b.WriteString("_none_\n\n")
	} else {
		results := make(map[string]types.ExecutionResult, len(r.Results))
		for _, res := range r.Results {
			results[res.TestID] = res
		}

		b.WriteString("| Test | Path | Reasons | Status |\n")
		b.WriteString("|---|---|---|---|\n")
		for _, t := range r.Tests {
			status := "not run"
			if res, ok := results[t.ID]; ok {
				status = markdownStatus(res)
			}
			fmt.Fprintf(&b, "| `%s` | `%s` | %s | %s |\n", t.ID, t.Path, strings.Join(t.Reasons, ", "), status)
		}
		b.WriteString("\n")
	}

	for _, res := range r.Results {
		if res.Status == types.StatusPassed || res.Output == "" {
			continue
		}
		fmt.Fprintf(&b, "### %s %s\n\n", markdownIcon(res.Status), res.TestID)
		b.WriteString("```\n")
		b.WriteString(strings.TrimRight(res.Output, "\n"))
		b.WriteString("\n```\n")
		if res.Truncated {
			b.WriteString("_output truncated_\n")
		}
		b.WriteString("\n---\n\n")
	}

	if failures := r.ParseFailures(); len(failures) > 0 {
		b.WriteString("## Parse Failures\n\n")
		writeList(&b, failures, "")
	}

	if len(r.Diagnostics) > 0 {
		b.WriteString("## Diagnostics\n\n")
		for _, d := range r.Diagnostics {
			fmt.Fprintf(&b, "- %s\n", describeDiagnostic(d))
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "**Summary:** %d selected, %d passed, %d failed, %d errored", r.Selected, r.Passed, r.Failed, r.Errored)
	switch {
	case r.DryRun:
		b.WriteString(" (dry run)")
	case r.Cancelled:
		b.WriteString(" (cancelled)")
	}
	b.WriteString("\n")

	return b.String()
}

func writeList(b *strings.Builder, items []string, empty string) {
	if len(items) == 0 {
		if empty != "" {
			b.WriteString(empty + "\n\n")
		}
		return
	}
	for _, item := range items {
		fmt.Fprintf(b, "- `%s`\n", item)
	}
	b.WriteString("\n")
}

func markdownStatus(res types.ExecutionResult) string {
	status := markdownIcon(res.Status) + " " + string(res.Status)
	if res.TimedOut {
		status += " (timeout)"
	}
	return status
}

func markdownIcon(status types.ExecutionStatus) string {
	switch status {
	case types.StatusPassed:
		return "🟢"
	case types.StatusFailed:
		return "🔴"
	default:
		return "🟡"
	}
}
