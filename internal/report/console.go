package report

import (
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"

	"github.com/ibeckermayer/chatcheck/internal/types"
)

var (
	passColor  = color.New(color.FgGreen, color.Bold)
	failColor  = color.New(color.FgRed, color.Bold)
	errorColor = color.New(color.FgYellow, color.Bold)
	faint      = color.New(color.Faint)
)

func statusLabel(s types.Status) string {
	switch s {
	case types.StatusPassed:
		return passColor.Sprint("PASS ")
	case types.StatusFailed:
		return failColor.Sprint("FAIL ")
	default:
		return errorColor.Sprint("ERROR")
	}
}

// PrintConsole writes one line per scenario, its failed checks and a totals
// line. Colors follow fatih/color's terminal detection.
func PrintConsole(w io.Writer, run *types.RunResult) {
	for _, s := range run.Scenarios {
		fmt.Fprintf(w, "%s %-12s %s\n", statusLabel(s.Status), s.Scenario, faint.Sprint(s.Duration.Round(time.Millisecond)))
		if s.Error != "" {
			fmt.Fprintf(w, "      %s\n", errorColor.Sprint(s.Error))
		}
		for _, c := range s.FailedChecks() {
			fmt.Fprintf(w, "      %s %s: %s\n", failColor.Sprint("✘"), c.Name, c.Detail)
		}
	}

	counts := run.Counts()
	verdictColor := passColor
	if !run.Passed() {
		verdictColor = failColor
	}
	fmt.Fprintf(w, "\n%s  %d passed, %d failed, %d errored in %s\n",
		verdictColor.Sprint(verdict(run.Passed())),
		counts[types.StatusPassed], counts[types.StatusFailed], counts[types.StatusErrored],
		run.FinishedAt.Sub(run.StartedAt).Round(time.Millisecond))
}
