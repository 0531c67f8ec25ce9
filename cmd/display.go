package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	"github.com/moamenhredeen/oasrec/internal/models"
	"github.com/moamenhredeen/oasrec/internal/output"
)

var (
	isTTY = isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())

	green  = color.New(color.FgGreen).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	cyan   = color.New(color.FgCyan, color.Bold).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	white  = color.New(color.FgWhite, color.Bold).SprintFunc()
)

func displayResults(w io.Writer, summary models.TestSummary, verbose bool) {
	fmt.Fprintf(w, "\n%s\n", white("=== Record Results ==="))
	fmt.Fprintf(w, "Total:    %d\n", summary.TotalTests)
	fmt.Fprintf(w, "Recorded: %d\n", summary.Recorded)
	fmt.Fprintf(w, "Passed:   %s\n", green(summary.Passed))
	if summary.Failed > 0 {
		fmt.Fprintf(w, "Failed:   %s\n", red(summary.Failed))
	} else {
		fmt.Fprintf(w, "Failed:   %d\n", summary.Failed)
	}
	fmt.Fprintln(w)

	for _, result := range summary.Results {
		status := green("✓ PASS")
		if !result.Passed {
			status = red("✗ FAIL")
		}

		if !verbose {
			fmt.Fprintf(w, "%s %s %s", status, result.Method, result.Path)
			if !result.Passed && result.Error != "" {
				fmt.Fprintf(w, " - %s", result.Error)
			}
			fmt.Fprintln(w)
			continue
		}

		fmt.Fprintf(w, "%s %s %s\n", status, result.Method, result.Path)
		if result.OperationID != "" {
			fmt.Fprintf(w, "  Operation ID: %s\n", result.OperationID)
		}
		fmt.Fprintf(w, "  Status Code: %d\n", result.StatusCode)
		fmt.Fprintf(w, "  Response Time: %v\n", result.ResponseTime)
		fmt.Fprintf(w, "  Recorded: %v\n", result.Recorded)

		if !result.Passed {
			if len(result.ValidationErrors) > 0 {
				fmt.Fprintf(w, "  Validation Errors:\n")
				for _, ve := range result.ValidationErrors {
					fmt.Fprintf(w, "    - %s: %s\n", ve.Field, red(ve.Message))
				}
			} else if result.Error != "" {
				fmt.Fprintf(w, "  Error: %s\n", red(result.Error))
			}
		}
		fmt.Fprintln(w)
	}
}

// displayDiff prints changed lines with a few lines of context
func displayDiff(w io.Writer, name string, lines []output.Line) {
	if !output.Changed(lines) {
		fmt.Fprintf(w, "%s: no changes\n", name)
		return
	}

	const context = 2
	show := make([]bool, len(lines))
	for i, l := range lines {
		if l.Op == output.OpEqual {
			continue
		}
		for j := max(0, i-context); j <= min(len(lines)-1, i+context); j++ {
			show[j] = true
		}
	}

	fmt.Fprintf(w, "%s\n", white("--- "+name))
	fmt.Fprintf(w, "%s\n", white("+++ "+name+" (reconciled)"))
	gap := false
	for i, l := range lines {
		if !show[i] {
			gap = true
			continue
		}
		if gap {
			fmt.Fprintln(w, cyan("@@"))
			gap = false
		}
		text := string(l.Op) + l.Text
		switch l.Op {
		case output.OpInsert:
			fmt.Fprintln(w, green(text))
		case output.OpDelete:
			fmt.Fprintln(w, red(text))
		default:
			fmt.Fprintln(w, text)
		}
	}
}
