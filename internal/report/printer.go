package report

import (
	"fmt"
	"io"

	"github.com/fatih/color"
)

var (
	passColor  = color.New(color.FgGreen)
	failColor  = color.New(color.FgRed)
	scoreColor = color.New(color.Bold)
)

// Print renders a run report for terminals. One line per solution with
// the rounded final score, per-test and per-analyser detail indented
// beneath it.
func Print(w io.Writer, run *Run) {
	for i := range run.Solutions {
		PrintSolution(w, &run.Solutions[i])
	}
}

// PrintSolution renders one solution's report.
func PrintSolution(w io.Writer, sol *Solution) {
	if sol.MissingSource {
		fmt.Fprintf(w, "%s: no source found\n", sol.Name)
		return
	}

	fmt.Fprintf(w, "%s: %s\n", sol.Name, scoreColor.Sprint(sol.Score.Round(2)))

	// Analysis-only reports never set a compile log; a failed build
	// always does.
	if !sol.Compiled && sol.CompileLog != "" {
		fmt.Fprintf(w, "  %s\n", failColor.Sprint("compilation failed"))
	}
	for _, test := range sol.Tests {
		verdict := failColor.Sprint("fail")
		if test.Passed {
			verdict = passColor.Sprint("pass")
		}
		fmt.Fprintf(w, "  %s: %s (%s/%s)\n", test.Name, verdict, test.Score, test.MaxScore)
	}
	for _, res := range sol.Analyses {
		if res.Violated {
			fmt.Fprintf(w, "  %s: %s (%s)\n", res.Analyser, failColor.Sprint("violated"), res.Penalty)
		}
	}
	for _, failure := range sol.ScriptFailures {
		fmt.Fprintf(w, "  script: %s\n", failure)
	}
}
