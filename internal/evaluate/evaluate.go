// Package evaluate drives the full evaluation of solutions: compile,
// scored tests, static analyses, custom scripts and score aggregation.
package evaluate

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/atst-dev/atst/internal/analysis"
	"github.com/atst-dev/atst/internal/compiler"
	"github.com/atst-dev/atst/internal/config"
	"github.com/atst-dev/atst/internal/match"
	"github.com/atst-dev/atst/internal/project"
	"github.com/atst-dev/atst/internal/report"
	"github.com/atst-dev/atst/internal/runner"
	"github.com/atst-dev/atst/internal/score"
)

// Engine evaluates solutions against one fixed configuration. It keeps
// no mutable state across solutions, so any number of evaluations may
// run concurrently.
type Engine struct {
	cfg       *config.Config
	invoker   *compiler.Invoker
	analysers []analysis.Analyser
	scripts   []string
	timeout   time.Duration
	scoring   score.Options
	logger    *zap.Logger
}

// New builds an engine from validated configuration. The compiler
// toolchain is checked up front: a missing toolchain is fatal for the
// whole run, unlike per-solution compile failures.
func New(cfg *config.Config, projectRoot string, logger *zap.Logger) (*Engine, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	invoker, err := compiler.New(compiler.Options{
		CC:      cfg.Compiler.CC,
		CFlags:  cfg.Compiler.CFlags,
		LDFlags: cfg.Compiler.LDFlags,
	})
	if err != nil {
		return nil, err
	}
	if err := invoker.CheckToolchain(); err != nil {
		return nil, err
	}

	analysers, err := analysis.FromSpecs(cfg.Analyses, logger)
	if err != nil {
		return nil, err
	}

	scripts := make([]string, 0, len(cfg.Scripts))
	for _, s := range cfg.Scripts {
		if !filepath.IsAbs(s) {
			s = filepath.Join(projectRoot, s)
		}
		abs, err := filepath.Abs(s)
		if err != nil {
			return nil, fmt.Errorf("could not resolve script path %s: %w", s, err)
		}
		scripts = append(scripts, abs)
	}

	return &Engine{
		cfg:       cfg,
		invoker:   invoker,
		analysers: analysers,
		scripts:   scripts,
		timeout:   time.Duration(cfg.TimeoutMs) * time.Millisecond,
		scoring: score.Options{
			ClampZero:             cfg.Scoring.ClampZero,
			PenaltyWithoutCompile: cfg.PenaltyWithoutCompile(),
		},
		logger: logger,
	}, nil
}

// Evaluate produces the complete report for one solution. Per-solution
// failures (compile errors, crashes, timeouts) are captured in the
// report; an error is returned only for environment-level faults.
func (e *Engine) Evaluate(ctx context.Context, sol project.Solution) (report.Solution, error) {
	out := report.Solution{Name: sol.Name, Score: decimal.Zero}

	if sol.SourceMissing {
		e.logger.Warn("no source found", zap.String("solution", sol.Name))
		out.MissingSource = true
		return out, nil
	}

	compileRes, err := e.invoker.Compile(ctx, sol.Dir, e.cfg.Source)
	if err != nil {
		return out, err
	}
	defer compileRes.Cleanup()

	out.Compiled = compileRes.OK
	if !compileRes.OK {
		out.CompileLog = compileRes.Log
	}

	awarded := make([]decimal.Decimal, 0, len(e.cfg.Tests))
	for _, test := range e.cfg.Tests {
		var testRes report.TestResult
		if compileRes.OK {
			testRes, err = e.evaluateTest(ctx, compileRes.BinaryPath, sol.Dir, test)
			if err != nil {
				return out, err
			}
		} else {
			// Compile failure scores every test zero; cases are not run.
			testRes = report.TestResult{
				Name:     test.Name,
				Score:    decimal.Zero,
				MaxScore: decimal.NewFromFloat(test.Score),
			}
		}
		awarded = append(awarded, testRes.Score)
		out.Tests = append(out.Tests, testRes)
	}

	// Analysers inspect source text, so they run regardless of the
	// compile outcome.
	out.Analyses = analysis.Run(e.analysers, sol.Source)

	out.ScriptFailures = e.runScripts(ctx, sol)

	out.Score = score.Aggregate(compileRes.OK, awarded, out.Analyses, e.scoring)
	return out, nil
}

// evaluateTest runs every case of one test and applies the requirement
// policy: `all` awards the score only when every case passes, `any`
// when at least one does. The award is all-or-nothing.
func (e *Engine) evaluateTest(ctx context.Context, binary, dir string, test config.Test) (report.TestResult, error) {
	maxScore := decimal.NewFromFloat(test.Score)
	result := report.TestResult{
		Name:     test.Name,
		Score:    decimal.Zero,
		MaxScore: maxScore,
	}

	passedCount := 0
	cases := caseList(test)
	for _, tc := range cases {
		caseRes, err := e.runCase(ctx, binary, dir, tc)
		if err != nil {
			return result, err
		}
		if caseRes.Passed {
			passedCount++
		}
		result.Cases = append(result.Cases, caseRes)
	}

	switch test.Requirement {
	case config.RequireAny:
		result.Passed = passedCount > 0
	default:
		result.Passed = passedCount == len(cases)
	}
	if result.Passed {
		result.Score = maxScore
	}
	return result, nil
}

// runCase executes the binary once and matches the configured streams.
// A case passes only when execution neither timed out nor died on a
// signal and every configured stream matches.
func (e *Engine) runCase(ctx context.Context, binary, dir string, tc config.TestCase) (report.CaseResult, error) {
	args := strings.Fields(tc.Args)
	caseRes := report.CaseResult{Args: args}

	cfg := &runner.Config{
		Command: binary,
		Args:    args,
		Dir:     dir,
		Timeout: e.timeout,
	}
	if tc.Stdin != nil {
		cfg.Stdin = *tc.Stdin
	}

	run, err := runner.Execute(ctx, cfg)
	if err != nil {
		if ctx.Err() != nil {
			return caseRes, err
		}
		// The freshly built binary refused to start; that is a failing
		// case for this solution, not an engine fault.
		e.logger.Warn("solution binary failed to start",
			zap.String("binary", binary), zap.Error(err))
		caseRes.Status = string(runner.StatusFailed)
		caseRes.ExitCode = -1
		return caseRes, nil
	}

	caseRes.Status = string(run.Status)
	caseRes.ExitCode = run.ExitCode
	caseRes.ExecutionTime = run.ExecutionTime

	if run.Status == runner.StatusTimeout || run.Status == runner.StatusSignaled {
		return caseRes, nil
	}
	caseRes.Passed = match.Stream(tc.Stdout, run.Stdout) && match.Stream(tc.Stderr, run.Stderr)
	return caseRes, nil
}

// runScripts executes the configured custom scripts inside the solution
// directory. Script failures are reported on the solution but do not
// affect its score.
func (e *Engine) runScripts(ctx context.Context, sol project.Solution) []string {
	var failures []string
	for _, script := range e.scripts {
		run, err := runner.Execute(ctx, &runner.Config{
			Command: script,
			Dir:     sol.Dir,
			Timeout: e.timeout,
		})
		name := filepath.Base(script)
		switch {
		case err != nil:
			failures = append(failures, fmt.Sprintf("%s: %v", name, err))
		case run.Status != runner.StatusSuccess:
			failures = append(failures, fmt.Sprintf("%s: exited with status %s", name, run.Status))
		}
	}
	return failures
}

// caseList resolves a test's cases: an explicit `test-cases` list, or a
// single case derived from the test's own fields.
func caseList(test config.Test) []config.TestCase {
	if len(test.Cases) > 0 {
		return test.Cases
	}
	return []config.TestCase{{
		Args:   test.Args,
		Stdin:  test.Stdin,
		Stdout: test.Stdout,
		Stderr: test.Stderr,
	}}
}
