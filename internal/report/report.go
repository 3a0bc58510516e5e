// Package report defines the evaluation artifacts produced for each
// solution and renders them for terminals and machine consumers.
package report

import (
	"github.com/shopspring/decimal"

	"github.com/atst-dev/atst/internal/analysis"
)

// CaseResult describes one test-case execution.
type CaseResult struct {
	Args          []string `json:"args,omitempty"`
	Status        string   `json:"status"`
	ExitCode      int      `json:"exit_code"`
	ExecutionTime int64    `json:"execution_time"`
	Passed        bool     `json:"passed"`
}

// TestResult describes one scored test: the awarded score is either the
// full configured score or zero, never partial.
type TestResult struct {
	Name     string          `json:"name"`
	Passed   bool            `json:"passed"`
	Score    decimal.Decimal `json:"score"`
	MaxScore decimal.Decimal `json:"max_score"`
	Cases    []CaseResult    `json:"cases,omitempty"`
}

// Solution is the complete evaluation record for one solution; it is
// sufficient to render every per-test, per-analyser and aggregate
// outcome without re-running anything.
type Solution struct {
	Name           string            `json:"name"`
	MissingSource  bool              `json:"missing_source,omitempty"`
	Compiled       bool              `json:"compiled"`
	CompileLog     string            `json:"compile_log,omitempty"`
	Tests          []TestResult      `json:"tests,omitempty"`
	Analyses       []analysis.Result `json:"analyses,omitempty"`
	ScriptFailures []string          `json:"script_failures,omitempty"`
	Score          decimal.Decimal   `json:"score"`
}

// Run collects every solution report of one evaluation run, in
// discovery order.
type Run struct {
	Project   string     `json:"project"`
	Solutions []Solution `json:"solutions"`
	Context   any        `json:"context,omitempty"`

	// Webhook delivery status, set only on the locally printed copy.
	WebhookSent  bool   `json:"webhook_sent,omitempty"`
	WebhookError string `json:"webhook_error,omitempty"`
}
