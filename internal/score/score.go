// Package score combines test outcomes and analyser penalties into one
// final score per solution.
package score

import (
	"github.com/shopspring/decimal"

	"github.com/atst-dev/atst/internal/analysis"
)

// Options resolves the aggregation policy questions the configuration
// exposes rather than guessing defaults.
type Options struct {
	// ClampZero floors the final score at zero.
	ClampZero bool
	// PenaltyWithoutCompile keeps analyser penalties in effect for
	// solutions that failed to compile.
	PenaltyWithoutCompile bool
}

// Aggregate computes the final score: the sum of awarded test scores
// when the solution compiled (zero otherwise) plus the sum of applied
// analyser penalties.
func Aggregate(compiled bool, awarded []decimal.Decimal, analyses []analysis.Result, opts Options) decimal.Decimal {
	total := decimal.Zero
	if compiled {
		for _, s := range awarded {
			total = total.Add(s)
		}
	}
	if compiled || opts.PenaltyWithoutCompile {
		for _, res := range analyses {
			total = total.Add(res.Penalty)
		}
	}
	if opts.ClampZero && total.IsNegative() {
		return decimal.Zero
	}
	return total
}
