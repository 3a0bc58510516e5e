// Package analysis runs lightweight static checks over solution source
// text and computes score penalties.
package analysis

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/atst-dev/atst/internal/config"
)

// Result records the outcome of one analyser on one solution. Penalty
// is the configured penalty when violated and zero otherwise.
type Result struct {
	Analyser string          `json:"analyser"`
	Violated bool            `json:"violated"`
	Penalty  decimal.Decimal `json:"penalty"`
}

// Analyser is one static check. Analyse reports whether the rule is
// violated by the given source text; ambiguous source must come back
// as not violated.
type Analyser interface {
	Name() string
	Analyse(source string) bool
	Penalty() decimal.Decimal
}

// FromSpecs builds analysers from validated configuration.
func FromSpecs(specs []config.AnalyserSpec, logger *zap.Logger) ([]Analyser, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	analysers := make([]Analyser, 0, len(specs))
	for _, spec := range specs {
		penalty := decimal.NewFromFloat(spec.Penalty)
		switch spec.Analyser {
		case "no-call":
			a, err := NewNoCall(spec.Funs, penalty)
			if err != nil {
				return nil, err
			}
			analysers = append(analysers, a)
		case "no-header":
			analysers = append(analysers, NewNoHeader(spec.Header, penalty))
		case "no-globals":
			a, err := NewNoGlobals(spec.Except, penalty)
			if err != nil {
				return nil, err
			}
			analysers = append(analysers, a)
		default:
			// Config validation drops these already; direct callers
			// may still pass one through.
			logger.Warn("unsupported analyser", zap.String("analyser", spec.Analyser))
		}
	}
	return analysers, nil
}

// Run applies every analyser to the source text, in configured order.
func Run(analysers []Analyser, source string) []Result {
	results := make([]Result, 0, len(analysers))
	for _, a := range analysers {
		res := Result{Analyser: a.Name(), Penalty: decimal.Zero}
		if a.Analyse(source) {
			res.Violated = true
			res.Penalty = a.Penalty()
		}
		results = append(results, res)
	}
	return results
}

// NoCall flags source that invokes any of the configured functions.
// Matching requires call shape (identifier followed by an opening
// parenthesis) and ignores comments and literals.
type NoCall struct {
	penalty decimal.Decimal
	res     []*regexp.Regexp
}

// NewNoCall compiles one call-shape pattern per forbidden function.
func NewNoCall(funs []string, penalty decimal.Decimal) (*NoCall, error) {
	if len(funs) == 0 {
		return nil, fmt.Errorf("no-call analyser needs at least one function name")
	}
	res := make([]*regexp.Regexp, 0, len(funs))
	for _, fun := range funs {
		re, err := regexp.Compile(`\b` + regexp.QuoteMeta(fun) + `\s*\(`)
		if err != nil {
			return nil, fmt.Errorf("no-call analyser: invalid function name %q: %w", fun, err)
		}
		res = append(res, re)
	}
	return &NoCall{penalty: penalty, res: res}, nil
}

func (a *NoCall) Name() string             { return "no-call" }
func (a *NoCall) Penalty() decimal.Decimal { return a.penalty }

func (a *NoCall) Analyse(source string) bool {
	view := codeView(source)
	for _, re := range a.res {
		if re.MatchString(view) {
			return true
		}
	}
	return false
}

// NoHeader flags source that includes the configured header, in either
// quote or angle-bracket style and with arbitrary whitespace.
type NoHeader struct {
	penalty decimal.Decimal
	re      *regexp.Regexp
}

func NewNoHeader(header string, penalty decimal.Decimal) *NoHeader {
	re := regexp.MustCompile(
		`(?m)^[ \t]*#[ \t]*include[ \t]*["<][ \t]*` + regexp.QuoteMeta(header) + `[ \t]*[">]`)
	return &NoHeader{penalty: penalty, re: re}
}

func (a *NoHeader) Name() string             { return "no-header" }
func (a *NoHeader) Penalty() decimal.Decimal { return a.penalty }

func (a *NoHeader) Analyse(source string) bool {
	// Comments stripped so commented-out includes don't count; string
	// literals kept because the header name sits between quotes.
	return a.re.MatchString(stripComments(source))
}

// NoGlobals flags file-scope variable declarations whose names match
// none of the exception patterns. Function definitions, prototypes and
// block-scope declarations are never counted; declaration shapes the
// heuristics cannot classify are skipped rather than flagged.
type NoGlobals struct {
	penalty decimal.Decimal
	except  []*regexp.Regexp
}

func NewNoGlobals(except []string, penalty decimal.Decimal) (*NoGlobals, error) {
	res := make([]*regexp.Regexp, 0, len(except))
	for _, pattern := range except {
		re, err := regexp.Compile("^(?:" + pattern + ")$")
		if err != nil {
			return nil, fmt.Errorf("no-globals analyser: invalid exception pattern %q: %w", pattern, err)
		}
		res = append(res, re)
	}
	return &NoGlobals{penalty: penalty, except: res}, nil
}

func (a *NoGlobals) Name() string             { return "no-globals" }
func (a *NoGlobals) Penalty() decimal.Decimal { return a.penalty }

func (a *NoGlobals) Analyse(source string) bool {
	for _, stmt := range topLevelStatements(declView(source)) {
		for _, name := range declaredNames(stmt) {
			if !a.excepted(name) {
				return true
			}
		}
	}
	return false
}

func (a *NoGlobals) excepted(name string) bool {
	for _, re := range a.except {
		if re.MatchString(name) {
			return true
		}
	}
	return false
}

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*`)

// Keywords that introduce non-variable file-scope statements.
var skipKeywords = map[string]bool{
	"typedef": true,
	"extern":  true,
	"using":   true,
}

// declaredNames extracts variable names from one file-scope statement,
// or nothing when the statement does not look like a plain variable
// declaration.
func declaredNames(stmt string) []string {
	// Anything with parentheses is a prototype, a function-pointer
	// declaration or an initializer call; all out of scope for the
	// heuristic.
	if strings.ContainsAny(stmt, "()") {
		return nil
	}

	fields := strings.Fields(stmt)
	if len(fields) < 2 {
		return nil
	}
	first := strings.TrimLeft(fields[0], "*")
	if skipKeywords[first] {
		return nil
	}
	if (first == "struct" || first == "union" || first == "enum") && len(fields) < 3 {
		// Forward declaration, e.g. `struct point;`.
		return nil
	}

	var names []string
	for i, declarator := range strings.Split(stmt, ",") {
		// Drop any initializer and array suffix, then take the last
		// identifier: `char word[101]` -> word, `*p` -> p.
		if idx := strings.IndexByte(declarator, '='); idx >= 0 {
			declarator = declarator[:idx]
		}
		if idx := strings.IndexByte(declarator, '['); idx >= 0 {
			declarator = declarator[:idx]
		}
		parts := strings.Fields(declarator)
		if len(parts) == 0 {
			continue
		}
		if i == 0 && len(parts) < 2 {
			// The first declarator must carry both a type and a name;
			// a lone token is some fragment we cannot classify.
			return nil
		}
		name := identRe.FindString(strings.TrimLeft(parts[len(parts)-1], "*&"))
		if name == "" {
			continue
		}
		names = append(names, name)
	}
	return names
}
