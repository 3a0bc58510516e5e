// Package compiler builds one solution's source file into an executable
// in an isolated temporary directory.
package compiler

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/shlex"

	"github.com/atst-dev/atst/internal/runner"
)

// compileTimeout bounds a single compiler invocation; it is independent
// of the per-test timeout, which only governs solution executions.
const compileTimeout = 60 * time.Second

// Options holds the toolchain settings. Flag strings use shell quoting
// rules.
type Options struct {
	CC      string
	CFlags  string
	LDFlags string
}

// Result is the outcome of building one solution. On success BinaryPath
// points into a temporary directory owned by the result; callers must
// Cleanup once the binary is no longer needed.
type Result struct {
	OK         bool
	BinaryPath string
	Log        string

	workDir string
}

// Cleanup removes the build directory and the binary inside it. Safe to
// call on failed results and more than once.
func (r *Result) Cleanup() {
	if r.workDir != "" {
		_ = os.RemoveAll(r.workDir)
		r.workDir = ""
	}
}

// Invoker compiles solutions with a fixed toolchain configuration.
type Invoker struct {
	cc      string
	cflags  []string
	ldflags []string
}

// New parses the configured flag strings and returns an Invoker.
func New(opts Options) (*Invoker, error) {
	cc := opts.CC
	if cc == "" {
		cc = "gcc"
	}
	cflags, err := shlex.Split(opts.CFlags)
	if err != nil {
		return nil, fmt.Errorf("invalid compiler flags %q: %w", opts.CFlags, err)
	}
	ldflags, err := shlex.Split(opts.LDFlags)
	if err != nil {
		return nil, fmt.Errorf("invalid linker flags %q: %w", opts.LDFlags, err)
	}
	return &Invoker{cc: cc, cflags: cflags, ldflags: ldflags}, nil
}

// CheckToolchain verifies the compiler executable can be found at all.
// A missing toolchain aborts the whole run instead of silently scoring
// every solution zero.
func (i *Invoker) CheckToolchain() error {
	if _, err := exec.LookPath(i.cc); err != nil {
		return fmt.Errorf("compiler %q not found: %w", i.cc, err)
	}
	return nil
}

// Compile builds srcFile from solutionDir into a fresh temporary
// directory. Compiler failures (non-zero exit, or an invocation that
// cannot start) are recorded in the Result, not returned as errors;
// only an unusable filesystem is an error.
func (i *Invoker) Compile(ctx context.Context, solutionDir, srcFile string) (*Result, error) {
	workDir, err := os.MkdirTemp("", "atst-build-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create build directory: %w", err)
	}
	result := &Result{workDir: workDir}

	binary := filepath.Join(workDir, binaryName(srcFile))
	args := append([]string{}, i.cflags...)
	args = append(args, filepath.Join(solutionDir, srcFile), "-o", binary)
	args = append(args, i.ldflags...)

	run, err := runner.Execute(ctx, &runner.Config{
		Command: i.cc,
		Args:    args,
		Dir:     solutionDir,
		Timeout: compileTimeout,
	})
	if err != nil {
		result.Log = err.Error()
		return result, nil
	}

	if run.Status != runner.StatusSuccess {
		result.Log = string(run.Stderr)
		if result.Log == "" {
			result.Log = fmt.Sprintf("compiler exited with status %s", run.Status)
		}
		return result, nil
	}

	result.OK = true
	result.BinaryPath = binary
	result.Log = string(run.Stderr) // warnings, when any
	return result, nil
}

// binaryName derives the executable name from the source file stem.
func binaryName(srcFile string) string {
	base := filepath.Base(srcFile)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if stem == "" {
		stem = "solution"
	}
	return stem
}
