package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func parseConfig(t *testing.T, yaml string) *Config {
	t.Helper()
	cfg, err := Parse([]byte(yaml), zap.NewNop())
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	return cfg
}

const fullConfig = `
source: proj.c
solutions:
  exclude-dirs: [templates, __MACOSX]
compiler:
  cc: gcc
  cflags: -std=c99 -Wall
  ldflags: -lm
timeout: 2000
scoring:
  clamp-zero: true
  penalty-without-compile: false
tests:
  - name: basic
    score: 1.0
    args: "input.txt"
    stdin: "hello"
    stdout: "HELLO\n"
  - name: edge cases
    score: 2.5
    requirement: any
    test-cases:
      - args: ""
        stdout: "*"
      - args: "-v"
        stderr: "version 1\n"
analyses:
  - analyser: no-call
    funs: [exit, abort]
    penalty: -0.2
  - analyser: no-globals
    except: [word]
    penalty: -0.5
scripts:
  - check_style.sh
`

func TestParseFullConfig(t *testing.T) {
	cfg := parseConfig(t, fullConfig)

	if cfg.Source != "proj.c" {
		t.Errorf("Source = %q, want proj.c", cfg.Source)
	}
	if got := cfg.Solutions.ExcludeDirs; len(got) != 2 || got[0] != "templates" {
		t.Errorf("ExcludeDirs = %v", got)
	}
	if cfg.Compiler.CFlags != "-std=c99 -Wall" {
		t.Errorf("CFlags = %q", cfg.Compiler.CFlags)
	}
	if cfg.TimeoutMs != 2000 {
		t.Errorf("TimeoutMs = %d, want 2000", cfg.TimeoutMs)
	}
	if !cfg.Scoring.ClampZero {
		t.Error("ClampZero should be true")
	}
	if cfg.PenaltyWithoutCompile() {
		t.Error("PenaltyWithoutCompile() should be false when configured off")
	}

	if len(cfg.Tests) != 2 {
		t.Fatalf("len(Tests) = %d, want 2", len(cfg.Tests))
	}
	basic := cfg.Tests[0]
	if basic.Requirement != RequireAll {
		t.Errorf("default requirement = %q, want all", basic.Requirement)
	}
	if basic.Stdout == nil || *basic.Stdout != "HELLO\n" {
		t.Errorf("Stdout = %v", basic.Stdout)
	}
	if basic.Stderr != nil {
		t.Errorf("unset Stderr should be nil, got %v", *basic.Stderr)
	}
	edge := cfg.Tests[1]
	if edge.Requirement != RequireAny {
		t.Errorf("requirement = %q, want any", edge.Requirement)
	}
	if len(edge.Cases) != 2 {
		t.Fatalf("len(Cases) = %d, want 2", len(edge.Cases))
	}
	if edge.Cases[0].Stdout == nil || *edge.Cases[0].Stdout != "*" {
		t.Errorf("wildcard case Stdout = %v", edge.Cases[0].Stdout)
	}

	if len(cfg.Analyses) != 2 {
		t.Fatalf("len(Analyses) = %d, want 2", len(cfg.Analyses))
	}
	if cfg.Analyses[0].Penalty != -0.2 {
		t.Errorf("Penalty = %v, want -0.2", cfg.Analyses[0].Penalty)
	}
	if len(cfg.Scripts) != 1 || cfg.Scripts[0] != "check_style.sh" {
		t.Errorf("Scripts = %v", cfg.Scripts)
	}
}

func TestParseDefaults(t *testing.T) {
	cfg := parseConfig(t, "source: proj.c\n")

	if cfg.TimeoutMs != DefaultTimeoutMs {
		t.Errorf("TimeoutMs = %d, want default %d", cfg.TimeoutMs, DefaultTimeoutMs)
	}
	if cfg.Compiler.CC != DefaultCompiler {
		t.Errorf("CC = %q, want default %q", cfg.Compiler.CC, DefaultCompiler)
	}
	if cfg.Scoring.ClampZero {
		t.Error("ClampZero should default to false")
	}
	if !cfg.PenaltyWithoutCompile() {
		t.Error("PenaltyWithoutCompile() should default to true")
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "missing source",
			yaml:    "timeout: 1000\n",
			wantErr: "source",
		},
		{
			name:    "not YAML at all",
			yaml:    "{{{{",
			wantErr: "YAML",
		},
		{
			name:    "negative score",
			yaml:    "source: a.c\ntests:\n  - name: t\n    score: -1\n",
			wantErr: "negative score",
		},
		{
			name:    "unknown requirement",
			yaml:    "source: a.c\ntests:\n  - name: t\n    score: 1\n    requirement: most\n",
			wantErr: "requirement",
		},
		{
			name:    "positive penalty",
			yaml:    "source: a.c\nanalyses:\n  - analyser: no-call\n    funs: [exit]\n    penalty: 0.5\n",
			wantErr: "positive penalty",
		},
		{
			name:    "no-call without funs",
			yaml:    "source: a.c\nanalyses:\n  - analyser: no-call\n    penalty: -0.5\n",
			wantErr: "funs",
		},
		{
			name:    "no-header without header",
			yaml:    "source: a.c\nanalyses:\n  - analyser: no-header\n    penalty: -0.5\n",
			wantErr: "header",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml), zap.NewNop())
			if err == nil {
				t.Fatal("Parse() expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want it to mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestWarnUnknownKeys(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)

	cfg, err := Parse([]byte(`
source: a.c
grading: strict
compiler:
  CC: clang
  cflags: -Wall
solutions:
  exclude: [templates]
scoring:
  clamp: true
tests:
  - name: t
    score: 1
    retries: 3
    test-cases:
      - args: ""
        expect: "hi"
analyses:
  - analyser: no-call
    funs: [exit]
    penalty: -0.1
    severity: high
`), zap.New(core))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	// The uppercase key does not reach the typed config; the warning is
	// the only trace of it.
	if cfg.Compiler.CC != DefaultCompiler {
		t.Errorf("CC = %q, want default %q", cfg.Compiler.CC, DefaultCompiler)
	}

	warned := make(map[string]bool)
	for _, entry := range logs.All() {
		if entry.Message != "unsupported config option" {
			continue
		}
		for _, field := range entry.Context {
			if field.Key == "option" {
				warned[field.String] = true
			}
		}
	}

	for _, want := range []string{"grading", "CC", "exclude", "clamp", "retries", "expect", "severity"} {
		if !warned[want] {
			t.Errorf("no warning for unknown option %q, warned: %v", want, warned)
		}
	}
	for _, ok := range []string{"source", "cflags", "name", "score", "analyser", "funs", "penalty"} {
		if warned[ok] {
			t.Errorf("supported option %q was warned about", ok)
		}
	}
}

func TestUnsupportedAnalyserIsDropped(t *testing.T) {
	cfg := parseConfig(t, `
source: a.c
analyses:
  - analyser: no-recursion
    penalty: -1.0
  - analyser: no-call
    funs: [system]
    penalty: -0.5
`)
	if len(cfg.Analyses) != 1 {
		t.Fatalf("len(Analyses) = %d, want 1 (unsupported dropped)", len(cfg.Analyses))
	}
	if cfg.Analyses[0].Analyser != "no-call" {
		t.Errorf("kept analyser = %q, want no-call", cfg.Analyses[0].Analyser)
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tests.yaml")
	if err := os.WriteFile(path, []byte("source: proj.c\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path, zap.NewNop())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Source != "proj.c" {
		t.Errorf("Source = %q, want proj.c", cfg.Source)
	}

	if _, err := Load(filepath.Join(dir, "missing.yaml"), zap.NewNop()); err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}
