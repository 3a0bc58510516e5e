// Package config loads and validates the project evaluation configuration.
package config

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// DefaultTimeoutMs is used when the configuration does not set a timeout.
const DefaultTimeoutMs = 5000

// DefaultCompiler is used when the configuration does not name a compiler.
const DefaultCompiler = "gcc"

// Requirement controls how many test cases must pass for a test's
// score to be awarded.
type Requirement string

const (
	RequireAll Requirement = "all"
	RequireAny Requirement = "any"
)

// TestCase is one concrete invocation of a solution binary: arguments,
// optional stdin text and optional expected output patterns. A nil
// pattern means the stream is not checked.
type TestCase struct {
	Args   string  `yaml:"args"`
	Stdin  *string `yaml:"stdin"`
	Stdout *string `yaml:"stdout"`
	Stderr *string `yaml:"stderr"`
}

// Test is a named, scored unit of evaluation. When Cases is empty the
// test's own args/stdin/stdout/stderr fields describe a single implicit
// case.
type Test struct {
	Name        string      `yaml:"name"`
	Score       float64     `yaml:"score"`
	Requirement Requirement `yaml:"requirement"`
	Args        string      `yaml:"args"`
	Stdin       *string     `yaml:"stdin"`
	Stdout      *string     `yaml:"stdout"`
	Stderr      *string     `yaml:"stderr"`
	Cases       []TestCase  `yaml:"test-cases"`
}

// AnalyserSpec configures one static analysis rule.
type AnalyserSpec struct {
	Analyser string   `yaml:"analyser"`
	Funs     []string `yaml:"funs"`
	Header   string   `yaml:"header"`
	Except   []string `yaml:"except"`
	Penalty  float64  `yaml:"penalty"`
}

// SolutionsConfig controls solution directory discovery.
type SolutionsConfig struct {
	ExcludeDirs []string `yaml:"exclude-dirs"`
}

// CompilerConfig holds the toolchain settings. Flag strings are split
// into argv words with shell quoting rules at engine construction.
type CompilerConfig struct {
	CC      string `yaml:"cc"`
	CFlags  string `yaml:"cflags"`
	LDFlags string `yaml:"ldflags"`
}

// ScoringConfig resolves the aggregation ambiguities explicitly instead
// of hard-coding a guess: whether analyser penalties apply to solutions
// that failed to compile, and whether the final score is clamped at 0.
type ScoringConfig struct {
	ClampZero             bool  `yaml:"clamp-zero"`
	PenaltyWithoutCompile *bool `yaml:"penalty-without-compile"`
}

// Config is the full project configuration, typically loaded from a
// YAML file inside the project directory.
type Config struct {
	Source    string          `yaml:"source"`
	Solutions SolutionsConfig `yaml:"solutions"`
	Compiler  CompilerConfig  `yaml:"compiler"`
	TimeoutMs int64           `yaml:"timeout"`
	Scoring   ScoringConfig   `yaml:"scoring"`
	Tests     []Test          `yaml:"tests"`
	Analyses  []AnalyserSpec  `yaml:"analyses"`
	Scripts   []string        `yaml:"scripts"`
}

// knownKeys maps each config section to its supported keys; the empty
// section is the document root. Sections that appear as keys here are
// descended into by the unknown-key walk.
var knownKeys = map[string][]string{
	"": {"source", "solutions", "compiler", "timeout", "scoring",
		"tests", "analyses", "scripts"},
	"solutions":  {"exclude-dirs"},
	"compiler":   {"cc", "cflags", "ldflags"},
	"scoring":    {"clamp-zero", "penalty-without-compile"},
	"tests":      {"name", "score", "requirement", "args", "stdin", "stdout", "stderr", "test-cases"},
	"test-cases": {"args", "stdin", "stdout", "stderr"},
	"analyses":   {"analyser", "funs", "header", "except", "penalty"},
}

// AnalyserKinds lists the supported analyser names.
var AnalyserKinds = []string{"no-call", "no-header", "no-globals"}

// Load reads, parses and validates a configuration file. Unknown
// top-level options and unsupported analysers are warned about, not
// rejected, so configurations stay forward compatible.
func Load(path string, logger *zap.Logger) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	return Parse(data, logger)
}

// Parse parses and validates raw YAML configuration content.
func Parse(data []byte, logger *zap.Logger) (*Config, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("invalid configuration YAML: %w", err)
	}
	warnUnknownKeys(&root, logger)

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.validate(logger); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.TimeoutMs <= 0 {
		c.TimeoutMs = DefaultTimeoutMs
	}
	if c.Compiler.CC == "" {
		c.Compiler.CC = DefaultCompiler
	}
	for i := range c.Tests {
		if c.Tests[i].Requirement == "" {
			c.Tests[i].Requirement = RequireAll
		}
	}
}

// PenaltyWithoutCompile reports whether analyser penalties apply to
// solutions that failed to compile. Defaults to true: analysers inspect
// source text, not the binary.
func (c *Config) PenaltyWithoutCompile() bool {
	if c.Scoring.PenaltyWithoutCompile == nil {
		return true
	}
	return *c.Scoring.PenaltyWithoutCompile
}

func (c *Config) validate(logger *zap.Logger) error {
	if c.Source == "" {
		return fmt.Errorf("invalid configuration: missing mandatory field 'source'")
	}
	for i, test := range c.Tests {
		name := test.Name
		if name == "" {
			name = fmt.Sprintf("test #%d", i+1)
		}
		if test.Score < 0 {
			return fmt.Errorf("invalid configuration: %s has a negative score", name)
		}
		if test.Requirement != RequireAll && test.Requirement != RequireAny {
			return fmt.Errorf("invalid configuration: %s has unknown requirement %q (expected 'all' or 'any')",
				name, test.Requirement)
		}
	}

	kept := c.Analyses[:0]
	for _, spec := range c.Analyses {
		if !isKnownAnalyser(spec.Analyser) {
			logger.Warn("configuration contains an unsupported analyser",
				zap.String("analyser", spec.Analyser))
			continue
		}
		if spec.Penalty > 0 {
			return fmt.Errorf("invalid configuration: analyser %q has a positive penalty %v",
				spec.Analyser, spec.Penalty)
		}
		switch spec.Analyser {
		case "no-call":
			if len(spec.Funs) == 0 {
				return fmt.Errorf("invalid configuration: no-call analyser is missing mandatory field 'funs'")
			}
		case "no-header":
			if spec.Header == "" {
				return fmt.Errorf("invalid configuration: no-header analyser is missing mandatory field 'header'")
			}
		}
		kept = append(kept, spec)
	}
	c.Analyses = kept
	return nil
}

func isKnownAnalyser(name string) bool {
	for _, k := range AnalyserKinds {
		if k == name {
			return true
		}
	}
	return false
}

// warnUnknownKeys emits a warning for every unsupported option,
// mirroring what strict decoding would reject. Nested sections are
// checked too: key matching is case-sensitive, so a config carrying
// `CC:` instead of `cc:` would otherwise be dropped without a trace.
func warnUnknownKeys(root *yaml.Node, logger *zap.Logger) {
	if root.Kind != yaml.DocumentNode || len(root.Content) == 0 {
		return
	}
	warnUnknownKeysIn(root.Content[0], "", logger)
}

func warnUnknownKeysIn(node *yaml.Node, section string, logger *zap.Logger) {
	if node.Kind == yaml.SequenceNode {
		for _, item := range node.Content {
			warnUnknownKeysIn(item, section, logger)
		}
		return
	}
	if node.Kind != yaml.MappingNode {
		return
	}
	known := knownKeys[section]
	for i := 0; i+1 < len(node.Content); i += 2 {
		key := strings.TrimSpace(node.Content[i].Value)
		if !containsKey(known, key) {
			if section == "" {
				logger.Warn("unsupported config option", zap.String("option", key))
			} else {
				logger.Warn("unsupported config option",
					zap.String("section", section), zap.String("option", key))
			}
			continue
		}
		if _, nested := knownKeys[key]; nested {
			warnUnknownKeysIn(node.Content[i+1], key, logger)
		}
	}
}

func containsKey(keys []string, key string) bool {
	for _, k := range keys {
		if k == key {
			return true
		}
	}
	return false
}
