// Package project enumerates solution directories and loads their
// source files.
package project

import (
	"fmt"
	"os"
	"path/filepath"
)

// Solution is one student submission: a directory containing a single
// source file. SourceMissing marks directories without the configured
// source file; their text is empty and they are reported, not skipped
// silently.
type Solution struct {
	Name          string
	Dir           string
	SourcePath    string
	Source        string
	SourceMissing bool
}

// Discover lists solution subdirectories of root, minus exclusions, in
// lexical order, and loads each one's source text.
func Discover(root, srcFile string, excludeDirs []string) ([]Solution, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("could not read project directory %s: %w", root, err)
	}

	excluded := make(map[string]bool, len(excludeDirs))
	for _, dir := range excludeDirs {
		excluded[dir] = true
	}

	var solutions []Solution
	for _, entry := range entries {
		if !entry.IsDir() || excluded[entry.Name()] {
			continue
		}
		solutions = append(solutions, Load(filepath.Join(root, entry.Name()), srcFile))
	}
	return solutions, nil
}

// Load builds a Solution from a single directory.
func Load(dir, srcFile string) Solution {
	sol := Solution{
		Name:       filepath.Base(dir),
		Dir:        dir,
		SourcePath: filepath.Join(dir, srcFile),
	}
	data, err := os.ReadFile(sol.SourcePath)
	if err != nil {
		sol.SourceMissing = true
		return sol
	}
	sol.Source = string(data)
	return sol
}
