package sampledata

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/fhirbench/fhirbench/pkg/types"
)

// Set is a read-only, already-enumerated directory of sample bundle files.
// It is opened once per run and shared read-only across every probe.
type Set struct {
	dir   string
	paths []string
}

// Load enumerates dir for *.json files and sorts them for deterministic
// indexing. It does not read any file contents yet.
func Load(dir string) (*Set, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, &types.IoError{Op: "enumerate sample-data directory", Cause: err}
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.HasSuffix(strings.ToLower(e.Name()), ".json") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	paths := make([]string, len(names))
	for i, n := range names {
		paths[i] = filepath.Join(dir, n)
	}

	return &Set{dir: dir, paths: paths}, nil
}

// Len returns the number of sample files found.
func (s *Set) Len() int { return len(s.paths) }

// At reads the file at position index mod Len, so any iteration count can
// draw from a fixed, possibly small, population. Returns an IoError if the
// set is empty or the file cannot be read.
func (s *Set) At(index int) ([]byte, error) {
	if len(s.paths) == 0 {
		return nil, &types.IoError{Op: "read sample data", Cause: os.ErrNotExist}
	}
	path := s.paths[index%len(s.paths)]
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &types.IoError{Op: "read sample data file " + path, Cause: err}
	}
	return data, nil
}
