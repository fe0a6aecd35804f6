// Package exclusion loads the list of known test entry ids.
package exclusion

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// Set holds entry ids that must never reach output files.
type Set map[string]struct{}

// Contains reports whether id is excluded.
func (s Set) Contains(id string) bool {
	_, ok := s[id]
	return ok
}

// Len is the number of excluded ids.
func (s Set) Len() int {
	return len(s)
}

// Parse reads one id per line. Blank lines and lines starting with # are
// skipped; surrounding whitespace is trimmed.
func Parse(r io.Reader) (Set, error) {
	set := Set{}
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		set[line] = struct{}{}
	}
	if err := sc.Err(); err != nil {
		return Set{}, err
	}
	return set, nil
}

// Load reads the exclusion file at path. It always returns a usable Set;
// on error the set is empty and the error says why, so callers can log and
// continue. A missing file yields an error matching os.ErrNotExist.
func Load(path string) (Set, error) {
	if path == "" {
		return Set{}, fmt.Errorf("no exclusion file configured: %w", os.ErrNotExist)
	}

	f, err := os.Open(path)
	if err != nil {
		return Set{}, fmt.Errorf("failed to open exclusion file: %w", err)
	}
	defer f.Close()

	set, err := Parse(f)
	if err != nil {
		return Set{}, fmt.Errorf("failed to read exclusion file %s: %w", path, err)
	}
	return set, nil
}
