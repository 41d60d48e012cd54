package autoroute

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/vango-dev/autoroute/pkg/routepath"
)

// Scanner finds controller files under a directory.
type Scanner struct {
	// Pattern is the doublestar glob, relative to the base directory, that
	// files must match. Empty means DefaultPattern.
	Pattern string

	// Ignore lists globs for files to leave out.
	Ignore []string

	// Extensions lists the recognized controller extensions.
	Extensions []string
}

// Validate checks the scanner's globs.
func (s *Scanner) Validate() error {
	for _, p := range append([]string{s.pattern()}, s.Ignore...) {
		if !doublestar.ValidatePattern(p) {
			return fmt.Errorf("autoroute: invalid glob %q: %w", p, doublestar.ErrBadPattern)
		}
	}
	return nil
}

func (s *Scanner) pattern() string {
	if s.Pattern == "" {
		return DefaultPattern
	}
	return s.Pattern
}

// Find returns the absolute paths of the controller files under base. Files
// and directories whose name starts with "." are skipped. The order of the
// result is unspecified.
func (s *Scanner) Find(base string) ([]string, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	root, err := filepath.Abs(base)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDiscovery, err)
	}

	var files []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == root {
			return nil
		}

		if strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}

		if routepath.Ext(d.Name(), s.Extensions) == "" {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		if ok, _ := doublestar.Match(s.pattern(), rel); !ok {
			return nil
		}
		if s.ignored(rel) {
			return nil
		}

		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrDiscovery, root, err)
	}

	return files, nil
}

func (s *Scanner) ignored(rel string) bool {
	for _, p := range s.Ignore {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
	}
	return false
}
