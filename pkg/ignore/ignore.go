// Package ignore provides gitignore-based file filtering using go-git
package ignore

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-billy/v5/osfs"
	gitignore "github.com/go-git/go-git/v5/plumbing/format/gitignore"
)

// Matcher filters paths relative to a scan root. Matching is always performed
// against root-relative slash paths, so results do not depend on the process
// working directory.
type Matcher struct {
	matcher gitignore.Matcher
}

// NewMatcher creates a matcher with layered ignore sources:
// 1. built-in defaults (version-control and tooling directories)
// 2. caller-supplied patterns (CLI flags or config)
// 3. .gitignore files under the root (via go-git's ReadPatterns)
// 4. .docsyncignore at the root
func NewMatcher(root string, extraPatterns []string) (*Matcher, error) {
	var allPatterns []gitignore.Pattern

	defaultPatterns := []string{".git/**", ".git"}
	for _, pattern := range defaultPatterns {
		allPatterns = append(allPatterns, gitignore.ParsePattern(pattern, nil))
	}

	for _, pattern := range extraPatterns {
		pattern = strings.TrimSpace(pattern)
		if pattern == "" {
			continue
		}
		allPatterns = append(allPatterns, gitignore.ParsePattern(pattern, nil))
	}

	fs := osfs.New(root)
	if gitPatterns, err := gitignore.ReadPatterns(fs, nil); err == nil {
		allPatterns = append(allPatterns, gitPatterns...)
	}

	if localPatterns, err := readIgnoreFile(filepath.Join(root, ".docsyncignore")); err == nil {
		for _, pattern := range localPatterns {
			allPatterns = append(allPatterns, gitignore.ParsePattern(pattern, nil))
		}
	}

	return &Matcher{matcher: gitignore.NewMatcher(allPatterns)}, nil
}

// readIgnoreFile reads patterns from a .docsyncignore file
func readIgnoreFile(path string) ([]string, error) {
	cleaned := filepath.Clean(path)
	if filepath.Base(cleaned) != ".docsyncignore" {
		return nil, os.ErrInvalid
	}
	content, err := os.ReadFile(cleaned) // #nosec G304 -- basename allowlisted above
	if err != nil {
		return nil, err
	}

	var patterns []string
	for _, line := range strings.Split(string(content), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		patterns = append(patterns, line)
	}
	return patterns, nil
}

// Match reports whether a root-relative slash path should be ignored.
func (m *Matcher) Match(relPath string, isDir bool) bool {
	pathParts := splitPath(relPath)
	if len(pathParts) == 0 {
		return false
	}
	return m.matcher.Match(pathParts, isDir)
}

// splitPath converts a slash-separated path into components for go-git matching
func splitPath(path string) []string {
	path = strings.TrimPrefix(filepath.ToSlash(path), "/")
	if path == "" || path == "." {
		return nil
	}

	parts := strings.Split(path, "/")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if part != "" && part != "." {
			result = append(result, part)
		}
	}
	return result
}
