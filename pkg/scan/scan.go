// Package scan walks a directory tree and produces a content-addressed
// inventory of its files.
//
// An Inventory is built fresh on every invocation and never persisted;
// correctness comes from recomputation, not cache invalidation. Unreadable
// entries become warnings rather than fatal errors, so a single bad file
// never blocks reconciliation of the rest of the tree.
package scan

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/loomhq/docsync/pkg/digest"
	"github.com/loomhq/docsync/pkg/ignore"
)

// FileRecord describes a single discovered file.
type FileRecord struct {
	RelPath string `json:"rel_path"` // slash-separated, relative to the scan root
	Hash    string `json:"hash"`
	Size    int64  `json:"size"`
}

// Inventory maps relative paths to file records.
type Inventory map[string]FileRecord

// Paths returns the inventory's relative paths in sorted order. Plan
// generation iterates this, so plans are reproducible regardless of how the
// inventory was built.
func (inv Inventory) Paths() []string {
	paths := make([]string, 0, len(inv))
	for p := range inv {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Warning records a path the scanner could not fully process.
type Warning struct {
	Path string `json:"path"`
	Err  error  `json:"-"`
}

func (w Warning) String() string {
	return fmt.Sprintf("%s: %v", w.Path, w.Err)
}

// Options configures a Scanner.
type Options struct {
	// IgnorePatterns are gitignore-style patterns applied in addition to
	// .gitignore and .docsyncignore files found under the root.
	IgnorePatterns []string
	// Workers bounds concurrent hashing. Zero or one means sequential.
	Workers int
	// Hasher overrides the content hasher. Defaults to SHA-256.
	Hasher digest.Hasher
}

// Scanner produces Inventories of directory trees.
type Scanner struct {
	opts Options
}

// NewScanner creates a Scanner.
func NewScanner(opts Options) *Scanner {
	if opts.Hasher == nil {
		opts.Hasher = digest.NewSHA256Hasher()
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.Workers > runtime.NumCPU() {
		opts.Workers = runtime.NumCPU()
	}
	return &Scanner{opts: opts}
}

// Scan walks root and returns its Inventory plus any per-path warnings.
// Symlinks are skipped (recorded as warnings) rather than followed.
// An error is returned only when the root itself is unusable.
func (s *Scanner) Scan(ctx context.Context, root string) (Inventory, []Warning, error) {
	if _, err := os.Stat(root); err != nil {
		return nil, nil, fmt.Errorf("scan root unusable: %w", err)
	}

	matcher, err := ignore.NewMatcher(root, s.opts.IgnorePatterns)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build ignore matcher: %w", err)
	}

	var candidates []string
	var warnings []Warning

	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Unreadable entry: record and continue with the rest of the tree.
			warnings = append(warnings, Warning{Path: path, Err: err})
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if path == root {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			warnings = append(warnings, Warning{Path: path, Err: err})
			return nil
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if matcher.Match(rel, true) {
				return filepath.SkipDir
			}
			return nil
		}

		if d.Type()&fs.ModeSymlink != 0 {
			warnings = append(warnings, Warning{Path: path, Err: fmt.Errorf("symlink skipped")})
			return nil
		}
		if !d.Type().IsRegular() {
			warnings = append(warnings, Warning{Path: path, Err: fmt.Errorf("non-regular file skipped")})
			return nil
		}

		if matcher.Match(rel, false) {
			return nil
		}

		candidates = append(candidates, rel)
		return nil
	})
	if walkErr != nil {
		return nil, warnings, fmt.Errorf("failed to walk %s: %w", root, walkErr)
	}

	inv, hashWarnings := s.hashAll(ctx, root, candidates)
	warnings = append(warnings, hashWarnings...)

	if err := ctx.Err(); err != nil {
		return nil, warnings, err
	}
	return inv, warnings, nil
}

// hashAll hashes candidate files, fanning out when Workers > 1. Parallelism
// is a throughput optimization only; the resulting Inventory is a map and
// consumers iterate it via Paths(), so ordering is unaffected.
func (s *Scanner) hashAll(ctx context.Context, root string, candidates []string) (Inventory, []Warning) {
	inv := make(Inventory, len(candidates))
	var warnings []Warning

	if s.opts.Workers <= 1 {
		for _, rel := range candidates {
			if ctx.Err() != nil {
				return inv, warnings
			}
			rec, err := s.record(root, rel)
			if err != nil {
				warnings = append(warnings, Warning{Path: rel, Err: err})
				continue
			}
			inv[rel] = rec
		}
		return inv, warnings
	}

	type result struct {
		rec FileRecord
		err error
		rel string
	}
	results := make([]result, len(candidates))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Workers)
	for i, rel := range candidates {
		g.Go(func() error {
			if gctx.Err() != nil {
				results[i] = result{rel: rel, err: gctx.Err()}
				return nil
			}
			rec, err := s.record(root, rel)
			results[i] = result{rec: rec, err: err, rel: rel}
			return nil
		})
	}
	_ = g.Wait()

	for _, r := range results {
		if r.err != nil {
			warnings = append(warnings, Warning{Path: r.rel, Err: r.err})
			continue
		}
		inv[r.rel] = r.rec
	}
	return inv, warnings
}

func (s *Scanner) record(root, rel string) (FileRecord, error) {
	abs := filepath.Join(root, filepath.FromSlash(rel))
	st, err := os.Stat(abs)
	if err != nil {
		return FileRecord{}, err
	}
	hash, err := s.opts.Hasher.HashFile(abs)
	if err != nil {
		return FileRecord{}, err
	}
	return FileRecord{RelPath: rel, Hash: hash, Size: st.Size()}, nil
}
