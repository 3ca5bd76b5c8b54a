// Package classify assigns every discovered file exactly one verdict against
// a manifest: Expected, Missing, Misplaced, or Unknown.
package classify

import (
	"path"
	"sort"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/loomhq/docsync/pkg/manifest"
	"github.com/loomhq/docsync/pkg/scan"
)

// Kind is the per-file verdict.
type Kind int

const (
	KindExpected Kind = iota
	KindMissing
	KindMisplaced
	KindUnknown
)

// String returns the verdict name.
func (k Kind) String() string {
	switch k {
	case KindExpected:
		return "expected"
	case KindMissing:
		return "missing"
	case KindMisplaced:
		return "misplaced"
	case KindUnknown:
		return "unknown"
	default:
		return "invalid"
	}
}

// Classification is one file's verdict.
type Classification struct {
	// RelPath is the discovered file's path for Expected/Misplaced/Unknown,
	// or the manifest entry's path for Missing.
	RelPath      string
	Kind         Kind
	Entry        *manifest.Entry // set for Expected and Missing
	CurrentScope manifest.Scope
	TargetScope  manifest.Scope // set for Misplaced
}

// ForeignPattern names a basename pattern known to belong to a specific scope.
// A per-feature document discovered in the global directory matches one of
// these and is classified Misplaced toward the pattern's scope.
type ForeignPattern struct {
	Pattern string
	Scope   manifest.Scope
}

// Classify produces exactly one Classification per inventory file, plus one
// Missing classification per required manifest entry with no Expected match.
//
// A basename matching foreign patterns of more than one scope is ambiguous
// and resolves to Unknown; ambiguity is surfaced, never guessed.
func Classify(inv scan.Inventory, man *manifest.Manifest, currentScope manifest.Scope, foreign []ForeignPattern) []Classification {
	var out []Classification
	matched := make(map[*manifest.Entry]bool)

	for _, relPath := range inv.Paths() {
		if entry, ok := man.Match(relPath, currentScope); ok {
			for i := range man.Entries {
				if man.Entries[i] == entry {
					matched[&man.Entries[i]] = true
				}
			}
			entryCopy := entry
			out = append(out, Classification{
				RelPath:      relPath,
				Kind:         KindExpected,
				Entry:        &entryCopy,
				CurrentScope: currentScope,
			})
			continue
		}

		if target, ok := foreignScopeFor(path.Base(relPath), currentScope, foreign); ok {
			out = append(out, Classification{
				RelPath:      relPath,
				Kind:         KindMisplaced,
				CurrentScope: currentScope,
				TargetScope:  target,
			})
			continue
		}

		out = append(out, Classification{
			RelPath:      relPath,
			Kind:         KindUnknown,
			CurrentScope: currentScope,
		})
	}

	// Required entries with no Expected match are Missing.
	missing := make([]Classification, 0)
	for i := range man.Entries {
		e := &man.Entries[i]
		if !e.Required || e.Scope != currentScope || matched[e] {
			continue
		}
		missing = append(missing, Classification{
			RelPath:      e.PathOrPattern,
			Kind:         KindMissing,
			Entry:        e,
			CurrentScope: currentScope,
		})
	}
	sort.Slice(missing, func(i, j int) bool { return missing[i].RelPath < missing[j].RelPath })

	return append(out, missing...)
}

// foreignScopeFor returns the scope a basename belongs to when exactly one
// scope claims it and that scope differs from the current one. A basename
// claimed by multiple scopes (including the current one) could plausibly
// belong to either, so it is reported as no match and ends up Unknown.
func foreignScopeFor(base string, currentScope manifest.Scope, foreign []ForeignPattern) (manifest.Scope, bool) {
	claims := make(map[manifest.Scope]bool)
	for _, fp := range foreign {
		if ok, err := doublestar.Match(fp.Pattern, base); err == nil && ok {
			claims[fp.Scope] = true
		}
	}
	if len(claims) != 1 {
		return 0, false
	}
	for scope := range claims {
		if scope != currentScope {
			return scope, true
		}
	}
	return 0, false
}
