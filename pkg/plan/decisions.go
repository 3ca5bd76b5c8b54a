package plan

import (
	"fmt"
	"path"
	"sort"

	"github.com/loomhq/docsync/pkg/classify"
	"github.com/loomhq/docsync/pkg/digest"
	"github.com/loomhq/docsync/pkg/manifest"
	"github.com/loomhq/docsync/pkg/scan"
)

// Action is a resolved choice for a classification needing a decision.
type Action int

const (
	ActionSkip Action = iota
	ActionCreate
	ActionMove
	ActionDelete
)

// String returns the action name.
func (a Action) String() string {
	switch a {
	case ActionSkip:
		return "skip"
	case ActionCreate:
		return "create"
	case ActionMove:
		return "move"
	case ActionDelete:
		return "delete"
	default:
		return "invalid"
	}
}

// Decision resolves one Missing/Misplaced/Unknown classification.
type Decision struct {
	Action Action
	// Feature names the destination feature for ActionMove toward the
	// per-feature scope.
	Feature string
	// Content supplies bytes for ActionCreate.
	Content []byte
}

// DecisionMap maps a classification's RelPath (or a missing entry's path) to
// its resolved decision. Planning with a pre-resolved map requires no
// resolver in the loop.
type DecisionMap map[string]Decision

// Layout maps scopes to directories under the target root.
type Layout struct {
	// FeaturesDir is the directory holding per-feature subtrees.
	// Defaults to "features".
	FeaturesDir string
}

// DestFor computes the destination for a file moving into a scope.
func (l Layout) DestFor(scope manifest.Scope, feature, base string) string {
	featuresDir := l.FeaturesDir
	if featuresDir == "" {
		featuresDir = "features"
	}
	if scope == manifest.ScopePerFeature {
		return path.Join(featuresDir, feature, base)
	}
	return base
}

// FromDecisions turns classifications plus a decision map into a plan.
// Classifications without a decision are returned as unresolved; they produce
// no operations and make the run's status non-zero.
//
// When a resolved Create and a resolved Delete would write and remove
// identical content, the pair is coalesced into a single Move: it reaches the
// same end state without churn and preserves whatever metadata a rename keeps.
func FromDecisions(
	targetRoot string,
	inv scan.Inventory,
	cls []classify.Classification,
	decisions DecisionMap,
	layout Layout,
	hasher digest.Hasher,
	dryRun bool,
) (*Plan, []string) {
	p := &Plan{TargetRoot: targetRoot, DryRun: dryRun}
	var unresolved []string

	for _, c := range cls {
		switch c.Kind {
		case classify.KindExpected:
			continue

		case classify.KindMissing:
			d, ok := decisions[c.RelPath]
			if !ok {
				unresolved = append(unresolved, c.RelPath)
				continue
			}
			switch d.Action {
			case ActionCreate:
				if c.Entry != nil && c.Entry.IsPattern() {
					p.Warnings = append(p.Warnings, fmt.Sprintf("%s: cannot create a pattern entry", c.RelPath))
					continue
				}
				p.Ops = append(p.Ops, Operation{
					Kind:       OpCreate,
					Path:       c.RelPath,
					Content:    d.Content,
					SourceHash: hasher.HashBytes(d.Content),
					Reason:     "required by manifest",
				})
			case ActionSkip:
				p.Ops = append(p.Ops, Operation{Kind: OpSkip, Path: c.RelPath, Reason: "missing, skipped by decision"})
			default:
				unresolved = append(unresolved, c.RelPath)
			}

		case classify.KindMisplaced, classify.KindUnknown:
			d, ok := decisions[c.RelPath]
			if !ok {
				unresolved = append(unresolved, c.RelPath)
				continue
			}
			switch d.Action {
			case ActionMove:
				dest := layout.DestFor(moveScope(c), d.Feature, path.Base(c.RelPath))
				if dest == c.RelPath {
					p.Ops = append(p.Ops, Operation{Kind: OpSkip, Path: c.RelPath, Reason: "already at destination"})
					continue
				}
				p.Ops = append(p.Ops, Operation{
					Kind:       OpMove,
					From:       c.RelPath,
					To:         dest,
					SourceHash: inv[c.RelPath].Hash,
					Reason:     fmt.Sprintf("%s file relocated", c.Kind),
				})
			case ActionDelete:
				p.Ops = append(p.Ops, Operation{
					Kind:       OpDelete,
					Path:       c.RelPath,
					SourceHash: inv[c.RelPath].Hash,
					Reason:     "deleted by decision",
				})
			case ActionSkip:
				p.Ops = append(p.Ops, Operation{Kind: OpSkip, Path: c.RelPath, Reason: "skipped by decision"})
			default:
				unresolved = append(unresolved, c.RelPath)
			}
		}
	}

	p.Ops = coalesceMoves(p.Ops)
	p.Ops = Order(p.Ops)
	sort.Strings(unresolved)
	return p, unresolved
}

// moveScope picks the scope a misplaced or unknown file moves toward.
// Misplaced files carry an inferred target scope; unknown files move to the
// per-feature scope the decision names.
func moveScope(c classify.Classification) manifest.Scope {
	if c.Kind == classify.KindMisplaced {
		return c.TargetScope
	}
	return manifest.ScopePerFeature
}

// coalesceMoves replaces Create+Delete pairs carrying identical content with
// a single Move.
func coalesceMoves(ops []Operation) []Operation {
	out := make([]Operation, 0, len(ops))
	consumed := make(map[int]bool)

	for i, op := range ops {
		if consumed[i] {
			continue
		}
		if op.Kind != OpCreate || op.SourceHash == "" {
			out = append(out, op)
			continue
		}

		merged := false
		for j, del := range ops {
			if consumed[j] || del.Kind != OpDelete || i == j {
				continue
			}
			// The deleted file's content digest rides on the create's hash
			// comparison; equal digests mean equal bytes.
			if del.SourceHash != "" && del.SourceHash == op.SourceHash {
				out = append(out, Operation{
					Kind:       OpMove,
					From:       del.Path,
					To:         op.Path,
					SourceHash: op.SourceHash,
					Reason:     "create and delete coalesced",
				})
				consumed[j] = true
				merged = true
				break
			}
		}
		if !merged {
			out = append(out, op)
		}
	}
	return out
}
