package plan

import (
	"path/filepath"

	"github.com/loomhq/docsync/pkg/scan"
)

// Sync diffs a source inventory against a target inventory and produces the
// plan that makes the target match the source.
//
// Equal hashes produce Skip, differing hashes Update, source-only paths
// Create. Target-only paths are reported as extraneous: deletion of
// user-owned content is never automatic.
func Sync(sourceRoot, targetRoot string, source, target scan.Inventory, dryRun bool) *Plan {
	p := &Plan{TargetRoot: targetRoot, DryRun: dryRun}

	for _, rel := range source.Paths() {
		src := source[rel]
		abs := filepath.Join(sourceRoot, filepath.FromSlash(rel))

		tgt, exists := target[rel]
		switch {
		case exists && tgt.Hash == src.Hash:
			p.Ops = append(p.Ops, Operation{Kind: OpSkip, Path: rel, Reason: "content identical"})
		case exists:
			p.Ops = append(p.Ops, Operation{
				Kind:       OpUpdate,
				Path:       rel,
				Source:     abs,
				SourceHash: src.Hash,
				Reason:     "content differs",
			})
		default:
			p.Ops = append(p.Ops, Operation{
				Kind:       OpCreate,
				Path:       rel,
				Source:     abs,
				SourceHash: src.Hash,
				Reason:     "missing from target",
			})
		}
	}

	for _, rel := range target.Paths() {
		if _, ok := source[rel]; !ok {
			p.Extraneous = append(p.Extraneous, rel)
		}
	}

	p.Ops = Order(p.Ops)
	return p
}
