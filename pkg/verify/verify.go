// Package verify re-scans a tree after apply and checks the post-state
// against what the plan promised.
//
// Verification failures are the one class of error treated as fatal: every
// other failure mode degrades to a warning or a per-operation error, but a
// tree that does not match its own plan after apply means something outside
// the engine's model happened, and callers must not report success.
package verify

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/loomhq/docsync/pkg/execute"
	"github.com/loomhq/docsync/pkg/plan"
	"github.com/loomhq/docsync/pkg/scan"
)

// Mismatch describes one divergence between the expected and actual
// post-state.
type Mismatch struct {
	RelPath  string `json:"rel_path"`
	Reason   string `json:"reason"`
	WantHash string `json:"want_hash,omitempty"`
	GotHash  string `json:"got_hash,omitempty"`
}

func (m Mismatch) String() string {
	if m.WantHash != "" || m.GotHash != "" {
		return fmt.Sprintf("%s: %s (want %s, got %s)", m.RelPath, m.Reason, short(m.WantHash), short(m.GotHash))
	}
	return fmt.Sprintf("%s: %s", m.RelPath, m.Reason)
}

func short(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	if h == "" {
		return "-"
	}
	return h
}

// Error aggregates all mismatches found in one verification pass.
type Error struct {
	Mismatches []Mismatch
}

func (e *Error) Error() string {
	lines := make([]string, 0, len(e.Mismatches))
	for _, m := range e.Mismatches {
		lines = append(lines, m.String())
	}
	return fmt.Sprintf("verification failed (%d mismatches): %s", len(e.Mismatches), strings.Join(lines, "; "))
}

// Expected computes the inventory the target tree should hold after the
// given outcomes, starting from the pre-apply inventory. Only outcomes that
// actually applied contribute; failed or dry-run operations leave the state
// untouched.
func Expected(before scan.Inventory, outcomes []execute.Outcome) scan.Inventory {
	expected := make(scan.Inventory, len(before))
	for k, v := range before {
		expected[k] = v
	}

	for _, o := range outcomes {
		if !o.Applied {
			continue
		}
		op := o.Op
		switch op.Kind {
		case plan.OpCreate, plan.OpUpdate:
			expected[op.Path] = scan.FileRecord{RelPath: op.Path, Hash: op.SourceHash}
		case plan.OpMove:
			hash := op.SourceHash
			if hash == "" {
				hash = before[op.From].Hash
			}
			delete(expected, op.From)
			expected[op.To] = scan.FileRecord{RelPath: op.To, Hash: hash}
		case plan.OpDelete:
			delete(expected, op.Path)
		}
	}
	return expected
}

// Verify re-scans root with the given scanner and compares the result
// against expected. File counts, per-path presence, and content digests must
// all agree; a hash recorded as empty checks presence only. Returns *Error
// when the tree diverges.
func Verify(ctx context.Context, scanner *scan.Scanner, root string, expected scan.Inventory) error {
	actual, _, err := scanner.Scan(ctx, root)
	if err != nil {
		return fmt.Errorf("post-apply scan failed: %w", err)
	}
	return Compare(expected, actual)
}

// Compare checks an actual inventory against an expected one.
func Compare(expected, actual scan.Inventory) error {
	var mismatches []Mismatch

	for _, rel := range expected.Paths() {
		want := expected[rel]
		got, ok := actual[rel]
		if !ok {
			mismatches = append(mismatches, Mismatch{RelPath: rel, Reason: "missing after apply", WantHash: want.Hash})
			continue
		}
		if want.Hash != "" && got.Hash != want.Hash {
			mismatches = append(mismatches, Mismatch{RelPath: rel, Reason: "content mismatch", WantHash: want.Hash, GotHash: got.Hash})
		}
	}

	for _, rel := range actual.Paths() {
		if _, ok := expected[rel]; !ok {
			mismatches = append(mismatches, Mismatch{RelPath: rel, Reason: "unexpected file after apply", GotHash: actual[rel].Hash})
		}
	}

	if len(mismatches) == 0 {
		return nil
	}
	sort.Slice(mismatches, func(i, j int) bool { return mismatches[i].RelPath < mismatches[j].RelPath })
	return &Error{Mismatches: mismatches}
}
