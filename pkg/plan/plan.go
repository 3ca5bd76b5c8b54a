// Package plan computes ordered, deterministic sequences of file operations
// that reconcile actual state with desired state.
//
// Two planning modes share one operation model: sync mode diffs a source
// inventory against a target inventory; decision mode turns classifications
// plus resolved decisions into operations. Plans are pure data; applying them
// is the executor's job.
package plan

import (
	"sort"
)

// OpKind is the operation type.
type OpKind int

const (
	OpCreate OpKind = iota
	OpUpdate
	OpMove
	OpDelete
	OpRemoveDir
	OpSkip
)

// String returns the operation name.
func (k OpKind) String() string {
	switch k {
	case OpCreate:
		return "create"
	case OpUpdate:
		return "update"
	case OpMove:
		return "move"
	case OpDelete:
		return "delete"
	case OpRemoveDir:
		return "rmdir"
	case OpSkip:
		return "skip"
	default:
		return "invalid"
	}
}

// Operation is a single reconciliation step. Paths are slash-separated and
// relative to the plan's target root.
type Operation struct {
	Kind OpKind `json:"kind"`

	// Path is the subject of Create/Update/Delete/RemoveDir/Skip.
	Path string `json:"path,omitempty"`

	// From and To are set for Move.
	From string `json:"from,omitempty"`
	To   string `json:"to,omitempty"`

	// Source is an absolute path content is read from at apply time
	// (sync-mode Create/Update). Content carries inline bytes instead
	// (decision-mode Create). At most one is set.
	Source  string `json:"source,omitempty"`
	Content []byte `json:"-"`

	// SourceHash is the content digest the operation carries forward: the
	// source file's hash for Move/Create/Update. The verifier checks the
	// post-state against it.
	SourceHash string `json:"source_hash,omitempty"`

	// Reason is a short human-readable note for reports.
	Reason string `json:"reason,omitempty"`
}

// subject returns the path used for deterministic ordering.
func (op Operation) subject() string {
	if op.Kind == OpMove {
		return op.From
	}
	return op.Path
}

// vacates returns the path this operation frees, if any.
func (op Operation) vacates() string {
	switch op.Kind {
	case OpMove:
		return op.From
	case OpDelete:
		return op.Path
	}
	return ""
}

// occupies returns the path this operation fills, if any.
func (op Operation) occupies() string {
	switch op.Kind {
	case OpCreate, OpUpdate:
		return op.Path
	case OpMove:
		return op.To
	}
	return ""
}

// Plan is an ordered sequence of operations against one target root.
type Plan struct {
	TargetRoot string      `json:"target_root"`
	DryRun     bool        `json:"dry_run"`
	Ops        []Operation `json:"ops"`

	// Extraneous lists target files present in neither the source tree nor
	// the manifest. They are reported, never auto-deleted.
	Extraneous []string `json:"extraneous,omitempty"`

	// Warnings carries non-fatal per-file notes (invalid migration names,
	// scan warnings) so nothing is silently dropped from the summary.
	Warnings []string `json:"warnings,omitempty"`
}

// IsEmpty reports whether the plan contains no mutating operations.
func (p *Plan) IsEmpty() bool {
	for _, op := range p.Ops {
		if op.Kind != OpSkip {
			return false
		}
	}
	return true
}

// Mutations counts the plan's non-skip operations.
func (p *Plan) Mutations() int {
	n := 0
	for _, op := range p.Ops {
		if op.Kind != OpSkip {
			n++
		}
	}
	return n
}

// Order arranges operations so any operation vacating a path precedes any
// operation occupying that same path, with a deterministic tiebreak on
// (subject path, kind). RemoveDir operations always run last: the directories
// they remove must first be emptied by this plan's moves.
func Order(ops []Operation) []Operation {
	var rmdirs []Operation
	var rest []Operation
	for _, op := range ops {
		if op.Kind == OpRemoveDir {
			rmdirs = append(rmdirs, op)
		} else {
			rest = append(rest, op)
		}
	}

	sort.SliceStable(rest, func(i, j int) bool {
		if rest[i].subject() != rest[j].subject() {
			return rest[i].subject() < rest[j].subject()
		}
		return rest[i].Kind < rest[j].Kind
	})

	// Kahn-style selection: an operation is ready when no remaining operation
	// vacates the path it occupies. Candidates are pre-sorted, so selection
	// is deterministic. A vacate cycle (a swap) cannot be ordered safely; the
	// lowest-keyed member is released first and the executor surfaces the
	// collision as an operation error.
	ordered := make([]Operation, 0, len(ops))
	remaining := rest
	for len(remaining) > 0 {
		vacated := make(map[string]bool, len(remaining))
		for _, op := range remaining {
			if v := op.vacates(); v != "" {
				vacated[v] = true
			}
		}

		picked := -1
		for i, op := range remaining {
			occ := op.occupies()
			if occ == "" || !vacated[occ] || op.vacates() == occ {
				picked = i
				break
			}
		}
		if picked == -1 {
			picked = 0
		}

		ordered = append(ordered, remaining[picked])
		remaining = append(remaining[:picked:picked], remaining[picked+1:]...)
	}

	sort.SliceStable(rmdirs, func(i, j int) bool { return rmdirs[i].Path > rmdirs[j].Path })
	return append(ordered, rmdirs...)
}
