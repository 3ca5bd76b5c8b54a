// Package execute applies plans to the filesystem.
//
// Every create and update goes through write-temp-then-rename, and every move
// uses an atomic rename with a copy+verify+delete fallback, so cancellation
// or a crash mid-run can never leave a half-written file. The worst outcome
// is a partially applied plan, which a re-run detects and completes.
//
// Execution is best-effort over the batch: a failing operation is recorded
// and the executor continues. There is no multi-file transaction primitive at
// the filesystem level, and this limitation is explicit rather than silently
// assumed away.
package execute

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/loomhq/docsync/pkg/digest"
	"github.com/loomhq/docsync/pkg/exitcode"
	"github.com/loomhq/docsync/pkg/logger"
	"github.com/loomhq/docsync/pkg/plan"
	"github.com/loomhq/docsync/pkg/safeio"
)

// OperationError records a single-file failure during apply.
type OperationError struct {
	Op  plan.Operation
	Err error
}

func (e *OperationError) Error() string {
	switch e.Op.Kind {
	case plan.OpMove:
		return fmt.Sprintf("%s %s -> %s: %v", e.Op.Kind, e.Op.From, e.Op.To, e.Err)
	default:
		return fmt.Sprintf("%s %s: %v", e.Op.Kind, e.Op.Path, e.Err)
	}
}

func (e *OperationError) Unwrap() error { return e.Err }

// Outcome is the per-operation result.
type Outcome struct {
	Op      plan.Operation `json:"op"`
	Applied bool           `json:"applied"`
	Err     error          `json:"-"`
	ErrText string         `json:"error,omitempty"`
}

// Report summarizes an apply. Every skipped, errored, or warned file appears
// individually in Outcomes/Warnings; nothing is dropped from the summary.
type Report struct {
	Created    int       `json:"created"`
	Updated    int       `json:"updated"`
	Moved      int       `json:"moved"`
	Deleted    int       `json:"deleted"`
	Skipped    int       `json:"skipped"`
	DirsPruned int       `json:"dirs_pruned"`
	Errored    int       `json:"errored"`
	Warned     int       `json:"warned"`
	Unresolved int       `json:"unresolved"`
	DryRun     bool      `json:"dry_run"`
	Outcomes   []Outcome `json:"outcomes"`
	Extraneous []string  `json:"extraneous,omitempty"`
	Warnings   []string  `json:"warnings,omitempty"`
	Status     int       `json:"status"`
}

// Options configures an Executor.
type Options struct {
	// AbortOnFirstError stops the batch at the first failing operation.
	AbortOnFirstError bool
	// Hasher verifies copy fallbacks and move collisions. Defaults to SHA-256.
	Hasher digest.Hasher
}

// Executor applies plans.
type Executor struct {
	opts Options
}

// NewExecutor creates an Executor.
func NewExecutor(opts Options) *Executor {
	if opts.Hasher == nil {
		opts.Hasher = digest.NewSHA256Hasher()
	}
	return &Executor{opts: opts}
}

// Apply executes the plan's operations in order. In dry-run mode no
// filesystem mutation occurs; the report tallies what would happen.
// Cancellation is honored between operations, never mid-file.
func (e *Executor) Apply(ctx context.Context, p *plan.Plan) *Report {
	report := &Report{
		DryRun:     p.DryRun,
		Extraneous: p.Extraneous,
		Warnings:   p.Warnings,
		Warned:     len(p.Warnings),
	}

	for _, op := range p.Ops {
		if err := ctx.Err(); err != nil {
			report.record(op, false, fmt.Errorf("cancelled: %w", err))
			continue
		}

		if p.DryRun {
			report.record(op, false, nil)
			logger.Debug("would apply", logger.String("op", op.Kind.String()), logger.String("path", op.Path+op.From))
			continue
		}

		err := e.applyOne(p.TargetRoot, op)
		report.record(op, err == nil, err)
		if err != nil {
			logger.Error("operation failed", logger.String("op", op.Kind.String()), logger.Err(err))
			if e.opts.AbortOnFirstError {
				break
			}
		}
	}

	if report.Errored > 0 {
		report.Status = exitcode.FileSystemError
	}
	return report
}

func (r *Report) record(op plan.Operation, applied bool, err error) {
	outcome := Outcome{Op: op, Applied: applied, Err: err}
	if err != nil {
		outcome.Err = &OperationError{Op: op, Err: err}
		outcome.ErrText = outcome.Err.Error()
		r.Errored++
		r.Outcomes = append(r.Outcomes, outcome)
		return
	}
	r.Outcomes = append(r.Outcomes, outcome)

	switch op.Kind {
	case plan.OpCreate:
		r.Created++
	case plan.OpUpdate:
		r.Updated++
	case plan.OpMove:
		r.Moved++
	case plan.OpDelete:
		r.Deleted++
	case plan.OpRemoveDir:
		r.DirsPruned++
	case plan.OpSkip:
		r.Skipped++
	}
}

func (e *Executor) applyOne(root string, op plan.Operation) error {
	switch op.Kind {
	case plan.OpSkip:
		return nil
	case plan.OpCreate, plan.OpUpdate:
		return e.write(root, op)
	case plan.OpMove:
		return e.move(root, op)
	case plan.OpDelete:
		return e.remove(root, op)
	case plan.OpRemoveDir:
		return e.removeDir(root, op)
	default:
		return fmt.Errorf("unknown operation kind %d", op.Kind)
	}
}

func (e *Executor) write(root string, op plan.Operation) error {
	dst, err := safeio.ContainedJoin(root, op.Path)
	if err != nil {
		return err
	}

	data := op.Content
	if op.Source != "" {
		data, err = os.ReadFile(op.Source) // #nosec G304 -- source paths come from the planner's scan
		if err != nil {
			return fmt.Errorf("failed to read source: %w", err)
		}
		// The plan was computed against a scanned digest; a source that
		// changed between scan and apply must not be propagated silently.
		if op.SourceHash != "" && e.opts.Hasher.HashBytes(data) != op.SourceHash {
			return fmt.Errorf("source %s changed since planning", op.Source)
		}
	}

	return safeio.WriteFilePreservePerms(dst, data)
}

func (e *Executor) move(root string, op plan.Operation) error {
	src, err := safeio.ContainedJoin(root, op.From)
	if err != nil {
		return err
	}
	dst, err := safeio.ContainedJoin(root, op.To)
	if err != nil {
		return err
	}

	if _, err := os.Stat(dst); err == nil {
		dstHash, herr := e.opts.Hasher.HashFile(dst)
		if herr != nil {
			return fmt.Errorf("failed to hash existing destination: %w", herr)
		}
		if op.SourceHash != "" && dstHash == op.SourceHash {
			// Destination already holds the content. If the source is still
			// present this is a resumed run; finish the move by removing it.
			if _, serr := os.Stat(src); serr == nil {
				return os.Remove(src)
			}
			return nil
		}
		// A collision with different content requires an explicit decision,
		// never a silent overwrite.
		return fmt.Errorf("destination %s exists with different content", op.To)
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0o750); err != nil {
		return fmt.Errorf("failed to create destination directory: %w", err)
	}

	renameErr := os.Rename(src, dst)
	if renameErr == nil {
		return nil
	}

	// Rename can fail across volumes (and for other environmental reasons a
	// copy may survive): fall back to copy, verify the copy's digest, delete.
	data, err := os.ReadFile(src) // #nosec G304 -- containment verified above
	if err != nil {
		return fmt.Errorf("rename failed (%v); fallback read failed: %w", renameErr, err)
	}
	if err := safeio.WriteFilePreservePerms(dst, data); err != nil {
		return fmt.Errorf("failed to copy across volumes: %w", err)
	}
	copied, err := e.opts.Hasher.HashFile(dst)
	if err != nil {
		return fmt.Errorf("failed to verify copy: %w", err)
	}
	if copied != e.opts.Hasher.HashBytes(data) {
		return fmt.Errorf("copy verification failed for %s", op.To)
	}
	return os.Remove(src)
}

func (e *Executor) remove(root string, op plan.Operation) error {
	path, err := safeio.ContainedJoin(root, op.Path)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// removeDir removes a directory only when it is actually empty. A directory
// that gained files between planning and apply is left alone.
func (e *Executor) removeDir(root string, op plan.Operation) error {
	path, err := safeio.ContainedJoin(root, op.Path)
	if err != nil {
		return err
	}
	entries, err := os.ReadDir(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if len(entries) > 0 {
		return fmt.Errorf("directory %s not empty, not removed", op.Path)
	}
	return os.Remove(path)
}
