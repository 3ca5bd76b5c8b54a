// Package reconcile is the engine façade: it wires scanning, planning,
// execution, and verification into the three end-to-end flows callers use.
//
// Every flow follows the same shape: build a fresh inventory, compute a plan,
// apply it, then re-scan and verify the post-state. State is never carried
// between runs; a re-run against an already-reconciled tree produces an empty
// plan and changes nothing.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"path"

	"github.com/loomhq/docsync/pkg/classify"
	"github.com/loomhq/docsync/pkg/digest"
	"github.com/loomhq/docsync/pkg/execute"
	"github.com/loomhq/docsync/pkg/exitcode"
	"github.com/loomhq/docsync/pkg/logger"
	"github.com/loomhq/docsync/pkg/manifest"
	"github.com/loomhq/docsync/pkg/migrate"
	"github.com/loomhq/docsync/pkg/plan"
	"github.com/loomhq/docsync/pkg/resolve"
	"github.com/loomhq/docsync/pkg/safeio"
	"github.com/loomhq/docsync/pkg/scan"
	"github.com/loomhq/docsync/pkg/verify"
)

// Options configures an Engine.
type Options struct {
	// IgnorePatterns are gitignore-style patterns applied on every scan.
	IgnorePatterns []string
	// Workers bounds concurrent hashing during scans.
	Workers int
	// Hasher overrides the content hasher. Defaults to SHA-256.
	Hasher digest.Hasher
	// AbortOnFirstError stops an apply at the first failing operation
	// instead of continuing best-effort.
	AbortOnFirstError bool
	// Layout maps scopes to directories under the target root.
	Layout plan.Layout
}

// Engine runs reconciliation flows.
type Engine struct {
	opts     Options
	scanner  *scan.Scanner
	executor *execute.Executor
}

// New creates an Engine.
func New(opts Options) *Engine {
	if opts.Hasher == nil {
		opts.Hasher = digest.NewSHA256Hasher()
	}
	return &Engine{
		opts: opts,
		scanner: scan.NewScanner(scan.Options{
			IgnorePatterns: opts.IgnorePatterns,
			Workers:        opts.Workers,
			Hasher:         opts.Hasher,
		}),
		executor: execute.NewExecutor(execute.Options{
			AbortOnFirstError: opts.AbortOnFirstError,
			Hasher:            opts.Hasher,
		}),
	}
}

// Sync makes targetRoot's content match sourceRoot's. Change detection is by
// content digest only; timestamps and sizes never drive a write. Files present
// only in the target are reported as extraneous and left alone.
func (e *Engine) Sync(ctx context.Context, sourceRoot, targetRoot string, dryRun bool) (*execute.Report, error) {
	source, srcWarnings, err := e.scanner.Scan(ctx, sourceRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to scan source: %w", err)
	}
	target, tgtWarnings, err := e.scanner.Scan(ctx, targetRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to scan target: %w", err)
	}

	p := plan.Sync(sourceRoot, targetRoot, source, target, dryRun)
	addScanWarnings(p, srcWarnings, tgtWarnings)

	logger.Info("sync planned",
		logger.Int("source_files", len(source)),
		logger.Int("target_files", len(target)),
		logger.Int("mutations", p.Mutations()))

	return e.applyAndVerify(ctx, p, target)
}

// Migrate relocates story files under a feature root into the canonical
// epics/epic-N/stories/ layout. An empty feature name targets targetRoot
// directly.
func (e *Engine) Migrate(ctx context.Context, targetRoot, feature string, dryRun bool) (*execute.Report, error) {
	root := targetRoot
	if feature != "" {
		featuresDir := e.opts.Layout.FeaturesDir
		if featuresDir == "" {
			featuresDir = "features"
		}
		var err error
		root, err = safeio.ContainedJoin(targetRoot, path.Join(featuresDir, feature))
		if err != nil {
			return nil, fmt.Errorf("invalid feature name: %w", err)
		}
	}

	inv, warnings, err := e.scanner.Scan(ctx, root)
	if err != nil {
		return nil, fmt.Errorf("failed to scan feature root: %w", err)
	}

	p := migrate.BuildPlan(root, inv, dryRun)
	addScanWarnings(p, warnings)

	logger.Info("migration planned",
		logger.String("root", root),
		logger.Int("moves", p.Mutations()))

	return e.applyAndVerify(ctx, p, inv)
}

// Audit holds the result of classifying a tree against its manifest. It is
// the input to Repair: the same inventory the classifications were computed
// from is reused for planning, never re-scanned in between.
type Audit struct {
	Root            string
	Inventory       scan.Inventory
	Classifications []classify.Classification
	Requests        []resolve.Request
	Warnings        []string
}

// Audit scans targetRoot and classifies every file against the manifest.
// The returned Requests list the classifications that need a decision before
// Repair can plan anything for them.
func (e *Engine) Audit(
	ctx context.Context,
	targetRoot string,
	man *manifest.Manifest,
	scope manifest.Scope,
	foreign []classify.ForeignPattern,
) (*Audit, error) {
	inv, warnings, err := e.scanner.Scan(ctx, targetRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to scan target: %w", err)
	}

	cls := classify.Classify(inv, man, scope, foreign)

	a := &Audit{
		Root:            targetRoot,
		Inventory:       inv,
		Classifications: cls,
		Requests:        resolve.Requests(cls),
	}
	for _, w := range warnings {
		a.Warnings = append(a.Warnings, w.String())
	}

	logger.Info("audit complete",
		logger.Int("files", len(inv)),
		logger.Int("decisions_needed", len(a.Requests)))
	return a, nil
}

// Repair plans and applies the decided repairs from an audit. Classifications
// with no decision are carried in the report as unresolved and make the run's
// status non-zero; they never block the decided repairs.
func (e *Engine) Repair(ctx context.Context, a *Audit, decisions plan.DecisionMap, dryRun bool) (*execute.Report, error) {
	p, unresolved := plan.FromDecisions(a.Root, a.Inventory, a.Classifications, decisions, e.opts.Layout, e.opts.Hasher, dryRun)
	p.Warnings = append(p.Warnings, a.Warnings...)

	report, err := e.applyAndVerify(ctx, p, a.Inventory)
	if report != nil {
		report.Unresolved = len(unresolved)
		if len(unresolved) > 0 && report.Status == exitcode.Success {
			report.Status = exitcode.UnresolvedDecision
		}
	}
	return report, err
}

// AuditAndRepair runs Audit, answers its requests through the resolver, and
// applies the resulting repairs.
func (e *Engine) AuditAndRepair(
	ctx context.Context,
	targetRoot string,
	man *manifest.Manifest,
	scope manifest.Scope,
	foreign []classify.ForeignPattern,
	resolver resolve.ResolverFunc,
	dryRun bool,
) (*execute.Report, error) {
	a, err := e.Audit(ctx, targetRoot, man, scope, foreign)
	if err != nil {
		return nil, err
	}

	decisions := plan.DecisionMap{}
	if resolver != nil && len(a.Requests) > 0 {
		decisions, err = resolve.Resolve(a.Requests, resolver)
		if err != nil {
			return nil, err
		}
	}
	return e.Repair(ctx, a, decisions, dryRun)
}

// applyAndVerify applies the plan and, for a real run, re-scans the target
// and checks the post-state against the plan's promises. A verification
// mismatch is returned as an error with the report's status set accordingly;
// it is the one failure mode that must not degrade to a warning.
func (e *Engine) applyAndVerify(ctx context.Context, p *plan.Plan, before scan.Inventory) (*execute.Report, error) {
	report := e.executor.Apply(ctx, p)

	if p.DryRun || p.IsEmpty() {
		return report, nil
	}

	expected := verify.Expected(before, report.Outcomes)
	if err := verify.Verify(ctx, e.scanner, p.TargetRoot, expected); err != nil {
		var verr *verify.Error
		if errors.As(err, &verr) {
			report.Status = exitcode.VerificationError
			for _, m := range verr.Mismatches {
				logger.Error("post-apply mismatch", logger.String("path", m.RelPath), logger.String("reason", m.Reason))
			}
		}
		return report, err
	}
	return report, nil
}

func addScanWarnings(p *plan.Plan, warningSets ...[]scan.Warning) {
	for _, ws := range warningSets {
		for _, w := range ws {
			p.Warnings = append(p.Warnings, w.String())
		}
	}
}
