package reconcile

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/loomhq/docsync/pkg/classify"
	"github.com/loomhq/docsync/pkg/exitcode"
	"github.com/loomhq/docsync/pkg/manifest"
	"github.com/loomhq/docsync/pkg/plan"
	"github.com/loomhq/docsync/pkg/resolve"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	abs := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(abs, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func readFile(t *testing.T, root, rel string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
	if err != nil {
		t.Fatalf("read %s: %v", rel, err)
	}
	return string(data)
}

func fileExists(root, rel string) bool {
	_, err := os.Stat(filepath.Join(root, filepath.FromSlash(rel)))
	return err == nil
}

func TestSyncEndToEnd(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()
	writeFile(t, src, "a.md", "alpha\n")
	writeFile(t, src, "docs/b.md", "beta\n")
	writeFile(t, dst, "a.md", "alpha\n")
	writeFile(t, dst, "c.md", "user content\n")

	engine := New(Options{})
	report, err := engine.Sync(context.Background(), src, dst, false)
	if err != nil {
		t.Fatalf("Sync failed: %v", err)
	}

	if report.Created != 1 || report.Skipped != 1 {
		t.Errorf("report = created %d skipped %d, want 1 and 1", report.Created, report.Skipped)
	}
	if readFile(t, dst, "docs/b.md") != "beta\n" {
		t.Error("docs/b.md not synced")
	}
	// Extraneous target files are reported, never deleted.
	if !fileExists(dst, "c.md") {
		t.Error("extraneous file deleted")
	}
	if len(report.Extraneous) != 1 || report.Extraneous[0] != "c.md" {
		t.Errorf("extraneous = %v", report.Extraneous)
	}
	if report.Status != exitcode.Success {
		t.Errorf("status = %d", report.Status)
	}
}

func TestSyncIsIdempotent(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()
	writeFile(t, src, "a.md", "alpha\n")
	writeFile(t, src, "b.md", "beta\n")

	engine := New(Options{})
	if _, err := engine.Sync(context.Background(), src, dst, false); err != nil {
		t.Fatalf("first sync: %v", err)
	}

	second, err := engine.Sync(context.Background(), src, dst, false)
	if err != nil {
		t.Fatalf("second sync: %v", err)
	}
	if second.Created != 0 || second.Updated != 0 || second.Moved != 0 {
		t.Errorf("second run mutated: %+v", second)
	}
	if second.Skipped != 2 {
		t.Errorf("skipped = %d, want 2", second.Skipped)
	}
}

func TestSyncDryRunMutatesNothing(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()
	writeFile(t, src, "a.md", "alpha\n")

	engine := New(Options{})
	report, err := engine.Sync(context.Background(), src, dst, true)
	if err != nil {
		t.Fatalf("Sync failed: %v", err)
	}
	if !report.DryRun || report.Created != 1 {
		t.Errorf("dry-run report = %+v", report)
	}
	if fileExists(dst, "a.md") {
		t.Error("dry-run wrote to the target")
	}
}

func TestSyncUpdatesOnContentChangeOnly(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()
	writeFile(t, src, "a.md", "new content\n")
	writeFile(t, dst, "a.md", "old content\n")

	engine := New(Options{})
	report, err := engine.Sync(context.Background(), src, dst, false)
	if err != nil {
		t.Fatalf("Sync failed: %v", err)
	}
	if report.Updated != 1 {
		t.Errorf("updated = %d, want 1", report.Updated)
	}
	if readFile(t, dst, "a.md") != "new content\n" {
		t.Error("target not updated")
	}
}

func TestMigrateEndToEnd(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "features/checkout/stories/1.1.md", "story one\n")
	writeFile(t, root, "features/checkout/stories/2.3.md", "story two\n")
	writeFile(t, root, "features/checkout/notes.md", "not a story\n")

	engine := New(Options{})
	report, err := engine.Migrate(context.Background(), root, "checkout", false)
	if err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}

	if report.Moved != 2 {
		t.Errorf("moved = %d, want 2: %+v", report.Moved, report.Outcomes)
	}
	if readFile(t, root, "features/checkout/epics/epic-1/stories/1.1.md") != "story one\n" {
		t.Error("1.1.md not at canonical location")
	}
	if readFile(t, root, "features/checkout/epics/epic-2/stories/2.3.md") != "story two\n" {
		t.Error("2.3.md not at canonical location")
	}
	// Invalid candidate is a warning, and its directory survives.
	if !fileExists(root, "features/checkout/notes.md") {
		t.Error("non-story file must be untouched")
	}
	if report.Warned == 0 {
		t.Error("expected a warning for the non-story name")
	}
	// stories/ was fully vacated by this run's moves.
	if fileExists(root, "features/checkout/stories") {
		t.Error("emptied source directory should be pruned")
	}
}

func TestMigrateIsIdempotent(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "epics/epic-1/stories/1.1.md", "story\n")

	engine := New(Options{})
	report, err := engine.Migrate(context.Background(), root, "", false)
	if err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}
	if report.Moved != 0 || report.DirsPruned != 0 {
		t.Errorf("canonical tree produced mutations: %+v", report)
	}
}

func globalManifest() *manifest.Manifest {
	return &manifest.Manifest{Entries: []manifest.Entry{
		{PathOrPattern: "README.md", Scope: manifest.ScopeGlobal, Required: true},
		{PathOrPattern: "architecture.md", Scope: manifest.ScopeGlobal, Required: true},
	}}
}

func TestAuditClassifiesTree(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "README.md", "# readme\n")
	writeFile(t, root, "PRD.md", "# prd\n")
	writeFile(t, root, "scratch.txt", "junk\n")

	foreign := []classify.ForeignPattern{{Pattern: "PRD.md", Scope: manifest.ScopePerFeature}}

	engine := New(Options{})
	a, err := engine.Audit(context.Background(), root, globalManifest(), manifest.ScopeGlobal, foreign)
	if err != nil {
		t.Fatalf("Audit failed: %v", err)
	}

	kinds := map[string]classify.Kind{}
	for _, c := range a.Classifications {
		kinds[c.RelPath] = c.Kind
	}
	if kinds["README.md"] != classify.KindExpected {
		t.Errorf("README.md = %v", kinds["README.md"])
	}
	if kinds["PRD.md"] != classify.KindMisplaced {
		t.Errorf("PRD.md = %v", kinds["PRD.md"])
	}
	if kinds["scratch.txt"] != classify.KindUnknown {
		t.Errorf("scratch.txt = %v", kinds["scratch.txt"])
	}
	if kinds["architecture.md"] != classify.KindMissing {
		t.Errorf("architecture.md = %v", kinds["architecture.md"])
	}
	// Expected files need no decision; the other three do.
	if len(a.Requests) != 3 {
		t.Errorf("requests = %d, want 3", len(a.Requests))
	}
}

func TestAuditAndRepairEndToEnd(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "README.md", "# readme\n")
	writeFile(t, root, "PRD.md", "# checkout prd\n")
	writeFile(t, root, "scratch.txt", "junk\n")

	foreign := []classify.ForeignPattern{{Pattern: "PRD.md", Scope: manifest.ScopePerFeature}}

	resolver := func(req resolve.Request) (plan.Decision, error) {
		switch req.RelPath {
		case "architecture.md":
			return plan.Decision{Action: plan.ActionCreate, Content: []byte("# architecture\n")}, nil
		case "PRD.md":
			return plan.Decision{Action: plan.ActionMove, Feature: "checkout"}, nil
		default:
			return plan.Decision{Action: plan.ActionSkip}, nil
		}
	}

	engine := New(Options{})
	report, err := engine.AuditAndRepair(context.Background(), root, globalManifest(), manifest.ScopeGlobal, foreign, resolver, false)
	if err != nil {
		t.Fatalf("AuditAndRepair failed: %v", err)
	}

	if report.Created != 1 || report.Moved != 1 {
		t.Errorf("report = created %d moved %d: %+v", report.Created, report.Moved, report.Outcomes)
	}
	if readFile(t, root, "architecture.md") != "# architecture\n" {
		t.Error("missing required file not created")
	}
	if readFile(t, root, "features/checkout/PRD.md") != "# checkout prd\n" {
		t.Error("misplaced file not relocated")
	}
	if fileExists(root, "PRD.md") {
		t.Error("move left the source behind")
	}
	// Skipped unknown file is untouched.
	if !fileExists(root, "scratch.txt") {
		t.Error("skipped file deleted")
	}
	if report.Status != exitcode.Success {
		t.Errorf("status = %d", report.Status)
	}
}

func TestRepairUnresolvedDecisionsSetStatus(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "README.md", "# readme\n")
	writeFile(t, root, "stray.md", "?\n")

	engine := New(Options{})
	a, err := engine.Audit(context.Background(), root, globalManifest(), manifest.ScopeGlobal, nil)
	if err != nil {
		t.Fatalf("Audit failed: %v", err)
	}

	// No decisions supplied at all.
	report, err := engine.Repair(context.Background(), a, plan.DecisionMap{}, false)
	if err != nil {
		t.Fatalf("Repair failed: %v", err)
	}
	if report.Unresolved == 0 {
		t.Error("unresolved count missing")
	}
	if report.Status != exitcode.UnresolvedDecision {
		t.Errorf("status = %d, want %d", report.Status, exitcode.UnresolvedDecision)
	}
	if !fileExists(root, "stray.md") {
		t.Error("undecided file must be untouched")
	}
}

func TestRepairIsIdempotent(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "README.md", "# readme\n")
	writeFile(t, root, "PRD.md", "# prd\n")

	foreign := []classify.ForeignPattern{{Pattern: "PRD.md", Scope: manifest.ScopePerFeature}}
	man := &manifest.Manifest{Entries: []manifest.Entry{
		{PathOrPattern: "README.md", Scope: manifest.ScopeGlobal, Required: true},
		{PathOrPattern: "features/*/PRD.md", Scope: manifest.ScopeGlobal},
	}}

	resolver := func(req resolve.Request) (plan.Decision, error) {
		if req.RelPath == "PRD.md" {
			return plan.Decision{Action: plan.ActionMove, Feature: "checkout"}, nil
		}
		return plan.Decision{Action: plan.ActionSkip}, nil
	}

	engine := New(Options{})
	ctx := context.Background()
	if _, err := engine.AuditAndRepair(ctx, root, man, manifest.ScopeGlobal, foreign, resolver, false); err != nil {
		t.Fatalf("first repair: %v", err)
	}

	second, err := engine.AuditAndRepair(ctx, root, man, manifest.ScopeGlobal, foreign, resolver, false)
	if err != nil {
		t.Fatalf("second repair: %v", err)
	}
	if second.Moved != 0 || second.Created != 0 || second.Deleted != 0 {
		t.Errorf("second run mutated: %+v", second.Outcomes)
	}
}

func TestMigrateRejectsEscapingFeatureName(t *testing.T) {
	engine := New(Options{})
	if _, err := engine.Migrate(context.Background(), t.TempDir(), "../../outside", false); err == nil {
		t.Error("expected error for feature name escaping the target root")
	}
}
