package plan

import (
	"testing"

	"github.com/loomhq/docsync/pkg/classify"
	"github.com/loomhq/docsync/pkg/digest"
	"github.com/loomhq/docsync/pkg/manifest"
	"github.com/loomhq/docsync/pkg/scan"
)

func TestSyncScenario(t *testing.T) {
	// source = {a.md(H1), b.md(H2)}, target = {a.md(H1), c.md(H3)}
	source := scan.Inventory{
		"a.md": {RelPath: "a.md", Hash: "H1"},
		"b.md": {RelPath: "b.md", Hash: "H2"},
	}
	target := scan.Inventory{
		"a.md": {RelPath: "a.md", Hash: "H1"},
		"c.md": {RelPath: "c.md", Hash: "H3"},
	}

	p := Sync("/src", "/tgt", source, target, false)

	if len(p.Ops) != 2 {
		t.Fatalf("ops = %d, want 2 (%+v)", len(p.Ops), p.Ops)
	}
	if p.Ops[0].Kind != OpSkip || p.Ops[0].Path != "a.md" {
		t.Errorf("ops[0] = %+v, want Skip a.md", p.Ops[0])
	}
	if p.Ops[1].Kind != OpCreate || p.Ops[1].Path != "b.md" {
		t.Errorf("ops[1] = %+v, want Create b.md", p.Ops[1])
	}
	if len(p.Extraneous) != 1 || p.Extraneous[0] != "c.md" {
		t.Errorf("extraneous = %v, want [c.md]", p.Extraneous)
	}
}

func TestSyncUpdateOnHashMismatch(t *testing.T) {
	source := scan.Inventory{"a.md": {RelPath: "a.md", Hash: "H1"}}
	target := scan.Inventory{"a.md": {RelPath: "a.md", Hash: "H9"}}

	p := Sync("/src", "/tgt", source, target, false)

	if len(p.Ops) != 1 || p.Ops[0].Kind != OpUpdate {
		t.Fatalf("ops = %+v, want single Update", p.Ops)
	}
	if p.Ops[0].SourceHash != "H1" {
		t.Errorf("SourceHash = %q, want H1", p.Ops[0].SourceHash)
	}
}

func TestSyncIdenticalTreesIsEmpty(t *testing.T) {
	inv := scan.Inventory{
		"a.md": {RelPath: "a.md", Hash: "H1"},
		"b.md": {RelPath: "b.md", Hash: "H2"},
	}
	p := Sync("/src", "/tgt", inv, inv, false)
	if !p.IsEmpty() {
		t.Errorf("plan over identical trees should be empty, got %+v", p.Ops)
	}
	if p.Mutations() != 0 {
		t.Errorf("Mutations() = %d, want 0", p.Mutations())
	}
}

func TestSyncDeterministicOrder(t *testing.T) {
	source := scan.Inventory{
		"z.md": {RelPath: "z.md", Hash: "H1"},
		"a.md": {RelPath: "a.md", Hash: "H2"},
		"m.md": {RelPath: "m.md", Hash: "H3"},
	}
	target := scan.Inventory{}

	first := Sync("/src", "/tgt", source, target, false)
	second := Sync("/src", "/tgt", source, target, false)

	for i := range first.Ops {
		if first.Ops[i].Path != second.Ops[i].Path {
			t.Fatalf("plans differ at %d: %q vs %q", i, first.Ops[i].Path, second.Ops[i].Path)
		}
	}
	want := []string{"a.md", "m.md", "z.md"}
	for i, w := range want {
		if first.Ops[i].Path != w {
			t.Errorf("ops[%d] = %q, want %q", i, first.Ops[i].Path, w)
		}
	}
}

func TestFromDecisionsMisplacedMove(t *testing.T) {
	// Scenario: a known per-feature filename PRD.md found in the global
	// directory, resolver answers feature="checkout".
	inv := scan.Inventory{"PRD.md": {RelPath: "PRD.md", Hash: "H1"}}
	cls := []classify.Classification{{
		RelPath:      "PRD.md",
		Kind:         classify.KindMisplaced,
		CurrentScope: manifest.ScopeGlobal,
		TargetScope:  manifest.ScopePerFeature,
	}}
	decisions := DecisionMap{"PRD.md": {Action: ActionMove, Feature: "checkout"}}

	p, unresolved := FromDecisions("/tgt", inv, cls, decisions, Layout{}, digest.NewSHA256Hasher(), false)

	if len(unresolved) != 0 {
		t.Fatalf("unresolved = %v, want none", unresolved)
	}
	if len(p.Ops) != 1 {
		t.Fatalf("ops = %+v, want single Move", p.Ops)
	}
	op := p.Ops[0]
	if op.Kind != OpMove || op.From != "PRD.md" || op.To != "features/checkout/PRD.md" {
		t.Errorf("op = %+v, want Move PRD.md -> features/checkout/PRD.md", op)
	}
	if op.SourceHash != "H1" {
		t.Errorf("SourceHash = %q, want H1", op.SourceHash)
	}
}

func TestFromDecisionsUnresolvedSurfaced(t *testing.T) {
	inv := scan.Inventory{"mystery.md": {RelPath: "mystery.md", Hash: "H1"}}
	cls := []classify.Classification{{
		RelPath: "mystery.md",
		Kind:    classify.KindUnknown,
	}}

	p, unresolved := FromDecisions("/tgt", inv, cls, DecisionMap{}, Layout{}, digest.NewSHA256Hasher(), false)

	if len(p.Ops) != 0 {
		t.Errorf("ops = %+v, want none for undecided classification", p.Ops)
	}
	if len(unresolved) != 1 || unresolved[0] != "mystery.md" {
		t.Errorf("unresolved = %v, want [mystery.md]", unresolved)
	}
}

func TestFromDecisionsMissingCreate(t *testing.T) {
	hasher := digest.NewSHA256Hasher()
	entry := manifest.Entry{PathOrPattern: "README.md", Scope: manifest.ScopeGlobal, Required: true}
	cls := []classify.Classification{{
		RelPath: "README.md",
		Kind:    classify.KindMissing,
		Entry:   &entry,
	}}
	content := []byte("# README\n")
	decisions := DecisionMap{"README.md": {Action: ActionCreate, Content: content}}

	p, unresolved := FromDecisions("/tgt", scan.Inventory{}, cls, decisions, Layout{}, hasher, false)

	if len(unresolved) != 0 {
		t.Fatalf("unresolved = %v", unresolved)
	}
	if len(p.Ops) != 1 || p.Ops[0].Kind != OpCreate {
		t.Fatalf("ops = %+v, want single Create", p.Ops)
	}
	if p.Ops[0].SourceHash != hasher.HashBytes(content) {
		t.Error("create should carry the content digest")
	}
}

func TestFromDecisionsCoalescesCreateDeleteIntoMove(t *testing.T) {
	hasher := digest.NewSHA256Hasher()
	content := []byte("same bytes\n")
	contentHash := hasher.HashBytes(content)

	entry := manifest.Entry{PathOrPattern: "docs/keep.md", Scope: manifest.ScopeGlobal, Required: true}
	inv := scan.Inventory{"old/keep.md": {RelPath: "old/keep.md", Hash: contentHash}}
	cls := []classify.Classification{
		{RelPath: "docs/keep.md", Kind: classify.KindMissing, Entry: &entry},
		{RelPath: "old/keep.md", Kind: classify.KindUnknown},
	}
	decisions := DecisionMap{
		"docs/keep.md": {Action: ActionCreate, Content: content},
		"old/keep.md":  {Action: ActionDelete},
	}

	p, _ := FromDecisions("/tgt", inv, cls, decisions, Layout{}, hasher, false)

	if len(p.Ops) != 1 {
		t.Fatalf("ops = %+v, want single coalesced Move", p.Ops)
	}
	op := p.Ops[0]
	if op.Kind != OpMove || op.From != "old/keep.md" || op.To != "docs/keep.md" {
		t.Errorf("op = %+v, want Move old/keep.md -> docs/keep.md", op)
	}
}

func TestOrderOpsVacateBeforeOccupy(t *testing.T) {
	// b.md must be vacated (moved to c.md) before a.md moves into b.md.
	ops := []Operation{
		{Kind: OpMove, From: "a.md", To: "b.md"},
		{Kind: OpMove, From: "b.md", To: "c.md"},
	}

	ordered := Order(ops)

	if ordered[0].From != "b.md" || ordered[1].From != "a.md" {
		t.Errorf("move chain misordered: %+v", ordered)
	}
}

func TestOrderOpsDeleteBeforeCreateOnSamePath(t *testing.T) {
	ops := []Operation{
		{Kind: OpCreate, Path: "x.md", Content: []byte("new")},
		{Kind: OpDelete, Path: "x.md"},
	}

	ordered := Order(ops)

	if ordered[0].Kind != OpDelete || ordered[1].Kind != OpCreate {
		t.Errorf("delete must precede create on the same path: %+v", ordered)
	}
}

func TestOrderOpsRemoveDirLastDeepestFirst(t *testing.T) {
	ops := []Operation{
		{Kind: OpRemoveDir, Path: "stories"},
		{Kind: OpMove, From: "stories/old/1.2.md", To: "epics/epic-1/stories/1.2.md"},
		{Kind: OpRemoveDir, Path: "stories/old"},
	}

	ordered := Order(ops)

	if ordered[0].Kind != OpMove {
		t.Fatalf("move must run before rmdir: %+v", ordered)
	}
	if ordered[1].Path != "stories/old" || ordered[2].Path != "stories" {
		t.Errorf("rmdirs must run deepest first: %+v", ordered[1:])
	}
}

func TestLayoutDestFor(t *testing.T) {
	l := Layout{}
	if got := l.DestFor(manifest.ScopePerFeature, "checkout", "PRD.md"); got != "features/checkout/PRD.md" {
		t.Errorf("DestFor = %q", got)
	}
	if got := l.DestFor(manifest.ScopeGlobal, "", "README.md"); got != "README.md" {
		t.Errorf("DestFor global = %q", got)
	}
	custom := Layout{FeaturesDir: "modules"}
	if got := custom.DestFor(manifest.ScopePerFeature, "auth", "PRD.md"); got != "modules/auth/PRD.md" {
		t.Errorf("DestFor custom = %q", got)
	}
}
