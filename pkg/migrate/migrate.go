// Package migrate relocates story files whose names encode structural
// metadata into the canonical epic/story directory layout.
//
// A story filename has the form <epic>.<story>.<ext>, e.g. "2.3.md". Names
// that do not parse are excluded from the plan and reported as warnings; one
// bad name never fails the batch.
package migrate

import (
	"fmt"
	"path"
	"regexp"
	"strconv"
	"strings"

	"github.com/loomhq/docsync/pkg/plan"
	"github.com/loomhq/docsync/pkg/scan"
)

// ParsedName is the tagged result of parsing a story filename.
type ParsedName struct {
	Valid  bool
	Epic   int
	Story  int
	Ext    string
	Raw    string
	Reason string // set when !Valid
}

var storyNameRe = regexp.MustCompile(`^(\d+)\.(\d+)\.([A-Za-z0-9]+)$`)

// ParseName parses a story filename of the form <epic>.<story>.<ext>.
func ParseName(name string) ParsedName {
	m := storyNameRe.FindStringSubmatch(name)
	if m == nil {
		return ParsedName{Raw: name, Reason: "name does not match <epic>.<story>.<ext>"}
	}
	epic, err := strconv.Atoi(m[1])
	if err != nil {
		return ParsedName{Raw: name, Reason: fmt.Sprintf("epic number: %v", err)}
	}
	story, err := strconv.Atoi(m[2])
	if err != nil {
		return ParsedName{Raw: name, Reason: fmt.Sprintf("story number: %v", err)}
	}
	return ParsedName{Valid: true, Epic: epic, Story: story, Ext: m[3], Raw: name}
}

// Destination computes the canonical location for a valid parsed name,
// relative to the feature root.
func Destination(p ParsedName) string {
	return fmt.Sprintf("epics/epic-%d/stories/%d.%d.%s", p.Epic, p.Epic, p.Story, p.Ext)
}

// BuildPlan scans the classifications implied by an inventory of a feature
// root and plans the moves that bring every valid story file to its canonical
// location.
//
// Candidates are story-shaped names outside the canonical epics/ tree. Files
// already in place produce no operations, so a re-run against a migrated tree
// yields an empty plan. Source directories emptied by this run's moves are
// scheduled for removal; directories left non-empty, or untouched by this
// run, are never removed.
func BuildPlan(targetRoot string, inv scan.Inventory, dryRun bool) *plan.Plan {
	p := &plan.Plan{TargetRoot: targetRoot, DryRun: dryRun}

	// Directory population counts, so emptied-source detection only counts
	// files this scan actually saw.
	dirCounts := make(map[string]int)
	for _, rel := range inv.Paths() {
		dirCounts[path.Dir(rel)]++
	}
	vacatedPerDir := make(map[string]int)

	for _, rel := range inv.Paths() {
		if strings.HasPrefix(rel, "epics/") {
			continue
		}

		base := path.Base(rel)
		parsed := ParseName(base)
		if !parsed.Valid {
			p.Warnings = append(p.Warnings, fmt.Sprintf("%s: %s", rel, parsed.Reason))
			continue
		}

		dest := Destination(parsed)
		if dest == rel {
			continue
		}
		p.Ops = append(p.Ops, plan.Operation{
			Kind:       plan.OpMove,
			From:       rel,
			To:         dest,
			SourceHash: inv[rel].Hash,
			Reason:     fmt.Sprintf("story %d.%d belongs under epic-%d", parsed.Epic, parsed.Story, parsed.Epic),
		})
		vacatedPerDir[path.Dir(rel)]++
	}

	// A source directory is removed only when every file it held moved out
	// in this run.
	for dir, vacated := range vacatedPerDir {
		if dir == "." {
			continue
		}
		if vacated == dirCounts[dir] {
			p.Ops = append(p.Ops, plan.Operation{
				Kind:   plan.OpRemoveDir,
				Path:   dir,
				Reason: "emptied by this run's moves",
			})
		}
	}

	p.Ops = plan.Order(p.Ops)
	return p
}
