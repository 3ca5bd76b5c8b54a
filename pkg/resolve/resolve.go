// Package resolve is the pure boundary between ambiguous classifications and
// whatever answers them: a human prompt, a config file, or a test harness.
//
// Nothing here touches the filesystem. The planner is fully testable by
// supplying a pre-resolved decision map with no resolver in the loop.
package resolve

import (
	"fmt"
	"sort"

	"github.com/loomhq/docsync/pkg/classify"
	"github.com/loomhq/docsync/pkg/manifest"
	"github.com/loomhq/docsync/pkg/plan"
)

// Request describes one classification needing a decision.
type Request struct {
	RelPath     string          `json:"rel_path"`
	Kind        classify.Kind   `json:"-"`
	KindName    string          `json:"kind"`
	TargetScope *manifest.Scope `json:"-"`
	Choices     []plan.Action   `json:"-"`
	ChoiceNames []string        `json:"choices"`
}

// Requests extracts the classifications that require a decision, in a stable
// order, each with its available choices.
func Requests(cls []classify.Classification) []Request {
	var out []Request
	for _, c := range cls {
		var choices []plan.Action
		switch c.Kind {
		case classify.KindMissing:
			choices = []plan.Action{plan.ActionCreate, plan.ActionSkip}
		case classify.KindMisplaced:
			choices = []plan.Action{plan.ActionMove, plan.ActionDelete, plan.ActionSkip}
		case classify.KindUnknown:
			choices = []plan.Action{plan.ActionSkip, plan.ActionMove, plan.ActionDelete}
		default:
			continue
		}

		req := Request{
			RelPath:  c.RelPath,
			Kind:     c.Kind,
			KindName: c.Kind.String(),
			Choices:  choices,
		}
		if c.Kind == classify.KindMisplaced {
			scope := c.TargetScope
			req.TargetScope = &scope
		}
		for _, a := range choices {
			req.ChoiceNames = append(req.ChoiceNames, a.String())
		}
		out = append(out, req)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].RelPath < out[j].RelPath })
	return out
}

// ResolverFunc answers one request. Implementations may prompt a human, read
// configuration, or return canned answers in tests.
type ResolverFunc func(Request) (plan.Decision, error)

// Resolve runs every request through fn and assembles the decision map.
// A decision outside the request's choices is rejected: the boundary
// enforces that callers only pick from what was offered.
func Resolve(reqs []Request, fn ResolverFunc) (plan.DecisionMap, error) {
	decisions := make(plan.DecisionMap, len(reqs))
	for _, req := range reqs {
		d, err := fn(req)
		if err != nil {
			return nil, fmt.Errorf("resolving %s: %w", req.RelPath, err)
		}
		if !allowed(req.Choices, d.Action) {
			return nil, fmt.Errorf("resolving %s: action %s not among choices %v", req.RelPath, d.Action, req.ChoiceNames)
		}
		decisions[req.RelPath] = d
	}
	return decisions, nil
}

func allowed(choices []plan.Action, a plan.Action) bool {
	for _, c := range choices {
		if c == a {
			return true
		}
	}
	return false
}
