/*
Copyright © 2026 Loom <oss@loomhq.dev>
*/
package cmd

import (
	"bufio"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/loomhq/docsync/pkg/classify"
	"github.com/loomhq/docsync/pkg/config"
	"github.com/loomhq/docsync/pkg/content"
	"github.com/loomhq/docsync/pkg/exitcode"
	"github.com/loomhq/docsync/pkg/manifest"
	"github.com/loomhq/docsync/pkg/plan"
	"github.com/loomhq/docsync/pkg/resolve"
)

// newAuditCommand builds the audit command.
func newAuditCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit <target>",
		Short: "Classify a tree against its manifest, optionally repairing it",
		Long: `Audit scans the target tree and gives every file exactly one verdict
against the manifest: expected, missing, misplaced, or unknown.

With --repair, each file needing a decision is resolved interactively and
the decided repairs are applied. Undecided files are left untouched and
the run exits non-zero. Extraneous files are never deleted without an
explicit per-file decision.`,
		Args: cobra.ExactArgs(1),
		RunE: runAudit,
	}
	cmd.Flags().StringP("manifest", "m", "", "Manifest file (default from config)")
	cmd.Flags().String("scope", "", "Scope the tree belongs to: global or per-feature (default from config)")
	cmd.Flags().Bool("repair", false, "Resolve decisions interactively and apply repairs")
	cmd.Flags().Bool("non-interactive", false, "With --repair: apply nothing, report what needs deciding")
	return cmd
}

func runAudit(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	repair, _ := cmd.Flags().GetBool("repair")
	nonInteractive, _ := cmd.Flags().GetBool("non-interactive")

	manifestPath, _ := cmd.Flags().GetString("manifest")
	if manifestPath == "" {
		manifestPath = cfg.Manifest.Path
	}
	man, err := manifest.Load(manifestPath)
	if err != nil {
		return exitWithStatus(exitcode.ManifestError, err)
	}

	scopeStr, _ := cmd.Flags().GetString("scope")
	if scopeStr == "" {
		scopeStr = cfg.Audit.Scope
	}
	scope, err := manifest.ParseScope(scopeStr)
	if err != nil {
		return exitWithStatus(exitcode.ConfigError, err)
	}

	foreign, err := foreignPatterns(cfg)
	if err != nil {
		return exitWithStatus(exitcode.ConfigError, err)
	}

	engine := newEngine(cfg)
	audit, err := engine.Audit(cmd.Context(), args[0], man, scope, foreign)
	if err != nil {
		return err
	}

	if !repair {
		renderAudit(cmd, audit.Classifications, audit.Requests)
		if len(audit.Requests) > 0 {
			return exitWithStatus(exitcode.UnresolvedDecision,
				fmt.Errorf("%d files need a decision (re-run with --repair)", len(audit.Requests)))
		}
		return nil
	}

	decisions := plan.DecisionMap{}
	if !nonInteractive && len(audit.Requests) > 0 {
		decisions, err = resolve.Resolve(audit.Requests, promptResolver(cmd, cfg))
		if err != nil {
			return err
		}
	}

	report, err := engine.Repair(cmd.Context(), audit, decisions, dryRun)
	if report != nil {
		renderReport(cmd, report)
	}
	if err != nil {
		return exitWithStatus(statusOf(report), err)
	}
	return reportError(report)
}

// foreignPatterns converts configured scope claims into classifier input.
func foreignPatterns(cfg *config.Config) ([]classify.ForeignPattern, error) {
	out := make([]classify.ForeignPattern, 0, len(cfg.Audit.Foreign))
	for _, f := range cfg.Audit.Foreign {
		scope, err := manifest.ParseScope(f.Scope)
		if err != nil {
			return nil, fmt.Errorf("audit.foreign %q: %w", f.Pattern, err)
		}
		out = append(out, classify.ForeignPattern{Pattern: f.Pattern, Scope: scope})
	}
	return out, nil
}

// promptResolver answers decision requests from the command's input stream.
// Created files get their content from the configured template directory,
// falling back to a minimal heading when no template matches.
func promptResolver(cmd *cobra.Command, cfg *config.Config) resolve.ResolverFunc {
	reader := bufio.NewReader(cmd.InOrStdin())
	var provider content.Provider
	if p, err := content.NewTemplateProvider(cfg.Template.Dir, nil); err == nil {
		provider = p
	}

	return func(req resolve.Request) (plan.Decision, error) {
		cmd.Printf("%s [%s] (%s): ", req.RelPath, req.KindName, strings.Join(req.ChoiceNames, "/"))
		line, err := reader.ReadString('\n')
		if err != nil {
			return plan.Decision{}, fmt.Errorf("reading decision: %w", err)
		}
		answer := strings.TrimSpace(line)
		if answer == "" {
			// Enter takes the first offered choice.
			answer = req.ChoiceNames[0]
		}

		switch answer {
		case "skip":
			return plan.Decision{Action: plan.ActionSkip}, nil
		case "delete":
			return plan.Decision{Action: plan.ActionDelete}, nil
		case "create":
			return plan.Decision{Action: plan.ActionCreate, Content: initialContent(provider, req.RelPath)}, nil
		case "move":
			cmd.Print("  feature: ")
			feature, err := reader.ReadString('\n')
			if err != nil {
				return plan.Decision{}, fmt.Errorf("reading feature name: %w", err)
			}
			return plan.Decision{Action: plan.ActionMove, Feature: strings.TrimSpace(feature)}, nil
		default:
			return plan.Decision{}, fmt.Errorf("unrecognized choice %q", answer)
		}
	}
}

func initialContent(provider content.Provider, relPath string) []byte {
	if provider != nil {
		if data, err := provider.Content(relPath); err == nil {
			return data
		}
	}
	name := relPath
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	if i := strings.LastIndex(name, "."); i > 0 {
		name = name[:i]
	}
	return []byte(fmt.Sprintf("# %s\n", name))
}

// renderAudit prints the classification listing.
func renderAudit(cmd *cobra.Command, cls []classify.Classification, reqs []resolve.Request) {
	jsonOut, _ := cmd.Flags().GetBool("json")
	if jsonOut {
		payload := struct {
			Classifications []auditLine       `json:"classifications"`
			Requests        []resolve.Request `json:"decisions_needed,omitempty"`
		}{Requests: reqs}
		for _, c := range cls {
			payload.Classifications = append(payload.Classifications, auditLine{Path: c.RelPath, Kind: c.Kind.String()})
		}
		data, _ := json.MarshalIndent(payload, "", "  ")
		cmd.Println(string(data))
		return
	}

	noColor, _ := cmd.Flags().GetBool("no-color")
	kindColor := map[classify.Kind]*color.Color{
		classify.KindExpected:  color.New(color.FgGreen),
		classify.KindMissing:   color.New(color.FgRed),
		classify.KindMisplaced: color.New(color.FgYellow),
		classify.KindUnknown:   color.New(color.FgMagenta),
	}
	for _, c := range cls {
		label := c.Kind.String()
		if !noColor {
			label = kindColor[c.Kind].Sprint(label)
		}
		cmd.Printf("  %-10s %s\n", label, c.RelPath)
	}
	if len(reqs) > 0 {
		cmd.Printf("\n%d files need a decision\n", len(reqs))
	}
}

type auditLine struct {
	Path string `json:"path"`
	Kind string `json:"kind"`
}
