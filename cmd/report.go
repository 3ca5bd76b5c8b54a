/*
Copyright © 2026 Loom <oss@loomhq.dev>
*/
package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/loomhq/docsync/pkg/config"
	"github.com/loomhq/docsync/pkg/execute"
	"github.com/loomhq/docsync/pkg/exitcode"
	"github.com/loomhq/docsync/pkg/plan"
)

// renderReport prints an apply report, JSON or pretty per the --json flag.
func renderReport(cmd *cobra.Command, report *execute.Report) {
	jsonOut, _ := cmd.Flags().GetBool("json")
	if jsonOut {
		data, _ := json.MarshalIndent(report, "", "  ")
		cmd.Println(string(data))
		return
	}

	noColor, _ := cmd.Flags().GetBool("no-color")
	green := sprintFunc(color.FgGreen, noColor)
	yellow := sprintFunc(color.FgYellow, noColor)
	red := sprintFunc(color.FgRed, noColor)

	for _, o := range report.Outcomes {
		switch {
		case o.Err != nil:
			cmd.Printf("  %s %s\n", red("error"), o.ErrText)
		case o.Op.Kind == plan.OpSkip:
			// Skips are summarized, not listed.
		case o.Op.Kind == plan.OpMove:
			cmd.Printf("  %s  %s -> %s\n", green(o.Op.Kind.String()), o.Op.From, o.Op.To)
		default:
			cmd.Printf("  %s  %s\n", green(o.Op.Kind.String()), o.Op.Path)
		}
	}
	for _, w := range report.Warnings {
		cmd.Printf("  %s   %s\n", yellow("warn"), w)
	}
	for _, e := range report.Extraneous {
		cmd.Printf("  %s %s (left in place)\n", yellow("extra"), e)
	}

	verb := ""
	if report.DryRun {
		verb = " (dry-run)"
	}
	cmd.Printf("%d created, %d updated, %d moved, %d deleted, %d skipped, %d pruned, %d errors%s\n",
		report.Created, report.Updated, report.Moved, report.Deleted,
		report.Skipped, report.DirsPruned, report.Errored, verb)
	if report.Unresolved > 0 {
		cmd.Printf("%s: %d files left undecided\n", yellow("unresolved"), report.Unresolved)
	}
}

func sprintFunc(attr color.Attribute, noColor bool) func(...interface{}) string {
	if noColor {
		return fmt.Sprint
	}
	return color.New(attr).SprintFunc()
}

// statusOf extracts a report's exit status, defaulting to a general error.
func statusOf(report *execute.Report) int {
	if report == nil || report.Status == exitcode.Success {
		return exitcode.GeneralError
	}
	return report.Status
}

// reportError converts a completed report's non-zero status into the error
// Execute maps to the process exit code.
func reportError(report *execute.Report) error {
	if report == nil || report.Status == exitcode.Success {
		return nil
	}
	return exitWithStatus(report.Status, fmt.Errorf("completed with status %s", exitcode.String(report.Status)))
}

// layoutFromConfig maps the configured directory layout into the planner's.
func layoutFromConfig(cfg *config.Config) plan.Layout {
	return plan.Layout{FeaturesDir: cfg.Layout.FeaturesDir}
}
