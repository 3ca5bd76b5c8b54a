/*
Copyright © 2026 Loom <oss@loomhq.dev>
*/
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/loomhq/docsync/pkg/logger"
)

// newSyncCommand builds the sync command.
func newSyncCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync <source> <target>",
		Short: "Make a target tree's content match a source tree",
		Long: `Sync compares the source and target trees by content digest and writes
the minimal set of creates and updates that makes the target match.

Files present only in the target are reported as extraneous and never
deleted. Re-running against an already-synced target changes nothing.`,
		Args: cobra.ExactArgs(2),
		RunE: runSync,
	}
	return cmd
}

func runSync(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	logger.Info("syncing", logger.String("source", args[0]), logger.String("target", args[1]))

	report, err := newEngine(cfg).Sync(cmd.Context(), args[0], args[1], dryRun)
	if report != nil {
		renderReport(cmd, report)
	}
	if err != nil {
		return exitWithStatus(statusOf(report), err)
	}
	return reportError(report)
}
