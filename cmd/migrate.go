/*
Copyright © 2026 Loom <oss@loomhq.dev>
*/
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/loomhq/docsync/pkg/logger"
)

// newMigrateCommand builds the migrate command.
func newMigrateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate <target>",
		Short: "Move story files into the canonical epic/story layout",
		Long: `Migrate relocates story files named <epic>.<story>.<ext> into
epics/epic-N/stories/ under the target root (or one feature's root with
--feature). Names that do not parse are reported as warnings and left
alone. Source directories fully emptied by the run's moves are pruned.`,
		Args: cobra.ExactArgs(1),
		RunE: runMigrate,
	}
	cmd.Flags().StringP("feature", "f", "", "Migrate a single feature's subtree")
	return cmd
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	feature, _ := cmd.Flags().GetString("feature")

	logger.Info("migrating", logger.String("target", args[0]), logger.String("feature", feature))

	report, err := newEngine(cfg).Migrate(cmd.Context(), args[0], feature, dryRun)
	if report != nil {
		renderReport(cmd, report)
	}
	if err != nil {
		return exitWithStatus(statusOf(report), err)
	}
	return reportError(report)
}
