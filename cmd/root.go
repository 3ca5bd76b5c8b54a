/*
Copyright © 2026 Loom <oss@loomhq.dev>
*/
package cmd

import (
	"errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/loomhq/docsync/pkg/buildinfo"
	"github.com/loomhq/docsync/pkg/config"
	"github.com/loomhq/docsync/pkg/exitcode"
	"github.com/loomhq/docsync/pkg/logger"
	"github.com/loomhq/docsync/pkg/reconcile"
)

// newRootCommand creates a fresh root command instance.
// The factory pattern lets tests build isolated command trees without shared state.
func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "docsync",
		Short: "Content-addressed reconciliation for documentation trees",
		Long: `Docsync keeps documentation trees in their canonical shape. It syncs
template trees into targets, audits trees against a manifest, and migrates
legacy story files into the epic/story layout.

All change detection is by content digest; timestamps never trigger a write.

Examples:
   docsync sync ./templates ./docs       # Make ./docs match ./templates
   docsync audit ./docs                  # Classify files against the manifest
   docsync audit ./docs --repair         # Audit, then apply decided repairs
   docsync migrate ./docs -f checkout    # Canonicalize one feature's stories`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			initializeLogger(cmd)
		},
	}

	cmd.PersistentFlags().String("log-level", "info", "Set log level (debug|info|warn|error)")
	cmd.PersistentFlags().Bool("json", false, "Output logs and reports in JSON format")
	cmd.PersistentFlags().Bool("no-color", false, "Disable colored output")
	cmd.PersistentFlags().BoolP("dry-run", "n", false, "Plan and report without touching the filesystem")
	cmd.PersistentFlags().String("config", "", "Path to a config file (default .docsync/config.yaml)")

	cmd.Version = buildinfo.BinaryVersion
	cmd.SetVersionTemplate("docsync {{.Version}}\n")

	return cmd
}

// registerSubcommands adds all subcommands to the root command.
func registerSubcommands(cmd *cobra.Command) {
	cmd.AddCommand(newSyncCommand())
	cmd.AddCommand(newMigrateCommand())
	cmd.AddCommand(newAuditCommand())
	cmd.AddCommand(versionCmd)
}

var rootCmd = newRootCommand()

// statusError carries a specific exit code out of a subcommand.
type statusError struct {
	code int
	err  error
}

func (e *statusError) Error() string { return e.err.Error() }
func (e *statusError) Unwrap() error { return e.err }

// exitWithStatus wraps err so Execute maps it to the given exit code.
func exitWithStatus(code int, err error) error {
	if err == nil || code == exitcode.Success {
		return err
	}
	return &statusError{code: code, err: err}
}

// Execute runs the root command. It is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		logger.Error("command failed", logger.Err(err))
		var serr *statusError
		if errors.As(err, &serr) {
			os.Exit(serr.code)
		}
		os.Exit(exitcode.GeneralError)
	}
}

func init() {
	registerSubcommands(rootCmd)
}

// initializeLogger sets up the logger from the persistent flags.
func initializeLogger(cmd *cobra.Command) {
	levelStr, _ := cmd.Flags().GetString("log-level")
	jsonLogs, _ := cmd.Flags().GetBool("json")
	noColor, _ := cmd.Flags().GetBool("no-color")
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	logger.Initialize(logger.Config{
		Level:     logger.ParseLevel(levelStr),
		UseColor:  !noColor,
		JSON:      jsonLogs,
		Component: "docsync",
		DryRun:    dryRun,
	})
}

// loadConfig reads the config file named by --config, or the project default.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, exitWithStatus(exitcode.ConfigError, err)
	}
	return cfg, nil
}

// newEngine builds the reconciliation engine from loaded configuration.
func newEngine(cfg *config.Config) *reconcile.Engine {
	return reconcile.New(reconcile.Options{
		IgnorePatterns:    cfg.Scan.IgnorePatterns,
		Workers:           cfg.Scan.Workers,
		AbortOnFirstError: cfg.Apply.AbortOnFirstError,
		Layout:            layoutFromConfig(cfg),
	})
}
