/*
Copyright © 2026 Loom <oss@loomhq.dev>
*/
package cmd

import (
	"runtime"

	"github.com/spf13/cobra"

	"github.com/loomhq/docsync/pkg/buildinfo"
)

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	RunE: func(cmd *cobra.Command, _ []string) error {
		extended, _ := cmd.Flags().GetBool("extended")
		if !extended {
			cmd.Printf("docsync %s\n", buildinfo.BinaryVersion)
			return nil
		}
		cmd.Printf("docsync %s\n", buildinfo.BinaryVersion)
		cmd.Printf("  module:  %s\n", buildinfo.ModuleVersion())
		cmd.Printf("  go:      %s\n", runtime.Version())
		cmd.Printf("  platform: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		return nil
	},
}

func init() {
	versionCmd.Flags().Bool("extended", false, "Show build details")
}
