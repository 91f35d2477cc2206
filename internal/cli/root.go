// Package cli implements the portage command-line interface.
package cli

import (
	"github.com/spf13/cobra"
)

// Version is reported by the version command and stamped into
// manifests as appVersion.
const Version = "0.1.0"

var (
	cfgFile string
	verbose bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "portage",
	Short: "Move epics and projects between trackers",
	Long: `portage exports an epic or a whole project into a single portable
archive and imports it into another project.

An export snapshots tickets, comments, review findings, demo scripts,
workflow state, and attachments. An import rewrites every ID, remaps
every reference, and resolves title conflicts with one of three
policies: create-new, replace, or merge.

Quick start:
  portage init                              Initialize portage here
  portage export EPIC-ID -o auth.portage    Export one epic
  portage preview auth.portage              Inspect an archive
  portage import auth.portage --into PROJ   Import into a project`,
	// main prints errors itself so structured ones can render their
	// what/why/fix message.
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .portage/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	// Add subcommands
	rootCmd.AddCommand(newInitCmd())
	rootCmd.AddCommand(newExportCmd())
	rootCmd.AddCommand(newPreviewCmd())
	rootCmd.AddCommand(newImportCmd())
	rootCmd.AddCommand(newVersionCmd())
}
