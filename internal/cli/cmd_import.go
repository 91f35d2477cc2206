package cli

import (
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/portagehq/portage/internal/importer"
)

// newImportCmd creates the import command
func newImportCmd() *cobra.Command {
	var into string
	var conflict string
	var resetStatuses bool
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "import <archive>",
		Short: "Import an archive into a project",
		Long: `Import an exported archive into a target project.

Conflict modes:
  create-new  Always create new epics; title collisions get a
              "(from <exporter>)" suffix.
  replace     Reuse a same-title epic but delete its tickets first.
  merge       Reuse a same-title epic and update same-title tickets
              in place.

Every imported ticket gets a shared-by tag, a position after all
existing tickets, and a provenance comment. The whole import is
atomic: a failure rolls back everything.

Examples:
  portage import auth.portage --into PROJ-2 --conflict merge
  portage import auth.portage --into PROJ-2 --reset-statuses
  portage import auth.portage --dry-run`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			codec := newCodec(cfg)

			if dryRun {
				summary, err := codec.Preview(args[0])
				if err != nil {
					return err
				}
				fmt.Println(renderSummary(summary))
				fmt.Println("Dry run: nothing imported.")
				return nil
			}
			if into == "" {
				return fmt.Errorf("--into is required")
			}

			mode := importer.ModeCreateNew
			if conflict != "" {
				mode, err = importer.ParseMode(conflict)
				if err != nil {
					return err
				}
			} else if isatty.IsTerminal(os.Stdin.Fd()) && isatty.IsTerminal(os.Stdout.Fd()) {
				mode, err = pickMode()
				if err != nil {
					return err
				}
			}

			m, blobs, err := codec.Read(args[0])
			if err != nil {
				return err
			}
			store, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			res, err := importer.New(store).Import(cmd.Context(), into, m, blobs, importer.Options{
				ResetStatuses: resetStatuses,
				Mode:          mode,
			})
			if err != nil {
				return err
			}

			fmt.Printf("Imported %d epics, %d tickets, %d comments, %d findings, %d demo scripts, %d attachments (%s)\n",
				res.Epics, res.Tickets, res.Comments, res.Findings, res.DemoScripts, res.Attachments, mode)
			for _, w := range res.Warnings {
				fmt.Fprintln(os.Stderr, "warning: "+w)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&into, "into", "", "target project ID")
	cmd.Flags().StringVar(&conflict, "conflict", "", "conflict mode: create-new, replace, or merge")
	cmd.Flags().BoolVar(&resetStatuses, "reset-statuses", false, "reset all imported ticket statuses to backlog")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "preview the archive without importing")
	return cmd
}
