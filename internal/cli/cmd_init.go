package cli

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/portagehq/portage/internal/config"
	"github.com/portagehq/portage/internal/db"
	apperrors "github.com/portagehq/portage/internal/errors"
)

// newInitCmd creates the init command
func newInitCmd() *cobra.Command {
	var force bool
	var projectName string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize portage in the current project",
		Long: `Initialize portage in the current directory.

Creates .portage/ with a default config.yaml and an empty tracker
database. Pass --project to also create the first project.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(config.PortageDir); err == nil && !force {
				return apperrors.ErrAlreadyInitialized(config.PortageDir)
			}

			cfg := config.Default()
			if err := cfg.Save("."); err != nil {
				return err
			}
			store, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			if projectName == "" && isatty.IsTerminal(os.Stdin.Fd()) && isatty.IsTerminal(os.Stdout.Fd()) {
				projectName, err = promptProjectName()
				if err != nil {
					return err
				}
			}
			if projectName != "" {
				p := &db.Project{ID: uuid.NewString(), Name: projectName}
				if err := store.SaveProject(p); err != nil {
					return err
				}
				fmt.Printf("Created project %s (%s)\n", p.Name, p.ID)
			}
			fmt.Println("Initialized portage in " + config.PortageDir)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "reinitialize even if .portage exists")
	cmd.Flags().StringVar(&projectName, "project", "", "create an initial project with this name")
	return cmd
}
