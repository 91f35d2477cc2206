package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/portagehq/portage/internal/archive"
	"github.com/portagehq/portage/internal/db"
	apperrors "github.com/portagehq/portage/internal/errors"
	"github.com/portagehq/portage/internal/export"
)

// newExportCmd creates the export command
func newExportCmd() *cobra.Command {
	var outputFile string
	var projectID string

	cmd := &cobra.Command{
		Use:   "export [epic-id...]",
		Short: "Export epics or a whole project to archive files",
		Long: `Export one or more epics, or a whole project, for cross-project
portability.

Each epic produces its own archive; multiple epics export
concurrently. The default output location is the export directory
from config (.portage/exports/ unless overridden).

Examples:
  portage export EPIC-1                   # one epic, derived filename
  portage export EPIC-1 -o auth.portage   # one epic, explicit file
  portage export EPIC-1 EPIC-2            # two archives
  portage export --project PROJ-1         # the whole project`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if projectID == "" && len(args) == 0 {
				return fmt.Errorf("provide epic IDs or --project")
			}
			if projectID != "" && len(args) > 0 {
				return fmt.Errorf("--project and epic IDs are mutually exclusive")
			}
			if outputFile != "" && len(args) > 1 {
				return fmt.Errorf("-o only applies to a single export")
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			store, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			exp := export.New(store, cfg.Export.By, Version)
			codec := newCodec(cfg)
			ctx := cmd.Context()

			if outputFile == "" {
				if err := os.MkdirAll(cfg.Export.Dir, 0o755); err != nil {
					return fmt.Errorf("creating export dir: %w", err)
				}
			}

			if projectID != "" {
				m, blobs, err := exp.ByProject(ctx, projectID)
				if err != nil {
					return err
				}
				path := outputFile
				if path == "" {
					path = filepath.Join(cfg.Export.Dir, archive.SuggestFilename(m.SourceProject.Name))
				}
				if err := codec.WriteFile(path, m, blobs); err != nil {
					return err
				}
				fmt.Printf("Exported project %s (%d tickets) to %s\n", m.SourceProject.Name, len(m.Tickets), path)
				return nil
			}

			// Paths are derived up front so same-titled epics cannot
			// race on one file when the exports run in parallel.
			paths := map[string]string{}
			if outputFile == "" {
				paths, err = deriveExportPaths(store, cfg.Export.Dir, args)
				if err != nil {
					return err
				}
			}

			// Each epic yields an independent archive, so they export
			// in parallel.
			g, gctx := errgroup.WithContext(ctx)
			for _, epicID := range args {
				g.Go(func() error {
					m, blobs, err := exp.ByEpic(gctx, epicID)
					if err != nil {
						return err
					}
					path := outputFile
					if path == "" {
						path = paths[epicID]
					}
					if err := codec.WriteFile(path, m, blobs); err != nil {
						return err
					}
					fmt.Printf("Exported epic %s (%d tickets) to %s\n", m.Epics[0].Title, len(m.Tickets), path)
					return nil
				})
			}
			return g.Wait()
		},
	}

	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "output file (single export only)")
	cmd.Flags().StringVar(&projectID, "project", "", "export this whole project instead of epics")
	return cmd
}

// deriveExportPaths maps each epic ID to a distinct output path under
// dir. Filenames come from epic titles; when two epics share a title
// the later ones get the epic ID folded into the name.
func deriveExportPaths(store *db.TrackerDB, dir string, epicIDs []string) (map[string]string, error) {
	paths := make(map[string]string, len(epicIDs))
	used := make(map[string]bool, len(epicIDs))
	for _, epicID := range epicIDs {
		epic, err := store.GetEpic(epicID)
		if err != nil {
			return nil, err
		}
		if epic == nil {
			return nil, apperrors.ErrEpicNotFound(epicID)
		}
		name := archive.SuggestFilename(epic.Title)
		if used[name] {
			name = archive.SuggestFilename(epic.Title + " " + epicID)
		}
		used[name] = true
		paths[epicID] = filepath.Join(dir, name)
	}
	return paths, nil
}
