package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/portagehq/portage/internal/manifest"
)

// newPreviewCmd creates the preview command
func newPreviewCmd() *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "preview <archive>",
		Short: "Show what an archive contains without importing it",
		Long: `Validate an archive and summarize its contents.

Preview reads only the manifest entry; attachment data is never
opened, so a preview is cheap even for large archives.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			summary, err := newCodec(cfg).Preview(args[0])
			if err != nil {
				return err
			}
			if jsonOut {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(summary)
			}
			fmt.Println(renderSummary(summary))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "output as JSON")
	return cmd
}

var (
	previewTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("170"))
	previewLabelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Width(14)
	previewBoxStyle   = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("241")).
				Padding(0, 1)
)

func renderSummary(s *manifest.Summary) string {
	var b strings.Builder
	b.WriteString(previewTitleStyle.Render(fmt.Sprintf("%s export from %s", s.ExportType, s.SourceProject)))
	b.WriteString("\n")

	row := func(label, value string) {
		b.WriteString(previewLabelStyle.Render(label) + value + "\n")
	}
	row("Exported by", s.ExportedBy)
	row("Exported at", s.ExportedAt.Format("2006-01-02 15:04 MST"))
	row("App version", s.AppVersion)
	if len(s.EpicTitles) > 0 {
		row("Epics", strings.Join(s.EpicTitles, ", "))
	}
	row("Tickets", fmt.Sprintf("%d", s.Tickets))
	row("Comments", fmt.Sprintf("%d", s.Comments))
	row("Findings", fmt.Sprintf("%d", s.Findings))
	row("Demo scripts", fmt.Sprintf("%d", s.DemoScripts))
	row("Attachments", fmt.Sprintf("%d", s.Attachments))

	box := previewBoxStyle
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 4 {
		box = box.MaxWidth(w)
	}
	return box.Render(strings.TrimRight(b.String(), "\n"))
}
