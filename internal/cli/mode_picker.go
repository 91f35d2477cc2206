package cli

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/portagehq/portage/internal/importer"
)

// pickMode runs the interactive conflict-mode selector. Used when
// --conflict is omitted on a terminal.
func pickMode() (importer.Mode, error) {
	m := &modePickerModel{}
	final, err := tea.NewProgram(m).Run()
	if err != nil {
		return 0, err
	}
	picker := final.(*modePickerModel)
	if picker.selected < 0 {
		return 0, fmt.Errorf("no conflict mode selected")
	}
	return modeOptions[picker.selected].mode, nil
}

type modeOption struct {
	mode  importer.Mode
	label string
	desc  string
}

var modeOptions = []modeOption{
	{importer.ModeCreateNew, "Create new", "always add new epics, keep existing ones untouched"},
	{importer.ModeReplace, "Replace", "reuse same-title epics, replacing their tickets"},
	{importer.ModeMerge, "Merge", "reuse same-title epics, update same-title tickets in place"},
}

type modePickerModel struct {
	cursor   int
	selected int
	done     bool
}

func (m *modePickerModel) Init() tea.Cmd {
	m.selected = -1
	return nil
}

func (m *modePickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(modeOptions)-1 {
				m.cursor++
			}
		case "enter", " ":
			m.selected = m.cursor
			m.done = true
			return m, tea.Quit
		case "q", "esc", "ctrl+c":
			m.done = true
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m *modePickerModel) View() string {
	if m.done {
		return ""
	}
	var b strings.Builder
	b.WriteString("How should title conflicts in the target project be resolved?\n\n")

	for i, opt := range modeOptions {
		cursor := "  "
		if i == m.cursor {
			cursor = "> "
		}
		line := cursor + opt.label + " - " +
			lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Render(opt.desc)
		if i == m.cursor {
			line = lipgloss.NewStyle().Foreground(lipgloss.Color("170")).Render(line)
		}
		b.WriteString(line + "\n")
	}

	b.WriteString("\n" + lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Render("↑/↓: navigate • enter: select • q: cancel"))
	return b.String()
}
