package cli

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// promptProjectName asks for the first project's name during init.
// An empty answer skips project creation.
func promptProjectName() (string, error) {
	ti := textinput.New()
	ti.Placeholder = "my-project"
	ti.Focus()
	ti.CharLimit = 100

	m := &projectPromptModel{input: ti}
	final, err := tea.NewProgram(m).Run()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(final.(*projectPromptModel).input.Value()), nil
}

type projectPromptModel struct {
	input textinput.Model
	done  bool
}

func (m *projectPromptModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m *projectPromptModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "enter":
			m.done = true
			return m, tea.Quit
		case "esc", "ctrl+c":
			m.input.SetValue("")
			m.done = true
			return m, tea.Quit
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *projectPromptModel) View() string {
	if m.done {
		return ""
	}
	hint := lipgloss.NewStyle().Foreground(lipgloss.Color("241")).
		Render("enter: confirm • esc: skip")
	return "Name the first project (empty to skip):\n\n" + m.input.View() + "\n\n" + hint
}
