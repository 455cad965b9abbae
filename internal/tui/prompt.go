package tui

import (
	"io"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// PromptModel asks whether a batch should continue after a failure. Enter or
// y continues; n, q, esc and ctrl+c stop.
type PromptModel struct {
	reason   string
	answer   bool
	answered bool
}

func NewPromptModel(err error) PromptModel {
	reason := ""
	if err != nil {
		reason = err.Error()
	}
	return PromptModel{reason: reason}
}

// Continue reports the operator's answer; false until one is given.
func (m PromptModel) Continue() bool {
	return m.answered && m.answer
}

func (m PromptModel) Init() tea.Cmd {
	return nil
}

func (m PromptModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch strings.ToLower(key.String()) {
	case "y", "enter":
		m.answer, m.answered = true, true
		return m, tea.Quit
	case "n", "q", "esc", "ctrl+c":
		m.answer, m.answered = false, true
		return m, tea.Quit
	default:
		return m, nil
	}
}

func (m PromptModel) View() string {
	if m.answered {
		return ""
	}

	lines := []string{}
	if m.reason != "" {
		lines = append(lines, promptErrStyle.Render(m.reason))
	}
	lines = append(lines,
		promptStyle.Render("Continue with the remaining files?")+" "+
			promptKeyStyle.Render("[Y/n]"),
	)
	return strings.Join(lines, "\n") + "\n"
}

// Confirm runs the prompt on the given terminal streams and returns the
// answer.
func Confirm(in io.Reader, out io.Writer, err error) (bool, error) {
	program := tea.NewProgram(NewPromptModel(err), tea.WithInput(in), tea.WithOutput(out))
	final, runErr := program.Run()
	if runErr != nil {
		return false, runErr
	}
	m, ok := final.(PromptModel)
	return ok && m.Continue(), nil
}

var (
	promptStyle    = lipgloss.NewStyle().Bold(true).Foreground(ColorAccent)
	promptKeyStyle = lipgloss.NewStyle().Foreground(ColorDim)
	promptErrStyle = lipgloss.NewStyle().Foreground(ColorWarn)
)
