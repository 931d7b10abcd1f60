package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// View implements tea.Model.
func (m *Model) View() string {
	var b strings.Builder

	b.WriteString(m.viewport.View())
	b.WriteString("\n")
	b.WriteString(m.styles.Separator.Render(strings.Repeat("─", max(m.width, 1))))
	b.WriteString("\n")
	b.WriteString(m.input.View())
	b.WriteString("\n")
	b.WriteString(m.styles.Separator.Render(strings.Repeat("─", max(m.width, 1))))
	b.WriteString("\n")
	b.WriteString(m.statusBar())

	return b.String()
}

func (m *Model) statusBar() string {
	switch m.state {
	case StateThinking:
		return m.styles.StatusBar.Render(m.spinner.View() + " composing...")
	case StateStreaming:
		return m.styles.StatusBar.Render(m.spinner.View() + " streaming (esc to stop)")
	default:
		return m.help.View(m.keys)
	}
}

// refreshViewport re-renders the transcript: persisted messages first,
// then the optimistic bubbles, then the typing buffer last.
func (m *Model) refreshViewport() {
	var b strings.Builder

	if len(m.messages) == 0 && m.typing == "" {
		b.WriteString(m.styles.RenderBanner())
		b.WriteString("\n")
		b.WriteString(m.styles.System.Render("Start a conversation. Your active voice profile shapes every reply."))
	}

	for _, msg := range m.messages {
		b.WriteString(m.renderMessage(msg))
		b.WriteString("\n\n")
	}
	if m.typing != "" {
		b.WriteString(m.styles.Assistant.Render("assistant"))
		b.WriteString("\n")
		b.WriteString(m.styles.Typing.Render(m.typing))
		b.WriteString("\n")
	}

	m.viewport.SetContent(lipgloss.NewStyle().Width(max(m.width, 1)).Render(b.String()))
	m.viewport.GotoBottom()
}

func (m *Model) renderMessage(msg displayMessage) string {
	switch msg.Role {
	case roleUser:
		return m.styles.User.Render("you") + "\n" + msg.Text
	case rolePending:
		return m.styles.User.Render("you") + m.styles.System.Render(" (sending)") + "\n" + msg.Text
	case roleAssistant:
		return m.styles.Assistant.Render("assistant") + "\n" + msg.Text
	case roleError:
		return m.styles.Error.Render("error: " + msg.Text)
	default:
		return m.styles.System.Render(msg.Text)
	}
}
