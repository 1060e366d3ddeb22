package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"charm.land/bubbles/v2/spinner"
	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/lipgloss"
	"github.com/raphaelgruber/sakhi-go/internal/chat"
)

// sendTimeout bounds a single message round-trip including the AI reply.
const sendTimeout = 2 * time.Minute

// Theme holds the color scheme for the chat display.
type Theme struct {
	User      lipgloss.Color
	Assistant lipgloss.Color
	Error     lipgloss.Color
	Hint      lipgloss.Color
}

// defaultTheme provides default colors.
var defaultTheme = Theme{
	User:      lipgloss.Color("#5FAFD7"), // light blue
	Assistant: lipgloss.Color("#D787AF"), // pink
	Error:     lipgloss.Color("#FF005F"), // red
	Hint:      lipgloss.Color("#6C6C6C"), // dim gray
}

func (t Theme) userStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.User).Bold(true)
}

func (t Theme) assistantStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Assistant).Bold(true)
}

func (t Theme) errorStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Error)
}

func (t Theme) hintStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Hint).Italic(true)
}

// sendDoneMsg reports the outcome of a message send.
type sendDoneMsg struct {
	err error
}

// chatModel is the bubbletea model for the interactive chat.
type chatModel struct {
	core    *chat.Core
	input   textinput.Model
	spin    spinner.Model
	theme   Theme
	authed  bool
	waiting bool
	errText string
	width   int
}

func newChatModel(core *chat.Core, authed bool) chatModel {
	ti := textinput.New()
	ti.Placeholder = "Type a message..."

	return chatModel{
		core:   core,
		input:  ti,
		spin:   spinner.New(spinner.WithSpinner(spinner.Dot)),
		theme:  defaultTheme,
		authed: authed,
	}
}

// Init returns the initial command (focus the input).
func (m chatModel) Init() tea.Cmd {
	return m.input.Focus()
}

// Update handles messages and returns the updated model.
func (m chatModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tea.KeyPressMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit
		case "ctrl+n":
			if !m.waiting {
				return m, m.newChat()
			}
			return m, nil
		case "enter":
			content := strings.TrimSpace(m.input.Value())
			if content == "" || m.waiting {
				return m, nil
			}
			m.input.SetValue("")
			m.errText = ""
			m.waiting = true
			return m, tea.Batch(m.spin.Tick, m.send(content))
		}

	case sendDoneMsg:
		m.waiting = false
		if msg.err != nil {
			m.errText = msg.err.Error()
		}
		return m, nil

	case spinner.TickMsg:
		if m.waiting {
			var cmd tea.Cmd
			m.spin, cmd = m.spin.Update(msg)
			return m, cmd
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View renders the chat transcript above the input line.
func (m chatModel) View() tea.View {
	return tea.NewView(m.renderContent())
}

func (m chatModel) renderContent() string {
	var b strings.Builder

	session, ok := m.core.Current()
	if ok {
		b.WriteString(m.theme.hintStyle().Render(session.Title) + "\n\n")
		for _, msg := range session.Messages {
			label := m.theme.assistantStyle().Render("Sakhi")
			if msg.Role == chat.RoleUser {
				label = m.theme.userStyle().Render("You")
			}
			b.WriteString(fmt.Sprintf("%s  %s\n", label, msg.Content))
		}
	} else {
		greeting := "Start typing to begin a conversation."
		if !m.authed {
			greeting = "You are chatting as a guest. Log in to save conversations.\nStart typing to begin."
		}
		b.WriteString(m.theme.hintStyle().Render(greeting) + "\n")
	}

	if m.waiting {
		b.WriteString(m.spin.View() + " " + m.theme.hintStyle().Render("Sakhi is typing...") + "\n")
	}
	if m.errText != "" {
		b.WriteString(m.theme.errorStyle().Render(m.errText) + "\n")
	}

	b.WriteString("\n" + m.input.View() + "\n")
	b.WriteString(m.theme.hintStyle().Render("enter send · ctrl+n new chat · esc quit") + "\n")
	return b.String()
}

// send dispatches the message through the core in a command goroutine so the
// UI stays responsive. Each render re-reads the transcript from the core, so
// the optimistic append shows up on the next spinner tick while the reply is
// still in flight.
func (m chatModel) send(content string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		defer cancel()

		_, err := m.core.Send(ctx, content)
		return sendDoneMsg{err: err}
	}
}

// newChat starts a fresh session.
func (m chatModel) newChat() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		_, err := m.core.NewChat(ctx)
		return sendDoneMsg{err: err}
	}
}

// runChatUI runs the interactive chat until the user quits.
func runChatUI(core *chat.Core, authed bool) error {
	p := tea.NewProgram(newChatModel(core, authed))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("chat UI error: %w", err)
	}
	return nil
}
