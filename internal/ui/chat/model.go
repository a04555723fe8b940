// Package chat is a terminal chat with the assistant over the console
// channel.
package chat

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/task-assistant/internal/channel"
	"github.com/nhle/task-assistant/internal/keys"
	"github.com/nhle/task-assistant/internal/theme"
)

// Submitter hands one line typed by the user to the assistant. Replies
// arrive asynchronously on the inbox.
type Submitter func(ctx context.Context, text string) error

// IncomingMsg carries a message the assistant sent to the console.
type IncomingMsg struct {
	Text string
}

// SubmitErrorMsg reports a failed submission.
type SubmitErrorMsg struct {
	Err error
}

type role int

const (
	roleUser role = iota
	roleAssistant
	roleError
)

// displayMessage represents a message rendered in the conversation viewport.
type displayMessage struct {
	Role    role
	Content string
}

// Model is the chat Bubble Tea model.
type Model struct {
	submit   Submitter
	inbox    <-chan channel.ConsoleMessage
	title    string
	input    textarea.Model
	viewport viewport.Model
	help     help.Model
	keys     *keys.KeyMap
	messages []displayMessage
	waiting  bool
	width    int
	height   int
}

// New creates a chat model. Messages read from inbox are shown as the
// assistant's; reminders sent by the scheduler arrive the same way.
func New(submit Submitter, inbox <-chan channel.ConsoleMessage, k *keys.KeyMap, title string) Model {
	ta := textarea.New()
	ta.Placeholder = "Escribe un mensaje... (ej. \"Recuérdame pagar la luz mañana\")"
	ta.Prompt = "> "
	ta.ShowLineNumbers = false
	ta.SetHeight(2)
	ta.CharLimit = 1000
	ta.KeyMap.InsertNewline.SetEnabled(false)
	ta.Focus()

	m := Model{
		submit:   submit,
		inbox:    inbox,
		title:    title,
		input:    ta,
		viewport: viewport.New(76, 16),
		help:     help.New(),
		keys:     k,
	}
	m.SetSize(80, 24)
	m.refreshViewport()
	return m
}

// Init starts the cursor blink and the inbox subscription.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, m.waitForMessage())
}

// Update handles messages for the chat.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.SetSize(msg.Width, msg.Height)
		m.refreshViewport()
		return m, nil

	case IncomingMsg:
		m.waiting = false
		m.messages = append(m.messages, displayMessage{Role: roleAssistant, Content: msg.Text})
		m.refreshViewport()
		return m, m.waitForMessage()

	case SubmitErrorMsg:
		m.waiting = false
		m.messages = append(m.messages, displayMessage{Role: roleError, Content: msg.Err.Error()})
		m.refreshViewport()
		return m, nil

	case tea.KeyMsg:
		return m.handleKeyMsg(msg)
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m Model) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil

	case key.Matches(msg, m.keys.Clear):
		m.messages = m.messages[:0]
		m.refreshViewport()
		return m, nil

	case key.Matches(msg, m.keys.ScrollUp), key.Matches(msg, m.keys.ScrollDown):
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd

	case key.Matches(msg, m.keys.Send):
		text := strings.TrimSpace(m.input.Value())
		if text == "" {
			return m, nil
		}
		m.input.Reset()
		m.messages = append(m.messages, displayMessage{Role: roleUser, Content: text})
		m.waiting = true
		m.refreshViewport()
		return m, m.send(text)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// send returns a command that submits text to the assistant.
func (m Model) send(text string) tea.Cmd {
	submit := m.submit
	return func() tea.Msg {
		if err := submit(context.Background(), text); err != nil {
			return SubmitErrorMsg{Err: err}
		}
		return nil
	}
}

// waitForMessage returns a command that waits for the next console message.
func (m Model) waitForMessage() tea.Cmd {
	inbox := m.inbox
	return func() tea.Msg {
		msg, ok := <-inbox
		if !ok {
			return nil
		}
		return IncomingMsg{Text: msg.Text}
	}
}

// refreshViewport re-renders the conversation content and scrolls to bottom.
func (m *Model) refreshViewport() {
	m.viewport.SetContent(m.renderConversation())
	m.viewport.GotoBottom()
}

// renderConversation builds the conversation display string.
func (m Model) renderConversation() string {
	if len(m.messages) == 0 {
		return theme.HelpStyle.Render("Escribe \"ayuda\" para ver lo que puedo hacer.")
	}

	var sections []string
	for _, msg := range m.messages {
		var label string
		switch msg.Role {
		case roleUser:
			label = theme.UserLabelStyle.Render("Tú:")
		case roleAssistant:
			label = theme.AssistantLabelStyle.Render("Asistente:")
		default:
			label = theme.ErrorLabelStyle.Render("Error:")
		}
		sections = append(sections, label, theme.MessageStyle.Render(msg.Content), "")
	}
	if m.waiting {
		sections = append(sections, theme.HelpStyle.Render("..."))
	}
	return strings.Join(sections, "\n")
}

// View renders the chat.
func (m Model) View() string {
	separator := theme.SeparatorStyle.Render(strings.Repeat("─", max(m.width-6, 1)))

	content := lipgloss.JoinVertical(
		lipgloss.Left,
		theme.TitleStyle.Render(m.title),
		m.viewport.View(),
		separator,
		m.input.View(),
	)

	return fmt.Sprintf("%s\n%s",
		theme.PanelStyle.Width(m.width-2).Render(content),
		m.help.View(m.keys),
	)
}

// SetSize updates the chat dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.input.SetWidth(max(width-6, 10))
	m.help.Width = width

	vpHeight := height - 9 // title, separator, input, borders and help
	if vpHeight < 4 {
		vpHeight = 4
	}
	m.viewport.Width = max(width-6, 10)
	m.viewport.Height = vpHeight
}
