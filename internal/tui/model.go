// Package tui provides the Bubble Tea terminal client for inkvoice.
package tui

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"

	"github.com/inkvoice/inkvoice/internal/client"
)

// State represents the TUI state machine.
type State int

const (
	StateInput     State = iota // awaiting user input
	StateThinking               // request sent, no delta yet
	StateStreaming              // deltas arriving
)

// Memory bounds to prevent unbounded growth.
const (
	maxMessages = 200
	maxHistory  = 100
)

// Display roles. "pending" marks the optimistic user bubble shown
// before the server confirms it.
const (
	roleUser      = "user"
	roleAssistant = "assistant"
	roleSystem    = "system"
	roleError     = "error"
	rolePending   = "pending"
)

// Layout constants for viewport height calculation.
const (
	separatorLines = 2
	helpLines      = 1
	minViewport    = 3
)

// displayMessage is one rendered bubble.
type displayMessage struct {
	Role string
	Text string
}

// Model is the Bubble Tea model for the inkvoice terminal client.
type Model struct {
	input      textarea.Model
	history    []string
	historyIdx int

	state     State
	lastCtrlC time.Time

	spinner  spinner.Model
	viewport viewport.Model
	help     help.Model
	keys     keyMap

	messages []displayMessage
	// typing is the transient buffer of the in-flight assistant turn.
	// Rendered after all persisted messages, cleared exactly once on
	// done.
	typing string

	streamCancel context.CancelFunc
	eventCh      <-chan streamEvent

	api            *client.Client
	conversationID uuid.UUID
	modelID        string

	ctx       context.Context
	ctxCancel context.CancelFunc

	width  int
	height int

	styles Styles
}

// New creates a Model bound to one conversation.
//
// ctx MUST be the same context passed to tea.WithContext() so stream
// cancellation and program shutdown stay consistent.
func New(ctx context.Context, api *client.Client, conversationID uuid.UUID, modelID string) (*Model, error) {
	if api == nil {
		return nil, errors.New("tui.New: client is required")
	}
	if conversationID == uuid.Nil {
		return nil, errors.New("tui.New: conversation ID is required")
	}
	if modelID == "" {
		return nil, errors.New("tui.New: model ID is required")
	}

	ctx, cancel := context.WithCancel(ctx)

	ta := textarea.New()
	ta.Placeholder = "Write in your own voice..."
	ta.SetHeight(1)
	ta.SetWidth(120)
	ta.ShowLineNumbers = false
	ta.FocusedStyle.Base = lipgloss.NewStyle()
	ta.FocusedStyle.CursorLine = lipgloss.NewStyle()
	ta.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	vp := viewport.New(80, 20)
	vp.KeyMap = viewport.KeyMap{} // keys are routed explicitly in handleKey

	return &Model{
		api:            api,
		conversationID: conversationID,
		modelID:        modelID,
		ctx:            ctx,
		ctxCancel:      cancel,
		input:          ta,
		spinner:        sp,
		viewport:       vp,
		help:           help.New(),
		keys:           newKeyMap(),
		styles:         DefaultStyles(),
		history:        make([]string, 0, maxHistory),
		width:          80,
	}, nil
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(
		textarea.Blink,
		m.spinner.Tick,
		m.fetchMessages(),
	)
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.input.SetWidth(msg.Width - 2)
		m.viewport.Width = msg.Width
		vpHeight := msg.Height - m.input.Height() - separatorLines - helpLines
		if vpHeight < minViewport {
			vpHeight = minViewport
		}
		m.viewport.Height = vpHeight
		m.refreshViewport()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case streamStartedMsg:
		m.streamCancel = msg.cancel
		m.eventCh = msg.eventCh
		return m, listenForStream(m.eventCh)

	case streamTextMsg:
		m.state = StateStreaming
		m.typing += msg.text
		m.refreshViewport()
		return m, listenForStream(m.eventCh)

	case streamResetMsg:
		m.typing = ""
		m.refreshViewport()
		return m, listenForStream(m.eventCh)

	case streamDoneMsg:
		m.finishStream()
		return m, m.fetchMessages()

	case streamErrorMsg:
		m.finishStream()
		m.addMessage(displayMessage{Role: roleError, Text: msg.reason})
		m.refreshViewport()
		return m, m.fetchMessages()

	case streamClosedMsg:
		if m.state != StateInput {
			m.finishStream()
			return m, m.fetchMessages()
		}
		return m, nil

	case refreshedMsg:
		if msg.err != nil {
			m.addMessage(displayMessage{Role: roleError, Text: "refresh failed: " + msg.err.Error()})
			m.refreshViewport()
			return m, nil
		}
		m.messages = m.messages[:0]
		for _, srv := range msg.messages {
			role := srv.Role
			if role != roleUser && role != roleAssistant {
				role = roleSystem
			}
			m.addMessage(displayMessage{Role: role, Text: srv.Content})
		}
		m.refreshViewport()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// finishStream tears down stream state and clears the typing buffer.
// Idempotent: done and a late channel closure may both land here.
func (m *Model) finishStream() {
	if m.streamCancel != nil {
		m.streamCancel()
		m.streamCancel = nil
	}
	m.eventCh = nil
	m.typing = ""
	m.state = StateInput
}

// addMessage appends a message and enforces the maxMessages bound.
func (m *Model) addMessage(msg displayMessage) {
	m.messages = append(m.messages, msg)
	if len(m.messages) > maxMessages {
		m.messages = m.messages[len(m.messages)-maxMessages:]
	}
}
