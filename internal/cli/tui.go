package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/koscakluka/ema-cookbook/core/dialog"
	"github.com/muesli/reflow/wordwrap"
)

type role int

const (
	roleUser role = iota
	roleAssistant
	roleNotice
)

type chatMessage struct {
	role role
	text string
}

type turnMsg struct{ turn dialog.Turn }

type spokenMsg struct{ err error }

type heardMsg struct{ text string }

type interimMsg struct{ text string }

type model struct {
	ctx  context.Context
	conv *conversation

	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model
	styles   styles

	messages []chatMessage
	queue    []string
	interim  string
	busy     bool
	speaking bool
	ended    bool
	width    int
}

func newModel(ctx context.Context, conv *conversation) model {
	input := textinput.New()
	input.Placeholder = "What would you like to cook?"
	input.Prompt = "> "
	input.CharLimit = 500
	input.Focus()

	s := spinner.New()
	s.Spinner = spinner.Dot

	return model{
		ctx:      ctx,
		conv:     conv,
		input:    input,
		viewport: viewport.New(80, 20),
		spinner:  s,
		styles:   defaultStyles(),
		busy:     true,
		width:    80,
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick, m.startCmd())
}

func (m model) startCmd() tea.Cmd {
	return func() tea.Msg {
		return turnMsg{turn: m.conv.start(m.ctx)}
	}
}

func (m model) respondCmd(utterance string) tea.Cmd {
	return func() tea.Msg {
		return turnMsg{turn: m.conv.respond(m.ctx, utterance)}
	}
}

func (m model) speakCmd(text string) tea.Cmd {
	return func() tea.Msg {
		return spokenMsg{err: m.conv.speak(m.ctx, text)}
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			utterance := m.input.Value()
			m.input.Reset()
			return m.submit(utterance)
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.viewport.Width = msg.Width
		// Title, status and input take a line each.
		m.viewport.Height = max(msg.Height-4, 1)
		m.input.Width = max(msg.Width-4, 10)
		m.refresh()
		return m, nil

	case turnMsg:
		m.busy = false
		m.ended = msg.turn.Ended
		m.messages = append(m.messages, chatMessage{role: roleAssistant, text: msg.turn.Reply})
		m.refresh()
		if !m.conv.mute {
			m.speaking = true
			return m, m.speakCmd(msg.turn.Reply)
		}
		return m.next()

	case spokenMsg:
		m.speaking = false
		if msg.err != nil {
			m.messages = append(m.messages, chatMessage{role: roleNotice, text: fmt.Sprintf("could not speak the reply: %v", msg.err)})
			m.refresh()
		}
		return m.next()

	case heardMsg:
		m.interim = ""
		if m.busy || m.speaking {
			m.queue = append(m.queue, msg.text)
			return m, nil
		}
		return m.submit(msg.text)

	case interimMsg:
		m.interim = msg.text
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

// submit starts a turn unless one is already running.
func (m model) submit(utterance string) (tea.Model, tea.Cmd) {
	if m.busy || m.speaking || m.ended {
		return m, nil
	}

	m.busy = true
	m.messages = append(m.messages, chatMessage{role: roleUser, text: utterance})
	m.refresh()
	return m, m.respondCmd(utterance)
}

// next quits after the farewell, otherwise it picks up an utterance heard
// while the previous turn was running.
func (m model) next() (tea.Model, tea.Cmd) {
	if m.ended {
		return m, tea.Quit
	}
	if len(m.queue) > 0 {
		utterance := m.queue[0]
		m.queue = m.queue[1:]
		return m.submit(utterance)
	}
	return m, nil
}

func (m *model) refresh() {
	m.viewport.SetContent(m.renderMessages())
	m.viewport.GotoBottom()
}

func (m model) renderMessages() string {
	width := max(m.width-2, 20)
	var b strings.Builder
	for i, message := range m.messages {
		if i > 0 {
			b.WriteString("\n")
		}
		switch message.role {
		case roleUser:
			b.WriteString(m.styles.user.Render("You: "))
		case roleAssistant:
			b.WriteString(m.styles.assistant.Render("Assistant: "))
		case roleNotice:
			b.WriteString(m.styles.errorText.Render(wordwrap.String(message.text, width)))
			b.WriteString("\n")
			continue
		}
		b.WriteString(wordwrap.String(message.text, width))
		b.WriteString("\n")
	}
	return b.String()
}

func (m model) status() string {
	switch {
	case m.busy:
		return m.spinner.View() + m.styles.status.Render(" thinking...")
	case m.speaking:
		return m.spinner.View() + m.styles.status.Render(" speaking...")
	case m.interim != "":
		return m.styles.interim.Render(m.interim)
	default:
		return m.styles.status.Render("enter to send, esc to quit")
	}
}

func (m model) View() string {
	return strings.Join([]string{
		m.styles.title.Render("Voice Cookbook"),
		m.viewport.View(),
		m.status(),
		m.input.View(),
	}, "\n")
}

// RunTUI runs the conversation in a full screen terminal interface until the
// farewell, escape or ctx is done.
func RunTUI(ctx context.Context, assistant Assistant, opts Options) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	c := newConversation(assistant, opts)
	defer c.end()

	program := tea.NewProgram(newModel(ctx, c), tea.WithAltScreen(), tea.WithContext(ctx))

	if opts.Listener != nil {
		err := opts.Listener.Listen(ctx,
			func(utterance string) { program.Send(heardMsg{text: utterance}) },
			func(interim string) { program.Send(interimMsg{text: interim}) },
		)
		if err != nil {
			return fmt.Errorf("failed to listen: %w", err)
		}
		defer func() {
			if err := opts.Listener.StopListening(); err != nil {
				logger.Warn("failed to stop listening", "error", err)
			}
		}()
	}

	if _, err := program.Run(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("terminal interface failed: %w", err)
	}
	return nil
}
