package chatcmder

import (
	"context"
	"strings"
	"time"

	"charm.land/bubbles/v2/spinner"
	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
	"github.com/charmbracelet/x/ansi"

	"github.com/papercomputeco/relay/pkg/cliui"
	"github.com/papercomputeco/relay/pkg/client"
)

type chatState int

const (
	stateInput chatState = iota
	stateWaiting
	stateTyping
	stateDone
	stateError
)

const defaultWidth = 80

var spinnerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))

// responseMsg carries the full /run_stream body or the failure.
type responseMsg struct {
	body string
	err  error
}

// typeMsg advances the typewriter by one character.
type typeMsg struct{}

// sendFunc fetches the complete answer for a prompt.
type sendFunc func(ctx context.Context, prompt string) (string, error)

type chatModel struct {
	ctx    context.Context
	send   sendFunc
	target string
	pace   time.Duration

	input   textinput.Model
	spinner spinner.Model
	state   chatState
	width   int

	answer   []rune
	shown    int
	rendered string
	err      error
}

func newChatModel(ctx context.Context, send sendFunc, target, prompt string, pace time.Duration) chatModel {
	input := textinput.New()
	input.Prompt = "› "
	input.Placeholder = "Ask something"
	input.SetValue(prompt)
	input.Focus()

	return chatModel{
		ctx:     ctx,
		send:    send,
		target:  target,
		pace:    pace,
		input:   input,
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(spinnerStyle)),
		state:   stateInput,
		width:   defaultWidth,
	}
}

func (m chatModel) Init() tea.Cmd {
	return nil
}

func (m chatModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		if msg.Width > 0 {
			m.width = msg.Width
		}
		return m, nil

	case tea.KeyPressMsg:
		return m.handleKey(msg)

	case responseMsg:
		if msg.err != nil {
			m.state = stateError
			m.err = msg.err
			return m, nil
		}
		m.answer = []rune(msg.body)
		m.state = stateTyping
		if len(m.answer) <= 1 {
			return m.finish(), nil
		}
		// The first character shows at once; the pace applies between characters.
		m.shown = 1
		return m, m.typeTick()

	case typeMsg:
		if m.state != stateTyping {
			return m, nil
		}
		m.shown++
		if m.shown >= len(m.answer) {
			return m.finish(), nil
		}
		return m, m.typeTick()

	case spinner.TickMsg:
		if m.state != stateWaiting {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m chatModel) handleKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "esc":
		return m, tea.Quit
	case "enter":
		if m.state == stateWaiting || m.state == stateTyping {
			return m, nil
		}
		m.state = stateWaiting
		m.err = nil
		m.answer = nil
		m.shown = 0
		m.rendered = ""
		return m, tea.Batch(m.fetch(m.input.Value()), m.spinner.Tick)
	}

	if m.state == stateWaiting || m.state == stateTyping {
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// finish ends the replay and renders the answer as markdown.
func (m chatModel) finish() chatModel {
	m.state = stateDone
	m.shown = len(m.answer)
	rendered, err := cliui.RenderMarkdown(string(m.answer), m.width)
	if err != nil {
		rendered = m.wrap(string(m.answer))
	}
	m.rendered = strings.TrimRight(rendered, "\n")
	return m
}

func (m chatModel) fetch(prompt string) tea.Cmd {
	send, ctx := m.send, m.ctx
	return func() tea.Msg {
		body, err := send(ctx, prompt)
		return responseMsg{body: body, err: err}
	}
}

func (m chatModel) typeTick() tea.Cmd {
	return tea.Tick(m.pace, func(time.Time) tea.Msg {
		return typeMsg{}
	})
}

func (m chatModel) wrap(s string) string {
	return ansi.Wordwrap(s, m.width, "")
}

func (m chatModel) View() tea.View {
	return tea.NewView(m.render())
}

func (m chatModel) render() string {
	var b strings.Builder

	b.WriteString(cliui.HeaderStyle.Render("relay chat"))
	b.WriteString(" ")
	b.WriteString(cliui.DimStyle.Render(m.target))
	b.WriteString("\n\n")
	b.WriteString(m.input.View())
	b.WriteString("\n\n")

	switch m.state {
	case stateWaiting:
		b.WriteString(m.spinner.View())
		b.WriteString(" Waiting for the relay…\n")
	case stateTyping:
		b.WriteString(m.wrap(string(m.answer[:m.shown])))
		b.WriteString("\n")
	case stateDone:
		b.WriteString(m.rendered)
		b.WriteString("\n")
	case stateError:
		b.WriteString(cliui.ErrorStyle.Render(client.ErrorText(m.err)))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(cliui.DimStyle.Render("enter send • esc quit"))
	return b.String()
}
