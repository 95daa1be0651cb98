package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("62")).Bold(true)
	localStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

type connectedMsg struct{}

type modelState struct {
	network   *Network
	viewport  viewport.Model
	textInput textinput.Model
	messages  []string
	ready     bool
}

func initialModel(network *Network) modelState {
	ti := textinput.New()
	ti.Placeholder = "Type a command (help, login, message ...)"
	ti.Focus()
	ti.CharLimit = 512

	messages := []string{
		localStyle.Render("Welcome to TalkLine. /connect <host> to connect, /quit to exit."),
	}
	if network.Connected() {
		messages = append(messages, statusStyle.Render("Connected."))
	}

	return modelState{
		network:   network,
		textInput: ti,
		messages:  messages,
	}
}

func (m modelState) Init() tea.Cmd {
	if m.network.Connected() {
		return tea.Batch(textinput.Blink, m.network.WaitForLine)
	}
	return textinput.Blink
}

func (m *modelState) appendLine(line string) {
	m.messages = append(m.messages, line)
	if m.ready {
		m.viewport.SetContent(strings.Join(m.messages, "\n"))
		m.viewport.GotoBottom()
	}
}

func (m modelState) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var (
		tiCmd tea.Cmd
		vpCmd tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.network.Disconnect()
			return m, tea.Quit
		case tea.KeyEnter:
			input := strings.TrimSpace(m.textInput.Value())
			if input == "" {
				break
			}
			m.textInput.SetValue("")
			return m.handleInput(input)
		}

	case connectedMsg:
		m.appendLine(statusStyle.Render("Connected."))
		return m, m.network.WaitForLine

	case serverLineMsg:
		m.appendLine(string(msg))
		return m, m.network.WaitForLine

	case errMsg:
		m.appendLine(errorStyle.Render(fmt.Sprintf("Connection error: %v", msg)))
		return m, nil

	case tea.WindowSizeMsg:
		footerHeight := 3
		if !m.ready {
			m.viewport = viewport.New(msg.Width, msg.Height-footerHeight)
			m.viewport.SetContent(strings.Join(m.messages, "\n"))
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = msg.Height - footerHeight
		}
		m.textInput.Width = msg.Width - 4
	}

	m.textInput, tiCmd = m.textInput.Update(msg)
	m.viewport, vpCmd = m.viewport.Update(msg)
	return m, tea.Batch(tiCmd, vpCmd)
}

// handleInput routes client-side slash commands and passes everything else
// to the server verbatim.
func (m modelState) handleInput(input string) (tea.Model, tea.Cmd) {
	switch {
	case strings.HasPrefix(input, "/connect"):
		fields := strings.Fields(input)
		if len(fields) != 2 {
			m.appendLine(localStyle.Render("Usage: /connect <host[:port]>"))
			return m, nil
		}
		host := fields[1]
		return m, func() tea.Msg {
			if err := m.network.Connect(host); err != nil {
				return errMsg(err)
			}
			return connectedMsg{}
		}

	case input == "/disconnect":
		m.network.Disconnect()
		m.appendLine(localStyle.Render("Disconnected."))
		return m, nil

	case input == "/quit":
		m.network.Disconnect()
		return m, tea.Quit

	default:
		if !m.network.Connected() {
			m.appendLine(localStyle.Render("Not connected. /connect <host> first."))
			return m, nil
		}
		m.appendLine(localStyle.Render("> " + input))
		return m, m.network.SendLine(input)
	}
}

func (m modelState) View() string {
	if !m.ready {
		return "Starting..."
	}
	return fmt.Sprintf("%s\n\n%s", m.viewport.View(), m.textInput.View())
}
