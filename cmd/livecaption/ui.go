package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/lumenvoice/lumen-core/core/events"
	"github.com/lumenvoice/lumen-core/core/transcripts"
	"github.com/muesli/reflow/wordwrap"
)

var (
	bannerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5")).
			Background(lipgloss.Color("#5A56E0")).
			Padding(0, 1)
	partialStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))
)

type sessionEnded struct{}

type model struct {
	viewport    viewport.Model
	accumulator *transcripts.Accumulator
	utterances  []string
	logEntries  []string
	ready       bool
	ended       bool
	showLog     bool
	events      chan events.Event
}

func initialModel(eventCh chan events.Event) model {
	return model{
		accumulator: &transcripts.Accumulator{},
		events:      eventCh,
	}
}

func (m model) Init() tea.Cmd {
	return waitForEvent(m.events)
}

func waitForEvent(eventCh chan events.Event) tea.Cmd {
	return func() tea.Msg {
		event, ok := <-eventCh
		if !ok {
			return sessionEnded{}
		}
		return event
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var (
		cmd  tea.Cmd
		cmds []tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			return m, tea.Quit
		case "tab":
			m.showLog = !m.showLog
			m.refreshContent()
		}

	case tea.WindowSizeMsg:
		headerHeight := lipgloss.Height(m.headerView())
		footerHeight := lipgloss.Height(m.footerView())
		verticalMarginHeight := headerHeight + footerHeight

		if !m.ready {
			m.viewport = viewport.New(msg.Width, msg.Height-verticalMarginHeight)
			m.viewport.YPosition = headerHeight
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = msg.Height - verticalMarginHeight
		}
		m.refreshContent()

	case events.Event:
		m.consume(msg)
		m.refreshContent()
		cmds = append(cmds, waitForEvent(m.events))

	case sessionEnded:
		m.ended = true
		m.refreshContent()
	}

	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

func (m *model) consume(event events.Event) {
	utterance, completed := m.accumulator.Observe(event)
	if completed {
		m.utterances = append(m.utterances, utterance)
	}

	switch typedEvent := event.(type) {
	case events.SpeechStarted:
		m.logEntries = append(m.logEntries, fmt.Sprintf("#%d speech started", event.Sequence()))
	case events.SpeechStopped:
		m.logEntries = append(m.logEntries, fmt.Sprintf("#%d speech stopped", event.Sequence()))
	case events.TranscriptPartial:
		m.logEntries = append(m.logEntries, fmt.Sprintf("#%d TMP %q", event.Sequence(), typedEvent.Text))
	case events.TranscriptFinal:
		m.logEntries = append(m.logEntries, fmt.Sprintf("#%d FIN %q", event.Sequence(), typedEvent.Text))
	case events.SessionError:
		m.logEntries = append(m.logEntries, fmt.Sprintf("#%d error %s: %s", event.Sequence(), typedEvent.Code, typedEvent.Message))
	case events.SessionClosed:
		m.logEntries = append(m.logEntries, fmt.Sprintf("#%d session closed (%s)", event.Sequence(), typedEvent.Reason))
	}
}

func (m *model) refreshContent() {
	if !m.ready {
		return
	}
	m.viewport.SetContent(m.contentView())
	m.viewport.GotoBottom()
}

func (m model) View() string {
	if !m.ready {
		return "\n  Initializing..."
	}
	return fmt.Sprintf(
		"%s\n%s\n%s",
		m.headerView(),
		m.viewport.View(),
		m.footerView(),
	)
}

func (m model) headerView() string {
	title := bannerStyle.Render("Live Captions")
	line := strings.Repeat("─", max(0, m.viewport.Width-lipgloss.Width(title)))
	return lipgloss.JoinHorizontal(lipgloss.Center, title, line)
}

func (m model) footerView() string {
	hint := "Press q to quit, Tab to switch views"
	if m.ended {
		hint = "Session ended. Press q to quit"
	}
	info := bannerStyle.Render(hint)
	line := strings.Repeat("─", max(0, m.viewport.Width-lipgloss.Width(info)))
	return lipgloss.JoinHorizontal(lipgloss.Center, line, info)
}

func (m model) contentView() string {
	if m.showLog {
		return m.logView()
	}
	return m.transcriptView()
}

func (m model) transcriptView() string {
	var content strings.Builder
	for _, utterance := range m.utterances {
		content.WriteString(utterance)
		content.WriteString("\n\n")
	}
	if current := m.accumulator.Current(); current != "" {
		content.WriteString(partialStyle.Render(current))
		content.WriteString("\n")
	}
	return wordwrap.String(content.String(), m.viewport.Width)
}

func (m model) logView() string {
	var content strings.Builder
	for _, entry := range m.logEntries {
		content.WriteString(entry)
		content.WriteString("\n")
	}
	return content.String()
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
