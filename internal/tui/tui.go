package tui

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/asynkron/whippatch/internal/report"
)

type decision int

const (
	undecided decision = iota
	accepted
	declined
)

type renderedMsg struct {
	content string
	err     error
}

type keyMap struct {
	Accept  key.Binding
	Decline key.Binding
	Up      key.Binding
	Down    key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Accept, k.Decline, k.Up, k.Down}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

func defaultKeys() keyMap {
	return keyMap{
		Accept:  key.NewBinding(key.WithKeys("y", "enter"), key.WithHelp("y/enter", "write file")),
		Decline: key.NewBinding(key.WithKeys("n", "q", "esc", "ctrl+c"), key.WithHelp("n/q", "abort")),
		Up:      key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "scroll up")),
		Down:    key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "scroll down")),
	}
}

type model struct {
	markdown string

	vp       viewport.Model
	spin     spinner.Model
	help     help.Model
	keys     keyMap
	width    int
	height   int
	ready    bool
	rendered bool

	title    lipgloss.Style
	border   lipgloss.Style
	warnLine lipgloss.Style

	decision  decision
	renderErr error
}

func newModel(markdown string) *model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("63"))
	return &model{
		markdown: markdown,
		spin:     sp,
		help:     help.New(),
		keys:     defaultKeys(),
		title:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63")),
		border:   lipgloss.NewStyle().Border(lipgloss.NormalBorder()).BorderForeground(lipgloss.Color("240")),
		warnLine: lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
	}
}

// renderCmd renders the markdown off the update loop.
func (m *model) renderCmd(width int) tea.Cmd {
	markdown := m.markdown
	return func() tea.Msg {
		out, err := report.RenderMarkdown(markdown, width, false)
		return renderedMsg{content: out, err: err}
	}
}

func (m *model) Init() tea.Cmd {
	return m.spin.Tick
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		// title + help lines, plus the viewport's own border
		vpH := m.height - 4
		if vpH < 3 {
			vpH = 3
		}
		vpW := m.width - 2
		if vpW < 1 {
			vpW = 1
		}
		if !m.ready {
			m.vp = viewport.New(vpW, vpH)
			m.ready = true
		} else {
			m.vp.Width = vpW
			m.vp.Height = vpH
		}
		return m, m.renderCmd(vpW - 2)

	case renderedMsg:
		content := msg.content
		if msg.err != nil {
			m.renderErr = msg.err
			content = m.markdown
		}
		m.vp.SetContent(content)
		m.rendered = true
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Accept):
			m.decision = accepted
			return m, tea.Quit
		case key.Matches(msg, m.keys.Decline):
			m.decision = declined
			return m, tea.Quit
		}
		var cmd tea.Cmd
		m.vp, cmd = m.vp.Update(msg)
		return m, cmd

	case spinner.TickMsg:
		if m.rendered {
			return m, nil
		}
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.vp, cmd = m.vp.Update(msg)
	return m, cmd
}

func (m *model) View() string {
	if !m.ready || !m.rendered {
		return fmt.Sprintf("%s Preparing review…", m.spin.View())
	}
	header := m.title.Render("Write these changes?")
	if m.renderErr != nil {
		header += " " + m.warnLine.Render("(markdown rendering failed, showing raw text)")
	}
	return header + "\n" + m.border.Render(m.vp.View()) + "\n" + m.help.View(m.keys)
}

// Review shows markdown in a scrollable full-screen view and asks the
// operator to accept or decline. It returns true only on explicit acceptance.
func Review(ctx context.Context, markdown string, opts ...tea.ProgramOption) (bool, error) {
	// Prevent OSC background color queries from contaminating stdin by
	// explicitly setting color profile and background for lipgloss/termenv.
	lipgloss.SetColorProfile(termenv.TrueColor)
	lipgloss.SetHasDarkBackground(true)

	options := append([]tea.ProgramOption{tea.WithAltScreen(), tea.WithContext(ctx)}, opts...)
	p := tea.NewProgram(newModel(markdown), options...)
	final, err := p.Run()
	if err != nil {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		return false, fmt.Errorf("tui error: %w", err)
	}
	m, ok := final.(*model)
	if !ok {
		return false, errors.New("tui: unexpected model type")
	}
	return m.decision == accepted, nil
}
