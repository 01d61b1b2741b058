// Package repl implements an interactive bubbletea consumer of
// internal/engine.SessionApi: a DSL prompt that runs learn/ask/prove/
// plan/solve/summarise/explain statements against one running session
// and renders the returned Result (spec.md §4.14).
package repl

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"spock/internal/engine"
	"spock/internal/logging"
)

// defaultMode is the SessionApi method a bare DSL line runs under when
// no ":mode" command has changed it.
const defaultMode = "ask"

var validModes = map[string]bool{
	"learn": true, "ask": true, "prove": true, "plan": true,
	"solve": true, "summarise": true, "explain": true,
}

type entry struct {
	mode   string
	input  string
	result engine.Result
	at     time.Time
}

// Model is the bubbletea model driving the REPL.
type Model struct {
	api *engine.SessionApi

	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model
	renderer *glamour.TermRenderer

	history []entry
	mode    string
	loading bool
	ready   bool
	width   int
	height  int

	styles styles
}

type styles struct {
	prompt   lipgloss.Style
	mode     lipgloss.Style
	success  lipgloss.Style
	failure  lipgloss.Style
	score    lipgloss.Style
	status   lipgloss.Style
	helpText lipgloss.Style
}

func newStyles() styles {
	return styles{
		prompt:   lipgloss.NewStyle().Foreground(lipgloss.Color("#8BC34A")).Bold(true),
		mode:     lipgloss.NewStyle().Foreground(lipgloss.Color("#2196F3")),
		success:  lipgloss.NewStyle().Foreground(lipgloss.Color("#8BC34A")),
		failure:  lipgloss.NewStyle().Foreground(lipgloss.Color("#e53935")),
		score:    lipgloss.NewStyle().Foreground(lipgloss.Color("#FFC107")),
		status:   lipgloss.NewStyle().Faint(true),
		helpText: lipgloss.NewStyle().Faint(true).Italic(true),
	}
}

// New builds a REPL model bound to a live SessionApi.
func New(api *engine.SessionApi) Model {
	ti := textinput.New()
	ti.Placeholder = "@result Truth Identity Truth"
	ti.Focus()
	ti.CharLimit = 2000
	ti.Width = 80

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	renderer, err := glamour.NewTermRenderer(glamour.WithAutoStyle())
	if err != nil {
		logging.Get(logging.CategoryRepl).Warn("glamour renderer init failed: %v", err)
	}

	return Model{
		api:      api,
		input:    ti,
		spinner:  sp,
		renderer: renderer,
		mode:     defaultMode,
		styles:   newStyles(),
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick)
}

type resultMsg struct {
	entry entry
}

func (m Model) runDSL(mode, dsl string) tea.Cmd {
	return func() tea.Msg {
		ctx := context.Background()
		var result engine.Result
		switch mode {
		case "learn":
			result = m.api.Learn(ctx, dsl)
		case "prove":
			result = m.api.Prove(ctx, dsl)
		case "plan":
			result = m.api.Plan(ctx, dsl)
		case "solve":
			result = m.api.Solve(ctx, dsl)
		case "summarise":
			result = m.api.Summarise(ctx, dsl)
		case "explain":
			result = m.api.Explain(ctx, dsl)
		default:
			result = m.api.Ask(ctx, dsl)
		}
		return resultMsg{entry{mode: mode, input: dsl, result: result, at: time.Now()}}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		headerHeight := 2
		footerHeight := 3
		vpHeight := msg.Height - headerHeight - footerHeight
		if vpHeight < 3 {
			vpHeight = 3
		}
		if !m.ready {
			m.viewport = viewport.New(msg.Width, vpHeight)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = vpHeight
		}
		m.input.Width = msg.Width - 4

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			if !m.loading {
				line := strings.TrimSpace(m.input.Value())
				m.input.Reset()
				if line == "" {
					return m, nil
				}
				if cmd, handled := m.handleLine(line); handled {
					return m, cmd
				}
			}
		}

	case resultMsg:
		m.loading = false
		m.history = append(m.history, msg.entry)
		m.viewport.SetContent(m.renderHistory())
		m.viewport.GotoBottom()
		return m, nil
	}

	var tiCmd, vpCmd, spCmd tea.Cmd
	m.input, tiCmd = m.input.Update(msg)
	m.viewport, vpCmd = m.viewport.Update(msg)
	if m.loading {
		m.spinner, spCmd = m.spinner.Update(msg)
	}
	cmds = append(cmds, tiCmd, vpCmd, spCmd)
	return m, tea.Batch(cmds...)
}

// handleLine interprets ":mode <name>" and ":quit" controls, otherwise
// dispatches line as a DSL statement under the current mode.
func (m *Model) handleLine(line string) (tea.Cmd, bool) {
	if strings.HasPrefix(line, ":") {
		fields := strings.Fields(line[1:])
		if len(fields) == 0 {
			return nil, true
		}
		switch fields[0] {
		case "quit", "exit":
			return tea.Quit, true
		case "mode":
			if len(fields) == 2 && validModes[fields[1]] {
				m.mode = fields[1]
			}
			m.viewport.SetContent(m.renderHistory())
			return nil, true
		}
		return nil, true
	}

	m.loading = true
	return m.runDSL(m.mode, line), true
}

func (m Model) renderHistory() string {
	var b strings.Builder
	for _, e := range m.history {
		fmt.Fprintf(&b, "%s %s\n", m.styles.mode.Render("["+e.mode+"]"), e.input)
		if e.result.Success {
			fmt.Fprintf(&b, "%s score=%s\n", m.styles.success.Render("ok"), m.styles.score.Render(fmt.Sprintf("%.4f", e.result.Score)))
		} else {
			fmt.Fprintf(&b, "%s\n", m.styles.failure.Render("failed"))
		}
		rendered := e.result.ResultTheory
		if m.renderer != nil {
			if out, err := m.renderer.Render("```\n" + rendered + "\n```"); err == nil {
				rendered = out
			}
		}
		b.WriteString(rendered)
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) View() string {
	if !m.ready {
		return "initializing...\n"
	}
	var status string
	if m.loading {
		status = m.spinner.View() + " running " + m.mode + "..."
	} else {
		status = m.styles.status.Render(fmt.Sprintf("mode=%s  :mode <name>  :quit", m.mode))
	}
	return fmt.Sprintf(
		"%s\n%s\n%s\n%s\n",
		m.styles.prompt.Render("spock"),
		m.viewport.View(),
		m.input.View(),
		status,
	)
}

// Run starts the REPL's bubbletea program and blocks until the user quits.
func Run(api *engine.SessionApi) error {
	p := tea.NewProgram(New(api), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
