// internal/ui/tui.go
package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/jdharms/termynal/internal/display"
	"github.com/jdharms/termynal/internal/engine"
	"github.com/jdharms/termynal/internal/player"
	"github.com/sirupsen/logrus"
)

// Rows taken by the frame borders, the title bar, the controls bar and help
const chromeHeight = 5

type changedMsg struct{}

type mountErrMsg struct{ err error }

// Notifier coalesces change notifications from the display and the panel
// into single redraws
type Notifier struct {
	ch chan struct{}
}

// NewNotifier creates a notifier with room for one pending redraw
func NewNotifier() *Notifier {
	return &Notifier{ch: make(chan struct{}, 1)}
}

// Notify requests a redraw; it never blocks
func (n *Notifier) Notify() {
	select {
	case n.ch <- struct{}{}:
	default:
	}
}

func (n *Notifier) wait() tea.Cmd {
	return func() tea.Msg {
		<-n.ch
		return changedMsg{}
	}
}

// TerminalEngineConfig returns engine settings that highlight with the
// terminal palette instead of HTML markup
func TerminalEngineConfig() *engine.EngineConfig {
	ec := engine.DefaultEngineConfig()
	ec.Highlighter = highlightToken
	ec.Escaper = func(s string) string { return s }
	return ec
}

// Model is the bubbletea terminal host for one player
type Model struct {
	logger   *logrus.Logger
	player   *player.Player
	notifier *Notifier
	keys     KeyMap
	help     help.Model
	viewport viewport.Model

	width   int
	height  int
	ready   bool
	mounted bool
	err     error
}

// NewModel creates a terminal host. The player's container observer and
// panel OnChange must call notifier.Notify.
func NewModel(logger *logrus.Logger, p *player.Player, notifier *Notifier) Model {
	return Model{
		logger:   logger,
		player:   p,
		notifier: notifier,
		keys:     DefaultKeyMap(),
		help:     help.New(),
	}
}

// Init implements tea.Model
func (m Model) Init() tea.Cmd {
	return m.notifier.wait()
}

// Update implements tea.Model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width

		bodyWidth := max(msg.Width-4, 1)
		bodyHeight := max(msg.Height-chromeHeight, 1)
		if !m.ready {
			m.viewport = viewport.New(bodyWidth, bodyHeight)
			m.ready = true
		} else {
			m.viewport.Width = bodyWidth
			m.viewport.Height = bodyHeight
		}

		// The container becomes visible once the terminal has a size
		if !m.mounted {
			m.mounted = true
			if err := m.player.Mount(); err != nil {
				return m, func() tea.Msg { return mountErrMsg{err} }
			}
		}
		m.player.ReportVisibility(1)
		m.refresh()

	case changedMsg:
		m.refresh()
		cmds = append(cmds, m.notifier.wait())

	case mountErrMsg:
		m.err = msg.err
		m.logger.WithError(msg.err).Error("Failed to mount player")
		return m, tea.Quit

	case tea.MouseMsg:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		cmds = append(cmds, cmd)

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, tea.Batch(cmds...)
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	panel := m.player.Panel()

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	case key.Matches(msg, m.keys.Start):
		if panel.State().StartPrompt {
			m.player.Start()
		}
	case key.Matches(msg, m.keys.Pause):
		m.control(player.ButtonPause)
	case key.Matches(msg, m.keys.Speed):
		m.control(player.ButtonSpeed)
	case key.Matches(msg, m.keys.Restart):
		m.control(player.ButtonRestart)
	case key.Matches(msg, m.keys.Copy):
		if panel.HasButton(player.ButtonCopy) {
			m.control(player.ButtonCopy)
		}
	case key.Matches(msg, m.keys.Fullscreen):
		if !panel.HasButton(player.ButtonFullscreen) {
			return m, nil
		}
		m.control(player.ButtonFullscreen)
		if m.player.IsFullscreen() {
			return m, tea.EnterAltScreen
		}
		return m, tea.ExitAltScreen
	case key.Matches(msg, m.keys.Up), key.Matches(msg, m.keys.Down):
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m Model) control(b player.Button) {
	if err := m.player.HandleControl(b); err != nil {
		m.logger.WithError(err).WithField("button", string(b)).Warn("Control failed")
	}
}

// Err returns the error that ended the program, if any
func (m Model) Err() error {
	return m.err
}

// refresh re-renders the body, following the output when already at the
// bottom
func (m *Model) refresh() {
	if !m.ready {
		return
	}
	follow := m.viewport.AtBottom()
	m.viewport.SetContent(m.renderBody())
	if follow {
		m.viewport.GotoBottom()
	}
}

// View implements tea.Model
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	cfg := m.player.Config()
	theme := ThemeFor(cfg.Theme)
	innerWidth := max(m.width-2, 1)

	inner := lipgloss.JoinVertical(lipgloss.Left,
		renderTitleBar(theme, cfg.Title, innerWidth),
		theme.Body.Render(m.viewport.View()),
		m.renderControls(theme, innerWidth),
	)

	return lipgloss.JoinVertical(lipgloss.Left,
		theme.Frame.Width(innerWidth).Render(inner),
		HelpStyle.Render(m.help.View(m.keys)),
	)
}

func (m Model) renderBody() string {
	cursor := m.player.Config().Cursor

	lines := m.player.Container().Lines()
	rendered := make([]string, 0, len(lines)+1)
	for _, l := range lines {
		rendered = append(rendered, RenderLine(l, cursor))
	}

	if m.player.Panel().State().StartPrompt {
		rendered = append(rendered, StartPromptStyle.Render(player.StartPromptText))
	}

	return strings.Join(rendered, "\n")
}

func (m Model) renderControls(theme Theme, width int) string {
	state := m.player.Panel().State()

	buttons := make([]string, 0, len(state.Buttons))
	for _, b := range state.Buttons {
		buttons = append(buttons, theme.Button.Render(b.Label))
	}
	left := strings.Join(buttons, "")

	right := theme.Info.Render(state.LineInfo + "  " + state.TimeInfo)
	if len(state.Notifications) > 0 {
		right = NotificationStyle.Render(state.Notifications[len(state.Notifications)-1]) + " " + right
	}

	gap := max(width-lipgloss.Width(left)-lipgloss.Width(right), 1)
	return left + strings.Repeat(" ", gap) + right
}

// renderTitleBar draws the window buttons and the title for a theme
func renderTitleBar(theme Theme, title string, width int) string {
	var dots []string
	for _, c := range theme.Dots {
		dots = append(dots, lipgloss.NewStyle().Foreground(c).Render("●"))
	}

	left := strings.Join(dots, " ")
	if left != "" {
		left += "  "
	}
	left += theme.Title.Render(title)

	if len(theme.DotsRight) == 0 {
		return " " + left
	}

	right := theme.Title.Render(strings.Join(theme.DotsRight, "  "))
	gap := max(width-lipgloss.Width(left)-lipgloss.Width(right)-2, 1)
	return " " + left + strings.Repeat(" ", gap) + right + " "
}

// RenderLine renders a display line with its prompt, cursor and fade state
func RenderLine(l *display.Line, cursor string) string {
	spec := l.Spec()

	text := l.Text()
	if !l.IsMarkup() && text != "" {
		text = LineStyle(spec.Type).Render(text)
	}

	if spec.Prompt != "" {
		prompt := lipgloss.NewStyle().Foreground(lipgloss.Color(spec.PromptColor)).Render(spec.Prompt)
		text = prompt + " " + text
	}

	if l.HasState(display.StateCursor) {
		text += CursorStyle.Render(cursor)
	}

	if l.HasState(display.StateFadeIn) && !l.HasState(display.StateFadeInComplete) {
		text = FadingStyle.Render(text)
	}

	return text
}
