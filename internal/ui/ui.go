// Package ui is the terminal front end of the dashboard. Each tab opens its
// page when shown and closes it when the user moves to another tab, so only
// the visible page polls or fetches.
package ui

import (
	"context"
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/agriinsight/harvest"
	"github.com/agriinsight/harvest/pages"
)

// Tabs in display order.
const (
	TabMarket = iota
	TabPrediction
	TabWeather
	TabSoil
)

var tabTitles = []string{"Market Prices", "Price Prediction", "Weather", "Soil Moisture"}

// screen is one tab's interaction layer over a page.
type screen interface {
	// typing reports whether keystrokes belong to a text input.
	typing() bool
	key(msg tea.KeyMsg) (tea.Cmd, error)
	view(f frame) string
	help() string
	close()
}

// frame is what screens render with.
type frame struct {
	st    Styles
	spin  string
	width int
	md    func(string) string
}

type changedMsg struct{}

// Option configures a Model.
type Option func(*Model)

// WithStyles replaces the default styles.
func WithStyles(st Styles) Option {
	return func(m *Model) { m.styles = st }
}

// WithMarkdownStyle selects the glamour style advice is rendered with, e.g.
// "dark", "light" or "notty". Default: "dark".
func WithMarkdownStyle(style string) Option {
	return func(m *Model) { m.mdStyle = style }
}

// WithTab selects the tab shown first.
func WithTab(tab int) Option {
	return func(m *Model) {
		if tab >= 0 && tab < len(tabTitles) {
			m.active = tab
		}
	}
}

// Model is the bubbletea model of the dashboard.
type Model struct {
	ctx      context.Context
	deps     pages.Deps
	settings pages.Settings

	styles  Styles
	mdStyle string
	md      *glamour.TermRenderer
	spinner spinner.Model
	changes chan struct{}

	active int
	screen screen
	status string
	width  int
}

// New creates a dashboard model. Pages live no longer than ctx.
func New(ctx context.Context, deps pages.Deps, s pages.Settings, opts ...Option) *Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot

	m := &Model{
		ctx:      ctx,
		deps:     deps,
		settings: s,
		styles:   DefaultStyles(),
		mdStyle:  "dark",
		spinner:  sp,
		changes:  make(chan struct{}, 1),
		width:    100,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.spinner.Style = m.styles.Cursor
	m.resizeMarkdown()
	m.show(m.active)
	return m
}

// Active returns the shown tab.
func (m *Model) Active() int { return m.active }

// Init starts listening for page changes.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.listen(), m.spinner.Tick)
}

// Update handles a message.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.resizeMarkdown()
		return m, nil

	case changedMsg:
		return m, m.listen()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if !m.screen.typing() {
			switch {
			case key.Matches(msg, keys.Quit):
				m.Close()
				return m, tea.Quit
			case key.Matches(msg, keys.Page):
				m.show(int(msg.String()[0] - '1'))
				return m, nil
			case key.Matches(msg, keys.NextTab):
				m.show((m.active + 1) % len(tabTitles))
				return m, nil
			}
		} else if msg.Type == tea.KeyCtrlC {
			m.Close()
			return m, tea.Quit
		}

		cmd, err := m.screen.key(msg)
		m.status = describe(err)
		return m, cmd
	}
	return m, nil
}

// View renders the dashboard.
func (m *Model) View() string {
	tabs := make([]string, len(tabTitles))
	for i, t := range tabTitles {
		label := string(rune('1'+i)) + " " + t
		if i == m.active {
			tabs[i] = m.styles.ActiveTab.Render(label)
		} else {
			tabs[i] = m.styles.Tab.Render(label)
		}
	}

	var b strings.Builder
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, tabs...))
	b.WriteString("\n\n")
	b.WriteString(m.screen.view(frame{
		st:    m.styles,
		spin:  m.spinner.View(),
		width: m.width,
		md:    m.render,
	}))
	if m.status != "" {
		b.WriteString("\n\n")
		b.WriteString(m.styles.Warning.Render(m.status))
	}
	b.WriteString("\n")
	b.WriteString(m.styles.Footer.Render(m.screen.help() + " • tab/1-4 page • q quit"))
	return b.String()
}

// Close tears down the shown page.
func (m *Model) Close() {
	if m.screen != nil {
		m.screen.close()
	}
}

// show closes the current page and opens tab.
func (m *Model) show(tab int) {
	if tab < 0 || tab >= len(tabTitles) {
		return
	}
	m.Close()
	m.active = tab
	m.status = ""

	switch tab {
	case TabMarket:
		m.screen = newMarketScreen(m.ctx, m.deps, m.settings, m.notify)
	case TabPrediction:
		m.screen = newPredictionScreen(m.ctx, m.deps, m.settings, m.notify)
	case TabWeather:
		m.screen = newWeatherScreen(m.ctx, m.deps, m.settings, m.notify)
	case TabSoil:
		m.screen = newSoilScreen(m.ctx, m.deps, m.settings, m.notify)
	}
}

// notify wakes the program after a page changed. Called from page goroutines.
func (m *Model) notify() {
	select {
	case m.changes <- struct{}{}:
	default:
	}
}

func (m *Model) listen() tea.Cmd {
	return func() tea.Msg {
		select {
		case <-m.changes:
			return changedMsg{}
		case <-m.ctx.Done():
			return nil
		}
	}
}

func (m *Model) resizeMarkdown() {
	wrap := m.width - 4
	if wrap < 20 {
		wrap = 20
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStylePath(m.mdStyle),
		glamour.WithWordWrap(wrap),
	)
	if err == nil {
		m.md = r
	}
}

// render formats narrative text as markdown, falling back to the raw text.
func (m *Model) render(text string) string {
	if m.md == nil {
		return text
	}
	out, err := m.md.Render(text)
	if err != nil {
		return text
	}
	return strings.TrimRight(out, "\n")
}

// describe turns an action error into a hint for the footer.
func describe(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, harvest.ErrNotReady):
		return "Complete the selection first."
	case errors.Is(err, harvest.ErrBusy):
		return "Still working on the last request."
	case errors.Is(err, harvest.ErrClosed):
		return "This page is closed."
	default:
		return err.Error()
	}
}
