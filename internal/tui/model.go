// Package tui is a terminal view of a live loudness history: the current
// readings on top and a zoomable timeline of the momentary and short-term
// envelopes below.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"lufs-timeline/internal/history"
)

// frameInterval is the refresh period of the view.
const frameInterval = time.Second / 30

// zoomStep is the range factor of one zoom key press.
const zoomStep = 1.25

// panStep is the fraction of the range one pan key press moves.
const panStep = 0.25

// Readings is the live meter the header reads from.
type Readings interface {
	Momentary() float64
	ShortTerm() float64
}

// Key bindings
type keyMap struct {
	ZoomIn      key.Binding
	ZoomOut     key.Binding
	PanLeft     key.Binding
	PanRight    key.Binding
	LUFSZoomIn  key.Binding
	LUFSZoomOut key.Binding
	Follow      key.Binding
	Help        key.Binding
	Quit        key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.ZoomIn, k.ZoomOut, k.PanLeft, k.PanRight, k.Follow, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.ZoomIn, k.ZoomOut, k.LUFSZoomIn, k.LUFSZoomOut},
		{k.PanLeft, k.PanRight, k.Follow},
		{k.Help, k.Quit},
	}
}

var keys = keyMap{
	ZoomIn: key.NewBinding(
		key.WithKeys("+", "="),
		key.WithHelp("+", "zoom in"),
	),
	ZoomOut: key.NewBinding(
		key.WithKeys("-", "_"),
		key.WithHelp("-", "zoom out"),
	),
	PanLeft: key.NewBinding(
		key.WithKeys("left", "h"),
		key.WithHelp("←/h", "earlier"),
	),
	PanRight: key.NewBinding(
		key.WithKeys("right", "l"),
		key.WithHelp("→/l", "later"),
	),
	LUFSZoomIn: key.NewBinding(
		key.WithKeys("up", "k"),
		key.WithHelp("↑/k", "narrow LUFS range"),
	),
	LUFSZoomOut: key.NewBinding(
		key.WithKeys("down", "j"),
		key.WithHelp("↓/j", "widen LUFS range"),
	),
	Follow: key.NewBinding(
		key.WithKeys("f", "end"),
		key.WithHelp("f", "follow"),
	),
	Help: key.NewBinding(
		key.WithKeys("?"),
		key.WithHelp("?", "help"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c", "esc"),
		key.WithHelp("q", "quit"),
	),
}

// Messages
type frameMsg time.Time

// DoneMsg reports that the producer feeding the store has finished.
type DoneMsg struct {
	Err error
}

// Model is the live history view
type Model struct {
	title    string
	store    *history.Store
	readings Readings
	done     <-chan error

	viewport Viewport
	data     history.RenderData
	help     help.Model
	width    int
	height   int
	finished bool
	err      error
}

// NewModel creates a view of store. done, if not nil, delivers the
// producer's result once it stops.
func NewModel(title string, store *history.Store, readings Readings, done <-chan error) Model {
	return Model{
		title:    title,
		store:    store,
		readings: readings,
		done:     done,
		viewport: NewViewport(),
		help:     help.New(),
		width:    80,
		height:   24,
	}
}

// Viewport returns the current view window.
func (m Model) Viewport() Viewport {
	return m.viewport
}

// Init starts the frame timer
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{frame()}
	if m.done != nil {
		cmds = append(cmds, waitDone(m.done))
	}
	return tea.Batch(cmds...)
}

func frame() tea.Cmd {
	return tea.Tick(frameInterval, func(t time.Time) tea.Msg {
		return frameMsg(t)
	})
}

func waitDone(done <-chan error) tea.Cmd {
	return func() tea.Msg {
		return DoneMsg{Err: <-done}
	}
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.refresh()
		return m, nil

	case frameMsg:
		m.viewport.Advance(m.store.CurrentTime())
		m.refresh()
		return m, frame()

	case DoneMsg:
		m.finished = true
		m.err = msg.Err
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, keys.ZoomIn):
		m.viewport.ZoomTime(1/zoomStep, m.zoomAnchor())
	case key.Matches(msg, keys.ZoomOut):
		m.viewport.ZoomTime(zoomStep, m.zoomAnchor())
	case key.Matches(msg, keys.PanLeft):
		m.viewport.Pan(-panStep)
	case key.Matches(msg, keys.PanRight):
		m.viewport.Pan(panStep)
	case key.Matches(msg, keys.LUFSZoomIn):
		m.viewport.ZoomLUFS(1 / zoomStep)
	case key.Matches(msg, keys.LUFSZoomOut):
		m.viewport.ZoomLUFS(zoomStep)
	case key.Matches(msg, keys.Follow):
		m.viewport.ResumeFollow(m.store.CurrentTime())
	case key.Matches(msg, keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	default:
		return m, nil
	}

	m.refresh()
	return m, nil
}

// zoomAnchor keeps "now" fixed while following and the centre otherwise.
func (m Model) zoomAnchor() float64 {
	if m.viewport.Follow {
		return followRatio
	}
	return 0.5
}

func (m *Model) refresh() {
	m.data = m.store.Render(m.viewport.Query(m.plotWidth()))
	if m.data.UseMinMax {
		m.viewport.Level = m.data.Level
	}
}

func (m Model) plotWidth() int {
	return max(m.width-labelWidth, 1)
}

// chartHeight leaves room for the header, time axis and help.
func (m Model) chartHeight() int {
	reserved := 4
	if m.help.ShowAll {
		reserved += 3
	}
	return max(m.height-reserved, 3)
}

// View renders the model
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(m.header())
	b.WriteByte('\n')
	b.WriteString(renderChart(m.data, m.viewport, m.width, m.chartHeight()))
	b.WriteByte('\n')
	b.WriteString(timeAxis(m.viewport, m.width))
	b.WriteByte('\n')
	b.WriteString(m.help.View(keys))

	return b.String()
}

func (m Model) header() string {
	parts := []string{titleStyle.Render(m.title)}

	if m.readings != nil {
		parts = append(parts,
			momentaryStyle.Render(fmt.Sprintf("M %6.1f", m.readings.Momentary())),
			shortTermStyle.Render(fmt.Sprintf("S %6.1f LUFS", m.readings.ShortTerm())))
	}

	parts = append(parts, dimStyle.Render(m.resolution()))

	if m.viewport.Follow {
		parts = append(parts, followStyle.Render("● follow"))
	}

	switch {
	case m.err != nil:
		parts = append(parts, errorStyle.Render("✗ "+m.err.Error()))
	case m.finished:
		parts = append(parts, doneStyle.Render("✓ finished"))
	}

	return strings.Join(parts, "  ")
}

func (m Model) resolution() string {
	if !m.data.UseMinMax {
		return fmt.Sprintf("%s window, raw", formatTime(m.viewport.Range))
	}
	return fmt.Sprintf("%s window, level %d (%gs buckets)", formatTime(m.viewport.Range), m.data.Level, m.data.BucketDuration)
}

// Run shows m full screen until the user quits.
func Run(m Model) error {
	_, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}
