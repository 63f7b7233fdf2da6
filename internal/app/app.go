// Package app is the Bubble Tea model behind the `watch` dashboard. The
// monitor loop runs outside the program and feeds it RecordMsg values.
package app

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"ble-autolock.klederson.com/internal/config"
	"ble-autolock.klederson.com/internal/monitor"
	"ble-autolock.klederson.com/internal/proximity"
	"ble-autolock.klederson.com/internal/samplelog"
	"ble-autolock.klederson.com/internal/ui"
)

// shared holds state shared between the Bubble Tea model copies. Because
// Bubble Tea uses value receivers, pointer fields ensure all copies see the
// same underlying data.
type shared struct {
	history *ReadingRing
	recent  []string
}

// Model is the root Bubble Tea model for the dashboard.
type Model struct {
	width  int
	height int

	cfg      config.Config
	required int
	source   string
	started  time.Time
	now      func() time.Time
	stop     func()

	running bool
	paused  bool
	err     error

	last        monitor.Record
	haveSample  bool
	triggers    int
	lastTrigger time.Time

	shared *shared
}

// New creates a dashboard for cfg. stop is called when the user quits and
// should cancel the monitor.
func New(cfg config.Config, source string, stop func()) Model {
	return Model{
		cfg:      cfg,
		required: proximity.RequiredSamples(cfg.LockDelay(), cfg.ScanInterval()),
		source:   source,
		started:  time.Now(),
		now:      time.Now,
		stop:     stop,
		running:  true,
		shared: &shared{
			history: NewReadingRing(config.HistoryRings),
		},
	}
}

// Err returns the error the monitor loop ended with, if any.
func (m Model) Err() error {
	return m.err
}

func (m Model) Init() tea.Cmd {
	return tickCmd()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case TickMsg:
		return m, tickCmd()

	case RecordMsg:
		m.apply(msg.Record)
		return m, nil

	case MonitorDoneMsg:
		m.running = false
		m.err = msg.Err
		return m, nil
	}
	return m, nil
}

// apply folds a sample into the view state. Counters keep moving while the
// view is paused; only the log panel freezes.
func (m *Model) apply(r monitor.Record) {
	m.last = r
	m.haveSample = true
	if r.Decision.Triggered {
		m.triggers++
		m.lastTrigger = r.At
	}
	m.shared.history.Push(r.Classification.Reading)
	if m.paused {
		return
	}
	m.shared.recent = append(m.shared.recent, samplelog.FormatRecord(r))
	if n := len(m.shared.recent); n > config.RecentLines*4 {
		m.shared.recent = m.shared.recent[n-config.RecentLines*4:]
	}
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "Q", "ctrl+c", "esc":
		if m.stop != nil {
			m.stop()
		}
		return m, tea.Quit

	case "p", "P", " ":
		m.paused = !m.paused

	case "c", "C":
		m.shared.recent = nil
	}
	return m, nil
}

func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Initializing " + config.AppName + "..."
	}

	bodyH := max(8, m.height-2)
	signalW := max(40, m.width*2/5)
	logW := max(20, m.width-signalW)

	view := ui.SignalView{
		Name:         m.cfg.DeviceName,
		DeviceID:     m.cfg.DeviceID,
		ThresholdDBm: m.cfg.ThresholdDBm,
		Last:         m.last.Classification,
		HaveSample:   m.haveSample,
		Streak:       m.last.Decision.Streak,
		Required:     m.required,
		Remaining:    m.last.Decision.Remaining,
		Triggered:    m.last.Decision.Triggered,
		LastTrigger:  m.lastTrigger,
		AutoLock:     m.cfg.AutoLockEnabled,
		History:      m.shared.history.Values(),
	}

	menuBar := ui.RenderMenuBar(m.width, m.source, m.running, m.paused)
	signalPanel := ui.RenderSignalPanel(view, signalW, bodyH)
	logPanel := ui.RenderLogPanel(m.shared.recent, logW, bodyH)
	statusBar := ui.RenderStatusBar(m.width, m.cfg.AutoLockEnabled, m.last.Seq, m.triggers,
		samplelog.FormatUptime(m.now().Sub(m.started)))

	return ui.ComposeLayout(menuBar, signalPanel, logPanel, statusBar)
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second/time.Duration(config.TargetFPS), func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}
