package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/jamx/internal/tasks"
)

// recentLines is how many progress messages stay on screen.
const recentLines = 6

// ViewState represents the current view in the TUI.
type ViewState int

const (
	RunningView ViewState = iota
	ResultView
)

// RunFunc starts a backfill and reports progress on the channel.
//
// [tasks.Backfill.Run] bound to a channel ID satisfies it.
type RunFunc func(ctx context.Context, progress chan<- tasks.ProgressUpdate) (*tasks.BackfillResult, error)

// Model represents the TUI application state.
type Model struct {
	ctx          context.Context
	cancel       context.CancelFunc
	run          RunFunc
	dryRun       bool
	view         ViewState
	spinner      spinner.Model
	progressChan chan tasks.ProgressUpdate
	done         chan backfillOutcome
	progress     tasks.ProgressUpdate
	recent       []string
	result       *tasks.BackfillResult
	err          error
	help         help.Model
	keys         keyMap
}

// NewModel creates a backfill model that calls run once started.
func NewModel(ctx context.Context, run RunFunc, dryRun bool) *Model {
	ctx, cancel := context.WithCancel(ctx)
	return &Model{
		ctx:     ctx,
		cancel:  cancel,
		run:     run,
		dryRun:  dryRun,
		view:    RunningView,
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(styles.ok)),
		help:    help.New(),
		keys:    newKeyMap(),
	}
}

// Init starts the spinner and the backfill.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.startBackfill())
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if key.Matches(msg, m.keys.quit) {
			m.cancel()
			return m, tea.Quit
		}
		return m, nil

	case spinner.TickMsg:
		if m.view != RunningView {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case Msg:
		switch msg.kind {
		case MsgProgressUpdate:
			update := msg.data.(tasks.ProgressUpdate)
			m.progress = update
			m.pushRecent(update.Message)
			return m, m.waitForProgress()

		case MsgBackfillComplete:
			outcome := msg.data.(backfillOutcome)
			m.result = outcome.result
			m.err = outcome.err
			m.view = ResultView
			m.progressChan = nil
			return m, nil
		}
	}

	return m, nil
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	switch m.view {
	case RunningView:
		return m.renderRunning()
	case ResultView:
		return m.renderResult()
	default:
		return ""
	}
}

// Result returns the finished run's summary and error.
func (m *Model) Result() (*tasks.BackfillResult, error) {
	return m.result, m.err
}

func (m *Model) pushRecent(line string) {
	if line == "" {
		return
	}
	m.recent = append(m.recent, line)
	if len(m.recent) > recentLines {
		m.recent = m.recent[len(m.recent)-recentLines:]
	}
}

func (m *Model) startBackfill() tea.Cmd {
	m.progressChan = make(chan tasks.ProgressUpdate, 50)
	m.done = make(chan backfillOutcome, 1)

	progress, done := m.progressChan, m.done
	go func() {
		result, err := m.run(m.ctx, progress)
		done <- backfillOutcome{result: result, err: err}
		close(progress)
	}()

	return m.waitForProgress()
}

// waitForProgress blocks for the next update and delivers the outcome once the channel closes.
func (m *Model) waitForProgress() tea.Cmd {
	progress, done := m.progressChan, m.done
	return func() tea.Msg {
		if progress == nil {
			return backfillCompleteMsg(backfillOutcome{err: context.Canceled})
		}

		update, ok := <-progress
		if !ok {
			return backfillCompleteMsg(<-done)
		}
		return progressUpdateMsg(update)
	}
}

func (m *Model) renderRunning() string {
	heading := "Backfilling playlist"
	if m.dryRun {
		heading += " (dry run)"
	}
	title := Title(heading)

	var phase string
	switch m.progress.Phase {
	case tasks.FetchHistory:
		phase = "Reading channel history..."
	case tasks.FetchPlaylist:
		phase = "Reading playlist..."
	case tasks.ResolveLinks, tasks.AddTracks:
		phase = fmt.Sprintf("Processing links (%d/%d)", m.progress.Step, m.progress.Total)
	default:
		phase = "Starting..."
	}

	var b strings.Builder
	for _, line := range m.recent {
		b.WriteString("\n  " + Muted(line))
	}

	return fmt.Sprintf("%s\n%s %s\n%s\n\n%s", title, m.spinner.View(), phase, b.String(), m.help.View(m.keys))
}

func (m *Model) renderResult() string {
	if m.err != nil {
		return Error(fmt.Sprintf("Backfill failed: %v", m.err)) + "\n\n" + m.help.View(m.keys)
	}

	if m.result == nil {
		return Error("No result available") + "\n\n" + m.help.View(m.keys)
	}

	title := OK("✓ Backfill complete")
	info := fmt.Sprintf(
		"\nMessages scanned: %d\nLinks found:      %d\nResolved:         %d\nAdded:            %d\nSkipped:          %d",
		m.result.Messages,
		m.result.URLs,
		m.result.Resolved,
		m.result.Added,
		m.result.Skipped,
	)

	var failed string
	if m.result.Failed > 0 {
		failed = "\n" + Warn(fmt.Sprintf("Failed:           %d", m.result.Failed))
	}

	return fmt.Sprintf("%s\n%s%s\n\n%s", title, info, failed, m.help.View(m.keys))
}
