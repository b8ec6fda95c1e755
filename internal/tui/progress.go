package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Sothcheat/provision/internal/domain/engine"
	"github.com/Sothcheat/provision/internal/domain/journal"
)

// EventMsg wraps one engine event for the Bubble Tea runtime. The run
// goroutine forwards engine events into the program with Program.Send.
type EventMsg struct {
	Event engine.Event
}

// doneStep is one finished step rendered in the scrollback.
type doneStep struct {
	stepID   string
	title    string
	outcome  journal.Outcome
	duration time.Duration
}

// ProgressModel is the Bubble Tea model for an interactive run: a
// spinner on the current step, a bar, and per-step outcome glyphs.
type ProgressModel struct {
	styles  Styles
	spinner spinner.Model
	width   int

	total        int
	current      string
	currentIndex int
	done         []doneStep
	finished     bool
	status       journal.Status
	interrupted  bool

	// cancel stops the engine; cancellation is honored at the next
	// step boundary, so the view keeps running until the run finalizes.
	cancel func()
}

// NewProgressModel creates a progress model.
func NewProgressModel() ProgressModel {
	styles := DefaultStyles()
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styles.Progress

	return ProgressModel{
		styles:  styles,
		spinner: sp,
		width:   80,
	}
}

// WithCancel attaches the run's cancel function, invoked on ctrl+c.
func (m ProgressModel) WithCancel(cancel func()) ProgressModel {
	m.cancel = cancel
	return m
}

// Interrupted reports whether the operator pressed ctrl+c. The engine
// honors cancellation at step boundaries.
func (m ProgressModel) Interrupted() bool {
	return m.interrupted
}

// Init starts the spinner.
func (m ProgressModel) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update handles messages.
func (m ProgressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			m.interrupted = true
			if m.cancel != nil {
				m.cancel()
			}
			return m, nil
		}

	case EventMsg:
		return m.applyEvent(msg.Event)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m ProgressModel) applyEvent(event engine.Event) (tea.Model, tea.Cmd) {
	switch event.Kind {
	case engine.EventRunStarted:
		m.total = event.Total

	case engine.EventStepStarted:
		m.current = event.Title
		m.currentIndex = event.Index

	case engine.EventStepFinished:
		m.current = ""
		m.done = append(m.done, doneStep{
			stepID:   event.StepID,
			title:    event.Title,
			outcome:  event.Outcome,
			duration: event.Duration,
		})

	case engine.EventRunFinished:
		m.finished = true
		m.status = event.Status
		return m, tea.Quit
	}

	return m, nil
}

// View renders the model.
func (m ProgressModel) View() string {
	var b strings.Builder

	b.WriteString(m.styles.Title.Render("Provisioning"))
	b.WriteString("\n\n")

	for _, step := range m.done {
		b.WriteString("  ")
		b.WriteString(m.glyph(step.outcome))
		b.WriteString(" ")
		b.WriteString(m.styles.Text.Render(step.title))
		if step.outcome.Kind == journal.OutcomeSkipped && step.outcome.Detail != "" {
			b.WriteString(m.styles.Muted.Render(" (" + step.outcome.Detail + ")"))
		}
		if step.outcome.Kind.Failure() {
			b.WriteString(m.styles.Error.Render(": " + step.outcome.Detail))
		}
		b.WriteString("\n")
	}

	if m.current != "" {
		fmt.Fprintf(&b, "  %s %s %s\n",
			m.spinner.View(),
			m.styles.Text.Render(m.current),
			m.styles.Muted.Render(fmt.Sprintf("[%d/%d]", m.currentIndex, m.total)),
		)
	}

	if m.total > 0 {
		b.WriteString("\n")
		b.WriteString(m.renderBar())
		b.WriteString("\n")
	}

	if m.finished {
		b.WriteString("\n")
		if m.status == journal.StatusCompleted {
			b.WriteString(m.styles.Success.Render("Run completed."))
		} else {
			b.WriteString(m.styles.Error.Render("Run aborted."))
		}
		b.WriteString("\n")
	}

	return b.String()
}

func (m ProgressModel) glyph(outcome journal.Outcome) string {
	switch outcome.Kind {
	case journal.OutcomeSucceeded:
		return m.styles.Success.Render(GlyphSucceeded)
	case journal.OutcomeSkipped:
		return m.styles.Muted.Render(GlyphSkipped)
	case journal.OutcomeFailedRecoverable:
		return m.styles.Warning.Render(GlyphFailed)
	default:
		return m.styles.Error.Render(GlyphFailed)
	}
}

func (m ProgressModel) renderBar() string {
	barWidth := 40
	if m.width < 50 {
		barWidth = m.width - 10
	}
	if barWidth < 10 {
		barWidth = 10
	}

	completed := len(m.done)
	filled := 0
	if m.total > 0 {
		filled = completed * barWidth / m.total
	}

	bar := strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled)
	return fmt.Sprintf("  %s %d/%d", m.styles.Progress.Render(bar), completed, m.total)
}
