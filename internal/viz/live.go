package viz

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/san-kum/equilib/internal/automation"
	"github.com/san-kum/equilib/internal/config"
	"github.com/san-kum/equilib/internal/loadstep"
	"github.com/san-kum/equilib/internal/problems"
)

// StepMsg carries a converged load step into the live view.
type StepMsg loadstep.Step

// DoneMsg ends a run. Outcome is nil when the run could not start.
type DoneMsg struct {
	Outcome *automation.Outcome
	Err     error
}

// Model follows one load path as its steps arrive.
type Model struct {
	title   string
	total   int
	steps   []loadstep.Step
	events  <-chan tea.Msg
	cancel  context.CancelFunc
	done    bool
	outcome *automation.Outcome
	err     error
	width   int
}

// NewModel follows events until a DoneMsg arrives; cancel stops the run
// when the user quits early and is released once the run is done.
func NewModel(title string, total int, events <-chan tea.Msg, cancel context.CancelFunc) Model {
	return Model{
		title:  title,
		total:  total,
		steps:  make([]loadstep.Step, 0, total),
		events: events,
		cancel: cancel,
		width:  60,
	}
}

// Watch starts cfg in the background and returns a model following it.
func Watch(ctx context.Context, cfg *config.Config, reg *problems.Registry) (Model, error) {
	lc, err := cfg.LoadConfig()
	if err != nil {
		return Model{}, err
	}

	ctx, cancel := context.WithCancel(ctx)
	events := make(chan tea.Msg, 16)
	forward := func(msg tea.Msg) {
		select {
		case events <- msg:
		case <-ctx.Done():
		}
	}

	go func() {
		defer cancel()
		defer close(events)
		out, err := automation.Execute(ctx, cfg, reg, loadstep.ObserverFunc(func(s loadstep.Step) {
			forward(StepMsg(s))
		}))
		if err == nil {
			err = out.Err
		}
		forward(DoneMsg{Outcome: out, Err: err})
	}()

	return NewModel(cfg.Problem, len(lc.Loads()), events, cancel), nil
}

func (m Model) Init() tea.Cmd { return m.next() }

func (m Model) next() tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-m.events
		if !ok {
			return DoneMsg{Err: context.Canceled}
		}
		return msg
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			if m.cancel != nil {
				m.cancel()
			}
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.width = max(20, msg.Width-20)
	case StepMsg:
		m.steps = append(m.steps, loadstep.Step(msg))
		return m, m.next()
	case DoneMsg:
		if !m.done {
			m.done, m.outcome, m.err = true, msg.Outcome, msg.Err
			if m.cancel != nil {
				m.cancel()
			}
		}
	}
	return m, nil
}

// Steps returns the steps received so far.
func (m Model) Steps() []loadstep.Step { return m.steps }

// Done reports whether the run has finished and how.
func (m Model) Done() (bool, error) { return m.done, m.err }

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(Title.Render(m.title) + "\n\n")

	fraction := 0.0
	if m.total > 0 {
		fraction = float64(len(m.steps)) / float64(m.total)
	}
	b.WriteString(ProgressBar(fraction, 30) + fmt.Sprintf(" %d/%d\n\n", len(m.steps), m.total))

	if len(m.steps) >= 2 {
		h := &loadstep.History{Steps: m.steps}
		b.WriteString(Series(h.Reactions(), "reaction per step", m.width, 8) + "\n\n")
	}

	if n := len(m.steps); n > 0 {
		last := m.steps[n-1]
		iters := make([]float64, n)
		for i, s := range m.steps {
			iters[i] = float64(s.Iterations)
		}
		b.WriteString(MetricLabel.Render("load") + MetricValue.Render(fmt.Sprintf("%.6g", last.Load)) + "\n")
		b.WriteString(MetricLabel.Render("displacement") + MetricValue.Render(fmt.Sprintf("%.6g", last.Displacement)) + "\n")
		b.WriteString(MetricLabel.Render("reaction") + MetricValue.Render(fmt.Sprintf("%.6g", last.Reaction)) + "\n")
		b.WriteString(MetricLabel.Render("gradient norm") + MetricValue.Render(fmt.Sprintf("%.3g", last.GradNorm)) + "\n")
		b.WriteString(MetricLabel.Render("iterations") + Sparkline(iters, 30) + "\n")
	}

	b.WriteString("\n")
	switch {
	case !m.done:
		b.WriteString(StatusRunning.Render("running") + "\n")
	case m.err != nil:
		b.WriteString(Status(false, "failed: "+m.err.Error()) + "\n")
	default:
		b.WriteString(Status(true, "done") + "\n")
		if m.outcome != nil {
			b.WriteString("\n" + MetricTable(m.outcome.Metrics))
		}
	}
	b.WriteString("\n" + KeyHint.Render("q quit") + "\n")

	return Panel.Render(b.String())
}
