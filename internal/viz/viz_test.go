package viz

import (
	"context"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/san-kum/equilib/internal/config"
	"github.com/san-kum/equilib/internal/loadstep"
	"github.com/san-kum/equilib/internal/problems"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanvasDrawLine(t *testing.T) {
	c := NewCanvas(2, 1)
	c.DrawLine(0, 0, 3, 0)
	// top dot row of both cells
	assert.Equal(t, "⠉⠉", c.Rows()[0])

	c = NewCanvas(1, 1)
	c.Set(5, 5)
	c.Set(-1, 0)
	assert.Equal(t, string(rune(blank)), c.Rows()[0], "out of range dots are ignored")
}

func TestXYPlot(t *testing.T) {
	out := XYPlot([]float64{0, 1, 2}, []float64{0, 2, 1}, "u", "f", 20, 5)
	lines := strings.Split(strings.TrimSuffix(out, "\n"), "\n")
	require.Len(t, lines, 5+3)
	assert.Contains(t, lines[1], "2 ┤")
	assert.Contains(t, lines[5], "0 ┤")
	assert.Contains(t, lines[6], "0")
	assert.Contains(t, lines[6], "2")

	assert.Empty(t, XYPlot(nil, nil, "u", "f", 20, 5))
}

func TestLoadPathStartsAtOrigin(t *testing.T) {
	h := &loadstep.History{Steps: []loadstep.Step{{Displacement: 1, Reaction: 1}}}
	out := LoadPath(h, 10, 4)
	assert.Contains(t, out, "displacement")
	assert.Contains(t, out, "0 ┤")
	assert.Empty(t, LoadPath(&loadstep.History{}, 10, 4))
}

func TestBounds(t *testing.T) {
	lo, hi := bounds([]float64{3, -1, 2})
	assert.Equal(t, -1.0, lo)
	assert.Equal(t, 3.0, hi)

	lo, hi = bounds([]float64{2, 2})
	assert.Equal(t, 1.5, lo)
	assert.Equal(t, 2.5, hi)
}

func TestSeries(t *testing.T) {
	assert.Empty(t, Series(nil, "x", 10, 3))
	assert.Contains(t, Series([]float64{1, 2, 3}, "reaction", 10, 3), "reaction")
}

func TestSparklineKeepsLastValues(t *testing.T) {
	assert.Equal(t, strings.Repeat("─", 4), Sparkline(nil, 4))
	assert.Equal(t, 3, len([]rune(stripped(Sparkline([]float64{1, 2, 3, 4, 5}, 3)))))
}

// stripped drops ANSI escapes from rendered output.
func stripped(s string) string {
	var b strings.Builder
	esc := false
	for _, r := range s {
		switch {
		case r == '\x1b':
			esc = true
		case esc && r == 'm':
			esc = false
		case !esc:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// drive feeds the model its own commands until the run is done.
func drive(t *testing.T, m Model) Model {
	t.Helper()
	cmd := m.Init()
	for i := 0; i < 1000; i++ {
		require.NotNil(t, cmd, "model stopped listening before the run finished")
		next, c := m.Update(cmd())
		m, cmd = next.(Model), c
		if done, _ := m.Done(); done {
			return m
		}
	}
	t.Fatal("run did not finish")
	return m
}

func TestModelFollowsEvents(t *testing.T) {
	events := make(chan tea.Msg, 3)
	events <- StepMsg{Index: 1, Load: 0.5, Reaction: 1, Iterations: 3, Converged: true}
	events <- StepMsg{Index: 2, Load: 1, Reaction: 2, Iterations: 4, Converged: true}
	events <- DoneMsg{}

	m := drive(t, NewModel("spring", 2, events, nil))
	assert.Len(t, m.Steps(), 2)
	_, err := m.Done()
	assert.NoError(t, err)
	assert.Contains(t, m.View(), "done")
	assert.Contains(t, m.View(), "2/2")
}

func TestModelQuitCancelsRun(t *testing.T) {
	cancelled := false
	m := NewModel("spring", 2, make(chan tea.Msg), func() { cancelled = true })
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	assert.True(t, cancelled)
	assert.NotNil(t, cmd)
}

func TestModelReleasesRunWhenDone(t *testing.T) {
	events := make(chan tea.Msg, 2)
	events <- StepMsg{Index: 1, Load: 0.5, Reaction: 1, Converged: true}
	events <- DoneMsg{}

	cancelled := 0
	m := drive(t, NewModel("spring", 1, events, func() { cancelled++ }))
	assert.Equal(t, 1, cancelled)

	// a second DoneMsg is ignored
	m.Update(DoneMsg{})
	assert.Equal(t, 1, cancelled)
}

func TestWatch(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Steps = 3

	m, err := Watch(context.Background(), cfg, problems.NewRegistry())
	require.NoError(t, err)
	m = drive(t, m)

	_, runErr := m.Done()
	require.NoError(t, runErr)
	assert.Len(t, m.Steps(), 3)
	assert.Contains(t, m.View(), "peak_reaction")
}

func TestWatchRejectsBadConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Algorithm = "bisection"
	_, err := Watch(context.Background(), cfg, problems.NewRegistry())
	assert.Error(t, err)
}

func TestInteractiveNavigation(t *testing.T) {
	reg := problems.NewRegistry()
	var m tea.Model = NewInteractiveApp(reg)
	press := func(k tea.KeyMsg) { m, _ = m.Update(k) }

	press(tea.KeyMsg{Type: tea.KeyDown})
	press(tea.KeyMsg{Type: tea.KeyEnter})
	a := m.(app)
	assert.Equal(t, statePresets, a.state)
	assert.Equal(t, reg.List()[1], a.selected)
	assert.Equal(t, defaultPreset, a.presets[0])
	assert.Contains(t, m.View(), a.selected)

	press(tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, stateProblems, m.(app).state)
}
