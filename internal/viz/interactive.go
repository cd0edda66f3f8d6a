package viz

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/san-kum/equilib/internal/config"
	"github.com/san-kum/equilib/internal/problems"
)

const (
	stateProblems = iota
	statePresets
	stateRun
)

const defaultPreset = "(default)"

type app struct {
	state    int
	cursor   int
	reg      *problems.Registry
	problems []string
	presets  []string
	selected string
	live     Model
	err      error
}

// NewInteractiveApp lets the user pick a problem and preset and then
// follows the run live.
func NewInteractiveApp(reg *problems.Registry) tea.Model {
	return app{reg: reg, problems: reg.List()}
}

func (a app) Init() tea.Cmd { return nil }

func (a app) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if a.state == stateRun {
		next, cmd := a.live.Update(msg)
		a.live = next.(Model)
		return a, cmd
	}

	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return a, nil
	}
	items := a.items()
	switch key.String() {
	case "q", "ctrl+c":
		return a, tea.Quit
	case "esc":
		if a.state == statePresets {
			a.state, a.cursor = stateProblems, 0
		}
	case "up", "k":
		if a.cursor > 0 {
			a.cursor--
		}
	case "down", "j":
		if a.cursor < len(items)-1 {
			a.cursor++
		}
	case "enter", " ":
		if a.state == stateProblems {
			a.selected = items[a.cursor]
			a.presets = append([]string{defaultPreset}, config.ListPresets(a.selected)...)
			a.state, a.cursor = statePresets, 0
			return a, nil
		}
		return a.start(items[a.cursor])
	}
	return a, nil
}

func (a app) items() []string {
	if a.state == statePresets {
		return a.presets
	}
	return a.problems
}

func (a app) start(preset string) (tea.Model, tea.Cmd) {
	cfg := config.DefaultConfig()
	cfg.Problem = a.selected
	if preset != defaultPreset {
		cfg = config.GetPreset(a.selected, preset)
	}
	live, err := Watch(context.Background(), cfg, a.reg)
	if err != nil {
		a.err = err
		return a, nil
	}
	a.live, a.state, a.err = live, stateRun, nil
	return a, a.live.Init()
}

func (a app) View() string {
	if a.state == stateRun {
		return a.live.View()
	}

	var b strings.Builder
	b.WriteString("\n  " + Title.Render("EQUILIB") + "\n  " + Subtle.Render("quasi-static equilibrium paths") + "\n\n")
	if a.state == statePresets {
		b.WriteString("  " + Selected.Render(a.selected) + "  " + Subtle.Render(a.reg.Describe(a.selected)) + "\n\n")
	}

	for i, item := range a.items() {
		desc := ""
		if a.state == stateProblems {
			desc = a.reg.Describe(item)
		}
		if i == a.cursor {
			fmt.Fprintf(&b, "  %s %s  %s\n", Title.Render("▸"), Selected.Render(fmt.Sprintf("%-18s", item)), Subtle.Render(desc))
		} else {
			fmt.Fprintf(&b, "    %s  %s\n", Subtle.Render(fmt.Sprintf("%-18s", item)), Subtle.Render(desc))
		}
	}
	if a.err != nil {
		b.WriteString("\n  " + Status(false, a.err.Error()) + "\n")
	}
	hint := "j/k navigate  enter select  q quit"
	if a.state == statePresets {
		hint = "j/k navigate  enter run  esc back  q quit"
	}
	b.WriteString("\n  " + KeyHint.Render(hint) + "\n")
	return b.String()
}

func RunInteractive(reg *problems.Registry) error {
	_, err := tea.NewProgram(NewInteractiveApp(reg), tea.WithAltScreen()).Run()
	return err
}
