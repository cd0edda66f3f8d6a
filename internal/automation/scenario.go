package automation

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/san-kum/equilib/internal/config"
	"github.com/san-kum/equilib/internal/problems"
	"github.com/san-kum/equilib/internal/storage"
	"gopkg.in/yaml.v3"
)

// Scenario is a scripted batch of runs.
type Scenario struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Runs        []Run  `yaml:"runs"`
}

// Run selects a problem, optionally a preset, and overrides any run file
// keys on top of it:
//
//	- name: soft-arch
//	  problem: shallow_arch
//	  preset: snap
//	  overrides:
//	    steps: 40
//	    solver:
//	      tr_size: 0.5
type Run struct {
	Name      string    `yaml:"name"`
	Problem   string    `yaml:"problem"`
	Preset    string    `yaml:"preset"`
	Overrides yaml.Node `yaml:"overrides"`
}

func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(scenario.Runs) == 0 {
		return nil, fmt.Errorf("scenario %s has no runs", path)
	}

	return &scenario, nil
}

// Config resolves the run into a full run configuration.
func (r Run) Config() (*config.Config, error) {
	var cfg *config.Config
	if r.Preset != "" {
		cfg = config.GetPreset(r.Problem, r.Preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset %q for problem %q", r.Preset, r.Problem)
		}
	} else {
		cfg = config.DefaultConfig()
		cfg.Problem = r.Problem
	}
	if !r.Overrides.IsZero() {
		if err := r.Overrides.Decode(cfg); err != nil {
			return nil, fmt.Errorf("overrides: %w", err)
		}
	}
	return cfg, nil
}

func (r Run) label(i int) string {
	switch {
	case r.Name != "":
		return r.Name
	case r.Preset != "":
		return fmt.Sprintf("%s/%s", r.Problem, r.Preset)
	default:
		return fmt.Sprintf("run%d", i+1)
	}
}

// RunScenario executes every run in order and saves each one when store
// is non-nil. A configuration error stops the scenario; a run that fails
// along its load path is recorded and the scenario moves on.
func RunScenario(ctx context.Context, scenario *Scenario, reg *problems.Registry, store *storage.Store) ([]*Outcome, error) {
	outcomes := make([]*Outcome, 0, len(scenario.Runs))

	for i, run := range scenario.Runs {
		label := run.label(i)
		slog.Info("scenario run", "scenario", scenario.Name, "run", i+1, "of", len(scenario.Runs), "label", label)

		cfg, err := run.Config()
		if err != nil {
			return outcomes, fmt.Errorf("run %d (%s): %w", i+1, label, err)
		}
		out, err := Execute(ctx, cfg, reg)
		if err != nil {
			return outcomes, fmt.Errorf("run %d (%s): %w", i+1, label, err)
		}
		out.Label = label
		if out.Err != nil {
			slog.Warn("run failed", "label", label, "err", out.Err)
		}

		if store != nil {
			if _, err := store.Save(out.Metadata(), out.History); err != nil {
				return outcomes, fmt.Errorf("run %d (%s) save: %w", i+1, label, err)
			}
		}
		outcomes = append(outcomes, out)

		if ctx.Err() != nil {
			return outcomes, ctx.Err()
		}
	}

	return outcomes, nil
}
