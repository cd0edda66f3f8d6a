// Package automation runs configured load paths: single runs, YAML
// scenarios of several runs, and parameter sweeps.
package automation

import (
	"context"
	"time"

	"github.com/san-kum/equilib/internal/config"
	"github.com/san-kum/equilib/internal/loadstep"
	"github.com/san-kum/equilib/internal/metrics"
	"github.com/san-kum/equilib/internal/objective"
	"github.com/san-kum/equilib/internal/problems"
	"github.com/san-kum/equilib/internal/storage"
)

// Outcome is the result of one run. Err holds a failure of the load path
// itself; History then contains the steps completed before it.
type Outcome struct {
	Label    string
	Config   *config.Config
	History  *loadstep.History
	Metrics  map[string]float64
	Started  time.Time
	Duration time.Duration
	Err      error
}

// Execute builds the configured problem and drives it along its load
// path. The returned error reports an invalid configuration; failures
// during the run are reported in Outcome.Err.
func Execute(ctx context.Context, cfg *config.Config, reg *problems.Registry, observers ...loadstep.Observer) (*Outcome, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	lc, err := cfg.LoadConfig()
	if err != nil {
		return nil, err
	}
	prob, err := reg.Get(cfg.Problem, cfg.ProblemOptions())
	if err != nil {
		return nil, err
	}

	collector := metrics.Default()
	driver := loadstep.NewDriver[objective.Params]()
	driver.AddObserver(collector)
	for _, o := range observers {
		driver.AddObserver(o)
	}

	start := time.Now()
	hist, runErr := driver.Run(ctx, prob, lc)
	return &Outcome{
		Label:    cfg.Problem,
		Config:   cfg,
		History:  hist,
		Metrics:  collector.Values(),
		Started:  start,
		Duration: time.Since(start),
		Err:      runErr,
	}, nil
}

// Metadata describes the outcome for the run store.
func (o *Outcome) Metadata() storage.RunMetadata {
	meta := storage.RunMetadata{
		Problem:   o.Config.Problem,
		Algorithm: o.Config.Algorithm,
		Steps:     o.Config.Steps,
		MaxLoad:   o.Config.MaxLoad,
		Unload:    o.Config.Unload,
		OnFailure: o.Config.OnFailure,
		Completed: o.Err == nil,
		Metrics:   o.Metrics,
	}
	if o.Err != nil {
		meta.Error = o.Err.Error()
	}
	return meta
}
