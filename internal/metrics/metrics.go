// Package metrics summarises a load-stepping run. Every metric is a
// loadstep.Observer, so it can be attached to a driver directly or fed
// a recorded history afterwards.
package metrics

import (
	"sort"

	"github.com/san-kum/equilib/internal/loadstep"
)

type Metric interface {
	Name() string
	Observe(s loadstep.Step)
	Value() float64
	Reset()
}

// Collector fans steps out to a set of metrics.
type Collector struct {
	metrics []Metric
}

func NewCollector(ms ...Metric) *Collector {
	return &Collector{metrics: ms}
}

// Default returns the metrics reported for every stored run.
func Default() *Collector {
	return NewCollector(
		NewPeakReaction(),
		NewMaxDisplacement(),
		NewWork(),
		NewSnapThrough(5),
		NewTotalIterations(),
		NewTotalCGIterations(),
		NewNonConverged(),
		NewCutbacks(),
	)
}

func (c *Collector) OnStep(s loadstep.Step) {
	for _, m := range c.metrics {
		m.Observe(s)
	}
}

// Replay feeds a recorded history through the collector.
func (c *Collector) Replay(h *loadstep.History) {
	for _, s := range h.Steps {
		c.OnStep(s)
	}
}

func (c *Collector) Reset() {
	for _, m := range c.metrics {
		m.Reset()
	}
}

func (c *Collector) Values() map[string]float64 {
	out := make(map[string]float64, len(c.metrics))
	for _, m := range c.metrics {
		out[m.Name()] = m.Value()
	}
	return out
}

// Names returns the metric names in sorted order.
func (c *Collector) Names() []string {
	names := make([]string, 0, len(c.metrics))
	for _, m := range c.metrics {
		names = append(names, m.Name())
	}
	sort.Strings(names)
	return names
}
