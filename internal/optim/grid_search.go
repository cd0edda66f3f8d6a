// Package optim tunes run settings by exhaustive search.
package optim

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"runtime"
	"sync"

	"github.com/san-kum/equilib/internal/automation"
	"github.com/san-kum/equilib/internal/config"
	"github.com/san-kum/equilib/internal/problems"
)

var ErrNoCompletedRun = errors.New("optim: no grid point completed its load path")

// GridSearch evaluates every combination of values for a set of run file
// keys (dotted paths, see automation.WithParam).
type GridSearch struct {
	paramNames []string
	ranges     [][]float64
	workers    int
}

func NewGridSearch(params []string, ranges [][]float64) *GridSearch {
	return &GridSearch{paramNames: params, ranges: ranges, workers: runtime.GOMAXPROCS(0)}
}

// SetWorkers bounds how many runs are evaluated at once.
func (g *GridSearch) SetWorkers(n int) {
	if n > 0 {
		g.workers = n
	}
}

// Point is one evaluated combination.
type Point struct {
	Params  map[string]float64
	Outcome *automation.Outcome
	Err     error
}

// Points returns the grid in lexicographic order of the parameters.
func (g *GridSearch) Points() []map[string]float64 {
	var points []map[string]float64
	g.collect(0, make(map[string]float64), &points)
	return points
}

func (g *GridSearch) collect(depth int, current map[string]float64, points *[]map[string]float64) {
	if depth == len(g.paramNames) {
		*points = append(*points, current)
		return
	}

	paramName := g.paramNames[depth]
	for _, val := range g.ranges[depth] {
		newParams := make(map[string]float64, len(current)+1)
		for k, v := range current {
			newParams[k] = v
		}
		newParams[paramName] = val

		g.collect(depth+1, newParams, points)
	}
}

// Evaluate runs base at every grid point.
func (g *GridSearch) Evaluate(ctx context.Context, base *config.Config, reg *problems.Registry) ([]Point, error) {
	if len(g.paramNames) != len(g.ranges) {
		return nil, fmt.Errorf("optim: %d parameters but %d ranges", len(g.paramNames), len(g.ranges))
	}

	grid := g.Points()
	results := make([]Point, len(grid))
	jobs := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < min(g.workers, len(grid)); w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				results[idx] = g.evaluate(ctx, base, reg, grid[idx])
			}
		}()
	}

	for idx := range grid {
		jobs <- idx
	}
	close(jobs)
	wg.Wait()

	return results, ctx.Err()
}

func (g *GridSearch) evaluate(ctx context.Context, base *config.Config, reg *problems.Registry, params map[string]float64) Point {
	p := Point{Params: params}
	cfg := base
	for _, name := range g.paramNames {
		var err error
		if cfg, err = automation.WithParam(cfg, name, params[name]); err != nil {
			p.Err = err
			return p
		}
	}
	p.Outcome, p.Err = automation.Execute(ctx, cfg, reg)
	if p.Err == nil {
		p.Err = p.Outcome.Err
	}
	slog.Debug("grid point", "params", params, "err", p.Err)
	return p
}

// Search returns the grid point with the smallest value of metricName
// among the runs that completed their load path.
func (g *GridSearch) Search(ctx context.Context, base *config.Config, reg *problems.Registry, metricName string) (map[string]float64, float64, error) {
	points, err := g.Evaluate(ctx, base, reg)
	if err != nil {
		return nil, math.NaN(), err
	}

	best := math.Inf(1)
	var bestParams map[string]float64
	for _, p := range points {
		if p.Err != nil {
			continue
		}
		val, ok := p.Outcome.Metrics[metricName]
		if !ok {
			return nil, math.NaN(), fmt.Errorf("optim: unknown metric %q", metricName)
		}
		if val < best {
			best, bestParams = val, p.Params
		}
	}
	if bestParams == nil {
		return nil, math.NaN(), ErrNoCompletedRun
	}

	return bestParams, best, nil
}
