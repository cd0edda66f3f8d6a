package automation

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/san-kum/equilib/internal/config"
	"github.com/san-kum/equilib/internal/problems"
	"gopkg.in/yaml.v3"
)

// ParameterSweep repeats a base run for each value of one run file key.
// Param is a dotted key path such as "max_load" or "solver.tr_size".
type ParameterSweep struct {
	Base   *config.Config
	Param  string
	Values []float64
}

// Linspace returns n evenly spaced values from lo to hi inclusive.
func Linspace(lo, hi float64, n int) []float64 {
	if n < 2 {
		return []float64{lo}
	}
	out := make([]float64, n)
	step := (hi - lo) / float64(n-1)
	for i := range out {
		out[i] = lo + float64(i)*step
	}
	return out
}

type SweepResult struct {
	Value   float64
	Outcome *Outcome
}

func RunSweep(ctx context.Context, sweep *ParameterSweep, reg *problems.Registry) ([]SweepResult, error) {
	results := make([]SweepResult, 0, len(sweep.Values))

	for i, v := range sweep.Values {
		cfg, err := WithParam(sweep.Base, sweep.Param, v)
		if err != nil {
			return results, err
		}
		out, err := Execute(ctx, cfg, reg)
		if err != nil {
			return results, fmt.Errorf("%s=%g: %w", sweep.Param, v, err)
		}
		out.Label = fmt.Sprintf("%s=%g", sweep.Param, v)
		results = append(results, SweepResult{Value: v, Outcome: out})

		slog.Info("sweep", "point", i+1, "of", len(sweep.Values), "param", sweep.Param, "value", v,
			"completed", out.Err == nil)
		if ctx.Err() != nil {
			return results, ctx.Err()
		}
	}

	return results, nil
}

// WithParam returns a copy of base with the dotted key set to v, going
// through the YAML names so any run file key can be swept.
func WithParam(base *config.Config, param string, v float64) (*config.Config, error) {
	keys := strings.Split(param, ".")
	var tree any = v
	for i := len(keys) - 1; i >= 0; i-- {
		if keys[i] == "" {
			return nil, fmt.Errorf("bad parameter path %q", param)
		}
		tree = map[string]any{keys[i]: tree}
	}
	data, err := yaml.Marshal(tree)
	if err != nil {
		return nil, err
	}

	cfg := *base
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("set %s=%g: %w", param, v, err)
	}

	// integer keys truncate on decode; read the key back to catch it
	got, err := lookup(&cfg, keys)
	if err != nil {
		return nil, fmt.Errorf("set %s=%g: %w", param, v, err)
	}
	if got != v {
		return nil, fmt.Errorf("set %s=%g: key holds %g, value not representable", param, v, got)
	}
	return &cfg, nil
}

func lookup(cfg *config.Config, keys []string) (float64, error) {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return 0, err
	}
	var node any = map[string]any{}
	if err := yaml.Unmarshal(data, &node); err != nil {
		return 0, err
	}
	for _, k := range keys {
		m, ok := node.(map[string]any)
		if !ok {
			return 0, fmt.Errorf("%s is not a mapping", k)
		}
		node = m[k]
	}
	switch x := node.(type) {
	case nil:
		// omitempty keys vanish at zero
		return 0, nil
	case int:
		return float64(x), nil
	case float64:
		return x, nil
	default:
		return 0, fmt.Errorf("not a numeric key (%T)", node)
	}
}
