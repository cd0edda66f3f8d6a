package config

import "sort"

// Presets holds named tweaks of the default run per problem.
var Presets = map[string]map[string]func(*Config){
	"hyperelastic_bar": {
		"stretch": func(c *Config) {
			c.Steps, c.MaxLoad = 10, 0.5
		},
		"compress": func(c *Config) {
			c.Steps, c.MaxLoad = 10, -0.4
		},
		"cycle": func(c *Config) {
			c.Steps, c.MaxLoad, c.Unload = 10, 0.5, true
		},
		"preconditioned": func(c *Config) {
			c.Steps, c.MaxLoad = 10, 0.5
			c.Options.Elements = 40
			c.Options.Precondition = true
		},
	},
	"plastic_bar": {
		"monotonic": func(c *Config) {
			c.Steps, c.MaxLoad = 10, 1.3
		},
		"cycle": func(c *Config) {
			c.Steps, c.MaxLoad, c.Unload = 10, 1.3, true
		},
		"cutback": func(c *Config) {
			c.Steps, c.MaxLoad = 2, 1.3
			c.OnFailure = "cutback"
			c.Solver.MaxTrustIters = 6
		},
	},
	"shallow_arch": {
		"snap": func(c *Config) {
			c.Steps, c.MaxLoad = 20, 4
		},
		"snap_back": func(c *Config) {
			c.Steps, c.MaxLoad, c.Unload = 20, 4, true
		},
		// settings of the arch traction study this solver was tuned on
		"tuned": func(c *Config) {
			c.Steps, c.MaxLoad, c.Unload = 20, 4, true
			c.Solver.MaxTrustIters = 400
			c.Solver.T1, c.Solver.T2 = 0.4, 1.5
			c.Solver.Eta1, c.Solver.Eta2, c.Solver.Eta3 = 1e-8, 0.2, 0.8
			c.Solver.OverIters = 100
		},
		"newton": func(c *Config) {
			c.Steps, c.MaxLoad = 20, 2.5
			c.Algorithm = "newton"
		},
	},
}

// GetPreset returns the default config for problem with the named preset
// applied, or nil if either is unknown.
func GetPreset(problem, preset string) *Config {
	problemPresets, ok := Presets[problem]
	if !ok {
		return nil
	}
	apply, ok := problemPresets[preset]
	if !ok {
		return nil
	}
	cfg := DefaultConfig()
	cfg.Problem = problem
	apply(cfg)
	return cfg
}

func ListPresets(problem string) []string {
	problemPresets, ok := Presets[problem]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(problemPresets))
	for name := range problemPresets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
