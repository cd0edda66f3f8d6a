package config

import (
	"fmt"
	"os"

	"github.com/san-kum/equilib/internal/loadstep"
	"github.com/san-kum/equilib/internal/nlsolve"
	"github.com/san-kum/equilib/internal/problems"
	"github.com/san-kum/equilib/internal/rootfind"
	"gopkg.in/yaml.v3"
)

const (
	DefaultProblem     = "hyperelastic_bar"
	DefaultAlgorithm   = "trust_region"
	DefaultOnFailure   = "abort"
	DefaultSteps       = 10
	DefaultMaxLoad     = 0.5
	DefaultMaxCutbacks = 4
)

type Config struct {
	Problem     string           `yaml:"problem"`
	Algorithm   string           `yaml:"algorithm"`
	Steps       int              `yaml:"steps"`
	MaxLoad     float64          `yaml:"max_load"`
	Unload      bool             `yaml:"unload"`
	OnFailure   string           `yaml:"on_failure"`
	MaxCutbacks int              `yaml:"max_cutbacks"`
	Options     problems.Options `yaml:"options"`
	Solver      SolverConfig     `yaml:"solver"`
	RootFinder  RootFinderConfig `yaml:"root_finder"`
}

// SolverConfig mirrors nlsolve.Settings with file-friendly names.
type SolverConfig struct {
	T1                            float64 `yaml:"t1"`
	T2                            float64 `yaml:"t2"`
	Eta1                          float64 `yaml:"eta1"`
	Eta2                          float64 `yaml:"eta2"`
	Eta3                          float64 `yaml:"eta3"`
	MaxTrustIters                 int     `yaml:"max_trust_iters"`
	Tol                           float64 `yaml:"tol"`
	MaxCGIters                    int     `yaml:"max_cg_iters"`
	MaxCumulativeCGIters          int     `yaml:"max_cumulative_cg_iters"`
	OverIters                     int     `yaml:"over_iters"`
	CGInexactSolveRatio           float64 `yaml:"cg_inexact_solve_ratio"`
	TrSize                        float64 `yaml:"tr_size"`
	MaxTrSize                     float64 `yaml:"max_tr_size"`
	MinTrSize                     float64 `yaml:"min_tr_size"`
	UsePreconditionedInnerProduct bool    `yaml:"use_preconditioned_inner_product_for_cg"`
	PrecondUpdateFrequency        int     `yaml:"precond_update_frequency"`
	MaxNewtonIters                int     `yaml:"max_newton_iters"`
}

type RootFinderConfig struct {
	XTol     float64 `yaml:"x_tol"`
	FTol     float64 `yaml:"f_tol"`
	MaxIters int     `yaml:"max_iters"`
}

func DefaultSolverConfig() SolverConfig {
	s := nlsolve.DefaultSettings()
	return SolverConfig{
		T1:                            s.T1,
		T2:                            s.T2,
		Eta1:                          s.Eta1,
		Eta2:                          s.Eta2,
		Eta3:                          s.Eta3,
		MaxTrustIters:                 s.MaxTrustIters,
		Tol:                           s.Tol,
		MaxCGIters:                    s.MaxCGIters,
		MaxCumulativeCGIters:          s.MaxCumulativeCGIters,
		OverIters:                     s.OverIters,
		CGInexactSolveRatio:           s.CGInexactSolveRatio,
		TrSize:                        s.TrSize,
		MaxTrSize:                     s.MaxTrSize,
		MinTrSize:                     s.MinTrSize,
		UsePreconditionedInnerProduct: s.UsePreconditionedInnerProduct,
		PrecondUpdateFrequency:        s.PrecondUpdateFrequency,
		MaxNewtonIters:                s.MaxNewtonIters,
	}
}

func DefaultConfig() *Config {
	return &Config{
		Problem:     DefaultProblem,
		Algorithm:   DefaultAlgorithm,
		Steps:       DefaultSteps,
		MaxLoad:     DefaultMaxLoad,
		OnFailure:   DefaultOnFailure,
		MaxCutbacks: DefaultMaxCutbacks,
		Solver:      DefaultSolverConfig(),
		RootFinder: RootFinderConfig{
			XTol:     rootfind.DefaultXTol,
			FTol:     rootfind.DefaultFTol,
			MaxIters: rootfind.DefaultMaxIters,
		},
	}
}

// Load reads a YAML run file. Keys missing from the file keep their defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) SolverSettings() nlsolve.Settings {
	s := c.Solver
	return nlsolve.Settings{
		T1:                            s.T1,
		T2:                            s.T2,
		Eta1:                          s.Eta1,
		Eta2:                          s.Eta2,
		Eta3:                          s.Eta3,
		MaxTrustIters:                 s.MaxTrustIters,
		Tol:                           s.Tol,
		MaxCGIters:                    s.MaxCGIters,
		MaxCumulativeCGIters:          s.MaxCumulativeCGIters,
		OverIters:                     s.OverIters,
		CGInexactSolveRatio:           s.CGInexactSolveRatio,
		TrSize:                        s.TrSize,
		MaxTrSize:                     s.MaxTrSize,
		MinTrSize:                     s.MinTrSize,
		UsePreconditionedInnerProduct: s.UsePreconditionedInnerProduct,
		PrecondUpdateFrequency:        s.PrecondUpdateFrequency,
		MaxNewtonIters:                s.MaxNewtonIters,
	}
}

func (c *Config) RootSettings() rootfind.Settings {
	return rootfind.GetSettings(
		rootfind.WithXTol(c.RootFinder.XTol),
		rootfind.WithFTol(c.RootFinder.FTol),
		rootfind.WithMaxIters(c.RootFinder.MaxIters),
	)
}

// ProblemOptions returns the problem options with the root finder
// settings attached.
func (c *Config) ProblemOptions() problems.Options {
	opts := c.Options
	opts.ReturnMap = c.RootSettings()
	return opts
}

// LoadConfig converts the run file into a driver configuration.
func (c *Config) LoadConfig() (loadstep.Config, error) {
	alg, err := nlsolve.ParseAlgorithm(c.Algorithm)
	if err != nil {
		return loadstep.Config{}, err
	}
	onFailure, err := loadstep.ParseOnFailure(c.OnFailure)
	if err != nil {
		return loadstep.Config{}, err
	}
	lc := loadstep.Config{
		Steps:       c.Steps,
		MaxLoad:     c.MaxLoad,
		Unload:      c.Unload,
		OnFailure:   onFailure,
		MaxCutbacks: c.MaxCutbacks,
		Algorithm:   alg,
		Solver:      c.SolverSettings(),
	}
	return lc, lc.Validate()
}

// Validate checks everything a run needs before it starts.
func (c *Config) Validate() error {
	if _, err := c.LoadConfig(); err != nil {
		return err
	}
	return c.RootSettings().Validate()
}
