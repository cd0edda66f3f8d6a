package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/san-kum/equilib/internal/loadstep"
	"github.com/san-kum/equilib/internal/nlsolve"
	"github.com/san-kum/equilib/internal/problems"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Problem != "hyperelastic_bar" {
		t.Errorf("expected problem hyperelastic_bar, got %s", cfg.Problem)
	}
	if cfg.Steps <= 0 {
		t.Error("steps should be positive")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should be valid: %v", err)
	}
	if cfg.SolverSettings() != nlsolve.DefaultSettings() {
		t.Error("default solver config should match nlsolve defaults")
	}
}

func TestGetPreset(t *testing.T) {
	cfg := GetPreset("plastic_bar", "cycle")
	if cfg == nil {
		t.Fatal("expected preset, got nil")
	}
	if cfg.Problem != "plastic_bar" || !cfg.Unload || cfg.MaxLoad != 1.3 {
		t.Errorf("unexpected preset: %+v", cfg)
	}
	// presets never leak into the defaults
	if DefaultConfig().Unload {
		t.Error("default config modified by preset")
	}
}

func TestGetPreset_NotFound(t *testing.T) {
	if cfg := GetPreset("plastic_bar", "nonexistent"); cfg != nil {
		t.Error("expected nil for nonexistent preset")
	}
	if cfg := GetPreset("nonexistent", "cycle"); cfg != nil {
		t.Error("expected nil for nonexistent problem")
	}
}

func TestPresetsAreValid(t *testing.T) {
	reg := problems.NewRegistry()
	for problem := range Presets {
		if _, err := reg.Get(problem, problems.Options{}); err != nil {
			t.Errorf("preset problem %s not registered: %v", problem, err)
		}
		for _, name := range ListPresets(problem) {
			if err := GetPreset(problem, name).Validate(); err != nil {
				t.Errorf("preset %s/%s: %v", problem, name, err)
			}
		}
	}
}

func TestListPresets(t *testing.T) {
	presets := ListPresets("shallow_arch")
	if len(presets) == 0 {
		t.Error("expected presets for shallow_arch")
	}
	if ListPresets("nonexistent") != nil {
		t.Error("expected nil for nonexistent problem")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.yaml")
	cfg := GetPreset("shallow_arch", "tuned")

	if err := Save(path, cfg); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if *loaded != *cfg {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", loaded, cfg)
	}
}

func TestLoadKeepsDefaultsForMissingKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.yaml")
	data := []byte("problem: shallow_arch\nsolver:\n  max_trust_iters: 400\n")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if loaded.Problem != "shallow_arch" {
		t.Errorf("expected problem shallow_arch, got %s", loaded.Problem)
	}
	if loaded.Steps != DefaultSteps {
		t.Errorf("expected default steps %d, got %d", DefaultSteps, loaded.Steps)
	}
	if loaded.Solver.MaxTrustIters != 400 || loaded.Solver.T1 != nlsolve.DefaultT1 {
		t.Errorf("unexpected solver config: %+v", loaded.Solver)
	}
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.yaml")
	if err := os.WriteFile(path, []byte("steps: [1, 2"), 0644); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestLoadConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Algorithm = "newton"
	cfg.OnFailure = "cutback"

	lc, err := cfg.LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error: %v", err)
	}
	if lc.Algorithm != nlsolve.Newton || lc.OnFailure != loadstep.Cutback {
		t.Errorf("unexpected driver config: %+v", lc)
	}

	cfg.Algorithm = "simplex"
	if _, err := cfg.LoadConfig(); !errors.Is(err, nlsolve.ErrUnknownAlgorithm) {
		t.Errorf("expected ErrUnknownAlgorithm, got %v", err)
	}

	cfg.Algorithm = "tr"
	cfg.Solver.T1 = 2
	if _, err := cfg.LoadConfig(); !errors.Is(err, nlsolve.ErrInvalidSettings) {
		t.Errorf("expected ErrInvalidSettings, got %v", err)
	}
}

func TestProblemOptionsCarryRootSettings(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RootFinder.MaxIters = 80
	opts := cfg.ProblemOptions()
	if opts.ReturnMap.MaxIters != 80 {
		t.Errorf("expected return map max iters 80, got %d", opts.ReturnMap.MaxIters)
	}
}
