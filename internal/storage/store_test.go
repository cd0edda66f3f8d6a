package storage

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/san-kum/equilib/internal/loadstep"
)

func sampleHistory() *loadstep.History {
	return &loadstep.History{
		Steps: []loadstep.Step{
			{Index: 1, Load: 0.25, Displacement: 0.25, Reaction: 0.61, Energy: 0.07, GradNorm: 3e-9, Converged: true, Iterations: 4, CGIterations: 12},
			{Index: 2, Load: 0.5, Displacement: 0.5, Reaction: 1.3, Energy: 0.31, GradNorm: 0.02, Converged: false, Iterations: 100, CGIterations: 900, Cutbacks: 2},
		},
	}
}

func TestStoreSaveLoad(t *testing.T) {
	tmpDir := t.TempDir()
	st := New(tmpDir)

	if err := st.Init(); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	meta := RunMetadata{
		Problem:   "test",
		Algorithm: "trust_region",
		Steps:     2,
		MaxLoad:   0.5,
		Completed: true,
		Metrics:   map[string]float64{"peak_reaction": 1.3},
	}
	runID, err := st.Save(meta, sampleHistory())
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}

	if runID == "" {
		t.Error("expected non-empty run id")
	}

	loaded, err := st.Load(runID)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if loaded.Problem != "test" {
		t.Errorf("expected problem 'test', got '%s'", loaded.Problem)
	}
	if loaded.ID != runID {
		t.Errorf("expected id %s, got %s", runID, loaded.ID)
	}
	if loaded.Metrics["peak_reaction"] != 1.3 {
		t.Errorf("expected peak_reaction 1.3, got %f", loaded.Metrics["peak_reaction"])
	}

	hist, err := st.LoadHistory(runID)
	if err != nil {
		t.Fatalf("load history failed: %v", err)
	}

	want := sampleHistory().Steps
	if len(hist.Steps) != len(want) {
		t.Fatalf("expected %d steps, got %d", len(want), len(hist.Steps))
	}
	for i := range want {
		if hist.Steps[i] != want[i] {
			t.Errorf("step %d: got %+v, want %+v", i, hist.Steps[i], want[i])
		}
	}
}

func TestStoreList(t *testing.T) {
	tmpDir := t.TempDir()
	st := New(tmpDir)

	runs, err := st.List()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(runs) != 0 {
		t.Errorf("expected 0 runs, got %d", len(runs))
	}

	if err := st.Init(); err != nil {
		t.Fatalf("init failed: %v", err)
	}
	for _, problem := range []string{"first", "second"} {
		if _, err := st.Save(RunMetadata{Problem: problem}, sampleHistory()); err != nil {
			t.Fatalf("save failed: %v", err)
		}
	}
	if err := os.MkdirAll(filepath.Join(tmpDir, "stray"), 0755); err != nil {
		t.Fatal(err)
	}

	runs, err = st.List()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	if runs[0].Problem != "first" || runs[1].Problem != "second" {
		t.Errorf("expected runs in save order, got %s, %s", runs[0].Problem, runs[1].Problem)
	}
}

func TestStoreFileStructure(t *testing.T) {
	tmpDir := t.TempDir()
	st := New(tmpDir)

	if err := st.Init(); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	runID, err := st.Save(RunMetadata{Problem: "test"}, &loadstep.History{})
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}

	runDir := filepath.Join(tmpDir, runID)
	if _, err := os.Stat(filepath.Join(runDir, "metadata.json")); os.IsNotExist(err) {
		t.Error("metadata.json not created")
	}
	if _, err := os.Stat(filepath.Join(runDir, "history.csv")); os.IsNotExist(err) {
		t.Error("history.csv not created")
	}

	hist, err := st.LoadHistory(runID)
	if err != nil {
		t.Fatalf("load history failed: %v", err)
	}
	if len(hist.Steps) != 0 {
		t.Errorf("expected empty history, got %d steps", len(hist.Steps))
	}
}

func TestReadCSVRejectsBadRows(t *testing.T) {
	input := strings.Join(historyHeader, ",") + "\n1,x,0,0,0,0,true,1,1,0\n"
	if _, err := ReadCSV(strings.NewReader(input)); err == nil {
		t.Error("expected parse error")
	}
}

func TestExportJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := ExportJSON(&buf, RunMetadata{ID: "run", Problem: "test"}, sampleHistory()); err != nil {
		t.Fatalf("export failed: %v", err)
	}

	var data ExportData
	if err := json.Unmarshal(buf.Bytes(), &data); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if data.Meta.ID != "run" || len(data.Steps) != 2 {
		t.Errorf("unexpected export: %+v", data)
	}
	if data.Steps[1].Cutbacks != 2 {
		t.Errorf("expected cutbacks 2, got %d", data.Steps[1].Cutbacks)
	}
}
