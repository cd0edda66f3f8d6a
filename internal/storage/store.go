package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/san-kum/equilib/internal/loadstep"
)

const (
	metadataFile = "metadata.json"
	historyFile  = "history.csv"
)

var historyHeader = []string{
	"step", "load", "displacement", "reaction", "energy", "grad_norm",
	"converged", "iterations", "cg_iterations", "cutbacks",
}

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID        string             `json:"id"`
	Problem   string             `json:"problem"`
	Timestamp time.Time          `json:"timestamp"`
	Algorithm string             `json:"algorithm"`
	Steps     int                `json:"steps"`
	MaxLoad   float64            `json:"max_load"`
	Unload    bool               `json:"unload"`
	OnFailure string             `json:"on_failure"`
	Completed bool               `json:"completed"`
	Error     string             `json:"error,omitempty"`
	Metrics   map[string]float64 `json:"metrics"`
}

// Save writes meta and the history into a new run directory and returns
// the run id. meta.ID and meta.Timestamp are filled in.
func (s *Store) Save(meta RunMetadata, hist *loadstep.History) (string, error) {
	now := time.Now()
	runID := fmt.Sprintf("%s_%d", meta.Problem, now.UnixNano())
	runDir := filepath.Join(s.baseDir, runID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	meta.ID = runID
	meta.Timestamp = now

	metaFile, err := os.Create(filepath.Join(runDir, metadataFile))
	if err != nil {
		return "", err
	}
	defer metaFile.Close()

	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return "", err
	}

	csvFile, err := os.Create(filepath.Join(runDir, historyFile))
	if err != nil {
		return "", err
	}
	defer csvFile.Close()

	if err := WriteCSV(csvFile, hist); err != nil {
		return "", err
	}
	return runID, nil
}

// List returns the metadata of every run, oldest first. Directories
// without readable metadata are skipped.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}

	sort.Slice(runs, func(i, j int) bool { return runs[i].Timestamp.Before(runs[j].Timestamp) })
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

func (s *Store) LoadHistory(runID string) (*loadstep.History, error) {
	file, err := os.Open(filepath.Join(s.baseDir, runID, historyFile))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return ReadCSV(file)
}

// WriteCSV writes one row per step with a header line.
func WriteCSV(w io.Writer, hist *loadstep.History) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(historyHeader); err != nil {
		return err
	}

	f := func(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }
	for _, st := range hist.Steps {
		row := []string{
			strconv.Itoa(st.Index),
			f(st.Load),
			f(st.Displacement),
			f(st.Reaction),
			f(st.Energy),
			f(st.GradNorm),
			strconv.FormatBool(st.Converged),
			strconv.Itoa(st.Iterations),
			strconv.Itoa(st.CGIterations),
			strconv.Itoa(st.Cutbacks),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func ReadCSV(r io.Reader) (*loadstep.History, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(historyHeader)

	records, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}

	hist := &loadstep.History{Steps: make([]loadstep.Step, 0, len(records))}
	for i, record := range records {
		if i == 0 {
			continue
		}
		st, err := parseStep(record)
		if err != nil {
			return nil, fmt.Errorf("history row %d: %w", i, err)
		}
		hist.Steps = append(hist.Steps, st)
	}
	return hist, nil
}

func parseStep(record []string) (loadstep.Step, error) {
	var (
		st    loadstep.Step
		err   error
		errs  []error
		float = func(s string) float64 {
			v, e := strconv.ParseFloat(s, 64)
			errs = append(errs, e)
			return v
		}
		integer = func(s string) int {
			v, e := strconv.Atoi(s)
			errs = append(errs, e)
			return v
		}
	)

	st.Index = integer(record[0])
	st.Load = float(record[1])
	st.Displacement = float(record[2])
	st.Reaction = float(record[3])
	st.Energy = float(record[4])
	st.GradNorm = float(record[5])
	st.Converged, err = strconv.ParseBool(record[6])
	errs = append(errs, err)
	st.Iterations = integer(record[7])
	st.CGIterations = integer(record[8])
	st.Cutbacks = integer(record[9])

	for _, e := range errs {
		if e != nil {
			return st, e
		}
	}
	return st, nil
}
