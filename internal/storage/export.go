package storage

import (
	"encoding/json"
	"io"

	"github.com/san-kum/equilib/internal/loadstep"
)

type ExportData struct {
	Meta  RunMetadata     `json:"meta"`
	Steps []loadstep.Step `json:"steps"`
}

// ExportJSON writes a run as one indented JSON document.
func ExportJSON(w io.Writer, meta RunMetadata, hist *loadstep.History) error {
	data := ExportData{
		Meta:  meta,
		Steps: hist.Steps,
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}
