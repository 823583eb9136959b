package storage

import (
	"encoding/json"
	"io"

	"github.com/san-kum/nemsim/internal/reduce"
)

type ExportData struct {
	Run     RunMetadata     `json:"run"`
	Reports []reduce.Result `json:"reports"`
	Lattice [][]float64     `json:"lattice,omitempty"`
}

// ExportJSON writes a whole run as a single JSON document.
func (s *Store) ExportJSON(w io.Writer, runID string, withLattice bool) error {
	meta, err := s.Load(runID)
	if err != nil {
		return err
	}
	reports, err := s.LoadReports(runID)
	if err != nil {
		return err
	}

	data := ExportData{Run: *meta, Reports: reports}
	if withLattice && meta.HasLattice {
		if data.Lattice, err = s.LoadLattice(runID); err != nil {
			return err
		}
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}
