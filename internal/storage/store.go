package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/san-kum/nemsim/internal/reduce"
)

const (
	metadataFile = "metadata.json"
	reportsFile  = "reports.csv"
	latticeFile  = "lattice.csv"
)

var reportHeader = []string{"sweep", "temperature", "order", "mean_energy", "acceptance", "accepted", "proposed"}

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
	ID             string             `json:"id"`
	Timestamp      time.Time          `json:"timestamp"`
	Size           int                `json:"size"`
	Procs          int                `json:"procs"`
	Temperature    float64            `json:"temperature"`
	TemperatureEnd float64            `json:"temperature_end,omitempty"`
	Sweeps         int                `json:"sweeps"`
	Seed           int64              `json:"seed"`
	MaxStep        float64            `json:"max_step"`
	ReportEvery    int                `json:"report_every"`
	Backend        string             `json:"backend"`
	Elapsed        time.Duration      `json:"elapsed_ns"`
	HasLattice     bool               `json:"has_lattice"`
	Metrics        map[string]float64 `json:"metrics"`
}

// Save writes a run directory holding the metadata, the report series and,
// when lattice is non-nil, the final lattice. It fills in meta.ID and
// meta.Timestamp and returns the ID.
func (s *Store) Save(meta *RunMetadata, reports []reduce.Result, lattice [][]float64) (string, error) {
	meta.ID = fmt.Sprintf("L%d_%s", meta.Size, uuid.NewString()[:8])
	meta.Timestamp = time.Now()
	meta.HasLattice = lattice != nil

	runDir := filepath.Join(s.baseDir, meta.ID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	if err := writeJSON(filepath.Join(runDir, metadataFile), meta); err != nil {
		return "", err
	}
	if err := writeReports(filepath.Join(runDir, reportsFile), reports); err != nil {
		return "", err
	}
	if lattice != nil {
		if err := writeLattice(filepath.Join(runDir, latticeFile), lattice); err != nil {
			return "", err
		}
	}
	return meta.ID, nil
}

func writeJSON(path string, v interface{}) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func writeReports(path string, reports []reduce.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(reportHeader); err != nil {
		return err
	}
	for _, r := range reports {
		row := []string{
			strconv.Itoa(r.Sweep),
			formatFloat(r.Temperature),
			formatFloat(r.Order),
			formatFloat(r.MeanEnergy),
			formatFloat(r.AcceptanceRatio),
			strconv.FormatInt(r.Accepted, 10),
			strconv.FormatInt(r.Proposed, 10),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func writeLattice(path string, lattice [][]float64) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	for _, row := range lattice {
		rec := make([]string, len(row))
		for i, v := range row {
			rec[i] = formatFloat(v)
		}
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// List returns every readable run, oldest first.
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

func readCSV(path string) ([][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = -1
	return r.ReadAll()
}

func (s *Store) LoadReports(runID string) ([]reduce.Result, error) {
	records, err := readCSV(filepath.Join(s.baseDir, runID, reportsFile))
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return []reduce.Result{}, nil
	}

	reports := make([]reduce.Result, 0, len(records)-1)
	for i, rec := range records[1:] {
		if len(rec) != len(reportHeader) {
			return nil, fmt.Errorf("%s line %d: expected %d fields, got %d", reportsFile, i+2, len(reportHeader), len(rec))
		}
		var r reduce.Result
		var perr error
		parseInt := func(s string) int64 {
			v, err := strconv.ParseInt(s, 10, 64)
			if err != nil && perr == nil {
				perr = err
			}
			return v
		}
		parseFloat := func(s string) float64 {
			v, err := strconv.ParseFloat(s, 64)
			if err != nil && perr == nil {
				perr = err
			}
			return v
		}
		r.Sweep = int(parseInt(rec[0]))
		r.Temperature = parseFloat(rec[1])
		r.Order = parseFloat(rec[2])
		r.MeanEnergy = parseFloat(rec[3])
		r.AcceptanceRatio = parseFloat(rec[4])
		r.Accepted = parseInt(rec[5])
		r.Proposed = parseInt(rec[6])
		if perr != nil {
			return nil, fmt.Errorf("%s line %d: %w", reportsFile, i+2, perr)
		}
		reports = append(reports, r)
	}
	return reports, nil
}

func (s *Store) LoadLattice(runID string) ([][]float64, error) {
	records, err := readCSV(filepath.Join(s.baseDir, runID, latticeFile))
	if err != nil {
		return nil, err
	}

	lattice := make([][]float64, len(records))
	for i, rec := range records {
		lattice[i] = make([]float64, len(rec))
		for j, field := range rec {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("%s row %d: %w", latticeFile, i, err)
			}
			lattice[i][j] = v
		}
	}
	return lattice, nil
}
