package storage

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/san-kum/nemsim/internal/reduce"
)

func testReports() []reduce.Result {
	return []reduce.Result{
		{Sweep: 1, Temperature: 0.5, Order: 0.12, MeanEnergy: -1.03, AcceptanceRatio: 0.61, Accepted: 61, Proposed: 100},
		{Sweep: 2, Temperature: 0.5, Order: 0.2, MeanEnergy: -1.1, AcceptanceRatio: 0.58, Accepted: 58, Proposed: 100},
	}
}

func TestStoreSaveLoad(t *testing.T) {
	st := New(t.TempDir())
	if err := st.Init(); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	meta := &RunMetadata{
		Size:        10,
		Procs:       2,
		Temperature: 0.5,
		Sweeps:      2,
		Seed:        42,
		Backend:     "fast",
		Metrics:     map[string]float64{"mean_order": 0.16},
	}
	lattice := [][]float64{{0.1, 0.2}, {1.5, 3.14159}}

	runID, err := st.Save(meta, testReports(), lattice)
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if runID == "" || runID != meta.ID {
		t.Errorf("unexpected run id %q (meta %q)", runID, meta.ID)
	}

	loaded, err := st.Load(runID)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if loaded.Seed != 42 || loaded.Backend != "fast" || !loaded.HasLattice {
		t.Errorf("metadata mismatch: %+v", loaded)
	}
	if loaded.Metrics["mean_order"] != 0.16 {
		t.Errorf("expected mean_order 0.16, got %f", loaded.Metrics["mean_order"])
	}

	reports, err := st.LoadReports(runID)
	if err != nil {
		t.Fatalf("load reports failed: %v", err)
	}
	if diff := cmp.Diff(testReports(), reports); diff != "" {
		t.Errorf("reports mismatch (-want +got):\n%s", diff)
	}

	got, err := st.LoadLattice(runID)
	if err != nil {
		t.Fatalf("load lattice failed: %v", err)
	}
	if diff := cmp.Diff(lattice, got); diff != "" {
		t.Errorf("lattice mismatch (-want +got):\n%s", diff)
	}
}

func TestStoreList(t *testing.T) {
	st := New(filepath.Join(t.TempDir(), "runs"))

	runs, err := st.List()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(runs) != 0 {
		t.Errorf("expected 0 runs, got %d", len(runs))
	}

	if err := st.Init(); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 2; i++ {
		if _, err := st.Save(&RunMetadata{Size: 4}, testReports(), nil); err != nil {
			t.Fatalf("save failed: %v", err)
		}
	}

	runs, err = st.List()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(runs) != 2 {
		t.Errorf("expected 2 runs, got %d", len(runs))
	}
}

func TestStoreFileStructure(t *testing.T) {
	tmpDir := t.TempDir()
	st := New(tmpDir)

	runID, err := st.Save(&RunMetadata{Size: 4}, testReports(), nil)
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}

	runDir := filepath.Join(tmpDir, runID)
	for _, name := range []string{metadataFile, reportsFile} {
		if _, err := os.Stat(filepath.Join(runDir, name)); os.IsNotExist(err) {
			t.Errorf("%s not created", name)
		}
	}
	if _, err := os.Stat(filepath.Join(runDir, latticeFile)); !os.IsNotExist(err) {
		t.Error("lattice.csv written without a snapshot")
	}
}

func TestExportJSON(t *testing.T) {
	st := New(t.TempDir())
	runID, err := st.Save(&RunMetadata{Size: 2}, testReports(), [][]float64{{1, 2}, {3, 4}})
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := st.ExportJSON(&buf, runID, true); err != nil {
		t.Fatalf("export failed: %v", err)
	}

	var data ExportData
	if err := json.Unmarshal(buf.Bytes(), &data); err != nil {
		t.Fatalf("export is not valid json: %v", err)
	}
	if data.Run.ID != runID || len(data.Reports) != 2 || len(data.Lattice) != 2 {
		t.Errorf("unexpected export: %+v", data)
	}
}
