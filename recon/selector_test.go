package recon

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

// writeCandidate creates parent/name/points3D.bin holding n points.
func writeCandidate(t *testing.T, parent, name string, n int) {
	t.Helper()
	dir := filepath.Join(parent, name)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("mkdir %s: %v", dir, err)
	}

	points := make(map[uint64]*Point3D, n)
	order := make([]uint64, 0, n)
	for i := 0; i < n; i++ {
		id := uint64(i + 1)
		points[id] = &Point3D{ID: id, XYZ: [3]float64{float64(i), 0, 0}}
		order = append(order, id)
	}

	f, err := os.Create(filepath.Join(dir, Points3DFile))
	if err != nil {
		t.Fatalf("create points file: %v", err)
	}
	defer f.Close()
	if err := WritePoints3D(f, points, order); err != nil {
		t.Fatalf("WritePoints3D: %v", err)
	}
}

func TestSelectBestModel(t *testing.T) {
	parent := t.TempDir()
	writeCandidate(t, parent, "0", 2)
	writeCandidate(t, parent, "1", 5)
	writeCandidate(t, parent, "2", 3)

	best, counts, err := SelectBestModel(context.Background(), parent)
	if err != nil {
		t.Fatalf("SelectBestModel: %v", err)
	}
	if best != "1" {
		t.Errorf("best = %q, want 1", best)
	}
	want := map[string]int{"0": 2, "1": 5, "2": 3}
	for name, n := range want {
		if counts[name] != n {
			t.Errorf("counts[%s] = %d, want %d", name, counts[name], n)
		}
	}
}

func TestSelectBestModelTieKeepsLowest(t *testing.T) {
	parent := t.TempDir()
	writeCandidate(t, parent, "0", 4)
	writeCandidate(t, parent, "1", 4)

	best, _, err := SelectBestModel(context.Background(), parent)
	if err != nil {
		t.Fatalf("SelectBestModel: %v", err)
	}
	if best != "0" {
		t.Errorf("best = %q, want the lowest-numbered candidate 0", best)
	}
}

func TestSelectBestModelIgnoresNonNumericDirs(t *testing.T) {
	parent := t.TempDir()
	writeCandidate(t, parent, "0", 1)
	writeCandidate(t, parent, "images", 50) // not a candidate

	best, counts, err := SelectBestModel(context.Background(), parent)
	if err != nil {
		t.Fatalf("SelectBestModel: %v", err)
	}
	if best != "0" {
		t.Errorf("best = %q, want 0", best)
	}
	if _, ok := counts["images"]; ok {
		t.Error("non-numeric directory must not be counted")
	}
}

func TestSelectBestModelMissingPointsFile(t *testing.T) {
	parent := t.TempDir()
	writeCandidate(t, parent, "0", 3)
	// Candidate 1 exists but has no points3D.bin; it counts as zero.
	if err := os.MkdirAll(filepath.Join(parent, "1"), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	best, counts, err := SelectBestModel(context.Background(), parent)
	if err != nil {
		t.Fatalf("SelectBestModel: %v", err)
	}
	if best != "0" || counts["1"] != 0 {
		t.Errorf("best = %q, counts[1] = %d; want 0 and 0", best, counts["1"])
	}
}

func TestSelectBestModelEmpty(t *testing.T) {
	best, counts, err := SelectBestModel(context.Background(), t.TempDir())
	if err != nil {
		t.Fatalf("SelectBestModel: %v", err)
	}
	if best != "" || len(counts) != 0 {
		t.Errorf("got %q/%v, want empty result", best, counts)
	}
}

func TestSelectBestModelMissingParent(t *testing.T) {
	best, counts, err := SelectBestModel(context.Background(), filepath.Join(t.TempDir(), "nope"))
	if err != nil {
		t.Fatalf("SelectBestModel: %v", err)
	}
	if best != "" || len(counts) != 0 {
		t.Errorf("got %q/%v, want empty result", best, counts)
	}
}

func TestEstimatePointCount(t *testing.T) {
	parent := t.TempDir()
	writeCandidate(t, parent, "0", 10)

	n, err := EstimatePointCount(filepath.Join(parent, "0", Points3DFile))
	if err != nil {
		t.Fatalf("EstimatePointCount: %v", err)
	}
	// 8-byte header + 10 records of 51 bytes each = 518 bytes, / 48 = 10.
	if n != 10 {
		t.Errorf("estimate = %d, want 10", n)
	}

	if _, err := EstimatePointCount(filepath.Join(parent, "missing.bin")); err == nil {
		t.Error("expected error for missing file")
	}
}
