package recon

import (
	"math"
	"testing"
)

func TestStats(t *testing.T) {
	s := newTestSession(t)
	if _, err := s.AddMeasurement(1, 2, ""); err != nil {
		t.Fatalf("AddMeasurement: %v", err)
	}

	stats := s.Stats()
	if stats.NumPoints != 5 || stats.NumCameras != 1 || stats.NumImages != 2 {
		t.Errorf("counts = %d/%d/%d, want 5/1/2", stats.NumPoints, stats.NumCameras, stats.NumImages)
	}
	if stats.NumMeasurements != 1 {
		t.Errorf("NumMeasurements = %d, want 1", stats.NumMeasurements)
	}
	if stats.IsScaled || stats.ScaleFactor != 1.0 {
		t.Errorf("scale = %g/%t, want 1.0/false", stats.ScaleFactor, stats.IsScaled)
	}

	if stats.Bounds.Min != [3]float64{0, 0, 0} {
		t.Errorf("Bounds.Min = %v, want origin", stats.Bounds.Min)
	}
	if stats.Bounds.Max != [3]float64{10, 1, 0} {
		t.Errorf("Bounds.Max = %v, want (10,1,0)", stats.Bounds.Max)
	}

	// Five fixture points: (0,0,0) (1,0,0) (1,1,0) (0,1,0) (10,0,0).
	wantCentroid := [3]float64{12.0 / 5, 2.0 / 5, 0}
	for i := range wantCentroid {
		if math.Abs(stats.Centroid[i]-wantCentroid[i]) > 1e-12 {
			t.Errorf("Centroid = %v, want %v", stats.Centroid, wantCentroid)
			break
		}
	}

	// XY bound is 10 x 1.
	if math.Abs(stats.FootprintArea-10) > 1e-9 {
		t.Errorf("FootprintArea = %g, want 10", stats.FootprintArea)
	}
}

func TestStatsScaled(t *testing.T) {
	s := newTestSession(t)
	if err := s.SetManualScale(2.0, "meters"); err != nil {
		t.Fatalf("SetManualScale: %v", err)
	}

	stats := s.Stats()
	if !stats.IsScaled || stats.ScaleFactor != 2.0 {
		t.Errorf("scale = %g/%t, want 2.0/true", stats.ScaleFactor, stats.IsScaled)
	}
	if stats.Bounds.Max != [3]float64{20, 2, 0} {
		t.Errorf("Bounds.Max = %v, want (20,2,0)", stats.Bounds.Max)
	}
	if math.Abs(stats.FootprintArea-40) > 1e-9 {
		t.Errorf("FootprintArea = %g, want 40 (area scales quadratically)", stats.FootprintArea)
	}
}

func TestStatsEmpty(t *testing.T) {
	s := NewSession("scan-1", NewReconstruction())

	stats := s.Stats()
	if stats.NumPoints != 0 {
		t.Errorf("NumPoints = %d, want 0", stats.NumPoints)
	}
	if stats.FootprintArea != 0 {
		t.Errorf("FootprintArea = %g, want 0", stats.FootprintArea)
	}
}
