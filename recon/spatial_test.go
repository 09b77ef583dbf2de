package recon

import (
	"errors"
	"math"
	"testing"
)

func indexFromPoints(points map[uint64][3]float64) *SpatialIndex {
	r := NewReconstruction()
	for id, pos := range points {
		r.Points3D[id] = &Point3D{ID: id, XYZ: pos}
		r.PointOrder = append(r.PointOrder, id)
	}
	return NewSpatialIndex(r)
}

func TestFindNearest(t *testing.T) {
	idx := indexFromPoints(map[uint64][3]float64{
		1: {0, 0, 0},
		2: {10, 0, 0},
	})

	id, dist, err := idx.FindNearest([3]float64{1, 0, 0}, 2.0)
	if err != nil {
		t.Fatalf("FindNearest: %v", err)
	}
	if id != 1 {
		t.Errorf("id = %d, want 1", id)
	}
	if math.Abs(dist-1.0) > 1e-12 {
		t.Errorf("dist = %g, want 1.0", dist)
	}
}

func TestFindNearestOutOfRange(t *testing.T) {
	idx := indexFromPoints(map[uint64][3]float64{
		1: {0, 0, 0},
		2: {10, 0, 0},
	})

	_, _, err := idx.FindNearest([3]float64{1, 0, 0}, 0.5)
	var nfe *NotFoundError
	if !errors.As(err, &nfe) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
	if nfe.MaxDistance != 0.5 {
		t.Errorf("MaxDistance = %g, want 0.5", nfe.MaxDistance)
	}
}

func TestFindNearestRadiusIsExclusive(t *testing.T) {
	idx := indexFromPoints(map[uint64][3]float64{
		1: {2, 0, 0},
	})

	// The point sits exactly at the radius bound; strictly-closer means miss.
	if _, _, err := idx.FindNearest([3]float64{0, 0, 0}, 2.0); err == nil {
		t.Error("point exactly at maxDistance should not match")
	}
	if _, _, err := idx.FindNearest([3]float64{0, 0, 0}, 2.0001); err != nil {
		t.Errorf("point just inside the radius should match: %v", err)
	}
}

func TestFindNearestTieBreaksToLowestID(t *testing.T) {
	idx := indexFromPoints(map[uint64][3]float64{
		7: {1, 0, 0},
		3: {-1, 0, 0},
		9: {0, 1, 0},
	})

	// All three are exactly 1.0 from the origin.
	id, dist, err := idx.FindNearest([3]float64{0, 0, 0}, 5.0)
	if err != nil {
		t.Fatalf("FindNearest: %v", err)
	}
	if id != 3 {
		t.Errorf("id = %d, want lowest id 3", id)
	}
	if math.Abs(dist-1.0) > 1e-12 {
		t.Errorf("dist = %g, want 1.0", dist)
	}
}

func TestFindNearestEmptyIndex(t *testing.T) {
	idx := NewSpatialIndex(NewReconstruction())
	if idx.Len() != 0 {
		t.Errorf("Len = %d, want 0", idx.Len())
	}
	var nfe *NotFoundError
	if _, _, err := idx.FindNearest([3]float64{0, 0, 0}, 10); !errors.As(err, &nfe) {
		t.Fatalf("expected NotFoundError on empty index, got %v", err)
	}
}

func TestFindNearestManyPoints(t *testing.T) {
	points := make(map[uint64][3]float64)
	for i := uint64(1); i <= 1000; i++ {
		points[i] = [3]float64{float64(i), float64(i % 7), float64(i % 13)}
	}
	idx := indexFromPoints(points)

	id, _, err := idx.FindNearest([3]float64{500.1, float64(500 % 7), float64(500 % 13)}, 5.0)
	if err != nil {
		t.Fatalf("FindNearest: %v", err)
	}
	if id != 500 {
		t.Errorf("id = %d, want 500", id)
	}
}
