package recon

import (
	"math"

	"gonum.org/v1/gonum/spatial/kdtree"
)

// indexedPoint is a 3D point plus its model id, stored in the k-d tree.
type indexedPoint struct {
	pos [3]float64
	id  uint64
}

// Compare returns the signed distance of p from the plane through c
// perpendicular to dimension d.
func (p indexedPoint) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	q := c.(indexedPoint)
	return p.pos[d] - q.pos[d]
}

// Dims returns the number of dimensions the point occupies.
func (p indexedPoint) Dims() int { return 3 }

// Distance returns the squared Euclidean distance between p and c, as the
// k-d tree expects.
func (p indexedPoint) Distance(c kdtree.Comparable) float64 {
	q := c.(indexedPoint)
	var s float64
	for i := range p.pos {
		d := p.pos[i] - q.pos[i]
		s += d * d
	}
	return s
}

// indexedPoints implements kdtree.Interface over a point slice.
type indexedPoints []indexedPoint

func (p indexedPoints) Index(i int) kdtree.Comparable { return p[i] }
func (p indexedPoints) Len() int                      { return len(p) }
func (p indexedPoints) Pivot(d kdtree.Dim) int {
	return plane{points: p, Dim: d}.Pivot()
}
func (p indexedPoints) Slice(start, end int) kdtree.Interface { return p[start:end] }

// plane is a sorting helper for one dimension.
type plane struct {
	kdtree.Dim
	points indexedPoints
}

func (p plane) Len() int { return len(p.points) }
func (p plane) Less(i, j int) bool {
	return p.points[i].pos[p.Dim] < p.points[j].pos[p.Dim]
}
func (p plane) Pivot() int { return kdtree.Partition(p, kdtree.MedianOfMedians(p)) }
func (p plane) Slice(start, end int) kdtree.SortSlicer {
	p.points = p.points[start:end]
	return p
}
func (p plane) Swap(i, j int) {
	p.points[i], p.points[j] = p.points[j], p.points[i]
}

// SpatialIndex answers nearest-point queries over the current point set. It
// is a snapshot: coordinates are copied at build time, so it must be rebuilt
// whenever calibration rescales the model.
type SpatialIndex struct {
	tree *kdtree.Tree
	n    int
}

// NewSpatialIndex builds a k-d tree over the model's current coordinates.
func NewSpatialIndex(r *Reconstruction) *SpatialIndex {
	pts := make(indexedPoints, 0, len(r.PointOrder))
	for _, id := range r.PointOrder {
		pts = append(pts, indexedPoint{pos: r.Points3D[id].XYZ, id: id})
	}
	if len(pts) == 0 {
		return &SpatialIndex{}
	}
	return &SpatialIndex{tree: kdtree.New(pts, false), n: len(pts)}
}

// Len returns the number of indexed points.
func (s *SpatialIndex) Len() int { return s.n }

// FindNearest returns the id and distance of the point closest to target
// among all points strictly closer than maxDistance. Ties on distance are
// broken toward the lowest point id, so queries are deterministic. Returns
// NotFoundError when nothing qualifies.
func (s *SpatialIndex) FindNearest(target [3]float64, maxDistance float64) (uint64, float64, error) {
	notFound := &NotFoundError{Target: target, MaxDistance: maxDistance}
	if s.tree == nil || maxDistance <= 0 {
		return 0, 0, notFound
	}

	// The keeper collects every point within the radius; the tree works in
	// squared distances.
	keeper := kdtree.NewDistKeeper(maxDistance * maxDistance)
	s.tree.NearestSet(keeper, indexedPoint{pos: target})

	bestID := uint64(0)
	bestDist := math.Inf(1)
	found := false
	for _, cd := range keeper.Heap {
		if cd.Comparable == nil {
			continue // the keeper's radius sentinel
		}
		p := cd.Comparable.(indexedPoint)
		if cd.Dist >= maxDistance*maxDistance {
			continue // radius bound is exclusive
		}
		switch {
		case !found, cd.Dist < bestDist:
			bestID, bestDist, found = p.id, cd.Dist, true
		case cd.Dist == bestDist && p.id < bestID:
			bestID = p.id
		}
	}
	if !found {
		return 0, 0, notFound
	}
	return bestID, math.Sqrt(bestDist), nil
}
