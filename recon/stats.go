package recon

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// Bounds is the axis-aligned bounding box of the point set.
type Bounds struct {
	Min [3]float64 `json:"min"`
	Max [3]float64 `json:"max"`
}

// ReconstructionStats summarizes the current model state in calibrated
// units.
type ReconstructionStats struct {
	NumPoints       int        `json:"num_points"`
	NumCameras      int        `json:"num_cameras"`
	NumImages       int        `json:"num_images"`
	NumMeasurements int        `json:"num_measurements"`
	ScaleFactor     float64    `json:"scale_factor"`
	IsScaled        bool       `json:"is_scaled"`
	Bounds          Bounds     `json:"bounds"`
	Centroid        [3]float64 `json:"centroid"`

	// FootprintArea is the area of the axis-aligned ground-plane (XY) bound
	// of the point set, in calibrated units².
	FootprintArea float64 `json:"footprint_area"`
}

// Stats computes summary statistics over the current snapshot.
func (s *Session) Stats() ReconstructionStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := ReconstructionStats{
		NumPoints:       len(s.recon.Points3D),
		NumCameras:      len(s.recon.Cameras),
		NumImages:       len(s.recon.Images),
		NumMeasurements: len(s.measurements),
		ScaleFactor:     s.calib.ScaleFactor,
		IsScaled:        s.calib.IsCalibrated(),
	}
	if stats.NumPoints == 0 {
		return stats
	}

	for i := range stats.Bounds.Min {
		stats.Bounds.Min[i] = math.Inf(1)
		stats.Bounds.Max[i] = math.Inf(-1)
	}

	footprint := make(orb.MultiPoint, 0, len(s.recon.PointOrder))
	for _, id := range s.recon.PointOrder {
		xyz := s.recon.Points3D[id].XYZ
		for i := range xyz {
			stats.Bounds.Min[i] = math.Min(stats.Bounds.Min[i], xyz[i])
			stats.Bounds.Max[i] = math.Max(stats.Bounds.Max[i], xyz[i])
			stats.Centroid[i] += xyz[i]
		}
		footprint = append(footprint, orb.Point{xyz[0], xyz[1]})
	}
	n := float64(stats.NumPoints)
	for i := range stats.Centroid {
		stats.Centroid[i] /= n
	}
	stats.FootprintArea = planar.Area(footprint.Bound())

	return stats
}
