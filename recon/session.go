package recon

import (
	"fmt"
	"sync"

	"gonum.org/v1/gonum/stat"
)

// fitQualityThreshold splits radius fits into "good" and "fair": the
// relative spread of point distances around the estimated radius.
const fitQualityThreshold = 0.1

// Session owns one loaded reconstruction together with its calibration
// state, spatial index and measurement log. Rescaling is the only mutation
// and happens under the write lock, so concurrent measurement reads never
// observe partially-rescaled coordinates.
type Session struct {
	mu           sync.RWMutex
	recon        *Reconstruction
	calib        *CalibrationState
	index        *SpatialIndex
	measurements []Measurement
}

// NewSession wraps a loaded reconstruction. The calibration starts
// uncalibrated with scale factor 1.0.
func NewSession(scanID string, r *Reconstruction) *Session {
	return &Session{
		recon: r,
		calib: NewCalibrationState(scanID),
		index: NewSpatialIndex(r),
	}
}

// RestoreCalibration replaces the calibration state with one loaded from
// disk and rescales the model accordingly. Intended for session start, when
// coordinates are still in raw reconstruction units.
func (s *Session) RestoreCalibration(cal *CalibrationState) error {
	if cal == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if cal.ScaleFactor != 1.0 {
		if err := ApplyScale(s.recon, cal.ScaleFactor); err != nil {
			return err
		}
		s.index = NewSpatialIndex(s.recon)
	}
	s.calib = cal
	return nil
}

// Calibration returns a copy of the current calibration state.
func (s *Session) Calibration() CalibrationState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return *s.calib
}

// point returns the point for id or a PointNotFoundError. Callers hold at
// least the read lock.
func (s *Session) point(id uint64) (*Point3D, error) {
	if pt, ok := s.recon.Points3D[id]; ok {
		return pt, nil
	}
	return nil, &PointNotFoundError{Kind: "point", IDs: []uint64{id}}
}

// points resolves several ids at once, reporting every missing id together.
func (s *Session) points(ids ...uint64) ([]*Point3D, error) {
	var missing []uint64
	out := make([]*Point3D, 0, len(ids))
	for _, id := range ids {
		pt, ok := s.recon.Points3D[id]
		if !ok {
			missing = append(missing, id)
			continue
		}
		out = append(out, pt)
	}
	if len(missing) > 0 {
		return nil, &PointNotFoundError{Kind: "point", IDs: missing}
	}
	return out, nil
}

// CalibrateKnownDistance calibrates the scale from two model points whose
// real-world separation is known, then rescales every point and pose
// translation in place and rebuilds the spatial index. On failure the model
// and the previous scale factor are untouched.
func (s *Session) CalibrateKnownDistance(point1ID, point2ID uint64, knownMeters float64) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pts, err := s.points(point1ID, point2ID)
	if err != nil {
		return 0, err
	}

	factor, err := s.calib.CalibrateFromKnownDistance(pts[0].XYZ, pts[1].XYZ, knownMeters)
	if err != nil {
		return 0, err
	}
	if err := ApplyScale(s.recon, factor); err != nil {
		return 0, err
	}
	s.index = NewSpatialIndex(s.recon)
	return factor, nil
}

// SetManualScale sets the total original-units conversion factor. The model
// may already carry a previous factor, so only the ratio to it is applied to
// the coordinates; afterwards they equal raw units times the declared factor.
func (s *Session) SetManualScale(factor float64, unit string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// An invalid factor makes the ratio invalid too, so ApplyScale rejects
	// it here before any state changes.
	if err := ApplyScale(s.recon, factor/s.calib.ScaleFactor); err != nil {
		return err
	}
	if err := s.calib.SetManualScale(factor, unit); err != nil {
		return err
	}
	s.index = NewSpatialIndex(s.recon)
	return nil
}

// FindNearest resolves a raw 3D position to the closest model point within
// maxDistance, in current (calibrated) units.
func (s *Session) FindNearest(target [3]float64, maxDistance float64) (uint64, float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.FindNearest(target, maxDistance)
}

// AddMeasurement records the distance between two model points in calibrated
// units, along with cm and mm renderings.
func (s *Session) AddMeasurement(point1ID, point2ID uint64, label string) (Measurement, error) {
	return s.addDistance(KindDistance, point1ID, point2ID, label)
}

// CalculateThickness records the separation of two opposing surface points.
// The computation is the distance computation; the semantic label differs.
func (s *Session) CalculateThickness(point1ID, point2ID uint64, label string) (Measurement, error) {
	return s.addDistance(KindThickness, point1ID, point2ID, label)
}

func (s *Session) addDistance(kind MeasurementKind, point1ID, point2ID uint64, label string) (Measurement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pts, err := s.points(point1ID, point2ID)
	if err != nil {
		return Measurement{}, err
	}

	d := Distance(pts[0].XYZ, pts[1].XYZ)
	p1 := pts[0].XYZ
	p2 := pts[1].XYZ
	m := Measurement{
		ID:             len(s.measurements),
		Kind:           kind,
		Label:          label,
		Point1ID:       point1ID,
		Point2ID:       point2ID,
		Point1XYZ:      &p1,
		Point2XYZ:      &p2,
		DistanceMeters: d,
		DistanceCM:     d * 100,
		DistanceMM:     d * 1000,
		Scaled:         s.calib.IsCalibrated(),
	}
	if m.Label == "" {
		m.Label = fmt.Sprintf("Measurement %d", m.ID+1)
	}
	s.measurements = append(s.measurements, m)
	return m, nil
}

// CalculateAngle returns the angle in degrees at the vertex point2, formed
// by point1 and point3, and records it. Swapping point1 and point3 yields
// the same angle.
func (s *Session) CalculateAngle(point1ID, point2ID, point3ID uint64) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pts, err := s.points(point1ID, point2ID, point3ID)
	if err != nil {
		return 0, err
	}

	angle, ok := AngleDegrees(pts[0].XYZ, pts[1].XYZ, pts[2].XYZ)
	if !ok {
		return 0, &DegenerateInputError{Reason: "angle vertex coincides with an endpoint"}
	}

	s.measurements = append(s.measurements, Measurement{
		ID:           len(s.measurements),
		Kind:         KindAngle,
		Label:        fmt.Sprintf("Angle %d-%d-%d", point1ID, point2ID, point3ID),
		Point1ID:     point1ID,
		Point2ID:     point2ID,
		Point3ID:     point3ID,
		AngleDegrees: angle,
		Scaled:       s.calib.IsCalibrated(),
	})
	return angle, nil
}

// CalculateRadius estimates a circular radius from three or more points on a
// curve: the mean distance from the centroid. This is a centroid-based
// approximation, not a least-squares circle fit. Fit quality is "good" when
// the relative spread of distances is under 10%, otherwise "fair".
func (s *Session) CalculateRadius(pointIDs ...uint64) (RadiusResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(pointIDs) < 3 {
		return RadiusResult{}, &InsufficientPointsError{Got: len(pointIDs), Need: 3}
	}
	pts, err := s.points(pointIDs...)
	if err != nil {
		return RadiusResult{}, err
	}

	positions := make([][3]float64, len(pts))
	for i, pt := range pts {
		positions[i] = pt.XYZ
	}
	center := Centroid(positions)

	distances := make([]float64, len(positions))
	for i, p := range positions {
		distances[i] = Distance(p, center)
	}
	radius := stat.Mean(distances, nil)
	spread := stat.PopStdDev(distances, nil)

	quality := "fair"
	if radius > 0 && spread/radius < fitQualityThreshold {
		quality = "good"
	}

	res := RadiusResult{RadiusMeters: radius, Center: center, FitQuality: quality}
	s.measurements = append(s.measurements, Measurement{
		ID:           len(s.measurements),
		Kind:         KindRadius,
		Label:        fmt.Sprintf("Radius over %d points", len(pointIDs)),
		PointIDs:     append([]uint64(nil), pointIDs...),
		RadiusMeters: radius,
		Center:       &center,
		FitQuality:   quality,
		Scaled:       s.calib.IsCalibrated(),
	})
	return res, nil
}

// GetPointInfo returns the calibrated position, stored color and
// reprojection error of a point. Normal is always nil; surface-normal
// estimation is not implemented.
func (s *Session) GetPointInfo(pointID uint64) (PointInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	pt, err := s.point(pointID)
	if err != nil {
		return PointInfo{}, err
	}
	return PointInfo{
		ID:       pt.ID,
		Position: pt.XYZ,
		Normal:   nil,
		RGB:      pt.RGB,
		Error:    pt.Error,
		Track:    len(pt.Track),
	}, nil
}

// Measurements returns a copy of the measurement log in insertion order.
func (s *Session) Measurements() []Measurement {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Measurement(nil), s.measurements...)
}
