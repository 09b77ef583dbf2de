package recon

import (
	"encoding/json"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"
)

// CalibrationMethod identifies how a scale factor was derived.
type CalibrationMethod string

const (
	MethodUncalibrated   CalibrationMethod = "uncalibrated"
	MethodKnownDistance  CalibrationMethod = "known_distance"
	MethodCameraMetadata CalibrationMethod = "camera_metadata"
	MethodManual         CalibrationMethod = "manual"
)

// minCalibrationDistance is the smallest usable reference vector length.
// Anything shorter cannot produce a meaningful scale factor.
const minCalibrationDistance = 1e-6

// CalibrationState is the explicit unit model of one reconstruction: a
// strictly positive scale factor converting reconstruction units to
// real-world units, plus how it was obtained. It is owned by a session, not
// global, so independently calibrated reconstructions can coexist in one
// process.
type CalibrationState struct {
	ScaleFactor       float64           `json:"scale_factor"`
	Method            CalibrationMethod `json:"method"`
	ReferenceDistance *float64          `json:"reference_distance"`
	Unit              string            `json:"unit"`
	ScanID            string            `json:"scan_id"`
}

// NewCalibrationState returns the uncalibrated identity state.
func NewCalibrationState(scanID string) *CalibrationState {
	return &CalibrationState{
		ScaleFactor: 1.0,
		Method:      MethodUncalibrated,
		Unit:        "reconstruction_units",
		ScanID:      scanID,
	}
}

// IsCalibrated reports whether a real-world scale has been established.
func (c *CalibrationState) IsCalibrated() bool {
	return c.Method != MethodUncalibrated
}

// CalibrateFromKnownDistance derives the scale factor from two reference
// points a known real-world distance apart, e.g. a wall the operator
// measured at 3.5 m. The returned factor converts current coordinates to
// meters. On a degenerate reference (points closer than 1e-6) the state is
// left untouched and a DegenerateInputError is returned.
func (c *CalibrationState) CalibrateFromKnownDistance(pointA, pointB [3]float64, knownMeters float64) (float64, error) {
	raw := Distance(pointA, pointB)
	if raw < minCalibrationDistance {
		return 0, &DegenerateInputError{
			Reason: fmt.Sprintf("reference points %g apart, need at least %g", raw, minCalibrationDistance),
		}
	}
	if knownMeters <= 0 {
		return 0, &DegenerateInputError{
			Reason: fmt.Sprintf("known distance must be positive, got %g", knownMeters),
		}
	}

	factor := knownMeters / raw
	// Accumulate: a recalibration sees already-rescaled coordinates, so the
	// stored factor stays the total original-units-to-meters conversion.
	c.ScaleFactor *= factor
	c.Method = MethodKnownDistance
	c.ReferenceDistance = &knownMeters
	c.Unit = "meters"

	log.Printf("Calibrated scale: %.6f m/unit (reference %.2f units = %.2f m)", c.ScaleFactor, raw, knownMeters)
	return factor, nil
}

// CalibrateFromCameraMetadata estimates a scale factor from camera sensor
// geometry. This is a rough estimate; known-distance calibration is the
// accurate path.
func (c *CalibrationState) CalibrateFromCameraMetadata(focalLengthMM, sensorWidthMM float64, imageWidthPX int) (float64, error) {
	if focalLengthMM <= 0 || sensorWidthMM <= 0 || imageWidthPX <= 0 {
		return 0, &DegenerateInputError{Reason: "camera metadata values must be positive"}
	}
	pixelSizeMM := sensorWidthMM / float64(imageWidthPX)
	factor := pixelSizeMM / focalLengthMM

	c.ScaleFactor = factor
	c.Method = MethodCameraMetadata
	c.ReferenceDistance = nil
	c.Unit = "meters (approximate)"

	log.Printf("Camera-metadata calibration (approximate): scale %.6f", factor)
	return factor, nil
}

// SetManualScale sets the scale factor directly.
func (c *CalibrationState) SetManualScale(factor float64, unit string) error {
	if factor <= 0 || math.IsNaN(factor) || math.IsInf(factor, 0) {
		return &DegenerateInputError{Reason: fmt.Sprintf("scale factor must be strictly positive, got %g", factor)}
	}
	c.ScaleFactor = factor
	c.Method = MethodManual
	c.ReferenceDistance = nil
	c.Unit = unit
	return nil
}

// ConvertDistance converts a raw reconstruction-unit distance to calibrated
// units.
func (c *CalibrationState) ConvertDistance(d float64) float64 {
	return d * c.ScaleFactor
}

// ConvertArea converts a raw area (units²) to calibrated units².
func (c *CalibrationState) ConvertArea(a float64) float64 {
	return a * c.ScaleFactor * c.ScaleFactor
}

// ConvertVolume converts a raw volume (units³) to calibrated units³.
func (c *CalibrationState) ConvertVolume(v float64) float64 {
	return v * c.ScaleFactor * c.ScaleFactor * c.ScaleFactor
}

// FormatDistance renders a raw distance with an auto-selected metric unit.
func (c *CalibrationState) FormatDistance(d float64, decimals int) string {
	real := c.ConvertDistance(d)
	if c.Unit != "meters" {
		return fmt.Sprintf("%.*f %s", decimals, real, c.Unit)
	}
	switch {
	case real < 0.01:
		return fmt.Sprintf("%.*f mm", decimals, real*1000)
	case real < 1.0:
		return fmt.Sprintf("%.*f cm", decimals, real*100)
	default:
		return fmt.Sprintf("%.*f m", decimals, real)
	}
}

// FormatArea renders a raw area with an auto-selected metric unit.
func (c *CalibrationState) FormatArea(a float64, decimals int) string {
	real := c.ConvertArea(a)
	if c.Unit != "meters" {
		return fmt.Sprintf("%.*f %s²", decimals, real, c.Unit)
	}
	if real < 0.01 {
		return fmt.Sprintf("%.*f cm²", decimals, real*10000)
	}
	return fmt.Sprintf("%.*f m²", decimals, real)
}

// FormatVolume renders a raw volume with an auto-selected metric unit.
func (c *CalibrationState) FormatVolume(v float64, decimals int) string {
	real := c.ConvertVolume(v)
	if c.Unit != "meters" {
		return fmt.Sprintf("%.*f %s³", decimals, real, c.Unit)
	}
	switch {
	case real < 0.001:
		return fmt.Sprintf("%.*f cm³", decimals, real*1e6)
	case real < 1.0:
		return fmt.Sprintf("%.*f L", decimals, real*1000)
	default:
		return fmt.Sprintf("%.*f m³", decimals, real)
	}
}

// ApplyScale multiplies every point position and every image translation by
// factor. Camera intrinsics are pixel-space and are never scaled. Applying
// f1 then f2 is equivalent to applying f1·f2 once.
func ApplyScale(r *Reconstruction, factor float64) error {
	if factor <= 0 || math.IsNaN(factor) || math.IsInf(factor, 0) {
		return &DegenerateInputError{Reason: fmt.Sprintf("scale factor must be strictly positive, got %g", factor)}
	}
	for _, pt := range r.Points3D {
		for i := range pt.XYZ {
			pt.XYZ[i] *= factor
		}
	}
	for _, img := range r.Images {
		for i := range img.Translation {
			img.Translation[i] *= factor
		}
	}
	return nil
}

// LoadCalibration reads a calibration JSON file. A missing file is not an
// error: it returns (nil, nil), meaning "not yet calibrated".
func LoadCalibration(path string) (*CalibrationState, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading calibration file: %w", err)
	}

	var cal CalibrationState
	if err := json.Unmarshal(data, &cal); err != nil {
		return nil, fmt.Errorf("parsing calibration file: %w", err)
	}
	if cal.ScaleFactor <= 0 {
		return nil, fmt.Errorf("calibration file %s: scale_factor must be strictly positive, got %g", path, cal.ScaleFactor)
	}
	return &cal, nil
}

// SaveCalibration writes the calibration state as JSON using a
// write-to-temp-then-rename sequence, so a crash mid-write never leaves a
// corrupt calibration file behind.
func SaveCalibration(path string, cal *CalibrationState) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating calibration directory: %w", err)
	}

	data, err := json.MarshalIndent(cal, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling calibration data: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".calibration-*.json")
	if err != nil {
		return fmt.Errorf("creating temp calibration file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing calibration file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing calibration file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing calibration file: %w", err)
	}
	return nil
}
