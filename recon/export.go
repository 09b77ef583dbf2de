package recon

import (
	"encoding/json"
	"fmt"
	"strings"
)

// measurementExport is the JSON envelope for an export.
type measurementExport struct {
	ScaleFactor  float64       `json:"scale_factor"`
	Measurements []Measurement `json:"measurements"`
}

// ExportMeasurements serializes the measurement log. "json" yields an object
// carrying the scale factor and every recorded measurement; "csv" yields a
// header line plus one row per distance or thickness measurement, in
// insertion order, with distance_m at six decimal places. Any other format
// is an UnsupportedFormatError.
func (s *Session) ExportMeasurements(format string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	switch format {
	case "json":
		out := measurementExport{
			ScaleFactor:  s.calib.ScaleFactor,
			Measurements: s.measurements,
		}
		if out.Measurements == nil {
			out.Measurements = []Measurement{}
		}
		data, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return "", fmt.Errorf("marshaling measurements: %w", err)
		}
		return string(data), nil

	case "csv":
		lines := []string{"id,label,point1_id,point2_id,distance_m,distance_cm,distance_mm,scaled"}
		for _, m := range s.measurements {
			if m.Kind != KindDistance && m.Kind != KindThickness {
				continue
			}
			lines = append(lines, fmt.Sprintf("%d,%s,%d,%d,%.6f,%.2f,%.1f,%t",
				m.ID, csvField(m.Label), m.Point1ID, m.Point2ID,
				m.DistanceMeters, m.DistanceCM, m.DistanceMM, m.Scaled))
		}
		return strings.Join(lines, "\n"), nil

	default:
		return "", &UnsupportedFormatError{Format: format}
	}
}

// csvField quotes a free-text value when it would break the row shape,
// doubling embedded quotes per RFC 4180. Labels are operator input and may
// contain commas.
func csvField(s string) string {
	if strings.ContainsAny(s, ",\"\n") {
		return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
	}
	return s
}
