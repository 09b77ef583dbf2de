package recon

import (
	"fmt"
	"strings"
)

// FormatError reports a malformed or truncated binary record. It carries the
// byte offset at which decoding failed and the expected vs. actual byte
// count so the offending record can be located with a hex dump.
type FormatError struct {
	File     string // file name, when known
	Offset   int64  // byte offset where the read started
	Expected int    // bytes required by the record field
	Actual   int    // bytes actually available
}

func (e *FormatError) Error() string {
	if e.File != "" {
		return fmt.Sprintf("%s: truncated record at offset %d: expected %d bytes, got %d",
			e.File, e.Offset, e.Expected, e.Actual)
	}
	return fmt.Sprintf("truncated record at offset %d: expected %d bytes, got %d",
		e.Offset, e.Expected, e.Actual)
}

// MissingFileError reports that one of the three required reconstruction
// files is absent.
type MissingFileError struct {
	Path string
}

func (e *MissingFileError) Error() string {
	return fmt.Sprintf("reconstruction file not found: %s", e.Path)
}

// DegenerateInputError reports a calibration reference that cannot produce a
// scale factor, typically two coincident points.
type DegenerateInputError struct {
	Reason string
}

func (e *DegenerateInputError) Error() string {
	return fmt.Sprintf("degenerate calibration input: %s", e.Reason)
}

// PointNotFoundError reports measurement operands that do not resolve to
// entities in the loaded model. Kind names the entity type ("point",
// "camera", "image").
type PointNotFoundError struct {
	Kind string
	IDs  []uint64
}

func (e *PointNotFoundError) Error() string {
	kind := e.Kind
	if kind == "" {
		kind = "point"
	}
	ids := make([]string, len(e.IDs))
	for i, id := range e.IDs {
		ids[i] = fmt.Sprintf("%d", id)
	}
	if len(ids) == 1 {
		return fmt.Sprintf("%s %s not found in reconstruction", kind, ids[0])
	}
	return fmt.Sprintf("%ss not found in reconstruction: %s", kind, strings.Join(ids, ", "))
}

// InsufficientPointsError reports too few operands for a fit.
type InsufficientPointsError struct {
	Got  int
	Need int
}

func (e *InsufficientPointsError) Error() string {
	return fmt.Sprintf("need at least %d points, got %d", e.Need, e.Got)
}

// UnsupportedFormatError reports an unknown export format.
type UnsupportedFormatError struct {
	Format string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported export format: %q", e.Format)
}

// NotFoundError reports a spatial query that matched nothing within its
// search radius.
type NotFoundError struct {
	Target      [3]float64
	MaxDistance float64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no point within %g of (%g, %g, %g)",
		e.MaxDistance, e.Target[0], e.Target[1], e.Target[2])
}
