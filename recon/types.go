package recon

import "fmt"

// Standard file names of a sparse reconstruction directory.
const (
	CamerasFile  = "cameras.bin"
	ImagesFile   = "images.bin"
	Points3DFile = "points3D.bin"
)

// InvalidPoint3DID marks an image observation with no triangulated 3D point.
// The upstream mapper writes uint64(-1) for unmatched features.
const InvalidPoint3DID = ^uint64(0)

// cameraModelParams maps a camera model id to its intrinsic parameter count.
// Model ids follow the COLMAP convention:
//
//	0 SIMPLE_PINHOLE   f, cx, cy
//	1 PINHOLE          fx, fy, cx, cy
//	2 SIMPLE_RADIAL    f, cx, cy, k
//	3 RADIAL           f, cx, cy, k1, k2
//	4 OPENCV           fx, fy, cx, cy, k1, k2, p1, p2
//	5 OPENCV_FISHEYE
//	6 FULL_OPENCV
//	7 FOV
//	8 SIMPLE_RADIAL_FISHEYE
//	9 RADIAL_FISHEYE
//	10 THIN_PRISM_FISHEYE
var cameraModelParams = map[int32]int{
	0:  3,
	1:  4,
	2:  4,
	3:  5,
	4:  8,
	5:  8,
	6:  12,
	7:  10,
	8:  10,
	9:  11,
	10: 12,
}

// NumCameraParams returns the intrinsic parameter count for a camera model id.
// Unknown model ids fall back to 4 parameters.
func NumCameraParams(modelID int32) int {
	if n, ok := cameraModelParams[modelID]; ok {
		return n
	}
	return 4
}

// Camera holds the intrinsics of a physical camera. Params length is
// determined by the model id. Intrinsics are pixel-space quantities and are
// never touched by scale calibration.
type Camera struct {
	ID      uint32    `json:"id"`
	ModelID int32     `json:"model_id"`
	Width   uint64    `json:"width"`
	Height  uint64    `json:"height"`
	Params  []float64 `json:"params"`
}

// Observation is a single 2D feature detected in an image, optionally linked
// to a triangulated 3D point.
type Observation struct {
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Point3DID uint64  `json:"point3D_id"`
}

// HasPoint3D reports whether the observation was triangulated.
func (o Observation) HasPoint3D() bool {
	return o.Point3DID != InvalidPoint3DID
}

// Image is a registered camera pose plus its 2D observations. Rotation is a
// unit quaternion in scalar-first order (qw, qx, qy, qz).
type Image struct {
	ID           uint32        `json:"id"`
	Rotation     [4]float64    `json:"rotation"`
	Translation  [3]float64    `json:"translation"`
	CameraID     uint32        `json:"camera_id"`
	Name         string        `json:"name"`
	Observations []Observation `json:"observations"`
}

// TrackElement links a 3D point back to one observing image.
type TrackElement struct {
	ImageID      uint32 `json:"image_id"`
	Point2DIndex uint32 `json:"point2D_idx"`
}

// Point3D is a triangulated point with its color, reprojection error and
// observation track.
type Point3D struct {
	ID    uint64         `json:"id"`
	XYZ   [3]float64     `json:"xyz"`
	RGB   [3]uint8       `json:"rgb"`
	Error float64        `json:"error"`
	Track []TrackElement `json:"track"`
}

// Reconstruction is the in-memory graph of a sparse model: cameras, image
// poses and 3D points, keyed by id with file order preserved in the order
// slices. It is read-only after load except for ApplyScale.
type Reconstruction struct {
	Cameras  map[uint32]*Camera
	Images   map[uint32]*Image
	Points3D map[uint64]*Point3D

	// File order of the records, used for deterministic iteration and for
	// writing a model back out byte-compatible with its source.
	CameraOrder []uint32
	ImageOrder  []uint32
	PointOrder  []uint64
}

// NewReconstruction returns an empty reconstruction with initialized maps.
func NewReconstruction() *Reconstruction {
	return &Reconstruction{
		Cameras:  make(map[uint32]*Camera),
		Images:   make(map[uint32]*Image),
		Points3D: make(map[uint64]*Point3D),
	}
}

// Validate checks referential integrity: every image must reference a known
// camera and every track element a known image.
func (r *Reconstruction) Validate() error {
	for _, id := range r.ImageOrder {
		img := r.Images[id]
		if _, ok := r.Cameras[img.CameraID]; !ok {
			return fmt.Errorf("image %d references unknown camera %d", img.ID, img.CameraID)
		}
	}
	for _, id := range r.PointOrder {
		pt := r.Points3D[id]
		for _, te := range pt.Track {
			if _, ok := r.Images[te.ImageID]; !ok {
				return fmt.Errorf("point %d track references unknown image %d", pt.ID, te.ImageID)
			}
		}
	}
	return nil
}

// MeasurementKind identifies what a measurement represents.
type MeasurementKind string

const (
	KindDistance  MeasurementKind = "distance"
	KindAngle     MeasurementKind = "angle"
	KindThickness MeasurementKind = "thickness"
	KindRadius    MeasurementKind = "radius"
	KindInfo      MeasurementKind = "info"
)

// Measurement is one recorded measurement. Measurements are append-only and
// immutable after creation; ids increase monotonically per session.
type Measurement struct {
	ID       int             `json:"id"`
	Kind     MeasurementKind `json:"kind"`
	Label    string          `json:"label"`
	Point1ID uint64          `json:"point1_id,omitempty"`
	Point2ID uint64          `json:"point2_id,omitempty"`
	Point3ID uint64          `json:"point3_id,omitempty"`
	PointIDs []uint64        `json:"point_ids,omitempty"`

	Point1XYZ *[3]float64 `json:"point1_xyz,omitempty"`
	Point2XYZ *[3]float64 `json:"point2_xyz,omitempty"`

	DistanceMeters float64     `json:"distance_meters,omitempty"`
	DistanceCM     float64     `json:"distance_cm,omitempty"`
	DistanceMM     float64     `json:"distance_mm,omitempty"`
	AngleDegrees   float64     `json:"angle_degrees,omitempty"`
	RadiusMeters   float64     `json:"radius_meters,omitempty"`
	Center         *[3]float64 `json:"center,omitempty"`
	FitQuality     string      `json:"fit_quality,omitempty"`

	Scaled bool `json:"scaled"`
}

// PointInfo is the result of a point lookup: calibrated position, stored
// color and reprojection error. Normal is nil; surface-normal estimation is
// not implemented.
type PointInfo struct {
	ID       uint64      `json:"id"`
	Position [3]float64  `json:"position"`
	Normal   *[3]float64 `json:"normal"`
	RGB      [3]uint8    `json:"rgb"`
	Error    float64     `json:"error"`
	Track    int         `json:"track_length"`
}

// RadiusResult is the outcome of a circular-radius estimate. The radius is a
// centroid-distance approximation, not a least-squares circle fit.
type RadiusResult struct {
	RadiusMeters float64    `json:"radius_meters"`
	Center       [3]float64 `json:"center"`
	FitQuality   string     `json:"fit_quality"`
}
