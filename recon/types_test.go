package recon

import (
	"strings"
	"testing"
)

func TestNumCameraParams(t *testing.T) {
	tests := []struct {
		modelID int32
		want    int
	}{
		{0, 3},   // SIMPLE_PINHOLE
		{1, 4},   // PINHOLE
		{2, 4},   // SIMPLE_RADIAL
		{3, 5},   // RADIAL
		{4, 8},   // OPENCV
		{6, 12},  // FULL_OPENCV
		{10, 12}, // THIN_PRISM_FISHEYE
		{99, 4},  // unknown falls back to 4
		{-1, 4},
	}
	for _, tt := range tests {
		if got := NumCameraParams(tt.modelID); got != tt.want {
			t.Errorf("NumCameraParams(%d) = %d, want %d", tt.modelID, got, tt.want)
		}
	}
}

func TestObservationHasPoint3D(t *testing.T) {
	if (Observation{Point3DID: InvalidPoint3DID}).HasPoint3D() {
		t.Error("sentinel id must report no 3D point")
	}
	if !(Observation{Point3DID: 0}).HasPoint3D() {
		t.Error("id 0 is a valid point id")
	}
}

func TestValidate(t *testing.T) {
	r := testReconstruction()
	if err := r.Validate(); err != nil {
		t.Fatalf("valid model failed validation: %v", err)
	}

	r.Images[1].CameraID = 42
	if err := r.Validate(); err == nil || !strings.Contains(err.Error(), "unknown camera") {
		t.Errorf("err = %v, want unknown-camera error", err)
	}
	r.Images[1].CameraID = 1

	r.Points3D[1].Track = append(r.Points3D[1].Track, TrackElement{ImageID: 42})
	if err := r.Validate(); err == nil || !strings.Contains(err.Error(), "unknown image") {
		t.Errorf("err = %v, want unknown-image error", err)
	}
}
