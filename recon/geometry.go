package recon

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Distance returns the Euclidean distance between two 3D positions.
func Distance(a, b [3]float64) float64 {
	return floats.Distance(a[:], b[:], 2)
}

// Sub returns a - b.
func Sub(a, b [3]float64) [3]float64 {
	return [3]float64{a[0] - b[0], a[1] - b[1], a[2] - b[2]}
}

// Norm returns the Euclidean length of v.
func Norm(v [3]float64) float64 {
	return floats.Norm(v[:], 2)
}

// AngleDegrees returns the angle at vertex b formed by a and c, in degrees.
// The cosine is clamped to [-1, 1] before acos: near-parallel or
// antiparallel vectors can overshoot the interval by a few ulps and acos
// would return NaN. Symmetric in a and c. Returns false if either arm has
// zero length.
func AngleDegrees(a, b, c [3]float64) (float64, bool) {
	v1 := Sub(a, b)
	v2 := Sub(c, b)
	n1 := Norm(v1)
	n2 := Norm(v2)
	if n1 == 0 || n2 == 0 {
		return 0, false
	}
	cos := floats.Dot(v1[:], v2[:]) / (n1 * n2)
	cos = math.Max(-1, math.Min(1, cos))
	return math.Acos(cos) * 180 / math.Pi, true
}

// Centroid returns the arithmetic mean of the given positions.
func Centroid(points [][3]float64) [3]float64 {
	var c [3]float64
	if len(points) == 0 {
		return c
	}
	for _, p := range points {
		for i := range c {
			c[i] += p[i]
		}
	}
	n := float64(len(points))
	for i := range c {
		c[i] /= n
	}
	return c
}
