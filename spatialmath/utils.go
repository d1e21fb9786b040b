package spatialmath

import (
	"math"

	"github.com/golang/geo/r3"
)

const defaultAngleEpsilon = 1e-10

// Float64AlmostEqual determines if two float64s are within a given tolerance of each other.
func Float64AlmostEqual(v1, v2, epsilon float64) bool {
	return math.Abs(v1-v2) <= epsilon
}

// R3VectorAlmostEqual determines if two r3 vectors are within a given tolerance of each other in each dimension.
func R3VectorAlmostEqual(a, b r3.Vector, epsilon float64) bool {
	return math.Abs(a.X-b.X) <= epsilon && math.Abs(a.Y-b.Y) <= epsilon && math.Abs(a.Z-b.Z) <= epsilon
}

// TangentBasis returns two orthonormal vectors spanning the plane orthogonal to
// the given normal. The normal need not be unit length but may not be zero.
func TangentBasis(normal r3.Vector) (r3.Vector, r3.Vector) {
	n := normal.Normalize()
	// seed with the world axis least aligned with the normal
	ax, ay, az := math.Abs(n.X), math.Abs(n.Y), math.Abs(n.Z)
	seed := r3.Vector{X: 1}
	switch {
	case ay <= ax && ay <= az:
		seed = r3.Vector{Y: 1}
	case az <= ax && az <= ay:
		seed = r3.Vector{Z: 1}
	}
	t1 := n.Cross(seed).Normalize()
	t2 := n.Cross(t1)
	return t1, t2
}
