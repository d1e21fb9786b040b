// Package spatialmath provides the small set of vector and rotation helpers
// needed to express contact geometry: orthonormal tangent bases for surface
// patches and rotations aligning one direction with another.
package spatialmath

import (
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"
)

// RotationMatrix is a 3x3 rotation matrix in row major order.
type RotationMatrix [9]float64

// Row returns the a 3 vector corresponding to the given row index.
func (rm *RotationMatrix) Row(i int) r3.Vector {
	return r3.Vector{X: rm[3*i], Y: rm[3*i+1], Z: rm[3*i+2]}
}

// Apply rotates the given vector.
func (rm *RotationMatrix) Apply(v r3.Vector) r3.Vector {
	return r3.Vector{
		X: rm[0]*v.X + rm[1]*v.Y + rm[2]*v.Z,
		Y: rm[3]*v.X + rm[4]*v.Y + rm[5]*v.Z,
		Z: rm[6]*v.X + rm[7]*v.Y + rm[8]*v.Z,
	}
}

// QuatToRotationMatrix converts a unit quaternion to a rotation matrix.
func QuatToRotationMatrix(q quat.Number) *RotationMatrix {
	w, x, y, z := q.Real, q.Imag, q.Jmag, q.Kmag
	return &RotationMatrix{
		1 - 2*y*y - 2*z*z, 2*x*y - 2*z*w, 2*x*z + 2*y*w,
		2*x*y + 2*z*w, 1 - 2*x*x - 2*z*z, 2*y*z - 2*x*w,
		2*x*z - 2*y*w, 2*y*z + 2*x*w, 1 - 2*x*x - 2*y*y,
	}
}

// RotationBetweenVectors returns the rotation taking the direction of a onto the
// direction of b. When the vectors are antiparallel the rotation is a half turn
// about an arbitrary axis orthogonal to a.
func RotationBetweenVectors(a, b r3.Vector) *RotationMatrix {
	a = a.Normalize()
	b = b.Normalize()
	dot := a.Dot(b)
	if dot < -1+defaultAngleEpsilon {
		// antiparallel, pick any orthogonal axis for the half turn
		axis, _ := TangentBasis(a)
		return QuatToRotationMatrix(quat.Number{Real: 0, Imag: axis.X, Jmag: axis.Y, Kmag: axis.Z})
	}
	// half angle quaternion from the unnormalized bisector
	cross := a.Cross(b)
	q := quat.Number{Real: 1 + dot, Imag: cross.X, Jmag: cross.Y, Kmag: cross.Z}
	n := math.Sqrt(q.Real*q.Real + q.Imag*q.Imag + q.Jmag*q.Jmag + q.Kmag*q.Kmag)
	q.Real /= n
	q.Imag /= n
	q.Jmag /= n
	q.Kmag /= n
	return QuatToRotationMatrix(q)
}
