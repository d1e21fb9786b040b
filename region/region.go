// Package region describes convex safe regions on an object surface: the
// planar patches a grasp contact may be placed on, together with generators
// for a few canonical object shapes.
package region

import (
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/graspplan/spatialmath"
)

// Region is a convex planar patch on an object surface. A and B describe the
// in-plane footprint A*s <= B in the local tangent coordinates
// s = (t1.(p - Point), t2.(p - Point)) where t1, t2 span the plane orthogonal
// to the outward Normal.
type Region struct {
	A      *mat.Dense
	B      []float64
	Point  r3.Vector
	Normal r3.Vector
}

// Validate performs the structural consistency checks the formulator relies
// on: a unit outward normal and a well-formed footprint system.
func (r *Region) Validate() error {
	var err error
	if !spatialmath.Float64AlmostEqual(r.Normal.Norm(), 1, 1e-9) {
		err = multierr.Append(err, errors.Errorf("region normal %v is not a unit vector", r.Normal))
	}
	if r.A == nil {
		return multierr.Append(err, errors.New("region has no footprint matrix"))
	}
	rows, cols := r.A.Dims()
	if cols != 2 {
		err = multierr.Append(err, errors.Errorf("footprint matrix has %d columns, want 2", cols))
	}
	if rows != len(r.B) {
		err = multierr.Append(err, errors.Errorf("footprint matrix has %d rows but offset vector has %d entries", rows, len(r.B)))
	}
	if rows == 0 {
		err = multierr.Append(err, errors.New("footprint matrix has no rows"))
	}
	return err
}

// TangentBasis returns the in-plane basis the footprint coordinates refer to.
func (r *Region) TangentBasis() (r3.Vector, r3.Vector) {
	return spatialmath.TangentBasis(r.Normal)
}

// LocalCoordinates projects a world point into the region's footprint frame.
func (r *Region) LocalCoordinates(p r3.Vector) (float64, float64) {
	t1, t2 := r.TangentBasis()
	d := p.Sub(r.Point)
	return t1.Dot(d), t2.Dot(d)
}

// Contains reports whether the world point satisfies the footprint
// inequalities and lies within tol of the supporting plane.
func (r *Region) Contains(p r3.Vector, tol float64) bool {
	if math.Abs(r.Normal.Dot(p)-r.Normal.Dot(r.Point)) > tol {
		return false
	}
	s1, s2 := r.LocalCoordinates(p)
	rows, _ := r.A.Dims()
	for i := 0; i < rows; i++ {
		if r.A.At(i, 0)*s1+r.A.At(i, 1)*s2 > r.B[i]+tol {
			return false
		}
	}
	return true
}

// squarePatch is the footprint of an axis-aligned square of the given half
// width in local tangent coordinates.
func squarePatch(half float64) (*mat.Dense, []float64) {
	a := mat.NewDense(4, 2, []float64{
		1, 0,
		-1, 0,
		0, 1,
		0, -1,
	})
	return a, []float64{half, half, half, half}
}
