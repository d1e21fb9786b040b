package grasp

import (
	"math"
	"math/rand"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"
)

// legValues computes the six auxiliary 2-vectors of one contact from its
// position and force, mirroring the equality rows the builder emits.
func legValues(p, f r3.Vector) (plus, min [3][2]float64) {
	pp := []float64{p.X, p.Y, p.Z}
	ff := []float64{f.X, f.Y, f.Z}
	for axis := 0; axis < 3; axis++ {
		i1, i2 := (axis+1)%3, (axis+2)%3
		plus[axis] = [2]float64{pp[i1] + ff[i2], pp[i2] - ff[i1]}
		min[axis] = [2]float64{pp[i1] - ff[i2], pp[i2] + ff[i1]}
	}
	return plus, min
}

// polygonSupport returns the smallest u satisfying the polygon rows for a leg.
func polygonSupport(leg [2]float64, sides int) float64 {
	normals, offsets := diskPolygon(sides)
	best := math.Inf(-1)
	for k := range offsets {
		v := (normals[k][0]*leg[0] + normals[k][1]*leg[1]) / offsets[k]
		if v > best {
			best = v
		}
	}
	return best
}

func TestLegIdentity(t *testing.T) {
	// (p x f)_k == (|leg_plus|^2 - |leg_min|^2)/4 for arbitrary p, f
	rnd := rand.New(rand.NewSource(42))
	for trial := 0; trial < 50; trial++ {
		p := r3.Vector{X: rnd.NormFloat64(), Y: rnd.NormFloat64(), Z: rnd.NormFloat64()}
		f := r3.Vector{X: rnd.NormFloat64(), Y: rnd.NormFloat64(), Z: rnd.NormFloat64()}
		cross := p.Cross(f)
		plus, min := legValues(p, f)
		want := []float64{cross.X, cross.Y, cross.Z}
		for axis := 0; axis < 3; axis++ {
			got := (plus[axis][0]*plus[axis][0] + plus[axis][1]*plus[axis][1] -
				min[axis][0]*min[axis][0] - min[axis][1]*min[axis][1]) / 4
			test.That(t, got, test.ShouldAlmostEqual, want[axis], 1e-9)
		}
	}
}

func TestLegEqualityRows(t *testing.T) {
	// the emitted equality rows hold whenever the legs carry their defining values
	for _, kind := range []Decomposition{LinearDecomposition, QuadraticDecomposition} {
		opts := DefaultOptions()
		opts.NumContacts = 1
		gf := newTestFormulator(t, cubeRegions(t), opts)
		test.That(t, gf.AddBilinearDecomposition(kind), test.ShouldBeNil)

		m := gf.Model()
		x := make([]float64, m.NumVars())
		x[gf.epsilon.Index(0)] = opts.MarginFloor
		p := r3.Vector{X: 0.3, Y: -1.2, Z: 0.7}
		f := r3.Vector{X: -0.4, Y: 0.9, Z: 0.2}
		cv := gf.contacts[0]
		setVec(x, cv.position, p.X, p.Y, p.Z)
		setVec(x, cv.force, f.X, f.Y, f.Z)
		plus, min := legValues(p, f)
		for axis := 0; axis < 3; axis++ {
			setVec(x, cv.legPlus[axis], plus[axis][0], plus[axis][1])
			setVec(x, cv.legMin[axis], min[axis][0], min[axis][1])
			// u large enough for either bound
			u := plus[axis][0]*plus[axis][0] + plus[axis][1]*plus[axis][1] + 1
			v := min[axis][0]*min[axis][0] + min[axis][1]*min[axis][1] + 1
			x[cv.uPlus.Index(axis)] = u
			x[cv.uMin.Index(axis)] = v
		}
		test.That(t, m.CheckFeasible(x, 1e-9), test.ShouldBeNil)

		// perturbing one leg breaks its equality row
		x[cv.legPlus[0].Index(0)] += 0.01
		test.That(t, m.CheckFeasible(x, 1e-9), test.ShouldNotBeNil)
	}
}

func TestQuadraticBoundTightness(t *testing.T) {
	opts := DefaultOptions()
	opts.NumContacts = 1
	gf := newTestFormulator(t, cubeRegions(t), opts)
	test.That(t, gf.AddBilinearDecomposition(QuadraticDecomposition), test.ShouldBeNil)

	m := gf.Model()
	x := make([]float64, m.NumVars())
	x[gf.epsilon.Index(0)] = opts.MarginFloor
	p := r3.Vector{X: 1, Y: 0.5, Z: -0.25}
	f := r3.Vector{X: -0.5, Y: 0.75, Z: 1}
	cv := gf.contacts[0]
	setVec(x, cv.position, p.X, p.Y, p.Z)
	setVec(x, cv.force, f.X, f.Y, f.Z)
	plus, min := legValues(p, f)
	for axis := 0; axis < 3; axis++ {
		setVec(x, cv.legPlus[axis], plus[axis][0], plus[axis][1])
		setVec(x, cv.legMin[axis], min[axis][0], min[axis][1])
		// |leg|^2 <= u holds with equality
		x[cv.uPlus.Index(axis)] = plus[axis][0]*plus[axis][0] + plus[axis][1]*plus[axis][1]
		x[cv.uMin.Index(axis)] = min[axis][0]*min[axis][0] + min[axis][1]*min[axis][1]
	}
	test.That(t, m.CheckFeasible(x, 1e-9), test.ShouldBeNil)

	// any slack below the squared norm violates the cone constraint
	x[cv.uPlus.Index(0)] -= 0.1
	test.That(t, m.CheckFeasible(x, 1e-9), test.ShouldNotBeNil)
}

func TestPolygonBoundMonotonicity(t *testing.T) {
	legs := [][2]float64{{0.3, 0.7}, {1, 0}, {-0.6, -0.45}, {0.9, 0.2}}
	for _, leg := range legs {
		norm := math.Hypot(leg[0], leg[1])
		u4 := polygonSupport(leg, 4)
		u8 := polygonSupport(leg, 8)
		u16 := polygonSupport(leg, 16)
		// the outer bound tightens toward the true norm as sides grow
		test.That(t, u4, test.ShouldBeLessThanOrEqualTo, u8+1e-12)
		test.That(t, u8, test.ShouldBeLessThanOrEqualTo, u16+1e-12)
		test.That(t, u16, test.ShouldBeLessThanOrEqualTo, norm+1e-12)
	}
	// error strictly shrinks for a leg off every polygon vertex axis
	leg := [2]float64{0.3, 0.7}
	norm := math.Hypot(leg[0], leg[1])
	test.That(t, norm-polygonSupport(leg, 16), test.ShouldBeLessThan, norm-polygonSupport(leg, 8))
	test.That(t, norm-polygonSupport(leg, 8), test.ShouldBeLessThan, norm-polygonSupport(leg, 4))
}

func TestPolygonRowsGateU(t *testing.T) {
	opts := DefaultOptions()
	opts.NumContacts = 1
	opts.PolygonSides = 8
	gf := newTestFormulator(t, cubeRegions(t), opts)
	test.That(t, gf.AddBilinearDecomposition(LinearDecomposition), test.ShouldBeNil)

	m := gf.Model()
	x := make([]float64, m.NumVars())
	x[gf.epsilon.Index(0)] = opts.MarginFloor
	p := r3.Vector{X: 0.5, Y: 0.5, Z: 0}
	f := r3.Vector{X: 0, Y: 0, Z: 1}
	cv := gf.contacts[0]
	setVec(x, cv.position, p.X, p.Y, p.Z)
	setVec(x, cv.force, f.X, f.Y, f.Z)
	plus, min := legValues(p, f)
	for axis := 0; axis < 3; axis++ {
		setVec(x, cv.legPlus[axis], plus[axis][0], plus[axis][1])
		setVec(x, cv.legMin[axis], min[axis][0], min[axis][1])
		x[cv.uPlus.Index(axis)] = polygonSupport(plus[axis], opts.PolygonSides)
		x[cv.uMin.Index(axis)] = polygonSupport(min[axis], opts.PolygonSides)
	}
	test.That(t, m.CheckFeasible(x, 1e-9), test.ShouldBeNil)

	// u below the polygon support violates the bound
	x[cv.uPlus.Index(0)] -= 0.05
	test.That(t, m.CheckFeasible(x, 1e-9), test.ShouldNotBeNil)
}
