package grasp

import (
	"testing"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.viam.com/test"

	"go.viam.com/graspplan/miqcp"
	"go.viam.com/graspplan/region"
)

func cubeRegions(t *testing.T) []region.Region {
	t.Helper()
	regions, err := region.CubeFaces(1, 0.5)
	test.That(t, err, test.ShouldBeNil)
	return regions
}

func newTestFormulator(t *testing.T, regions []region.Region, opts Options) *Formulator {
	t.Helper()
	gf, err := NewFormulator(miqcp.NewModel(), regions, opts, golog.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	return gf
}

func setVec(x []float64, blk miqcp.Block, vals ...float64) {
	for i, v := range vals {
		x[blk.Index(i)] = v
	}
}

func TestNewFormulatorDeclaresVariables(t *testing.T) {
	gf := newTestFormulator(t, cubeRegions(t), DefaultOptions())
	m := gf.Model()

	// epsilon + 6*3 indicators + per contact 3+3+1+4+12+3+3
	test.That(t, m.NumVars(), test.ShouldEqual, 1+18+3*29)
	test.That(t, gf.NumContacts(), test.ShouldEqual, 3)
	test.That(t, gf.Regions(), test.ShouldHaveLength, 6)

	blk, ok := m.VarBlock("contact0_position")
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, blk.Len(), test.ShouldEqual, 3)
	_, ok = m.VarBlock("contact2_u_min")
	test.That(t, ok, test.ShouldBeTrue)
	_, ok = m.VarBlock("contact3_position")
	test.That(t, ok, test.ShouldBeFalse)

	// epsilon floored at the margin minimum, indicators binary
	lb, _ := m.Bounds(gf.epsilon.Index(0))
	test.That(t, lb, test.ShouldEqual, DefaultOptions().MarginFloor)
	test.That(t, m.Kind(gf.assignIndex(0, 0)), test.ShouldEqual, miqcp.Binary)
}

func TestNewFormulatorPreconditions(t *testing.T) {
	logger := golog.NewTestLogger(t)

	_, err := NewFormulator(miqcp.NewModel(), nil, DefaultOptions(), logger)
	test.That(t, err, test.ShouldEqual, ErrNoRegions)

	// fewer regions than contacts is rejected up front rather than left to
	// solver infeasibility
	two := cubeRegions(t)[:2]
	_, err = NewFormulator(miqcp.NewModel(), two, DefaultOptions(), logger)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, errors.Is(err, ErrTooFewRegions), test.ShouldBeTrue)

	bad := cubeRegions(t)
	bad[3].Normal = r3.Vector{X: 2}
	_, err = NewFormulator(miqcp.NewModel(), bad, DefaultOptions(), logger)
	test.That(t, err, test.ShouldNotBeNil)

	opts := DefaultOptions()
	opts.NumContacts = 0
	_, err = NewFormulator(miqcp.NewModel(), cubeRegions(t), opts, logger)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestBuildersRunOnce(t *testing.T) {
	gf := newTestFormulator(t, cubeRegions(t), DefaultOptions())
	test.That(t, gf.AddRegionAssignmentConstraints(), test.ShouldBeNil)
	test.That(t, gf.AddRegionAssignmentConstraints(), test.ShouldNotBeNil)
	test.That(t, gf.AddForceClosureConstraints(), test.ShouldBeNil)
	test.That(t, gf.AddForceClosureConstraints(), test.ShouldNotBeNil)
	test.That(t, gf.AddKinematicSeparationConstraints(), test.ShouldBeNil)
	test.That(t, gf.AddKinematicSeparationConstraints(), test.ShouldNotBeNil)
	test.That(t, gf.AddFrictionConeConstraints(), test.ShouldBeNil)
	test.That(t, gf.AddFrictionConeConstraints(), test.ShouldNotBeNil)
	test.That(t, gf.AddBilinearDecomposition(LinearDecomposition), test.ShouldBeNil)
	test.That(t, gf.AddBilinearDecomposition(QuadraticDecomposition), test.ShouldEqual, ErrDecompositionChosen)
	test.That(t, gf.Finalize(), test.ShouldBeNil)
}

func TestBuildAllRowCounts(t *testing.T) {
	// with 6 regions, 3 contacts, 4 footprint rows, 4 cone edges, 8 sides:
	// assignment 6*3*(4+2)+6, separation 3*8, cone 6*3*7+3, polygon 3*6*8
	gf := newTestFormulator(t, cubeRegions(t), DefaultOptions())
	test.That(t, gf.BuildAll(LinearDecomposition), test.ShouldBeNil)
	m := gf.Model()
	test.That(t, m.NumIneq(), test.ShouldEqual, 114+24+129+144)
	test.That(t, m.NumEq(), test.ShouldEqual, 3+6+36)
	test.That(t, m.NumQuadConstraints(), test.ShouldEqual, 0)
	test.That(t, m.HasQuadraticCost(), test.ShouldBeTrue)

	gf2 := newTestFormulator(t, cubeRegions(t), DefaultOptions())
	test.That(t, gf2.BuildAll(QuadraticDecomposition), test.ShouldBeNil)
	m2 := gf2.Model()
	test.That(t, m2.NumIneq(), test.ShouldEqual, 114+24+129)
	test.That(t, m2.NumEq(), test.ShouldEqual, 3+6+36)
	test.That(t, m2.NumQuadConstraints(), test.ShouldEqual, 18)
}

func TestOptionsFromAttributes(t *testing.T) {
	opts, err := OptionsFromAttributes(map[string]interface{}{
		"num_contacts": 4,
		"mu_object":    0.6,
		"sides":        16,
		"q_u":          2.5,
	})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, opts.NumContacts, test.ShouldEqual, 4)
	test.That(t, opts.Mu, test.ShouldAlmostEqual, 0.6)
	test.That(t, opts.PolygonSides, test.ShouldEqual, 16)
	test.That(t, opts.QU, test.ShouldAlmostEqual, 2.5)
	// untouched fields keep their defaults
	test.That(t, opts.NumConeEdges, test.ShouldEqual, defaultNumConeEdges)
	test.That(t, opts.BigM, test.ShouldAlmostEqual, defaultBigM)

	_, err = OptionsFromAttributes(map[string]interface{}{"no_such_option": 1})
	test.That(t, err, test.ShouldNotBeNil)
	_, err = OptionsFromAttributes(map[string]interface{}{"mu_object": -1})
	test.That(t, err, test.ShouldNotBeNil)
}

func TestOptionsValidate(t *testing.T) {
	test.That(t, DefaultOptions().Validate(), test.ShouldBeNil)
	for _, mutate := range []func(*Options){
		func(o *Options) { o.NumContacts = 0 },
		func(o *Options) { o.Mu = 0 },
		func(o *Options) { o.NumConeEdges = 2 },
		func(o *Options) { o.TauMax = 0 },
		func(o *Options) { o.MarginFloor = -0.1 },
		func(o *Options) { o.PolygonSides = 2 },
		func(o *Options) { o.BigM = 0 },
		func(o *Options) { o.MaxSeparation = 0 },
		func(o *Options) { o.PlaneTolerance = 0 },
	} {
		opts := DefaultOptions()
		mutate(&opts)
		test.That(t, opts.Validate(), test.ShouldNotBeNil)
	}
}
