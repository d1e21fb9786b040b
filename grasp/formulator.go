// Package grasp formulates grasp planning as a mixed-integer quadratically
// constrained program: pick a contact point and contact force per finger such
// that every contact sits inside one convex safe region, the contact forces
// achieve force closure, each force stays inside its region's friction cone,
// and the fingers remain kinematically separated. The package only builds the
// optimization model; solving it is the job of a numerical MIQCP engine.
package grasp

import (
	"fmt"
	"math"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"go.viam.com/graspplan/miqcp"
	"go.viam.com/graspplan/region"
)

// Decomposition selects how the bilinear cross-product term in the torque
// balance is convexified. Exactly one variant may be added per formulator;
// both bound the same auxiliary variables.
type Decomposition int

// The two decomposition variants.
const (
	// LinearDecomposition outer-approximates each decomposition disk by a
	// polygon, keeping the model a MILP at the price of approximation error.
	LinearDecomposition Decomposition = iota + 1
	// QuadraticDecomposition bounds each decomposition term by an exact convex
	// quadratic constraint, requiring a MIQCP-capable solver.
	QuadraticDecomposition
)

// Formulation precondition errors.
var (
	ErrNoRegions           = errors.New("no safe regions supplied")
	ErrTooFewRegions       = errors.New("fewer safe regions than contacts: the per-region cap makes assignment infeasible")
	ErrDecompositionChosen = errors.New("a bilinear decomposition variant was already added")
)

// contactVars holds the variable blocks owned by one contact.
type contactVars struct {
	position miqcp.Block // 3-vector p
	force    miqcp.Block // 3-vector f
	alpha    miqcp.Block // scalar cone margin slack
	lambda   miqcp.Block // friction cone edge weights

	// decomposition legs by torque axis: legPlus[0] is a+, [1] is b+, [2] is c+.
	legPlus [3]miqcp.Block
	legMin  [3]miqcp.Block
	uPlus   miqcp.Block // 3-vector convex part of the cross product split
	uMin    miqcp.Block // 3-vector concave part
}

// Formulator declares all grasp-specific variables on a model and emits the
// five constraint groups. Builders may run in any order compatible with their
// variable dependencies; each may run only once.
type Formulator struct {
	model   *miqcp.Model
	regions []region.Region
	opts    Options
	logger  golog.Logger

	contacts []contactVars
	assign   miqcp.Block // binary indicator matrix, row major [region, contact]
	epsilon  miqcp.Block // shared worst-case margin

	decomposition Decomposition
	added         struct {
		assignment bool
		closure    bool
		separation bool
		cone       bool
	}

	// expected row counts, audited by Finalize
	wantIneq int
	wantEq   int
	wantQuad int
}

// NewFormulator validates the regions and options, then declares every
// variable block of the grasp model on the given model builder.
func NewFormulator(model *miqcp.Model, regions []region.Region, opts Options, logger golog.Logger) (*Formulator, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if len(regions) == 0 {
		return nil, ErrNoRegions
	}
	if len(regions) < opts.NumContacts {
		return nil, errors.Wrapf(ErrTooFewRegions, "%d regions, %d contacts", len(regions), opts.NumContacts)
	}
	var rerr error
	for i := range regions {
		if err := regions[i].Validate(); err != nil {
			rerr = multierr.Append(rerr, errors.Wrapf(err, "region %d", i))
		}
	}
	if rerr != nil {
		return nil, rerr
	}

	gf := &Formulator{model: model, regions: regions, opts: opts, logger: logger}

	inf := math.Inf(1)
	var err error
	gf.epsilon, err = model.AddVariables("epsilon", miqcp.Continuous, 1, opts.MarginFloor, inf)
	if err != nil {
		return nil, err
	}
	gf.assign, err = model.AddVariables("region_assignment", miqcp.Binary, len(regions)*opts.NumContacts, 0, 1)
	if err != nil {
		return nil, err
	}
	legNames := []string{"a", "b", "c"}
	for j := 0; j < opts.NumContacts; j++ {
		var cv contactVars
		declare := func(suffix string, kind miqcp.VarKind, n int, lb, ub float64) miqcp.Block {
			if err != nil {
				return miqcp.Block{}
			}
			var blk miqcp.Block
			blk, err = model.AddVariables(fmt.Sprintf("contact%d_%s", j, suffix), kind, n, lb, ub)
			return blk
		}
		cv.position = declare("position", miqcp.Continuous, 3, -inf, inf)
		cv.force = declare("force", miqcp.Continuous, 3, -inf, inf)
		cv.alpha = declare("alpha", miqcp.Continuous, 1, 0, inf)
		cv.lambda = declare("lambda", miqcp.Continuous, opts.NumConeEdges, 0, inf)
		for axis := 0; axis < 3; axis++ {
			cv.legPlus[axis] = declare(legNames[axis]+"_plus", miqcp.Continuous, 2, -inf, inf)
			cv.legMin[axis] = declare(legNames[axis]+"_min", miqcp.Continuous, 2, -inf, inf)
		}
		cv.uPlus = declare("u_plus", miqcp.Continuous, 3, 0, inf)
		cv.uMin = declare("u_min", miqcp.Continuous, 3, 0, inf)
		if err != nil {
			return nil, err
		}
		gf.contacts = append(gf.contacts, cv)
	}
	return gf, nil
}

// Model returns the underlying model builder.
func (gf *Formulator) Model() *miqcp.Model { return gf.model }

// NumContacts returns the configured finger count.
func (gf *Formulator) NumContacts() int { return gf.opts.NumContacts }

// Regions returns the safe regions the formulator was built over.
func (gf *Formulator) Regions() []region.Region { return gf.regions }

// assignIndex returns the global column of the indicator for contact j on region r.
func (gf *Formulator) assignIndex(r, j int) int {
	return gf.assign.Index(r*gf.opts.NumContacts + j)
}

// BuildAll runs every constraint builder with the chosen decomposition and
// audits the assembled model.
func (gf *Formulator) BuildAll(kind Decomposition) error {
	if err := gf.AddRegionAssignmentConstraints(); err != nil {
		return err
	}
	if err := gf.AddBilinearDecomposition(kind); err != nil {
		return err
	}
	if err := gf.AddForceClosureConstraints(); err != nil {
		return err
	}
	if err := gf.AddKinematicSeparationConstraints(); err != nil {
		return err
	}
	if err := gf.AddFrictionConeConstraints(); err != nil {
		return err
	}
	return gf.Finalize()
}

// Finalize audits the assembled model against the row counts the builders
// expected from their loop bounds.
func (gf *Formulator) Finalize() error {
	var err error
	if got := gf.model.NumIneq(); got != gf.wantIneq {
		err = multierr.Append(err, errors.Errorf("inequality row audit failed: model has %d rows, builders emitted %d", got, gf.wantIneq))
	}
	if got := gf.model.NumEq(); got != gf.wantEq {
		err = multierr.Append(err, errors.Errorf("equality row audit failed: model has %d rows, builders emitted %d", got, gf.wantEq))
	}
	if got := gf.model.NumQuadConstraints(); got != gf.wantQuad {
		err = multierr.Append(err, errors.Errorf("quadratic constraint audit failed: model has %d, builders emitted %d", got, gf.wantQuad))
	}
	if err != nil {
		return err
	}
	gf.logger.Debugf(
		"grasp model assembled: %d variables, %d inequality rows, %d equality rows, %d quadratic constraints",
		gf.model.NumVars(), gf.model.NumIneq(), gf.model.NumEq(), gf.model.NumQuadConstraints(),
	)
	return nil
}
