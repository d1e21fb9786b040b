package grasp

import (
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"go.viam.com/graspplan/region"
	"go.viam.com/graspplan/spatialmath"
)

// ConeEdges returns the discretized friction cone rays of a region: numEdges
// directions evenly spaced in angle around the cone axis, each with tangential
// magnitude mu and unit axial component. The cone opens along the grasping
// direction, into the surface, so the canonical +Z cone is rotated onto the
// negated outward normal.
func ConeEdges(reg *region.Region, mu float64, numEdges int) []r3.Vector {
	axis := reg.Normal.Mul(-1)
	rot := spatialmath.RotationBetweenVectors(r3.Vector{Z: 1}, axis)
	edges := make([]r3.Vector, 0, numEdges)
	for k := 0; k < numEdges; k++ {
		phi := 2 * math.Pi * float64(k) / float64(numEdges)
		edges = append(edges, rot.Apply(r3.Vector{X: mu * math.Cos(phi), Y: mu * math.Sin(phi), Z: 1}))
	}
	return edges
}

// AddFrictionConeConstraints emits, for every region r and contact j, the
// big-M gated two-sided block forcing the contact force to equal a
// non-negative combination of region r's cone rays plus the margin term
// alpha along the cone axis whenever z[r,j] is 1, together with the gated cap
// on the inward normal force. Every contact's margin slack is tied above the
// shared epsilon, which is itself floored at the configured minimum; with
// MaximizeMargin set, a -q_cws*epsilon reward joins the objective.
func (gf *Formulator) AddFrictionConeConstraints() error {
	if gf.added.cone {
		return errors.New("friction cone constraints already added")
	}
	gf.added.cone = true

	m := gf.model
	bigM := gf.opts.BigM

	for r := range gf.regions {
		reg := &gf.regions[r]
		edges := ConeEdges(reg, gf.opts.Mu, gf.opts.NumConeEdges)
		axis := reg.Normal.Mul(-1)
		for j, cv := range gf.contacts {
			zCol := gf.assignIndex(r, j)

			// f - sum(lambda*edge) - alpha*axis, bounded by +-M(1-z)
			for comp := 0; comp < 3; comp++ {
				cols := make([]int, 0, gf.opts.NumConeEdges+3)
				vals := make([]float64, 0, gf.opts.NumConeEdges+3)
				cols = append(cols, cv.force.Index(comp))
				vals = append(vals, 1)
				for k, e := range edges {
					cols = append(cols, cv.lambda.Index(k))
					vals = append(vals, -component(e, comp))
				}
				cols = append(cols, cv.alpha.Index(0))
				vals = append(vals, -component(axis, comp))

				upper := append(append([]int{}, cols...), zCol)
				upperVals := append(append([]float64{}, vals...), bigM)
				if err := m.AddIneq(upper, upperVals, bigM); err != nil {
					return err
				}
				lower := append(cols, zCol)
				lowerVals := make([]float64, len(vals)+1)
				for i, v := range vals {
					lowerVals[i] = -v
				}
				lowerVals[len(vals)] = bigM
				if err := m.AddIneq(lower, lowerVals, bigM); err != nil {
					return err
				}
				gf.wantIneq += 2
			}

			// inward normal force cap: axis.f <= tau_max + M(1-z)
			if err := m.AddIneq(
				[]int{cv.force.Index(0), cv.force.Index(1), cv.force.Index(2), zCol},
				[]float64{axis.X, axis.Y, axis.Z, bigM},
				gf.opts.TauMax+bigM,
			); err != nil {
				return err
			}
			gf.wantIneq++
		}
	}

	// epsilon <= alpha_j ties the shared margin below every contact's slack
	for _, cv := range gf.contacts {
		if err := m.AddIneq(
			[]int{gf.epsilon.Index(0), cv.alpha.Index(0)},
			[]float64{1, -1},
			0,
		); err != nil {
			return err
		}
		gf.wantIneq++
	}

	if gf.opts.MaximizeMargin {
		if err := m.AddQuadraticCost(nil, []int{gf.epsilon.Index(0)}, []float64{-gf.opts.QCws}, 0); err != nil {
			return err
		}
	}
	return nil
}

func component(v r3.Vector, i int) float64 {
	switch i {
	case 0:
		return v.X
	case 1:
		return v.Y
	default:
		return v.Z
	}
}
