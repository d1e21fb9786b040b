package grasp

import (
	"math"

	"github.com/pkg/errors"

	"go.viam.com/graspplan/miqcp"
)

// AddBilinearDecomposition rewrites the torque contribution p x f of each
// contact through the identity 4*x*y = (x+y)^2 - (x-y)^2. For each torque
// axis two auxiliary leg 2-vectors are tied to p and f by exact equality
// rows, so that (p x f)_k = (|leg_plus|^2 - |leg_min|^2)/4. The squared leg
// norms are then bounded from above by the u_plus/u_min variables, either by
// a polygonal outer approximation (LinearDecomposition) or by an exact convex
// quadratic constraint (QuadraticDecomposition), and a quadratic cost on u
// supplies the pressure pulling the bound down toward the true value.
func (gf *Formulator) AddBilinearDecomposition(kind Decomposition) error {
	if gf.decomposition != 0 {
		return ErrDecompositionChosen
	}
	if kind != LinearDecomposition && kind != QuadraticDecomposition {
		return errors.Errorf("unknown decomposition variant %d", kind)
	}
	gf.decomposition = kind

	m := gf.model
	for _, cv := range gf.contacts {
		if err := gf.addLegEqualities(cv); err != nil {
			return err
		}
		for axis := 0; axis < 3; axis++ {
			for _, leg := range []struct {
				blk  miqcp.Block
				uCol int
			}{
				{cv.legPlus[axis], cv.uPlus.Index(axis)},
				{cv.legMin[axis], cv.uMin.Index(axis)},
			} {
				var err error
				if kind == LinearDecomposition {
					err = gf.addPolygonBound(leg.blk, leg.uCol)
				} else {
					err = gf.addQuadraticBound(leg.blk, leg.uCol)
				}
				if err != nil {
					return err
				}
			}
		}
		// minimize q_u * (|u_plus|^2 + |u_min|^2)
		quad := make([]miqcp.QuadTerm, 0, 6)
		for axis := 0; axis < 3; axis++ {
			quad = append(quad,
				miqcp.QuadTerm{I: cv.uPlus.Index(axis), J: cv.uPlus.Index(axis), Val: gf.opts.QU},
				miqcp.QuadTerm{I: cv.uMin.Index(axis), J: cv.uMin.Index(axis), Val: gf.opts.QU},
			)
		}
		if err := m.AddQuadraticCost(quad, nil, nil, 0); err != nil {
			return err
		}
	}
	return nil
}

// addLegEqualities ties the six auxiliary 2-vectors of a contact to its
// position and force. For torque axis k with cyclic indices (i1, i2):
// leg_plus = (p_i1 + f_i2, p_i2 - f_i1), leg_min = (p_i1 - f_i2, p_i2 + f_i1).
func (gf *Formulator) addLegEqualities(cv contactVars) error {
	m := gf.model
	for axis := 0; axis < 3; axis++ {
		i1, i2 := (axis+1)%3, (axis+2)%3
		rows := []struct {
			legCol int
			pCol   int
			fCol   int
			fSign  float64
		}{
			{cv.legPlus[axis].Index(0), cv.position.Index(i1), cv.force.Index(i2), 1},
			{cv.legPlus[axis].Index(1), cv.position.Index(i2), cv.force.Index(i1), -1},
			{cv.legMin[axis].Index(0), cv.position.Index(i1), cv.force.Index(i2), -1},
			{cv.legMin[axis].Index(1), cv.position.Index(i2), cv.force.Index(i1), 1},
		}
		for _, r := range rows {
			if err := m.AddEq(
				[]int{r.legCol, r.pCol, r.fCol},
				[]float64{1, -1, -r.fSign},
				0,
			); err != nil {
				return err
			}
			gf.wantEq++
		}
	}
	return nil
}

// addPolygonBound emits the polygon rows As*leg <= bs*u outer-approximating
// the disk of radius u around the origin of the leg plane.
func (gf *Formulator) addPolygonBound(leg miqcp.Block, uCol int) error {
	normals, offsets := diskPolygon(gf.opts.PolygonSides)
	for k := range offsets {
		if err := gf.model.AddIneq(
			[]int{leg.Index(0), leg.Index(1), uCol},
			[]float64{normals[k][0], normals[k][1], -offsets[k]},
			0,
		); err != nil {
			return err
		}
		gf.wantIneq++
	}
	return nil
}

// addQuadraticBound emits the exact cone constraint |leg|^2 <= u.
func (gf *Formulator) addQuadraticBound(leg miqcp.Block, uCol int) error {
	if err := gf.model.AddQuadraticConstraint(
		[]miqcp.QuadTerm{
			{I: leg.Index(0), J: leg.Index(0), Val: 1},
			{I: leg.Index(1), J: leg.Index(1), Val: 1},
		},
		[]int{uCol},
		[]float64{-1},
		0,
	); err != nil {
		return err
	}
	gf.wantQuad++
	return nil
}

// diskPolygon returns the edge normals and support offsets of a regular
// polygon around the unit disk. The square and octagon use their closed
// forms; any other side count is generated from uniformly spaced points on
// the unit circle.
func diskPolygon(sides int) ([][2]float64, []float64) {
	switch sides {
	case 4:
		return [][2]float64{{1, 0}, {0, 1}, {-1, 0}, {0, -1}}, []float64{1, 1, 1, 1}
	case 8:
		h := math.Sqrt2 / 2
		return [][2]float64{
			{1, 0}, {h, h}, {0, 1}, {-h, h}, {-1, 0}, {-h, -h}, {0, -1}, {h, -h},
		}, []float64{1, 1, 1, 1, 1, 1, 1, 1}
	default:
		normals := make([][2]float64, sides)
		offsets := make([]float64, sides)
		for k := 0; k < sides; k++ {
			theta := 2 * math.Pi * float64(k) / float64(sides)
			normals[k] = [2]float64{math.Cos(theta), math.Sin(theta)}
			offsets[k] = 1
		}
		return normals, offsets
	}
}
