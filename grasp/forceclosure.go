package grasp

import "github.com/pkg/errors"

// AddForceClosureConstraints emits the two global equilibrium blocks: the
// contact forces sum to zero, and the decomposed cross-product contributions
// (u_plus - u_min)/4 sum to zero as the linearized torque balance.
func (gf *Formulator) AddForceClosureConstraints() error {
	if gf.added.closure {
		return errors.New("force closure constraints already added")
	}
	gf.added.closure = true

	m := gf.model
	for axis := 0; axis < 3; axis++ {
		cols := make([]int, 0, len(gf.contacts))
		vals := make([]float64, 0, len(gf.contacts))
		for _, cv := range gf.contacts {
			cols = append(cols, cv.force.Index(axis))
			vals = append(vals, 1)
		}
		if err := m.AddEq(cols, vals, 0); err != nil {
			return err
		}
		gf.wantEq++
	}
	for axis := 0; axis < 3; axis++ {
		cols := make([]int, 0, 2*len(gf.contacts))
		vals := make([]float64, 0, 2*len(gf.contacts))
		for _, cv := range gf.contacts {
			cols = append(cols, cv.uPlus.Index(axis), cv.uMin.Index(axis))
			vals = append(vals, 0.25, -0.25)
		}
		if err := m.AddEq(cols, vals, 0); err != nil {
			return err
		}
		gf.wantEq++
	}
	return nil
}
