package grasp

import "github.com/pkg/errors"

// AddKinematicSeparationConstraints bounds the offset between every pair of
// contacts along all eight octahedral directions: for signs s in {-1,1}^3,
// s.(p_j - p_i) <= d_max. This is a coarse convex stand-in for finger
// separation limits, not an exact minimum-distance constraint.
func (gf *Formulator) AddKinematicSeparationConstraints() error {
	if gf.added.separation {
		return errors.New("kinematic separation constraints already added")
	}
	gf.added.separation = true

	m := gf.model
	dMax := gf.opts.MaxSeparation
	for j := 0; j < len(gf.contacts); j++ {
		for i := j + 1; i < len(gf.contacts); i++ {
			pj, pi := gf.contacts[j].position, gf.contacts[i].position
			for mask := 0; mask < 8; mask++ {
				cols := make([]int, 0, 6)
				vals := make([]float64, 0, 6)
				for axis := 0; axis < 3; axis++ {
					sign := 1.
					if mask&(1<<axis) != 0 {
						sign = -1.
					}
					cols = append(cols, pj.Index(axis), pi.Index(axis))
					vals = append(vals, sign, -sign)
				}
				if err := m.AddIneq(cols, vals, dMax); err != nil {
					return err
				}
				gf.wantIneq++
			}
		}
	}
	return nil
}
