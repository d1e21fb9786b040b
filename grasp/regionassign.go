package grasp

import (
	"github.com/pkg/errors"
)

// AddRegionAssignmentConstraints declares the disjunctive containment rows:
// whenever indicator z[r,j] is 1, contact j's position projected into region
// r's tangent frame must satisfy the footprint inequalities and lie within the
// plane tolerance band of region r's supporting plane. Each row carries the
// big-M term M*z so that z=0 relaxes it to vacuous. Every contact picks
// exactly one region and every region accepts at most one contact.
func (gf *Formulator) AddRegionAssignmentConstraints() error {
	if gf.added.assignment {
		return errors.New("region assignment constraints already added")
	}
	gf.added.assignment = true

	m := gf.model
	bigM := gf.opts.BigM
	tol := gf.opts.PlaneTolerance

	for r, reg := range gf.regions {
		t1, t2 := reg.TangentBasis()
		rows, _ := reg.A.Dims()
		nDotPoint := reg.Normal.Dot(reg.Point)
		for j, cv := range gf.contacts {
			zCol := gf.assignIndex(r, j)
			p := cv.position

			// footprint rows: A*(T(p - point)) <= b + M(1 - z)
			for i := 0; i < rows; i++ {
				a1, a2 := reg.A.At(i, 0), reg.A.At(i, 1)
				dir := t1.Mul(a1).Add(t2.Mul(a2))
				rhs := reg.B[i] + a1*t1.Dot(reg.Point) + a2*t2.Dot(reg.Point) + bigM
				if err := m.AddIneq(
					[]int{p.Index(0), p.Index(1), p.Index(2), zCol},
					[]float64{dir.X, dir.Y, dir.Z, bigM},
					rhs,
				); err != nil {
					return err
				}
				gf.wantIneq++
			}

			// plane band, an equality approximated from both sides:
			// normal.p <= normal.point + tol + M(1-z) and the negated row
			if err := m.AddIneq(
				[]int{p.Index(0), p.Index(1), p.Index(2), zCol},
				[]float64{reg.Normal.X, reg.Normal.Y, reg.Normal.Z, bigM},
				nDotPoint+tol+bigM,
			); err != nil {
				return err
			}
			if err := m.AddIneq(
				[]int{p.Index(0), p.Index(1), p.Index(2), zCol},
				[]float64{-reg.Normal.X, -reg.Normal.Y, -reg.Normal.Z, bigM},
				-nDotPoint+tol+bigM,
			); err != nil {
				return err
			}
			gf.wantIneq += 2
		}
	}

	// every contact selects exactly one region
	for j := range gf.contacts {
		cols := make([]int, len(gf.regions))
		vals := make([]float64, len(gf.regions))
		for r := range gf.regions {
			cols[r] = gf.assignIndex(r, j)
			vals[r] = 1
		}
		if err := m.AddEq(cols, vals, 1); err != nil {
			return err
		}
		gf.wantEq++
	}

	// every region accepts at most one contact
	for r := range gf.regions {
		cols := make([]int, len(gf.contacts))
		vals := make([]float64, len(gf.contacts))
		for j := range gf.contacts {
			cols[j] = gf.assignIndex(r, j)
			vals[j] = 1
		}
		if err := m.AddIneq(cols, vals, 1); err != nil {
			return err
		}
		gf.wantIneq++
	}

	return nil
}
