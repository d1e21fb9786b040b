package grasp

import (
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
)

// ContactSolution is the planned placement of one finger.
type ContactSolution struct {
	Position r3.Vector
	Force    r3.Vector
	Region   int
	Alpha    float64
}

// GraspSolution is the per-finger assignment extracted from a solver point.
type GraspSolution struct {
	Contacts []ContactSolution
	Epsilon  float64
}

// ExtractSolution reads the per-contact positions, forces, and region
// assignments out of a variable vector over the model's global index space.
// The vector is expected to satisfy the model; run CheckFeasible first when
// the source is an external solver.
func (gf *Formulator) ExtractSolution(x []float64) (*GraspSolution, error) {
	if len(x) != gf.model.NumVars() {
		return nil, errors.Errorf("solution vector has %d entries, model has %d variables", len(x), gf.model.NumVars())
	}
	sol := &GraspSolution{Epsilon: x[gf.epsilon.Index(0)]}
	for j, cv := range gf.contacts {
		cs := ContactSolution{
			Position: r3.Vector{X: x[cv.position.Index(0)], Y: x[cv.position.Index(1)], Z: x[cv.position.Index(2)]},
			Force:    r3.Vector{X: x[cv.force.Index(0)], Y: x[cv.force.Index(1)], Z: x[cv.force.Index(2)]},
			Alpha:    x[cv.alpha.Index(0)],
			Region:   -1,
		}
		for r := range gf.regions {
			if math.Round(x[gf.assignIndex(r, j)]) == 1 {
				cs.Region = r
				break
			}
		}
		if cs.Region < 0 {
			return nil, errors.Errorf("contact %d has no region assignment in the solution vector", j)
		}
		sol.Contacts = append(sol.Contacts, cs)
	}
	return sol, nil
}
