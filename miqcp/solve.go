package miqcp

import (
	"context"
	"math"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"
)

// Solver errors.
var (
	ErrRequiresQCQPSolver = errors.New("model has quadratic cost or constraints and requires an external QCQP solver")
	ErrInfeasible         = errors.New("model has no feasible solution")
	ErrNoIntegerSolution  = errors.New("no integer feasible solution found")
	errNodeLimit          = errors.New("branch and bound node limit reached")
)

const (
	intTol      = 1e-6
	maxBnBNodes = 100000
)

// Solution is the result of a successful solve.
type Solution struct {
	X    []float64
	Cost float64
}

// branchRow is one branching cut factor*x[col] <= rhs.
type branchRow struct {
	col    int
	factor float64
	rhs    float64
}

// Solve minimizes the model's linear objective over its linear constraints and
// integrality conditions by branch and bound on the LP relaxation. Models
// carrying quadratic cost terms or quadratic constraints are out of reach of
// the embedded simplex and return ErrRequiresQCQPSolver.
func (m *Model) Solve(ctx context.Context, logger golog.Logger) (*Solution, error) {
	if m.HasQuadraticCost() || len(m.quadCons) > 0 {
		return nil, ErrRequiresQCQPSolver
	}

	root, rootCost, err := m.solveRelaxation(nil)
	if err != nil {
		if errors.Is(err, lp.ErrInfeasible) {
			return nil, ErrInfeasible
		}
		return nil, err
	}

	if col := m.firstFractionalBinary(root); col < 0 {
		return &Solution{X: root, Cost: rootCost + m.costConst}, nil
	}

	var incumbent []float64
	incumbentCost := math.Inf(1)
	queue := [][]branchRow{}
	queue = append(queue, m.branchOn(root, nil)...)

	nodes := 0
	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		nodes++
		if nodes > maxBnBNodes {
			return nil, errNodeLimit
		}

		var cuts []branchRow
		cuts, queue = queue[0], queue[1:]

		x, cost, err := m.solveRelaxation(cuts)
		switch {
		case err != nil:
			if !errors.Is(err, lp.ErrInfeasible) {
				return nil, errors.Wrap(err, "relaxation solve failed")
			}
			// infeasible branch, prune
		case cost >= incumbentCost:
			// bounded by the incumbent, prune
		case m.firstFractionalBinary(x) < 0:
			incumbent = x
			incumbentCost = cost
		default:
			queue = append(queue, m.branchOn(x, cuts)...)
		}
	}
	logger.Debugf("branch and bound visited %d nodes", nodes)

	if incumbent == nil {
		return nil, ErrNoIntegerSolution
	}
	return &Solution{X: incumbent, Cost: incumbentCost + m.costConst}, nil
}

// firstFractionalBinary returns the column of the first binary variable with a
// fractional value, or -1 if the point satisfies all integrality conditions.
func (m *Model) firstFractionalBinary(x []float64) int {
	for c := 0; c < m.numVars; c++ {
		if m.kinds[c] == Binary && math.Abs(x[c]-math.Round(x[c])) > intTol {
			return c
		}
	}
	return -1
}

// branchOn splits the relaxed point on its first fractional binary, producing
// the floor and ceiling child cut sets.
func (m *Model) branchOn(x []float64, cuts []branchRow) [][]branchRow {
	col := m.firstFractionalBinary(x)
	v := x[col]
	down := append(append([]branchRow{}, cuts...), branchRow{col: col, factor: 1, rhs: math.Floor(v)})
	up := append(append([]branchRow{}, cuts...), branchRow{col: col, factor: -1, rhs: -math.Ceil(v)})
	return [][]branchRow{down, up}
}

// solveRelaxation solves the LP relaxation with the given extra branching cuts.
// Free variables are split as x = xPlus - xMinus and every inequality gains a
// slack variable so the problem reaches the simplex in standard form.
func (m *Model) solveRelaxation(cuts []branchRow) ([]float64, float64, error) {
	n := m.numVars

	// gather all inequality rows: model rows, finite bound rows, branching cuts
	type ineqRow struct {
		cols []int
		vals []float64
		rhs  float64
	}
	rows := make([]ineqRow, len(m.ineqRHS))
	for i := range m.ineqRHS {
		rows[i].rhs = m.ineqRHS[i]
	}
	for _, nz := range m.ineq {
		rows[nz.Row].cols = append(rows[nz.Row].cols, nz.Col)
		rows[nz.Row].vals = append(rows[nz.Row].vals, nz.Val)
	}
	for c := 0; c < n; c++ {
		if !math.IsInf(m.colUpper[c], 1) {
			rows = append(rows, ineqRow{cols: []int{c}, vals: []float64{1}, rhs: m.colUpper[c]})
		}
		if !math.IsInf(m.colLower[c], -1) {
			rows = append(rows, ineqRow{cols: []int{c}, vals: []float64{-1}, rhs: -m.colLower[c]})
		}
	}
	for _, cut := range cuts {
		rows = append(rows, ineqRow{cols: []int{cut.col}, vals: []float64{cut.factor}, rhs: cut.rhs})
	}

	nIneq := len(rows)
	nEq := len(m.eqRHS)
	// columns: xPlus, xMinus, slacks
	nCols := 2*n + nIneq

	a := mat.NewDense(nEq+nIneq, nCols, nil)
	b := make([]float64, nEq+nIneq)
	for _, nz := range m.eq {
		a.Set(nz.Row, nz.Col, a.At(nz.Row, nz.Col)+nz.Val)
		a.Set(nz.Row, n+nz.Col, a.At(nz.Row, n+nz.Col)-nz.Val)
	}
	copy(b, m.eqRHS)
	for i, row := range rows {
		r := nEq + i
		for k, c := range row.cols {
			a.Set(r, c, a.At(r, c)+row.vals[k])
			a.Set(r, n+c, a.At(r, n+c)-row.vals[k])
		}
		a.Set(r, 2*n+i, 1)
		b[r] = row.rhs
	}

	c := make([]float64, nCols)
	for i := 0; i < n; i++ {
		c[i] = m.costLin[i]
		c[n+i] = -m.costLin[i]
	}

	cost, xs, err := lp.Simplex(c, a, b, 0, nil)
	if err != nil {
		return nil, 0, err
	}
	x := make([]float64, n)
	for i := 0; i < n; i++ {
		x[i] = xs[i] - xs[n+i]
	}
	return x, cost, nil
}
