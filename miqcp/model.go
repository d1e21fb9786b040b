// Package miqcp implements a sparse container for mixed-integer quadratically
// constrained programs. Variables are declared in named blocks over a single
// global index space; linear rows, quadratic costs, and quadratic inequality
// constraints accumulate as sparse triplets until the model is handed to a
// solver.
package miqcp

import (
	"math"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"gonum.org/v1/gonum/mat"
)

// VarKind enumerates the supported variable types.
type VarKind int

// The kinds of variables a model may hold.
const (
	Continuous VarKind = iota
	Binary
)

// Block is a handle to a contiguous run of variables declared together.
type Block struct {
	name  string
	start int
	n     int
}

// Name returns the name the block was declared under.
func (b Block) Name() string { return b.name }

// Len returns the number of variables in the block.
func (b Block) Len() int { return b.n }

// Indices returns the global column indices of the whole block.
func (b Block) Indices() []int {
	out := make([]int, b.n)
	for i := range out {
		out[i] = b.start + i
	}
	return out
}

// Index maps a block-local index to the model's global column index.
func (b Block) Index(i int) int {
	if i < 0 || i >= b.n {
		panic(errors.Errorf("index %d out of range for variable block %q of length %d", i, b.name, b.n))
	}
	return b.start + i
}

// Nonzero is a single sparse matrix entry.
type Nonzero struct {
	Row int
	Col int
	Val float64
}

// QuadTerm is one entry q * x_i * x_j of a quadratic form.
type QuadTerm struct {
	I   int
	J   int
	Val float64
}

// QuadConstraint is a quadratic inequality sum(q*x_i*x_j) + lin.x <= Rhs.
type QuadConstraint struct {
	Quad    []QuadTerm
	LinCols []int
	LinVals []float64
	Rhs     float64
}

// Model is a sparse MIQCP under construction. The zero value is not usable;
// use NewModel.
type Model struct {
	numVars  int
	blocks   map[string]Block
	kinds    []VarKind
	colLower []float64
	colUpper []float64

	ineq    []Nonzero
	ineqRHS []float64
	eq      []Nonzero
	eqRHS   []float64

	costQuad  []QuadTerm
	costLin   []float64
	costConst float64

	quadCons []QuadConstraint
}

// NewModel returns an empty model.
func NewModel() *Model {
	return &Model{blocks: map[string]Block{}}
}

// AddVariables declares a contiguous block of n variables sharing a kind and
// bounds, and returns a handle to it. Block names must be unique.
func (m *Model) AddVariables(name string, kind VarKind, n int, lower, upper float64) (Block, error) {
	if n <= 0 {
		return Block{}, errors.Errorf("variable block %q must have positive length, got %d", name, n)
	}
	if _, ok := m.blocks[name]; ok {
		return Block{}, errors.Errorf("variable block %q already declared", name)
	}
	if lower > upper {
		return Block{}, errors.Errorf("variable block %q has lower bound %f above upper bound %f", name, lower, upper)
	}
	blk := Block{name: name, start: m.numVars, n: n}
	m.blocks[name] = blk
	m.numVars += n
	for i := 0; i < n; i++ {
		m.kinds = append(m.kinds, kind)
		m.colLower = append(m.colLower, lower)
		m.colUpper = append(m.colUpper, upper)
		m.costLin = append(m.costLin, 0)
	}
	return blk, nil
}

// VarBlock looks up a previously declared block by name.
func (m *Model) VarBlock(name string) (Block, bool) {
	blk, ok := m.blocks[name]
	return blk, ok
}

// NumVars returns the size of the global variable index space.
func (m *Model) NumVars() int { return m.numVars }

// NumIneq returns the number of linear inequality rows added so far.
func (m *Model) NumIneq() int { return len(m.ineqRHS) }

// NumEq returns the number of linear equality rows added so far.
func (m *Model) NumEq() int { return len(m.eqRHS) }

// NumQuadConstraints returns the number of quadratic inequality constraints added so far.
func (m *Model) NumQuadConstraints() int { return len(m.quadCons) }

// Kind returns the kind of the variable at the given global index.
func (m *Model) Kind(col int) VarKind { return m.kinds[col] }

// Bounds returns the lower and upper bound of the variable at the given global index.
func (m *Model) Bounds(col int) (float64, float64) { return m.colLower[col], m.colUpper[col] }

func (m *Model) checkRow(cols []int, vals []float64) error {
	if len(cols) != len(vals) {
		return errors.Errorf("row has %d columns but %d values", len(cols), len(vals))
	}
	for _, c := range cols {
		if c < 0 || c >= m.numVars {
			return errors.Errorf("column %d out of range for model with %d variables", c, m.numVars)
		}
	}
	return nil
}

// AddIneq appends a sparse linear inequality row sum(vals*x[cols]) <= rhs.
func (m *Model) AddIneq(cols []int, vals []float64, rhs float64) error {
	if err := m.checkRow(cols, vals); err != nil {
		return err
	}
	row := len(m.ineqRHS)
	for i, c := range cols {
		if vals[i] != 0 {
			m.ineq = append(m.ineq, Nonzero{Row: row, Col: c, Val: vals[i]})
		}
	}
	m.ineqRHS = append(m.ineqRHS, rhs)
	return nil
}

// AddEq appends a sparse linear equality row sum(vals*x[cols]) = rhs.
func (m *Model) AddEq(cols []int, vals []float64, rhs float64) error {
	if err := m.checkRow(cols, vals); err != nil {
		return err
	}
	row := len(m.eqRHS)
	for i, c := range cols {
		if vals[i] != 0 {
			m.eq = append(m.eq, Nonzero{Row: row, Col: c, Val: vals[i]})
		}
	}
	m.eqRHS = append(m.eqRHS, rhs)
	return nil
}

// AddQuadraticCost accumulates sum(q*x_i*x_j) + lin.x + constant into the
// objective. Any of the three parts may be empty.
func (m *Model) AddQuadraticCost(quad []QuadTerm, linCols []int, linVals []float64, constant float64) error {
	if err := m.checkRow(linCols, linVals); err != nil {
		return err
	}
	for _, q := range quad {
		if q.I < 0 || q.I >= m.numVars || q.J < 0 || q.J >= m.numVars {
			return errors.Errorf("quadratic term (%d,%d) out of range for model with %d variables", q.I, q.J, m.numVars)
		}
	}
	m.costQuad = append(m.costQuad, quad...)
	for i, c := range linCols {
		m.costLin[c] += linVals[i]
	}
	m.costConst += constant
	return nil
}

// AddQuadraticConstraint appends sum(q*x_i*x_j) + lin.x <= rhs.
func (m *Model) AddQuadraticConstraint(quad []QuadTerm, linCols []int, linVals []float64, rhs float64) error {
	if err := m.checkRow(linCols, linVals); err != nil {
		return err
	}
	for _, q := range quad {
		if q.I < 0 || q.I >= m.numVars || q.J < 0 || q.J >= m.numVars {
			return errors.Errorf("quadratic term (%d,%d) out of range for model with %d variables", q.I, q.J, m.numVars)
		}
	}
	m.quadCons = append(m.quadCons, QuadConstraint{
		Quad:    append([]QuadTerm{}, quad...),
		LinCols: append([]int{}, linCols...),
		LinVals: append([]float64{}, linVals...),
		Rhs:     rhs,
	})
	return nil
}

// HasQuadraticCost reports whether any quadratic objective terms were added.
func (m *Model) HasQuadraticCost() bool { return len(m.costQuad) > 0 }

// LinearInequalities assembles the dense inequality system G*x <= h.
// Returns nil when no inequality rows were added.
func (m *Model) LinearInequalities() (*mat.Dense, []float64) {
	if len(m.ineqRHS) == 0 {
		return nil, nil
	}
	g := mat.NewDense(len(m.ineqRHS), m.numVars, nil)
	for _, nz := range m.ineq {
		g.Set(nz.Row, nz.Col, g.At(nz.Row, nz.Col)+nz.Val)
	}
	return g, append([]float64{}, m.ineqRHS...)
}

// LinearEqualities assembles the dense equality system A*x = b.
// Returns nil when no equality rows were added.
func (m *Model) LinearEqualities() (*mat.Dense, []float64) {
	if len(m.eqRHS) == 0 {
		return nil, nil
	}
	a := mat.NewDense(len(m.eqRHS), m.numVars, nil)
	for _, nz := range m.eq {
		a.Set(nz.Row, nz.Col, a.At(nz.Row, nz.Col)+nz.Val)
	}
	return a, append([]float64{}, m.eqRHS...)
}

// EvalObjective evaluates the accumulated cost at the given point.
func (m *Model) EvalObjective(x []float64) float64 {
	total := m.costConst
	for _, q := range m.costQuad {
		total += q.Val * x[q.I] * x[q.J]
	}
	for c, v := range m.costLin {
		total += v * x[c]
	}
	return total
}

// CheckFeasible evaluates every bound, linear row, integrality condition, and
// quadratic constraint at the candidate point, returning the accumulated
// violations beyond the given tolerance, or nil if the point is feasible.
func (m *Model) CheckFeasible(x []float64, tol float64) error {
	if len(x) != m.numVars {
		return errors.Errorf("candidate point has %d entries, model has %d variables", len(x), m.numVars)
	}
	var err error
	for c := 0; c < m.numVars; c++ {
		if x[c] < m.colLower[c]-tol || x[c] > m.colUpper[c]+tol {
			err = multierr.Append(err, errors.Errorf(
				"variable %d = %g outside bounds [%g, %g]", c, x[c], m.colLower[c], m.colUpper[c]))
		}
		if m.kinds[c] == Binary && math.Abs(x[c]-math.Round(x[c])) > tol {
			err = multierr.Append(err, errors.Errorf("binary variable %d = %g is fractional", c, x[c]))
		}
	}
	ineqVals := make([]float64, len(m.ineqRHS))
	for _, nz := range m.ineq {
		ineqVals[nz.Row] += nz.Val * x[nz.Col]
	}
	for r, v := range ineqVals {
		if v > m.ineqRHS[r]+tol {
			err = multierr.Append(err, errors.Errorf("inequality row %d violated: %g > %g", r, v, m.ineqRHS[r]))
		}
	}
	eqVals := make([]float64, len(m.eqRHS))
	for _, nz := range m.eq {
		eqVals[nz.Row] += nz.Val * x[nz.Col]
	}
	for r, v := range eqVals {
		if math.Abs(v-m.eqRHS[r]) > tol {
			err = multierr.Append(err, errors.Errorf("equality row %d violated: %g != %g", r, v, m.eqRHS[r]))
		}
	}
	for i, qc := range m.quadCons {
		v := 0.
		for _, q := range qc.Quad {
			v += q.Val * x[q.I] * x[q.J]
		}
		for k, c := range qc.LinCols {
			v += qc.LinVals[k] * x[c]
		}
		if v > qc.Rhs+tol {
			err = multierr.Append(err, errors.Errorf("quadratic constraint %d violated: %g > %g", i, v, qc.Rhs))
		}
	}
	return err
}
