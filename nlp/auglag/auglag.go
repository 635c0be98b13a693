// Package auglag is the default nlp.Solver backend: an augmented-Lagrangian
// method with a projected-gradient inner loop. Constraint rows are handled
// by clipping against their bound band, so equality rows (lower == upper)
// and inequality bands share one penalty form. Gradients come from the
// evaluator's dual-number protocol, one seeded pass per variable.
//
// The method favors robustness over speed: it is a first-order search, so
// it pairs best with formulations that can hand it a feasible or
// near-feasible starting point.
package auglag

import (
	"context"
	"fmt"
	"math"
	"time"

	"mpc-drive-core/dual"
	"mpc-drive-core/nlp"
)

const (
	defaultTolerance   = 1e-4
	defaultOuterIters  = 40
	innerItersPerOuter = 300

	initialPenalty = 10.0
	penaltyGrowth  = 10.0
	maxPenalty     = 1e8
)

// Solver implements nlp.Solver. The zero value is ready to use.
type Solver struct{}

// New returns a ready Solver.
func New() *Solver { return &Solver{} }

// Minimize searches p from x0. It returns an error only for malformed input
// or context cancellation; solver outcomes, including failure to converge,
// are reported through Result.Status.
func (s *Solver) Minimize(ctx context.Context, p nlp.Problem, x0 []float64, opts nlp.Options) (nlp.Result, error) {
	if err := p.Validate(); err != nil {
		return nlp.Result{}, err
	}
	n := p.Eval.NumVariables()
	m := p.Eval.NumConstraints()
	if len(x0) != n {
		return nlp.Result{}, fmt.Errorf("auglag: initial guess length %d, want %d", len(x0), n)
	}

	tol := opts.Tolerance
	if tol <= 0 {
		tol = defaultTolerance
	}
	maxOuter := opts.MaxIterations
	if maxOuter <= 0 {
		maxOuter = defaultOuterIters
	}
	var deadline time.Time
	if opts.MaxTime > 0 {
		deadline = time.Now().Add(opts.MaxTime)
	}

	st := &search{
		p:        p,
		n:        n,
		m:        m,
		lambda:   make([]float64, m),
		rho:      initialPenalty,
		x:        clampVec(append([]float64(nil), x0...), p.VarLower, p.VarUpper),
		grad:     make([]float64, n),
		deadline: deadline,
	}

	iterations := 0
	prevViolation := math.Inf(1)
	prevMerit := math.Inf(1)

	for outer := 0; outer < maxOuter; outer++ {
		status, innerIters, err := st.descend(ctx, tol)
		iterations += innerIters
		if err != nil {
			return nlp.Result{}, err
		}
		if status == nlp.NumericalError || status == nlp.TimeLimit {
			return st.result(status, iterations), nil
		}

		obj, cons := nlp.Value(p.Eval, st.x)
		if !finiteAll(obj, cons) {
			return st.result(nlp.NumericalError, iterations), nil
		}
		violation := st.maxViolation(cons)
		merit := st.merit(obj, cons)

		feasible := violation <= tol
		stalled := math.Abs(prevMerit-merit) <= tol*(1+math.Abs(merit))
		if feasible && stalled {
			return st.result(nlp.Success, iterations), nil
		}

		// First-order multiplier update, then stiffen the penalty when the
		// violation is not shrinking fast enough.
		for i := 0; i < m; i++ {
			st.lambda[i] += st.rho * st.residual(cons[i], i)
		}
		if violation > tol && violation > 0.25*prevViolation {
			st.rho *= penaltyGrowth
			if st.rho > maxPenalty {
				return st.result(nlp.Infeasible, iterations), nil
			}
		}
		prevViolation = violation
		prevMerit = merit
	}

	return st.result(nlp.IterationLimit, iterations), nil
}

type search struct {
	p      nlp.Problem
	n, m   int
	lambda []float64
	rho    float64
	x      []float64
	grad   []float64

	deadline time.Time
}

// residual is the signed distance of constraint value c outside its bound
// band; zero inside the band. For equality rows the band is a point and the
// residual is simply c minus the pinned value.
func (st *search) residual(c float64, i int) float64 {
	if lo := st.p.ConLower[i]; c < lo {
		return c - lo
	}
	if hi := st.p.ConUpper[i]; c > hi {
		return c - hi
	}
	return 0
}

func (st *search) maxViolation(cons []float64) float64 {
	v := 0.0
	for i, c := range cons {
		v = math.Max(v, math.Abs(st.residual(c, i)))
	}
	return v
}

// merit is the augmented Lagrangian at a plain point.
func (st *search) merit(obj float64, cons []float64) float64 {
	phi := obj
	for i, c := range cons {
		r := st.residual(c, i)
		phi += st.lambda[i]*r + 0.5*st.rho*r*r
	}
	return phi
}

// evalMerit evaluates the merit at x without derivative passes.
func (st *search) evalMerit(x []float64) (float64, bool) {
	obj, cons := nlp.Value(st.p.Eval, x)
	if !finiteAll(obj, cons) {
		return 0, false
	}
	return st.merit(obj, cons), true
}

// gradient fills st.grad with the merit gradient at st.x using one seeded
// dual pass per variable, and returns the merit value.
func (st *search) gradient() (float64, bool) {
	lifted := dual.Consts(st.x)
	// Plain pass first, for the residual weights shared by every column.
	obj, cons := st.p.Eval.Evaluate(lifted)
	consRe := dual.Values(cons)
	if !finiteAll(obj.Re, consRe) {
		return 0, false
	}
	weights := make([]float64, st.m)
	for i, c := range consRe {
		weights[i] = st.lambda[i] + st.rho*st.residual(c, i)
	}

	for j := 0; j < st.n; j++ {
		lifted[j].Du = 1
		objD, consD := st.p.Eval.Evaluate(lifted)
		lifted[j].Du = 0

		g := objD.Du
		for i := range consD {
			if weights[i] != 0 {
				g += weights[i] * consD[i].Du
			}
		}
		if math.IsNaN(g) || math.IsInf(g, 0) {
			return 0, false
		}
		st.grad[j] = g
	}
	return st.merit(obj.Re, consRe), true
}

// descend runs the projected-gradient inner loop on the current merit.
// A Success return means the inner loop is done, not that the outer problem
// converged; the caller judges feasibility.
func (st *search) descend(ctx context.Context, tol float64) (nlp.Status, int, error) {
	step := 1.0
	iters := 0

	for ; iters < innerItersPerOuter; iters++ {
		if !st.deadline.IsZero() && time.Now().After(st.deadline) {
			return nlp.TimeLimit, iters, nil
		}
		if err := ctx.Err(); err != nil {
			return nlp.Success, iters, err
		}

		phi, ok := st.gradient()
		if !ok {
			return nlp.NumericalError, iters, nil
		}
		if st.projectedGradNorm() <= tol {
			return nlp.Success, iters, nil
		}

		accepted := false
		for ; step >= 1e-14; step /= 2 {
			trial := st.project(step)
			decrease := st.stepDecrease(trial)
			phiTrial, ok := st.evalMerit(trial)
			if !ok {
				return nlp.NumericalError, iters, nil
			}
			if phiTrial <= phi-1e-4*decrease {
				st.x = trial
				accepted = true
				step *= 4 // let the next iteration try a longer step again
				break
			}
		}
		if !accepted {
			// Line search exhausted: this penalty surface has nothing more
			// to give a first-order step.
			return nlp.Success, iters, nil
		}
	}
	return nlp.Success, iters, nil
}

// project takes a step of the given size along -grad and clamps to bounds.
func (st *search) project(step float64) []float64 {
	out := make([]float64, st.n)
	for j := range out {
		out[j] = clamp(st.x[j]-step*st.grad[j], st.p.VarLower[j], st.p.VarUpper[j])
	}
	return out
}

// stepDecrease is grad·(x - trial), the Armijo model decrease for a
// projected step.
func (st *search) stepDecrease(trial []float64) float64 {
	d := 0.0
	for j := range trial {
		d += st.grad[j] * (st.x[j] - trial[j])
	}
	return d
}

// projectedGradNorm measures stationarity as the largest in-box movement a
// unit gradient step could still make.
func (st *search) projectedGradNorm() float64 {
	norm := 0.0
	for j := range st.x {
		moved := clamp(st.x[j]-st.grad[j], st.p.VarLower[j], st.p.VarUpper[j]) - st.x[j]
		norm = math.Max(norm, math.Abs(moved))
	}
	return norm
}

func (st *search) result(status nlp.Status, iterations int) nlp.Result {
	obj, cons := nlp.Value(st.p.Eval, st.x)
	return nlp.Result{
		Status:     status,
		X:          append([]float64(nil), st.x...),
		Objective:  obj,
		Violation:  st.maxViolation(cons),
		Iterations: iterations,
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampVec(v, lo, hi []float64) []float64 {
	for j := range v {
		v[j] = clamp(v[j], lo[j], hi[j])
	}
	return v
}

func finiteAll(obj float64, cons []float64) bool {
	if math.IsNaN(obj) || math.IsInf(obj, 0) {
		return false
	}
	for _, c := range cons {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}
