// Package nlp defines the contract between a nonlinear-program formulation
// and the solver that searches it. A problem is an evaluator producing one
// scalar objective and a vector of constraint values, plus bound vectors on
// the variables and on the constraints. The solver is free to parallelize
// or differentiate however it likes, as long as it honors the bounds and
// reports an honest status.
package nlp

import (
	"context"
	"fmt"
	"time"

	"mpc-drive-core/dual"
)

// Evaluator computes the objective and constraint values at a point. The
// evaluation runs on dual numbers so a solver can extract exact directional
// derivatives by seeding one variable at a time; plain evaluation is the
// zero-seed special case (see Value).
type Evaluator interface {
	NumVariables() int
	NumConstraints() int
	Evaluate(x []dual.Number) (obj dual.Number, cons []dual.Number)
}

// Value evaluates e at a plain point, discarding derivative parts.
func Value(e Evaluator, x []float64) (float64, []float64) {
	obj, cons := e.Evaluate(dual.Consts(x))
	return obj.Re, dual.Values(cons)
}

// Problem bundles an evaluator with its bounds. A constraint row with equal
// lower and upper bound is an equality pinned to that value.
type Problem struct {
	Eval     Evaluator
	VarLower []float64
	VarUpper []float64
	ConLower []float64
	ConUpper []float64
}

// Validate checks that all bound vectors match the evaluator dimensions.
func (p Problem) Validate() error {
	n, m := p.Eval.NumVariables(), p.Eval.NumConstraints()
	if len(p.VarLower) != n || len(p.VarUpper) != n {
		return fmt.Errorf("nlp: variable bounds length %d/%d, want %d", len(p.VarLower), len(p.VarUpper), n)
	}
	if len(p.ConLower) != m || len(p.ConUpper) != m {
		return fmt.Errorf("nlp: constraint bounds length %d/%d, want %d", len(p.ConLower), len(p.ConUpper), m)
	}
	for i := 0; i < n; i++ {
		if p.VarLower[i] > p.VarUpper[i] {
			return fmt.Errorf("nlp: variable %d lower bound %g above upper %g", i, p.VarLower[i], p.VarUpper[i])
		}
	}
	for i := 0; i < m; i++ {
		if p.ConLower[i] > p.ConUpper[i] {
			return fmt.Errorf("nlp: constraint %d lower bound %g above upper %g", i, p.ConLower[i], p.ConUpper[i])
		}
	}
	return nil
}

// Status reports how a solve ended.
type Status int

const (
	// Success means first-order optimality and constraint feasibility were
	// reached within tolerance.
	Success Status = iota
	// IterationLimit means the iteration budget ran out first.
	IterationLimit
	// TimeLimit means the wall-clock budget ran out first.
	TimeLimit
	// Infeasible means the constraints could not be satisfied.
	Infeasible
	// NumericalError means evaluation produced NaN/Inf or the search broke down.
	NumericalError
)

func (s Status) String() string {
	switch s {
	case Success:
		return "success"
	case IterationLimit:
		return "iteration-limit"
	case TimeLimit:
		return "time-limit"
	case Infeasible:
		return "infeasible"
	case NumericalError:
		return "numerical-error"
	default:
		return "unknown"
	}
}

// Result is what a solver hands back. X is only meaningful when Status is
// Success.
type Result struct {
	Status     Status
	X          []float64
	Objective  float64
	Violation  float64
	Iterations int
}

// Options tunes a solve without affecting what a correct answer is.
type Options struct {
	// MaxTime bounds wall-clock time; zero means no time bound.
	MaxTime time.Duration
	// MaxIterations bounds outer iterations; zero picks a solver default.
	MaxIterations int
	// Tolerance is the optimality/feasibility tolerance; zero picks a
	// solver default.
	Tolerance float64
}

// Solver searches a problem from an initial guess.
type Solver interface {
	Minimize(ctx context.Context, p Problem, x0 []float64, opts Options) (Result, error)
}
