package mpc

import (
	"fmt"

	"mpc-drive-core/dual"
	"mpc-drive-core/path"
)

// Evaluator is the single callable a solver evaluates repeatedly: the
// scalar objective plus the 6N constraint values at a flat vector. Rows
// laid out like the state blocks themselves: for each state field, row
// offset+0 is the pinned initial-condition identity and rows offset+t for
// t ≥ 1 are the dynamics residuals.
//
// It runs on dual numbers, so a solver extracts derivatives by seeding
// inputs; plain evaluation is the zero-seed case.
type Evaluator struct {
	layout Layout
	obj    objective
	model  model
}

// NewEvaluator builds an evaluator for one solve against the given fitted
// reference polynomial.
func NewEvaluator(cfg Config, ref path.Polynomial) (*Evaluator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(ref) == 0 || len(ref) > path.MaxDegree+1 {
		return nil, fmt.Errorf("%w: reference polynomial has %d coefficients, want 1..%d",
			ErrInvalidInput, len(ref), path.MaxDegree+1)
	}
	l, err := NewLayout(cfg.HorizonSteps)
	if err != nil {
		return nil, err
	}
	return &Evaluator{
		layout: l,
		obj:    objective{cfg: cfg, layout: l},
		model:  model{dt: cfg.StepSeconds, lf: cfg.WheelbaseLf, ref: ref},
	}, nil
}

func (e *Evaluator) NumVariables() int   { return e.layout.NumVariables() }
func (e *Evaluator) NumConstraints() int { return e.layout.NumConstraints() }

// Evaluate computes the objective and constraint vector at x.
func (e *Evaluator) Evaluate(x []dual.Number) (dual.Number, []dual.Number) {
	l := e.layout
	cons := make([]dual.Number, l.NumConstraints())

	// Initial-condition rows: the variable itself, pinned by the constraint
	// bounds to the input state.
	for _, f := range stateFields {
		cons[l.Offset(f)] = x[l.idx(f, 0)]
	}

	// Dynamics rows for t = 1..N-1.
	for t := 1; t < l.Horizon(); t++ {
		res := e.model.residuals(x, l, t)
		for i, f := range stateFields {
			cons[l.Offset(f)+t] = res[i]
		}
	}

	return e.obj.eval(x), cons
}
