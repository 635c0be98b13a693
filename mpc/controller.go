package mpc

import (
	"context"
	"fmt"
	"time"

	"mpc-drive-core/nlp"
	"mpc-drive-core/path"
	"mpc-drive-core/utils"
)

// Prediction is the outcome of one successful solve: the first actuator
// pair to apply, plus the predicted positions for t = 1..N-1 for
// diagnostics, plus the raw solution vector for warm-starting the next
// cycle.
type Prediction struct {
	Actuation  Actuation
	Trajectory []Point
	Objective  float64
	Solution   []float64
	Iterations int
}

// Controller formulates the finite-horizon trajectory problem and extracts
// the next command from its solution. It holds only immutable configuration;
// every Solve builds its problem fresh and discards it, so calls are
// independent. Run one solve at a time unless the solver backend is known
// reentrant.
type Controller struct {
	cfg    Config
	layout Layout
	solver nlp.Solver
	log    *utils.Logger
}

// NewController validates cfg and binds the solver backend. log may be nil.
func NewController(cfg Config, solver nlp.Solver, log *utils.Logger) (*Controller, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if solver == nil {
		return nil, fmt.Errorf("%w: nil solver", ErrInvalidInput)
	}
	l, err := NewLayout(cfg.HorizonSteps)
	if err != nil {
		return nil, err
	}
	return &Controller{cfg: cfg, layout: l, solver: solver, log: log}, nil
}

// Config returns the controller's immutable tuning.
func (c *Controller) Config() Config { return c.cfg }

// Layout returns the flat-vector layout for this horizon.
func (c *Controller) Layout() Layout { return c.layout }

// Solve runs one control cycle with the default rollout-seeded guess.
func (c *Controller) Solve(ctx context.Context, state State, ref path.Polynomial) (*Prediction, error) {
	return c.solve(ctx, state, ref, nil)
}

// SolveWithGuess runs one control cycle from an explicit initial guess,
// typically ShiftGuess of the previous cycle's Solution.
func (c *Controller) SolveWithGuess(ctx context.Context, state State, ref path.Polynomial, guess []float64) (*Prediction, error) {
	if len(guess) != c.layout.NumVariables() {
		return nil, fmt.Errorf("%w: guess length %d, want %d", ErrInvalidInput, len(guess), c.layout.NumVariables())
	}
	return c.solve(ctx, state, ref, guess)
}

// SolveVector is the raw-slice entry point for callers holding unparsed
// state and coefficient vectors; both are validated before any solver work.
func (c *Controller) SolveVector(ctx context.Context, state []float64, coeffs []float64) (*Prediction, error) {
	s, err := StateFromSlice(state)
	if err != nil {
		return nil, err
	}
	if len(coeffs) == 0 || len(coeffs) > path.MaxDegree+1 {
		return nil, fmt.Errorf("%w: %d polynomial coefficients, want 1..%d", ErrInvalidInput, len(coeffs), path.MaxDegree+1)
	}
	return c.Solve(ctx, s, path.Polynomial(coeffs))
}

func (c *Controller) solve(ctx context.Context, state State, ref path.Polynomial, guess []float64) (*Prediction, error) {
	eval, err := NewEvaluator(c.cfg, ref)
	if err != nil {
		return nil, err
	}

	b := constraintBuilder{cfg: c.cfg, layout: c.layout}
	varLo, varHi := b.variableBounds()
	conLo, conHi := b.constraintBounds(state)
	if guess == nil {
		guess = b.initialGuess(state, ref)
	}

	problem := nlp.Problem{
		Eval:     eval,
		VarLower: varLo,
		VarUpper: varHi,
		ConLower: conLo,
		ConUpper: conHi,
	}
	opts := nlp.Options{
		MaxTime:       time.Duration(c.cfg.MaxSolveTimeS * float64(time.Second)),
		MaxIterations: c.cfg.SolverMaxIterations,
		Tolerance:     c.cfg.SolverTolerance,
	}

	start := time.Now()
	res, err := c.solver.Minimize(ctx, problem, guess, opts)
	if err != nil {
		return nil, fmt.Errorf("mpc: solver: %w", err)
	}
	if res.Status != nlp.Success {
		if c.log != nil {
			c.log.Warn("solve failed: status=%s violation=%.3g iters=%d elapsed=%.1fms",
				res.Status, res.Violation, res.Iterations, time.Since(start).Seconds()*1000)
		}
		return nil, &SolveError{Status: res.Status}
	}

	pred := c.decode(res)
	if c.log != nil {
		c.log.Debug("solve ok: obj=%.4f steer=%.4f accel=%.4f iters=%d elapsed=%.1fms",
			pred.Objective, pred.Actuation.Steer, pred.Actuation.Accel,
			pred.Iterations, time.Since(start).Seconds()*1000)
	}
	return pred, nil
}

// decode pulls the first actuator pair and the predicted (x,y) sequence for
// t = 1..N-1 out of the flat solution.
func (c *Controller) decode(res nlp.Result) *Prediction {
	l := c.layout
	traj := make([]Point, 0, l.Horizon()-1)
	for t := 1; t < l.Horizon(); t++ {
		traj = append(traj, Point{
			X: res.X[l.idx(FieldX, t)],
			Y: res.X[l.idx(FieldY, t)],
		})
	}
	return &Prediction{
		Actuation: Actuation{
			Steer: res.X[l.idx(FieldSteer, 0)],
			Accel: res.X[l.idx(FieldAccel, 0)],
		},
		Trajectory: traj,
		Objective:  res.Objective,
		Solution:   res.X,
		Iterations: res.Iterations,
	}
}

// ShiftGuess advances a previous solution one timestep for reuse as the
// next cycle's initial guess: every block slides left by one with its last
// entry duplicated.
func (c *Controller) ShiftGuess(prev []float64) []float64 {
	if len(prev) != c.layout.NumVariables() {
		return nil
	}
	out := make([]float64, len(prev))
	for f := FieldX; f < numFields; f++ {
		blk := c.layout.BlockLen(f)
		off := c.layout.Offset(f)
		for t := 0; t < blk-1; t++ {
			out[off+t] = prev[off+t+1]
		}
		out[off+blk-1] = prev[off+blk-1]
	}
	return out
}
