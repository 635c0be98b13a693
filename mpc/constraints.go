package mpc

import "mpc-drive-core/path"

// freeBound stands in for ±infinity on unconstrained state variables.
const freeBound = 1.0e19

// constraintBuilder turns a config plus the current state into the bound
// vectors and initial guess a solver consumes. Everything is built fresh
// per solve.
type constraintBuilder struct {
	cfg    Config
	layout Layout
}

// variableBounds leaves every state variable free and boxes the actuators:
// steering at ±MaxSteerRad, acceleration at ±MaxAccel.
func (b constraintBuilder) variableBounds() (lower, upper []float64) {
	n := b.layout.NumVariables()
	lower = make([]float64, n)
	upper = make([]float64, n)
	for i := 0; i < b.layout.Offset(FieldSteer); i++ {
		lower[i] = -freeBound
		upper[i] = freeBound
	}
	for t := 0; t < b.layout.BlockLen(FieldSteer); t++ {
		i := b.layout.idx(FieldSteer, t)
		lower[i] = -b.cfg.MaxSteerRad
		upper[i] = b.cfg.MaxSteerRad
	}
	for t := 0; t < b.layout.BlockLen(FieldAccel); t++ {
		i := b.layout.idx(FieldAccel, t)
		lower[i] = -b.cfg.MaxAccel
		upper[i] = b.cfg.MaxAccel
	}
	return lower, upper
}

// constraintBounds pins every dynamics row to zero and the six
// initial-condition rows to the exact input state, forcing equality there.
func (b constraintBuilder) constraintBounds(s State) (lower, upper []float64) {
	m := b.layout.NumConstraints()
	lower = make([]float64, m)
	upper = make([]float64, m)
	for i, f := range stateFields {
		lower[b.layout.Offset(f)] = s.Slice()[i]
		upper[b.layout.Offset(f)] = s.Slice()[i]
	}
	return lower, upper
}

// initialGuess seeds the state blocks with a zero-actuation rollout of the
// model from s, actuator blocks zero. The rollout is dynamics-feasible, so
// a solver starts on the constraint manifold instead of at the origin.
func (b constraintBuilder) initialGuess(s State, ref path.Polynomial) []float64 {
	guess := make([]float64, b.layout.NumVariables())
	m := model{dt: b.cfg.StepSeconds, lf: b.cfg.WheelbaseLf, ref: ref}

	cur := s
	for t := 0; t < b.layout.Horizon(); t++ {
		for i, f := range stateFields {
			guess[b.layout.idx(f, t)] = cur.Slice()[i]
		}
		cur = m.advance(cur, Actuation{})
	}
	return guess
}
