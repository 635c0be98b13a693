package mpc

import (
	"fmt"
	"math"

	"mpc-drive-core/dual"
	"mpc-drive-core/path"
)

// State is the vehicle state in the vehicle-local frame at the moment of
// the solve, in the fixed order (x, y, heading, speed, cte, heading error).
type State struct {
	X          float64
	Y          float64
	Heading    float64
	Speed      float64
	CTE        float64
	HeadingErr float64
}

// StateSize is the number of components in a State vector.
const StateSize = 6

// StateFromSlice validates and converts a raw 6-component state vector.
func StateFromSlice(v []float64) (State, error) {
	if len(v) != StateSize {
		return State{}, fmt.Errorf("%w: state has %d components, want %d", ErrInvalidInput, len(v), StateSize)
	}
	return State{X: v[0], Y: v[1], Heading: v[2], Speed: v[3], CTE: v[4], HeadingErr: v[5]}, nil
}

// Slice returns the state components in vector order.
func (s State) Slice() []float64 {
	return []float64{s.X, s.Y, s.Heading, s.Speed, s.CTE, s.HeadingErr}
}

// Actuation is one actuator command pair.
type Actuation struct {
	Steer float64 // radians, positive left
	Accel float64 // normalized, -1 full brake .. +1 full throttle
}

// Point is one predicted position for downstream visualization.
type Point struct {
	X float64
	Y float64
}

// model is the discrete kinematic bicycle with reference-tracking error
// dynamics against one fitted path polynomial. It is built fresh per solve
// and holds no mutable state.
type model struct {
	dt  float64
	lf  float64
	ref path.Polynomial
}

// residuals computes the six dynamics residuals tying timestep t-1 to t in
// the flat vector: residual = next-value variable minus the model's
// right-hand side, zero at any dynamically consistent trajectory.
//
//	x'    = x + v·cos(ψ)·dt
//	y'    = y + v·sin(ψ)·dt
//	ψ'    = ψ + v/Lf·δ·dt
//	v'    = v + a·dt
//	cte'  = (f(x) - y) + v·sin(eψ)·dt
//	eψ'   = (ψ - atan(f'(x))) + v/Lf·δ·dt
func (m model) residuals(vars []dual.Number, l Layout, t int) [StateSize]dual.Number {
	x0 := vars[l.idx(FieldX, t-1)]
	y0 := vars[l.idx(FieldY, t-1)]
	psi0 := vars[l.idx(FieldHeading, t-1)]
	v0 := vars[l.idx(FieldSpeed, t-1)]
	epsi0 := vars[l.idx(FieldHeadingErr, t-1)]

	steer0 := vars[l.idx(FieldSteer, t-1)]
	accel0 := vars[l.idx(FieldAccel, t-1)]

	f0 := m.ref.EvalDual(x0)
	psiDes0 := dual.Atan(m.ref.SlopeDual(x0))

	// v/Lf·δ·dt appears in both the heading and heading-error rows.
	turn := dual.Scale(m.dt/m.lf, dual.Mul(v0, steer0))

	var res [StateSize]dual.Number
	res[0] = dual.Sub(vars[l.idx(FieldX, t)],
		dual.Add(x0, dual.Scale(m.dt, dual.Mul(v0, dual.Cos(psi0)))))
	res[1] = dual.Sub(vars[l.idx(FieldY, t)],
		dual.Add(y0, dual.Scale(m.dt, dual.Mul(v0, dual.Sin(psi0)))))
	res[2] = dual.Sub(vars[l.idx(FieldHeading, t)], dual.Add(psi0, turn))
	res[3] = dual.Sub(vars[l.idx(FieldSpeed, t)],
		dual.Add(v0, dual.Scale(m.dt, accel0)))
	res[4] = dual.Sub(vars[l.idx(FieldCTE, t)],
		dual.Add(dual.Sub(f0, y0), dual.Scale(m.dt, dual.Mul(v0, dual.Sin(epsi0)))))
	res[5] = dual.Sub(vars[l.idx(FieldHeadingErr, t)],
		dual.Add(dual.Sub(psi0, psiDes0), turn))
	return res
}

// advance steps a plain state forward once under the given actuation, the
// float twin of residuals' right-hand sides. Used to seed initial guesses
// with a dynamics-feasible rollout.
func (m model) advance(s State, a Actuation) State {
	f0 := m.ref.Eval(s.X)
	psiDes0 := math.Atan(m.ref.Slope(s.X))
	turn := s.Speed / m.lf * a.Steer * m.dt

	return State{
		X:          s.X + s.Speed*math.Cos(s.Heading)*m.dt,
		Y:          s.Y + s.Speed*math.Sin(s.Heading)*m.dt,
		Heading:    s.Heading + turn,
		Speed:      s.Speed + a.Accel*m.dt,
		CTE:        (f0 - s.Y) + s.Speed*math.Sin(s.HeadingErr)*m.dt,
		HeadingErr: (s.Heading - psiDes0) + turn,
	}
}
