package mpc

import "fmt"

// Config holds every tunable of one controller instance. It is an immutable
// value: build it, validate it, hand it to NewController, and never touch it
// while a solve is in flight. Changing tuning between control cycles means
// building a new Config.
type Config struct {
	// HorizonSteps is N, the number of discrete timesteps in the horizon.
	HorizonSteps int `json:"horizon_steps"`
	// StepSeconds is dt, the spacing between timesteps.
	StepSeconds float64 `json:"step_seconds"`
	// WheelbaseLf is the distance from the center of gravity to the front
	// axle, the turning-radius scale of the heading dynamics.
	WheelbaseLf float64 `json:"wheelbase_lf"`
	// RefSpeed is the target speed the objective tracks, m/s.
	RefSpeed float64 `json:"ref_speed_mps"`

	// Objective weights. Steering carries a far larger weight than the rest
	// to bias the solution toward smooth, stable steering.
	WeightCTE        float64 `json:"weight_cte"`
	WeightHeadingErr float64 `json:"weight_heading_err"`
	WeightSpeed      float64 `json:"weight_speed"`
	WeightSteer      float64 `json:"weight_steer"`
	WeightAccel      float64 `json:"weight_accel"`
	WeightSteerRate  float64 `json:"weight_steer_rate"`
	WeightAccelRate  float64 `json:"weight_accel_rate"`

	// MaxSteerRad bounds steering symmetrically, radians.
	MaxSteerRad float64 `json:"max_steer_rad"`
	// MaxAccel bounds acceleration symmetrically in normalized units
	// (full brake -MaxAccel .. full throttle +MaxAccel).
	MaxAccel float64 `json:"max_accel"`

	// MaxSolveTimeS caps solver wall time per cycle; the solver returns a
	// non-success status instead of blowing the control-loop budget.
	MaxSolveTimeS float64 `json:"max_solve_time_s"`
	// SolverTolerance and SolverMaxIterations pass through to the solver
	// backend; zero picks its defaults.
	SolverTolerance     float64 `json:"solver_tolerance"`
	SolverMaxIterations int     `json:"solver_max_iterations"`
}

// DefaultConfig returns the tuned baseline: a 10-step half-second horizon
// with the steering weight two to three orders of magnitude above the
// tracking weights.
func DefaultConfig() Config {
	return Config{
		HorizonSteps: 10,
		StepSeconds:  0.05,
		WheelbaseLf:  2.67,
		RefSpeed:     50,

		WeightCTE:        4,
		WeightHeadingErr: 4,
		WeightSpeed:      1,
		WeightSteer:      1000,
		WeightAccel:      10,
		WeightSteerRate:  4,
		WeightAccelRate:  0,

		MaxSteerRad: 25.0 / 180.0 * 3.14159,
		MaxAccel:    1.0,

		MaxSolveTimeS: 0.5,
	}
}

// Validate rejects configurations that cannot produce a well-posed problem.
func (c Config) Validate() error {
	if c.HorizonSteps < 2 {
		return fmt.Errorf("%w: horizon_steps %d, need at least 2", ErrInvalidInput, c.HorizonSteps)
	}
	if c.StepSeconds <= 0 {
		return fmt.Errorf("%w: step_seconds %g must be positive", ErrInvalidInput, c.StepSeconds)
	}
	if c.WheelbaseLf <= 0 {
		return fmt.Errorf("%w: wheelbase_lf %g must be positive", ErrInvalidInput, c.WheelbaseLf)
	}
	if c.MaxSteerRad <= 0 {
		return fmt.Errorf("%w: max_steer_rad %g must be positive", ErrInvalidInput, c.MaxSteerRad)
	}
	if c.MaxAccel <= 0 {
		return fmt.Errorf("%w: max_accel %g must be positive", ErrInvalidInput, c.MaxAccel)
	}
	for _, w := range []struct {
		name string
		v    float64
	}{
		{"weight_cte", c.WeightCTE},
		{"weight_heading_err", c.WeightHeadingErr},
		{"weight_speed", c.WeightSpeed},
		{"weight_steer", c.WeightSteer},
		{"weight_accel", c.WeightAccel},
		{"weight_steer_rate", c.WeightSteerRate},
		{"weight_accel_rate", c.WeightAccelRate},
	} {
		if w.v < 0 {
			return fmt.Errorf("%w: %s %g must be non-negative", ErrInvalidInput, w.name, w.v)
		}
	}
	if c.MaxSolveTimeS < 0 {
		return fmt.Errorf("%w: max_solve_time_s %g must be non-negative", ErrInvalidInput, c.MaxSolveTimeS)
	}
	return nil
}
