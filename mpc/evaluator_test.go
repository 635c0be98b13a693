package mpc

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mpc-drive-core/nlp"
	"mpc-drive-core/path"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.RefSpeed = 10
	cfg.MaxSolveTimeS = 10
	return cfg
}

// candidateVector fills a flat vector with deterministic, bounded junk so
// residual checks exercise non-trivial values.
func candidateVector(l Layout) []float64 {
	v := make([]float64, l.NumVariables())
	for i := range v {
		v[i] = 2 * math.Sin(0.37*float64(i)+0.1)
	}
	return v
}

func TestEvaluatorDynamicsResidualRoundTrip(t *testing.T) {
	cfg := testConfig()
	ref := path.Polynomial{0.3, -0.1, 0.02, 0.001}
	eval, err := NewEvaluator(cfg, ref)
	require.NoError(t, err)

	l, err := NewLayout(cfg.HorizonSteps)
	require.NoError(t, err)
	vars := candidateVector(l)

	_, cons := nlp.Value(eval, vars)
	require.Len(t, cons, l.NumConstraints())

	at := func(f Field, step int) float64 {
		v, err := l.At(vars, f, step)
		require.NoError(t, err)
		return v
	}

	dt, lf := cfg.StepSeconds, cfg.WheelbaseLf
	for step := 1; step < cfg.HorizonSteps; step++ {
		x0 := at(FieldX, step-1)
		y0 := at(FieldY, step-1)
		psi0 := at(FieldHeading, step-1)
		v0 := at(FieldSpeed, step-1)
		epsi0 := at(FieldHeadingErr, step-1)
		steer0 := at(FieldSteer, step-1)
		accel0 := at(FieldAccel, step-1)

		f0 := ref.Eval(x0)
		psiDes0 := math.Atan(ref.Slope(x0))

		want := [StateSize]float64{
			at(FieldX, step) - (x0 + v0*math.Cos(psi0)*dt),
			at(FieldY, step) - (y0 + v0*math.Sin(psi0)*dt),
			at(FieldHeading, step) - (psi0 + v0/lf*steer0*dt),
			at(FieldSpeed, step) - (v0 + accel0*dt),
			at(FieldCTE, step) - ((f0 - y0) + v0*math.Sin(epsi0)*dt),
			at(FieldHeadingErr, step) - ((psi0 - psiDes0) + v0/lf*steer0*dt),
		}
		for i, f := range stateFields {
			assert.InDelta(t, want[i], cons[l.Offset(f)+step], 1e-12,
				"t=%d field=%s", step, f)
		}
	}
}

func TestEvaluatorInitialRowsAreIdentities(t *testing.T) {
	cfg := testConfig()
	eval, err := NewEvaluator(cfg, path.Polynomial{0, 0, 0, 0})
	require.NoError(t, err)

	l, _ := NewLayout(cfg.HorizonSteps)
	vars := candidateVector(l)
	_, cons := nlp.Value(eval, vars)

	for _, f := range stateFields {
		assert.Equal(t, vars[l.Offset(f)], cons[l.Offset(f)], "row for %s at t=0", f)
	}
}

func TestEvaluatorRejectsBadInput(t *testing.T) {
	cfg := testConfig()

	_, err := NewEvaluator(cfg, path.Polynomial{1, 2, 3, 4, 5})
	assert.ErrorIs(t, err, ErrInvalidInput, "degree above maximum")

	_, err = NewEvaluator(cfg, nil)
	assert.ErrorIs(t, err, ErrInvalidInput, "empty polynomial")

	bad := cfg
	bad.HorizonSteps = 1
	_, err = NewEvaluator(bad, path.Polynomial{0})
	assert.ErrorIs(t, err, ErrInvalidInput, "degenerate horizon")
}

func TestConstraintBoundsPinInitialState(t *testing.T) {
	for _, n := range []int{2, 5, 10} {
		cfg := testConfig()
		cfg.HorizonSteps = n
		// Weights must not matter for the pinned rows.
		cfg.WeightCTE = 123
		cfg.WeightSteer = 0

		l, err := NewLayout(n)
		require.NoError(t, err)
		b := constraintBuilder{cfg: cfg, layout: l}

		s := State{X: 1.5, Y: -2, Heading: 0.3, Speed: 7, CTE: 0.4, HeadingErr: -0.1}
		lo, hi := b.constraintBounds(s)
		require.Len(t, lo, l.NumConstraints())

		for i, f := range stateFields {
			assert.Equal(t, s.Slice()[i], lo[l.Offset(f)], "N=%d lower for %s", n, f)
			assert.Equal(t, s.Slice()[i], hi[l.Offset(f)], "N=%d upper for %s", n, f)
		}
		// Every non-initial row is pinned to zero.
		for _, f := range stateFields {
			for step := 1; step < n; step++ {
				assert.Zero(t, lo[l.Offset(f)+step])
				assert.Zero(t, hi[l.Offset(f)+step])
			}
		}
	}
}

func TestVariableBounds(t *testing.T) {
	cfg := testConfig()
	l, _ := NewLayout(cfg.HorizonSteps)
	b := constraintBuilder{cfg: cfg, layout: l}

	lo, hi := b.variableBounds()
	require.Len(t, lo, l.NumVariables())

	for _, f := range stateFields {
		for step := 0; step < cfg.HorizonSteps; step++ {
			assert.Equal(t, -freeBound, lo[l.Offset(f)+step])
			assert.Equal(t, freeBound, hi[l.Offset(f)+step])
		}
	}
	for step := 0; step < cfg.HorizonSteps-1; step++ {
		assert.Equal(t, -cfg.MaxSteerRad, lo[l.Offset(FieldSteer)+step])
		assert.Equal(t, cfg.MaxSteerRad, hi[l.Offset(FieldSteer)+step])
		assert.Equal(t, -cfg.MaxAccel, lo[l.Offset(FieldAccel)+step])
		assert.Equal(t, cfg.MaxAccel, hi[l.Offset(FieldAccel)+step])
	}
}

func TestInitialGuessIsDynamicsFeasible(t *testing.T) {
	cfg := testConfig()
	ref := path.Polynomial{0.2, 0.05, 0, 0}
	l, _ := NewLayout(cfg.HorizonSteps)
	b := constraintBuilder{cfg: cfg, layout: l}

	s := State{Speed: 8, CTE: 0.2, HeadingErr: -0.05}
	guess := b.initialGuess(s, ref)

	eval, err := NewEvaluator(cfg, ref)
	require.NoError(t, err)
	_, cons := nlp.Value(eval, guess)

	// Initial rows reproduce the state; dynamics rows vanish.
	for i, f := range stateFields {
		assert.InDelta(t, s.Slice()[i], cons[l.Offset(f)], 1e-12)
		for step := 1; step < cfg.HorizonSteps; step++ {
			assert.InDelta(t, 0, cons[l.Offset(f)+step], 1e-12, "field=%s t=%d", f, step)
		}
	}
}
