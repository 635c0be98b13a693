package path

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mpc-drive-core/dual"
)

func TestEvalAndSlope(t *testing.T) {
	// y = 1 + 2x - 0.5x² + 0.1x³
	p := Polynomial{1, 2, -0.5, 0.1}

	assert.InDelta(t, 1.0, p.Eval(0), 1e-12)
	assert.InDelta(t, 1+2*2-0.5*4+0.1*8, p.Eval(2), 1e-12)
	assert.InDelta(t, 2.0, p.Slope(0), 1e-12)
	assert.InDelta(t, 2-1.0*2+0.3*4, p.Slope(2), 1e-12)
}

func TestDualEvalMatchesPlain(t *testing.T) {
	p := Polynomial{0.5, -1, 0.25, 0.05}
	for _, x := range []float64{-3, 0, 1.7} {
		d := p.EvalDual(dual.Var(x))
		assert.InDelta(t, p.Eval(x), d.Re, 1e-12)
		assert.InDelta(t, p.Slope(x), d.Du, 1e-12, "derivative of Eval is Slope")

		ds := p.SlopeDual(dual.Var(x))
		assert.InDelta(t, p.Slope(x), ds.Re, 1e-12)
	}
}

func TestFitRecoversExactCubic(t *testing.T) {
	want := Polynomial{2, -1, 0.3, -0.02}
	xs := []float64{-4, -2, -1, 0, 1, 3, 5, 8}
	ys := make([]float64, len(xs))
	for i, x := range xs {
		ys[i] = want.Eval(x)
	}

	got, err := Fit(xs, ys, 3)
	require.NoError(t, err)
	require.Len(t, got, 4)
	for i := range want {
		assert.InDelta(t, want[i], got[i], 1e-9, "coefficient %d", i)
	}
}

func TestFitRejectsBadInput(t *testing.T) {
	_, err := Fit([]float64{0, 1, 2}, []float64{0, 1, 2}, 4)
	assert.Error(t, err, "degree above maximum")

	_, err = Fit([]float64{0, 1}, []float64{0, 1, 2}, 1)
	assert.Error(t, err, "length mismatch")

	_, err = Fit([]float64{0, 1, 2}, []float64{0, 1, 2}, 3)
	assert.Error(t, err, "too few waypoints for degree")
}

func TestToVehicleFrame(t *testing.T) {
	// Vehicle at (10, 5) heading 90°: a waypoint straight ahead in the world
	// (10, 8) lands on the local +x axis.
	xs, ys := ToVehicleFrame([]float64{10}, []float64{8}, 10, 5, math.Pi/2)
	assert.InDelta(t, 3.0, xs[0], 1e-12)
	assert.InDelta(t, 0.0, ys[0], 1e-12)

	// Identity pose leaves waypoints unchanged.
	xs, ys = ToVehicleFrame([]float64{1, 2}, []float64{3, 4}, 0, 0, 0)
	assert.InDelta(t, 1.0, xs[0], 1e-12)
	assert.InDelta(t, 4.0, ys[1], 1e-12)
}
