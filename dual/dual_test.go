package dual

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// finite-difference reference derivative
func fd(f func(float64) float64, x float64) float64 {
	const h = 1e-6
	return (f(x+h) - f(x-h)) / (2 * h)
}

func TestArithmeticDerivatives(t *testing.T) {
	cases := []struct {
		name  string
		dualF func(Number) Number
		refF  func(float64) float64
	}{
		{"add", func(x Number) Number { return Add(x, Const(3)) }, func(x float64) float64 { return x + 3 }},
		{"sub", func(x Number) Number { return Sub(Const(1), x) }, func(x float64) float64 { return 1 - x }},
		{"mul", func(x Number) Number { return Mul(x, x) }, func(x float64) float64 { return x * x }},
		{"div", func(x Number) Number { return Div(Const(2), x) }, func(x float64) float64 { return 2 / x }},
		{"sqr", Sqr, func(x float64) float64 { return x * x }},
		{"sin", Sin, math.Sin},
		{"cos", Cos, math.Cos},
		{"atan", Atan, math.Atan},
		{"scale", func(x Number) Number { return Scale(-4.5, x) }, func(x float64) float64 { return -4.5 * x }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			for _, x := range []float64{-1.7, 0.3, 2.9} {
				got := tc.dualF(Var(x))
				assert.InDelta(t, tc.refF(x), got.Re, 1e-12, "value at x=%v", x)
				assert.InDelta(t, fd(tc.refF, x), got.Du, 1e-5, "derivative at x=%v", x)
			}
		})
	}
}

func TestComposedExpression(t *testing.T) {
	// f(x) = sin(x)*x + atan(2x)
	f := func(x float64) float64 { return math.Sin(x)*x + math.Atan(2*x) }
	x := 0.8
	got := Add(Mul(Sin(Var(x)), Var(x)), Atan(Scale(2, Var(x))))
	assert.InDelta(t, f(x), got.Re, 1e-12)
	assert.InDelta(t, fd(f, x), got.Du, 1e-5)
}

func TestConstHasZeroDerivative(t *testing.T) {
	y := Mul(Const(5), Const(7))
	require.Equal(t, 35.0, y.Re)
	require.Equal(t, 0.0, y.Du)
}

func TestSliceHelpers(t *testing.T) {
	vs := []float64{1, 2, 3}
	lifted := Consts(vs)
	for _, n := range lifted {
		assert.Zero(t, n.Du)
	}
	assert.Equal(t, vs, Values(lifted))
}
