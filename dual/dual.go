// Package dual implements forward-mode automatic differentiation on a
// value/derivative pair. Formulas written once over Number evaluate either
// plainly (zero derivative seed) or with an exact directional derivative
// carried alongside the value.
package dual

import "math"

// Number is a first-order dual number: Re is the value, Du the derivative
// of that value with respect to whichever variable was seeded with Var.
type Number struct {
	Re float64
	Du float64
}

// Const lifts a plain float into a Number with zero derivative.
func Const(v float64) Number { return Number{Re: v} }

// Var lifts a variable value with unit derivative seed.
func Var(v float64) Number { return Number{Re: v, Du: 1} }

func Add(a, b Number) Number { return Number{a.Re + b.Re, a.Du + b.Du} }

func Sub(a, b Number) Number { return Number{a.Re - b.Re, a.Du - b.Du} }

func Mul(a, b Number) Number {
	return Number{a.Re * b.Re, a.Du*b.Re + a.Re*b.Du}
}

func Div(a, b Number) Number {
	return Number{a.Re / b.Re, (a.Du*b.Re - a.Re*b.Du) / (b.Re * b.Re)}
}

// Scale multiplies by a plain constant.
func Scale(k float64, a Number) Number { return Number{k * a.Re, k * a.Du} }

// Sqr returns a*a with one multiply on the derivative side.
func Sqr(a Number) Number { return Number{a.Re * a.Re, 2 * a.Re * a.Du} }

func Sin(a Number) Number {
	return Number{math.Sin(a.Re), math.Cos(a.Re) * a.Du}
}

func Cos(a Number) Number {
	return Number{math.Cos(a.Re), -math.Sin(a.Re) * a.Du}
}

func Atan(a Number) Number {
	return Number{math.Atan(a.Re), a.Du / (1 + a.Re*a.Re)}
}

// Values extracts the plain values of a slice of Numbers.
func Values(xs []Number) []float64 {
	out := make([]float64, len(xs))
	for i, x := range xs {
		out[i] = x.Re
	}
	return out
}

// Consts lifts a slice of plain floats with zero derivative seeds.
func Consts(vs []float64) []Number {
	out := make([]Number, len(vs))
	for i, v := range vs {
		out[i] = Const(v)
	}
	return out
}
