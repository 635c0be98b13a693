// Package path represents the reference path handed to the controller as a
// low-degree polynomial in the vehicle-local frame, plus the least-squares
// fit that produces it from waypoints.
package path

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"mpc-drive-core/dual"
)

// MaxDegree is the highest polynomial degree the controller accepts.
const MaxDegree = 3

// Polynomial holds coefficients in ascending order: c[0] + c[1]x + c[2]x² + ...
type Polynomial []float64

// Eval evaluates the polynomial at x by Horner's rule.
func (p Polynomial) Eval(x float64) float64 {
	y := 0.0
	for i := len(p) - 1; i >= 0; i-- {
		y = y*x + p[i]
	}
	return y
}

// Slope evaluates the first derivative at x.
func (p Polynomial) Slope(x float64) float64 {
	y := 0.0
	for i := len(p) - 1; i >= 1; i-- {
		y = y*x + float64(i)*p[i]
	}
	return y
}

// EvalDual evaluates the polynomial on a dual number.
func (p Polynomial) EvalDual(x dual.Number) dual.Number {
	y := dual.Const(0)
	for i := len(p) - 1; i >= 0; i-- {
		y = dual.Add(dual.Mul(y, x), dual.Const(p[i]))
	}
	return y
}

// SlopeDual evaluates the first derivative on a dual number.
func (p Polynomial) SlopeDual(x dual.Number) dual.Number {
	y := dual.Const(0)
	for i := len(p) - 1; i >= 1; i-- {
		y = dual.Add(dual.Mul(y, x), dual.Const(float64(i)*p[i]))
	}
	return y
}

// Fit computes the least-squares polynomial of the given degree through the
// waypoints by solving the Vandermonde system with a QR decomposition.
func Fit(xs, ys []float64, degree int) (Polynomial, error) {
	if degree < 1 || degree > MaxDegree {
		return nil, fmt.Errorf("fit: degree %d out of range [1,%d]", degree, MaxDegree)
	}
	if len(xs) != len(ys) {
		return nil, fmt.Errorf("fit: %d x values vs %d y values", len(xs), len(ys))
	}
	if len(xs) < degree+1 {
		return nil, fmt.Errorf("fit: need at least %d waypoints for degree %d, got %d", degree+1, degree, len(xs))
	}

	a := mat.NewDense(len(xs), degree+1, nil)
	for i, x := range xs {
		v := 1.0
		for j := 0; j <= degree; j++ {
			a.Set(i, j, v)
			v *= x
		}
	}
	b := mat.NewVecDense(len(ys), ys)

	var qr mat.QR
	qr.Factorize(a)
	var c mat.VecDense
	if err := qr.SolveVecTo(&c, false, b); err != nil {
		return nil, fmt.Errorf("fit: solve: %w", err)
	}

	out := make(Polynomial, degree+1)
	for j := 0; j <= degree; j++ {
		out[j] = c.AtVec(j)
	}
	return out, nil
}

// ToVehicleFrame transforms global waypoints into the frame of a vehicle at
// (px, py) with the given heading: translate to the vehicle origin, then
// rotate so the x axis points along the heading. In that frame the vehicle
// sits at the origin with zero heading, which is what the fit and the
// controller expect.
func ToVehicleFrame(wx, wy []float64, px, py, heading float64) (xs, ys []float64) {
	xs = make([]float64, len(wx))
	ys = make([]float64, len(wy))
	c, s := math.Cos(-heading), math.Sin(-heading)
	for i := range wx {
		dx := wx[i] - px
		dy := wy[i] - py
		xs[i] = dx*c - dy*s
		ys[i] = dx*s + dy*c
	}
	return xs, ys
}
