package mpc

import "mpc-drive-core/dual"

// objective is the weighted sum of tracking, actuator-magnitude and
// actuator-smoothness terms over the horizon.
type objective struct {
	cfg    Config
	layout Layout
}

func (o objective) eval(vars []dual.Number) dual.Number {
	l := o.layout
	n := l.Horizon()
	cost := dual.Const(0)

	// Reference-tracking terms.
	for t := 0; t < n; t++ {
		cost = dual.Add(cost, dual.Scale(o.cfg.WeightCTE, dual.Sqr(vars[l.idx(FieldCTE, t)])))
		cost = dual.Add(cost, dual.Scale(o.cfg.WeightHeadingErr, dual.Sqr(vars[l.idx(FieldHeadingErr, t)])))
		speedErr := dual.Sub(vars[l.idx(FieldSpeed, t)], dual.Const(o.cfg.RefSpeed))
		cost = dual.Add(cost, dual.Scale(o.cfg.WeightSpeed, dual.Sqr(speedErr)))
	}

	// Actuator magnitude terms.
	for t := 0; t < n-1; t++ {
		cost = dual.Add(cost, dual.Scale(o.cfg.WeightSteer, dual.Sqr(vars[l.idx(FieldSteer, t)])))
		cost = dual.Add(cost, dual.Scale(o.cfg.WeightAccel, dual.Sqr(vars[l.idx(FieldAccel, t)])))
	}

	// Actuator smoothness terms, penalizing the gap between consecutive
	// commands.
	for t := 0; t < n-2; t++ {
		dSteer := dual.Sub(vars[l.idx(FieldSteer, t+1)], vars[l.idx(FieldSteer, t)])
		cost = dual.Add(cost, dual.Scale(o.cfg.WeightSteerRate, dual.Sqr(dSteer)))
		dAccel := dual.Sub(vars[l.idx(FieldAccel, t+1)], vars[l.idx(FieldAccel, t)])
		cost = dual.Add(cost, dual.Scale(o.cfg.WeightAccelRate, dual.Sqr(dAccel)))
	}

	return cost
}
