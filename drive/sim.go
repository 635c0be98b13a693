package main

import (
	"math"

	"mpc-drive-core/mpc"
)

// Plant is the simulated vehicle for offline closed-loop runs: a global
// frame kinematic bicycle stepped at the control rate.
type Plant struct {
	X       float64
	Y       float64
	Heading float64
	Speed   float64

	lf float64
}

func NewPlant(init InitialPose, lf float64) *Plant {
	return &Plant{
		X:       init.X,
		Y:       init.Y,
		Heading: init.Heading,
		Speed:   init.SpeedMPS,
		lf:      lf,
	}
}

// Step advances the plant one timestep under the given actuation.
func (p *Plant) Step(act mpc.Actuation, dt float64) {
	p.X += p.Speed * math.Cos(p.Heading) * dt
	p.Y += p.Speed * math.Sin(p.Heading) * dt
	p.Heading += p.Speed / p.lf * act.Steer * dt
	p.Speed += act.Accel * dt
	if p.Speed < 0 {
		p.Speed = 0
	}
}
