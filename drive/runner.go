package main

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"mpc-drive-core/mpc"
	"mpc-drive-core/nlp/auglag"
	"mpc-drive-core/path"
	"mpc-drive-core/utils"
)

type RunnerConfig struct {
	Mode         string // "sim" or "can"
	Interface    string
	MapPath      string
	ScenarioPath string
	FrameName    string
}

// Runner drives the closed loop: sense, fit the reference path, solve one
// MPC cycle, actuate, repeat.
type Runner struct {
	cfg  RunnerConfig
	log  *utils.Logger
	scen Scenario
	ctrl *mpc.Controller

	// can mode only
	cmap   *utils.CANMap
	writer utils.CANWriter
	reader utils.CANReader
	fd     *utils.FrameDef
}

func NewRunner(ctx context.Context, cfg RunnerConfig, log *utils.Logger) (*Runner, error) {
	scen, err := LoadScenario(cfg.ScenarioPath)
	if err != nil {
		return nil, fmt.Errorf("load scenario: %w", err)
	}

	ctrl, err := mpc.NewController(scen.ControllerConfig(), auglag.New(), log)
	if err != nil {
		return nil, fmt.Errorf("controller: %w", err)
	}

	r := &Runner{cfg: cfg, log: log, scen: scen, ctrl: ctrl}

	if cfg.Mode == "can" {
		cmap, err := utils.LoadCANMap(cfg.MapPath)
		if err != nil {
			return nil, fmt.Errorf("load can map: %w", err)
		}
		fd, err := cmap.FrameByName(cfg.FrameName)
		if err != nil {
			return nil, fmt.Errorf("frame: %w", err)
		}
		if fd.CycleMS <= 0 {
			return nil, fmt.Errorf("frame %s has invalid cycle_ms %d", fd.Name, fd.CycleMS)
		}

		writer, err := utils.NewSocketCANWriter(ctx, cfg.Interface)
		if err != nil {
			return nil, err
		}
		reader, err := utils.NewSocketCANReader(ctx, cfg.Interface)
		if err != nil {
			writer.Close()
			return nil, err
		}
		r.cmap = cmap
		r.fd = fd
		r.writer = writer
		r.reader = reader
	}

	return r, nil
}

func (r *Runner) Close() {
	if r.reader != nil {
		_ = r.reader.Close()
	}
	if r.writer != nil {
		_ = r.writer.Close()
	}
}

func (r *Runner) Run(ctx context.Context) error {
	r.log.Info("Starting run: scenario=%s mode=%s duration=%.2fs horizon=%d dt=%.3f",
		r.scen.Meta.Name, r.cfg.Mode, r.scen.Timing.DurationS,
		r.ctrl.Config().HorizonSteps, r.ctrl.Config().StepSeconds)

	switch r.cfg.Mode {
	case "sim":
		return r.runSim(ctx)
	case "can":
		return r.runCAN(ctx)
	default:
		return fmt.Errorf("unknown mode %q (want sim or can)", r.cfg.Mode)
	}
}

// referenceForPose fits the upcoming stretch of track in the vehicle frame
// and returns the polynomial plus the vehicle-frame state. A nil polynomial
// with nil error means the track ran out.
func (r *Runner) referenceForPose(px, py, heading, speed float64) (path.Polynomial, mpc.State, error) {
	xs, ys := path.ToVehicleFrame(r.scen.Track.WaypointsX, r.scen.Track.WaypointsY, px, py, heading)

	// Waypoints are ordered along the track; fit the window starting at the
	// first one still ahead of the vehicle.
	first := -1
	for i, x := range xs {
		if x > 0 {
			first = i
			break
		}
	}
	if first < 0 || len(xs)-first < r.scen.Track.FitDegree+1 {
		return nil, mpc.State{}, nil
	}
	end := first + r.scen.Track.FitWindow
	if end > len(xs) {
		end = len(xs)
	}

	poly, err := path.Fit(xs[first:end], ys[first:end], r.scen.Track.FitDegree)
	if err != nil {
		return nil, mpc.State{}, fmt.Errorf("fit: %w", err)
	}

	// In its own frame the vehicle sits at the origin with zero heading, so
	// cte and heading error come straight from the polynomial at x=0.
	state := mpc.State{
		Speed:      speed,
		CTE:        poly.Eval(0),
		HeadingErr: -math.Atan(poly.Slope(0)),
	}
	return poly, state, nil
}

func (r *Runner) runSim(ctx context.Context) error {
	cfg := r.ctrl.Config()
	dt := cfg.StepSeconds
	plant := NewPlant(r.scen.Initial, cfg.WheelbaseLf)

	steps := int(r.scen.Timing.DurationS / dt)
	logEvery := 1
	if r.scen.Timing.LogHz > 0 {
		if n := int(1 / (r.scen.Timing.LogHz * dt)); n > 1 {
			logEvery = n
		}
	}

	var act mpc.Actuation // held across failed solves
	var guess []float64

	for step := 0; step < steps; step++ {
		if err := ctx.Err(); err != nil {
			r.log.Warn("Context canceled; stopping sim")
			return err
		}

		poly, state, err := r.referenceForPose(plant.X, plant.Y, plant.Heading, plant.Speed)
		if err != nil {
			return err
		}
		if poly == nil {
			r.log.Info("Track complete after %.2fs", float64(step)*dt)
			return nil
		}

		pred, err := r.solveCycle(ctx, state, poly, guess)
		switch {
		case err == nil:
			act = pred.Actuation
			guess = r.ctrl.ShiftGuess(pred.Solution)
		case isSolveFailure(err):
			// Fallback policy: hold the previous command for one cycle.
			r.log.Warn("Solve failed at t=%.2f (%v); holding previous command", float64(step)*dt, err)
			guess = nil
		default:
			return err
		}

		plant.Step(act, dt)

		if step%logEvery == 0 {
			r.log.Info("t=%.2f pos=(%.2f,%.2f) v=%.2f cte=%.3f steer=%.4f accel=%.3f",
				float64(step)*dt, plant.X, plant.Y, plant.Speed, state.CTE, act.Steer, act.Accel)
		}
		if r.scen.Timing.RealTimeMode {
			time.Sleep(time.Duration(dt * float64(time.Second)))
		}
	}

	r.log.Info("Sim complete. steps=%d", steps)
	return nil
}

// vehicleFeedback is the latest decoded pose and speed from the bus. Pose
// and speed arrive in separate frames, so each carries its own timestamp; a
// cycle only runs when both are fresh.
type vehicleFeedback struct {
	X         float64
	Y         float64
	Heading   float64
	SpeedMPS  float64
	PoseWhen  time.Time
	SpeedWhen time.Time
}

// maxFeedbackAge is how stale either feedback half may be before the cycle
// is skipped rather than steered from outdated state.
const maxFeedbackAge = 500 * time.Millisecond

// fresh reports whether both the pose and the speed have been seen within
// maxFeedbackAge of now.
func (fb vehicleFeedback) fresh(now time.Time) bool {
	if fb.PoseWhen.IsZero() || now.Sub(fb.PoseWhen) > maxFeedbackAge {
		return false
	}
	if fb.SpeedWhen.IsZero() || now.Sub(fb.SpeedWhen) > maxFeedbackAge {
		return false
	}
	return true
}

// feedbackUpdate is one decoded RX frame; pose and speed frames arrive
// independently and are merged into the running feedback.
type feedbackUpdate struct {
	pose     bool
	x, y     float64
	heading  float64
	speedMPS float64
	when     time.Time
}

func (r *Runner) runCAN(ctx context.Context) error {
	ticker := time.NewTicker(time.Duration(r.fd.CycleMS) * time.Millisecond)
	defer ticker.Stop()

	start := time.Now()
	endAfter := time.Duration(r.scen.Timing.DurationS * float64(time.Second))

	rxChan := make(chan feedbackUpdate, 100)
	go r.receiveLoop(ctx, rxChan)

	var fb vehicleFeedback
	var guess []float64
	var sent uint64

	for {
		select {
		case <-ctx.Done():
			r.log.Warn("Context canceled; stopping TX")
			r.log.Info("Completed TX. frames_sent=%d", sent)
			return ctx.Err()

		case update := <-rxChan:
			fb = mergeFeedback(fb, update)

		case now := <-ticker.C:
			if now.Sub(start) > endAfter {
				r.log.Info("Completed TX. frames_sent=%d", sent)
				return nil
			}
			t := now.Sub(start).Seconds()

			if !fb.fresh(now) {
				r.log.Warn("No fresh vehicle feedback at t=%.2f; skipping cycle", t)
				continue
			}

			poly, state, err := r.referenceForPose(fb.X, fb.Y, fb.Heading, fb.SpeedMPS)
			if err != nil {
				return err
			}
			if poly == nil {
				r.log.Info("Track complete at t=%.2f. frames_sent=%d", t, sent)
				return nil
			}

			pred, err := r.solveCycle(ctx, state, poly, guess)
			if err != nil {
				if !isSolveFailure(err) {
					return err
				}
				r.log.Warn("Solve failed at t=%.2f (%v); holding previous command", t, err)
				guess = nil
				continue
			}
			guess = r.ctrl.ShiftGuess(pred.Solution)

			frame, err := r.cmap.EncodeFrame(r.fd.Name, map[string]float64{
				"system_enable": 1,
				"steer_cmd_rad": pred.Actuation.Steer,
				"accel_cmd":     pred.Actuation.Accel,
			})
			if err != nil {
				r.log.Error("Encode failed at t=%.3f: %v", t, err)
				return err
			}
			if err := r.writer.WriteFrame(ctx, frame); err != nil {
				r.log.Critical("Transmit failed at t=%.3f: %v", t, err)
				return err
			}
			sent++
			r.log.Trace("TX t=%.3f id=0x%X steer=%.4f accel=%.3f obj=%.3f",
				t, frame.ID, pred.Actuation.Steer, pred.Actuation.Accel, pred.Objective)
		}
	}
}

func (r *Runner) solveCycle(ctx context.Context, state mpc.State, poly path.Polynomial, guess []float64) (*mpc.Prediction, error) {
	if guess != nil {
		return r.ctrl.SolveWithGuess(ctx, state, poly, guess)
	}
	return r.ctrl.Solve(ctx, state, poly)
}

// receiveLoop decodes pose and state frames off the bus.
func (r *Runner) receiveLoop(ctx context.Context, out chan<- feedbackUpdate) {
	r.log.Debug("RX loop started")
	defer r.log.Debug("RX loop stopped")

	for {
		if ctx.Err() != nil {
			return
		}
		frame, err := r.reader.ReadFrame(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			r.log.Error("RX error: %v", err)
			continue
		}

		vals, err := r.cmap.DecodeFrame(frame.ID, frame.Data[:frame.Length])
		if err != nil {
			r.log.Trace("RX unknown frame id=0x%X", frame.ID)
			continue
		}

		var fb feedbackUpdate
		fb.when = time.Now()
		switch frame.ID {
		case 0x300: // VEHICLE_POSE
			fb.pose = true
			fb.x = vals["pos_x_m"]
			fb.y = vals["pos_y_m"]
			fb.heading = vals["heading_rad"]
		case 0x301: // VEHICLE_STATE
			fb.speedMPS = vals["speed_mps"]
		default:
			continue
		}

		select {
		case out <- fb:
		default:
			// Channel full; drop this sample.
		}
	}
}

func mergeFeedback(cur vehicleFeedback, update feedbackUpdate) vehicleFeedback {
	if update.pose {
		cur.X, cur.Y, cur.Heading = update.x, update.y, update.heading
		cur.PoseWhen = update.when
	} else {
		cur.SpeedMPS = update.speedMPS
		cur.SpeedWhen = update.when
	}
	return cur
}

func isSolveFailure(err error) bool {
	var se *mpc.SolveError
	return errors.As(err, &se)
}
