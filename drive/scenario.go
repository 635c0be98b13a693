package main

import (
	"encoding/json"
	"fmt"
	"os"

	"mpc-drive-core/mpc"
	"mpc-drive-core/path"
)

// Scenario defines a complete closed-loop run: the reference track, the
// initial vehicle pose, timing, and the controller tuning.
type Scenario struct {
	Meta      ScenarioMeta   `json:"meta"`
	Timing    ScenarioTiming `json:"timing"`
	Track     Track          `json:"track"`
	Initial   InitialPose    `json:"initial"`
	MPCConfig *mpc.Config    `json:"mpc_config,omitempty"` // nil means mpc.DefaultConfig
}

// ScenarioMeta contains scenario metadata.
type ScenarioMeta struct {
	Name        string `json:"name"`
	Version     int    `json:"version"`
	Description string `json:"description"`
}

// ScenarioTiming defines loop timing.
type ScenarioTiming struct {
	DurationS    float64 `json:"duration_s"`
	LogHz        float64 `json:"log_hz"`
	RealTimeMode bool    `json:"real_time_mode"`
}

// Track is the reference path as global waypoints plus fitting parameters.
type Track struct {
	WaypointsX []float64 `json:"waypoints_x"`
	WaypointsY []float64 `json:"waypoints_y"`
	FitDegree  int       `json:"fit_degree"`
	// FitWindow is how many upcoming waypoints feed each per-cycle fit.
	FitWindow int `json:"fit_window"`
}

// InitialPose is the vehicle's starting global pose.
type InitialPose struct {
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Heading  float64 `json:"heading"`
	SpeedMPS float64 `json:"speed_mps"`
}

// LoadScenario loads and validates a scenario JSON file.
func LoadScenario(p string) (Scenario, error) {
	data, err := os.ReadFile(p)
	if err != nil {
		return Scenario{}, fmt.Errorf("read file: %w", err)
	}

	var scen Scenario
	if err := json.Unmarshal(data, &scen); err != nil {
		return Scenario{}, fmt.Errorf("unmarshal: %w", err)
	}

	if scen.Timing.DurationS <= 0 {
		return Scenario{}, fmt.Errorf("invalid duration_s: %f", scen.Timing.DurationS)
	}
	if len(scen.Track.WaypointsX) != len(scen.Track.WaypointsY) {
		return Scenario{}, fmt.Errorf("track waypoint count mismatch: %d x vs %d y",
			len(scen.Track.WaypointsX), len(scen.Track.WaypointsY))
	}
	if scen.Track.FitDegree == 0 {
		scen.Track.FitDegree = path.MaxDegree
	}
	if scen.Track.FitDegree < 1 || scen.Track.FitDegree > path.MaxDegree {
		return Scenario{}, fmt.Errorf("invalid fit_degree: %d", scen.Track.FitDegree)
	}
	if scen.Track.FitWindow == 0 {
		scen.Track.FitWindow = 6
	}
	if scen.Track.FitWindow < scen.Track.FitDegree+1 {
		return Scenario{}, fmt.Errorf("fit_window %d too small for degree %d",
			scen.Track.FitWindow, scen.Track.FitDegree)
	}
	if len(scen.Track.WaypointsX) < scen.Track.FitWindow {
		return Scenario{}, fmt.Errorf("track has %d waypoints, fit_window needs %d",
			len(scen.Track.WaypointsX), scen.Track.FitWindow)
	}

	if scen.MPCConfig != nil {
		if err := scen.MPCConfig.Validate(); err != nil {
			return Scenario{}, fmt.Errorf("mpc_config: %w", err)
		}
	}
	return scen, nil
}

// ControllerConfig resolves the scenario's tuning, falling back to defaults.
func (s Scenario) ControllerConfig() mpc.Config {
	if s.MPCConfig != nil {
		return *s.MPCConfig
	}
	return mpc.DefaultConfig()
}
