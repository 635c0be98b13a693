package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mpc-drive-core/mpc"
)

func writeScenario(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "scen.json")
	require.NoError(t, os.WriteFile(p, []byte(body), 0644))
	return p
}

func TestLoadScenarioDefaults(t *testing.T) {
	p := writeScenario(t, `{
		"meta": {"name": "min", "version": 1},
		"timing": {"duration_s": 10},
		"track": {
			"waypoints_x": [0, 10, 20, 30, 40, 50],
			"waypoints_y": [0, 0, 0, 0, 0, 0]
		},
		"initial": {"speed_mps": 5}
	}`)

	scen, err := LoadScenario(p)
	require.NoError(t, err)

	assert.Equal(t, 3, scen.Track.FitDegree, "degree defaults to cubic")
	assert.Equal(t, 6, scen.Track.FitWindow, "window defaults to 6")
	assert.Nil(t, scen.MPCConfig)

	cfg := scen.ControllerConfig()
	assert.Equal(t, 10, cfg.HorizonSteps, "falls back to default tuning")
}

func TestLoadScenarioValidation(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"zero duration", `{
			"meta": {"name": "x"}, "timing": {"duration_s": 0},
			"track": {"waypoints_x": [0,1,2,3,4,5], "waypoints_y": [0,0,0,0,0,0]}
		}`},
		{"waypoint mismatch", `{
			"meta": {"name": "x"}, "timing": {"duration_s": 1},
			"track": {"waypoints_x": [0,1,2,3,4,5], "waypoints_y": [0,0,0]}
		}`},
		{"degree too high", `{
			"meta": {"name": "x"}, "timing": {"duration_s": 1},
			"track": {"waypoints_x": [0,1,2,3,4,5], "waypoints_y": [0,0,0,0,0,0], "fit_degree": 4}
		}`},
		{"window below degree", `{
			"meta": {"name": "x"}, "timing": {"duration_s": 1},
			"track": {"waypoints_x": [0,1,2,3,4,5], "waypoints_y": [0,0,0,0,0,0], "fit_window": 2}
		}`},
		{"too few waypoints", `{
			"meta": {"name": "x"}, "timing": {"duration_s": 1},
			"track": {"waypoints_x": [0,1,2], "waypoints_y": [0,0,0]}
		}`},
		{"bad mpc config", `{
			"meta": {"name": "x"}, "timing": {"duration_s": 1},
			"track": {"waypoints_x": [0,1,2,3,4,5], "waypoints_y": [0,0,0,0,0,0]},
			"mpc_config": {"horizon_steps": 1, "step_seconds": 0.05, "wheelbase_lf": 2.67,
				"max_steer_rad": 0.4, "max_accel": 1}
		}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := LoadScenario(writeScenario(t, tc.body))
			assert.Error(t, err)
		})
	}
}

func TestShippedScenarioLoads(t *testing.T) {
	scen, err := LoadScenario("straight_line_50s.json")
	require.NoError(t, err)
	require.NotNil(t, scen.MPCConfig)
	assert.Equal(t, 10, scen.MPCConfig.HorizonSteps)
	assert.Equal(t, 15.0, scen.MPCConfig.RefSpeed)
}

func TestPlantStep(t *testing.T) {
	p := NewPlant(InitialPose{SpeedMPS: 10}, 2.67)
	p.Step(mpc.Actuation{Accel: 0.5}, 0.1)

	assert.InDelta(t, 1.0, p.X, 1e-12, "x advances at speed")
	assert.InDelta(t, 0.0, p.Y, 1e-12)
	assert.InDelta(t, 10.05, p.Speed, 1e-12)

	// Speed never goes negative under full brake.
	q := NewPlant(InitialPose{SpeedMPS: 0.01}, 2.67)
	q.Step(mpc.Actuation{Accel: -1}, 1)
	assert.Zero(t, q.Speed)
}
