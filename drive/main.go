package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"mpc-drive-core/utils"
)

func main() {
	var (
		mode      = flag.String("mode", "sim", "Run mode: sim (offline plant) or can (SocketCAN)")
		iface     = flag.String("iface", "vcan0", "SocketCAN interface name (can mode)")
		mapPath   = flag.String("map", "config/can/can_map.csv", "Path to can_map.csv (can mode)")
		scenPath  = flag.String("scenario", "drive/straight_line_50s.json", "Scenario JSON file")
		frameName = flag.String("frame", "ACTUATOR_CMD", "Frame name to transmit (can mode)")
		logLevel  = flag.String("log", "info", "trace|debug|info|warn|error|critical")
	)
	flag.Parse()

	log, err := utils.NewFileLogger("mpc_drive.log", utils.ParseLevel(*logLevel), true)
	if err != nil {
		_, _ = os.Stderr.WriteString("ERROR: cannot open mpc_drive.log: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer log.Close()

	cfg := RunnerConfig{
		Mode:         *mode,
		Interface:    *iface,
		MapPath:      *mapPath,
		ScenarioPath: *scenPath,
		FrameName:    *frameName,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runner, err := NewRunner(ctx, cfg, log)
	if err != nil {
		log.Critical("Startup failed: %v", err)
		os.Exit(1)
	}
	defer runner.Close()

	if err := runner.Run(ctx); err != nil && err != context.Canceled {
		log.Critical("Run failed: %v", err)
		os.Exit(1)
	}
}
