package main

import (
	"errors"
	stdlog "log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/gymbatch/gymbatch/consts"
	"github.com/gymbatch/gymbatch/internal/launch"
	"github.com/gymbatch/gymbatch/internal/log"
)

// Version is a build-time variable. The value is overridden by ldflags.
var Version string

func main() {
	var (
		logLevel int
		plan     launch.Plan
	)

	app := &cli.App{
		Name:    "gymbatch-launch",
		Usage:   "Container entry point that gates the training client on tracking-server readiness",
		Version: Version,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:        "log-level",
				Value:       4,
				DefaultText: "4 (Info)",
				Usage:       "log verbosity level: 2 (Error), 3 (Warning), 4 (Info), 5 (Debug), 6 (Trace)",
				Destination: &logLevel,
				EnvVars:     []string{"GYMBATCH_LOG_LEVEL"},
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "Start the tracking server, wait for it, then run the client",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:        "client-command",
						Usage:       "Training client command, run in the foreground",
						Required:    true,
						Destination: &plan.ClientCommand,
					},
					&cli.StringFlag{
						Name:        "server-command",
						Usage:       "Tracking server command, run in the background; empty skips the server phase",
						Destination: &plan.ServerCommand,
					},
					&cli.StringFlag{
						Name:        "ready-host",
						Usage:       "Host the readiness probe connects to",
						Value:       consts.TrackingHost,
						Destination: &plan.Probe.Host,
					},
					&cli.IntFlag{
						Name:        "ready-port",
						Usage:       "Port the readiness probe connects to",
						Value:       consts.TrackingPort,
						Destination: &plan.Probe.Port,
					},
					&cli.DurationFlag{
						Name:        "ready-timeout",
						Usage:       "Window the server has to accept a connection",
						Value:       consts.DefaultReadyTimeout,
						Destination: &plan.Probe.Timeout,
					},
					&cli.DurationFlag{
						Name:        "poll-interval",
						Usage:       "Pause between connection attempts",
						Value:       consts.DefaultPollInterval,
						Destination: &plan.Probe.Interval,
					},
				},
				Action: func(c *cli.Context) error {
					return run(c, logLevel, plan)
				},
			},
		},
	}
	if err := app.Run(os.Args); err != nil {
		stdlog.Fatal(err)
	}
}

func run(c *cli.Context, logLevel int, plan launch.Plan) error {
	log.DefaultEntry.Logger.SetLevel(logrus.Level(logLevel))
	ctx, stop := signal.NotifyContext(log.WithLogger(c.Context, log.DefaultEntry), os.Interrupt, syscall.SIGTERM)
	defer stop()

	started := time.Now()
	launcher := launch.New(plan, os.Stdout, os.Stderr)
	err := launcher.Run(ctx)
	log.Info(ctx, "launch finished",
		"state", string(launcher.State()),
		"exit_code", launcher.ExitCode(),
		"elapsed", time.Since(started).Round(time.Millisecond))
	if err == nil {
		return nil
	}

	// The exit code is the contract with the submitting side: the
	// client's own code passes through, a server that never came up is
	// EX_UNAVAILABLE.
	var clientErr *launch.ClientExitError
	if errors.As(err, &clientErr) {
		return cli.Exit(err, clientErr.Code)
	}
	if errors.Is(err, launch.ErrServerNotReady) {
		return cli.Exit(err, consts.ExitServerNotReady)
	}
	return cli.Exit(err, 1)
}
