package main

import (
	stdlog "log"
	"os"

	"github.com/urfave/cli/v2"
)

// Version is a build-time variable. The value is overridden by ldflags.
var Version string

type cliArgs struct {
	LogLevel       int
	JobFile        string
	LauncherBinary string
	Scheduler      string
	OutputPath     string
}

func App() {
	var args cliArgs

	jobFileFlag := &cli.PathFlag{
		Name:        "file",
		Aliases:     []string{"f"},
		Usage:       "Job file to load",
		Required:    true,
		Destination: &args.JobFile,
		EnvVars:     []string{"GYMBATCH_JOB_FILE"},
	}
	launcherFlag := &cli.PathFlag{
		Name:        "launcher-binary",
		Usage:       "Path to the gymbatch-launch binary mounted into job containers",
		Destination: &args.LauncherBinary,
		EnvVars:     []string{"GYMBATCH_LAUNCH_BINARY_PATH"},
	}

	app := &cli.App{
		Name:    "gymbatch-submit",
		Usage:   "Runs containerized RL training jobs on batch clusters",
		Version: Version,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:        "log-level",
				Value:       4,
				DefaultText: "4 (Info)",
				Usage:       "log verbosity level: 2 (Error), 3 (Warning), 4 (Info), 5 (Debug), 6 (Trace)",
				Destination: &args.LogLevel,
				EnvVars:     []string{"GYMBATCH_LOG_LEVEL"},
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "Run a job in the foreground on this host",
				Flags: []cli.Flag{
					jobFileFlag,
					launcherFlag,
					&cli.StringFlag{
						Name:        "scheduler",
						Usage:       "How resources are granted: slurm (hold an allocation) or none (already attached)",
						Value:       "none",
						Destination: &args.Scheduler,
						EnvVars:     []string{"GYMBATCH_SCHEDULER"},
					},
				},
				Action: func(c *cli.Context) error {
					return runJob(appContext(c.Context, args.LogLevel), args)
				},
			},
			{
				Name:  "script",
				Usage: "Render the job as a batch script on stdout",
				Flags: []cli.Flag{
					jobFileFlag,
					launcherFlag,
					&cli.PathFlag{
						Name:        "output",
						Aliases:     []string{"o"},
						Usage:       "Write the script to a file instead of stdout",
						Destination: &args.OutputPath,
					},
				},
				Action: func(c *cli.Context) error {
					return writeScript(appContext(c.Context, args.LogLevel), args)
				},
			},
			{
				Name:  "submit",
				Usage: "Queue the job with the batch scheduler",
				Flags: []cli.Flag{jobFileFlag, launcherFlag},
				Action: func(c *cli.Context) error {
					return submitJob(appContext(c.Context, args.LogLevel), args)
				},
			},
		},
	}
	if err := app.Run(os.Args); err != nil {
		stdlog.Fatal(err)
	}
}
