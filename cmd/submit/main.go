package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/kballard/go-shellquote"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/gymbatch/gymbatch/consts"
	"github.com/gymbatch/gymbatch/internal/config"
	"github.com/gymbatch/gymbatch/internal/container"
	"github.com/gymbatch/gymbatch/internal/gerrors"
	"github.com/gymbatch/gymbatch/internal/job"
	"github.com/gymbatch/gymbatch/internal/launch"
	"github.com/gymbatch/gymbatch/internal/log"
	"github.com/gymbatch/gymbatch/internal/sched"
	"github.com/gymbatch/gymbatch/internal/slurm"
)

func main() {
	App()
}

func appContext(ctx context.Context, logLevel int) context.Context {
	log.DefaultEntry.Logger.SetLevel(logrus.Level(logLevel))
	return log.WithLogger(ctx, log.DefaultEntry)
}

func runJob(ctx context.Context, args cliArgs) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(args.JobFile)
	if err != nil {
		return cli.Exit(err, 1)
	}
	runID := uuid.New().String()
	req, spec, plan, rt, err := prepare(cfg, runID, args.LauncherBinary)
	if err != nil {
		return cli.Exit(err, 1)
	}

	var scheduler job.Scheduler = job.Immediate{}
	switch args.Scheduler {
	case "none":
	case "slurm":
		alloc := &slurm.Alloc{}
		defer func() {
			if err := alloc.Release(context.Background()); err != nil {
				log.Warning(ctx, "failed to release allocation", "err", err)
			}
		}()
		scheduler = alloc
	default:
		return cli.Exit(fmt.Sprintf("unknown scheduler %q, want slurm or none", args.Scheduler), 1)
	}

	var builderOpts []container.Option
	if checker, err := container.NewEngineNameChecker(); err != nil {
		log.Debug(ctx, "engine socket unavailable, skipping name pre-check", "err", err)
	} else {
		builderOpts = append(builderOpts, container.WithNameChecker(checker))
	}

	log.Info(ctx, "job prepared",
		"name", cfg.Name,
		"run_id", runID,
		"container", spec.Name,
		"shm", humanize.IBytes(uint64(spec.ShmBytes)))

	orch := job.NewOrchestrator(scheduler, container.NewBuilder(builderOpts...), &container.CLIExecutor{}, rt)
	res := orch.Run(ctx, req, spec, plan)
	if !res.OK() {
		return cli.Exit(fmt.Sprintf("%s: %s", res.Failure, res.Message), exitStatus(res))
	}
	return nil
}

func writeScript(ctx context.Context, args cliArgs) error {
	script, err := composeScript(ctx, args)
	if err != nil {
		return cli.Exit(err, 1)
	}
	if args.OutputPath == "" {
		fmt.Print(script)
		return nil
	}
	if err := os.WriteFile(args.OutputPath, []byte(script), 0o755); err != nil {
		return cli.Exit(err, 1)
	}
	log.Info(ctx, "script written", "path", args.OutputPath)
	return nil
}

func submitJob(ctx context.Context, args cliArgs) error {
	script, err := composeScript(ctx, args)
	if err != nil {
		return cli.Exit(err, 1)
	}
	jobID, err := slurm.Submit(ctx, script)
	if err != nil {
		return cli.Exit(err, 1)
	}
	log.Info(ctx, "job queued", "job_id", jobID)
	fmt.Println(jobID)
	return nil
}

// composeScript renders the whole job as a batch script: the resource
// manifest as directives, the container invocation as the body.
func composeScript(ctx context.Context, args cliArgs) (string, error) {
	cfg, err := config.Load(args.JobFile)
	if err != nil {
		return "", err
	}
	runID := uuid.New().String()
	req, spec, plan, rt, err := prepare(cfg, runID, args.LauncherBinary)
	if err != nil {
		return "", err
	}
	manifest, err := sched.Build(req)
	if err != nil {
		return "", err
	}
	spec.Command = launch.Command(consts.LauncherMountPath, plan)
	argv, err := container.NewBuilder().Build(ctx, spec, rt)
	if err != nil {
		return "", err
	}
	return sched.Script(manifest, shellquote.Join(argv...)), nil
}

func prepare(cfg *config.Job, runID, launcherFlag string) (sched.Request, container.RunSpec, launch.Plan, container.Runtime, error) {
	var (
		req  sched.Request
		spec container.RunSpec
		plan launch.Plan
		rt   container.Runtime
	)
	launcherPath, err := resolveLauncher(launcherFlag)
	if err != nil {
		return req, spec, plan, rt, err
	}
	if req, err = cfg.Request(); err != nil {
		return req, spec, plan, rt, err
	}
	if rt, err = cfg.RuntimeKind(); err != nil {
		return req, spec, plan, rt, err
	}
	if spec, err = cfg.RunSpec(runID, launcherPath); err != nil {
		return req, spec, plan, rt, err
	}
	if plan, err = cfg.Plan(); err != nil {
		return req, spec, plan, rt, err
	}
	return req, spec, plan, rt, nil
}

// resolveLauncher finds the gymbatch-launch binary to mount into the
// container: the explicit flag if given, otherwise a sibling of the running
// executable.
func resolveLauncher(flag string) (string, error) {
	if flag != "" {
		if _, err := os.Stat(flag); err != nil {
			return "", gerrors.Newf("launcher binary %s: %v", flag, err)
		}
		return flag, nil
	}
	self, err := os.Executable()
	if err != nil {
		return "", gerrors.Wrap(err)
	}
	sibling := filepath.Join(filepath.Dir(self), consts.LauncherBinaryName)
	if _, err := os.Stat(sibling); err != nil {
		return "", gerrors.Newf("%s not found next to %s; install it there or pass --launcher-binary", consts.LauncherBinaryName, self)
	}
	return sibling, nil
}

func exitStatus(res job.Result) int {
	if res.ExitCode > 0 {
		return res.ExitCode
	}
	return 1
}
