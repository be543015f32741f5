// Package job drives one training job end to end: validate the resource
// request, acquire resources, build the container invocation, run it, and
// classify the outcome. One request, one attempt, one result.
package job

import (
	"context"
	"fmt"

	"github.com/gymbatch/gymbatch/consts"
	"github.com/gymbatch/gymbatch/internal/container"
	"github.com/gymbatch/gymbatch/internal/launch"
	"github.com/gymbatch/gymbatch/internal/log"
	"github.com/gymbatch/gymbatch/internal/sched"
)

// FailureKind classifies why a job did not succeed.
type FailureKind string

const (
	// FailureResourceDenied: the resource request was invalid or the
	// scheduler refused to grant it.
	FailureResourceDenied FailureKind = "resource_denied"
	// FailureContainerLaunch: the container invocation could not be
	// built, or the engine failed before the entry command ran.
	FailureContainerLaunch FailureKind = "container_launch_failed"
	// FailureServerNotReady: the tracking server died or never accepted
	// a connection within its ready window.
	FailureServerNotReady FailureKind = "server_not_ready"
	// FailureClientFailed: the training client ran and exited nonzero.
	FailureClientFailed FailureKind = "client_failed"
)

// Result is a job's terminal outcome. ExitCode is -1 when no container
// process ran at all.
type Result struct {
	ExitCode int
	// Failure is empty on success.
	Failure FailureKind
	Message string
}

func (r Result) OK() bool {
	return r.Failure == ""
}

// Scheduler grants cluster resources for a manifest, blocking until they are
// attached to the calling host or refused.
type Scheduler interface {
	Grant(ctx context.Context, m *sched.Manifest) error
}

// Immediate is a Scheduler for hosts whose resources are already attached,
// such as a workstation or a node inside an existing allocation. Every
// request is granted without an external call.
type Immediate struct{}

func (Immediate) Grant(context.Context, *sched.Manifest) error {
	return nil
}

// Executor runs a built container invocation in the foreground and reports
// its exit code.
type Executor interface {
	Exec(ctx context.Context, argv []string) (int, error)
}

// Orchestrator runs jobs. It performs no retries: a failed stage produces a
// classified Result and the job is over.
type Orchestrator struct {
	scheduler    Scheduler
	builder      *container.Builder
	executor     Executor
	runtime      container.Runtime
	launcherPath string
}

func NewOrchestrator(s Scheduler, b *container.Builder, e Executor, rt container.Runtime) *Orchestrator {
	return &Orchestrator{
		scheduler:    s,
		builder:      b,
		executor:     e,
		runtime:      rt,
		launcherPath: consts.LauncherMountPath,
	}
}

// Run takes a job through its stages in order. Each stage runs only if every
// stage before it succeeded; the first failure classifies the result.
func (o *Orchestrator) Run(ctx context.Context, req sched.Request, spec container.RunSpec, plan launch.Plan) Result {
	manifest, err := sched.Build(req)
	if err != nil {
		return failed(FailureResourceDenied, err)
	}
	if err := plan.Validate(); err != nil {
		return failed(FailureContainerLaunch, err)
	}

	log.Info(ctx, "requesting resources", "gpus", req.GPUs, "wall_time", req.WallTime)
	if err := o.scheduler.Grant(ctx, manifest); err != nil {
		return failed(FailureResourceDenied, err)
	}

	spec.Command = launch.Command(o.launcherPath, plan)
	argv, err := o.builder.Build(ctx, spec, o.runtime)
	if err != nil {
		return failed(FailureContainerLaunch, err)
	}

	log.Info(ctx, "starting container", "runtime", string(o.runtime), "image", spec.Image, "name", spec.Name)
	code, err := o.executor.Exec(ctx, argv)
	if err != nil {
		return failed(FailureContainerLaunch, err)
	}
	res := fromExitCode(code)
	if res.OK() {
		log.Info(ctx, "job finished", "exit_code", res.ExitCode)
	} else {
		log.Error(ctx, "job failed", "kind", string(res.Failure), "exit_code", res.ExitCode)
	}
	return res
}

func failed(kind FailureKind, err error) Result {
	return Result{ExitCode: -1, Failure: kind, Message: err.Error()}
}

// fromExitCode classifies a finished container run. The engines reserve
// 125-127 for runs that never reached the entry command; the launch binary
// reserves EX_UNAVAILABLE for a tracking server that never came up. Anything
// else is the client's own exit code.
func fromExitCode(code int) Result {
	switch code {
	case 0:
		return Result{ExitCode: 0}
	case consts.ExitServerNotReady:
		return Result{
			ExitCode: code,
			Failure:  FailureServerNotReady,
			Message:  "tracking server was not ready",
		}
	case 125, 126, 127:
		return Result{
			ExitCode: code,
			Failure:  FailureContainerLaunch,
			Message:  fmt.Sprintf("engine failed to launch the container (exit code %d)", code),
		}
	}
	return Result{
		ExitCode: code,
		Failure:  FailureClientFailed,
		Message:  fmt.Sprintf("client exited with code %d", code),
	}
}
