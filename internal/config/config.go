// Package config loads job files. One YAML document describes a training job
// end to end: the image and client command, the resources to ask the cluster
// for, the container plumbing, and the tracking-server settings.
package config

import (
	"bytes"
	"os"
	"strconv"
	"time"

	"github.com/docker/go-units"
	"github.com/kballard/go-shellquote"
	"gopkg.in/yaml.v3"

	"github.com/gymbatch/gymbatch/consts"
	"github.com/gymbatch/gymbatch/internal/container"
	"github.com/gymbatch/gymbatch/internal/gerrors"
	"github.com/gymbatch/gymbatch/internal/launch"
	"github.com/gymbatch/gymbatch/internal/sched"
)

type Job struct {
	// Name identifies the job; container names and run IDs derive from
	// it. Required.
	Name  string `yaml:"name"`
	Image string `yaml:"image"`
	// Runtime is "docker" or "podman". Defaults to docker.
	Runtime string `yaml:"runtime"`
	// Command is the full training client command line. Either it or the
	// training section is required; command wins when both are present.
	Command   string    `yaml:"command"`
	Training  *Training `yaml:"training"`
	Resources Resources `yaml:"resources"`
	Container Container `yaml:"container"`
	Run       Run       `yaml:"run"`
	Tracking  Tracking  `yaml:"tracking"`
}

// Training composes the client command for jobs whose client follows the
// standard agent CLI, instead of spelling out a command line.
type Training struct {
	// Binary is the client executable inside the image.
	Binary string `yaml:"binary"`
	// Env is the environment name, e.g. PongNoFrameskip-v4.
	Env  string `yaml:"env"`
	Seed *int   `yaml:"seed"`
	// Mode is train or eval. Defaults to train.
	Mode string `yaml:"mode"`
}

type Resources struct {
	GPUs int `yaml:"gpus"`
	// Time is the wall-clock limit in scheduler syntax ("90", "HH:MM:SS",
	// "D-HH:MM:SS"). Required.
	Time string `yaml:"time"`
	// MergeOutput interleaves stderr into stdout. Defaults to true.
	MergeOutput *bool  `yaml:"merge_output"`
	WorkDir     string `yaml:"workdir"`
}

type Container struct {
	// Name overrides the derived unique container name.
	Name string `yaml:"name"`
	// ShmSize sizes /dev/shm, in human units ("16GiB"). Defaults to 16GiB.
	ShmSize string            `yaml:"shm_size"`
	Volumes []string          `yaml:"volumes"`
	Ports   []string          `yaml:"ports"`
	Env     map[string]string `yaml:"env"`
	WorkDir string            `yaml:"workdir"`
	// Keep leaves the container behind after exit for debugging.
	Keep bool `yaml:"keep"`
}

type Run struct {
	// AssetDir is a host directory of environment assets (ROMs), mounted
	// read-only into every container.
	AssetDir string `yaml:"asset_dir"`
	// ReportMetrics points the client at the in-container tracking
	// server.
	ReportMetrics bool `yaml:"report_metrics"`
}

type Tracking struct {
	// Disabled skips the tracking server entirely; the client starts
	// ungated.
	Disabled bool `yaml:"disabled"`
	// ServerCommand overrides the default tracking server command.
	ServerCommand string `yaml:"server_command"`
	// Port overrides the port the readiness probe polls. The host is
	// always the container loopback.
	Port         int    `yaml:"port"`
	ReadyTimeout string `yaml:"ready_timeout"`
	PollInterval string `yaml:"poll_interval"`
}

// Load reads and validates a job file. Unknown keys are errors, so typos
// fail at load instead of silently launching a misconfigured job.
func Load(path string) (*Job, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, gerrors.Wrap(err)
	}
	job := &Job{}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(job); err != nil {
		return nil, gerrors.Newf("parse %s: %v", path, err)
	}
	if job.Runtime == "" {
		job.Runtime = string(container.RuntimeDocker)
	}
	if err := job.validate(); err != nil {
		return nil, err
	}
	return job, nil
}

func (j *Job) validate() error {
	if j.Name == "" {
		return gerrors.New("job name is required")
	}
	if j.Image == "" {
		return gerrors.New("image is required")
	}
	if _, err := container.ParseRuntime(j.Runtime); err != nil {
		return err
	}
	if _, err := j.clientCommand(); err != nil {
		return err
	}
	return nil
}

// RuntimeKind returns the validated container runtime.
func (j *Job) RuntimeKind() (container.Runtime, error) {
	return container.ParseRuntime(j.Runtime)
}

// Request converts the resources section into a scheduler request.
func (j *Job) Request() (sched.Request, error) {
	if j.Resources.Time == "" {
		return sched.Request{}, gerrors.New("resources.time is required")
	}
	wall, err := sched.ParseWallTime(j.Resources.Time)
	if err != nil {
		return sched.Request{}, err
	}
	merge := true
	if j.Resources.MergeOutput != nil {
		merge = *j.Resources.MergeOutput
	}
	return sched.Request{
		GPUs:        j.Resources.GPUs,
		WallTime:    wall,
		MergeOutput: merge,
		WorkDir:     j.Resources.WorkDir,
	}, nil
}

// RunSpec converts the container section into a run spec. runID
// disambiguates the derived container name across submissions;
// launcherHostPath, when set, is bind-mounted at the launcher's well-known
// in-container path. The entry command is left for the caller to set.
func (j *Job) RunSpec(runID, launcherHostPath string) (container.RunSpec, error) {
	volumes := make([]container.VolumeMount, 0, len(j.Container.Volumes)+1)
	for _, raw := range j.Container.Volumes {
		v, err := container.ParseVolume(raw)
		if err != nil {
			return container.RunSpec{}, err
		}
		volumes = append(volumes, v)
	}
	if launcherHostPath != "" {
		volumes = append(volumes, container.VolumeMount{
			Host:   launcherHostPath,
			Target: consts.LauncherMountPath,
			Mode:   "ro",
		})
	}
	shm := consts.DefaultShmBytes
	if j.Container.ShmSize != "" {
		n, err := units.RAMInBytes(j.Container.ShmSize)
		if err != nil {
			return container.RunSpec{}, gerrors.Newf("bad shm_size %q: %v", j.Container.ShmSize, err)
		}
		shm = n
	}
	name := j.Container.Name
	if name == "" {
		name = container.UniqueName(j.Name, runID)
	}
	gpus := ""
	if j.Resources.GPUs > 0 {
		gpus = strconv.Itoa(j.Resources.GPUs)
	}
	spec := container.RunSpec{
		Image:         j.Image,
		Name:          name,
		Volumes:       volumes,
		ShmBytes:      shm,
		Env:           j.Container.Env,
		Ports:         j.Container.Ports,
		GPUs:          gpus,
		WorkDir:       j.Container.WorkDir,
		KeepContainer: j.Container.Keep,
	}
	rc := container.RunConfig{AssetDir: j.Run.AssetDir, ReportMetrics: j.Run.ReportMetrics}
	return rc.Apply(spec), nil
}

// Plan converts the tracking section and the client command into a launch
// plan.
func (j *Job) Plan() (launch.Plan, error) {
	client, err := j.clientCommand()
	if err != nil {
		return launch.Plan{}, err
	}
	if j.Tracking.Disabled {
		return launch.Plan{ClientCommand: client}, nil
	}
	server := j.Tracking.ServerCommand
	if server == "" {
		server = consts.DefaultServerCommand
	}
	port := j.Tracking.Port
	if port == 0 {
		port = consts.TrackingPort
	}
	timeout := consts.DefaultReadyTimeout
	if j.Tracking.ReadyTimeout != "" {
		timeout, err = time.ParseDuration(j.Tracking.ReadyTimeout)
		if err != nil {
			return launch.Plan{}, gerrors.Newf("bad ready_timeout %q: %v", j.Tracking.ReadyTimeout, err)
		}
	}
	interval := consts.DefaultPollInterval
	if j.Tracking.PollInterval != "" {
		interval, err = time.ParseDuration(j.Tracking.PollInterval)
		if err != nil {
			return launch.Plan{}, gerrors.Newf("bad poll_interval %q: %v", j.Tracking.PollInterval, err)
		}
	}
	return launch.Plan{
		ServerCommand: server,
		Probe: launch.Probe{
			Host:     consts.TrackingHost,
			Port:     port,
			Timeout:  timeout,
			Interval: interval,
		},
		ClientCommand: client,
	}, nil
}

func (j *Job) clientCommand() (string, error) {
	if j.Command != "" {
		return j.Command, nil
	}
	if j.Training == nil {
		return "", gerrors.New("job needs a command or a training section")
	}
	t := j.Training
	if t.Binary == "" || t.Env == "" {
		return "", gerrors.New("training needs binary and env")
	}
	mode := t.Mode
	if mode == "" {
		mode = "train"
	}
	if mode != "train" && mode != "eval" {
		return "", gerrors.Newf("unknown training mode %q, want train or eval", mode)
	}
	argv := []string{t.Binary, "--env", t.Env, "--mode", mode}
	if t.Seed != nil {
		argv = append(argv, "--seed", strconv.Itoa(*t.Seed))
	}
	return shellquote.Join(argv...), nil
}
