// Package container builds and runs container-engine command lines for
// training jobs. It targets the engine CLIs rather than an API socket so the
// same invocation works as a foreground process, inside a batch script, or
// pasted into a shell.
package container

import (
	"crypto/sha256"
	"fmt"
	"strings"

	"github.com/gymbatch/gymbatch/internal/gerrors"
)

// Runtime selects which container engine CLI an invocation targets. Both
// engines accept the same run flags; invocations differ only in the leading
// binary name.
type Runtime string

const (
	RuntimeDocker Runtime = "docker"
	RuntimePodman Runtime = "podman"
)

func ParseRuntime(s string) (Runtime, error) {
	switch rt := Runtime(strings.ToLower(strings.TrimSpace(s))); rt {
	case RuntimeDocker, RuntimePodman:
		return rt, nil
	}
	return "", gerrors.Newf("unsupported container runtime %q, want docker or podman", s)
}

// VolumeMount bind-mounts a host path into the container.
type VolumeMount struct {
	Host   string
	Target string
	// Mode is "ro" or "rw"; empty means "rw".
	Mode string
}

func (v VolumeMount) String() string {
	mode := v.Mode
	if mode == "" {
		mode = "rw"
	}
	return fmt.Sprintf("%s:%s:%s", v.Host, v.Target, mode)
}

// ParseVolume parses a HOST:TARGET[:MODE] triple as the engines' -v flag
// spells it. The error unwraps to ErrVolumeMount.
func ParseVolume(s string) (VolumeMount, error) {
	parts := strings.Split(s, ":")
	switch len(parts) {
	case 2:
		return VolumeMount{Host: parts[0], Target: parts[1]}, nil
	case 3:
		return VolumeMount{Host: parts[0], Target: parts[1], Mode: parts[2]}, nil
	}
	return VolumeMount{}, fmt.Errorf("%w: want HOST:TARGET[:MODE], got %q", ErrVolumeMount, s)
}

// RunSpec describes one container run.
type RunSpec struct {
	// Image is the image reference to run. Required.
	Image string
	// Name is the container name. Empty lets the engine pick one.
	Name string
	// Volumes are bind mounts; every host path must exist at build time.
	Volumes []VolumeMount
	// ShmBytes sizes /dev/shm. Zero keeps the engine default.
	ShmBytes int64
	// Env is exported into the container, rendered in sorted key order.
	Env map[string]string
	// Ports are HOST:CONTAINER[/PROTO] publications.
	Ports []string
	// GPUs is the engine's --gpus value ("all", "2", ...). Empty requests
	// no device access.
	GPUs string
	// WorkDir is the in-container working directory.
	WorkDir string
	// KeepContainer leaves the container behind after exit instead of
	// passing --rm.
	KeepContainer bool
	// Command is the entry command, run through /bin/sh -c. Required.
	Command string
}

// UniqueName derives a container name from a job name and a submission ID so
// repeated runs of the same job never collide: the name plus the first eight
// hex digits of sha256("<name>/<id>").
func UniqueName(name, id string) string {
	digest := sha256.Sum256([]byte(fmt.Sprintf("%s/%s", name, id)))
	return fmt.Sprintf("%s-%x", name, digest[:4])
}
