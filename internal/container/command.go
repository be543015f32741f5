package container

import (
	"context"
	"fmt"
	"os"
	"path"
	"sort"
	"strconv"

	"github.com/docker/go-connections/nat"

	"github.com/gymbatch/gymbatch/internal/gerrors"
	"github.com/gymbatch/gymbatch/internal/log"
)

// Builder turns RunSpecs into runnable engine command lines. Build only
// validates and renders; executing the result is the caller's business.
type Builder struct {
	checker NameChecker
}

type Option interface {
	apply(b *Builder)
}

type funcBuilderOpt func(b *Builder)

func (f funcBuilderOpt) apply(b *Builder) {
	f(b)
}

// WithNameChecker makes Build pre-validate container names against names
// already taken on the host.
func WithNameChecker(c NameChecker) Option {
	return funcBuilderOpt(func(b *Builder) {
		b.checker = c
	})
}

func NewBuilder(opts ...Option) *Builder {
	b := &Builder{}
	for _, opt := range opts {
		opt.apply(b)
	}
	return b
}

// Build validates spec and renders it as a full argv for the engine CLI,
// starting with the engine binary name. Validation errors unwrap to
// ErrVolumeMount or ErrNameConflict where those apply.
func (b *Builder) Build(ctx context.Context, spec RunSpec, rt Runtime) ([]string, error) {
	if spec.Image == "" {
		return nil, gerrors.New("run spec has no image")
	}
	if spec.Command == "" {
		return nil, gerrors.New("run spec has no entry command")
	}
	for _, v := range spec.Volumes {
		if err := validateVolume(v); err != nil {
			return nil, err
		}
	}
	for _, p := range spec.Ports {
		if _, err := nat.ParsePortSpec(p); err != nil {
			return nil, gerrors.Newf("invalid port mapping %q: %v", p, err)
		}
	}
	if err := b.checkName(ctx, spec.Name); err != nil {
		return nil, err
	}

	args := []string{string(rt), "run"}
	if !spec.KeepContainer {
		args = append(args, "--rm")
	}
	if spec.Name != "" {
		args = append(args, "--name", spec.Name)
	}
	if spec.ShmBytes > 0 {
		args = append(args, "--shm-size", strconv.FormatInt(spec.ShmBytes, 10))
	}
	if spec.GPUs != "" {
		args = append(args, "--gpus", spec.GPUs)
	}
	if spec.WorkDir != "" {
		args = append(args, "--workdir", spec.WorkDir)
	}
	for _, v := range spec.Volumes {
		args = append(args, "--volume", v.String())
	}
	for _, p := range spec.Ports {
		args = append(args, "--publish", p)
	}
	for _, kv := range envSlice(spec.Env) {
		args = append(args, "--env", kv)
	}
	args = append(args, spec.Image, "/bin/sh", "-c", spec.Command)
	return args, nil
}

func validateVolume(v VolumeMount) error {
	if v.Host == "" || v.Target == "" {
		return fmt.Errorf("%w: host and container paths are required", ErrVolumeMount)
	}
	if _, err := os.Stat(v.Host); err != nil {
		return fmt.Errorf("%w: host path %s: %v", ErrVolumeMount, v.Host, err)
	}
	if !path.IsAbs(v.Target) {
		return fmt.Errorf("%w: container path %s must be absolute", ErrVolumeMount, v.Target)
	}
	if v.Mode != "" && v.Mode != "ro" && v.Mode != "rw" {
		return fmt.Errorf("%w: access mode must be ro or rw, got %q", ErrVolumeMount, v.Mode)
	}
	return nil
}

// checkName asks the host which names are taken. The check is best effort:
// if the engine cannot be reached the build proceeds and the engine itself
// rejects the conflict at run time.
func (b *Builder) checkName(ctx context.Context, name string) error {
	if name == "" || b.checker == nil {
		return nil
	}
	inUse, err := b.checker.InUse(ctx, name)
	if err != nil {
		log.Debug(ctx, "container name check failed", "name", name, "err", err)
		return nil
	}
	if inUse {
		return fmt.Errorf("%w: %s is already in use", ErrNameConflict, name)
	}
	return nil
}

// envSlice renders env as KEY=VALUE pairs in sorted key order, so rendered
// command lines are stable.
func envSlice(env map[string]string) []string {
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+env[k])
	}
	return pairs
}
