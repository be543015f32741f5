package container

import (
	"context"
	"strings"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/filters"
	docker "github.com/docker/docker/client"

	"github.com/gymbatch/gymbatch/internal/gerrors"
)

// NameChecker answers whether a container name is already taken on this
// host.
type NameChecker interface {
	InUse(ctx context.Context, name string) (bool, error)
}

// containerLister is the slice of the engine API the checker needs.
type containerLister interface {
	ContainerList(ctx context.Context, options types.ContainerListOptions) ([]types.Container, error)
}

// EngineNameChecker resolves name conflicts against the engine's API socket.
// Podman serves the same docker-compatible socket, so one checker covers
// both runtimes.
type EngineNameChecker struct {
	client containerLister
}

func NewEngineNameChecker() (*EngineNameChecker, error) {
	client, err := docker.NewClientWithOpts(docker.FromEnv, docker.WithAPIVersionNegotiation())
	if err != nil {
		return nil, gerrors.Wrap(err)
	}
	return &EngineNameChecker{client: client}, nil
}

func (c *EngineNameChecker) InUse(ctx context.Context, name string) (bool, error) {
	// The name filter matches substrings, so match exactly against the
	// returned names.
	list, err := c.client.ContainerList(ctx, types.ContainerListOptions{
		All:     true,
		Filters: filters.NewArgs(filters.Arg("name", name)),
	})
	if err != nil {
		return false, gerrors.Wrap(err)
	}
	for _, ctr := range list {
		for _, n := range ctr.Names {
			if strings.TrimPrefix(n, "/") == name {
				return true, nil
			}
		}
	}
	return false, nil
}
