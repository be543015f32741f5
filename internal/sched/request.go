// Package sched models batch-scheduler resource requests and renders them as
// Slurm job manifests. A Manifest can be re-parsed into the Request it was
// built from, so submitted scripts stay the source of truth for what was
// asked.
package sched

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidRequest reports a resource request the scheduler cannot express:
// a non-positive wall-clock limit, a negative accelerator count, or a
// manifest that does not parse back into a request.
var ErrInvalidRequest = errors.New("invalid resource request")

// Request describes what a single training job asks of the cluster.
type Request struct {
	// GPUs is the number of accelerators. Zero requests a CPU-only node.
	GPUs int
	// WallTime is the wall-clock limit after which the scheduler kills
	// the job. It must be positive.
	WallTime time.Duration
	// MergeOutput interleaves the job's stderr into its stdout stream.
	MergeOutput bool
	// WorkDir is the directory the job starts in. Empty keeps the
	// scheduler's default (the submission directory).
	WorkDir string
}

func (r Request) Validate() error {
	if r.WallTime <= 0 {
		return fmt.Errorf("%w: wall-clock limit must be positive, got %s", ErrInvalidRequest, r.WallTime)
	}
	if r.GPUs < 0 {
		return fmt.Errorf("%w: accelerator count must not be negative, got %d", ErrInvalidRequest, r.GPUs)
	}
	return nil
}
