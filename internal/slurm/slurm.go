// Package slurm shells out to the Slurm user commands: sbatch to queue batch
// scripts, salloc to hold an allocation for the current host, scancel to
// release it.
package slurm

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"regexp"
	"strings"

	"github.com/gymbatch/gymbatch/internal/gerrors"
	"github.com/gymbatch/gymbatch/internal/log"
	"github.com/gymbatch/gymbatch/internal/sched"
)

const (
	sbatchCmd  = "sbatch"
	sallocCmd  = "salloc"
	scancelCmd = "scancel"
)

// Submit queues script with sbatch and returns the job ID the scheduler
// assigned. The script is written to a temporary file for the submission and
// removed afterwards.
func Submit(ctx context.Context, script string) (string, error) {
	f, err := os.CreateTemp("", "gymbatch-*.sbatch")
	if err != nil {
		return "", gerrors.Wrap(err)
	}
	defer func() { _ = os.Remove(f.Name()) }()
	if _, err := f.WriteString(script); err != nil {
		_ = f.Close()
		return "", gerrors.Wrap(err)
	}
	if err := f.Close(); err != nil {
		return "", gerrors.Wrap(err)
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, sbatchCmd, "--parsable", f.Name())
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	log.Debug(ctx, "submitting batch script", "path", f.Name())
	if err := cmd.Run(); err != nil {
		return "", gerrors.Newf("sbatch rejected the job: %v: %s", err, strings.TrimSpace(stderr.String()))
	}
	return parseJobID(stdout.String())
}

// parseJobID extracts the job ID from sbatch --parsable output, which is
// either "<id>" or "<id>;<cluster>".
func parseJobID(out string) (string, error) {
	id := strings.TrimSpace(out)
	if semi := strings.Index(id, ";"); semi >= 0 {
		id = id[:semi]
	}
	if id == "" {
		return "", gerrors.New("sbatch returned no job id")
	}
	return id, nil
}

// Alloc grants resources by holding a salloc allocation for the duration of
// the run. It implements the orchestrator's Scheduler interface. An Alloc
// runs one allocation at a time; Release cancels it.
type Alloc struct {
	jobID string
}

var grantedRe = regexp.MustCompile(`Granted job allocation (\d+)`)

func (a *Alloc) Grant(ctx context.Context, m *sched.Manifest) error {
	args := allocArgs(m)
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, sallocCmd, args...)
	cmd.Stderr = &stderr
	log.Debug(ctx, "requesting allocation", "args", strings.Join(args, " "))
	if err := cmd.Run(); err != nil {
		return gerrors.Newf("salloc did not grant the allocation: %v: %s", err, strings.TrimSpace(stderr.String()))
	}
	a.jobID = parseAllocID(stderr.String())
	log.Info(ctx, "allocation granted", "job_id", a.jobID)
	return nil
}

// allocArgs renders the salloc invocation for a manifest. --no-shell keeps
// the allocation held without spawning an interactive shell, so the caller's
// process tree stays in charge.
func allocArgs(m *sched.Manifest) []string {
	return append(m.Args(), "--no-shell")
}

// parseAllocID picks the job ID out of salloc's status output. salloc prints
// "Granted job allocation <id>" to stderr on success.
func parseAllocID(out string) string {
	if match := grantedRe.FindStringSubmatch(out); match != nil {
		return match[1]
	}
	return ""
}

// JobID returns the granted allocation's job ID, empty before Grant.
func (a *Alloc) JobID() string {
	return a.jobID
}

// Release cancels the held allocation. Releasing an Alloc that never granted
// is a no-op.
func (a *Alloc) Release(ctx context.Context) error {
	if a.jobID == "" {
		return nil
	}
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, scancelCmd, a.jobID)
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return gerrors.Newf("scancel %s: %v: %s", a.jobID, err, strings.TrimSpace(stderr.String()))
	}
	log.Info(ctx, "allocation released", "job_id", a.jobID)
	a.jobID = ""
	return nil
}
