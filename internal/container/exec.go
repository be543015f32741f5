package container

import (
	"context"
	"errors"
	"io"
	"os"
	"os/exec"

	"github.com/gymbatch/gymbatch/internal/gerrors"
	"github.com/gymbatch/gymbatch/internal/log"
)

// CLIExecutor runs built command lines as host processes in the foreground.
type CLIExecutor struct {
	// Stdout and Stderr receive the process output; nil means the
	// executor's own standard streams.
	Stdout io.Writer
	Stderr io.Writer
}

// Exec runs argv and returns the process exit code. The error is non-nil
// only when no exit code exists: the binary was not found, the process could
// not be started, or it was killed by a signal.
func (e *CLIExecutor) Exec(ctx context.Context, argv []string) (int, error) {
	if len(argv) == 0 {
		return -1, gerrors.New("empty command line")
	}
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Stdout = e.Stdout
	if cmd.Stdout == nil {
		cmd.Stdout = os.Stdout
	}
	cmd.Stderr = e.Stderr
	if cmd.Stderr == nil {
		cmd.Stderr = os.Stderr
	}
	log.Debug(ctx, "executing", "bin", argv[0], "args", len(argv)-1)
	err := cmd.Run()
	if err == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() >= 0 {
		return exitErr.ExitCode(), nil
	}
	return -1, gerrors.Wrap(err)
}
