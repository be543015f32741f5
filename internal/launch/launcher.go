package launch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"os/exec"
	"time"

	"github.com/kballard/go-shellquote"

	"github.com/gymbatch/gymbatch/internal/gerrors"
	"github.com/gymbatch/gymbatch/internal/log"
)

// Launcher drives one Plan through its states, once. It holds the terminal
// state and the client's exit code afterwards.
type Launcher struct {
	plan     Plan
	stdout   io.Writer
	stderr   io.Writer
	state    State
	history  []State
	exitCode int
}

// New builds a launcher for plan. Server and client output goes to stdout
// and stderr; nil writers default to the process's own streams.
func New(plan Plan, stdout, stderr io.Writer) *Launcher {
	if stdout == nil {
		stdout = os.Stdout
	}
	if stderr == nil {
		stderr = os.Stderr
	}
	return &Launcher{
		plan:     plan,
		stdout:   stdout,
		stderr:   stderr,
		state:    StateNotStarted,
		history:  []State{StateNotStarted},
		exitCode: -1,
	}
}

// State returns the launch's current state.
func (l *Launcher) State() State {
	return l.state
}

// ExitCode returns the client's exit code, or -1 if the client never ran.
func (l *Launcher) ExitCode() int {
	return l.exitCode
}

// Run executes the plan: start the server, gate on the probe, run the client
// to completion. Failed server startup returns an error unwrapping to
// ErrServerNotReady; a nonzero client returns a ClientExitError. The server
// is stopped before Run returns.
func (l *Launcher) Run(ctx context.Context) error {
	if err := l.plan.Validate(); err != nil {
		return err
	}
	serverCtx, stopServer := context.WithCancel(ctx)
	defer stopServer()

	var server *process
	if l.plan.ServerCommand != "" {
		l.transition(ctx, StateServerStarting)
		started, err := l.startProcess(serverCtx, l.plan.ServerCommand)
		if err != nil {
			l.transition(ctx, StateDone)
			return fmt.Errorf("%w: server did not start: %v", ErrServerNotReady, err)
		}
		server = started
		log.Info(ctx, "tracking server starting", "pid", server.cmd.Process.Pid)
		if err := l.awaitReady(ctx, server); err != nil {
			stopServer()
			<-server.done
			return err
		}
	}

	l.transition(ctx, StateClientRunning)
	code, err := l.runClient(ctx)
	l.exitCode = code
	if server != nil {
		stopServer()
		<-server.done
		log.Debug(ctx, "tracking server stopped")
	}
	l.transition(ctx, StateDone)
	if err != nil {
		return err
	}
	if code != 0 {
		return &ClientExitError{Code: code}
	}
	log.Info(ctx, "client finished", "exit_code", code)
	return nil
}

// process is a started background command. done is closed once the command
// has been reaped; err is its Wait result and must only be read after done.
type process struct {
	cmd  *exec.Cmd
	done chan struct{}
	err  error
}

func (l *Launcher) startProcess(ctx context.Context, command string) (*process, error) {
	words, err := shellquote.Split(command)
	if err != nil {
		return nil, gerrors.Newf("unparseable command %q: %v", command, err)
	}
	if len(words) == 0 {
		return nil, gerrors.New("empty command")
	}
	cmd := exec.CommandContext(ctx, words[0], words[1:]...)
	cmd.Stdout = l.stdout
	cmd.Stderr = l.stderr
	if err := cmd.Start(); err != nil {
		return nil, gerrors.Wrap(err)
	}
	p := &process{cmd: cmd, done: make(chan struct{})}
	go func() {
		p.err = cmd.Wait()
		close(p.done)
	}()
	return p, nil
}

// awaitReady polls the probe address until the server accepts a connection.
// One attempt per poll interval. The wait ends early if the server process
// exits, since nothing will start listening after that.
func (l *Launcher) awaitReady(ctx context.Context, server *process) error {
	probe := l.plan.Probe
	addr := probe.Addr()
	deadline := time.NewTimer(probe.Timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(probe.Interval)
	defer ticker.Stop()
	log.Info(ctx, "waiting for tracking server", "addr", addr, "timeout", probe.Timeout)
	for attempt := 1; ; attempt++ {
		conn, err := net.DialTimeout("tcp", addr, probe.Interval)
		if err == nil {
			_ = conn.Close()
			l.transition(ctx, StateServerReady)
			log.Info(ctx, "tracking server ready", "addr", addr, "attempts", attempt)
			return nil
		}
		log.Debug(ctx, "tracking server not ready yet", "addr", addr, "err", err)
		select {
		case <-server.done:
			l.transition(ctx, StateDone)
			return fmt.Errorf("%w: server exited before accepting connections: %s", ErrServerNotReady, exitReason(server.err))
		case <-deadline.C:
			l.transition(ctx, StateServerTimeout)
			return fmt.Errorf("%w: no connection to %s within %s", ErrServerNotReady, addr, probe.Timeout)
		case <-ctx.Done():
			return gerrors.Wrap(ctx.Err())
		case <-ticker.C:
		}
	}
}

func (l *Launcher) runClient(ctx context.Context) (int, error) {
	words, err := shellquote.Split(l.plan.ClientCommand)
	if err != nil {
		return -1, gerrors.Newf("unparseable client command %q: %v", l.plan.ClientCommand, err)
	}
	if len(words) == 0 {
		return -1, gerrors.New("empty client command")
	}
	cmd := exec.CommandContext(ctx, words[0], words[1:]...)
	cmd.Stdout = l.stdout
	cmd.Stderr = l.stderr
	log.Info(ctx, "starting client", "command", l.plan.ClientCommand)
	runErr := cmd.Run()
	if runErr == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if errors.As(runErr, &exitErr) && exitErr.ExitCode() >= 0 {
		return exitErr.ExitCode(), nil
	}
	return -1, gerrors.Wrap(runErr)
}

func (l *Launcher) transition(ctx context.Context, next State) {
	l.state = next
	l.history = append(l.history, next)
	log.Debug(ctx, "launch state", "state", string(next))
}

func exitReason(err error) string {
	if err == nil {
		return "exit status 0"
	}
	return err.Error()
}
