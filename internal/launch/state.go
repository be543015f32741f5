package launch

import (
	"errors"
	"fmt"
)

// State of a launch. A launch walks this graph:
//
//	not_started -> server_starting -> server_ready -> client_running -> done
//
// A server that exhausts its probe window parks in server_timeout; one that
// dies before becoming ready jumps straight to done with a failure. Plans
// without a server command skip from not_started to client_running.
// server_timeout and done are terminal; a launcher never retries.
type State string

const (
	StateNotStarted     State = "not_started"
	StateServerStarting State = "server_starting"
	StateServerReady    State = "server_ready"
	// StateServerTimeout means the server ran out its probe window
	// without ever accepting a connection.
	StateServerTimeout State = "server_timeout"
	StateClientRunning State = "client_running"
	StateDone          State = "done"
)

// ErrServerNotReady reports a tracking server that died or never accepted a
// connection within the probe window.
var ErrServerNotReady = errors.New("tracking server not ready")

// ClientExitError reports a training client that ran to completion and
// exited nonzero.
type ClientExitError struct {
	Code int
}

func (e *ClientExitError) Error() string {
	return fmt.Sprintf("client exited with code %d", e.Code)
}
