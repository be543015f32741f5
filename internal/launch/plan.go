// Package launch runs a training job's in-container startup sequence: bring
// up the tracking server in the background, gate on it accepting TCP
// connections, then run the training client in the foreground.
package launch

import (
	"net"
	"strconv"
	"time"

	"github.com/gymbatch/gymbatch/internal/gerrors"
)

// Probe locates the tracking server's listen address and bounds how long the
// launcher polls for it.
type Probe struct {
	Host string
	Port int
	// Timeout is the total window the server has to accept a connection.
	Timeout time.Duration
	// Interval is the pause between connection attempts.
	Interval time.Duration
}

func (p Probe) Addr() string {
	return net.JoinHostPort(p.Host, strconv.Itoa(p.Port))
}

// Plan is one launch: an optional background server command, the probe that
// gates on it, and the client command the job exists to run.
type Plan struct {
	// ServerCommand starts the tracking server. Empty skips the server
	// phase entirely and the probe goes unused.
	ServerCommand string
	Probe         Probe
	// ClientCommand is the training client. Required.
	ClientCommand string
}

func (p Plan) Validate() error {
	if p.ClientCommand == "" {
		return gerrors.New("launch plan has no client command")
	}
	if p.ServerCommand == "" {
		return nil
	}
	if p.Probe.Host == "" {
		return gerrors.New("launch plan has a server command but no probe host")
	}
	if p.Probe.Port <= 0 || p.Probe.Port > 65535 {
		return gerrors.Newf("probe port %d out of range", p.Probe.Port)
	}
	if p.Probe.Timeout <= 0 || p.Probe.Interval <= 0 {
		return gerrors.New("probe timeout and poll interval must be positive")
	}
	return nil
}
