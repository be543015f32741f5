package launch

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// probeTarget reserves a port on the loopback interface. If open is true the
// listener is kept listening so probes against the port succeed.
func probeTarget(t *testing.T, open bool) Probe {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	if open {
		t.Cleanup(func() { _ = ln.Close() })
	} else {
		require.NoError(t, ln.Close())
	}
	return Probe{
		Host:     "127.0.0.1",
		Port:     port,
		Timeout:  300 * time.Millisecond,
		Interval: 50 * time.Millisecond,
	}
}

func TestLauncher_Run_ClientOnly(t *testing.T) {
	l := New(Plan{ClientCommand: "true"}, nil, nil)

	err := l.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, l.ExitCode())
	assert.Equal(t, []State{StateNotStarted, StateClientRunning, StateDone}, l.history)
}

func TestLauncher_Run_ClientFailure(t *testing.T) {
	l := New(Plan{ClientCommand: "sh -c 'exit 3'"}, nil, nil)

	err := l.Run(context.Background())
	var exitErr *ClientExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 3, exitErr.Code)
	assert.Equal(t, 3, l.ExitCode())
	assert.Equal(t, StateDone, l.State())
}

func TestLauncher_Run_ServerReady(t *testing.T) {
	probe := probeTarget(t, true)
	l := New(Plan{
		ServerCommand: "sleep 60",
		Probe:         probe,
		ClientCommand: "true",
	}, nil, nil)

	err := l.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, l.ExitCode())
	assert.Equal(t, []State{
		StateNotStarted,
		StateServerStarting,
		StateServerReady,
		StateClientRunning,
		StateDone,
	}, l.history)
}

func TestLauncher_Run_ServerNeverListens(t *testing.T) {
	probe := probeTarget(t, false)
	l := New(Plan{
		ServerCommand: "sleep 60",
		Probe:         probe,
		ClientCommand: "true",
	}, nil, nil)

	err := l.Run(context.Background())
	assert.ErrorIs(t, err, ErrServerNotReady)
	assert.Equal(t, StateServerTimeout, l.State())
	assert.Equal(t, -1, l.ExitCode())
	assert.NotContains(t, l.history, StateClientRunning)
}

func TestLauncher_Run_ServerExitsEarly(t *testing.T) {
	probe := probeTarget(t, false)
	probe.Timeout = 5 * time.Second // early exit must end the wait, not this
	l := New(Plan{
		ServerCommand: "true",
		Probe:         probe,
		ClientCommand: "true",
	}, nil, nil)

	err := l.Run(context.Background())
	assert.ErrorIs(t, err, ErrServerNotReady)
	assert.ErrorContains(t, err, "exited before accepting connections")
	assert.Equal(t, StateDone, l.State())
	assert.Equal(t, -1, l.ExitCode())
	assert.NotContains(t, l.history, StateClientRunning)
	assert.NotContains(t, l.history, StateServerReady)
}

func TestLauncher_Run_ServerDoesNotStart(t *testing.T) {
	probe := probeTarget(t, false)
	l := New(Plan{
		ServerCommand: "/no/such/binary",
		Probe:         probe,
		ClientCommand: "true",
	}, nil, nil)

	err := l.Run(context.Background())
	assert.ErrorIs(t, err, ErrServerNotReady)
	assert.Equal(t, StateDone, l.State())
	assert.NotContains(t, l.history, StateClientRunning)
}

func TestLauncher_Run_InvalidPlan(t *testing.T) {
	l := New(Plan{}, nil, nil)

	err := l.Run(context.Background())
	assert.Error(t, err)
	assert.Equal(t, StateNotStarted, l.State())
}

func TestLauncher_Run_UnparseableClientCommand(t *testing.T) {
	l := New(Plan{ClientCommand: "echo 'unterminated"}, nil, nil)

	err := l.Run(context.Background())
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrServerNotReady)
	assert.Equal(t, -1, l.ExitCode())
}

func TestPlan_Validate(t *testing.T) {
	okProbe := Probe{Host: "127.0.0.1", Port: 8080, Timeout: time.Second, Interval: time.Second}
	testCases := []struct {
		name string
		plan Plan
		ok   bool
	}{
		{"client only", Plan{ClientCommand: "true"}, true},
		{"server and probe", Plan{ServerCommand: "true", Probe: okProbe, ClientCommand: "true"}, true},
		{"no client", Plan{ServerCommand: "true", Probe: okProbe}, false},
		{"no probe host", Plan{ServerCommand: "true", Probe: Probe{Port: 8080, Timeout: time.Second, Interval: time.Second}, ClientCommand: "true"}, false},
		{"port out of range", Plan{ServerCommand: "true", Probe: Probe{Host: "localhost", Port: 70000, Timeout: time.Second, Interval: time.Second}, ClientCommand: "true"}, false},
		{"zero timeout", Plan{ServerCommand: "true", Probe: Probe{Host: "localhost", Port: 8080, Interval: time.Second}, ClientCommand: "true"}, false},
		{"zero interval", Plan{ServerCommand: "true", Probe: Probe{Host: "localhost", Port: 8080, Timeout: time.Second}, ClientCommand: "true"}, false},
	}
	for _, tc := range testCases {
		err := tc.plan.Validate()
		if tc.ok {
			assert.NoError(t, err, tc.name)
		} else {
			assert.Error(t, err, tc.name)
		}
	}
}
