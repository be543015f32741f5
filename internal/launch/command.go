package launch

import (
	"strconv"

	"github.com/kballard/go-shellquote"
)

// Command renders plan as a gymbatch-launch invocation, quoted so the whole
// line survives a /bin/sh -c container entrypoint. binPath is the launcher
// binary's in-container path.
func Command(binPath string, plan Plan) string {
	argv := []string{binPath, "run", "--client-command", plan.ClientCommand}
	if plan.ServerCommand != "" {
		argv = append(argv,
			"--server-command", plan.ServerCommand,
			"--ready-host", plan.Probe.Host,
			"--ready-port", strconv.Itoa(plan.Probe.Port),
			"--ready-timeout", plan.Probe.Timeout.String(),
			"--poll-interval", plan.Probe.Interval.String(),
		)
	}
	return shellquote.Join(argv...)
}
