package sched

import (
	"fmt"
	"strconv"
	"strings"
)

const directivePrefix = "#SBATCH"

// Output file patterns; %j expands to the scheduler's job ID.
const (
	outputPattern = "slurm-%j.out"
	errorPattern  = "slurm-%j.err"
)

// Manifest is the scheduler-facing form of a validated Request. The same
// option set renders either as in-script directives (for sbatch) or as
// command-line arguments (for salloc).
type Manifest struct {
	req Request
}

// Build validates r and wraps it in a Manifest. The error unwraps to
// ErrInvalidRequest.
func Build(r Request) (*Manifest, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return &Manifest{req: r}, nil
}

// Request returns the request the manifest was built from.
func (m *Manifest) Request() Request {
	return m.req
}

// Directives returns the manifest as #SBATCH lines. Output always goes to a
// job-stamped file; a separate error file is named only when the request
// keeps the streams apart, since the scheduler merges them by default.
func (m *Manifest) Directives() []string {
	opts := m.options(true)
	lines := make([]string, len(opts))
	for i, opt := range opts {
		lines[i] = directivePrefix + " " + opt
	}
	return lines
}

// Render returns the directive block as text, one directive per line.
func (m *Manifest) Render() string {
	return strings.Join(m.Directives(), "\n") + "\n"
}

// Args returns the manifest as command-line arguments for salloc or sbatch.
// Output-file options are omitted: they only make sense inside a batch
// script.
func (m *Manifest) Args() []string {
	return m.options(false)
}

func (m *Manifest) options(batch bool) []string {
	opts := make([]string, 0, 5)
	if m.req.GPUs > 0 {
		opts = append(opts, fmt.Sprintf("--gres=gpu:%d", m.req.GPUs))
	}
	opts = append(opts, "--time="+FormatWallTime(m.req.WallTime))
	if batch {
		opts = append(opts, "--output="+outputPattern)
		if !m.req.MergeOutput {
			opts = append(opts, "--error="+errorPattern)
		}
	}
	if m.req.WorkDir != "" {
		opts = append(opts, "--chdir="+m.req.WorkDir)
	}
	return opts
}

// Parse re-derives a Request from rendered directives or a whole batch
// script. Lines that are not #SBATCH directives and directives this package
// does not emit are skipped, so scripts with shebangs, bodies and
// operator-added options still parse. The error unwraps to ErrInvalidRequest.
func Parse(s string) (Request, error) {
	req := Request{MergeOutput: true}
	sawTime := false
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, directivePrefix+" ") {
			continue
		}
		opt := strings.TrimSpace(strings.TrimPrefix(line, directivePrefix))
		key, value := opt, ""
		if eq := strings.Index(opt, "="); eq >= 0 {
			key, value = opt[:eq], opt[eq+1:]
		}
		switch key {
		case "--gres":
			n, err := parseGres(value)
			if err != nil {
				return Request{}, err
			}
			req.GPUs = n
		case "--time":
			d, err := ParseWallTime(value)
			if err != nil {
				return Request{}, err
			}
			req.WallTime = d
			sawTime = true
		case "--error":
			req.MergeOutput = false
		case "--chdir":
			req.WorkDir = value
		}
	}
	if !sawTime {
		return Request{}, fmt.Errorf("%w: manifest has no --time directive", ErrInvalidRequest)
	}
	if err := req.Validate(); err != nil {
		return Request{}, err
	}
	return req, nil
}

func parseGres(v string) (int, error) {
	if !strings.HasPrefix(v, "gpu:") {
		return 0, fmt.Errorf("%w: unsupported gres %q, want gpu:N", ErrInvalidRequest, v)
	}
	n, err := strconv.Atoi(strings.TrimPrefix(v, "gpu:"))
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: bad accelerator count in gres %q", ErrInvalidRequest, v)
	}
	return n, nil
}

// Script composes a complete batch script from a manifest and body lines.
func Script(m *Manifest, body ...string) string {
	var b strings.Builder
	b.WriteString("#!/bin/bash\n")
	for _, d := range m.Directives() {
		b.WriteString(d)
		b.WriteByte('\n')
	}
	if len(body) > 0 {
		b.WriteByte('\n')
	}
	for _, line := range body {
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return b.String()
}
