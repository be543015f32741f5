package sched

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuild_Invalid(t *testing.T) {
	testCases := []struct {
		name string
		req  Request
	}{
		{"zero wall time", Request{GPUs: 1}},
		{"negative wall time", Request{GPUs: 1, WallTime: -time.Hour}},
		{"negative accelerators", Request{GPUs: -1, WallTime: time.Hour}},
	}
	for _, tc := range testCases {
		m, err := Build(tc.req)
		assert.Nil(t, m, tc.name)
		assert.ErrorIs(t, err, ErrInvalidRequest, tc.name)
	}
}

func TestManifest_Directives(t *testing.T) {
	m, err := Build(Request{GPUs: 1, WallTime: 48 * time.Hour, MergeOutput: true, WorkDir: "/scratch/jobs"})
	require.NoError(t, err)

	assert.Equal(t, []string{
		"#SBATCH --gres=gpu:1",
		"#SBATCH --time=2-00:00:00",
		"#SBATCH --output=slurm-%j.out",
		"#SBATCH --chdir=/scratch/jobs",
	}, m.Directives())
}

func TestManifest_Directives_SplitOutput(t *testing.T) {
	m, err := Build(Request{GPUs: 4, WallTime: 30 * time.Minute})
	require.NoError(t, err)

	assert.Contains(t, m.Directives(), "#SBATCH --error=slurm-%j.err")
}

func TestManifest_Directives_MergedOutputHasNoErrorFile(t *testing.T) {
	m, err := Build(Request{GPUs: 4, WallTime: 30 * time.Minute, MergeOutput: true})
	require.NoError(t, err)

	for _, d := range m.Directives() {
		assert.NotContains(t, d, "--error")
	}
}

func TestManifest_Directives_NoAccelerators(t *testing.T) {
	m, err := Build(Request{WallTime: time.Hour, MergeOutput: true})
	require.NoError(t, err)

	assert.Equal(t, []string{
		"#SBATCH --time=01:00:00",
		"#SBATCH --output=slurm-%j.out",
	}, m.Directives())
}

func TestManifest_Args(t *testing.T) {
	m, err := Build(Request{GPUs: 2, WallTime: 90 * time.Minute, WorkDir: "/scratch"})
	require.NoError(t, err)

	assert.Equal(t, []string{"--gres=gpu:2", "--time=01:30:00", "--chdir=/scratch"}, m.Args())
}

func TestParse_RoundTrip(t *testing.T) {
	testCases := []Request{
		{GPUs: 1, WallTime: 48 * time.Hour, MergeOutput: true, WorkDir: "/scratch/jobs"},
		{GPUs: 0, WallTime: 30 * time.Minute},
		{GPUs: 8, WallTime: 26*time.Hour + 30*time.Minute, MergeOutput: true},
		{GPUs: 2, WallTime: 90 * time.Second, WorkDir: "/tmp"},
	}
	for _, req := range testCases {
		m, err := Build(req)
		require.NoError(t, err)

		parsed, err := Parse(m.Render())
		require.NoError(t, err)
		assert.Equal(t, req, parsed)
	}
}

func TestParse_SkipsForeignLines(t *testing.T) {
	script := `#!/bin/bash
#SBATCH --gres=gpu:1
#SBATCH --time=02:00:00
#SBATCH --output=slurm-%j.out
#SBATCH --partition=gpu-long
#SBATCH --exclusive

docker run --rm train:latest
`
	req, err := Parse(script)
	require.NoError(t, err)
	assert.Equal(t, Request{GPUs: 1, WallTime: 2 * time.Hour, MergeOutput: true}, req)
}

func TestParse_MissingTime(t *testing.T) {
	_, err := Parse("#SBATCH --gres=gpu:1\n")
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestParse_BadGres(t *testing.T) {
	testCases := []string{
		"#SBATCH --gres=tpu:1\n#SBATCH --time=10:00\n",
		"#SBATCH --gres=gpu:many\n#SBATCH --time=10:00\n",
	}
	for _, manifest := range testCases {
		_, err := Parse(manifest)
		assert.ErrorIs(t, err, ErrInvalidRequest, manifest)
	}
}

func TestScript(t *testing.T) {
	m, err := Build(Request{GPUs: 1, WallTime: time.Hour, MergeOutput: true})
	require.NoError(t, err)

	script := Script(m, "set -e", "docker run --rm train:latest")
	assert.Equal(t, `#!/bin/bash
#SBATCH --gres=gpu:1
#SBATCH --time=01:00:00
#SBATCH --output=slurm-%j.out

set -e
docker run --rm train:latest
`, script)

	// A script built from a manifest parses back to its request.
	parsed, err := Parse(script)
	require.NoError(t, err)
	assert.Equal(t, m.Request(), parsed)
}
