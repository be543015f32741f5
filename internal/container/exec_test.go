package container

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCLIExecutor_Exec(t *testing.T) {
	var out bytes.Buffer
	e := &CLIExecutor{Stdout: &out, Stderr: &out}

	code, err := e.Exec(context.Background(), []string{"sh", "-c", "echo started"})
	require.NoError(t, err)
	assert.Equal(t, 0, code)
	assert.Equal(t, "started", strings.TrimSpace(out.String()))
}

func TestCLIExecutor_Exec_NonZeroExit(t *testing.T) {
	e := &CLIExecutor{Stdout: &bytes.Buffer{}, Stderr: &bytes.Buffer{}}

	code, err := e.Exec(context.Background(), []string{"sh", "-c", "exit 42"})
	require.NoError(t, err)
	assert.Equal(t, 42, code)
}

func TestCLIExecutor_Exec_BinaryNotFound(t *testing.T) {
	e := &CLIExecutor{Stdout: &bytes.Buffer{}, Stderr: &bytes.Buffer{}}

	code, err := e.Exec(context.Background(), []string{"gymbatch-no-such-binary"})
	assert.Error(t, err)
	assert.Equal(t, -1, code)
}

func TestCLIExecutor_Exec_Empty(t *testing.T) {
	e := &CLIExecutor{}

	code, err := e.Exec(context.Background(), nil)
	assert.Error(t, err)
	assert.Equal(t, -1, code)
}
