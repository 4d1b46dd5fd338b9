package media

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireShell(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("/bin/sh"); err != nil {
		t.Skip("/bin/sh not available")
	}
}

func TestExecRunner_CapturesOutput(t *testing.T) {
	requireShell(t)

	res, err := ExecRunner{}.Run(context.Background(), "/bin/sh", []string{"-c", "printf out; printf err >&2"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "out", res.Stdout)
	assert.Equal(t, "err", res.Stderr)
}

func TestExecRunner_NonZeroExit(t *testing.T) {
	requireShell(t)

	_, err := ExecRunner{}.Run(context.Background(), "/bin/sh", []string{"-c", "echo broken input >&2; exit 3"}, nil)
	var procErr *ProcessError
	require.ErrorAs(t, err, &procErr)
	assert.Equal(t, 3, procErr.ExitCode)
	assert.Equal(t, "broken input", procErr.Error())
}

func TestExecRunner_NonZeroExitWithoutStderr(t *testing.T) {
	requireShell(t)

	_, err := ExecRunner{}.Run(context.Background(), "/bin/sh", []string{"-c", "exit 1"}, nil)
	var procErr *ProcessError
	require.ErrorAs(t, err, &procErr)
	assert.Equal(t, "/bin/sh exited with code 1", procErr.Error())
}

func TestExecRunner_MissingBinary(t *testing.T) {
	_, err := ExecRunner{}.Run(context.Background(), "/nonexistent/definitely-missing", nil, nil)
	var spawnErr *SpawnError
	require.ErrorAs(t, err, &spawnErr)
}

func TestExecRunner_StreamsStdout(t *testing.T) {
	requireShell(t)

	var stream bytes.Buffer
	res, err := ExecRunner{}.Run(context.Background(), "/bin/sh", []string{"-c", "echo a; echo b"}, &stream)
	require.NoError(t, err)
	assert.Equal(t, "a\nb\n", stream.String())
	assert.Equal(t, "a\nb\n", res.Stdout)
}

func TestExecRunner_Cancelled(t *testing.T) {
	requireShell(t)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := ExecRunner{}.Run(ctx, "/bin/sh", []string{"-c", "exec sleep 5"}, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}
