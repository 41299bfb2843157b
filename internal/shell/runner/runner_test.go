package runner

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestExecRunner_Success(t *testing.T) {
	r := NewExecRunner(setupTestLogger(), nil)

	result, err := r.Run(context.Background(), Command{Name: "sh", Args: []string{"-c", "echo hello"}})
	require.NoError(t, err)

	assert.True(t, result.Success())
	assert.Equal(t, 0, result.ExitCode)
	assert.Equal(t, "hello\n", result.Stdout)
	assert.Equal(t, "hello", result.Output())
}

func TestExecRunner_NonZeroExitIsNotAnError(t *testing.T) {
	r := NewExecRunner(setupTestLogger(), nil)

	result, err := r.Run(context.Background(), Command{Name: "sh", Args: []string{"-c", "echo boom >&2; exit 3"}})
	require.NoError(t, err)

	assert.False(t, result.Success())
	assert.Equal(t, 3, result.ExitCode)
	assert.Equal(t, "boom", result.Output())
}

func TestExecRunner_MissingBinary(t *testing.T) {
	r := NewExecRunner(setupTestLogger(), nil)

	result, err := r.Run(context.Background(), Command{Name: "definitely-not-a-real-binary-xyz"})
	require.Error(t, err)
	assert.Equal(t, -1, result.ExitCode)
}

func TestExecRunner_EmptyCommand(t *testing.T) {
	r := NewExecRunner(nil, nil)

	_, err := r.Run(context.Background(), Command{})
	assert.True(t, errors.Is(err, ErrEmptyCommand))
}

func TestExecRunner_Cancelled(t *testing.T) {
	r := NewExecRunner(setupTestLogger(), nil)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := r.Run(ctx, Command{Name: "sleep", Args: []string{"5"}})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestExecRunner_StreamsOutput(t *testing.T) {
	var stream bytes.Buffer
	r := NewExecRunner(setupTestLogger(), &stream)

	result, err := r.Run(context.Background(), Command{Name: "sh", Args: []string{"-c", "echo out; echo err >&2"}})
	require.NoError(t, err)

	assert.Equal(t, "out\n", result.Stdout)
	assert.Equal(t, "err\n", result.Stderr)
	assert.Contains(t, stream.String(), "out")
	assert.Contains(t, stream.String(), "err")
}

func TestExecRunner_DirAndEnv(t *testing.T) {
	dir := t.TempDir()
	r := NewExecRunner(setupTestLogger(), nil)

	result, err := r.Run(context.Background(), Command{
		Name: "sh",
		Args: []string{"-c", "pwd; echo $DEPLOYER_TEST_VAR"},
		Dir:  dir,
		Env:  []string{"DEPLOYER_TEST_VAR=set"},
	})
	require.NoError(t, err)

	assert.Contains(t, result.Stdout, dir)
	assert.Contains(t, result.Stdout, "set")
}

func TestCommand_String(t *testing.T) {
	cmd := Command{Name: "docker", Args: []string{"build", "-t", "app:dev", "."}}
	assert.Equal(t, "docker build -t app:dev .", cmd.String())
	assert.Equal(t, "true", Command{Name: "true"}.String())
}
