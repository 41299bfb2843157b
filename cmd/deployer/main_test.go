package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artpar/deployer/internal/core/pipeline"
	"github.com/artpar/deployer/internal/shell/docker"
	"github.com/artpar/deployer/internal/shell/report"
)

type unreachableRuntime struct{}

func (unreachableRuntime) Ping(ctx context.Context) error {
	return docker.ErrConnectionFailed
}

func (unreachableRuntime) InspectImage(ctx context.Context, ref string) (*docker.ImageInfo, error) {
	return nil, docker.ErrConnectionFailed
}

func (unreachableRuntime) ListContainers(ctx context.Context, opts docker.ListOptions) ([]docker.ContainerInfo, error) {
	return nil, docker.ErrConnectionFailed
}

func TestRun_TooManyArguments(t *testing.T) {
	assert.Equal(t, pipeline.ExitFailure, run([]string{"production", "extra"}))
}

func TestRun_InvalidConfigFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "deployer.yaml")
	require.NoError(t, os.WriteFile(path, []byte("service: [[["), 0644))
	t.Setenv("DEPLOYER_CONFIG", path)

	assert.Equal(t, pipeline.ExitFailure, run(nil))
}

func TestRun_MissingExplicitConfigFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("DEPLOYER_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))

	assert.Equal(t, pipeline.ExitFailure, run(nil))
}

func TestRun_ConfigFailsValidation(t *testing.T) {
	clearEnv(t)
	t.Setenv("DEPLOYER_MIGRATE_MODE", "flyway")

	assert.Equal(t, pipeline.ExitFailure, run([]string{"development"}))
}

func TestNewOrchestrator_UnreachableRuntimeFailsPreflight(t *testing.T) {
	clearEnv(t)
	cfg, err := LoadConfig("", false)
	require.NoError(t, err)
	cfg.Compose.Project = "smartaid"

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	o, err := newOrchestrator(cfg, "production", unreachableRuntime{}, report.NewPlain(io.Discard), logger)
	require.NoError(t, err)

	result := o.Deploy(context.Background(), "run-test")

	assert.Equal(t, pipeline.ExitFailure, result.ExitCode())
	assert.Equal(t, "production", result.Environment)
	assert.Equal(t, pipeline.StagePreflight, result.Failed().Stage)
	assert.ErrorIs(t, result.Failed().Err, pipeline.ErrRuntimeUnreachable)
}

func TestNewOrchestrator_RejectsBadCommand(t *testing.T) {
	clearEnv(t)
	cfg, err := LoadConfig("", false)
	require.NoError(t, err)
	cfg.Seed.Command = "python 'unterminated"

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	_, err = newOrchestrator(cfg, "", unreachableRuntime{}, report.NewPlain(io.Discard), logger)
	assert.ErrorContains(t, err, "seed.command")
}

func TestNewReporter(t *testing.T) {
	f, err := os.Create(filepath.Join(t.TempDir(), "out.txt"))
	require.NoError(t, err)
	defer f.Close()

	assert.IsType(t, &report.Console{}, newReporter("console", f))
	assert.IsType(t, &report.Plain{}, newReporter("plain", f))
	// A regular file is not a terminal.
	assert.IsType(t, &report.Plain{}, newReporter("auto", f))
}
