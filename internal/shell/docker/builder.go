package docker

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/artpar/deployer/internal/shell/runner"
)

// =============================================================================
// Image Builder
// =============================================================================

// BuildSpec describes one image build.
type BuildSpec struct {
	Context    string
	Dockerfile string
	Tag        string
	Args       []string // extra CLI flags, e.g. --no-cache
}

// Builder builds images through the docker CLI.
type Builder struct {
	runner runner.Runner
	binary string
	logger *slog.Logger
}

// NewBuilder creates a Builder. binary defaults to "docker".
func NewBuilder(r runner.Runner, binary string, logger *slog.Logger) *Builder {
	if binary == "" {
		binary = "docker"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{
		runner: r,
		binary: binary,
		logger: logger.With("component", "builder"),
	}
}

// BuildCommand returns the command that builds spec.
func (b *Builder) BuildCommand(spec BuildSpec) runner.Command {
	args := []string{"build", "-f", spec.Dockerfile, "-t", spec.Tag}
	args = append(args, spec.Args...)
	args = append(args, spec.Context)
	return runner.Command{Name: b.binary, Args: args}
}

// Build runs the image build. The build's own exit status decides success.
func (b *Builder) Build(ctx context.Context, spec BuildSpec) error {
	if spec.Context == "" {
		spec.Context = "."
	}
	cmd := b.BuildCommand(spec)

	b.logger.Info("building image",
		"tag", spec.Tag,
		"dockerfile", spec.Dockerfile,
		"args", spec.Args,
	)

	result, err := b.runner.Run(ctx, cmd)
	if err != nil {
		return NewDockerError("Build", "image", spec.Tag, err.Error(), err)
	}
	if !result.Success() {
		return NewDockerError("Build", "image", spec.Tag,
			fmt.Sprintf("exit status %d: %s", result.ExitCode, lastLine(result.Output())), ErrBuildFailed)
	}

	b.logger.Info("image built", "tag", spec.Tag, "duration", result.Duration)
	return nil
}
