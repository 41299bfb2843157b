package docker

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/artpar/deployer/internal/shell/runner"
)

// =============================================================================
// Compose CLI
// =============================================================================

// ComposeConfig identifies the compose project to operate on.
type ComposeConfig struct {
	Command []string // e.g. ["docker", "compose"] or ["docker-compose"]
	File    string
	Project string // empty lets compose derive it from the directory
	Dir     string
}

// Compose drives the compose CLI for one project file.
type Compose struct {
	runner runner.Runner
	config ComposeConfig
	logger *slog.Logger
}

// NewCompose creates a Compose. An empty command defaults to "docker compose".
func NewCompose(r runner.Runner, cfg ComposeConfig, logger *slog.Logger) *Compose {
	if len(cfg.Command) == 0 {
		cfg.Command = []string{"docker", "compose"}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Compose{
		runner: r,
		config: cfg,
		logger: logger.With("component", "compose", "file", cfg.File),
	}
}

// File returns the compose file in use.
func (c *Compose) File() string {
	return c.config.File
}

// Command builds the full command line for a compose subcommand.
func (c *Compose) Command(sub ...string) runner.Command {
	args := append([]string(nil), c.config.Command[1:]...)
	if c.config.Project != "" {
		args = append(args, "-p", c.config.Project)
	}
	args = append(args, "-f", c.config.File)
	args = append(args, sub...)
	return runner.Command{
		Name: c.config.Command[0],
		Args: args,
		Dir:  c.config.Dir,
	}
}

// Run executes command in a transient container of service, removed afterwards.
func (c *Compose) Run(ctx context.Context, service string, command []string) error {
	sub := append([]string{"run", "--rm", service}, command...)
	return c.exec(ctx, "Run", service, sub)
}

// Up starts every service of the project in the background.
func (c *Compose) Up(ctx context.Context) error {
	return c.exec(ctx, "Up", "", []string{"up", "-d"})
}

// Exec runs command inside the running container of service without a TTY.
func (c *Compose) Exec(ctx context.Context, service string, command []string) error {
	sub := append([]string{"exec", "-T", service}, command...)
	return c.exec(ctx, "Exec", service, sub)
}

// Down stops and removes the project's containers and networks.
func (c *Compose) Down(ctx context.Context) error {
	return c.exec(ctx, "Down", "", []string{"down"})
}

func (c *Compose) exec(ctx context.Context, op, service string, sub []string) error {
	cmd := c.Command(sub...)
	c.logger.Debug("compose", "op", op, "command", cmd.String())

	result, err := c.runner.Run(ctx, cmd)
	entity := "project"
	id := c.config.Project
	if service != "" {
		entity, id = "service", service
	}
	if err != nil {
		return NewDockerError(op, entity, id, err.Error(), err)
	}
	if !result.Success() {
		return NewDockerError(op, entity, id,
			fmt.Sprintf("exit status %d: %s", result.ExitCode, lastLine(result.Output())), ErrComposeFailed)
	}
	return nil
}

// lastLine returns the final non-empty line of CLI output, which is where
// docker and compose print the failure reason.
func lastLine(output string) string {
	lines := strings.Split(strings.TrimSpace(output), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}
