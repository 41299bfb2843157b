// Command deployer builds, migrates, launches and verifies the backend
// service for one environment.
//
// Usage:
//
//	deployer [environment]
//
// The environment defaults to "development". Configuration is read from
// $DEPLOYER_CONFIG or ./deployer.yaml and DEPLOYER_* environment variables.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/google/uuid"
	"github.com/mattn/go-isatty"
	"github.com/spf13/afero"

	"github.com/artpar/deployer/internal/core/compose"
	"github.com/artpar/deployer/internal/core/environment"
	"github.com/artpar/deployer/internal/core/pipeline"
	"github.com/artpar/deployer/internal/shell/docker"
	"github.com/artpar/deployer/internal/shell/health"
	"github.com/artpar/deployer/internal/shell/migrate"
	"github.com/artpar/deployer/internal/shell/orchestrator"
	"github.com/artpar/deployer/internal/shell/report"
	"github.com/artpar/deployer/internal/shell/runner"
)

// Version information (set by build)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) > 1 {
		fmt.Fprintln(os.Stderr, "usage: deployer [environment]")
		return pipeline.ExitFailure
	}
	var token string
	if len(args) == 1 {
		token = args[0]
	}

	// Load configuration
	configPath, explicit := ConfigPath()
	cfg, err := LoadConfig(configPath, explicit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		return pipeline.ExitFailure
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		return pipeline.ExitFailure
	}

	// Setup logger
	logger := SetupLogger(cfg, os.Stderr)
	runID := uuid.NewString()
	logger.Info("starting deployer",
		"version", Version,
		"build_time", BuildTime,
		"config", configPath,
		"run_id", runID,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, cfg.Pipeline.Timeout)
	defer cancel()

	reporter := newReporter(cfg.Output.Style, os.Stdout)

	dockerClient, err := docker.NewDockerClient(cfg.Docker.Host)
	if err != nil {
		logger.Error("failed to create docker client", "error", err)
		reporter.Failure(err.Error())
		return pipeline.ExitFailure
	}
	defer dockerClient.Close()

	o, err := newOrchestrator(cfg, token, dockerClient, reporter, logger)
	if err != nil {
		logger.Error("failed to configure pipeline", "error", err)
		reporter.Failure(err.Error())
		return pipeline.ExitFailure
	}

	result := o.Deploy(ctx, runID)
	return result.ExitCode()
}

// newOrchestrator wires the pipeline's collaborators from configuration.
func newOrchestrator(cfg *Config, token string, client orchestrator.RuntimeClient, reporter report.Reporter, logger *slog.Logger) (*orchestrator.Orchestrator, error) {
	composeCommand, err := splitCommand(cfg.Compose.Command)
	if err != nil {
		return nil, fmt.Errorf("compose.command: %w", err)
	}
	migrateCommand, err := splitCommand(cfg.Migrate.Command)
	if err != nil {
		return nil, fmt.Errorf("migrate.command: %w", err)
	}
	seedCommand, err := splitCommand(cfg.Seed.Command)
	if err != nil {
		return nil, fmt.Errorf("seed.command: %w", err)
	}

	project := cfg.Compose.Project
	if project == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("resolve working directory: %w", err)
		}
		project = compose.NormalizeProjectName(filepath.Base(wd))
	}

	cmdRunner := runner.NewExecRunner(logger, os.Stdout)

	deps := orchestrator.Deps{
		Runtime: client,
		Builder: docker.NewBuilder(cmdRunner, "", logger),
		Services: func(file string) orchestrator.Services {
			return docker.NewCompose(cmdRunner, docker.ComposeConfig{
				Command: composeCommand,
				File:    file,
				Project: project,
			}, logger)
		},
		Prober: health.NewProber(health.Config{
			BaseURL: cfg.Health.BaseURL,
			Timeout: cfg.Health.Timeout,
		}, logger),
		Reporter: reporter,
		Fs:       afero.NewOsFs(),
		Clock:    orchestrator.SystemClock{},
		Logger:   logger,
	}

	mode := orchestrator.MigrateMode(cfg.Migrate.Mode)
	if mode == orchestrator.MigrateNative {
		deps.Native = migrate.NewNative(migrate.Config{
			Source:      cfg.Migrate.Source,
			DatabaseURL: cfg.Migrate.DatabaseURL,
		}, logger)
	}

	return orchestrator.New(orchestrator.Config{
		Deployment:     environment.Resolve(token, cfg.Settings()),
		AppService:     cfg.Service.App,
		ProjectName:    project,
		ComposeCommand: composeCommand,
		MigrateMode:    mode,
		MigrateCommand: migrateCommand,
		SeedCommand:    seedCommand,
		HealthPaths:    cfg.Health.Paths,
		Readiness:      cfg.ReadinessPolicy(),
		Rollback:       cfg.Rollback.Enabled,
		Environ:        os.Environ(),
	}, deps), nil
}

// newReporter picks the renderer. "auto" styles output only on a terminal.
func newReporter(style string, w *os.File) report.Reporter {
	switch style {
	case "console":
		return report.NewConsole(w)
	case "plain":
		return report.NewPlain(w)
	}
	if isatty.IsTerminal(w.Fd()) || isatty.IsCygwinTerminal(w.Fd()) {
		return report.NewConsole(w)
	}
	return report.NewPlain(w)
}
