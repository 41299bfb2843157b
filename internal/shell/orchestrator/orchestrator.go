package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/docker/go-units"
	"github.com/spf13/afero"

	"github.com/artpar/deployer/internal/core/compose"
	"github.com/artpar/deployer/internal/core/environment"
	"github.com/artpar/deployer/internal/core/monitoring"
	"github.com/artpar/deployer/internal/core/pipeline"
	"github.com/artpar/deployer/internal/core/readiness"
	"github.com/artpar/deployer/internal/core/summary"
	"github.com/artpar/deployer/internal/shell/docker"
	"github.com/artpar/deployer/internal/shell/health"
	"github.com/artpar/deployer/internal/shell/migrate"
	"github.com/artpar/deployer/internal/shell/report"
)

// =============================================================================
// Configuration
// =============================================================================

// Config holds everything a run needs besides its collaborators.
type Config struct {
	Deployment     environment.DeploymentConfig
	AppService     string
	ProjectName    string
	ComposeCommand []string
	MigrateMode    MigrateMode
	MigrateCommand []string
	SeedCommand    []string
	HealthPaths    []string
	Readiness      readiness.Policy
	Rollback       bool
	// Environ interpolates the compose file during inspection. Nil means
	// the process environment.
	Environ        []string
}

// Deps are the collaborators of a run. Native is only needed when
// MigrateMode is MigrateNative.
type Deps struct {
	Runtime  RuntimeClient
	Builder  ImageBuilder
	Services ServicesFactory
	Native   NativeMigrator
	Prober   Prober
	Reporter report.Reporter
	Fs       afero.Fs
	Clock    Clock
	Logger   *slog.Logger
}

// Orchestrator runs the deployment pipeline.
type Orchestrator struct {
	config Config
	deps   Deps
	logger *slog.Logger
}

// New creates an Orchestrator. Missing Fs, Clock and Logger get defaults.
func New(cfg Config, deps Deps) *Orchestrator {
	if deps.Fs == nil {
		deps.Fs = afero.NewOsFs()
	}
	if deps.Clock == nil {
		deps.Clock = SystemClock{}
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if cfg.MigrateMode == "" {
		cfg.MigrateMode = MigrateCompose
	}
	if len(cfg.HealthPaths) == 0 {
		cfg.HealthPaths = append([]string(nil), health.DefaultPaths...)
	}
	if cfg.Readiness.Mode == "" {
		cfg.Readiness = readiness.DefaultPolicy()
	}
	if cfg.Environ == nil {
		cfg.Environ = os.Environ()
	}
	return &Orchestrator{
		config: cfg,
		deps:   deps,
		logger: deps.Logger.With("component", "orchestrator"),
	}
}

// =============================================================================
// Run State
// =============================================================================

// compensation undoes a stage's side effect.
type compensation struct {
	name string
	undo func(ctx context.Context) error
}

// deployment is the state of a single run. It is discarded when Deploy returns.
type deployment struct {
	*Orchestrator
	run           *pipeline.Run
	cfg           environment.DeploymentConfig
	services      Services
	warnings      []string
	compensations []compensation
	logger        *slog.Logger
}

type stageFunc func(ctx context.Context) pipeline.StageOutcome

// Deploy executes every stage in order and returns the run log. A hard
// failure stops the run; the caller maps the run to an exit code.
func (o *Orchestrator) Deploy(ctx context.Context, runID string) *pipeline.Run {
	cfg := o.config.Deployment
	d := &deployment{
		Orchestrator: o,
		run:          pipeline.NewRun(runID, cfg.Environment, o.deps.Clock.Now()),
		cfg:          cfg,
		logger:       o.logger.With("run_id", runID, "environment", cfg.Environment),
	}

	o.deps.Reporter.Header(cfg.Environment, runID)
	d.logger.Info("deployment started", "image", cfg.ImageTag, "compose_file", cfg.ComposeFile)

	if !environment.IsRecognized(cfg.Environment) {
		d.warn(fmt.Sprintf("environment %q is not %q or %q; treating it as development",
			cfg.Environment, environment.Default, environment.Production))
	}

	stages := []struct {
		stage pipeline.Stage
		fn    stageFunc
	}{
		{pipeline.StagePreflight, d.preflight},
		{pipeline.StageBuild, d.build},
		{pipeline.StageMigrate, d.migrate},
		{pipeline.StageLaunch, d.launch},
		{pipeline.StageReadiness, d.awaitReadiness},
		{pipeline.StageHealth, d.verifyHealth},
		{pipeline.StageSeed, d.seed},
		{pipeline.StageSummary, d.summarize},
	}

	for _, s := range stages {
		o.deps.Reporter.StageStarted(s.stage)

		var outcome pipeline.StageOutcome
		if err := ctx.Err(); err != nil {
			outcome = pipeline.Failure(s.stage, pipeline.NewStageError(s.stage, "", err))
		} else {
			start := o.deps.Clock.Now()
			outcome = s.fn(ctx)
			outcome.Duration = o.deps.Clock.Now().Sub(start)
		}

		d.logger.Info("stage completed",
			"stage", s.stage,
			"status", outcome.Status,
			"duration", outcome.Duration,
		)

		if !d.run.Record(outcome) {
			o.deps.Reporter.Failure(outcome.Err.Error())
			d.logger.Error("deployment failed", "stage", s.stage, "error", outcome.Err)
			d.rollback(ctx)
			break
		}
	}

	o.deps.Reporter.Outcomes(d.run)
	d.logger.Info("deployment finished", "status", d.run.Status(), "exit_code", d.run.ExitCode())
	return d.run
}

// warn reports a warning and keeps it for the summary.
func (d *deployment) warn(msg string) {
	d.warnings = append(d.warnings, msg)
	d.deps.Reporter.Warning(msg)
	d.logger.Warn(msg)
}

// onFailure registers a compensation for the most recent side effect.
func (d *deployment) onFailure(name string, undo func(ctx context.Context) error) {
	d.compensations = append(d.compensations, compensation{name: name, undo: undo})
}

// rollback runs registered compensations in reverse order. It runs on a
// context detached from the run so a cancelled run can still clean up.
func (d *deployment) rollback(ctx context.Context) {
	if !d.config.Rollback || len(d.compensations) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), RollbackTimeout)
	defer cancel()

	for i := len(d.compensations) - 1; i >= 0; i-- {
		c := d.compensations[i]
		d.deps.Reporter.Info("rolling back: " + c.name)
		if err := c.undo(ctx); err != nil {
			d.deps.Reporter.Warning(fmt.Sprintf("rollback %s failed: %v", c.name, err))
			d.logger.Warn("rollback step failed", "step", c.name, "error", err)
			continue
		}
		d.logger.Info("rollback step completed", "step", c.name)
	}
}

// =============================================================================
// Stages
// =============================================================================

func (d *deployment) preflight(ctx context.Context) pipeline.StageOutcome {
	stage := pipeline.StagePreflight

	if err := d.deps.Runtime.Ping(ctx); err != nil {
		return pipeline.Failure(stage, pipeline.NewStageError(stage, "",
			fmt.Errorf("%w: %w", pipeline.ErrRuntimeUnreachable, err)))
	}
	d.deps.Reporter.Success("container runtime is running")

	dockerfile := d.cfg.Build.Dockerfile
	if ok, _ := afero.Exists(d.deps.Fs, dockerfile); !ok {
		return pipeline.Failure(stage, pipeline.NewStageError(stage, "",
			fmt.Errorf("%w: %s", pipeline.ErrDockerfileMissing, dockerfile)))
	}
	d.deps.Reporter.Success("found " + dockerfile)

	composeFile := d.cfg.ComposeFile
	if ok, _ := afero.Exists(d.deps.Fs, composeFile); !ok {
		if composeFile != d.cfg.DefaultComposeFile {
			d.warn(fmt.Sprintf("compose file %s not found, using %s", composeFile, d.cfg.DefaultComposeFile))
			d.cfg = d.cfg.WithComposeFile(d.cfg.DefaultComposeFile)
		} else {
			d.warn(fmt.Sprintf("compose file %s not found", composeFile))
		}
	} else {
		d.deps.Reporter.Success("found " + composeFile)
	}

	d.inspectCompose()
	d.services = d.deps.Services(d.cfg.ComposeFile)
	return pipeline.Success(stage)
}

// inspectCompose parses the resolved compose file and warns when it does
// not define the app service. Problems here never fail the run; the compose
// CLI remains the authority on the file.
func (d *deployment) inspectCompose() {
	content, err := afero.ReadFile(d.deps.Fs, d.cfg.ComposeFile)
	if err != nil {
		return
	}

	topology, err := compose.ParseComposeSpec(string(content), d.config.ProjectName, d.config.Environ)
	if err != nil {
		d.warn(fmt.Sprintf("could not inspect %s: %v", d.cfg.ComposeFile, err))
		return
	}
	d.logger.Debug("compose file inspected", "services", topology.ServiceNames(), "volumes", topology.Volumes)

	if d.config.AppService == "" {
		return
	}
	if _, err := topology.Service(d.config.AppService); err != nil {
		d.warn(fmt.Sprintf("%s does not define service %q", d.cfg.ComposeFile, d.config.AppService))
	}
}

func (d *deployment) build(ctx context.Context) pipeline.StageOutcome {
	stage := pipeline.StageBuild

	spec := docker.BuildSpec{
		Context:    d.cfg.Build.Context,
		Dockerfile: d.cfg.Build.Dockerfile,
		Tag:        d.cfg.ImageTag,
		Args:       d.cfg.Build.Args,
	}
	d.deps.Reporter.Info(fmt.Sprintf("building %s from %s", spec.Tag, spec.Dockerfile))

	if err := d.deps.Builder.Build(ctx, spec); err != nil {
		return pipeline.Failure(stage, pipeline.NewStageError(stage, "",
			fmt.Errorf("%w: %w", pipeline.ErrBuildFailed, err)))
	}

	info, err := d.deps.Runtime.InspectImage(ctx, spec.Tag)
	if err != nil {
		d.logger.Debug("image inspection failed", "image", spec.Tag, "error", err)
		d.deps.Reporter.Success("built " + spec.Tag)
		return pipeline.Success(stage)
	}

	d.logger.Info("image built", "image", spec.Tag, "image_id", info.ID, "size_bytes", info.SizeBytes)
	d.deps.Reporter.Success(fmt.Sprintf("built %s (%s, %s)", spec.Tag, shortID(info.ID), units.HumanSize(float64(info.SizeBytes))))
	return pipeline.Success(stage)
}

func (d *deployment) migrate(ctx context.Context) pipeline.StageOutcome {
	stage := pipeline.StageMigrate

	if d.cfg.IsProduction() {
		d.warn("skipping migrations in production; apply them out of band")
		return pipeline.Skipped(stage, "production migrations are applied out of band")
	}

	var err error
	switch d.config.MigrateMode {
	case MigrateNative:
		if d.deps.Native == nil {
			err = errors.New("native migrator is not configured")
			break
		}
		var res *migrate.Result
		if res, err = d.deps.Native.Up(ctx); err == nil {
			d.deps.Reporter.Success(describeMigration(res))
		}
	default:
		if err = d.services.Run(ctx, d.config.AppService, d.config.MigrateCommand); err == nil {
			d.deps.Reporter.Success("migrations applied")
		}
	}

	if err != nil {
		return pipeline.Failure(stage, pipeline.NewStageError(stage, "",
			fmt.Errorf("%w: %w", pipeline.ErrMigrationFailed, err)))
	}
	return pipeline.Success(stage)
}

func describeMigration(res *migrate.Result) string {
	if !res.Changed {
		return fmt.Sprintf("schema already at version %d", res.Version)
	}
	return fmt.Sprintf("migrated schema to version %d", res.Version)
}

func (d *deployment) launch(ctx context.Context) pipeline.StageOutcome {
	stage := pipeline.StageLaunch

	// Registered before Up so a partial start is torn down too.
	d.onFailure("compose down", d.services.Down)

	if err := d.services.Up(ctx); err != nil {
		return pipeline.Failure(stage, pipeline.NewStageError(stage, "",
			fmt.Errorf("%w: %w", pipeline.ErrLaunchFailed, err)))
	}
	d.deps.Reporter.Success("services started")
	return pipeline.Success(stage)
}

func (d *deployment) awaitReadiness(ctx context.Context) pipeline.StageOutcome {
	stage := pipeline.StageReadiness
	policy := d.config.Readiness

	if policy.Mode == readiness.ModeFixed {
		d.deps.Reporter.Info(fmt.Sprintf("waiting %s for services to start", policy.Delay))
		if err := d.deps.Clock.Sleep(ctx, policy.Delay); err != nil {
			return pipeline.Failure(stage, pipeline.NewStageError(stage, "", err))
		}
		return pipeline.Success(stage)
	}

	path := d.config.HealthPaths[0]
	d.deps.Reporter.Info(fmt.Sprintf("waiting up to %s for %s", policy.Timeout, d.deps.Prober.URL(path)))

	start := d.deps.Clock.Now()
	for attempt := 0; ; attempt++ {
		err := d.deps.Prober.Probe(ctx, path)
		if err == nil {
			d.deps.Reporter.Success(fmt.Sprintf("services ready after %d attempt(s)", attempt+1))
			return pipeline.Success(stage)
		}

		wait, ok := policy.NextWait(attempt, d.deps.Clock.Now().Sub(start))
		if !ok {
			return pipeline.Failure(stage, pipeline.NewStageError(stage, "",
				fmt.Errorf("%w within %s: %w", pipeline.ErrNotReady, policy.Timeout, err)))
		}
		d.logger.Debug("services not ready yet", "attempt", attempt+1, "wait", wait, "error", err)

		if err := d.deps.Clock.Sleep(ctx, wait); err != nil {
			return pipeline.Failure(stage, pipeline.NewStageError(stage, "", err))
		}
	}
}

func (d *deployment) verifyHealth(ctx context.Context) pipeline.StageOutcome {
	stage := pipeline.StageHealth

	for _, path := range d.config.HealthPaths {
		if err := d.deps.Prober.Probe(ctx, path); err != nil {
			return pipeline.Failure(stage, pipeline.NewStageError(stage, "",
				fmt.Errorf("%w: %w", pipeline.ErrUnhealthy, err)))
		}
		d.deps.Reporter.Success(d.deps.Prober.URL(path) + " is healthy")
	}
	return pipeline.Success(stage)
}

func (d *deployment) seed(ctx context.Context) pipeline.StageOutcome {
	stage := pipeline.StageSeed

	if d.cfg.Kind != environment.KindDevelopment {
		return pipeline.Skipped(stage, "seeding runs in development only")
	}

	if err := d.services.Exec(ctx, d.config.AppService, d.config.SeedCommand); err != nil {
		err = fmt.Errorf("%w: %w", pipeline.ErrSeedFailed, err)
		d.warn(fmt.Sprintf("seeding failed, continuing: %v", err))
		return pipeline.SoftFailure(stage, pipeline.NewStageError(stage, "", err))
	}
	d.deps.Reporter.Success("development data seeded")
	return pipeline.Success(stage)
}

func (d *deployment) summarize(ctx context.Context) pipeline.StageOutcome {
	// Listing may add warnings, so it runs before they are collected.
	containers := d.containers(ctx)

	s := summary.Build(summary.Input{
		Environment:    d.cfg.Environment,
		ImageTag:       d.cfg.ImageTag,
		BaseURL:        d.deps.Prober.URL(""),
		ComposeCommand: d.config.ComposeCommand,
		ComposeFile:    d.cfg.ComposeFile,
		ProjectName:    d.config.ProjectName,
		AppService:     d.config.AppService,
		Containers:     containers,
		Warnings:       d.warnings,
	})
	d.deps.Reporter.Summary(s)
	return pipeline.Success(pipeline.StageSummary)
}

// containers lists the project's containers. Failures only cost the listing.
func (d *deployment) containers(ctx context.Context) []summary.Container {
	if d.config.ProjectName == "" {
		return nil
	}

	list, err := d.deps.Runtime.ListContainers(ctx, docker.ProjectFilter(d.config.ProjectName))
	if err != nil {
		d.logger.Debug("container listing failed", "project", d.config.ProjectName, "error", err)
		return nil
	}

	out := make([]summary.Container, 0, len(list))
	for _, c := range list {
		health := monitoring.DetermineContainerHealth(c.State, c.Status)
		if msg := monitoring.ContainerMessage(c.Name, c.State, health); msg != "" {
			d.warn(msg)
		}
		out = append(out, summary.Container{
			Name:   c.Name,
			State:  c.State,
			Health: health,
			Ports:  docker.FormatPorts(c.Ports),
		})
	}
	return out
}

func shortID(id string) string {
	const prefix = "sha256:"
	if len(id) > len(prefix) && id[:len(prefix)] == prefix {
		id = id[len(prefix):]
	}
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
