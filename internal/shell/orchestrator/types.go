// Package orchestrator drives one deployment run through the fixed stage
// sequence: preflight, build, migrate, launch, readiness, health, seed and
// summary. Every external effect goes through a narrow interface so the
// stage logic can be exercised without a container runtime.
package orchestrator

import (
	"context"
	"time"

	"github.com/artpar/deployer/internal/shell/docker"
	"github.com/artpar/deployer/internal/shell/migrate"
)

// =============================================================================
// Collaborators
// =============================================================================

// RuntimeClient is the subset of the Docker Engine API the pipeline uses.
type RuntimeClient interface {
	Ping(ctx context.Context) error
	InspectImage(ctx context.Context, ref string) (*docker.ImageInfo, error)
	ListContainers(ctx context.Context, opts docker.ListOptions) ([]docker.ContainerInfo, error)
}

// ImageBuilder builds the service image.
type ImageBuilder interface {
	Build(ctx context.Context, spec docker.BuildSpec) error
}

// Services controls the compose project for the resolved compose file.
type Services interface {
	Run(ctx context.Context, service string, command []string) error
	Up(ctx context.Context) error
	Exec(ctx context.Context, service string, command []string) error
	Down(ctx context.Context) error
}

// ServicesFactory binds Services to a compose file. The file is only known
// once preflight has applied the fallback.
type ServicesFactory func(composeFile string) Services

// NativeMigrator applies migrations without a compose container.
type NativeMigrator interface {
	Up(ctx context.Context) (*migrate.Result, error)
}

// Prober performs one health probe.
type Prober interface {
	Probe(ctx context.Context, path string) error
	URL(path string) string
}

// Clock abstracts time so readiness polling is testable.
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}

// SystemClock is the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now()
}

// Sleep waits for d or until ctx is done.
func (SystemClock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// =============================================================================
// Migration Modes
// =============================================================================

// MigrateMode selects how the migrate stage applies migrations.
type MigrateMode string

const (
	// MigrateCompose runs the migration command in a transient app container.
	MigrateCompose MigrateMode = "compose"

	// MigrateNative applies file migrations directly with golang-migrate.
	MigrateNative MigrateMode = "native"
)

// IsValid reports whether m is a known mode.
func (m MigrateMode) IsValid() bool {
	return m == MigrateCompose || m == MigrateNative
}

// RollbackTimeout bounds the compensations run after a hard failure.
const RollbackTimeout = 2 * time.Minute
