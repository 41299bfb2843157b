package pipeline

import (
	"errors"
	"fmt"
)

// =============================================================================
// Error Types
// =============================================================================

var (
	// Precondition errors
	ErrRuntimeUnreachable = errors.New("container runtime is not reachable")
	ErrDockerfileMissing  = errors.New("dockerfile not found")

	// Stage execution errors
	ErrBuildFailed     = errors.New("image build failed")
	ErrMigrationFailed = errors.New("database migration failed")
	ErrLaunchFailed    = errors.New("service start failed")
	ErrNotReady        = errors.New("services did not become ready")
	ErrUnhealthy       = errors.New("health check failed")

	// Best-effort errors
	ErrSeedFailed = errors.New("data seeding failed")
)

// StageError wraps a stage failure with the stage that produced it.
type StageError struct {
	Stage   Stage
	Message string
	Err     error
}

func (e *StageError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Stage, e.Message)
	}
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// NewStageError creates a new StageError.
func NewStageError(stage Stage, message string, err error) *StageError {
	return &StageError{
		Stage:   stage,
		Message: message,
		Err:     err,
	}
}
